package dialogscript

import (
	"encoding/base64"
	"fmt"
	"math/rand/v2"
)

// RNG is the VM's deterministic random source (spec.md §4.4 random/
// random_range/dice, §9 design note: "the generator's state must be part of
// the save file and must round-trip losslessly"). It wraps rand/v2's PCG,
// the one stdlib generator whose state implements encoding.BinaryMarshaler/
// Unmarshaler, so Save/Restore can serialize it as opaque, lossless text
// without hand-rolling an MT19937 port (no pack example ships one).
type RNG struct {
	src *rand.PCG
	r   *rand.Rand
}

// NewRNG constructs an RNG seeded deterministically from seed.
func NewRNG(seed uint64) *RNG {
	// PCG takes two 64-bit halves; deriving both from the single seed this way
	// keeps Settings.Seed a single number while still giving the generator
	// its full 128 bits of state.
	src := rand.NewPCG(seed, seed^0x9E3779B97F4A7C15)
	return &RNG{src: src, r: rand.New(src)}
}

// Float32 returns a value in [0, 1).
func (g *RNG) Float32() float32 { return float32(g.r.Float64()) }

// IntRange returns a value in [lo, hi] inclusive, matching the original's
// inclusive dice/random_range semantics.
func (g *RNG) IntRange(lo, hi int64) int64 {
	if hi < lo {
		lo, hi = hi, lo
	}
	span := hi - lo + 1
	if span <= 0 {
		return lo
	}
	return lo + g.r.Int64N(span)
}

// MarshalText serializes the generator's internal state as base64 text, for
// embedding directly in a JSON save file (spec.md §3: "generator" field).
func (g *RNG) MarshalText() ([]byte, error) {
	state, err := g.src.MarshalBinary()
	if err != nil {
		return nil, fmt.Errorf("marshal RNG state: %w", err)
	}
	out := make([]byte, base64.StdEncoding.EncodedLen(len(state)))
	base64.StdEncoding.Encode(out, state)
	return out, nil
}

// UnmarshalText restores the generator's internal state from MarshalText's
// output.
func (g *RNG) UnmarshalText(text []byte) error {
	state := make([]byte, base64.StdEncoding.DecodedLen(len(text)))
	n, err := base64.StdEncoding.Decode(state, text)
	if err != nil {
		return fmt.Errorf("decode RNG state: %w", err)
	}
	src := new(rand.PCG)
	if err := src.UnmarshalBinary(state[:n]); err != nil {
		return fmt.Errorf("unmarshal RNG state: %w", err)
	}
	g.src = src
	g.r = rand.New(src)
	return nil
}
