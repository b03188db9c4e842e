package bytecode

import (
	"bytes"
	"encoding/gob"
	"fmt"
	"io"
	"os"
)

// Decoder turns a compiled program's bytes into a *Program. The compiler's
// real wire format is out of scope for this runtime (spec.md §1); Decoder is
// the seam a host wires its actual deserializer into. GobDecoder is the
// stand-in used by this module's own tooling and tests.
type Decoder interface {
	Decode(r io.Reader) (*Program, error)
}

// GobDecoder decodes a Program encoded with encoding/gob. Real deployments
// replace this with a decoder for the compiler's actual (externally defined)
// schema; gob is used here only so this module is self-contained without a
// protoc invocation.
type GobDecoder struct{}

// Decode implements Decoder.
func (GobDecoder) Decode(r io.Reader) (*Program, error) {
	var p Program
	if err := gob.NewDecoder(r).Decode(&p); err != nil {
		return nil, fmt.Errorf("bytecode: gob decode: %w", err)
	}
	if p.Nodes == nil {
		return nil, fmt.Errorf("bytecode: decoded program has no nodes")
	}
	return &p, nil
}

// Encode writes p in the GobDecoder's format. Used by tests and by tooling
// that produces fixture programs.
func Encode(w io.Writer, p *Program) error {
	return gob.NewEncoder(w).Encode(p)
}

// Load reads and decodes the program at path using dec.
func Load(path string, dec Decoder) (*Program, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("bytecode: open %s: %w", path, err)
	}
	defer f.Close()
	return dec.Decode(f)
}

// Marshal encodes p with GobDecoder's wire format into a byte slice. Handy
// for tests that build a Program in memory and want to exercise Load.
func Marshal(p *Program) ([]byte, error) {
	var buf bytes.Buffer
	if err := Encode(&buf, p); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
