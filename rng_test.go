package dialogscript

import "testing"

func TestRNGDeterministicForSameSeed(t *testing.T) {
	a := NewRNG(42)
	b := NewRNG(42)
	for i := 0; i < 20; i++ {
		if av, bv := a.Float32(), b.Float32(); av != bv {
			t.Fatalf("draw %d diverged: %v != %v", i, av, bv)
		}
	}
}

func TestRNGIntRangeInclusiveBounds(t *testing.T) {
	g := NewRNG(1)
	for i := 0; i < 200; i++ {
		n := g.IntRange(1, 6)
		if n < 1 || n > 6 {
			t.Fatalf("IntRange(1,6) = %d, out of bounds", n)
		}
	}
}

func TestRNGMarshalRoundTrip(t *testing.T) {
	g := NewRNG(7)
	_ = g.Float32()
	_ = g.Float32()
	text, err := g.MarshalText()
	if err != nil {
		t.Fatalf("MarshalText: %v", err)
	}

	restored := NewRNG(0)
	if err := restored.UnmarshalText(text); err != nil {
		t.Fatalf("UnmarshalText: %v", err)
	}

	for i := 0; i < 10; i++ {
		want := g.Float32()
		got := restored.Float32()
		if want != got {
			t.Fatalf("draw %d after restore: got %v, want %v", i, got, want)
		}
	}
}
