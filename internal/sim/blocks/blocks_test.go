package blocks

import "testing"

func TestByName_RoundTrip(t *testing.T) {
	for k := Kind(0); k < kindCount; k++ {
		name := Get(k).Name
		if name == "" {
			t.Fatalf("kind %d has no name", k)
		}
		got, ok := ByName(name)
		if !ok || got != k {
			t.Fatalf("ByName(%q) = %v,%v, want %v", name, got, ok, k)
		}
	}
	if _, ok := ByName("BEDROCK"); ok {
		t.Fatalf("unknown name resolved")
	}
}

func TestPalette_AirFirstRestSorted(t *testing.T) {
	p := Palette()
	if len(p) != Count() {
		t.Fatalf("palette has %d names, want %d", len(p), Count())
	}
	if p[0] != "AIR" {
		t.Fatalf("first entry = %q, want AIR", p[0])
	}
	for i := 2; i < len(p); i++ {
		if p[i-1] > p[i] {
			t.Fatalf("palette not sorted at %d: %q > %q", i, p[i-1], p[i])
		}
	}
}

func TestPaletteDigest_Stable(t *testing.T) {
	if PaletteDigest() != PaletteDigest() {
		t.Fatalf("digest not deterministic")
	}
	if len(PaletteDigest()) != 64 {
		t.Fatalf("digest length = %d, want sha256 hex", len(PaletteDigest()))
	}
}

func TestDefs_Invariants(t *testing.T) {
	for k := Kind(0); k < kindCount; k++ {
		d := Get(k)
		if d.Emission < 0 || d.Emission > 15 {
			t.Fatalf("%s emission %d out of range", d.Name, d.Emission)
		}
		if d.Liquid != LiquidNone && (d.Solid || d.Stateful) {
			t.Fatalf("%s: liquids cannot be solid or stateful", d.Name)
		}
	}
}

func TestFacing_RotateCycles(t *testing.T) {
	f := FacingSouth
	for i := 0; i < 4; i++ {
		f = f.Rotate()
	}
	if f != FacingSouth {
		t.Fatalf("four rotations = %v, want back to SOUTH", f)
	}
	if FacingByName(FacingWest.String()) != FacingWest {
		t.Fatalf("facing name round trip broken")
	}
}
