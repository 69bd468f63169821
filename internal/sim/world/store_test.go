package world

import (
	"errors"
	"testing"

	"isoforge.dev/internal/sim/blocks"
)

func testBounds() Bounds { return Bounds{W: 12, D: 12, H: 12} }

func TestStore_PlaceGetRemove(t *testing.T) {
	s := NewStore(testBounds())
	p := Pos{3, 4, 0}

	ch, err := s.Place(p, blocks.Stone, nil)
	if err != nil {
		t.Fatalf("place: %v", err)
	}
	if !ch.Prev.IsAir() || ch.Next.Kind != blocks.Stone {
		t.Fatalf("unexpected change: %+v", ch)
	}
	if got := s.Get(p).Kind; got != blocks.Stone {
		t.Fatalf("get = %v, want stone", got)
	}
	if s.Len() != 1 {
		t.Fatalf("len = %d, want 1", s.Len())
	}

	ch, err = s.Remove(p)
	if err != nil {
		t.Fatalf("remove: %v", err)
	}
	if ch.Prev.Kind != blocks.Stone || !ch.Next.IsAir() {
		t.Fatalf("unexpected change: %+v", ch)
	}
	if !s.Get(p).IsAir() || s.Len() != 0 {
		t.Fatalf("expected empty store after remove")
	}
}

func TestStore_OutOfBounds(t *testing.T) {
	s := NewStore(testBounds())

	for _, p := range []Pos{{-1, 0, 0}, {12, 0, 0}, {0, 12, 0}, {0, 0, 12}, {0, 0, -1}} {
		if _, err := s.Place(p, blocks.Stone, nil); !errors.Is(err, ErrOutOfBounds) {
			t.Fatalf("place %v: err = %v, want ErrOutOfBounds", p, err)
		}
	}
	// Reads outside the volume are air, not errors.
	if !s.Get(Pos{-5, -5, -5}).IsAir() {
		t.Fatalf("expected air outside volume")
	}
}

func TestStore_PlaceAirIsRemove(t *testing.T) {
	s := NewStore(testBounds())
	p := Pos{1, 1, 0}
	if _, err := s.Place(p, blocks.Dirt, nil); err != nil {
		t.Fatalf("place: %v", err)
	}
	ch, err := s.Place(p, blocks.Air, nil)
	if err != nil {
		t.Fatalf("place air: %v", err)
	}
	if !ch.Next.IsAir() || !s.Get(p).IsAir() {
		t.Fatalf("placing air should clear the cell")
	}
}

func TestStore_OverwriteKeepsSingleEntry(t *testing.T) {
	s := NewStore(testBounds())
	p := Pos{2, 2, 2}
	if _, err := s.Place(p, blocks.Dirt, nil); err != nil {
		t.Fatalf("place: %v", err)
	}
	if _, err := s.Place(p, blocks.Glass, nil); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	if s.Len() != 1 {
		t.Fatalf("len = %d, want 1", s.Len())
	}
	if got := s.Get(p).Kind; got != blocks.Glass {
		t.Fatalf("get = %v, want glass", got)
	}
}

func TestStore_LiquidLevelInvariant(t *testing.T) {
	s := NewStore(testBounds())
	p := Pos{5, 5, 0}

	if _, err := s.PlaceLiquid(p, blocks.Water, SourceLevel); err != nil {
		t.Fatalf("place liquid: %v", err)
	}
	if got := s.LiquidLevel(p); got != SourceLevel {
		t.Fatalf("level = %d, want %d", got, SourceLevel)
	}

	// Overwriting with a solid must drop the level entry.
	if _, err := s.Place(p, blocks.Stone, nil); err != nil {
		t.Fatalf("place: %v", err)
	}
	if got := s.LiquidLevel(p); got != 0 {
		t.Fatalf("level after solid = %d, want 0", got)
	}
}

func TestStore_StatefulProperties(t *testing.T) {
	s := NewStore(testBounds())
	p := Pos{0, 0, 0}

	if _, err := s.Place(p, blocks.OakDoor, nil); err != nil {
		t.Fatalf("place door: %v", err)
	}
	b := s.Get(p)
	if b.Props == nil || b.Props.Facing != blocks.FacingSouth {
		t.Fatalf("door should default to facing south, got %+v", b.Props)
	}

	ch, err := s.SetProperties(p, blocks.Properties{Facing: blocks.FacingEast, Open: true})
	if err != nil {
		t.Fatalf("set properties: %v", err)
	}
	if ch.Prev.Props.Open || !ch.Next.Props.Open {
		t.Fatalf("change should carry the open transition: %+v", ch)
	}
	if got := s.Get(p).Props; !got.Open || got.Facing != blocks.FacingEast {
		t.Fatalf("props = %+v", got)
	}

	// Non-stateful kinds reject properties.
	q := Pos{1, 0, 0}
	if _, err := s.Place(q, blocks.Stone, nil); err != nil {
		t.Fatalf("place: %v", err)
	}
	if _, err := s.SetProperties(q, blocks.Properties{Open: true}); !errors.Is(err, ErrInvalidKind) {
		t.Fatalf("err = %v, want ErrInvalidKind", err)
	}
}

func TestStore_ApplyInverseRoundTrip(t *testing.T) {
	s := NewStore(testBounds())
	p := Pos{4, 4, 4}

	ch, err := s.Place(p, blocks.Glowstone, nil)
	if err != nil {
		t.Fatalf("place: %v", err)
	}
	s.Apply(s.Inverse(ch))
	if !s.Get(p).IsAir() {
		t.Fatalf("inverse should restore air")
	}
	s.Apply(ch)
	if got := s.Get(p).Kind; got != blocks.Glowstone {
		t.Fatalf("re-apply: get = %v, want glowstone", got)
	}
}

func TestStore_HighestBlockAt(t *testing.T) {
	s := NewStore(testBounds())
	if got := s.HighestBlockAt(6, 6); got != -1 {
		t.Fatalf("empty column = %d, want -1", got)
	}
	for z := 0; z <= 3; z++ {
		if _, err := s.Place(Pos{6, 6, z}, blocks.Stone, nil); err != nil {
			t.Fatalf("place z=%d: %v", z, err)
		}
	}
	if got := s.HighestBlockAt(6, 6); got != 3 {
		t.Fatalf("highest = %d, want 3", got)
	}
}

func TestPos_KeyRoundTrip(t *testing.T) {
	for _, p := range []Pos{{0, 0, 0}, {11, 11, 11}, {-3, 7, 2}, {1, -1, 0}} {
		if got := unkey(p.Key()); got != p {
			t.Fatalf("unkey(key(%v)) = %v", p, got)
		}
	}
}

func TestPos_Neighbors4HOrder(t *testing.T) {
	p := Pos{5, 5, 0}
	want := [4]Pos{{5, 4, 0}, {6, 5, 0}, {5, 6, 0}, {4, 5, 0}}
	if got := p.Neighbors4H(); got != want {
		t.Fatalf("neighbors = %v, want N,E,S,W order %v", got, want)
	}
}
