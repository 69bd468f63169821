package world

import (
	"testing"

	"isoforge.dev/internal/sim/blocks"
)

func placeSource(t *testing.T, ls *LiquidSim, p Pos, kind blocks.Kind) {
	t.Helper()
	if chs := ls.ApplyLiquidWrite(p, kind, SourceLevel); len(chs) == 0 {
		t.Fatalf("source write at %v produced no change", p)
	}
}

func TestLiquid_SourceSpreadsAtLevelMinusOne(t *testing.T) {
	s := NewStore(testBounds())
	ls := NewLiquidSim(s)
	src := Pos{5, 5, 0}
	placeSource(t, ls, src, blocks.Water)

	ls.Tick(blocks.Water)

	for _, n := range src.Neighbors4H() {
		if got := s.Get(n).Kind; got != blocks.Water {
			t.Fatalf("neighbor %v = %v, want water", n, got)
		}
		if got := s.LiquidLevel(n); got != SourceLevel-1 {
			t.Fatalf("neighbor %v level = %d, want %d", n, got, SourceLevel-1)
		}
	}
	if got := s.LiquidLevel(src); got != SourceLevel {
		t.Fatalf("source level = %d, want %d", got, SourceLevel)
	}
}

func TestLiquid_DownFlowBeatsHorizontal(t *testing.T) {
	s := NewStore(testBounds())
	ls := NewLiquidSim(s)
	src := Pos{5, 5, 3}
	placeSource(t, ls, src, blocks.Water)

	ls.Tick(blocks.Water)

	below := src.Below()
	if got := s.LiquidLevel(below); got != SourceLevel {
		t.Fatalf("below level = %d, want %d (vertical flow keeps the level)", got, SourceLevel)
	}
	for _, n := range src.Neighbors4H() {
		if !s.Get(n).IsAir() {
			t.Fatalf("cell %v should stay empty while the column can fall", n)
		}
	}
}

func TestLiquid_FallingColumnStaysAtSourceLevel(t *testing.T) {
	s := NewStore(testBounds())
	ls := NewLiquidSim(s)
	src := Pos{2, 2, 4}
	placeSource(t, ls, src, blocks.Lava)

	for i := 0; i < 4; i++ {
		ls.Tick(blocks.Lava)
	}

	for z := 0; z <= 4; z++ {
		p := Pos{2, 2, z}
		if got := s.Get(p).Kind; got != blocks.Lava {
			t.Fatalf("column z=%d = %v, want lava", z, got)
		}
		if got := s.LiquidLevel(p); got != SourceLevel {
			t.Fatalf("column z=%d level = %d, want %d", z, got, SourceLevel)
		}
	}
}

func TestLiquid_SolidBlocksFlow(t *testing.T) {
	s := NewStore(testBounds())
	ls := NewLiquidSim(s)
	src := Pos{5, 5, 1}
	if _, err := s.Place(src.Below(), blocks.Stone, nil); err != nil {
		t.Fatalf("place floor: %v", err)
	}
	placeSource(t, ls, src, blocks.Water)

	ls.Tick(blocks.Water)

	if got := s.Get(src.Below()).Kind; got != blocks.Stone {
		t.Fatalf("floor overwritten: %v", got)
	}
	// Blocked below, so the source spreads sideways instead.
	spread := 0
	for _, n := range src.Neighbors4H() {
		if s.Get(n).Kind == blocks.Water {
			spread++
		}
	}
	if spread != 4 {
		t.Fatalf("spread to %d neighbors, want 4", spread)
	}
}

func TestLiquid_DrainsAfterSourceRemoved(t *testing.T) {
	s := NewStore(testBounds())
	ls := NewLiquidSim(s)
	src := Pos{5, 5, 0}
	placeSource(t, ls, src, blocks.Water)

	for i := 0; i < 3; i++ {
		ls.Tick(blocks.Water)
	}
	if _, err := s.Remove(src); err != nil {
		t.Fatalf("remove source: %v", err)
	}

	for i := 0; i < 12; i++ {
		ls.Tick(blocks.Water)
	}
	if s.HasKind(blocks.Water) {
		t.Fatalf("water should fully drain once the source is gone")
	}
}

func TestLiquid_UnsupportedFlowIsRemoved(t *testing.T) {
	s := NewStore(testBounds())
	ls := NewLiquidSim(s)
	lone := Pos{3, 3, 0}
	if _, err := s.PlaceLiquid(lone, blocks.Water, 5); err != nil {
		t.Fatalf("place: %v", err)
	}
	ls.Tick(blocks.Water)
	if s.Get(lone).Kind == blocks.Water {
		t.Fatalf("flow with no support should drain, still at %d", s.LiquidLevel(lone))
	}
}

func TestLiquid_DecayStepsDownWithPartialSupport(t *testing.T) {
	s := NewStore(testBounds())
	ls := NewLiquidSim(s)
	src := Pos{5, 5, 0}
	placeSource(t, ls, src, blocks.Water)
	ls.Tick(blocks.Water)
	ls.Tick(blocks.Water)

	far := Pos{7, 5, 0}
	if got := s.LiquidLevel(far); got != SourceLevel-2 {
		t.Fatalf("two-step cell level = %d, want %d", got, SourceLevel-2)
	}
	if _, err := s.Remove(src); err != nil {
		t.Fatalf("remove: %v", err)
	}

	// The middle cell keeps partial support from the far cell, so it
	// steps down instead of vanishing outright.
	mid := Pos{6, 5, 0}
	ls.Tick(blocks.Water)
	if got := s.Get(mid).Kind; got != blocks.Water {
		t.Fatalf("mid cell drained in one tick, want gradual decay")
	}
	if got := s.LiquidLevel(mid); got >= SourceLevel-1 {
		t.Fatalf("mid cell level = %d, want decayed below %d", got, SourceLevel-1)
	}
}

func TestLiquid_WaterMeetsLavaSourceMakesObsidian(t *testing.T) {
	s := NewStore(testBounds())
	ls := NewLiquidSim(s)
	lavaPos := Pos{5, 5, 0}
	placeSource(t, ls, lavaPos, blocks.Lava)

	waterPos := Pos{6, 5, 0}
	chs := ls.ApplyLiquidWrite(waterPos, blocks.Water, SourceLevel)
	if len(chs) == 0 {
		t.Fatalf("contact produced no changes")
	}

	if got := s.Get(lavaPos).Kind; got != blocks.Obsidian {
		t.Fatalf("lava source = %v, want obsidian", got)
	}
	if !s.Get(waterPos).IsAir() {
		t.Fatalf("water write should be consumed by the contact")
	}
}

func TestLiquid_WaterMeetsFlowingLavaMakesCobblestone(t *testing.T) {
	s := NewStore(testBounds())
	ls := NewLiquidSim(s)
	lavaPos := Pos{5, 5, 0}
	if _, err := s.PlaceLiquid(lavaPos, blocks.Lava, 4); err != nil {
		t.Fatalf("place: %v", err)
	}

	ls.ApplyLiquidWrite(Pos{5, 6, 0}, blocks.Water, SourceLevel)

	if got := s.Get(lavaPos).Kind; got != blocks.Cobblestone {
		t.Fatalf("flowing lava = %v, want cobblestone", got)
	}
}

func TestLiquid_LavaWriteNextToWaterHardensInPlace(t *testing.T) {
	s := NewStore(testBounds())
	ls := NewLiquidSim(s)
	waterPos := Pos{5, 5, 0}
	placeSource(t, ls, waterPos, blocks.Water)

	lavaPos := Pos{6, 5, 0}
	ls.ApplyLiquidWrite(lavaPos, blocks.Lava, SourceLevel)

	if got := s.Get(lavaPos).Kind; got != blocks.Obsidian {
		t.Fatalf("lava write = %v, want obsidian (source level)", got)
	}
	if !s.Get(waterPos).IsAir() {
		t.Fatalf("touching water should be consumed")
	}
}

func TestLiquid_ContactDuringTick(t *testing.T) {
	s := NewStore(testBounds())
	ls := NewLiquidSim(s)
	// Water spreading into a cell adjacent to lava converts it in the
	// same tick the flow arrives.
	placeSource(t, ls, Pos{4, 5, 0}, blocks.Water)
	placeSource(t, ls, Pos{7, 5, 0}, blocks.Lava)

	for i := 0; i < 3 && s.Get(Pos{7, 5, 0}).Kind == blocks.Lava; i++ {
		ls.Tick(blocks.Water)
	}
	if got := s.Get(Pos{7, 5, 0}).Kind; got != blocks.Obsidian {
		t.Fatalf("lava source = %v, want obsidian after water reaches it", got)
	}
}

func TestLiquid_DisabledIsNoop(t *testing.T) {
	s := NewStore(testBounds())
	ls := NewLiquidSim(s)
	placeSource(t, ls, Pos{5, 5, 0}, blocks.Water)

	ls.SetEnabled(false)
	if chs := ls.Tick(blocks.Water); chs != nil {
		t.Fatalf("disabled tick returned %d changes", len(chs))
	}
	if s.Len() != 1 {
		t.Fatalf("disabled tick mutated the store")
	}
}

func TestLiquid_ClearLiquids(t *testing.T) {
	s := NewStore(testBounds())
	ls := NewLiquidSim(s)
	placeSource(t, ls, Pos{1, 1, 0}, blocks.Water)
	placeSource(t, ls, Pos{9, 9, 0}, blocks.Lava)
	if _, err := s.Place(Pos{5, 5, 0}, blocks.Stone, nil); err != nil {
		t.Fatalf("place: %v", err)
	}

	chs := ls.ClearLiquids()
	if len(chs) != 2 {
		t.Fatalf("cleared %d cells, want 2", len(chs))
	}
	if s.HasKind(blocks.Water) || s.HasKind(blocks.Lava) {
		t.Fatalf("liquids remain after clear")
	}
	if got := s.Get(Pos{5, 5, 0}).Kind; got != blocks.Stone {
		t.Fatalf("solid removed by liquid clear: %v", got)
	}
}

func TestLiquid_TickIsDeterministic(t *testing.T) {
	build := func() (*Store, *LiquidSim) {
		s := NewStore(testBounds())
		ls := NewLiquidSim(s)
		ls.ApplyLiquidWrite(Pos{3, 3, 2}, blocks.Water, SourceLevel)
		ls.ApplyLiquidWrite(Pos{8, 8, 1}, blocks.Water, SourceLevel)
		return s, ls
	}
	s1, ls1 := build()
	s2, ls2 := build()
	for i := 0; i < 6; i++ {
		ls1.Tick(blocks.Water)
		ls2.Tick(blocks.Water)
	}
	if s1.Len() != s2.Len() {
		t.Fatalf("diverged: %d vs %d cells", s1.Len(), s2.Len())
	}
	s1.ForEach(func(p Pos, b Block) {
		if got := s2.Get(p); got.Kind != b.Kind || s2.LiquidLevel(p) != s1.LiquidLevel(p) {
			t.Fatalf("cell %v differs: %v/%d vs %v/%d", p, b.Kind, s1.LiquidLevel(p), got.Kind, s2.LiquidLevel(p))
		}
	})
}
