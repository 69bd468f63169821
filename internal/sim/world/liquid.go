package world

import (
	"sort"

	"isoforge.dev/internal/sim/blocks"
)

// Liquid levels. 8 marks a source; 7..1 are flowing cells that decay
// with horizontal distance. Vertical falls carry the level unchanged.
const (
	SourceLevel = 8
	MinLevel    = 1
)

// LiquidSim advances liquid diffusion over a Store. Each tick handles
// one liquid kind; the session drives water and lava on their own
// cadences (lava 6x slower). Within a tick every write is computed
// from a frozen pre-tick view and applied atomically at the end, so
// cell iteration order never changes the outcome.
type LiquidSim struct {
	store   *Store
	enabled bool
}

func NewLiquidSim(s *Store) *LiquidSim {
	return &LiquidSim{store: s, enabled: true}
}

// SetEnabled toggles the simulator. Disabling freezes every liquid
// cell at its current level; nothing is deleted.
func (ls *LiquidSim) SetEnabled(on bool) { ls.enabled = on }
func (ls *LiquidSim) Enabled() bool      { return ls.enabled }

type liquidCell struct {
	pos   Pos
	level int
}

// Tick advances one liquid kind by a single step and returns the
// applied changes. No-op while disabled.
func (ls *LiquidSim) Tick(kind blocks.Kind) []Change {
	if !ls.enabled {
		return nil
	}
	lk := blocks.Get(kind).Liquid
	if lk == blocks.LiquidNone {
		return nil
	}

	// Frozen pre-tick view of this kind's network.
	cells := ls.collect(kind)
	if len(cells) == 0 {
		return nil
	}

	pending := map[uint64]liquidCell{}
	propose := func(p Pos, level int) {
		k := p.Key()
		if cur, ok := pending[k]; !ok || level > cur.level {
			pending[k] = liquidCell{pos: p, level: level}
		}
	}

	var decays []liquidCell
	for _, c := range cells {
		below := c.pos.Below()
		if ls.flowTarget(kind, below, c.level) {
			// Gravity flow carries the level unchanged.
			propose(below, c.level)
		} else if c.level > MinLevel {
			want := c.level - 1
			for _, n := range c.pos.Neighbors4H() {
				if ls.flowTarget(kind, n, want) {
					propose(n, want)
				}
			}
		}

		// Flowing cells decay when their pre-tick support weakens;
		// sources never drain.
		if c.level < SourceLevel {
			sup := ls.support(kind, c.pos)
			if sup < c.level {
				decays = append(decays, liquidCell{pos: c.pos, level: sup})
			}
		}
	}

	// Decay writes go straight to the store: the cell already holds
	// this kind, so the contact path does not apply.
	var changes []Change
	for _, d := range decays {
		if ls.store.Get(d.pos).Kind != kind {
			continue
		}
		var (
			ch  Change
			err error
		)
		if d.level < MinLevel {
			ch, err = ls.store.Remove(d.pos)
		} else {
			ch, err = ls.store.PlaceLiquid(d.pos, kind, d.level)
		}
		if err == nil {
			changes = append(changes, ch)
		}
	}

	// Deterministic application order.
	writes := make([]liquidCell, 0, len(pending))
	for _, w := range pending {
		writes = append(writes, w)
	}
	sort.Slice(writes, func(i, j int) bool { return writes[i].pos.Key() < writes[j].pos.Key() })

	for _, w := range writes {
		changes = append(changes, ls.ApplyLiquidWrite(w.pos, kind, w.level)...)
	}
	return changes
}

// ApplyLiquidWrite lands one liquid write, resolving water-lava
// contact. A water write adjacent to lava converts that lava cell to
// obsidian (source) or cobblestone (flowing) and is itself consumed.
// A lava write adjacent to water hardens in place by the written level
// and consumes the touching water. User placement of liquids routes
// through here as well, so contact applies on the very first write.
func (ls *LiquidSim) ApplyLiquidWrite(p Pos, kind blocks.Kind, level int) []Change {
	opposing := blocks.Water
	if kind == blocks.Water {
		opposing = blocks.Lava
	}

	var contacts []Pos
	for _, n := range p.Neighbors6() {
		if ls.store.Get(n).Kind == opposing {
			contacts = append(contacts, n)
		}
	}

	if len(contacts) == 0 {
		// Do not overwrite solids or stronger same-kind liquid.
		cur := ls.store.Get(p)
		if !cur.IsAir() && (cur.Kind != kind || ls.store.LiquidLevel(p) >= level) {
			return nil
		}
		ch, err := ls.store.PlaceLiquid(p, kind, level)
		if err != nil {
			return nil
		}
		return []Change{ch}
	}

	var changes []Change
	if kind == blocks.Water {
		// The touched lava hardens; the water write is consumed.
		for _, lavaPos := range contacts {
			hardened := blocks.Cobblestone
			if ls.store.LiquidLevel(lavaPos) == SourceLevel {
				hardened = blocks.Obsidian
			}
			ch, err := ls.store.Place(lavaPos, hardened, nil)
			if err == nil {
				changes = append(changes, ch)
			}
		}
		return changes
	}

	// Lava write next to water: harden the written cell, consume the water.
	hardened := blocks.Cobblestone
	if level == SourceLevel {
		hardened = blocks.Obsidian
	}
	if ch, err := ls.store.Place(p, hardened, nil); err == nil {
		changes = append(changes, ch)
	}
	for _, waterPos := range contacts {
		if ch, err := ls.store.Remove(waterPos); err == nil {
			changes = append(changes, ch)
		}
	}
	return changes
}

// flowTarget reports whether a write of kind at level may land on p:
// an in-bounds cell that is air or a strictly weaker same-kind liquid.
func (ls *LiquidSim) flowTarget(kind blocks.Kind, p Pos, level int) bool {
	if !ls.store.Bounds().Contains(p) {
		return false
	}
	cur := ls.store.Get(p)
	if cur.IsAir() {
		return true
	}
	return cur.Kind == kind && ls.store.LiquidLevel(p) < level
}

// support computes the level a flowing cell can sustain from its
// pre-tick neighborhood: a same-kind cell above sustains its own level
// (vertical flow does not decay), horizontal neighbors sustain theirs
// minus one.
func (ls *LiquidSim) support(kind blocks.Kind, p Pos) int {
	sup := 0
	above := p.Above()
	if ls.store.Get(above).Kind == kind {
		if l := ls.store.LiquidLevel(above); l > sup {
			sup = l
		}
	}
	for _, n := range p.Neighbors4H() {
		if ls.store.Get(n).Kind != kind {
			continue
		}
		if l := ls.store.LiquidLevel(n) - 1; l > sup {
			sup = l
		}
	}
	return sup
}

// ClearLiquids removes every liquid cell and returns the changes.
func (ls *LiquidSim) ClearLiquids() []Change {
	var targets []Pos
	ls.store.ForEach(func(p Pos, b Block) {
		if blocks.Get(b.Kind).Liquid != blocks.LiquidNone {
			targets = append(targets, p)
		}
	})
	sort.Slice(targets, func(i, j int) bool { return targets[i].Key() < targets[j].Key() })
	changes := make([]Change, 0, len(targets))
	for _, p := range targets {
		if ch, err := ls.store.Remove(p); err == nil {
			changes = append(changes, ch)
		}
	}
	return changes
}

func (ls *LiquidSim) collect(kind blocks.Kind) []liquidCell {
	var cells []liquidCell
	ls.store.ForEach(func(p Pos, b Block) {
		if b.Kind == kind {
			cells = append(cells, liquidCell{pos: p, level: ls.store.LiquidLevel(p)})
		}
	})
	sort.Slice(cells, func(i, j int) bool { return cells[i].pos.Key() < cells[j].pos.Key() })
	return cells
}
