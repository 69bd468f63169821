package world

import (
	"isoforge.dev/internal/sim/blocks"
)

// MaxLight is the strongest light value; emission and propagation are
// clamped to [0,MaxLight].
const MaxLight = 15

type lightSource struct {
	pos   Pos
	level int
}

// LightField holds derived illumination over the store. Values are
// recomputed from emissive blocks by 6-connected BFS with a decay of 1
// per step, combined across sources with max. Recomputation is
// incremental: only the region within light range of a dirty position
// is rebuilt, everything else keeps its prior value.
type LightField struct {
	store   *Store
	enabled bool
	ambient int

	values map[uint64]int
	dirty  map[uint64]Pos
}

func NewLightField(s *Store) *LightField {
	return &LightField{
		store:   s,
		enabled: true,
		values:  map[uint64]int{},
		dirty:   map[uint64]Pos{},
	}
}

// SetEnabled toggles recomputation. While disabled, values go stale
// but dirty positions keep accumulating so re-enabling catches up.
func (lf *LightField) SetEnabled(on bool) { lf.enabled = on }
func (lf *LightField) Enabled() bool      { return lf.enabled }

// SetAmbient sets the uniform base light floor (time-of-day input from
// the outside; not computed here).
func (lf *LightField) SetAmbient(v int) {
	lf.ambient = clampLight(v)
}

func (lf *LightField) Ambient() int { return lf.ambient }

// MarkDirty flags positions for the next recompute.
func (lf *LightField) MarkDirty(ps ...Pos) {
	for _, p := range ps {
		lf.dirty[p.Key()] = p
	}
}

// Value returns the light at p: the ambient floor or the propagated
// value, whichever is higher. Call Recompute first for fresh values.
func (lf *LightField) Value(p Pos) int {
	v := lf.values[p.Key()]
	if lf.ambient > v {
		return lf.ambient
	}
	return v
}

// Recompute rebuilds light around accumulated dirty positions. No-op
// while disabled or when nothing is dirty.
func (lf *LightField) Recompute() {
	if !lf.enabled || len(lf.dirty) == 0 {
		return
	}
	dirty := make([]Pos, 0, len(lf.dirty))
	for _, p := range lf.dirty {
		dirty = append(dirty, p)
	}
	lf.dirty = map[uint64]Pos{}

	inRegion := func(p Pos) bool {
		for _, d := range dirty {
			if Manhattan(p, d) <= MaxLight {
				return true
			}
		}
		return false
	}

	// Sources whose range can overlap the affected region. A changed
	// source is itself dirty, so its whole range sits inside it.
	var sources []lightSource
	lf.store.ForEach(func(p Pos, b Block) {
		emit := blocks.Get(b.Kind).Emission
		if emit <= 0 {
			return
		}
		for _, d := range dirty {
			if Manhattan(p, d) <= 2*MaxLight {
				sources = append(sources, lightSource{pos: p, level: clampLight(emit)})
				return
			}
		}
	})

	// Drop stale values inside the region before re-propagating.
	for k := range lf.values {
		if inRegion(unkey(k)) {
			delete(lf.values, k)
		}
	}

	lf.propagate(sources, inRegion)
}

// RecomputeAll rebuilds the full field from scratch (used after load
// and clear, where a dirty set would cover the whole volume anyway).
func (lf *LightField) RecomputeAll() {
	lf.dirty = map[uint64]Pos{}
	lf.values = map[uint64]int{}
	if !lf.enabled {
		return
	}
	var sources []lightSource
	lf.store.ForEach(func(p Pos, b Block) {
		if emit := blocks.Get(b.Kind).Emission; emit > 0 {
			sources = append(sources, lightSource{pos: p, level: clampLight(emit)})
		}
	})
	lf.propagate(sources, func(Pos) bool { return true })
}

// propagate runs a multi-source BFS. best tracks the strongest level
// seen per cell, which is exactly the max-combine over sources because
// each source's contribution decays with BFS path distance. Opaque
// cells are lit when the wave reaches them but never pass light on.
func (lf *LightField) propagate(sources []lightSource, write func(Pos) bool) {
	type node struct {
		pos   Pos
		level int
	}
	best := map[uint64]int{}
	queue := make([]node, 0, len(sources))
	for _, src := range sources {
		queue = append(queue, node{pos: src.pos, level: src.level})
	}

	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]
		if n.level <= 0 {
			continue
		}
		k := n.pos.Key()
		if prev, ok := best[k]; ok && prev >= n.level {
			continue
		}
		best[k] = n.level

		if write(n.pos) {
			if n.level > lf.values[k] {
				lf.values[k] = n.level
			}
		}

		b := lf.store.Get(n.pos)
		if !b.IsAir() && blocks.Get(b.Kind).Opaque && blocks.Get(b.Kind).Emission <= 0 {
			// Directly lit face only; no propagation through solids.
			continue
		}
		for _, nb := range n.pos.Neighbors6() {
			if !lf.store.Bounds().Contains(nb) {
				continue
			}
			if prev, ok := best[nb.Key()]; ok && prev >= n.level-1 {
				continue
			}
			queue = append(queue, node{pos: nb, level: n.level - 1})
		}
	}
}

func clampLight(v int) int {
	if v < 0 {
		return 0
	}
	if v > MaxLight {
		return MaxLight
	}
	return v
}
