// Package world implements the sparse voxel store and the simulation
// systems that run over it: liquid diffusion, light propagation and the
// bounded edit history. All state is owned by a single goroutine; see
// the session package for the loop that drives it.
package world

import (
	"errors"
	"fmt"

	"isoforge.dev/internal/sim/blocks"
)

var (
	// ErrOutOfBounds rejects a mutation outside the build volume.
	// The store is unchanged; callers must check, not recover.
	ErrOutOfBounds = errors.New("position out of bounds")

	// ErrInvalidKind rejects an unknown block kind.
	ErrInvalidKind = errors.New("invalid block kind")
)

// Block is a stored cell: a kind plus its properties when the kind is
// stateful. Props is nil for every other kind.
type Block struct {
	Kind  blocks.Kind
	Props *blocks.Properties
}

// IsAir reports whether the cell is empty.
func (b Block) IsAir() bool { return b.Kind == blocks.Air }

// Change is the reversible diff of one cell mutation. The session
// routes changes into history snapshots and light dirtying; the store
// itself keeps no listeners.
type Change struct {
	Pos       Pos
	Prev      Block
	Next      Block
	PrevLevel int // liquid level before, 0 = none
	NextLevel int
}

// Store is the sparse voxel map for a bounded volume. Memory is
// proportional to occupied cells, never to the volume.
type Store struct {
	bounds Bounds

	cells  map[uint64]Block
	levels map[uint64]int // liquid level [1,8], entry iff cell holds a liquid kind
}

func NewStore(b Bounds) *Store {
	return &Store{
		bounds: b,
		cells:  map[uint64]Block{},
		levels: map[uint64]int{},
	}
}

func (s *Store) Bounds() Bounds { return s.bounds }

// Len returns the number of occupied cells.
func (s *Store) Len() int { return len(s.cells) }

// Get returns the block at p. Out-of-bounds and empty cells both read
// as air.
func (s *Store) Get(p Pos) Block {
	if !s.bounds.Contains(p) {
		return Block{}
	}
	return s.cells[p.Key()]
}

// LiquidLevel returns the liquid level at p, 0 when no liquid.
func (s *Store) LiquidLevel(p Pos) int {
	return s.levels[p.Key()]
}

// Place writes a block at p. Placing a liquid kind sets a source-level
// entry (8). Placing air is equivalent to Remove. Stateful kinds get
// default properties when props is nil; non-stateful kinds must not
// carry any.
func (s *Store) Place(p Pos, kind blocks.Kind, props *blocks.Properties) (Change, error) {
	if !s.bounds.Contains(p) {
		return Change{}, fmt.Errorf("place %v: %w", p, ErrOutOfBounds)
	}
	if !blocks.Valid(kind) {
		return Change{}, fmt.Errorf("place %v: kind %d: %w", p, kind, ErrInvalidKind)
	}
	if kind == blocks.Air {
		return s.Remove(p)
	}

	def := blocks.Get(kind)
	if def.Stateful {
		if props == nil {
			props = &blocks.Properties{Facing: blocks.FacingSouth}
		}
	} else {
		props = nil
	}

	ch := Change{
		Pos:       p,
		Prev:      s.Get(p),
		PrevLevel: s.levels[p.Key()],
		Next:      Block{Kind: kind, Props: cloneProps(props)},
	}
	if def.Liquid != blocks.LiquidNone {
		ch.NextLevel = SourceLevel
	}
	s.apply(ch)
	return ch, nil
}

// PlaceLiquid writes a liquid block at an explicit level. Used by the
// simulator for flowing cells and by the save loader.
func (s *Store) PlaceLiquid(p Pos, kind blocks.Kind, level int) (Change, error) {
	if !s.bounds.Contains(p) {
		return Change{}, fmt.Errorf("place liquid %v: %w", p, ErrOutOfBounds)
	}
	if blocks.Get(kind).Liquid == blocks.LiquidNone {
		return Change{}, fmt.Errorf("place liquid %v: kind %d: %w", p, kind, ErrInvalidKind)
	}
	if level < MinLevel {
		level = MinLevel
	}
	if level > SourceLevel {
		level = SourceLevel
	}
	ch := Change{
		Pos:       p,
		Prev:      s.Get(p),
		PrevLevel: s.levels[p.Key()],
		Next:      Block{Kind: kind},
		NextLevel: level,
	}
	s.apply(ch)
	return ch, nil
}

// Remove clears the cell at p, dropping any properties and liquid
// level with it.
func (s *Store) Remove(p Pos) (Change, error) {
	if !s.bounds.Contains(p) {
		return Change{}, fmt.Errorf("remove %v: %w", p, ErrOutOfBounds)
	}
	ch := Change{
		Pos:       p,
		Prev:      s.Get(p),
		PrevLevel: s.levels[p.Key()],
	}
	s.apply(ch)
	return ch, nil
}

// SetProperties replaces the properties of the stateful block at p.
// It is the mutation path behind door/stair/slab toggles.
func (s *Store) SetProperties(p Pos, props blocks.Properties) (Change, error) {
	if !s.bounds.Contains(p) {
		return Change{}, fmt.Errorf("set properties %v: %w", p, ErrOutOfBounds)
	}
	cur := s.Get(p)
	if cur.IsAir() || !blocks.Get(cur.Kind).Stateful {
		return Change{}, fmt.Errorf("set properties %v: kind %d: %w", p, cur.Kind, ErrInvalidKind)
	}
	next := cur
	next.Props = &props
	ch := Change{
		Pos:       p,
		Prev:      cur,
		Next:      next,
		PrevLevel: s.levels[p.Key()],
		NextLevel: s.levels[p.Key()],
	}
	s.apply(ch)
	return ch, nil
}

// Apply re-plays a change diff forward. Undo/redo and liquid ticks go
// through here so every write keeps the kind/level invariant.
func (s *Store) Apply(ch Change) {
	s.apply(ch)
}

// Inverse returns the change that undoes ch.
func (s *Store) Inverse(ch Change) Change {
	return Change{
		Pos:       ch.Pos,
		Prev:      ch.Next,
		Next:      ch.Prev,
		PrevLevel: ch.NextLevel,
		NextLevel: ch.PrevLevel,
	}
}

func (s *Store) apply(ch Change) {
	k := ch.Pos.Key()
	if ch.Next.IsAir() {
		delete(s.cells, k)
	} else {
		s.cells[k] = Block{Kind: ch.Next.Kind, Props: cloneProps(ch.Next.Props)}
	}
	// Level entry exists iff the cell holds a liquid kind.
	if ch.NextLevel > 0 && blocks.Get(ch.Next.Kind).Liquid != blocks.LiquidNone {
		s.levels[k] = ch.NextLevel
	} else {
		delete(s.levels, k)
	}
}

// ForEach visits every occupied cell. Iteration order is unspecified.
func (s *Store) ForEach(fn func(p Pos, b Block)) {
	for k, b := range s.cells {
		fn(unkey(k), b)
	}
}

// HighestBlockAt returns the z of the topmost occupied cell in the
// (x,y) column, or -1 when the column is empty.
func (s *Store) HighestBlockAt(x, y int) int {
	for z := s.bounds.H - 1; z >= 0; z-- {
		if !s.Get(Pos{x, y, z}).IsAir() {
			return z
		}
	}
	return -1
}

// HasKind reports whether any cell currently holds kind.
func (s *Store) HasKind(kind blocks.Kind) bool {
	for _, b := range s.cells {
		if b.Kind == kind {
			return true
		}
	}
	return false
}

// Clear empties the whole volume and returns the removed cell count.
func (s *Store) Clear() int {
	n := len(s.cells)
	s.cells = map[uint64]Block{}
	s.levels = map[uint64]int{}
	return n
}

func cloneProps(p *blocks.Properties) *blocks.Properties {
	if p == nil {
		return nil
	}
	cp := *p
	return &cp
}

func unkey(k uint64) Pos {
	const bias = 1 << 20
	const mask = 1<<21 - 1
	return Pos{
		X: int(k&mask) - bias,
		Y: int(k>>21&mask) - bias,
		Z: int(k>>42&mask) - bias,
	}
}
