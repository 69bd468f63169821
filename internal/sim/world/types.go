package world

// Pos is a cell position in the build volume. X grows east, Y grows
// south, Z grows up.
type Pos struct {
	X int
	Y int
	Z int
}

func (p Pos) ToArray() [3]int { return [3]int{p.X, p.Y, p.Z} }

// Key packs a position into a single map key. Coordinates are offset
// so the whole configured volume stays non-negative; 21 bits per axis
// is far beyond any supported volume.
func (p Pos) Key() uint64 {
	const bias = 1 << 20
	return uint64(p.X+bias) | uint64(p.Y+bias)<<21 | uint64(p.Z+bias)<<42
}

// Below returns the cell directly under p.
func (p Pos) Below() Pos { return Pos{p.X, p.Y, p.Z - 1} }

// Above returns the cell directly over p.
func (p Pos) Above() Pos { return Pos{p.X, p.Y, p.Z + 1} }

// Neighbors4H returns the horizontal orthogonal neighbors in the fixed
// N,E,S,W iteration order. Liquid spread and tie-breaking depend on
// this order staying stable.
func (p Pos) Neighbors4H() [4]Pos {
	return [4]Pos{
		{p.X, p.Y - 1, p.Z}, // north
		{p.X + 1, p.Y, p.Z}, // east
		{p.X, p.Y + 1, p.Z}, // south
		{p.X - 1, p.Y, p.Z}, // west
	}
}

// Neighbors6 returns the 6-connected neighborhood used by light
// propagation: the four horizontal neighbors, then up, then down.
func (p Pos) Neighbors6() [6]Pos {
	h := p.Neighbors4H()
	return [6]Pos{h[0], h[1], h[2], h[3], p.Above(), p.Below()}
}

func Manhattan(a, b Pos) int {
	dx := a.X - b.X
	if dx < 0 {
		dx = -dx
	}
	dy := a.Y - b.Y
	if dy < 0 {
		dy = -dy
	}
	dz := a.Z - b.Z
	if dz < 0 {
		dz = -dz
	}
	return dx + dy + dz
}

// Bounds is the configured build volume: x in [0,W), y in [0,D),
// z in [0,H).
type Bounds struct {
	W int
	D int
	H int
}

func (b Bounds) Contains(p Pos) bool {
	return p.X >= 0 && p.X < b.W &&
		p.Y >= 0 && p.Y < b.D &&
		p.Z >= 0 && p.Z < b.H
}

// Volume returns the total cell count of the bounded volume.
func (b Bounds) Volume() int { return b.W * b.D * b.H }
