// Package render projects the voxel store into a 2:1 dimetric
// isometric view: forward projection to screen points, the inverse
// solve used for mouse picking, and a depth-ordered draw list rebuilt
// from store contents every frame.
package render

import (
	"isoforge.dev/internal/sim/world"
)

// Metrics are the base tile dimensions in pixels before zoom.
type Metrics struct {
	TileW  int
	TileH  int
	BlockH int
}

func DefaultMetrics() Metrics {
	return Metrics{TileW: 64, TileH: 32, BlockH: 38}
}

const (
	MinZoom = 0.5
	MaxZoom = 2.0
)

// Renderer converts between world cells and screen points. The
// projection is (u,v) = ((rx-ry)*tw/2, (rx+ry)*th/2 - z*bh) + offset
// where (rx,ry) is (x,y) rotated into the current view quadrant.
type Renderer struct {
	bounds  world.Bounds
	metrics Metrics
	zoom    float64

	offsetX, offsetY int
	rotation         int

	// zoom-scaled copies, refreshed by SetZoom
	tw, th, bh int
}

func NewRenderer(b world.Bounds, m Metrics) *Renderer {
	r := &Renderer{bounds: b, metrics: m}
	r.SetZoom(1.0)
	return r
}

func (r *Renderer) SetOffset(x, y int) {
	r.offsetX = x
	r.offsetY = y
}

func (r *Renderer) Offset() (int, int) { return r.offsetX, r.offsetY }

// SetZoom clamps into [MinZoom,MaxZoom] and refreshes the scaled tile
// dimensions used by every projection call. Tile width and height are
// rounded down to even so the half-extents shared by WorldToScreen and
// ScreenToWorld are exact integers; otherwise the forward map truncates
// where the inverse divides cleanly and picking drifts off by a cell.
func (r *Renderer) SetZoom(z float64) {
	if z < MinZoom {
		z = MinZoom
	}
	if z > MaxZoom {
		z = MaxZoom
	}
	r.zoom = z
	r.tw = evenDim(float64(r.metrics.TileW) * z)
	r.th = evenDim(float64(r.metrics.TileH) * z)
	r.bh = int(float64(r.metrics.BlockH) * z)
}

func evenDim(f float64) int {
	n := int(f) &^ 1
	if n < 2 {
		n = 2
	}
	return n
}

func (r *Renderer) Zoom() float64 { return r.zoom }

// RotateView steps the view a quarter turn; dir > 0 is clockwise.
func (r *Renderer) RotateView(dir int) {
	if dir >= 0 {
		r.rotation = (r.rotation + 1) % 4
	} else {
		r.rotation = (r.rotation + 3) % 4
	}
}

func (r *Renderer) SetViewRotation(rot int) {
	r.rotation = ((rot % 4) + 4) % 4
}

func (r *Renderer) ViewRotation() int { return r.rotation }

func (r *Renderer) rotate(x, y int) (int, int) {
	switch r.rotation {
	case 1:
		return -y, x
	case 2:
		return -x, -y
	case 3:
		return y, -x
	}
	return x, y
}

func (r *Renderer) unrotate(x, y int) (int, int) {
	switch r.rotation {
	case 1:
		return y, -x
	case 2:
		return -x, -y
	case 3:
		return -y, x
	}
	return x, y
}

// WorldToScreen returns the screen anchor of a cell under the current
// rotation, zoom and offset.
func (r *Renderer) WorldToScreen(p world.Pos) (int, int) {
	rx, ry := r.rotate(p.X, p.Y)
	u := (rx-ry)*(r.tw/2) + r.offsetX
	v := (rx+ry)*(r.th/2) - p.Z*r.bh + r.offsetY
	return u, v
}

// ScreenToWorld inverts the projection at height plane z, solving the
// 2x2 system for the rotated coordinates and unrotating the rounded
// result.
func (r *Renderer) ScreenToWorld(sx, sy, z int) (int, int) {
	au := float64(sx - r.offsetX)
	av := float64(sy - r.offsetY + z*r.bh)
	halfW := float64(r.tw) / 2
	halfH := float64(r.th) / 2
	rx := (au/halfW + av/halfH) / 2
	ry := (av/halfH - au/halfW) / 2
	return r.unrotate(roundHalfUp(rx), roundHalfUp(ry))
}

// Pick finds the block under a screen point by testing height planes
// from the top of the volume down. When several planes yield an
// occupied cell, the one whose projected anchor lies nearest the click
// wins, with remaining ties going to the highest z.
func (r *Renderer) Pick(s *world.Store, sx, sy int) (world.Pos, bool) {
	var (
		found    bool
		best     world.Pos
		bestDist int
	)
	for z := r.bounds.H - 1; z >= 0; z-- {
		x, y := r.ScreenToWorld(sx, sy, z)
		p := world.Pos{X: x, Y: y, Z: z}
		if !r.bounds.Contains(p) || s.Get(p).IsAir() {
			continue
		}
		u, v := r.WorldToScreen(p)
		d := (u-sx)*(u-sx) + (v-sy)*(v-sy)
		if !found || d < bestDist || (d == bestDist && p.Z > best.Z) {
			found = true
			best = p
			bestDist = d
		}
	}
	return best, found
}

// HoverTarget returns the cell a placement at (sx,sy) would fill: the
// cell above the picked block, or on an empty column the slot above
// its highest block at ground reach.
func (r *Renderer) HoverTarget(s *world.Store, sx, sy int) (world.Pos, bool) {
	if p, ok := r.Pick(s, sx, sy); ok {
		above := p.Above()
		if r.bounds.Contains(above) {
			return above, true
		}
		return p, true
	}
	x, y := r.ScreenToWorld(sx, sy, 0)
	if !r.bounds.Contains(world.Pos{X: x, Y: y}) {
		return world.Pos{}, false
	}
	z := s.HighestBlockAt(x, y) + 1
	if z >= r.bounds.H {
		z = r.bounds.H - 1
	}
	return world.Pos{X: x, Y: y, Z: z}, true
}

func roundHalfUp(f float64) int {
	if f >= 0 {
		return int(f + 0.5)
	}
	return -int(-f + 0.5)
}
