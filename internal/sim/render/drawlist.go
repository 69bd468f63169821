package render

import (
	"sort"

	"isoforge.dev/internal/sim/blocks"
	"isoforge.dev/internal/sim/world"
)

// DrawCommand is one block ready for the texture layer: where to blit,
// what kind and state it is, and the lighting inputs for shading.
type DrawCommand struct {
	Pos   world.Pos
	Kind  blocks.Kind
	Props *blocks.Properties

	ScreenX, ScreenY int
	Light            int
	LiquidLevel      int

	// per-face ambient occlusion, 1.0 = fully bright
	TopAO, LeftAO, RightAO float64
}

// BuildDrawList walks the store and emits commands back to front under
// the painter's algorithm. Depth is rx+ry+z in rotated coordinates so
// the order stays correct across view rotations; equal keys cannot
// occlude each other and are broken by position only to keep frames
// deterministic. The list is rebuilt from scratch every frame.
func (r *Renderer) BuildDrawList(s *world.Store, lf *world.LightField) []DrawCommand {
	cmds := make([]DrawCommand, 0, s.Len())
	s.ForEach(func(p world.Pos, b world.Block) {
		u, v := r.WorldToScreen(p)
		top, left, right := occlusion(s, p)
		cmds = append(cmds, DrawCommand{
			Pos:         p,
			Kind:        b.Kind,
			Props:       b.Props,
			ScreenX:     u,
			ScreenY:     v,
			Light:       lf.Value(p),
			LiquidLevel: s.LiquidLevel(p),
			TopAO:       top,
			LeftAO:      left,
			RightAO:     right,
		})
	})
	sort.Slice(cmds, func(i, j int) bool {
		a, b := cmds[i].Pos, cmds[j].Pos
		ax, ay := r.rotate(a.X, a.Y)
		bx, by := r.rotate(b.X, b.Y)
		ka, kb := ax+ay+a.Z, bx+by+b.Z
		if ka != kb {
			return ka < kb
		}
		if ax != bx {
			return ax < bx
		}
		if ay != by {
			return ay < by
		}
		return a.Z < b.Z
	})
	return cmds
}

// occlusion darkens the three visible faces by the count of occupied
// cells around each face, with a floor so corners never go black.
func occlusion(s *world.Store, p world.Pos) (top, left, right float64) {
	ring := [8][2]int{{1, 0}, {-1, 0}, {0, 1}, {0, -1}, {1, 1}, {-1, 1}, {1, -1}, {-1, -1}}

	n := 0
	for _, d := range ring {
		if !s.Get(world.Pos{X: p.X + d[0], Y: p.Y + d[1], Z: p.Z + 1}).IsAir() {
			n++
		}
	}
	top = floorAt(1.0-float64(n)*0.06, 0.5)

	n = 0
	for _, d := range ring {
		if !s.Get(world.Pos{X: p.X - 1, Y: p.Y + d[0], Z: p.Z + d[1]}).IsAir() {
			n++
		}
	}
	left = floorAt(1.0-float64(n)*0.075, 0.4)

	n = 0
	for _, d := range ring {
		if !s.Get(world.Pos{X: p.X + d[0], Y: p.Y + 1, Z: p.Z + d[1]}).IsAir() {
			n++
		}
	}
	right = floorAt(1.0-float64(n)*0.075, 0.4)
	return top, left, right
}

func floorAt(v, min float64) float64 {
	if v < min {
		return min
	}
	return v
}
