package session

import (
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"isoforge.dev/internal/persistence/indexdb"
	"isoforge.dev/internal/persistence/savefile"
	"isoforge.dev/internal/protocol"
	"isoforge.dev/internal/sim/blocks"
	"isoforge.dev/internal/sim/world"
)

func (e *Engine) dispatch(cmd protocol.CmdMsg) protocol.ResultMsg {
	res := protocol.ResultMsg{
		Type:            protocol.TypeResult,
		ProtocolVersion: protocol.Version,
		AckFor:          cmd.ID,
		Accepted:        true,
	}
	reject := func(code, msg string) protocol.ResultMsg {
		res.Accepted = false
		res.Code = code
		res.Message = msg
		return res
	}

	switch cmd.Op {
	case protocol.OpPlace:
		if cmd.Pos == nil || cmd.Kind == "" {
			return reject(protocol.ErrBadRequest, "PLACE needs pos and kind")
		}
		kind, ok := blocks.ByName(cmd.Kind)
		if !ok {
			return reject(protocol.ErrInvalidBlockKind, fmt.Sprintf("unknown kind %q", cmd.Kind))
		}
		p := posOf(*cmd.Pos)
		var chs []world.Change
		if blocks.Get(kind).Liquid != blocks.LiquidNone {
			if !e.store.Bounds().Contains(p) {
				return reject(protocol.ErrOutOfBounds, fmt.Sprintf("%v outside volume", p))
			}
			// Placement overwrites like solid placement does; only the
			// simulation's own flow writes respect occupied cells.
			if cur := e.store.Get(p); !cur.IsAir() && cur.Kind != kind {
				if ch, err := e.store.Remove(p); err == nil {
					chs = append(chs, ch)
				}
			}
			chs = append(chs, e.liquid.ApplyLiquidWrite(p, kind, world.SourceLevel)...)
		} else {
			ch, err := e.store.Place(p, kind, nil)
			if err != nil {
				return reject(codeFor(err), err.Error())
			}
			chs = []world.Change{ch}
		}
		e.recordUndoable("place", chs)
		res.Changed = len(chs)

	case protocol.OpRemove:
		if cmd.Pos == nil {
			return reject(protocol.ErrBadRequest, "REMOVE needs pos")
		}
		ch, err := e.store.Remove(posOf(*cmd.Pos))
		if err != nil {
			return reject(codeFor(err), err.Error())
		}
		if !ch.Prev.IsAir() {
			e.recordUndoable("remove", []world.Change{ch})
			res.Changed = 1
		}

	case protocol.OpToggleDoor:
		return e.toggleState(cmd, res, reject, func(b world.Block) (blocks.Properties, bool) {
			if b.Kind != blocks.OakDoor {
				return blocks.Properties{}, false
			}
			props := defaultedProps(b)
			props.Open = !props.Open
			return props, true
		})

	case protocol.OpRotateStair:
		return e.toggleState(cmd, res, reject, func(b world.Block) (blocks.Properties, bool) {
			if b.Kind != blocks.OakStairs && b.Kind != blocks.StoneStairs {
				return blocks.Properties{}, false
			}
			props := defaultedProps(b)
			props.Facing = props.Facing.Rotate()
			return props, true
		})

	case protocol.OpFlipSlab:
		return e.toggleState(cmd, res, reject, func(b world.Block) (blocks.Properties, bool) {
			if b.Kind != blocks.OakSlab && b.Kind != blocks.StoneSlab {
				return blocks.Properties{}, false
			}
			props := defaultedProps(b)
			if props.Half == blocks.SlabTop {
				props.Half = blocks.SlabBottom
			} else {
				props.Half = blocks.SlabTop
			}
			return props, true
		})

	case protocol.OpPaste:
		if cmd.Pos == nil || cmd.Structure == "" {
			return reject(protocol.ErrBadRequest, "PASTE_STRUCTURE needs pos and structure")
		}
		tmpl, ok := structures[cmd.Structure]
		if !ok {
			return reject(protocol.ErrBadRequest, fmt.Sprintf("unknown structure %q", cmd.Structure))
		}
		chs := e.paste(tmpl, posOf(*cmd.Pos))
		e.recordUndoable("paste", chs)
		res.Changed = len(chs)

	case protocol.OpUndo:
		chs := e.history.Undo()
		e.recordDerived("undo", "undo", chs)
		res.Changed = len(chs)

	case protocol.OpRedo:
		chs := e.history.Redo()
		e.recordDerived("redo", "redo", chs)
		res.Changed = len(chs)

	case protocol.OpPick:
		if cmd.Screen == nil {
			return reject(protocol.ErrBadRequest, "PICK needs screen")
		}
		if p, ok := e.renderer.Pick(e.store, cmd.Screen[0], cmd.Screen[1]); ok {
			arr := p.ToArray()
			res.Picked = &arr
		}

	case protocol.OpQuery:
		if cmd.Pos == nil {
			return reject(protocol.ErrBadRequest, "QUERY needs pos")
		}
		p := posOf(*cmd.Pos)
		if !e.store.Bounds().Contains(p) {
			return reject(protocol.ErrOutOfBounds, fmt.Sprintf("%v outside volume", p))
		}
		e.light.Recompute()
		b := e.store.Get(p)
		info := &protocol.BlockInfo{
			Pos:         p.ToArray(),
			Kind:        blocks.Get(b.Kind).Name,
			Light:       e.light.Value(p),
			LiquidLevel: e.store.LiquidLevel(p),
		}
		if b.Props != nil {
			info.Properties = propsInfo(b.Props)
		}
		res.Block = info

	case protocol.OpSave:
		if cmd.Name == "" {
			return reject(protocol.ErrBadRequest, "SAVE needs name")
		}
		path := e.savePath(cmd.Name)
		if err := savefile.Write(path, e.store, e.dimension); err != nil {
			return reject(protocol.ErrInternal, err.Error())
		}
		e.log.Printf("saved %d blocks to %s", e.store.Len(), path)
		if e.catalog != nil {
			digest, err := savefile.Digest(path)
			if err != nil {
				e.log.Printf("digest %s: %v", path, err)
			}
			e.catalog.RecordSave(indexdb.SaveRow{
				Name:      cmd.Name,
				Path:      path,
				Digest:    digest,
				Dimension: e.dimension,
				Blocks:    e.store.Len(),
			})
		}
		res.Changed = e.store.Len()

	case protocol.OpLoad:
		if cmd.Name == "" {
			return reject(protocol.ErrBadRequest, "LOAD needs name")
		}
		bounds := e.store.Bounds()
		s, report, err := savefile.Load(e.savePath(cmd.Name), bounds)
		if err != nil {
			if errors.Is(err, savefile.ErrMalformed) || errors.Is(err, savefile.ErrUnsupportedVersion) {
				return reject(protocol.ErrMalformedSave, err.Error())
			}
			return reject(protocol.ErrSaveNotFound, err.Error())
		}
		e.resetWorld(s)
		e.log.Printf("loaded %d blocks (%d skipped)", report.Placed, report.Skipped)
		res.LoadReport = &protocol.LoadReport{
			Placed:  report.Placed,
			Skipped: report.Skipped,
			Unknown: report.Unknown,
		}

	case protocol.OpClear:
		chs := e.removeAll(func(world.Pos, world.Block) bool { return true })
		e.recordUndoable("clear", chs)
		res.Changed = len(chs)

	case protocol.OpClearLiquids:
		chs := e.removeAll(func(_ world.Pos, b world.Block) bool {
			return blocks.Get(b.Kind).Liquid != blocks.LiquidNone
		})
		e.recordUndoable("clear_liquids", chs)
		res.Changed = len(chs)

	case protocol.OpSetZoom:
		if cmd.Zoom == nil {
			return reject(protocol.ErrBadRequest, "SET_ZOOM needs zoom")
		}
		e.renderer.SetZoom(*cmd.Zoom)

	case protocol.OpRotateView:
		e.renderer.RotateView(cmd.Dir)

	case protocol.OpSetAmbient:
		if cmd.Ambient == nil {
			return reject(protocol.ErrBadRequest, "SET_AMBIENT needs ambient")
		}
		e.light.SetAmbient(*cmd.Ambient)

	case protocol.OpToggleLiquid:
		if cmd.Enabled == nil {
			return reject(protocol.ErrBadRequest, "TOGGLE_LIQUID needs enabled")
		}
		e.liquid.SetEnabled(*cmd.Enabled)

	case protocol.OpToggleLight:
		if cmd.Enabled == nil {
			return reject(protocol.ErrBadRequest, "TOGGLE_LIGHT needs enabled")
		}
		e.light.SetEnabled(*cmd.Enabled)

	default:
		return reject(protocol.ErrBadRequest, fmt.Sprintf("unknown op %q", cmd.Op))
	}
	return res
}

func (e *Engine) toggleState(cmd protocol.CmdMsg, res protocol.ResultMsg,
	reject func(code, msg string) protocol.ResultMsg,
	next func(world.Block) (blocks.Properties, bool)) protocol.ResultMsg {

	if cmd.Pos == nil {
		return reject(protocol.ErrBadRequest, "toggle needs pos")
	}
	p := posOf(*cmd.Pos)
	if !e.store.Bounds().Contains(p) {
		return reject(protocol.ErrOutOfBounds, fmt.Sprintf("%v outside volume", p))
	}
	b := e.store.Get(p)
	props, ok := next(b)
	if !ok {
		return reject(protocol.ErrNotStateful, fmt.Sprintf("%s at %v has no such state", blocks.Get(b.Kind).Name, p))
	}
	ch, err := e.store.SetProperties(p, props)
	if err != nil {
		return reject(codeFor(err), err.Error())
	}
	e.recordUndoable(strings.ToLower(cmd.Op), []world.Change{ch})
	res.Changed = 1
	return res
}

// removeAll deletes every cell matching keep, in stable position order
// so the resulting history batch replays identically.
func (e *Engine) removeAll(match func(world.Pos, world.Block) bool) []world.Change {
	var targets []world.Pos
	e.store.ForEach(func(p world.Pos, b world.Block) {
		if match(p, b) {
			targets = append(targets, p)
		}
	})
	sort.Slice(targets, func(i, j int) bool { return targets[i].Key() < targets[j].Key() })
	chs := make([]world.Change, 0, len(targets))
	for _, p := range targets {
		ch, err := e.store.Remove(p)
		if err != nil {
			continue
		}
		chs = append(chs, ch)
	}
	return chs
}

func (e *Engine) paste(tmpl Structure, origin world.Pos) []world.Change {
	var chs []world.Change
	for _, sb := range tmpl.Blocks {
		p := world.Pos{X: origin.X + sb.DX, Y: origin.Y + sb.DY, Z: origin.Z + sb.DZ}
		if !e.store.Bounds().Contains(p) {
			continue
		}
		if blocks.Get(sb.Kind).Liquid != blocks.LiquidNone {
			chs = append(chs, e.liquid.ApplyLiquidWrite(p, sb.Kind, world.SourceLevel)...)
			continue
		}
		ch, err := e.store.Place(p, sb.Kind, nil)
		if err != nil {
			continue
		}
		chs = append(chs, ch)
	}
	return chs
}

func (e *Engine) savePath(name string) string {
	return filepath.Join(e.saveDir, filepath.Base(name)+".json.zst")
}

func defaultedProps(b world.Block) blocks.Properties {
	if b.Props != nil {
		return *b.Props
	}
	return blocks.Properties{Facing: blocks.FacingSouth}
}

func posOf(a [3]int) world.Pos {
	return world.Pos{X: a[0], Y: a[1], Z: a[2]}
}

func codeFor(err error) string {
	switch {
	case errors.Is(err, world.ErrOutOfBounds):
		return protocol.ErrOutOfBounds
	case errors.Is(err, world.ErrInvalidKind):
		return protocol.ErrInvalidBlockKind
	}
	return protocol.ErrInternal
}
