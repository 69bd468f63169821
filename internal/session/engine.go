// Package session owns the single-threaded build session: the voxel
// store and its derived state, the command dispatcher, and the frame
// loop. Everything mutable lives on the Run goroutine; transports talk
// to it over channels only.
package session

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"isoforge.dev/internal/persistence/indexdb"
	"isoforge.dev/internal/protocol"
	"isoforge.dev/internal/sim/blocks"
	"isoforge.dev/internal/sim/render"
	"isoforge.dev/internal/sim/tuning"
	"isoforge.dev/internal/sim/world"
)

// EditSink receives the audit stream of applied block changes.
type EditSink interface {
	WriteEdit(world.EditEntry) error
}

// SaveCatalog records completed save files (the SQLite index).
type SaveCatalog interface {
	RecordSave(row indexdb.SaveRow)
}

// CmdEnvelope is one command with its reply destination. A nil Out
// discards the result.
type CmdEnvelope struct {
	Cmd protocol.CmdMsg
	Out chan<- []byte
}

// AttachRequest subscribes a client to frames and results.
type AttachRequest struct {
	Out  chan []byte
	Resp chan protocol.WelcomeMsg
}

type Engine struct {
	cfg tuning.Tuning
	log *log.Logger

	store    *world.Store
	liquid   *world.LiquidSim
	light    *world.LightField
	history  *world.History
	renderer *render.Renderer

	inbox  chan CmdEnvelope
	attach chan AttachRequest
	detach chan struct{}
	stop   chan struct{}

	client chan []byte

	saveDir   string
	dimension string

	sinks   []EditSink
	catalog SaveCatalog
	editSeq uint64

	frameSeq uint64

	waterAcc time.Duration
	lavaAcc  time.Duration
}

func NewEngine(cfg tuning.Tuning, saveDir string, logger *log.Logger) *Engine {
	bounds := world.Bounds{W: cfg.VolumeW, D: cfg.VolumeD, H: cfg.VolumeH}
	store := world.NewStore(bounds)
	metrics := render.Metrics{
		TileW:  cfg.Tiles.Width,
		TileH:  cfg.Tiles.Height,
		BlockH: cfg.Tiles.BlockHeight,
	}
	e := &Engine{
		cfg:       cfg,
		log:       logger,
		store:     store,
		liquid:    world.NewLiquidSim(store),
		light:     world.NewLightField(store),
		history:   world.NewHistory(store, cfg.HistoryCap),
		renderer:  render.NewRenderer(bounds, metrics),
		inbox:     make(chan CmdEnvelope, 256),
		attach:    make(chan AttachRequest, 4),
		detach:    make(chan struct{}, 4),
		stop:      make(chan struct{}),
		saveDir:   saveDir,
		dimension: "overworld",
	}
	e.light.SetAmbient(cfg.AmbientLight)
	return e
}

func (e *Engine) AddEditSink(s EditSink) { e.sinks = append(e.sinks, s) }

func (e *Engine) SetSaveCatalog(c SaveCatalog) { e.catalog = c }

func (e *Engine) Inbox() chan<- CmdEnvelope { return e.inbox }

func (e *Engine) Attach() chan<- AttachRequest { return e.attach }

func (e *Engine) Detach() chan<- struct{} { return e.detach }

func (e *Engine) Stop() { close(e.stop) }

// Run drives the session loop: commands are handled as they arrive,
// and each frame tick advances the liquid accumulators, refreshes
// light, and pushes a draw list to the attached client. Liquids flow
// on their own fixed cadence derived from elapsed time, so a slow
// frame rate never slows the water down.
func (e *Engine) Run(ctx context.Context) error {
	interval := time.Second / time.Duration(e.cfg.FrameRateHz)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	last := time.Now()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-e.stop:
			return nil
		case req := <-e.attach:
			e.client = req.Out
			req.Resp <- e.welcome()
		case <-e.detach:
			e.client = nil
		case env := <-e.inbox:
			res := e.dispatch(env.Cmd)
			if env.Out != nil {
				b, _ := json.Marshal(res)
				select {
				case env.Out <- b:
				default:
				}
			}
		case now := <-ticker.C:
			e.step(now.Sub(last))
			last = now
		}
	}
}

func (e *Engine) step(dt time.Duration) {
	if e.liquid.Enabled() {
		e.waterAcc += dt
		e.lavaAcc += dt
		water := time.Duration(e.cfg.WaterFlowMs) * time.Millisecond
		lava := time.Duration(e.cfg.LavaFlowMs) * time.Millisecond
		for e.waterAcc >= water {
			e.waterAcc -= water
			e.recordDerived("liquid_tick", "liquid", e.liquid.Tick(blocks.Water))
		}
		for e.lavaAcc >= lava {
			e.lavaAcc -= lava
			e.recordDerived("liquid_tick", "liquid", e.liquid.Tick(blocks.Lava))
		}
	}

	e.light.Recompute()

	if e.client == nil {
		return
	}
	e.frameSeq++
	frame := e.buildFrame()
	b, _ := json.Marshal(frame)
	select {
	case e.client <- b:
	default:
		// Never block the loop on a slow client; it catches up next frame.
	}
}

func (e *Engine) buildFrame() protocol.FrameMsg {
	cmds := e.renderer.BuildDrawList(e.store, e.light)
	draw := make([]protocol.DrawEntry, 0, len(cmds))
	for _, c := range cmds {
		entry := protocol.DrawEntry{
			Pos:         c.Pos.ToArray(),
			Kind:        blocks.Get(c.Kind).Name,
			Screen:      [2]int{c.ScreenX, c.ScreenY},
			Light:       c.Light,
			LiquidLevel: c.LiquidLevel,
			AO:          [3]float64{c.TopAO, c.LeftAO, c.RightAO},
		}
		if c.Props != nil {
			entry.Properties = propsInfo(c.Props)
		}
		draw = append(draw, entry)
	}
	return protocol.FrameMsg{
		Type:            protocol.TypeFrame,
		ProtocolVersion: protocol.Version,
		Seq:             e.frameSeq,
		View: protocol.ViewState{
			Rotation: e.renderer.ViewRotation(),
			Zoom:     e.renderer.Zoom(),
			Ambient:  e.light.Ambient(),
		},
		Draw: draw,
	}
}

func (e *Engine) welcome() protocol.WelcomeMsg {
	return protocol.WelcomeMsg{
		Type:            protocol.TypeWelcome,
		ProtocolVersion: protocol.Version,
		SessionID:       "S1",
		WorldParams: protocol.WorldParams{
			Volume:      [3]int{e.cfg.VolumeW, e.cfg.VolumeD, e.cfg.VolumeH},
			FrameRateHz: e.cfg.FrameRateHz,
			WaterFlowMs: e.cfg.WaterFlowMs,
			LavaFlowMs:  e.cfg.LavaFlowMs,
			TileWidth:   e.cfg.Tiles.Width,
			TileHeight:  e.cfg.Tiles.Height,
			BlockHeight: e.cfg.Tiles.BlockHeight,
		},
		BlockPalette: protocol.DigestRef{
			Digest: blocks.PaletteDigest(),
			Count:  blocks.Count(),
		},
	}
}

// recordUndoable applies bookkeeping for a user command batch: history
// entry, light dirtying, audit entries.
func (e *Engine) recordUndoable(op string, chs []world.Change) {
	if len(chs) == 0 {
		return
	}
	e.history.Record(chs)
	e.recordDerived(op, "user", chs)
}

// recordDerived dirties light and audits a batch without touching
// history (liquid ticks, undo, redo, load).
func (e *Engine) recordDerived(op, source string, chs []world.Change) {
	now := time.Now().UnixMilli()
	for _, ch := range chs {
		e.light.MarkDirty(ch.Pos)
		e.editSeq++
		entry := world.EditEntry{
			Seq:    e.editSeq,
			Op:     op,
			Pos:    ch.Pos.ToArray(),
			From:   blocks.Get(ch.Prev.Kind).Name,
			To:     blocks.Get(ch.Next.Kind).Name,
			Level:  ch.NextLevel,
			Source: source,
			AtMs:   now,
		}
		for _, s := range e.sinks {
			if err := s.WriteEdit(entry); err != nil {
				e.log.Printf("edit sink: %v", err)
			}
		}
	}
}

// resetWorld swaps in a freshly loaded store and rebuilds everything
// derived from it. History does not survive a load.
func (e *Engine) resetWorld(s *world.Store) {
	e.store = s
	liquidOn := e.liquid.Enabled()
	e.liquid = world.NewLiquidSim(s)
	e.liquid.SetEnabled(liquidOn)
	enabled := e.light.Enabled()
	ambient := e.light.Ambient()
	e.light = world.NewLightField(s)
	e.light.SetEnabled(enabled)
	e.light.SetAmbient(ambient)
	e.light.RecomputeAll()
	e.history = world.NewHistory(s, e.cfg.HistoryCap)
	e.waterAcc = 0
	e.lavaAcc = 0
}

func propsInfo(p *blocks.Properties) *protocol.PropertiesInfo {
	return &protocol.PropertiesInfo{
		Facing: p.Facing.String(),
		Open:   p.Open,
		Half:   p.Half.String(),
	}
}
