// Package savefile reads and writes the versioned world save format: a
// JSON document carrying a format version, a dimension tag, and a flat
// block list. Files ending in .zst are zstd-compressed. Loading
// replays entries through the store so the result is independent of
// entry order.
package savefile

import (
	"crypto/sha256"
	_ "embed"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/klauspost/compress/zstd"
	"github.com/santhosh-tekuri/jsonschema/v5"

	"isoforge.dev/internal/sim/blocks"
	"isoforge.dev/internal/sim/world"
)

const FormatVersion = 1

var (
	ErrMalformed          = errors.New("savefile: malformed save")
	ErrUnsupportedVersion = errors.New("savefile: unsupported format version")
)

//go:embed save.schema.json
var schemaSrc string

var saveSchema = jsonschema.MustCompileString("save.schema.json", schemaSrc)

type SaveV1 struct {
	Version   int       `json:"version"`
	Dimension string    `json:"dimension"`
	Blocks    []BlockV1 `json:"blocks"`
}

type BlockV1 struct {
	X          int           `json:"x"`
	Y          int           `json:"y"`
	Z          int           `json:"z"`
	Type       string        `json:"type"`
	Level      int           `json:"level,omitempty"`
	Properties *PropertiesV1 `json:"properties,omitempty"`
}

type PropertiesV1 struct {
	Facing string `json:"facing,omitempty"`
	Open   bool   `json:"open,omitempty"`
	Half   string `json:"half,omitempty"`
}

// LoadReport counts what a load actually did. Unknown block types are
// skipped and reported, never fatal.
type LoadReport struct {
	Placed  int
	Skipped int
	Unknown []string
}

// Write serializes the store, blocks sorted by position so identical
// worlds produce identical bytes. A .zst suffix selects compression.
func Write(path string, s *world.Store, dimension string) error {
	save := SaveV1{Version: FormatVersion, Dimension: dimension}
	s.ForEach(func(p world.Pos, b world.Block) {
		entry := BlockV1{X: p.X, Y: p.Y, Z: p.Z, Type: blocks.Get(b.Kind).Name}
		if lvl := s.LiquidLevel(p); lvl > 0 {
			entry.Level = lvl
		}
		if b.Props != nil {
			entry.Properties = &PropertiesV1{
				Facing: b.Props.Facing.String(),
				Open:   b.Props.Open,
				Half:   b.Props.Half.String(),
			}
		}
		save.Blocks = append(save.Blocks, entry)
	})
	sort.Slice(save.Blocks, func(i, j int) bool {
		a, b := save.Blocks[i], save.Blocks[j]
		if a.X != b.X {
			return a.X < b.X
		}
		if a.Y != b.Y {
			return a.Y < b.Y
		}
		return a.Z < b.Z
	})

	raw, err := json.MarshalIndent(save, "", "  ")
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	if strings.HasSuffix(path, ".zst") {
		enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedDefault))
		if err != nil {
			return err
		}
		if _, err := enc.Write(raw); err != nil {
			enc.Close()
			return err
		}
		return enc.Close()
	}
	_, err = f.Write(raw)
	return err
}

// Load validates a save file and replays it into a fresh store sized
// by bounds. On any structural error the returned store is empty and
// the error wraps ErrMalformed.
func Load(path string, bounds world.Bounds) (*world.Store, LoadReport, error) {
	s := world.NewStore(bounds)
	var report LoadReport

	f, err := os.Open(path)
	if err != nil {
		return s, report, err
	}
	defer f.Close()

	var raw []byte
	if strings.HasSuffix(path, ".zst") {
		dec, err := zstd.NewReader(f)
		if err != nil {
			return s, report, err
		}
		defer dec.Close()
		raw, err = io.ReadAll(dec)
		if err != nil {
			return s, report, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
	} else {
		raw, err = io.ReadAll(f)
		if err != nil {
			return s, report, err
		}
	}

	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return world.NewStore(bounds), report, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if err := saveSchema.Validate(doc); err != nil {
		return world.NewStore(bounds), report, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	var save SaveV1
	if err := json.Unmarshal(raw, &save); err != nil {
		return world.NewStore(bounds), report, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if save.Version != FormatVersion {
		return world.NewStore(bounds), report, fmt.Errorf("%w: %d", ErrUnsupportedVersion, save.Version)
	}

	for _, e := range save.Blocks {
		kind, ok := blocks.ByName(e.Type)
		if !ok {
			report.Skipped++
			if !contains(report.Unknown, e.Type) {
				report.Unknown = append(report.Unknown, e.Type)
			}
			continue
		}
		p := world.Pos{X: e.X, Y: e.Y, Z: e.Z}
		def := blocks.Get(kind)
		var err error
		switch {
		case def.Liquid != blocks.LiquidNone:
			lvl := e.Level
			if lvl <= 0 {
				lvl = world.SourceLevel
			}
			_, err = s.PlaceLiquid(p, kind, lvl)
		case def.Stateful && e.Properties != nil:
			props := &blocks.Properties{
				Facing: blocks.FacingByName(e.Properties.Facing),
				Open:   e.Properties.Open,
				Half:   blocks.SlabHalfByName(e.Properties.Half),
			}
			_, err = s.Place(p, kind, props)
		default:
			_, err = s.Place(p, kind, nil)
		}
		if err != nil {
			report.Skipped++
			continue
		}
		report.Placed++
	}
	return s, report, nil
}

// Digest returns the sha256 hex of a save file's uncompressed JSON, so
// the index can spot duplicate worlds across compression settings.
func Digest(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	var r io.Reader = f
	if strings.HasSuffix(path, ".zst") {
		dec, err := zstd.NewReader(f)
		if err != nil {
			return "", err
		}
		defer dec.Close()
		r = dec
	}
	raw, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	return hashHex(raw), nil
}

func hashHex(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

func contains(ss []string, s string) bool {
	for _, v := range ss {
		if v == s {
			return true
		}
	}
	return false
}
