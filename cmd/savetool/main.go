// savetool inspects and validates world save files.
//
//	savetool validate -file data/saves/castle.json.zst
//	savetool inspect -file data/saves/castle.json.zst
//	savetool list -data ./data
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"

	"isoforge.dev/internal/persistence/indexdb"
	"isoforge.dev/internal/persistence/savefile"
	"isoforge.dev/internal/sim/blocks"
	"isoforge.dev/internal/sim/tuning"
	"isoforge.dev/internal/sim/world"
)

func main() {
	logger := log.New(os.Stderr, "[savetool] ", 0)

	if len(os.Args) < 2 {
		logger.Fatalf("usage: savetool <validate|inspect|list> [flags]")
	}
	cmd := os.Args[1]
	fs := flag.NewFlagSet(cmd, flag.ExitOnError)
	file := fs.String("file", "", "save file path")
	dataDir := fs.String("data", "./data", "runtime data directory (list)")
	_ = fs.Parse(os.Args[2:])

	switch cmd {
	case "validate":
		_, report, err := load(*file, logger)
		if err != nil {
			logger.Fatalf("invalid: %v", err)
		}
		fmt.Printf("ok: %d blocks placed, %d skipped\n", report.Placed, report.Skipped)
		for _, k := range report.Unknown {
			fmt.Printf("unknown kind: %s\n", k)
		}

	case "inspect":
		s, report, err := load(*file, logger)
		if err != nil {
			logger.Fatalf("invalid: %v", err)
		}
		digest, err := savefile.Digest(*file)
		if err != nil {
			logger.Fatalf("digest: %v", err)
		}
		fmt.Printf("file:    %s\n", filepath.Base(*file))
		fmt.Printf("digest:  %s\n", digest)
		fmt.Printf("blocks:  %d (%d skipped)\n", report.Placed, report.Skipped)

		counts := map[string]int{}
		s.ForEach(func(_ world.Pos, b world.Block) {
			counts[blocks.Get(b.Kind).Name]++
		})
		names := make([]string, 0, len(counts))
		for name := range counts {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			fmt.Printf("  %-16s %d\n", name, counts[name])
		}

	case "list":
		idx, err := indexdb.OpenSQLite(filepath.Join(*dataDir, "index.db"))
		if err != nil {
			logger.Fatalf("open index: %v", err)
		}
		defer idx.Close()
		rows, err := idx.ListSaves()
		if err != nil {
			logger.Fatalf("list saves: %v", err)
		}
		for _, r := range rows {
			fmt.Printf("%-20s %6d blocks  %s  %s\n", r.Name, r.Blocks, r.CreatedAt, r.Path)
		}

	default:
		logger.Fatalf("unknown command %q", cmd)
	}
}

func load(path string, logger *log.Logger) (*world.Store, savefile.LoadReport, error) {
	if path == "" {
		logger.Fatalf("-file is required")
	}
	t := tuning.Defaults()
	bounds := world.Bounds{W: t.VolumeW, D: t.VolumeD, H: t.VolumeH}
	return savefile.Load(path, bounds)
}
