package main

import (
	"context"
	"encoding/json"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"isoforge.dev/internal/persistence/indexdb"
	persistlog "isoforge.dev/internal/persistence/log"
	"isoforge.dev/internal/protocol"
	"isoforge.dev/internal/session"
	"isoforge.dev/internal/sim/blocks"
	"isoforge.dev/internal/sim/tuning"
	"isoforge.dev/internal/transport/ws"
)

func main() {
	var (
		addr       = flag.String("addr", ":8080", "http listen address")
		configDir  = flag.String("configs", "./configs", "config directory")
		dataDir    = flag.String("data", "./data", "runtime data directory")
		tuningPath = flag.String("tuning", "", "path to tuning.yaml (default: <configs>/tuning.yaml)")
		disableDB  = flag.Bool("disable_db", false, "disable the save/edit index database")
		loadName   = flag.String("load", "", "save name to load at startup (optional)")
		autosave   = flag.String("autosave", "autosave", "save name written on shutdown (empty to disable)")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[server] ", log.LstdFlags|log.Lmicroseconds)

	tp := strings.TrimSpace(*tuningPath)
	if tp == "" {
		tp = filepath.Join(*configDir, "tuning.yaml")
	}
	tune, err := tuning.Load(tp)
	if err != nil {
		if os.IsNotExist(err) {
			logger.Printf("tuning not found (%s); using defaults", tp)
			tune = tuning.Defaults()
		} else {
			logger.Fatalf("load tuning: %v", err)
		}
	}

	saveDir := filepath.Join(*dataDir, "saves")
	_ = os.MkdirAll(saveDir, 0o755)

	var idx *indexdb.SQLiteIndex
	if !*disableDB {
		idx, err = indexdb.OpenSQLite(filepath.Join(*dataDir, "index.db"))
		if err != nil {
			logger.Fatalf("open index: %v", err)
		}
		defer idx.Close()
	}

	editLog := persistlog.NewEditLogger(*dataDir)
	defer editLog.Close()

	engine := session.NewEngine(tune, saveDir, logger)
	engine.AddEditSink(editLog)
	if idx != nil {
		engine.AddEditSink(idx)
		engine.SetSaveCatalog(idx)
	}

	ctx, cancel := signalContext()
	defer cancel()

	// The engine runs until Stop so the shutdown save still goes
	// through after the signal context is cancelled.
	go func() {
		if err := engine.Run(context.Background()); err != nil && err != context.Canceled {
			logger.Printf("engine stopped: %v", err)
		}
	}()

	if *loadName != "" {
		sendCmd(engine, protocol.CmdMsg{
			Type:            protocol.TypeCmd,
			ProtocolVersion: protocol.Version,
			ID:              "startup-load",
			Op:              protocol.OpLoad,
			Name:            *loadName,
		}, logger)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(rw http.ResponseWriter, r *http.Request) {
		rw.WriteHeader(200)
		_, _ = rw.Write([]byte("ok"))
	})
	mux.HandleFunc("/v1/palette", func(rw http.ResponseWriter, r *http.Request) {
		rw.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(rw).Encode(struct {
			Digest string   `json:"digest"`
			Kinds  []string `json:"kinds"`
		}{Digest: blocks.PaletteDigest(), Kinds: blocks.Palette()})
	})
	mux.HandleFunc("/v1/saves", func(rw http.ResponseWriter, r *http.Request) {
		rw.Header().Set("Content-Type", "application/json")
		if idx == nil {
			_, _ = rw.Write([]byte("[]"))
			return
		}
		rows, err := idx.ListSaves()
		if err != nil {
			http.Error(rw, err.Error(), http.StatusInternalServerError)
			return
		}
		type saveInfo struct {
			Name      string `json:"name"`
			Digest    string `json:"digest"`
			Dimension string `json:"dimension"`
			Blocks    int    `json:"blocks"`
			CreatedAt string `json:"created_at"`
		}
		out := make([]saveInfo, 0, len(rows))
		for _, row := range rows {
			out = append(out, saveInfo{row.Name, row.Digest, row.Dimension, row.Blocks, row.CreatedAt})
		}
		_ = json.NewEncoder(rw).Encode(out)
	})
	mux.HandleFunc("/v1/ws", ws.NewServer(engine, logger).Handler())

	srv := &http.Server{
		Addr:              *addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		if *autosave != "" {
			sendCmd(engine, protocol.CmdMsg{
				Type:            protocol.TypeCmd,
				ProtocolVersion: protocol.Version,
				ID:              "shutdown-save",
				Op:              protocol.OpSave,
				Name:            *autosave,
			}, logger)
		}
		engine.Stop()
		ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel2()
		_ = srv.Shutdown(ctx2)
	}()

	logger.Printf("listening on %s", *addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatalf("ListenAndServe: %v", err)
	}
}

// sendCmd pushes a command into the engine and waits for its result,
// logging rejections. Used for the startup load and shutdown save.
func sendCmd(engine *session.Engine, cmd protocol.CmdMsg, logger *log.Logger) {
	out := make(chan []byte, 1)
	engine.Inbox() <- session.CmdEnvelope{Cmd: cmd, Out: out}
	select {
	case b := <-out:
		var res protocol.ResultMsg
		if err := json.Unmarshal(b, &res); err == nil && !res.Accepted {
			logger.Printf("%s: %s %s", cmd.ID, res.Code, res.Message)
		}
	case <-time.After(5 * time.Second):
		logger.Printf("%s: no result", cmd.ID)
	}
}

func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	ch := make(chan os.Signal, 2)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-ch
		cancel()
	}()
	return ctx, cancel
}
