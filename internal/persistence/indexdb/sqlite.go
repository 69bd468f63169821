// Package indexdb keeps a SQLite catalog of save files and an indexed
// copy of the edit audit stream. It is a secondary index: the save
// files themselves are the source of truth, so writes are buffered and
// dropped rather than ever stalling the sim loop.
package indexdb

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	_ "modernc.org/sqlite"

	"isoforge.dev/internal/sim/world"
)

type SQLiteIndex struct {
	db *sql.DB

	ch   chan req
	wg   sync.WaitGroup
	once sync.Once

	closed atomic.Bool
}

type reqKind int

const (
	reqEdit reqKind = iota + 1
	reqSave
)

type req struct {
	kind reqKind

	edit world.EditEntry
	save SaveRow
}

// SaveRow is one catalogued save file.
type SaveRow struct {
	Name      string
	Path      string
	Digest    string
	Dimension string
	Blocks    int
	CreatedAt string
}

func OpenSQLite(path string) (*SQLiteIndex, error) {
	if path == "" {
		return nil, fmt.Errorf("empty db path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initPragmas(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	s := &SQLiteIndex{
		db: db,
		// Sized for bursty edit streams (structure paste, clear).
		ch: make(chan req, 65536),
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.loop()
	}()
	return s, nil
}

func initPragmas(db *sql.DB) error {
	// WAL is much faster for append-style workloads.
	// NORMAL is a decent durability/perf tradeoff for a secondary index.
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA foreign_keys=ON;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA temp_store=MEMORY;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return err
		}
	}
	return nil
}

func initSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS meta (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS saves (
			name TEXT PRIMARY KEY,
			path TEXT NOT NULL,
			digest TEXT NOT NULL,
			dimension TEXT NOT NULL,
			blocks INTEGER NOT NULL,
			created_at TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_saves_digest ON saves(digest);`,
		`CREATE TABLE IF NOT EXISTS edits (
			seq INTEGER PRIMARY KEY,
			op TEXT NOT NULL,
			source TEXT NOT NULL,
			x INTEGER NOT NULL,
			y INTEGER NOT NULL,
			z INTEGER NOT NULL,
			from_kind TEXT NOT NULL,
			to_kind TEXT NOT NULL,
			level INTEGER NOT NULL,
			at_ms INTEGER NOT NULL,
			raw_json TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_edits_pos ON edits(x, y, z, seq);`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLiteIndex) Close() error {
	var err error
	s.once.Do(func() {
		s.closed.Store(true)
		close(s.ch)
		s.wg.Wait()
		err = s.db.Close()
	})
	return err
}

func (s *SQLiteIndex) WriteEdit(entry world.EditEntry) error {
	if s == nil || s.closed.Load() {
		return nil
	}
	select {
	case s.ch <- req{kind: reqEdit, edit: entry}:
	default:
		// Drop if the indexer falls behind; the JSONL log remains the source of truth.
	}
	return nil
}

func (s *SQLiteIndex) RecordSave(row SaveRow) {
	if s == nil || s.closed.Load() {
		return
	}
	if row.Name == "" || row.Path == "" {
		return
	}
	if row.CreatedAt == "" {
		row.CreatedAt = time.Now().UTC().Format(time.RFC3339Nano)
	}
	select {
	case s.ch <- req{kind: reqSave, save: row}:
	default:
	}
}

// ListSaves returns the catalogued saves, most recent first. Reads go
// straight to the database, not through the writer goroutine.
func (s *SQLiteIndex) ListSaves() ([]SaveRow, error) {
	if s == nil {
		return nil, nil
	}
	rows, err := s.db.Query(`SELECT name, path, digest, dimension, blocks, created_at FROM saves ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []SaveRow
	for rows.Next() {
		var r SaveRow
		if err := rows.Scan(&r.Name, &r.Path, &r.Digest, &r.Dimension, &r.Blocks, &r.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *SQLiteIndex) loop() {
	ctx := context.Background()

	insertEdit, _ := s.db.Prepare(`INSERT OR REPLACE INTO edits(seq,op,source,x,y,z,from_kind,to_kind,level,at_ms,raw_json) VALUES(?,?,?,?,?,?,?,?,?,?,?)`)
	insertSave, _ := s.db.Prepare(`INSERT OR REPLACE INTO saves(name,path,digest,dimension,blocks,created_at) VALUES(?,?,?,?,?,?)`)
	defer func() {
		if insertEdit != nil {
			_ = insertEdit.Close()
		}
		if insertSave != nil {
			_ = insertSave.Close()
		}
	}()

	var (
		tx            *sql.Tx
		opCount       int
		lastCommit    = time.Now()
		commitEvery   = 2000
		commitMaxWait = 2 * time.Second
	)

	begin := func() {
		if tx != nil {
			return
		}
		txx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			// If we can't start a tx, we can't do much; sleep a bit.
			time.Sleep(50 * time.Millisecond)
			return
		}
		tx = txx
		opCount = 0
		lastCommit = time.Now()
	}
	commit := func() {
		if tx == nil {
			return
		}
		_ = tx.Commit()
		tx = nil
		opCount = 0
		lastCommit = time.Now()
	}
	rollback := func() {
		if tx == nil {
			return
		}
		_ = tx.Rollback()
		tx = nil
		opCount = 0
		lastCommit = time.Now()
	}

	flushIfNeeded := func() {
		if tx == nil {
			return
		}
		if opCount >= commitEvery || time.Since(lastCommit) >= commitMaxWait {
			commit()
		}
	}

	for r := range s.ch {
		begin()
		if tx == nil {
			continue
		}
		switch r.kind {
		case reqEdit:
			e := r.edit
			raw, _ := json.Marshal(e)
			if insertEdit != nil {
				if _, err := tx.Stmt(insertEdit).Exec(
					int64(e.Seq),
					e.Op,
					e.Source,
					e.Pos[0], e.Pos[1], e.Pos[2],
					e.From,
					e.To,
					e.Level,
					e.AtMs,
					string(raw),
				); err != nil {
					rollback()
					continue
				}
				opCount++
			}

		case reqSave:
			sv := r.save
			if insertSave != nil {
				if _, err := tx.Stmt(insertSave).Exec(
					sv.Name,
					sv.Path,
					sv.Digest,
					sv.Dimension,
					sv.Blocks,
					sv.CreatedAt,
				); err != nil {
					rollback()
					continue
				}
				opCount++
			}
		}
		flushIfNeeded()
	}

	commit()
}
