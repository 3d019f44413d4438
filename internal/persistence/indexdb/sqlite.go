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

	"github.com/hszqf/SCP-sub000/internal/sim/catalogs"
	"github.com/hszqf/SCP-sub000/internal/sim/effects"
)

// SQLiteIndex is a queryable read model of content loads and effect
// applications. The JSONL audit log stays the source of truth for applies.
type SQLiteIndex struct {
	db *sql.DB

	ch   chan effects.Record
	wg   sync.WaitGroup
	once sync.Once

	closed    atomic.Bool
	dropApply atomic.Uint64
}

type Stats struct {
	DropApplyTotal uint64 `json:"drop_apply_total"`
	QueueDepth     int    `json:"queue_depth"`
	QueueCapacity  int    `json:"queue_capacity"`
}

// LoadRow is one recorded load attempt.
type LoadRow struct {
	ID            int64
	Generation    string
	Digest        string
	SchemaVersion string
	DataVersion   string
	OK            bool
	Error         string
	LoadedAt      string
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
		ch: make(chan effects.Record, 65536),
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.loop()
	}()
	return s, nil
}

func initPragmas(db *sql.DB) error {
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
		`CREATE TABLE IF NOT EXISTS loads (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			generation TEXT NOT NULL,
			digest TEXT NOT NULL,
			schema_version TEXT NOT NULL,
			data_version TEXT NOT NULL,
			ok INTEGER NOT NULL,
			error TEXT,
			summary_json TEXT NOT NULL,
			loaded_at TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_loads_generation ON loads(generation);`,
		`CREATE TABLE IF NOT EXISTS table_rows (
			generation TEXT NOT NULL,
			table_name TEXT NOT NULL,
			rows INTEGER NOT NULL,
			PRIMARY KEY (generation, table_name)
		);`,
		`CREATE TABLE IF NOT EXISTS applies (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			generation TEXT NOT NULL,
			effect_id TEXT NOT NULL,
			event_def_id TEXT,
			option_id TEXT,
			node_id TEXT,
			task_id TEXT,
			applied INTEGER NOT NULL,
			raw_json TEXT NOT NULL,
			applied_at TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_applies_effect ON applies(effect_id, applied_at);`,
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

func (s *SQLiteIndex) Stats() Stats {
	if s == nil {
		return Stats{}
	}
	return Stats{
		DropApplyTotal: s.dropApply.Load(),
		QueueDepth:     len(s.ch),
		QueueCapacity:  cap(s.ch),
	}
}

// RecordApply queues an effect application. It never blocks; records are
// dropped when the writer falls behind.
func (s *SQLiteIndex) RecordApply(rec effects.Record) {
	if s == nil || s.closed.Load() {
		return
	}
	select {
	case s.ch <- rec:
	default:
		s.dropApply.Add(1)
	}
}

// RecordLoad stores one load attempt synchronously. A failed load is recorded
// with loadErr and whatever summary fields are known.
func (s *SQLiteIndex) RecordLoad(sum catalogs.Summary, loadErr error) error {
	if s == nil {
		return nil
	}
	now := time.Now().UTC().Format(time.RFC3339Nano)
	loadedAt := now
	if !sum.LoadedAt.IsZero() {
		loadedAt = sum.LoadedAt.UTC().Format(time.RFC3339Nano)
	}
	b, err := json.Marshal(sum)
	if err != nil {
		return err
	}
	var (
		ok     = 1
		errMsg any
	)
	if loadErr != nil {
		ok = 0
		errMsg = loadErr.Error()
	}

	tx, err := s.db.BeginTx(context.Background(), nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(`INSERT OR REPLACE INTO meta(key,value) VALUES('schema_version','1')`); err != nil {
		return err
	}
	if _, err := tx.Exec(
		`INSERT INTO loads(generation,digest,schema_version,data_version,ok,error,summary_json,loaded_at) VALUES(?,?,?,?,?,?,?,?)`,
		sum.Generation, sum.Digest, sum.SchemaVersion, sum.DataVersion, ok, errMsg, string(b), loadedAt,
	); err != nil {
		return err
	}
	if loadErr == nil && sum.Generation != "" {
		stmt, err := tx.Prepare(`INSERT OR REPLACE INTO table_rows(generation,table_name,rows) VALUES(?,?,?)`)
		if err != nil {
			return err
		}
		defer stmt.Close()
		for name, n := range sum.TableRows {
			if _, err := stmt.Exec(sum.Generation, name, n); err != nil {
				return err
			}
		}
		if _, err := tx.Exec(`INSERT OR REPLACE INTO meta(key,value) VALUES('current_generation',?)`, sum.Generation); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// RecentLoads returns up to limit load attempts, newest first.
func (s *SQLiteIndex) RecentLoads(ctx context.Context, limit int) ([]LoadRow, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id,generation,digest,schema_version,data_version,ok,COALESCE(error,''),loaded_at FROM loads ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []LoadRow
	for rows.Next() {
		var (
			r  LoadRow
			ok int
		)
		if err := rows.Scan(&r.ID, &r.Generation, &r.Digest, &r.SchemaVersion, &r.DataVersion, &ok, &r.Error, &r.LoadedAt); err != nil {
			return nil, err
		}
		r.OK = ok != 0
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *SQLiteIndex) loop() {
	ctx := context.Background()

	insertApply, _ := s.db.Prepare(`INSERT INTO applies(generation,effect_id,event_def_id,option_id,node_id,task_id,applied,raw_json,applied_at) VALUES(?,?,?,?,?,?,?,?,?)`)
	defer func() {
		if insertApply != nil {
			_ = insertApply.Close()
		}
	}()

	var (
		tx            *sql.Tx
		opCount       int
		lastCommit    = time.Now()
		commitEvery   = 500
		commitMaxWait = 2 * time.Second
	)

	begin := func() {
		if tx != nil {
			return
		}
		txx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
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
		if opCount >= commitEvery || time.Since(lastCommit) >= commitMaxWait || len(s.ch) == 0 {
			commit()
		}
	}

	for rec := range s.ch {
		begin()
		if tx == nil || insertApply == nil {
			continue
		}
		raw, _ := json.Marshal(rec)
		if _, err := tx.Stmt(insertApply).Exec(
			rec.Generation,
			rec.EffectID,
			rec.EventDefID,
			rec.OptionID,
			rec.NodeID,
			rec.TaskID,
			rec.Applied,
			string(raw),
			rec.Time.UTC().Format(time.RFC3339Nano),
		); err != nil {
			rollback()
			continue
		}
		opCount++
		flushIfNeeded()
	}

	commit()
}
