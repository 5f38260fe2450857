// Package store persists BER sweep runs in SQLite.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/observe-l/phylink/internal/sim"
)

var ErrRunNotFound = errors.New("store: run not found")

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id           TEXT PRIMARY KEY,
	created_at   INTEGER NOT NULL,
	scheme       TEXT NOT NULL,
	modulation   TEXT NOT NULL,
	method       TEXT NOT NULL,
	seed         INTEGER NOT NULL,
	trials       INTEGER NOT NULL,
	message_bits INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS points (
	run_id       TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
	snr_db       REAL NOT NULL,
	trials       INTEGER NOT NULL,
	bits         INTEGER NOT NULL,
	bit_errors   INTEGER NOT NULL,
	frame_errors INTEGER NOT NULL,
	ber          REAL NOT NULL,
	fer          REAL NOT NULL,
	PRIMARY KEY (run_id, snr_db)
);
`

// Run describes one sweep invocation.
type Run struct {
	ID          string
	CreatedAt   time.Time
	Scheme      string
	Modulation  string
	Method      string
	Seed        uint64
	Trials      int
	MessageBits int
}

type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the database at path and applies the schema.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("storage path is required")
	}
	db, err := sql.Open("sqlite", filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// one connection keeps PRAGMAs and in-process writers consistent
	db.SetMaxOpenConns(1)
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// SaveRun stores run and its points in one transaction and returns the run ID. A run without
// an ID gets a fresh UUID; a zero CreatedAt becomes now.
func (s *Store) SaveRun(ctx context.Context, run Run, points []sim.Point) (string, error) {
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now()
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO runs (id, created_at, scheme, modulation, method, seed, trials, message_bits)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.CreatedAt.UTC().UnixMilli(), run.Scheme, run.Modulation, run.Method,
		int64(run.Seed), run.Trials, run.MessageBits,
	); err != nil {
		return "", fmt.Errorf("insert run: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO points (run_id, snr_db, trials, bits, bit_errors, frame_errors, ber, fer)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return "", fmt.Errorf("prepare points: %w", err)
	}
	defer stmt.Close()
	for _, p := range points {
		if _, err := stmt.ExecContext(ctx, run.ID, p.SNRdB, p.Trials, p.Bits, p.BitErrors, p.FrameErrors, p.BER, p.FER); err != nil {
			return "", fmt.Errorf("insert point %g dB: %w", p.SNRdB, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("commit: %w", err)
	}
	return run.ID, nil
}

// Run loads one run by ID.
func (s *Store) Run(ctx context.Context, id string) (Run, error) {
	var (
		r       Run
		created int64
		seed    int64
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, created_at, scheme, modulation, method, seed, trials, message_bits FROM runs WHERE id = ?`, id,
	).Scan(&r.ID, &created, &r.Scheme, &r.Modulation, &r.Method, &seed, &r.Trials, &r.MessageBits)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	if err != nil {
		return Run{}, fmt.Errorf("query run: %w", err)
	}
	r.CreatedAt = time.UnixMilli(created).UTC()
	r.Seed = uint64(seed)
	return r, nil
}

// Points returns a run's points ordered by SNR.
func (s *Store) Points(ctx context.Context, runID string) ([]sim.Point, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT snr_db, trials, bits, bit_errors, frame_errors, ber, fer FROM points WHERE run_id = ? ORDER BY snr_db`, runID)
	if err != nil {
		return nil, fmt.Errorf("query points: %w", err)
	}
	defer rows.Close()
	var out []sim.Point
	for rows.Next() {
		var p sim.Point
		if err := rows.Scan(&p.SNRdB, &p.Trials, &p.Bits, &p.BitErrors, &p.FrameErrors, &p.BER, &p.FER); err != nil {
			return nil, fmt.Errorf("scan point: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
