// Package store archives generated layouts in SQLite so they can be listed
// and replayed later. Solutions are stored as zstd-compressed JSON
// documents.
package store

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/chazu/warren/pkg/dungeon"
	"github.com/chazu/warren/pkg/export"
	"github.com/google/uuid"
	"github.com/klauspost/compress/zstd"

	_ "modernc.org/sqlite"
)

// timeLayout sorts lexically in time order.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// ErrNotFound is returned by Load for unknown run IDs.
var ErrNotFound = errors.New("store: run not found")

// Run is an archived generation.
type Run struct {
	ID        string
	CreatedAt time.Time
	Catalog   string // catalog path or name the run was generated from
	Seed      int64
	Budget    int
	Modules   int
	Loops     int
	Document  *export.Document // nil in List results
}

// Store persists runs in a SQLite database.
type Store struct {
	conn   *sql.DB
	logger *slog.Logger
	dbPath string

	enc *zstd.Encoder
	dec *zstd.Decoder
}

// Open opens or creates the run archive at path.
func Open(path string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create store directory: %w", err)
		}
	}

	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open run database: %w", err)
	}
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
	}
	for _, pragma := range pragmas {
		if _, err := conn.Exec(pragma); err != nil {
			_ = conn.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}

	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to create zstd encoder: %w", err)
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		_ = enc.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("failed to create zstd decoder: %w", err)
	}

	s := &Store{conn: conn, logger: logger, dbPath: path, enc: enc, dec: dec}
	if err := s.initializeSchema(); err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("failed to initialize run schema: %w", err)
	}
	logger.Debug("opened run store", "path", path)
	return s, nil
}

func (s *Store) initializeSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			created_at TEXT NOT NULL,
			catalog TEXT NOT NULL DEFAULT '',
			seed INTEGER NOT NULL,
			budget INTEGER NOT NULL,
			modules INTEGER NOT NULL,
			loops INTEGER NOT NULL DEFAULT 0,
			document BLOB NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_runs_created_at ON runs(created_at DESC);

		CREATE TABLE IF NOT EXISTS schema_version (
			version INTEGER PRIMARY KEY
		);
		INSERT OR REPLACE INTO schema_version (version) VALUES (1);
	`
	_, err := s.conn.Exec(schema)
	return err
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.dbPath
}

// Close releases the database connection and codecs.
func (s *Store) Close() error {
	if s.dec != nil {
		s.dec.Close()
	}
	var errs []error
	if s.enc != nil {
		errs = append(errs, s.enc.Close())
	}
	if s.conn != nil {
		errs = append(errs, s.conn.Close())
	}
	return errors.Join(errs...)
}

// Save archives sol and returns the new run ID.
func (s *Store) Save(ctx context.Context, catalogName string, sol *dungeon.Solution) (string, error) {
	if sol == nil {
		return "", errors.New("store: nil solution")
	}
	var buf bytes.Buffer
	if err := export.Encode(&buf, export.NewDocument(sol), export.FormatJSON); err != nil {
		return "", fmt.Errorf("store: encode run: %w", err)
	}
	payload := s.enc.EncodeAll(buf.Bytes(), nil)

	id := uuid.New().String()
	_, err := s.conn.ExecContext(ctx, `
		INSERT INTO runs (id, created_at, catalog, seed, budget, modules, loops, document)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		id,
		time.Now().UTC().Format(timeLayout),
		catalogName,
		sol.Seed,
		sol.Budget,
		sol.Len(),
		len(sol.Loops()),
		payload,
	)
	if err != nil {
		return "", fmt.Errorf("store: insert run: %w", err)
	}
	s.logger.Info("saved run", "id", id, "seed", sol.Seed, "modules", sol.Len(), "bytes", len(payload))
	return id, nil
}

// Load returns a run with its document.
func (s *Store) Load(ctx context.Context, id string) (*Run, error) {
	row := s.conn.QueryRowContext(ctx, `
		SELECT id, created_at, catalog, seed, budget, modules, loops, document
		FROM runs WHERE id = ?`, id)

	var run Run
	var created string
	var payload []byte
	if err := row.Scan(&run.ID, &created, &run.Catalog, &run.Seed, &run.Budget, &run.Modules, &run.Loops, &payload); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return nil, fmt.Errorf("store: load run: %w", err)
	}
	run.CreatedAt = parseTime(created)

	raw, err := s.dec.DecodeAll(payload, nil)
	if err != nil {
		return nil, fmt.Errorf("store: decompress run %s: %w", id, err)
	}
	doc, err := export.Decode(bytes.NewReader(raw), export.FormatJSON)
	if err != nil {
		return nil, fmt.Errorf("store: decode run %s: %w", id, err)
	}
	run.Document = doc
	return &run, nil
}

// List returns up to limit runs, newest first, without their documents.
// A limit below 1 lists everything.
func (s *Store) List(ctx context.Context, limit int) ([]Run, error) {
	if limit < 1 {
		limit = -1
	}
	rows, err := s.conn.QueryContext(ctx, `
		SELECT id, created_at, catalog, seed, budget, modules, loops
		FROM runs ORDER BY created_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("store: list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var run Run
		var created string
		if err := rows.Scan(&run.ID, &created, &run.Catalog, &run.Seed, &run.Budget, &run.Modules, &run.Loops); err != nil {
			return nil, fmt.Errorf("store: scan run: %w", err)
		}
		run.CreatedAt = parseTime(created)
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// Delete removes a run.
func (s *Store) Delete(ctx context.Context, id string) error {
	res, err := s.conn.ExecContext(ctx, `DELETE FROM runs WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("store: delete run: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}

func parseTime(s string) time.Time {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
