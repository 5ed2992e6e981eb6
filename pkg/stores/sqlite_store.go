package stores

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"github.com/openfroyo/vtree/pkg/vtree"

	// SQLite driver
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// MemoryPath selects a private in-memory database.
const MemoryPath = ":memory:"

// SQLiteStore implements the Store interface using SQLite
type SQLiteStore struct {
	db  *sql.DB
	cfg Config
}

// Config holds SQLite store configuration
type Config struct {
	Path            string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// NewSQLiteStore creates a new SQLite store instance
func NewSQLiteStore(cfg Config) (*SQLiteStore, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("database path is required")
	}

	// An in-memory database lives and dies with its single connection.
	if cfg.Path == MemoryPath {
		cfg.MaxOpenConns = 1
		cfg.MaxIdleConns = 1
		cfg.ConnMaxLifetime = 0
		return &SQLiteStore{cfg: cfg}, nil
	}

	// Set defaults
	if cfg.MaxOpenConns == 0 {
		cfg.MaxOpenConns = 25
	}
	if cfg.MaxIdleConns == 0 {
		cfg.MaxIdleConns = 5
	}
	if cfg.ConnMaxLifetime == 0 {
		cfg.ConnMaxLifetime = 5 * time.Minute
	}

	return &SQLiteStore{cfg: cfg}, nil
}

// Path returns the database path.
func (s *SQLiteStore) Path() string {
	return s.cfg.Path
}

// Init initializes the database connection. File databases use WAL mode.
func (s *SQLiteStore) Init(ctx context.Context) error {
	pragmas := []string{"_pragma=foreign_keys(1)", "_pragma=busy_timeout(5000)"}
	if s.cfg.Path != MemoryPath {
		pragmas = append(pragmas, "_pragma=journal_mode(WAL)", "_pragma=synchronous(NORMAL)", "_txlock=immediate")
	}
	dsn := s.cfg.Path + "?" + strings.Join(pragmas, "&")

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}

	// Configure connection pool
	db.SetMaxOpenConns(s.cfg.MaxOpenConns)
	db.SetMaxIdleConns(s.cfg.MaxIdleConns)
	db.SetConnMaxLifetime(s.cfg.ConnMaxLifetime)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to ping database: %w", err)
	}

	s.db = db
	return nil
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Migrate runs database migrations.
func (s *SQLiteStore) Migrate(_ context.Context) error {
	if s.db == nil {
		return fmt.Errorf("database not initialized")
	}

	// Create migration source from embedded FS
	sourceDriver, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("failed to create migration source: %w", err)
	}

	driver, err := sqlite.WithInstance(s.db, &sqlite.Config{})
	if err != nil {
		return fmt.Errorf("failed to create database driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", sourceDriver, "sqlite", driver)
	if err != nil {
		return fmt.Errorf("failed to create migration instance: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}

// BeginTx starts a new transaction
func (s *SQLiteStore) BeginTx(ctx context.Context) (*sql.Tx, error) {
	return s.db.BeginTx(ctx, &sql.TxOptions{
		Isolation: sql.LevelSerializable,
	})
}

// CommitTx commits a transaction
func (s *SQLiteStore) CommitTx(tx *sql.Tx) error {
	return tx.Commit()
}

// RollbackTx rolls back a transaction
func (s *SQLiteStore) RollbackTx(tx *sql.Tx) error {
	return tx.Rollback()
}

// RecordCycle persists a cycle report and its events in one transaction.
// cycleErr marks the cycle as failed.
func (s *SQLiteStore) RecordCycle(ctx context.Context, report *vtree.Report, cycleErr error) error {
	if report == nil {
		return fmt.Errorf("report is required")
	}

	status := CycleStatusSucceeded
	var errMsg, errCode *string
	if cycleErr != nil {
		status = CycleStatusFailed
		msg := cycleErr.Error()
		errMsg = &msg
		if code := vtree.CodeOf(cycleErr); code != "" {
			errCode = &code
		}
	}

	tx, err := s.BeginTx(ctx)
	if err != nil {
		return storeError("failed to begin transaction", err)
	}
	defer func() { _ = s.RollbackTx(tx) }()

	query := `
		INSERT INTO cycles (
			id, session, kind, status, started_at, duration_ms, nodes,
			added, removed, cascaded, params_changed, reordered,
			error, error_code, created_at
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err = tx.ExecContext(ctx, query,
		report.CycleID,
		report.Session,
		report.Kind,
		status,
		report.StartedAt.UTC(),
		report.Duration.Milliseconds(),
		report.Nodes,
		report.Summary.Added,
		report.Summary.Removed,
		report.Summary.Cascaded,
		report.Summary.ParamsChanged,
		report.Summary.Reordered,
		errMsg,
		errCode,
		time.Now().UTC(),
	)
	if err != nil {
		return storeError("failed to record cycle", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO events (cycle_id, seq, op, kind, path, cascade, moves)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return storeError("failed to prepare event insert", err)
	}
	defer stmt.Close()

	for i, ev := range report.Events {
		var moves *string
		if len(ev.Moves) > 0 {
			b, err := json.Marshal(ev.Moves)
			if err != nil {
				return storeError("failed to encode moves", err)
			}
			m := string(b)
			moves = &m
		}
		if _, err := stmt.ExecContext(ctx, report.CycleID, i, ev.Op, ev.Kind, ev.Path.String(), ev.Cascade, moves); err != nil {
			return storeError("failed to record event", err).WithDetail("seq", i)
		}
	}

	if err := s.CommitTx(tx); err != nil {
		return storeError("failed to commit cycle", err)
	}
	return nil
}

const cycleColumns = `
	id, session, kind, status, started_at, duration_ms, nodes,
	added, removed, cascaded, params_changed, reordered,
	error, error_code, created_at
`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCycle(row rowScanner) (*Cycle, error) {
	c := &Cycle{}
	var durationMS int64
	err := row.Scan(
		&c.ID,
		&c.Session,
		&c.Kind,
		&c.Status,
		&c.StartedAt,
		&durationMS,
		&c.Nodes,
		&c.Summary.Added,
		&c.Summary.Removed,
		&c.Summary.Cascaded,
		&c.Summary.ParamsChanged,
		&c.Summary.Reordered,
		&c.Error,
		&c.ErrorCode,
		&c.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	c.Duration = time.Duration(durationMS) * time.Millisecond
	return c, nil
}

// GetCycle retrieves a cycle by ID
func (s *SQLiteStore) GetCycle(ctx context.Context, id string) (*Cycle, error) {
	query := `SELECT ` + cycleColumns + ` FROM cycles WHERE id = ?`

	c, err := scanCycle(s.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("cycle %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get cycle: %w", err)
	}

	return c, nil
}

// ListCycles lists the cycles of a session, newest first. An empty
// session lists every session.
func (s *SQLiteStore) ListCycles(ctx context.Context, session string, limit, offset int) ([]*Cycle, error) {
	query := `
		SELECT ` + cycleColumns + `
		FROM cycles
		WHERE (? = '' OR session = ?)
		ORDER BY started_at DESC, created_at DESC
		LIMIT ? OFFSET ?
	`

	rows, err := s.db.QueryContext(ctx, query, session, session, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list cycles: %w", err)
	}
	defer rows.Close()

	cycles := []*Cycle{}
	for rows.Next() {
		c, err := scanCycle(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan cycle: %w", err)
		}
		cycles = append(cycles, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating cycles: %w", err)
	}

	return cycles, nil
}

// DeleteCycle deletes a cycle and its events
func (s *SQLiteStore) DeleteCycle(ctx context.Context, id string) error {
	query := `DELETE FROM cycles WHERE id = ?`

	result, err := s.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete cycle: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rows == 0 {
		return fmt.Errorf("cycle %s: %w", id, ErrNotFound)
	}

	return nil
}

// PruneCycles keeps the newest keep cycles of a session and deletes the
// rest, returning the number deleted.
func (s *SQLiteStore) PruneCycles(ctx context.Context, session string, keep int) (int64, error) {
	if keep < 0 {
		return 0, fmt.Errorf("keep must not be negative, got %d", keep)
	}

	query := `
		DELETE FROM cycles
		WHERE session = ? AND id NOT IN (
			SELECT id FROM cycles
			WHERE session = ?
			ORDER BY started_at DESC, created_at DESC
			LIMIT ?
		)
	`

	result, err := s.db.ExecContext(ctx, query, session, session, keep)
	if err != nil {
		return 0, fmt.Errorf("failed to prune cycles: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return rows, nil
}

// ListEvents lists the events of a cycle in delivery order
func (s *SQLiteStore) ListEvents(ctx context.Context, cycleID string) ([]*EventRecord, error) {
	query := `
		SELECT id, cycle_id, seq, op, kind, path, cascade, moves
		FROM events
		WHERE cycle_id = ?
		ORDER BY seq
	`

	rows, err := s.db.QueryContext(ctx, query, cycleID)
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}
	defer rows.Close()

	events := []*EventRecord{}
	for rows.Next() {
		ev := &EventRecord{}
		var path string
		var moves *string
		err := rows.Scan(
			&ev.ID,
			&ev.CycleID,
			&ev.Seq,
			&ev.Op,
			&ev.Kind,
			&path,
			&ev.Cascade,
			&moves,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		if ev.Path, err = vtree.ParsePath(path); err != nil {
			return nil, fmt.Errorf("failed to parse event path: %w", err)
		}
		if moves != nil {
			if err := json.Unmarshal([]byte(*moves), &ev.Moves); err != nil {
				return nil, fmt.Errorf("failed to decode event moves: %w", err)
			}
		}
		events = append(events, ev)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating events: %w", err)
	}

	return events, nil
}

// ReplaceRegistry replaces the stored registry of a session with entries.
func (s *SQLiteStore) ReplaceRegistry(ctx context.Context, session, cycleID string, entries []RegistryEntry) error {
	tx, err := s.BeginTx(ctx)
	if err != nil {
		return storeError("failed to begin transaction", err)
	}
	defer func() { _ = s.RollbackTx(tx) }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM registry_entries WHERE session = ?`, session); err != nil {
		return storeError("failed to clear registry", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO registry_entries (session, path, kind, resource, cycle_id, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return storeError("failed to prepare registry insert", err)
	}
	defer stmt.Close()

	now := time.Now().UTC()
	for _, e := range entries {
		if _, err := stmt.ExecContext(ctx, session, e.Path.String(), e.Kind, e.Resource, cycleID, now); err != nil {
			return storeError("failed to store registry entry", err).WithPath(e.Path)
		}
	}

	if err := s.CommitTx(tx); err != nil {
		return storeError("failed to commit registry", err)
	}
	return nil
}

// ListRegistry lists the stored registry of a session in path order
func (s *SQLiteStore) ListRegistry(ctx context.Context, session string) ([]*RegistryEntry, error) {
	query := `
		SELECT session, path, kind, resource, cycle_id, updated_at
		FROM registry_entries
		WHERE session = ?
	`

	rows, err := s.db.QueryContext(ctx, query, session)
	if err != nil {
		return nil, fmt.Errorf("failed to list registry: %w", err)
	}
	defer rows.Close()

	entries := []*RegistryEntry{}
	for rows.Next() {
		e := &RegistryEntry{}
		var path string
		err := rows.Scan(&e.Session, &path, &e.Kind, &e.Resource, &e.CycleID, &e.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan registry entry: %w", err)
		}
		if e.Path, err = vtree.ParsePath(path); err != nil {
			return nil, fmt.Errorf("failed to parse registry path: %w", err)
		}
		entries = append(entries, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating registry: %w", err)
	}

	// Encoded paths do not sort like Path.Compare.
	sortEntries(entries)
	return entries, nil
}

// HealthCheck verifies the database connection is healthy
func (s *SQLiteStore) HealthCheck(ctx context.Context) error {
	if s.db == nil {
		return fmt.Errorf("database not initialized")
	}

	return s.db.PingContext(ctx)
}

func storeError(msg string, err error) *vtree.Error {
	return vtree.NewTransientError(msg, err).WithCode(vtree.ErrCodeStoreFailed)
}
