// Package postgres provides a Postgres-backed persistent store that mirrors
// the in-memory semantics, snapshotting the facility state as JSONB buckets.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"

	_ "github.com/jackc/pgx/v5/stdlib" // register pgx as a database/sql driver

	"carecore/internal/infra/persistence/memory"
	"carecore/pkg/domain"
)

var _ domain.PersistentStore = (*Store)(nil)

const (
	defaultDriver = "pgx"
	defaultDSN    = "postgres://localhost/carecore?sslmode=disable"
)

var (
	sqlOpen = sql.Open
	openMu  sync.Mutex
)

// Store persists state to Postgres while reusing the in-memory
// implementation for transactions.
type Store struct {
	*memory.Store
	db *sql.DB
	mu sync.Mutex
}

// NewStore opens a Postgres-backed store using the provided DSN (falls back
// to defaultDSN), ensures the snapshot table exists, and hydrates the
// in-memory store from any existing snapshot.
func NewStore(dsn string, engine *domain.RulesEngine) (*Store, error) {
	if dsn == "" {
		dsn = defaultDSN
	}
	openMu.Lock()
	db, err := sqlOpen(defaultDriver, dsn)
	openMu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	ctx := context.Background()
	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if _, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS state (
		bucket TEXT PRIMARY KEY,
		payload JSONB NOT NULL
	)`); err != nil {
		return nil, fmt.Errorf("ensure state table: %w", err)
	}
	snapshot, found, err := loadSnapshot(ctx, db)
	if err != nil {
		return nil, err
	}
	mem := memory.NewStore(engine)
	if found {
		mem.ImportState(snapshot)
	}
	return &Store{Store: mem, db: db}, nil
}

var buckets = []string{"beds", "residents", "staff", "occupancy", "shifts", "prescriptions", "administrations", "audit"}

func bucketTargets(snapshot *memory.Snapshot) map[string]any {
	return map[string]any{
		"beds":            &snapshot.Beds,
		"residents":       &snapshot.Residents,
		"staff":           &snapshot.Staff,
		"occupancy":       &snapshot.Occupancy,
		"shifts":          &snapshot.Shifts,
		"prescriptions":   &snapshot.Prescriptions,
		"administrations": &snapshot.Administrations,
		"audit":           &snapshot.Audit,
	}
}

func loadSnapshot(ctx context.Context, db *sql.DB) (memory.Snapshot, bool, error) {
	rows, err := db.QueryContext(ctx, `SELECT bucket, payload FROM state`)
	if err != nil {
		return memory.Snapshot{}, false, fmt.Errorf("select state: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var snapshot memory.Snapshot
	targets := bucketTargets(&snapshot)
	found := false
	for rows.Next() {
		var bucket string
		var payload []byte
		if err := rows.Scan(&bucket, &payload); err != nil {
			return memory.Snapshot{}, false, fmt.Errorf("scan state: %w", err)
		}
		if len(payload) == 0 {
			continue
		}
		target, ok := targets[bucket]
		if !ok {
			continue
		}
		if err := json.Unmarshal(payload, target); err != nil {
			return memory.Snapshot{}, false, fmt.Errorf("decode %s: %w", bucket, err)
		}
		found = true
	}
	if err := rows.Err(); err != nil {
		return memory.Snapshot{}, false, fmt.Errorf("iterate state: %w", err)
	}
	return snapshot, found, nil
}

func (s *Store) persist(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	snapshot := s.ExportState()
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	targets := bucketTargets(&snapshot)
	for _, bucket := range buckets {
		data, err := json.Marshal(targets[bucket])
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO state(bucket,payload) VALUES($1,$2) ON CONFLICT(bucket) DO UPDATE SET payload=EXCLUDED.payload`, bucket, data); err != nil {
			return fmt.Errorf("upsert %s: %w", bucket, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	committed = true
	return nil
}

// RunInTransaction applies fn against the in-memory store, then snapshots
// the committed state to Postgres.
func (s *Store) RunInTransaction(ctx context.Context, fn func(domain.Transaction) error) (domain.Result, error) {
	res, err := s.Store.RunInTransaction(ctx, fn)
	if err != nil {
		return res, err
	}
	if pErr := s.persist(ctx); pErr != nil {
		return res, domain.ErrPersistence{Op: "postgres snapshot", Err: pErr}
	}
	return res, nil
}

// AppendAudit appends the entry and snapshots state so the audit trail
// survives restarts.
func (s *Store) AppendAudit(ctx context.Context, entry domain.AuditEntry) error {
	if err := s.Store.AppendAudit(ctx, entry); err != nil {
		return err
	}
	if pErr := s.persist(ctx); pErr != nil {
		return domain.ErrPersistence{Op: "postgres snapshot", Err: pErr}
	}
	return nil
}

// Close releases the database handle.
func (s *Store) Close() error { return s.db.Close() }

// DB exposes the underlying sql.DB for integration testing hooks.
func (s *Store) DB() *sql.DB { return s.db }

// OverrideSQLOpen swaps the sqlOpen function for tests and returns a restore
// function.
func OverrideSQLOpen(fn func(driverName, dataSourceName string) (*sql.DB, error)) func() {
	openMu.Lock()
	defer openMu.Unlock()
	prev := sqlOpen
	sqlOpen = fn
	return func() {
		openMu.Lock()
		defer openMu.Unlock()
		sqlOpen = prev
	}
}
