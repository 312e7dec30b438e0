// Package sqlite persists the facility state to an embedded SQLite file. The
// full state is written as JSON buckets into a single table after every
// committed transaction and every audit append.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	_ "modernc.org/sqlite" // pure go sqlite driver

	"carecore/internal/infra/persistence/memory"
	"carecore/pkg/domain"
)

var _ domain.PersistentStore = (*Store)(nil)

// Store wraps the in-memory transactional store and snapshots its state to
// SQLite on every successful mutation.
type Store struct {
	*memory.Store
	db   *sql.DB
	mu   sync.Mutex
	path string
}

// NewStore opens (or creates) the database file and hydrates the in-memory
// store from any stored snapshot. An empty payload means a fresh facility.
func NewStore(path string, engine *domain.RulesEngine) (*Store, error) {
	if path == "" {
		path = "carecore.db"
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil && !errors.Is(err, os.ErrExist) {
			return nil, fmt.Errorf("create dirs: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS state (
		bucket TEXT PRIMARY KEY,
		payload BLOB NOT NULL
	)`); err != nil {
		return nil, fmt.Errorf("create state table: %w", err)
	}
	mem := memory.NewStore(engine)
	s := &Store{Store: mem, db: db, path: path}
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
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

func (s *Store) load() error {
	rows, err := s.db.Query(`SELECT bucket, payload FROM state`)
	if err != nil {
		return fmt.Errorf("select state: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var snapshot memory.Snapshot
	targets := bucketTargets(&snapshot)
	found := false
	for rows.Next() {
		var bucket string
		var payload []byte
		if err := rows.Scan(&bucket, &payload); err != nil {
			return fmt.Errorf("scan state: %w", err)
		}
		if len(payload) == 0 {
			continue
		}
		target, ok := targets[bucket]
		if !ok {
			continue
		}
		if err := json.Unmarshal(payload, target); err != nil {
			return fmt.Errorf("decode %s: %w", bucket, err)
		}
		found = true
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate state: %w", err)
	}
	if found {
		s.ImportState(snapshot)
	}
	return nil
}

func (s *Store) persist() (retErr error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	snapshot := s.ExportState()
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer func() {
		if retErr != nil {
			_ = tx.Rollback()
		}
	}()
	targets := bucketTargets(&snapshot)
	for _, bucket := range buckets {
		data, err := json.Marshal(targets[bucket])
		if err != nil {
			retErr = err
			return retErr
		}
		if _, err := tx.Exec(`INSERT INTO state(bucket,payload) VALUES(?,?) ON CONFLICT(bucket) DO UPDATE SET payload=excluded.payload`, bucket, data); err != nil {
			retErr = fmt.Errorf("upsert %s: %w", bucket, err)
			return retErr
		}
	}
	return tx.Commit()
}

// RunInTransaction applies fn against the in-memory store, then snapshots
// the committed state to SQLite. A snapshot failure surfaces as a
// persistence error after the in-memory commit.
func (s *Store) RunInTransaction(ctx context.Context, fn func(tx domain.Transaction) error) (domain.Result, error) {
	res, err := s.Store.RunInTransaction(ctx, fn)
	if err != nil {
		return res, err
	}
	if pErr := s.persist(); pErr != nil {
		return res, domain.ErrPersistence{Op: "sqlite snapshot", Err: pErr}
	}
	return res, nil
}

// AppendAudit appends the entry and snapshots state so the audit trail
// survives restarts.
func (s *Store) AppendAudit(ctx context.Context, entry domain.AuditEntry) error {
	if err := s.Store.AppendAudit(ctx, entry); err != nil {
		return err
	}
	if pErr := s.persist(); pErr != nil {
		return domain.ErrPersistence{Op: "sqlite snapshot", Err: pErr}
	}
	return nil
}

// Close releases the database handle.
func (s *Store) Close() error { return s.db.Close() }

// DB exposes the underlying sql.DB for integration testing hooks.
func (s *Store) DB() *sql.DB { return s.db }

// Path returns the configured database path.
func (s *Store) Path() string { return s.path }
