package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"carecore/pkg/domain"
)

func openTestStore(t *testing.T, path string) *Store {
	t.Helper()
	s, err := NewStore(path, domain.NewRulesEngine())
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestSnapshotSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "facility.db")
	ctx := context.Background()

	s := openTestStore(t, path)
	_, err := s.RunInTransaction(ctx, func(tx domain.Transaction) error {
		if _, err := tx.CreateBed(domain.Bed{ID: "W1-R1-B1", WardID: "W1", RoomID: "R1"}); err != nil {
			return err
		}
		if _, err := tx.CreateResident(domain.Resident{ID: "P1", Name: "Alice"}); err != nil {
			return err
		}
		return tx.SetOccupant("W1-R1-B1", "P1")
	})
	if err != nil {
		t.Fatalf("transaction: %v", err)
	}
	if err := s.AppendAudit(ctx, domain.AuditEntry{Action: "ADMIT_RESIDENT", Success: true}); err != nil {
		t.Fatalf("audit: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	reopened := openTestStore(t, path)
	if _, ok := reopened.GetBed("W1-R1-B1"); !ok {
		t.Fatalf("bed lost across reopen")
	}
	if got, ok := reopened.Occupant("W1-R1-B1"); !ok || got != "P1" {
		t.Fatalf("occupancy lost across reopen: %q, %v", got, ok)
	}
	if len(reopened.AuditLog()) != 1 {
		t.Fatalf("audit trail lost across reopen")
	}
}

func TestFreshFileStartsEmpty(t *testing.T) {
	s := openTestStore(t, filepath.Join(t.TempDir(), "fresh.db"))
	if len(s.ListBeds()) != 0 || len(s.AuditLog()) != 0 {
		t.Fatalf("fresh database must start empty")
	}
}

func TestBlockedTransactionNotPersisted(t *testing.T) {
	path := filepath.Join(t.TempDir(), "facility.db")
	engine := domain.NewRulesEngine()
	engine.Register(blockShifts{})
	s, err := NewStore(path, engine)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer func() { _ = s.Close() }()

	ctx := context.Background()
	_, err = s.RunInTransaction(ctx, func(tx domain.Transaction) error {
		if _, err := tx.CreateStaff(domain.Staff{ID: "N1", Username: "nina", Role: domain.RoleNurse}); err != nil {
			return err
		}
		return tx.AddShift(domain.Shift{StaffID: "N1", Type: domain.ShiftDay})
	})
	if err == nil {
		t.Fatalf("expected blocking violation")
	}
	if len(s.ListShifts()) != 0 {
		t.Fatalf("blocked state leaked")
	}
}

type blockShifts struct{}

func (blockShifts) Name() string { return "block_shifts" }

func (blockShifts) Evaluate(_ context.Context, view domain.RuleView, _ []domain.Change) (domain.Result, error) {
	res := domain.Result{}
	if len(view.ListShifts()) > 0 {
		res.Violations = append(res.Violations, domain.Violation{
			Rule: "block_shifts", Severity: domain.SeverityBlock, Message: "no shifts allowed",
		})
	}
	return res, nil
}
