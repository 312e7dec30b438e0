package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"carecore/pkg/domain"
)

func fixedNow() time.Time {
	return time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
}

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s := NewStore(domain.NewRulesEngine())
	s.SetNowFunc(fixedNow)
	return s
}

func seedBedAndResident(t *testing.T, s *Store) {
	t.Helper()
	_, err := s.RunInTransaction(context.Background(), func(tx Transaction) error {
		if _, err := tx.CreateBed(Bed{ID: "W1-R1-B1", WardID: "W1", RoomID: "R1"}); err != nil {
			return err
		}
		_, err := tx.CreateResident(Resident{ID: "P1", Name: "Alice"})
		return err
	})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
}

func TestTransactionCommit(t *testing.T) {
	s := newTestStore(t)
	seedBedAndResident(t, s)

	if _, ok := s.GetBed("W1-R1-B1"); !ok {
		t.Fatalf("bed missing after commit")
	}
	r, ok := s.GetResident("P1")
	if !ok {
		t.Fatalf("resident missing after commit")
	}
	if !r.CreatedAt.Equal(fixedNow()) {
		t.Fatalf("CreatedAt = %s, want %s", r.CreatedAt, fixedNow())
	}
}

func TestTransactionRollbackOnError(t *testing.T) {
	s := newTestStore(t)
	_, err := s.RunInTransaction(context.Background(), func(tx Transaction) error {
		if _, err := tx.CreateBed(Bed{ID: "B1"}); err != nil {
			return err
		}
		return context.Canceled
	})
	if err == nil {
		t.Fatalf("expected error from transaction fn")
	}
	if len(s.ListBeds()) != 0 {
		t.Fatalf("tentative bed leaked into committed state")
	}
}

type blockAllRule struct{}

func (blockAllRule) Name() string { return "block_all" }

func (blockAllRule) Evaluate(_ context.Context, _ domain.RuleView, changes []domain.Change) (domain.Result, error) {
	res := domain.Result{}
	if len(changes) > 0 {
		res.Violations = append(res.Violations, domain.Violation{
			Rule: "block_all", Severity: domain.SeverityBlock, Message: "nope",
		})
	}
	return res, nil
}

func TestBlockingViolationDiscardsState(t *testing.T) {
	engine := domain.NewRulesEngine()
	engine.Register(blockAllRule{})
	s := NewStore(engine)

	_, err := s.RunInTransaction(context.Background(), func(tx Transaction) error {
		_, err := tx.CreateBed(Bed{ID: "B1"})
		return err
	})
	var rve domain.RuleViolationError
	if err == nil {
		t.Fatalf("expected rule violation error")
	}
	if !errors.As(err, &rve) {
		t.Fatalf("error = %v, want RuleViolationError", err)
	}
	if len(s.ListBeds()) != 0 {
		t.Fatalf("blocked transaction must not mutate state")
	}
}

func TestSetAndClearOccupant(t *testing.T) {
	s := newTestStore(t)
	seedBedAndResident(t, s)

	_, err := s.RunInTransaction(context.Background(), func(tx Transaction) error {
		return tx.SetOccupant("W1-R1-B1", "P1")
	})
	if err != nil {
		t.Fatalf("occupy: %v", err)
	}
	if got, ok := s.Occupant("W1-R1-B1"); !ok || got != "P1" {
		t.Fatalf("Occupant = %q, %v", got, ok)
	}
	if bed, ok := s.ResidentBed("P1"); !ok || bed != "W1-R1-B1" {
		t.Fatalf("ResidentBed = %q, %v", bed, ok)
	}

	_, err = s.RunInTransaction(context.Background(), func(tx Transaction) error {
		return tx.SetOccupant("W1-R1-B1", "P1")
	})
	var occupied domain.ErrBedOccupied
	if !errors.As(err, &occupied) {
		t.Fatalf("double occupy = %v, want ErrBedOccupied", err)
	}

	_, err = s.RunInTransaction(context.Background(), func(tx Transaction) error {
		return tx.ClearOccupant("W1-R1-B1")
	})
	if err != nil {
		t.Fatalf("clear: %v", err)
	}
	if _, ok := s.Occupant("W1-R1-B1"); ok {
		t.Fatalf("bed still occupied after clear")
	}
}

func TestCreateStaffUniqueUsername(t *testing.T) {
	s := newTestStore(t)
	_, err := s.RunInTransaction(context.Background(), func(tx Transaction) error {
		_, err := tx.CreateStaff(Staff{ID: "D1", Username: "drwho", Role: domain.RoleDoctor})
		return err
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	_, err = s.RunInTransaction(context.Background(), func(tx Transaction) error {
		_, err := tx.CreateStaff(Staff{ID: "D2", Username: "DrWho", Role: domain.RoleDoctor})
		return err
	})
	if err == nil {
		t.Fatalf("expected case-insensitive username conflict")
	}
}

func TestRemoveShiftsOn(t *testing.T) {
	s := newTestStore(t)
	day := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	_, err := s.RunInTransaction(context.Background(), func(tx Transaction) error {
		if _, err := tx.CreateStaff(Staff{ID: "N1", Username: "nina", Role: domain.RoleNurse}); err != nil {
			return err
		}
		if err := tx.AddShift(Shift{StaffID: "N1", Day: day, Type: domain.ShiftDay}); err != nil {
			return err
		}
		return tx.AddShift(Shift{StaffID: "N1", Day: day.AddDate(0, 0, 1), Type: domain.ShiftEve})
	})
	if err != nil {
		t.Fatalf("seed shifts: %v", err)
	}

	_, err = s.RunInTransaction(context.Background(), func(tx Transaction) error {
		if removed := tx.RemoveShiftsOn("n1", day.Add(9*time.Hour)); removed != 1 {
			t.Fatalf("removed = %d, want 1", removed)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("remove: %v", err)
	}
	if got := len(s.ListShifts()); got != 1 {
		t.Fatalf("shifts = %d, want 1", got)
	}
}

func TestAddShiftResolvesStaffCaseInsensitively(t *testing.T) {
	s := newTestStore(t)
	day := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	_, err := s.RunInTransaction(context.Background(), func(tx Transaction) error {
		if _, err := tx.CreateStaff(Staff{ID: "N1", Username: "nina", Role: domain.RoleNurse}); err != nil {
			return err
		}
		return tx.AddShift(Shift{StaffID: "n1", Day: day, Type: domain.ShiftDay})
	})
	if err != nil {
		t.Fatalf("add shift: %v", err)
	}
	shifts := s.ListShifts()
	if len(shifts) != 1 {
		t.Fatalf("shifts = %d, want 1", len(shifts))
	}
	if shifts[0].StaffID != "N1" {
		t.Fatalf("StaffID = %q, want canonical %q", shifts[0].StaffID, "N1")
	}

	_, err = s.RunInTransaction(context.Background(), func(tx Transaction) error {
		return tx.AddShift(Shift{StaffID: "X9", Day: day, Type: domain.ShiftDay})
	})
	var notFound domain.ErrNotFound
	if !errors.As(err, &notFound) {
		t.Fatalf("unknown staff = %v, want ErrNotFound", err)
	}
}

func TestAppendAdministrationRequiresPrescription(t *testing.T) {
	s := newTestStore(t)
	_, err := s.RunInTransaction(context.Background(), func(tx Transaction) error {
		return tx.AppendAdministration(AdministrationRecord{PrescriptionID: "RX-NOPE"})
	})
	var notFound domain.ErrNotFound
	if !errors.As(err, &notFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestExportImportRoundtrip(t *testing.T) {
	s := newTestStore(t)
	seedBedAndResident(t, s)
	_, err := s.RunInTransaction(context.Background(), func(tx Transaction) error {
		return tx.SetOccupant("W1-R1-B1", "P1")
	})
	if err != nil {
		t.Fatalf("occupy: %v", err)
	}
	if err := s.AppendAudit(context.Background(), AuditEntry{Action: "ADMIT_RESIDENT", Success: true}); err != nil {
		t.Fatalf("audit: %v", err)
	}

	restored := NewStore(domain.NewRulesEngine())
	restored.ImportState(s.ExportState())

	if _, ok := restored.GetBed("W1-R1-B1"); !ok {
		t.Fatalf("bed missing after import")
	}
	if got, ok := restored.Occupant("W1-R1-B1"); !ok || got != "P1" {
		t.Fatalf("occupancy lost in roundtrip")
	}
	if len(restored.AuditLog()) != 1 {
		t.Fatalf("audit trail lost in roundtrip")
	}
}

func TestAuditAppendFillsIDAndTime(t *testing.T) {
	s := newTestStore(t)
	if err := s.AppendAudit(context.Background(), AuditEntry{Action: "LOGIN"}); err != nil {
		t.Fatalf("append: %v", err)
	}
	entries := s.AuditLog()
	if len(entries) != 1 {
		t.Fatalf("entries = %d, want 1", len(entries))
	}
	if entries[0].ID == "" {
		t.Fatalf("entry ID not assigned")
	}
	if !entries[0].Time.Equal(fixedNow()) {
		t.Fatalf("entry time = %s, want %s", entries[0].Time, fixedNow())
	}
}

func TestViewIsolation(t *testing.T) {
	s := newTestStore(t)
	seedBedAndResident(t, s)
	err := s.View(context.Background(), func(view TransactionView) error {
		if len(view.ListBeds()) != 1 {
			t.Fatalf("view missing committed bed")
		}
		occ := view.Occupancy()
		occ["W1-R1-B1"] = "tampered"
		return nil
	})
	if err != nil {
		t.Fatalf("view: %v", err)
	}
	if _, ok := s.Occupant("W1-R1-B1"); ok {
		t.Fatalf("view mutation leaked into store")
	}
}
