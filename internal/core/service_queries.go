package core

import (
	"context"
	"sort"
	"strings"

	"carecore/pkg/domain"
)

// ResidentInBed returns the current occupant of a bed. Doctor or nurse,
// rostered now. The lookup is audited like any other clinical action.
func (s *Service) ResidentInBed(ctx context.Context, actor *Staff, bedKey string) (Resident, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	start := s.nowFn()
	detail := "bed=" + bedKey

	if err := s.auth.Authorize(actor, true, RoleDoctor, RoleNurse); err != nil {
		return Resident{}, s.finish(ctx, actor, ActionViewResident, detail, start, err)
	}
	var resident Resident
	err := s.store.View(ctx, func(view TransactionView) error {
		bed, ok := findBedInView(view, bedKey)
		if !ok {
			return domain.ErrNotFound{Entity: EntityBed, Key: bedKey}
		}
		residentID, occupied := view.Occupant(bed.ID)
		if !occupied {
			return domain.ErrNotFound{Entity: EntityResident, Key: "occupant of " + bed.ID}
		}
		r, ok := view.FindResident(residentID)
		if !ok {
			return domain.ErrNotFound{Entity: EntityResident, Key: residentID}
		}
		resident = r
		return nil
	})
	if err != nil {
		return Resident{}, s.finish(ctx, actor, ActionViewResident, detail, start, err)
	}
	return resident, s.finish(ctx, actor, ActionViewResident, detail+" resident="+resident.ID, start, nil)
}

// AdministrationLogForBed returns administration records for the bed's
// current occupant in append order. Doctor or nurse, rostered now.
func (s *Service) AdministrationLogForBed(ctx context.Context, actor *Staff, bedKey string) ([]AdministrationRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	start := s.nowFn()
	detail := "bed=" + bedKey

	if err := s.auth.Authorize(actor, true, RoleDoctor, RoleNurse); err != nil {
		return nil, s.finish(ctx, actor, ActionViewAdminLog, detail, start, err)
	}
	var records []AdministrationRecord
	err := s.store.View(ctx, func(view TransactionView) error {
		bed, ok := findBedInView(view, bedKey)
		if !ok {
			return domain.ErrNotFound{Entity: EntityBed, Key: bedKey}
		}
		residentID, occupied := view.Occupant(bed.ID)
		if !occupied {
			return domain.ErrNotFound{Entity: EntityResident, Key: "occupant of " + bed.ID}
		}
		rxIDs := map[string]struct{}{}
		for _, rx := range view.ListPrescriptions() {
			if strings.EqualFold(rx.ResidentID, residentID) {
				rxIDs[strings.ToLower(rx.ID)] = struct{}{}
			}
		}
		for _, rec := range view.ListAdministrations() {
			if _, ok := rxIDs[strings.ToLower(rec.PrescriptionID)]; ok {
				records = append(records, rec)
			}
		}
		return nil
	})
	if err != nil {
		return nil, s.finish(ctx, actor, ActionViewAdminLog, detail, start, err)
	}
	return records, s.finish(ctx, actor, ActionViewAdminLog, detail, start, nil)
}

// PrescriptionsForBed lists prescriptions attached to the bed's current
// occupant, oldest first. Unaudited read shared by CLI views.
func (s *Service) PrescriptionsForBed(ctx context.Context, bedKey string) ([]Prescription, error) {
	var out []Prescription
	err := s.store.View(ctx, func(view TransactionView) error {
		bed, ok := findBedInView(view, bedKey)
		if !ok {
			return domain.ErrNotFound{Entity: EntityBed, Key: bedKey}
		}
		residentID, occupied := view.Occupant(bed.ID)
		if !occupied {
			return domain.ErrNotFound{Entity: EntityResident, Key: "occupant of " + bed.ID}
		}
		for _, rx := range view.ListPrescriptions() {
			if strings.EqualFold(rx.ResidentID, residentID) {
				out = append(out, rx)
			}
		}
		sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
		return nil
	})
	return out, err
}

// ListStaffByRole returns staff holding the given role, sorted by id.
func (s *Service) ListStaffByRole(ctx context.Context, role Role) ([]Staff, error) {
	var out []Staff
	err := s.store.View(ctx, func(view TransactionView) error {
		for _, st := range view.ListStaff() {
			if st.Role == role {
				out = append(out, st)
			}
		}
		sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
		return nil
	})
	return out, err
}

// RosterByRole returns shifts for staff holding the given role, ordered by
// day then staff id then shift type.
func (s *Service) RosterByRole(ctx context.Context, role Role) ([]Shift, error) {
	var out []Shift
	err := s.store.View(ctx, func(view TransactionView) error {
		byID := map[string]Staff{}
		for _, st := range view.ListStaff() {
			byID[strings.ToLower(st.ID)] = st
		}
		for _, sh := range view.ListShifts() {
			if st, ok := byID[strings.ToLower(sh.StaffID)]; ok && st.Role == role {
				out = append(out, sh)
			}
		}
		sort.Slice(out, func(i, j int) bool {
			if !out[i].Day.Equal(out[j].Day) {
				return out[i].Day.Before(out[j].Day)
			}
			if out[i].StaffID != out[j].StaffID {
				return out[i].StaffID < out[j].StaffID
			}
			return out[i].Type < out[j].Type
		})
		return nil
	})
	return out, err
}

// AuditLog returns the audit trail in commit order. Unaudited read.
func (s *Service) AuditLog() []AuditEntry {
	return s.store.AuditLog()
}

func findBedInView(view TransactionView, key string) (Bed, bool) {
	key = strings.TrimSpace(key)
	if b, ok := view.FindBed(key); ok {
		return b, true
	}
	for _, b := range view.ListBeds() {
		if strings.EqualFold(b.ID, key) {
			return b, true
		}
	}
	return Bed{}, false
}
