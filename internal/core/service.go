package core

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"carecore/internal/archive"
	"carecore/pkg/domain"
)

// Audit action codes. Every use-case records exactly one entry under its
// code on every return path.
const (
	ActionLogin           = "LOGIN"
	ActionLogout          = "LOGOUT"
	ActionAddStaff        = "ADD_STAFF"
	ActionSetStaffPass    = "MODIFY_STAFF_PASSWORD"
	ActionAdmitResident   = "ADMIT_RESIDENT"
	ActionAssignShift     = "ASSIGN_SHIFT"
	ActionRemoveShift     = "REMOVE_SHIFT"
	ActionAttachRx        = "ATTACH_PRESCRIPTION"
	ActionUpdateRx        = "UPDATE_PRESCRIPTION"
	ActionMoveResident    = "MOVE_RESIDENT_BED"
	ActionAdministerDose  = "ADMINISTER_MEDICATION"
	ActionViewResident    = "VIEW_RESIDENT_IN_BED"
	ActionViewAdminLog    = "VIEW_ADMINISTRATION_LOG"
	ActionCheckCompliance = "CHECK_COMPLIANCE"
	ActionExportAudit     = "EXPORT_AUDIT_LOG"
)

// MetricsRecorder observes use-case execution for monitoring backends.
type MetricsRecorder interface {
	ObserveOperation(action string, elapsed time.Duration, success bool)
}

type noopMetrics struct{}

func (noopMetrics) ObserveOperation(string, time.Duration, bool) {}

// Service orchestrates the facility use-cases: every call authorizes the
// actor, resolves referenced entities, mutates state in one transaction, and
// records exactly one audit entry. A service-level mutex serializes
// use-cases so audit order equals transaction commit order.
type Service struct {
	mu      sync.Mutex
	store   PersistentStore
	auth    *Authorizer
	gate    *Gate
	archive archive.Store
	logger  zerolog.Logger
	metrics MetricsRecorder
	nowFn   func() time.Time
}

// Option configures optional service collaborators.
type Option func(*Service)

// WithLogger installs a structured logger for use-case outcomes.
func WithLogger(logger zerolog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// WithMetrics installs a metrics recorder.
func WithMetrics(m MetricsRecorder) Option {
	return func(s *Service) { s.metrics = m }
}

// WithArchive installs the object store used for audit exports.
func WithArchive(store archive.Store) Option {
	return func(s *Service) { s.archive = store }
}

// WithNowFunc overrides the time provider. Intended for tests.
func WithNowFunc(fn func() time.Time) Option {
	return func(s *Service) {
		s.nowFn = fn
		s.auth = NewAuthorizer(s.store, fn)
	}
}

// NewService constructs a service backed by the supplied store.
func NewService(store PersistentStore, opts ...Option) *Service {
	s := &Service{
		store:   store,
		logger:  zerolog.Nop(),
		metrics: noopMetrics{},
		nowFn:   func() time.Time { return time.Now().UTC() },
	}
	s.auth = NewAuthorizer(store, s.nowFn)
	s.gate = NewGate(store)
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Store returns the underlying storage implementation.
func (s *Service) Store() PersistentStore { return s.store }

func actorID(actor *Staff) string {
	if actor == nil {
		return ""
	}
	return actor.ID
}

// finish records the single audit entry for a use-case and emits the
// structured log line and metric observation. It returns err unchanged so
// call sites can tail-call it, except when the audit write itself fails:
// persistence failures abort the operation.
func (s *Service) finish(ctx context.Context, actor *Staff, action, detail string, start time.Time, err error) error {
	success := err == nil
	if err != nil {
		detail = fmt.Sprintf("%s reason=%v", detail, err)
	}
	entry := AuditEntry{
		ID:      uuid.NewString(),
		Time:    s.nowFn(),
		ActorID: actorID(actor),
		Action:  action,
		Detail:  detail,
		Success: success,
	}
	aerr := s.store.AppendAudit(ctx, entry)

	elapsed := s.nowFn().Sub(start)
	s.metrics.ObserveOperation(action, elapsed, success)
	evt := s.logger.Info()
	if !success {
		evt = s.logger.Warn().Err(err)
	}
	evt.Str("action", action).
		Str("actor", entry.ActorID).
		Str("detail", detail).
		Bool("success", success).
		Dur("elapsed", elapsed).
		Msg("use-case")

	if aerr != nil {
		return domain.ErrPersistence{Op: "audit append", Err: aerr}
	}
	return err
}

// ruleError converts a blocking rule violation into the compliance error
// carried by the use-case taxonomy.
func ruleError(err error) error {
	var rve RuleViolationError
	if errors.As(err, &rve) {
		if v, ok := rve.Result.FirstBlocking(); ok {
			return domain.ErrCompliance{Day: v.Day, Rule: v.Rule, Message: v.Message}
		}
	}
	return err
}

// Entity resolution -----------------------------------------------------------

func resolveBed(tx Transaction, key string) (Bed, error) {
	if b, ok := findBedInView(tx.Snapshot(), key); ok {
		return b, nil
	}
	return Bed{}, domain.ErrNotFound{Entity: EntityBed, Key: strings.TrimSpace(key)}
}

func resolveStaff(tx Transaction, key string) (Staff, error) {
	key = strings.TrimSpace(key)
	if st, ok := tx.FindStaff(key); ok {
		return st, nil
	}
	for _, st := range tx.Snapshot().ListStaff() {
		if strings.EqualFold(st.ID, key) || strings.EqualFold(st.Username, key) {
			return st, nil
		}
	}
	return Staff{}, domain.ErrNotFound{Entity: EntityStaff, Key: key}
}

func occupantOf(tx Transaction, bedID string) (Resident, error) {
	residentID, occupied := tx.Occupant(bedID)
	if !occupied {
		return Resident{}, domain.ErrNotFound{Entity: EntityResident, Key: "occupant of " + bedID}
	}
	r, ok := tx.FindResident(residentID)
	if !ok {
		return Resident{}, domain.ErrNotFound{Entity: EntityResident, Key: residentID}
	}
	return r, nil
}

// Session ---------------------------------------------------------------------

// Login verifies the credential pair and returns the authenticated staff
// record. Failed attempts are audited without an actor.
func (s *Service) Login(ctx context.Context, username, password string) (Staff, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	start := s.nowFn()

	st, err := s.gate.Login(username, password)
	if err != nil {
		return Staff{}, s.finish(ctx, nil, ActionLogin, "user="+username, start, err)
	}
	return st, s.finish(ctx, &st, ActionLogin, "user="+st.Username, start, nil)
}

// Logout records the end of an authenticated session.
func (s *Service) Logout(ctx context.Context, actor *Staff) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	start := s.nowFn()
	if actor == nil {
		return s.finish(ctx, nil, ActionLogout, "", start, domain.ErrUnauthenticated)
	}
	return s.finish(ctx, actor, ActionLogout, "user="+actor.Username, start, nil)
}

// Staff management ------------------------------------------------------------

// AddStaff creates a staff member with the given role. Manager only. The
// initial password may be empty, leaving the account unable to log in until
// a manager sets one.
func (s *Service) AddStaff(ctx context.Context, actor *Staff, staff Staff, password string) (Staff, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	start := s.nowFn()
	detail := fmt.Sprintf("staff=%s role=%s", staff.ID, staff.Role)

	if err := s.auth.Authorize(actor, false, RoleManager); err != nil {
		return Staff{}, s.finish(ctx, actor, ActionAddStaff, detail, start, err)
	}
	if password != "" {
		hash, err := HashPassword(password)
		if err != nil {
			return Staff{}, s.finish(ctx, actor, ActionAddStaff, detail, start, err)
		}
		staff.PasswordHash = hash
	}
	var created Staff
	_, err := s.store.RunInTransaction(ctx, func(tx Transaction) error {
		var err error
		created, err = tx.CreateStaff(staff)
		return err
	})
	if err != nil {
		return Staff{}, s.finish(ctx, actor, ActionAddStaff, detail, start, ruleError(err))
	}
	return created, s.finish(ctx, actor, ActionAddStaff, detail, start, nil)
}

// SetStaffPassword replaces the target staff member's password. Manager only.
func (s *Service) SetStaffPassword(ctx context.Context, actor *Staff, staffKey, password string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	start := s.nowFn()
	detail := "staff=" + staffKey

	if err := s.auth.Authorize(actor, false, RoleManager); err != nil {
		return s.finish(ctx, actor, ActionSetStaffPass, detail, start, err)
	}
	hash, err := HashPassword(password)
	if err != nil {
		return s.finish(ctx, actor, ActionSetStaffPass, detail, start, err)
	}
	_, err = s.store.RunInTransaction(ctx, func(tx Transaction) error {
		target, err := resolveStaff(tx, staffKey)
		if err != nil {
			return err
		}
		_, err = tx.UpdateStaff(target.ID, func(st *Staff) error {
			st.PasswordHash = hash
			return nil
		})
		return err
	})
	return s.finish(ctx, actor, ActionSetStaffPass, detail, start, ruleError(err))
}

// Admission and movement ------------------------------------------------------

// AdmitResident creates the resident record and occupies the bed as one
// atomic step: when placement fails no resident record survives.
// Manager only.
func (s *Service) AdmitResident(ctx context.Context, actor *Staff, bedKey string, resident Resident) (Resident, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	start := s.nowFn()
	detail := fmt.Sprintf("resident=%s bed=%s", resident.ID, bedKey)

	if err := s.auth.Authorize(actor, false, RoleManager); err != nil {
		return Resident{}, s.finish(ctx, actor, ActionAdmitResident, detail, start, err)
	}
	var created Resident
	_, err := s.store.RunInTransaction(ctx, func(tx Transaction) error {
		bed, err := resolveBed(tx, bedKey)
		if err != nil {
			return err
		}
		if _, occupied := tx.Occupant(bed.ID); occupied {
			return domain.ErrBedOccupied{BedID: bed.ID}
		}
		created, err = tx.CreateResident(resident)
		if err != nil {
			return err
		}
		return tx.SetOccupant(bed.ID, created.ID)
	})
	if err != nil {
		return Resident{}, s.finish(ctx, actor, ActionAdmitResident, detail, start, ruleError(err))
	}
	return created, s.finish(ctx, actor, ActionAdmitResident, detail, start, nil)
}

// MoveResident vacates the source bed and occupies the destination as one
// indivisible step. Nurse only, rostered now.
func (s *Service) MoveResident(ctx context.Context, actor *Staff, fromKey, toKey string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	start := s.nowFn()
	detail := fmt.Sprintf("from=%s to=%s", fromKey, toKey)

	if err := s.auth.Authorize(actor, true, RoleNurse); err != nil {
		return s.finish(ctx, actor, ActionMoveResident, detail, start, err)
	}
	_, err := s.store.RunInTransaction(ctx, func(tx Transaction) error {
		from, err := resolveBed(tx, fromKey)
		if err != nil {
			return err
		}
		to, err := resolveBed(tx, toKey)
		if err != nil {
			return err
		}
		resident, err := occupantOf(tx, from.ID)
		if err != nil {
			return err
		}
		if _, occupied := tx.Occupant(to.ID); occupied {
			return domain.ErrBedOccupied{BedID: to.ID}
		}
		if err := tx.ClearOccupant(from.ID); err != nil {
			return err
		}
		return tx.SetOccupant(to.ID, resident.ID)
	})
	return s.finish(ctx, actor, ActionMoveResident, detail, start, ruleError(err))
}

// Roster ----------------------------------------------------------------------

// AssignOrReplaceShift assigns a shift block to a staff member. With replace
// set, existing same-day shifts for the member are deleted first; otherwise
// the shift-per-day rule blocks the commit and the tentative shift is
// discarded, leaving the roster unchanged. Manager only.
func (s *Service) AssignOrReplaceShift(ctx context.Context, actor *Staff, staffKey string, day time.Time, shiftType ShiftType, replace bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	start := s.nowFn()
	detail := fmt.Sprintf("staff=%s day=%s type=%s replace=%t", staffKey, domain.DayOf(day).Format("2006-01-02"), shiftType, replace)

	if err := s.auth.Authorize(actor, false, RoleManager); err != nil {
		return s.finish(ctx, actor, ActionAssignShift, detail, start, err)
	}
	_, err := s.store.RunInTransaction(ctx, func(tx Transaction) error {
		target, err := resolveStaff(tx, staffKey)
		if err != nil {
			return err
		}
		if replace {
			tx.RemoveShiftsOn(target.ID, day)
		}
		return tx.AddShift(Shift{StaffID: target.ID, Day: day, Type: shiftType})
	})
	return s.finish(ctx, actor, ActionAssignShift, detail, start, ruleError(err))
}

// RemoveShift deletes the first structurally matching shift. Manager only.
func (s *Service) RemoveShift(ctx context.Context, actor *Staff, staffKey string, day time.Time, shiftType ShiftType) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	start := s.nowFn()
	detail := fmt.Sprintf("staff=%s day=%s type=%s", staffKey, domain.DayOf(day).Format("2006-01-02"), shiftType)

	if err := s.auth.Authorize(actor, false, RoleManager); err != nil {
		return s.finish(ctx, actor, ActionRemoveShift, detail, start, err)
	}
	_, err := s.store.RunInTransaction(ctx, func(tx Transaction) error {
		target, err := resolveStaff(tx, staffKey)
		if err != nil {
			return err
		}
		if !tx.RemoveShift(Shift{StaffID: target.ID, Day: day, Type: shiftType}) {
			return domain.ErrNotFound{Entity: EntityShift, Key: detail}
		}
		return nil
	})
	return s.finish(ctx, actor, ActionRemoveShift, detail, start, ruleError(err))
}

// CheckCompliance runs the weekly roster evaluation. The outcome is audited;
// a nil actor is recorded as the system.
func (s *Service) CheckCompliance(ctx context.Context, actor *Staff) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	start := s.nowFn()

	var verdict error
	viewErr := s.store.View(ctx, func(view TransactionView) error {
		verdict = EvaluateCompliance(view)
		return nil
	})
	if viewErr != nil {
		return s.finish(ctx, actor, ActionCheckCompliance, "", start, viewErr)
	}
	return s.finish(ctx, actor, ActionCheckCompliance, "", start, verdict)
}

// Prescriptions ---------------------------------------------------------------

func newPrescriptionID() string {
	return "RX-" + strings.ToUpper(uuid.NewString()[:8])
}

// AttachPrescription creates a prescription for the bed's current occupant
// with items stored in submission order. Doctor only, rostered now.
func (s *Service) AttachPrescription(ctx context.Context, actor *Staff, bedKey string, items []PrescriptionItem) (Prescription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	start := s.nowFn()
	detail := fmt.Sprintf("bed=%s items=%d", bedKey, len(items))

	if err := s.auth.Authorize(actor, true, RoleDoctor); err != nil {
		return Prescription{}, s.finish(ctx, actor, ActionAttachRx, detail, start, err)
	}
	var created Prescription
	_, err := s.store.RunInTransaction(ctx, func(tx Transaction) error {
		bed, err := resolveBed(tx, bedKey)
		if err != nil {
			return err
		}
		patient, err := occupantOf(tx, bed.ID)
		if err != nil {
			return err
		}
		created, err = tx.CreatePrescription(Prescription{
			ID:         newPrescriptionID(),
			ResidentID: patient.ID,
			DoctorID:   actor.ID,
			Items:      append([]PrescriptionItem(nil), items...),
		})
		return err
	})
	if err != nil {
		return Prescription{}, s.finish(ctx, actor, ActionAttachRx, detail, start, ruleError(err))
	}
	return created, s.finish(ctx, actor, ActionAttachRx, "rx="+created.ID+" "+detail, start, nil)
}

// AddPrescriptionItem appends one medicine line. Doctor only, rostered now.
func (s *Service) AddPrescriptionItem(ctx context.Context, actor *Staff, prescriptionID string, item PrescriptionItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	start := s.nowFn()
	detail := fmt.Sprintf("rx=%s add=%s", prescriptionID, item.Medicine)

	if err := s.auth.Authorize(actor, true, RoleDoctor); err != nil {
		return s.finish(ctx, actor, ActionUpdateRx, detail, start, err)
	}
	_, err := s.store.RunInTransaction(ctx, func(tx Transaction) error {
		_, err := tx.UpdatePrescription(prescriptionID, func(p *Prescription) error {
			p.Items = append(p.Items, item)
			return nil
		})
		return err
	})
	return s.finish(ctx, actor, ActionUpdateRx, detail, start, ruleError(err))
}

// EditPrescriptionItem replaces the item at index wholesale. The caller is
// responsible for merging blank fields with current values beforehand.
// Doctor only, rostered now.
func (s *Service) EditPrescriptionItem(ctx context.Context, actor *Staff, prescriptionID string, index int, item PrescriptionItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	start := s.nowFn()
	detail := fmt.Sprintf("rx=%s edit=%d", prescriptionID, index)

	if err := s.auth.Authorize(actor, true, RoleDoctor); err != nil {
		return s.finish(ctx, actor, ActionUpdateRx, detail, start, err)
	}
	_, err := s.store.RunInTransaction(ctx, func(tx Transaction) error {
		_, err := tx.UpdatePrescription(prescriptionID, func(p *Prescription) error {
			if index < 0 || index >= len(p.Items) {
				return domain.ErrInvalidIndex{Index: index, Count: len(p.Items)}
			}
			p.Items[index] = item
			return nil
		})
		return err
	})
	return s.finish(ctx, actor, ActionUpdateRx, detail, start, ruleError(err))
}

// RemovePrescriptionItem removes the item at index; subsequent indices
// shift, so callers must not cache indices across calls. Doctor only,
// rostered now.
func (s *Service) RemovePrescriptionItem(ctx context.Context, actor *Staff, prescriptionID string, index int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	start := s.nowFn()
	detail := fmt.Sprintf("rx=%s remove=%d", prescriptionID, index)

	if err := s.auth.Authorize(actor, true, RoleDoctor); err != nil {
		return s.finish(ctx, actor, ActionUpdateRx, detail, start, err)
	}
	_, err := s.store.RunInTransaction(ctx, func(tx Transaction) error {
		_, err := tx.UpdatePrescription(prescriptionID, func(p *Prescription) error {
			if index < 0 || index >= len(p.Items) {
				return domain.ErrInvalidIndex{Index: index, Count: len(p.Items)}
			}
			p.Items = append(p.Items[:index], p.Items[index+1:]...)
			return nil
		})
		return err
	})
	return s.finish(ctx, actor, ActionUpdateRx, detail, start, ruleError(err))
}

// AdministerDose records one administered dose against a prescription item.
// A blank override uses the prescribed dose; a non-blank override is used
// verbatim. Nurse only, rostered now.
func (s *Service) AdministerDose(ctx context.Context, actor *Staff, bedKey, prescriptionID string, itemIndex int, doseOverride string) (AdministrationRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	start := s.nowFn()
	detail := fmt.Sprintf("bed=%s rx=%s item=%d", bedKey, prescriptionID, itemIndex)

	if err := s.auth.Authorize(actor, true, RoleNurse); err != nil {
		return AdministrationRecord{}, s.finish(ctx, actor, ActionAdministerDose, detail, start, err)
	}
	var record AdministrationRecord
	_, err := s.store.RunInTransaction(ctx, func(tx Transaction) error {
		bed, err := resolveBed(tx, bedKey)
		if err != nil {
			return err
		}
		patient, err := occupantOf(tx, bed.ID)
		if err != nil {
			return err
		}
		rx, ok := tx.FindPrescription(strings.TrimSpace(prescriptionID))
		if !ok || !strings.EqualFold(rx.ResidentID, patient.ID) {
			return domain.ErrNotFound{Entity: EntityPrescription, Key: prescriptionID}
		}
		if itemIndex < 0 || itemIndex >= len(rx.Items) {
			return domain.ErrInvalidIndex{Index: itemIndex, Count: len(rx.Items)}
		}
		item := rx.Items[itemIndex]
		dose := doseOverride
		if strings.TrimSpace(dose) == "" {
			dose = item.Dose
		}
		record = AdministrationRecord{
			PrescriptionID: rx.ID,
			Medicine:       item.Medicine,
			Dose:           dose,
			Time:           s.nowFn(),
			StaffID:        actor.ID,
		}
		return tx.AppendAdministration(record)
	})
	if err != nil {
		return AdministrationRecord{}, s.finish(ctx, actor, ActionAdministerDose, detail, start, ruleError(err))
	}
	return record, s.finish(ctx, actor, ActionAdministerDose, detail+" med="+record.Medicine+" dose="+record.Dose, start, nil)
}

// Audit export ----------------------------------------------------------------

// ExportAuditLog writes the full audit trail as a JSON artifact to the
// configured archive store. Manager only.
func (s *Service) ExportAuditLog(ctx context.Context, actor *Staff, key string) (archive.Info, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	start := s.nowFn()
	detail := "key=" + key

	if err := s.auth.Authorize(actor, false, RoleManager); err != nil {
		return archive.Info{}, s.finish(ctx, actor, ActionExportAudit, detail, start, err)
	}
	if s.archive == nil {
		return archive.Info{}, s.finish(ctx, actor, ActionExportAudit, detail, start, fmt.Errorf("archive store not configured"))
	}
	payload, err := json.MarshalIndent(s.store.AuditLog(), "", "  ")
	if err != nil {
		return archive.Info{}, s.finish(ctx, actor, ActionExportAudit, detail, start, err)
	}
	info, err := s.archive.Put(ctx, key, strings.NewReader(string(payload)), archive.PutOptions{
		ContentType: "application/json",
		Metadata:    map[string]string{"exported_by": actor.ID},
	})
	if err != nil {
		return archive.Info{}, s.finish(ctx, actor, ActionExportAudit, detail, start, err)
	}
	return info, s.finish(ctx, actor, ActionExportAudit, detail, start, nil)
}
