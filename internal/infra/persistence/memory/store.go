// Package memory provides an in-memory implementation of the core persistence
// store used for tests and ephemeral environments.
package memory

import (
	"carecore/pkg/domain"
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
	"sync"
	"time"
)

// Compile-time contract assertion ensuring memory.Store adheres to the domain persistence interface.
var _ domain.PersistentStore = (*Store)(nil)

type (
	// Bed aliases domain.Bed for in-memory persistence operations.
	Bed = domain.Bed
	// Resident aliases domain.Resident.
	Resident = domain.Resident
	// Staff aliases domain.Staff.
	Staff = domain.Staff
	// Shift aliases domain.Shift.
	Shift = domain.Shift
	// Prescription aliases domain.Prescription.
	Prescription = domain.Prescription
	// AdministrationRecord aliases domain.AdministrationRecord.
	AdministrationRecord = domain.AdministrationRecord
	// AuditEntry aliases domain.AuditEntry.
	AuditEntry = domain.AuditEntry
	// Change aliases domain.Change captured in transactions.
	Change = domain.Change
	// Result aliases domain.Result summarizing rule evaluation.
	Result = domain.Result
	// RulesEngine aliases domain.RulesEngine used to evaluate rules.
	RulesEngine = domain.RulesEngine
	// Transaction aliases domain.Transaction representing a mutable unit of work.
	Transaction = domain.Transaction
	// TransactionView aliases domain.TransactionView providing read-only state.
	TransactionView = domain.TransactionView
)

type memoryState struct {
	beds            map[string]Bed
	residents       map[string]Resident
	staff           map[string]Staff
	occupancy       map[string]string // bed id -> resident id
	shifts          []Shift
	prescriptions   map[string]Prescription
	administrations []AdministrationRecord
	audit           []AuditEntry
}

// Snapshot captures a point-in-time clone of the store state. The whole
// facility is saved and loaded as one opaque unit.
type Snapshot struct {
	Beds            map[string]Bed          `json:"beds"`
	Residents       map[string]Resident     `json:"residents"`
	Staff           map[string]Staff        `json:"staff"`
	Occupancy       map[string]string       `json:"occupancy"`
	Shifts          []Shift                 `json:"shifts"`
	Prescriptions   map[string]Prescription `json:"prescriptions"`
	Administrations []AdministrationRecord  `json:"administrations"`
	Audit           []AuditEntry            `json:"audit"`
}

func newMemoryState() memoryState {
	return memoryState{
		beds:          make(map[string]Bed),
		residents:     make(map[string]Resident),
		staff:         make(map[string]Staff),
		occupancy:     make(map[string]string),
		prescriptions: make(map[string]Prescription),
	}
}

func clonePrescription(p Prescription) Prescription {
	cp := p
	cp.Items = append([]domain.PrescriptionItem(nil), p.Items...)
	return cp
}

func (s memoryState) clone() memoryState {
	cloned := newMemoryState()
	for k, v := range s.beds {
		cloned.beds[k] = v
	}
	for k, v := range s.residents {
		cloned.residents[k] = v
	}
	for k, v := range s.staff {
		cloned.staff[k] = v
	}
	for k, v := range s.occupancy {
		cloned.occupancy[k] = v
	}
	cloned.shifts = append([]Shift(nil), s.shifts...)
	for k, v := range s.prescriptions {
		cloned.prescriptions[k] = clonePrescription(v)
	}
	cloned.administrations = append([]AdministrationRecord(nil), s.administrations...)
	cloned.audit = append([]AuditEntry(nil), s.audit...)
	return cloned
}

func snapshotFromMemoryState(state memoryState) Snapshot {
	cloned := state.clone()
	return Snapshot{
		Beds:            cloned.beds,
		Residents:       cloned.residents,
		Staff:           cloned.staff,
		Occupancy:       cloned.occupancy,
		Shifts:          cloned.shifts,
		Prescriptions:   cloned.prescriptions,
		Administrations: cloned.administrations,
		Audit:           cloned.audit,
	}
}

func memoryStateFromSnapshot(s Snapshot) memoryState {
	state := newMemoryState()
	for k, v := range s.Beds {
		state.beds[k] = v
	}
	for k, v := range s.Residents {
		state.residents[k] = v
	}
	for k, v := range s.Staff {
		state.staff[k] = v
	}
	for k, v := range s.Occupancy {
		state.occupancy[k] = v
	}
	state.shifts = append([]Shift(nil), s.Shifts...)
	for k, v := range s.Prescriptions {
		state.prescriptions[k] = clonePrescription(v)
	}
	state.administrations = append([]AdministrationRecord(nil), s.Administrations...)
	state.audit = append([]AuditEntry(nil), s.Audit...)
	return state
}

// Store provides the in-memory transactional store for the facility state.
type Store struct {
	mu     sync.RWMutex
	state  memoryState
	engine *RulesEngine
	nowFn  func() time.Time
}

// NewStore constructs an in-memory store backed by the provided rules engine.
func NewStore(engine *RulesEngine) *Store {
	if engine == nil {
		engine = domain.NewRulesEngine()
	}
	return &Store{
		state:  newMemoryState(),
		engine: engine,
		nowFn:  func() time.Time { return time.Now().UTC() },
	}
}

func (s *Store) newID() string {
	var b [16]byte
	if _, err := rand.Read(b[:]); err != nil {
		panic(err)
	}
	return hex.EncodeToString(b[:])
}

// ExportState clones the current store state for external persistence.
func (s *Store) ExportState() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return snapshotFromMemoryState(s.state)
}

// ImportState replaces the store state with the provided snapshot.
func (s *Store) ImportState(snapshot Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = memoryStateFromSnapshot(snapshot)
}

// RulesEngine exposes the currently configured engine.
func (s *Store) RulesEngine() *RulesEngine {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.engine
}

// SetNowFunc overrides the time provider. Intended for tests.
func (s *Store) SetNowFunc(fn func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nowFn = fn
}

// NowFunc returns the time provider used by the store.
func (s *Store) NowFunc() func() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.nowFn
}

type transaction struct {
	store   *Store
	state   memoryState
	changes []Change
	now     time.Time
}

type transactionView struct {
	state *memoryState
}

func newTransactionView(state *memoryState) transactionView {
	return transactionView{state: state}
}

// RunInTransaction executes fn within a transactional copy of the store state.
// The tentative state is validated by the rules engine; a blocking violation
// discards the whole mutation set, which is how apply-then-revert sequences
// stay invisible to readers.
func (s *Store) RunInTransaction(ctx context.Context, fn func(tx Transaction) error) (Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &transaction{
		store: s,
		state: s.state.clone(),
		now:   s.nowFn(),
	}

	if err := fn(tx); err != nil {
		return Result{}, err
	}

	var result Result
	if s.engine != nil {
		view := newTransactionView(&tx.state)
		res, err := s.engine.Evaluate(ctx, view, tx.changes)
		if err != nil {
			return Result{}, err
		}
		result = res
		if res.HasBlocking() {
			return res, domain.RuleViolationError{Result: res}
		}
	}

	s.state = tx.state
	return result, nil
}

// View executes fn against a read-only snapshot of the store state.
func (s *Store) View(_ context.Context, fn func(TransactionView) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snapshot := s.state.clone()
	view := newTransactionView(&snapshot)
	return fn(view)
}

// AppendAudit appends an immutable audit entry under the store lock. Audit
// writes bypass rule evaluation so that denied use-cases still leave a trace.
func (s *Store) AppendAudit(_ context.Context, entry AuditEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if entry.ID == "" {
		entry.ID = s.newID()
	}
	if entry.Time.IsZero() {
		entry.Time = s.nowFn()
	}
	s.state.audit = append(s.state.audit, entry)
	return nil
}

// AuditLog returns the full audit trail in insertion order.
func (s *Store) AuditLog() []AuditEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]AuditEntry(nil), s.state.audit...)
}

// Transaction view methods --------------------------------------------------

func (v transactionView) ListBeds() []Bed {
	out := make([]Bed, 0, len(v.state.beds))
	for _, b := range v.state.beds {
		out = append(out, b)
	}
	return out
}

func (v transactionView) ListResidents() []Resident {
	out := make([]Resident, 0, len(v.state.residents))
	for _, r := range v.state.residents {
		out = append(out, r)
	}
	return out
}

func (v transactionView) ListStaff() []Staff {
	out := make([]Staff, 0, len(v.state.staff))
	for _, s := range v.state.staff {
		out = append(out, s)
	}
	return out
}

func (v transactionView) ListShifts() []Shift {
	return append([]Shift(nil), v.state.shifts...)
}

func (v transactionView) ListPrescriptions() []Prescription {
	out := make([]Prescription, 0, len(v.state.prescriptions))
	for _, p := range v.state.prescriptions {
		out = append(out, clonePrescription(p))
	}
	return out
}

func (v transactionView) ListAdministrations() []AdministrationRecord {
	return append([]AdministrationRecord(nil), v.state.administrations...)
}

func (v transactionView) Occupancy() map[string]string {
	out := make(map[string]string, len(v.state.occupancy))
	for k, val := range v.state.occupancy {
		out[k] = val
	}
	return out
}

func (v transactionView) FindBed(id string) (Bed, bool) {
	b, ok := v.state.beds[id]
	return b, ok
}

func (v transactionView) FindResident(id string) (Resident, bool) {
	r, ok := v.state.residents[id]
	return r, ok
}

func (v transactionView) FindStaff(id string) (Staff, bool) {
	st, ok := v.state.staff[id]
	return st, ok
}

func (v transactionView) FindPrescription(id string) (Prescription, bool) {
	p, ok := v.state.prescriptions[id]
	if !ok {
		return Prescription{}, false
	}
	return clonePrescription(p), true
}

func (v transactionView) Occupant(bedID string) (string, bool) {
	r, ok := v.state.occupancy[bedID]
	return r, ok
}

// Transaction methods -------------------------------------------------------

func (tx *transaction) recordChange(change Change) {
	tx.changes = append(tx.changes, change)
}

// Snapshot returns a read-only view over the transactional state.
func (tx *transaction) Snapshot() TransactionView {
	return newTransactionView(&tx.state)
}

func (tx *transaction) FindBed(id string) (Bed, bool) {
	b, ok := tx.state.beds[id]
	return b, ok
}

func (tx *transaction) FindStaff(id string) (Staff, bool) {
	st, ok := tx.state.staff[id]
	return st, ok
}

func (tx *transaction) FindResident(id string) (Resident, bool) {
	r, ok := tx.state.residents[id]
	return r, ok
}

func (tx *transaction) FindPrescription(id string) (Prescription, bool) {
	p, ok := tx.state.prescriptions[id]
	if !ok {
		return Prescription{}, false
	}
	return clonePrescription(p), true
}

func (tx *transaction) Occupant(bedID string) (string, bool) {
	r, ok := tx.state.occupancy[bedID]
	return r, ok
}

// CreateBed stores a new bed. Topology is created at facility seeding and
// never destroyed.
func (tx *transaction) CreateBed(b Bed) (Bed, error) {
	if b.ID == "" {
		return Bed{}, fmt.Errorf("bed id required")
	}
	if _, exists := tx.state.beds[b.ID]; exists {
		return Bed{}, fmt.Errorf("bed %q already exists", b.ID)
	}
	b.CreatedAt = tx.now
	tx.state.beds[b.ID] = b
	tx.recordChange(Change{Entity: domain.EntityBed, Action: domain.ActionCreate, After: b})
	return b, nil
}

// CreateResident stores a new resident within the transaction.
func (tx *transaction) CreateResident(r Resident) (Resident, error) {
	if r.ID == "" {
		r.ID = tx.store.newID()
	}
	if _, exists := tx.state.residents[r.ID]; exists {
		return Resident{}, fmt.Errorf("resident %q already exists", r.ID)
	}
	r.CreatedAt = tx.now
	tx.state.residents[r.ID] = r
	tx.recordChange(Change{Entity: domain.EntityResident, Action: domain.ActionCreate, After: r})
	return r, nil
}

// CreateStaff stores a new staff member.
func (tx *transaction) CreateStaff(st Staff) (Staff, error) {
	if st.ID == "" {
		st.ID = tx.store.newID()
	}
	if _, exists := tx.state.staff[st.ID]; exists {
		return Staff{}, fmt.Errorf("staff %q already exists", st.ID)
	}
	for _, existing := range tx.state.staff {
		if strings.EqualFold(existing.Username, st.Username) {
			return Staff{}, fmt.Errorf("username %q already taken", st.Username)
		}
	}
	st.CreatedAt = tx.now
	st.UpdatedAt = tx.now
	tx.state.staff[st.ID] = st
	tx.recordChange(Change{Entity: domain.EntityStaff, Action: domain.ActionCreate, After: st})
	return st, nil
}

// UpdateStaff mutates a staff member using the provided mutator.
func (tx *transaction) UpdateStaff(id string, mutator func(*Staff) error) (Staff, error) {
	current, ok := tx.state.staff[id]
	if !ok {
		return Staff{}, domain.ErrNotFound{Entity: domain.EntityStaff, Key: id}
	}
	before := current
	if err := mutator(&current); err != nil {
		return Staff{}, err
	}
	current.ID = id
	current.UpdatedAt = tx.now
	tx.state.staff[id] = current
	tx.recordChange(Change{Entity: domain.EntityStaff, Action: domain.ActionUpdate, Before: before, After: current})
	return current, nil
}

// SetOccupant places a resident into a vacant bed.
func (tx *transaction) SetOccupant(bedID, residentID string) error {
	if _, ok := tx.state.beds[bedID]; !ok {
		return domain.ErrNotFound{Entity: domain.EntityBed, Key: bedID}
	}
	if _, ok := tx.state.residents[residentID]; !ok {
		return domain.ErrNotFound{Entity: domain.EntityResident, Key: residentID}
	}
	if _, occupied := tx.state.occupancy[bedID]; occupied {
		return domain.ErrBedOccupied{BedID: bedID}
	}
	tx.state.occupancy[bedID] = residentID
	tx.recordChange(Change{Entity: domain.EntityBed, Action: domain.ActionUpdate, After: bedID + "->" + residentID})
	return nil
}

// ClearOccupant vacates a bed.
func (tx *transaction) ClearOccupant(bedID string) error {
	if _, ok := tx.state.beds[bedID]; !ok {
		return domain.ErrNotFound{Entity: domain.EntityBed, Key: bedID}
	}
	resident, occupied := tx.state.occupancy[bedID]
	if !occupied {
		return domain.ErrNotFound{Entity: domain.EntityResident, Key: "occupant of " + bedID}
	}
	delete(tx.state.occupancy, bedID)
	tx.recordChange(Change{Entity: domain.EntityBed, Action: domain.ActionUpdate, Before: bedID + "->" + resident})
	return nil
}

// AddShift appends a shift to the roster. The staff id is resolved
// case-insensitively and canonicalized to the stored record's id.
func (tx *transaction) AddShift(sh Shift) error {
	st, ok := tx.state.staff[sh.StaffID]
	if !ok {
		for _, existing := range tx.state.staff {
			if strings.EqualFold(existing.ID, sh.StaffID) {
				st, ok = existing, true
				break
			}
		}
	}
	if !ok {
		return domain.ErrNotFound{Entity: domain.EntityStaff, Key: sh.StaffID}
	}
	sh.StaffID = st.ID
	sh.Day = domain.DayOf(sh.Day)
	tx.state.shifts = append(tx.state.shifts, sh)
	tx.recordChange(Change{Entity: domain.EntityShift, Action: domain.ActionCreate, After: sh})
	return nil
}

// RemoveShift deletes the first structurally equal shift, reporting whether
// one was found.
func (tx *transaction) RemoveShift(sh Shift) bool {
	for i, existing := range tx.state.shifts {
		if existing.SameSlot(sh) {
			tx.state.shifts = append(tx.state.shifts[:i], tx.state.shifts[i+1:]...)
			tx.recordChange(Change{Entity: domain.EntityShift, Action: domain.ActionDelete, Before: existing})
			return true
		}
	}
	return false
}

// RemoveShiftsOn deletes every shift held by the staff member on the given
// day and returns the number removed.
func (tx *transaction) RemoveShiftsOn(staffID string, day time.Time) int {
	day = domain.DayOf(day)
	kept := tx.state.shifts[:0]
	removed := 0
	for _, existing := range tx.state.shifts {
		if strings.EqualFold(existing.StaffID, staffID) && domain.DayOf(existing.Day).Equal(day) {
			tx.recordChange(Change{Entity: domain.EntityShift, Action: domain.ActionDelete, Before: existing})
			removed++
			continue
		}
		kept = append(kept, existing)
	}
	tx.state.shifts = kept
	return removed
}

// CreatePrescription stores a new prescription record.
func (tx *transaction) CreatePrescription(p Prescription) (Prescription, error) {
	if p.ID == "" {
		p.ID = tx.store.newID()
	}
	if _, exists := tx.state.prescriptions[p.ID]; exists {
		return Prescription{}, fmt.Errorf("prescription %q already exists", p.ID)
	}
	if _, ok := tx.state.residents[p.ResidentID]; !ok {
		return Prescription{}, domain.ErrNotFound{Entity: domain.EntityResident, Key: p.ResidentID}
	}
	p.CreatedAt = tx.now
	tx.state.prescriptions[p.ID] = clonePrescription(p)
	tx.recordChange(Change{Entity: domain.EntityPrescription, Action: domain.ActionCreate, After: clonePrescription(p)})
	return clonePrescription(p), nil
}

// UpdatePrescription mutates a prescription using the provided mutator.
func (tx *transaction) UpdatePrescription(id string, mutator func(*Prescription) error) (Prescription, error) {
	current, ok := tx.state.prescriptions[id]
	if !ok {
		return Prescription{}, domain.ErrNotFound{Entity: domain.EntityPrescription, Key: id}
	}
	before := clonePrescription(current)
	working := clonePrescription(current)
	if err := mutator(&working); err != nil {
		return Prescription{}, err
	}
	working.ID = id
	tx.state.prescriptions[id] = clonePrescription(working)
	tx.recordChange(Change{Entity: domain.EntityPrescription, Action: domain.ActionUpdate, Before: before, After: clonePrescription(working)})
	return clonePrescription(working), nil
}

// AppendAdministration records an administered dose. Records reference an
// existing prescription and are immutable.
func (tx *transaction) AppendAdministration(rec AdministrationRecord) error {
	if _, ok := tx.state.prescriptions[rec.PrescriptionID]; !ok {
		return domain.ErrNotFound{Entity: domain.EntityPrescription, Key: rec.PrescriptionID}
	}
	if rec.Time.IsZero() {
		rec.Time = tx.now
	}
	tx.state.administrations = append(tx.state.administrations, rec)
	tx.recordChange(Change{Entity: domain.EntityAdministration, Action: domain.ActionCreate, After: rec})
	return nil
}

// Read helpers ---------------------------------------------------------------

// GetBed retrieves a bed by ID from committed state.
func (s *Store) GetBed(id string) (Bed, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.state.beds[id]
	return b, ok
}

// ListBeds returns all beds from committed state.
func (s *Store) ListBeds() []Bed {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Bed, 0, len(s.state.beds))
	for _, b := range s.state.beds {
		out = append(out, b)
	}
	return out
}

// GetResident retrieves a resident by ID.
func (s *Store) GetResident(id string) (Resident, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.state.residents[id]
	return r, ok
}

// ListResidents returns all residents.
func (s *Store) ListResidents() []Resident {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Resident, 0, len(s.state.residents))
	for _, r := range s.state.residents {
		out = append(out, r)
	}
	return out
}

// GetStaff retrieves a staff member by ID.
func (s *Store) GetStaff(id string) (Staff, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.state.staff[id]
	return st, ok
}

// ListStaff returns all staff members.
func (s *Store) ListStaff() []Staff {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Staff, 0, len(s.state.staff))
	for _, st := range s.state.staff {
		out = append(out, st)
	}
	return out
}

// ListShifts returns the roster in insertion order.
func (s *Store) ListShifts() []Shift {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Shift(nil), s.state.shifts...)
}

// ListPrescriptions returns all prescriptions.
func (s *Store) ListPrescriptions() []Prescription {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Prescription, 0, len(s.state.prescriptions))
	for _, p := range s.state.prescriptions {
		out = append(out, clonePrescription(p))
	}
	return out
}

// ListAdministrations returns all administration records in insertion order.
func (s *Store) ListAdministrations() []AdministrationRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]AdministrationRecord(nil), s.state.administrations...)
}

// Occupant returns the resident occupying a bed, if any.
func (s *Store) Occupant(bedID string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.state.occupancy[bedID]
	return r, ok
}

// ResidentBed computes the reverse occupancy lookup on demand.
func (s *Store) ResidentBed(residentID string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for bed, resident := range s.state.occupancy {
		if resident == residentID {
			return bed, true
		}
	}
	return "", false
}
