package domain

import (
	"context"
	"time"
)

// Transaction exposes the domain operations that a persistence implementation
// must support within an atomic scope.
type Transaction interface {
	Snapshot() TransactionView
	CreateBed(Bed) (Bed, error)
	CreateResident(Resident) (Resident, error)
	CreateStaff(Staff) (Staff, error)
	UpdateStaff(id string, mutator func(*Staff) error) (Staff, error)
	SetOccupant(bedID, residentID string) error
	ClearOccupant(bedID string) error
	AddShift(Shift) error
	RemoveShift(Shift) bool
	RemoveShiftsOn(staffID string, day time.Time) int
	CreatePrescription(Prescription) (Prescription, error)
	UpdatePrescription(id string, mutator func(*Prescription) error) (Prescription, error)
	AppendAdministration(AdministrationRecord) error
	FindBed(id string) (Bed, bool)
	FindStaff(id string) (Staff, bool)
	FindResident(id string) (Resident, bool)
	FindPrescription(id string) (Prescription, bool)
	Occupant(bedID string) (string, bool)
}

// TransactionView provides read-only access to snapshot data for rules.
type TransactionView = RuleView

// PersistentStore is a minimal abstraction over durable backends. The whole
// facility state is treated as one snapshot; implementations persist it
// after every committed transaction.
type PersistentStore interface {
	RunInTransaction(ctx context.Context, fn func(Transaction) error) (Result, error)
	View(ctx context.Context, fn func(TransactionView) error) error
	GetBed(id string) (Bed, bool)
	ListBeds() []Bed
	GetResident(id string) (Resident, bool)
	ListResidents() []Resident
	GetStaff(id string) (Staff, bool)
	ListStaff() []Staff
	ListShifts() []Shift
	ListPrescriptions() []Prescription
	ListAdministrations() []AdministrationRecord
	Occupant(bedID string) (string, bool)
	ResidentBed(residentID string) (string, bool)
	AppendAudit(ctx context.Context, entry AuditEntry) error
	AuditLog() []AuditEntry
}
