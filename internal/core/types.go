package core

import "carecore/pkg/domain"

type (
	EntityType           = domain.EntityType
	Role                 = domain.Role
	ShiftType            = domain.ShiftType
	Severity             = domain.Severity
	Bed                  = domain.Bed
	Resident             = domain.Resident
	Staff                = domain.Staff
	Shift                = domain.Shift
	Prescription         = domain.Prescription
	PrescriptionItem     = domain.PrescriptionItem
	AdministrationRecord = domain.AdministrationRecord
	AuditEntry           = domain.AuditEntry
	Change               = domain.Change
	Action               = domain.Action
	Violation            = domain.Violation
	Result               = domain.Result
	RuleViolationError   = domain.RuleViolationError
	Transaction          = domain.Transaction
	TransactionView      = domain.TransactionView
	PersistentStore      = domain.PersistentStore
	RulesEngine          = domain.RulesEngine
)

const (
	EntityBed            = domain.EntityBed
	EntityResident       = domain.EntityResident
	EntityStaff          = domain.EntityStaff
	EntityShift          = domain.EntityShift
	EntityPrescription   = domain.EntityPrescription
	EntityAdministration = domain.EntityAdministration
	EntityAuditEntry     = domain.EntityAuditEntry
)

const (
	RoleDoctor  = domain.RoleDoctor
	RoleNurse   = domain.RoleNurse
	RoleManager = domain.RoleManager
)

const (
	ShiftDay = domain.ShiftDay
	ShiftEve = domain.ShiftEve
)

const (
	SeverityBlock = domain.SeverityBlock
	SeverityWarn  = domain.SeverityWarn
	SeverityLog   = domain.SeverityLog
)

const (
	ActionCreate = domain.ActionCreate
	ActionUpdate = domain.ActionUpdate
	ActionDelete = domain.ActionDelete
)
