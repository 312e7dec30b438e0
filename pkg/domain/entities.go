// Package domain defines the core persistent entities, value types, and
// rule evaluation primitives used by carecore.
package domain

import (
	"fmt"
	"strings"
	"time"
)

// EntityType identifies the type of record stored in the core domain.
type EntityType string

// Supported entity type identifiers used in Change records and persistence buckets.
const (
	// EntityBed identifies a bed record.
	EntityBed EntityType = "bed"
	// EntityResident identifies a resident record.
	EntityResident EntityType = "resident"
	// EntityStaff identifies a staff record.
	EntityStaff EntityType = "staff"
	// EntityShift identifies a roster shift record.
	EntityShift EntityType = "shift"
	// EntityPrescription identifies a prescription record.
	EntityPrescription EntityType = "prescription"
	// EntityAdministration identifies a medication administration record.
	EntityAdministration EntityType = "administration"
	// EntityAuditEntry identifies an audit trail record.
	EntityAuditEntry EntityType = "audit_entry"
)

// Role is the closed set of staff capabilities. Authorization is always a
// set-membership test over roles, never a type inspection.
type Role string

const (
	RoleDoctor  Role = "doctor"
	RoleNurse   Role = "nurse"
	RoleManager Role = "manager"
)

// ParseRole maps free-form user input onto a canonical role.
func ParseRole(s string) (Role, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "doctor", "d":
		return RoleDoctor, nil
	case "nurse", "n":
		return RoleNurse, nil
	case "manager", "m":
		return RoleManager, nil
	}
	return "", fmt.Errorf("unknown role %q", s)
}

// ShiftType identifies the fixed daily shift blocks.
type ShiftType string

const (
	// ShiftDay covers 08:00-16:00.
	ShiftDay ShiftType = "DAY"
	// ShiftEve covers 14:00-22:00. The overlap with ShiftDay between
	// 14:00 and 16:00 is intentional.
	ShiftEve ShiftType = "EVE"
)

// ParseShiftType maps user input onto a shift type.
func ParseShiftType(s string) (ShiftType, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "DAY":
		return ShiftDay, nil
	case "EVE":
		return ShiftEve, nil
	}
	return "", fmt.Errorf("unknown shift type %q", s)
}

// Window returns the start and end hour (exclusive) covered by the shift type.
func (t ShiftType) Window() (startHour, endHour int) {
	switch t {
	case ShiftDay:
		return 8, 16
	case ShiftEve:
		return 14, 22
	default:
		return 0, 0
	}
}

// DayOf truncates an instant to its calendar day in UTC.
func DayOf(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// Bed is one unit of the static facility topology. Ward and room membership
// are plain attributes; occupancy lives in a separate bed-to-resident index.
type Bed struct {
	ID        string    `json:"id"`
	WardID    string    `json:"ward_id"`
	RoomID    string    `json:"room_id"`
	CreatedAt time.Time `json:"created_at"`
}

// Resident is a person admitted to the facility. There is no deletion path.
type Resident struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Gender    string    `json:"gender"`
	CreatedAt time.Time `json:"created_at"`
}

// Staff is an employee able to act against the facility, tagged with a role.
type Staff struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"password_hash,omitempty"`
	Role         Role      `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Shift assigns a staff member to one fixed block on one calendar day.
type Shift struct {
	StaffID string    `json:"staff_id"`
	Day     time.Time `json:"day"`
	Type    ShiftType `json:"type"`
}

// Covers reports whether the shift covers instant t: the instant's calendar
// day must equal the shift day and its time of day must fall inside the
// shift type's window.
func (s Shift) Covers(t time.Time) bool {
	t = t.UTC()
	if !DayOf(t).Equal(DayOf(s.Day)) {
		return false
	}
	start, end := s.Type.Window()
	h := t.Hour()
	return h >= start && h < end
}

// SameSlot reports structural equality used for first-match removal.
func (s Shift) SameSlot(other Shift) bool {
	return strings.EqualFold(s.StaffID, other.StaffID) &&
		DayOf(s.Day).Equal(DayOf(other.Day)) &&
		s.Type == other.Type
}

// PrescriptionItem is one medicine line within a prescription. Items are
// addressed by positional index; removal shifts subsequent indices.
type PrescriptionItem struct {
	Medicine  string `json:"medicine"`
	Dose      string `json:"dose"`
	Frequency string `json:"frequency"`
	Notes     string `json:"notes,omitempty"`
}

// Prescription links an ordered list of medicine items to a resident and the
// prescribing doctor.
type Prescription struct {
	ID         string             `json:"id"`
	ResidentID string             `json:"resident_id"`
	DoctorID   string             `json:"doctor_id"`
	CreatedAt  time.Time          `json:"created_at"`
	Items      []PrescriptionItem `json:"items"`
}

// AdministrationRecord captures one administered dose. Immutable once appended.
type AdministrationRecord struct {
	PrescriptionID string    `json:"prescription_id"`
	Medicine       string    `json:"medicine"`
	Dose           string    `json:"dose"`
	Time           time.Time `json:"time"`
	StaffID        string    `json:"staff_id"`
}

// AuditEntry records one attempted action and its outcome. Entries are
// append-only and insertion order matches transaction commit order.
type AuditEntry struct {
	ID      string    `json:"id"`
	Time    time.Time `json:"time"`
	ActorID string    `json:"actor_id,omitempty"` // empty = system
	Action  string    `json:"action"`
	Detail  string    `json:"detail"`
	Success bool      `json:"success"`
}

func (e AuditEntry) String() string {
	actor := e.ActorID
	if actor == "" {
		actor = "(system)"
	}
	outcome := "DENIED"
	if e.Success {
		outcome = "OK"
	}
	return fmt.Sprintf("[%s] %s %s %s %s", e.Time.Format(time.RFC3339), actor, e.Action, e.Detail, outcome)
}

// Change describes a mutation applied to an entity during a transaction.
type Change struct {
	Entity EntityType
	Action Action
	Before any
	After  any
}

// Action indicates the type of modification performed.
type Action string

// Change actions enumerate the mutations captured per transaction.
const (
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

// Severity captures rule outcomes.
type Severity string

// Rule evaluation severities determine commit behavior and logging.
const (
	// SeverityBlock blocks transaction commit.
	SeverityBlock Severity = "block"
	// SeverityWarn logs a warning but allows commit.
	SeverityWarn Severity = "warn"
	SeverityLog  Severity = "log"
)

// Violation reports a failed rule evaluation.
type Violation struct {
	Rule     string
	Severity Severity
	Message  string
	Entity   EntityType
	EntityID string
	Day      time.Time // zero when the rule is not day-scoped
}

// Result aggregates violations from the rules engine.
type Result struct {
	Violations []Violation
}

// Merge appends violations from another result.
func (r *Result) Merge(other Result) {
	if len(other.Violations) == 0 {
		return
	}
	r.Violations = append(r.Violations, other.Violations...)
}

// HasBlocking returns true if the result contains blocking violations.
func (r Result) HasBlocking() bool {
	for _, v := range r.Violations {
		if v.Severity == SeverityBlock {
			return true
		}
	}
	return false
}

// FirstBlocking returns the first blocking violation, if any.
func (r Result) FirstBlocking() (Violation, bool) {
	for _, v := range r.Violations {
		if v.Severity == SeverityBlock {
			return v, true
		}
	}
	return Violation{}, false
}

// RuleViolationError is returned when blocking violations are present.
type RuleViolationError struct {
	Result Result
}

func (e RuleViolationError) Error() string {
	if v, ok := e.Result.FirstBlocking(); ok {
		return fmt.Sprintf("transaction blocked by rule %s: %s", v.Rule, v.Message)
	}
	return "transaction blocked by rules"
}
