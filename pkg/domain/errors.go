package domain

import (
	"errors"
	"fmt"
	"time"
)

// ErrUnauthenticated is returned when a use-case is attempted with no actor.
var ErrUnauthenticated = errors.New("not authenticated")

// ErrUnauthorized reports an actor whose role is outside the permitted set.
type ErrUnauthorized struct {
	Role     Role
	Required []Role
}

func (e ErrUnauthorized) Error() string {
	return fmt.Sprintf("action not permitted for role %s", e.Role)
}

// ErrNotRostered reports an actor with no shift covering the current instant.
type ErrNotRostered struct {
	StaffID string
	At      time.Time
}

func (e ErrNotRostered) Error() string {
	return fmt.Sprintf("staff %s not rostered at %s", e.StaffID, e.At.Format(time.RFC3339))
}

// ErrNotFound is returned when entity resolution by id or name fails.
type ErrNotFound struct {
	Entity EntityType
	Key    string
}

func (e ErrNotFound) Error() string {
	return fmt.Sprintf("%s %q not found", e.Entity, e.Key)
}

// ErrBedOccupied reports an admission or move into a non-vacant bed.
type ErrBedOccupied struct {
	BedID string
}

func (e ErrBedOccupied) Error() string {
	return fmt.Sprintf("bed %s is occupied", e.BedID)
}

// ErrInvalidIndex reports a prescription item index outside the current item
// count.
type ErrInvalidIndex struct {
	Index int
	Count int
}

func (e ErrInvalidIndex) Error() string {
	if e.Count == 0 {
		return fmt.Sprintf("item index %d out of range (no items)", e.Index)
	}
	return fmt.Sprintf("item index %d out of range (0..%d)", e.Index, e.Count-1)
}

// ErrCompliance reports the first roster rule violated, carrying the
// offending day and rule name.
type ErrCompliance struct {
	Day     time.Time
	Rule    string
	Message string
}

func (e ErrCompliance) Error() string {
	if e.Day.IsZero() {
		return e.Message
	}
	return fmt.Sprintf("%s on %s: %s", e.Rule, e.Day.Format("2006-01-02"), e.Message)
}

// ErrPersistence wraps snapshot save/load failures. It is fatal to the
// operation that triggered it.
type ErrPersistence struct {
	Op  string
	Err error
}

func (e ErrPersistence) Error() string {
	return fmt.Sprintf("persistence %s failed: %v", e.Op, e.Err)
}

func (e ErrPersistence) Unwrap() error { return e.Err }
