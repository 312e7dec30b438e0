package core

import (
	"carecore/pkg/domain"
	"time"
)

// Authorizer answers "may this actor do this now?". It is a pure check with
// no mutation; callers audit the result regardless of outcome.
type Authorizer struct {
	store PersistentStore
	nowFn func() time.Time
}

// NewAuthorizer constructs an authorizer over the facility store.
func NewAuthorizer(store PersistentStore, nowFn func() time.Time) *Authorizer {
	if nowFn == nil {
		nowFn = func() time.Time { return time.Now().UTC() }
	}
	return &Authorizer{store: store, nowFn: nowFn}
}

// Authorize verifies, in order: the actor is authenticated, the actor's role
// is a member of the required set, and, when requireRostered is set, the
// actor has a shift covering the current instant.
func (a *Authorizer) Authorize(actor *Staff, requireRostered bool, roles ...Role) error {
	if actor == nil {
		return domain.ErrUnauthenticated
	}
	allowed := false
	for _, r := range roles {
		if actor.Role == r {
			allowed = true
			break
		}
	}
	if !allowed {
		return domain.ErrUnauthorized{Role: actor.Role, Required: roles}
	}
	if requireRostered {
		now := a.nowFn()
		if !IsRostered(a.store.ListShifts(), actor.ID, now) {
			return domain.ErrNotRostered{StaffID: actor.ID, At: now}
		}
	}
	return nil
}
