package core

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"carecore/internal/infra/persistence/memory"
	"carecore/pkg/domain"
)

func TestAuthorizeUnauthenticated(t *testing.T) {
	auth := NewAuthorizer(memory.NewStore(nil), nil)
	err := auth.Authorize(nil, false, RoleManager)
	require.ErrorIs(t, err, domain.ErrUnauthenticated)
}

func TestAuthorizeRoleMembership(t *testing.T) {
	auth := NewAuthorizer(memory.NewStore(nil), nil)
	nurse := &Staff{ID: "N1", Role: RoleNurse}

	require.NoError(t, auth.Authorize(nurse, false, RoleNurse))
	require.NoError(t, auth.Authorize(nurse, false, RoleDoctor, RoleNurse))

	err := auth.Authorize(nurse, false, RoleManager)
	var unauthorized domain.ErrUnauthorized
	require.ErrorAs(t, err, &unauthorized)
	require.Equal(t, RoleNurse, unauthorized.Role)
}

func TestAuthorizeRosterCheck(t *testing.T) {
	store := memory.NewStore(nil)
	_, err := store.RunInTransaction(context.Background(), func(tx Transaction) error {
		if _, err := tx.CreateStaff(Staff{ID: "N1", Username: "nina", Role: RoleNurse}); err != nil {
			return err
		}
		return tx.AddShift(Shift{StaffID: "N1", Day: monday, Type: ShiftDay})
	})
	require.NoError(t, err)

	onDuty := func() time.Time { return monday.Add(9 * time.Hour) }
	offDuty := func() time.Time { return monday.Add(20 * time.Hour) }
	nurse := &Staff{ID: "N1", Role: RoleNurse}

	require.NoError(t, NewAuthorizer(store, onDuty).Authorize(nurse, true, RoleNurse))

	err = NewAuthorizer(store, offDuty).Authorize(nurse, true, RoleNurse)
	var notRostered domain.ErrNotRostered
	require.ErrorAs(t, err, &notRostered)
	require.Equal(t, "N1", notRostered.StaffID)
}

func TestGateLogin(t *testing.T) {
	store := memory.NewStore(nil)
	hash, err := HashPassword("s3cret")
	require.NoError(t, err)
	_, err = store.RunInTransaction(context.Background(), func(tx Transaction) error {
		if _, err := tx.CreateStaff(Staff{ID: "M1", Username: "meg", PasswordHash: hash, Role: RoleManager}); err != nil {
			return err
		}
		// An account without a password cannot log in at all.
		_, err := tx.CreateStaff(Staff{ID: "N1", Username: "nina", Role: RoleNurse})
		return err
	})
	require.NoError(t, err)

	gate := NewGate(store)

	st, err := gate.Login("MEG", "s3cret")
	require.NoError(t, err)
	require.Equal(t, "M1", st.ID)

	_, err = gate.Login("meg", "wrong")
	require.True(t, errors.Is(err, ErrInvalidCredentials))

	_, err = gate.Login("nina", "")
	require.True(t, errors.Is(err, ErrInvalidCredentials))

	_, err = gate.Login("ghost", "s3cret")
	require.True(t, errors.Is(err, ErrInvalidCredentials))
}
