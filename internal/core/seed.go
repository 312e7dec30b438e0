package core

import (
	"context"
	"fmt"

	"carecore/pkg/domain"
)

const (
	defaultManagerID       = "M0"
	defaultManagerUsername = "admin"
	defaultManagerPassword = "admin123"
)

// ward layout: ward id, room id, bed count per room.
var defaultLayout = []struct {
	Ward string
	Room string
	Beds int
}{
	{"W1", "R1", 1},
	{"W1", "R2", 2},
	{"W1", "R3", 4},
	{"W2", "R4", 4},
	{"W2", "R5", 4},
	{"W2", "R6", 4},
}

// EnsureDefaultManager creates the bootstrap manager account when no staff
// exist yet so a fresh facility is administrable. The password should be
// rotated immediately after first login.
func EnsureDefaultManager(ctx context.Context, store PersistentStore) error {
	if len(store.ListStaff()) > 0 {
		return nil
	}
	hash, err := HashPassword(defaultManagerPassword)
	if err != nil {
		return err
	}
	_, err = store.RunInTransaction(ctx, func(tx Transaction) error {
		_, err := tx.CreateStaff(Staff{
			ID:           defaultManagerID,
			Name:         "Administrator",
			Username:     defaultManagerUsername,
			PasswordHash: hash,
			Role:         RoleManager,
		})
		return err
	})
	return err
}

// EnsureDefaultFacility creates the standard two-ward bed layout when the
// facility has no beds. Bed ids follow the ward-room-slot pattern, e.g.
// W1-R3-B2.
func EnsureDefaultFacility(ctx context.Context, store PersistentStore) error {
	if len(store.ListBeds()) > 0 {
		return nil
	}
	_, err := store.RunInTransaction(ctx, func(tx Transaction) error {
		for _, room := range defaultLayout {
			for i := 1; i <= room.Beds; i++ {
				bed := domain.Bed{
					ID:     fmt.Sprintf("%s-%s-B%d", room.Ward, room.Room, i),
					WardID: room.Ward,
					RoomID: room.Room,
				}
				if _, err := tx.CreateBed(bed); err != nil {
					return err
				}
			}
		}
		return nil
	})
	return err
}
