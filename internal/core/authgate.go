package core

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// ErrInvalidCredentials is returned for any failed login. The cause (unknown
// username, missing password, mismatch) is deliberately not distinguished.
var ErrInvalidCredentials = errors.New("invalid credentials")

// Gate verifies a presented credential pair against the staff directory.
type Gate struct {
	store PersistentStore
}

// NewGate constructs a credential gate over the facility store.
func NewGate(store PersistentStore) *Gate {
	return &Gate{store: store}
}

// Login resolves the username case-insensitively and compares the password
// against the stored bcrypt hash.
func (g *Gate) Login(username, password string) (Staff, error) {
	for _, st := range g.store.ListStaff() {
		if !strings.EqualFold(st.Username, strings.TrimSpace(username)) {
			continue
		}
		if st.PasswordHash == "" {
			return Staff{}, ErrInvalidCredentials
		}
		if err := bcrypt.CompareHashAndPassword([]byte(st.PasswordHash), []byte(password)); err != nil {
			return Staff{}, ErrInvalidCredentials
		}
		return st, nil
	}
	return Staff{}, ErrInvalidCredentials
}

// HashPassword creates a bcrypt hash for storage on a staff record.
func HashPassword(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hashed), nil
}
