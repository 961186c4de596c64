package authn

import (
	"fmt"
	"strings"

	authpkg "github.com/appetiteclub/apt/auth"
	"github.com/appetiteclub/dinein/internal/core"
	"github.com/appetiteclub/dinein/internal/store"
)

type Role string

const (
	RoleAdmin    Role = "admin"
	RoleKitchen  Role = "kitchen"
	RoleWaiter   Role = "waiter"
	RoleCustomer Role = "customer"
)

// Staff reports whether the role works the floor or the kitchen.
func (r Role) Staff() bool {
	switch r {
	case RoleAdmin, RoleKitchen, RoleWaiter:
		return true
	}
	return false
}

func (r Role) Valid() bool {
	return r.Staff() || r == RoleCustomer
}

// User is a stored credential. Only the salted hash of the password is kept.
type User struct {
	ID           string `json:"id"`
	Email        string `json:"email"`
	Name         string `json:"name"`
	Role         Role   `json:"role"`
	PasswordHash []byte `json:"passwordHash"`
	PasswordSalt []byte `json:"passwordSalt"`
}

// Profile is a user without secrets.
type Profile struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
	Role  Role   `json:"role"`
}

// Key returns the store key of an email.
func Key(email string) string {
	return store.UserPrefix + authpkg.NormalizeEmail(email)
}

// NewUser validates the fields and hashes password with a fresh salt.
func NewUser(id, email, name string, role Role, password string) (*User, error) {
	email = authpkg.NormalizeEmail(email)
	if errs := authpkg.ValidateEmail(email); errs.HasErrors() {
		return nil, fmt.Errorf("user %s: %s: %w", email, errs.Error(), core.ErrInvalidInput)
	}
	if !role.Valid() {
		return nil, fmt.Errorf("user %s: unknown role %q: %w", email, role, core.ErrInvalidInput)
	}
	if password == "" {
		return nil, fmt.Errorf("user %s: password is required: %w", email, core.ErrInvalidInput)
	}

	salt := authpkg.GeneratePasswordSalt()
	return &User{
		ID:           id,
		Email:        email,
		Name:         strings.TrimSpace(name),
		Role:         role,
		PasswordHash: authpkg.HashPassword([]byte(password), salt),
		PasswordSalt: salt,
	}, nil
}

func (u *User) Verify(password string) bool {
	return authpkg.VerifyPasswordHash([]byte(password), u.PasswordHash, u.PasswordSalt)
}

func (u *User) Profile() Profile {
	return Profile{ID: u.ID, Email: u.Email, Name: u.Name, Role: u.Role}
}
