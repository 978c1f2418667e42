// Package ledger keeps the user records that gate exports: approval status
// and a credit balance.
//
// Identity is handled elsewhere; a ledger only trusts the user IDs it is
// given. Two stores are provided: Memory for tests and single-process use,
// and Redis for shared deployments.
package ledger

import (
	"context"
	"errors"
	"time"
)

// Role is a user's permission level.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAdmin
}

// Status is the approval state of an account.
type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected:
		return true
	}
	return false
}

// SignupCredits is the balance given to newly registered users.
const SignupCredits = 5

// Ledger errors.
var (
	ErrUnknownUser         = errors.New("ledger: unknown user")
	ErrNotApproved         = errors.New("ledger: account not approved")
	ErrInsufficientCredits = errors.New("ledger: insufficient credits")
	ErrInvalidAmount       = errors.New("ledger: amount must be positive")
	ErrInvalidStatus       = errors.New("ledger: invalid status")
	ErrInvalidRole         = errors.New("ledger: invalid role")
)

// User is the persistent record of one account.
type User struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Role      Role      `json:"role"`
	Status    Status    `json:"status"`
	Credits   int       `json:"credits"`
	CreatedAt time.Time `json:"createdAt"`
}

// NewUser returns a pending user with the signup balance.
func NewUser(id, email, name string) User {
	return User{
		ID:        id,
		Email:     email,
		Name:      name,
		Role:      RoleUser,
		Status:    StatusPending,
		Credits:   SignupCredits,
		CreatedAt: time.Now().UTC(),
	}
}

// Ledger stores users and moves credits atomically.
type Ledger interface {
	// User returns the record for id or ErrUnknownUser.
	User(ctx context.Context, id string) (User, error)
	// Users lists all records ordered by ID.
	Users(ctx context.Context) ([]User, error)
	// Put creates or replaces a record. It fails with ErrInvalidStatus or
	// ErrInvalidRole for unknown values.
	Put(ctx context.Context, u User) error
	// Deduct removes n credits from an approved user and returns the new
	// balance. It fails with ErrNotApproved or ErrInsufficientCredits
	// without changing anything. Admins are never charged.
	Deduct(ctx context.Context, id string, n int) (int, error)
	// Grant adds n credits and returns the new balance.
	Grant(ctx context.Context, id string, n int) (int, error)
	// SetStatus changes the approval status.
	SetStatus(ctx context.Context, id string, s Status) error
}

// validate checks the enumerated fields of u.
func (u User) validate() error {
	if !u.Status.Valid() {
		return ErrInvalidStatus
	}
	if !u.Role.Valid() {
		return ErrInvalidRole
	}
	return nil
}

// checkDeduct applies the deduction rules to a balance snapshot. It
// reports whether the balance should actually be charged.
func checkDeduct(u User, n int) (bool, error) {
	if u.Role == RoleAdmin {
		return false, nil
	}
	if u.Status != StatusApproved {
		return false, ErrNotApproved
	}
	if u.Credits < n {
		return false, ErrInsufficientCredits
	}
	return true, nil
}
