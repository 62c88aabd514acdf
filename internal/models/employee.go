package models

import "time"

// EmployeeRole is the closed set of roles an employee can hold. Roles are
// always compared as typed values, never as free-form strings.
type EmployeeRole string

const (
	RoleOwner EmployeeRole = "owner"
	RoleStaff EmployeeRole = "staff"
)

// Valid reports whether the role is a known value.
func (r EmployeeRole) Valid() bool {
	return r == RoleOwner || r == RoleStaff
}

// Employee represents an employee account belonging to a business.
// The owner is created inactive and unverified at registration; a
// verification step flips IsActive/IsVerified before login is possible.
type Employee struct {
	ID              string       `db:"id" json:"id"`
	FullName        string       `db:"full_name" json:"full_name"`
	Email           string       `db:"email" json:"email"`
	PasswordHash    string       `db:"password_hash" json:"-"`
	BusinessID      string       `db:"business_id" json:"business_id"`
	Role            EmployeeRole `db:"role" json:"role"`
	IsActive        bool         `db:"is_active" json:"is_active"`
	IsVerified      bool         `db:"is_verified" json:"is_verified"`
	EmailVerifiedAt *time.Time   `db:"email_verified_at" json:"email_verified_at,omitempty"`
	CreatedAt       time.Time    `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time    `db:"updated_at" json:"updated_at"`
}
