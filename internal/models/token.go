package models

import "time"

// RefreshToken is the persisted session record backing a refresh token.
// Rows are append-only: the only mutation ever applied is setting RevokedAt
// once, on logout. Expired and revoked rows are kept as an audit trail.
type RefreshToken struct {
	JTI        string     `db:"jti" json:"jti"`
	EmployeeID string     `db:"employee_id" json:"employee_id"`
	ExpiresAt  time.Time  `db:"expires_at" json:"expires_at"`
	RevokedAt  *time.Time `db:"revoked_at" json:"revoked_at,omitempty"`
	CreatedAt  time.Time  `db:"created_at" json:"created_at"`
}

// Revoked reports whether the session has been explicitly ended.
func (t *RefreshToken) Revoked() bool {
	return t.RevokedAt != nil
}

// ValidAt reports whether the session is live at the given instant:
// not revoked and not past its expiry.
func (t *RefreshToken) ValidAt(now time.Time) bool {
	return t.RevokedAt == nil && t.ExpiresAt.After(now)
}
