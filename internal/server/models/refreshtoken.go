package models

import "time"

// RefreshToken is a server-side session record. Revoked only ever moves from
// false to true; User is filled in when the row is read together with its
// owner.
type RefreshToken struct {
	ID        string
	UserID    string
	Token     string
	Revoked   bool
	CreatedAt time.Time
	ExpiresAt time.Time
	User      *User
}

// IsActive reports whether the token can still be exchanged at now.
// A token whose expiry equals now is already expired.
func (t *RefreshToken) IsActive(now time.Time) bool {
	return !t.Revoked && now.Before(t.ExpiresAt)
}
