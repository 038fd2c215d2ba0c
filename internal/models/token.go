package models

import "time"

// BlacklistedToken is a session token explicitly revoked before its natural
// expiry. A matching, non-expired row invalidates an otherwise-valid token.
type BlacklistedToken struct {
	ID        string    `db:"id" json:"id"`
	UserID    string    `db:"user_id" json:"user_id"`
	Token     string    `db:"token" json:"-"`
	ExpiresAt time.Time `db:"expires_at" json:"expires_at"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
