package models

import "time"

// RefreshToken is the persisted, revocable half of a credential pair.
// The token string is opaque random data; validity is a stored property,
// unlike access tokens which are validated purely by signature.
type RefreshToken struct {
	ID        string     `json:"id"`
	Token     string     `json:"token"`
	UserID    string     `json:"user_id"`
	ExpiresAt time.Time  `json:"expires_at"`
	Revoked   bool       `json:"revoked"`
	CreatedAt time.Time  `json:"created_at"`
	RevokedAt *time.Time `json:"revoked_at,omitempty"`
}

// IsExpired reports whether the token has passed its expiry at the given
// instant. An expiry exactly equal to now counts as expired.
func (t *RefreshToken) IsExpired(now time.Time) bool {
	return !now.Before(t.ExpiresAt)
}

// IsUsable reports whether the token can still be exchanged for a new pair.
func (t *RefreshToken) IsUsable(now time.Time) bool {
	return !t.Revoked && !t.IsExpired(now)
}
