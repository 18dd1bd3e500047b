package session

import "time"

// Session is a provider-issued, time-bounded proof of authentication tied to one user.
// ExpiresAt is the only field that changes after issuance (sliding renewal).
type Session struct {
	ID                   string    `json:"id"`
	TokenHash            [32]byte  `json:"token_hash"`
	UserID               int64     `json:"user_id"`
	CreatedAt            time.Time `json:"created_at"`
	UpdatedAt            time.Time `json:"updated_at"`
	ExpiresAt            time.Time `json:"expires_at"`
	IPAddress            string    `json:"ip_address,omitempty"`
	UserAgent            string    `json:"user_agent,omitempty"`
	ActiveOrganizationID *int64    `json:"active_organization_id,omitempty"`
}

// Expired reports whether the session is past its expiry at now.
func (s *Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.After(now)
}
