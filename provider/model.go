package provider

import (
	"time"

	"github.com/MrEthical07/authgate/session"
)

// ProviderCredential is the account provider id for email and password accounts.
const ProviderCredential = "credential"

// Role is the descriptor returned by a RoleLookup.
type Role struct {
	Role string `json:"role"`
}

// User is owned by the UserStore. OrganizationID is zero when the user belongs to none.
type User struct {
	ID             int64     `json:"id"`
	Email          string    `json:"email"`
	Name           string    `json:"name,omitempty"`
	EmailVerified  bool      `json:"emailVerified"`
	Image          string    `json:"image,omitempty"`
	OrganizationID int64     `json:"organizationId,omitempty"`
	Role           *Role     `json:"role,omitempty"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// Account links a user to a credential or an external identity.
type Account struct {
	ID           int64     `json:"id"`
	UserID       int64     `json:"userId"`
	ProviderID   string    `json:"providerId"`
	AccountID    string    `json:"accountId"`
	PasswordHash string    `json:"-"`
	AccessToken  string    `json:"-"`
	RefreshToken string    `json:"-"`
	IDToken      string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

type Organization struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Slug      string    `json:"slug,omitempty"`
	Logo      string    `json:"logo,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// Session is the client-visible view of a stored session. The token hash never leaves the store.
type Session struct {
	ID                   string    `json:"id"`
	UserID               int64     `json:"userId"`
	CreatedAt            time.Time `json:"createdAt"`
	UpdatedAt            time.Time `json:"updatedAt"`
	ExpiresAt            time.Time `json:"expiresAt"`
	IPAddress            string    `json:"ipAddress,omitempty"`
	UserAgent            string    `json:"userAgent,omitempty"`
	ActiveOrganizationID *int64    `json:"activeOrganizationId,omitempty"`
}

// SessionData is the (user, session) pair returned by GetSession.
type SessionData struct {
	User    *User    `json:"user"`
	Session *Session `json:"session"`
}

func sessionView(s *session.Session) *Session {
	if s == nil {
		return nil
	}
	return &Session{
		ID:                   s.ID,
		UserID:               s.UserID,
		CreatedAt:            s.CreatedAt,
		UpdatedAt:            s.UpdatedAt,
		ExpiresAt:            s.ExpiresAt,
		IPAddress:            s.IPAddress,
		UserAgent:            s.UserAgent,
		ActiveOrganizationID: s.ActiveOrganizationID,
	}
}
