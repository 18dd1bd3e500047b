package provider

import "context"

// UserStore persists users. Lookups return ErrNotFound when nothing matches.
type UserStore interface {
	UserByEmail(ctx context.Context, email string) (*User, error)
	UserByID(ctx context.Context, id int64) (*User, error)
	// CreateUser inserts u and returns it with ID and timestamps assigned.
	CreateUser(ctx context.Context, u *User) (*User, error)
	MarkEmailVerified(ctx context.Context, id int64) error
}

// AccountStore persists credential and social accounts.
type AccountStore interface {
	CredentialAccount(ctx context.Context, userID int64) (*Account, error)
	AccountByProvider(ctx context.Context, providerID, accountID string) (*Account, error)
	LinkAccount(ctx context.Context, a *Account) error
	UpdatePasswordHash(ctx context.Context, userID int64, hash string) error
}

type OrganizationStore interface {
	OrganizationByID(ctx context.Context, id int64) (*Organization, error)
	IsMember(ctx context.Context, orgID, userID int64) (bool, error)
}

// RoleLookup resolves the role attached to sessions. A nil role with a nil error means none.
type RoleLookup interface {
	FindUserRole(ctx context.Context, userID int64) (*Role, error)
}

// PasswordHasher is satisfied by *password.Hasher and *password.Argon2.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(password, encodedHash string) (bool, error)
	NeedsUpgrade(encodedHash string) (bool, error)
}
