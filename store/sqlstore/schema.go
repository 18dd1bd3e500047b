package sqlstore

import (
	"fmt"
	"regexp"
)

// Schema names the tables and columns the store reads and writes.
type Schema struct {
	Users         UserTable
	Accounts      AccountTable
	Organizations OrganizationTable
	Members       MemberTable
	Roles         RoleTable
}

type UserTable struct {
	Table          string
	ID             string
	Email          string
	Name           string
	EmailVerified  string
	Image          string
	OrganizationID string
	CreatedAt      string
	UpdatedAt      string
}

type AccountTable struct {
	Table        string
	ID           string
	UserID       string
	ProviderID   string
	AccountID    string
	Password     string
	AccessToken  string
	RefreshToken string
	IDToken      string
	CreatedAt    string
	UpdatedAt    string
}

type OrganizationTable struct {
	Table     string
	ID        string
	Name      string
	Slug      string
	Logo      string
	CreatedAt string
}

type MemberTable struct {
	Table          string
	OrganizationID string
	UserID         string
}

type RoleTable struct {
	Table  string
	UserID string
	Role   string
}

// DefaultSchema is the application schema: users.first_name holds the display name.
func DefaultSchema() Schema {
	return Schema{
		Users: UserTable{
			Table:          "users",
			ID:             "id",
			Email:          "email",
			Name:           "first_name",
			EmailVerified:  "email_verified",
			Image:          "image",
			OrganizationID: "organization_id",
			CreatedAt:      "created_at",
			UpdatedAt:      "updated_at",
		},
		Accounts: AccountTable{
			Table:        "accounts",
			ID:           "id",
			UserID:       "user_id",
			ProviderID:   "provider_id",
			AccountID:    "account_id",
			Password:     "password",
			AccessToken:  "access_token",
			RefreshToken: "refresh_token",
			IDToken:      "id_token",
			CreatedAt:    "created_at",
			UpdatedAt:    "updated_at",
		},
		Organizations: OrganizationTable{
			Table:     "organizations",
			ID:        "id",
			Name:      "name",
			Slug:      "slug",
			Logo:      "logo",
			CreatedAt: "created_at",
		},
		Members: MemberTable{
			Table:          "members",
			OrganizationID: "organization_id",
			UserID:         "user_id",
		},
		Roles: RoleTable{
			Table:  "user_roles",
			UserID: "user_id",
			Role:   "role",
		},
	}
}

var identRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// validate rejects anything that is not a bare SQL identifier; names are spliced into
// query text.
func (s Schema) validate() error {
	u, a, o, m, r := s.Users, s.Accounts, s.Organizations, s.Members, s.Roles
	for _, name := range []string{
		u.Table, u.ID, u.Email, u.Name, u.EmailVerified, u.Image, u.OrganizationID, u.CreatedAt, u.UpdatedAt,
		a.Table, a.ID, a.UserID, a.ProviderID, a.AccountID, a.Password, a.AccessToken, a.RefreshToken, a.IDToken, a.CreatedAt, a.UpdatedAt,
		o.Table, o.ID, o.Name, o.Slug, o.Logo, o.CreatedAt,
		m.Table, m.OrganizationID, m.UserID,
		r.Table, r.UserID, r.Role,
	} {
		if !identRe.MatchString(name) {
			return fmt.Errorf("%w: %q is not a valid identifier", ErrInvalidSchema, name)
		}
	}
	return nil
}
