package sqlstore

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/MrEthical07/authgate/provider"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2026, 2, 3, 4, 5, 6, 7_000_000, time.UTC)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	require.NoError(t, s.CreateTables(context.Background()))
	s.now = func() time.Time { return fixedNow }
	return s
}

func TestOpenRequiresPath(t *testing.T) {
	_, err := Open("  ")
	require.Error(t, err)
}

func TestOpenFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "auth.db")
	s, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s.Ping(context.Background()))
	require.NoError(t, s.Close())
}

func TestNilStoreIsSafe(t *testing.T) {
	var s *Store
	assert.Nil(t, s.DB())
	assert.NoError(t, s.Close())
}

func TestNewRejectsBadIdentifiers(t *testing.T) {
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	schema := DefaultSchema()
	schema.Users.Name = "first_name; DROP TABLE users"
	_, err = New(db, schema)
	require.ErrorIs(t, err, ErrInvalidSchema)

	_, err = New(nil, DefaultSchema())
	require.Error(t, err)
}

func TestUserRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	created, err := s.CreateUser(ctx, &provider.User{Email: "Ada@Example.com", Name: "Ada"})
	require.NoError(t, err)
	assert.NotZero(t, created.ID)
	assert.True(t, created.CreatedAt.Equal(fixedNow.Truncate(time.Millisecond)))

	byEmail, err := s.UserByEmail(ctx, "ada@example.com")
	require.NoError(t, err)
	assert.Equal(t, created.ID, byEmail.ID)
	assert.Equal(t, "Ada", byEmail.Name)
	assert.False(t, byEmail.EmailVerified)
	assert.Zero(t, byEmail.OrganizationID)
	assert.True(t, byEmail.CreatedAt.Equal(created.CreatedAt))

	require.NoError(t, s.MarkEmailVerified(ctx, created.ID))
	byID, err := s.UserByID(ctx, created.ID)
	require.NoError(t, err)
	assert.True(t, byID.EmailVerified)

	exists, err := s.UserExistsByEmail(ctx, "ADA@example.COM")
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = s.UserExistsByEmail(ctx, "nobody@example.com")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestUserNotFound(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	_, err := s.UserByEmail(ctx, "missing@example.com")
	assert.ErrorIs(t, err, provider.ErrNotFound)
	_, err = s.UserByID(ctx, 404)
	assert.ErrorIs(t, err, provider.ErrNotFound)
	assert.ErrorIs(t, s.MarkEmailVerified(ctx, 404), provider.ErrNotFound)
}

func TestAccounts(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	u, err := s.CreateUser(ctx, &provider.User{Email: "a@example.com"})
	require.NoError(t, err)

	cred := &provider.Account{UserID: u.ID, ProviderID: provider.ProviderCredential, AccountID: "1", PasswordHash: "hash-1"}
	require.NoError(t, s.LinkAccount(ctx, cred))
	assert.NotZero(t, cred.ID)

	google := &provider.Account{UserID: u.ID, ProviderID: "google", AccountID: "sub-123", AccessToken: "at", IDToken: "idt"}
	require.NoError(t, s.LinkAccount(ctx, google))

	got, err := s.CredentialAccount(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "hash-1", got.PasswordHash)
	assert.Empty(t, got.AccessToken)

	got, err = s.AccountByProvider(ctx, "google", "sub-123")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.UserID)
	assert.Equal(t, "at", got.AccessToken)
	assert.Equal(t, "idt", got.IDToken)

	require.NoError(t, s.UpdatePasswordHash(ctx, u.ID, "hash-2"))
	got, err = s.CredentialAccount(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "hash-2", got.PasswordHash)

	_, err = s.AccountByProvider(ctx, "google", "other")
	assert.ErrorIs(t, err, provider.ErrNotFound)
	assert.ErrorIs(t, s.UpdatePasswordHash(ctx, 404, "x"), provider.ErrNotFound)
}

func TestOrganizationsAndRoles(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	db := s.DB()

	_, err := db.Exec(`INSERT INTO organizations (id, name, slug, created_at) VALUES (42, 'Acme', 'acme', ?), (7, 'Other', NULL, ?)`,
		toMillis(fixedNow), toMillis(fixedNow))
	require.NoError(t, err)

	owner, err := s.CreateUser(ctx, &provider.User{Email: "owner@example.com", OrganizationID: 42})
	require.NoError(t, err)
	guest, err := s.CreateUser(ctx, &provider.User{Email: "guest@example.com"})
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO members (organization_id, user_id) VALUES (7, ?)`, guest.ID)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO user_roles (user_id, role) VALUES (?, 'ADMIN')`, owner.ID)
	require.NoError(t, err)

	org, err := s.OrganizationByID(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, "Acme", org.Name)
	assert.Equal(t, "acme", org.Slug)
	_, err = s.OrganizationByID(ctx, 1)
	assert.ErrorIs(t, err, provider.ErrNotFound)

	for _, tc := range []struct {
		name   string
		org    int64
		user   int64
		member bool
	}{
		{"own organization", 42, owner.ID, true},
		{"members row", 7, guest.ID, true},
		{"unrelated", 42, guest.ID, false},
		{"other organization", 7, owner.ID, false},
	} {
		t.Run(tc.name, func(t *testing.T) {
			ok, err := s.IsMember(ctx, tc.org, tc.user)
			require.NoError(t, err)
			assert.Equal(t, tc.member, ok)
		})
	}

	role, err := s.FindUserRole(ctx, owner.ID)
	require.NoError(t, err)
	require.NotNil(t, role)
	assert.Equal(t, "ADMIN", role.Role)

	role, err = s.FindUserRole(ctx, guest.ID)
	require.NoError(t, err)
	assert.Nil(t, role)
}

func TestCustomSchema(t *testing.T) {
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	_, err = db.Exec(`CREATE TABLE people (
		pk INTEGER PRIMARY KEY AUTOINCREMENT,
		mail TEXT NOT NULL,
		display TEXT,
		verified INTEGER NOT NULL DEFAULT 0,
		avatar TEXT,
		org INTEGER,
		created INTEGER NOT NULL,
		updated INTEGER NOT NULL
	)`)
	require.NoError(t, err)

	schema := DefaultSchema()
	schema.Users = UserTable{
		Table: "people", ID: "pk", Email: "mail", Name: "display", EmailVerified: "verified",
		Image: "avatar", OrganizationID: "org", CreatedAt: "created", UpdatedAt: "updated",
	}
	s, err := New(db, schema)
	require.NoError(t, err)

	u, err := s.CreateUser(context.Background(), &provider.User{Email: "x@example.com", Name: "X"})
	require.NoError(t, err)
	got, err := s.UserByID(context.Background(), u.ID)
	require.NoError(t, err)
	assert.Equal(t, "X", got.Name)
}

func TestCreateTablesIsIdempotent(t *testing.T) {
	s := openTestStore(t)
	require.NoError(t, s.CreateTables(context.Background()))
}
