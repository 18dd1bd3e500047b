package sqlstore

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/MrEthical07/authgate/provider"
	_ "modernc.org/sqlite"
)

// ErrInvalidSchema is returned by New for table or column names that are not plain
// identifiers.
var ErrInvalidSchema = errors.New("invalid schema")

// ReferenceDDL creates the tables of DefaultSchema.
//
//go:embed schema.sql
var ReferenceDDL string

func toMillis(t time.Time) int64 {
	return t.UTC().UnixMilli()
}

func fromMillis(v int64) time.Time {
	return time.UnixMilli(v).UTC()
}

// Store implements provider.UserStore, provider.AccountStore,
// provider.OrganizationStore, provider.RoleLookup and authgate.UserExistence.
type Store struct {
	db  *sql.DB
	q   queries
	now func() time.Time
}

// Open opens a SQLite database file. ":memory:" opens a private in-memory database
// on a single connection.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}

	memory := path == ":memory:"
	dsn := path
	if !memory {
		dsn = filepath.Clean(path)
	}
	dsn += "?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)"
	if !memory {
		dsn += "&_pragma=journal_mode(WAL)"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if memory {
		db.SetMaxOpenConns(1)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}

	s, err := New(db, DefaultSchema())
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// New wraps an open database. The caller keeps ownership of schema management.
func New(db *sql.DB, schema Schema) (*Store, error) {
	if db == nil {
		return nil, errors.New("sqlstore: nil db")
	}
	if err := schema.validate(); err != nil {
		return nil, err
	}
	return &Store{db: db, q: buildQueries(schema), now: time.Now}, nil
}

// DB returns the underlying handle.
func (s *Store) DB() *sql.DB {
	if s == nil {
		return nil
	}
	return s.db
}

// CreateTables applies ReferenceDDL. Only meaningful with DefaultSchema on an empty
// database; production schemas are migrated by the application.
func (s *Store) CreateTables(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, ReferenceDDL); err != nil {
		return fmt.Errorf("create tables: %w", err)
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanUser(row scanner) (*provider.User, error) {
	var (
		u              provider.User
		name, image    sql.NullString
		organizationID sql.NullInt64
		created        int64
		updated        int64
	)
	err := row.Scan(&u.ID, &u.Email, &name, &u.EmailVerified, &image, &organizationID, &created, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, provider.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan user: %w", err)
	}
	u.Name = name.String
	u.Image = image.String
	u.OrganizationID = organizationID.Int64
	u.CreatedAt = fromMillis(created)
	u.UpdatedAt = fromMillis(updated)
	return &u, nil
}

func scanAccount(row scanner) (*provider.Account, error) {
	var (
		a                                provider.Account
		password, access, refresh, idTok sql.NullString
		created, updated                 int64
	)
	err := row.Scan(&a.ID, &a.UserID, &a.ProviderID, &a.AccountID, &password, &access, &refresh, &idTok, &created, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, provider.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan account: %w", err)
	}
	a.PasswordHash = password.String
	a.AccessToken = access.String
	a.RefreshToken = refresh.String
	a.IDToken = idTok.String
	a.CreatedAt = fromMillis(created)
	a.UpdatedAt = fromMillis(updated)
	return &a, nil
}

func nullString(v string) sql.NullString {
	return sql.NullString{String: v, Valid: v != ""}
}

func nullInt64(v int64) sql.NullInt64 {
	return sql.NullInt64{Int64: v, Valid: v != 0}
}

/*
====================================
USERS
====================================
*/

func (s *Store) UserByEmail(ctx context.Context, email string) (*provider.User, error) {
	return scanUser(s.db.QueryRowContext(ctx, s.q.userByEmail, email))
}

func (s *Store) UserByID(ctx context.Context, id int64) (*provider.User, error) {
	return scanUser(s.db.QueryRowContext(ctx, s.q.userByID, id))
}

// UserExistsByEmail matches emails case-insensitively.
func (s *Store) UserExistsByEmail(ctx context.Context, email string) (bool, error) {
	var exists bool
	if err := s.db.QueryRowContext(ctx, s.q.userExists, email).Scan(&exists); err != nil {
		return false, fmt.Errorf("user exists: %w", err)
	}
	return exists, nil
}

func (s *Store) CreateUser(ctx context.Context, u *provider.User) (*provider.User, error) {
	now := s.now().UTC().Truncate(time.Millisecond)
	res, err := s.db.ExecContext(ctx, s.q.insertUser,
		u.Email, nullString(u.Name), u.EmailVerified, nullString(u.Image), nullInt64(u.OrganizationID),
		toMillis(now), toMillis(now))
	if err != nil {
		return nil, fmt.Errorf("insert user: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("insert user: %w", err)
	}
	out := *u
	out.ID = id
	out.Role = nil
	out.CreatedAt = now
	out.UpdatedAt = now
	return &out, nil
}

func (s *Store) MarkEmailVerified(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, s.q.markVerified, toMillis(s.now()), id)
	if err != nil {
		return fmt.Errorf("mark email verified: %w", err)
	}
	return expectRow(res)
}

/*
====================================
ACCOUNTS
====================================
*/

func (s *Store) CredentialAccount(ctx context.Context, userID int64) (*provider.Account, error) {
	return scanAccount(s.db.QueryRowContext(ctx, s.q.credentialAcct, userID, provider.ProviderCredential))
}

func (s *Store) AccountByProvider(ctx context.Context, providerID, accountID string) (*provider.Account, error) {
	return scanAccount(s.db.QueryRowContext(ctx, s.q.accountByProv, providerID, accountID))
}

// LinkAccount inserts a and sets its ID and timestamps.
func (s *Store) LinkAccount(ctx context.Context, a *provider.Account) error {
	now := s.now().UTC().Truncate(time.Millisecond)
	res, err := s.db.ExecContext(ctx, s.q.insertAccount,
		a.UserID, a.ProviderID, a.AccountID,
		nullString(a.PasswordHash), nullString(a.AccessToken), nullString(a.RefreshToken), nullString(a.IDToken),
		toMillis(now), toMillis(now))
	if err != nil {
		return fmt.Errorf("insert account: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("insert account: %w", err)
	}
	a.ID = id
	a.CreatedAt = now
	a.UpdatedAt = now
	return nil
}

func (s *Store) UpdatePasswordHash(ctx context.Context, userID int64, hash string) error {
	res, err := s.db.ExecContext(ctx, s.q.updatePassword, hash, toMillis(s.now()), userID, provider.ProviderCredential)
	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	return expectRow(res)
}

/*
====================================
ORGANIZATIONS / ROLES
====================================
*/

func (s *Store) OrganizationByID(ctx context.Context, id int64) (*provider.Organization, error) {
	var (
		o          provider.Organization
		slug, logo sql.NullString
		created    int64
	)
	err := s.db.QueryRowContext(ctx, s.q.organizationByID, id).Scan(&o.ID, &o.Name, &slug, &logo, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, provider.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("organization: %w", err)
	}
	o.Slug = slug.String
	o.Logo = logo.String
	o.CreatedAt = fromMillis(created)
	return &o, nil
}

// IsMember accepts a members row or the user's own organization reference.
func (s *Store) IsMember(ctx context.Context, orgID, userID int64) (bool, error) {
	var ok bool
	if err := s.db.QueryRowContext(ctx, s.q.isMember, orgID, userID, userID, orgID).Scan(&ok); err != nil {
		return false, fmt.Errorf("membership: %w", err)
	}
	return ok, nil
}

// FindUserRole returns nil without error when the user has no role row.
func (s *Store) FindUserRole(ctx context.Context, userID int64) (*provider.Role, error) {
	var role string
	err := s.db.QueryRowContext(ctx, s.q.findRole, userID).Scan(&role)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find user role: %w", err)
	}
	return &provider.Role{Role: role}, nil
}

func expectRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return provider.ErrNotFound
	}
	return nil
}
