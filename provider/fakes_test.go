package provider

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/MrEthical07/authgate/password"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

type memStore struct {
	mu       sync.Mutex
	nextUser int64
	users    map[int64]*User
	accounts []*Account
	orgs     map[int64]*Organization
	roles    map[int64]string
}

func newMemStore() *memStore {
	return &memStore{
		users: make(map[int64]*User),
		orgs:  make(map[int64]*Organization),
		roles: make(map[int64]string),
	}
}

func (m *memStore) UserByEmail(_ context.Context, email string) (*User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if strings.EqualFold(u.Email, email) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (m *memStore) UserByID(_ context.Context, id int64) (*User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *memStore) CreateUser(_ context.Context, u *User) (*User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextUser++
	cp := *u
	cp.ID = m.nextUser
	cp.CreatedAt = time.Now()
	cp.UpdatedAt = cp.CreatedAt
	m.users[cp.ID] = &cp
	out := cp
	return &out, nil
}

func (m *memStore) MarkEmailVerified(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return ErrNotFound
	}
	u.EmailVerified = true
	return nil
}

func (m *memStore) CredentialAccount(_ context.Context, userID int64) (*Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.accounts {
		if a.UserID == userID && a.ProviderID == ProviderCredential {
			cp := *a
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (m *memStore) AccountByProvider(_ context.Context, providerID, accountID string) (*Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.accounts {
		if a.ProviderID == providerID && a.AccountID == accountID {
			cp := *a
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (m *memStore) LinkAccount(_ context.Context, a *Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *a
	cp.ID = int64(len(m.accounts) + 1)
	m.accounts = append(m.accounts, &cp)
	return nil
}

func (m *memStore) UpdatePasswordHash(_ context.Context, userID int64, hash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.accounts {
		if a.UserID == userID && a.ProviderID == ProviderCredential {
			a.PasswordHash = hash
			return nil
		}
	}
	return ErrNotFound
}

func (m *memStore) OrganizationByID(_ context.Context, id int64) (*Organization, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orgs[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *o
	return &cp, nil
}

func (m *memStore) IsMember(_ context.Context, orgID, userID int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[userID]
	return ok && u.OrganizationID == orgID, nil
}

func (m *memStore) FindUserRole(_ context.Context, userID int64) (*Role, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.roles[userID]
	if !ok {
		return nil, nil
	}
	return &Role{Role: r}, nil
}

// seedUser inserts a user with a credential account for pw.
func (m *memStore) seedUser(t *testing.T, h PasswordHasher, u User, pw string) *User {
	t.Helper()
	created, err := m.CreateUser(context.Background(), &u)
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	hash, err := h.Hash(pw)
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	if err := m.LinkAccount(context.Background(), &Account{
		UserID:       created.ID,
		ProviderID:   ProviderCredential,
		AccountID:    formatID(created.ID),
		PasswordHash: hash,
	}); err != nil {
		t.Fatalf("LinkAccount: %v", err)
	}
	return created
}

type sentMail struct {
	to  string
	url string
}

type mailbox struct {
	mu   sync.Mutex
	sent []sentMail
}

func (mb *mailbox) send(_ context.Context, u *User, link string) error {
	mb.mu.Lock()
	defer mb.mu.Unlock()
	mb.sent = append(mb.sent, sentMail{to: u.Email, url: link})
	return nil
}

func (mb *mailbox) last(t *testing.T) sentMail {
	t.Helper()
	mb.mu.Lock()
	defer mb.mu.Unlock()
	if len(mb.sent) == 0 {
		t.Fatal("no mail sent")
	}
	return mb.sent[len(mb.sent)-1]
}

func (mb *mailbox) count() int {
	mb.mu.Lock()
	defer mb.mu.Unlock()
	return len(mb.sent)
}

type fakeSocial struct {
	id      string
	profile *SocialProfile
	err     error
}

func (f *fakeSocial) ID() string { return f.id }

func (f *fakeSocial) AuthCodeURL(state string) string {
	return "https://idp.example.com/auth?state=" + url.QueryEscape(state)
}

func (f *fakeSocial) Exchange(context.Context, string) (*SocialProfile, error) {
	if f.err != nil {
		return nil, f.err
	}
	cp := *f.profile
	return &cp, nil
}

type testEnv struct {
	provider *Provider
	store    *memStore
	resetBox *mailbox
	verifBox *mailbox
	redis    *miniredis.Miniredis
	hasher   PasswordHasher
}

func testHasher(t *testing.T) PasswordHasher {
	t.Helper()
	h, err := password.NewArgon2(password.Config{
		Memory:      8 * 1024,
		Time:        1,
		Parallelism: 1,
		SaltLength:  16,
		KeyLength:   32,
	})
	if err != nil {
		t.Fatalf("NewArgon2: %v", err)
	}
	return h
}

func newTestEnv(t *testing.T, mutate func(*Options)) *testEnv {
	t.Helper()

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	env := &testEnv{
		store:    newMemStore(),
		resetBox: &mailbox{},
		verifBox: &mailbox{},
		redis:    mr,
		hasher:   testHasher(t),
	}

	opts := DefaultOptions()
	opts.BaseURL = "https://api.example.com"
	opts.TrustedOrigins = []string{"http://localhost:3000"}
	opts.Secret = []byte("0123456789abcdef0123456789abcdef")
	opts.Redis = rdb
	opts.Users = env.store
	opts.Accounts = env.store
	opts.Organizations = env.store
	opts.Roles = env.store
	opts.Hasher = env.hasher
	opts.EmailAndPassword.SendResetPassword = env.resetBox.send
	opts.EmailVerification.SendVerificationEmail = env.verifBox.send
	if mutate != nil {
		mutate(&opts)
	}

	p, err := New(opts)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	env.provider = p
	return env
}

func (e *testEnv) do(t *testing.T, method, path, body string, header http.Header) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	rec := httptest.NewRecorder()
	e.provider.Handler().ServeHTTP(rec, req)
	return rec
}

func sessionCookieFrom(t *testing.T, rec *httptest.ResponseRecorder, name string) *http.Cookie {
	t.Helper()
	for _, c := range rec.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	t.Fatalf("cookie %s not set", name)
	return nil
}

func cookieHeader(c *http.Cookie) http.Header {
	h := http.Header{}
	h.Set("Cookie", c.Name+"="+c.Value)
	return h
}
