package authgate

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/MrEthical07/authgate/password"
	"github.com/MrEthical07/authgate/provider"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

type testStore struct {
	mu       sync.Mutex
	nextID   int64
	users    map[int64]*provider.User
	accounts []*provider.Account
	orgs     map[int64]*provider.Organization
	roles    map[int64]string
}

func newTestStore() *testStore {
	return &testStore{
		users: make(map[int64]*provider.User),
		orgs:  make(map[int64]*provider.Organization),
		roles: make(map[int64]string),
	}
}

func (s *testStore) UserByEmail(_ context.Context, email string) (*provider.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if strings.EqualFold(u.Email, email) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, provider.ErrNotFound
}

func (s *testStore) UserByID(_ context.Context, id int64) (*provider.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, provider.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (s *testStore) CreateUser(_ context.Context, u *provider.User) (*provider.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	cp := *u
	cp.ID = s.nextID
	cp.CreatedAt = time.Now()
	cp.UpdatedAt = cp.CreatedAt
	s.users[cp.ID] = &cp
	out := cp
	return &out, nil
}

func (s *testStore) MarkEmailVerified(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return provider.ErrNotFound
	}
	u.EmailVerified = true
	return nil
}

func (s *testStore) CredentialAccount(_ context.Context, userID int64) (*provider.Account, error) {
	return s.find(func(a *provider.Account) bool {
		return a.UserID == userID && a.ProviderID == provider.ProviderCredential
	})
}

func (s *testStore) AccountByProvider(_ context.Context, providerID, accountID string) (*provider.Account, error) {
	return s.find(func(a *provider.Account) bool {
		return a.ProviderID == providerID && a.AccountID == accountID
	})
}

func (s *testStore) find(match func(*provider.Account) bool) (*provider.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.accounts {
		if match(a) {
			cp := *a
			return &cp, nil
		}
	}
	return nil, provider.ErrNotFound
}

func (s *testStore) LinkAccount(_ context.Context, a *provider.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *a
	cp.ID = int64(len(s.accounts) + 1)
	s.accounts = append(s.accounts, &cp)
	return nil
}

func (s *testStore) UpdatePasswordHash(_ context.Context, userID int64, hash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.accounts {
		if a.UserID == userID && a.ProviderID == provider.ProviderCredential {
			a.PasswordHash = hash
			return nil
		}
	}
	return provider.ErrNotFound
}

func (s *testStore) OrganizationByID(_ context.Context, id int64) (*provider.Organization, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orgs[id]
	if !ok {
		return nil, provider.ErrNotFound
	}
	cp := *o
	return &cp, nil
}

func (s *testStore) IsMember(_ context.Context, orgID, userID int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userID]
	return ok && u.OrganizationID == orgID, nil
}

func (s *testStore) FindUserRole(_ context.Context, userID int64) (*provider.Role, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.roles[userID]
	if !ok {
		return nil, nil
	}
	return &provider.Role{Role: r}, nil
}

type sentMessage struct {
	to, subject, html string
}

type recordingMailer struct {
	mu   sync.Mutex
	sent []sentMessage
	err  error
}

func (m *recordingMailer) Send(_ context.Context, to, subject, html string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, sentMessage{to: to, subject: subject, html: html})
	return nil
}

func (m *recordingMailer) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sent)
}

type testAuth struct {
	*Auth
	store  *testStore
	mailer *recordingMailer
	mr     *miniredis.Miniredis
	hasher *password.Argon2
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.App.BaseURL = "https://api.example.com"
	cfg.App.Secret = []byte("0123456789abcdef0123456789abcdef")
	return cfg
}

func newTestAuth(t testing.TB, configure func(*Builder)) *testAuth {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	hasher, err := password.NewArgon2(password.Config{
		Memory:      8 * 1024,
		Time:        1,
		Parallelism: 1,
		SaltLength:  16,
		KeyLength:   32,
	})
	if err != nil {
		t.Fatalf("NewArgon2: %v", err)
	}

	store := newTestStore()
	mailer := &recordingMailer{}
	b := New().
		WithConfig(testConfig()).
		WithRedis(client).
		WithStore(store).
		WithPasswordHasher(hasher).
		WithMailer(mailer).
		WithHeaderStore(NewHeaderStore())
	if configure != nil {
		configure(b)
	}
	a, err := b.Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	t.Cleanup(a.Close)
	return &testAuth{Auth: a, store: store, mailer: mailer, mr: mr, hasher: hasher}
}

func (ta *testAuth) seedUser(t testing.TB, u provider.User, pw string) *provider.User {
	t.Helper()
	created, err := ta.store.CreateUser(context.Background(), &u)
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	hash, err := ta.hasher.Hash(pw)
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	if err := ta.store.LinkAccount(context.Background(), &provider.Account{
		UserID:       created.ID,
		ProviderID:   provider.ProviderCredential,
		AccountID:    strconv.FormatInt(created.ID, 10),
		PasswordHash: hash,
	}); err != nil {
		t.Fatalf("LinkAccount: %v", err)
	}
	return created
}

func (ta *testAuth) do(t testing.TB, method, path, body string, header http.Header) *httptest.ResponseRecorder {
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
	ta.Handler().ServeHTTP(rec, req)
	return rec
}

// signIn returns the Cookie header value of a fresh session.
func (ta *testAuth) signIn(t testing.TB, email, pw string) string {
	t.Helper()
	rec := ta.do(t, http.MethodPost, "/api/auth/sign-in/email", `{"email":"`+email+`","password":"`+pw+`"}`, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("sign-in status = %d body=%s", rec.Code, rec.Body.String())
	}
	name := ta.Provider().SessionCookieName()
	for _, c := range rec.Result().Cookies() {
		if c.Name == name {
			return c.Name + "=" + c.Value
		}
	}
	t.Fatal("no session cookie")
	return ""
}
