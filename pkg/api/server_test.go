package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gorilla/mux"
	"github.com/stretchr/testify/require"

	"github.com/scrcr/scrcr-server/pkg/audit"
	"github.com/scrcr/scrcr-server/pkg/auth"
	"github.com/scrcr/scrcr-server/pkg/config"
	"github.com/scrcr/scrcr-server/pkg/middleware"
	"github.com/scrcr/scrcr-server/pkg/observability"
)

// fakeAccounts is an in-memory CredentialStore backing the API tests.
type fakeAccounts struct {
	mu       sync.Mutex
	accounts map[int64]*auth.Account
	nextID   int64
}

func newFakeAccounts() *fakeAccounts {
	return &fakeAccounts{accounts: make(map[int64]*auth.Account), nextID: 1}
}

func (s *fakeAccounts) seed(t *testing.T, username, password string, role auth.Role, status auth.Status) *auth.Account {
	t.Helper()
	hash, err := auth.HashPassword(password)
	require.NoError(t, err)
	s.mu.Lock()
	defer s.mu.Unlock()
	a := &auth.Account{
		ID:           s.nextID,
		Username:     username,
		Email:        username + "@example.org",
		PasswordHash: hash,
		Role:         role,
		Status:       status,
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	}
	s.accounts[a.ID] = a
	s.nextID++
	return a
}

func (s *fakeAccounts) FindByUsername(_ context.Context, username string) (*auth.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.accounts {
		if a.Username == username {
			copied := *a
			return &copied, nil
		}
	}
	return nil, auth.ErrAccountNotFound
}

func (s *fakeAccounts) FindByID(_ context.Context, id int64) (*auth.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.accounts[id]
	if !ok {
		return nil, auth.ErrAccountNotFound
	}
	copied := *a
	return &copied, nil
}

func (s *fakeAccounts) Create(_ context.Context, account *auth.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.accounts {
		if a.Username == account.Username || a.Email == account.Email {
			return auth.ErrDuplicateKey
		}
	}
	account.ID = s.nextID
	account.CreatedAt = time.Now()
	account.UpdatedAt = time.Now()
	s.accounts[account.ID] = account
	s.nextID++
	return nil
}

func (s *fakeAccounts) RecordFailedAttempt(_ context.Context, id int64, threshold int, lockFor time.Duration) (int, *time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.accounts[id]
	if !ok {
		return 0, nil, auth.ErrAccountNotFound
	}
	a.FailedAttempts++
	// Mirrors the store: inactive is terminal, the lock never overwrites it.
	if a.FailedAttempts >= threshold && a.Status != auth.StatusInactive {
		until := time.Now().Add(lockFor)
		a.LockedUntil = &until
		a.Status = auth.StatusLocked
		return a.FailedAttempts, &until, nil
	}
	return a.FailedAttempts, nil, nil
}

func (s *fakeAccounts) RecordSuccessfulLogin(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.accounts[id]
	if !ok {
		return auth.ErrAccountNotFound
	}
	a.FailedAttempts = 0
	a.LockedUntil = nil
	a.Status = auth.StatusActive
	now := time.Now()
	a.LastAccess = &now
	return nil
}

func (s *fakeAccounts) List(_ context.Context) ([]*auth.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*auth.Account
	for _, a := range s.accounts {
		copied := *a
		out = append(out, &copied)
	}
	return out, nil
}

func (s *fakeAccounts) Update(_ context.Context, id int64, changes auth.AccountUpdate) (*auth.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.accounts[id]
	if !ok {
		return nil, auth.ErrAccountNotFound
	}
	if changes.Email != nil {
		a.Email = *changes.Email
	}
	if changes.FullName != nil {
		a.FullName = *changes.FullName
	}
	if changes.Role != nil {
		a.Role = *changes.Role
	}
	if changes.Status != nil {
		a.Status = *changes.Status
	}
	copied := *a
	return &copied, nil
}

func (s *fakeAccounts) SetPassword(_ context.Context, id int64, passwordHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.accounts[id]
	if !ok {
		return auth.ErrAccountNotFound
	}
	a.PasswordHash = passwordHash
	return nil
}

func (s *fakeAccounts) Unlock(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.accounts[id]
	if !ok {
		return auth.ErrAccountNotFound
	}
	a.FailedAttempts = 0
	a.LockedUntil = nil
	if a.Status == auth.StatusLocked {
		a.Status = auth.StatusActive
	}
	return nil
}

func (s *fakeAccounts) Deactivate(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.accounts[id]
	if !ok {
		return auth.ErrAccountNotFound
	}
	a.Status = auth.StatusInactive
	return nil
}

// fakeAuditor collects entries in memory.
type fakeAuditor struct {
	mu      sync.Mutex
	entries []audit.Entry
}

func (f *fakeAuditor) Record(_ context.Context, entry audit.Entry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	entry.ID = int64(len(f.entries) + 1)
	entry.CreatedAt = time.Now()
	f.entries = append(f.entries, entry)
	return nil
}

func (f *fakeAuditor) List(_ context.Context, filter audit.Filter) ([]audit.Entry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []audit.Entry
	for _, e := range f.entries {
		if filter.Username != "" && e.Username != filter.Username {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

func (f *fakeAuditor) PruneOlderThan(context.Context, time.Time) (int64, error) {
	return 0, nil
}

type testServer struct {
	*Server
	accountsFake *fakeAccounts
	auditor      *fakeAuditor
	handler      http.Handler
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	cfg := &config.Config{Environment: config.EnvTest}
	cfg.Auth.Secret = "test-secret"
	cfg.Auth.TokenTTL = 24 * time.Hour
	cfg.Auth.LockoutThreshold = 5
	cfg.Auth.LockoutDuration = 30 * time.Minute
	cfg.Auth.VerifyTimeout = time.Second

	codec, err := auth.NewTokenCodec(cfg.Auth.Secret, cfg.Auth.TokenTTL)
	require.NoError(t, err)

	accounts := newFakeAccounts()
	auditor := &fakeAuditor{}
	logger := observability.NewLogger(observability.ErrorLevel, nil)

	// Domain stores back onto sqlmock; the tests here only exercise the
	// auth and user surface.
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	s := &Server{
		cfg:           cfg,
		logger:        logger,
		accounts:      accounts,
		authenticator: auth.NewAuthenticator(accounts, codec, cfg.Auth.LockoutThreshold, cfg.Auth.LockoutDuration, nil, logger),
		verifier:      auth.NewSessionVerifier(accounts, codec, nil),
		permissions:   auth.NewPermissionTable(),
		auditor:       auditor,
		policy:        middleware.DevelopmentCookiePolicy,
		router:        mux.NewRouter(),
	}
	s.registerAPIRoutes(db)

	return &testServer{
		Server:       s,
		accountsFake: accounts,
		auditor:      auditor,
		handler:      s.Handler(),
	}
}

func (ts *testServer) do(t *testing.T, method, path string, body interface{}, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)
	return rec
}

// sessionCookie extracts the auth cookie from a login response.
func sessionCookie(t *testing.T, rec *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range rec.Result().Cookies() {
		if c.Name == middleware.CookieName {
			return c
		}
	}
	t.Fatal("no session cookie in response")
	return nil
}

// login is a helper for tests that need an authenticated cookie.
func (ts *testServer) login(t *testing.T, username, password string) *http.Cookie {
	t.Helper()
	rec := ts.do(t, http.MethodPost, "/api/login", loginRequest{Username: username, Password: password})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	return sessionCookie(t, rec)
}
