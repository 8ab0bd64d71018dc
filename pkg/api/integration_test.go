//go:build integration

package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/scrcr/scrcr-server/pkg/auth"
	"github.com/scrcr/scrcr-server/pkg/config"
	"github.com/scrcr/scrcr-server/pkg/db"
	"github.com/scrcr/scrcr-server/pkg/observability"
)

// startPostgres launches a disposable PostgreSQL container and returns a
// connection URL.
func startPostgres(t *testing.T) string {
	t.Helper()
	ctx := context.Background()

	container, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("scrcr"),
		tcpostgres.WithUsername("scrcr"),
		tcpostgres.WithPassword("scrcr"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).WithStartupTimeout(60*time.Second)),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	url, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)
	return url
}

func startIntegrationServer(t *testing.T) (http.Handler, *auth.PostgresStore) {
	t.Helper()

	cfg := &config.Config{Environment: config.EnvTest}
	cfg.Database.URL = startPostgres(t)
	cfg.Database.MaxConns = 5
	cfg.Database.MinConns = 1
	cfg.Database.PingTimeout = 10 * time.Second
	cfg.Auth.Secret = "integration-secret"
	cfg.Auth.TokenTTL = 24 * time.Hour
	cfg.Auth.LockoutThreshold = 5
	cfg.Auth.LockoutDuration = 30 * time.Minute
	cfg.Auth.VerifyTimeout = 3 * time.Second

	conn, err := db.Connect(cfg.Database)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	require.NoError(t, db.RunMigrations(context.Background(), conn))

	logger := observability.NewLogger(observability.ErrorLevel, nil)
	server, err := NewServer(cfg, conn, logger, nil)
	require.NoError(t, err)
	return server.Handler(), auth.NewPostgresStore(conn)
}

func postJSON(t *testing.T, handler http.Handler, path string, body interface{}, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, json.NewEncoder(&buf).Encode(body))
	req := httptest.NewRequest(http.MethodPost, path, &buf)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

// The full lockout story against real PostgreSQL: four failures answer
// 401, the fifth locks, a correct password stays locked, an unlock
// restores access and resets the counter.
func TestIntegration_LockoutFlow(t *testing.T) {
	handler, store := startIntegrationServer(t)
	ctx := context.Background()

	hash, err := auth.HashPassword("valid-password")
	require.NoError(t, err)
	account := &auth.Account{
		Username:     "maria",
		Email:        "maria@example.org",
		FullName:     "Maria Lopez",
		PasswordHash: hash,
		Role:         auth.RoleAdmin,
	}
	require.NoError(t, store.Create(ctx, account))

	for i := 0; i < 4; i++ {
		rec := postJSON(t, handler, "/api/login", loginRequest{Username: "maria", Password: "wrong"})
		assert.Equal(t, http.StatusUnauthorized, rec.Code, "attempt %d", i+1)
	}

	rec := postJSON(t, handler, "/api/login", loginRequest{Username: "maria", Password: "wrong"})
	assert.Equal(t, http.StatusLocked, rec.Code)

	rec = postJSON(t, handler, "/api/login", loginRequest{Username: "maria", Password: "valid-password"})
	assert.Equal(t, http.StatusLocked, rec.Code)

	locked, err := store.FindByID(ctx, account.ID)
	require.NoError(t, err)
	assert.Equal(t, auth.StatusLocked, locked.Status)
	assert.Equal(t, 5, locked.FailedAttempts)
	require.NotNil(t, locked.LockedUntil)

	require.NoError(t, store.Unlock(ctx, account.ID))

	rec = postJSON(t, handler, "/api/login", loginRequest{Username: "maria", Password: "valid-password"})
	require.Equal(t, http.StatusOK, rec.Code)

	recovered, err := store.FindByID(ctx, account.ID)
	require.NoError(t, err)
	assert.Equal(t, auth.StatusActive, recovered.Status)
	assert.Equal(t, 0, recovered.FailedAttempts)
	assert.Nil(t, recovered.LockedUntil)
}

// Concurrent wrong passwords must not lose increments.
func TestIntegration_ConcurrentFailedAttempts(t *testing.T) {
	handler, store := startIntegrationServer(t)
	ctx := context.Background()

	hash, err := auth.HashPassword("valid-password")
	require.NoError(t, err)
	account := &auth.Account{
		Username:     "pablo",
		Email:        "pablo@example.org",
		PasswordHash: hash,
		Role:         auth.RoleTreasurer,
	}
	require.NoError(t, store.Create(ctx, account))

	done := make(chan struct{})
	for i := 0; i < 5; i++ {
		go func() {
			defer func() { done <- struct{}{} }()
			postJSON(t, handler, "/api/login", loginRequest{Username: "pablo", Password: "wrong"})
		}()
	}
	for i := 0; i < 5; i++ {
		<-done
	}

	after, err := store.FindByID(ctx, account.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, after.FailedAttempts)
	assert.Equal(t, auth.StatusLocked, after.Status)
}
