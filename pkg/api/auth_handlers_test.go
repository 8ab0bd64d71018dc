package api

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scrcr/scrcr-server/pkg/auth"
	"github.com/scrcr/scrcr-server/pkg/httputil"
)

func TestLogin_SetsCookieAndReturnsAccount(t *testing.T) {
	ts := newTestServer(t)
	ts.accountsFake.seed(t, "maria", "valid-password", auth.RoleAdmin, auth.StatusActive)

	rec := ts.do(t, http.MethodPost, "/api/login", loginRequest{Username: "maria", Password: "valid-password"})
	require.Equal(t, http.StatusOK, rec.Code)

	cookie := sessionCookie(t, rec)
	assert.True(t, cookie.HttpOnly)
	assert.Equal(t, "/", cookie.Path)
	assert.NotEmpty(t, cookie.Value)

	var env httputil.Envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	assert.True(t, env.Success)
	assert.NotContains(t, rec.Body.String(), "passwordHash")
	assert.NotContains(t, rec.Body.String(), "failedAttempts")
}

func TestLogin_InvalidCredentials(t *testing.T) {
	ts := newTestServer(t)
	ts.accountsFake.seed(t, "maria", "valid-password", auth.RoleAdmin, auth.StatusActive)

	// Unknown username and wrong password look identical.
	recUnknown := ts.do(t, http.MethodPost, "/api/login", loginRequest{Username: "ghost", Password: "whatever"})
	recWrong := ts.do(t, http.MethodPost, "/api/login", loginRequest{Username: "maria", Password: "wrong"})

	assert.Equal(t, http.StatusUnauthorized, recUnknown.Code)
	assert.Equal(t, http.StatusUnauthorized, recWrong.Code)
	assert.JSONEq(t, recUnknown.Body.String(), recWrong.Body.String())
}

func TestLogin_MissingFields(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodPost, "/api/login", loginRequest{Username: "maria"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLogin_InactiveAccountLooksLikeBadPassword(t *testing.T) {
	ts := newTestServer(t)
	ts.accountsFake.seed(t, "maria", "valid-password", auth.RoleAdmin, auth.StatusInactive)

	rec := ts.do(t, http.MethodPost, "/api/login", loginRequest{Username: "maria", Password: "valid-password"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid username or password")
}

// Five wrong passwords lock the account; the lock survives a correct
// password and clears after an admin unlock.
func TestLoginLockoutFlow(t *testing.T) {
	ts := newTestServer(t)
	account := ts.accountsFake.seed(t, "maria", "valid-password", auth.RoleAdmin, auth.StatusActive)

	for i := 0; i < 4; i++ {
		rec := ts.do(t, http.MethodPost, "/api/login", loginRequest{Username: "maria", Password: "wrong"})
		assert.Equal(t, http.StatusUnauthorized, rec.Code, "attempt %d", i+1)
	}

	rec := ts.do(t, http.MethodPost, "/api/login", loginRequest{Username: "maria", Password: "wrong"})
	assert.Equal(t, http.StatusLocked, rec.Code)

	rec = ts.do(t, http.MethodPost, "/api/login", loginRequest{Username: "maria", Password: "valid-password"})
	assert.Equal(t, http.StatusLocked, rec.Code)

	// Unlock via the store (the admin endpoint is covered separately)
	// and confirm login works again.
	require.NoError(t, ts.accountsFake.Unlock(t.Context(), account.ID))
	rec = ts.do(t, http.MethodPost, "/api/login", loginRequest{Username: "maria", Password: "valid-password"})
	assert.Equal(t, http.StatusOK, rec.Code)
}

// A disabled account must stay disabled no matter what the login
// endpoint is fed: repeated wrong passwords never answer 423 and never
// relabel the account, and the correct password keeps failing with the
// same generic 401.
func TestLogin_InactiveAccountSurvivesFailedAttempts(t *testing.T) {
	ts := newTestServer(t)
	account := ts.accountsFake.seed(t, "maria", "valid-password", auth.RoleAdmin, auth.StatusInactive)

	for i := 0; i < 6; i++ {
		rec := ts.do(t, http.MethodPost, "/api/login", loginRequest{Username: "maria", Password: "wrong"})
		assert.Equal(t, http.StatusUnauthorized, rec.Code, "attempt %d", i+1)
	}

	rec := ts.do(t, http.MethodPost, "/api/login", loginRequest{Username: "maria", Password: "valid-password"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, auth.StatusInactive, ts.accountsFake.accounts[account.ID].Status)
	assert.Nil(t, ts.accountsFake.accounts[account.ID].LockedUntil)
}

func TestLogin_RecordsAudit(t *testing.T) {
	ts := newTestServer(t)
	ts.accountsFake.seed(t, "maria", "valid-password", auth.RoleAdmin, auth.StatusActive)

	ts.do(t, http.MethodPost, "/api/login", loginRequest{Username: "maria", Password: "wrong"})
	ts.do(t, http.MethodPost, "/api/login", loginRequest{Username: "maria", Password: "valid-password"})

	require.Len(t, ts.auditor.entries, 2)
	assert.False(t, ts.auditor.entries[0].Success)
	require.NotNil(t, ts.auditor.entries[0].FailureReason)
	assert.True(t, ts.auditor.entries[1].Success)
	require.NotNil(t, ts.auditor.entries[1].AccountID)
}

func TestSession_RoundTrip(t *testing.T) {
	ts := newTestServer(t)
	ts.accountsFake.seed(t, "maria", "valid-password", auth.RoleTreasurer, auth.StatusActive)
	cookie := ts.login(t, "maria", "valid-password")

	rec := ts.do(t, http.MethodGet, "/api/session", nil, cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"username":"maria"`)
	assert.Contains(t, rec.Body.String(), `"role":"treasurer"`)
}

func TestSession_WithoutCookie(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodGet, "/api/session", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestSession_AfterAccountDeactivated(t *testing.T) {
	ts := newTestServer(t)
	account := ts.accountsFake.seed(t, "maria", "valid-password", auth.RoleAdmin, auth.StatusActive)
	cookie := ts.login(t, "maria", "valid-password")

	inactive := auth.StatusInactive
	_, err := ts.accountsFake.Update(t.Context(), account.ID, auth.AccountUpdate{Status: &inactive})
	require.NoError(t, err)

	rec := ts.do(t, http.MethodGet, "/api/session", nil, cookie)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// The stale cookie is cleared in the same response.
	cleared := sessionCookie(t, rec)
	assert.Empty(t, cleared.Value)
	assert.Negative(t, cleared.MaxAge)
}

func TestLogout_ClearsCookie(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodPost, "/api/logout", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	cookie := sessionCookie(t, rec)
	assert.Empty(t, cookie.Value)
	assert.Negative(t, cookie.MaxAge)
}

func TestVerifyRole(t *testing.T) {
	ts := newTestServer(t)
	ts.accountsFake.seed(t, "maria", "valid-password", auth.RoleTreasurer, auth.StatusActive)
	cookie := ts.login(t, "maria", "valid-password")

	rec := ts.do(t, http.MethodGet, "/api/verify-role?path=/reports", nil, cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"allowed":true`)

	rec = ts.do(t, http.MethodGet, "/api/verify-role?path=/users", nil, cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"allowed":false`)

	// Without a path it just reports the verified identity.
	rec = ts.do(t, http.MethodGet, "/api/verify-role", nil, cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"username":"maria"`)
	assert.Contains(t, rec.Body.String(), `"role":"treasurer"`)
	assert.NotContains(t, rec.Body.String(), `"allowed"`)
}
