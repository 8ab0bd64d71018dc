package middleware

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/scrcr/scrcr-server/pkg/auth"
	"github.com/scrcr/scrcr-server/pkg/contextkeys"
	"github.com/scrcr/scrcr-server/pkg/httputil"
	"github.com/scrcr/scrcr-server/pkg/observability"
)

// SessionMiddleware authenticates API requests from the session cookie.
// Unlike the gatekeeper it answers with JSON envelopes, never redirects.
type SessionMiddleware struct {
	verifier *auth.SessionVerifier
	policy   CookiePolicy
	logger   *observability.Logger
}

// NewSessionMiddleware wires the API session layer.
func NewSessionMiddleware(verifier *auth.SessionVerifier, policy CookiePolicy, logger *observability.Logger) *SessionMiddleware {
	if logger == nil {
		logger = observability.NewLogger(observability.InfoLevel, nil)
	}
	return &SessionMiddleware{verifier: verifier, policy: policy, logger: logger}
}

// Handler rejects requests without a live session and stores the verified
// account in the request context for handlers downstream.
func (m *SessionMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := SessionToken(r)
		if !ok {
			httputil.WriteUnauthorized(w, "authentication required")
			return
		}

		account, err := m.verifier.Verify(r.Context(), token)
		if err != nil {
			switch {
			case errors.Is(err, auth.ErrTokenExpired),
				errors.Is(err, auth.ErrTokenInvalid),
				errors.Is(err, auth.ErrAccountGone):
				http.SetCookie(w, ClearSessionCookie(m.policy))
				httputil.WriteUnauthorized(w, "session is no longer valid")
			default:
				m.logger.WithError(err).Error("session verification failed")
				httputil.WriteInternalError(w)
			}
			return
		}

		ctx := contextkeys.WithSession(r.Context(), account)
		ctx = contextkeys.WithUserID(ctx, strconv.FormatInt(account.ID, 10))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// SessionAccount returns the verified account stored by SessionMiddleware
// or the gatekeeper, or nil when the request is unauthenticated.
func SessionAccount(r *http.Request) *auth.PublicAccount {
	account, _ := contextkeys.GetSession(r.Context()).(*auth.PublicAccount)
	return account
}

// RequireRoles restricts an endpoint to the given roles. It must run after
// SessionMiddleware.
func RequireRoles(roles ...auth.Role) func(http.Handler) http.Handler {
	allowed := make(map[auth.Role]bool, len(roles))
	for _, role := range roles {
		allowed[role] = true
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			account := SessionAccount(r)
			if account == nil {
				httputil.WriteUnauthorized(w, "authentication required")
				return
			}
			if !allowed[account.Role] {
				httputil.WriteForbidden(w, "insufficient permissions")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
