package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/scrcr/scrcr-server/pkg/auth"
	"github.com/scrcr/scrcr-server/pkg/contextkeys"
	"github.com/scrcr/scrcr-server/pkg/observability"
)

// skipPrefixes are request paths the gatekeeper never touches. API routes
// carry their own session middleware, and static assets are harmless.
var skipPrefixes = []string{
	"/api/",
	"/static/",
	"/assets/",
}

// skipExact are operational endpoints outside the page flow.
var skipExact = map[string]bool{
	"/healthz": true,
	"/readyz":  true,
	"/metrics": true,
}

// assetExtensions short-circuit image and font requests referenced from
// pages the user already reached.
var assetExtensions = []string{
	".png", ".jpg", ".jpeg", ".gif", ".svg", ".ico", ".webp",
	".css", ".js", ".woff", ".woff2",
}

// Gatekeeper is the edge middleware for page routes. It classifies each
// path as public, auth or protected, verifies the session for protected
// paths with a short fail-closed timeout, and redirects instead of
// rendering errors.
type Gatekeeper struct {
	verifier      *auth.SessionVerifier
	table         *auth.PermissionTable
	policy        CookiePolicy
	verifyTimeout time.Duration
	metrics       *observability.Metrics
	logger        *observability.Logger
}

// NewGatekeeper wires the edge gate. metrics may be nil.
func NewGatekeeper(verifier *auth.SessionVerifier, table *auth.PermissionTable, policy CookiePolicy, verifyTimeout time.Duration, metrics *observability.Metrics, logger *observability.Logger) *Gatekeeper {
	if verifyTimeout <= 0 {
		verifyTimeout = 3 * time.Second
	}
	if logger == nil {
		logger = observability.NewLogger(observability.InfoLevel, nil)
	}
	return &Gatekeeper{
		verifier:      verifier,
		table:         table,
		policy:        policy,
		verifyTimeout: verifyTimeout,
		metrics:       metrics,
		logger:        logger,
	}
}

// shouldSkip reports whether the gatekeeper ignores the path entirely.
func shouldSkip(path string) bool {
	if skipExact[path] {
		return true
	}
	for _, prefix := range skipPrefixes {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	lower := strings.ToLower(path)
	for _, ext := range assetExtensions {
		if strings.HasSuffix(lower, ext) {
			return true
		}
	}
	return false
}

// Handler gates page navigation. Decisions are redirects, never JSON
// errors; the client-side guard only refines what the edge already
// decided.
func (g *Gatekeeper) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := r.URL.Path
		if shouldSkip(path) {
			next.ServeHTTP(w, r)
			return
		}

		switch g.table.Classify(path) {
		case auth.RoutePublic:
			g.decide("public")
			next.ServeHTTP(w, r)
			return

		case auth.RouteAuth:
			// A live session has no business on the login page.
			if _, ok := SessionToken(r); ok {
				g.decide("auth_redirect")
				http.Redirect(w, r, "/", http.StatusFound)
				return
			}
			g.decide("public")
			next.ServeHTTP(w, r)
			return
		}

		token, ok := SessionToken(r)
		if !ok {
			g.decide("login_redirect")
			g.redirectToLogin(w, r)
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), g.verifyTimeout)
		account, err := g.verifier.Verify(ctx, token)
		cancel()
		if err != nil {
			// Expired, tampered, orphaned, or the store timed out:
			// every failure fails closed to the login page.
			if !errors.Is(err, auth.ErrTokenExpired) &&
				!errors.Is(err, auth.ErrTokenInvalid) &&
				!errors.Is(err, auth.ErrAccountGone) {
				g.logger.WithError(err).WithField("path", path).
					Warn("session verification failed closed")
			}
			g.decide("login_redirect")
			http.SetCookie(w, ClearSessionCookie(g.policy))
			g.redirectToLogin(w, r)
			return
		}

		if !g.table.Allows(path, account.Role) {
			g.decide("denied")
			dest := "/?unauthorized=" + url.QueryEscape(auth.Resource(path))
			http.Redirect(w, r, dest, http.StatusFound)
			return
		}

		g.decide("allow")
		ctx = contextkeys.WithSession(r.Context(), account)
		ctx = contextkeys.WithUserID(ctx, strconv.FormatInt(account.ID, 10))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (g *Gatekeeper) redirectToLogin(w http.ResponseWriter, r *http.Request) {
	dest := "/login?next=" + url.QueryEscape(r.URL.RequestURI())
	http.Redirect(w, r, dest, http.StatusFound)
}

func (g *Gatekeeper) decide(decision string) {
	if g.metrics != nil {
		g.metrics.GatekeeperDecisionsTotal.WithLabelValues(decision).Inc()
	}
}
