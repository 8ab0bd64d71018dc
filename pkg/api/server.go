// Package api wires the HTTP surface: the JSON API under /api, the
// operational endpoints, and the gated page routes.
package api

import (
	"database/sql"
	"net/http"
	"os"
	"path/filepath"

	"github.com/gorilla/mux"

	"github.com/scrcr/scrcr-server/pkg/attendance"
	"github.com/scrcr/scrcr-server/pkg/audit"
	"github.com/scrcr/scrcr-server/pkg/auth"
	"github.com/scrcr/scrcr-server/pkg/config"
	"github.com/scrcr/scrcr-server/pkg/events"
	"github.com/scrcr/scrcr-server/pkg/httputil"
	"github.com/scrcr/scrcr-server/pkg/members"
	"github.com/scrcr/scrcr-server/pkg/middleware"
	"github.com/scrcr/scrcr-server/pkg/observability"
)

// Server assembles stores, middleware and handlers into one HTTP handler.
type Server struct {
	cfg     *config.Config
	logger  *observability.Logger
	metrics *observability.Metrics

	authenticator *auth.Authenticator
	verifier      *auth.SessionVerifier
	permissions   *auth.PermissionTable
	accounts      auth.CredentialStore
	auditor       audit.Recorder
	policy        middleware.CookiePolicy

	router *mux.Router
}

// NewServer builds the full HTTP surface over an open database handle.
func NewServer(cfg *config.Config, db *sql.DB, logger *observability.Logger, metrics *observability.Metrics) (*Server, error) {
	codec, err := auth.NewTokenCodec(cfg.Auth.Secret, cfg.Auth.TokenTTL)
	if err != nil {
		return nil, err
	}

	accounts := auth.NewPostgresStore(db)
	logger = logger.Named("api")
	s := &Server{
		cfg:           cfg,
		logger:        logger,
		metrics:       metrics,
		accounts:      accounts,
		authenticator: auth.NewAuthenticator(accounts, codec, cfg.Auth.LockoutThreshold, cfg.Auth.LockoutDuration, metrics, logger),
		verifier:      auth.NewSessionVerifier(accounts, codec, metrics),
		permissions:   auth.NewPermissionTable(),
		auditor:       audit.NewPostgresRecorder(db),
		policy:        middleware.PolicyFor(cfg.IsProduction()),
	}

	s.router = mux.NewRouter()
	s.registerAPIRoutes(db)
	s.registerPageRoutes()
	return s, nil
}

func (s *Server) registerAPIRoutes(db *sql.DB) {
	api := s.router.PathPrefix("/api").Subrouter()

	// Login and logout live outside the session middleware.
	api.HandleFunc("/login", s.handleLogin).Methods(http.MethodPost)
	api.HandleFunc("/logout", s.handleLogout).Methods(http.MethodPost)

	session := middleware.NewSessionMiddleware(s.verifier, s.policy, s.logger)
	protected := api.NewRoute().Subrouter()
	protected.Use(session.Handler)

	protected.HandleFunc("/session", s.handleSession).Methods(http.MethodGet)
	protected.HandleFunc("/verify-role", s.handleVerifyRole).Methods(http.MethodGet)

	members.NewHandlers(members.NewPostgresStore(db), s.logger).RegisterRoutes(protected)
	events.NewHandlers(events.NewPostgresStore(db), s.logger).RegisterRoutes(protected)
	attendance.NewHandlers(attendance.NewPostgresStore(db), s.logger).RegisterRoutes(protected)

	admin := protected.NewRoute().Subrouter()
	admin.Use(middleware.RequireRoles(auth.RoleAdmin))
	s.registerUserRoutes(admin)
	admin.HandleFunc("/audit/logins", s.handleListLoginAudit).Methods(http.MethodGet)
}

// registerPageRoutes serves the static front end behind the gatekeeper.
// Unknown paths fall back to index.html so client routing works.
func (s *Server) registerPageRoutes() {
	gate := middleware.NewGatekeeper(s.verifier, s.permissions, s.policy,
		s.cfg.Auth.VerifyTimeout, s.metrics, s.logger)

	staticDir := s.cfg.Server.StaticDir
	s.router.PathPrefix("/").Handler(gate.Handler(spaHandler(staticDir)))
}

// spaHandler serves files from dir, falling back to index.html for paths
// that do not exist on disk.
func spaHandler(dir string) http.Handler {
	fs := http.FileServer(http.Dir(dir))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := filepath.Join(dir, filepath.Clean(r.URL.Path))
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			fs.ServeHTTP(w, r)
			return
		}
		http.ServeFile(w, r, filepath.Join(dir, "index.html"))
	})
}

// Handler returns the router wrapped in the shared middleware chain.
func (s *Server) Handler() http.Handler {
	chain := []func(http.Handler) http.Handler{
		httputil.RecoveryMiddleware(s.logger),
		httputil.RequestIDMiddleware,
		httputil.LoggingMiddleware(s.logger),
	}
	if s.metrics != nil {
		chain = append(chain, s.metrics.Middleware)
	}
	if len(s.cfg.Server.AllowedOrigins) > 0 {
		chain = append(chain, httputil.CORSMiddleware(s.cfg.Server.AllowedOrigins))
	}
	return httputil.Chain(chain...)(s.router)
}
