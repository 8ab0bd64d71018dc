package api

import (
	"errors"
	"net"
	"net/http"
	"strings"

	"github.com/scrcr/scrcr-server/pkg/audit"
	"github.com/scrcr/scrcr-server/pkg/auth"
	"github.com/scrcr/scrcr-server/pkg/httputil"
	"github.com/scrcr/scrcr-server/pkg/middleware"
)

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// handleLogin authenticates credentials and sets the session cookie. The
// response body for invalid credentials never says which part was wrong.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	req.Username = strings.TrimSpace(req.Username)
	if req.Username == "" || req.Password == "" {
		httputil.WriteValidationError(w, "username and password are required")
		return
	}

	result, err := s.authenticator.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		s.recordLoginAudit(r, req.Username, nil, false, err)
		switch {
		case errors.Is(err, auth.ErrInvalidCredentials), errors.Is(err, auth.ErrAccountInactive):
			// Inactive accounts get the same answer as bad passwords.
			httputil.WriteUnauthorized(w, auth.ErrInvalidCredentials.Error())
		case errors.Is(err, auth.ErrAccountLocked):
			httputil.WriteLocked(w, "too many failed attempts, try again later")
		default:
			s.logger.WithError(err).Error("login failed")
			httputil.WriteInternalError(w)
		}
		return
	}

	s.recordLoginAudit(r, req.Username, &result.Account.ID, true, nil)
	http.SetCookie(w, middleware.NewSessionCookie(result.Token, s.cfg.Auth.TokenTTL, s.policy))
	httputil.WriteSuccess(w, result.Account)
}

// handleLogout clears the session cookie. The signed token itself stays
// valid until expiry; logout is a client-side discard.
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, middleware.ClearSessionCookie(s.policy))
	httputil.WriteSuccessMessage(w, "logged out")
}

// handleSession returns the verified account for the current cookie.
func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	account := middleware.SessionAccount(r)
	if account == nil {
		httputil.WriteUnauthorized(w, "authentication required")
		return
	}
	httputil.WriteSuccess(w, account)
}

type verifyRoleResponse struct {
	ID       int64     `json:"id"`
	Username string    `json:"username"`
	Role     auth.Role `json:"role"`
	Allowed  *bool     `json:"allowed,omitempty"`
}

// handleVerifyRole returns the verified identity of the current session,
// and with a ?path= query also whether that role may visit the page. The
// gatekeeper remains authoritative; this endpoint lets the front end hide
// links it should not offer.
func (s *Server) handleVerifyRole(w http.ResponseWriter, r *http.Request) {
	account := middleware.SessionAccount(r)
	if account == nil {
		httputil.WriteUnauthorized(w, "authentication required")
		return
	}
	resp := verifyRoleResponse{
		ID:       account.ID,
		Username: account.Username,
		Role:     account.Role,
	}
	if path := httputil.ParseQueryString(r, "path", ""); path != "" {
		allowed := s.permissions.Allows(path, account.Role)
		resp.Allowed = &allowed
	}
	httputil.WriteSuccess(w, resp)
}

func (s *Server) recordLoginAudit(r *http.Request, username string, accountID *int64, success bool, loginErr error) {
	entry := audit.Entry{
		Username:  username,
		AccountID: accountID,
		IPAddress: clientIP(r),
		UserAgent: r.UserAgent(),
		Success:   success,
	}
	if loginErr != nil {
		reason := loginErr.Error()
		entry.FailureReason = &reason
	}
	if err := s.auditor.Record(r.Context(), entry); err != nil {
		s.logger.WithError(err).Warn("failed to record login attempt")
	}
}

// clientIP prefers the first X-Forwarded-For hop, falling back to the
// connection address.
func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		parts := strings.Split(fwd, ",")
		return strings.TrimSpace(parts[0])
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
