package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/scrcr/scrcr-server/pkg/auth"
	"github.com/scrcr/scrcr-server/pkg/httputil"
	"github.com/scrcr/scrcr-server/pkg/middleware"
)

// registerUserRoutes mounts account administration. The router is already
// restricted to admins.
func (s *Server) registerUserRoutes(r *mux.Router) {
	r.HandleFunc("/users", s.handleListUsers).Methods(http.MethodGet)
	r.HandleFunc("/users", s.handleCreateUser).Methods(http.MethodPost)
	r.HandleFunc("/users/{id:[0-9]+}", s.handleGetUser).Methods(http.MethodGet)
	r.HandleFunc("/users/{id:[0-9]+}", s.handleUpdateUser).Methods(http.MethodPut)
	r.HandleFunc("/users/{id:[0-9]+}", s.handleDeleteUser).Methods(http.MethodDelete)
	r.HandleFunc("/users/{id:[0-9]+}/unlock", s.handleUnlockUser).Methods(http.MethodPost)
	r.HandleFunc("/users/{id:[0-9]+}/password", s.handleSetUserPassword).Methods(http.MethodPut)
}

func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	accounts, err := s.accounts.List(r.Context())
	if err != nil {
		s.logger.WithError(err).Error("listing accounts failed")
		httputil.WriteInternalError(w)
		return
	}
	views := make([]*auth.PublicAccount, 0, len(accounts))
	for _, a := range accounts {
		views = append(views, a.Public())
	}
	httputil.WriteSuccess(w, views)
}

func (s *Server) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	var draft auth.AccountDraft
	if !httputil.ParseJSONOrError(w, r, &draft) {
		return
	}
	draft.Username = strings.TrimSpace(draft.Username)
	if draft.Username == "" {
		httputil.WriteValidationError(w, "username is required")
		return
	}
	if !draft.Role.Valid() {
		httputil.WriteValidationError(w, "role must be admin, treasurer or generalPastor")
		return
	}

	hash, err := auth.HashPassword(draft.Password)
	if err != nil {
		httputil.WriteValidationError(w, err.Error())
		return
	}

	account := &auth.Account{
		Username:     draft.Username,
		Email:        strings.TrimSpace(draft.Email),
		FullName:     strings.TrimSpace(draft.FullName),
		PasswordHash: hash,
		Role:         draft.Role,
		Status:       auth.StatusActive,
	}
	if err := s.accounts.Create(r.Context(), account); err != nil {
		if errors.Is(err, auth.ErrDuplicateKey) {
			httputil.WriteConflict(w, "username or email already in use")
			return
		}
		s.logger.WithError(err).Error("creating account failed")
		httputil.WriteInternalError(w)
		return
	}
	httputil.WriteCreated(w, account.Public())
}

func (s *Server) handleGetUser(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}
	account, err := s.accounts.FindByID(r.Context(), id)
	if err != nil {
		s.writeAccountError(w, err, "fetching account failed")
		return
	}
	httputil.WriteSuccess(w, account.Public())
}

func (s *Server) handleUpdateUser(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}
	var changes auth.AccountUpdate
	if !httputil.ParseJSONOrError(w, r, &changes) {
		return
	}
	if changes.Role != nil && !changes.Role.Valid() {
		httputil.WriteValidationError(w, "role must be admin, treasurer or generalPastor")
		return
	}
	if changes.Status != nil {
		switch *changes.Status {
		case auth.StatusActive, auth.StatusInactive:
		default:
			httputil.WriteValidationError(w, "status must be active or inactive")
			return
		}
	}

	account, err := s.accounts.Update(r.Context(), id, changes)
	if err != nil {
		s.writeAccountError(w, err, "updating account failed")
		return
	}
	httputil.WriteSuccess(w, account.Public())
}

func (s *Server) handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}

	// Admins cannot disable their own account out from under a live session.
	if self := middleware.SessionAccount(r); self != nil && self.ID == id {
		httputil.WriteValidationError(w, "cannot deactivate your own account")
		return
	}

	// Accounts are soft-disabled, never removed.
	if err := s.accounts.Deactivate(r.Context(), id); err != nil {
		s.writeAccountError(w, err, "deactivating account failed")
		return
	}
	httputil.WriteSuccessMessage(w, "account deactivated")
}

func (s *Server) handleUnlockUser(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}
	if err := s.accounts.Unlock(r.Context(), id); err != nil {
		s.writeAccountError(w, err, "unlocking account failed")
		return
	}
	httputil.WriteSuccessMessage(w, "account unlocked")
}

type setPasswordRequest struct {
	Password string `json:"password"`
}

func (s *Server) handleSetUserPassword(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}
	var req setPasswordRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		httputil.WriteValidationError(w, err.Error())
		return
	}
	if err := s.accounts.SetPassword(r.Context(), id, hash); err != nil {
		s.writeAccountError(w, err, "setting password failed")
		return
	}
	httputil.WriteSuccessMessage(w, "password updated")
}

func (s *Server) writeAccountError(w http.ResponseWriter, err error, logMsg string) {
	switch {
	case errors.Is(err, auth.ErrAccountNotFound):
		httputil.WriteNotFound(w, "account not found")
	case errors.Is(err, auth.ErrDuplicateKey):
		httputil.WriteConflict(w, "username or email already in use")
	default:
		s.logger.WithError(err).Error(logMsg)
		httputil.WriteInternalError(w)
	}
}
