package events

import (
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/scrcr/scrcr-server/pkg/httputil"
	"github.com/scrcr/scrcr-server/pkg/middleware"
	"github.com/scrcr/scrcr-server/pkg/observability"
)

// Handlers exposes events over HTTP.
type Handlers struct {
	store  Store
	logger *observability.Logger
}

func NewHandlers(store Store, logger *observability.Logger) *Handlers {
	if logger == nil {
		logger = observability.NewLogger(observability.InfoLevel, nil)
	}
	return &Handlers{store: store, logger: logger}
}

// RegisterRoutes mounts the event endpoints. The router must sit behind
// the session middleware so a creator account is always present.
func (h *Handlers) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/events", h.List).Methods(http.MethodGet)
	r.HandleFunc("/events", h.Create).Methods(http.MethodPost)
	r.HandleFunc("/events/{id:[0-9]+}", h.Get).Methods(http.MethodGet)
	r.HandleFunc("/events/{id:[0-9]+}", h.Update).Methods(http.MethodPut)
	r.HandleFunc("/events/{id:[0-9]+}", h.Delete).Methods(http.MethodDelete)
}

func (h *Handlers) List(w http.ResponseWriter, r *http.Request) {
	filter := Filter{
		UpcomingOnly: httputil.ParseQueryString(r, "upcoming", "") == "true",
	}
	list, err := h.store.List(r.Context(), filter)
	if err != nil {
		h.logger.WithError(err).Error("listing events failed")
		httputil.WriteInternalError(w)
		return
	}
	if list == nil {
		list = []*Event{}
	}
	httputil.WriteSuccess(w, list)
}

func (h *Handlers) Create(w http.ResponseWriter, r *http.Request) {
	account := middleware.SessionAccount(r)
	if account == nil {
		httputil.WriteUnauthorized(w, "authentication required")
		return
	}

	var draft Draft
	if !httputil.ParseJSONOrError(w, r, &draft) {
		return
	}
	if err := draft.Validate(); err != nil {
		httputil.WriteValidationError(w, err.Error())
		return
	}

	event, err := h.store.Create(r.Context(), draft, account.ID)
	if err != nil {
		h.logger.WithError(err).Error("creating event failed")
		httputil.WriteInternalError(w)
		return
	}
	httputil.WriteCreated(w, event)
}

func (h *Handlers) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}
	event, err := h.store.GetByID(r.Context(), id)
	if err != nil {
		h.writeStoreError(w, err, "fetching event failed")
		return
	}
	httputil.WriteSuccess(w, event)
}

func (h *Handlers) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}
	var draft Draft
	if !httputil.ParseJSONOrError(w, r, &draft) {
		return
	}
	if err := draft.Validate(); err != nil {
		httputil.WriteValidationError(w, err.Error())
		return
	}

	event, err := h.store.Update(r.Context(), id, draft)
	if err != nil {
		h.writeStoreError(w, err, "updating event failed")
		return
	}
	httputil.WriteSuccess(w, event)
}

func (h *Handlers) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}
	if err := h.store.Delete(r.Context(), id); err != nil {
		h.writeStoreError(w, err, "deleting event failed")
		return
	}
	httputil.WriteSuccessMessage(w, "event deleted")
}

func (h *Handlers) writeStoreError(w http.ResponseWriter, err error, logMsg string) {
	if errors.Is(err, ErrNotFound) {
		httputil.WriteNotFound(w, ErrNotFound.Error())
		return
	}
	h.logger.WithError(err).Error(logMsg)
	httputil.WriteInternalError(w)
}
