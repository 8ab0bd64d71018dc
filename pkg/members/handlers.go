package members

import (
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/scrcr/scrcr-server/pkg/httputil"
	"github.com/scrcr/scrcr-server/pkg/observability"
)

// Handlers exposes the roster over HTTP.
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

// RegisterRoutes mounts the member endpoints on the router. The router is
// expected to sit behind the session middleware.
func (h *Handlers) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/members", h.List).Methods(http.MethodGet)
	r.HandleFunc("/members", h.Create).Methods(http.MethodPost)
	r.HandleFunc("/members/{id:[0-9]+}", h.Get).Methods(http.MethodGet)
	r.HandleFunc("/members/{id:[0-9]+}", h.Update).Methods(http.MethodPut)
	r.HandleFunc("/members/{id:[0-9]+}", h.Delete).Methods(http.MethodDelete)
}

func (h *Handlers) List(w http.ResponseWriter, r *http.Request) {
	filter := Filter{
		Status: Status(httputil.ParseQueryString(r, "status", "")),
		Search: httputil.ParseQueryString(r, "search", ""),
	}
	list, err := h.store.List(r.Context(), filter)
	if err != nil {
		h.logger.WithError(err).Error("listing members failed")
		httputil.WriteInternalError(w)
		return
	}
	if list == nil {
		list = []*Member{}
	}
	httputil.WriteSuccess(w, list)
}

func (h *Handlers) Create(w http.ResponseWriter, r *http.Request) {
	var draft Draft
	if !httputil.ParseJSONOrError(w, r, &draft) {
		return
	}
	if err := draft.Validate(); err != nil {
		httputil.WriteValidationError(w, err.Error())
		return
	}

	member, err := h.store.Create(r.Context(), draft)
	if err != nil {
		h.writeStoreError(w, err, "creating member failed")
		return
	}
	httputil.WriteCreated(w, member)
}

func (h *Handlers) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}
	member, err := h.store.GetByID(r.Context(), id)
	if err != nil {
		h.writeStoreError(w, err, "fetching member failed")
		return
	}
	httputil.WriteSuccess(w, member)
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

	member, err := h.store.Update(r.Context(), id, draft)
	if err != nil {
		h.writeStoreError(w, err, "updating member failed")
		return
	}
	httputil.WriteSuccess(w, member)
}

// Delete soft-disables the member so attendance history stays intact.
func (h *Handlers) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}
	if err := h.store.Deactivate(r.Context(), id); err != nil {
		h.writeStoreError(w, err, "deactivating member failed")
		return
	}
	httputil.WriteSuccessMessage(w, "member deactivated")
}

func (h *Handlers) writeStoreError(w http.ResponseWriter, err error, logMsg string) {
	switch {
	case errors.Is(err, ErrNotFound):
		httputil.WriteNotFound(w, ErrNotFound.Error())
	case errors.Is(err, ErrDuplicate):
		httputil.WriteConflict(w, ErrDuplicate.Error())
	default:
		h.logger.WithError(err).Error(logMsg)
		httputil.WriteInternalError(w)
	}
}
