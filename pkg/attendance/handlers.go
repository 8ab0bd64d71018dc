package attendance

import (
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/scrcr/scrcr-server/pkg/httputil"
	"github.com/scrcr/scrcr-server/pkg/middleware"
	"github.com/scrcr/scrcr-server/pkg/observability"
)

// Handlers exposes attendance over HTTP, nested under events.
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

// RegisterRoutes mounts the attendance endpoints. The router must sit
// behind the session middleware.
func (h *Handlers) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/events/{eventId:[0-9]+}/attendance", h.ListByEvent).Methods(http.MethodGet)
	r.HandleFunc("/events/{eventId:[0-9]+}/attendance", h.Mark).Methods(http.MethodPost)
	r.HandleFunc("/events/{eventId:[0-9]+}/attendance/summary", h.Summarize).Methods(http.MethodGet)
	r.HandleFunc("/events/{eventId:[0-9]+}/attendance/{memberId:[0-9]+}", h.Unmark).Methods(http.MethodDelete)
}

func (h *Handlers) ListByEvent(w http.ResponseWriter, r *http.Request) {
	eventID, ok := httputil.ParsePathInt64OrError(w, r, "eventId")
	if !ok {
		return
	}
	list, err := h.store.ListByEvent(r.Context(), eventID)
	if err != nil {
		h.logger.WithError(err).Error("listing attendance failed")
		httputil.WriteInternalError(w)
		return
	}
	if list == nil {
		list = []*EventRecord{}
	}
	httputil.WriteSuccess(w, list)
}

func (h *Handlers) Mark(w http.ResponseWriter, r *http.Request) {
	eventID, ok := httputil.ParsePathInt64OrError(w, r, "eventId")
	if !ok {
		return
	}
	account := middleware.SessionAccount(r)
	if account == nil {
		httputil.WriteUnauthorized(w, "authentication required")
		return
	}

	var mark Mark
	if !httputil.ParseJSONOrError(w, r, &mark) {
		return
	}
	if err := mark.Validate(); err != nil {
		httputil.WriteValidationError(w, err.Error())
		return
	}

	record, err := h.store.Mark(r.Context(), eventID, mark, account.ID)
	if err != nil {
		if errors.Is(err, ErrBadReference) {
			httputil.WriteNotFound(w, ErrBadReference.Error())
			return
		}
		h.logger.WithError(err).Error("marking attendance failed")
		httputil.WriteInternalError(w)
		return
	}
	httputil.WriteCreated(w, record)
}

func (h *Handlers) Summarize(w http.ResponseWriter, r *http.Request) {
	eventID, ok := httputil.ParsePathInt64OrError(w, r, "eventId")
	if !ok {
		return
	}
	summary, err := h.store.Summarize(r.Context(), eventID)
	if err != nil {
		h.logger.WithError(err).Error("summarizing attendance failed")
		httputil.WriteInternalError(w)
		return
	}
	httputil.WriteSuccess(w, summary)
}

func (h *Handlers) Unmark(w http.ResponseWriter, r *http.Request) {
	eventID, ok := httputil.ParsePathInt64OrError(w, r, "eventId")
	if !ok {
		return
	}
	memberID, ok := httputil.ParsePathInt64OrError(w, r, "memberId")
	if !ok {
		return
	}
	if err := h.store.Unmark(r.Context(), eventID, memberID); err != nil {
		if errors.Is(err, ErrNotFound) {
			httputil.WriteNotFound(w, ErrNotFound.Error())
			return
		}
		h.logger.WithError(err).Error("unmarking attendance failed")
		httputil.WriteInternalError(w)
		return
	}
	httputil.WriteSuccessMessage(w, "attendance removed")
}
