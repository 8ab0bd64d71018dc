package api

import (
	"net/http"
	"time"

	"github.com/scrcr/scrcr-server/pkg/audit"
	"github.com/scrcr/scrcr-server/pkg/httputil"
)

// handleListLoginAudit lets admins review recent login attempts.
func (s *Server) handleListLoginAudit(w http.ResponseWriter, r *http.Request) {
	filter := audit.Filter{
		Username: httputil.ParseQueryString(r, "username", ""),
	}

	limit, err := httputil.ParseQueryInt64(r, "limit", 0)
	if err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return
	}
	filter.Limit = int(limit)

	if since := httputil.ParseQueryString(r, "since", ""); since != "" {
		ts, err := time.Parse(time.RFC3339, since)
		if err != nil {
			httputil.WriteBadRequest(w, "since must be RFC 3339")
			return
		}
		filter.Since = ts
	}

	entries, err := s.auditor.List(r.Context(), filter)
	if err != nil {
		s.logger.WithError(err).Error("listing login audit failed")
		httputil.WriteInternalError(w)
		return
	}
	if entries == nil {
		entries = []audit.Entry{}
	}
	httputil.WriteSuccess(w, entries)
}
