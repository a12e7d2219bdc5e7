package http

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"finsight/internal/core"
	applog "finsight/internal/log"
	"finsight/internal/reveal"
	"finsight/internal/services"
)

type createReportResponse struct {
	Status string `json:"status"`
	services.ReportResult
}

// handleCreateReport generates a report over either the posted transactions
// or the user's listing for filter, then starts revealing it on the user's
// panel. The response carries the final length; the text itself arrives on
// the stream.
func (s *Server) handleCreateReport(w http.ResponseWriter, r *http.Request) {
	var req createReportRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, applog.OpGenerate, err)
		return
	}

	userID := userFrom(r.Context())
	var (
		res services.ReportResult
		err error
	)
	if req.Transactions != nil {
		res, err = s.reports.Request(r.Context(), userID, req.Transactions)
	} else {
		raw := req.Filter
		if raw == "" {
			raw = string(core.FilterAll)
		}
		var f core.Filter
		if f, err = core.ParseFilter(raw); err == nil {
			res, err = s.reports.RequestForFilter(r.Context(), userID, f, s.now().In(s.loc))
		}
	}
	if err != nil {
		s.writeError(w, r, applog.OpGenerate, err)
		return
	}

	writeJSON(w, http.StatusAccepted, createReportResponse{Status: reveal.Revealing.String(), ReportResult: res})
}

// handleReportStream relays the user's panel as server-sent events. The
// first event is a reset carrying the text visible so far.
func (s *Server) handleReportStream(w http.ResponseWriter, r *http.Request) {
	rc := http.NewResponseController(w)

	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	if err := rc.Flush(); err != nil {
		s.logger.WarnContext(r.Context(), "Event stream unsupported", applog.FieldError, err)
		return
	}

	events, cancel := s.reports.Panel(userFrom(r.Context())).Subscribe(256)
	defer cancel()

	heartbeat := time.NewTicker(s.heartbeat)
	defer heartbeat.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-heartbeat.C:
			if _, err := fmt.Fprint(w, ": ping\n\n"); err != nil {
				return
			}
		case ev, ok := <-events:
			if !ok {
				// dropped for falling behind; the client reconnects for a
				// fresh snapshot
				return
			}
			if err := writeEvent(w, ev); err != nil {
				return
			}
		}
		if err := rc.Flush(); err != nil {
			return
		}
	}
}

func writeEvent(w http.ResponseWriter, ev reveal.Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "id: %d\nevent: %s\ndata: %s\n\n", ev.Revision, ev.Kind, data)
	return err
}

// handleDismissReport stops the reveal when the user closes the dialog.
func (s *Server) handleDismissReport(w http.ResponseWriter, r *http.Request) {
	s.reports.Dismiss(userFrom(r.Context()))
	w.WriteHeader(http.StatusNoContent)
}
