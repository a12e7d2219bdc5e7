package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"finsight/internal/core"
	applog "finsight/internal/log"
)

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if body == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(body)
}

// statusFor maps error kinds to HTTP status codes. The message is safe to
// show the client; server-side causes are logged instead.
func statusFor(err error) (int, string, string) {
	switch {
	// storage faults first: they may wrap a validation kind for a bad record
	case errors.Is(err, core.ErrQueryFailure):
		return http.StatusInternalServerError, "could not load transactions", applog.ErrorTypeDatabase
	case errors.Is(err, core.ErrWriteFailure):
		return http.StatusInternalServerError, "could not save transaction", applog.ErrorTypeDatabase
	case errors.Is(err, core.ErrInvalidFilter):
		return http.StatusBadRequest, err.Error(), applog.ErrorTypeValidation
	case errors.Is(err, errBadRequest):
		return http.StatusBadRequest, err.Error(), applog.ErrorTypeValidation
	case errors.Is(err, core.ErrInvalidTransactionDate),
		errors.Is(err, core.ErrInvalidDateKind),
		errors.Is(err, core.ErrInvalidAmount),
		errors.Is(err, core.ErrInvalidType),
		errors.Is(err, core.ErrEmptyCategory),
		errors.Is(err, core.ErrCategoryTooLong):
		return http.StatusUnprocessableEntity, err.Error(), applog.ErrorTypeValidation
	case errors.Is(err, core.ErrReportSuperseded):
		return http.StatusConflict, "report superseded by a newer request", applog.ErrorTypeConflict
	case errors.Is(err, core.ErrReportGeneration):
		return http.StatusBadGateway, "report generation failed", applog.ErrorTypeUpstream
	default:
		return http.StatusInternalServerError, "internal error", applog.ErrorTypeInternal
	}
}

// writeError logs err and answers with the mapped status and message.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, op string, err error) {
	status, msg, kind := statusFor(err)

	fields := applog.NewFields().
		WithError(err).
		WithErrorType(kind).
		WithOperation(op).
		WithComponent(applog.ComponentHTTP).
		WithUser(userFrom(r.Context()))
	logger := applog.FromContext(r.Context())
	if status >= 500 {
		logger.Logger.ErrorContext(r.Context(), "Request failed", fields.ToSlice()...)
	} else {
		logger.Logger.WarnContext(r.Context(), "Request rejected", fields.ToSlice()...)
	}

	writeJSON(w, status, errorResponse{Error: msg})
}
