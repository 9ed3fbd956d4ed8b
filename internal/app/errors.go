package app

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/getsentry/sentry-go"
	"recycle.ecomap.kr/internal/ranking"
	"recycle.ecomap.kr/internal/report"
	"recycle.ecomap.kr/internal/session"
	"recycle.ecomap.kr/internal/source"
)

// errorResponse is the body of every non-2xx JSON response.
type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// paramError is a malformed or out-of-range request parameter.
type paramError struct {
	Param string
	Msg   string
}

func (e *paramError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Param, e.Msg)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// errorStatus maps an error to its HTTP status and error code.
func errorStatus(err error) (int, string) {
	var pErr *paramError
	switch {
	case errors.As(err, &pErr):
		return http.StatusBadRequest, "invalid_parameter"
	case errors.Is(err, source.ErrUnreadableEncoding):
		return http.StatusUnprocessableEntity, "unreadable_source"
	case errors.Is(err, source.ErrMalformedTable):
		return http.StatusUnprocessableEntity, "malformed_source"
	case errors.Is(err, source.ErrMissingColumns):
		return http.StatusUnprocessableEntity, "missing_columns"
	case errors.Is(err, source.ErrSourceNotFound), errors.Is(err, source.ErrNoSource), errors.Is(err, source.ErrSourceUnavailable):
		return http.StatusServiceUnavailable, "source_unavailable"
	case errors.Is(err, session.ErrNotFound):
		return http.StatusNotFound, "session_not_found"
	case errors.Is(err, ranking.ErrInvalidReferencePoint):
		return http.StatusInternalServerError, "invalid_reference_point"
	}
	return http.StatusInternalServerError, "internal_error"
}

func (app *Application) errorResponse(w http.ResponseWriter, r *http.Request, err error) {
	status, code := errorStatus(err)

	msg := err.Error()
	switch code {
	case "unreadable_source":
		msg = "the data file could not be read as UTF-8, CP949 or EUC-KR: " + msg
	case "source_unavailable":
		msg = "default data file not available; upload a CSV or XLSX file: " + msg
	case "internal_error":
		report.ReportErrorWithSentryOptions(err, report.SentryReportOptions{
			Tags:  map[string]string{"path": r.URL.Path},
			Level: sentry.LevelError,
		})
		app.Logger.Error("Request failed", "path", r.URL.Path, "error", err)
		msg = "the server encountered a problem and could not process your request"
	}
	writeJSON(w, status, errorResponse{Error: code, Message: msg})
}
