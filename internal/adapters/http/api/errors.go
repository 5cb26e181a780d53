package api

import (
	"errors"
	"net/http"

	"github.com/beenjammin/basgra/internal/adapters/repository"
	service "github.com/beenjammin/basgra/internal/app"
	"github.com/beenjammin/basgra/internal/domain/simerr"
)

// Sentinel kinds for API errors.
var (
	ErrBadRequest = errors.New("bad request")
)

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Check   string `json:"check,omitempty"`
	Field   string `json:"field,omitempty"`
	Row     *int   `json:"row,omitempty"`
}

func newErrorResponse(code string, err error) errorResponse {
	resp := errorResponse{Code: code, Message: err.Error()}
	var se *simerr.Error
	if errors.As(err, &se) {
		resp.Check = se.Check
		resp.Field = se.Field
		if se.Row != simerr.NoRow {
			row := se.Row
			resp.Row = &row
		}
	}
	return resp
}

// statusOf maps a service error to an HTTP status and error code. Input
// errors that are structurally wrong are 400; well-formed data that breaks
// a domain rule is 422.
func statusOf(err error) (int, string) {
	switch {
	case errors.Is(err, ErrBadRequest):
		return http.StatusBadRequest, "bad_request"
	case errors.Is(err, service.ErrBusy):
		return http.StatusTooManyRequests, "backpressure"
	case errors.Is(err, service.ErrNotStarted):
		return http.StatusServiceUnavailable, "unavailable"
	case errors.Is(err, repository.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, simerr.ErrConfiguration), errors.Is(err, simerr.ErrSchema):
		return http.StatusBadRequest, simerr.KindOf(err)
	case errors.Is(err, simerr.ErrContinuity), errors.Is(err, simerr.ErrRange):
		return http.StatusUnprocessableEntity, simerr.KindOf(err)
	case errors.Is(err, simerr.ErrEnvironment):
		return http.StatusServiceUnavailable, simerr.KindOf(err)
	default:
		return http.StatusInternalServerError, simerr.KindOf(err)
	}
}

func writeServiceError(w http.ResponseWriter, err error) {
	status, code := statusOf(err)
	writeJSON(w, status, newErrorResponse(code, err))
}
