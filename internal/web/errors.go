package web

// errors.go provides unified error response handling for the web layer.
//
// Every error is logged with its technical detail and request ID, then
// returned to the client as a core.MapError user message with an HTTP status
// derived from the sentinel it wraps.

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"

	"github.com/JonMunkholm/ledgerprep/internal/core"
	"github.com/JonMunkholm/ledgerprep/internal/ingest"
	"github.com/JonMunkholm/ledgerprep/internal/logging"
)

// ErrorResponse represents the JSON structure for API error responses.
// Includes both machine-readable (Code) and human-readable (Message, Action) fields.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Action  string `json:"action,omitempty"`
	Code    string `json:"code"`
}

// statusFor maps an error to an HTTP status code.
func statusFor(err error) int {
	switch {
	case errors.Is(err, core.ErrSessionNotFound),
		errors.Is(err, core.ErrRecipeNotFound),
		errors.Is(err, core.ErrProfileNotFound):
		return http.StatusNotFound
	case errors.Is(err, core.ErrNoData):
		return http.StatusConflict
	case errors.Is(err, core.ErrTooManySessions):
		return http.StatusTooManyRequests
	case errors.Is(err, core.ErrTooManyJobs):
		return http.StatusServiceUnavailable
	case errors.Is(err, ingest.ErrFileTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, core.ErrRowOutOfRange),
		errors.Is(err, core.ErrUnknownColumn),
		errors.Is(err, core.ErrColumnIndex),
		errors.Is(err, core.ErrStepIndex),
		errors.Is(err, core.ErrInvalidRecipe),
		errors.Is(err, core.ErrEntityMismatch),
		errors.Is(err, ingest.ErrUnsupportedFormat),
		errors.Is(err, ingest.ErrEmptyFile),
		errors.Is(err, ingest.ErrSheetNotFound):
		return http.StatusBadRequest
	}

	// Parse failures from ingest carry no sentinel.
	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "parse error on line") || strings.Contains(msg, "invalid json") ||
		strings.Contains(msg, "parse csv") || strings.Contains(msg, "open workbook") {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

// respondError logs err and writes the mapped user message.
func (s *Server) respondError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	userMsg := core.MapError(err)

	logger := logging.FromContext(r.Context())
	args := []any{
		"path", r.URL.Path,
		"method", r.Method,
		"status", status,
		"error", err.Error(),
		"code", userMsg.Code,
	}
	if status >= 500 {
		logger.Error("request error", args...)
	} else {
		logger.Warn("request error", args...)
	}

	if status == http.StatusServiceUnavailable || status == http.StatusTooManyRequests {
		w.Header().Set("Retry-After", "5")
	}
	render.Status(r, status)
	render.JSON(w, r, ErrorResponse{
		Error:   userMsg.Message,
		Message: userMsg.Message,
		Action:  userMsg.Action,
		Code:    userMsg.Code,
	})
}

// respondBadRequest writes a 400 for malformed or invalid request payloads.
func respondBadRequest(w http.ResponseWriter, r *http.Request, message string) {
	logging.FromContext(r.Context()).Warn("bad request", "path", r.URL.Path, "reason", message)

	render.Status(r, http.StatusBadRequest)
	render.JSON(w, r, ErrorResponse{
		Error:   "invalid request",
		Message: message,
		Action:  "Check the request fields and try again",
		Code:    "REQ001",
	})
}

// validationMessage turns validator errors into one readable sentence.
func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		field := fe.Field()
		switch fe.Tag() {
		case "required":
			parts = append(parts, field+" is required")
		case "min":
			parts = append(parts, field+" must be at least "+fe.Param())
		case "max":
			parts = append(parts, field+" must be at most "+fe.Param())
		case "gte":
			parts = append(parts, field+" must be greater than or equal to "+fe.Param())
		case "oneof":
			parts = append(parts, field+" must be one of: "+strings.ReplaceAll(fe.Param(), " ", ", "))
		default:
			parts = append(parts, field+" failed "+fe.Tag()+" validation")
		}
	}
	return strings.Join(parts, "; ")
}
