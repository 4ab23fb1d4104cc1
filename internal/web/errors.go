package web

// errors.go provides unified error response handling for the web layer.
//
// The error flow:
//  1. Handler encounters an error
//  2. Calls respondError(w, r, err, status), or respondServiceError to derive the status
//  3. Error is wrapped by core.NewUserError to get a user-friendly message and code
//  4. Technical error + context is logged with request ID for correlation
//  5. The user message is written as JSON

import (
	"errors"
	"net/http"
	"strings"

	"github.com/JonMunkholm/smartclean/internal/core"
	"github.com/JonMunkholm/smartclean/internal/logging"
	"github.com/JonMunkholm/smartclean/internal/service"
)

// ErrorResponse represents the JSON structure for API error responses.
// Includes both machine-readable (Code) and human-readable (Message, Action) fields.
type ErrorResponse struct {
	Error   string                 `json:"error"`
	Message string                 `json:"message"`
	Action  string                 `json:"action,omitempty"`
	Code    string                 `json:"code"`
	Details []core.ValidationError `json:"details,omitempty"`
}

// respondError logs the technical error server-side and writes the
// user-facing message.
func respondError(w http.ResponseWriter, r *http.Request, err error, status int) {
	userErr := core.NewUserError(err)

	log := logging.FromContext(r.Context()).With(
		"path", r.URL.Path,
		"method", r.Method,
		"status", status,
		"error", userErr.Technical.Error(),
		"code", userErr.User.Code,
	)
	if status >= http.StatusInternalServerError {
		log.Error("request error")
	} else {
		log.Warn("request rejected")
	}

	resp := ErrorResponse{
		Error:   userErr.Error(),
		Message: userErr.User.Message,
		Action:  userErr.User.Action,
		Code:    userErr.User.Code,
	}
	var cfgErr *service.ConfigError
	if errors.As(userErr, &cfgErr) && len(cfgErr.Rejected) > 0 {
		resp.Message = cfgErr.Error()
		resp.Details = cfgErr.Rejected
	}
	writeJSON(w, status, resp)
}

// respondServiceError derives the status from the error code.
func respondServiceError(w http.ResponseWriter, r *http.Request, err error) {
	respondError(w, r, err, statusFor(err))
}

// statusFor maps an error to an HTTP status by its user-facing code.
func statusFor(err error) int {
	code := core.MapError(err).Code
	switch {
	case code == "FILE001":
		return http.StatusRequestEntityTooLarge
	case code == "SES001":
		return http.StatusNotFound
	case code == "JOB001":
		return http.StatusServiceUnavailable
	case code == "JOB003":
		return http.StatusGatewayTimeout
	case code == "RATE001":
		return http.StatusTooManyRequests
	case strings.HasPrefix(code, "FILE"),
		strings.HasPrefix(code, "SES"),
		strings.HasPrefix(code, "CFG"),
		code == "JOB002":
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
