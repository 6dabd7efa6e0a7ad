package web

// errors.go provides unified error response handling for the web layer.
//
// Every error is logged with its technical detail and the request id, then
// answered with the mapped user message in the format the client asked for:
// an HTML fragment for HTMX, JSON for API clients, plain text otherwise.

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/JonMunkholm/formstage/internal/form"
	"github.com/JonMunkholm/formstage/internal/limiter"
)

// ErrorResponse represents the JSON structure for API error responses.
// Includes both machine-readable (Code) and human-readable (Message, Action) fields.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Action  string `json:"action,omitempty"`
	Code    string `json:"code"`
}

// respondError logs err and writes the mapped response.
func (s *Server) respondError(w http.ResponseWriter, r *http.Request, err error) {
	msg, status := MapError(err)

	level := slog.LevelWarn
	if status >= http.StatusInternalServerError && !errors.Is(err, limiter.ErrBusy) {
		level = slog.LevelError
	}
	requestLogger(r).Log(r.Context(), level, "request error",
		"status", status,
		"code", msg.Code,
		"error", err.Error(),
	)

	if errors.Is(err, limiter.ErrBusy) {
		w.Header().Set("Retry-After", "5")
	}

	switch {
	case isHTMX(r):
		renderErrorPartial(w, r, msg, status)
	case wantsJSON(r):
		writeJSON(w, r, status, ErrorResponse{
			Error:   clientError(err, msg),
			Message: msg.Message,
			Action:  msg.Action,
			Code:    msg.Code,
		})
	default:
		http.Error(w, msg.Message+" ("+msg.Code+")", status)
	}
}

// clientError is the technical text exposed to clients. Only form errors
// are shown verbatim; they never contain paths or internal state.
func clientError(err error, msg UserMessage) string {
	var fe *form.Error
	if errors.As(err, &fe) && fe.Kind != form.KindIO {
		return fe.Error()
	}
	return msg.Message
}

// renderErrorPartial renders an HTMX-compatible error fragment.
func renderErrorPartial(w http.ResponseWriter, r *http.Request, msg UserMessage, status int) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := ErrorAlert(msg).Render(r.Context(), w); err != nil {
		requestLogger(r).Error("render error partial", "error", err)
	}
}

// isHTMX checks if the request is an HTMX request.
func isHTMX(r *http.Request) bool {
	return r.Header.Get("HX-Request") == "true"
}

// wantsJSON checks if the client prefers a JSON response.
func wantsJSON(r *http.Request) bool {
	if strings.Contains(r.Header.Get("Accept"), "application/json") {
		return true
	}
	// API routes default to JSON
	return strings.HasPrefix(r.URL.Path, "/api/")
}
