package web

// errors.go centralizes error responses: full detail is logged server-side
// with the request id for correlation, while the client receives a sanitized
// JSON message.

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"regexp"
	"strings"

	"github.com/go-chi/chi/v5/middleware"
)

// ErrorResponse is the JSON structure for API error responses.
type ErrorResponse struct {
	Error string `json:"error"`
}

// writeError writes a JSON error response. The full message is logged; the
// client gets a sanitized version.
func writeError(w http.ResponseWriter, r *http.Request, status int, message string) {
	slog.Error("request error",
		"path", r.URL.Path,
		"method", r.Method,
		"status", status,
		"error", message,
		"request_id", middleware.GetReqID(r.Context()),
	)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(ErrorResponse{Error: sanitizeErrorMessage(message)})
}

// writeJSON encodes v as JSON and writes it to w.
// Encoding errors are logged since headers are already sent.
func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("json encode error", "error", err)
	}
}

var (
	urlPattern  = regexp.MustCompile(`https?://[^\s"]+`)
	pathPattern = regexp.MustCompile(`(/[A-Za-z0-9._-]+){2,}`)
)

// sanitizeErrorMessage strips internal URLs and filesystem paths from a
// message before it reaches the client.
func sanitizeErrorMessage(message string) string {
	message = urlPattern.ReplaceAllString(message, "[url]")
	message = pathPattern.ReplaceAllString(message, "[path]")
	return strings.TrimSpace(message)
}
