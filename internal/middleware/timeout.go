package middleware

import (
	"encoding/json"
	"net/http"
	"time"

	"go-event-platform/internal/model"
)

// Timeout bounds request handling. Bulk lifecycle operations detach from the
// request context, so a timed-out client does not interrupt them.
func Timeout(timeout time.Duration) func(http.Handler) http.Handler {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	message, _ := json.Marshal(model.APIResponse{
		Success: false,
		Error:   &model.APIError{Code: "REQUEST_TIMEOUT", Message: "request timed out"},
	})

	return func(next http.Handler) http.Handler {
		return http.TimeoutHandler(next, timeout, string(message))
	}
}
