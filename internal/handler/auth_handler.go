package handler

import (
	"net/http"

	"go-event-platform/internal/middleware"
	"go-event-platform/pkg/apierror"
)

// AuthHandler exposes the identity carried by the caller's access token.
// Tokens are issued by the platform's identity provider.
type AuthHandler struct{}

func NewAuthHandler() *AuthHandler {
	return &AuthHandler{}
}

func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	if _, ok := middleware.ClaimsFromContext(r.Context()); !ok {
		writeError(w, apierror.Unauthorized("authentication required"))
		return
	}

	writeSuccess(w, http.StatusOK, actorFromRequest(r), nil)
}
