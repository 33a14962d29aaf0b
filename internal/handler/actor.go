package handler

import (
	"net/http"
	"strconv"
	"strings"

	"go-event-platform/internal/middleware"
	"go-event-platform/internal/model"
)

// actorFromRequest builds the acting identity from verified claims. Requests
// without claims yield an anonymous actor that still carries the client IP.
func actorFromRequest(r *http.Request) model.Actor {
	actor := model.Actor{IP: middleware.ClientIP(r)}
	if claims, ok := middleware.ClaimsFromContext(r.Context()); ok {
		actor.UserID = claims.UserID
		actor.TenantID = claims.TenantID
		actor.Name = claims.Name
		actor.Role = claims.Role
	}
	return actor
}

func parseIntOrDefault(raw string, fallback int) int {
	value, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return fallback
	}
	return value
}
