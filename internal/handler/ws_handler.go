package handler

import (
	"log/slog"
	"net/http"
	"strings"

	gorillaws "github.com/gorilla/websocket"

	"go-event-platform/internal/event"
	"go-event-platform/internal/model"
	"go-event-platform/internal/websocket"
	"go-event-platform/pkg/apierror"
)

type WebSocketHandler struct {
	hub      *websocket.Hub
	upgrader gorillaws.Upgrader
}

func NewWebSocketHandler(hub *websocket.Hub, allowedOrigins []string) *WebSocketHandler {
	return &WebSocketHandler{hub: hub, upgrader: websocket.Upgrader(allowedOrigins)}
}

// Subscribe joins the requested rooms the caller may see. Without an explicit
// rooms parameter the caller joins its tenant room.
func (h *WebSocketHandler) Subscribe(w http.ResponseWriter, r *http.Request) {
	actor := actorFromRequest(r)

	rooms := subscriptionRooms(r.URL.Query().Get("rooms"), actor)
	if len(rooms) == 0 {
		writeError(w, apierror.BadRequest("no permitted rooms requested", "rooms"))
		return
	}

	if err := h.hub.Serve(h.upgrader, w, r, rooms); err != nil {
		slog.WarnContext(r.Context(), "websocket upgrade failed", "error", err, "user_id", actor.UserID)
	}
}

func subscriptionRooms(raw string, actor model.Actor) []string {
	superadmin := strings.EqualFold(actor.Role, model.RoleSuperAdmin)

	requested := strings.Split(raw, ",")
	rooms := make([]string, 0, len(requested))
	seen := map[string]bool{}
	for _, room := range requested {
		room = strings.TrimSpace(room)
		if room == "" || seen[room] {
			continue
		}
		if !superadmin && !event.RoomAllowed(room, actor.TenantID) {
			continue
		}
		seen[room] = true
		rooms = append(rooms, room)
	}

	if strings.TrimSpace(raw) == "" && actor.TenantID != "" {
		rooms = append(rooms, event.TenantRoom(actor.TenantID))
	}
	return rooms
}
