package event

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

type Type string

const (
	TypeAuditLogged  Type = "audit.logged"
	TypeTrashChanged Type = "trash.changed"
)

type Event struct {
	ID        string      `json:"id"`
	Type      Type        `json:"type"`
	Room      string      `json:"room"`
	Payload   interface{} `json:"payload"`
	Timestamp string      `json:"timestamp"`
	ActorID   string      `json:"actor_id,omitempty"` // Who triggered the event
}

type Bus interface {
	Publish(e Event)
	Subscribe() (<-chan Event, func()) // Returns channel and unsubscribe function
}

func New(typ Type, room string, actorID string, payload any) Event {
	return Event{
		ID:        uuid.NewString(),
		Type:      typ,
		Room:      room,
		Payload:   payload,
		Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
		ActorID:   actorID,
	}
}

const tenantRoomPrefix = "tenant:"

// TenantRoom is the room every member of a tenant may join.
func TenantRoom(tenantID string) string {
	return tenantRoomPrefix + tenantID
}

// ResourceRoom is scoped to a single record inside a tenant.
func ResourceRoom(tenantID string, moduleKey string, id string) string {
	return TenantRoom(tenantID) + ":" + moduleKey + ":" + id
}

// RoomAllowed reports whether a member of tenantID may join room.
func RoomAllowed(room string, tenantID string) bool {
	if tenantID == "" || room == "" {
		return false
	}
	own := TenantRoom(tenantID)
	return room == own || strings.HasPrefix(room, own+":")
}
