package model

import (
	"encoding/json"
	"strings"
	"time"
)

// TrashItem is the uniform row returned for every trashed record regardless of
// the query strategy that produced it.
type TrashItem struct {
	ID        string          `json:"id"`
	Module    string          `json:"module"`
	Title     string          `json:"title"`
	TenantID  string          `json:"tenant_id,omitempty"`
	DeletedAt *time.Time      `json:"deleted_at,omitempty"`
	DeletedBy *DeletedBy      `json:"deleted_by,omitempty"`
	Parent    *ParentRef      `json:"parent,omitempty"`
	Data      json.RawMessage `json:"data,omitempty"`
}

// DeletedBy is the display attribution of the deleting actor. Name and Email
// fall back to the raw identifier when the user no longer exists.
type DeletedBy struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
}

// ParentRef points an embedded child back at its parent aggregate.
type ParentRef struct {
	ID          string `json:"id"`
	Title       string `json:"title,omitempty"`
	ExternalKey string `json:"external_key,omitempty"`
}

// TrashPage is one module's slice of the trash.
type TrashPage struct {
	Items []TrashItem `json:"items"`
	Total int         `json:"total"`
}

type TrashFilter struct {
	TenantID  string
	Search    string
	DeletedBy string
	From      *time.Time
	To        *time.Time
}

// Page selects a window of results. Size <= 0 or Size >= Unbounded disables
// the limit; only internal callers build such pages, Normalize never yields one
// when a maximum is configured.
type Page struct {
	Number int
	Size   int
}

const Unbounded = int(^uint(0) >> 1)

func (p Page) IsUnbounded() bool {
	return p.Size <= 0 || p.Size >= Unbounded
}

// Offset saturates instead of overflowing for very large page numbers.
func (p Page) Offset() int {
	if p.IsUnbounded() || p.Number <= 1 {
		return 0
	}
	if p.Number-1 > Unbounded/p.Size {
		return (Unbounded / p.Size) * p.Size
	}
	return (p.Number - 1) * p.Size
}

// Normalize clamps a client page: Number >= 1 and Size in [1, maxSize], using
// defaultSize when unset. Number is capped so the offset stays representable.
func (p Page) Normalize(defaultSize int, maxSize int) Page {
	if p.Number < 1 {
		p.Number = 1
	}
	if p.Size <= 0 {
		p.Size = defaultSize
	}
	if maxSize > 0 && p.Size > maxSize {
		p.Size = maxSize
	}
	if !p.IsUnbounded() {
		if last := Unbounded/p.Size + 1; p.Number > last {
			p.Number = last
		}
	}
	return p
}

// Outcome reports the effect of a lifecycle operation.
type Outcome struct {
	Module   string        `json:"module"`
	ItemID   string        `json:"item_id,omitempty"`
	Affected int           `json:"affected"`
	Skipped  []SkippedItem `json:"skipped,omitempty"`
}

type SkippedItem struct {
	ID     string `json:"id"`
	Reason string `json:"reason"`
}

// EmbeddedElement is a soft-deletable child stored inside a parent's JSONB
// array. Fields other than the lifecycle ones are carried through untouched.
//
// Decoding is lenient so that one odd element never blocks a rewrite of its
// siblings: id and deleted_by are read as text whether stored as strings or
// numbers, an element is trashed only when is_deleted reads "true" (boolean
// or string, any case), and an unparsable deleted_at is ignored. Non-object
// array entries are kept verbatim and never trashed. The trash queries apply
// the same reading.
type EmbeddedElement struct {
	ID string `json:"id"`
	SoftDeleteState
	fields map[string]json.RawMessage
	opaque json.RawMessage
}

func (e *EmbeddedElement) UnmarshalJSON(data []byte) error {
	*e = EmbeddedElement{}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil || fields == nil {
		e.opaque = append(json.RawMessage(nil), data...)
		return nil
	}

	e.fields = fields
	e.ID = jsonText(fields["id"])
	e.IsDeleted = strings.EqualFold(jsonText(fields["is_deleted"]), "true")
	if at, err := time.Parse(time.RFC3339Nano, jsonText(fields["deleted_at"])); err == nil {
		at = at.UTC()
		e.DeletedAt = &at
	}
	if by := jsonText(fields["deleted_by"]); by != "" {
		e.DeletedBy = &by
	}
	return nil
}

func (e EmbeddedElement) MarshalJSON() ([]byte, error) {
	if e.opaque != nil {
		return e.opaque, nil
	}

	out := make(map[string]any, len(e.fields)+4)
	for k, v := range e.fields {
		out[k] = v
	}
	if _, ok := out["id"]; !ok && e.ID != "" {
		out["id"] = e.ID
	}
	out["is_deleted"] = e.IsDeleted
	delete(out, "deleted_at")
	delete(out, "deleted_by")
	if e.DeletedAt != nil {
		out["deleted_at"] = e.DeletedAt
	}
	if e.DeletedBy != nil {
		out["deleted_by"] = *e.DeletedBy
	}
	return json.Marshal(out)
}

// jsonText reads a scalar the way Postgres' ->> does: strings unquoted,
// numbers and booleans as written. Null and containers read as empty.
func jsonText(raw json.RawMessage) string {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" || trimmed == "null" || trimmed[0] == '{' || trimmed[0] == '[' {
		return ""
	}
	if trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal([]byte(trimmed), &s); err != nil {
			return ""
		}
		return s
	}
	return trimmed
}

// TrashChange is pushed to live subscribers after a lifecycle operation succeeds.
type TrashChange struct {
	Module    string `json:"module"`
	Operation string `json:"operation"`
	ItemID    string `json:"item_id,omitempty"`
	Affected  int    `json:"affected"`
	Skipped   int    `json:"skipped,omitempty"`
}
