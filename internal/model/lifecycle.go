package model

import "time"

// SoftDeleteState carries the soft-delete lifecycle of a persisted record.
// DeletedAt is set if and only if IsDeleted is true. DeletedBy stays nil for
// anonymous deletions.
type SoftDeleteState struct {
	IsDeleted bool       `json:"is_deleted"`
	DeletedAt *time.Time `json:"deleted_at,omitempty"`
	DeletedBy *string    `json:"deleted_by,omitempty"`
}

// Deletable is implemented by every entity that embeds SoftDeleteState.
type Deletable interface {
	Lifecycle() *SoftDeleteState
}

func (s *SoftDeleteState) Lifecycle() *SoftDeleteState {
	return s
}

// MarkDeleted stamps the record as deleted. Calling it on an already deleted
// record re-stamps the time and actor.
func (s *SoftDeleteState) MarkDeleted(actorID *string, at time.Time) {
	stamped := at.UTC()
	s.IsDeleted = true
	s.DeletedAt = &stamped
	s.DeletedBy = nil
	if actorID != nil && *actorID != "" {
		id := *actorID
		s.DeletedBy = &id
	}
}

func (s *SoftDeleteState) Restore() {
	s.IsDeleted = false
	s.DeletedAt = nil
	s.DeletedBy = nil
}

// Valid reports whether the lifecycle fields are consistent with each other.
func (s SoftDeleteState) Valid() bool {
	if s.IsDeleted {
		return s.DeletedAt != nil
	}
	return s.DeletedAt == nil && s.DeletedBy == nil
}

// Visibility selects which lifecycle states a listing returns.
type Visibility int

const (
	VisibilityActive Visibility = iota
	VisibilityDeleted
	VisibilityAll
)

// Includes reports whether a record in the given state is visible.
func (v Visibility) Includes(state SoftDeleteState) bool {
	switch v {
	case VisibilityDeleted:
		return state.IsDeleted
	case VisibilityAll:
		return true
	default:
		return !state.IsDeleted
	}
}

// FilterVisible returns the records of items visible under v, preserving order.
func FilterVisible[T Deletable](items []T, v Visibility) []T {
	out := make([]T, 0, len(items))
	for _, item := range items {
		if v.Includes(*item.Lifecycle()) {
			out = append(out, item)
		}
	}
	return out
}
