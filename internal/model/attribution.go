package model

// Attribution records which actor created and last modified a record.
type Attribution struct {
	CreatedBy *string `json:"created_by"`
	UpdatedBy *string `json:"updated_by"`
}

// Attributed is implemented by every entity that embeds Attribution.
type Attributed interface {
	Authorship() *Attribution
}

func (a *Attribution) Authorship() *Attribution {
	return a
}

// StampCreate sets CreatedBy once. It is a no-op for anonymous actors and for
// records that already carry a creator.
func (a *Attribution) StampCreate(actorID *string) {
	if a.CreatedBy != nil || !knownActor(actorID) {
		return
	}
	id := *actorID
	a.CreatedBy = &id
}

// StampUpdate overwrites UpdatedBy when the actor is known. CreatedBy is never touched.
func (a *Attribution) StampUpdate(actorID *string) {
	if !knownActor(actorID) {
		return
	}
	id := *actorID
	a.UpdatedBy = &id
}

// CreateOne stamps a single new payload.
func CreateOne[T Attributed](actorID *string, item T) T {
	item.Authorship().StampCreate(actorID)
	return item
}

// CreateMany stamps each payload individually and keeps the input order.
func CreateMany[T Attributed](actorID *string, items []T) []T {
	out := make([]T, len(items))
	for i, item := range items {
		out[i] = CreateOne(actorID, item)
	}
	return out
}

// WithUpdatedBy returns a copy of patch with updated_by merged in. The input
// map is not modified.
func WithUpdatedBy(patch map[string]any, actorID *string) map[string]any {
	out := make(map[string]any, len(patch)+1)
	for k, v := range patch {
		out[k] = v
	}
	if knownActor(actorID) {
		out["updated_by"] = *actorID
	}
	return out
}

func knownActor(actorID *string) bool {
	return actorID != nil && *actorID != ""
}
