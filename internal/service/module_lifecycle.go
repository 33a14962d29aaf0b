package service

import (
	"context"
	"errors"
	"time"

	"go-event-platform/internal/model"
	"go-event-platform/internal/registry"
	"go-event-platform/internal/repository"
)

type tableStore interface {
	SoftDelete(ctx context.Context, m registry.Module, id string, actor model.Actor) error
	Restore(ctx context.Context, m registry.Module, id string, actor model.Actor) error
	PermanentDelete(ctx context.Context, m registry.Module, id string, actor model.Actor) error
	TrashedIDs(ctx context.Context, m registry.Module, tenantID string) ([]string, error)
}

// TableLifecycle serves modules whose records are rows of their own table,
// with or without a joined related entity.
type TableLifecycle struct {
	store tableStore
}

func NewTableLifecycle(store tableStore) *TableLifecycle {
	return &TableLifecycle{store: store}
}

func (h *TableLifecycle) SoftDelete(ctx context.Context, m registry.Module, id string, actor model.Actor) (model.Outcome, error) {
	if err := h.store.SoftDelete(ctx, m, id, actor); err != nil {
		return model.Outcome{}, err
	}
	return model.Outcome{Module: m.Key, ItemID: id, Affected: 1}, nil
}

func (h *TableLifecycle) Restore(ctx context.Context, m registry.Module, id string, actor model.Actor) (model.Outcome, error) {
	if err := h.store.Restore(ctx, m, id, actor); err != nil {
		return model.Outcome{}, err
	}
	return model.Outcome{Module: m.Key, ItemID: id, Affected: 1}, nil
}

func (h *TableLifecycle) PermanentDelete(ctx context.Context, m registry.Module, id string, actor model.Actor) (model.Outcome, error) {
	if err := h.store.PermanentDelete(ctx, m, id, actor); err != nil {
		return model.Outcome{}, err
	}
	return model.Outcome{Module: m.Key, ItemID: id, Affected: 1}, nil
}

// RestoreAll restores trashed rows one at a time, newest deletion first, and
// reports rows whose unique key is held by an active row as skipped.
func (h *TableLifecycle) RestoreAll(ctx context.Context, m registry.Module, actor model.Actor) (model.Outcome, error) {
	return h.eachTrashed(ctx, m, actor, h.store.Restore, model.ErrRestoreConflict)
}

// PermanentDeleteAll removes trashed rows and reports rows that still have
// dependents as skipped.
func (h *TableLifecycle) PermanentDeleteAll(ctx context.Context, m registry.Module, actor model.Actor) (model.Outcome, error) {
	return h.eachTrashed(ctx, m, actor, h.store.PermanentDelete, model.ErrHasDependents)
}

func (h *TableLifecycle) eachTrashed(
	ctx context.Context,
	m registry.Module,
	actor model.Actor,
	apply func(context.Context, registry.Module, string, model.Actor) error,
	guard error,
) (model.Outcome, error) {
	ids, err := h.store.TrashedIDs(ctx, m, actor.TenantID)
	if err != nil {
		return model.Outcome{}, err
	}
	if len(ids) == 0 {
		return model.Outcome{}, model.ErrTrashEmpty
	}

	out := model.Outcome{Module: m.Key}
	for _, id := range ids {
		err := apply(ctx, m, id, actor)
		switch {
		case err == nil:
			out.Affected++
		case errors.Is(err, guard):
			out.Skipped = append(out.Skipped, model.SkippedItem{ID: id, Reason: guard.Error()})
		case errors.Is(err, model.ErrTrashItemNotFound):
			// restored or removed by a concurrent request
		default:
			return out, err
		}
	}
	return out, nil
}

type embeddedStore interface {
	MutateElement(ctx context.Context, m registry.Module, tenantID string, elementID string, actorID *string, fn repository.ElementMutation) (int, error)
	MutateTrashedElements(ctx context.Context, m registry.Module, tenantID string, actorID *string, fn repository.ElementMutation) (int, error)
}

// EmbeddedLifecycle serves modules whose records are elements of a JSONB array
// on a parent row.
type EmbeddedLifecycle struct {
	store embeddedStore
	now   func() time.Time
}

func NewEmbeddedLifecycle(store embeddedStore) *EmbeddedLifecycle {
	return &EmbeddedLifecycle{store: store, now: time.Now}
}

func (h *EmbeddedLifecycle) SoftDelete(ctx context.Context, m registry.Module, id string, actor model.Actor) (model.Outcome, error) {
	affected, err := h.store.MutateElement(ctx, m, actor.TenantID, id, actor.IDRef(), markElementDeleted(id, actor.IDRef(), h.now()))
	if err != nil {
		return model.Outcome{}, err
	}
	return model.Outcome{Module: m.Key, ItemID: id, Affected: affected}, nil
}

func (h *EmbeddedLifecycle) Restore(ctx context.Context, m registry.Module, id string, actor model.Actor) (model.Outcome, error) {
	affected, err := h.store.MutateElement(ctx, m, actor.TenantID, id, actor.IDRef(), restoreElement(id))
	if err != nil {
		return model.Outcome{}, trashLookupError(err)
	}
	return model.Outcome{Module: m.Key, ItemID: id, Affected: affected}, nil
}

func (h *EmbeddedLifecycle) PermanentDelete(ctx context.Context, m registry.Module, id string, actor model.Actor) (model.Outcome, error) {
	affected, err := h.store.MutateElement(ctx, m, actor.TenantID, id, actor.IDRef(), purgeElement(id))
	if err != nil {
		return model.Outcome{}, trashLookupError(err)
	}
	return model.Outcome{Module: m.Key, ItemID: id, Affected: affected}, nil
}

func (h *EmbeddedLifecycle) RestoreAll(ctx context.Context, m registry.Module, actor model.Actor) (model.Outcome, error) {
	affected, err := h.store.MutateTrashedElements(ctx, m, actor.TenantID, actor.IDRef(), restoreTrashedElements)
	if err != nil {
		return model.Outcome{}, err
	}
	if affected == 0 {
		return model.Outcome{}, model.ErrTrashEmpty
	}
	return model.Outcome{Module: m.Key, Affected: affected}, nil
}

func (h *EmbeddedLifecycle) PermanentDeleteAll(ctx context.Context, m registry.Module, actor model.Actor) (model.Outcome, error) {
	affected, err := h.store.MutateTrashedElements(ctx, m, actor.TenantID, actor.IDRef(), purgeTrashedElements)
	if err != nil {
		return model.Outcome{}, err
	}
	if affected == 0 {
		return model.Outcome{}, model.ErrTrashEmpty
	}
	return model.Outcome{Module: m.Key, Affected: affected}, nil
}

func trashLookupError(err error) error {
	if errors.Is(err, model.ErrItemNotFound) {
		return model.ErrTrashItemNotFound
	}
	return err
}

func markElementDeleted(id string, actorID *string, at time.Time) repository.ElementMutation {
	return func(elements []model.EmbeddedElement) ([]model.EmbeddedElement, int, error) {
		for i := range elements {
			if elements[i].ID == id {
				elements[i].MarkDeleted(actorID, at)
				return elements, 1, nil
			}
		}
		return elements, 0, model.ErrItemNotFound
	}
}

func restoreElement(id string) repository.ElementMutation {
	return func(elements []model.EmbeddedElement) ([]model.EmbeddedElement, int, error) {
		for i := range elements {
			if elements[i].ID == id && elements[i].IsDeleted {
				elements[i].Restore()
				return elements, 1, nil
			}
		}
		return elements, 0, model.ErrTrashItemNotFound
	}
}

func purgeElement(id string) repository.ElementMutation {
	return func(elements []model.EmbeddedElement) ([]model.EmbeddedElement, int, error) {
		for i := range elements {
			if elements[i].ID == id && elements[i].IsDeleted {
				return append(elements[:i:i], elements[i+1:]...), 1, nil
			}
		}
		return elements, 0, model.ErrTrashItemNotFound
	}
}

func restoreTrashedElements(elements []model.EmbeddedElement) ([]model.EmbeddedElement, int, error) {
	restored := 0
	for i := range elements {
		if elements[i].IsDeleted {
			elements[i].Restore()
			restored++
		}
	}
	return elements, restored, nil
}

func purgeTrashedElements(elements []model.EmbeddedElement) ([]model.EmbeddedElement, int, error) {
	kept := make([]model.EmbeddedElement, 0, len(elements))
	for _, el := range elements {
		if !el.IsDeleted {
			kept = append(kept, el)
		}
	}
	return kept, len(elements) - len(kept), nil
}
