package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"go-event-platform/internal/model"
	"go-event-platform/internal/registry"
)

var (
	displayWalls = registry.Module{
		Key:          "display_walls",
		Subject:      model.SubjectDisplayWall,
		Entity:       registry.Entity{Table: "display_walls", IDColumn: "id", TitleColumn: "title", TenantColumn: "tenant_id"},
		Strategy:     registry.StrategyFlat,
		UniqueActive: []string{"tenant_id", "slug"},
	}
	quizQuestions = registry.Module{
		Key:      "quiz_questions",
		Subject:  model.SubjectQuizQuestion,
		Entity:   registry.Entity{Table: "quizzes", IDColumn: "id", TitleColumn: "title", TenantColumn: "tenant_id"},
		Strategy: registry.StrategyEmbedded,
		Embedded: &registry.Embedded{ArrayColumn: "questions", LabelKey: "text"},
	}
	editor = model.Actor{UserID: "u1", TenantID: "t1", Role: "admin"}
)

func TestTableLifecycleRestoreAll(t *testing.T) {
	t.Parallel()

	t.Run("restores the non-conflicting subset and reports the conflict", func(t *testing.T) {
		store := new(MockTableStore)
		store.On("TrashedIDs", mock.Anything, displayWalls, "t1").Return([]string{"w1", "w2", "w3"}, nil)
		store.On("Restore", mock.Anything, displayWalls, "w1", editor).Return(nil)
		store.On("Restore", mock.Anything, displayWalls, "w2", editor).Return(model.ErrRestoreConflict)
		store.On("Restore", mock.Anything, displayWalls, "w3", editor).Return(nil)

		out, err := NewTableLifecycle(store).RestoreAll(context.Background(), displayWalls, editor)

		require.NoError(t, err)
		assert.Equal(t, 2, out.Affected)
		require.Len(t, out.Skipped, 1)
		assert.Equal(t, "w2", out.Skipped[0].ID)
		assert.Equal(t, model.ErrRestoreConflict.Error(), out.Skipped[0].Reason)
		store.AssertExpectations(t)
	})

	t.Run("empty trash is reported", func(t *testing.T) {
		store := new(MockTableStore)
		store.On("TrashedIDs", mock.Anything, displayWalls, "t1").Return([]string{}, nil)

		_, err := NewTableLifecycle(store).RestoreAll(context.Background(), displayWalls, editor)

		require.ErrorIs(t, err, model.ErrTrashEmpty)
	})

	t.Run("items removed concurrently are neither counted nor skipped", func(t *testing.T) {
		store := new(MockTableStore)
		store.On("TrashedIDs", mock.Anything, displayWalls, "t1").Return([]string{"w1", "w2"}, nil)
		store.On("Restore", mock.Anything, displayWalls, "w1", editor).Return(model.ErrTrashItemNotFound)
		store.On("Restore", mock.Anything, displayWalls, "w2", editor).Return(nil)

		out, err := NewTableLifecycle(store).RestoreAll(context.Background(), displayWalls, editor)

		require.NoError(t, err)
		assert.Equal(t, 1, out.Affected)
		assert.Empty(t, out.Skipped)
	})

	t.Run("unexpected errors stop the run", func(t *testing.T) {
		boom := errors.New("connection reset")
		store := new(MockTableStore)
		store.On("TrashedIDs", mock.Anything, displayWalls, "t1").Return([]string{"w1", "w2"}, nil)
		store.On("Restore", mock.Anything, displayWalls, "w1", editor).Return(boom)

		out, err := NewTableLifecycle(store).RestoreAll(context.Background(), displayWalls, editor)

		require.ErrorIs(t, err, boom)
		assert.Equal(t, 0, out.Affected)
		store.AssertNotCalled(t, "Restore", mock.Anything, displayWalls, "w2", editor)
	})
}

func TestTableLifecyclePermanentDeleteAllSkipsGuardedRows(t *testing.T) {
	t.Parallel()

	store := new(MockTableStore)
	store.On("TrashedIDs", mock.Anything, displayWalls, "t1").Return([]string{"w1", "w2"}, nil)
	store.On("PermanentDelete", mock.Anything, displayWalls, "w1", editor).Return(model.ErrHasDependents)
	store.On("PermanentDelete", mock.Anything, displayWalls, "w2", editor).Return(nil)

	out, err := NewTableLifecycle(store).PermanentDeleteAll(context.Background(), displayWalls, editor)

	require.NoError(t, err)
	assert.Equal(t, 1, out.Affected)
	require.Len(t, out.Skipped, 1)
	assert.Equal(t, "w1", out.Skipped[0].ID)
}

func TestTableLifecycleSingleItem(t *testing.T) {
	t.Parallel()

	store := new(MockTableStore)
	store.On("Restore", mock.Anything, displayWalls, "w1", editor).Return(nil)
	store.On("PermanentDelete", mock.Anything, displayWalls, "w2", editor).Return(model.ErrHasDependents)

	h := NewTableLifecycle(store)

	out, err := h.Restore(context.Background(), displayWalls, "w1", editor)
	require.NoError(t, err)
	assert.Equal(t, model.Outcome{Module: "display_walls", ItemID: "w1", Affected: 1}, out)

	_, err = h.PermanentDelete(context.Background(), displayWalls, "w2", editor)
	require.ErrorIs(t, err, model.ErrHasDependents)
}

func TestEmbeddedLifecycleMapsMissingParentToTrashNotFound(t *testing.T) {
	t.Parallel()

	store := new(MockEmbeddedStore)
	store.On("MutateElement", mock.Anything, quizQuestions, "t1", "q9", mock.Anything, mock.Anything).
		Return(0, model.ErrItemNotFound)

	h := NewEmbeddedLifecycle(store)

	_, err := h.Restore(context.Background(), quizQuestions, "q9", editor)
	require.ErrorIs(t, err, model.ErrTrashItemNotFound)

	_, err = h.PermanentDelete(context.Background(), quizQuestions, "q9", editor)
	require.ErrorIs(t, err, model.ErrTrashItemNotFound)

	_, err = h.SoftDelete(context.Background(), quizQuestions, "q9", editor)
	require.ErrorIs(t, err, model.ErrItemNotFound)
}

func TestEmbeddedLifecycleBulkReportsEmptyTrash(t *testing.T) {
	t.Parallel()

	store := new(MockEmbeddedStore)
	store.On("MutateTrashedElements", mock.Anything, quizQuestions, "t1", mock.Anything, mock.Anything).Return(0, nil)

	_, err := NewEmbeddedLifecycle(store).RestoreAll(context.Background(), quizQuestions, editor)
	require.ErrorIs(t, err, model.ErrTrashEmpty)
}

func decodeElements(t *testing.T, raw string) []model.EmbeddedElement {
	t.Helper()
	var elements []model.EmbeddedElement
	require.NoError(t, json.Unmarshal([]byte(raw), &elements))
	return elements
}

func TestElementMutations(t *testing.T) {
	t.Parallel()

	raw := `[
		{"id": "q1", "text": "Capital of France?", "options": ["Paris", "Lyon"], "is_deleted": false},
		{"id": "q2", "text": "2 + 2?", "is_deleted": true, "deleted_at": "2026-01-02T03:04:05Z", "deleted_by": "u9"}
	]`
	actor := "u1"
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	t.Run("soft delete stamps the element and keeps its other fields", func(t *testing.T) {
		out, n, err := markElementDeleted("q1", &actor, at)(decodeElements(t, raw))
		require.NoError(t, err)
		require.Equal(t, 1, n)

		encoded, err := json.Marshal(out[0])
		require.NoError(t, err)
		var doc map[string]any
		require.NoError(t, json.Unmarshal(encoded, &doc))
		assert.Equal(t, true, doc["is_deleted"])
		assert.Equal(t, "u1", doc["deleted_by"])
		assert.Equal(t, "Capital of France?", doc["text"])
		assert.Equal(t, []any{"Paris", "Lyon"}, doc["options"])
	})

	t.Run("soft delete of an unknown element fails", func(t *testing.T) {
		_, _, err := markElementDeleted("nope", &actor, at)(decodeElements(t, raw))
		require.ErrorIs(t, err, model.ErrItemNotFound)
	})

	t.Run("restore only applies to trashed elements", func(t *testing.T) {
		_, _, err := restoreElement("q1")(decodeElements(t, raw))
		require.ErrorIs(t, err, model.ErrTrashItemNotFound)

		out, n, err := restoreElement("q2")(decodeElements(t, raw))
		require.NoError(t, err)
		require.Equal(t, 1, n)
		assert.False(t, out[1].IsDeleted)
		assert.Nil(t, out[1].DeletedAt)
		assert.Nil(t, out[1].DeletedBy)
	})

	t.Run("purge removes only the trashed element", func(t *testing.T) {
		elements := decodeElements(t, raw)
		out, n, err := purgeElement("q2")(elements)
		require.NoError(t, err)
		require.Equal(t, 1, n)
		require.Len(t, out, 1)
		assert.Equal(t, "q1", out[0].ID)
		assert.Len(t, elements, 2)

		_, _, err = purgeElement("q1")(decodeElements(t, raw))
		require.ErrorIs(t, err, model.ErrTrashItemNotFound)
	})

	t.Run("bulk variants count what they touch", func(t *testing.T) {
		restored, n, err := restoreTrashedElements(decodeElements(t, raw))
		require.NoError(t, err)
		assert.Equal(t, 1, n)
		for _, el := range restored {
			assert.False(t, el.IsDeleted)
		}

		kept, n, err := purgeTrashedElements(decodeElements(t, raw))
		require.NoError(t, err)
		assert.Equal(t, 1, n)
		require.Len(t, kept, 1)
		assert.Equal(t, "q1", kept[0].ID)
	})
}

func TestBulkElementMutationsTolerateIrregularElements(t *testing.T) {
	t.Parallel()

	raw := `[
		{"id": 7, "text": "legacy numeric id", "is_deleted": "true", "deleted_at": "2026-01-02T03:04:05Z"},
		{"id": "q2", "text": "fine", "is_deleted": true, "deleted_at": "2026-01-02T03:04:05Z"},
		{"id": "q3", "text": "odd flag", "is_deleted": "maybe"},
		42
	]`

	restored, n, err := restoreTrashedElements(decodeElements(t, raw))
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	for _, el := range restored {
		assert.False(t, el.IsDeleted)
	}

	kept, n, err := purgeTrashedElements(decodeElements(t, raw))
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	require.Len(t, kept, 2)
	assert.Equal(t, "q3", kept[0].ID)

	encoded, err := json.Marshal(kept)
	require.NoError(t, err)
	assert.JSONEq(t, `[{"id":"q3","text":"odd flag","is_deleted":false},42]`, string(encoded))
}
