package repository

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-event-platform/internal/model"
	"go-event-platform/internal/registry"
)

func lookupModule(t *testing.T, key string) registry.Module {
	t.Helper()

	reg, err := registry.Default(nil, nil)
	require.NoError(t, err)
	m, err := reg.Lookup(key)
	require.NoError(t, err)
	return m
}

func TestBuildTrashQueryFlat(t *testing.T) {
	t.Parallel()

	q, err := buildTrashQuery(lookupModule(t, registry.KeyWebinars), model.TrashFilter{TenantID: "t1"}, model.Page{Number: 2, Size: 10})
	require.NoError(t, err)

	assert.Contains(t, q.List, "FROM events t")
	assert.Contains(t, q.List, "t.is_deleted = true")
	assert.Contains(t, q.List, "t.event_type = $1")
	assert.Contains(t, q.List, "t.tenant_id::text = $2")
	assert.Contains(t, q.List, "LEFT JOIN users u ON u.id::text = t.deleted_by")
	assert.Contains(t, q.List, "ORDER BY deleted_at DESC NULLS LAST, id")
	assert.Contains(t, q.List, "LIMIT $3 OFFSET $4")
	assert.Equal(t, []any{"webinar", "t1", 10, 10}, q.ListArgs)

	assert.NotContains(t, q.Count, "users u")
	assert.NotContains(t, q.Count, "LIMIT")
	assert.Equal(t, []any{"webinar", "t1"}, q.CountArgs)
}

func TestBuildTrashQueryJoinedPreservesUnmatched(t *testing.T) {
	t.Parallel()

	q, err := buildTrashQuery(lookupModule(t, registry.KeyRegistrations), model.TrashFilter{}, model.Page{Number: 1, Size: 20})
	require.NoError(t, err)

	assert.Contains(t, q.List, "LEFT JOIN events r ON r.id = t.event_id")
	assert.Contains(t, q.List, "(r.id IS NULL OR r.event_type = $1)")
	assert.Contains(t, q.List, "r.title::text AS parent_title")
	assert.Contains(t, q.List, "COALESCE(t.full_name::text, '') AS title")
	assert.Equal(t, []any{"standard"}, q.CountArgs)
	assert.Equal(t, []any{"standard", 20, 0}, q.ListArgs)
}

func TestBuildTrashQueryJoinedInner(t *testing.T) {
	t.Parallel()

	q, err := buildTrashQuery(lookupModule(t, registry.KeyWebinarRegistrations), model.TrashFilter{}, model.Page{Size: model.Unbounded})
	require.NoError(t, err)

	assert.Contains(t, q.Count, "\nJOIN events r ON r.id = t.event_id AND r.event_type = $1")
	assert.NotContains(t, q.Count, "LEFT JOIN events")
	assert.NotContains(t, q.List, "IS NULL OR")
	assert.NotContains(t, q.List, "LIMIT")
	assert.Equal(t, []any{"webinar"}, q.ListArgs)
}

func TestBuildTrashQueryEmbedded(t *testing.T) {
	t.Parallel()

	from := time.Date(2026, 3, 1, 0, 0, 0, 0, time.FixedZone("EST", -5*3600))
	filter := model.TrashFilter{TenantID: "t1", Search: " capital ", DeletedBy: "u1", From: &from}

	q, err := buildTrashQuery(lookupModule(t, registry.KeyQuizQuestions), filter, model.Page{Number: 1, Size: 5})
	require.NoError(t, err)

	assert.Contains(t, q.Count, "CROSS JOIN LATERAL jsonb_array_elements(CASE WHEN jsonb_typeof(p.questions) = 'array' THEN p.questions ELSE '[]'::jsonb END) AS e(elem)")
	assert.Contains(t, q.Count, "lower(e.elem->>'is_deleted') = 'true'")
	assert.NotContains(t, q.Count, "::boolean")
	assert.Contains(t, q.Count, "(e.elem->>'text') ILIKE $2")
	assert.Contains(t, q.Count, "(e.elem->>'deleted_by') = $3")
	assert.Contains(t, q.Count, "THEN (e.elem->>'deleted_at')::timestamptz END) >= $4")
	assert.Contains(t, q.List, "p.code::text AS parent_key")
	assert.Contains(t, q.List, "LEFT JOIN users u ON u.id::text = e.elem->>'deleted_by'")
	assert.NotContains(t, q.Count, "users u")

	require.Len(t, q.CountArgs, 4)
	assert.Equal(t, "t1", q.CountArgs[0])
	assert.Equal(t, "%capital%", q.CountArgs[1])
	assert.Equal(t, "u1", q.CountArgs[2])
	assert.Equal(t, from.UTC(), q.CountArgs[3])
	assert.Equal(t, []any{5, 0}, q.ListArgs[4:])
}

func TestBuildTrashQueryRejectsUnknownStrategy(t *testing.T) {
	t.Parallel()

	m := lookupModule(t, registry.KeyPolls)
	m.Strategy = registry.Strategy(42)

	_, err := buildTrashQuery(m, model.TrashFilter{}, model.Page{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "polls")
}

func TestVisibilityClause(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "t.is_deleted = false", VisibilityClause("t", model.VisibilityActive))
	assert.Equal(t, "t.is_deleted = true", VisibilityClause("t", model.VisibilityDeleted))
	assert.Equal(t, "TRUE", VisibilityClause("t", model.VisibilityAll))
}

func TestUniqueActiveIndexDDL(t *testing.T) {
	t.Parallel()

	assert.Equal(t,
		"CREATE UNIQUE INDEX IF NOT EXISTS ux_events_tenant_id_slug_active ON events (tenant_id, slug) WHERE is_deleted = false",
		UniqueActiveIndexDDL("events", "tenant_id", "slug"))
}
