package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"go-event-platform/internal/model"
	"go-event-platform/internal/registry"
)

const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

// ElementMutation rewrites a parent's embedded collection and reports how many
// elements it changed. Returning zero leaves the parent untouched.
type ElementMutation func(elements []model.EmbeddedElement) ([]model.EmbeddedElement, int, error)

// LifecycleRepository applies lifecycle transitions to the tables behind
// registry modules.
type LifecycleRepository struct {
	pool *pgxpool.Pool
	now  func() time.Time
}

func NewLifecycleRepository(pool *pgxpool.Pool) *LifecycleRepository {
	return &LifecycleRepository{pool: pool, now: time.Now}
}

// UniqueActiveIndexDDL returns a partial unique index that only covers active
// rows, so trashed rows never block a new active row with the same key.
func UniqueActiveIndexDDL(table string, columns ...string) string {
	return fmt.Sprintf("CREATE UNIQUE INDEX IF NOT EXISTS ux_%s_%s_active ON %s (%s) WHERE is_deleted = false",
		table, strings.Join(columns, "_"), table, strings.Join(columns, ", "))
}

// EnsureActiveUniqueIndexes creates the partial unique index of every module
// that declares one.
func (r *LifecycleRepository) EnsureActiveUniqueIndexes(ctx context.Context, modules []registry.Module) error {
	for _, m := range modules {
		if len(m.UniqueActive) == 0 {
			continue
		}
		if _, err := r.pool.Exec(ctx, UniqueActiveIndexDDL(m.Entity.Table, m.UniqueActive...)); err != nil {
			return fmt.Errorf("ensure active unique index for %s: %w", m.Key, err)
		}
	}
	slog.Info("active unique indexes ensured")
	return nil
}

// SoftDelete re-stamps rows that are already trashed.
func (r *LifecycleRepository) SoftDelete(ctx context.Context, m registry.Module, id string, actor model.Actor) error {
	var state model.SoftDeleteState
	state.MarkDeleted(actor.IDRef(), r.now())

	var args queryArgs
	set := fmt.Sprintf("is_deleted = true, deleted_at = %s, deleted_by = %s, updated_by = COALESCE(%s, updated_by), updated_at = %s",
		args.bind(*state.DeletedAt), args.bind(state.DeletedBy), args.bind(actor.IDRef()), args.bind(*state.DeletedAt))
	where := append([]string{fmt.Sprintf("t.%s = %s", m.Entity.IDColumn, args.bind(id))},
		scopeClauses(m, "t", actor.TenantID, &args)...)

	tag, err := r.pool.Exec(ctx,
		fmt.Sprintf("UPDATE %s t SET %s WHERE %s", m.Entity.Table, set, strings.Join(where, " AND ")),
		args.values...)
	if err != nil {
		return fmt.Errorf("soft delete %s %s: %w", m.Key, id, err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrItemNotFound
	}
	return nil
}

// Restore clears the lifecycle fields of a trashed row unless an active row
// already holds one of the module's unique keys.
func (r *LifecycleRepository) Restore(ctx context.Context, m registry.Module, id string, actor model.Actor) error {
	var args queryArgs
	set := fmt.Sprintf("is_deleted = false, deleted_at = NULL, deleted_by = NULL, updated_by = COALESCE(%s, updated_by), updated_at = %s",
		args.bind(actor.IDRef()), args.bind(r.now().UTC()))
	where := append([]string{
		fmt.Sprintf("t.%s = %s", m.Entity.IDColumn, args.bind(id)),
		VisibilityClause("t", model.VisibilityDeleted),
	}, scopeClauses(m, "t", actor.TenantID, &args)...)
	if clash := activeConflictClause(m, "t"); clash != "" {
		where = append(where, "NOT "+clash)
	}

	tag, err := r.pool.Exec(ctx,
		fmt.Sprintf("UPDATE %s t SET %s WHERE %s", m.Entity.Table, set, strings.Join(where, " AND ")),
		args.values...)
	if err != nil {
		if isPgError(err, pgUniqueViolation) {
			return model.ErrRestoreConflict
		}
		return fmt.Errorf("restore %s %s: %w", m.Key, id, err)
	}
	if tag.RowsAffected() > 0 {
		return nil
	}

	trashed, err := r.isTrashed(ctx, m, id, actor.TenantID)
	if err != nil {
		return err
	}
	if trashed && len(m.UniqueActive) > 0 {
		return model.ErrRestoreConflict
	}
	return model.ErrTrashItemNotFound
}

// PermanentDelete removes a trashed row unless dependent rows still reference it.
func (r *LifecycleRepository) PermanentDelete(ctx context.Context, m registry.Module, id string, actor model.Actor) error {
	var args queryArgs
	where := append([]string{
		fmt.Sprintf("t.%s = %s", m.Entity.IDColumn, args.bind(id)),
		VisibilityClause("t", model.VisibilityDeleted),
	}, scopeClauses(m, "t", actor.TenantID, &args)...)
	if deps := dependentsClause(m, "t"); deps != "" {
		where = append(where, "NOT "+deps)
	}

	tag, err := r.pool.Exec(ctx,
		fmt.Sprintf("DELETE FROM %s t WHERE %s", m.Entity.Table, strings.Join(where, " AND ")),
		args.values...)
	if err != nil {
		if isPgError(err, pgForeignKeyViolation) {
			return model.ErrHasDependents
		}
		return fmt.Errorf("permanent delete %s %s: %w", m.Key, id, err)
	}
	if tag.RowsAffected() > 0 {
		return nil
	}

	trashed, err := r.isTrashed(ctx, m, id, actor.TenantID)
	if err != nil {
		return err
	}
	if trashed && len(m.Dependents) > 0 {
		return model.ErrHasDependents
	}
	return model.ErrTrashItemNotFound
}

// TrashedIDs lists a module's trashed row ids, most recently deleted first.
func (r *LifecycleRepository) TrashedIDs(ctx context.Context, m registry.Module, tenantID string) ([]string, error) {
	var args queryArgs
	where := append([]string{VisibilityClause("t", model.VisibilityDeleted)}, scopeClauses(m, "t", tenantID, &args)...)

	rows, err := r.pool.Query(ctx,
		fmt.Sprintf("SELECT t.%s::text FROM %s t WHERE %s ORDER BY t.deleted_at DESC",
			m.Entity.IDColumn, m.Entity.Table, strings.Join(where, " AND ")),
		args.values...)
	if err != nil {
		return nil, fmt.Errorf("list trashed ids %s: %w", m.Key, err)
	}
	defer rows.Close()

	ids := make([]string, 0)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan trashed id %s: %w", m.Key, err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// MutateElement locks the parent that holds elementID and writes back the
// collection returned by fn. It returns model.ErrItemNotFound when no parent
// in scope holds the element.
func (r *LifecycleRepository) MutateElement(ctx context.Context, m registry.Module, tenantID string, elementID string, actorID *string, fn ElementMutation) (int, error) {
	var args queryArgs
	where := append([]string{
		fmt.Sprintf("EXISTS (SELECT 1 FROM jsonb_array_elements(%s) AS x(elem) WHERE x.elem->>'id' = %s)",
			elementsOf("p."+m.Embedded.ArrayColumn), args.bind(elementID)),
	}, scopeClauses(m, "p", tenantID, &args)...)

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin %s mutation: %w", m.Key, err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var (
		parentID string
		raw      []byte
	)
	err = tx.QueryRow(ctx,
		fmt.Sprintf("SELECT p.%s::text, %s FROM %s p WHERE %s LIMIT 1 FOR UPDATE",
			m.Entity.IDColumn, elementsOf("p."+m.Embedded.ArrayColumn), m.Entity.Table, strings.Join(where, " AND ")),
		args.values...).Scan(&parentID, &raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, model.ErrItemNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("lock %s parent: %w", m.Key, err)
	}

	affected, err := r.rewriteParent(ctx, tx, m, parentID, raw, actorID, fn)
	if err != nil {
		return 0, err
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit %s mutation: %w", m.Key, err)
	}
	return affected, nil
}

// MutateTrashedElements applies fn to every parent in scope that holds at least
// one trashed element and returns the summed element count.
func (r *LifecycleRepository) MutateTrashedElements(ctx context.Context, m registry.Module, tenantID string, actorID *string, fn ElementMutation) (int, error) {
	var args queryArgs
	where := append([]string{
		fmt.Sprintf("EXISTS (SELECT 1 FROM jsonb_array_elements(%s) AS x(elem) WHERE %s)",
			elementsOf("p."+m.Embedded.ArrayColumn), elementTrashed("x.elem")),
	}, scopeClauses(m, "p", tenantID, &args)...)

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin %s bulk mutation: %w", m.Key, err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	rows, err := tx.Query(ctx,
		fmt.Sprintf("SELECT p.%s::text, %s FROM %s p WHERE %s ORDER BY p.%s FOR UPDATE",
			m.Entity.IDColumn, elementsOf("p."+m.Embedded.ArrayColumn), m.Entity.Table, strings.Join(where, " AND "), m.Entity.IDColumn),
		args.values...)
	if err != nil {
		return 0, fmt.Errorf("lock %s parents: %w", m.Key, err)
	}

	type parentRow struct {
		id  string
		raw []byte
	}
	parents := make([]parentRow, 0)
	for rows.Next() {
		var p parentRow
		if err := rows.Scan(&p.id, &p.raw); err != nil {
			rows.Close()
			return 0, fmt.Errorf("scan %s parent: %w", m.Key, err)
		}
		parents = append(parents, p)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, fmt.Errorf("iterate %s parents: %w", m.Key, err)
	}

	total := 0
	for _, p := range parents {
		affected, err := r.rewriteParent(ctx, tx, m, p.id, p.raw, actorID, fn)
		if err != nil {
			return 0, err
		}
		total += affected
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit %s bulk mutation: %w", m.Key, err)
	}
	return total, nil
}

func (r *LifecycleRepository) rewriteParent(ctx context.Context, tx pgx.Tx, m registry.Module, parentID string, raw []byte, actorID *string, fn ElementMutation) (int, error) {
	var elements []model.EmbeddedElement
	if err := json.Unmarshal(raw, &elements); err != nil {
		return 0, fmt.Errorf("decode %s collection of %s: %w", m.Key, parentID, err)
	}

	updated, affected, err := fn(elements)
	if err != nil || affected == 0 {
		return 0, err
	}

	encoded, err := json.Marshal(updated)
	if err != nil {
		return 0, fmt.Errorf("encode %s collection of %s: %w", m.Key, parentID, err)
	}

	_, err = tx.Exec(ctx,
		fmt.Sprintf("UPDATE %s SET %s = $1, updated_by = COALESCE($2, updated_by), updated_at = $3 WHERE %s = $4",
			m.Entity.Table, m.Embedded.ArrayColumn, m.Entity.IDColumn),
		encoded, actorID, r.now().UTC(), parentID)
	if err != nil {
		return 0, fmt.Errorf("write %s collection of %s: %w", m.Key, parentID, err)
	}
	return affected, nil
}

func (r *LifecycleRepository) isTrashed(ctx context.Context, m registry.Module, id string, tenantID string) (bool, error) {
	var args queryArgs
	where := append([]string{
		fmt.Sprintf("t.%s = %s", m.Entity.IDColumn, args.bind(id)),
		VisibilityClause("t", model.VisibilityDeleted),
	}, scopeClauses(m, "t", tenantID, &args)...)

	var exists bool
	err := r.pool.QueryRow(ctx,
		fmt.Sprintf("SELECT EXISTS (SELECT 1 FROM %s t WHERE %s)", m.Entity.Table, strings.Join(where, " AND ")),
		args.values...).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("probe %s %s: %w", m.Key, id, err)
	}
	return exists, nil
}

// scopeClauses narrows alias to the module's logical subset and, when given, a tenant.
func scopeClauses(m registry.Module, alias string, tenantID string, args *queryArgs) []string {
	where := make([]string, 0, 3)

	if m.Extra != nil {
		where = append(where, fmt.Sprintf("%s.%s = %s", alias, m.Extra.Column, args.bind(m.Extra.Value)))
	}

	if j := m.Join; j != nil {
		related := fmt.Sprintf("SELECT 1 FROM %s r WHERE r.%s = %s.%s", j.Table, j.RelatedColumn, alias, j.LocalColumn)
		switch {
		case j.Condition != nil && j.PreserveUnmatched:
			where = append(where, fmt.Sprintf("(EXISTS (%s AND r.%s = %s) OR NOT EXISTS (%s))",
				related, j.Condition.Column, args.bind(j.Condition.Value), related))
		case j.Condition != nil:
			where = append(where, fmt.Sprintf("EXISTS (%s AND r.%s = %s)",
				related, j.Condition.Column, args.bind(j.Condition.Value)))
		case !j.PreserveUnmatched:
			where = append(where, fmt.Sprintf("EXISTS (%s)", related))
		}
	}

	if tenantID != "" {
		where = append(where, fmt.Sprintf("%s.%s::text = %s", alias, m.Entity.TenantColumn, args.bind(tenantID)))
	}

	return where
}

// activeConflictClause matches when another active row shares every unique column.
func activeConflictClause(m registry.Module, alias string) string {
	if len(m.UniqueActive) == 0 {
		return ""
	}
	match := make([]string, 0, len(m.UniqueActive))
	for _, col := range m.UniqueActive {
		match = append(match, fmt.Sprintf("o.%s = %s.%s", col, alias, col))
	}
	return fmt.Sprintf("EXISTS (SELECT 1 FROM %s o WHERE %s AND o.%s <> %s.%s AND %s)",
		m.Entity.Table, VisibilityClause("o", model.VisibilityActive),
		m.Entity.IDColumn, alias, m.Entity.IDColumn, strings.Join(match, " AND "))
}

// dependentsClause matches when any dependent row, trashed or not, references alias.
func dependentsClause(m registry.Module, alias string) string {
	if len(m.Dependents) == 0 {
		return ""
	}
	parts := make([]string, 0, len(m.Dependents))
	for _, d := range m.Dependents {
		parts = append(parts, fmt.Sprintf("EXISTS (SELECT 1 FROM %s d WHERE d.%s = %s.%s)",
			d.Table, d.ForeignKey, alias, m.Entity.IDColumn))
	}
	return "(" + strings.Join(parts, " OR ") + ")"
}

func isPgError(err error, code string) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == code
}
