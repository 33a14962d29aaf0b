package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/errgroup"

	"go-event-platform/internal/model"
	"go-event-platform/internal/registry"
)

type TrashRepository struct {
	pool *pgxpool.Pool
}

func NewTrashRepository(pool *pgxpool.Pool) *TrashRepository {
	return &TrashRepository{pool: pool}
}

// ListDeleted returns one page of a module's trashed rows and the total across
// all pages. The two statements run concurrently and are not read from a
// shared snapshot.
func (r *TrashRepository) ListDeleted(ctx context.Context, m registry.Module, filter model.TrashFilter, page model.Page) ([]model.TrashItem, int, error) {
	q, err := buildTrashQuery(m, filter, page)
	if err != nil {
		return nil, 0, err
	}

	var (
		items []model.TrashItem
		total int
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var listErr error
		items, listErr = r.queryItems(gctx, m.Key, q.List, q.ListArgs)
		return listErr
	})
	g.Go(func() error {
		if err := r.pool.QueryRow(gctx, q.Count, q.CountArgs...).Scan(&total); err != nil {
			return fmt.Errorf("count trash %s: %w", m.Key, err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

// CountDeleted runs only the count statement; no rows are materialized.
func (r *TrashRepository) CountDeleted(ctx context.Context, m registry.Module, filter model.TrashFilter) (int, error) {
	q, err := buildTrashQuery(m, filter, model.Page{Number: 1, Size: model.Unbounded})
	if err != nil {
		return 0, err
	}

	var total int
	if err := r.pool.QueryRow(ctx, q.Count, q.CountArgs...).Scan(&total); err != nil {
		return 0, fmt.Errorf("count trash %s: %w", m.Key, err)
	}
	return total, nil
}

func (r *TrashRepository) queryItems(ctx context.Context, moduleKey string, query string, args []any) ([]model.TrashItem, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list trash %s: %w", moduleKey, err)
	}
	defer rows.Close()

	items := make([]model.TrashItem, 0)
	for rows.Next() {
		item, err := scanTrashItem(rows, moduleKey)
		if err != nil {
			return nil, fmt.Errorf("scan trash %s: %w", moduleKey, err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func scanTrashItem(rows pgx.Rows, moduleKey string) (model.TrashItem, error) {
	var (
		item                              model.TrashItem
		deletedAt                         *time.Time
		deletedBy, deletedByName, byEmail *string
		parentID, parentTitle, parentKey  *string
		data                              []byte
	)

	if err := rows.Scan(
		&item.ID, &item.Title, &item.TenantID, &deletedAt, &deletedBy,
		&deletedByName, &byEmail, &parentID, &parentTitle, &parentKey, &data,
	); err != nil {
		return model.TrashItem{}, err
	}

	item.Module = moduleKey
	if deletedAt != nil {
		at := deletedAt.UTC()
		item.DeletedAt = &at
	}
	item.DeletedBy = deletedByDisplay(deletedBy, deletedByName, byEmail)
	if parentID != nil {
		item.Parent = &model.ParentRef{ID: *parentID, Title: deref(parentTitle), ExternalKey: deref(parentKey)}
	}
	if len(data) > 0 {
		item.Data = json.RawMessage(data)
	}
	return item, nil
}

// deletedByDisplay falls back to the raw identifier when the user row is gone.
func deletedByDisplay(id, name, email *string) *model.DeletedBy {
	if id == nil || *id == "" {
		return nil
	}
	out := &model.DeletedBy{ID: *id, Name: *id, Email: *id}
	if name != nil && *name != "" {
		out.Name = *name
	}
	if email != nil && *email != "" {
		out.Email = *email
	}
	return out
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
