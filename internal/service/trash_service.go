package service

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"go-event-platform/internal/metrics"
	"go-event-platform/internal/model"
	"go-event-platform/internal/registry"
)

const maxTrashFanOut = 8

type trashStore interface {
	ListDeleted(ctx context.Context, m registry.Module, filter model.TrashFilter, page model.Page) ([]model.TrashItem, int, error)
	CountDeleted(ctx context.Context, m registry.Module, filter model.TrashFilter) (int, error)
}

type TrashService struct {
	registry        *registry.Registry
	store           trashStore
	metrics         *metrics.Metrics
	defaultPageSize int
	maxPageSize     int
}

func NewTrashService(reg *registry.Registry, store trashStore, m *metrics.Metrics, defaultPageSize int, maxPageSize int) *TrashService {
	if defaultPageSize <= 0 {
		defaultPageSize = 20
	}
	if maxPageSize < defaultPageSize {
		maxPageSize = defaultPageSize
	}
	return &TrashService{
		registry:        reg,
		store:           store,
		metrics:         m,
		defaultPageSize: defaultPageSize,
		maxPageSize:     maxPageSize,
	}
}

// NormalizePage applies the configured page size bounds.
func (s *TrashService) NormalizePage(page model.Page) model.Page {
	return page.Normalize(s.defaultPageSize, s.maxPageSize)
}

// List returns trashed items keyed by module. With a module key only that
// module is queried and its failure is returned; without one every module is
// queried concurrently and a failing module degrades to an empty page.
func (s *TrashService) List(ctx context.Context, moduleKey string, filter model.TrashFilter, page model.Page) (map[string]model.TrashPage, error) {
	page = s.NormalizePage(page)

	if key := strings.TrimSpace(moduleKey); key != "" {
		m, err := s.registry.Lookup(key)
		if err != nil {
			return nil, err
		}
		result, err := s.listModule(ctx, m, filter, page)
		if err != nil {
			return nil, err
		}
		return map[string]model.TrashPage{m.Key: result}, nil
	}

	modules := s.registry.Modules()
	pages := make([]model.TrashPage, len(modules))

	var g errgroup.Group
	g.SetLimit(maxTrashFanOut)
	for i, m := range modules {
		g.Go(func() error {
			result, err := s.listModule(ctx, m, filter, page)
			if err != nil {
				s.degrade(ctx, m, "list", err)
				result = model.TrashPage{Items: []model.TrashItem{}}
			}
			pages[i] = result
			return nil
		})
	}
	_ = g.Wait()

	out := make(map[string]model.TrashPage, len(modules))
	for i, m := range modules {
		out[m.Key] = pages[i]
	}
	return out, nil
}

// Count returns the number of trashed items keyed by module, with the same
// isolation rules as List.
func (s *TrashService) Count(ctx context.Context, moduleKey string, filter model.TrashFilter) (map[string]int, error) {
	if key := strings.TrimSpace(moduleKey); key != "" {
		m, err := s.registry.Lookup(key)
		if err != nil {
			return nil, err
		}
		total, err := s.countModule(ctx, m, filter)
		if err != nil {
			return nil, err
		}
		return map[string]int{m.Key: total}, nil
	}

	modules := s.registry.Modules()
	totals := make([]int, len(modules))

	var g errgroup.Group
	g.SetLimit(maxTrashFanOut)
	for i, m := range modules {
		g.Go(func() error {
			total, err := s.countModule(ctx, m, filter)
			if err != nil {
				s.degrade(ctx, m, "count", err)
				total = 0
			}
			totals[i] = total
			return nil
		})
	}
	_ = g.Wait()

	out := make(map[string]int, len(modules))
	for i, m := range modules {
		out[m.Key] = totals[i]
	}
	return out, nil
}

func (s *TrashService) listModule(ctx context.Context, m registry.Module, filter model.TrashFilter, page model.Page) (model.TrashPage, error) {
	start := time.Now()
	defer s.metrics.ObserveTrashQuery(m.Key, "list", start)

	items, total, err := s.store.ListDeleted(ctx, m, filter, page)
	if err != nil {
		return model.TrashPage{}, err
	}
	if items == nil {
		items = []model.TrashItem{}
	}
	return model.TrashPage{Items: items, Total: total}, nil
}

func (s *TrashService) countModule(ctx context.Context, m registry.Module, filter model.TrashFilter) (int, error) {
	start := time.Now()
	defer s.metrics.ObserveTrashQuery(m.Key, "count", start)

	return s.store.CountDeleted(ctx, m, filter)
}

func (s *TrashService) degrade(ctx context.Context, m registry.Module, kind string, err error) {
	s.metrics.IncTrashQueryFailure(m.Key)
	slog.WarnContext(ctx, "trash query failed; module degraded to empty result",
		"module", m.Key, "strategy", m.Strategy.String(), "query", kind, "error", err)
}
