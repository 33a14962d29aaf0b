package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"go-event-platform/internal/event"
	"go-event-platform/internal/metrics"
	"go-event-platform/internal/model"
	"go-event-platform/internal/registry"
)

type Operation string

const (
	OpSoftDelete         Operation = "soft_delete"
	OpRestore            Operation = "restore"
	OpPermanentDelete    Operation = "permanent_delete"
	OpRestoreAll         Operation = "restore_all"
	OpPermanentDeleteAll Operation = "permanent_delete_all"
)

// Auditor accepts audit entries without blocking.
type Auditor interface {
	Record(ctx context.Context, entry model.LogEntry)
}

// LifecycleService resolves lifecycle requests through the registry, delegates
// them to the module's handler and, on success only, records an audit entry
// and notifies the tenant room.
type LifecycleService struct {
	registry *registry.Registry
	audit    Auditor
	bus      event.Bus
	metrics  *metrics.Metrics
}

func NewLifecycleService(reg *registry.Registry, audit Auditor, bus event.Bus, m *metrics.Metrics) *LifecycleService {
	return &LifecycleService{registry: reg, audit: audit, bus: bus, metrics: m}
}

func (s *LifecycleService) SoftDelete(ctx context.Context, moduleKey string, id string, actor model.Actor) (model.Outcome, error) {
	m, err := s.resolve(moduleKey, id)
	if err != nil {
		return model.Outcome{}, err
	}
	h, ok := m.Handler.(registry.SoftDeleter)
	if !ok {
		return model.Outcome{}, notImplemented(m, OpSoftDelete)
	}

	out, err := h.SoftDelete(ctx, m, id, actor)
	return s.finish(ctx, m, OpSoftDelete, model.ActionDelete, id, actor, out, err)
}

func (s *LifecycleService) Restore(ctx context.Context, moduleKey string, id string, actor model.Actor) (model.Outcome, error) {
	m, err := s.resolve(moduleKey, id)
	if err != nil {
		return model.Outcome{}, err
	}
	h, ok := m.Handler.(registry.Restorer)
	if !ok {
		return model.Outcome{}, notImplemented(m, OpRestore)
	}

	out, err := h.Restore(ctx, m, id, actor)
	return s.finish(ctx, m, OpRestore, model.ActionRestore, id, actor, out, err)
}

func (s *LifecycleService) PermanentDelete(ctx context.Context, moduleKey string, id string, actor model.Actor) (model.Outcome, error) {
	m, err := s.resolve(moduleKey, id)
	if err != nil {
		return model.Outcome{}, err
	}
	h, ok := m.Handler.(registry.PermanentDeleter)
	if !ok {
		return model.Outcome{}, notImplemented(m, OpPermanentDelete)
	}

	out, err := h.PermanentDelete(ctx, m, id, actor)
	return s.finish(ctx, m, OpPermanentDelete, model.ActionDelete, id, actor, out, err)
}

// RestoreAll runs to completion even if the caller goes away.
func (s *LifecycleService) RestoreAll(ctx context.Context, moduleKey string, actor model.Actor) (model.Outcome, error) {
	m, err := s.registry.Lookup(moduleKey)
	if err != nil {
		return model.Outcome{}, err
	}
	h, ok := m.Handler.(registry.BulkRestorer)
	if !ok {
		return model.Outcome{}, notImplemented(m, OpRestoreAll)
	}

	ctx = context.WithoutCancel(ctx)
	out, err := h.RestoreAll(ctx, m, actor)
	return s.finish(ctx, m, OpRestoreAll, model.ActionRestore, "", actor, out, err)
}

// PermanentDeleteAll runs to completion even if the caller goes away.
func (s *LifecycleService) PermanentDeleteAll(ctx context.Context, moduleKey string, actor model.Actor) (model.Outcome, error) {
	m, err := s.registry.Lookup(moduleKey)
	if err != nil {
		return model.Outcome{}, err
	}
	h, ok := m.Handler.(registry.BulkPermanentDeleter)
	if !ok {
		return model.Outcome{}, notImplemented(m, OpPermanentDeleteAll)
	}

	ctx = context.WithoutCancel(ctx)
	out, err := h.PermanentDeleteAll(ctx, m, actor)
	return s.finish(ctx, m, OpPermanentDeleteAll, model.ActionDelete, "", actor, out, err)
}

func (s *LifecycleService) resolve(moduleKey string, id string) (registry.Module, error) {
	m, err := s.registry.Lookup(moduleKey)
	if err != nil {
		return registry.Module{}, err
	}
	if _, err := uuid.Parse(strings.TrimSpace(id)); err != nil {
		return registry.Module{}, fmt.Errorf("%w: %q", model.ErrInvalidID, id)
	}
	return m, nil
}

func (s *LifecycleService) finish(
	ctx context.Context,
	m registry.Module,
	op Operation,
	action model.ActionKind,
	id string,
	actor model.Actor,
	out model.Outcome,
	err error,
) (model.Outcome, error) {
	s.metrics.IncLifecycle(m.Key, string(op), err)
	if err != nil {
		return out, err
	}
	if out.Module == "" {
		out.Module = m.Key
	}

	entry := model.LogEntry{
		ActorID:     actor.IDRef(),
		Action:      action,
		SubjectKind: m.Subject,
		TenantID:    actor.TenantRef(),
		ModuleKey:   m.Key,
		Context: map[string]any{
			"operation": string(op),
			"affected":  out.Affected,
		},
	}
	if id != "" {
		entry.SubjectID = &id
	}
	if len(out.Skipped) > 0 {
		entry.Context["skipped"] = len(out.Skipped)
	}
	if actor.IP != "" {
		entry.Context["ip"] = actor.IP
	}
	if s.audit != nil {
		s.audit.Record(ctx, entry)
	}

	s.notify(m, op, id, actor, out)
	return out, nil
}

func (s *LifecycleService) notify(m registry.Module, op Operation, id string, actor model.Actor, out model.Outcome) {
	if s.bus == nil || actor.TenantID == "" {
		return
	}

	change := model.TrashChange{
		Module:    m.Key,
		Operation: string(op),
		ItemID:    id,
		Affected:  out.Affected,
		Skipped:   len(out.Skipped),
	}
	s.bus.Publish(event.New(event.TypeTrashChanged, event.TenantRoom(actor.TenantID), actor.UserID, change))
	if id != "" {
		s.bus.Publish(event.New(event.TypeTrashChanged, event.ResourceRoom(actor.TenantID, m.Key, id), actor.UserID, change))
	}
	slog.Debug("trash change published", "module", m.Key, "operation", op, "affected", out.Affected)
}

func notImplemented(m registry.Module, op Operation) error {
	return fmt.Errorf("%w: %s on %s", model.ErrOperationNotImplemented, op, m.Key)
}
