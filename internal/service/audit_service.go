package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"go-event-platform/internal/event"
	"go-event-platform/internal/metrics"
	"go-event-platform/internal/model"
	"go-event-platform/pkg/apierror"
)

type auditStore interface {
	Insert(ctx context.Context, entry *model.LogEntry) error
	Query(ctx context.Context, query model.AuditQuery) ([]model.LogEntry, model.Meta, error)
	ResolveSubjectName(ctx context.Context, kind model.SubjectKind, id string) (*string, error)
}

type AuditConfig struct {
	Workers      int
	QueueSize    int
	RequireActor bool
	Timeout      time.Duration
}

// AuditService records audit entries off the request path. Record never
// blocks: entries wait in a bounded queue for a fixed pool of workers and are
// dropped when the queue is full.
type AuditService struct {
	store   auditStore
	bus     event.Bus
	metrics *metrics.Metrics
	cfg     AuditConfig
	now     func() time.Time

	queue  chan model.LogEntry
	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

func NewAuditService(store auditStore, bus event.Bus, m *metrics.Metrics, cfg AuditConfig) *AuditService {
	if cfg.Workers <= 0 {
		cfg.Workers = 2
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 1024
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}

	s := &AuditService{
		store:   store,
		bus:     bus,
		metrics: m,
		cfg:     cfg,
		now:     time.Now,
		queue:   make(chan model.LogEntry, cfg.QueueSize),
	}

	s.wg.Add(cfg.Workers)
	for range cfg.Workers {
		go s.worker()
	}
	return s
}

// Record enqueues entry and returns immediately. Anonymous entries are skipped
// when the service requires an actor.
func (s *AuditService) Record(ctx context.Context, entry model.LogEntry) {
	if s == nil {
		return
	}

	if s.cfg.RequireActor && (entry.ActorID == nil || *entry.ActorID == "") {
		s.metrics.IncAudit(metrics.AuditSkipped)
		slog.DebugContext(ctx, "audit entry skipped: no actor", "action", entry.Action, "module", entry.ModuleKey)
		return
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = s.now().UTC()
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		s.metrics.IncAudit(metrics.AuditDropped)
		slog.WarnContext(ctx, "audit entry dropped: logger closed", "action", entry.Action)
		return
	}

	select {
	case s.queue <- entry:
		s.metrics.SetAuditQueueDepth(len(s.queue))
	default:
		s.metrics.IncAudit(metrics.AuditDropped)
		slog.WarnContext(ctx, "audit entry dropped: queue full", "action", entry.Action, "module", entry.ModuleKey)
	}
}

// Close stops intake and waits until every queued entry has been processed.
func (s *AuditService) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	close(s.queue)
	s.mu.Unlock()

	s.wg.Wait()
}

func (s *AuditService) Query(ctx context.Context, query model.AuditQuery) ([]model.LogEntry, model.Meta, error) {
	if _, err := parseOptionalAuditTime(query.From); err != nil {
		return nil, model.Meta{}, apierror.BadRequest("invalid 'from' datetime format", query.From)
	}
	if _, err := parseOptionalAuditTime(query.To); err != nil {
		return nil, model.Meta{}, apierror.BadRequest("invalid 'to' datetime format", query.To)
	}
	if action := strings.TrimSpace(query.Action); action != "" && !model.ActionKind(strings.ToLower(action)).Valid() {
		return nil, model.Meta{}, apierror.BadRequest("unknown audit action", action)
	}

	return s.store.Query(ctx, query)
}

func (s *AuditService) worker() {
	defer s.wg.Done()
	for entry := range s.queue {
		s.metrics.SetAuditQueueDepth(len(s.queue))
		s.process(entry)
	}
}

// process persists entry, then labels its subject and publishes it. A failed
// step is logged and never retried.
func (s *AuditService) process(entry model.LogEntry) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("audit worker recovered from panic", "panic", fmt.Sprint(r), "action", entry.Action)
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.Timeout)
	defer cancel()

	if err := s.store.Insert(ctx, &entry); err != nil {
		s.metrics.IncAudit(metrics.AuditPersistFailed)
		slog.Error("audit entry not persisted", "action", entry.Action, "module", entry.ModuleKey, "error", err)
		return
	}
	s.metrics.IncAudit(metrics.AuditPersisted)

	labelKey := entry.ModuleKey
	if labelKey == "" {
		labelKey = string(entry.SubjectKind)
	}
	enriched := model.EnrichedLogEntry{LogEntry: entry, ModuleLabel: model.ClassifyModule(labelKey)}

	if entry.SubjectID != nil {
		name, err := s.store.ResolveSubjectName(ctx, entry.SubjectKind, *entry.SubjectID)
		if err != nil {
			s.metrics.IncAudit(metrics.AuditResolveFailed)
			slog.Warn("audit subject name not resolved", "kind", entry.SubjectKind, "id", *entry.SubjectID, "error", err)
		} else {
			enriched.SubjectName = name
		}
	}

	s.publish(enriched)
}

func (s *AuditService) publish(entry model.EnrichedLogEntry) {
	if s.bus == nil || entry.TenantID == nil || *entry.TenantID == "" {
		return
	}

	actorID := ""
	if entry.ActorID != nil {
		actorID = *entry.ActorID
	}

	s.bus.Publish(event.New(event.TypeAuditLogged, event.TenantRoom(*entry.TenantID), actorID, entry))
	if entry.SubjectID != nil && entry.ModuleKey != "" {
		s.bus.Publish(event.New(event.TypeAuditLogged,
			event.ResourceRoom(*entry.TenantID, entry.ModuleKey, *entry.SubjectID), actorID, entry))
	}
	s.metrics.IncAudit(metrics.AuditPublished)
}

func parseOptionalAuditTime(raw string) (time.Time, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return time.Time{}, nil
	}

	if value, err := time.Parse(time.RFC3339Nano, trimmed); err == nil {
		return value.UTC(), nil
	}

	value, err := time.Parse(time.RFC3339, trimmed)
	if err != nil {
		return time.Time{}, err
	}
	return value.UTC(), nil
}
