package service

import (
	"context"
	"fmt"
	"sync"

	"github.com/stretchr/testify/mock"

	"go-event-platform/internal/event"
	"go-event-platform/internal/model"
	"go-event-platform/internal/registry"
	"go-event-platform/internal/repository"
)

type MockTableStore struct {
	mock.Mock
}

func (m *MockTableStore) SoftDelete(ctx context.Context, mod registry.Module, id string, actor model.Actor) error {
	return m.Called(ctx, mod, id, actor).Error(0)
}

func (m *MockTableStore) Restore(ctx context.Context, mod registry.Module, id string, actor model.Actor) error {
	return m.Called(ctx, mod, id, actor).Error(0)
}

func (m *MockTableStore) PermanentDelete(ctx context.Context, mod registry.Module, id string, actor model.Actor) error {
	return m.Called(ctx, mod, id, actor).Error(0)
}

func (m *MockTableStore) TrashedIDs(ctx context.Context, mod registry.Module, tenantID string) ([]string, error) {
	args := m.Called(ctx, mod, tenantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

type MockEmbeddedStore struct {
	mock.Mock
}

func (m *MockEmbeddedStore) MutateElement(ctx context.Context, mod registry.Module, tenantID string, elementID string, actorID *string, fn repository.ElementMutation) (int, error) {
	args := m.Called(ctx, mod, tenantID, elementID, actorID, fn)
	return args.Int(0), args.Error(1)
}

func (m *MockEmbeddedStore) MutateTrashedElements(ctx context.Context, mod registry.Module, tenantID string, actorID *string, fn repository.ElementMutation) (int, error) {
	args := m.Called(ctx, mod, tenantID, actorID, fn)
	return args.Int(0), args.Error(1)
}

type MockTrashStore struct {
	mock.Mock
}

func (m *MockTrashStore) ListDeleted(ctx context.Context, mod registry.Module, filter model.TrashFilter, page model.Page) ([]model.TrashItem, int, error) {
	args := m.Called(ctx, mod, filter, page)
	if args.Get(0) == nil {
		return nil, args.Int(1), args.Error(2)
	}
	return args.Get(0).([]model.TrashItem), args.Int(1), args.Error(2)
}

func (m *MockTrashStore) CountDeleted(ctx context.Context, mod registry.Module, filter model.TrashFilter) (int, error) {
	args := m.Called(ctx, mod, filter)
	return args.Int(0), args.Error(1)
}

// memoryAuditStore keeps inserted entries in memory and resolves names from a map.
type memoryAuditStore struct {
	mu         sync.Mutex
	entries    []model.LogEntry
	names      map[string]string
	insertErr  error
	resolveErr error
	inserted   chan struct{}
	release    chan struct{}
}

func newMemoryAuditStore() *memoryAuditStore {
	return &memoryAuditStore{names: map[string]string{}}
}

func (s *memoryAuditStore) Insert(_ context.Context, entry *model.LogEntry) error {
	if s.inserted != nil {
		s.inserted <- struct{}{}
	}
	if s.release != nil {
		<-s.release
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.insertErr != nil {
		return s.insertErr
	}
	if entry.ID == "" {
		entry.ID = fmt.Sprintf("entry-%d", len(s.entries)+1)
	}
	s.entries = append(s.entries, *entry)
	return nil
}

func (s *memoryAuditStore) Query(_ context.Context, _ model.AuditQuery) ([]model.LogEntry, model.Meta, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := append([]model.LogEntry(nil), s.entries...)
	return out, model.Meta{Page: 1, Limit: 50, Total: len(out), TotalPages: 1}, nil
}

func (s *memoryAuditStore) ResolveSubjectName(_ context.Context, _ model.SubjectKind, id string) (*string, error) {
	if s.resolveErr != nil {
		return nil, s.resolveErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	name, ok := s.names[id]
	if !ok {
		return nil, nil
	}
	return &name, nil
}

func (s *memoryAuditStore) snapshot() []model.LogEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.LogEntry(nil), s.entries...)
}

// recordingBus captures published events.
type recordingBus struct {
	mu     sync.Mutex
	events []event.Event
}

func (b *recordingBus) Publish(e event.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, e)
}

func (b *recordingBus) Subscribe() (<-chan event.Event, func()) {
	ch := make(chan event.Event)
	return ch, func() {}
}

func (b *recordingBus) published() []event.Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]event.Event(nil), b.events...)
}

// recordingAuditor captures entries handed to the audit logger.
type recordingAuditor struct {
	mu      sync.Mutex
	entries []model.LogEntry
}

func (a *recordingAuditor) Record(_ context.Context, entry model.LogEntry) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.entries = append(a.entries, entry)
}

func (a *recordingAuditor) recorded() []model.LogEntry {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]model.LogEntry(nil), a.entries...)
}
