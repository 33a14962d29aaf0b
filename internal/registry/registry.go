// Package registry holds the immutable table of trash-aware modules. Every
// lifecycle and trash query is resolved through it by module key.
package registry

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"go-event-platform/internal/model"
)

type Strategy int

const (
	StrategyFlat Strategy = iota
	StrategyJoined
	StrategyEmbedded
)

func (s Strategy) String() string {
	switch s {
	case StrategyFlat:
		return "flat"
	case StrategyJoined:
		return "joined"
	case StrategyEmbedded:
		return "embedded"
	default:
		return fmt.Sprintf("strategy(%d)", int(s))
	}
}

// Entity names the table backing a module. For embedded modules it is the
// parent aggregate's table.
type Entity struct {
	Table        string
	IDColumn     string
	TitleColumn  string
	TenantColumn string
}

// Condition narrows a query to rows where Column equals Value.
type Condition struct {
	Column string
	Value  any
}

// Join describes the related entity a joined module depends on.
type Join struct {
	Table         string
	LocalColumn   string
	RelatedColumn string
	TitleColumn   string
	Condition     *Condition
	// PreserveUnmatched keeps rows whose related record is missing.
	PreserveUnmatched bool
}

// Embedded describes a child collection stored as a JSONB array on the parent.
type Embedded struct {
	ArrayColumn     string
	LabelKey        string
	ParentKeyColumn string
}

// Dependent is a child table whose rows block permanent deletion of a parent.
type Dependent struct {
	Table      string
	ForeignKey string
}

type Module struct {
	Key          string
	Subject      model.SubjectKind
	Entity       Entity
	Extra        *Condition
	Strategy     Strategy
	Join         *Join
	Embedded     *Embedded
	UniqueActive []string
	Dependents   []Dependent
	// Handler implements some of SoftDeleter, Restorer, PermanentDeleter,
	// BulkRestorer and BulkPermanentDeleter.
	Handler any
}

// Label returns the canonical label for the module.
func (m Module) Label() model.ModuleLabel {
	return model.ClassifyModule(m.Key)
}

type SoftDeleter interface {
	SoftDelete(ctx context.Context, m Module, id string, actor model.Actor) (model.Outcome, error)
}

type Restorer interface {
	Restore(ctx context.Context, m Module, id string, actor model.Actor) (model.Outcome, error)
}

type PermanentDeleter interface {
	PermanentDelete(ctx context.Context, m Module, id string, actor model.Actor) (model.Outcome, error)
}

type BulkRestorer interface {
	RestoreAll(ctx context.Context, m Module, actor model.Actor) (model.Outcome, error)
}

type BulkPermanentDeleter interface {
	PermanentDeleteAll(ctx context.Context, m Module, actor model.Actor) (model.Outcome, error)
}

// Registry is read-only after New returns and safe for concurrent use.
type Registry struct {
	byKey map[string]Module
	order []string
}

var identifierPattern = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

func New(modules ...Module) (*Registry, error) {
	r := &Registry{byKey: make(map[string]Module, len(modules)), order: make([]string, 0, len(modules))}

	for _, m := range modules {
		m.Key = strings.TrimSpace(m.Key)
		if m.Key == "" {
			return nil, fmt.Errorf("registry: module key is required")
		}
		if _, exists := r.byKey[m.Key]; exists {
			return nil, fmt.Errorf("registry: duplicate module key %q", m.Key)
		}

		m = withDefaults(m)
		if err := validate(m); err != nil {
			return nil, fmt.Errorf("registry: module %q: %w", m.Key, err)
		}

		r.byKey[m.Key] = m
		r.order = append(r.order, m.Key)
	}

	return r, nil
}

func (r *Registry) Lookup(key string) (Module, error) {
	m, ok := r.byKey[strings.TrimSpace(key)]
	if !ok {
		return Module{}, fmt.Errorf("%w: %q", model.ErrModuleNotFound, key)
	}
	return m, nil
}

// Modules returns every entry in declaration order.
func (r *Registry) Modules() []Module {
	out := make([]Module, 0, len(r.order))
	for _, key := range r.order {
		out = append(out, r.byKey[key])
	}
	return out
}

func (r *Registry) Keys() []string {
	return append([]string(nil), r.order...)
}

func withDefaults(m Module) Module {
	if m.Entity.IDColumn == "" {
		m.Entity.IDColumn = "id"
	}
	if m.Entity.TenantColumn == "" {
		m.Entity.TenantColumn = "tenant_id"
	}
	if m.Entity.TitleColumn == "" {
		m.Entity.TitleColumn = "title"
	}
	if m.Join != nil {
		join := *m.Join
		if join.RelatedColumn == "" {
			join.RelatedColumn = "id"
		}
		if join.TitleColumn == "" {
			join.TitleColumn = "title"
		}
		m.Join = &join
	}
	return m
}

func validate(m Module) error {
	names := []string{m.Entity.Table, m.Entity.IDColumn, m.Entity.TitleColumn, m.Entity.TenantColumn}
	if m.Extra != nil {
		names = append(names, m.Extra.Column)
	}
	names = append(names, m.UniqueActive...)
	for _, d := range m.Dependents {
		names = append(names, d.Table, d.ForeignKey)
	}

	switch m.Strategy {
	case StrategyFlat:
		if m.Join != nil || m.Embedded != nil {
			return fmt.Errorf("flat strategy takes neither a join nor an embedded descriptor")
		}
	case StrategyJoined:
		if m.Join == nil {
			return fmt.Errorf("joined strategy requires a join descriptor")
		}
		names = append(names, m.Join.Table, m.Join.LocalColumn, m.Join.RelatedColumn, m.Join.TitleColumn)
		if m.Join.Condition != nil {
			names = append(names, m.Join.Condition.Column)
		}
	case StrategyEmbedded:
		if m.Embedded == nil {
			return fmt.Errorf("embedded strategy requires an embedded descriptor")
		}
		if len(m.UniqueActive) > 0 {
			return fmt.Errorf("embedded modules cannot declare active-unique columns")
		}
		names = append(names, m.Embedded.ArrayColumn, m.Embedded.LabelKey)
		if m.Embedded.ParentKeyColumn != "" {
			names = append(names, m.Embedded.ParentKeyColumn)
		}
	default:
		return fmt.Errorf("unknown strategy %s", m.Strategy)
	}

	for _, name := range names {
		if !identifierPattern.MatchString(name) {
			return fmt.Errorf("invalid identifier %q", name)
		}
	}

	return nil
}
