package repository

import (
	"fmt"
	"strings"

	"go-event-platform/internal/model"
	"go-event-platform/internal/registry"
)

// queryArgs collects positional arguments while a statement is assembled.
type queryArgs struct {
	values []any
}

func (a *queryArgs) bind(v any) string {
	a.values = append(a.values, v)
	return fmt.Sprintf("$%d", len(a.values))
}

func (a *queryArgs) snapshot() []any {
	return append([]any(nil), a.values...)
}

// trashQuery is a pair of statements over the same FROM/WHERE core: one that
// returns a window of rows and one that only counts them.
type trashQuery struct {
	List      string
	ListArgs  []any
	Count     string
	CountArgs []any
}

const trashColumns = `id, title, tenant_id, deleted_at, deleted_by,
	deleted_by_name, deleted_by_email, parent_id, parent_title, parent_key, data`

// VisibilityClause returns the predicate selecting rows of alias in the given
// lifecycle states.
func VisibilityClause(alias string, v model.Visibility) string {
	switch v {
	case model.VisibilityDeleted:
		return alias + ".is_deleted = true"
	case model.VisibilityAll:
		return "TRUE"
	default:
		return alias + ".is_deleted = false"
	}
}

func buildTrashQuery(m registry.Module, filter model.TrashFilter, page model.Page) (trashQuery, error) {
	var (
		projection string
		countFrom  string
		listFrom   string
		where      []string
		args       queryArgs
	)

	switch m.Strategy {
	case registry.StrategyFlat, registry.StrategyJoined:
		projection, countFrom, where = tableCore(m, filter, &args)
		listFrom = countFrom + "\n" + "LEFT JOIN users u ON u.id::text = t.deleted_by"
	case registry.StrategyEmbedded:
		projection, countFrom, where = embeddedCore(m, filter, &args)
		listFrom = countFrom + "\n" + "LEFT JOIN users u ON u.id::text = e.elem->>'deleted_by'"
	default:
		return trashQuery{}, fmt.Errorf("build trash query for %q: unknown strategy %s", m.Key, m.Strategy)
	}

	whereClause := "WHERE " + strings.Join(where, "\n  AND ")
	countArgs := args.snapshot()

	list := fmt.Sprintf("SELECT %s\nFROM (\nSELECT %s\n%s\n%s\n) trash\nORDER BY deleted_at DESC NULLS LAST, id",
		trashColumns, projection, listFrom, whereClause)
	if !page.IsUnbounded() {
		list += fmt.Sprintf("\nLIMIT %s OFFSET %s", args.bind(page.Size), args.bind(page.Offset()))
	}

	return trashQuery{
		List:      list,
		ListArgs:  args.snapshot(),
		Count:     fmt.Sprintf("SELECT COUNT(*)\n%s\n%s", countFrom, whereClause),
		CountArgs: countArgs,
	}, nil
}

// tableCore covers flat tables and tables joined to a related entity.
func tableCore(m registry.Module, filter model.TrashFilter, args *queryArgs) (string, string, []string) {
	e := m.Entity
	from := fmt.Sprintf("FROM %s t", e.Table)
	where := []string{VisibilityClause("t", model.VisibilityDeleted)}
	parent := "NULL::text AS parent_id, NULL::text AS parent_title, NULL::text AS parent_key"

	if m.Extra != nil {
		where = append(where, fmt.Sprintf("t.%s = %s", m.Extra.Column, args.bind(m.Extra.Value)))
	}

	if j := m.Join; j != nil {
		on := fmt.Sprintf("r.%s = t.%s", j.RelatedColumn, j.LocalColumn)
		switch {
		case j.PreserveUnmatched && j.Condition != nil:
			from += fmt.Sprintf("\nLEFT JOIN %s r ON %s", j.Table, on)
			where = append(where, fmt.Sprintf("(r.%s IS NULL OR r.%s = %s)",
				j.RelatedColumn, j.Condition.Column, args.bind(j.Condition.Value)))
		case j.PreserveUnmatched:
			from += fmt.Sprintf("\nLEFT JOIN %s r ON %s", j.Table, on)
		case j.Condition != nil:
			from += fmt.Sprintf("\nJOIN %s r ON %s AND r.%s = %s",
				j.Table, on, j.Condition.Column, args.bind(j.Condition.Value))
		default:
			from += fmt.Sprintf("\nJOIN %s r ON %s", j.Table, on)
		}
		parent = fmt.Sprintf("t.%s::text AS parent_id, r.%s::text AS parent_title, NULL::text AS parent_key",
			j.LocalColumn, j.TitleColumn)
	}

	where = append(where, commonFilters(filter, args,
		"t."+e.TenantColumn+"::text",
		"t."+e.TitleColumn+"::text",
		"t.deleted_by",
		"t.deleted_at")...)

	projection := fmt.Sprintf(`t.%s::text AS id,
	COALESCE(t.%s::text, '') AS title,
	COALESCE(t.%s::text, '') AS tenant_id,
	t.deleted_at AS deleted_at,
	t.deleted_by AS deleted_by,
	u.name AS deleted_by_name,
	u.email AS deleted_by_email,
	%s,
	to_jsonb(t) AS data`, e.IDColumn, e.TitleColumn, e.TenantColumn, parent)

	return projection, from, where
}

// Embedded elements are read with the same tolerance as model.EmbeddedElement:
// scalars as text, trashed only when is_deleted reads "true", deleted_at only
// when it looks like a timestamp, and a non-array column as empty.

func elementsOf(column string) string {
	return fmt.Sprintf("CASE WHEN jsonb_typeof(%[1]s) = 'array' THEN %[1]s ELSE '[]'::jsonb END", column)
}

func elementTrashed(elem string) string {
	return fmt.Sprintf("lower(%s->>'is_deleted') = 'true'", elem)
}

func elementDeletedAt(elem string) string {
	return fmt.Sprintf(`(CASE WHEN %[1]s->>'deleted_at' ~ '^\d{4}-\d{2}-\d{2}[T ]\d{2}:\d{2}' THEN (%[1]s->>'deleted_at')::timestamptz END)`, elem)
}

// embeddedCore unwinds the parent's JSONB array so each element becomes a row.
func embeddedCore(m registry.Module, filter model.TrashFilter, args *queryArgs) (string, string, []string) {
	e, emb := m.Entity, m.Embedded
	from := fmt.Sprintf("FROM %s p\nCROSS JOIN LATERAL jsonb_array_elements(%s) AS e(elem)",
		e.Table, elementsOf("p."+emb.ArrayColumn))
	where := []string{elementTrashed("e.elem")}

	if m.Extra != nil {
		where = append(where, fmt.Sprintf("p.%s = %s", m.Extra.Column, args.bind(m.Extra.Value)))
	}

	label := fmt.Sprintf("(e.elem->>'%s')", emb.LabelKey)
	deletedAt := elementDeletedAt("e.elem")
	where = append(where, commonFilters(filter, args,
		"p."+e.TenantColumn+"::text",
		label,
		"(e.elem->>'deleted_by')",
		deletedAt)...)

	parentKey := "NULL::text"
	if emb.ParentKeyColumn != "" {
		parentKey = "p." + emb.ParentKeyColumn + "::text"
	}

	projection := fmt.Sprintf(`e.elem->>'id' AS id,
	COALESCE(%s, '') AS title,
	COALESCE(p.%s::text, '') AS tenant_id,
	%s AS deleted_at,
	e.elem->>'deleted_by' AS deleted_by,
	u.name AS deleted_by_name,
	u.email AS deleted_by_email,
	p.%s::text AS parent_id,
	p.%s::text AS parent_title,
	%s AS parent_key,
	e.elem AS data`, label, e.TenantColumn, deletedAt, e.IDColumn, e.TitleColumn, parentKey)

	return projection, from, where
}

func commonFilters(filter model.TrashFilter, args *queryArgs, tenantExpr, titleExpr, deletedByExpr, deletedAtExpr string) []string {
	where := make([]string, 0, 5)

	if tenant := strings.TrimSpace(filter.TenantID); tenant != "" {
		where = append(where, fmt.Sprintf("%s = %s", tenantExpr, args.bind(tenant)))
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		where = append(where, fmt.Sprintf("%s ILIKE %s", titleExpr, args.bind("%"+search+"%")))
	}
	if actor := strings.TrimSpace(filter.DeletedBy); actor != "" {
		where = append(where, fmt.Sprintf("%s = %s", deletedByExpr, args.bind(actor)))
	}
	if filter.From != nil {
		where = append(where, fmt.Sprintf("%s >= %s", deletedAtExpr, args.bind(filter.From.UTC())))
	}
	if filter.To != nil {
		where = append(where, fmt.Sprintf("%s <= %s", deletedAtExpr, args.bind(filter.To.UTC())))
	}

	return where
}
