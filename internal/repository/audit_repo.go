package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"go-event-platform/internal/model"
)

type AuditRepository struct {
	pool *pgxpool.Pool
}

func NewAuditRepository(pool *pgxpool.Pool) *AuditRepository {
	return &AuditRepository{pool: pool}
}

// Insert appends entry to the audit log, assigning an id and timestamp when missing.
func (r *AuditRepository) Insert(ctx context.Context, entry *model.LogEntry) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	var contextJSON []byte
	if len(entry.Context) > 0 {
		encoded, err := json.Marshal(entry.Context)
		if err != nil {
			return fmt.Errorf("marshal audit context: %w", err)
		}
		contextJSON = encoded
	}

	var subjectKind *string
	if entry.SubjectKind != model.SubjectNone {
		kind := string(entry.SubjectKind)
		subjectKind = &kind
	}

	_, err := r.pool.Exec(ctx,
		`INSERT INTO audit_logs
		 (id, actor_id, action, subject_kind, subject_id, tenant_id, module_key, context, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		entry.ID, entry.ActorID, string(entry.Action), subjectKind, entry.SubjectID,
		entry.TenantID, entry.ModuleKey, contextJSON, entry.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert audit entry: %w", err)
	}
	return nil
}

func (r *AuditRepository) Query(ctx context.Context, query model.AuditQuery) ([]model.LogEntry, model.Meta, error) {
	if query.Page < 1 {
		query.Page = 1
	}
	if query.Limit <= 0 {
		query.Limit = 50
	}
	if query.Limit > 200 {
		query.Limit = 200
	}

	var args queryArgs
	where := make([]string, 0)

	if action := strings.TrimSpace(query.Action); action != "" {
		where = append(where, fmt.Sprintf("action = lower(%s)", args.bind(action)))
	}
	if actorID := strings.TrimSpace(query.ActorID); actorID != "" {
		where = append(where, fmt.Sprintf("actor_id = %s", args.bind(actorID)))
	}
	if tenantID := strings.TrimSpace(query.TenantID); tenantID != "" {
		where = append(where, fmt.Sprintf("tenant_id = %s", args.bind(tenantID)))
	}
	if moduleKey := strings.TrimSpace(query.ModuleKey); moduleKey != "" {
		where = append(where, fmt.Sprintf("module_key = %s", args.bind(moduleKey)))
	}
	if from := strings.TrimSpace(query.From); from != "" {
		where = append(where, fmt.Sprintf("created_at >= %s::timestamptz", args.bind(from)))
	}
	if to := strings.TrimSpace(query.To); to != "" {
		where = append(where, fmt.Sprintf("created_at <= %s::timestamptz", args.bind(to)))
	}

	whereClause := ""
	if len(where) > 0 {
		whereClause = "WHERE " + strings.Join(where, " AND ")
	}

	var total int
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM audit_logs "+whereClause, args.values...).Scan(&total); err != nil {
		return nil, model.Meta{}, fmt.Errorf("count audit entries: %w", err)
	}

	meta := model.NewMeta(model.Page{Number: query.Page, Size: query.Limit}, total)

	dataQuery := fmt.Sprintf(
		`SELECT id::text, actor_id, action, COALESCE(subject_kind, ''), subject_id,
		        tenant_id, COALESCE(module_key, ''), context, created_at
		 FROM audit_logs %s
		 ORDER BY created_at DESC, id
		 LIMIT %s OFFSET %s`, whereClause, args.bind(query.Limit), args.bind((query.Page-1)*query.Limit))

	rows, err := r.pool.Query(ctx, dataQuery, args.values...)
	if err != nil {
		return nil, model.Meta{}, fmt.Errorf("query audit entries: %w", err)
	}
	defer rows.Close()

	entries := make([]model.LogEntry, 0)
	for rows.Next() {
		var (
			e           model.LogEntry
			action      string
			subjectKind string
			contextJSON []byte
		)
		if err := rows.Scan(
			&e.ID, &e.ActorID, &action, &subjectKind, &e.SubjectID,
			&e.TenantID, &e.ModuleKey, &contextJSON, &e.CreatedAt,
		); err != nil {
			return nil, model.Meta{}, fmt.Errorf("scan audit entry: %w", err)
		}

		e.Action = model.ActionKind(action)
		e.SubjectKind = model.ParseSubjectKind(subjectKind)
		e.CreatedAt = e.CreatedAt.UTC()
		if len(contextJSON) > 0 {
			var decoded map[string]any
			if jsonErr := json.Unmarshal(contextJSON, &decoded); jsonErr == nil {
				e.Context = decoded
			}
		}

		entries = append(entries, e)
	}

	return entries, meta, rows.Err()
}

// labelSource names the column (or embedded element key) holding a subject's
// display label.
type labelSource struct {
	table       string
	column      string
	arrayColumn string
}

func subjectLabelSource(kind model.SubjectKind) (labelSource, bool) {
	switch kind {
	case model.SubjectEvent:
		return labelSource{table: "events", column: "title"}, true
	case model.SubjectRegistration:
		return labelSource{table: "registrations", column: "full_name"}, true
	case model.SubjectPoll:
		return labelSource{table: "polls", column: "title"}, true
	case model.SubjectSpinWheel:
		return labelSource{table: "spin_wheels", column: "title"}, true
	case model.SubjectSurvey:
		return labelSource{table: "surveys", column: "title"}, true
	case model.SubjectDisplayWall:
		return labelSource{table: "display_walls", column: "title"}, true
	case model.SubjectQuiz:
		return labelSource{table: "quizzes", column: "title"}, true
	case model.SubjectQuizQuestion:
		return labelSource{table: "quizzes", arrayColumn: "questions", column: "text"}, true
	case model.SubjectDuelGame:
		return labelSource{table: "duel_games", column: "title"}, true
	case model.SubjectDuelRound:
		return labelSource{table: "duel_games", arrayColumn: "rounds", column: "title"}, true
	case model.SubjectUser:
		return labelSource{table: "users", column: "name"}, true
	case model.SubjectNone:
		return labelSource{}, false
	}
	return labelSource{}, false
}

// ResolveSubjectName looks up the display label of a subject regardless of its
// lifecycle state. A subject that no longer exists yields nil without error.
func (r *AuditRepository) ResolveSubjectName(ctx context.Context, kind model.SubjectKind, id string) (*string, error) {
	src, ok := subjectLabelSource(kind)
	if !ok || strings.TrimSpace(id) == "" {
		return nil, nil
	}

	var query string
	if src.arrayColumn != "" {
		query = fmt.Sprintf(
			`SELECT e.elem->>'%s'
			 FROM %s p
			 CROSS JOIN LATERAL jsonb_array_elements(%s) AS e(elem)
			 WHERE e.elem->>'id' = $1 AND %s
			 LIMIT 1`, src.column, src.table, elementsOf("p."+src.arrayColumn), VisibilityClause("p", model.VisibilityAll))
	} else {
		query = fmt.Sprintf(`SELECT %s::text FROM %s t WHERE t.id::text = $1 AND %s LIMIT 1`,
			src.column, src.table, VisibilityClause("t", model.VisibilityAll))
	}

	var name *string
	err := r.pool.QueryRow(ctx, query, id).Scan(&name)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("resolve %s %s name: %w", kind, id, err)
	}
	return name, nil
}
