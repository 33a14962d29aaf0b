package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"go-event-platform/internal/model"
	"go-event-platform/internal/service"
	"go-event-platform/pkg/apierror"
)

type TrashHandler struct {
	trash     *service.TrashService
	lifecycle *service.LifecycleService
}

func NewTrashHandler(trash *service.TrashService, lifecycle *service.LifecycleService) *TrashHandler {
	return &TrashHandler{trash: trash, lifecycle: lifecycle}
}

func (h *TrashHandler) List(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	actor := scopedActor(r)

	filter, err := trashFilterFromQuery(r, actor)
	if err != nil {
		writeError(w, err)
		return
	}

	page := h.trash.NormalizePage(model.Page{
		Number: parseIntOrDefault(query.Get("page"), 1),
		Size:   parseIntOrDefault(query.Get("limit"), 0),
	})
	moduleKey := strings.TrimSpace(query.Get("module"))

	result, err := h.trash.List(r.Context(), moduleKey, filter, page)
	if err != nil {
		writeError(w, err)
		return
	}

	var meta *model.Meta
	if moduleKey != "" {
		if pageData, ok := result[moduleKey]; ok {
			meta = pageMeta(page, pageData.Total)
		}
	}

	writeSuccess(w, http.StatusOK, result, meta)
}

func (h *TrashHandler) Count(w http.ResponseWriter, r *http.Request) {
	actor := scopedActor(r)

	filter, err := trashFilterFromQuery(r, actor)
	if err != nil {
		writeError(w, err)
		return
	}

	counts, err := h.trash.Count(r.Context(), strings.TrimSpace(r.URL.Query().Get("module")), filter)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, counts, nil)
}

func (h *TrashHandler) Restore(w http.ResponseWriter, r *http.Request) {
	out, err := h.lifecycle.Restore(r.Context(), chi.URLParam(r, "module"), chi.URLParam(r, "id"), scopedActor(r))
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, out, nil)
}

func (h *TrashHandler) PermanentDelete(w http.ResponseWriter, r *http.Request) {
	out, err := h.lifecycle.PermanentDelete(r.Context(), chi.URLParam(r, "module"), chi.URLParam(r, "id"), scopedActor(r))
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, out, nil)
}

func (h *TrashHandler) RestoreAll(w http.ResponseWriter, r *http.Request) {
	out, err := h.lifecycle.RestoreAll(r.Context(), chi.URLParam(r, "module"), scopedActor(r))
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, out, nil)
}

func (h *TrashHandler) PermanentDeleteAll(w http.ResponseWriter, r *http.Request) {
	out, err := h.lifecycle.PermanentDeleteAll(r.Context(), chi.URLParam(r, "module"), scopedActor(r))
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, out, nil)
}

// SoftDelete moves a live record into the trash.
func (h *TrashHandler) SoftDelete(w http.ResponseWriter, r *http.Request) {
	out, err := h.lifecycle.SoftDelete(r.Context(), chi.URLParam(r, "module"), chi.URLParam(r, "id"), scopedActor(r))
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, out, nil)
}

// scopedActor returns the request actor. Superadmins carry no tenant of their
// own and may narrow their scope with ?tenant_id=.
func scopedActor(r *http.Request) model.Actor {
	actor := actorFromRequest(r)
	if strings.EqualFold(actor.Role, model.RoleSuperAdmin) {
		if tenantID := strings.TrimSpace(r.URL.Query().Get("tenant_id")); tenantID != "" {
			actor.TenantID = tenantID
		}
	}
	return actor
}

func trashFilterFromQuery(r *http.Request, actor model.Actor) (model.TrashFilter, error) {
	query := r.URL.Query()

	filter := model.TrashFilter{
		TenantID:  actor.TenantID,
		Search:    strings.TrimSpace(query.Get("search")),
		DeletedBy: strings.TrimSpace(query.Get("deleted_by")),
	}

	from, err := parseOptionalTime(query.Get("from"))
	if err != nil {
		return filter, apierror.BadRequest("invalid 'from' datetime format", query.Get("from"))
	}
	to, err := parseOptionalTime(query.Get("to"))
	if err != nil {
		return filter, apierror.BadRequest("invalid 'to' datetime format", query.Get("to"))
	}
	if from != nil && to != nil && to.Before(*from) {
		return filter, apierror.BadRequest("'to' must not be before 'from'", "")
	}
	filter.From = from
	filter.To = to

	return filter, nil
}

func parseOptionalTime(raw string) (*time.Time, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil, nil
	}

	value, err := time.Parse(time.RFC3339, trimmed)
	if err != nil {
		return nil, err
	}
	value = value.UTC()
	return &value, nil
}

func pageMeta(page model.Page, total int) *model.Meta {
	meta := model.NewMeta(page, total)
	return &meta
}
