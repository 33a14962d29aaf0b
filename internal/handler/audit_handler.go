package handler

import (
	"encoding/json"
	"net/http"
	"strings"

	"go-event-platform/internal/model"
	"go-event-platform/internal/service"
	"go-event-platform/pkg/apierror"
)

type AuditHandler struct {
	service *service.AuditService
}

func NewAuditHandler(service *service.AuditService) *AuditHandler {
	return &AuditHandler{service: service}
}

func (h *AuditHandler) List(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	actor := scopedActor(r)

	items, meta, err := h.service.Query(r.Context(), model.AuditQuery{
		ActorID:   strings.TrimSpace(query.Get("actor_id")),
		TenantID:  actor.TenantID,
		Action:    strings.TrimSpace(query.Get("action")),
		ModuleKey: strings.TrimSpace(query.Get("module")),
		From:      strings.TrimSpace(query.Get("from")),
		To:        strings.TrimSpace(query.Get("to")),
		Page:      parseIntOrDefault(query.Get("page"), 1),
		Limit:     parseIntOrDefault(query.Get("limit"), 50),
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, model.AuditListData{Items: items}, &meta)
}

// Record accepts an audit entry reported by a client. The entry is queued and
// the response does not wait for it to be persisted.
func (h *AuditHandler) Record(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	var payload model.RecordAuditRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, apierror.BadRequest("invalid JSON body", ""))
		return
	}

	action := model.ActionKind(strings.ToLower(strings.TrimSpace(payload.Action)))
	if !action.Valid() {
		writeError(w, apierror.BadRequest("unknown audit action", payload.Action))
		return
	}

	actor := actorFromRequest(r)
	entry := model.LogEntry{
		ActorID:     actor.IDRef(),
		Action:      action,
		SubjectKind: model.ParseSubjectKind(payload.SubjectKind),
		TenantID:    actor.TenantRef(),
		ModuleKey:   strings.TrimSpace(payload.ModuleKey),
		Context:     payload.Context,
	}
	if subjectID := strings.TrimSpace(payload.SubjectID); subjectID != "" {
		entry.SubjectID = &subjectID
	}
	if entry.Context == nil {
		entry.Context = map[string]any{}
	}
	entry.Context["ip"] = actor.IP

	h.service.Record(r.Context(), entry)
	writeSuccess(w, http.StatusAccepted, map[string]any{"accepted": true}, nil)
}
