package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"go-event-platform/internal/model"
	"go-event-platform/pkg/apierror"
)

func writeSuccess(w http.ResponseWriter, status int, data any, meta *model.Meta) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(model.APIResponse{
		Success: true,
		Data:    data,
		Meta:    meta,
	})
}

func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	body := &model.APIError{
		Code:    "INTERNAL_ERROR",
		Message: "Unexpected server error",
	}

	if apiErr, ok := apierror.From(err); ok {
		status = apiErr.HTTPStatus
		body.Code = apiErr.Code
		body.Message = apiErr.Message
		body.Details = apiErr.Details
	} else if errors.Is(err, model.ErrModuleNotFound) {
		status = http.StatusBadRequest
		body.Code = "UNKNOWN_MODULE"
		body.Message = "Unknown module"
		body.Details = err.Error()
	} else if errors.Is(err, model.ErrOperationNotImplemented) {
		status = http.StatusBadRequest
		body.Code = "NOT_SUPPORTED"
		body.Message = "Operation not supported for this module"
		body.Details = err.Error()
	} else if errors.Is(err, model.ErrInvalidID) {
		status = http.StatusBadRequest
		body.Code = "BAD_REQUEST"
		body.Message = "Invalid id format"
	} else if errors.Is(err, model.ErrTrashItemNotFound) {
		status = http.StatusNotFound
		body.Code = "NOT_FOUND"
		body.Message = "Trash item not found"
	} else if errors.Is(err, model.ErrItemNotFound) {
		status = http.StatusNotFound
		body.Code = "NOT_FOUND"
		body.Message = "Item not found"
	} else if errors.Is(err, model.ErrTrashEmpty) {
		status = http.StatusNotFound
		body.Code = "NOT_FOUND"
		body.Message = "No trashed items in this module"
	} else if errors.Is(err, model.ErrRestoreConflict) {
		status = http.StatusConflict
		body.Code = "CONFLICT"
		body.Message = "An active record with the same unique key already exists"
	} else if errors.Is(err, model.ErrHasDependents) {
		status = http.StatusConflict
		body.Code = "CONFLICT"
		body.Message = "Record still has dependent records"
	} else if errors.Is(err, model.ErrUnauthorized) {
		status = http.StatusUnauthorized
		body.Code = "UNAUTHORIZED"
		body.Message = "Authentication required"
	} else if errors.Is(err, model.ErrForbidden) {
		status = http.StatusForbidden
		body.Code = "FORBIDDEN"
		body.Message = "Access denied"
	} else if errors.Is(err, model.ErrInvalidInput) {
		status = http.StatusBadRequest
		body.Code = "BAD_REQUEST"
		body.Message = "Invalid input"
	} else {
		slog.Error("unhandled error in writeError", "error", err.Error())
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(model.APIResponse{
		Success: false,
		Error:   body,
	})
}
