package model

import "errors"

var (
	// Registry / dispatch errors
	ErrModuleNotFound          = errors.New("module not found")
	ErrOperationNotImplemented = errors.New("operation not implemented for this module")
	ErrInvalidID               = errors.New("invalid id format")

	// Trash related errors
	ErrTrashItemNotFound = errors.New("trash item not found")
	ErrItemNotFound      = errors.New("item not found")
	ErrTrashEmpty        = errors.New("module has no trashed items")
	ErrRestoreConflict   = errors.New("an active record with the same unique key exists")
	ErrHasDependents     = errors.New("record still has dependent records")

	// Permission/Access related errors
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")

	// Generic errors
	ErrInvalidInput = errors.New("invalid input")
)
