package store

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

var (
	ErrConflict = errors.New("conflict")
	ErrNotFound = errors.New("not found")
)

// ConflictError carries the id of an appointment that blocked a write, so
// callers can offer alternatives. It matches ErrConflict under errors.Is.
type ConflictError struct {
	ConflictingID uuid.UUID
}

func (e *ConflictError) Error() string {
	if e.ConflictingID == uuid.Nil {
		return "conflict"
	}
	return fmt.Sprintf("conflict with appointment %s", e.ConflictingID)
}

func (e *ConflictError) Is(target error) bool {
	return target == ErrConflict
}
