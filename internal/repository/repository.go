// Package repository defines the optimizer core's one external data
// dependency: a read-mostly ReferenceDataRepository loading the
// entity collections a schedule date's optimization runs over.
// Memory and Postgres implementations live in the memory and postgres
// subpackages.
package repository

import (
	"context"
	"time"

	"github.com/schedcu/surgopt/internal/entity"
)

// ReferenceDataRepository loads the surgeries, surgery types,
// surgeons, rooms, staff, equipment, and SDST table that the
// optimizer core operates over for a single schedule date. The core
// never writes through this interface: persistence of results is a
// separate concern (the result cache, C8) entirely outside it.
type ReferenceDataRepository interface {
	Load(ctx context.Context, date time.Time) (*entity.ReferenceData, error)
}

// NotFoundError represents a record not found error.
type NotFoundError struct {
	ResourceType string
	ResourceID   string
}

// Error implements the error interface for NotFoundError.
func (e *NotFoundError) Error() string {
	return "not found: " + e.ResourceType + " " + e.ResourceID
}

// IsNotFound checks if an error is a NotFoundError.
func IsNotFound(err error) bool {
	_, ok := err.(*NotFoundError)
	return ok
}

// ValidationError represents a validation error.
type ValidationError struct {
	Message string
	Field   string
}

// Error implements the error interface for ValidationError.
func (e *ValidationError) Error() string {
	if e.Field != "" {
		return e.Field + ": " + e.Message
	}
	return e.Message
}
