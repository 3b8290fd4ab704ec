package repository

import (
	"context"
	"errors"

	"optiplus/internal/model"
)

// Package repository holds the dataset index: the explicit mapping from dataset ID to the
// stored object key and the upload time captured at creation.
// Implementations live in subpackages (memory, postgres).

// ErrNotFound is returned when no record exists for an ID.
var ErrNotFound = errors.New("dataset record not found")

// DatasetRepository defines data access for dataset records. No business logic here.
type DatasetRepository interface {
	// Create inserts a new record. IDs are unique; inserting an existing ID is an error.
	Create(ctx context.Context, rec *model.DatasetRecord) (*model.DatasetRecord, error)

	// FindByID returns the record for id or ErrNotFound.
	FindByID(ctx context.Context, id string) (*model.DatasetRecord, error)

	// List returns every record, newest upload first, ties broken by ID.
	List(ctx context.Context) ([]model.DatasetRecord, error)

	// Delete removes the record for id. It returns ErrNotFound if no row was removed.
	Delete(ctx context.Context, id string) error
}
