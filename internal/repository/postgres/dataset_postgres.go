package postgres

import (
	"context"
	"database/sql"
	"errors"

	"optiplus/internal/model"
	"optiplus/internal/repository"
)

// DatasetPostgres is a PostgreSQL implementation of repository.DatasetRepository.
// It uses database/sql with parameterized queries and contains no business logic.
type DatasetPostgres struct {
	db *sql.DB
}

// NewDatasetPostgres creates a new DatasetPostgres repository.
func NewDatasetPostgres(db *sql.DB) *DatasetPostgres {
	return &DatasetPostgres{db: db}
}

var _ repository.DatasetRepository = (*DatasetPostgres)(nil)

// Create inserts a new dataset row and returns the stored record.
func (r *DatasetPostgres) Create(ctx context.Context, rec *model.DatasetRecord) (*model.DatasetRecord, error) {
	const q = `
		INSERT INTO datasets (id, filename, storage_key, size, uploaded_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, filename, storage_key, size, uploaded_at
	`
	row := r.db.QueryRowContext(ctx, q,
		rec.ID,
		rec.Filename,
		rec.StorageKey,
		rec.Size,
		rec.UploadedAt,
	)
	var out model.DatasetRecord
	if err := row.Scan(
		&out.ID,
		&out.Filename,
		&out.StorageKey,
		&out.Size,
		&out.UploadedAt,
	); err != nil {
		return nil, err
	}
	out.UploadedAt = out.UploadedAt.UTC()
	return &out, nil
}

// FindByID fetches a single dataset record by its ID.
func (r *DatasetPostgres) FindByID(ctx context.Context, id string) (*model.DatasetRecord, error) {
	const q = `
		SELECT id, filename, storage_key, size, uploaded_at
		FROM datasets
		WHERE id = $1
	`
	row := r.db.QueryRowContext(ctx, q, id)
	var d model.DatasetRecord
	if err := row.Scan(
		&d.ID,
		&d.Filename,
		&d.StorageKey,
		&d.Size,
		&d.UploadedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	d.UploadedAt = d.UploadedAt.UTC()
	return &d, nil
}

// List returns all dataset records, newest first.
func (r *DatasetPostgres) List(ctx context.Context) ([]model.DatasetRecord, error) {
	const q = `
		SELECT id, filename, storage_key, size, uploaded_at
		FROM datasets
		ORDER BY uploaded_at DESC, id ASC
	`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]model.DatasetRecord, 0)
	for rows.Next() {
		var d model.DatasetRecord
		if err := rows.Scan(
			&d.ID,
			&d.Filename,
			&d.StorageKey,
			&d.Size,
			&d.UploadedAt,
		); err != nil {
			return nil, err
		}
		d.UploadedAt = d.UploadedAt.UTC()
		items = append(items, d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

// Delete removes a dataset record by ID. A delete that affects no row reports ErrNotFound.
func (r *DatasetPostgres) Delete(ctx context.Context, id string) error {
	const q = `DELETE FROM datasets WHERE id = $1`
	res, err := r.db.ExecContext(ctx, q, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return repository.ErrNotFound
	}
	return nil
}
