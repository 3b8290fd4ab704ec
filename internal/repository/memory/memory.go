// Package memory is an in-process dataset index guarded by a RWMutex.
//
// It is not persistent: Rebuild repopulates it from the object backend at startup,
// recovering IDs from "{uuid}-{filename}" keys.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"

	"optiplus/internal/model"
	"optiplus/internal/repository"
	"optiplus/internal/storage"
)

// Index implements repository.DatasetRepository in memory.
type Index struct {
	mu      sync.RWMutex
	records map[string]model.DatasetRecord
}

var _ repository.DatasetRepository = (*Index)(nil)

// New returns an empty index.
func New() *Index {
	return &Index{records: make(map[string]model.DatasetRecord)}
}

func (idx *Index) Create(ctx context.Context, rec *model.DatasetRecord) (*model.DatasetRecord, error) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	if _, ok := idx.records[rec.ID]; ok {
		return nil, fmt.Errorf("dataset %s already indexed", rec.ID)
	}
	idx.records[rec.ID] = *rec
	out := *rec
	return &out, nil
}

func (idx *Index) FindByID(ctx context.Context, id string) (*model.DatasetRecord, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	rec, ok := idx.records[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &rec, nil
}

func (idx *Index) List(ctx context.Context) ([]model.DatasetRecord, error) {
	idx.mu.RLock()
	out := make([]model.DatasetRecord, 0, len(idx.records))
	for _, rec := range idx.records {
		out = append(out, rec)
	}
	idx.mu.RUnlock()

	SortNewestFirst(out)
	return out, nil
}

func (idx *Index) Delete(ctx context.Context, id string) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	if _, ok := idx.records[id]; !ok {
		return repository.ErrNotFound
	}
	delete(idx.records, id)
	return nil
}

// Len returns the number of indexed records.
func (idx *Index) Len() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.records)
}

// Rebuild replaces the index content with records derived from the backend listing.
// Objects whose key does not start with a UUID followed by "-" are skipped and returned in skipped.
func (idx *Index) Rebuild(ctx context.Context, store storage.Storage) (skipped []string, err error) {
	objs, err := store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("scan storage: %w", err)
	}

	records := make(map[string]model.DatasetRecord, len(objs))
	for _, obj := range objs {
		id, name, ok := SplitKey(obj.Key)
		if !ok {
			skipped = append(skipped, obj.Key)
			continue
		}
		if orig := obj.OriginalFilename(); orig != "" {
			name = orig
		}
		records[id] = model.DatasetRecord{
			ID:         id,
			Filename:   name,
			StorageKey: obj.Key,
			Size:       obj.Size,
			UploadedAt: obj.UploadedAt().UTC(),
		}
	}

	idx.mu.Lock()
	idx.records = records
	idx.mu.Unlock()
	return skipped, nil
}

// SplitKey splits a storage key of the form "{uuid}-{filename}".
func SplitKey(key string) (id, filename string, ok bool) {
	const uuidLen = 36
	if len(key) < uuidLen+1 || key[uuidLen] != '-' {
		return "", "", false
	}
	id = key[:uuidLen]
	if _, err := uuid.Parse(id); err != nil {
		return "", "", false
	}
	return strings.ToLower(id), key[uuidLen+1:], true
}

// SortNewestFirst orders records by upload time descending, then by ID.
func SortNewestFirst(recs []model.DatasetRecord) {
	sort.SliceStable(recs, func(i, j int) bool {
		if !recs[i].UploadedAt.Equal(recs[j].UploadedAt) {
			return recs[i].UploadedAt.After(recs[j].UploadedAt)
		}
		return recs[i].ID < recs[j].ID
	})
}
