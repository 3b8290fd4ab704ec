// Package store persists uploaded dataset bytes under generated IDs.
//
// Bytes go to a storage.Storage backend under the key "{id}-{filename}"; the
// repository index maps each ID to its key, so lookups are exact rather than
// prefix matches over a directory listing. The store knows nothing about CSV.
package store

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"

	"optiplus/internal/model"
	"optiplus/internal/repository"
	"optiplus/internal/storage"
)

// ErrNotFound is returned when an ID has no stored dataset.
var ErrNotFound = errors.New("dataset not found")

const (
	contentType   = "text/csv"
	fallbackName  = "dataset.csv"
	maxStoredName = 200
)

// Store implements put/list/get/delete over a backend and an index.
type Store struct {
	objects storage.Storage
	index   repository.DatasetRepository
	now     func() time.Time
	newID   func() string
}

// New constructs a Store.
func New(objects storage.Storage, index repository.DatasetRepository) *Store {
	return &Store{
		objects: objects,
		index:   index,
		now:     time.Now,
		newID:   uuid.NewString,
	}
}

// Put writes data under a fresh ID and indexes it. If indexing fails the object is removed again.
func (s *Store) Put(ctx context.Context, originalName string, data []byte) (*model.DatasetRecord, error) {
	id := s.newID()
	key := StorageKey(id, originalName)
	uploadedAt := s.now().UTC()

	info, err := s.objects.Put(ctx, key, bytes.NewReader(data), storage.PutObjectOptions{
		Size:        int64(len(data)),
		ContentType: contentType,
		Metadata: map[string]string{
			storage.MetaOriginalFilename: originalName,
			storage.MetaUploadedAt:       uploadedAt.Format(time.RFC3339Nano),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("upload to storage: %w", err)
	}

	rec := &model.DatasetRecord{
		ID:         id,
		Filename:   originalName,
		StorageKey: key,
		Size:       info.Size,
		UploadedAt: uploadedAt,
	}
	stored, err := s.index.Create(ctx, rec)
	if err != nil {
		// Rollback: delete the object from storage
		if delErr := s.objects.Delete(ctx, key); delErr != nil {
			return nil, fmt.Errorf("index save failed: %v; rollback delete failed: %v", err, delErr)
		}
		return nil, fmt.Errorf("index save failed: %w", err)
	}
	return stored, nil
}

// List returns every indexed dataset, newest first.
func (s *Store) List(ctx context.Context) ([]model.DatasetRecord, error) {
	recs, err := s.index.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list index: %w", err)
	}
	return recs, nil
}

// Lookup returns the index record for id without touching the backend.
func (s *Store) Lookup(ctx context.Context, id string) (*model.DatasetRecord, error) {
	rec, err := s.index.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find %s: %w", id, err)
	}
	return rec, nil
}

// Get returns the stored bytes for id.
func (s *Store) Get(ctx context.Context, id string) ([]byte, *model.DatasetRecord, error) {
	rec, err := s.Lookup(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	rc, _, err := s.objects.Get(ctx, rec.StorageKey)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			return nil, nil, ErrNotFound
		}
		return nil, nil, fmt.Errorf("read %s: %w", rec.StorageKey, err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, nil, fmt.Errorf("read %s: %w", rec.StorageKey, err)
	}
	return data, rec, nil
}

// Delete removes the object and its index record. A second delete of the same ID reports ErrNotFound.
func (s *Store) Delete(ctx context.Context, id string) error {
	rec, err := s.Lookup(ctx, id)
	if err != nil {
		return err
	}
	// A missing object still lets the index entry go, otherwise the ID could never be removed.
	if err := s.objects.Delete(ctx, rec.StorageKey); err != nil && !errors.Is(err, storage.ErrObjectNotFound) {
		return fmt.Errorf("delete storage: %w", err)
	}
	if err := s.index.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("delete index: %w", err)
	}
	return nil
}

// StorageKey combines an ID with a sanitized form of the original filename.
func StorageKey(id, originalName string) string {
	return id + "-" + SanitizeFilename(originalName)
}

// SanitizeFilename keeps the base name and drops path separators and control characters.
func SanitizeFilename(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	name = filepath.Base(name)
	name = strings.Map(func(r rune) rune {
		if r == '/' || unicode.IsControl(r) {
			return -1
		}
		return r
	}, name)
	name = strings.TrimSpace(name)
	if name == "" || name == "." || name == ".." {
		return fallbackName
	}
	if len(name) > maxStoredName {
		ext := filepath.Ext(name)
		if len(ext) > 16 {
			ext = ""
		}
		name = truncate(name[:len(name)-len(ext)], maxStoredName-len(ext)) + ext
	}
	return name
}

// truncate cuts s to at most n bytes without splitting a UTF-8 sequence.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !isRuneStart(s[n]) {
		n--
	}
	return s[:n]
}

func isRuneStart(b byte) bool { return b&0xC0 != 0x80 }
