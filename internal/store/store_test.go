package store

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"optiplus/internal/model"
	"optiplus/internal/repository"
	"optiplus/internal/repository/memory"
	repoMocks "optiplus/internal/repository/mocks"
	"optiplus/internal/storage"
	storeMocks "optiplus/internal/storage/mocks"
)

func newDiskStore(t *testing.T) (*Store, string) {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "datasets")
	objects, err := storage.NewLocal(dir)
	require.NoError(t, err)
	return New(objects, memory.New()), dir
}

func TestStore_PutGetDelete(t *testing.T) {
	ctx := context.Background()
	s, dir := newDiskStore(t)
	at := time.Date(2024, 2, 3, 4, 5, 6, 0, time.UTC)
	s.now = func() time.Time { return at }

	rec, err := s.Put(ctx, "people.csv", []byte("name\nAlice\n"))
	require.NoError(t, err)
	assert.NotEmpty(t, rec.ID)
	assert.Equal(t, "people.csv", rec.Filename)
	assert.Equal(t, rec.ID+"-people.csv", rec.StorageKey)
	assert.Equal(t, int64(11), rec.Size)
	assert.True(t, rec.UploadedAt.Equal(at))

	_, err = os.Stat(filepath.Join(dir, rec.StorageKey))
	require.NoError(t, err, "file must be named {id}-{filename}")

	data, got, err := s.Get(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, "name\nAlice\n", string(data))
	assert.Equal(t, rec.StorageKey, got.StorageKey)

	require.NoError(t, s.Delete(ctx, rec.ID))

	_, _, err = s.Get(ctx, rec.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, s.Delete(ctx, rec.ID), ErrNotFound, "delete is one-shot")

	_, err = os.Stat(filepath.Join(dir, rec.StorageKey))
	assert.True(t, os.IsNotExist(err))
}

func TestStore_IDsAreUnique(t *testing.T) {
	ctx := context.Background()
	s, _ := newDiskStore(t)

	seen := map[string]bool{}
	for i := 0; i < 20; i++ {
		rec, err := s.Put(ctx, "same.csv", []byte("a\n1\n"))
		require.NoError(t, err)
		assert.False(t, seen[rec.ID])
		seen[rec.ID] = true
	}

	recs, err := s.List(ctx)
	require.NoError(t, err)
	assert.Len(t, recs, 20)
}

func TestStore_GetIsExactNotPrefix(t *testing.T) {
	ctx := context.Background()
	s, _ := newDiskStore(t)

	rec, err := s.Put(ctx, "a.csv", []byte("x\n"))
	require.NoError(t, err)

	_, _, err = s.Get(ctx, rec.ID[:8])
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, s.Delete(ctx, rec.ID[:8]), ErrNotFound)
}

func TestStore_GetObjectVanished(t *testing.T) {
	ctx := context.Background()
	s, dir := newDiskStore(t)

	rec, err := s.Put(ctx, "a.csv", []byte("x\n"))
	require.NoError(t, err)
	require.NoError(t, os.Remove(filepath.Join(dir, rec.StorageKey)))

	_, _, err = s.Get(ctx, rec.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	// the dangling index entry can still be removed
	assert.NoError(t, s.Delete(ctx, rec.ID))
	_, err = s.Lookup(ctx, rec.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStore_PutRollback(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name       string
		deleteErr  error
		wantErrMsg string
	}{
		{name: "rollback succeeds", wantErrMsg: "index save failed: db fail"},
		{name: "rollback fails", deleteErr: errors.New("delete fail"), wantErrMsg: "rollback delete failed: delete fail"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mStore := new(storeMocks.MockStorage)
			mRepo := new(repoMocks.MockDatasetRepository)
			s := New(mStore, mRepo)
			s.newID = func() string { return "fixed-id" }

			mStore.On("Put", ctx, "fixed-id-x.csv", mock.Anything, mock.MatchedBy(func(opt storage.PutObjectOptions) bool {
				return opt.Size == 2 && opt.Metadata[storage.MetaOriginalFilename] == "x.csv"
			})).Return(storage.ObjectInfo{Key: "fixed-id-x.csv", Size: 2}, nil)
			mRepo.On("Create", ctx, mock.Anything).Return(nil, errors.New("db fail"))
			mStore.On("Delete", ctx, "fixed-id-x.csv").Return(tt.deleteErr)

			rec, err := s.Put(ctx, "x.csv", []byte("a\n"))
			assert.Nil(t, rec)
			assert.ErrorContains(t, err, tt.wantErrMsg)
			mStore.AssertExpectations(t)
			mRepo.AssertExpectations(t)
		})
	}
}

func TestStore_PutStorageError(t *testing.T) {
	ctx := context.Background()
	mStore := new(storeMocks.MockStorage)
	mRepo := new(repoMocks.MockDatasetRepository)
	mStore.On("Put", ctx, mock.Anything, mock.Anything, mock.Anything).
		Return(storage.ObjectInfo{}, errors.New("disk full"))

	_, err := New(mStore, mRepo).Put(ctx, "x.csv", []byte("a"))
	assert.ErrorContains(t, err, "upload to storage: disk full")
	mRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestStore_DeleteStorageError(t *testing.T) {
	ctx := context.Background()
	mStore := new(storeMocks.MockStorage)
	mRepo := new(repoMocks.MockDatasetRepository)
	mRepo.On("FindByID", ctx, "id").Return(&model.DatasetRecord{ID: "id", StorageKey: "id-a.csv"}, nil)
	mStore.On("Delete", ctx, "id-a.csv").Return(errors.New("permission denied"))

	err := New(mStore, mRepo).Delete(ctx, "id")
	assert.ErrorContains(t, err, "delete storage: permission denied")
	mRepo.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
}

func TestStore_GetReadError(t *testing.T) {
	ctx := context.Background()
	mStore := new(storeMocks.MockStorage)
	mRepo := new(repoMocks.MockDatasetRepository)
	mRepo.On("FindByID", ctx, "id").Return(&model.DatasetRecord{ID: "id", StorageKey: "id-a.csv"}, nil)
	mStore.On("Get", ctx, "id-a.csv").Return(io.NopCloser(&failingReader{}), storage.ObjectInfo{}, nil)

	_, _, err := New(mStore, mRepo).Get(ctx, "id")
	assert.ErrorContains(t, err, "read id-a.csv")
	assert.NotErrorIs(t, err, ErrNotFound)
}

func TestStore_LookupIndexError(t *testing.T) {
	ctx := context.Background()
	mRepo := new(repoMocks.MockDatasetRepository)
	mRepo.On("FindByID", ctx, "id").Return(nil, errors.New("db down"))

	_, err := New(nil, mRepo).Lookup(ctx, "id")
	assert.ErrorContains(t, err, "db down")

	mRepo2 := new(repoMocks.MockDatasetRepository)
	mRepo2.On("FindByID", ctx, "id").Return(nil, repository.ErrNotFound)
	_, err = New(nil, mRepo2).Lookup(ctx, "id")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"report.csv", "report.csv"},
		{"my data-2024.csv", "my data-2024.csv"},
		{"../../etc/passwd", "passwd"},
		{`C:\Users\me\sales.csv`, "sales.csv"},
		{"tab\tname.csv", "tabname.csv"},
		{"", "dataset.csv"},
		{"..", "dataset.csv"},
		{"/", "dataset.csv"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, SanitizeFilename(tt.in))
		})
	}

	long := strings.Repeat("é", 150) + ".csv"
	got := SanitizeFilename(long)
	assert.LessOrEqual(t, len(got), maxStoredName)
	assert.True(t, strings.HasSuffix(got, ".csv"))
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("io failure") }
