package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

const tmpSuffix = ".tmp"

// localStorage keeps one file per object in a single directory.
// The directory is created lazily on the first write.
type localStorage struct {
	dir string
}

// NewLocal returns a disk-backed Storage rooted at dir.
func NewLocal(dir string) (Storage, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, fmt.Errorf("upload directory is required")
	}
	return &localStorage{dir: filepath.Clean(dir)}, nil
}

func (l *localStorage) path(key string) (string, error) {
	if key == "" || key != filepath.Base(key) || key == "." || key == ".." {
		return "", fmt.Errorf("invalid object key %q", key)
	}
	return filepath.Join(l.dir, key), nil
}

// Put writes to a temp file, fsyncs and renames into place.
func (l *localStorage) Put(ctx context.Context, key string, r io.Reader, opt PutObjectOptions) (ObjectInfo, error) {
	full, err := l.path(key)
	if err != nil {
		return ObjectInfo{}, err
	}
	if err := ctx.Err(); err != nil {
		return ObjectInfo{}, err
	}
	if err := os.MkdirAll(l.dir, 0o750); err != nil {
		return ObjectInfo{}, fmt.Errorf("create upload directory: %w", err)
	}

	tmp := full + tmpSuffix
	f, err := os.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o640)
	if err != nil {
		return ObjectInfo{}, fmt.Errorf("create temp file: %w", err)
	}
	size, err := io.Copy(f, r)
	if err != nil {
		f.Close()
		os.Remove(tmp)
		return ObjectInfo{}, fmt.Errorf("write data: %w", err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmp)
		return ObjectInfo{}, fmt.Errorf("fsync: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return ObjectInfo{}, fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmp, full); err != nil {
		os.Remove(tmp)
		return ObjectInfo{}, fmt.Errorf("rename into place: %w", err)
	}

	if ts, ok := uploadedAt(opt.Metadata); ok {
		if err := os.Chtimes(full, ts, ts); err != nil {
			return ObjectInfo{}, fmt.Errorf("stamp upload time: %w", err)
		}
	}

	st, err := os.Stat(full)
	if err != nil {
		return ObjectInfo{}, fmt.Errorf("stat stored file: %w", err)
	}
	return ObjectInfo{
		Key:          key,
		Size:         size,
		ContentType:  opt.ContentType,
		LastModified: st.ModTime().UTC(),
		Metadata:     opt.Metadata,
	}, nil
}

func (l *localStorage) Get(ctx context.Context, key string) (io.ReadCloser, ObjectInfo, error) {
	full, err := l.path(key)
	if err != nil {
		return nil, ObjectInfo{}, err
	}
	f, err := os.Open(full)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ObjectInfo{}, fmt.Errorf("%s: %w", key, ErrObjectNotFound)
		}
		return nil, ObjectInfo{}, fmt.Errorf("open %s: %w", key, err)
	}
	st, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, ObjectInfo{}, fmt.Errorf("stat %s: %w", key, err)
	}
	return f, ObjectInfo{Key: key, Size: st.Size(), LastModified: st.ModTime().UTC()}, nil
}

func (l *localStorage) Delete(ctx context.Context, key string) error {
	full, err := l.path(key)
	if err != nil {
		return err
	}
	if err := os.Remove(full); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%s: %w", key, ErrObjectNotFound)
		}
		return fmt.Errorf("remove %s: %w", key, err)
	}
	return nil
}

// List returns regular files in the directory. A missing directory lists as empty.
func (l *localStorage) List(ctx context.Context) ([]ObjectInfo, error) {
	entries, err := os.ReadDir(l.dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []ObjectInfo{}, nil
		}
		return nil, fmt.Errorf("read upload directory: %w", err)
	}
	out := make([]ObjectInfo, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || strings.HasSuffix(e.Name(), tmpSuffix) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			// removed between ReadDir and Info
			continue
		}
		out = append(out, ObjectInfo{Key: e.Name(), Size: info.Size(), LastModified: info.ModTime().UTC()})
	}
	return out, nil
}

// PingContext succeeds when the directory exists or can still be created.
func (l *localStorage) PingContext(ctx context.Context) error {
	st, err := os.Stat(l.dir)
	if err == nil {
		if !st.IsDir() {
			return fmt.Errorf("%s is not a directory", l.dir)
		}
		return nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}
