package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
)

// FsBucket keeps blobs as files of an afero filesystem: a local directory
// in development, an in-memory filesystem in tests.
type FsBucket struct {
	fs afero.Fs
}

func NewFsBucket(fs afero.Fs) *FsBucket {
	return &FsBucket{fs: fs}
}

// NewLocalBucket roots a bucket at dir, creating it if needed.
func NewLocalBucket(dir string) (*FsBucket, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating %s: %w", dir, err)
	}
	return NewFsBucket(afero.NewBasePathFs(afero.NewOsFs(), dir)), nil
}

func (b *FsBucket) List(_ context.Context, prefix string) ([]Object, error) {
	root := strings.TrimSuffix(prefix, "/")
	exists, err := afero.DirExists(b.fs, root)
	if err != nil {
		return nil, err
	}
	if !exists {
		return []Object{}, nil
	}

	objects := make([]Object, 0)
	err = afero.Walk(b.fs, root, func(p string, info fs.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		key := strings.TrimPrefix(filepath.ToSlash(p), "/")
		if !strings.HasPrefix(key, prefix) {
			return nil
		}
		objects = append(objects, Object{Key: key, LastModified: info.ModTime()})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w", prefix, err)
	}
	return objects, nil
}

func (b *FsBucket) Get(_ context.Context, key string) ([]byte, error) {
	data, err := afero.ReadFile(b.fs, key)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%s: %w", key, ErrNotFound)
	}
	return data, err
}

func (b *FsBucket) Put(_ context.Context, key string, data []byte) error {
	if dir := path.Dir(key); dir != "." {
		if err := b.fs.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	return afero.WriteFile(b.fs, key, data, 0644)
}

func (b *FsBucket) Delete(_ context.Context, key string) error {
	err := b.fs.Remove(key)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}
