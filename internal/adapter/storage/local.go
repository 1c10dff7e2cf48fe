package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/semmidev/serverbackup/internal/domain"
)

// LocalStorage is an ObjectStore on the local filesystem: each bucket is a
// directory under basePath and keys are slash separated paths inside it.
type LocalStorage struct {
	basePath string
}

func NewLocal(basePath string) (*LocalStorage, error) {
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create backup directory: %w", err)
	}
	return &LocalStorage{basePath: basePath}, nil
}

func (l *LocalStorage) Upload(ctx context.Context, localPath, bucket, key string) error {
	source, err := os.Open(localPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: %s", domain.ErrMissingLocalFile, localPath)
		}
		return fmt.Errorf("failed to open source: %w", err)
	}
	defer source.Close()

	destPath, err := l.objectPath(bucket, key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(destPath), 0755); err != nil {
		return fmt.Errorf("failed to create dest directory: %w", err)
	}

	dest, err := os.Create(destPath)
	if err != nil {
		return fmt.Errorf("failed to create dest: %w", err)
	}

	if _, err := io.Copy(dest, source); err != nil {
		dest.Close()
		_ = os.Remove(destPath)
		return fmt.Errorf("failed to copy: %w", err)
	}

	return dest.Close()
}

func (l *LocalStorage) List(ctx context.Context, bucket, prefix string) ([]domain.RemoteObject, error) {
	root := filepath.Join(l.basePath, bucket)
	objects := make([]domain.RemoteObject, 0)

	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) && p == root {
				return fs.SkipAll
			}
			return err
		}
		if d.IsDir() {
			return nil
		}

		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		key := filepath.ToSlash(rel)
		if !strings.HasPrefix(key, prefix) {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return fmt.Errorf("failed to get file info for %s: %w", key, err)
		}
		objects = append(objects, domain.RemoteObject{
			Key:          key,
			Size:         info.Size(),
			LastModified: info.ModTime(),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read directory: %w", err)
	}

	return objects, nil
}

func (l *LocalStorage) Delete(ctx context.Context, bucket, key string) error {
	p, err := l.objectPath(bucket, key)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil {
		return fmt.Errorf("failed to delete file: %w", err)
	}
	return nil
}

func (l *LocalStorage) objectPath(bucket, key string) (string, error) {
	clean := path.Clean("/" + key)
	if clean == "/" {
		return "", fmt.Errorf("invalid key: %q", key)
	}
	return filepath.Join(l.basePath, bucket, filepath.FromSlash(clean)), nil
}

var _ domain.ObjectStore = (*LocalStorage)(nil)
