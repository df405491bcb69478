// Package storage implements the object store used to sync index
// artifacts between machines. The local backend mirrors objects into a
// directory; the GCS backend uses a bucket.
package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"docchat/internal/port"
)

// LocalStore keeps objects as plain files under a root directory. It is
// the default backend and also stands in for GCS in tests.
type LocalStore struct {
	root string
}

func NewLocalStore(root string) (*LocalStore, error) {
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("failed to create store root: %w", err)
	}
	return &LocalStore{root: root}, nil
}

func (s *LocalStore) Upload(ctx context.Context, localPath, name string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	src, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", localPath, err)
	}
	defer src.Close()

	dst := filepath.Join(s.root, filepath.FromSlash(name))
	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return err
	}

	tmp := dst + ".tmp"
	out, err := os.Create(tmp)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, src); err != nil {
		out.Close()
		os.Remove(tmp)
		return fmt.Errorf("failed to copy object: %w", err)
	}
	if err := out.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, dst)
}

func (s *LocalStore) Download(ctx context.Context, name, localPath string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	src, err := os.Open(filepath.Join(s.root, filepath.FromSlash(name)))
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", port.ErrObjectNotExist, name)
		}
		return err
	}
	defer src.Close()

	if err := os.MkdirAll(filepath.Dir(localPath), 0755); err != nil {
		return err
	}

	tmp := localPath + ".tmp"
	out, err := os.Create(tmp)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, src); err != nil {
		out.Close()
		os.Remove(tmp)
		return fmt.Errorf("failed to copy object: %w", err)
	}
	if err := out.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, localPath)
}

func (s *LocalStore) Stat(ctx context.Context, name string) (time.Time, error) {
	if err := ctx.Err(); err != nil {
		return time.Time{}, err
	}

	info, err := os.Stat(filepath.Join(s.root, filepath.FromSlash(name)))
	if err != nil {
		if os.IsNotExist(err) {
			return time.Time{}, fmt.Errorf("%w: %s", port.ErrObjectNotExist, name)
		}
		return time.Time{}, err
	}
	return info.ModTime(), nil
}
