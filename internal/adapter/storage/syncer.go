package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"docchat/internal/adapter/index"
	"docchat/internal/logger"
	"docchat/internal/port"
)

// Syncer mirrors the index artifacts between the local index directory
// and an object store. Push runs after each successful ingest; Pull
// runs at startup when the remote copy is newer.
type Syncer struct {
	store port.ObjectStore
	dir   string
}

func NewSyncer(store port.ObjectStore, dir string) *Syncer {
	return &Syncer{store: store, dir: dir}
}

// Push uploads every index artifact. The manifest goes last so a
// reader that sees the new manifest also sees the new database.
func (s *Syncer) Push(ctx context.Context) error {
	for _, name := range index.ArtifactNames() {
		local := filepath.Join(s.dir, name)
		if err := s.store.Upload(ctx, local, name); err != nil {
			return fmt.Errorf("failed to push %s: %w", name, err)
		}
		logger.Debug("pushed %s", name)
	}
	return nil
}

// Pull downloads every index artifact, overwriting local copies.
func (s *Syncer) Pull(ctx context.Context) error {
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return err
	}
	for _, name := range index.ArtifactNames() {
		local := filepath.Join(s.dir, name)
		if err := s.store.Download(ctx, name, local); err != nil {
			return fmt.Errorf("failed to pull %s: %w", name, err)
		}
		logger.Debug("pulled %s", name)
	}
	return nil
}

// RemoteNewer reports whether the remote manifest is newer than the
// local one. A missing remote copy is not an error; it just means
// there is nothing to pull.
func (s *Syncer) RemoteNewer(ctx context.Context) (bool, error) {
	remote, err := s.store.Stat(ctx, index.ManifestFile)
	if errors.Is(err, port.ErrObjectNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	info, err := os.Stat(filepath.Join(s.dir, index.ManifestFile))
	if os.IsNotExist(err) {
		return true, nil
	}
	if err != nil {
		return false, err
	}

	return remote.After(info.ModTime().Add(time.Second)), nil
}
