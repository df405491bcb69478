package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"google.golang.org/api/googleapi"
	storagev1 "google.golang.org/api/storage/v1"

	"docchat/internal/port"
)

// GCSStore syncs index artifacts through a Google Cloud Storage bucket.
// Credentials come from the usual application default chain.
type GCSStore struct {
	service *storagev1.Service
	bucket  string
	prefix  string
}

func NewGCSStore(ctx context.Context, bucket, prefix string) (*GCSStore, error) {
	if bucket == "" {
		return nil, fmt.Errorf("bucket name is required")
	}

	service, err := storagev1.NewService(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}

	return &GCSStore{
		service: service,
		bucket:  bucket,
		prefix:  prefix,
	}, nil
}

func (s *GCSStore) objectName(name string) string {
	return s.prefix + name
}

func (s *GCSStore) Upload(ctx context.Context, localPath, name string) error {
	f, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", localPath, err)
	}
	defer f.Close()

	object := &storagev1.Object{Name: s.objectName(name)}
	_, err = s.service.Objects.Insert(s.bucket, object).Media(f).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("failed to upload %s: %w", name, err)
	}
	return nil
}

func (s *GCSStore) Download(ctx context.Context, name, localPath string) error {
	resp, err := s.service.Objects.Get(s.bucket, s.objectName(name)).Context(ctx).Download()
	if err != nil {
		if isNotFound(err) {
			return fmt.Errorf("%w: %s", port.ErrObjectNotExist, name)
		}
		return fmt.Errorf("failed to download %s: %w", name, err)
	}
	defer resp.Body.Close()

	tmp := localPath + ".tmp"
	out, err := os.Create(tmp)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, resp.Body); err != nil {
		out.Close()
		os.Remove(tmp)
		return fmt.Errorf("failed to write %s: %w", localPath, err)
	}
	if err := out.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, localPath)
}

func (s *GCSStore) Stat(ctx context.Context, name string) (time.Time, error) {
	obj, err := s.service.Objects.Get(s.bucket, s.objectName(name)).Context(ctx).Do()
	if err != nil {
		if isNotFound(err) {
			return time.Time{}, fmt.Errorf("%w: %s", port.ErrObjectNotExist, name)
		}
		return time.Time{}, fmt.Errorf("failed to stat %s: %w", name, err)
	}

	updated, err := time.Parse(time.RFC3339, obj.Updated)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to parse object timestamp: %w", err)
	}
	return updated, nil
}

func isNotFound(err error) bool {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		return apiErr.Code == http.StatusNotFound
	}
	return false
}
