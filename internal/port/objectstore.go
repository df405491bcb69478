package port

import (
	"context"
	"errors"
	"time"
)

// ErrObjectNotExist is returned by Stat when the named object is absent.
var ErrObjectNotExist = errors.New("object does not exist")

// ObjectStore moves index artifacts between local disk and durable
// object storage (GCS or a local directory).
type ObjectStore interface {
	// Upload copies a local file to the store under name.
	Upload(ctx context.Context, localPath, name string) error

	// Download copies the named object to a local file.
	Download(ctx context.Context, name, localPath string) error

	// Stat returns the last modification time of the named object,
	// or ErrObjectNotExist.
	Stat(ctx context.Context, name string) (time.Time, error)
}
