package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrIndexMissing means no persisted index exists at the configured
	// path. Callers recover by bootstrapping; it is not surfaced to users.
	ErrIndexMissing = errors.New("vector index not found")

	// ErrIndexCorrupt means a persisted index exists but cannot be loaded.
	// Never recovered automatically: overwriting would destroy ingested data.
	ErrIndexCorrupt = errors.New("vector index corrupted")

	ErrInvalidTopK = errors.New("top-k must be positive")
	ErrEmptyQuery  = errors.New("query must not be empty")
)

// Stage names one step of the ingestion pipeline for error attribution.
type Stage string

const (
	StageExtract Stage = "extract"
	StageChunk   Stage = "chunk"
	StageEmbed   Stage = "embed"
	StageIndex   Stage = "index"
	StagePersist Stage = "persist"
)

// StageError wraps a failure in one ingestion stage. The whole pipeline
// run aborts with a single StageError naming the failing stage.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("ingestion failed at stage %s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// NewStageError wraps err with the failing pipeline stage.
func NewStageError(stage Stage, err error) *StageError {
	return &StageError{Stage: stage, Err: err}
}
