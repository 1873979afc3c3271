package ingest

import (
	"errors"
	"fmt"
	"strings"
)

// Error kinds. Parse failures use conversation.ErrParse.
var (
	// ErrIO means the export file is missing or unreadable.
	ErrIO = errors.New("export unreadable")

	// ErrEmbedding means an embedder call failed or returned unusable vectors.
	ErrEmbedding = errors.New("embedding failed")

	// ErrIndex means a vector index call failed.
	ErrIndex = errors.New("vector index operation failed")

	// ErrInvalidConfig indicates an unusable pipeline configuration.
	ErrInvalidConfig = errors.New("invalid ingest configuration")
)

// Stage names one step of an ingestion run.
type Stage string

const (
	StageRead     Stage = "read"
	StageParse    Stage = "parse"
	StageChunk    Stage = "chunk"
	StageRecreate Stage = "recreate_collection"
	StageEmbed    Stage = "embed"
	StageUpsert   Stage = "upsert"
)

// StageError records where an ingestion run failed. It unwraps to both its
// kind (ErrIO, ErrEmbedding, ErrIndex) and the underlying cause.
type StageError struct {
	Stage      Stage
	Path       string
	Collection string
	// Batch is the zero-based batch number, or -1 outside the batch loop.
	Batch int
	Kind  error
	Err   error
}

func (e *StageError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "ingest %s: %s", e.Path, e.Stage)
	if e.Batch >= 0 {
		fmt.Fprintf(&b, " batch %d", e.Batch)
	}
	if e.Collection != "" && e.Stage != StageRead && e.Stage != StageParse {
		fmt.Fprintf(&b, " (collection %s)", e.Collection)
	}
	if e.Kind != nil {
		fmt.Fprintf(&b, ": %v", e.Kind)
	}
	fmt.Fprintf(&b, ": %v", e.Err)
	return b.String()
}

func (e *StageError) Unwrap() []error {
	if e.Kind == nil {
		return []error{e.Err}
	}
	return []error{e.Kind, e.Err}
}
