//go:build !cgo

package embeddings

import "fmt"

// ErrFastEmbedNotAvailable is returned by every local-embedding entry point
// of a binary built without cgo, which cannot load the ONNX runtime.
var ErrFastEmbedNotAvailable = fmt.Errorf("%w: fastembed needs a cgo build, set embeddings.provider to tei", ErrInvalidConfig)

// FastEmbedProvider cannot be constructed without cgo.
type FastEmbedProvider struct {
	Provider
}

func NewFastEmbedProvider(cfg FastEmbedConfig) (*FastEmbedProvider, error) {
	return nil, fmt.Errorf("model %s: %w", cfg.Model, ErrFastEmbedNotAvailable)
}
