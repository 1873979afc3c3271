//go:build !cgo

package embeddings

import (
	"context"

	"go.uber.org/zap"
)

// GetONNXLibraryPath always returns "" without cgo.
func GetONNXLibraryPath() string {
	return ""
}

// EnsureONNXRuntime reports that local embeddings are unavailable without cgo.
func EnsureONNXRuntime(_ context.Context, _ *zap.Logger) (string, error) {
	return "", ErrFastEmbedNotAvailable
}
