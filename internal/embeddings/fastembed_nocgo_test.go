//go:build !cgo

package embeddings

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFastEmbedUnavailableWithoutCgo(t *testing.T) {
	tests := []struct {
		name string
		run  func() error
	}{
		{name: "provider", run: func() error {
			_, err := NewProvider(ProviderConfig{Provider: "fastembed"})
			return err
		}},
		{name: "onnx runtime", run: func() error {
			_, err := EnsureONNXRuntime(context.Background(), nil)
			return err
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.run()
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrFastEmbedNotAvailable)
			assert.ErrorIs(t, err, ErrInvalidConfig)
		})
	}
	assert.Empty(t, GetONNXLibraryPath())
}
