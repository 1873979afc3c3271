package qdrant

import (
	"testing"
	"time"

	"github.com/qdrant/go-client/qdrant"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/ragmemory/internal/config"
)

func TestClientConfig_ApplyDefaults(t *testing.T) {
	tests := []struct {
		name   string
		config *ClientConfig
		check  func(t *testing.T, cfg *ClientConfig)
	}{
		{
			name:   "empty config gets all defaults",
			config: &ClientConfig{},
			check: func(t *testing.T, cfg *ClientConfig) {
				assert.Equal(t, DefaultClientConfig(), cfg)
			},
		},
		{
			name:   "set values are kept",
			config: &ClientConfig{Host: "qdrant.internal", Port: 6335, RetryBackoff: time.Millisecond},
			check: func(t *testing.T, cfg *ClientConfig) {
				assert.Equal(t, "qdrant.internal:6335", cfg.address())
				assert.Equal(t, time.Millisecond, cfg.RetryBackoff)
				assert.Equal(t, 5*time.Second, cfg.DialTimeout)
			},
		},
		{
			name:   "negative retries disable retrying",
			config: &ClientConfig{RetryAttempts: -1},
			check: func(t *testing.T, cfg *ClientConfig) {
				assert.Equal(t, 0, cfg.RetryAttempts)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.config.ApplyDefaults()
			tt.check(t, tt.config)
		})
	}
}

func TestClientConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		config  *ClientConfig
		wantErr string
	}{
		{name: "valid", config: &ClientConfig{Host: "localhost", Port: 6334, MaxMessageSize: 1024}},
		{name: "missing host", config: &ClientConfig{Port: 6334, MaxMessageSize: 1024}, wantErr: "host is required"},
		{name: "port out of range", config: &ClientConfig{Host: "h", Port: 70000, MaxMessageSize: 1024}, wantErr: "invalid port"},
		{name: "zero message size", config: &ClientConfig{Host: "h", Port: 6334}, wantErr: "invalid max message size"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestFromConfig(t *testing.T) {
	cfg := config.Default().Qdrant
	cfg.Host = "vectors.example.com"
	cfg.UseTLS = true
	cfg.APIKey = config.Secret("k3y")

	got := FromConfig(cfg)
	assert.Equal(t, "vectors.example.com:6334", got.address())
	assert.True(t, got.UseTLS)
	assert.Equal(t, "k3y", got.APIKey)
	assert.Equal(t, 0, got.RetryAttempts)
	assert.Equal(t, 200*time.Millisecond, got.RetryBackoff)
	assert.Equal(t, qdrant.Distance_Cosine, got.Distance)
	assert.Equal(t, 50*1024*1024, got.MaxMessageSize)
}

func TestFromConfig_RetryAttempts(t *testing.T) {
	tests := []struct {
		name    string
		retries int
		want    int
	}{
		{name: "zero means a single attempt", retries: 0, want: 0},
		{name: "explicit retries are kept", retries: 5, want: 5},
		{name: "negative clamps to zero", retries: -2, want: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FromConfig(config.QdrantConfig{RetryAttempts: tt.retries})
			assert.Equal(t, tt.want, got.RetryAttempts)
		})
	}
}
