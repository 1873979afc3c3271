package qdrant

import (
	"errors"
	"fmt"
	"time"

	"github.com/qdrant/go-client/qdrant"

	"github.com/fyrsmithlabs/ragmemory/internal/config"
)

// ClientConfig configures the gRPC connection to Qdrant.
type ClientConfig struct {
	// Host and Port address the gRPC listener (6334), not the REST API (6333).
	Host string
	Port int

	UseTLS bool
	APIKey string

	// MaxMessageSize bounds gRPC messages in both directions. Upsert batches
	// carry full chunk text in their payloads. Default: 50MB.
	MaxMessageSize int

	// DialTimeout bounds the health check performed on connect. Default: 5s.
	DialTimeout time.Duration

	// RequestTimeout bounds each attempt of a call, not the call with its
	// retries. Default: 30s.
	RequestTimeout time.Duration

	// RetryAttempts is how often a transient failure is retried. Zero
	// makes every call a single attempt. Default: 0.
	RetryAttempts int

	// RetryBackoff is the first retry delay; it doubles per attempt.
	// Default: 1s.
	RetryBackoff time.Duration

	// Distance is the metric of collections this client creates.
	// Default: Cosine.
	Distance qdrant.Distance
}

// DefaultClientConfig returns defaults for a local Qdrant.
func DefaultClientConfig() *ClientConfig {
	return &ClientConfig{
		Host:           "localhost",
		Port:           6334,
		MaxMessageSize: 50 * 1024 * 1024,
		DialTimeout:    5 * time.Second,
		RequestTimeout: 30 * time.Second,
		RetryAttempts:  0,
		RetryBackoff:   time.Second,
		Distance:       qdrant.Distance_Cosine,
	}
}

// FromConfig maps the user-facing qdrant section onto a client config.
func FromConfig(cfg config.QdrantConfig) *ClientConfig {
	c := &ClientConfig{
		Host:           cfg.Host,
		Port:           cfg.Port,
		UseTLS:         cfg.UseTLS,
		APIKey:         cfg.APIKey.Value(),
		DialTimeout:    cfg.DialTimeout.Duration(),
		RequestTimeout: cfg.RequestTimeout.Duration(),
		RetryAttempts:  cfg.RetryAttempts,
		RetryBackoff:   cfg.RetryBackoff.Duration(),
	}
	c.ApplyDefaults()
	return c
}

// ApplyDefaults fills unset fields from DefaultClientConfig.
func (c *ClientConfig) ApplyDefaults() {
	d := DefaultClientConfig()
	if c.Host == "" {
		c.Host = d.Host
	}
	if c.Port == 0 {
		c.Port = d.Port
	}
	if c.MaxMessageSize == 0 {
		c.MaxMessageSize = d.MaxMessageSize
	}
	if c.DialTimeout == 0 {
		c.DialTimeout = d.DialTimeout
	}
	if c.RequestTimeout == 0 {
		c.RequestTimeout = d.RequestTimeout
	}
	if c.RetryAttempts < 0 {
		c.RetryAttempts = 0
	}
	if c.RetryBackoff == 0 {
		c.RetryBackoff = d.RetryBackoff
	}
	if c.Distance == qdrant.Distance_UnknownDistance {
		c.Distance = d.Distance
	}
}

// Validate rejects configs that cannot produce a working connection.
func (c *ClientConfig) Validate() error {
	if c.Host == "" {
		return errors.New("host is required")
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port: %d (must be 1-65535)", c.Port)
	}
	if c.MaxMessageSize <= 0 {
		return fmt.Errorf("invalid max message size: %d (must be > 0)", c.MaxMessageSize)
	}
	return nil
}

func (c *ClientConfig) address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
