package mcp

import (
	"context"
	"errors"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/ragmemory/internal/search"
)

// Server exposes the search service as MCP tools.
type Server struct {
	mcp     *mcp.Server
	search  *search.Service
	config  Config
	metrics *Metrics
	logger  *zap.Logger
}

// Config configures the MCP server.
type Config struct {
	// Name is the server implementation name (default: "ragmemory").
	Name string

	// Version is the server version.
	Version string

	// DefaultCollection is searched when a call names none.
	DefaultCollection string

	// DefaultTopK applies when top_k is absent (default: 3).
	DefaultTopK int

	// MaxTopK is the upper bound for top_k (default: 10).
	MaxTopK int

	// SnippetChars is how much of each chunk text is shown (default: 300).
	SnippetChars int

	// Logger must not write to stdout on the stdio transport.
	Logger *zap.Logger
}

// DefaultConfig returns the reference tool settings.
func DefaultConfig() *Config {
	return &Config{
		Name:              "ragmemory",
		Version:           "dev",
		DefaultCollection: "chatgpt_conversations",
		DefaultTopK:       3,
		MaxTopK:           10,
		SnippetChars:      300,
		Logger:            zap.NewNop(),
	}
}

func (c *Config) applyDefaults() {
	d := DefaultConfig()
	if c.Name == "" {
		c.Name = d.Name
	}
	if c.Version == "" {
		c.Version = d.Version
	}
	if c.DefaultCollection == "" {
		c.DefaultCollection = d.DefaultCollection
	}
	if c.MaxTopK <= 0 {
		c.MaxTopK = d.MaxTopK
	}
	if c.DefaultTopK <= 0 {
		c.DefaultTopK = d.DefaultTopK
	}
	if c.DefaultTopK > c.MaxTopK {
		c.DefaultTopK = c.MaxTopK
	}
	if c.SnippetChars <= 0 {
		c.SnippetChars = d.SnippetChars
	}
	if c.Logger == nil {
		c.Logger = zap.NewNop()
	}
}

// NewServer creates an MCP server backed by svc.
func NewServer(cfg *Config, svc *search.Service) (*Server, error) {
	if svc == nil {
		return nil, errors.New("search service is required")
	}
	if cfg == nil {
		cfg = DefaultConfig()
	}
	c := *cfg
	c.applyDefaults()

	s := &Server{
		mcp: mcp.NewServer(&mcp.Implementation{
			Name:    c.Name,
			Version: c.Version,
		}, nil),
		search:  svc,
		config:  c,
		metrics: NewMetrics(c.Logger),
		logger:  c.Logger,
	}
	s.registerTools()
	return s, nil
}

// Run serves MCP on the stdio transport until ctx is done or the client
// disconnects.
func (s *Server) Run(ctx context.Context) error {
	s.logger.Info("starting MCP server on stdio transport",
		zap.String("default_collection", s.config.DefaultCollection))
	if err := s.mcp.Run(ctx, &mcp.StdioTransport{}); err != nil {
		return fmt.Errorf("server run failed: %w", err)
	}
	return nil
}

// Connect serves one session over an arbitrary transport.
func (s *Server) Connect(ctx context.Context, t mcp.Transport) (*mcp.ServerSession, error) {
	return s.mcp.Connect(ctx, t, nil)
}
