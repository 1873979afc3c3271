// Package qdrant connects the vector index to a Qdrant server over gRPC.
package qdrant

import (
	"context"
	"errors"
	"fmt"

	"github.com/qdrant/go-client/qdrant"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"

	"github.com/fyrsmithlabs/ragmemory/internal/logging"
	"github.com/fyrsmithlabs/ragmemory/internal/vectorstore"
)

// GRPCClient implements vectorstore.QdrantClient.
type GRPCClient struct {
	client *qdrant.Client
	config *ClientConfig
	logger *logging.Logger
}

var _ vectorstore.QdrantClient = (*GRPCClient)(nil)

// NewGRPCClient connects to Qdrant and fails unless a health check succeeds
// within DialTimeout.
func NewGRPCClient(ctx context.Context, cfg *ClientConfig, logger *logging.Logger) (*GRPCClient, error) {
	if logger == nil {
		return nil, errors.New("logger is required")
	}
	if cfg == nil {
		cfg = DefaultClientConfig()
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	opts := []grpc.DialOption{
		grpc.WithDefaultCallOptions(
			grpc.MaxCallRecvMsgSize(cfg.MaxMessageSize),
			grpc.MaxCallSendMsgSize(cfg.MaxMessageSize),
		),
	}
	if !cfg.UseTLS {
		opts = append(opts, grpc.WithTransportCredentials(insecure.NewCredentials()))
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host:        cfg.Host,
		Port:        cfg.Port,
		UseTLS:      cfg.UseTLS,
		APIKey:      cfg.APIKey,
		GrpcOptions: opts,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create qdrant client: %w", err)
	}

	c := &GRPCClient{client: client, config: cfg, logger: logger}

	dialCtx, cancel := context.WithTimeout(ctx, cfg.DialTimeout)
	defer cancel()
	if err := c.Health(dialCtx); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("qdrant at %s is not reachable: %w", cfg.address(), err)
	}

	logger.Info(ctx, "connected to qdrant", zap.String("addr", cfg.address()), zap.Bool("tls", cfg.UseTLS))
	return c, nil
}

// Health checks the connection once, without retries.
func (c *GRPCClient) Health(ctx context.Context) error {
	if _, err := c.client.HealthCheck(ctx); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	return nil
}

// CreateCollection creates a dense-vector collection using the configured
// distance.
// CreateCollection makes a single attempt: a retry after a timed-out create
// that reached the server fails with AlreadyExists.
func (c *GRPCClient) CreateCollection(ctx context.Context, name string, vectorSize uint64) error {
	_, err := attemptOnce(ctx, c.config.RequestTimeout, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, c.client.CreateCollection(ctx, &qdrant.CreateCollection{
			CollectionName: name,
			VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
				Size:     vectorSize,
				Distance: c.config.Distance,
			}),
		})
	})
	return err
}

func (c *GRPCClient) DeleteCollection(ctx context.Context, name string) error {
	return exec(ctx, c, "delete_collection", name, func(ctx context.Context) error {
		return c.client.DeleteCollection(ctx, name)
	})
}

func (c *GRPCClient) CollectionExists(ctx context.Context, name string) (bool, error) {
	return call(ctx, c, "collection_exists", name, func(ctx context.Context) (bool, error) {
		return c.client.CollectionExists(ctx, name)
	})
}

func (c *GRPCClient) ListCollections(ctx context.Context) ([]string, error) {
	return call(ctx, c, "list_collections", "", func(ctx context.Context) ([]string, error) {
		return c.client.ListCollections(ctx)
	})
}

// GetCollectionInfo maps NotFound onto vectorstore.ErrCollectionNotFound.
func (c *GRPCClient) GetCollectionInfo(ctx context.Context, name string) (*vectorstore.CollectionInfo, error) {
	info, err := call(ctx, c, "collection_info", name, func(ctx context.Context) (*qdrant.CollectionInfo, error) {
		return c.client.GetCollectionInfo(ctx, name)
	})
	if err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("%w: %s", vectorstore.ErrCollectionNotFound, name)
		}
		return nil, err
	}
	return convertCollectionInfo(name, info), nil
}

// Upsert waits for the write to be applied so an immediate search sees it.
func (c *GRPCClient) Upsert(ctx context.Context, collection string, points []vectorstore.Point) error {
	qp := make([]*qdrant.PointStruct, len(points))
	for i := range points {
		qp[i] = convertToQdrantPoint(&points[i])
	}
	return exec(ctx, c, "upsert", collection, func(ctx context.Context) error {
		_, err := c.client.Upsert(ctx, &qdrant.UpsertPoints{
			CollectionName: collection,
			Wait:           qdrant.PtrOf(true),
			Points:         qp,
		})
		return err
	})
}

// Search returns up to limit nearest points with their payloads, best first.
func (c *GRPCClient) Search(ctx context.Context, collection string, vector []float32, limit uint64) ([]vectorstore.Hit, error) {
	scored, err := call(ctx, c, "query", collection, func(ctx context.Context) ([]*qdrant.ScoredPoint, error) {
		return c.client.Query(ctx, &qdrant.QueryPoints{
			CollectionName: collection,
			Query:          qdrant.NewQuery(vector...),
			Limit:          qdrant.PtrOf(limit),
			WithPayload:    qdrant.NewWithPayload(true),
		})
	})
	if err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("%w: %s", vectorstore.ErrCollectionNotFound, collection)
		}
		return nil, err
	}

	hits := make([]vectorstore.Hit, len(scored))
	for i, p := range scored {
		hits[i] = vectorstore.Hit{
			ID:      extractPointID(p.GetId()),
			Score:   p.GetScore(),
			Payload: extractPayload(p.GetPayload()),
		}
	}
	return hits, nil
}

func (c *GRPCClient) Close() error {
	if c.client == nil {
		return nil
	}
	return c.client.Close()
}

func isNotFound(err error) bool {
	st, ok := status.FromError(err)
	return ok && st.Code() == codes.NotFound
}
