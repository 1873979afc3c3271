package vectorstore

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
)

// Sentinel errors for vector index operations.
var (
	// ErrCollectionNotFound is returned when a collection does not exist.
	ErrCollectionNotFound = errors.New("collection not found")

	// ErrInvalidConfig indicates invalid configuration.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrInvalidCollectionName indicates collection name validation failure.
	ErrInvalidCollectionName = errors.New("invalid collection name")

	// ErrDimensionMismatch is returned when a vector length differs from the
	// collection dimension.
	ErrDimensionMismatch = errors.New("vector dimension mismatch")

	// ErrEmptyPoints indicates an upsert without points.
	ErrEmptyPoints = errors.New("empty or nil points")

	// ErrInvalidLimit indicates a non-positive result limit.
	ErrInvalidLimit = errors.New("limit must be positive")
)

// collectionNamePattern: lowercase letters, numbers, underscores and
// hyphens, 1-64 characters, starting with a letter or digit.
var collectionNamePattern = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]{0,63}$`)

// ValidateCollectionName rejects names that could escape a storage directory
// or that the index service would refuse.
func ValidateCollectionName(name string) error {
	if name == "" {
		return fmt.Errorf("%w: collection name cannot be empty", ErrInvalidCollectionName)
	}
	if !collectionNamePattern.MatchString(name) {
		return fmt.Errorf("%w: collection name must match pattern %s, got %q", ErrInvalidCollectionName, collectionNamePattern, name)
	}
	return nil
}

// PointID identifies a point within a collection. Exactly one of Num or UUID
// is meaningful: a non-empty UUID wins.
type PointID struct {
	Num  uint64
	UUID string
}

// NumID returns a numeric point id.
func NumID(n uint64) PointID {
	return PointID{Num: n}
}

// UUIDID returns a UUID point id.
func UUIDID(u string) PointID {
	return PointID{UUID: u}
}

// IsUUID reports whether the id is a UUID.
func (p PointID) IsUUID() bool {
	return p.UUID != ""
}

func (p PointID) String() string {
	if p.IsUUID() {
		return p.UUID
	}
	return strconv.FormatUint(p.Num, 10)
}

// ParsePointID is the inverse of PointID.String.
func ParsePointID(s string) PointID {
	if n, err := strconv.ParseUint(s, 10, 64); err == nil {
		return NumID(n)
	}
	return UUIDID(s)
}

// Point is one stored (id, vector, payload) triple.
type Point struct {
	ID      PointID
	Vector  []float32
	Payload map[string]any
}

// Hit is a search result. Hits are returned in descending score order.
type Hit struct {
	ID      PointID
	Score   float32
	Payload map[string]any
}

// CollectionInfo contains metadata about a vector collection.
type CollectionInfo struct {
	// Name is the collection name.
	Name string `json:"name"`

	// PointCount is the number of vectors in the collection.
	PointCount int `json:"point_count"`

	// VectorSize is the dimensionality of vectors in this collection.
	// Zero when the backend does not report it.
	VectorSize int `json:"vector_size,omitempty"`
}

// Index is the vector index used by ingestion and search.
type Index interface {
	// CollectionExists reports whether a collection exists. It returns an
	// error only if the check itself fails.
	CollectionExists(ctx context.Context, name string) (bool, error)

	// DeleteCollection drops a collection and all its points. Deleting a
	// missing collection is not an error.
	DeleteCollection(ctx context.Context, name string) error

	// CreateCollection creates a collection with the given dimension and
	// cosine distance, dropping any existing collection of that name.
	CreateCollection(ctx context.Context, name string, dimension int) error

	// Upsert inserts or overwrites points by id.
	Upsert(ctx context.Context, name string, points []Point) error

	// Search returns up to limit points nearest to vector. An empty
	// collection yields no hits and no error; a missing collection yields
	// ErrCollectionNotFound.
	Search(ctx context.Context, name string, vector []float32, limit int) ([]Hit, error)

	// ListCollections returns every collection with its point count.
	ListCollections(ctx context.Context) ([]CollectionInfo, error)

	// Close releases resources held by the index.
	Close() error
}

func checkDimension(points []Point, dimension int) error {
	if dimension <= 0 {
		return nil
	}
	for _, p := range points {
		if len(p.Vector) != dimension {
			return fmt.Errorf("%w: point %s has %d dimensions, collection expects %d",
				ErrDimensionMismatch, p.ID, len(p.Vector), dimension)
		}
	}
	return nil
}
