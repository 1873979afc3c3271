package embeddings

import (
	"context"
	"errors"
	"hash/fnv"
	"math"
	"strings"
	"sync"
)

// HashEmbedder is a deterministic in-process Embedder for tests. Each token
// is hashed into one dimension, so identical texts embed identically and
// texts sharing words land close together.
type HashEmbedder struct {
	dim int

	mu      sync.Mutex
	batches []int
	queries int
	// failOn makes the n-th EmbedDocuments call (zero-based) fail.
	failOn map[int]error
}

// NewHashEmbedder creates a test embedder producing vectors of length dim.
func NewHashEmbedder(dim int) *HashEmbedder {
	if dim <= 0 {
		dim = DefaultDimension
	}
	return &HashEmbedder{dim: dim, failOn: map[int]error{}}
}

// FailOn makes the call-th EmbedDocuments call return err.
func (h *HashEmbedder) FailOn(call int, err error) *HashEmbedder {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.failOn[call] = err
	return h
}

// Batches returns the input size of every EmbedDocuments call so far.
func (h *HashEmbedder) Batches() []int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]int(nil), h.batches...)
}

// Queries returns the number of EmbedQuery calls so far.
func (h *HashEmbedder) Queries() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.queries
}

// EmbedDocuments implements Embedder.
func (h *HashEmbedder) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	h.mu.Lock()
	call := len(h.batches)
	h.batches = append(h.batches, len(texts))
	err := h.failOn[call]
	h.mu.Unlock()
	if err != nil {
		return nil, err
	}

	vectors := make([][]float32, len(texts))
	for i, t := range texts {
		vectors[i] = h.vector(t)
	}
	return vectors, nil
}

// EmbedQuery implements Embedder.
func (h *HashEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(text) == "" {
		return nil, errors.New("empty query")
	}
	h.mu.Lock()
	h.queries++
	h.mu.Unlock()
	return h.vector(text), nil
}

// Dimension implements Provider.
func (h *HashEmbedder) Dimension() int { return h.dim }

// Close implements Provider.
func (h *HashEmbedder) Close() error { return nil }

func (h *HashEmbedder) vector(text string) []float32 {
	v := make([]float32, h.dim)
	for _, tok := range strings.Fields(strings.ToLower(text)) {
		f := fnv.New32a()
		_, _ = f.Write([]byte(tok))
		v[f.Sum32()%uint32(h.dim)]++
	}

	var norm float64
	for _, x := range v {
		norm += float64(x) * float64(x)
	}
	if norm == 0 {
		v[0] = 1
		return v
	}
	scale := float32(1 / math.Sqrt(norm))
	for i := range v {
		v[i] *= scale
	}
	return v
}
