package embeddings

import "go.uber.org/zap"

// FastEmbedConfig holds configuration for the FastEmbed provider.
type FastEmbedConfig struct {
	// Model is the embedding model to use.
	// Supported: sentence-transformers/all-MiniLM-L6-v2 (default),
	// BAAI/bge-small-en-v1.5, BAAI/bge-base-en-v1.5, etc.
	Model string

	// CacheDir is the directory to cache model files.
	// Defaults to ~/.cache/ragmemory/models
	CacheDir string

	// MaxLength is the maximum input sequence length.
	// Defaults to 512.
	MaxLength int

	// BatchSize is the number of texts fed to the ONNX session at once.
	// Defaults to 256.
	BatchSize int

	Logger *zap.Logger
}

// localModelDimensions lists the models FastEmbed can run, by the names
// accepted in embeddings.model. Builds without cgo still need it to size
// collections for a TEI server hosting the same model.
var localModelDimensions = map[string]int{
	"sentence-transformers/all-MiniLM-L6-v2": 384,
	"all-MiniLM-L6-v2":                       384,
	"BAAI/bge-small-en-v1.5":                 384,
	"BAAI/bge-small-en":                      384,
	"BAAI/bge-base-en-v1.5":                  768,
	"BAAI/bge-base-en":                       768,
	"BAAI/bge-small-zh-v1.5":                 512,
}

func fastEmbedModelDimension(name string) (int, bool) {
	dim, ok := localModelDimensions[name]
	return dim, ok
}
