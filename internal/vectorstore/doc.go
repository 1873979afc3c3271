// Package vectorstore stores chunk vectors and answers nearest-neighbour
// queries over them.
//
// Index is the contract the ingestion pipeline and search service use. Two
// implementations exist:
//   - QdrantIndex: an external Qdrant server over gRPC (default)
//   - ChromemIndex: an embedded chromem-go database, in memory or persisted
//     to a directory, for offline use and tests
//
// Collections are created with a fixed dimension and cosine distance.
// CreateCollection is destructive: an existing collection with the same name
// is dropped first, so an ingestion run always starts from an empty
// collection.
//
// Point ids are either unsigned integers or UUIDs (see PointID). Payloads are
// flat maps of strings, numbers, booleans, nulls and string lists.
package vectorstore
