package http

import (
	"time"

	"github.com/fyrsmithlabs/ragmemory/internal/updater"
	"github.com/fyrsmithlabs/ragmemory/internal/vectorstore"
)

// HealthResponse is the response body for GET /health.
type HealthResponse struct {
	Status string `json:"status"`
}

// SearchRequest is the request body for POST /api/v1/search.
type SearchRequest struct {
	Query      string `json:"query"`
	Collection string `json:"collection,omitempty"`
	TopK       *int   `json:"top_k,omitempty"`
}

// SearchHit is one ranked chunk.
type SearchHit struct {
	Rank              int        `json:"rank"`
	Score             float32    `json:"score"`
	ID                string     `json:"id"`
	Text              string     `json:"text"`
	ConversationID    string     `json:"conversation_id"`
	ConversationTitle string     `json:"conversation_title"`
	Source            string     `json:"source,omitempty"`
	Timestamp         *time.Time `json:"timestamp,omitempty"`
	ChunkIndex        int        `json:"chunk_index"`
	MessageIDs        []string   `json:"message_ids"`
}

// SearchResponse is the response body for POST /api/v1/search.
type SearchResponse struct {
	Query      string      `json:"query"`
	Collection string      `json:"collection"`
	TopK       int         `json:"top_k"`
	Results    []SearchHit `json:"results"`
}

// CollectionsResponse is the response body for GET /api/v1/collections.
type CollectionsResponse struct {
	Collections []vectorstore.CollectionInfo `json:"collections"`
}

// StatusResponse is the response body for GET /api/v1/status.
type StatusResponse struct {
	Status      string                       `json:"status"`
	Version     string                       `json:"version,omitempty"`
	Collections []vectorstore.CollectionInfo `json:"collections,omitempty"`
	LastUpdate  *updater.Summary             `json:"last_update,omitempty"`
}
