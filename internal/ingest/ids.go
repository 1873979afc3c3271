package ingest

import (
	"fmt"
	"strconv"

	"github.com/fyrsmithlabs/ragmemory/internal/conversation"
	"github.com/fyrsmithlabs/ragmemory/internal/vectorstore"
	"github.com/google/uuid"
)

// IDStrategy assigns the point id of a chunk. seq is the chunk's position in
// the flattened chunk sequence of the run.
type IDStrategy func(chunk conversation.Chunk, seq int) vectorstore.PointID

// pointNamespace scopes content-derived point ids.
var pointNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://github.com/fyrsmithlabs/ragmemory/points"))

// SequentialIDs numbers points 0..n-1 in chunk order.
func SequentialIDs(_ conversation.Chunk, seq int) vectorstore.PointID {
	return vectorstore.NumID(uint64(seq))
}

// ContentIDs derives a UUIDv5 from source, conversation id and chunk index,
// so re-ingesting the same export overwrites the same points.
func ContentIDs(chunk conversation.Chunk, _ int) vectorstore.PointID {
	name := string(chunk.Source) + "\x00" + chunk.ConversationID + "\x00" + strconv.Itoa(chunk.Index)
	return vectorstore.UUIDID(uuid.NewSHA1(pointNamespace, []byte(name)).String())
}

// IDStrategyFor resolves a configured strategy name.
func IDStrategyFor(name string) (IDStrategy, error) {
	switch name {
	case "", "sequential":
		return SequentialIDs, nil
	case "content":
		return ContentIDs, nil
	default:
		return nil, fmt.Errorf("%w: unknown point id strategy %q", ErrInvalidConfig, name)
	}
}
