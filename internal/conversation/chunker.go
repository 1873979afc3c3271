package conversation

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrInvalidChunkSize is returned when the chunk size is below 1.
var ErrInvalidChunkSize = errors.New("chunk size must be at least 1")

// Default chunk sizes per export source.
const (
	DefaultChatGPTChunkSize = 2
	DefaultClaudeChunkSize  = 3
)

// DefaultChunkSize returns the number of messages per chunk used for a source
// when none is configured.
func DefaultChunkSize(source Source) int {
	if source == SourceClaude {
		return DefaultClaudeChunkSize
	}
	return DefaultChatGPTChunkSize
}

// ChunkMessages partitions the ordered messages of one conversation into
// consecutive windows of at most size messages. Windows never overlap and
// never span conversations. Each chunk takes its timestamp and title from
// its first message.
func ChunkMessages(conversationID, title string, source Source, messages []Message, size int) ([]Chunk, error) {
	if size < 1 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidChunkSize, size)
	}
	if len(messages) == 0 {
		return nil, nil
	}

	chunks := make([]Chunk, 0, (len(messages)+size-1)/size)
	for start := 0; start < len(messages); start += size {
		end := start + size
		if end > len(messages) {
			end = len(messages)
		}
		window := messages[start:end]

		chunk := Chunk{
			Text:              RenderText(window),
			ConversationID:    conversationID,
			ConversationTitle: title,
			Timestamp:         window[0].Timestamp,
			MessageIDs:        make([]string, 0, len(window)),
			Roles:             make([]Role, 0, len(window)),
			Source:            source,
			Index:             len(chunks),
		}
		if window[0].ConversationTitle != "" {
			chunk.ConversationTitle = window[0].ConversationTitle
		}
		for _, m := range window {
			chunk.MessageIDs = append(chunk.MessageIDs, m.ID)
			chunk.Roles = append(chunk.Roles, m.Role)
		}
		chunks = append(chunks, chunk)
	}
	return chunks, nil
}

// ChunkConversation chunks a single parsed conversation.
func ChunkConversation(conv Conversation, size int) ([]Chunk, error) {
	return ChunkMessages(conv.ID, conv.Title, conv.Source, conv.Messages, size)
}

// ChunkAll chunks every conversation of a parse result in export order.
func ChunkAll(result *ParseResult, size int) ([]Chunk, error) {
	if size < 1 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidChunkSize, size)
	}
	var chunks []Chunk
	for _, conv := range result.Conversations {
		cs, err := ChunkConversation(conv, size)
		if err != nil {
			return nil, err
		}
		chunks = append(chunks, cs...)
	}
	return chunks, nil
}

// RenderText renders messages as "ROLE: text" entries separated by a blank line.
func RenderText(messages []Message) string {
	var b strings.Builder
	for i, m := range messages {
		if i > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(strings.ToUpper(string(m.Role)))
		b.WriteString(": ")
		b.WriteString(m.Text)
	}
	return b.String()
}

// Payload keys stored alongside each vector.
const (
	PayloadText              = "text"
	PayloadConversationID    = "conversation_id"
	PayloadConversationTitle = "conversation_title"
	PayloadTimestamp         = "timestamp"
	PayloadMessageIDs        = "message_ids"
	PayloadRoles             = "roles"
	PayloadSource            = "source"
	PayloadChunkIndex        = "chunk_index"
)

// Payload returns the chunk as a flat map suitable for vector index payloads.
// A missing timestamp is stored as nil.
func (c Chunk) Payload() map[string]any {
	roles := make([]string, len(c.Roles))
	for i, r := range c.Roles {
		roles[i] = string(r)
	}
	ids := make([]string, len(c.MessageIDs))
	copy(ids, c.MessageIDs)

	var ts any
	if c.Timestamp != nil {
		ts = c.Timestamp.UTC().Format(time.RFC3339Nano)
	}

	return map[string]any{
		PayloadText:              c.Text,
		PayloadConversationID:    c.ConversationID,
		PayloadConversationTitle: c.ConversationTitle,
		PayloadTimestamp:         ts,
		PayloadMessageIDs:        ids,
		PayloadRoles:             roles,
		PayloadSource:            string(c.Source),
		PayloadChunkIndex:        int64(c.Index),
	}
}

// ChunkFromPayload rebuilds a chunk from a stored payload. Unknown or
// mistyped fields are left at their zero value.
func ChunkFromPayload(p map[string]any) Chunk {
	c := Chunk{
		Text:              stringField(p, PayloadText),
		ConversationID:    stringField(p, PayloadConversationID),
		ConversationTitle: stringField(p, PayloadConversationTitle),
		Source:            Source(stringField(p, PayloadSource)),
		MessageIDs:        stringSlice(p[PayloadMessageIDs]),
	}
	for _, r := range stringSlice(p[PayloadRoles]) {
		c.Roles = append(c.Roles, Role(r))
	}
	if s := stringField(p, PayloadTimestamp); s != "" {
		if ts, err := time.Parse(time.RFC3339Nano, s); err == nil {
			c.Timestamp = &ts
		}
	}
	switch v := p[PayloadChunkIndex].(type) {
	case int:
		c.Index = v
	case int64:
		c.Index = int(v)
	case float64:
		c.Index = int(v)
	}
	return c
}

func stringField(p map[string]any, key string) string {
	s, _ := p[key].(string)
	return s
}

func stringSlice(v any) []string {
	switch vs := v.(type) {
	case []string:
		out := make([]string, len(vs))
		copy(out, vs)
		return out
	case []any:
		out := make([]string, 0, len(vs))
		for _, item := range vs {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}
