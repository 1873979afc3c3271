// Package conversation turns assistant-platform chat exports into a uniform
// message model and groups those messages into retrieval chunks.
package conversation

import (
	"fmt"
	"time"
)

// Role represents the role of a message sender.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
	RoleTool      Role = "tool"
	RoleUnknown   Role = "unknown"
)

// ParseRole maps a platform role string onto a Role.
func ParseRole(s string) Role {
	switch Role(s) {
	case RoleUser, RoleAssistant, RoleSystem, RoleTool:
		return Role(s)
	default:
		return RoleUnknown
	}
}

// Source identifies the platform that produced an export.
type Source string

const (
	SourceChatGPT Source = "chatgpt"
	SourceClaude  Source = "claude"
	SourceUnknown Source = "unknown"
)

// ParseSource maps a user-facing source name onto a Source.
// "auto" and "" map to SourceUnknown, meaning the shape is detected.
func ParseSource(s string) (Source, error) {
	switch s {
	case "chatgpt", "openai":
		return SourceChatGPT, nil
	case "claude", "anthropic":
		return SourceClaude, nil
	case "", "auto":
		return SourceUnknown, nil
	default:
		return SourceUnknown, fmt.Errorf("unknown export source %q (want chatgpt, claude or auto)", s)
	}
}

// DefaultTitle is used when an export carries no conversation title.
const DefaultTitle = "Untitled"

// Message is one utterance inside a conversation.
type Message struct {
	ID                string     `json:"id,omitempty"`
	Role              Role       `json:"role"`
	Text              string     `json:"text"`
	ConversationID    string     `json:"conversation_id"`
	ConversationTitle string     `json:"conversation_title"`
	Timestamp         *time.Time `json:"timestamp,omitempty"`
}

// Conversation is the ordered, filtered message sequence of one exported
// conversation.
type Conversation struct {
	ID        string     `json:"id"`
	Title     string     `json:"title"`
	Source    Source     `json:"source"`
	CreatedAt *time.Time `json:"created_at,omitempty"`
	Messages  []Message  `json:"messages"`
}

// Chunk is the atomic retrieval unit stored in the vector index.
type Chunk struct {
	Text              string     `json:"text"`
	ConversationID    string     `json:"conversation_id"`
	ConversationTitle string     `json:"conversation_title"`
	Timestamp         *time.Time `json:"timestamp,omitempty"`
	MessageIDs        []string   `json:"message_ids"`
	Roles             []Role     `json:"roles"`
	Source            Source     `json:"source"`

	// Index is the position of the chunk within its conversation.
	Index int `json:"chunk_index"`
}
