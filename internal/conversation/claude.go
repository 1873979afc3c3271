package conversation

import (
	"encoding/json"
	"fmt"
	"strings"
)

// claudeConversation is one conversation of a Claude export: a flat,
// already ordered list of chat messages.
type claudeConversation struct {
	UUID         string          `json:"uuid"`
	Name         *string         `json:"name"`
	CreatedAt    string          `json:"created_at"`
	ChatMessages []claudeMessage `json:"chat_messages"`
}

type claudeMessage struct {
	UUID      string `json:"uuid"`
	Sender    string `json:"sender"`
	Text      string `json:"text"`
	CreatedAt string `json:"created_at"`
	Content   []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
}

// decodeClaude decodes one conversation of a Claude linear chat-log export.
// Sender "human" maps to the user role; every other sender is the assistant.
func decodeClaude(raw json.RawMessage, index int) (Conversation, error) {
	var c claudeConversation
	if err := json.Unmarshal(raw, &c); err != nil {
		return Conversation{}, fmt.Errorf("%w: decoding claude conversation: %v", ErrParse, err)
	}

	id := c.UUID
	if id == "" {
		id = fmt.Sprintf("claude-%d", index)
	}

	conv := Conversation{
		ID:        id,
		Title:     titleOrDefault(c.Name),
		Source:    SourceClaude,
		CreatedAt: isoTimestamp(c.CreatedAt),
	}

	for _, m := range c.ChatMessages {
		text := strings.TrimSpace(m.Text)
		if text == "" {
			text = contentText(m)
		}
		if text == "" {
			continue
		}

		role := RoleAssistant
		if m.Sender == "human" {
			role = RoleUser
		}

		ts := isoTimestamp(m.CreatedAt)
		if ts == nil {
			ts = conv.CreatedAt
		}

		conv.Messages = append(conv.Messages, Message{
			ID:                m.UUID,
			Role:              role,
			Text:              text,
			ConversationID:    conv.ID,
			ConversationTitle: conv.Title,
			Timestamp:         ts,
		})
	}

	return conv, nil
}

// contentText joins the text blocks of newer Claude exports, which may leave
// the flat text field empty.
func contentText(m claudeMessage) string {
	var parts []string
	for _, block := range m.Content {
		if block.Type != "" && block.Type != "text" {
			continue
		}
		if t := strings.TrimSpace(block.Text); t != "" {
			parts = append(parts, t)
		}
	}
	return strings.Join(parts, "\n")
}
