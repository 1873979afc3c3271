package conversation

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// chatGPTConversation is one conversation of a ChatGPT export. Messages live
// in a tree keyed by node id.
type chatGPTConversation struct {
	ID             string                 `json:"id"`
	ConversationID string                 `json:"conversation_id"`
	Title          *string                `json:"title"`
	CreateTime     *float64               `json:"create_time"`
	Mapping        map[string]chatGPTNode `json:"mapping"`
}

type chatGPTNode struct {
	ID       string          `json:"id"`
	Message  *chatGPTMessage `json:"message"`
	Parent   *string         `json:"parent"`
	Children []string        `json:"children"`
}

type chatGPTMessage struct {
	ID     string `json:"id"`
	Author struct {
		Role string `json:"role"`
	} `json:"author"`
	CreateTime *float64 `json:"create_time"`
	Content    struct {
		ContentType string            `json:"content_type"`
		Parts       []json.RawMessage `json:"parts"`
	} `json:"content"`
}

// decodeChatGPT decodes one conversation of a ChatGPT tree-mapping export.
func decodeChatGPT(raw json.RawMessage, index int) (Conversation, error) {
	var c chatGPTConversation
	if err := json.Unmarshal(raw, &c); err != nil {
		return Conversation{}, fmt.Errorf("%w: decoding chatgpt conversation: %v", ErrParse, err)
	}

	id := c.ID
	if id == "" {
		id = c.ConversationID
	}
	if id == "" {
		id = fmt.Sprintf("chatgpt-%d", index)
	}

	conv := Conversation{
		ID:        id,
		Title:     titleOrDefault(c.Title),
		Source:    SourceChatGPT,
		CreatedAt: epochTimestamp(c.CreateTime),
	}

	for _, nodeID := range walkMapping(c.Mapping) {
		node := c.Mapping[nodeID]
		if node.Message == nil {
			continue
		}
		msg := node.Message

		role := ParseRole(msg.Author.Role)
		if role == RoleSystem {
			continue
		}

		text := joinParts(msg.Content.Parts)
		if text == "" {
			continue
		}

		msgID := msg.ID
		if msgID == "" {
			msgID = nodeID
		}

		conv.Messages = append(conv.Messages, Message{
			ID:                msgID,
			Role:              role,
			Text:              text,
			ConversationID:    conv.ID,
			ConversationTitle: conv.Title,
			Timestamp:         epochTimestamp(msg.CreateTime),
		})
	}

	return conv, nil
}

// joinParts joins the non-empty text fragments of a message with a single
// space and trims the result. Non-text parts (images, attachments) are
// ignored unless they carry a "text" field.
func joinParts(parts []json.RawMessage) string {
	fragments := make([]string, 0, len(parts))
	for _, raw := range parts {
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			if s != "" {
				fragments = append(fragments, s)
			}
			continue
		}
		var obj struct {
			Text string `json:"text"`
		}
		if err := json.Unmarshal(raw, &obj); err == nil && obj.Text != "" {
			fragments = append(fragments, obj.Text)
		}
	}
	return strings.TrimSpace(strings.Join(fragments, " "))
}

// walkMapping returns node ids in conversation order: depth-first from each
// root through the children lists. Map iteration order is never used; nodes
// unreachable from a root follow in sorted key order.
func walkMapping(mapping map[string]chatGPTNode) []string {
	if len(mapping) == 0 {
		return nil
	}

	keys := make([]string, 0, len(mapping))
	for k := range mapping {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var roots []string
	for _, k := range keys {
		parent := mapping[k].Parent
		if parent == nil || *parent == "" {
			roots = append(roots, k)
			continue
		}
		if _, ok := mapping[*parent]; !ok {
			roots = append(roots, k)
		}
	}

	order := make([]string, 0, len(mapping))
	visited := make(map[string]bool, len(mapping))

	walk := func(start string) {
		stack := []string{start}
		for len(stack) > 0 {
			id := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			if visited[id] {
				continue
			}
			visited[id] = true
			order = append(order, id)

			children := mapping[id].Children
			for i := len(children) - 1; i >= 0; i-- {
				child := children[i]
				if _, ok := mapping[child]; ok && !visited[child] {
					stack = append(stack, child)
				}
			}
		}
	}

	for _, r := range roots {
		walk(r)
	}
	for _, k := range keys {
		if !visited[k] {
			walk(k)
		}
	}
	return order
}
