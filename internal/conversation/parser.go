package conversation

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/tidwall/gjson"
)

var (
	// ErrParse is the root of every export parsing failure.
	ErrParse = errors.New("parse error")

	// ErrMalformedExport indicates the export is not valid JSON.
	ErrMalformedExport = fmt.Errorf("%w: malformed export", ErrParse)

	// ErrUnrecognizedShape indicates valid JSON that matches no known export shape.
	ErrUnrecognizedShape = fmt.Errorf("%w: unrecognized export shape", ErrParse)
)

// maxEpochSecond bounds accepted create_time values. Anything at or above it
// is treated as corrupt or millisecond-scale.
const maxEpochSecond = math.MaxInt32

// ConversationParser converts a platform-specific export into conversations.
type ConversationParser interface {
	// Parse decodes a raw export. Conversations that fail to decode are
	// skipped and reported in the result rather than failing the whole export.
	Parse(data []byte) (*ParseResult, error)
}

// ParseResult contains the parsed conversations and per-conversation failures.
type ParseResult struct {
	Source        Source
	Conversations []Conversation

	// Skipped holds conversations that could not be decoded.
	Skipped []ConversationError

	// Dropped counts conversations with no message left after filtering.
	Dropped int
}

// Messages flattens all conversations into a single ordered message sequence.
func (r *ParseResult) Messages() []Message {
	var out []Message
	for _, c := range r.Conversations {
		out = append(out, c.Messages...)
	}
	return out
}

// MessageCount returns the number of messages across all conversations.
func (r *ParseResult) MessageCount() int {
	n := 0
	for _, c := range r.Conversations {
		n += len(c.Messages)
	}
	return n
}

// ConversationError records a conversation that was skipped during parsing.
type ConversationError struct {
	Index int
	ID    string
	Err   error
}

func (e *ConversationError) Error() string {
	if e.ID != "" {
		return fmt.Sprintf("conversation %d (%s): %v", e.Index, e.ID, e.Err)
	}
	return fmt.Sprintf("conversation %d: %v", e.Index, e.Err)
}

func (e *ConversationError) Unwrap() error {
	return e.Err
}

// Parser implements ConversationParser for ChatGPT and Claude exports.
type Parser struct {
	source Source
}

// NewParser creates a parser that detects the export shape.
func NewParser() *Parser {
	return &Parser{source: SourceUnknown}
}

// NewParserFor creates a parser that decodes every conversation as the given
// source. Parse still checks the export's shape and rejects an export that
// is recognizably the other source.
func NewParserFor(source Source) *Parser {
	return &Parser{source: source}
}

// Parse decodes a raw export.
//
// The top level may be an array of conversations, an object holding a
// "conversations" array, or a single conversation object.
func (p *Parser) Parse(data []byte) (*ParseResult, error) {
	items, err := splitConversations(data)
	if err != nil {
		return nil, err
	}

	detected, err := detectSource(items)
	if err != nil {
		return nil, err
	}
	source := p.source
	switch {
	case source == SourceUnknown:
		source = detected
	case detected != SourceUnknown && detected != source:
		return nil, fmt.Errorf("%w: export has the %s shape, not %s", ErrUnrecognizedShape, detected, source)
	}

	result := &ParseResult{
		Source:        source,
		Conversations: make([]Conversation, 0, len(items)),
	}

	for i, raw := range items {
		var (
			conv Conversation
			err  error
		)
		switch source {
		case SourceChatGPT:
			conv, err = decodeChatGPT(raw, i)
		case SourceClaude:
			conv, err = decodeClaude(raw, i)
		default:
			err = fmt.Errorf("%w: no decoder for source %q", ErrUnrecognizedShape, source)
		}
		if err != nil {
			result.Skipped = append(result.Skipped, ConversationError{
				Index: i,
				ID:    conversationIDHint(raw),
				Err:   err,
			})
			continue
		}
		if len(conv.Messages) == 0 {
			result.Dropped++
			continue
		}
		result.Conversations = append(result.Conversations, conv)
	}

	return result, nil
}

// DetectSource reports which export format data holds without decoding
// its conversations.
func DetectSource(data []byte) (Source, error) {
	items, err := splitConversations(data)
	if err != nil {
		return SourceUnknown, err
	}
	return detectSource(items)
}

// splitConversations returns the raw conversation objects of an export.
func splitConversations(data []byte) ([]json.RawMessage, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("%w: empty input", ErrMalformedExport)
	}
	if !gjson.ValidBytes(trimmed) {
		return nil, fmt.Errorf("%w: invalid JSON", ErrMalformedExport)
	}

	root := gjson.ParseBytes(trimmed)
	var items []json.RawMessage
	switch {
	case root.IsArray():
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedExport, err)
		}
	case root.IsObject():
		if convs := root.Get("conversations"); convs.IsArray() {
			if err := json.Unmarshal([]byte(convs.Raw), &items); err != nil {
				return nil, fmt.Errorf("%w: %v", ErrMalformedExport, err)
			}
			break
		}
		if root.Get("mapping").Exists() || root.Get("chat_messages").Exists() {
			items = []json.RawMessage{json.RawMessage(trimmed)}
			break
		}
		return nil, fmt.Errorf("%w: top-level object has no conversations array (keys: %s)",
			ErrUnrecognizedShape, strings.Join(objectKeys(root), ", "))
	default:
		return nil, fmt.Errorf("%w: top-level JSON %s is neither an array nor an object",
			ErrUnrecognizedShape, root.Type)
	}
	return items, nil
}

// detectSource classifies an export by checking its conversations for the
// keys that distinguish the known shapes. An empty export has no shape and
// is reported as SourceUnknown without error.
func detectSource(items []json.RawMessage) (Source, error) {
	if len(items) == 0 {
		return SourceUnknown, nil
	}
	for _, raw := range items {
		obj := gjson.ParseBytes(raw)
		if !obj.IsObject() {
			continue
		}
		switch {
		case obj.Get("mapping").Exists():
			return SourceChatGPT, nil
		case obj.Get("chat_messages").Exists():
			return SourceClaude, nil
		}
	}

	first := gjson.ParseBytes(items[0])
	return SourceUnknown, fmt.Errorf("%w: conversations carry neither %q nor %q (first conversation keys: %s)",
		ErrUnrecognizedShape, "mapping", "chat_messages", strings.Join(objectKeys(first), ", "))
}

func objectKeys(obj gjson.Result) []string {
	if !obj.IsObject() {
		return []string{obj.Type.String()}
	}
	var keys []string
	obj.ForEach(func(key, _ gjson.Result) bool {
		keys = append(keys, key.String())
		return true
	})
	sort.Strings(keys)
	return keys
}

// conversationIDHint extracts an identifier from a conversation that could
// not be decoded, for error reporting only.
func conversationIDHint(raw json.RawMessage) string {
	obj := gjson.ParseBytes(raw)
	for _, key := range []string{"id", "conversation_id", "uuid"} {
		if v := obj.Get(key); v.Type == gjson.String && v.Str != "" {
			return v.Str
		}
	}
	return ""
}

// epochTimestamp converts an epoch-seconds value into a timestamp only when
// it lies strictly between 0 and 2^31-1.
func epochTimestamp(v *float64) *time.Time {
	if v == nil {
		return nil
	}
	t := *v
	if !(t > 0 && t < maxEpochSecond) {
		return nil
	}
	sec, frac := math.Modf(t)
	ts := time.Unix(int64(sec), int64(frac*float64(time.Second))).UTC()
	return &ts
}

// isoTimestamp parses an RFC 3339 timestamp with the same validity range as
// epochTimestamp.
func isoTimestamp(s string) *time.Time {
	if s == "" {
		return nil
	}
	ts, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return nil
	}
	if unix := ts.Unix(); unix <= 0 || unix >= maxEpochSecond {
		return nil
	}
	ts = ts.UTC()
	return &ts
}

func titleOrDefault(title *string) string {
	if title == nil || strings.TrimSpace(*title) == "" {
		return DefaultTitle
	}
	return *title
}

// Ensure Parser implements ConversationParser.
var _ ConversationParser = (*Parser)(nil)
