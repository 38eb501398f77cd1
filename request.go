package tyrell

import (
	"encoding/json"
	"fmt"

	"github.com/tidwall/gjson"
)

// Role is the author of a message: "user" or "assistant".
// The system prompt is not a role; set it with RequestBuilder.System.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// IsValid returns true if r is one of the two conversational roles.
func (r Role) IsValid() bool {
	return r == RoleUser || r == RoleAssistant
}

func (r *Role) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("role must be a string: %w", err)
	}
	role := Role(s)
	if !role.IsValid() {
		return &DecodeError{
			Path:   "role",
			Reason: fmt.Sprintf("unsupported role %q", s),
			Err:    ErrInvalidRole,
		}
	}
	*r = role
	return nil
}

// Message is one conversational turn.
type Message struct {
	// Role is either RoleUser or RoleAssistant
	Role Role

	// Content is the ordered list of blocks for this turn
	Content []ContentBlock
}

// Clone returns a copy of m that shares no content with it.
func (m Message) Clone() Message {
	return Message{Role: m.Role, Content: cloneBlocks(m.Content)}
}

func cloneMessages(messages []Message) []Message {
	if messages == nil {
		return nil
	}
	out := make([]Message, len(messages))
	for i, msg := range messages {
		out[i] = msg.Clone()
	}
	return out
}

// MarshalJSON always emits the structured content array, never the string shorthand.
func (m Message) MarshalJSON() ([]byte, error) {
	content := m.Content
	if content == nil {
		content = []ContentBlock{}
	}
	return json.Marshal(struct {
		Role    Role           `json:"role"`
		Content []ContentBlock `json:"content"`
	}{m.Role, content})
}

// UnmarshalJSON accepts both the content array and the plain-string shorthand
// ("content": "hi" decodes to a single TextBlock).
func (m *Message) UnmarshalJSON(data []byte) error {
	var wire struct {
		Role    Role            `json:"role"`
		Content json.RawMessage `json:"content"`
	}
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	if wire.Role == "" {
		return &DecodeError{Path: "role", Reason: "message has no role", Err: ErrInvalidRole}
	}

	content := gjson.ParseBytes(wire.Content)
	switch {
	case content.Type == gjson.String:
		m.Content = []ContentBlock{TextBlock{Text: content.String()}}
	case content.IsArray():
		var items []json.RawMessage
		if err := json.Unmarshal(wire.Content, &items); err != nil {
			return fmt.Errorf("decode message content: %w", err)
		}
		blocks, err := decodeContentBlocks(items, "content")
		if err != nil {
			return err
		}
		m.Content = blocks
	default:
		return &DecodeError{
			Path:   "content",
			Reason: "message content must be a string or an array of blocks",
			Err:    ErrUnknownContentType,
		}
	}
	m.Role = wire.Role
	return nil
}
