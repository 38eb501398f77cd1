package tyrell

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"

	"github.com/tidwall/gjson"
)

// Block type constants. These are the wire values of the "type" tag.
const (
	BlockTypeText       = "text"
	BlockTypeImage      = "image"
	BlockTypeToolUse    = "tool_use"
	BlockTypeToolResult = "tool_result"
)

// ImageSourceBase64 is the only image source type the Messages API accepts inline.
const ImageSourceBase64 = "base64"

// ContentBlock is one tagged unit of message payload.
//
// The set of variants is closed: TextBlock, ImageBlock, ToolUseBlock and
// ToolResultBlock. The wire tag is always derived from the variant through
// BlockType(), so a block can never carry a tag that disagrees with its payload.
type ContentBlock interface {
	// BlockType returns the wire "type" tag for this variant.
	BlockType() string

	contentBlock()
}

// TextBlock is plain text content.
type TextBlock struct {
	Text string
}

// ImageSource describes inline image data.
type ImageSource struct {
	SourceType string `json:"type"`       // "base64"
	MediaType  string `json:"media_type"` // e.g. "image/png"
	Data       string `json:"data"`       // base64-encoded bytes
}

// ImageBlock is image content.
type ImageBlock struct {
	Source ImageSource
}

// ToolUseBlock is the model's decision to invoke a tool.
// Input holds the raw argument object exactly as received.
type ToolUseBlock struct {
	ID    string
	Name  string
	Input json.RawMessage
}

// ToolResultBlock carries a client-executed tool's output back to the model.
type ToolResultBlock struct {
	ToolUseID string
	Content   string
	IsError   bool
}

func (TextBlock) BlockType() string       { return BlockTypeText }
func (ImageBlock) BlockType() string      { return BlockTypeImage }
func (ToolUseBlock) BlockType() string    { return BlockTypeToolUse }
func (ToolResultBlock) BlockType() string { return BlockTypeToolResult }

func (TextBlock) contentBlock()       {}
func (ImageBlock) contentBlock()      {}
func (ToolUseBlock) contentBlock()    {}
func (ToolResultBlock) contentBlock() {}

// cloneBlocks copies a block list. Block values are copied by assignment;
// tool_use inputs get their own bytes.
func cloneBlocks(blocks []ContentBlock) []ContentBlock {
	if blocks == nil {
		return nil
	}
	out := make([]ContentBlock, len(blocks))
	for i, block := range blocks {
		if use, ok := block.(ToolUseBlock); ok {
			use.Input = bytes.Clone(use.Input)
			block = use
		}
		out[i] = block
	}
	return out
}

// NewTextBlock creates a text block.
func NewTextBlock(text string) TextBlock {
	return TextBlock{Text: text}
}

// NewBase64ImageBlock encodes raw image bytes into an inline image block.
func NewBase64ImageBlock(mediaType string, raw []byte) ImageBlock {
	return ImageBlock{
		Source: ImageSource{
			SourceType: ImageSourceBase64,
			MediaType:  mediaType,
			Data:       base64.StdEncoding.EncodeToString(raw),
		},
	}
}

// NewToolUseBlock creates a tool_use block, marshaling input to JSON.
// Used when replaying an assistant turn that invoked a tool.
func NewToolUseBlock(id, name string, input any) (ToolUseBlock, error) {
	raw, err := json.Marshal(input)
	if err != nil {
		return ToolUseBlock{}, fmt.Errorf("marshal tool input for %s: %w", name, err)
	}
	return ToolUseBlock{ID: id, Name: name, Input: raw}, nil
}

// NewToolResultBlock creates a tool_result block answering the tool_use with the given id.
func NewToolResultBlock(toolUseID, content string, isError bool) ToolResultBlock {
	return ToolResultBlock{ToolUseID: toolUseID, Content: content, IsError: isError}
}

func (b TextBlock) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type string `json:"type"`
		Text string `json:"text"`
	}{b.BlockType(), b.Text})
}

func (b ImageBlock) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type   string      `json:"type"`
		Source ImageSource `json:"source"`
	}{b.BlockType(), b.Source})
}

func (b ToolUseBlock) MarshalJSON() ([]byte, error) {
	input := b.Input
	if len(input) == 0 {
		input = json.RawMessage("{}")
	}
	return json.Marshal(struct {
		Type  string          `json:"type"`
		ID    string          `json:"id"`
		Name  string          `json:"name"`
		Input json.RawMessage `json:"input"`
	}{b.BlockType(), b.ID, b.Name, input})
}

func (b ToolResultBlock) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type      string `json:"type"`
		ToolUseID string `json:"tool_use_id"`
		Content   string `json:"content"`
		IsError   bool   `json:"is_error,omitempty"`
	}{b.BlockType(), b.ToolUseID, b.Content, b.IsError})
}

// DecodeContentBlock decodes a single wire content object, dispatching on its "type" tag.
func DecodeContentBlock(data []byte) (ContentBlock, error) {
	if !gjson.ValidBytes(data) {
		return nil, &DecodeError{Reason: "content block is not valid JSON", Err: ErrUnknownContentType}
	}
	tag := gjson.GetBytes(data, "type")
	if !tag.Exists() || tag.Type != gjson.String {
		return nil, &DecodeError{Reason: "content block has no string \"type\" tag", Err: ErrUnknownContentType}
	}

	switch tag.String() {
	case BlockTypeText:
		var wire struct {
			Text string `json:"text"`
		}
		if err := json.Unmarshal(data, &wire); err != nil {
			return nil, fmt.Errorf("decode text block: %w", err)
		}
		return TextBlock{Text: wire.Text}, nil

	case BlockTypeImage:
		var wire struct {
			Source ImageSource `json:"source"`
		}
		if err := json.Unmarshal(data, &wire); err != nil {
			return nil, fmt.Errorf("decode image block: %w", err)
		}
		return ImageBlock{Source: wire.Source}, nil

	case BlockTypeToolUse:
		var wire struct {
			ID    string          `json:"id"`
			Name  string          `json:"name"`
			Input json.RawMessage `json:"input"`
		}
		if err := json.Unmarshal(data, &wire); err != nil {
			return nil, fmt.Errorf("decode tool_use block: %w", err)
		}
		return ToolUseBlock{ID: wire.ID, Name: wire.Name, Input: wire.Input}, nil

	case BlockTypeToolResult:
		var wire struct {
			ToolUseID string          `json:"tool_use_id"`
			Content   json.RawMessage `json:"content"`
			IsError   bool            `json:"is_error"`
		}
		if err := json.Unmarshal(data, &wire); err != nil {
			return nil, fmt.Errorf("decode tool_result block: %w", err)
		}
		content, err := toolResultText(wire.Content)
		if err != nil {
			return nil, err
		}
		return ToolResultBlock{ToolUseID: wire.ToolUseID, Content: content, IsError: wire.IsError}, nil

	default:
		return nil, &DecodeError{
			Reason: fmt.Sprintf("unrecognized content block type %q", tag.String()),
			Err:    ErrUnknownContentType,
		}
	}
}

// toolResultText accepts the string form of tool_result content and the array-of-text-blocks form.
func toolResultText(raw json.RawMessage) (string, error) {
	result := gjson.ParseBytes(raw)
	switch {
	case len(raw) == 0 || result.Type == gjson.Null:
		return "", nil
	case result.Type == gjson.String:
		return result.String(), nil
	case result.IsArray():
		var text string
		for i, item := range result.Array() {
			block, err := DecodeContentBlock([]byte(item.Raw))
			if err != nil {
				return "", fmt.Errorf("tool_result content[%d]: %w", i, err)
			}
			tb, ok := block.(TextBlock)
			if !ok {
				return "", &DecodeError{
					Path:   fmt.Sprintf("tool_result.content[%d]", i),
					Reason: fmt.Sprintf("only text is supported inside tool_result, got %q", block.BlockType()),
					Err:    ErrUnknownContentType,
				}
			}
			text += tb.Text
		}
		return text, nil
	default:
		return "", &DecodeError{Path: "tool_result.content", Reason: "content must be a string or an array", Err: ErrUnknownContentType}
	}
}

// decodeContentBlocks decodes a content array, reporting the failing index.
func decodeContentBlocks(raw []json.RawMessage, path string) ([]ContentBlock, error) {
	blocks := make([]ContentBlock, 0, len(raw))
	for i, item := range raw {
		block, err := DecodeContentBlock(item)
		if err != nil {
			if decodeErr, ok := err.(*DecodeError); ok && decodeErr.Path == "" {
				decodeErr.Path = fmt.Sprintf("%s[%d]", path, i)
				return nil, decodeErr
			}
			return nil, fmt.Errorf("%s[%d]: %w", path, i, err)
		}
		blocks = append(blocks, block)
	}
	return blocks, nil
}
