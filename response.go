package tyrell

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/tidwall/gjson"
)

// StopReason indicates why generation stopped.
type StopReason string

const (
	StopReasonEndTurn      StopReason = "end_turn"
	StopReasonMaxTokens    StopReason = "max_tokens"
	StopReasonStopSequence StopReason = "stop_sequence"
	StopReasonToolUse      StopReason = "tool_use"
)

// IsValid returns true if r is a known stop reason.
func (r StopReason) IsValid() bool {
	switch r {
	case StopReasonEndTurn, StopReasonMaxTokens, StopReasonStopSequence, StopReasonToolUse:
		return true
	default:
		return false
	}
}

func (r *StopReason) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("stop_reason must be a string: %w", err)
	}
	reason := StopReason(s)
	if !reason.IsValid() {
		return &DecodeError{
			Path:   "stop_reason",
			Reason: fmt.Sprintf("unrecognized stop reason %q", s),
			Err:    ErrUnknownStopReason,
		}
	}
	*r = reason
	return nil
}

// Usage reports token consumption for one call.
type Usage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

func (u Usage) validate() error {
	for _, c := range []struct {
		path  string
		count int
	}{
		{"usage.input_tokens", u.InputTokens},
		{"usage.output_tokens", u.OutputTokens},
	} {
		if c.count < 0 {
			return &DecodeError{
				Path:   c.path,
				Reason: fmt.Sprintf("token count must not be negative, got %d", c.count),
				Err:    ErrInvalidUsage,
			}
		}
	}
	return nil
}

// Response is a decoded Messages API response.
type Response struct {
	ID           string         `json:"id"`
	Type         string         `json:"type"`
	Role         Role           `json:"role"`
	Content      []ContentBlock `json:"content"`
	Model        Model          `json:"model"`
	StopReason   *StopReason    `json:"stop_reason,omitempty"`
	StopSequence *string        `json:"stop_sequence,omitempty"`
	Usage        Usage          `json:"usage"`
}

func (r *Response) UnmarshalJSON(data []byte) error {
	var wire struct {
		ID           string            `json:"id"`
		Type         string            `json:"type"`
		Role         Role              `json:"role"`
		Content      []json.RawMessage `json:"content"`
		Model        Model             `json:"model"`
		StopReason   *StopReason       `json:"stop_reason"`
		StopSequence *string           `json:"stop_sequence"`
		Usage        Usage             `json:"usage"`
	}
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	content, err := decodeContentBlocks(wire.Content, "content")
	if err != nil {
		return err
	}
	if err := wire.Usage.validate(); err != nil {
		return err
	}
	*r = Response{
		ID:           wire.ID,
		Type:         wire.Type,
		Role:         wire.Role,
		Content:      content,
		Model:        wire.Model,
		StopReason:   wire.StopReason,
		StopSequence: wire.StopSequence,
		Usage:        wire.Usage,
	}
	return nil
}

// ParseResponse decodes a wire response body.
func ParseResponse(data []byte) (*Response, error) {
	var resp Response
	if err := json.Unmarshal(data, &resp); err != nil {
		var decodeErr *DecodeError
		var modelErr *ModelError
		if errors.As(err, &decodeErr) || errors.As(err, &modelErr) {
			return nil, err
		}
		return nil, &DecodeError{Reason: err.Error(), Err: err}
	}
	return &resp, nil
}

// Text concatenates every text block in order.
func (r *Response) Text() string {
	var sb strings.Builder
	for _, block := range r.Content {
		if text, ok := block.(TextBlock); ok {
			sb.WriteString(text.Text)
		}
	}
	return sb.String()
}

// ToolUses returns every tool_use block in order.
func (r *Response) ToolUses() []ToolUseBlock {
	var uses []ToolUseBlock
	for _, block := range r.Content {
		if use, ok := block.(ToolUseBlock); ok {
			uses = append(uses, use)
		}
	}
	return uses
}

// FindToolUse returns the first tool_use block calling the named tool.
func (r *Response) FindToolUse(name string) (ToolUseBlock, bool) {
	for _, use := range r.ToolUses() {
		if use.Name == name {
			return use, true
		}
	}
	return ToolUseBlock{}, false
}

// Message returns the response as an assistant turn, for continuing the conversation.
func (r *Response) Message() Message {
	role := r.Role
	if role == "" {
		role = RoleAssistant
	}
	return Message{Role: role, Content: cloneBlocks(r.Content)}
}

// EstimatedCost prices the call's usage with the model catalog.
// Returns false when the model has no pricing entry.
func (r *Response) EstimatedCost() (float64, bool) {
	caps, err := GetModelCapabilities(r.Model)
	if err != nil || caps.Pricing == nil {
		return 0, false
	}
	return caps.Pricing.Cost(r.Usage), true
}

// ExtractToolInput decodes the input of the first tool_use block named toolName into T.
//
// A missing or null required field (per T's derived schema, checked at every
// nesting level) is a *DecodeError wrapping ErrSchemaMismatch, as is any
// input that does not unmarshal into T.
func ExtractToolInput[T any](resp *Response, toolName string) (T, error) {
	var out T
	use, ok := resp.FindToolUse(toolName)
	if !ok {
		return out, fmt.Errorf("tool %q: %w", toolName, ErrToolUseNotFound)
	}

	schema, err := sharedSchema(reflect.TypeFor[T]())
	if err != nil {
		return out, err
	}
	if err := checkInput(use.Input, schema); err != nil {
		return out, err
	}

	if err := json.Unmarshal(use.Input, &out); err != nil {
		return out, &DecodeError{
			Path:   "input",
			Reason: fmt.Sprintf("tool %q input does not fit %T: %v", toolName, out, err),
			Err:    ErrSchemaMismatch,
		}
	}
	return out, nil
}

// ExtractTool is ExtractToolInput keyed by T's own tool name.
func ExtractTool[T ToolSpec](resp *Response) (T, error) {
	var zero T
	return ExtractToolInput[T](resp, zero.ToolName())
}

// checkInput verifies that the raw input is an object carrying every required property.
func checkInput(raw json.RawMessage, schema *InputSchema) error {
	if len(raw) == 0 || !gjson.ValidBytes(raw) {
		return &DecodeError{Path: "input", Reason: "tool input is not valid JSON", Err: ErrSchemaMismatch}
	}
	input := gjson.ParseBytes(raw)
	if !input.IsObject() {
		return &DecodeError{Path: "input", Reason: "tool input must be an object", Err: ErrSchemaMismatch}
	}
	return checkObject(input, schema.Properties, schema.Required, "input")
}

func checkObject(obj gjson.Result, properties map[string]*Schema, required []string, path string) error {
	values := obj.Map()
	for _, name := range required {
		value, ok := values[name]
		if !ok || value.Type == gjson.Null {
			return &DecodeError{
				Path:   joinPath(path, name),
				Reason: "required field is missing",
				Err:    ErrSchemaMismatch,
			}
		}
	}
	for name, value := range values {
		prop, ok := properties[name]
		if !ok || value.Type == gjson.Null {
			continue
		}
		if err := checkValue(value, prop, joinPath(path, name)); err != nil {
			return err
		}
	}
	return nil
}

func checkValue(value gjson.Result, schema *Schema, path string) error {
	switch schema.Primary() {
	case SchemaTypeObject:
		if !value.IsObject() {
			return nil
		}
		if schema.Properties != nil {
			return checkObject(value, schema.Properties, schema.Required, path)
		}
		if schema.AdditionalProperties != nil {
			for key, item := range value.Map() {
				if item.Type == gjson.Null {
					continue
				}
				if err := checkValue(item, schema.AdditionalProperties, joinPath(path, key)); err != nil {
					return err
				}
			}
		}
	case SchemaTypeArray:
		if !value.IsArray() || schema.Items == nil {
			return nil
		}
		for i, item := range value.Array() {
			if item.Type == gjson.Null {
				continue
			}
			if err := checkValue(item, schema.Items, fmt.Sprintf("%s[%d]", path, i)); err != nil {
				return err
			}
		}
	}
	return nil
}
