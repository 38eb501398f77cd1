package tyrell

import (
	"encoding/json"
	"fmt"
	"maps"
	"slices"

	"github.com/tidwall/sjson"
)

// Request is a validated Messages API request. It is immutable: obtain one
// from RequestBuilder.Build and derive variants through Request.Builder.
//
// Optional fields that were never set are absent from the wire encoding.
type Request struct {
	model     Model
	messages  []Message
	maxTokens int

	metadata      map[string]string
	stopSequences []string
	stream        *bool
	system        *string
	temperature   *float64
	topK          *int
	topP          *float64
	tools         []Tool
	toolChoice    *ToolChoice
}

// Model returns the target model.
func (r *Request) Model() Model { return r.model }

// Messages returns a deep copy of the conversation, in order.
func (r *Request) Messages() []Message { return cloneMessages(r.messages) }

// MaxTokens returns the generation cap.
func (r *Request) MaxTokens() int { return r.maxTokens }

// Metadata returns a copy of the request metadata, or nil if unset.
func (r *Request) Metadata() map[string]string { return maps.Clone(r.metadata) }

// StopSequences returns a copy of the stop sequences, or nil if unset.
func (r *Request) StopSequences() []string { return slices.Clone(r.stopSequences) }

// Tools returns a deep copy of the declared tools, or nil if unset.
func (r *Request) Tools() []Tool { return cloneTools(r.tools) }

// Stream returns the stream flag and whether it was set.
func (r *Request) Stream() (bool, bool) { return deref(r.stream) }

// System returns the system prompt and whether it was set.
func (r *Request) System() (string, bool) { return deref(r.system) }

// Temperature returns the sampling temperature and whether it was set.
func (r *Request) Temperature() (float64, bool) { return deref(r.temperature) }

// TopK returns top_k and whether it was set.
func (r *Request) TopK() (int, bool) { return deref(r.topK) }

// TopP returns top_p and whether it was set.
func (r *Request) TopP() (float64, bool) { return deref(r.topP) }

// ToolChoice returns the tool choice policy and whether it was set.
func (r *Request) ToolChoice() (ToolChoice, bool) { return deref(r.toolChoice) }

// Builder returns a builder holding every field of r, for deriving a corrected request.
func (r *Request) Builder() RequestBuilder {
	model, maxTokens := r.model, r.maxTokens
	return RequestBuilder{
		model:         &model,
		messages:      slices.Clip(r.messages),
		maxTokens:     &maxTokens,
		metadata:      r.metadata,
		stopSequences: slices.Clip(r.stopSequences),
		stream:        r.stream,
		system:        r.system,
		temperature:   r.temperature,
		topK:          r.topK,
		topP:          r.topP,
		tools:         slices.Clip(r.tools),
		toolChoice:    r.toolChoice,
	}
}

// HasTool returns true if a tool with the given name is declared.
func (r *Request) HasTool(name string) bool {
	return slices.ContainsFunc(r.tools, func(t Tool) bool { return t.Name == name })
}

// MarshalJSON writes the wire request with fields in API order, skipping unset optionals.
func (r Request) MarshalJSON() ([]byte, error) {
	out := []byte("{}")
	set := func(key string, value any) error {
		raw, err := json.Marshal(value)
		if err != nil {
			return fmt.Errorf("encode %s: %w", key, err)
		}
		out, err = sjson.SetRawBytes(out, key, raw)
		if err != nil {
			return fmt.Errorf("encode %s: %w", key, err)
		}
		return nil
	}

	if err := set("model", r.model); err != nil {
		return nil, err
	}
	if err := set("messages", r.messages); err != nil {
		return nil, err
	}
	if err := set("max_tokens", r.maxTokens); err != nil {
		return nil, err
	}

	optional := []struct {
		key     string
		present bool
		value   any
	}{
		{"metadata", r.metadata != nil, r.metadata},
		{"stop_sequences", r.stopSequences != nil, r.stopSequences},
		{"stream", r.stream != nil, r.stream},
		{"system", r.system != nil, r.system},
		{"temperature", r.temperature != nil, r.temperature},
		{"top_k", r.topK != nil, r.topK},
		{"top_p", r.topP != nil, r.topP},
		{"tools", r.tools != nil, r.tools},
		{"tool_choice", r.toolChoice != nil, r.toolChoice},
	}
	for _, f := range optional {
		if !f.present {
			continue
		}
		if err := set(f.key, f.value); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// UnmarshalJSON decodes a wire request through the builder, so a decoded
// request satisfies the same invariants as a built one.
func (r *Request) UnmarshalJSON(data []byte) error {
	var wire struct {
		Model         *Model            `json:"model"`
		Messages      []Message         `json:"messages"`
		MaxTokens     *int              `json:"max_tokens"`
		Metadata      map[string]string `json:"metadata"`
		StopSequences []string          `json:"stop_sequences"`
		Stream        *bool             `json:"stream"`
		System        *string           `json:"system"`
		Temperature   *float64          `json:"temperature"`
		TopK          *int              `json:"top_k"`
		TopP          *float64          `json:"top_p"`
		Tools         []Tool            `json:"tools"`
		ToolChoice    *ToolChoice       `json:"tool_choice"`
	}
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}

	b := RequestBuilder{
		model:         wire.Model,
		messages:      wire.Messages,
		maxTokens:     wire.MaxTokens,
		metadata:      wire.Metadata,
		stopSequences: wire.StopSequences,
		stream:        wire.Stream,
		system:        wire.System,
		temperature:   wire.Temperature,
		topK:          wire.TopK,
		topP:          wire.TopP,
		tools:         wire.Tools,
		toolChoice:    wire.ToolChoice,
	}
	built, err := b.Build()
	if err != nil {
		return err
	}
	*r = *built
	return nil
}

// ParseRequest decodes a wire request.
func ParseRequest(data []byte) (*Request, error) {
	var req Request
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, err
	}
	return &req, nil
}

func deref[T any](p *T) (T, bool) {
	if p == nil {
		var zero T
		return zero, false
	}
	return *p, true
}
