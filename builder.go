package tyrell

import (
	"errors"
	"fmt"
	"maps"
	"slices"
)

// RequestBuilder accumulates request fields. Every setter returns an updated
// copy and leaves the receiver untouched, so a partially configured builder
// can be reused as a template:
//
//	base := tyrell.NewRequestBuilder().Model(tyrell.ModelSonnet35).MaxTokens(1024)
//	req, err := base.AddText(tyrell.RoleUser, "Hello").Build()
//
// Nothing is validated until Build.
type RequestBuilder struct {
	model     *Model
	messages  []Message
	maxTokens *int

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

// NewRequestBuilder returns an empty builder.
func NewRequestBuilder() RequestBuilder {
	return RequestBuilder{}
}

// NewRequest is shorthand for NewRequestBuilder.
func NewRequest() RequestBuilder {
	return NewRequestBuilder()
}

func (b RequestBuilder) Model(model Model) RequestBuilder {
	b.model = &model
	return b
}

// AddMessage appends a message. Order is the conversation order sent to the model.
func (b RequestBuilder) AddMessage(role Role, blocks ...ContentBlock) RequestBuilder {
	b.messages = append(slices.Clip(b.messages), Message{Role: role, Content: cloneBlocks(blocks)})
	return b
}

// AddText appends a message holding a single text block.
func (b RequestBuilder) AddText(role Role, text string) RequestBuilder {
	return b.AddMessage(role, NewTextBlock(text))
}

// Messages replaces the whole conversation.
func (b RequestBuilder) Messages(messages ...Message) RequestBuilder {
	b.messages = cloneMessages(messages)
	return b
}

func (b RequestBuilder) MaxTokens(n int) RequestBuilder {
	b.maxTokens = &n
	return b
}

func (b RequestBuilder) Metadata(metadata map[string]string) RequestBuilder {
	b.metadata = maps.Clone(metadata)
	return b
}

func (b RequestBuilder) StopSequences(sequences ...string) RequestBuilder {
	b.stopSequences = slices.Clone(sequences)
	if b.stopSequences == nil {
		b.stopSequences = []string{}
	}
	return b
}

func (b RequestBuilder) Stream(stream bool) RequestBuilder {
	b.stream = &stream
	return b
}

func (b RequestBuilder) System(prompt string) RequestBuilder {
	b.system = &prompt
	return b
}

func (b RequestBuilder) Temperature(t float64) RequestBuilder {
	b.temperature = &t
	return b
}

func (b RequestBuilder) TopK(k int) RequestBuilder {
	b.topK = &k
	return b
}

func (b RequestBuilder) TopP(p float64) RequestBuilder {
	b.topP = &p
	return b
}

// Tools replaces the declared tools.
func (b RequestBuilder) Tools(tools ...Tool) RequestBuilder {
	b.tools = slices.Clone(tools)
	if b.tools == nil {
		b.tools = []Tool{}
	}
	return b
}

// AddTool appends one tool to the declared tools.
func (b RequestBuilder) AddTool(tool Tool) RequestBuilder {
	b.tools = append(slices.Clip(b.tools), tool)
	return b
}

func (b RequestBuilder) ToolChoice(choice ToolChoice) RequestBuilder {
	b.toolChoice = &choice
	return b
}

// Build validates the accumulated fields and returns an immutable Request.
//
// Required fields are checked in order: model, messages, max_tokens. A missing
// one yields a *ValidationError wrapping ErrMissingField; MissingField(err)
// reports which.
func (b RequestBuilder) Build() (*Request, error) {
	if b.model == nil {
		return nil, missingField("model")
	}
	if len(b.messages) == 0 {
		return nil, missingField("messages")
	}
	if b.maxTokens == nil {
		return nil, missingField("max_tokens")
	}

	if !b.model.IsValid() {
		return nil, &ValidationError{
			Field:  "model",
			Value:  int(*b.model),
			Reason: "model is not one of the declared models",
			Err:    errors.Join(ErrInvalidRequest, ErrInvalidModel),
		}
	}
	if *b.maxTokens <= 0 {
		return nil, &ValidationError{
			Field:  "max_tokens",
			Value:  *b.maxTokens,
			Reason: "max_tokens must be positive",
			Err:    ErrInvalidRequest,
		}
	}
	for i, msg := range b.messages {
		if !msg.Role.IsValid() {
			return nil, &ValidationError{
				Field:  fmt.Sprintf("messages[%d].role", i),
				Value:  string(msg.Role),
				Reason: "role must be \"user\" or \"assistant\"",
				Err:    errors.Join(ErrInvalidRequest, ErrInvalidRole),
			}
		}
	}
	for i, tool := range b.tools {
		if err := tool.Validate(); err != nil {
			return nil, fmt.Errorf("tools[%d]: %w", i, err)
		}
	}

	return &Request{
		model:         *b.model,
		messages:      cloneMessages(b.messages),
		maxTokens:     *b.maxTokens,
		metadata:      maps.Clone(b.metadata),
		stopSequences: slices.Clone(b.stopSequences),
		stream:        clonePtr(b.stream),
		system:        clonePtr(b.system),
		temperature:   clonePtr(b.temperature),
		topK:          clonePtr(b.topK),
		topP:          clonePtr(b.topP),
		tools:         cloneTools(b.tools),
		toolChoice:    clonePtr(b.toolChoice),
	}, nil
}

func missingField(field string) error {
	return &ValidationError{
		Field:  field,
		Reason: "required field was not set",
		Err:    ErrMissingField,
	}
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
