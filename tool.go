package tyrell

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"sync"
)

// ToolSpec is implemented by a struct type that describes a tool's input.
// ToolName and ToolDescription must be callable on the zero value.
//
//	type SuperBowl struct {
//	    Year   uint16 `json:"year" description:"The year the game was played"`
//	    Winner string `json:"winner"`
//	}
//
//	func (SuperBowl) ToolName() string        { return "extract_super_bowl_info" }
//	func (SuperBowl) ToolDescription() string { return "Extract facts about a Super Bowl" }
type ToolSpec interface {
	ToolName() string
	ToolDescription() string
}

// Tool is a schema-described function the model may invoke.
type Tool struct {
	Name        string
	Description *string
	InputSchema *InputSchema
}

var toolCache sync.Map // reflect.Type -> Tool

// NewTool derives the tool definition for T. Derivation is cached per type;
// the returned tool owns its InputSchema.
func NewTool[T ToolSpec]() (Tool, error) {
	t := reflect.TypeFor[T]()
	if cached, ok := toolCache.Load(t); ok {
		return cached.(Tool).clone(), nil
	}

	var zero T
	schema, err := sharedSchema(t)
	if err != nil {
		return Tool{}, err
	}

	var description *string
	if desc := zero.ToolDescription(); desc != "" {
		description = &desc
	}
	tool, err := NewCustomTool(zero.ToolName(), description, schema)
	if err != nil {
		return Tool{}, err
	}

	actual, _ := toolCache.LoadOrStore(t, tool)
	return actual.(Tool).clone(), nil
}

func (t Tool) clone() Tool {
	t.Description = clonePtr(t.Description)
	t.InputSchema = t.InputSchema.Clone()
	return t
}

func cloneTools(tools []Tool) []Tool {
	if tools == nil {
		return nil
	}
	out := make([]Tool, len(tools))
	for i, tool := range tools {
		out[i] = tool.clone()
	}
	return out
}

// MustNewTool is like NewTool but panics on error.
// Intended for package-level tool declarations.
func MustNewTool[T ToolSpec]() Tool {
	tool, err := NewTool[T]()
	if err != nil {
		panic(fmt.Sprintf("tyrell: tool for %s: %v", reflect.TypeFor[T](), err))
	}
	return tool
}

// NewCustomTool creates a tool from an explicit schema, for inputs that have no Go type.
func NewCustomTool(name string, description *string, schema *InputSchema) (Tool, error) {
	tool := Tool{Name: name, Description: description, InputSchema: schema}
	if err := tool.Validate(); err != nil {
		return Tool{}, fmt.Errorf("failed to create tool: %w", err)
	}
	return tool, nil
}

// Validate checks if the Tool is properly configured
func (t Tool) Validate() error {
	if t.Name == "" {
		return &ValidationError{Field: "tools.name", Reason: "tool name is required", Err: ErrInvalidRequest}
	}
	if t.InputSchema == nil {
		return &ValidationError{Field: "tools.input_schema", Value: t.Name, Reason: "input schema is required", Err: ErrInvalidRequest}
	}
	return nil
}

func (t Tool) MarshalJSON() ([]byte, error) {
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return json.Marshal(struct {
		Name        string       `json:"name"`
		Description *string      `json:"description,omitempty"`
		InputSchema *InputSchema `json:"input_schema"`
	}{t.Name, t.Description, t.InputSchema})
}

func (t *Tool) UnmarshalJSON(data []byte) error {
	var wire struct {
		Name        string       `json:"name"`
		Description *string      `json:"description"`
		InputSchema *InputSchema `json:"input_schema"`
	}
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	tool := Tool{Name: wire.Name, Description: wire.Description, InputSchema: wire.InputSchema}
	if err := tool.Validate(); err != nil {
		var validationErr *ValidationError
		if errors.As(err, &validationErr) {
			return &DecodeError{Path: validationErr.Field, Reason: validationErr.Reason, Err: ErrSchemaMismatch}
		}
		return err
	}
	*t = tool
	return nil
}
