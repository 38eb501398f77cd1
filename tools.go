package tyrell

import (
	"encoding/json"
	"fmt"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// ToolChoiceMode controls tool selection behavior
type ToolChoiceMode string

const (
	ToolChoiceModeNone     ToolChoiceMode = "none" // No directive; encodes as {}
	ToolChoiceModeAuto     ToolChoiceMode = "auto" // Model decides whether to use tools
	ToolChoiceModeAny      ToolChoiceMode = "any"  // Model must use some tool
	ToolChoiceModeSpecific ToolChoiceMode = "tool" // Model must use the named tool
)

// ToolChoice is the caller's directive on which tools the model may invoke.
// The zero value is the None policy.
type ToolChoice struct {
	mode            ToolChoiceMode
	name            string
	disableParallel *bool
}

// NoToolChoice returns the policy that sends no directive.
func NoToolChoice() ToolChoice {
	return ToolChoice{mode: ToolChoiceModeNone}
}

// AutoToolChoice lets the model decide whether to call a tool.
func AutoToolChoice() ToolChoice {
	return ToolChoice{mode: ToolChoiceModeAuto}
}

// AnyToolChoice forces the model to call one of the provided tools.
func AnyToolChoice() ToolChoice {
	return ToolChoice{mode: ToolChoiceModeAny}
}

// NewSpecificToolChoice forces the model to call the named tool.
func NewSpecificToolChoice(toolName string) (ToolChoice, error) {
	if toolName == "" {
		return ToolChoice{}, &ValidationError{
			Field:  "tool_choice.name",
			Reason: "tool name cannot be empty when mode is 'tool'",
			Err:    ErrInvalidRequest,
		}
	}
	return ToolChoice{mode: ToolChoiceModeSpecific, name: toolName}, nil
}

// NewToolChoice creates a ToolChoice for a mode that takes no tool name.
func NewToolChoice(mode ToolChoiceMode) (ToolChoice, error) {
	switch mode {
	case ToolChoiceModeNone, "":
		return NoToolChoice(), nil
	case ToolChoiceModeAuto:
		return AutoToolChoice(), nil
	case ToolChoiceModeAny:
		return AnyToolChoice(), nil
	case ToolChoiceModeSpecific:
		return ToolChoice{}, &ValidationError{
			Field:  "tool_choice.type",
			Value:  mode,
			Reason: "use NewSpecificToolChoice to name the tool",
			Err:    ErrInvalidRequest,
		}
	default:
		return ToolChoice{}, &ValidationError{
			Field:  "tool_choice.type",
			Value:  mode,
			Reason: "invalid tool choice mode",
			Err:    ErrInvalidRequest,
		}
	}
}

// WithDisableParallelToolUse returns a copy with the parallel-use flag set.
// The flag has no wire form under the None policy.
func (tc ToolChoice) WithDisableParallelToolUse(disable bool) ToolChoice {
	tc.disableParallel = &disable
	return tc
}

// Mode returns the selection mode.
func (tc ToolChoice) Mode() ToolChoiceMode {
	if tc.mode == "" {
		return ToolChoiceModeNone
	}
	return tc.mode
}

// ToolName returns the forced tool's name for the specific mode.
func (tc ToolChoice) ToolName() (string, bool) {
	return tc.name, tc.mode == ToolChoiceModeSpecific
}

// DisableParallelToolUse returns the flag and whether it was set.
func (tc ToolChoice) DisableParallelToolUse() (bool, bool) {
	if tc.disableParallel == nil {
		return false, false
	}
	return *tc.disableParallel, true
}

// IsNone returns true for the policy that encodes as {}.
func (tc ToolChoice) IsNone() bool {
	return tc.Mode() == ToolChoiceModeNone
}

type wireField struct {
	key   string
	value any
}

// wireFields is the ordered wire form. None has no fields; an unset
// disable_parallel_tool_use is left out rather than sent as null.
func (tc ToolChoice) wireFields() []wireField {
	if tc.IsNone() {
		return nil
	}
	fields := []wireField{{"type", string(tc.mode)}}
	if tc.mode == ToolChoiceModeSpecific {
		fields = append(fields, wireField{"name", tc.name})
	}
	if tc.disableParallel != nil {
		fields = append(fields, wireField{"disable_parallel_tool_use", *tc.disableParallel})
	}
	return fields
}

func (tc ToolChoice) MarshalJSON() ([]byte, error) {
	out := []byte("{}")
	for _, f := range tc.wireFields() {
		var err error
		if out, err = sjson.SetBytes(out, f.key, f.value); err != nil {
			return nil, fmt.Errorf("encode tool_choice.%s: %w", f.key, err)
		}
	}
	return out, nil
}

// UnmarshalJSON accepts {} and {"type":"none"} for the None policy
// and the encodings MarshalJSON produces for the others.
func (tc *ToolChoice) UnmarshalJSON(data []byte) error {
	if !gjson.ValidBytes(data) {
		return &DecodeError{Path: "tool_choice", Reason: "invalid JSON", Err: ErrInvalidRequest}
	}
	obj := gjson.ParseBytes(data)
	if !obj.IsObject() {
		return &DecodeError{Path: "tool_choice", Reason: "tool_choice must be an object", Err: ErrInvalidRequest}
	}

	var decoded ToolChoice
	typ := obj.Get("type")
	switch mode := ToolChoiceMode(typ.String()); {
	case !typ.Exists() || mode == ToolChoiceModeNone:
		decoded = NoToolChoice()
	case mode == ToolChoiceModeAuto:
		decoded = AutoToolChoice()
	case mode == ToolChoiceModeAny:
		decoded = AnyToolChoice()
	case mode == ToolChoiceModeSpecific:
		var err error
		if decoded, err = NewSpecificToolChoice(obj.Get("name").String()); err != nil {
			return &DecodeError{Path: "tool_choice.name", Reason: "specific tool choice needs a name", Err: ErrInvalidRequest}
		}
	default:
		return &DecodeError{
			Path:   "tool_choice.type",
			Reason: fmt.Sprintf("unknown tool choice type %q", typ.String()),
			Err:    ErrInvalidRequest,
		}
	}

	if flag := obj.Get("disable_parallel_tool_use"); flag.Exists() && flag.Type != gjson.Null {
		if flag.Type != gjson.True && flag.Type != gjson.False {
			return &DecodeError{Path: "tool_choice.disable_parallel_tool_use", Reason: "must be a boolean", Err: ErrInvalidRequest}
		}
		decoded = decoded.WithDisableParallelToolUse(flag.Bool())
	}

	*tc = decoded
	return nil
}

var _ json.Marshaler = ToolChoice{}
