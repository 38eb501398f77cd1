package tyrell

import (
	"fmt"
)

// ModelValidationRule checks model-related warnings
type ModelValidationRule struct {
	registry *CapabilityRegistry
}

func (r *ModelValidationRule) Name() string {
	return "Model Validation"
}

func (r *ModelValidationRule) Check(req *Request) []ValidationWarning {
	var warnings []ValidationWarning

	// The catalog might be outdated; a miss is a warning only.
	if _, err := r.registry.GetModelCapability(req.Model()); err != nil {
		warnings = append(warnings, ValidationWarning{
			Code:     WarningCodeModelUnknown,
			Category: "model",
			Field:    "model",
			Value:    req.Model().String(),
			Message:  fmt.Sprintf("Model %s not found in the model catalog (catalog may be outdated)", req.Model()),
			Severity: SeverityWarning,
		})
	}

	return warnings
}

// ToolValidationRule checks tool-related warnings
type ToolValidationRule struct {
	registry *CapabilityRegistry
}

func (r *ToolValidationRule) Name() string {
	return "Tool Validation"
}

func (r *ToolValidationRule) Check(req *Request) []ValidationWarning {
	var warnings []ValidationWarning
	tools := req.Tools()

	if choice, ok := req.ToolChoice(); ok && !choice.IsNone() {
		if len(tools) == 0 {
			warnings = append(warnings, ValidationWarning{
				Code:     WarningCodeToolChoiceWithoutTools,
				Category: "tool",
				Field:    "tool_choice",
				Value:    string(choice.Mode()),
				Message:  fmt.Sprintf("tool_choice %q is set but no tools are declared", choice.Mode()),
				Severity: SeverityError,
			})
		} else if name, specific := choice.ToolName(); specific && !req.HasTool(name) {
			warnings = append(warnings, ValidationWarning{
				Code:     WarningCodeToolChoiceUnknownTool,
				Category: "tool",
				Field:    "tool_choice.name",
				Value:    name,
				Message:  fmt.Sprintf("tool_choice names %s, which is not among the declared tools", name),
				Severity: SeverityError,
			})
		}
	}

	if len(tools) == 0 {
		return warnings
	}

	seen := make(map[string]bool, len(tools))
	for _, tool := range tools {
		if seen[tool.Name] {
			warnings = append(warnings, ValidationWarning{
				Code:     WarningCodeDuplicateToolName,
				Category: "tool",
				Field:    "tools",
				Value:    tool.Name,
				Message:  fmt.Sprintf("Tool %s is declared more than once", tool.Name),
				Severity: SeverityError,
			})
		}
		seen[tool.Name] = true
	}

	modelCap, err := r.registry.GetModelCapability(req.Model())
	if err != nil {
		// Can't check without capabilities
		return warnings
	}

	if !modelCap.Features.Tools {
		warnings = append(warnings, ValidationWarning{
			Code:     WarningCodeModelDoesNotSupportTools,
			Category: "tool",
			Field:    "tools",
			Value:    len(tools),
			Message:  fmt.Sprintf("Model %s might not support tools", req.Model()),
			Severity: SeverityWarning,
		})
	}

	return warnings
}

// VisionValidationRule checks vision-related warnings
type VisionValidationRule struct {
	registry *CapabilityRegistry
}

func (r *VisionValidationRule) Name() string {
	return "Vision Validation"
}

func (r *VisionValidationRule) Check(req *Request) []ValidationWarning {
	var warnings []ValidationWarning

	if !hasImageContent(req.Messages()) {
		return warnings
	}

	modelCap, err := r.registry.GetModelCapability(req.Model())
	if err != nil {
		// Can't check without capabilities
		return warnings
	}

	if !modelCap.Features.Vision {
		warnings = append(warnings, ValidationWarning{
			Code:     WarningCodeVisionUnsupported,
			Category: "vision",
			Field:    "messages",
			Value:    "contains images",
			Message:  fmt.Sprintf("Model %s might not support vision (check the model catalog)", req.Model()),
			Severity: SeverityWarning,
		})
	}

	return warnings
}

// ParameterValidationRule checks parameter range warnings
type ParameterValidationRule struct {
	registry *CapabilityRegistry
}

func (r *ParameterValidationRule) Name() string {
	return "Parameter Validation"
}

func (r *ParameterValidationRule) Check(req *Request) []ValidationWarning {
	var warnings []ValidationWarning
	constraints := r.registry.Constraints()

	if temp, ok := req.Temperature(); ok {
		if temp < constraints.TemperatureMin || temp > constraints.TemperatureMax {
			warnings = append(warnings, ValidationWarning{
				Code:     WarningCodeTemperatureOutOfRange,
				Category: "parameter",
				Field:    "temperature",
				Value:    temp,
				Message:  fmt.Sprintf("Temperature %.2f outside recommended range [%.2f, %.2f]", temp, constraints.TemperatureMin, constraints.TemperatureMax),
				Severity: SeverityWarning,
			})
		}
	}

	if topP, ok := req.TopP(); ok {
		if topP < constraints.TopPMin || topP > constraints.TopPMax {
			warnings = append(warnings, ValidationWarning{
				Code:     WarningCodeTopPOutOfRange,
				Category: "parameter",
				Field:    "top_p",
				Value:    topP,
				Message:  fmt.Sprintf("TopP %.2f outside recommended range [%.2f, %.2f]", topP, constraints.TopPMin, constraints.TopPMax),
				Severity: SeverityWarning,
			})
		}
	}

	if topK, ok := req.TopK(); ok {
		if topK < constraints.TopKMin || topK > constraints.TopKMax {
			warnings = append(warnings, ValidationWarning{
				Code:     WarningCodeTopKOutOfRange,
				Category: "parameter",
				Field:    "top_k",
				Value:    topK,
				Message:  fmt.Sprintf("TopK %d outside recommended range [%d, %d]", topK, constraints.TopKMin, constraints.TopKMax),
				Severity: SeverityWarning,
			})
		}
	}

	if modelCap, err := r.registry.GetModelCapability(req.Model()); err == nil && modelCap.MaxOutputTokens > 0 {
		if req.MaxTokens() > modelCap.MaxOutputTokens {
			warnings = append(warnings, ValidationWarning{
				Code:     WarningCodeMaxTokensTooHigh,
				Category: "parameter",
				Field:    "max_tokens",
				Value:    req.MaxTokens(),
				Message:  fmt.Sprintf("max_tokens %d exceeds %s output limit %d", req.MaxTokens(), req.Model(), modelCap.MaxOutputTokens),
				Severity: SeverityError,
			})
		}
	}

	return warnings
}

// ConversationValidationRule checks message ordering and tool_result pairing.
type ConversationValidationRule struct{}

func (r *ConversationValidationRule) Name() string {
	return "Conversation Validation"
}

func (r *ConversationValidationRule) Check(req *Request) []ValidationWarning {
	var warnings []ValidationWarning
	messages := req.Messages()

	if len(messages) > 0 && messages[0].Role != RoleUser {
		warnings = append(warnings, ValidationWarning{
			Code:     WarningCodeFirstMessageNotUser,
			Category: "conversation",
			Field:    "messages[0].role",
			Value:    string(messages[0].Role),
			Message:  "The first message should come from the user",
			Severity: SeverityWarning,
		})
	}

	toolUseIDs := make(map[string]bool)
	for i, msg := range messages {
		for _, block := range msg.Content {
			switch b := block.(type) {
			case ToolUseBlock:
				toolUseIDs[b.ID] = true
			case ToolResultBlock:
				if !toolUseIDs[b.ToolUseID] {
					warnings = append(warnings, ValidationWarning{
						Code:     WarningCodeOrphanToolResult,
						Category: "conversation",
						Field:    fmt.Sprintf("messages[%d].content", i),
						Value:    b.ToolUseID,
						Message:  fmt.Sprintf("tool_result refers to %s, which no earlier tool_use declared", b.ToolUseID),
						Severity: SeverityError,
					})
				}
			}
		}
	}

	return warnings
}

// hasImageContent checks if any messages contain image blocks
func hasImageContent(messages []Message) bool {
	for _, msg := range messages {
		for _, block := range msg.Content {
			if _, ok := block.(ImageBlock); ok {
				return true
			}
		}
	}
	return false
}
