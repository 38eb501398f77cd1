package tyrell

import (
	"strings"
)

// NewUserMessage builds a user turn.
func NewUserMessage(blocks ...ContentBlock) Message {
	return Message{Role: RoleUser, Content: blocks}
}

// NewAssistantMessage builds an assistant turn, e.g. to prefill the model's answer.
func NewAssistantMessage(blocks ...ContentBlock) Message {
	return Message{Role: RoleAssistant, Content: blocks}
}

// UserText builds a user turn holding one text block.
func UserText(text string) Message {
	return NewUserMessage(NewTextBlock(text))
}

// ToolResultMessage wraps tool results in the user turn that answers an assistant's tool_use blocks.
func ToolResultMessage(results ...ToolResultBlock) Message {
	blocks := make([]ContentBlock, len(results))
	for i, result := range results {
		blocks[i] = result
	}
	return NewUserMessage(blocks...)
}

// ResultFor answers a tool_use block.
func ResultFor(use ToolUseBlock, content string, isError bool) ToolResultBlock {
	return NewToolResultBlock(use.ID, content, isError)
}

// FollowUp returns a builder for the next turn: req's conversation, then
// resp as the assistant turn, then a user turn carrying results.
//
// Strategy:
//  1. Start from req.Builder() so model, tools and sampling carry over
//  2. Append resp.Message() as the assistant turn
//  3. Append the results as one user turn (skipped when there are none)
func FollowUp(req *Request, resp *Response, results ...ToolResultBlock) RequestBuilder {
	b := req.Builder()
	b = b.AddMessage(RoleAssistant, resp.Message().Content...)
	if len(results) > 0 {
		b = b.AddMessage(RoleUser, ToolResultMessage(results...).Content...)
	}
	return b
}

// FormatToolResults renders tool results as plain text, for logging or for
// models that should see results as prose.
func FormatToolResults(results []ToolResultBlock) string {
	if len(results) == 0 {
		return "No results found."
	}

	var sb strings.Builder
	sb.WriteString("Tool results:\n\n")

	for _, result := range results {
		if result.IsError {
			sb.WriteString("[error] ")
		}
		sb.WriteString(result.Content)
		sb.WriteString("\n\n")
	}

	return strings.TrimSpace(sb.String())
}
