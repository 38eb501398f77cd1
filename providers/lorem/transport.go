// Package lorem is an offline tyrell.Transport that answers with lorem ipsum
// text and schema-conforming fake tool inputs. Used for tests and examples
// without an API key.
package lorem

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	loremgen "github.com/bozaro/golorem"
	"github.com/google/uuid"
	tokenizer "github.com/qhenkart/anthropic-tokenizer-go"

	"github.com/haowjy/tyrell-go"
)

// Transport decodes the request it is given and fabricates a response.
//
// Tool selection follows the request's tool_choice: "tool" calls the named
// tool, "any" calls the first declared tool, "auto" writes a short preface
// and then calls the first tool, and no directive (or no tools) yields text.
type Transport struct {
	generator *loremgen.Lorem
	mu        sync.Mutex // golorem is not safe for concurrent use

	delay      time.Duration
	failStatus int
}

// Option configures a Transport.
type Option func(*Transport)

// WithDelay simulates API latency. The request context can cut it short.
func WithDelay(d time.Duration) Option {
	return func(t *Transport) {
		t.delay = d
	}
}

// WithFailure makes every Send fail with the given HTTP status and an
// API-shaped error body.
func WithFailure(status int) Option {
	return func(t *Transport) {
		t.failStatus = status
	}
}

// NewTransport creates a new lorem ipsum transport.
func NewTransport(opts ...Option) *Transport {
	t := &Transport{generator: loremgen.New()}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Name returns the transport identifier.
func (t *Transport) Name() tyrell.TransportID {
	return tyrell.TransportLorem
}

// Send fabricates a Messages API response for body.
func (t *Transport) Send(ctx context.Context, body []byte) ([]byte, error) {
	if t.delay > 0 {
		select {
		case <-time.After(t.delay):
		case <-ctx.Done():
			return nil, tyrell.NewNetworkError(t.Name().String(), ctx.Err())
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, tyrell.NewNetworkError(t.Name().String(), err)
	}

	if t.failStatus != 0 {
		log.Printf("[LOREM] Injected failure: status=%d", t.failStatus)
		return nil, tyrell.NewStatusError(t.Name().String(), t.failStatus,
			errorBody("api_error", fmt.Sprintf("lorem transport configured to fail with %d", t.failStatus)))
	}

	req, err := tyrell.ParseRequest(body)
	if err != nil {
		log.Printf("[LOREM] Rejected request: %v", err)
		return nil, tyrell.NewStatusError(t.Name().String(), 400, errorBody("invalid_request_error", err.Error()))
	}

	resp, err := t.respond(req)
	if err != nil {
		return nil, tyrell.NewStatusError(t.Name().String(), 400, errorBody("invalid_request_error", err.Error()))
	}

	out, err := json.Marshal(resp)
	if err != nil {
		return nil, fmt.Errorf("encode lorem response: %w", err)
	}
	return out, nil
}

func (t *Transport) respond(req *tyrell.Request) (*tyrell.Response, error) {
	tool, preface, err := selectTool(req)
	if err != nil {
		return nil, err
	}

	log.Printf("[LOREM] Respond: model=%s, tools=%d, selected=%q, max_tokens=%d",
		req.Model(), len(req.Tools()), toolName(tool), req.MaxTokens())

	var (
		content    []tyrell.ContentBlock
		output     strings.Builder
		stopReason tyrell.StopReason
	)

	t.mu.Lock()
	defer t.mu.Unlock()

	switch {
	case tool == nil:
		text, cutoff := t.text(req.MaxTokens(), 20, 60)
		content = append(content, tyrell.NewTextBlock(text))
		output.WriteString(text)
		stopReason = tyrell.StopReasonEndTurn
		if cutoff {
			stopReason = tyrell.StopReasonMaxTokens
		}

	default:
		if preface {
			text, _ := t.text(req.MaxTokens(), 5, 15)
			content = append(content, tyrell.NewTextBlock(text))
			output.WriteString(text)
		}
		input := fakeObject(t.generator, tool.InputSchema)
		use, err := tyrell.NewToolUseBlock(toolUseID(), tool.Name, input)
		if err != nil {
			return nil, err
		}
		content = append(content, use)
		output.Write(use.Input)
		stopReason = tyrell.StopReasonToolUse
	}

	return &tyrell.Response{
		ID:         "msg_lorem_" + strings.ReplaceAll(uuid.NewString(), "-", ""),
		Type:       "message",
		Role:       tyrell.RoleAssistant,
		Content:    content,
		Model:      req.Model(),
		StopReason: &stopReason,
		Usage: tyrell.Usage{
			InputTokens:  countTokens(promptText(req)),
			OutputTokens: countTokens(output.String()),
		},
	}, nil
}

// selectTool applies the tool_choice policy. preface reports whether a text
// block should come before the tool call.
func selectTool(req *tyrell.Request) (tool *tyrell.Tool, preface bool, err error) {
	tools := req.Tools()
	choice, _ := req.ToolChoice()

	switch choice.Mode() {
	case tyrell.ToolChoiceModeSpecific:
		name, _ := choice.ToolName()
		for i := range tools {
			if tools[i].Name == name {
				return &tools[i], false, nil
			}
		}
		return nil, false, fmt.Errorf("tool_choice names %q, which is not in tools", name)
	case tyrell.ToolChoiceModeAny:
		if len(tools) == 0 {
			return nil, false, fmt.Errorf("tool_choice %q requires tools", choice.Mode())
		}
		return &tools[0], false, nil
	case tyrell.ToolChoiceModeAuto:
		if len(tools) == 0 {
			return nil, false, nil
		}
		return &tools[0], true, nil
	default:
		return nil, false, nil
	}
}

// text generates between minWords and maxWords words, truncated at budget.
// Words stand in for tokens.
func (t *Transport) text(budget, minWords, maxWords int) (string, bool) {
	words := strings.Fields(t.generator.Sentence(minWords, maxWords))
	if len(words) > budget {
		return strings.Join(words[:budget], " "), true
	}
	return strings.Join(words, " "), false
}

func toolName(tool *tyrell.Tool) string {
	if tool == nil {
		return ""
	}
	return tool.Name
}

func toolUseID() string {
	return "toolu_" + strings.ReplaceAll(uuid.NewString(), "-", "")
}

// promptText gathers every piece of text the model would read.
func promptText(req *tyrell.Request) string {
	var sb strings.Builder
	if system, ok := req.System(); ok {
		sb.WriteString(system)
		sb.WriteString("\n")
	}
	for _, msg := range req.Messages() {
		for _, block := range msg.Content {
			switch b := block.(type) {
			case tyrell.TextBlock:
				sb.WriteString(b.Text)
			case tyrell.ToolResultBlock:
				sb.WriteString(b.Content)
			case tyrell.ToolUseBlock:
				sb.Write(b.Input)
			}
			sb.WriteString("\n")
		}
	}
	for _, tool := range req.Tools() {
		raw, _ := json.Marshal(tool)
		sb.Write(raw)
	}
	return sb.String()
}

var (
	claudeTokenizer     *tokenizer.Tokenizer
	claudeTokenizerOnce sync.Once
	claudeTokenizerErr  error
	claudeTokenizerMu   sync.Mutex
)

// countTokens uses the Claude tokenizer, falling back to ~4 characters per token.
func countTokens(text string) int {
	if text == "" {
		return 0
	}
	claudeTokenizerOnce.Do(func() {
		claudeTokenizer, claudeTokenizerErr = tokenizer.New()
	})
	if claudeTokenizerErr != nil {
		return (len(text) + 3) / 4
	}
	claudeTokenizerMu.Lock()
	defer claudeTokenizerMu.Unlock()
	return claudeTokenizer.Tokens(text)
}

func errorBody(kind, message string) string {
	raw, _ := json.Marshal(map[string]any{
		"type":  "error",
		"error": map[string]string{"type": kind, "message": message},
	})
	return string(raw)
}
