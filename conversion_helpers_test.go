package tyrell

import (
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestFollowUp(t *testing.T) {
	tool := MustNewTool[SuperBowl]()
	req := mustBuild(t, minimalBuilder().System("sys").Tools(tool).ToolChoice(AnyToolChoice()))
	resp := mustParseResponse(t, superBowlResponse)

	use, ok := resp.FindToolUse(tool.Name)
	if !ok {
		t.Fatal("FindToolUse() ok = false")
	}
	next := mustBuild(t, FollowUp(req, resp, ResultFor(use, "saved", false)).ToolChoice(NoToolChoice()))

	messages := next.Messages()
	if len(messages) != 3 {
		t.Fatalf("len(Messages()) = %d, want 3", len(messages))
	}
	if messages[1].Role != RoleAssistant || len(messages[1].Content) != 2 {
		t.Errorf("assistant turn = %+v, want the two response blocks", messages[1])
	}
	want := Message{Role: RoleUser, Content: []ContentBlock{
		ToolResultBlock{ToolUseID: "toolu_01", Content: "saved"},
	}}
	if diff := cmp.Diff(want, messages[2]); diff != "" {
		t.Errorf("tool result turn mismatch (-want +got):\n%s", diff)
	}
	if sys, _ := next.System(); sys != "sys" {
		t.Errorf("System() = %q, want carried over", sys)
	}
	if len(GetValidationWarnings(next)) != 0 {
		t.Errorf("follow-up has warnings: %+v", GetValidationWarnings(next))
	}

	if len(req.Messages()) != 1 {
		t.Errorf("FollowUp() modified the original request: %d messages", len(req.Messages()))
	}
}

func TestFollowUp_NoResults(t *testing.T) {
	req := mustBuild(t, minimalBuilder())
	resp := &Response{Role: RoleAssistant, Content: []ContentBlock{NewTextBlock("Hello back")}}

	next := mustBuild(t, FollowUp(req, resp).AddText(RoleUser, "And then?"))
	if got := len(next.Messages()); got != 3 {
		t.Errorf("len(Messages()) = %d, want 3", got)
	}
}

func TestMessageConstructors(t *testing.T) {
	tests := []struct {
		name string
		msg  Message
		want string
	}{
		{name: "user text", msg: UserText("hi"), want: `{"role":"user","content":[{"type":"text","text":"hi"}]}`},
		{name: "assistant prefill", msg: NewAssistantMessage(NewTextBlock("{")), want: `{"role":"assistant","content":[{"type":"text","text":"{"}]}`},
		{
			name: "tool results",
			msg:  ToolResultMessage(NewToolResultBlock("a", "1", false), NewToolResultBlock("b", "x", true)),
			want: `{"role":"user","content":[{"type":"tool_result","tool_use_id":"a","content":"1"},{"type":"tool_result","tool_use_id":"b","content":"x","is_error":true}]}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw, err := json.Marshal(tt.msg)
			if err != nil {
				t.Fatalf("Marshal() error = %v", err)
			}
			if string(raw) != tt.want {
				t.Errorf("Marshal() = %s, want %s", raw, tt.want)
			}
		})
	}
}

func TestFormatToolResults(t *testing.T) {
	tests := []struct {
		name    string
		results []ToolResultBlock
		want    string
	}{
		{name: "empty", results: nil, want: "No results found."},
		{
			name:    "mixed",
			results: []ToolResultBlock{NewToolResultBlock("a", "42", false), NewToolResultBlock("b", "timeout", true)},
			want:    "Tool results:\n\n42\n\n[error] timeout",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FormatToolResults(tt.results); got != tt.want {
				t.Errorf("FormatToolResults() = %q, want %q", got, tt.want)
			}
		})
	}
}
