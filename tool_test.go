package tyrell

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

type undescribedTool struct {
	Query string `json:"query"`
}

func (undescribedTool) ToolName() string        { return "search" }
func (undescribedTool) ToolDescription() string { return "" }

type brokenTool struct {
	C chan int `json:"c"`
}

func (brokenTool) ToolName() string        { return "broken" }
func (brokenTool) ToolDescription() string { return "" }

func TestNewTool(t *testing.T) {
	tool, err := NewTool[SuperBowl]()
	if err != nil {
		t.Fatalf("NewTool() error = %v", err)
	}
	if tool.Name != "extract_super_bowl_info" {
		t.Errorf("Name = %q, want %q", tool.Name, "extract_super_bowl_info")
	}
	if tool.Description == nil || *tool.Description != "Extract facts about a Super Bowl" {
		t.Errorf("Description = %v, want the ToolDescription() text", tool.Description)
	}
	schema, _ := SchemaFor[SuperBowl]()
	if diff := cmp.Diff(schema, tool.InputSchema); diff != "" {
		t.Errorf("InputSchema mismatch (-SchemaFor +tool):\n%s", diff)
	}
}

func TestNewTool_OwnsSchema(t *testing.T) {
	first := MustNewTool[SuperBowl]()
	first.InputSchema.Properties["year"].Description = "changed"
	first.InputSchema.Required = append(first.InputSchema.Required[:0], "winner")

	second := MustNewTool[SuperBowl]()
	if got := second.InputSchema.Properties["year"].Description; got != "" {
		t.Errorf("year description = %q after mutating another copy, want empty", got)
	}
	if !second.InputSchema.IsRequired("year") {
		t.Error("IsRequired(year) = false after mutating another copy, want true")
	}
}

func TestNewTool_EmptyDescriptionOmitted(t *testing.T) {
	tool, err := NewTool[undescribedTool]()
	if err != nil {
		t.Fatalf("NewTool() error = %v", err)
	}
	want := `{"name":"search","input_schema":{"type":"object","properties":{"query":{"type":"string"}},"required":["query"]}}`
	if got := mustMarshal(t, tool); got != want {
		t.Errorf("Marshal() = %s, want %s", got, want)
	}
}

func TestNewTool_UnsupportedInput(t *testing.T) {
	if _, err := NewTool[brokenTool](); !errors.Is(err, ErrUnsupportedType) {
		t.Errorf("NewTool[brokenTool]() error = %v, want ErrUnsupportedType", err)
	}

	defer func() {
		if recover() == nil {
			t.Error("MustNewTool[brokenTool]() did not panic")
		}
	}()
	MustNewTool[brokenTool]()
}

func TestNewCustomTool(t *testing.T) {
	tests := []struct {
		name    string
		tool    string
		schema  *InputSchema
		wantErr bool
	}{
		{name: "valid", tool: "ping", schema: &InputSchema{}},
		{name: "empty name", tool: "", schema: &InputSchema{}, wantErr: true},
		{name: "nil schema", tool: "ping", schema: nil, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewCustomTool(tt.tool, stringPtr("desc"), tt.schema)
			if (err != nil) != tt.wantErr {
				t.Fatalf("NewCustomTool() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidRequest) {
				t.Errorf("NewCustomTool() error = %v, want ErrInvalidRequest", err)
			}
		})
	}
}

func TestTool_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		wantErr error
	}{
		{name: "valid", data: `{"name":"ping","description":"Ping","input_schema":{"type":"object","properties":{},"required":[]}}`},
		{name: "missing schema", data: `{"name":"ping"}`, wantErr: ErrSchemaMismatch},
		{name: "missing name", data: `{"input_schema":{"type":"object"}}`, wantErr: ErrSchemaMismatch},
		{name: "array schema", data: `{"name":"ping","input_schema":{"type":"array"}}`, wantErr: ErrSchemaMismatch},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var tool Tool
			err := json.Unmarshal([]byte(tt.data), &tool)
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("Unmarshal() error = %v", err)
				}
				if tool.Description == nil || *tool.Description != "Ping" {
					t.Errorf("Description = %v, want Ping", tool.Description)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Unmarshal() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestTool_MarshalInvalid(t *testing.T) {
	if _, err := json.Marshal(Tool{Name: "x"}); err == nil {
		t.Error("Marshal(tool without schema) error = nil, want error")
	}
}
