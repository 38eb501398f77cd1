package tyrell

import (
	"encoding/json"
	"testing"
)

// Test helper functions shared across test files

func stringPtr(s string) *string {
	return &s
}

func uint8Ptr(u uint8) *uint8 {
	return &u
}

func boolPtr(b bool) *bool {
	return &b
}

// SuperBowl is the canonical extraction fixture.
type SuperBowl struct {
	Year              uint16 `json:"year"`
	Winner            string `json:"winner"`
	Loser             string `json:"loser"`
	WinnerScore       uint8  `json:"winner_score"`
	LoserScore        uint8  `json:"loser_score"`
	TotalPointsScored *uint8 `json:"total_points_scored"`
}

func (SuperBowl) ToolName() string        { return "extract_super_bowl_info" }
func (SuperBowl) ToolDescription() string { return "Extract facts about a Super Bowl" }

// mustBuild builds b or fails the test.
func mustBuild(t *testing.T, b RequestBuilder) *Request {
	t.Helper()
	req, err := b.Build()
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	return req
}

// minimalBuilder has exactly the three required fields.
func minimalBuilder() RequestBuilder {
	return NewRequestBuilder().
		Model(ModelSonnet35).
		AddText(RoleUser, "Hello").
		MaxTokens(1024)
}

// mustMarshal encodes v or fails the test.
func mustMarshal(t *testing.T, v any) string {
	t.Helper()
	raw, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("json.Marshal(%T) error = %v", v, err)
	}
	return string(raw)
}
