package tyrell

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestEmbeddedCatalog_CoversEveryModel(t *testing.T) {
	for _, model := range Models() {
		t.Run(model.String(), func(t *testing.T) {
			modelCap, err := GetModelCapabilities(model)
			if err != nil {
				t.Fatalf("GetModelCapabilities() error = %v", err)
			}
			if modelCap.ContextWindow != 200000 {
				t.Errorf("ContextWindow = %d, want 200000", modelCap.ContextWindow)
			}
			if modelCap.MaxOutputTokens <= 0 {
				t.Errorf("MaxOutputTokens = %d, want > 0", modelCap.MaxOutputTokens)
			}
			if modelCap.Pricing == nil {
				t.Error("Pricing = nil, want an entry")
			}
			if !modelCap.Features.Tools {
				t.Error("Features.Tools = false, want true")
			}
		})
	}
}

func TestCapabilityRegistry_Features(t *testing.T) {
	tests := []struct {
		name       string
		model      Model
		wantVision bool
		wantOutput int
	}{
		{name: "sonnet 3.5", model: ModelSonnet35, wantVision: true, wantOutput: 8192},
		{name: "haiku 3.5 is text only", model: ModelHaiku35, wantVision: false, wantOutput: 8192},
		{name: "opus 3", model: ModelOpus3, wantVision: true, wantOutput: 4096},
	}

	registry := GetCapabilityRegistry()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := registry.SupportsVision(tt.model); got != tt.wantVision {
				t.Errorf("SupportsVision() = %v, want %v", got, tt.wantVision)
			}
			modelCap, err := registry.GetModelCapability(tt.model)
			if err != nil {
				t.Fatalf("GetModelCapability() error = %v", err)
			}
			if modelCap.MaxOutputTokens != tt.wantOutput {
				t.Errorf("MaxOutputTokens = %d, want %d", modelCap.MaxOutputTokens, tt.wantOutput)
			}
		})
	}
}

func TestCapabilityRegistry_Empty(t *testing.T) {
	registry := NewCapabilityRegistry(nil)

	_, err := registry.GetModelCapability(ModelSonnet35)
	if !errors.Is(err, ErrInvalidModel) {
		t.Errorf("GetModelCapability() error = %v, want ErrInvalidModel", err)
	}
	if registry.SupportsTools(ModelSonnet35) {
		t.Error("SupportsTools() = true on an empty registry")
	}
}

func TestCapabilityRegistry_RegisterModelCapability(t *testing.T) {
	registry := NewCapabilityRegistry(nil)

	err := registry.RegisterModelCapability(ModelHaiku3, ModelCapability{
		DisplayName:     "Haiku",
		MaxOutputTokens: 1000,
		Features:        ModelFeatures{Tools: true},
	})
	if err != nil {
		t.Fatalf("RegisterModelCapability() error = %v", err)
	}
	if !registry.SupportsTools(ModelHaiku3) {
		t.Error("SupportsTools() = false after registration")
	}

	if err := registry.RegisterModelCapability(Model(0), ModelCapability{}); !errors.Is(err, ErrInvalidModel) {
		t.Errorf("RegisterModelCapability(zero) error = %v, want ErrInvalidModel", err)
	}
}

func TestParseModelCatalog(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr bool
	}{
		{
			name: "valid",
			yaml: `
version: "2.0.0"
constraints:
  top_k_min: 1
  top_k_max: 10
models:
  claude-3-opus-20240229:
    max_output_tokens: 4096
    features:
      tools: true
    pricing:
      input_per_1m: 15
      output_per_1m: 75
`,
		},
		{name: "unknown model", yaml: "models:\n  claude-2.1:\n    max_output_tokens: 1\n", wantErr: true},
		{name: "malformed", yaml: "models: [", wantErr: true},
		{name: "no models", yaml: "version: \"1\"\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			catalog, err := ParseModelCatalog([]byte(tt.yaml))
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseModelCatalog() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil && catalog.Models == nil {
				t.Error("Models = nil, want an empty map")
			}
		})
	}
}

func TestCapabilityRegistry_LoadModelCatalogFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "models.yaml")
	data := `
version: "9.9.9"
constraints:
  temperature_max: 2
models:
  claude-3-haiku-20240307:
    max_output_tokens: 10
    features:
      vision: false
      tools: false
`
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	registry := NewCapabilityRegistry(nil)
	if err := registry.LoadModelCatalogFromFile(path); err != nil {
		t.Fatalf("LoadModelCatalogFromFile() error = %v", err)
	}
	if got := registry.Constraints().TemperatureMax; got != 2 {
		t.Errorf("Constraints().TemperatureMax = %v, want 2", got)
	}
	if registry.SupportsTools(ModelHaiku3) {
		t.Error("SupportsTools() = true, want false from the loaded catalog")
	}

	if err := registry.LoadModelCatalogFromFile(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("LoadModelCatalogFromFile(missing) error = nil, want error")
	}
}

func TestPricingInfo_Cost(t *testing.T) {
	p := &PricingInfo{InputPer1M: 1, OutputPer1M: 2}
	got := p.Cost(Usage{InputTokens: 1_000_000, OutputTokens: 500_000})
	if got != 2 {
		t.Errorf("Cost() = %v, want 2", got)
	}
}
