package tyrell

import (
	_ "embed"
	"fmt"
	"log"
	"os"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed config/models.yaml
var modelCatalogYAML []byte

// The model catalog is METADATA: pricing estimates, limits, and feature flags
// used for warnings and cost reporting. It never blocks a request.
//
// The embedded catalog may lag behind the API. Override it with
// LoadModelCatalogFromFile or RegisterModelCapability.

// ModelCatalog is the full catalog document.
type ModelCatalog struct {
	Version     string                     `yaml:"version"`      // Semantic version (e.g., "1.0.0")
	LastUpdated string                     `yaml:"last_updated"` // ISO 8601 date
	Models      map[string]ModelCapability `yaml:"models"`       // Keyed by wire model name
	Constraints ParameterConstraints       `yaml:"constraints"`
}

// ModelCapability describes one model.
type ModelCapability struct {
	DisplayName     string        `yaml:"display_name"`
	ContextWindow   int           `yaml:"context_window"`
	MaxOutputTokens int           `yaml:"max_output_tokens"`
	Features        ModelFeatures `yaml:"features"`
	Pricing         *PricingInfo  `yaml:"pricing"`
}

// ModelFeatures indicates which features a model supports
type ModelFeatures struct {
	Vision bool `yaml:"vision"`
	Tools  bool `yaml:"tools"`
}

// PricingInfo is USD per million tokens.
type PricingInfo struct {
	InputPer1M  float64 `yaml:"input_per_1m"`
	OutputPer1M float64 `yaml:"output_per_1m"`
}

// Cost prices a usage report.
func (p *PricingInfo) Cost(u Usage) float64 {
	return float64(u.InputTokens)/1e6*p.InputPer1M + float64(u.OutputTokens)/1e6*p.OutputPer1M
}

// ParameterConstraints defines API-wide sampling parameter limits
type ParameterConstraints struct {
	TemperatureMin float64 `yaml:"temperature_min"`
	TemperatureMax float64 `yaml:"temperature_max"`
	TopPMin        float64 `yaml:"top_p_min"`
	TopPMax        float64 `yaml:"top_p_max"`
	TopKMin        int     `yaml:"top_k_min"`
	TopKMax        int     `yaml:"top_k_max"`
}

// CapabilityRegistry holds the active model catalog.
type CapabilityRegistry struct {
	catalog *ModelCatalog
	mu      sync.RWMutex
}

var (
	globalRegistry     *CapabilityRegistry
	globalRegistryOnce sync.Once
)

// NewCapabilityRegistry returns a registry serving catalog. A nil catalog yields an empty one.
func NewCapabilityRegistry(catalog *ModelCatalog) *CapabilityRegistry {
	if catalog == nil {
		catalog = &ModelCatalog{}
	}
	if catalog.Models == nil {
		catalog.Models = map[string]ModelCapability{}
	}
	return &CapabilityRegistry{catalog: catalog}
}

// GetCapabilityRegistry returns the global capability registry (singleton)
func GetCapabilityRegistry() *CapabilityRegistry {
	globalRegistryOnce.Do(func() {
		globalRegistry = NewCapabilityRegistry(nil)
		catalog, err := ParseModelCatalog(modelCatalogYAML)
		if err != nil {
			// Warnings and cost estimates degrade to "unknown"; requests still work.
			log.Printf("tyrell: failed to load embedded model catalog: %v", err)
			return
		}
		globalRegistry.catalog = catalog
	})
	return globalRegistry
}

// ParseModelCatalog decodes a catalog document.
func ParseModelCatalog(data []byte) (*ModelCatalog, error) {
	var catalog ModelCatalog
	if err := yaml.Unmarshal(data, &catalog); err != nil {
		return nil, fmt.Errorf("failed to unmarshal model catalog: %w", err)
	}
	if catalog.Models == nil {
		catalog.Models = map[string]ModelCapability{}
	}
	for name := range catalog.Models {
		if _, err := ParseModel(name); err != nil {
			return nil, fmt.Errorf("model catalog: %w", err)
		}
	}
	return &catalog, nil
}

// GetModelCapability returns the catalog entry for a model.
func (r *CapabilityRegistry) GetModelCapability(model Model) (*ModelCapability, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	modelCap, ok := r.catalog.Models[model.String()]
	if !ok {
		return nil, &ModelError{
			Model:  model.String(),
			Reason: "no entry in the model catalog",
			Err:    ErrInvalidModel,
		}
	}
	return &modelCap, nil
}

// Constraints returns the sampling parameter limits.
func (r *CapabilityRegistry) Constraints() ParameterConstraints {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.catalog.Constraints
}

// SupportsTools checks if a model supports tools
func (r *CapabilityRegistry) SupportsTools(model Model) bool {
	modelCap, err := r.GetModelCapability(model)
	if err != nil {
		return false
	}
	return modelCap.Features.Tools
}

// SupportsVision checks if a model accepts image content
func (r *CapabilityRegistry) SupportsVision(model Model) bool {
	modelCap, err := r.GetModelCapability(model)
	if err != nil {
		return false
	}
	return modelCap.Features.Vision
}

// LoadModelCatalogFromFile replaces the catalog with a YAML file in the embedded format.
func (r *CapabilityRegistry) LoadModelCatalogFromFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read model catalog file: %w", err)
	}
	catalog, err := ParseModelCatalog(data)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.catalog = catalog
	return nil
}

// RegisterModelCapability adds or replaces a single model entry.
func (r *CapabilityRegistry) RegisterModelCapability(model Model, modelCap ModelCapability) error {
	if !model.IsValid() {
		return &ModelError{Model: model.String(), Reason: "cannot register an undeclared model", Err: ErrInvalidModel}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	models := make(map[string]ModelCapability, len(r.catalog.Models)+1)
	for name, c := range r.catalog.Models {
		models[name] = c
	}
	models[model.String()] = modelCap
	updated := *r.catalog
	updated.Models = models
	r.catalog = &updated
	return nil
}

// GetModelCapabilities looks up a model in the global registry.
func GetModelCapabilities(model Model) (*ModelCapability, error) {
	return GetCapabilityRegistry().GetModelCapability(model)
}

// LoadModelCatalogFromFile is a convenience function that calls the global registry's LoadModelCatalogFromFile.
func LoadModelCatalogFromFile(path string) error {
	return GetCapabilityRegistry().LoadModelCatalogFromFile(path)
}

// RegisterModelCapability is a convenience function that calls the global registry's RegisterModelCapability.
func RegisterModelCapability(model Model, modelCap ModelCapability) error {
	return GetCapabilityRegistry().RegisterModelCapability(model, modelCap)
}
