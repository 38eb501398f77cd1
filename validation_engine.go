package tyrell

import (
	"slices"
	"sync"
)

// ValidationEngine manages validation rules and executes them
type ValidationEngine struct {
	rules []ValidationRule
	mu    sync.RWMutex
}

var (
	globalValidationEngine     *ValidationEngine
	globalValidationEngineOnce sync.Once
)

// GetValidationEngine returns the global validation engine (singleton)
func GetValidationEngine() *ValidationEngine {
	globalValidationEngineOnce.Do(func() {
		globalValidationEngine = NewValidationEngine(GetCapabilityRegistry())
	})
	return globalValidationEngine
}

// NewValidationEngine returns an engine with the built-in rules bound to registry.
func NewValidationEngine(registry *CapabilityRegistry) *ValidationEngine {
	ve := &ValidationEngine{}
	ve.AddRule(&ModelValidationRule{registry: registry})
	ve.AddRule(&ToolValidationRule{registry: registry})
	ve.AddRule(&VisionValidationRule{registry: registry})
	ve.AddRule(&ParameterValidationRule{registry: registry})
	ve.AddRule(&ConversationValidationRule{})
	return ve
}

// AddRule adds a validation rule to the engine
func (ve *ValidationEngine) AddRule(rule ValidationRule) {
	ve.mu.Lock()
	defer ve.mu.Unlock()
	ve.rules = append(ve.rules, rule)
}

// RemoveRule removes a validation rule by name
func (ve *ValidationEngine) RemoveRule(name string) bool {
	ve.mu.Lock()
	defer ve.mu.Unlock()

	i := slices.IndexFunc(ve.rules, func(rule ValidationRule) bool { return rule.Name() == name })
	if i < 0 {
		return false
	}
	ve.rules = slices.Delete(ve.rules, i, i+1)
	return true
}

// Validate runs all validation rules and returns warnings
func (ve *ValidationEngine) Validate(req *Request) []ValidationWarning {
	ve.mu.RLock()
	defer ve.mu.RUnlock()

	var warnings []ValidationWarning
	for _, rule := range ve.rules {
		warnings = append(warnings, rule.Check(req)...)
	}
	return warnings
}

// GetValidationWarnings returns potential issues with a request using the global engine.
// Warnings never block a request; the API remains the source of truth.
func GetValidationWarnings(req *Request) []ValidationWarning {
	return GetValidationEngine().Validate(req)
}

// FilterWarningsBySeverity returns warnings matching the specified severities
func FilterWarningsBySeverity(warnings []ValidationWarning, severities ...Severity) []ValidationWarning {
	return filterWarnings(warnings, func(w ValidationWarning) bool { return slices.Contains(severities, w.Severity) })
}

// FilterWarningsByCategory returns warnings matching the specified categories
func FilterWarningsByCategory(warnings []ValidationWarning, categories ...string) []ValidationWarning {
	return filterWarnings(warnings, func(w ValidationWarning) bool { return slices.Contains(categories, w.Category) })
}

// FilterWarningsByCode returns warnings matching the specified codes
func FilterWarningsByCode(warnings []ValidationWarning, codes ...WarningCode) []ValidationWarning {
	return filterWarnings(warnings, func(w ValidationWarning) bool { return slices.Contains(codes, w.Code) })
}

func filterWarnings(warnings []ValidationWarning, keep func(ValidationWarning) bool) []ValidationWarning {
	filtered := make([]ValidationWarning, 0)
	for _, w := range warnings {
		if keep(w) {
			filtered = append(filtered, w)
		}
	}
	return filtered
}
