package tyrell

import (
	"encoding/json"
	"fmt"
)

// Model identifies one of the supported Claude models.
// Each variant has exactly one wire string; the zero value is not a model.
type Model int

const (
	ModelSonnet35 Model = iota + 1
	ModelOpus3
	ModelSonnet3
	ModelHaiku3
	ModelSonnet35v2
	ModelHaiku35
)

var modelWireNames = map[Model]string{
	ModelSonnet35:   "claude-3-5-sonnet-20240620",
	ModelOpus3:      "claude-3-opus-20240229",
	ModelSonnet3:    "claude-3-sonnet-20240229",
	ModelHaiku3:     "claude-3-haiku-20240307",
	ModelSonnet35v2: "claude-3-5-sonnet-20241022",
	ModelHaiku35:    "claude-3-5-haiku-20241022",
}

var modelsByWireName = func() map[string]Model {
	m := make(map[string]Model, len(modelWireNames))
	for model, name := range modelWireNames {
		m[name] = model
	}
	return m
}()

// Models returns every supported model in declaration order.
func Models() []Model {
	return []Model{ModelSonnet35, ModelOpus3, ModelSonnet3, ModelHaiku3, ModelSonnet35v2, ModelHaiku35}
}

// String returns the wire identifier, e.g. "claude-3-5-sonnet-20240620".
func (m Model) String() string {
	if name, ok := modelWireNames[m]; ok {
		return name
	}
	return fmt.Sprintf("Model(%d)", int(m))
}

// IsValid returns true if m is one of the declared models.
func (m Model) IsValid() bool {
	_, ok := modelWireNames[m]
	return ok
}

// ParseModel maps a wire identifier back to its Model.
func ParseModel(name string) (Model, error) {
	if m, ok := modelsByWireName[name]; ok {
		return m, nil
	}
	return 0, &ModelError{
		Model:  name,
		Reason: "not a known model identifier",
		Err:    ErrInvalidModel,
	}
}

func (m Model) MarshalJSON() ([]byte, error) {
	name, ok := modelWireNames[m]
	if !ok {
		return nil, &ModelError{
			Model:  m.String(),
			Reason: "model is not set or not declared",
			Err:    ErrInvalidModel,
		}
	}
	return json.Marshal(name)
}

func (m *Model) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return fmt.Errorf("model must be a string: %w", err)
	}
	parsed, err := ParseModel(name)
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}
