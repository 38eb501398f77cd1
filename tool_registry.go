package tyrell

import (
	"encoding/json"
	"fmt"
	"slices"
	"sync"
)

// toolEntry pairs a tool definition with a decoder for its input type.
type toolEntry struct {
	tool   Tool
	decode func(raw json.RawMessage) (any, error)
}

// ToolRegistry maps tool names to their definitions and Go input types, so
// tool_use blocks in a response can be decoded without knowing the type up front.
type ToolRegistry struct {
	tools map[string]toolEntry
	mu    sync.RWMutex
}

var (
	globalToolRegistry     *ToolRegistry
	globalToolRegistryOnce sync.Once
)

// NewToolRegistry returns an empty registry.
func NewToolRegistry() *ToolRegistry {
	return &ToolRegistry{tools: make(map[string]toolEntry)}
}

// GetToolRegistry returns the global tool registry (singleton)
func GetToolRegistry() *ToolRegistry {
	globalToolRegistryOnce.Do(func() {
		globalToolRegistry = NewToolRegistry()
	})
	return globalToolRegistry
}

// RegisterTool derives T's tool and adds it to r.
func RegisterTool[T ToolSpec](r *ToolRegistry) error {
	tool, err := NewTool[T]()
	if err != nil {
		return err
	}
	schema := tool.InputSchema
	return r.register(tool, func(raw json.RawMessage) (any, error) {
		if err := checkInput(raw, schema); err != nil {
			return nil, err
		}
		var out T
		if err := json.Unmarshal(raw, &out); err != nil {
			return nil, &DecodeError{
				Path:   "input",
				Reason: fmt.Sprintf("tool %q input does not fit %T: %v", tool.Name, out, err),
				Err:    ErrSchemaMismatch,
			}
		}
		return out, nil
	})
}

// Register adds a tool with no Go input type; Decode yields its input as a map.
func (r *ToolRegistry) Register(tool Tool) error {
	if err := tool.Validate(); err != nil {
		return err
	}
	schema := tool.InputSchema
	return r.register(tool, func(raw json.RawMessage) (any, error) {
		if err := checkInput(raw, schema); err != nil {
			return nil, err
		}
		var out map[string]any
		if err := json.Unmarshal(raw, &out); err != nil {
			return nil, &DecodeError{Path: "input", Reason: err.Error(), Err: ErrSchemaMismatch}
		}
		return out, nil
	})
}

func (r *ToolRegistry) register(tool Tool, decode func(json.RawMessage) (any, error)) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.tools[tool.Name]; exists {
		return fmt.Errorf("tool %s is already registered", tool.Name)
	}

	r.tools[tool.Name] = toolEntry{tool: tool, decode: decode}
	return nil
}

// Unregister removes a tool definition from the registry
func (r *ToolRegistry) Unregister(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.tools[name]; !exists {
		return fmt.Errorf("tool %s is not registered", name)
	}

	delete(r.tools, name)
	return nil
}

// Get retrieves a tool definition by name
func (r *ToolRegistry) Get(name string) (Tool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entry, exists := r.tools[name]
	if !exists {
		return Tool{}, fmt.Errorf("unknown tool: %s", name)
	}

	return entry.tool, nil
}

// IsRegistered checks if a tool is registered
func (r *ToolRegistry) IsRegistered(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, exists := r.tools[name]
	return exists
}

// List returns all registered tool names, sorted
func (r *ToolRegistry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Tools returns every registered tool sorted by name, ready for RequestBuilder.Tools.
func (r *ToolRegistry) Tools() []Tool {
	names := r.List()

	r.mu.RLock()
	defer r.mu.RUnlock()

	tools := make([]Tool, 0, len(names))
	for _, name := range names {
		if entry, ok := r.tools[name]; ok {
			tools = append(tools, entry.tool)
		}
	}
	return tools
}

// Decode decodes a tool_use block's input into the registered type.
// The result is a T for tools added with RegisterTool[T].
func (r *ToolRegistry) Decode(use ToolUseBlock) (any, error) {
	r.mu.RLock()
	entry, exists := r.tools[use.Name]
	r.mu.RUnlock()

	if !exists {
		return nil, fmt.Errorf("tool %q is not registered: %w", use.Name, ErrToolUseNotFound)
	}
	return entry.decode(use.Input)
}
