package tools

import (
	"context"
	"fmt"
)

// Manager holds the registry of available tools, keyed by function name.
// The registry is built once at startup and read-only afterwards.
type Manager struct {
	tools map[string]Executor
}

func NewManager() *Manager {
	return &Manager{tools: make(map[string]Executor)}
}

// Register adds a tool under its declared function name.
func (m *Manager) Register(tool Executor) {
	m.tools[tool.Definition().Function.Name] = tool
}

// Definitions returns every registered tool schema.
func (m *Manager) Definitions() []Tool {
	defs := make([]Tool, 0, len(m.tools))
	for _, tool := range m.tools {
		defs = append(defs, tool.Definition())
	}
	return defs
}

// Execute runs a tool by name with the given JSON arguments.
func (m *Manager) Execute(ctx context.Context, name, arguments string) (string, error) {
	tool, ok := m.tools[name]
	if !ok {
		return "", fmt.Errorf("tool %q not found", name)
	}
	return tool.Execute(ctx, arguments)
}

// Count returns the number of registered tools.
func (m *Manager) Count() int {
	return len(m.tools)
}
