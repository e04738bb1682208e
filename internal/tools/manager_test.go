package tools

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type echoTool struct {
	name string
}

func (e *echoTool) Definition() Tool {
	return NewFunctionTool(e.name, "echoes its arguments", JSONSchema{Type: "object"})
}

func (e *echoTool) Execute(ctx context.Context, arguments string) (string, error) {
	return arguments, nil
}

func TestManager(t *testing.T) {
	m := NewManager()
	m.Register(&echoTool{name: "echo"})
	m.Register(&echoTool{name: "echo2"})

	t.Run("executes registered tool", func(t *testing.T) {
		out, err := m.Execute(context.Background(), "echo", `{"x": 1}`)
		require.NoError(t, err)
		assert.Equal(t, `{"x": 1}`, out)
	})

	t.Run("unknown tool is an error", func(t *testing.T) {
		_, err := m.Execute(context.Background(), "missing", `{}`)
		require.Error(t, err)
		assert.Contains(t, err.Error(), `tool "missing" not found`)
	})

	t.Run("definitions cover every registration", func(t *testing.T) {
		defs := m.Definitions()
		require.Len(t, defs, 2)
		assert.Equal(t, 2, m.Count())

		names := []string{defs[0].Function.Name, defs[1].Function.Name}
		assert.ElementsMatch(t, []string{"echo", "echo2"}, names)
	})
}
