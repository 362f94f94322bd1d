package action

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRunScript(t *testing.T) {
	data := map[string]any{
		"input": map[string]any{"a": float64(2), "b": float64(3)},
	}
	state, err := RunScript(`$.output = $.input.a + $.input.b; $.event = "summed";`, data)
	require.NoError(t, err)
	require.Equal(t, float64(5), ScriptValue(state))
	require.Equal(t, "summed", ScriptEvent(state))
}

func TestRunScriptError(t *testing.T) {
	_, err := RunScript("this is not javascript {", map[string]any{})
	require.Error(t, err)
}

func TestRunProcedure(t *testing.T) {
	steps := []string{
		"$.sum = 2 + 2;",
		"$.output = $.sum * 10;",
	}
	value, err := RunProcedure(steps, map[string]any{})
	require.NoError(t, err)
	require.Equal(t, float64(40), value)

	_, err = RunProcedure(nil, nil)
	require.Error(t, err)

	_, err = RunProcedure([]string{"broken {"}, nil)
	require.Error(t, err)
}
