package action

import (
	"encoding/json"
	"fmt"

	"github.com/dop251/goja"
)

// RunScript evaluates a javascript expression with the run's data bound to $
// and returns the exported $ after the script ran. If the script sets $.event
// the engine uses that as the transition event; $.output is the action value.
func RunScript(expression string, data map[string]any) (map[string]any, error) {
	encoded, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	script := fmt.Sprintf("var $ = %s;\n%s", encoded, expression)
	vm := goja.New()
	_, err = vm.RunString(script)
	if err != nil {
		return nil, fmt.Errorf("error executing javascript %w", err)
	}
	val, err := vm.RunString("$")
	if err != nil {
		return nil, fmt.Errorf("error executing javascript %w", err)
	}
	res, err := json.Marshal(val.Export())
	if err != nil {
		return nil, err
	}
	var output map[string]any
	if err := json.Unmarshal(res, &output); err != nil {
		return nil, err
	}
	return output, nil
}

// ScriptEvent extracts the event a script asked for, empty when it did not.
func ScriptEvent(state map[string]any) string {
	if ev, ok := state["event"].(string); ok {
		return ev
	}
	return ""
}

// ScriptValue extracts the action value from an executed script's state.
func ScriptValue(state map[string]any) any {
	if out, ok := state["output"]; ok {
		return out
	}
	return state
}

// RunProcedure runs an ordered list of script steps over one shared data map.
// Deterministic procedures emitted by the reasoning policy execute here
// without a workflow. The output of the last step is the procedure's result.
func RunProcedure(steps []string, data map[string]any) (any, error) {
	if len(steps) == 0 {
		return nil, fmt.Errorf("procedure has no steps")
	}
	working := data
	if working == nil {
		working = make(map[string]any)
	}
	var state map[string]any
	for i, step := range steps {
		var err error
		state, err = RunScript(step, working)
		if err != nil {
			return nil, fmt.Errorf("procedure step %d: %w", i, err)
		}
		// later steps see the $ the previous step left behind
		working = state
	}
	return ScriptValue(state), nil
}
