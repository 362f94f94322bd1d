package action

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/oliveagle/jsonpath"
)

var tokenRegex = regexp.MustCompile("{(.*?)}")

// Render substitutes {$.path} tokens in a template with jsonpath lookups
// against the run's data map. Prompt templates of agent_call actions are
// rendered this way before the capability is invoked.
func Render(template string, data map[string]any) string {
	tokens := tokenRegex.FindAllString(template, -1)
	tokenMap := make(map[string]any)
	for i := range tokens {
		token := tokens[i]
		tmatch := strings.ReplaceAll(token, "{", "")
		tmatch = strings.ReplaceAll(tmatch, "}", "")
		if strings.HasPrefix(tmatch, "$") {
			value, err := jsonpath.JsonPathLookup(data, tmatch)
			if err != nil {
				continue
			}
			tokenMap[token] = value
		}
	}
	rendered := template
	for t, tv := range tokenMap {
		rendered = strings.ReplaceAll(rendered, t, fmt.Sprintf("%v", tv))
	}
	return rendered
}

// ResolveParams resolves an action's input parameter map against the run's
// data. String values beginning with $ are treated as jsonpath expressions,
// nested maps and lists are resolved recursively.
func ResolveParams(data map[string]any, params map[string]any) map[string]any {
	output := make(map[string]any)
	resolveParams(data, params, output)
	return output
}

func resolveParams(data map[string]any, params map[string]any, output map[string]any) {
	for k, v := range params {
		switch pv := v.(type) {
		case map[string]any:
			out := make(map[string]any)
			output[k] = out
			resolveParams(data, pv, out)
		case string:
			if strings.HasPrefix(pv, "$") {
				value, err := jsonpath.JsonPathLookup(data, pv)
				if err != nil {
					output[k] = nil
					continue
				}
				output[k] = value
			} else {
				output[k] = Render(pv, data)
			}
		case []any:
			output[k] = resolveList(data, pv)
		default:
			output[k] = v
		}
	}
}

func resolveList(data map[string]any, list []any) []any {
	var output []any
	for _, v := range list {
		switch pv := v.(type) {
		case map[string]any:
			out := make(map[string]any)
			resolveParams(data, pv, out)
			output = append(output, out)
		case string:
			if strings.HasPrefix(pv, "$") {
				value, err := jsonpath.JsonPathLookup(data, pv)
				if err != nil {
					output = append(output, nil)
					continue
				}
				output = append(output, value)
			} else {
				output = append(output, Render(pv, data))
			}
		case []any:
			output = append(output, resolveList(data, pv))
		default:
			output = append(output, v)
		}
	}
	return output
}
