package model

import (
	"fmt"
	"strings"
	"time"
)

// Events the engine derives from action outcomes. Workflows may also use
// their own application defined event names for branching.
const EVENT_SUCCESS string = "success"
const EVENT_FAILURE string = "failure"

type ActionKind string

const ACTION_KIND_DIRECT ActionKind = "direct"
const ACTION_KIND_AGENT_CALL ActionKind = "agent_call"
const ACTION_KIND_SCRIPT ActionKind = "script"

func ToActionKind(kind string) (ActionKind, error) {
	switch {
	case strings.EqualFold(kind, "direct"):
		return ACTION_KIND_DIRECT, nil
	case strings.EqualFold(kind, "agent_call"):
		return ACTION_KIND_AGENT_CALL, nil
	case strings.EqualFold(kind, "script"):
		return ACTION_KIND_SCRIPT, nil
	}
	return "", fmt.Errorf("unknown action kind %s", kind)
}

// DirectFunc is the deterministic action boundary. The returned event may be
// empty, in which case the engine derives "success". Panics do not cross the
// boundary, the engine converts them to a "failure" event.
type DirectFunc func(ec *ExecutionContext) (any, string, error)

// ActionRef is a tagged variant. Exactly one of the kind specific field sets
// is meaningful:
//
//	direct     -> Handler, or HandlerName resolved against a handler registry
//	agent_call -> Capability ("solve"|"reason") and PromptTemplate
//	script     -> Expression evaluated by the script runtime
type ActionRef struct {
	Kind           ActionKind     `json:"kind"`
	Handler        DirectFunc     `json:"-"`
	HandlerName    string         `json:"handler,omitempty"`
	Capability     string         `json:"capability,omitempty"`
	PromptTemplate string         `json:"promptTemplate,omitempty"`
	Expression     string         `json:"expression,omitempty"`
	InputParams    map[string]any `json:"parameters,omitempty"`
}

// WorkflowDefinition is read-only after registration. Updates register a new
// definition, never mutate one in place.
type WorkflowDefinition struct {
	Name    string               `json:"name"`
	Fsm     *FSM                 `json:"fsm"`
	Actions map[string]ActionRef `json:"actions"`
}

type WorkflowMetadata struct {
	Domain          string    `json:"domain"`
	Description     string    `json:"description"`
	Tags            []string  `json:"tags"`
	Version         string    `json:"version"`
	Author          string    `json:"author"`
	CreatedAt       time.Time `json:"createdAt"`
	UsageCount     int64     `json:"usageCount"`
	SuccessRate    float64   `json:"successRate"`
	AvgExecutionMs float64   `json:"avgExecutionMs"`
}

type SolveRequest struct {
	Problem string         `json:"problem"`
	Params  map[string]any `json:"params"`
}

type WorkflowRunRequest struct {
	Name  string         `json:"name"`
	Input map[string]any `json:"input"`
}

type RegisterRequest struct {
	Workflow  *WorkflowDefinition `json:"workflow"`
	Metadata  WorkflowMetadata    `json:"metadata"`
	Overwrite bool                `json:"overwrite"`
}
