package model

import (
	"time"

	"github.com/google/uuid"
)

// Trail is the set of in-flight problem hashes carried down the recursion
// stack. A repeat hash at a deeper level means a workflow is decomposing a
// problem into itself.
type Trail map[uint64]struct{}

func NewTrail() Trail {
	return make(Trail)
}

func (t Trail) Seen(h uint64) bool {
	_, ok := t[h]
	return ok
}

func (t Trail) Add(h uint64) {
	t[h] = struct{}{}
}

func (t Trail) Remove(h uint64) {
	delete(t, h)
}

// Clone is used when independent sub-problems are fanned out concurrently,
// each branch gets its own trail.
func (t Trail) Clone() Trail {
	out := make(Trail, len(t))
	for h := range t {
		out[h] = struct{}{}
	}
	return out
}

type TraceEntry struct {
	State     string    `json:"state"`
	Event     string    `json:"event"`
	Timestamp time.Time `json:"timestamp"`
}

// ExecutionContext is the per run working memory. It is owned exclusively by
// the run that created it and discarded when the run returns.
type ExecutionContext struct {
	Id    string
	Data  map[string]any
	Fsm   *FSM
	Depth int
	Trail Trail
	Trace []TraceEntry
}

func NewExecutionContext(input map[string]any, depth int, trail Trail) *ExecutionContext {
	data := make(map[string]any)
	data["input"] = input
	if trail == nil {
		trail = NewTrail()
	}
	return &ExecutionContext{
		Id:    uuid.New().String(),
		Data:  data,
		Depth: depth,
		Trail: trail,
	}
}

type EngineState string

const ENGINE_RUNNING EngineState = "RUNNING"
const ENGINE_RETRYING EngineState = "RETRYING"
const ENGINE_COMPLETED EngineState = "COMPLETED"
const ENGINE_FAILED EngineState = "FAILED"

// Result is what a completed run returns to its caller.
type Result struct {
	RunId       string        `json:"runId"`
	Workflow    string        `json:"workflow"`
	Output      any           `json:"output"`
	Trace       []TraceEntry  `json:"trace"`
	EngineTrace []EngineState `json:"engineTrace"`
	Attempts    int           `json:"attempts"`
	Duration    time.Duration `json:"duration"`
}
