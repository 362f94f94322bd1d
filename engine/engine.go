package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/praxis-ai/praxis/action"
	"github.com/praxis-ai/praxis/logger"
	"github.com/praxis-ai/praxis/model"
	"github.com/praxis-ai/praxis/registry"
	"go.uber.org/zap"
)

// Invoker is how agent_call actions reach back into the agent. The engine
// depends on this interface, not on the agent package, recursion enters here.
type Invoker interface {
	SolveSub(ctx context.Context, problem string, ec *model.ExecutionContext) (any, error)
	ReasonSub(ctx context.Context, question string, ec *model.ExecutionContext) (map[string]any, error)
}

// runFailure marks an unhandled "failure" event inside a run attempt. It is
// the only error class the whole run retry applies to, structural and
// recursion errors bubble immediately.
type runFailure struct {
	state string
	cause error
}

func (e *runFailure) Error() string {
	return fmt.Sprintf("action in state %s failed: %v", e.state, e.cause)
}

func (e *runFailure) Unwrap() error {
	return e.cause
}

type Engine struct {
	registry *registry.Registry
	handlers *action.Handlers
}

func New(reg *registry.Registry, handlers *action.Handlers) *Engine {
	return &Engine{
		registry: reg,
		handlers: handlers,
	}
}

// Execute walks the workflow's FSM on a fresh clone until a terminal state is
// reached and returns the last action's value. An unhandled failure restarts
// the whole run from the initial state once, a second failure surfaces
// ErrWorkflowExecutionFailed. Engine level states move
// RUNNING -> RETRYING -> COMPLETED | FAILED and are recorded on the Result.
func (e *Engine) Execute(ctx context.Context, def *model.WorkflowDefinition, invoker Invoker, ec *model.ExecutionContext) (*model.Result, error) {
	start := time.Now()
	res := &model.Result{
		RunId:       ec.Id,
		Workflow:    def.Name,
		EngineTrace: []model.EngineState{model.ENGINE_RUNNING},
	}
	input := ec.Data["input"]
	var out any
	var err error
	for attempt := 1; attempt <= 2; attempt++ {
		res.Attempts = attempt
		out, err = e.run(ctx, def, invoker, ec)
		if err == nil {
			break
		}
		var rf *runFailure
		if !errors.As(err, &rf) {
			break
		}
		if attempt == 1 {
			res.EngineTrace = append(res.EngineTrace, model.ENGINE_RETRYING)
			logger.Info("retrying workflow from initial state",
				zap.String("workflow", def.Name), zap.String("runId", ec.Id), zap.String("state", rf.state))
			ec.Data = map[string]any{"input": input}
		} else {
			err = fmt.Errorf("%w: %s: %v", model.ErrWorkflowExecutionFailed, def.Name, rf.cause)
		}
	}
	res.Duration = time.Since(start)
	res.Trace = ec.Trace
	if err == nil {
		res.Output = out
		res.EngineTrace = append(res.EngineTrace, model.ENGINE_COMPLETED)
		logger.Info("workflow completed", zap.String("workflow", def.Name), zap.String("runId", ec.Id))
	} else {
		res.EngineTrace = append(res.EngineTrace, model.ENGINE_FAILED)
		logger.Error("workflow failed", zap.String("workflow", def.Name), zap.String("runId", ec.Id), zap.Error(err))
	}
	if e.registry != nil {
		e.registry.UpdateUsageStats(def.Name, err == nil, res.Duration)
	}
	if err != nil {
		return res, err
	}
	return res, nil
}

func (e *Engine) run(ctx context.Context, def *model.WorkflowDefinition, invoker Invoker, ec *model.ExecutionContext) (any, error) {
	fsm := def.Fsm.Clone()
	ec.Fsm = fsm
	var last any
	for !fsm.IsTerminal(fsm.Current) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		ref, ok := def.Actions[fsm.Current]
		if !ok {
			return nil, fmt.Errorf("%w: %s", model.ErrUnboundState, fsm.Current)
		}
		value, event, aerr := e.dispatch(ctx, ref, invoker, ec)
		if aerr != nil {
			if model.IsFatal(aerr) || ctx.Err() != nil {
				return nil, aerr
			}
			logger.Error("action failed", zap.String("workflow", def.Name),
				zap.String("state", fsm.Current), zap.Error(aerr))
			event = model.EVENT_FAILURE
		}
		if event == "" {
			event = model.EVENT_SUCCESS
		}
		if event == model.EVENT_FAILURE && aerr != nil && !fsm.HasTransition(fsm.Current, model.EVENT_FAILURE) {
			// no failure edge in the workflow itself, hand the failure to
			// the engine level retry policy
			return nil, &runFailure{state: fsm.Current, cause: aerr}
		}
		next, err := fsm.Next(fsm.Current, event)
		if err != nil {
			return nil, err
		}
		ec.Trace = append(ec.Trace, model.TraceEntry{State: fsm.Current, Event: event, Timestamp: time.Now()})
		if aerr == nil {
			ec.Data[fsm.Current] = map[string]any{"output": value}
			last = value
		}
		fsm.Current = next
	}
	return last, nil
}

func (e *Engine) dispatch(ctx context.Context, ref model.ActionRef, invoker Invoker, ec *model.ExecutionContext) (value any, event string, err error) {
	defer func() {
		if r := recover(); r != nil {
			value, event = nil, ""
			err = fmt.Errorf("action panicked: %v", r)
		}
	}()
	switch ref.Kind {
	case model.ACTION_KIND_DIRECT:
		fn := ref.Handler
		if fn == nil {
			fn, err = e.handlers.Get(ref.HandlerName)
			if err != nil {
				return nil, "", err
			}
		}
		return fn(ec)
	case model.ACTION_KIND_AGENT_CALL:
		prompt := action.Render(ref.PromptTemplate, ec.Data)
		switch ref.Capability {
		case "solve":
			v, serr := invoker.SolveSub(ctx, prompt, ec)
			return v, "", serr
		case "reason":
			v, rerr := invoker.ReasonSub(ctx, prompt, ec)
			return v, "", rerr
		default:
			return nil, "", fmt.Errorf("unknown agent capability %s", ref.Capability)
		}
	case model.ACTION_KIND_SCRIPT:
		data := ec.Data
		if len(ref.InputParams) > 0 {
			data = make(map[string]any, len(ec.Data)+1)
			for k, v := range ec.Data {
				data[k] = v
			}
			data["params"] = action.ResolveParams(ec.Data, ref.InputParams)
		}
		state, serr := action.RunScript(ref.Expression, data)
		if serr != nil {
			return nil, "", serr
		}
		return action.ScriptValue(state), action.ScriptEvent(state), nil
	default:
		return nil, "", fmt.Errorf("unknown action kind %s", ref.Kind)
	}
}
