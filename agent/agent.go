package agent

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/praxis-ai/praxis/action"
	"github.com/praxis-ai/praxis/engine"
	"github.com/praxis-ai/praxis/logger"
	"github.com/praxis-ai/praxis/model"
	"github.com/praxis-ai/praxis/oracle"
	"github.com/praxis-ai/praxis/registry"
	"go.uber.org/zap"
)

type Config struct {
	MaxDepth            int
	SimilarityTopK      int
	SimilarityThreshold float64
}

// Agent is the cognitive facade over the registry, the oracle client and the
// execution engine. Solve is the recursive entry point, agent_call actions
// inside running workflows come back in through SolveSub/ReasonSub.
type Agent struct {
	oracle   *oracle.Client
	registry *registry.Registry
	engine   *engine.Engine
	conf     Config
}

var _ engine.Invoker = new(Agent)

func New(oracleClient *oracle.Client, reg *registry.Registry, eng *engine.Engine, conf Config) *Agent {
	if conf.MaxDepth <= 0 {
		conf.MaxDepth = 5
	}
	if conf.SimilarityTopK <= 0 {
		conf.SimilarityTopK = 3
	}
	if conf.SimilarityThreshold <= 0 {
		conf.SimilarityThreshold = 0.3
	}
	return &Agent{
		oracle:   oracleClient,
		registry: reg,
		engine:   eng,
		conf:     conf,
	}
}

// Reason is a single structured oracle call used for analysis and strategy
// decisions. It evaluates the layered policy: answer directly, emit a short
// deterministic procedure, reuse an existing workflow, or synthesize one.
func (a *Agent) Reason(ctx context.Context, question string, payload map[string]any) (model.Analysis, error) {
	resp := a.oracle.Call(ctx, model.StructuredRequest{
		TaskType: model.TASK_TYPE_REASONING,
		Payload: map[string]any{
			"question": question,
			"context":  payload,
		},
		SchemaId: "reasoning",
	})
	if resp.Failed() {
		return model.Analysis{}, fmt.Errorf("reasoning failed: %s", resp.Error)
	}
	return model.AnalysisFromResult(resp.Result), nil
}

// Plan resolves the workflow for a problem. It returns nil when the policy
// answers without one, otherwise registry exact match, then similarity match,
// then oracle driven synthesis, registering the synthesized result.
func (a *Agent) Plan(ctx context.Context, problem string) (*model.WorkflowDefinition, error) {
	analysis, err := a.Reason(ctx, problem, nil)
	if err != nil {
		return nil, err
	}
	if analysis.Strategy == model.STRATEGY_DIRECT || analysis.Strategy == model.STRATEGY_PROCEDURE {
		return nil, nil
	}
	return a.planFromAnalysis(ctx, problem, analysis)
}

// Solve is the recursive entry point. It either returns a solution or one
// named error from the taxonomy, never a raw internal fault.
func (a *Agent) Solve(ctx context.Context, problem string, params map[string]any) (any, error) {
	return a.solve(ctx, problem, params, 0, model.NewTrail())
}

// SolveAll fans independent sub problems out on their own goroutines and
// joins them explicitly, each branch carries its own trail copy.
func (a *Agent) SolveAll(ctx context.Context, problems []string) ([]any, error) {
	type outcome struct {
		idx   int
		value any
		err   error
	}
	results := make([]any, len(problems))
	outcomes := make(chan outcome, len(problems))
	for i, problem := range problems {
		go func(idx int, p string) {
			value, err := a.solve(ctx, p, nil, 0, model.NewTrail())
			outcomes <- outcome{idx: idx, value: value, err: err}
		}(i, problem)
	}
	var firstErr error
	for range problems {
		o := <-outcomes
		results[o.idx] = o.value
		if o.err != nil && firstErr == nil {
			firstErr = o.err
		}
	}
	return results, firstErr
}

// ExecuteWorkflow is a thin delegate to the execution engine.
func (a *Agent) ExecuteWorkflow(ctx context.Context, def *model.WorkflowDefinition, input map[string]any) (*model.Result, error) {
	return a.executeAt(ctx, def, input, 0, model.NewTrail())
}

// SolveSub re-enters solve from an agent_call action. The engine hands over
// the calling run's context so depth and trail thread through the recursion.
func (a *Agent) SolveSub(ctx context.Context, problem string, ec *model.ExecutionContext) (any, error) {
	return a.solve(ctx, problem, nil, ec.Depth+1, ec.Trail)
}

func (a *Agent) ReasonSub(ctx context.Context, question string, ec *model.ExecutionContext) (map[string]any, error) {
	resp := a.oracle.Call(ctx, model.StructuredRequest{
		TaskType: model.TASK_TYPE_REASONING,
		Payload: map[string]any{
			"question": question,
		},
		SchemaId: "reasoning",
	})
	if resp.Failed() {
		return nil, fmt.Errorf("reasoning failed: %s", resp.Error)
	}
	return resp.Result, nil
}

func (a *Agent) solve(ctx context.Context, problem string, params map[string]any, depth int, trail model.Trail) (any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if depth > a.conf.MaxDepth {
		return nil, fmt.Errorf("%w: depth %d exceeds limit %d", model.ErrRecursionLimitExceeded, depth, a.conf.MaxDepth)
	}
	h := ProblemHash(problem)
	if trail.Seen(h) {
		return nil, fmt.Errorf("%w: %s", model.ErrCircularDependency, problem)
	}
	trail.Add(h)
	defer trail.Remove(h)

	analysis, err := a.Reason(ctx, problem, params)
	if err != nil {
		logger.Debug("strategy reasoning unavailable, attempting direct answer", zap.String("problem", problem), zap.Error(err))
		return a.directSolve(ctx, problem, params)
	}
	logger.Info("strategy selected", zap.String("problem", problem),
		zap.String("strategy", analysis.Strategy), zap.Float64("confidence", analysis.Confidence), zap.Int("depth", depth))

	switch analysis.Strategy {
	case model.STRATEGY_DIRECT:
		if analysis.Answer != nil {
			return analysis.Answer, nil
		}
		return a.directSolve(ctx, problem, params)
	case model.STRATEGY_PROCEDURE:
		value, perr := action.RunProcedure(analysis.Steps, procedureData(problem, params))
		if perr != nil {
			logger.Debug("procedure failed, attempting direct answer", zap.String("problem", problem), zap.Error(perr))
			return a.directSolve(ctx, problem, params)
		}
		return value, nil
	case model.STRATEGY_EXISTING_WORKFLOW, model.STRATEGY_NEW_WORKFLOW:
		def, perr := a.planFromAnalysis(ctx, problem, analysis)
		if perr != nil || def == nil {
			logger.Debug("planning failed, attempting direct answer", zap.String("problem", problem), zap.Error(perr))
			return a.directSolve(ctx, problem, params)
		}
		res, eerr := a.executeAt(ctx, def, workflowInput(problem, params), depth, trail)
		if eerr != nil {
			if model.IsFatal(eerr) || ctx.Err() != nil {
				return nil, eerr
			}
			logger.Debug("workflow failed, attempting direct answer", zap.String("workflow", def.Name), zap.Error(eerr))
			return a.directSolve(ctx, problem, params)
		}
		return res.Output, nil
	default:
		return a.directSolve(ctx, problem, params)
	}
}

// directSolve is the last local recovery step, one plain solve call against
// the oracle. Its failure is the point where solve gives up.
func (a *Agent) directSolve(ctx context.Context, problem string, params map[string]any) (any, error) {
	resp := a.oracle.Call(ctx, model.StructuredRequest{
		TaskType: model.TASK_TYPE_SOLVE,
		Payload: map[string]any{
			"problem": problem,
			"params":  params,
		},
		SchemaId: "solve",
	})
	if resp.Failed() {
		return nil, fmt.Errorf("%w: %s: %s", model.ErrSolveFailed, problem, resp.Error)
	}
	return resp.Result["answer"], nil
}

func (a *Agent) planFromAnalysis(ctx context.Context, problem string, analysis model.Analysis) (*model.WorkflowDefinition, error) {
	if len(analysis.WorkflowName) > 0 {
		def, err := a.registry.FindByName(analysis.WorkflowName)
		if err == nil {
			return def, nil
		}
	}
	matches := a.registry.FindSimilar(problem, a.conf.SimilarityTopK)
	if len(matches) > 0 && matches[0].Score >= a.conf.SimilarityThreshold {
		if name := a.selectWorkflow(ctx, problem, matches); len(name) > 0 {
			def, err := a.registry.FindByName(name)
			if err == nil {
				logger.Info("reusing similar workflow", zap.String("workflow", name), zap.Float64("score", matches[0].Score))
				return def, nil
			}
		}
	}
	return a.synthesize(ctx, problem)
}

// selectWorkflow asks the oracle whether one of the similar candidates is
// adaptable to the problem. An empty name means none of them is.
func (a *Agent) selectWorkflow(ctx context.Context, problem string, matches []registry.Match) string {
	candidates := make([]map[string]any, 0, len(matches))
	for _, m := range matches {
		candidates = append(candidates, map[string]any{
			"name":        m.Workflow.Name,
			"description": m.Metadata.Description,
			"score":       m.Score,
		})
	}
	resp := a.oracle.Call(ctx, model.StructuredRequest{
		TaskType: model.TASK_TYPE_WORKFLOW_SELECTION,
		Payload: map[string]any{
			"problem":    problem,
			"candidates": candidates,
		},
		SchemaId: "workflow_selection",
	})
	if resp.Failed() {
		return ""
	}
	name, _ := resp.Result["selected_workflow"].(string)
	return name
}

func (a *Agent) synthesize(ctx context.Context, problem string) (*model.WorkflowDefinition, error) {
	resp := a.oracle.Call(ctx, model.StructuredRequest{
		TaskType: model.TASK_TYPE_WORKFLOW_SYNTHESIS,
		Payload: map[string]any{
			"problem": problem,
		},
		SchemaId: "workflow_synthesis",
	})
	if resp.Failed() {
		return nil, fmt.Errorf("workflow synthesis failed: %s", resp.Error)
	}
	def, meta, err := BuildWorkflow(resp.Result)
	if err != nil {
		return nil, err
	}
	if len(meta.Description) == 0 {
		meta.Description = problem
	}
	meta.Domain = "synthesized"
	meta.Author = "oracle"
	meta.Version = "1"
	meta.CreatedAt = time.Now()
	if len(meta.Tags) == 0 {
		meta.Tags = registry.Terms(problem)
	}
	err = a.registry.Register(def, meta, false)
	if err != nil {
		// name collision with an unrelated workflow, keep both
		def.Name = fmt.Sprintf("%s-%s", def.Name, uuid.New().String()[:8])
		if err = a.registry.Register(def, meta, false); err != nil {
			return nil, err
		}
	}
	logger.Info("workflow synthesized", zap.String("workflow", def.Name), zap.String("problem", problem))
	return def, nil
}

// BuildWorkflow converts a validated workflow_synthesis result into a
// runnable definition. Synthesized workflows only carry agent_call and
// script actions, direct handlers never come from the oracle.
func BuildWorkflow(result map[string]any) (*model.WorkflowDefinition, model.WorkflowMetadata, error) {
	meta := model.WorkflowMetadata{}
	name, _ := result["name"].(string)
	name = strings.TrimSpace(name)
	states := toStrings(result["states"])
	initial, _ := result["initial_state"].(string)
	fsm := model.NewFSM(states, initial)
	transitions, _ := result["transitions"].([]any)
	for _, t := range transitions {
		tm, ok := t.(map[string]any)
		if !ok {
			continue
		}
		from, _ := tm["from"].(string)
		event, _ := tm["event"].(string)
		to, _ := tm["to"].(string)
		fsm.AddTransition(from, event, to)
	}
	actions := make(map[string]model.ActionRef)
	actionList, _ := result["actions"].([]any)
	for _, aRaw := range actionList {
		am, ok := aRaw.(map[string]any)
		if !ok {
			continue
		}
		state, _ := am["state"].(string)
		kindStr, _ := am["kind"].(string)
		kind, err := model.ToActionKind(kindStr)
		if err != nil {
			return nil, meta, err
		}
		ref := model.ActionRef{Kind: kind}
		ref.Capability, _ = am["capability"].(string)
		ref.PromptTemplate, _ = am["prompt_template"].(string)
		ref.Expression, _ = am["expression"].(string)
		actions[state] = ref
	}
	if desc, ok := result["description"].(string); ok {
		meta.Description = desc
	}
	meta.Tags = toStrings(result["tags"])
	def := &model.WorkflowDefinition{
		Name:    name,
		Fsm:     fsm,
		Actions: actions,
	}
	if err := registry.Validate(def); err != nil {
		return nil, meta, fmt.Errorf("synthesized workflow is not runnable: %w", err)
	}
	return def, meta, nil
}

func toStrings(v any) []string {
	list, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(list))
	for _, item := range list {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func (a *Agent) executeAt(ctx context.Context, def *model.WorkflowDefinition, input map[string]any, depth int, trail model.Trail) (*model.Result, error) {
	ec := model.NewExecutionContext(input, depth, trail)
	return a.engine.Execute(ctx, def, a, ec)
}

func workflowInput(problem string, params map[string]any) map[string]any {
	input := map[string]any{"problem": problem}
	for k, v := range params {
		input[k] = v
	}
	return input
}

func procedureData(problem string, params map[string]any) map[string]any {
	data := map[string]any{"problem": problem}
	if params != nil {
		data["params"] = params
	}
	return data
}
