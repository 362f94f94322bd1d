package engine

import (
	"context"
	"fmt"
	"sync"

	"github.com/praxis-ai/praxis/logger"
	"github.com/praxis-ai/praxis/model"
	"github.com/praxis-ai/praxis/registry"
	"github.com/praxis-ai/praxis/util"
	"go.uber.org/zap"
)

type AsyncRequest struct {
	Workflow string
	Input    map[string]any
}

// AsyncRunner executes fire and forget run requests on a dedicated worker.
// The REST surface submits here when the caller does not wait for a result.
type AsyncRunner struct {
	engine   *Engine
	invoker  Invoker
	registry *registry.Registry
	worker   *util.Worker
}

func NewAsyncRunner(e *Engine, invoker Invoker, reg *registry.Registry, wg *sync.WaitGroup, capacity int) *AsyncRunner {
	r := &AsyncRunner{
		engine:   e,
		invoker:  invoker,
		registry: reg,
	}
	r.worker = util.NewWorker("async-workflow-runner", wg, r.handle, capacity)
	return r
}

func (r *AsyncRunner) Start() {
	r.worker.Start()
}

func (r *AsyncRunner) Stop() {
	r.worker.Stop()
}

// Submit returns the run id immediately, the run happens on the worker.
func (r *AsyncRunner) Submit(req AsyncRequest) (string, error) {
	if _, err := r.registry.FindByName(req.Workflow); err != nil {
		return "", err
	}
	ec := model.NewExecutionContext(req.Input, 0, nil)
	r.worker.Sender() <- asyncTask{req: req, ec: ec}
	logger.Info("workflow run submitted", zap.String("workflow", req.Workflow), zap.String("runId", ec.Id))
	return ec.Id, nil
}

type asyncTask struct {
	req AsyncRequest
	ec  *model.ExecutionContext
}

func (r *AsyncRunner) handle(t util.Task) error {
	task, ok := t.(asyncTask)
	if !ok {
		return fmt.Errorf("unexpected task type %T", t)
	}
	def, err := r.registry.FindByName(task.req.Workflow)
	if err != nil {
		return err
	}
	_, err = r.engine.Execute(context.Background(), def, r.invoker, task.ec)
	return err
}
