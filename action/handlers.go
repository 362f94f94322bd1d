package action

import (
	"fmt"
	"sync"

	"github.com/praxis-ai/praxis/model"
)

// Handlers resolves named direct actions. Workflow definitions that travel
// over the wire reference direct handlers by name, the owning process
// registers the callables here before runs start.
type Handlers struct {
	mu       sync.RWMutex
	handlers map[string]model.DirectFunc
}

func NewHandlers() *Handlers {
	return &Handlers{
		handlers: make(map[string]model.DirectFunc),
	}
}

func (h *Handlers) Register(name string, fn model.DirectFunc) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.handlers[name] = fn
}

func (h *Handlers) Get(name string) (model.DirectFunc, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	fn, ok := h.handlers[name]
	if !ok {
		return nil, fmt.Errorf("no direct handler registered with name %s", name)
	}
	return fn, nil
}
