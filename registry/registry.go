package registry

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/praxis-ai/praxis/logger"
	"github.com/praxis-ai/praxis/model"
	"go.uber.org/zap"
)

type Match struct {
	Workflow *model.WorkflowDefinition
	Metadata model.WorkflowMetadata
	Score    float64
}

type Record struct {
	Workflow *model.WorkflowDefinition `json:"workflow"`
	Metadata model.WorkflowMetadata    `json:"metadata"`
}

// Registry stores workflow definitions keyed by name with a tag inverted
// index for similarity candidate generation. It is the one shared mutable
// resource in the system, a single mutex serializes writes; usage stats
// updates are applied atomically per run under the same lock.
type Registry struct {
	mu       sync.RWMutex
	entries  map[string]*Record
	tagIndex map[string]map[string]struct{}
	lookups  int64
	Scorer   func(description string, meta model.WorkflowMetadata) float64
}

func New() *Registry {
	r := &Registry{
		entries:  make(map[string]*Record),
		tagIndex: make(map[string]map[string]struct{}),
	}
	r.Scorer = func(description string, meta model.WorkflowMetadata) float64 {
		return CosineSimilarity(description, metadataTerms(meta))
	}
	return r
}

func (r *Registry) Register(def *model.WorkflowDefinition, meta model.WorkflowMetadata, overwrite bool) error {
	if err := Validate(def); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.entries[def.Name]; ok && !overwrite {
		return fmt.Errorf("%w: %s", model.ErrDuplicateName, def.Name)
	}
	if old, ok := r.entries[def.Name]; ok {
		r.unindex(def.Name, old.Metadata.Tags)
	}
	if meta.CreatedAt.IsZero() {
		meta.CreatedAt = time.Now()
	}
	r.entries[def.Name] = &Record{Workflow: def, Metadata: meta}
	for _, tag := range meta.Tags {
		names, ok := r.tagIndex[tag]
		if !ok {
			names = make(map[string]struct{})
			r.tagIndex[tag] = names
		}
		names[def.Name] = struct{}{}
	}
	logger.Info("workflow registered", zap.String("workflow", def.Name), zap.String("domain", meta.Domain))
	return nil
}

func (r *Registry) FindByName(name string) (*model.WorkflowDefinition, error) {
	atomic.AddInt64(&r.lookups, 1)
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.entries[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", model.ErrWorkflowNotFound, name)
	}
	return rec.Workflow, nil
}

func (r *Registry) GetMetadata(name string) (model.WorkflowMetadata, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.entries[name]
	if !ok {
		return model.WorkflowMetadata{}, fmt.Errorf("%w: %s", model.ErrWorkflowNotFound, name)
	}
	return rec.Metadata, nil
}

// FindSimilar scores candidates generated from the tag inverted index against
// the problem description. When the description shares no terms with any tag
// the whole registry is scanned, registries stay small enough for that.
func (r *Registry) FindSimilar(description string, topK int) []Match {
	atomic.AddInt64(&r.lookups, 1)
	r.mu.RLock()
	defer r.mu.RUnlock()
	candidates := make(map[string]struct{})
	for _, term := range Terms(description) {
		for name := range r.tagIndex[term] {
			candidates[name] = struct{}{}
		}
	}
	if len(candidates) == 0 {
		for name := range r.entries {
			candidates[name] = struct{}{}
		}
	}
	matches := make([]Match, 0, len(candidates))
	for name := range candidates {
		rec := r.entries[name]
		score := r.Scorer(description, rec.Metadata)
		if score <= 0 {
			continue
		}
		matches = append(matches, Match{Workflow: rec.Workflow, Metadata: rec.Metadata, Score: score})
	}
	sortMatches(matches)
	if topK > 0 && len(matches) > topK {
		matches = matches[:topK]
	}
	return matches
}

// UpdateUsageStats folds one completed run into the workflow's metadata.
// This is the only mutation permitted after registration.
func (r *Registry) UpdateUsageStats(name string, success bool, duration time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.entries[name]
	if !ok {
		return
	}
	meta := rec.Metadata
	succeeded := meta.SuccessRate * float64(meta.UsageCount)
	if success {
		succeeded++
	}
	totalMs := meta.AvgExecutionMs * float64(meta.UsageCount)
	meta.UsageCount++
	meta.SuccessRate = succeeded / float64(meta.UsageCount)
	meta.AvgExecutionMs = (totalMs + float64(duration.Milliseconds())) / float64(meta.UsageCount)
	rec.Metadata = meta
}

func (r *Registry) ListAll() []Record {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Record, 0, len(r.entries))
	for _, rec := range r.entries {
		out = append(out, *rec)
	}
	return out
}

func (r *Registry) Remove(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.entries[name]
	if !ok {
		return fmt.Errorf("%w: %s", model.ErrWorkflowNotFound, name)
	}
	r.unindex(name, rec.Metadata.Tags)
	delete(r.entries, name)
	return nil
}

// Lookups reports how many find operations the registry served.
func (r *Registry) Lookups() int64 {
	return atomic.LoadInt64(&r.lookups)
}

// Export and Import are the persistence boundary, a file or database backed
// registry loads through them without changing the in memory contract.
func (r *Registry) Export() []Record {
	return r.ListAll()
}

func (r *Registry) Import(records []Record) error {
	for _, rec := range records {
		if err := r.Register(rec.Workflow, rec.Metadata, true); err != nil {
			return err
		}
	}
	return nil
}

func (r *Registry) unindex(name string, tags []string) {
	for _, tag := range tags {
		if names, ok := r.tagIndex[tag]; ok {
			delete(names, name)
			if len(names) == 0 {
				delete(r.tagIndex, tag)
			}
		}
	}
}

func sortMatches(matches []Match) {
	for i := 1; i < len(matches); i++ {
		for j := i; j > 0 && matches[j].Score > matches[j-1].Score; j-- {
			matches[j], matches[j-1] = matches[j-1], matches[j]
		}
	}
}

// Validate checks a definition is structurally runnable before it is
// accepted: a valid FSM and an action bound to every non terminal state.
func Validate(def *model.WorkflowDefinition) error {
	if def == nil || def.Fsm == nil {
		return fmt.Errorf("workflow definition is incomplete")
	}
	if len(def.Name) == 0 {
		return fmt.Errorf("workflow name can not be empty")
	}
	if err := def.Fsm.Validate(); err != nil {
		return err
	}
	for _, state := range def.Fsm.States {
		if def.Fsm.IsTerminal(state) {
			continue
		}
		ref, ok := def.Actions[state]
		if !ok {
			return fmt.Errorf("%w: %s", model.ErrUnboundState, state)
		}
		if err := validateAction(state, ref); err != nil {
			return err
		}
	}
	return nil
}

func validateAction(state string, ref model.ActionRef) error {
	switch ref.Kind {
	case model.ACTION_KIND_DIRECT:
		if ref.Handler == nil && len(ref.HandlerName) == 0 {
			return fmt.Errorf("state %s: direct action needs a handler or handler name", state)
		}
	case model.ACTION_KIND_AGENT_CALL:
		if ref.Capability != "solve" && ref.Capability != "reason" {
			return fmt.Errorf("state %s: agent_call capability must be solve or reason", state)
		}
		if len(ref.PromptTemplate) == 0 {
			return fmt.Errorf("state %s: agent_call needs a prompt template", state)
		}
	case model.ACTION_KIND_SCRIPT:
		if len(ref.Expression) == 0 {
			return fmt.Errorf("state %s: script expression can not be empty", state)
		}
	default:
		return fmt.Errorf("state %s: unknown action kind %s", state, ref.Kind)
	}
	return nil
}
