package oracle

import (
	"fmt"
	"sync"

	"github.com/xeipuuv/gojsonschema"
)

const reasoningSchema = `{
	"type": "object",
	"required": ["strategy", "confidence"],
	"properties": {
		"strategy": {
			"type": "string",
			"enum": ["direct", "procedure", "existing_workflow", "new_workflow"]
		},
		"answer": {},
		"steps": {"type": "array", "items": {"type": "string"}},
		"workflow_name": {"type": "string"},
		"confidence": {"type": "number", "minimum": 0, "maximum": 1}
	}
}`

const workflowSelectionSchema = `{
	"type": "object",
	"required": ["selected_workflow", "confidence", "reason"],
	"properties": {
		"selected_workflow": {"type": ["string", "null"]},
		"confidence": {"type": "number", "minimum": 0, "maximum": 1},
		"reason": {"type": "string"},
		"alternatives": {"type": "array", "items": {"type": "string"}}
	}
}`

const workflowSynthesisSchema = `{
	"type": "object",
	"required": ["name", "states", "initial_state", "transitions", "actions"],
	"properties": {
		"name": {"type": "string", "minLength": 1},
		"states": {"type": "array", "items": {"type": "string"}, "minItems": 1},
		"initial_state": {"type": "string"},
		"transitions": {
			"type": "array",
			"items": {
				"type": "object",
				"required": ["from", "event", "to"],
				"properties": {
					"from": {"type": "string"},
					"event": {"type": "string"},
					"to": {"type": "string"}
				}
			}
		},
		"actions": {
			"type": "array",
			"items": {
				"type": "object",
				"required": ["state", "kind"],
				"properties": {
					"state": {"type": "string"},
					"kind": {"type": "string", "enum": ["agent_call", "script"]},
					"capability": {"type": "string", "enum": ["solve", "reason"]},
					"prompt_template": {"type": "string"},
					"expression": {"type": "string"}
				}
			}
		},
		"tags": {"type": "array", "items": {"type": "string"}},
		"description": {"type": "string"}
	}
}`

const solveSchema = `{
	"type": "object",
	"required": ["answer"],
	"properties": {
		"answer": {},
		"explanation": {"type": "string"}
	}
}`

// SchemaSet holds the compiled response schemas keyed by schema id. The four
// built in task type schemas are registered on construction, callers add
// their own for new task types.
type SchemaSet struct {
	mu      sync.RWMutex
	sources map[string]string
	schemas map[string]*gojsonschema.Schema
}

func NewSchemaSet() (*SchemaSet, error) {
	s := &SchemaSet{
		sources: make(map[string]string),
		schemas: make(map[string]*gojsonschema.Schema),
	}
	defaults := map[string]string{
		"reasoning":          reasoningSchema,
		"workflow_selection": workflowSelectionSchema,
		"workflow_synthesis": workflowSynthesisSchema,
		"solve":              solveSchema,
	}
	for id, body := range defaults {
		if err := s.Register(id, body); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func (s *SchemaSet) Register(id string, body string) error {
	compiled, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(body))
	if err != nil {
		return fmt.Errorf("schema %s does not compile: %w", id, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sources[id] = body
	s.schemas[id] = compiled
	return nil
}

func (s *SchemaSet) Get(id string) (*gojsonschema.Schema, string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	schema, ok := s.schemas[id]
	if !ok {
		return nil, "", fmt.Errorf("no schema registered with id %s", id)
	}
	return schema, s.sources[id], nil
}
