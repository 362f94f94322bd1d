package model

const TASK_TYPE_REASONING string = "reasoning"
const TASK_TYPE_WORKFLOW_SELECTION string = "workflow_selection"
const TASK_TYPE_WORKFLOW_SYNTHESIS string = "workflow_synthesis"
const TASK_TYPE_SOLVE string = "solve"

const RESPONSE_STATUS_SUCCESS string = "success"
const RESPONSE_STATUS_FAILURE string = "failure"

type StructuredRequest struct {
	TaskType string         `json:"taskType"`
	Payload  map[string]any `json:"payload"`
	SchemaId string         `json:"schemaId"`
}

// StructuredResponse either carries a Result validated against the schema
// identified by the request's SchemaId, or a failure status with a non empty
// Error. Callers treat failure as a normal, handleable outcome.
type StructuredResponse struct {
	Status string         `json:"status"`
	Result map[string]any `json:"result"`
	Error  string         `json:"error,omitempty"`
}

func (r StructuredResponse) Failed() bool {
	return r.Status != RESPONSE_STATUS_SUCCESS
}

const STRATEGY_DIRECT string = "direct"
const STRATEGY_PROCEDURE string = "procedure"
const STRATEGY_EXISTING_WORKFLOW string = "existing_workflow"
const STRATEGY_NEW_WORKFLOW string = "new_workflow"

// Analysis is the typed view over a validated "reasoning" oracle result.
type Analysis struct {
	Strategy     string
	Answer       any
	Steps        []string
	WorkflowName string
	Confidence   float64
}

func AnalysisFromResult(result map[string]any) Analysis {
	analysis := Analysis{}
	if v, ok := result["strategy"].(string); ok {
		analysis.Strategy = v
	}
	analysis.Answer = result["answer"]
	if steps, ok := result["steps"].([]any); ok {
		for _, s := range steps {
			if step, ok := s.(string); ok {
				analysis.Steps = append(analysis.Steps, step)
			}
		}
	}
	if v, ok := result["workflow_name"].(string); ok {
		analysis.WorkflowName = v
	}
	if v, ok := result["confidence"].(float64); ok {
		analysis.Confidence = v
	}
	return analysis
}
