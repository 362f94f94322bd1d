package oracle

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	c "github.com/patrickmn/go-cache"
	"github.com/praxis-ai/praxis/logger"
	"github.com/praxis-ai/praxis/model"
	"github.com/xeipuuv/gojsonschema"
	"go.uber.org/zap"
)

// Augmenter builds the follow up prompt after a parse or validation failure.
type Augmenter func(prompt string, cause string, schema string) string

// Client turns a typed request into a schema validated typed response. It
// either returns a result that validates against the request's schema or a
// failure status with a non empty error, never a partially parsed result.
type Client struct {
	provider  Provider
	schemas   *SchemaSet
	cache     *c.Cache
	Augmenter Augmenter
}

func NewClient(provider Provider, cacheTTL time.Duration) (*Client, error) {
	schemas, err := NewSchemaSet()
	if err != nil {
		return nil, err
	}
	if cacheTTL <= 0 {
		cacheTTL = 5 * time.Minute
	}
	return &Client{
		provider:  provider,
		schemas:   schemas,
		cache:     c.New(cacheTTL, 10*time.Minute),
		Augmenter: defaultAugmenter,
	}, nil
}

func (cl *Client) Schemas() *SchemaSet {
	return cl.schemas
}

func (cl *Client) Call(ctx context.Context, req model.StructuredRequest) model.StructuredResponse {
	schema, schemaSource, err := cl.schemas.Get(req.SchemaId)
	if err != nil {
		return failure(err.Error())
	}
	cacheKey, cacheable := requestKey(req)
	if cacheable {
		if cached, found := cl.cache.Get(cacheKey); found {
			return cached.(model.StructuredResponse)
		}
	}
	prompt, err := renderPrompt(req, schemaSource)
	if err != nil {
		return failure(err.Error())
	}
	var lastCause string
	for attempt := 0; attempt < 2; attempt++ {
		if attempt > 0 {
			prompt = cl.Augmenter(prompt, lastCause, schemaSource)
		}
		reply, err := cl.provider.Complete(ctx, prompt)
		if err != nil {
			if ctx.Err() != nil {
				return failure(ctx.Err().Error())
			}
			lastCause = err.Error()
			logger.Error("oracle call failed", zap.String("taskType", req.TaskType), zap.Int("attempt", attempt+1), zap.Error(err))
			continue
		}
		result, cause := validateReply(reply, schema)
		if cause != "" {
			lastCause = cause
			logger.Debug("oracle reply rejected", zap.String("taskType", req.TaskType), zap.Int("attempt", attempt+1), zap.String("cause", cause))
			continue
		}
		resp := model.StructuredResponse{
			Status: model.RESPONSE_STATUS_SUCCESS,
			Result: result,
		}
		if cacheable {
			cl.cache.Set(cacheKey, resp, c.DefaultExpiration)
		}
		return resp
	}
	return failure(lastCause)
}

func validateReply(reply string, schema *gojsonschema.Schema) (map[string]any, string) {
	raw, ok := extractJSON(reply)
	if !ok {
		return nil, "reply contains no JSON object"
	}
	validation, err := schema.Validate(gojsonschema.NewStringLoader(raw))
	if err != nil {
		return nil, fmt.Sprintf("reply is not valid JSON: %v", err)
	}
	if !validation.Valid() {
		causes := make([]string, 0, len(validation.Errors()))
		for _, desc := range validation.Errors() {
			causes = append(causes, desc.String())
		}
		return nil, strings.Join(causes, "; ")
	}
	var result map[string]any
	if err := json.Unmarshal([]byte(raw), &result); err != nil {
		return nil, fmt.Sprintf("reply is not a JSON object: %v", err)
	}
	return result, ""
}

// extractJSON pulls the outermost JSON object out of a reply that may wrap it
// in prose or a code fence.
func extractJSON(reply string) (string, bool) {
	start := strings.Index(reply, "{")
	end := strings.LastIndex(reply, "}")
	if start < 0 || end <= start {
		return "", false
	}
	return reply[start : end+1], true
}

func renderPrompt(req model.StructuredRequest, schemaSource string) (string, error) {
	payload, err := json.MarshalIndent(req.Payload, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal request payload: %w", err)
	}
	var b strings.Builder
	b.WriteString("You are a workflow orchestration oracle.\n")
	b.WriteString(fmt.Sprintf("Task type: %s\n", req.TaskType))
	b.WriteString("Input:\n")
	b.Write(payload)
	b.WriteString("\n\nRespond with a single JSON object and nothing else. It must validate against this JSON schema:\n")
	b.WriteString(schemaSource)
	return b.String(), nil
}

func defaultAugmenter(prompt string, cause string, schema string) string {
	var b strings.Builder
	b.WriteString(prompt)
	b.WriteString("\n\nYour previous reply was rejected: ")
	b.WriteString(cause)
	b.WriteString("\nReturn only a JSON object that validates against the schema above.")
	return b.String()
}

func requestKey(req model.StructuredRequest) (string, bool) {
	// only idempotent reasoning style calls are cached, synthesis should
	// produce a fresh workflow each time it is asked
	if req.TaskType == model.TASK_TYPE_WORKFLOW_SYNTHESIS {
		return "", false
	}
	payload, err := json.Marshal(req.Payload)
	if err != nil {
		return "", false
	}
	return fmt.Sprintf("%s:%s:%s", req.TaskType, req.SchemaId, payload), true
}

func failure(cause string) model.StructuredResponse {
	if cause == "" {
		cause = "oracle did not produce a valid response"
	}
	return model.StructuredResponse{
		Status: model.RESPONSE_STATUS_FAILURE,
		Error:  cause,
	}
}
