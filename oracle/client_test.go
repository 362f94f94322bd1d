package oracle

import (
	"context"
	"testing"
	"time"

	"github.com/praxis-ai/praxis/model"
	"github.com/stretchr/testify/require"
)

func reasoningRequest(question string) model.StructuredRequest {
	return model.StructuredRequest{
		TaskType: model.TASK_TYPE_REASONING,
		Payload:  map[string]any{"question": question},
		SchemaId: "reasoning",
	}
}

func newTestClient(t *testing.T, replies ...string) (*Client, *MockProvider) {
	provider := &MockProvider{Replies: replies}
	client, err := NewClient(provider, time.Minute)
	require.NoError(t, err)
	return client, provider
}

func TestOracleClient(t *testing.T) {
	for scenario, fn := range map[string]func(t *testing.T){
		"test valid reply first try":         testValidFirstTry,
		"test malformed reply never success": testMalformedNeverSuccess,
		"test schema violation rejected":     testSchemaViolation,
		"test retry with augmented prompt":   testRetryAugmented,
		"test reply wrapped in prose":        testWrappedReply,
		"test unknown schema id":             testUnknownSchema,
		"test response cache":                testResponseCache,
	} {
		t.Run(scenario, func(t *testing.T) {
			fn(t)
		})
	}
}

func testValidFirstTry(t *testing.T) {
	client, provider := newTestClient(t, `{"strategy": "direct", "answer": 4, "confidence": 0.99}`)
	resp := client.Call(context.Background(), reasoningRequest("what is 2+2"))
	require.Equal(t, model.RESPONSE_STATUS_SUCCESS, resp.Status)
	require.Equal(t, float64(4), resp.Result["answer"])
	require.Len(t, provider.Calls, 1)
}

func testMalformedNeverSuccess(t *testing.T) {
	client, provider := newTestClient(t, "this is not json", "still not json")
	resp := client.Call(context.Background(), reasoningRequest("unanswerable"))
	require.Equal(t, model.RESPONSE_STATUS_FAILURE, resp.Status)
	require.Nil(t, resp.Result)
	require.NotEmpty(t, resp.Error)
	require.Len(t, provider.Calls, 2)
}

func testSchemaViolation(t *testing.T) {
	// strategy outside the enum, both attempts
	reply := `{"strategy": "improvise", "confidence": 0.5}`
	client, _ := newTestClient(t, reply, reply)
	resp := client.Call(context.Background(), reasoningRequest("anything"))
	require.Equal(t, model.RESPONSE_STATUS_FAILURE, resp.Status)
	require.Nil(t, resp.Result)
	require.NotEmpty(t, resp.Error)
}

func testRetryAugmented(t *testing.T) {
	client, provider := newTestClient(t,
		`{"strategy": "improvise", "confidence": 0.5}`,
		`{"strategy": "direct", "answer": "fine", "confidence": 0.8}`,
	)
	resp := client.Call(context.Background(), reasoningRequest("retry me"))
	require.Equal(t, model.RESPONSE_STATUS_SUCCESS, resp.Status)
	require.Len(t, provider.Calls, 2)
	require.Contains(t, provider.Calls[1], "previous reply was rejected")
}

func testWrappedReply(t *testing.T) {
	reply := "Sure, here is the analysis:\n```json\n" +
		`{"strategy": "direct", "answer": true, "confidence": 1}` + "\n```\nHope that helps."
	client, _ := newTestClient(t, reply)
	resp := client.Call(context.Background(), reasoningRequest("wrapped"))
	require.Equal(t, model.RESPONSE_STATUS_SUCCESS, resp.Status)
	require.Equal(t, true, resp.Result["answer"])
}

func testUnknownSchema(t *testing.T) {
	client, provider := newTestClient(t)
	resp := client.Call(context.Background(), model.StructuredRequest{
		TaskType: "mystery",
		SchemaId: "mystery",
	})
	require.Equal(t, model.RESPONSE_STATUS_FAILURE, resp.Status)
	require.Empty(t, provider.Calls)
}

func testResponseCache(t *testing.T) {
	client, provider := newTestClient(t, `{"strategy": "direct", "answer": 1, "confidence": 1}`)
	first := client.Call(context.Background(), reasoningRequest("cache me"))
	second := client.Call(context.Background(), reasoningRequest("cache me"))
	require.Equal(t, first, second)
	require.Len(t, provider.Calls, 1)
}
