package oracle

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"
)

// Provider is the transport to the external reasoning service. It takes a
// rendered prompt and returns the raw reply, the client above it owns
// parsing, validation and retries.
type Provider interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model    string         `json:"model"`
	Messages []chatMessage  `json:"messages"`
	Stream   bool           `json:"stream"`
	Options  map[string]any `json:"options,omitempty"`
}

type chatResponse struct {
	Message *chatMessage `json:"message,omitempty"`
	Done    bool         `json:"done"`
}

// HTTPProvider speaks the ollama style chat API.
type HTTPProvider struct {
	baseUrl    string
	model      string
	httpClient *http.Client
}

func NewHTTPProvider(baseUrl string, model string, timeout time.Duration) *HTTPProvider {
	if len(baseUrl) == 0 {
		baseUrl = "http://localhost:11434"
	}
	return &HTTPProvider{
		baseUrl: baseUrl,
		model:   model,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

func (p *HTTPProvider) Complete(ctx context.Context, prompt string) (string, error) {
	endpoint := fmt.Sprintf("%s/api/chat", p.baseUrl)
	req := chatRequest{
		Model: p.model,
		Messages: []chatMessage{
			{Role: "user", Content: prompt},
		},
		Stream: false,
	}
	reqBody, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(reqBody))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("failed to call oracle endpoint: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("oracle endpoint error (status %d): %s", resp.StatusCode, string(body))
	}
	var chatResp chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chatResp); err != nil {
		return "", fmt.Errorf("failed to decode oracle reply: %w", err)
	}
	if chatResp.Message == nil {
		return "", fmt.Errorf("oracle reply has no message")
	}
	return chatResp.Message.Content, nil
}

// MockProvider returns scripted replies in order, used by tests and as an
// offline stand in. Complete never fails unless replies run out.
type MockProvider struct {
	mu      sync.Mutex
	Replies []string
	Calls   []string
	next    int
}

func (p *MockProvider) Complete(ctx context.Context, prompt string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Calls = append(p.Calls, prompt)
	if p.next >= len(p.Replies) {
		return "", fmt.Errorf("mock provider has no reply for call %d", p.next)
	}
	reply := p.Replies[p.next]
	p.next++
	return reply, nil
}
