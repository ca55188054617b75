package llm

import (
	"context"
	"errors"
	"sync"
)

// mockUsage is what every mock response reports.
var mockUsage = Usage{PromptTokens: 10, CompletionTokens: 10, TotalTokens: 20}

// MockProvider is a Provider for tests. ChatFunc, when set, decides every
// response; otherwise Response or Err is returned.
type MockProvider struct {
	Response string
	Err      error
	ChatFunc func(ctx context.Context, req ChatRequest) (*ChatResponse, error)

	mu       sync.Mutex
	requests []ChatRequest
}

// Chat records the request and returns the configured outcome.
func (m *MockProvider) Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	m.mu.Lock()
	m.requests = append(m.requests, req)
	m.mu.Unlock()

	switch {
	case m.ChatFunc != nil:
		return m.ChatFunc(ctx, req)
	case m.Err != nil:
		return nil, m.Err
	}
	return &ChatResponse{Content: m.Response, Usage: mockUsage}, nil
}

// Requests returns a copy of every request received so far.
func (m *MockProvider) Requests() []ChatRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]ChatRequest(nil), m.requests...)
}

// ScriptedMockProvider replays a fixed sequence of responses and keeps the
// last message of every prompt it was sent.
type ScriptedMockProvider struct {
	Err error
	// Fallback is returned once the script is exhausted. When empty an
	// exhausted script fails.
	Fallback string

	mu        sync.Mutex
	responses []string
	prompts   []string
	calls     int
}

// NewScriptedMockProvider queues responses in order.
func NewScriptedMockProvider(responses ...string) *ScriptedMockProvider {
	return &ScriptedMockProvider{responses: responses}
}

// Chat pops the next scripted response.
func (s *ScriptedMockProvider) Chat(_ context.Context, req ChatRequest) (*ChatResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.calls++
	if n := len(req.Messages); n > 0 {
		s.prompts = append(s.prompts, req.Messages[n-1].Content)
	}
	if s.Err != nil {
		return nil, s.Err
	}

	var content string
	switch {
	case len(s.responses) > 0:
		content, s.responses = s.responses[0], s.responses[1:]
	case s.Fallback != "":
		content = s.Fallback
	default:
		return nil, errors.New("scripted mock: script exhausted")
	}
	return &ChatResponse{Content: content, Usage: mockUsage}, nil
}

// AddResponse queues one more response.
func (s *ScriptedMockProvider) AddResponse(response string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.responses = append(s.responses, response)
}

// Prompts returns the received prompts in order.
func (s *ScriptedMockProvider) Prompts() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.prompts...)
}

// Calls returns the number of Chat calls so far.
func (s *ScriptedMockProvider) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}
