package mocks

import (
	"context"
	"sync"
	"time"

	"ideenfinder/pkg/agent/llm"
	"ideenfinder/pkg/agent/middleware/metrics"
)

// CompleteFunc is the signature of a scripted completion.
type CompleteFunc func(ctx context.Context, req llm.CompletionRequest) (llm.CompletionResponse, error)

// Call records one Complete invocation.
type Call struct {
	Agent   string
	Request llm.CompletionRequest
}

// MockLLMClient implements llm.LLMClient for testing.
// Per-agent handlers win over CompleteFunc.
//
//nolint:govet // fieldalignment: mock struct layout optimized for readability
type MockLLMClient struct {
	// CompleteFunc is called when no agent handler matches.
	CompleteFunc CompleteFunc

	modelName string
	agents    map[string]CompleteFunc
	calls     []Call
	mu        sync.Mutex
}

// NewMockLLMClient creates a new mock LLM client that answers "Mock response".
func NewMockLLMClient() *MockLLMClient {
	m := &MockLLMClient{
		modelName: "mock-model",
		agents:    make(map[string]CompleteFunc),
	}
	m.RespondWith("Mock response")
	return m
}

// Complete implements llm.LLMClient.
func (m *MockLLMClient) Complete(ctx context.Context, req llm.CompletionRequest) (llm.CompletionResponse, error) {
	agent := metrics.AgentFrom(ctx)

	m.mu.Lock()
	m.calls = append(m.calls, Call{Agent: agent, Request: req})
	fn, ok := m.agents[agent]
	if !ok {
		fn = m.CompleteFunc
	}
	m.mu.Unlock()

	return fn(ctx, req)
}

// GetModelName implements llm.LLMClient.
func (m *MockLLMClient) GetModelName() string {
	return m.modelName
}

// SetModelName sets the model name returned by GetModelName.
func (m *MockLLMClient) SetModelName(name string) {
	m.modelName = name
}

// Calls returns a copy of every recorded call.
func (m *MockLLMClient) Calls() []Call {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Call, len(m.calls))
	copy(out, m.calls)
	return out
}

// CallCount returns the number of Complete calls.
func (m *MockLLMClient) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

// CallsFor returns the requests issued by agent.
func (m *MockLLMClient) CallsFor(agent string) []llm.CompletionRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []llm.CompletionRequest
	for _, c := range m.calls {
		if c.Agent == agent {
			out = append(out, c.Request)
		}
	}
	return out
}

// --- Default handlers ---

// RespondWith configures Complete to return content.
func (m *MockLLMClient) RespondWith(content string) {
	m.CompleteFunc = respond(content, 0)
}

// FailCompleteWith configures Complete to return err.
func (m *MockLLMClient) FailCompleteWith(err error) {
	m.CompleteFunc = fail(err)
}

// RespondWithSequence returns responses in order, repeating the last one.
func (m *MockLLMClient) RespondWithSequence(responses []llm.CompletionResponse) {
	var mu sync.Mutex
	callIndex := 0
	m.CompleteFunc = func(_ context.Context, _ llm.CompletionRequest) (llm.CompletionResponse, error) {
		mu.Lock()
		defer mu.Unlock()
		if callIndex < len(responses) {
			resp := responses[callIndex]
			callIndex++
			return resp, nil
		}
		return responses[len(responses)-1], nil
	}
}

// --- Per-agent handlers ---

// OnAgent installs fn for requests tagged with agent.
func (m *MockLLMClient) OnAgent(agent string, fn CompleteFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.agents[agent] = fn
}

// RespondForAgent answers agent with content after delay. The delay honours ctx.
func (m *MockLLMClient) RespondForAgent(agent, content string, delay time.Duration) {
	m.OnAgent(agent, respond(content, delay))
}

// FailForAgent makes every call from agent fail with err.
func (m *MockLLMClient) FailForAgent(agent string, err error) {
	m.OnAgent(agent, fail(err))
}

func respond(content string, delay time.Duration) CompleteFunc {
	return func(ctx context.Context, _ llm.CompletionRequest) (llm.CompletionResponse, error) {
		if delay > 0 {
			timer := time.NewTimer(delay)
			defer timer.Stop()
			select {
			case <-timer.C:
			case <-ctx.Done():
				return llm.CompletionResponse{}, ctx.Err()
			}
		}
		return llm.CompletionResponse{
			Content:    content,
			StopReason: "end_turn",
		}, nil
	}
}

func fail(err error) CompleteFunc {
	return func(_ context.Context, _ llm.CompletionRequest) (llm.CompletionResponse, error) {
		return llm.CompletionResponse{}, err
	}
}
