package metrics

import (
	"sort"
	"sync"
	"time"
)

// InternalRecorder aggregates usage per agent in memory for the end-of-run summary.
type InternalRecorder struct {
	agents map[string]*AgentMetrics
	mu     sync.RWMutex
}

// AgentMetrics represents aggregated metrics for one agent.
//
//nolint:govet
type AgentMetrics struct {
	Agent            string        `json:"agent"`
	PromptTokens     int64         `json:"prompt_tokens"`
	CompletionTokens int64         `json:"completion_tokens"`
	TotalTokens      int64         `json:"total_tokens"`
	RequestCount     int64         `json:"request_count"`
	ErrorCount       int64         `json:"error_count"`
	TotalDuration    time.Duration `json:"total_duration"`
}

// NewInternalRecorder returns an empty recorder.
func NewInternalRecorder() *InternalRecorder {
	return &InternalRecorder{
		agents: make(map[string]*AgentMetrics),
	}
}

// ObserveRequest records metrics for a completed LLM request.
func (r *InternalRecorder) ObserveRequest(
	_, agent string,
	promptTokens, completionTokens int,
	success bool,
	_ string,
	duration time.Duration,
) {
	r.mu.Lock()
	defer r.mu.Unlock()

	m, exists := r.agents[agent]
	if !exists {
		m = &AgentMetrics{Agent: agent}
		r.agents[agent] = m
	}

	m.RequestCount++
	m.TotalDuration += duration
	if !success {
		m.ErrorCount++
		return
	}
	m.PromptTokens += int64(promptTokens)
	m.CompletionTokens += int64(completionTokens)
	m.TotalTokens = m.PromptTokens + m.CompletionTokens
}

// Agent returns a copy of one agent's metrics, or nil.
func (r *InternalRecorder) Agent(agent string) *AgentMetrics {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if m, exists := r.agents[agent]; exists {
		c := *m
		return &c
	}
	return nil
}

// All returns copies of every agent's metrics sorted by agent name.
func (r *InternalRecorder) All() []AgentMetrics {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]AgentMetrics, 0, len(r.agents))
	for _, m := range r.agents {
		out = append(out, *m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Agent < out[j].Agent })
	return out
}

// TotalTokens sums tokens across all agents.
func (r *InternalRecorder) TotalTokens() int64 {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var total int64
	for _, m := range r.agents {
		total += m.TotalTokens
	}
	return total
}
