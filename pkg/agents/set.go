package agents

import (
	"ideenfinder/pkg/agent/llm"
	"ideenfinder/pkg/archon"
	"ideenfinder/pkg/config"
)

// Set holds one instance of every agent for a run.
type Set struct {
	Research    *Agent
	Features    *Agent
	Techstack   *Agent
	Reusability *Agent
	Validator   *Agent
}

// NewSet builds all agents on one shared client.
func NewSet(client llm.LLMClient, cfg config.Config, searcher archon.Searcher) *Set {
	return &Set{
		Research:    NewResearch(client, cfg),
		Features:    NewFeaturePlanner(client, cfg),
		Techstack:   NewTechstackAnalyzer(client, cfg),
		Reusability: NewReusabilityScout(client, cfg, searcher),
		Validator:   NewValidator(client, cfg),
	}
}

// Planning returns the phase-2 agents.
func (s *Set) Planning() []*Agent {
	return []*Agent{s.Features, s.Techstack, s.Reusability}
}
