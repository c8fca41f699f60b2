// Package agents implements the five single-purpose pipeline agents. Each
// agent renders one prompt template and makes exactly one completion call;
// retries belong to the client middleware, not to the agent.
package agents

import (
	"context"
	"fmt"
	"time"

	"ideenfinder/pkg/agent/llm"
	"ideenfinder/pkg/agent/llmerrors"
	"ideenfinder/pkg/agent/middleware/metrics"
	"ideenfinder/pkg/archon"
	"ideenfinder/pkg/config"
	"ideenfinder/pkg/logx"
	"ideenfinder/pkg/spec"
	"ideenfinder/pkg/templates"
	"ideenfinder/pkg/utils"
)

// sectionLimit bounds each section in the validator's summary.
const sectionLimit = 500

// promptLogChars bounds prompts echoed to debug logs.
const promptLogChars = 2000

// Input is the upstream context an agent may read.
type Input struct {
	Idea spec.IdeaInput
	// Research is the phase-1 report. Empty for the research agent itself.
	Research string
	// Sections is the truncated summary handed to the validator.
	Sections []templates.Section
}

// Agent is one prompt template bound to a completion client.
type Agent struct {
	Label       spec.Label
	Name        string
	Template    templates.ID
	MaxTokens   int
	Temperature float32

	client   llm.LLMClient
	searcher archon.Searcher
	logger   *logx.Logger
	now      func() time.Time
}

func newAgent(label spec.Label, tmpl templates.ID, client llm.LLMClient, cfg config.Config) *Agent {
	maxTokens, temperature := cfg.Agent(string(label))
	return &Agent{
		Label:       label,
		Name:        label.AgentName(),
		Template:    tmpl,
		MaxTokens:   maxTokens,
		Temperature: temperature,
		client:      client,
		logger:      logx.NewLogger("agent").With(string(label)),
		now:         time.Now,
	}
}

// NewResearch creates the market research agent.
func NewResearch(client llm.LLMClient, cfg config.Config) *Agent {
	return newAgent(spec.LabelResearch, templates.ResearchTemplate, client, cfg)
}

// NewFeaturePlanner creates the MVP feature planner.
func NewFeaturePlanner(client llm.LLMClient, cfg config.Config) *Agent {
	return newAgent(spec.LabelFeatures, templates.FeaturesTemplate, client, cfg)
}

// NewTechstackAnalyzer creates the tech stack analyzer.
func NewTechstackAnalyzer(client llm.LLMClient, cfg config.Config) *Agent {
	return newAgent(spec.LabelTechstack, templates.TechstackTemplate, client, cfg)
}

// NewReusabilityScout creates the reusability scout. A nil searcher means the
// Archon integration is disabled and no lookup is made.
func NewReusabilityScout(client llm.LLMClient, cfg config.Config, searcher archon.Searcher) *Agent {
	a := newAgent(spec.LabelReusability, templates.ReusabilityTemplate, client, cfg)
	a.searcher = searcher
	return a
}

// NewValidator creates the validator.
func NewValidator(client llm.LLMClient, cfg config.Config) *Agent {
	return newAgent(spec.LabelValidation, templates.ValidationTemplate, client, cfg)
}

// Run renders the prompt, makes one completion call and wraps the answer.
func (a *Agent) Run(ctx context.Context, in Input) (spec.PhaseResult, error) {
	start := a.now()
	ctx = metrics.WithAgent(logx.WithComponent(ctx, "agent/"+string(a.Label)), string(a.Label))

	data := &templates.TemplateData{
		Idea:        in.Idea.Description,
		ProjectType: in.Idea.Type,
		Research:    in.Research,
		Sections:    in.Sections,
	}

	var similar []spec.SimilarProject
	if a.Label == spec.LabelReusability {
		similar = a.lookupSimilar(ctx, in.Idea.Description)
		data.ArchonEnabled = a.searcher != nil
		for _, p := range similar {
			data.SimilarProjects = append(data.SimilarProjects, templates.Reference{Title: p.Title, Description: p.Description})
		}
	}

	system, user, err := templates.Render(a.Template, data)
	if err != nil {
		return spec.PhaseResult{}, fmt.Errorf("%s: %w", a.Name, err)
	}
	logx.Debug(ctx, "prompt", "%s prompt:\n%s", a.Name, llmerrors.SanitizePrompt(user, promptLogChars))

	req := llm.NewCompletionRequest([]llm.CompletionMessage{
		llm.NewSystemMessage(system),
		llm.NewUserMessage(user),
	})
	req.MaxTokens = a.MaxTokens
	req.Temperature = a.Temperature

	resp, err := a.client.Complete(ctx, req)
	if err != nil {
		return spec.PhaseResult{}, fmt.Errorf("%s: %w", a.Name, err)
	}

	result := spec.PhaseResult{
		Label:    a.Label,
		Agent:    a.Name,
		Text:     resp.Content,
		Duration: a.now().Sub(start),
	}
	if a.Label == spec.LabelReusability {
		result.SimilarProjects = similar
	}

	a.logger.Info("completed in %dms (%d chars, stop=%s)", result.Duration.Milliseconds(), len(resp.Content), resp.StopReason)
	return result, nil
}

// lookupSimilar never fails: an unreachable integration means no matches.
func (a *Agent) lookupSimilar(ctx context.Context, idea string) []spec.SimilarProject {
	if a.searcher == nil {
		return []spec.SimilarProject{}
	}
	found, err := a.searcher.SearchSimilar(ctx, idea)
	if err != nil {
		a.logger.Warn("Archon lookup failed, continuing without similar projects: %v", err)
		return []spec.SimilarProject{}
	}
	if found == nil {
		found = []spec.SimilarProject{}
	}
	return found
}

// ValidationSections summarizes a document for the validator. Each section is
// cut to 500 runes.
func ValidationSections(doc *spec.Document) []templates.Section {
	sections := make([]templates.Section, 0, len(spec.Labels())-1)
	for _, label := range spec.Labels() {
		if label == spec.LabelValidation {
			continue
		}
		sections = append(sections, templates.Section{
			Name: string(label),
			Text: utils.TruncateRunes(doc.Text(label), sectionLimit),
		})
	}
	return sections
}
