package agents

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ideenfinder/internal/mocks"
	"ideenfinder/pkg/agent"
	"ideenfinder/pkg/agent/llm"
	"ideenfinder/pkg/agent/llmerrors"
	"ideenfinder/pkg/archon"
	"ideenfinder/pkg/config"
	"ideenfinder/pkg/spec"
)

func testIdea(t *testing.T) spec.IdeaInput {
	t.Helper()
	idea, err := spec.NewIdeaInput("A habit tracker for remote teams.", "")
	require.NoError(t, err)
	return idea
}

func TestAgentTokenCeilings(t *testing.T) {
	mock := mocks.NewMockLLMClient()
	set := NewSet(mock, config.Default(), nil)

	want := map[spec.Label]int{
		spec.LabelResearch:    3000,
		spec.LabelFeatures:    1500,
		spec.LabelTechstack:   1000,
		spec.LabelReusability: 800,
		spec.LabelValidation:  1500,
	}
	for _, a := range []*Agent{set.Research, set.Features, set.Techstack, set.Reusability, set.Validator} {
		_, err := a.Run(context.Background(), Input{Idea: testIdea(t)})
		require.NoError(t, err)

		reqs := mock.CallsFor(string(a.Label))
		require.Len(t, reqs, 1, "exactly one call for %s", a.Label)
		assert.Equal(t, want[a.Label], reqs[0].MaxTokens, a.Label)
	}
}

func TestAgentOverrideFromConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Agents.Features.MaxTokens = 2222

	assert.Equal(t, 2222, NewFeaturePlanner(mocks.NewMockLLMClient(), cfg).MaxTokens)
}

func TestAgentRunBuildsResult(t *testing.T) {
	mock := mocks.NewMockLLMClient()
	mock.RespondForAgent("features", "### Feature 1: Check-ins", 0)

	a := NewFeaturePlanner(mock, config.Default())
	res, err := a.Run(context.Background(), Input{Idea: testIdea(t), Research: "## Market Analysis\nbig"})
	require.NoError(t, err)

	assert.Equal(t, spec.LabelFeatures, res.Label)
	assert.Equal(t, "Feature Planner", res.Agent)
	assert.Equal(t, "### Feature 1: Check-ins", res.Text)
	assert.False(t, res.Placeholder)
	assert.Nil(t, res.SimilarProjects)

	req := mock.CallsFor("features")[0]
	require.Len(t, req.Messages, 2)
	assert.Equal(t, llm.RoleSystem, req.Messages[0].Role)
	assert.Contains(t, req.Messages[1].Content, "A habit tracker for remote teams.")
	assert.Contains(t, req.Messages[1].Content, "## Market Analysis\nbig")
}

func TestAgentRunPropagatesClientError(t *testing.T) {
	mock := mocks.NewMockLLMClient()
	mock.FailForAgent("research", llmerrors.NewError(llmerrors.ErrorTypeAuth, "bad key"))

	_, err := NewResearch(mock, config.Default()).Run(context.Background(), Input{Idea: testIdea(t)})
	require.Error(t, err)
	assert.True(t, llmerrors.Is(err, llmerrors.ErrorTypeAuth))
	assert.Contains(t, err.Error(), "Research Agent")
}

func TestAgentEmptyOutputIsError(t *testing.T) {
	cfg := config.Default()
	cfg.Resilience.Retry.MaxAttempts = 1

	mock := mocks.NewMockLLMClient()
	mock.RespondWith("  \n")
	client := agent.NewLLMClientFactory(cfg, nil).Wrap(mock, config.ProviderAnthropic)

	_, err := NewTechstackAnalyzer(client, cfg).Run(context.Background(), Input{Idea: testIdea(t)})
	require.Error(t, err)
	assert.True(t, llmerrors.Is(err, llmerrors.ErrorTypeEmptyResponse) || llmerrors.IsServiceUnavailable(err))
}

func TestReusabilityDisabledMakesNoRequest(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		_, _ = w.Write([]byte(`{"results":[]}`))
	}))
	defer srv.Close()

	searcher, err := archon.NewSearcher(config.ArchonConfig{Enabled: false, APIURL: srv.URL})
	require.NoError(t, err)

	mock := mocks.NewMockLLMClient()
	res, err := NewReusabilityScout(mock, config.Default(), searcher).Run(context.Background(), Input{Idea: testIdea(t)})
	require.NoError(t, err)

	assert.Equal(t, int32(0), hits.Load())
	assert.NotNil(t, res.SimilarProjects)
	assert.Empty(t, res.SimilarProjects)
	assert.Contains(t, mock.CallsFor("reusability")[0].Messages[1].Content, "No Archon integration available")
}

func TestReusabilityListsSimilarProjects(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"results":[{"title":"TeamPulse","description":"standup bot","similarity":0.8}]}`))
	}))
	defer srv.Close()

	searcher, err := archon.NewSearcher(config.ArchonConfig{Enabled: true, APIURL: srv.URL, MatchCount: 3, Timeout: time.Second})
	require.NoError(t, err)

	mock := mocks.NewMockLLMClient()
	res, err := NewReusabilityScout(mock, config.Default(), searcher).Run(context.Background(), Input{Idea: testIdea(t)})
	require.NoError(t, err)

	require.Len(t, res.SimilarProjects, 1)
	assert.Equal(t, "TeamPulse", res.SimilarProjects[0].Title)
	assert.Contains(t, mock.CallsFor("reusability")[0].Messages[1].Content, "- TeamPulse: standup bot")
}

type failingSearcher struct{}

func (failingSearcher) SearchSimilar(context.Context, string) ([]spec.SimilarProject, error) {
	return nil, errors.New("connection refused")
}

func TestReusabilityDegradesWhenUnreachable(t *testing.T) {
	mock := mocks.NewMockLLMClient()
	res, err := NewReusabilityScout(mock, config.Default(), failingSearcher{}).Run(context.Background(), Input{Idea: testIdea(t)})
	require.NoError(t, err)

	assert.Empty(t, res.SimilarProjects)
	assert.Contains(t, mock.CallsFor("reusability")[0].Messages[1].Content, "No similar projects found")
}

func TestValidationSections(t *testing.T) {
	idea := testIdea(t)
	long := strings.Repeat("ä", 600)
	doc, err := spec.Consolidate("r", idea, time.Now(),
		spec.PhaseResult{Label: spec.LabelResearch, Text: long},
		spec.PhaseResult{Label: spec.LabelFeatures, Text: "short"},
		spec.PhaseResult{Label: spec.LabelTechstack, Text: "stack"},
		spec.PhaseResult{Label: spec.LabelReusability, Text: "reuse"},
	)
	require.NoError(t, err)

	sections := ValidationSections(doc)
	require.Len(t, sections, 4)
	assert.Equal(t, "research", sections[0].Name)
	assert.Equal(t, strings.Repeat("ä", 500)+"...", sections[0].Text)
	assert.Equal(t, "short", sections[1].Text)

	mock := mocks.NewMockLLMClient()
	_, err = NewValidator(mock, config.Default()).Run(context.Background(), Input{Idea: idea, Sections: sections})
	require.NoError(t, err)
	prompt := mock.CallsFor("validation")[0].Messages[1].Content
	assert.Contains(t, prompt, "TECHSTACK: stack")
	assert.NotContains(t, prompt, strings.Repeat("ä", 501))
}
