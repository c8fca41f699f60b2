package archon

import (
	"context"
	"fmt"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"

	"ideenfinder/pkg/config"
	"ideenfinder/pkg/spec"
	"ideenfinder/pkg/utils"
)

const (
	// cacheSize bounds the number of remembered queries.
	cacheSize = 128
	// maxDescription bounds the snippet kept per match.
	maxDescription = 200
)

// Searcher finds projects similar to an idea.
type Searcher interface {
	SearchSimilar(ctx context.Context, query string) ([]spec.SimilarProject, error)
}

// RAG queries Archon's knowledge base. Results are cached per query.
type RAG struct {
	client     *Client
	matchCount int
	cache      *lru.Cache[string, []spec.SimilarProject]
}

// NewRAG creates a searcher returning at most matchCount results.
func NewRAG(client *Client, matchCount int) (*RAG, error) {
	if matchCount <= 0 {
		matchCount = config.DefaultArchonMatch
	}
	cache, err := lru.New[string, []spec.SimilarProject](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create RAG cache: %w", err)
	}
	return &RAG{client: client, matchCount: matchCount, cache: cache}, nil
}

// NewSearcher returns the configured searcher, or nil when the integration is disabled.
func NewSearcher(cfg config.ArchonConfig) (Searcher, error) {
	if !cfg.Enabled {
		return nil, nil //nolint:nilnil // nil searcher means disabled
	}
	return NewRAG(NewClientFromConfig(cfg), cfg.MatchCount)
}

type ragQuery struct {
	Query      string `json:"query"`
	MatchCount int    `json:"match_count"`
}

type ragResult struct {
	Title       string         `json:"title"`
	Content     string         `json:"content"`
	Description string         `json:"description"`
	URL         string         `json:"url"`
	Similarity  float64        `json:"similarity"`
	Metadata    map[string]any `json:"metadata"`
}

type ragResponse struct {
	Results []ragResult `json:"results"`
}

// SearchSimilar implements Searcher.
func (r *RAG) SearchSimilar(ctx context.Context, query string) ([]spec.SimilarProject, error) {
	query = strings.TrimSpace(query)
	if cached, ok := r.cache.Get(query); ok {
		return cached, nil
	}

	var resp ragResponse
	if err := r.client.postJSON(ctx, "rag query", "/api/rag/query", ragQuery{Query: query, MatchCount: r.matchCount}, &resp); err != nil {
		return nil, err
	}

	projects := make([]spec.SimilarProject, 0, len(resp.Results))
	for i := range resp.Results {
		if len(projects) == r.matchCount {
			break
		}
		projects = append(projects, resp.Results[i].toProject())
	}

	r.cache.Add(query, projects)
	return projects, nil
}

func (res *ragResult) toProject() spec.SimilarProject {
	title := res.Title
	if title == "" {
		if t, ok := res.Metadata["title"].(string); ok {
			title = t
		}
	}
	if title == "" {
		title = res.URL
	}

	description := res.Description
	if description == "" {
		description = res.Content
	}
	description = strings.Join(strings.Fields(description), " ")

	return spec.SimilarProject{
		Title:       title,
		Description: utils.TruncateRunes(description, maxDescription),
		URL:         res.URL,
		Similarity:  res.Similarity,
	}
}
