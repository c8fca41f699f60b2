package archon

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ideenfinder/pkg/config"
	"ideenfinder/pkg/spec"
)

func TestNewSearcherDisabled(t *testing.T) {
	s, err := NewSearcher(config.ArchonConfig{Enabled: false, APIURL: "http://127.0.0.1:1"})
	require.NoError(t, err)
	assert.Nil(t, s)
}

func TestSearchSimilar(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		assert.Equal(t, "/api/rag/query", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))

		var q ragQuery
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&q))
		assert.Equal(t, "habit tracker", q.Query)
		assert.Equal(t, 2, q.MatchCount)

		_, _ = w.Write([]byte(`{"results":[
			{"title":"Streaks","content":"A  habit\napp","url":"https://a","similarity":0.91},
			{"metadata":{"title":"Loop"},"description":"Open source tracker","similarity":0.8},
			{"title":"Extra","similarity":0.1}]}`))
	}))
	defer srv.Close()

	rag, err := NewRAG(NewClient(srv.URL+"/", "secret", time.Second), 2)
	require.NoError(t, err)

	got, err := rag.SearchSimilar(context.Background(), "  habit tracker ")
	require.NoError(t, err)
	assert.Equal(t, []spec.SimilarProject{
		{Title: "Streaks", Description: "A habit app", URL: "https://a", Similarity: 0.91},
		{Title: "Loop", Description: "Open source tracker", Similarity: 0.8},
	}, got)

	_, err = rag.SearchSimilar(context.Background(), "habit tracker")
	require.NoError(t, err)
	assert.Equal(t, int32(1), hits.Load(), "second query should be served from cache")
}

func TestSearchSimilarServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	}))
	defer srv.Close()

	rag, err := NewRAG(NewClient(srv.URL, "", time.Second), 3)
	require.NoError(t, err)

	_, err = rag.SearchSimilar(context.Background(), "x")
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusBadGateway, apiErr.StatusCode)
	assert.Equal(t, "boom", apiErr.Body)
}

func TestNormalizeBaseURL(t *testing.T) {
	c := NewClient("http://localhost:8181/api/projects/", "", 0)
	assert.Equal(t, "http://localhost:8181", c.BaseURL())
	assert.Equal(t, "http://localhost:8181/projects/p1", c.ProjectURL("p1"))
}

func testDocument(t *testing.T) *spec.Document {
	t.Helper()
	idea, err := spec.NewIdeaInput("A habit tracker. With streaks.", "")
	require.NoError(t, err)
	doc, err := spec.Consolidate("run-1", idea, time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC),
		spec.PhaseResult{Label: spec.LabelResearch, Text: "research"},
		spec.PhaseResult{Label: spec.LabelFeatures, Text: "### Feature 1: Login\n- **Priority**: High\n- **Description**: d\n"},
		spec.NewPlaceholder(spec.LabelTechstack, "Techstack Analyzer", errors.New("timeout")),
		spec.PhaseResult{Label: spec.LabelReusability, Text: "assets"},
	)
	require.NoError(t, err)
	require.NoError(t, doc.Put(spec.PhaseResult{Label: spec.LabelValidation, Text: "valid"}))
	return doc
}

func TestBuildImport(t *testing.T) {
	imp := BuildImport(testDocument(t))

	assert.Equal(t, "1.0", imp.Version)
	assert.Equal(t, ImportProject{Title: "A habit tracker", Description: "A habit tracker. With streaks.", Type: "web-app"}, imp.Project)
	assert.Equal(t, "2025-01-02T03:04:05Z", imp.Metadata.GeneratedAt)
	assert.Equal(t, 1, imp.Metadata.MVPFeaturesCount)

	var titles []string
	for _, d := range imp.Documents {
		titles = append(titles, d.Title)
	}
	assert.Equal(t, []string{
		"Market Research & Analysis",
		"MVP Features & Roadmap",
		"Reusable Components & Assets",
		"Validation & Risk Assessment",
	}, titles, "placeholder sections are skipped")

	require.Len(t, imp.Tasks, 1)
	assert.Equal(t, "Login", imp.Tasks[0].Title)
	assert.Equal(t, StatusTodo, imp.Tasks[0].Status)
}

func TestTasksFromPlan(t *testing.T) {
	t.Run("low priority goes to backlog", func(t *testing.T) {
		tasks := TasksFromPlan("### Feature 1: Themes\n- **Priority**: Low\n- **User Story**: As a user...\n- **Complexity**: Low\n- **Estimated Hours**: 4 hours", "P")
		require.Len(t, tasks, 1)
		assert.Equal(t, StatusBacklog, tasks[0].Status)
		assert.Equal(t, []string{"low", "mvp", "ideenfinder"}, tasks[0].Tags)
		assert.Equal(t, 4, tasks[0].EstimatedHours)
		assert.Contains(t, tasks[0].Description, "**User Story:** As a user...")
	})

	t.Run("falls back to list items", func(t *testing.T) {
		tasks := TasksFromPlan("1. Build login\n2. Add export", "P")
		require.Len(t, tasks, 2)
		assert.Equal(t, "Add export", tasks[1].Title)
	})

	t.Run("falls back to single task", func(t *testing.T) {
		tasks := TasksFromPlan("", "Habit Tracker")
		require.Len(t, tasks, 1)
		assert.Equal(t, "Implement Habit Tracker", tasks[0].Title)
	})

	t.Run("caps at ten", func(t *testing.T) {
		var b strings.Builder
		for i := 0; i < 15; i++ {
			b.WriteString("- a list item\n")
		}
		assert.Len(t, TasksFromPlan(b.String(), "P"), maxTasks)
	})
}

func TestPublish(t *testing.T) {
	var mu sync.Mutex
	var paths []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		paths = append(paths, r.URL.Path)
		mu.Unlock()

		switch {
		case r.URL.Path == "/api/projects":
			w.WriteHeader(http.StatusCreated)
			_, _ = w.Write([]byte(`{"project":{"id":"p-42"}}`))
		case strings.HasSuffix(r.URL.Path, "/docs"):
			var d docRequest
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&d))
			if d.Title == "Reusable Components & Assets" {
				http.Error(w, "nope", http.StatusInternalServerError)
				return
			}
			w.WriteHeader(http.StatusCreated)
		case r.URL.Path == "/api/tasks":
			var task taskRequest
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&task))
			assert.Equal(t, "p-42", task.ProjectID)
			w.WriteHeader(http.StatusCreated)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	pub := NewPublisher(NewClient(srv.URL+"/api/projects", "", time.Second))
	res, err := pub.Publish(context.Background(), BuildImport(testDocument(t)))
	require.NoError(t, err)

	assert.Equal(t, "p-42", res.ProjectID)
	assert.Equal(t, srv.URL+"/projects/p-42", res.ProjectURL)
	assert.Equal(t, 3, res.DocumentsCreated)
	assert.Equal(t, 1, res.TasksCreated)
	require.Len(t, res.Warnings, 1)
	assert.Contains(t, res.Warnings[0], "Reusable Components")
	assert.Equal(t, "/api/projects", paths[0])
}

func TestPublishProjectFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	_, err := NewPublisher(NewClient(srv.URL, "", time.Second)).Publish(context.Background(), Import{})
	require.ErrorIs(t, err, ErrNoProjectID)
}
