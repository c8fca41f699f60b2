package output

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ideenfinder/pkg/config"
	"ideenfinder/pkg/spec"
)

func fixture(t *testing.T, at time.Time) *spec.Document {
	t.Helper()
	idea, err := spec.NewIdeaInput("A habit tracker with streaks. Mobile first.", "mobile-app")
	require.NoError(t, err)

	doc, err := spec.Consolidate("3f1c2a9e-0000-4000-8000-000000000001", idea, at,
		spec.PhaseResult{Label: spec.LabelResearch, Text: "## Market Analysis\nGrowing <fast> & steady"},
		spec.PhaseResult{Label: spec.LabelFeatures, Text: "### Feature 1: Streaks\n- **Priority**: High"},
		spec.NewPlaceholder(spec.LabelTechstack, "Techstack Analyzer", errors.New("rate limited")),
		spec.PhaseResult{
			Label: spec.LabelReusability,
			Text:  "## Reusable Assets",
			SimilarProjects: []spec.SimilarProject{
				{Title: "Loop", Description: "habit app", URL: "https://loop.example", Similarity: 0.9},
			},
		},
	)
	require.NoError(t, err)
	require.NoError(t, doc.Put(spec.PhaseResult{Label: spec.LabelValidation, Text: "Confidence 7/10"}))
	return doc
}

var t0 = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func TestRenderIsDeterministic(t *testing.T) {
	f := NewFormatter(nil)

	first, err := f.Render(fixture(t, t0))
	require.NoError(t, err)
	second, err := f.Render(fixture(t, t0))
	require.NoError(t, err)

	require.Len(t, first, 3)
	for i := range first {
		assert.Equal(t, first[i].Name, second[i].Name)
		assert.Equal(t, string(first[i].Data), string(second[i].Data), first[i].Name)
	}
}

func TestRenderOnlyTimestampDiffers(t *testing.T) {
	f := NewFormatter(nil)

	a, err := f.Render(fixture(t, t0))
	require.NoError(t, err)
	b, err := f.Render(fixture(t, t0.Add(time.Hour)))
	require.NoError(t, err)

	for i := range a {
		normA := strings.ReplaceAll(string(a[i].Data), "2025-06-01T12:00:00Z", "TS")
		normB := strings.ReplaceAll(string(b[i].Data), "2025-06-01T13:00:00Z", "TS")
		assert.Equal(t, normA, normB, a[i].Name)
		assert.NotEqual(t, string(a[i].Data), string(b[i].Data), a[i].Name)
	}
}

func TestRenderJSONSchema(t *testing.T) {
	data, err := RenderJSON(fixture(t, t0))
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal(data, &got))

	assert.Equal(t, "1.0", got["version"])
	assert.Equal(t, "2025-06-01T12:00:00Z", got["generated_at"])
	assert.Equal(t, map[string]any{
		"title":       "A habit tracker with streaks",
		"description": "A habit tracker with streaks. Mobile first.",
		"type":        "mobile-app",
	}, got["project"])
	assert.Contains(t, string(data), `"report": "## Market Analysis\nGrowing <fast> & steady"`)
	assert.Equal(t, []any{map[string]any{"phase": "techstack", "error": "rate limited"}}, got["errors"])

	reuse := got["reusability"].(map[string]any)
	assert.Len(t, reuse["similar_projects"], 1)
}

func TestRenderJSONOmitsEmptyErrors(t *testing.T) {
	idea, err := spec.NewIdeaInput("x", "")
	require.NoError(t, err)
	doc := spec.NewDocument("", idea, t0)
	for _, l := range spec.Labels() {
		require.NoError(t, doc.Put(spec.PhaseResult{Label: l, Text: string(l)}))
	}

	data, err := RenderJSON(doc)
	require.NoError(t, err)
	assert.NotContains(t, string(data), `"errors"`)
	assert.Contains(t, string(data), `"similar_projects": []`)
}

func TestParseJSONRoundTrip(t *testing.T) {
	doc := fixture(t, t0)
	data, err := RenderJSON(doc)
	require.NoError(t, err)

	back, err := ParseJSON(data)
	require.NoError(t, err)
	assert.True(t, back.Complete())
	assert.Equal(t, doc.Project, back.Project)
	assert.Equal(t, doc.Failures(), back.Failures())
	assert.Equal(t, doc.SimilarProjects(), back.SimilarProjects())
}

func TestRenderMarkdown(t *testing.T) {
	data, err := RenderMarkdown(fixture(t, t0))
	require.NoError(t, err)
	md := string(data)

	assert.True(t, strings.HasPrefix(md, "# A habit tracker with streaks\n"))
	for _, heading := range []string{"## Market Research", "## Features", "## Technology Stack", "## Reusable Assets", "### Similar Projects", "## Validation Report", "## Incomplete Sections", "## Next Steps"} {
		assert.Contains(t, md, heading)
	}
	assert.Contains(t, md, "- **Loop** (https://loop.example): habit app")
	assert.Contains(t, md, "Growing <fast> & steady")
	assert.Less(t, strings.Index(md, "## Market Research"), strings.Index(md, "## Validation Report"))
}

func TestRenderRejectsIncompleteDocument(t *testing.T) {
	idea, err := spec.NewIdeaInput("x", "")
	require.NoError(t, err)
	_, err = NewFormatter(nil).Render(spec.NewDocument("", idea, t0))
	require.ErrorIs(t, err, ErrIncompleteDocument)
}

func TestRenderUnknownFormat(t *testing.T) {
	_, err := NewFormatter([]string{"pdf"}).Render(fixture(t, t0))
	require.Error(t, err)
}

func TestWriteCreatesDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "outputs", "20250601_120000")

	outputs, err := NewFormatter(nil).Write(fixture(t, t0), dir)
	require.NoError(t, err)

	assert.Equal(t, map[string]string{
		config.FormatJSON:     filepath.Join(dir, JSONFile),
		config.FormatMarkdown: filepath.Join(dir, MarkdownFile),
		config.FormatArchon:   filepath.Join(dir, ArchonFile),
	}, outputs)
	for _, p := range outputs {
		assert.FileExists(t, p)
	}
	assertNoTempDirs(t, filepath.Dir(dir))
}

func TestWriteIntoExistingDirectories(t *testing.T) {
	t.Run("empty", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "run")
		require.NoError(t, os.Mkdir(dir, 0o755))

		_, err := NewFormatter([]string{config.FormatJSON}).Write(fixture(t, t0), dir)
		require.NoError(t, err)
		assert.FileExists(t, filepath.Join(dir, JSONFile))
		assertNoTempDirs(t, filepath.Dir(dir))
	})

	t.Run("non-empty", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "run")
		require.NoError(t, os.Mkdir(dir, 0o755))
		require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("keep"), 0o644))

		_, err := NewFormatter(nil).Write(fixture(t, t0), dir)
		require.NoError(t, err)
		assert.FileExists(t, filepath.Join(dir, "notes.txt"))
		assert.FileExists(t, filepath.Join(dir, MarkdownFile))
		assertNoTempDirs(t, filepath.Dir(dir))
	})
}

func TestWriteFailureLeavesNothing(t *testing.T) {
	parent := t.TempDir()
	target := filepath.Join(parent, "run")
	require.NoError(t, os.WriteFile(target, []byte("a file"), 0o644))

	_, err := NewFormatter(nil).Write(fixture(t, t0), target)
	require.Error(t, err)

	entries, err := os.ReadDir(parent)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "run", entries[0].Name())
}

func TestWriteRefusesNonRegularTarget(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "run")
	require.NoError(t, os.MkdirAll(filepath.Join(dir, MarkdownFile), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, JSONFile), []byte("old json"), 0o644))

	_, err := NewFormatter(nil).Write(fixture(t, t0), dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not a regular file")

	data, err := os.ReadFile(filepath.Join(dir, JSONFile))
	require.NoError(t, err)
	assert.Equal(t, "old json", string(data))
	assert.NoFileExists(t, filepath.Join(dir, ArchonFile))
	assertNoTempDirs(t, filepath.Dir(dir))
}

func TestWriteRestoresPreviousFilesOnFailedMove(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "run")
	require.NoError(t, os.Mkdir(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, JSONFile), []byte("old json"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, MarkdownFile), []byte("old md"), 0o644))

	orig := rename
	t.Cleanup(func() { rename = orig })
	rename = func(from, to string) error {
		if to == filepath.Join(dir, ArchonFile) {
			return errors.New("disk full")
		}
		return orig(from, to)
	}

	_, err := NewFormatter(nil).Write(fixture(t, t0), dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")

	for name, want := range map[string]string{JSONFile: "old json", MarkdownFile: "old md"} {
		data, err := os.ReadFile(filepath.Join(dir, name))
		require.NoError(t, err)
		assert.Equal(t, want, string(data), name)
	}
	assert.NoFileExists(t, filepath.Join(dir, ArchonFile))
	assertNoTempDirs(t, filepath.Dir(dir))
}

func assertNoTempDirs(t *testing.T, parent string) {
	t.Helper()
	entries, err := os.ReadDir(parent)
	require.NoError(t, err)
	for _, e := range entries {
		assert.False(t, strings.Contains(e.Name(), ".tmp-"), "leftover %s", e.Name())
	}
}
