package archon

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ideenfinder/pkg/spec"
)

// generatedBy tags everything this tool creates in Archon.
const generatedBy = "ideenfinder"

// ImportNote tells the reader what to do with an import file.
const ImportNote = "Import this into Archon to create the project, its documents and tasks"

// Import is the archon-import.json payload.
type Import struct {
	Version   string         `json:"version"`
	Project   ImportProject  `json:"project"`
	Documents []ImportDoc    `json:"documents"`
	Tasks     []Task         `json:"tasks"`
	Metadata  ImportMetadata `json:"metadata"`
	Note      string         `json:"note"`
}

// ImportProject is the project header of an import.
type ImportProject struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Type        string `json:"type"`
}

// ImportDoc is one project document.
type ImportDoc struct {
	Title        string     `json:"title"`
	DocumentType string     `json:"document_type"`
	Tags         []string   `json:"tags"`
	Content      DocContent `json:"content"`
}

// DocContent carries the markdown body of a document.
type DocContent struct {
	Markdown string `json:"markdown"`
}

// ImportMetadata describes where an import came from.
type ImportMetadata struct {
	GeneratedBy      string `json:"generated_by"`
	GeneratedAt      string `json:"generated_at"`
	ProjectType      string `json:"project_type"`
	MVPFeaturesCount int    `json:"mvp_features_count"`
}

type docTemplate struct {
	label        spec.Label
	title        string
	documentType string
	tags         []string
}

//nolint:gochecknoglobals // read-only table, pipeline order
var docTemplates = []docTemplate{
	{spec.LabelResearch, "Market Research & Analysis", "research", []string{"research", "market-analysis"}},
	{spec.LabelFeatures, "MVP Features & Roadmap", "spec", []string{"features", "mvp", "roadmap"}},
	{spec.LabelTechstack, "Technology Stack Recommendations", "spec", []string{"techstack", "architecture"}},
	{spec.LabelReusability, "Reusable Components & Assets", "guide", []string{"reusability", "components"}},
	{spec.LabelValidation, "Validation & Risk Assessment", "spec", []string{"validation", "risks"}},
}

// BuildImport derives the import payload from a document. Placeholder and
// empty sections produce no document.
func BuildImport(doc *spec.Document) Import {
	imp := Import{
		Version: spec.Version,
		Project: ImportProject{
			Title:       doc.Project.Title,
			Description: doc.Project.Description,
			Type:        doc.Project.Type,
		},
		Documents: []ImportDoc{},
		Metadata: ImportMetadata{
			GeneratedBy: generatedBy,
			GeneratedAt: doc.GeneratedAt.Format(time.RFC3339),
			ProjectType: doc.Project.Type,
		},
		Note: ImportNote,
	}

	for _, t := range docTemplates {
		r, ok := doc.Result(t.label)
		if !ok || r.Placeholder || r.Text == "" {
			continue
		}
		imp.Documents = append(imp.Documents, ImportDoc{
			Title:        t.title,
			DocumentType: t.documentType,
			Tags:         append(append([]string{}, t.tags...), generatedBy),
			Content:      DocContent{Markdown: r.Text},
		})
	}

	plan := ""
	if r, ok := doc.Result(spec.LabelFeatures); ok && !r.Placeholder {
		plan = r.Text
	}
	imp.Tasks = TasksFromPlan(plan, doc.Project.Title)
	imp.Metadata.MVPFeaturesCount = spec.FeatureCount(plan)

	return imp
}

// PublishResult reports what was created.
type PublishResult struct {
	ProjectID        string
	ProjectURL       string
	DocumentsCreated int
	TasksCreated     int
	// Warnings collects per-document and per-task failures.
	Warnings []string
}

// Publisher creates projects in Archon.
type Publisher struct {
	client *Client
}

// NewPublisher creates a publisher on client.
func NewPublisher(client *Client) *Publisher {
	return &Publisher{client: client}
}

// ErrNoProjectID is returned when Archon accepts a project but returns no id.
var ErrNoProjectID = errors.New("archon returned no project id")

type projectRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Status      string `json:"status"`
}

type projectResponse struct {
	ID        string `json:"id"`
	ProjectID string `json:"project_id"`
	Project   struct {
		ID string `json:"id"`
	} `json:"project"`
}

func (r projectResponse) id() string {
	switch {
	case r.ProjectID != "":
		return r.ProjectID
	case r.Project.ID != "":
		return r.Project.ID
	default:
		return r.ID
	}
}

type docRequest struct {
	Title        string     `json:"title"`
	DocumentType string     `json:"document_type"`
	Content      DocContent `json:"content"`
	Tags         []string   `json:"tags"`
	Author       string     `json:"author"`
}

type taskRequest struct {
	ProjectID   string `json:"project_id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Status      string `json:"status"`
	Priority    string `json:"priority"`
	Assignee    string `json:"assignee"`
	TaskOrder   int    `json:"task_order"`
}

// Publish creates the project, then its documents and tasks. Only a failed
// project creation is an error; document and task failures become warnings.
func (p *Publisher) Publish(ctx context.Context, imp Import) (*PublishResult, error) {
	var created projectResponse
	err := p.client.postJSON(ctx, "create project", "/api/projects", projectRequest{
		Title:       imp.Project.Title,
		Description: imp.Project.Description,
		Status:      "active",
	}, &created)
	if err != nil {
		return nil, err
	}
	projectID := created.id()
	if projectID == "" {
		return nil, ErrNoProjectID
	}

	result := &PublishResult{ProjectID: projectID, ProjectURL: p.client.ProjectURL(projectID)}

	for _, d := range imp.Documents {
		err := p.client.postJSON(ctx, "create document", fmt.Sprintf("/api/projects/%s/docs", projectID), docRequest{
			Title:        d.Title,
			DocumentType: d.DocumentType,
			Content:      d.Content,
			Tags:         d.Tags,
			Author:       "Ideenfinder",
		}, nil)
		if err != nil {
			if ctx.Err() != nil {
				return result, fmt.Errorf("publish aborted: %w", ctx.Err())
			}
			p.client.logger.Warn("failed to create document %q: %v", d.Title, err)
			result.Warnings = append(result.Warnings, fmt.Sprintf("document %q: %v", d.Title, err))
			continue
		}
		result.DocumentsCreated++
	}

	for i, t := range imp.Tasks {
		err := p.client.postJSON(ctx, "create task", "/api/tasks", taskRequest{
			ProjectID:   projectID,
			Title:       t.Title,
			Description: t.Description,
			Status:      t.Status,
			Priority:    t.Priority,
			Assignee:    "User",
			TaskOrder:   i,
		}, nil)
		if err != nil {
			if ctx.Err() != nil {
				return result, fmt.Errorf("publish aborted: %w", ctx.Err())
			}
			p.client.logger.Warn("failed to create task %q: %v", t.Title, err)
			result.Warnings = append(result.Warnings, fmt.Sprintf("task %q: %v", t.Title, err))
			continue
		}
		result.TasksCreated++
	}

	p.client.logger.Info("published project %s: %d documents, %d tasks", projectID, result.DocumentsCreated, result.TasksCreated)
	return result, nil
}
