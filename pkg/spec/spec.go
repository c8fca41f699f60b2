// Package spec holds the pipeline's data model: the captured idea, the
// per-phase results and the consolidated specification document.
package spec

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"ideenfinder/pkg/utils"
)

// Version is the document schema version.
const Version = "1.0"

// DefaultProjectType is used when the idea carries no category tag.
const DefaultProjectType = "web-app"

// titleFallbackRunes bounds the title when the description has no sentence end.
const titleFallbackRunes = 50

// Label identifies one section of the document and the agent that produces it.
type Label string

// Document sections in pipeline order.
const (
	LabelResearch    Label = "research"
	LabelFeatures    Label = "features"
	LabelTechstack   Label = "techstack"
	LabelReusability Label = "reusability"
	LabelValidation  Label = "validation"
)

// Labels returns every label in pipeline order.
func Labels() []Label {
	return []Label{LabelResearch, LabelFeatures, LabelTechstack, LabelReusability, LabelValidation}
}

// PlanningLabels returns the labels produced concurrently in phase 2.
func PlanningLabels() []Label {
	return []Label{LabelFeatures, LabelTechstack, LabelReusability}
}

// Valid reports whether l is a known label.
func (l Label) Valid() bool {
	return l.index() >= 0
}

// AgentName is the display name of the agent that produces l.
func (l Label) AgentName() string {
	switch l {
	case LabelResearch:
		return "Research Agent"
	case LabelFeatures:
		return "Feature Planner"
	case LabelTechstack:
		return "Techstack Analyzer"
	case LabelReusability:
		return "Reusability Scout"
	case LabelValidation:
		return "Validator"
	}
	return string(l)
}

func (l Label) index() int {
	for i, known := range Labels() {
		if l == known {
			return i
		}
	}
	return -1
}

var (
	// ErrEmptyIdea is returned for a blank idea description.
	ErrEmptyIdea = errors.New("no idea provided")
	// ErrDuplicatePhase is returned when a label already holds a result.
	ErrDuplicatePhase = errors.New("phase result already recorded")
	// ErrUnknownLabel is returned for a result whose label is not a document section.
	ErrUnknownLabel = errors.New("unknown phase label")
)

// IdeaInput is the user's idea, captured once in phase 0.
type IdeaInput struct {
	Description string
	Type        string
}

// NewIdeaInput trims and validates the idea. An empty type becomes DefaultProjectType.
func NewIdeaInput(description, projectType string) (IdeaInput, error) {
	description = strings.TrimSpace(description)
	if description == "" {
		return IdeaInput{}, ErrEmptyIdea
	}
	projectType = strings.TrimSpace(projectType)
	if projectType == "" {
		projectType = DefaultProjectType
	}
	return IdeaInput{Description: description, Type: projectType}, nil
}

// Title extracts the project title from the description.
func (i IdeaInput) Title() string {
	return utils.FirstSentence(i.Description, titleFallbackRunes)
}

// SimilarProject is a match returned by the external planning tool.
type SimilarProject struct {
	Title       string  `json:"title"`
	Description string  `json:"description"`
	URL         string  `json:"url"`
	Similarity  float64 `json:"similarity"`
}

// PhaseResult is one agent's output. It is not modified after creation.
type PhaseResult struct {
	Label Label
	Agent string
	Text  string

	// SimilarProjects is only set by the reusability scout.
	SimilarProjects []SimilarProject

	// Err and Placeholder describe a failed phase-2 agent.
	Err         string
	Placeholder bool

	Duration time.Duration
}

// NewPlaceholder builds the stand-in result for a failed planning agent.
func NewPlaceholder(label Label, agent string, err error) PhaseResult {
	return PhaseResult{
		Label:       label,
		Agent:       agent,
		Text:        fmt.Sprintf("_This section could not be generated: %v_", err),
		Err:         err.Error(),
		Placeholder: true,
	}
}

// Project is the document header.
type Project struct {
	Title       string
	Description string
	Type        string
}

// PhaseFailure names a section that holds a placeholder.
type PhaseFailure struct {
	Phase Label
	Error string
}

// Document is the consolidated project specification.
type Document struct {
	Version     string
	RunID       string
	GeneratedAt time.Time
	Project     Project

	results [5]*PhaseResult
}

// NewDocument creates an empty document for idea.
func NewDocument(runID string, idea IdeaInput, generatedAt time.Time) *Document {
	return &Document{
		Version:     Version,
		RunID:       runID,
		GeneratedAt: generatedAt.UTC(),
		Project: Project{
			Title:       idea.Title(),
			Description: idea.Description,
			Type:        idea.Type,
		},
	}
}

// Put records r under its label. Each label accepts exactly one result.
func (d *Document) Put(r PhaseResult) error {
	i := r.Label.index()
	if i < 0 {
		return fmt.Errorf("%w: %q", ErrUnknownLabel, r.Label)
	}
	if d.results[i] != nil {
		return fmt.Errorf("%w: %s", ErrDuplicatePhase, r.Label)
	}
	d.results[i] = &r
	return nil
}

// Result returns the result recorded for label.
func (d *Document) Result(label Label) (PhaseResult, bool) {
	i := label.index()
	if i < 0 || d.results[i] == nil {
		return PhaseResult{}, false
	}
	return *d.results[i], true
}

// Text returns the section text for label, or "".
func (d *Document) Text(label Label) string {
	r, _ := d.Result(label)
	return r.Text
}

// Results returns the recorded results in pipeline order.
func (d *Document) Results() []PhaseResult {
	out := make([]PhaseResult, 0, len(d.results))
	for _, r := range d.results {
		if r != nil {
			out = append(out, *r)
		}
	}
	return out
}

// Complete reports whether every label holds a result.
func (d *Document) Complete() bool {
	for _, r := range d.results {
		if r == nil {
			return false
		}
	}
	return true
}

// Missing lists the labels without a result, in pipeline order.
func (d *Document) Missing() []Label {
	var out []Label
	for i, r := range d.results {
		if r == nil {
			out = append(out, Labels()[i])
		}
	}
	return out
}

// Failures lists the sections that hold placeholders.
func (d *Document) Failures() []PhaseFailure {
	var out []PhaseFailure
	for _, r := range d.Results() {
		if r.Placeholder {
			out = append(out, PhaseFailure{Phase: r.Label, Error: r.Err})
		}
	}
	return out
}

// SimilarProjects returns the reusability scout's matches, never nil.
func (d *Document) SimilarProjects() []SimilarProject {
	r, _ := d.Result(LabelReusability)
	if r.SimilarProjects == nil {
		return []SimilarProject{}
	}
	return r.SimilarProjects
}

// Consolidate builds the phase-3 document from the research and planning results.
func Consolidate(runID string, idea IdeaInput, generatedAt time.Time, results ...PhaseResult) (*Document, error) {
	doc := NewDocument(runID, idea, generatedAt)
	for _, r := range results {
		if err := doc.Put(r); err != nil {
			return nil, err
		}
	}
	for _, label := range Labels()[:4] {
		if _, ok := doc.Result(label); !ok {
			return nil, fmt.Errorf("consolidate: missing %s result", label)
		}
	}
	return doc, nil
}
