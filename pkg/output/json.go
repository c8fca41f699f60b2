package output

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"ideenfinder/pkg/spec"
)

// specJSON is the project-spec.json schema. Struct order fixes key order.
type specJSON struct {
	Version     string          `json:"version"`
	GeneratedAt string          `json:"generated_at"`
	RunID       string          `json:"run_id,omitempty"`
	Project     projectJSON     `json:"project"`
	Research    researchJSON    `json:"research"`
	Features    featuresJSON    `json:"features"`
	Techstack   techstackJSON   `json:"techstack"`
	Reusability reusabilityJSON `json:"reusability"`
	Validation  validationJSON  `json:"validation"`
	Errors      []errorJSON     `json:"errors,omitempty"`
}

type projectJSON struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Type        string `json:"type"`
}

type researchJSON struct {
	Report string `json:"report"`
}

type featuresJSON struct {
	Plan string `json:"plan"`
}

type techstackJSON struct {
	Recommendations string `json:"recommendations"`
}

type reusabilityJSON struct {
	Assets          string                `json:"assets"`
	SimilarProjects []spec.SimilarProject `json:"similar_projects"`
}

type validationJSON struct {
	Report string `json:"report"`
}

type errorJSON struct {
	Phase string `json:"phase"`
	Error string `json:"error"`
}

// RenderJSON renders doc as indented project-spec.json.
func RenderJSON(doc *spec.Document) ([]byte, error) {
	out := specJSON{
		Version:     doc.Version,
		GeneratedAt: doc.GeneratedAt.Format(time.RFC3339),
		RunID:       doc.RunID,
		Project: projectJSON{
			Title:       doc.Project.Title,
			Description: doc.Project.Description,
			Type:        doc.Project.Type,
		},
		Research:  researchJSON{Report: doc.Text(spec.LabelResearch)},
		Features:  featuresJSON{Plan: doc.Text(spec.LabelFeatures)},
		Techstack: techstackJSON{Recommendations: doc.Text(spec.LabelTechstack)},
		Reusability: reusabilityJSON{
			Assets:          doc.Text(spec.LabelReusability),
			SimilarProjects: doc.SimilarProjects(),
		},
		Validation: validationJSON{Report: doc.Text(spec.LabelValidation)},
	}
	for _, f := range doc.Failures() {
		out.Errors = append(out.Errors, errorJSON{Phase: string(f.Phase), Error: f.Error})
	}

	return marshalIndent(out)
}

func marshalIndent(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return nil, fmt.Errorf("failed to encode JSON: %w", err)
	}
	return buf.Bytes(), nil
}

// ReadJSON loads a project-spec.json written by a previous run.
func ReadJSON(path string) (*spec.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return ParseJSON(data)
}

// ParseJSON rebuilds a document from project-spec.json content.
func ParseJSON(data []byte) (*spec.Document, error) {
	var in specJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return nil, fmt.Errorf("failed to parse project spec: %w", err)
	}

	generatedAt, err := time.Parse(time.RFC3339, in.GeneratedAt)
	if err != nil {
		return nil, fmt.Errorf("invalid generated_at %q: %w", in.GeneratedAt, err)
	}

	doc := &spec.Document{
		Version:     in.Version,
		RunID:       in.RunID,
		GeneratedAt: generatedAt,
		Project: spec.Project{
			Title:       in.Project.Title,
			Description: in.Project.Description,
			Type:        in.Project.Type,
		},
	}

	failed := make(map[spec.Label]string, len(in.Errors))
	for _, e := range in.Errors {
		failed[spec.Label(e.Phase)] = e.Error
	}

	sections := []spec.PhaseResult{
		{Label: spec.LabelResearch, Text: in.Research.Report},
		{Label: spec.LabelFeatures, Text: in.Features.Plan},
		{Label: spec.LabelTechstack, Text: in.Techstack.Recommendations},
		{Label: spec.LabelReusability, Text: in.Reusability.Assets, SimilarProjects: in.Reusability.SimilarProjects},
		{Label: spec.LabelValidation, Text: in.Validation.Report},
	}
	for _, r := range sections {
		if msg, ok := failed[r.Label]; ok {
			r.Err = msg
			r.Placeholder = true
		}
		if err := doc.Put(r); err != nil {
			return nil, err
		}
	}
	return doc, nil
}
