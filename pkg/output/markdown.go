package output

import (
	"bytes"
	_ "embed"
	"fmt"
	"text/template"
	"time"

	"ideenfinder/pkg/spec"
)

//go:embed report.tpl.md
var reportTemplate string

//nolint:gochecknoglobals // parsed once at init, read-only
var reportTmpl = template.Must(template.New("report").Parse(reportTemplate))

type reportData struct {
	Project         spec.Project
	GeneratedAt     string
	Research        string
	Features        string
	Techstack       string
	Reusability     string
	SimilarProjects []spec.SimilarProject
	Validation      string
	Errors          []spec.PhaseFailure
}

// RenderMarkdown renders doc as the human-readable project-spec.md.
func RenderMarkdown(doc *spec.Document) ([]byte, error) {
	data := reportData{
		Project:         doc.Project,
		GeneratedAt:     doc.GeneratedAt.Format(time.RFC3339),
		Research:        doc.Text(spec.LabelResearch),
		Features:        doc.Text(spec.LabelFeatures),
		Techstack:       doc.Text(spec.LabelTechstack),
		Reusability:     doc.Text(spec.LabelReusability),
		SimilarProjects: doc.SimilarProjects(),
		Validation:      doc.Text(spec.LabelValidation),
		Errors:          doc.Failures(),
	}

	var buf bytes.Buffer
	if err := reportTmpl.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("failed to render report: %w", err)
	}
	return buf.Bytes(), nil
}
