// Package templates renders the embedded agent prompts.
//
// Each *.tpl.md file defines two named templates, "system" and "user".
// Rendering is a pure function of the template and the data passed in.
package templates

import (
	"bytes"
	"embed"
	"fmt"
	"strings"
	"sync"
	"text/template"
)

//go:embed *.tpl.md
var templateFS embed.FS

// ID names one agent prompt template.
type ID string

const (
	// ResearchTemplate drives the market research agent.
	ResearchTemplate ID = "research.tpl.md"
	// FeaturesTemplate drives the MVP feature planner.
	FeaturesTemplate ID = "features.tpl.md"
	// TechstackTemplate drives the tech stack analyzer.
	TechstackTemplate ID = "techstack.tpl.md"
	// ReusabilityTemplate drives the reusability scout.
	ReusabilityTemplate ID = "reusability.tpl.md"
	// ValidationTemplate drives the validator.
	ValidationTemplate ID = "validation.tpl.md"
)

// All lists every template in pipeline order.
func All() []ID {
	return []ID{ResearchTemplate, FeaturesTemplate, TechstackTemplate, ReusabilityTemplate, ValidationTemplate}
}

// Reference is a similar project listed in a prompt.
type Reference struct {
	Title       string
	Description string
}

// Section is one labeled block of an earlier phase's output.
type Section struct {
	Name string
	Text string
}

// TemplateData holds the data for template rendering.
type TemplateData struct {
	Idea        string
	ProjectType string
	Research    string

	// Reusability scout only.
	ArchonEnabled   bool
	SimilarProjects []Reference

	// Validator only.
	Sections []Section
}

// Renderer holds the parsed templates.
type Renderer struct {
	templates map[ID]*template.Template
}

// NewRenderer parses every embedded template.
func NewRenderer() (*Renderer, error) {
	r := &Renderer{
		templates: make(map[ID]*template.Template),
	}

	for _, name := range All() {
		content, err := templateFS.ReadFile(string(name))
		if err != nil {
			return nil, fmt.Errorf("failed to read template %s: %w", name, err)
		}

		tmpl, err := template.New(string(name)).Funcs(template.FuncMap{
			"upper": strings.ToUpper,
		}).Option("missingkey=error").Parse(string(content))
		if err != nil {
			return nil, fmt.Errorf("failed to parse template %s: %w", name, err)
		}
		for _, part := range []string{"system", "user"} {
			if tmpl.Lookup(part) == nil {
				return nil, fmt.Errorf("template %s does not define %q", name, part)
			}
		}

		r.templates[name] = tmpl
	}

	return r, nil
}

// Render renders the system and user prompt of the named template.
func (r *Renderer) Render(id ID, data *TemplateData) (system, user string, err error) {
	tmpl, exists := r.templates[id]
	if !exists {
		return "", "", fmt.Errorf("template %s not found", id)
	}
	if data == nil {
		data = &TemplateData{}
	}

	if system, err = execute(tmpl, "system", data); err != nil {
		return "", "", fmt.Errorf("failed to render template %s: %w", id, err)
	}
	if user, err = execute(tmpl, "user", data); err != nil {
		return "", "", fmt.Errorf("failed to render template %s: %w", id, err)
	}
	return system, user, nil
}

func execute(tmpl *template.Template, part string, data *TemplateData) (string, error) {
	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, part, data); err != nil {
		return "", err //nolint:wrapcheck // wrapped by caller
	}
	return strings.TrimSpace(buf.String()), nil
}

//nolint:gochecknoglobals // parsed once, read-only afterwards
var (
	defaultOnce     sync.Once
	defaultRenderer *Renderer
	defaultErr      error
)

// Render renders id with the package's embedded templates.
func Render(id ID, data *TemplateData) (system, user string, err error) {
	defaultOnce.Do(func() {
		defaultRenderer, defaultErr = NewRenderer()
	})
	if defaultErr != nil {
		return "", "", defaultErr
	}
	return defaultRenderer.Render(id, data)
}
