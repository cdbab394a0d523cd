// Package prompts holds the versioned prompt templates sent to the text-generation service.
package prompts

import (
	_ "embed"
	"fmt"
	"strings"
	"text/template"

	"gopkg.in/yaml.v3"

	"github.com/deckforge/api/internal/models"
)

//go:embed templates.yaml
var embeddedTemplates []byte

// Template names
const (
	ContentStrategist    = "content_strategist"
	VisualDesigner       = "visual_designer"
	SingleStrict         = "single_strict"
	SingleStrictGraphics = "single_strict_graphics"
	SingleCreative       = "single_creative"
)

var requiredTemplates = []string{ContentStrategist, VisualDesigner, SingleStrict, SingleStrictGraphics, SingleCreative}

// Prompt is a rendered system/user pair.
type Prompt struct {
	System string
	User   string
}

// ContentData feeds the content strategist.
type ContentData struct {
	Content      string
	References   string
	Instructions string
}

// DesignData feeds the visual designer.
type DesignData struct {
	PlanJSON    string
	SlideCount  int
	BrandColors *models.ColorScheme
}

// SinglePhaseData feeds the single-phase templates.
type SinglePhaseData struct {
	Content      string
	References   string
	Instructions string
	Brand        *models.BrandAssets
}

type templateFile struct {
	Version   string                 `yaml:"version"`
	Templates map[string]templatePair `yaml:"templates"`
	Partials  map[string]string      `yaml:"partials"`
}

type templatePair struct {
	System string `yaml:"system"`
	User   string `yaml:"user"`
}

type parsedPair struct {
	system *template.Template
	user   *template.Template
}

// Library renders named templates.
type Library struct {
	version   string
	templates map[string]parsedPair
}

// Load parses the embedded template file.
func Load() (*Library, error) {
	return Parse(embeddedTemplates)
}

// Parse builds a library from YAML template data.
func Parse(data []byte) (*Library, error) {
	var file templateFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("decode prompt templates: %w", err)
	}

	lib := &Library{version: file.Version, templates: make(map[string]parsedPair)}
	for name, pair := range file.Templates {
		system, err := parse(name+".system", pair.System, file.Partials)
		if err != nil {
			return nil, err
		}
		user, err := parse(name+".user", pair.User, file.Partials)
		if err != nil {
			return nil, err
		}
		lib.templates[name] = parsedPair{system: system, user: user}
	}

	for _, name := range requiredTemplates {
		if _, ok := lib.templates[name]; !ok {
			return nil, fmt.Errorf("prompt template %q missing", name)
		}
	}
	return lib, nil
}

var funcs = template.FuncMap{"join": strings.Join}

func parse(name, text string, partials map[string]string) (*template.Template, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("prompt template %q is empty", name)
	}
	t := template.New(name).Funcs(funcs).Option("missingkey=error")
	for pname, ptext := range partials {
		if _, err := t.New(pname).Parse(ptext); err != nil {
			return nil, fmt.Errorf("parse partial %q: %w", pname, err)
		}
	}
	if _, err := t.Parse(text); err != nil {
		return nil, fmt.Errorf("parse prompt template %q: %w", name, err)
	}
	return t, nil
}

// Version identifies the template revision.
func (l *Library) Version() string {
	return l.version
}

// Render executes the named template pair with data.
func (l *Library) Render(name string, data any) (Prompt, error) {
	pair, ok := l.templates[name]
	if !ok {
		return Prompt{}, fmt.Errorf("unknown prompt template %q", name)
	}

	var system, user strings.Builder
	if err := pair.system.Execute(&system, data); err != nil {
		return Prompt{}, fmt.Errorf("render %s system prompt: %w", name, err)
	}
	if err := pair.user.Execute(&user, data); err != nil {
		return Prompt{}, fmt.Errorf("render %s user prompt: %w", name, err)
	}
	return Prompt{System: strings.TrimSpace(system.String()), User: strings.TrimSpace(user.String())}, nil
}
