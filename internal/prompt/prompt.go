// Package prompt renders instructions for the vision provider from embedded
// per-language templates with {{name}} placeholders and few-shot examples.
package prompt

import (
	"embed"
	"fmt"
	"io/fs"
	"path"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/kailas-cloud/refurnish/internal/domain"
	"github.com/kailas-cloud/refurnish/internal/domain/placement"
)

// Template identifiers.
const (
	TemplateCalibration = "calibration"
	TemplateProfiling   = "profiling"
	TemplateConcepts    = "concepts"
)

// ExamplesVar is the reserved placeholder that receives the serialized example block.
const ExamplesVar = "examples"

//go:embed templates/*.yaml
var embedded embed.FS

var placeholderRe = regexp.MustCompile(`\{\{\s*([A-Za-z0-9_]+)\s*\}\}`)

// Vars maps placeholder names to values.
type Vars map[string]any

// Example is a few-shot sample. Input and Output hold strings or nested maps.
type Example struct {
	ID        string `yaml:"id"`
	Category  string `yaml:"category"`
	Input     any    `yaml:"input"`
	Reasoning string `yaml:"reasoning"`
	Output    any    `yaml:"output"`
}

// MissingVariableError reports a placeholder with no value.
type MissingVariableError struct {
	Template string
	Name     string
}

func (e *MissingVariableError) Error() string {
	return fmt.Sprintf("template %s: %s %q", e.Template, domain.ErrMissingVariable.Error(), e.Name)
}

func (e *MissingVariableError) Unwrap() error { return domain.ErrMissingVariable }

type templateFile struct {
	ID       string                          `yaml:"id"`
	Text     map[placement.Language]string   `yaml:"text"`
	Examples map[placement.Language][]Example `yaml:"examples"`
}

// Engine holds parsed templates. Read-only after construction, safe for concurrent use.
type Engine struct {
	templates map[string]templateFile
}

// NewEngine loads the embedded templates.
func NewEngine() (*Engine, error) {
	sub, err := fs.Sub(embedded, "templates")
	if err != nil {
		return nil, fmt.Errorf("templates: %w", err)
	}
	return Load(sub)
}

// Load parses every *.yaml file at the root of fsys.
func Load(fsys fs.FS) (*Engine, error) {
	names, err := fs.Glob(fsys, "*.yaml")
	if err != nil {
		return nil, fmt.Errorf("list templates: %w", err)
	}
	e := &Engine{templates: make(map[string]templateFile, len(names))}
	for _, name := range names {
		data, err := fs.ReadFile(fsys, name)
		if err != nil {
			return nil, fmt.Errorf("read template %s: %w", name, err)
		}
		var tf templateFile
		if err := yaml.Unmarshal(data, &tf); err != nil {
			return nil, fmt.Errorf("parse template %s: %w", name, err)
		}
		if tf.ID == "" {
			tf.ID = strings.TrimSuffix(path.Base(name), ".yaml")
		}
		if _, ok := tf.Text[placement.English]; !ok {
			return nil, fmt.Errorf("template %s: english text is required", tf.ID)
		}
		if _, dup := e.templates[tf.ID]; dup {
			return nil, fmt.Errorf("duplicate template id %q", tf.ID)
		}
		e.templates[tf.ID] = tf
	}
	return e, nil
}

// Examples returns the few-shot examples of a template in the given language
// (English when the language has none).
func (e *Engine) Examples(templateID string, lang placement.Language) []Example {
	tf, ok := e.templates[templateID]
	if !ok {
		return nil
	}
	if ex, ok := tf.Examples[lang]; ok {
		return ex
	}
	return tf.Examples[placement.English]
}

// Render substitutes vars and examples into the template. Unknown languages fall
// back to English. Every placeholder must have a value, otherwise a
// *MissingVariableError is returned.
func (e *Engine) Render(templateID string, lang placement.Language, vars Vars, examples []Example) (string, error) {
	tf, ok := e.templates[templateID]
	if !ok {
		return "", fmt.Errorf("%w: %s", domain.ErrTemplateNotFound, templateID)
	}
	text, ok := tf.Text[lang]
	if !ok {
		text = tf.Text[placement.English]
	}

	var missing *MissingVariableError
	out := placeholderRe.ReplaceAllStringFunc(text, func(m string) string {
		name := placeholderRe.FindStringSubmatch(m)[1]
		if name == ExamplesVar {
			return FormatExamples(examples)
		}
		v, ok := vars[name]
		if !ok {
			if missing == nil {
				missing = &MissingVariableError{Template: templateID, Name: name}
			}
			return m
		}
		return stringify(v)
	})
	if missing != nil {
		return "", missing
	}
	return Clean(out), nil
}

// SelectExamples picks up to limit examples whose category matches (case-insensitive
// substring, either direction), then backfills with the remaining examples in
// source order until min(limit, len(all)) are returned.
func SelectExamples(all []Example, category string, limit int) []Example {
	if limit <= 0 || len(all) == 0 {
		return nil
	}
	want := min(limit, len(all))
	out := make([]Example, 0, want)
	used := make([]bool, len(all))

	cat := strings.ToLower(strings.TrimSpace(category))
	if cat != "" {
		for i, ex := range all {
			if len(out) == want {
				break
			}
			c := strings.ToLower(ex.Category)
			if c != "" && (strings.Contains(c, cat) || strings.Contains(cat, c)) {
				out = append(out, ex)
				used[i] = true
			}
		}
	}
	for i, ex := range all {
		if len(out) == want {
			break
		}
		if !used[i] {
			out = append(out, ex)
		}
	}
	return out
}

// Clean trims trailing whitespace on every line and drops blank lines.
func Clean(s string) string {
	lines := strings.Split(s, "\n")
	kept := lines[:0]
	for _, l := range lines {
		l = strings.TrimRight(l, " \t\r")
		if strings.TrimSpace(l) == "" {
			continue
		}
		kept = append(kept, l)
	}
	return strings.Join(kept, "\n")
}
