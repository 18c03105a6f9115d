package prompt

import (
	"errors"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/kailas-cloud/refurnish/internal/domain"
	"github.com/kailas-cloud/refurnish/internal/domain/placement"
)

func testEngine(t *testing.T) *Engine {
	t.Helper()
	fsys := fstest.MapFS{
		"greet.yaml": &fstest.MapFile{Data: []byte(`id: greet
text:
  en: |
    Hello {{name}}, you are {{age}}.

    Tags: {{tags}}   
    {{examples}}
  zh: |
    你好 {{name}}
`)},
	}
	e, err := Load(fsys)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	return e
}

func TestRender_Substitutes(t *testing.T) {
	e := testEngine(t)
	got, err := e.Render("greet", placement.English, Vars{
		"name": "Ada",
		"age":  36.5,
		"tags": []string{"a", "b"},
	}, nil)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	want := "Hello Ada, you are 36.5.\nTags: a, b"
	if got != want {
		t.Errorf("Render() =\n%q\nwant\n%q", got, want)
	}
}

func TestRender_LanguageFallback(t *testing.T) {
	e := testEngine(t)
	got, err := e.Render("greet", placement.Chinese, Vars{"name": "Ada"}, nil)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if got != "你好 Ada" {
		t.Errorf("zh = %q", got)
	}
	got, err = e.Render("greet", placement.Language("fr"), Vars{"name": "A", "age": 1, "tags": "x"}, nil)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if !strings.HasPrefix(got, "Hello A") {
		t.Errorf("fr should fall back to en, got %q", got)
	}
}

func TestRender_MissingVariable(t *testing.T) {
	e := testEngine(t)
	_, err := e.Render("greet", placement.English, Vars{"name": "Ada"}, nil)
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, domain.ErrMissingVariable) {
		t.Errorf("error %v should wrap ErrMissingVariable", err)
	}
	var mv *MissingVariableError
	if !errors.As(err, &mv) {
		t.Fatalf("error %T is not *MissingVariableError", err)
	}
	if mv.Template != "greet" || mv.Name != "age" {
		t.Errorf("got template=%q name=%q, want greet/age", mv.Template, mv.Name)
	}
}

func TestRender_UnknownTemplate(t *testing.T) {
	e := testEngine(t)
	_, err := e.Render("nope", placement.English, nil, nil)
	if !errors.Is(err, domain.ErrTemplateNotFound) {
		t.Errorf("error = %v, want ErrTemplateNotFound", err)
	}
}

func TestRender_Deterministic(t *testing.T) {
	e := testEngine(t)
	vars := Vars{"name": "Ada", "age": 3, "tags": "x"}
	examples := []Example{{
		ID:     "e1",
		Input:  map[string]any{"z": 1, "a": map[string]any{"y": "b", "x": "a"}},
		Output: "ok",
	}}
	first, err := e.Render("greet", placement.English, vars, examples)
	if err != nil {
		t.Fatal(err)
	}
	for range 20 {
		got, err := e.Render("greet", placement.English, vars, examples)
		if err != nil {
			t.Fatal(err)
		}
		if got != first {
			t.Fatalf("non-deterministic output:\n%s\n---\n%s", first, got)
		}
	}
	if strings.Index(first, "a:") > strings.Index(first, "z: 1") {
		t.Error("map keys not sorted")
	}
}

func TestRender_ValuesAreNotReexpanded(t *testing.T) {
	e := testEngine(t)
	got, err := e.Render("greet", placement.Chinese, Vars{"name": "{{age}}"}, nil)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if got != "你好 {{age}}" {
		t.Errorf("got %q", got)
	}
}

func TestFormatExamples(t *testing.T) {
	got := FormatExamples([]Example{{
		Input:     map[string]any{"furniture": "Chair"},
		Reasoning: "bright room",
		Output:    map[string]any{"name": "Oak"},
	}})
	for _, want := range []string{
		`<example id="example_1">`,
		"<input>", "furniture: Chair", "</input>",
		"<reasoning>bright room</reasoning>",
		"<output>", "name: Oak", "</output>", "</example>",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("missing %q in\n%s", want, got)
		}
	}
	if FormatExamples(nil) != "" {
		t.Error("empty examples should format to empty string")
	}
}

func TestClean(t *testing.T) {
	got := Clean("a  \n\n   \n  b\t\n")
	if got != "a\n  b" {
		t.Errorf("Clean() = %q", got)
	}
}

func exampleSet() []Example {
	return []Example{
		{ID: "1", Category: "Sofa"},
		{ID: "2", Category: "Office Chair"},
		{ID: "3", Category: "Table"},
		{ID: "4", Category: "chair"},
	}
}

func ids(ex []Example) string {
	parts := make([]string, len(ex))
	for i, e := range ex {
		parts[i] = e.ID
	}
	return strings.Join(parts, ",")
}

func TestSelectExamples_Matches(t *testing.T) {
	got := SelectExamples(exampleSet(), "CHAIR", 2)
	if ids(got) != "2,4" {
		t.Errorf("got %s, want 2,4", ids(got))
	}
}

func TestSelectExamples_ReverseSubstring(t *testing.T) {
	got := SelectExamples(exampleSet(), "dining table", 1)
	if ids(got) != "3" {
		t.Errorf("got %s, want 3", ids(got))
	}
}

func TestSelectExamples_Backfill(t *testing.T) {
	got := SelectExamples(exampleSet(), "wardrobe", 3)
	if ids(got) != "1,2,3" {
		t.Errorf("got %s, want 1,2,3", ids(got))
	}
	got = SelectExamples(exampleSet(), "chair", 3)
	if ids(got) != "2,4,1" {
		t.Errorf("partial match should backfill, got %s", ids(got))
	}
}

func TestSelectExamples_Limits(t *testing.T) {
	if got := SelectExamples(exampleSet(), "x", 10); len(got) != 4 {
		t.Errorf("len = %d, want 4", len(got))
	}
	if got := SelectExamples(exampleSet(), "x", 0); got != nil {
		t.Errorf("limit 0 should return nil, got %v", got)
	}
	if got := SelectExamples(nil, "x", 3); got != nil {
		t.Errorf("no examples should return nil, got %v", got)
	}
}

func TestNewEngine_EmbeddedTemplates(t *testing.T) {
	e, err := NewEngine()
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	for _, id := range []string{TemplateCalibration, TemplateProfiling, TemplateConcepts} {
		for _, lang := range []placement.Language{placement.English, placement.Chinese} {
			if _, ok := e.templates[id].Text[lang]; !ok {
				t.Errorf("template %s has no %s text", id, lang)
			}
		}
	}
	if len(e.Examples(TemplateConcepts, placement.English)) == 0 {
		t.Error("concepts template has no english examples")
	}
	if len(e.Examples(TemplateCalibration, placement.Chinese)) != 0 {
		t.Error("calibration template should have no examples")
	}
}

func TestNewEngine_ProfilingRenders(t *testing.T) {
	e, err := NewEngine()
	if err != nil {
		t.Fatal(err)
	}
	got, err := e.Render(TemplateProfiling, placement.English, Vars{"room_type": "Living room"}, nil)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if !strings.Contains(got, "Living room") || !strings.Contains(got, "inherent_style") {
		t.Errorf("unexpected profiling instruction:\n%s", got)
	}
	if strings.Contains(got, "\n\n") {
		t.Error("blank lines survived rendering")
	}
}
