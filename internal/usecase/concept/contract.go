package concept

import (
	"context"

	"github.com/kailas-cloud/refurnish/internal/domain"
	"github.com/kailas-cloud/refurnish/internal/domain/placement"
	"github.com/kailas-cloud/refurnish/internal/prompt"
)

// VisionClient proposes concepts and renders them.
type VisionClient interface {
	Analyze(ctx context.Context, req domain.AnalysisRequest) (domain.AnalysisResult, error)
	Render(ctx context.Context, req domain.RenderRequest) (domain.RenderResult, error)
}

// TemplateRenderer builds instruction text and serves few-shot examples.
type TemplateRenderer interface {
	Render(templateID string, lang placement.Language, vars prompt.Vars, examples []prompt.Example) (string, error)
	Examples(templateID string, lang placement.Language) []prompt.Example
}
