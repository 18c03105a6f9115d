package profiling

import (
	"context"

	"github.com/kailas-cloud/refurnish/internal/domain"
	"github.com/kailas-cloud/refurnish/internal/domain/placement"
	"github.com/kailas-cloud/refurnish/internal/prompt"
)

// VisionAnalyzer answers structured questions about photos.
type VisionAnalyzer interface {
	Analyze(ctx context.Context, req domain.AnalysisRequest) (domain.AnalysisResult, error)
}

// TemplateRenderer builds instruction text.
type TemplateRenderer interface {
	Render(templateID string, lang placement.Language, vars prompt.Vars, examples []prompt.Example) (string, error)
}
