package chi

import (
	"context"

	"github.com/kailas-cloud/refurnish/internal/domain/catalog"
	"github.com/kailas-cloud/refurnish/internal/domain/dimension"
	"github.com/kailas-cloud/refurnish/internal/domain/reference"
	domusage "github.com/kailas-cloud/refurnish/internal/domain/usage"
	"github.com/kailas-cloud/refurnish/internal/usecase/matching"
	"github.com/kailas-cloud/refurnish/internal/usecase/pipeline"
)

// Pipeline runs the placement entry points.
type Pipeline interface {
	MeasureDimensions(ctx context.Context, req pipeline.MeasureRequest) (dimension.Estimate, error)
	GeneratePlacement(ctx context.Context, req pipeline.PlacementRequest) (*pipeline.PlacementResult, error)
	RecommendReplacements(ctx context.Context, req pipeline.PlacementRequest) (*pipeline.ReplacementResult, error)
}

// CatalogSearcher runs keyword search over the product catalog.
type CatalogSearcher interface {
	Search(q matching.SearchQuery) ([]catalog.Match, error)
}

// ReferenceLister lists calibration reference objects.
type ReferenceLister interface {
	List() []reference.Object
}

// UsageReporter reports vision token usage.
type UsageReporter interface {
	GetReport(ctx context.Context, period domusage.Period) domusage.Report
}
