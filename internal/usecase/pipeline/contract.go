package pipeline

import (
	"context"

	"github.com/kailas-cloud/refurnish/internal/domain"
	"github.com/kailas-cloud/refurnish/internal/domain/catalog"
	domconcept "github.com/kailas-cloud/refurnish/internal/domain/concept"
	"github.com/kailas-cloud/refurnish/internal/domain/dimension"
	"github.com/kailas-cloud/refurnish/internal/domain/placement"
	"github.com/kailas-cloud/refurnish/internal/domain/room"
	"github.com/kailas-cloud/refurnish/internal/usecase/concept"
	"github.com/kailas-cloud/refurnish/internal/usecase/matching"
)

// Calibrator measures target furniture from photos.
type Calibrator interface {
	Calibrate(
		ctx context.Context,
		photos []domain.Image,
		referenceID string,
		targets []placement.Target,
		lang placement.Language,
	) ([]dimension.Estimate, error)
}

// Profiler describes the room in one photo.
type Profiler interface {
	Profile(ctx context.Context, photo domain.Image, roomTypeHint string, lang placement.Language) (room.Profile, error)
}

// ConceptGenerator proposes and renders replacement concepts.
type ConceptGenerator interface {
	Generate(ctx context.Context, req concept.Request) ([]domconcept.Concept, error)
	Render(ctx context.Context, c domconcept.Concept, photo domain.Image) (domain.RenderResult, error)
}

// Matcher ranks catalog items.
type Matcher interface {
	Search(q matching.SearchQuery) ([]catalog.Match, error)
	Filter(q matching.FilterQuery) ([]catalog.Match, error)
}
