package pipeline

import (
	"io"

	"github.com/kailas-cloud/refurnish/internal/domain"
	"github.com/kailas-cloud/refurnish/internal/domain/catalog"
	domconcept "github.com/kailas-cloud/refurnish/internal/domain/concept"
	"github.com/kailas-cloud/refurnish/internal/domain/dimension"
	"github.com/kailas-cloud/refurnish/internal/domain/placement"
	"github.com/kailas-cloud/refurnish/internal/domain/room"
)

// Photo is an uploaded room photo. Content is consumed once.
type Photo struct {
	Filename string
	MIMEType string
	Content  io.Reader
}

// MeasureRequest is the input of MeasureDimensions.
type MeasureRequest struct {
	Photos      []Photo
	ReferenceID string
	Target      placement.Target
	Language    placement.Language
}

// PlacementRequest is the input of GeneratePlacement and RecommendReplacements.
type PlacementRequest struct {
	Photos      []Photo
	ReferenceID string
	Target      placement.Target
	Preferences placement.Preferences
}

// SpecMatches is the catalog ranking for one furniture spec.
type SpecMatches struct {
	Spec    domconcept.FurnitureSpec
	Matches []catalog.Match
}

// ConceptResult is one concept with its rankings and rendered image. Image is
// nil when rendering failed.
type ConceptResult struct {
	Concept domconcept.Concept
	Items   []SpecMatches
	Image   *domain.RenderResult
}

// PlacementResult is the output of GeneratePlacement.
type PlacementResult struct {
	RunID       string
	Dimensions  dimension.Estimate
	Environment room.Profile
	Concepts    []ConceptResult
}

// ReplacementResult is the output of RecommendReplacements.
type ReplacementResult struct {
	RunID       string
	Dimensions  dimension.Estimate
	Environment room.Profile
	Matches     []catalog.Match
}
