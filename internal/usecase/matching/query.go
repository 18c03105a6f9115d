package matching

import (
	"fmt"
	"math"

	"github.com/kailas-cloud/refurnish/internal/domain"
	"github.com/kailas-cloud/refurnish/internal/domain/catalog"
	"github.com/kailas-cloud/refurnish/internal/domain/dimension"
)

// Ranking limits and weights.
const (
	MaxResults       = 10
	DefaultTolerance = 0.15
	MinSearchScore   = 0.3
	FilterSizeFactor = 1.05

	styleWeight = 0.6
	sizeWeight  = 0.4

	filterStylePoints   = 40
	filterFeaturePoints = 15
	filterSourcePoints  = 30
	filterBudgetPoints  = 20
)

// SearchQuery drives keyword search.
type SearchQuery struct {
	// Category filters by case-insensitive substring in either direction. Empty matches all.
	Category string
	// Target enables the size score. Nil scores every item 1.0 on size.
	Target *dimension.Size
	// Keywords are matched against style tags and the color tag.
	Keywords []string
	// Tolerance is the average relative deviation at which the size score reaches 0.
	// Zero means DefaultTolerance.
	Tolerance float64
	// SizeMargin > 0 rejects items with any axis above target*(1+SizeMargin).
	SizeMargin float64
	// PriceRange rejects items priced outside it.
	PriceRange *catalog.PriceRange
	// Limit caps the result count at min(Limit, MaxResults). Zero means MaxResults.
	Limit int
}

func (q SearchQuery) validate() error {
	if q.Target != nil && !q.Target.Valid() {
		return fmt.Errorf("%w: target dimensions must be positive", domain.ErrInputValidation)
	}
	if !finite(q.Tolerance) || q.Tolerance < 0 {
		return fmt.Errorf("%w: tolerance must not be negative", domain.ErrInputValidation)
	}
	if !finite(q.SizeMargin) || q.SizeMargin < 0 {
		return fmt.Errorf("%w: size margin must not be negative", domain.ErrInputValidation)
	}
	if q.SizeMargin > 0 && q.Target == nil {
		return fmt.Errorf("%w: size margin requires target dimensions", domain.ErrInputValidation)
	}
	return validatePrice(q.PriceRange)
}

// FilterQuery drives the requirement filter.
type FilterQuery struct {
	Category string
	// Target rejects items with any axis above target*1.05. Nil disables the size filter.
	Target *dimension.Size
	// RoomStyle is the profiled room style; +40 when any item style tag occurs in it.
	RoomStyle string
	// FeatureTags earn +15 each when the item carries them.
	FeatureTags []string
	// UsedWeight in [0,1] favors used (1) or new (0) items with up to +30.
	UsedWeight float64
	// Budget rejects items outside it and adds up to +20 for price near its midpoint.
	Budget *catalog.PriceRange
	Limit  int
}

func (q FilterQuery) validate() error {
	if q.Target != nil && !q.Target.Valid() {
		return fmt.Errorf("%w: target dimensions must be positive", domain.ErrInputValidation)
	}
	if !(q.UsedWeight >= 0 && q.UsedWeight <= 1) {
		return fmt.Errorf("%w: used weight must be in [0,1]", domain.ErrInputValidation)
	}
	return validatePrice(q.Budget)
}

func validatePrice(r *catalog.PriceRange) error {
	if r == nil {
		return nil
	}
	if !finite(r.Min()) || !finite(r.Max()) || r.Min() < 0 || r.Min() > r.Max() {
		return fmt.Errorf("%w: invalid price range %s", domain.ErrInputValidation, r)
	}
	return nil
}

func finite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }

func limitOf(n int) int {
	if n <= 0 || n > MaxResults {
		return MaxResults
	}
	return n
}
