package catalog

import (
	"fmt"
	"math"
)

// PriceRange is an inclusive [Min, Max] budget.
type PriceRange struct {
	min float64
	max float64
}

// NewPriceRange validates and creates a PriceRange. Both bounds must be finite
// and Min must not exceed Max.
func NewPriceRange(minPrice, maxPrice float64) (PriceRange, error) {
	for _, v := range []float64{minPrice, maxPrice} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return PriceRange{}, fmt.Errorf("price range bound %v is not a finite number", v)
		}
	}
	if minPrice < 0 {
		return PriceRange{}, fmt.Errorf("price range minimum must not be negative")
	}
	if minPrice > maxPrice {
		return PriceRange{}, fmt.Errorf("price range minimum %v exceeds maximum %v", minPrice, maxPrice)
	}
	return PriceRange{min: minPrice, max: maxPrice}, nil
}

// Min returns the lower bound.
func (r PriceRange) Min() float64 { return r.min }

// Max returns the upper bound.
func (r PriceRange) Max() float64 { return r.max }

// Contains reports whether price lies within the range, bounds included.
func (r PriceRange) Contains(price float64) bool { return price >= r.min && price <= r.max }

// Mid returns the midpoint of the range.
func (r PriceRange) Mid() float64 { return (r.min + r.max) / 2 }

// Width returns max - min.
func (r PriceRange) Width() float64 { return r.max - r.min }

func (r PriceRange) String() string { return fmt.Sprintf("%g-%g", r.min, r.max) }
