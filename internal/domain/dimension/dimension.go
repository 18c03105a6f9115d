package dimension

import (
	"fmt"
	"math"
)

// Estimate is a measured target item in centimeters (immutable value object).
type Estimate struct {
	itemName   string
	lengthCm   float64
	widthCm    float64
	heightCm   float64
	confidence float64
}

// New validates and creates an Estimate.
// All axes must be finite and positive, confidence in [0,1].
func New(itemName string, lengthCm, widthCm, heightCm, confidence float64) (Estimate, error) {
	if itemName == "" {
		return Estimate{}, fmt.Errorf("item name is required")
	}
	for _, v := range []float64{lengthCm, widthCm, heightCm} {
		if math.IsNaN(v) || math.IsInf(v, 0) || v <= 0 {
			return Estimate{}, fmt.Errorf("dimensions of %q must be positive, got %vx%vx%v",
				itemName, lengthCm, widthCm, heightCm)
		}
	}
	if math.IsNaN(confidence) || confidence < 0 || confidence > 1 {
		return Estimate{}, fmt.Errorf("confidence of %q must be in [0,1], got %v", itemName, confidence)
	}
	return Estimate{
		itemName:   itemName,
		lengthCm:   lengthCm,
		widthCm:    widthCm,
		heightCm:   heightCm,
		confidence: confidence,
	}, nil
}

// ItemName returns the measured item's name.
func (e Estimate) ItemName() string { return e.itemName }

// LengthCm returns the length.
func (e Estimate) LengthCm() float64 { return e.lengthCm }

// WidthCm returns the width.
func (e Estimate) WidthCm() float64 { return e.widthCm }

// HeightCm returns the height.
func (e Estimate) HeightCm() float64 { return e.heightCm }

// Confidence returns the provider's confidence in [0,1].
func (e Estimate) Confidence() float64 { return e.confidence }

// IsZero reports whether e is the zero value.
func (e Estimate) IsZero() bool { return e.itemName == "" }

// String formats the size as "LxWxH cm".
func (e Estimate) String() string {
	return fmt.Sprintf("%gx%gx%g cm", e.lengthCm, e.widthCm, e.heightCm)
}
