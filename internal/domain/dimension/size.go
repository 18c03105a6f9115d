package dimension

import "math"

// Size is a length/width/height triple in centimeters.
type Size struct {
	Length float64
	Width  float64
	Height float64
}

// IsZero reports whether no axis is set.
func (s Size) IsZero() bool { return s.Length == 0 && s.Width == 0 && s.Height == 0 }

// Valid reports whether every axis is finite and positive.
func (s Size) Valid() bool {
	for _, v := range s.Axes() {
		if math.IsNaN(v) || math.IsInf(v, 0) || v <= 0 {
			return false
		}
	}
	return true
}

// Axes returns the axes in length, width, height order.
func (s Size) Axes() [3]float64 { return [3]float64{s.Length, s.Width, s.Height} }

// Fits reports whether every axis of s is within limit scaled by factor.
func (s Size) Fits(limit Size, factor float64) bool {
	a, b := s.Axes(), limit.Axes()
	for i := range a {
		if a[i] > b[i]*factor {
			return false
		}
	}
	return true
}

// Size returns the estimate as a Size.
func (e Estimate) Size() Size {
	return Size{Length: e.lengthCm, Width: e.widthCm, Height: e.heightCm}
}
