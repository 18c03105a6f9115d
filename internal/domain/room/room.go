package room

import "fmt"

// Profile is the visual profile of a photographed room (immutable value object).
type Profile struct {
	styleLabel            string
	dominantColorMaterial string
	lightDirection        string
	shadowIntensity       string
}

// New validates and creates a Profile. Every field must be non-empty.
func New(styleLabel, dominantColorMaterial, lightDirection, shadowIntensity string) (Profile, error) {
	switch {
	case styleLabel == "":
		return Profile{}, fmt.Errorf("room style is required")
	case dominantColorMaterial == "":
		return Profile{}, fmt.Errorf("dominant color/material is required")
	case lightDirection == "":
		return Profile{}, fmt.Errorf("light direction is required")
	case shadowIntensity == "":
		return Profile{}, fmt.Errorf("shadow intensity is required")
	}
	return Profile{
		styleLabel:            styleLabel,
		dominantColorMaterial: dominantColorMaterial,
		lightDirection:        lightDirection,
		shadowIntensity:       shadowIntensity,
	}, nil
}

// StyleLabel returns the inherent style of the room.
func (p Profile) StyleLabel() string { return p.styleLabel }

// DominantColorMaterial returns the dominant color and material.
func (p Profile) DominantColorMaterial() string { return p.dominantColorMaterial }

// LightDirection returns the main light source direction.
func (p Profile) LightDirection() string { return p.lightDirection }

// ShadowIntensity returns the shadow intensity description.
func (p Profile) ShadowIntensity() string { return p.shadowIntensity }

// IsZero reports whether p is the zero value.
func (p Profile) IsZero() bool { return p.styleLabel == "" }
