package placement

import (
	"fmt"

	"github.com/kailas-cloud/refurnish/internal/domain/catalog"
)

// Language selects the instruction and preference wording.
type Language string

// Supported languages.
const (
	English Language = "en"
	Chinese Language = "zh"
)

// Normalize maps unknown languages to English.
func (l Language) Normalize() Language {
	if l == Chinese {
		return Chinese
	}
	return English
}

// Target is an item the user marked in the photo.
type Target struct {
	name        string
	description string
}

// NewTarget validates and creates a Target. Description locates the item
// in screen space ("left third, partly behind the table").
func NewTarget(name, description string) (Target, error) {
	if name == "" {
		return Target{}, fmt.Errorf("target name is required")
	}
	return Target{name: name, description: description}, nil
}

// Name returns the target item name.
func (t Target) Name() string { return t.name }

// Description returns the screen-space description.
func (t Target) Description() string { return t.description }

// Preferences holds the user's shopping preferences.
type Preferences struct {
	style       string
	usedWeight  float64
	featureTags []string
	budget      *catalog.PriceRange
	roomType    string
	language    Language
}

// NewPreferences validates and creates Preferences. usedWeight must be in [0,1].
func NewPreferences(
	style string,
	usedWeight float64,
	featureTags []string,
	budget *catalog.PriceRange,
	roomType string,
	language Language,
) (Preferences, error) {
	if !(usedWeight >= 0 && usedWeight <= 1) {
		return Preferences{}, fmt.Errorf("used weight must be in [0,1], got %v", usedWeight)
	}
	return Preferences{
		style:       style,
		usedWeight:  usedWeight,
		featureTags: append([]string(nil), featureTags...),
		budget:      budget,
		roomType:    roomType,
		language:    language.Normalize(),
	}, nil
}

// Style returns the preferred style, empty when the user has none.
func (p Preferences) Style() string { return p.style }

// UsedWeight returns the preference for second-hand items in [0,1].
func (p Preferences) UsedWeight() float64 { return p.usedWeight }

// PrefersUsed reports whether used items are favored.
func (p Preferences) PrefersUsed() bool { return p.usedWeight > 0.5 }

// FeatureTags returns the requested functional features.
func (p Preferences) FeatureTags() []string { return p.featureTags }

// Budget returns the price range, nil when unconstrained.
func (p Preferences) Budget() *catalog.PriceRange { return p.budget }

// RoomType returns the room type hint.
func (p Preferences) RoomType() string { return p.roomType }

// Language returns the response language.
func (p Preferences) Language() Language {
	if p.language == "" {
		return English
	}
	return p.language
}
