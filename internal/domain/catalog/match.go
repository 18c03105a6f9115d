package catalog

import "fmt"

// Match is a catalog item scored against a query.
type Match struct {
	item       Item
	styleScore float64
	sizeScore  float64
	matchScore float64
	rawScore   int
}

// NewMatch creates a Match. Every score must be in [0,1].
func NewMatch(item Item, styleScore, sizeScore, matchScore float64, rawScore int) (Match, error) {
	for _, s := range []float64{styleScore, sizeScore, matchScore} {
		if !(s >= 0 && s <= 1) {
			return Match{}, fmt.Errorf("score %v for item %q out of [0,1]", s, item.ID())
		}
	}
	return Match{
		item:       item,
		styleScore: styleScore,
		sizeScore:  sizeScore,
		matchScore: matchScore,
		rawScore:   rawScore,
	}, nil
}

// Item returns the matched catalog item.
func (m Match) Item() Item { return m.item }

// StyleScore returns the style component in [0,1].
func (m Match) StyleScore() float64 { return m.styleScore }

// SizeScore returns the size component in [0,1].
func (m Match) SizeScore() float64 { return m.sizeScore }

// MatchScore returns the composite score in [0,1].
func (m Match) MatchScore() float64 { return m.matchScore }

// RawScore returns the unnormalized additive score (requirement filter only).
func (m Match) RawScore() int { return m.rawScore }

// NoMatch reports whether a ranking came back empty. An empty ranking is a
// valid answer, not a failure.
func NoMatch(ms []Match) bool { return len(ms) == 0 }
