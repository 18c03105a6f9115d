package matching

import (
	"math"
	"sort"
	"strings"

	"github.com/kailas-cloud/refurnish/internal/domain/catalog"
	"github.com/kailas-cloud/refurnish/internal/domain/dimension"
)

// Service ranks catalog items. It never mutates the catalog and is safe for
// concurrent use.
type Service struct {
	catalog *catalog.Catalog
}

// New creates a matching service over a read-only catalog.
func New(c *catalog.Catalog) *Service {
	return &Service{catalog: c}
}

// Search ranks items by style keywords and size closeness:
// matchScore = round2(style*0.6 + size*0.4). Results below MinSearchScore are
// dropped. An empty slice means no match.
func (s *Service) Search(q SearchQuery) ([]catalog.Match, error) {
	if err := q.validate(); err != nil {
		return nil, err
	}
	tolerance := q.Tolerance
	if tolerance == 0 {
		tolerance = DefaultTolerance
	}
	keywords := normalize(q.Keywords)

	out := make([]catalog.Match, 0)
	for _, it := range s.catalog.Items() {
		if !categoryMatches(it.CategoryTerms(), q.Category) {
			continue
		}
		if q.SizeMargin > 0 && !it.Size().Fits(*q.Target, 1+q.SizeMargin) {
			continue
		}
		if q.PriceRange != nil && !q.PriceRange.Contains(it.Price()) {
			continue
		}

		style := styleScore(it, keywords)
		size := 1.0
		if q.Target != nil {
			size = sizeScore(it.Size(), *q.Target, tolerance)
		}
		score := round2(style*styleWeight + size*sizeWeight)
		if score < MinSearchScore {
			continue
		}
		m, err := catalog.NewMatch(it, round2(style), round2(size), clamp01(score), 0)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}

	sortMatches(out)
	return truncate(out, limitOf(q.Limit)), nil
}

// Filter applies strict size and budget limits, then ranks by an additive score:
// +40 style overlap with the room, +15 per requested feature, up to +30 for the
// preferred new/used source, up to +20 for price near the budget midpoint.
// matchScore is the raw score divided by the maximum attainable for the query.
func (s *Service) Filter(q FilterQuery) ([]catalog.Match, error) {
	if err := q.validate(); err != nil {
		return nil, err
	}
	userTags := normalize(q.FeatureTags)
	room := strings.ToLower(q.RoomStyle)

	maxAttainable := float64(filterStylePoints + filterFeaturePoints*len(userTags) + filterSourcePoints)
	if q.Budget != nil {
		maxAttainable += filterBudgetPoints
	}

	out := make([]catalog.Match, 0)
	for _, it := range s.catalog.Items() {
		if !categoryMatches(it.CategoryTerms(), q.Category) {
			continue
		}
		if q.Target != nil && !it.Size().Fits(*q.Target, FilterSizeFactor) {
			continue
		}
		if q.Budget != nil && !q.Budget.Contains(it.Price()) {
			continue
		}

		var raw, style float64
		if roomStyleMatches(it.StyleTerms(), room) {
			raw += filterStylePoints
			style = 1
		}
		raw += filterFeaturePoints * float64(countFeatures(it.FeatureTerms(), userTags))
		if it.IsSecondHand() {
			raw += filterSourcePoints * q.UsedWeight
		} else {
			raw += filterSourcePoints * (1 - q.UsedWeight)
		}
		if q.Budget != nil {
			raw += filterBudgetPoints * budgetComfort(it.Price(), *q.Budget)
		}

		size := 1.0
		if q.Target != nil {
			size = sizeScore(it.Size(), *q.Target, DefaultTolerance)
		}
		m, err := catalog.NewMatch(it, style, round2(size), clamp01(round2(raw/maxAttainable)), int(math.Round(raw)))
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}

	sortMatches(out)
	return truncate(out, limitOf(q.Limit)), nil
}

// sortMatches orders by matchScore desc, rawScore desc, sales desc, id asc.
func sortMatches(ms []catalog.Match) {
	sort.SliceStable(ms, func(i, j int) bool {
		a, b := ms[i], ms[j]
		if a.MatchScore() != b.MatchScore() {
			return a.MatchScore() > b.MatchScore()
		}
		if a.RawScore() != b.RawScore() {
			return a.RawScore() > b.RawScore()
		}
		if a.Item().Sales() != b.Item().Sales() {
			return a.Item().Sales() > b.Item().Sales()
		}
		return a.Item().ID() < b.Item().ID()
	})
}

func truncate(ms []catalog.Match, n int) []catalog.Match {
	if len(ms) > n {
		return ms[:n]
	}
	return ms
}

// styleScore is the fraction of keywords found in the style tags or the color tag,
// in any language the item carries.
func styleScore(it catalog.Item, keywords []string) float64 {
	if len(keywords) == 0 {
		return 0
	}
	styles, colors := it.StyleTerms(), it.ColorTerms()
	var hits int
	for _, kw := range keywords {
		if anyOverlap(styles, kw) || anyOverlap(colors, kw) {
			hits++
		}
	}
	return float64(hits) / float64(len(keywords))
}

// sizeScore maps the average per-axis relative deviation to [0,1].
func sizeScore(item, target dimension.Size, tolerance float64) float64 {
	a, t := item.Axes(), target.Axes()
	var sum float64
	for i := range a {
		sum += math.Abs(a[i]-t[i]) / t[i]
	}
	return math.Max(0, 1-(sum/3)/tolerance)
}

// budgetComfort is 1 at the budget midpoint falling linearly to 0 at the edges.
// A zero-width budget scores 1.
func budgetComfort(price float64, r catalog.PriceRange) float64 {
	half := r.Width() / 2
	if half == 0 {
		return 1
	}
	return math.Max(0, 1-math.Abs(price-r.Mid())/half)
}

func roomStyleMatches(tags []string, room string) bool {
	if room == "" {
		return false
	}
	for _, t := range tags {
		t = strings.ToLower(t)
		if t != "" && strings.Contains(room, t) {
			return true
		}
	}
	return false
}

func countFeatures(itemTags, userTags []string) int {
	var n int
	for _, u := range userTags {
		for _, t := range itemTags {
			if strings.EqualFold(t, u) {
				n++
				break
			}
		}
	}
	return n
}

func categoryMatches(terms []string, want string) bool {
	if strings.TrimSpace(want) == "" {
		return true
	}
	return anyOverlap(terms, want)
}

func anyOverlap(tags []string, kw string) bool {
	for _, t := range tags {
		if overlaps(t, kw) {
			return true
		}
	}
	return false
}

// overlaps reports a case-insensitive substring match in either direction.
// Empty strings never match.
func overlaps(a, b string) bool {
	a, b = strings.ToLower(strings.TrimSpace(a)), strings.ToLower(strings.TrimSpace(b))
	if a == "" || b == "" {
		return false
	}
	return strings.Contains(a, b) || strings.Contains(b, a)
}

// normalize drops blank entries and case-insensitive duplicates.
func normalize(in []string) []string {
	out := make([]string, 0, len(in))
	seen := make(map[string]struct{}, len(in))
	for _, s := range in {
		s = strings.TrimSpace(s)
		key := strings.ToLower(s)
		if s == "" {
			continue
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, s)
	}
	return out
}

func round2(v float64) float64 { return math.Round(v*100) / 100 }

func clamp01(v float64) float64 { return math.Min(1, math.Max(0, v)) }
