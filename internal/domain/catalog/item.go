package catalog

import (
	"fmt"

	"github.com/kailas-cloud/refurnish/internal/domain/dimension"
)

// Source tells where a listing comes from.
type Source string

// Listing sources.
const (
	SourceNew  Source = "new"
	SourceUsed Source = "used"
)

// Vocabulary is the searchable wording of an item in another language.
type Vocabulary struct {
	Name        string
	Category    string
	Material    string
	StyleTags   []string
	FeatureTags []string
	ColorTag    string
}

// Params carries the fields of a catalog record before validation.
type Params struct {
	ID          string
	Name        string
	Category    string
	Brand       string
	SecondHand  bool
	Price       float64
	Size        dimension.Size
	Material    string
	StyleTags   []string
	FeatureTags []string
	ColorTag    string
	Sales       int
	Rating      float64
	ImageURL    string
	// Aliases holds translated vocabulary matched alongside the primary wording.
	Aliases []Vocabulary
}

// Item is a purchasable product (immutable value object).
type Item struct {
	id          string
	name        string
	category    string
	brand       string
	secondHand  bool
	price       float64
	size        dimension.Size
	material    string
	styleTags   []string
	featureTags []string
	colorTag    string
	sales       int
	rating      float64
	imageURL    string
	aliases     []Vocabulary
}

// New validates and creates an Item.
func New(p Params) (Item, error) {
	if p.ID == "" {
		return Item{}, fmt.Errorf("item id is required")
	}
	if p.Category == "" {
		return Item{}, fmt.Errorf("item %q: category is required", p.ID)
	}
	if p.Price < 0 {
		return Item{}, fmt.Errorf("item %q: price must not be negative", p.ID)
	}
	if !p.Size.Valid() {
		return Item{}, fmt.Errorf("item %q: dimensions must be positive", p.ID)
	}
	if p.Sales < 0 {
		return Item{}, fmt.Errorf("item %q: sales must not be negative", p.ID)
	}
	return Item{
		id:          p.ID,
		name:        p.Name,
		category:    p.Category,
		brand:       p.Brand,
		secondHand:  p.SecondHand,
		price:       p.Price,
		size:        p.Size,
		material:    p.Material,
		styleTags:   append([]string(nil), p.StyleTags...),
		featureTags: append([]string(nil), p.FeatureTags...),
		colorTag:    p.ColorTag,
		sales:       p.Sales,
		rating:      p.Rating,
		imageURL:    p.ImageURL,
		aliases:     copyAliases(p.Aliases),
	}, nil
}

// ID returns the catalog identifier.
func (i Item) ID() string { return i.id }

// Name returns the product name.
func (i Item) Name() string { return i.name }

// Category returns the product category.
func (i Item) Category() string { return i.category }

// Brand returns the brand name.
func (i Item) Brand() string { return i.brand }

// IsSecondHand reports whether the listing is used.
func (i Item) IsSecondHand() bool { return i.secondHand }

// Source returns SourceUsed or SourceNew.
func (i Item) Source() Source {
	if i.secondHand {
		return SourceUsed
	}
	return SourceNew
}

// Price returns the price in the catalog currency.
func (i Item) Price() float64 { return i.price }

// Size returns the product dimensions in centimeters.
func (i Item) Size() dimension.Size { return i.size }

// Material returns the main material.
func (i Item) Material() string { return i.material }

// StyleTags returns the style vocabulary of the item.
func (i Item) StyleTags() []string { return i.styleTags }

// FeatureTags returns functional feature tags.
func (i Item) FeatureTags() []string { return i.featureTags }

// ColorTag returns the color tag.
func (i Item) ColorTag() string { return i.colorTag }

// Sales returns the sales count used as a tie-breaker.
func (i Item) Sales() int { return i.sales }

// Rating returns the average rating.
func (i Item) Rating() float64 { return i.rating }

// ImageURL returns the product image link.
func (i Item) ImageURL() string { return i.imageURL }

// Aliases returns the translated vocabulary of the item.
func (i Item) Aliases() []Vocabulary { return i.aliases }

// CategoryTerms returns the category in every known language.
func (i Item) CategoryTerms() []string {
	out := []string{i.category}
	for _, a := range i.aliases {
		if a.Category != "" {
			out = append(out, a.Category)
		}
	}
	return out
}

// StyleTerms returns style tags in every known language.
func (i Item) StyleTerms() []string {
	out := append([]string(nil), i.styleTags...)
	for _, a := range i.aliases {
		out = append(out, a.StyleTags...)
	}
	return out
}

// FeatureTerms returns feature tags in every known language.
func (i Item) FeatureTerms() []string {
	out := append([]string(nil), i.featureTags...)
	for _, a := range i.aliases {
		out = append(out, a.FeatureTags...)
	}
	return out
}

// ColorTerms returns the color tag in every known language.
func (i Item) ColorTerms() []string {
	out := make([]string, 0, 1+len(i.aliases))
	if i.colorTag != "" {
		out = append(out, i.colorTag)
	}
	for _, a := range i.aliases {
		if a.ColorTag != "" {
			out = append(out, a.ColorTag)
		}
	}
	return out
}

func copyAliases(in []Vocabulary) []Vocabulary {
	if len(in) == 0 {
		return nil
	}
	out := make([]Vocabulary, len(in))
	for i, a := range in {
		a.StyleTags = append([]string(nil), a.StyleTags...)
		a.FeatureTags = append([]string(nil), a.FeatureTags...)
		out[i] = a
	}
	return out
}
