// Package staticdata loads the read-only product catalog and reference-object
// table. Both ship embedded and can be overridden by a file path.
package staticdata

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"gopkg.in/yaml.v3"

	"github.com/kailas-cloud/refurnish/internal/domain/catalog"
	"github.com/kailas-cloud/refurnish/internal/domain/dimension"
	"github.com/kailas-cloud/refurnish/internal/domain/reference"
)

//go:embed catalog.yaml
var embeddedCatalog []byte

//go:embed references.yaml
var embeddedReferences []byte

type catalogFile struct {
	Items []itemDTO `yaml:"items"`
}

type itemDTO struct {
	ID          string        `yaml:"id"`
	Name        string        `yaml:"name"`
	Category    string        `yaml:"category"`
	Brand       string        `yaml:"brand"`
	Used        bool          `yaml:"used"`
	Price       float64       `yaml:"price"`
	Dimensions  dimensionsDTO `yaml:"dimensions"`
	Material    string        `yaml:"material"`
	StyleTags   []string      `yaml:"style_tags"`
	FeatureTags []string      `yaml:"feature_tags"`
	ColorTag    string        `yaml:"color_tag"`
	Rating      float64       `yaml:"rating"`
	Sales       int           `yaml:"sales"`
	ImageURL    string        `yaml:"image_url"`
	// Aliases maps a language code to the item's wording in that language.
	Aliases map[string]vocabularyDTO `yaml:"aliases"`
}

type vocabularyDTO struct {
	Name        string   `yaml:"name"`
	Category    string   `yaml:"category"`
	Material    string   `yaml:"material"`
	StyleTags   []string `yaml:"style_tags"`
	FeatureTags []string `yaml:"feature_tags"`
	ColorTag    string   `yaml:"color_tag"`
}

type dimensionsDTO struct {
	LengthCm float64 `yaml:"length_cm"`
	WidthCm  float64 `yaml:"width_cm"`
	HeightCm float64 `yaml:"height_cm"`
}

type referencesFile struct {
	References []referenceDTO `yaml:"references"`
}

type referenceDTO struct {
	ID          string  `yaml:"id"`
	DisplayName string  `yaml:"display_name"`
	HeightCm    float64 `yaml:"height_cm"`
	WidthCm     float64 `yaml:"width_cm"`
	Shape       string  `yaml:"shape"`
}

// LoadCatalog reads the product catalog from path, or the embedded copy when path is empty.
func LoadCatalog(path string) (*catalog.Catalog, error) {
	data, err := readOrEmbedded(path, embeddedCatalog)
	if err != nil {
		return nil, err
	}
	return ParseCatalog(data)
}

// ParseCatalog decodes a catalog document.
func ParseCatalog(data []byte) (*catalog.Catalog, error) {
	var f catalogFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	items := make([]catalog.Item, 0, len(f.Items))
	for _, d := range f.Items {
		it, err := catalog.New(catalog.Params{
			ID:         d.ID,
			Name:       d.Name,
			Category:   d.Category,
			Brand:      d.Brand,
			SecondHand: d.Used,
			Price:      d.Price,
			Size: dimension.Size{
				Length: d.Dimensions.LengthCm,
				Width:  d.Dimensions.WidthCm,
				Height: d.Dimensions.HeightCm,
			},
			Material:    d.Material,
			StyleTags:   d.StyleTags,
			FeatureTags: d.FeatureTags,
			ColorTag:    d.ColorTag,
			Sales:       d.Sales,
			Rating:      d.Rating,
			ImageURL:    d.ImageURL,
			Aliases:     aliasesOf(d.Aliases),
		})
		if err != nil {
			return nil, fmt.Errorf("catalog: %w", err)
		}
		items = append(items, it)
	}
	return catalog.NewCatalog(items)
}

// aliasesOf flattens the per-language map in language order so matching is deterministic.
func aliasesOf(m map[string]vocabularyDTO) []catalog.Vocabulary {
	if len(m) == 0 {
		return nil
	}
	langs := make([]string, 0, len(m))
	for lang := range m {
		langs = append(langs, lang)
	}
	slices.Sort(langs)
	out := make([]catalog.Vocabulary, 0, len(langs))
	for _, lang := range langs {
		v := m[lang]
		out = append(out, catalog.Vocabulary{
			Name:        v.Name,
			Category:    v.Category,
			Material:    v.Material,
			StyleTags:   v.StyleTags,
			FeatureTags: v.FeatureTags,
			ColorTag:    v.ColorTag,
		})
	}
	return out
}

// LoadReferences reads the reference-object table from path, or the embedded copy when path is empty.
func LoadReferences(path string) (*reference.Catalog, error) {
	data, err := readOrEmbedded(path, embeddedReferences)
	if err != nil {
		return nil, err
	}
	return ParseReferences(data)
}

// ParseReferences decodes a reference-object document.
func ParseReferences(data []byte) (*reference.Catalog, error) {
	var f referencesFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse references: %w", err)
	}
	objs := make([]reference.Object, 0, len(f.References))
	for _, d := range f.References {
		o, err := reference.New(d.ID, d.DisplayName, d.HeightCm, d.WidthCm, reference.ShapeKind(d.Shape))
		if err != nil {
			return nil, fmt.Errorf("references: %w", err)
		}
		objs = append(objs, o)
	}
	return reference.NewCatalog(objs)
}

func readOrEmbedded(path string, embedded []byte) ([]byte, error) {
	if path == "" {
		return embedded, nil
	}
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return data, nil
}
