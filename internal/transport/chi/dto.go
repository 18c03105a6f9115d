package chi

import (
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"github.com/kailas-cloud/refurnish/internal/domain/catalog"
	"github.com/kailas-cloud/refurnish/internal/domain/dimension"
	"github.com/kailas-cloud/refurnish/internal/domain/placement"
	"github.com/kailas-cloud/refurnish/internal/domain/reference"
	"github.com/kailas-cloud/refurnish/internal/domain/room"
	domusage "github.com/kailas-cloud/refurnish/internal/domain/usage"
	"github.com/kailas-cloud/refurnish/internal/usecase/pipeline"
)

// ErrorCode is a machine-readable error code.
type ErrorCode string

// Error codes.
const (
	ErrorCodeBadRequest          ErrorCode = "bad_request"
	ErrorCodeUnauthorized        ErrorCode = "unauthorized"
	ErrorCodeValidationFailed    ErrorCode = "validation_failed"
	ErrorCodeQuotaExceeded       ErrorCode = "quota_exceeded"
	ErrorCodeUpstreamFormat      ErrorCode = "upstream_format_error"
	ErrorCodeUpstreamRejected    ErrorCode = "upstream_rejected"
	ErrorCodeUpstreamUnavailable ErrorCode = "upstream_unavailable"
	ErrorCodeUpstreamTimeout     ErrorCode = "upstream_timeout"
	ErrorCodeInternalError       ErrorCode = "internal_error"
)

// ErrorResponse is the body of every error reply.
type ErrorResponse struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

// inputData is the JSON part of placement requests.
type inputData struct {
	ReferenceObject string          `json:"referenceObject"`
	FurnitureInfo   furnitureInfo   `json:"furnitureInfo"`
	Language        string          `json:"language"`
	Preferences     *preferencesDTO `json:"preferences"`
}

type furnitureInfo struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

type preferencesDTO struct {
	StylePreference []string     `json:"stylePreference"`
	PreferUsed      *bool        `json:"preferUsed"`
	UsedWeight      *float64     `json:"usedWeight"`
	FeatureTags     []string     `json:"featureTags"`
	BudgetRange     *budgetRange `json:"budgetRange"`
	RoomType        string       `json:"roomType"`
}

type budgetRange struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// usedWeight resolves the second-hand preference: an explicit weight wins,
// preferUsed maps to 1 or 0, and no answer is neutral.
func (p *preferencesDTO) usedWeight() float64 {
	switch {
	case p.UsedWeight != nil:
		return *p.UsedWeight
	case p.PreferUsed != nil && *p.PreferUsed:
		return 1
	case p.PreferUsed != nil:
		return 0
	default:
		return 0.5
	}
}

func (in inputData) language(fallback placement.Language) placement.Language {
	if in.Language == "" {
		return fallback.Normalize()
	}
	return placement.Language(strings.ToLower(in.Language)).Normalize()
}

func (in inputData) target() (placement.Target, error) {
	return placement.NewTarget(strings.TrimSpace(in.FurnitureInfo.Name), strings.TrimSpace(in.FurnitureInfo.Description))
}

func (in inputData) preferences(lang placement.Language) (placement.Preferences, error) {
	p := in.Preferences
	if p == nil {
		p = &preferencesDTO{}
	}
	var budget *catalog.PriceRange
	if p.BudgetRange != nil {
		r, err := catalog.NewPriceRange(p.BudgetRange.Min, p.BudgetRange.Max)
		if err != nil {
			return placement.Preferences{}, fmt.Errorf("budgetRange: %w", err)
		}
		budget = &r
	}
	return placement.NewPreferences(
		strings.Join(p.StylePreference, ", "),
		p.usedWeight(),
		p.FeatureTags,
		budget,
		strings.TrimSpace(p.RoomType),
		lang,
	)
}

type dimensionsDTO struct {
	ItemName   string  `json:"itemName"`
	LengthCm   float64 `json:"lengthCm"`
	WidthCm    float64 `json:"widthCm"`
	HeightCm   float64 `json:"heightCm"`
	Confidence float64 `json:"confidence"`
}

func dimensionsFrom(e dimension.Estimate) dimensionsDTO {
	return dimensionsDTO{
		ItemName:   e.ItemName(),
		LengthCm:   e.LengthCm(),
		WidthCm:    e.WidthCm(),
		HeightCm:   e.HeightCm(),
		Confidence: e.Confidence(),
	}
}

type environmentDTO struct {
	InherentStyle         string `json:"inherentStyle"`
	DominantColorMaterial string `json:"dominantColorMaterial"`
	LightSourceDirection  string `json:"lightSourceDirection"`
	ShadowIntensity       string `json:"shadowIntensity"`
}

func environmentFrom(p room.Profile) environmentDTO {
	return environmentDTO{
		InherentStyle:         p.StyleLabel(),
		DominantColorMaterial: p.DominantColorMaterial(),
		LightSourceDirection:  p.LightDirection(),
		ShadowIntensity:       p.ShadowIntensity(),
	}
}

type sizeDTO struct {
	Length float64 `json:"length"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

func sizeFrom(s dimension.Size) *sizeDTO {
	if s.IsZero() {
		return nil
	}
	return &sizeDTO{Length: s.Length, Width: s.Width, Height: s.Height}
}

type productDTO struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Category    string   `json:"category"`
	Brand       string   `json:"brand,omitempty"`
	SecondHand  bool     `json:"isSecondHand"`
	Price       float64  `json:"price"`
	Dimensions  *sizeDTO `json:"dimensions"`
	Material    string   `json:"material,omitempty"`
	StyleTags   []string `json:"styleTags"`
	FeatureTags []string `json:"featureTags"`
	ColorTag    string   `json:"colorTag,omitempty"`
	Sales       int      `json:"sales"`
	Rating      float64  `json:"rating,omitempty"`
	ImageURL    string   `json:"imageUrl,omitempty"`
	StyleScore  float64  `json:"styleScore"`
	SizeScore   float64  `json:"sizeScore"`
	MatchScore  float64  `json:"matchScore"`
	RawScore    int      `json:"rawScore,omitempty"`
}

func productsFrom(ms []catalog.Match) []productDTO {
	out := make([]productDTO, len(ms))
	for i, m := range ms {
		it := m.Item()
		out[i] = productDTO{
			ID:          it.ID(),
			Name:        it.Name(),
			Category:    it.Category(),
			Brand:       it.Brand(),
			SecondHand:  it.IsSecondHand(),
			Price:       it.Price(),
			Dimensions:  sizeFrom(it.Size()),
			Material:    it.Material(),
			StyleTags:   it.StyleTags(),
			FeatureTags: it.FeatureTags(),
			ColorTag:    it.ColorTag(),
			Sales:       it.Sales(),
			Rating:      it.Rating(),
			ImageURL:    it.ImageURL(),
			StyleScore:  m.StyleScore(),
			SizeScore:   m.SizeScore(),
			MatchScore:  m.MatchScore(),
			RawScore:    m.RawScore(),
		}
	}
	return out
}

type furnitureDTO struct {
	Name                string       `json:"name"`
	EstimatedDimensions *sizeDTO     `json:"estimatedDimensions"`
	StyleKeywords       []string     `json:"styleKeywords"`
	MaterialTags        []string     `json:"materialTags"`
	Position            string       `json:"position"`
	RecommendedProducts []productDTO `json:"recommendedProducts"`
}

type optionDTO struct {
	ID            string         `json:"id"`
	Name          string         `json:"name"`
	Description   string         `json:"description"`
	ImagePrompt   string         `json:"imagePrompt"`
	FurnitureList []furnitureDTO `json:"furnitureList"`
	Image         *string        `json:"image"` // data URL, null when rendering failed
}

func optionsFrom(results []pipeline.ConceptResult) []optionDTO {
	out := make([]optionDTO, len(results))
	for i, r := range results {
		c := r.Concept
		furniture := make([]furnitureDTO, len(r.Items))
		for j, it := range r.Items {
			furniture[j] = furnitureDTO{
				Name:                it.Spec.Name(),
				EstimatedDimensions: sizeFrom(it.Spec.Size()),
				StyleKeywords:       it.Spec.StyleKeywords(),
				MaterialTags:        it.Spec.MaterialTags(),
				Position:            it.Spec.Position(),
				RecommendedProducts: productsFrom(it.Matches),
			}
		}
		var image *string
		if r.Image != nil {
			u := "data:" + r.Image.MIMEType + ";base64," + base64.StdEncoding.EncodeToString(r.Image.Data)
			image = &u
		}
		out[i] = optionDTO{
			ID:            c.ID(),
			Name:          c.Name(),
			Description:   c.Description(),
			ImagePrompt:   c.EditInstruction(),
			FurnitureList: furniture,
			Image:         image,
		}
	}
	return out
}

type referenceDTO struct {
	ID          string  `json:"id"`
	DisplayName string  `json:"displayName"`
	HeightCm    float64 `json:"heightCm"`
	WidthCm     float64 `json:"widthCm"`
	Shape       string  `json:"shape"`
}

func referencesFrom(objs []reference.Object) []referenceDTO {
	out := make([]referenceDTO, len(objs))
	for i, o := range objs {
		out[i] = referenceDTO{
			ID:          o.ID(),
			DisplayName: o.DisplayName(),
			HeightCm:    o.HeightCm(),
			WidthCm:     o.WidthCm(),
			Shape:       string(o.Shape()),
		}
	}
	return out
}

type envelope struct {
	Success bool `json:"success"`
	Data    any  `json:"data"`
}

type measureResponse struct {
	RunID      string        `json:"runId,omitempty"`
	Dimensions dimensionsDTO `json:"dimensions"`
}

type placementResponse struct {
	RunID       string         `json:"runId"`
	Dimensions  dimensionsDTO  `json:"dimensions"`
	Environment environmentDTO `json:"environment"`
	Options     []optionDTO    `json:"options"`
}

type recommendResponse struct {
	RunID       string         `json:"runId"`
	Dimensions  dimensionsDTO  `json:"dimensions"`
	Environment environmentDTO `json:"environment"`
	Products    []productDTO   `json:"products"`
}

type usageResponse struct {
	Provider        string    `json:"provider"`
	Period          string    `json:"period"`
	PeriodStart     time.Time `json:"periodStart"`
	ResetsAt        time.Time `json:"resetsAt"`
	TokensLimit     int64     `json:"tokensLimit"` // 0 = unlimited
	TokensUsed      int64     `json:"tokensUsed"`
	TokensRemaining int64     `json:"tokensRemaining"` // -1 = unlimited
	Exhausted       bool      `json:"exhausted"`
}

func usageFrom(r domusage.Report) usageResponse {
	w := r.Window()
	return usageResponse{
		Provider:        r.Provider(),
		Period:          string(r.Period()),
		PeriodStart:     w.Start,
		ResetsAt:        w.ResetsAt,
		TokensLimit:     w.Limit,
		TokensUsed:      w.Used,
		TokensRemaining: w.Remaining(),
		Exhausted:       w.Exhausted(),
	}
}

type healthResponse struct {
	Status  string            `json:"status"`
	Checks  map[string]string `json:"checks"`
	Version string            `json:"version"`
}
