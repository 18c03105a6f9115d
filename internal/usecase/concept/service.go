// Package concept asks the vision provider for replacement concepts and renders
// them into the room photo.
package concept

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/kailas-cloud/refurnish/internal/domain"
	domconcept "github.com/kailas-cloud/refurnish/internal/domain/concept"
	"github.com/kailas-cloud/refurnish/internal/domain/dimension"
	"github.com/kailas-cloud/refurnish/internal/domain/placement"
	"github.com/kailas-cloud/refurnish/internal/domain/room"
	"github.com/kailas-cloud/refurnish/internal/prompt"
	"github.com/kailas-cloud/refurnish/internal/upstream"
)

const (
	// Temperature leaves room for varied designs.
	Temperature = 0.7
	// MaxExamples bounds the few-shot block.
	MaxExamples = 2
)

// Request is the input of concept generation.
type Request struct {
	Target      placement.Target
	Estimate    dimension.Estimate // zero when the size is unknown
	Room        room.Profile
	Preferences placement.Preferences
}

// Service generates and renders replacement concepts.
type Service struct {
	vision  VisionClient
	prompts TemplateRenderer
	logger  *zap.Logger
}

// New creates a concept service.
func New(vision VisionClient, prompts TemplateRenderer, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{vision: vision, prompts: prompts, logger: logger}
}

// Generate asks for replacement concepts. The request is text-only: the room
// is described through its profile and the measured size.
func (s *Service) Generate(ctx context.Context, req Request) ([]domconcept.Concept, error) {
	if req.Room.IsZero() {
		return nil, fmt.Errorf("%w: room profile is required", domain.ErrInputValidation)
	}
	lang := req.Preferences.Language()
	w := wordsFor(lang)

	name := strings.TrimSpace(req.Target.Name())
	if name == "" {
		name = w.furniture
	}
	description := strings.TrimSpace(req.Target.Description())
	if description == "" {
		description = w.none
	}
	length, width, height := any(w.unknown), any(w.unknown), any(w.unknown)
	if !req.Estimate.IsZero() {
		length, width, height = req.Estimate.LengthCm(), req.Estimate.WidthCm(), req.Estimate.HeightCm()
	}

	examples := prompt.SelectExamples(s.prompts.Examples(prompt.TemplateConcepts, lang), name, MaxExamples)
	instruction, err := s.prompts.Render(prompt.TemplateConcepts, lang, prompt.Vars{
		"inherent_style":          req.Room.StyleLabel(),
		"dominant_color_material": req.Room.DominantColorMaterial(),
		"light_source_direction":  req.Room.LightDirection(),
		"shadow_intensity":        req.Room.ShadowIntensity(),
		"furniture_name":          name,
		"furniture_description":   description,
		"length_cm":               length,
		"width_cm":                width,
		"height_cm":               height,
		"preferences":             PreferenceText(req.Preferences),
	}, examples)
	if err != nil {
		return nil, fmt.Errorf("render concepts instruction: %w", err)
	}

	res, err := s.vision.Analyze(ctx, domain.AnalysisRequest{
		Task:        domain.TaskConcepts,
		Instruction: instruction,
		Temperature: Temperature,
	})
	if err != nil {
		return nil, fmt.Errorf("concepts request: %w", err)
	}

	answer, err := upstream.DecodeConcepts(res.Raw)
	if err != nil {
		return nil, err
	}
	concepts, err := toConcepts(answer)
	if err != nil {
		return nil, err
	}

	s.logger.Debug("Concepts generated",
		zap.String("furniture", name),
		zap.Int("concepts", len(concepts)),
		zap.Int("examples", len(examples)),
		zap.Int("total_tokens", res.TotalTokens),
	)
	return concepts, nil
}

// Render applies the concept's edit instruction to the room photo.
func (s *Service) Render(ctx context.Context, c domconcept.Concept, photo domain.Image) (domain.RenderResult, error) {
	res, err := s.vision.Render(ctx, domain.RenderRequest{Instruction: c.EditInstruction(), Image: photo})
	if err != nil {
		return domain.RenderResult{}, fmt.Errorf("render concept %s: %w", c.ID(), err)
	}
	if len(res.Data) == 0 {
		return domain.RenderResult{}, fmt.Errorf("render concept %s: empty image: %w", c.ID(), domain.ErrUpstreamFormat)
	}
	return res, nil
}

func toConcepts(answer upstream.ConceptsResponse) ([]domconcept.Concept, error) {
	out := make([]domconcept.Concept, 0, len(answer.Options))
	seen := make(map[string]bool, len(answer.Options))
	for i, opt := range answer.Options {
		id := opt.ID
		for n := i + 1; seen[id]; n++ {
			id = fmt.Sprintf("option_%d", n)
		}
		seen[id] = true

		specs := make([]domconcept.FurnitureSpec, 0, len(opt.FurnitureList))
		for _, f := range opt.FurnitureList {
			var size dimension.Size
			if f.EstimatedDimensions != nil {
				size = dimension.Size{
					Length: f.EstimatedDimensions.Length,
					Width:  f.EstimatedDimensions.Width,
					Height: f.EstimatedDimensions.Height,
				}
			}
			spec, err := domconcept.NewFurnitureSpec(strings.TrimSpace(f.Name), size, f.StyleKeywords, f.MaterialTags, f.Position)
			if err != nil {
				return nil, &upstream.FormatError{Contract: upstream.ContractConcepts, Details: []string{err.Error()}}
			}
			specs = append(specs, spec)
		}

		c, err := domconcept.New(id, strings.TrimSpace(opt.Name), opt.Description, strings.TrimSpace(opt.ImagePrompt), specs)
		if err != nil {
			return nil, &upstream.FormatError{Contract: upstream.ContractConcepts, Details: []string{err.Error()}}
		}
		out = append(out, c)
	}
	return out, nil
}
