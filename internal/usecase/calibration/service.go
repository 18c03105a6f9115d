// Package calibration estimates real-world furniture size from room photos and
// a reference object of known size.
package calibration

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/kailas-cloud/refurnish/internal/domain"
	"github.com/kailas-cloud/refurnish/internal/domain/dimension"
	"github.com/kailas-cloud/refurnish/internal/domain/placement"
	"github.com/kailas-cloud/refurnish/internal/domain/reference"
	"github.com/kailas-cloud/refurnish/internal/prompt"
	"github.com/kailas-cloud/refurnish/internal/upstream"
)

const (
	// MinPhotos is the fewest photos that allow perspective triangulation.
	MinPhotos = 2
	// Temperature keeps measurements close to deterministic.
	Temperature = 0.1
)

// Service runs dimension calibration.
type Service struct {
	vision  VisionAnalyzer
	prompts TemplateRenderer
	refs    ReferenceLookup
	logger  *zap.Logger
}

// New creates a calibration service.
func New(vision VisionAnalyzer, prompts TemplateRenderer, refs ReferenceLookup, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{vision: vision, prompts: prompts, refs: refs, logger: logger}
}

// Calibrate measures every target. Estimates come back in target order and
// carry the target names; the answer must hold exactly one entry per target.
func (s *Service) Calibrate(
	ctx context.Context,
	photos []domain.Image,
	referenceID string,
	targets []placement.Target,
	lang placement.Language,
) ([]dimension.Estimate, error) {
	if len(photos) < MinPhotos {
		return nil, fmt.Errorf("%w: need at least %d, got %d", domain.ErrInsufficientInput, MinPhotos, len(photos))
	}
	ref, ok := s.refs.Get(referenceID)
	if !ok {
		return nil, fmt.Errorf("%w: %q", domain.ErrInvalidReference, referenceID)
	}
	if len(targets) == 0 {
		return nil, fmt.Errorf("%w: at least one target is required", domain.ErrInputValidation)
	}
	for i, t := range targets {
		if strings.TrimSpace(t.Name()) == "" {
			return nil, fmt.Errorf("%w: target %d has no name", domain.ErrInputValidation, i+1)
		}
	}

	lang = lang.Normalize()
	instruction, err := s.prompts.Render(prompt.TemplateCalibration, lang, prompt.Vars{
		"reference_name":      ref.DisplayName(),
		"reference_shape":     shapeLabel(ref.Shape(), lang),
		"reference_height_cm": ref.HeightCm(),
		"reference_width_cm":  ref.WidthCm(),
		"target_count":        len(targets),
		"targets":             targetLines(targets),
	}, nil)
	if err != nil {
		return nil, fmt.Errorf("render calibration instruction: %w", err)
	}

	res, err := s.vision.Analyze(ctx, domain.AnalysisRequest{
		Task:        domain.TaskCalibration,
		Instruction: instruction,
		Images:      photos,
		Temperature: Temperature,
	})
	if err != nil {
		return nil, fmt.Errorf("calibration request: %w", err)
	}

	answer, err := upstream.DecodeDimensions(res.Raw)
	if err != nil {
		return nil, err
	}
	if got := len(answer.CalculatedDimensions); got != len(targets) {
		return nil, &upstream.FormatError{
			Contract: upstream.ContractDimensions,
			Details:  []string{fmt.Sprintf("expected %d measurements, got %d", len(targets), got)},
		}
	}

	estimates := make([]dimension.Estimate, len(targets))
	for i, d := range answer.CalculatedDimensions {
		est, err := dimension.New(targets[i].Name(), d.LengthCm, d.WidthCm, d.HeightCm, d.ConfidenceScore)
		if err != nil {
			return nil, &upstream.FormatError{Contract: upstream.ContractDimensions, Details: []string{err.Error()}}
		}
		estimates[i] = est
	}

	s.logger.Debug("Calibration completed",
		zap.String("reference", ref.ID()),
		zap.Int("targets", len(targets)),
		zap.Int("total_tokens", res.TotalTokens),
	)
	return estimates, nil
}

func targetLines(targets []placement.Target) string {
	lines := make([]string, len(targets))
	for i, t := range targets {
		if d := strings.TrimSpace(t.Description()); d != "" {
			lines[i] = fmt.Sprintf("- %s: %s", t.Name(), d)
		} else {
			lines[i] = "- " + t.Name()
		}
	}
	return strings.Join(lines, "\n")
}

func shapeLabel(shape reference.ShapeKind, lang placement.Language) string {
	if lang == placement.Chinese {
		if shape == reference.Cylinder {
			return "圆柱体"
		}
		return "平面物体"
	}
	return string(shape)
}
