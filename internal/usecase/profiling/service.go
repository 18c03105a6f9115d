// Package profiling extracts the visual style and lighting of a room photo.
package profiling

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/kailas-cloud/refurnish/internal/domain"
	"github.com/kailas-cloud/refurnish/internal/domain/placement"
	"github.com/kailas-cloud/refurnish/internal/domain/room"
	"github.com/kailas-cloud/refurnish/internal/prompt"
	"github.com/kailas-cloud/refurnish/internal/upstream"
)

// Temperature used for profiling requests.
const Temperature = 0.2

// Service runs environment profiling.
type Service struct {
	vision  VisionAnalyzer
	prompts TemplateRenderer
	logger  *zap.Logger
}

// New creates a profiling service.
func New(vision VisionAnalyzer, prompts TemplateRenderer, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{vision: vision, prompts: prompts, logger: logger}
}

// Profile describes the room in one photo. An empty roomTypeHint uses the
// language's generic room word.
func (s *Service) Profile(ctx context.Context, photo domain.Image, roomTypeHint string, lang placement.Language) (room.Profile, error) {
	if len(photo.Data) == 0 && photo.Path == "" {
		return room.Profile{}, fmt.Errorf("%w: photo is required", domain.ErrInputValidation)
	}

	lang = lang.Normalize()
	roomType := strings.TrimSpace(roomTypeHint)
	if roomType == "" {
		roomType = DefaultRoomType(lang)
	}

	instruction, err := s.prompts.Render(prompt.TemplateProfiling, lang, prompt.Vars{"room_type": roomType}, nil)
	if err != nil {
		return room.Profile{}, fmt.Errorf("render profiling instruction: %w", err)
	}

	res, err := s.vision.Analyze(ctx, domain.AnalysisRequest{
		Task:        domain.TaskProfiling,
		Instruction: instruction,
		Images:      []domain.Image{photo},
		Temperature: Temperature,
	})
	if err != nil {
		return room.Profile{}, fmt.Errorf("profiling request: %w", err)
	}

	env, err := upstream.DecodeEnvironment(res.Raw)
	if err != nil {
		return room.Profile{}, err
	}
	profile, err := room.New(
		strings.TrimSpace(env.InherentStyle),
		strings.TrimSpace(env.DominantColorMaterial),
		strings.TrimSpace(env.LightSourceDirection),
		strings.TrimSpace(env.ShadowIntensity),
	)
	if err != nil {
		return room.Profile{}, &upstream.FormatError{Contract: upstream.ContractEnvironment, Details: []string{err.Error()}}
	}

	s.logger.Debug("Room profiled",
		zap.String("room_type", roomType),
		zap.String("style", profile.StyleLabel()),
		zap.Int("total_tokens", res.TotalTokens),
	)
	return profile, nil
}

// DefaultRoomType is the room word used when the caller gives no hint.
func DefaultRoomType(lang placement.Language) string {
	if lang.Normalize() == placement.Chinese {
		return "房间"
	}
	return "Room"
}
