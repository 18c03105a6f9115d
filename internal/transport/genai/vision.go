// Package genai implements domain.VisionClient over the Gemini API.
package genai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/kailas-cloud/refurnish/internal/domain"
	"github.com/kailas-cloud/refurnish/internal/metrics"
)

// Compile-time checks.
var (
	_ domain.VisionClient  = (*Vision)(nil)
	_ domain.HealthChecker = (*Vision)(nil)
)

// Default Gemini models per task.
var DefaultModels = map[domain.Task]string{
	domain.TaskCalibration: "gemini-3-flash-preview",
	domain.TaskProfiling:   "gemini-2.5-flash",
	domain.TaskConcepts:    "gemini-2.5-flash",
	domain.TaskRender:      "gemini-2.5-flash-image",
}

// Vision is a vision provider backed by google.golang.org/genai.
type Vision struct {
	client   *genai.Client
	models   map[domain.Task]string
	provider string
	logger   *zap.Logger
}

// Config holds the Gemini provider settings.
type Config struct {
	APIKey   string
	BaseURL  string                 // optional endpoint override
	Models   map[domain.Task]string // merged over DefaultModels
	Provider string
	Logger   *zap.Logger
}

// NewVision creates a Gemini vision provider.
func NewVision(ctx context.Context, cfg *Config) (*Vision, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:      cfg.APIKey,
		Backend:     genai.BackendGeminiAPI,
		HTTPOptions: genai.HTTPOptions{BaseURL: cfg.BaseURL},
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	models := make(map[domain.Task]string, len(DefaultModels))
	for task, model := range DefaultModels {
		models[task] = model
	}
	for task, model := range cfg.Models {
		if model != "" {
			models[task] = model
		}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Vision{client: client, models: models, provider: cfg.Provider, logger: logger}, nil
}

// Analyze implements domain.VisionClient with a JSON response MIME type.
func (v *Vision) Analyze(ctx context.Context, req domain.AnalysisRequest) (domain.AnalysisResult, error) {
	parts := make([]*genai.Part, 0, len(req.Images)+1)
	for _, img := range req.Images {
		data, err := img.Bytes()
		if err != nil {
			return domain.AnalysisResult{}, err
		}
		parts = append(parts, genai.NewPartFromBytes(data, mimeOf(img)))
	}
	parts = append(parts, genai.NewPartFromText(req.Instruction))

	task := string(req.Task)
	start := time.Now()
	resp, err := v.client.Models.GenerateContent(ctx, v.models[req.Task],
		[]*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)},
		&genai.GenerateContentConfig{
			Temperature:      genai.Ptr(req.Temperature),
			ResponseMIMEType: "application/json",
		})
	duration := time.Since(start)

	if err != nil {
		metrics.VisionRequestsTotal.WithLabelValues(v.provider, task, "error").Inc()
		return domain.AnalysisResult{}, parseAPIError(err)
	}
	text := strings.TrimSpace(resp.Text())
	if text == "" {
		metrics.VisionRequestsTotal.WithLabelValues(v.provider, task, "error").Inc()
		return domain.AnalysisResult{}, fmt.Errorf("empty vision response: %w", domain.ErrUpstreamFormat)
	}

	prompt, total := usage(resp)
	metrics.VisionRequestsTotal.WithLabelValues(v.provider, task, "success").Inc()
	metrics.VisionRequestDuration.WithLabelValues(v.provider, task).Observe(duration.Seconds())
	v.recordTokens(task, prompt, total)

	return domain.AnalysisResult{Raw: []byte(text), PromptTokens: prompt, TotalTokens: total}, nil
}

// Render implements domain.VisionClient with an image-output model: the room
// photo and the edit instruction go in, the first inline image comes back.
func (v *Vision) Render(ctx context.Context, req domain.RenderRequest) (domain.RenderResult, error) {
	data, err := req.Image.Bytes()
	if err != nil {
		return domain.RenderResult{}, err
	}
	parts := []*genai.Part{
		genai.NewPartFromBytes(data, mimeOf(req.Image)),
		genai.NewPartFromText(req.Instruction),
	}

	task := string(domain.TaskRender)
	start := time.Now()
	resp, err := v.client.Models.GenerateContent(ctx, v.models[domain.TaskRender],
		[]*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)},
		&genai.GenerateContentConfig{ResponseModalities: []string{"IMAGE", "TEXT"}})
	duration := time.Since(start)

	if err != nil {
		metrics.VisionRequestsTotal.WithLabelValues(v.provider, task, "error").Inc()
		return domain.RenderResult{}, parseAPIError(err)
	}
	blob := firstInlineImage(resp)
	if blob == nil {
		metrics.VisionRequestsTotal.WithLabelValues(v.provider, task, "error").Inc()
		return domain.RenderResult{}, fmt.Errorf("no image in response: %w", domain.ErrUpstreamFormat)
	}

	prompt, total := usage(resp)
	metrics.VisionRequestsTotal.WithLabelValues(v.provider, task, "success").Inc()
	metrics.VisionRequestDuration.WithLabelValues(v.provider, task).Observe(duration.Seconds())
	v.recordTokens(task, prompt, total)

	return domain.RenderResult{Data: blob.Data, MIMEType: blob.MIMEType, TotalTokens: total}, nil
}

// HealthCheck lists one model page.
func (v *Vision) HealthCheck(ctx context.Context) error {
	if _, err := v.client.Models.List(ctx, &genai.ListModelsConfig{PageSize: 1}); err != nil {
		return fmt.Errorf("list models: %w", err)
	}
	return nil
}

func (v *Vision) recordTokens(task string, prompt, total int) {
	if total <= 0 {
		return
	}
	metrics.VisionTokensTotal.WithLabelValues(v.provider, task, "prompt").Add(float64(prompt))
	metrics.VisionTokensTotal.WithLabelValues(v.provider, task, "total").Add(float64(total))
}

func usage(resp *genai.GenerateContentResponse) (prompt, total int) {
	if resp.UsageMetadata == nil {
		return 0, 0
	}
	return int(resp.UsageMetadata.PromptTokenCount), int(resp.UsageMetadata.TotalTokenCount)
}

func firstInlineImage(resp *genai.GenerateContentResponse) *genai.Blob {
	for _, cand := range resp.Candidates {
		if cand == nil || cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if part != nil && part.InlineData != nil && len(part.InlineData.Data) > 0 {
				return part.InlineData
			}
		}
	}
	return nil
}

func mimeOf(img domain.Image) string {
	if img.MIMEType == "" {
		return "image/jpeg"
	}
	return img.MIMEType
}

// parseAPIError maps Gemini failures onto domain sentinels the same way the
// OpenAI transport does.
func parseAPIError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("vision request: %w", err)
	}
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		sentinel := domain.ErrUpstreamRejected
		if apiErr.Code == http.StatusTooManyRequests || apiErr.Code >= http.StatusInternalServerError {
			sentinel = domain.ErrUpstreamUnavailable
		}
		return fmt.Errorf("vision API error %d: %s: %w", apiErr.Code, apiErr.Message, sentinel)
	}
	return fmt.Errorf("vision request failed: %v: %w", err, domain.ErrUpstreamUnavailable)
}
