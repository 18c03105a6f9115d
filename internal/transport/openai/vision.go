// Package openai implements domain.VisionClient over an OpenAI-compatible API.
package openai

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/kailas-cloud/refurnish/internal/domain"
	"github.com/kailas-cloud/refurnish/internal/metrics"
)

// Compile-time checks.
var (
	_ domain.VisionClient  = (*Vision)(nil)
	_ domain.HealthChecker = (*Vision)(nil)
)

// Vision is a vision provider using the OpenAI-compatible chat and image-edit APIs.
type Vision struct {
	client       *openai.Client
	models       map[domain.Task]string
	defaultModel string
	user         string
	provider     string
	logger       *zap.Logger
}

// Config holds the vision provider settings.
type Config struct {
	APIKey   string
	BaseURL  string
	Model    string                 // used for tasks without an entry in Models
	Models   map[domain.Task]string // per-task overrides
	User     string
	Provider string
	Logger   *zap.Logger
}

// NewVision creates an OpenAI-compatible vision provider.
func NewVision(cfg *Config) *Vision {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	models := make(map[domain.Task]string, len(cfg.Models))
	for task, model := range cfg.Models {
		models[task] = model
	}

	return &Vision{
		client:       openai.NewClientWithConfig(clientCfg),
		models:       models,
		defaultModel: cfg.Model,
		user:         cfg.User,
		provider:     cfg.Provider,
		logger:       logger,
	}
}

func (v *Vision) model(task domain.Task) string {
	if m, ok := v.models[task]; ok && m != "" {
		return m
	}
	return v.defaultModel
}

// Analyze implements domain.VisionClient. Images are sent inline as data URLs and
// the answer is requested as a JSON object.
func (v *Vision) Analyze(ctx context.Context, req domain.AnalysisRequest) (domain.AnalysisResult, error) {
	parts := make([]openai.ChatMessagePart, 0, len(req.Images)+1)
	parts = append(parts, openai.ChatMessagePart{Type: openai.ChatMessagePartTypeText, Text: req.Instruction})
	for _, img := range req.Images {
		data, err := img.Bytes()
		if err != nil {
			return domain.AnalysisResult{}, err
		}
		parts = append(parts, openai.ChatMessagePart{
			Type: openai.ChatMessagePartTypeImageURL,
			ImageURL: &openai.ChatMessageImageURL{
				URL:    dataURL(img.MIMEType, data),
				Detail: openai.ImageURLDetailAuto,
			},
		})
	}

	task := string(req.Task)
	chatReq := openai.ChatCompletionRequest{
		Model:       v.model(req.Task),
		Temperature: req.Temperature,
		User:        v.user,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, MultiContent: parts},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	}

	start := time.Now()
	resp, err := v.client.CreateChatCompletion(ctx, chatReq)
	duration := time.Since(start)

	if err != nil {
		metrics.VisionRequestsTotal.WithLabelValues(v.provider, task, "error").Inc()
		return domain.AnalysisResult{}, parseAPIError(err)
	}
	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		metrics.VisionRequestsTotal.WithLabelValues(v.provider, task, "error").Inc()
		return domain.AnalysisResult{}, fmt.Errorf("empty vision response: %w", domain.ErrUpstreamFormat)
	}

	metrics.VisionRequestsTotal.WithLabelValues(v.provider, task, "success").Inc()
	metrics.VisionRequestDuration.WithLabelValues(v.provider, task).Observe(duration.Seconds())
	v.recordTokens(task, resp.Usage.PromptTokens, resp.Usage.TotalTokens)

	return domain.AnalysisResult{
		Raw:          []byte(resp.Choices[0].Message.Content),
		PromptTokens: resp.Usage.PromptTokens,
		TotalTokens:  resp.Usage.TotalTokens,
	}, nil
}

// Render implements domain.VisionClient through the image edit endpoint.
func (v *Vision) Render(ctx context.Context, req domain.RenderRequest) (domain.RenderResult, error) {
	data, err := req.Image.Bytes()
	if err != nil {
		return domain.RenderResult{}, err
	}

	task := string(domain.TaskRender)
	start := time.Now()
	resp, err := v.client.CreateEditImage(ctx, openai.ImageEditRequest{
		Image:          newNamedReader(data, req.Image.MIMEType),
		Prompt:         req.Instruction,
		Model:          v.model(domain.TaskRender),
		N:              1,
		ResponseFormat: openai.CreateImageResponseFormatB64JSON,
		User:           v.user,
	})
	duration := time.Since(start)

	if err != nil {
		metrics.VisionRequestsTotal.WithLabelValues(v.provider, task, "error").Inc()
		return domain.RenderResult{}, parseAPIError(err)
	}
	if len(resp.Data) == 0 || resp.Data[0].B64JSON == "" {
		metrics.VisionRequestsTotal.WithLabelValues(v.provider, task, "error").Inc()
		return domain.RenderResult{}, fmt.Errorf("empty image response: %w", domain.ErrUpstreamFormat)
	}
	img, err := base64.StdEncoding.DecodeString(resp.Data[0].B64JSON)
	if err != nil {
		metrics.VisionRequestsTotal.WithLabelValues(v.provider, task, "error").Inc()
		return domain.RenderResult{}, fmt.Errorf("decode image: %v: %w", err, domain.ErrUpstreamFormat)
	}

	metrics.VisionRequestsTotal.WithLabelValues(v.provider, task, "success").Inc()
	metrics.VisionRequestDuration.WithLabelValues(v.provider, task).Observe(duration.Seconds())
	v.recordTokens(task, resp.Usage.InputTokens, resp.Usage.TotalTokens)

	return domain.RenderResult{Data: img, MIMEType: "image/png", TotalTokens: resp.Usage.TotalTokens}, nil
}

// HealthCheck verifies API availability via ListModels (free endpoint).
func (v *Vision) HealthCheck(ctx context.Context) error {
	if _, err := v.client.ListModels(ctx); err != nil {
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

func dataURL(mimeType string, data []byte) string {
	if mimeType == "" {
		mimeType = "image/jpeg"
	}
	return "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(data)
}

// namedReader gives the multipart builder a filename and content type.
type namedReader struct {
	*bytes.Reader
	name        string
	contentType string
}

func newNamedReader(data []byte, mimeType string) *namedReader {
	ext := ".jpg"
	switch mimeType {
	case "image/png":
		ext = ".png"
	case "image/webp":
		ext = ".webp"
	case "":
		mimeType = "image/jpeg"
	}
	return &namedReader{Reader: bytes.NewReader(data), name: "room" + ext, contentType: mimeType}
}

func (r *namedReader) Name() string        { return r.name }
func (r *namedReader) ContentType() string { return r.contentType }
