package domain

import (
	"context"
	"fmt"
	"os"
)

// KeyPrefix namespaces every key this service writes to the shared store.
const KeyPrefix = "refurnish:"

// Task identifies the kind of question asked of the vision provider.
// Providers pick model and sampling per task.
type Task string

// Vision tasks.
const (
	TaskCalibration Task = "calibration"
	TaskProfiling   Task = "profiling"
	TaskConcepts    Task = "concepts"
	TaskRender      Task = "render"
)

// Image is an uploaded photo. Path points at the temporary file backing it,
// Data holds the loaded bytes once read.
type Image struct {
	Path     string
	MIMEType string
	Data     []byte
}

// Bytes returns the loaded payload, reading Path when nothing is loaded yet.
func (img Image) Bytes() ([]byte, error) {
	if len(img.Data) > 0 {
		return img.Data, nil
	}
	if img.Path == "" {
		return nil, fmt.Errorf("%w: empty image", ErrInputValidation)
	}
	data, err := os.ReadFile(img.Path)
	if err != nil {
		return nil, fmt.Errorf("read image: %w", err)
	}
	return data, nil
}

// VisionClient is the contract with the external visual-reasoning capability.
type VisionClient interface {
	// Analyze sends images plus an instruction and returns the raw JSON answer.
	Analyze(ctx context.Context, req AnalysisRequest) (AnalysisResult, error)
	// Render asks for an edited version of req.Image and returns the image payload.
	Render(ctx context.Context, req RenderRequest) (RenderResult, error)
}

// HealthChecker verifies vision provider availability.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// AnalysisRequest is a structured-answer request.
type AnalysisRequest struct {
	Task        Task
	Instruction string
	Images      []Image
	Temperature float32
}

// AnalysisResult carries the raw answer and token usage through the decorator chain.
type AnalysisResult struct {
	Raw          []byte
	PromptTokens int
	TotalTokens  int
}

// RenderRequest is an image edit request.
type RenderRequest struct {
	Instruction string
	Image       Image
}

// RenderResult is an edited image.
type RenderResult struct {
	Data        []byte
	MIMEType    string
	TotalTokens int
}
