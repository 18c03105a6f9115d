package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrInputValidation signals a request rejected before any upstream call.
	ErrInputValidation = errors.New("invalid input")
	// ErrInsufficientInput signals too few photos for calibration.
	ErrInsufficientInput = fmt.Errorf("%w: insufficient photos", ErrInputValidation)
	// ErrInvalidReference signals an unknown reference object id.
	ErrInvalidReference = fmt.Errorf("%w: unknown reference object", ErrInputValidation)

	// ErrUpstreamFormat signals a vision answer that does not match the expected contract.
	ErrUpstreamFormat = errors.New("upstream response format error")
	// ErrUpstreamUnavailable signals a transient vision provider failure (network, 429, 5xx).
	ErrUpstreamUnavailable = errors.New("upstream unavailable")
	// ErrUpstreamTimeout signals that the vision provider did not answer within the deadline.
	ErrUpstreamTimeout = errors.New("upstream timeout")
	// ErrUpstreamRejected signals a non-transient provider refusal (4xx other than 429).
	ErrUpstreamRejected = errors.New("upstream rejected request")
	// ErrVisionQuotaExceeded signals an exhausted vision token budget.
	ErrVisionQuotaExceeded = errors.New("vision quota exceeded")

	// ErrMissingVariable signals a template placeholder without a value.
	ErrMissingVariable = errors.New("missing template variable")
	// ErrTemplateNotFound signals an unknown instruction template.
	ErrTemplateNotFound = errors.New("template not found")
	// ErrStageReentry signals an attempt to produce a run artifact twice.
	ErrStageReentry = errors.New("stage output already set")
)

// Stage names a pipeline step for error reporting.
type Stage string

// Pipeline stages.
const (
	StageValidation  Stage = "validation"
	StageCalibration Stage = "calibration"
	StageProfiling   Stage = "profiling"
	StageConcepts    Stage = "concepts"
	StageMatching    Stage = "matching"
	StageRendering   Stage = "rendering"
)

// StageError attaches the failing stage to an error.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string { return string(e.Stage) + ": " + e.Err.Error() }

func (e *StageError) Unwrap() error { return e.Err }

// NewStageError wraps err with the stage name. Nil stays nil.
func NewStageError(stage Stage, err error) error {
	if err == nil {
		return nil
	}
	return &StageError{Stage: stage, Err: err}
}

// StageOf returns the stage recorded on err, or "" when none.
func StageOf(err error) Stage {
	var se *StageError
	if errors.As(err, &se) {
		return se.Stage
	}
	return ""
}

// IsRetryable reports whether err is a transient upstream failure worth retrying.
// Format, timeout, rejection and quota errors are never retried.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrUpstreamFormat) || errors.Is(err, ErrUpstreamTimeout) ||
		errors.Is(err, ErrUpstreamRejected) || errors.Is(err, ErrVisionQuotaExceeded) {
		return false
	}
	return errors.Is(err, ErrUpstreamUnavailable)
}
