// Package upstream holds the JSON contracts of the vision provider answers.
// Every answer is checked against a JSON Schema before it is decoded; a
// mismatch is reported as domain.ErrUpstreamFormat.
package upstream

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"github.com/kailas-cloud/refurnish/internal/domain"
)

// Contract names.
const (
	ContractDimensions  = "calculated_dimensions"
	ContractEnvironment = "environment"
	ContractConcepts    = "options"
)

var (
	dimensionsSchema  = mustSchema(dimensionsSchemaJSON)
	environmentSchema = mustSchema(environmentSchemaJSON)
	conceptsSchema    = mustSchema(conceptsSchemaJSON)
)

func mustSchema(src string) *gojsonschema.Schema {
	s, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(src))
	if err != nil {
		panic(fmt.Sprintf("compile schema: %v", err))
	}
	return s
}

// FormatError describes why an answer was rejected. It never carries the raw answer.
type FormatError struct {
	Contract string
	Details  []string
}

func (e *FormatError) Error() string {
	if len(e.Details) == 0 {
		return fmt.Sprintf("%s: %s", domain.ErrUpstreamFormat.Error(), e.Contract)
	}
	return fmt.Sprintf("%s: %s: %s", domain.ErrUpstreamFormat.Error(), e.Contract, strings.Join(e.Details, "; "))
}

func (e *FormatError) Unwrap() error { return domain.ErrUpstreamFormat }

// CalculatedDimension is one measured item.
type CalculatedDimension struct {
	Name            string  `json:"name"`
	LengthCm        float64 `json:"length_cm"`
	WidthCm         float64 `json:"width_cm"`
	HeightCm        float64 `json:"height_cm"`
	ConfidenceScore float64 `json:"confidence_score"`
}

// DimensionsResponse is the calibration answer.
type DimensionsResponse struct {
	CalculatedDimensions []CalculatedDimension `json:"calculated_dimensions"`
}

// EnvironmentResponse is the profiling answer.
type EnvironmentResponse struct {
	InherentStyle         string `json:"inherent_style"`
	DominantColorMaterial string `json:"dominant_color_material"`
	LightSourceDirection  string `json:"light_source_direction"`
	ShadowIntensity       string `json:"shadow_intensity"`
}

// Size is the estimated size of a proposed item in centimeters.
type Size struct {
	Length float64 `json:"length"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Furniture is one item of a proposed option.
type Furniture struct {
	Name                string   `json:"name"`
	EstimatedDimensions *Size    `json:"estimatedDimensions,omitempty"`
	StyleKeywords       []string `json:"styleKeywords"`
	MaterialTags        []string `json:"materialTags"`
	Position            string   `json:"position"`
}

// Option is one proposed replacement concept.
type Option struct {
	ID            string      `json:"-"`
	RawID         any         `json:"id"`
	Name          string      `json:"name"`
	Description   string      `json:"description"`
	ImagePrompt   string      `json:"imagePrompt"`
	FurnitureList []Furniture `json:"furnitureList"`
}

// ConceptsResponse is the concept generation answer.
type ConceptsResponse struct {
	Options []Option `json:"options"`
}

// DecodeDimensions validates and decodes a calibration answer.
func DecodeDimensions(raw []byte) (DimensionsResponse, error) {
	var out DimensionsResponse
	if err := decode(raw, dimensionsSchema, ContractDimensions, &out); err != nil {
		return DimensionsResponse{}, err
	}
	return out, nil
}

// DecodeEnvironment validates and decodes a profiling answer.
func DecodeEnvironment(raw []byte) (EnvironmentResponse, error) {
	var out EnvironmentResponse
	if err := decode(raw, environmentSchema, ContractEnvironment, &out); err != nil {
		return EnvironmentResponse{}, err
	}
	return out, nil
}

// DecodeConcepts validates and decodes a concept answer. Options without an id
// get "option_<n>".
func DecodeConcepts(raw []byte) (ConceptsResponse, error) {
	var out ConceptsResponse
	if err := decode(raw, conceptsSchema, ContractConcepts, &out); err != nil {
		return ConceptsResponse{}, err
	}
	for i := range out.Options {
		o := &out.Options[i]
		switch id := o.RawID.(type) {
		case string:
			o.ID = id
		case float64:
			o.ID = fmt.Sprintf("option_%g", id)
		}
		if o.ID == "" {
			o.ID = fmt.Sprintf("option_%d", i+1)
		}
	}
	return out, nil
}

func decode(raw []byte, schema *gojsonschema.Schema, contract string, dst any) error {
	body := StripFences(raw)
	if len(body) == 0 {
		return &FormatError{Contract: contract, Details: []string{"empty answer"}}
	}
	res, err := schema.Validate(gojsonschema.NewBytesLoader(body))
	if err != nil {
		return &FormatError{Contract: contract, Details: []string{"answer is not valid JSON"}}
	}
	if !res.Valid() {
		details := make([]string, len(res.Errors()))
		for i, d := range res.Errors() {
			details[i] = d.String()
		}
		return &FormatError{Contract: contract, Details: details}
	}
	if err := json.Unmarshal(body, dst); err != nil {
		return &FormatError{Contract: contract, Details: []string{err.Error()}}
	}
	return nil
}

// StripFences trims whitespace and a surrounding Markdown code fence, which some
// models emit despite being asked not to.
func StripFences(raw []byte) []byte {
	b := bytes.TrimSpace(raw)
	if !bytes.HasPrefix(b, []byte("```")) {
		return b
	}
	if nl := bytes.IndexByte(b, '\n'); nl >= 0 {
		b = b[nl+1:]
	} else {
		b = b[3:]
	}
	b = bytes.TrimSuffix(bytes.TrimSpace(b), []byte("```"))
	return bytes.TrimSpace(b)
}
