package calibration

import (
	"context"
	"errors"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/kailas-cloud/refurnish/internal/domain"
	"github.com/kailas-cloud/refurnish/internal/domain/placement"
	"github.com/kailas-cloud/refurnish/internal/prompt"
	"github.com/kailas-cloud/refurnish/internal/staticdata"
)

type fakeVision struct {
	raw   string
	err   error
	calls int
	last  domain.AnalysisRequest
}

func (f *fakeVision) Analyze(_ context.Context, req domain.AnalysisRequest) (domain.AnalysisResult, error) {
	f.calls++
	f.last = req
	if f.err != nil {
		return domain.AnalysisResult{}, f.err
	}
	return domain.AnalysisResult{Raw: []byte(f.raw), TotalTokens: 10}, nil
}

func newTestService(t *testing.T, v *fakeVision) *Service {
	t.Helper()
	engine, err := prompt.NewEngine()
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	refs, err := staticdata.LoadReferences("")
	if err != nil {
		t.Fatalf("LoadReferences: %v", err)
	}
	return New(v, engine, refs, zap.NewNop())
}

func photos(n int) []domain.Image {
	out := make([]domain.Image, n)
	for i := range out {
		out[i] = domain.Image{MIMEType: "image/jpeg", Data: []byte{byte(i + 1)}}
	}
	return out
}

func target(t *testing.T, name, desc string) placement.Target {
	t.Helper()
	tg, err := placement.NewTarget(name, desc)
	if err != nil {
		t.Fatal(err)
	}
	return tg
}

func TestCalibrate_CokeCanChair(t *testing.T) {
	v := &fakeVision{raw: `{"calculated_dimensions":[
		{"name":"desk chair","length_cm":45.5,"width_cm":47,"height_cm":78.2,"confidence_score":0.82}
	]}`}
	s := newTestService(t, v)

	got, err := s.Calibrate(context.Background(), photos(2), "Coke_Can",
		[]placement.Target{target(t, "chair", "left third of the photo")}, placement.English)
	if err != nil {
		t.Fatalf("Calibrate: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("got %d estimates, want 1", len(got))
	}
	est := got[0]
	if est.LengthCm() <= 0 || est.WidthCm() <= 0 || est.HeightCm() <= 0 {
		t.Errorf("non-positive measurement: %v", est)
	}
	if est.Confidence() < 0 || est.Confidence() > 1 {
		t.Errorf("confidence %v out of range", est.Confidence())
	}
	if est.ItemName() != "chair" {
		t.Errorf("item name = %q, want the target name", est.ItemName())
	}

	if v.last.Task != domain.TaskCalibration || v.last.Temperature != Temperature {
		t.Errorf("request task=%s temperature=%v", v.last.Task, v.last.Temperature)
	}
	if len(v.last.Images) != 2 {
		t.Errorf("sent %d photos, want 2", len(v.last.Images))
	}
	for _, want := range []string{"Standard Coke Can", "cylinder", "height 12.2 cm", "width 6.6 cm", "- chair: left third of the photo"} {
		if !strings.Contains(v.last.Instruction, want) {
			t.Errorf("instruction missing %q", want)
		}
	}
}

func TestCalibrate_ChineseInstruction(t *testing.T) {
	v := &fakeVision{raw: `{"calculated_dimensions":[{"name":"椅子","length_cm":45,"width_cm":47,"height_cm":78,"confidence_score":0.8}]}`}
	s := newTestService(t, v)

	if _, err := s.Calibrate(context.Background(), photos(2), "A4_Paper",
		[]placement.Target{target(t, "椅子", "")}, placement.Chinese); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(v.last.Instruction, "平面物体") || !strings.Contains(v.last.Instruction, "- 椅子") {
		t.Errorf("unexpected instruction:\n%s", v.last.Instruction)
	}
}

func TestCalibrate_MultipleTargetsKeepOrder(t *testing.T) {
	v := &fakeVision{raw: `{"calculated_dimensions":[
		{"name":"x","length_cm":200,"width_cm":90,"height_cm":85,"confidence_score":0.7},
		{"name":"y","length_cm":120,"width_cm":60,"height_cm":45,"confidence_score":0.6}
	]}`}
	s := newTestService(t, v)

	got, err := s.Calibrate(context.Background(), photos(3), "A4_Paper",
		[]placement.Target{target(t, "sofa", ""), target(t, "coffee table", "")}, placement.English)
	if err != nil {
		t.Fatal(err)
	}
	if got[0].ItemName() != "sofa" || got[0].LengthCm() != 200 {
		t.Errorf("first estimate = %v", got[0])
	}
	if got[1].ItemName() != "coffee table" || got[1].HeightCm() != 45 {
		t.Errorf("second estimate = %v", got[1])
	}
}

func TestCalibrate_ValidationFailsBeforeUpstream(t *testing.T) {
	tests := []struct {
		name    string
		photos  int
		ref     string
		targets []placement.Target
		want    error
	}{
		{"one photo", 1, "Coke_Can", []placement.Target{{}}, domain.ErrInsufficientInput},
		{"no photos", 0, "Coke_Can", nil, domain.ErrInsufficientInput},
		{"unknown reference", 2, "Pencil", nil, domain.ErrInvalidReference},
		{"no targets", 2, "Coke_Can", nil, domain.ErrInputValidation},
		{"unnamed target", 2, "Coke_Can", []placement.Target{{}}, domain.ErrInputValidation},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			v := &fakeVision{}
			_, err := newTestService(t, v).Calibrate(context.Background(), photos(tc.photos), tc.ref, tc.targets, placement.English)
			if !errors.Is(err, tc.want) {
				t.Fatalf("error = %v, want %v", err, tc.want)
			}
			if !errors.Is(err, domain.ErrInputValidation) {
				t.Errorf("error %v should be an input validation error", err)
			}
			if v.calls != 0 {
				t.Error("vision client called for invalid input")
			}
		})
	}
}

func TestCalibrate_FormatErrors(t *testing.T) {
	tests := map[string]string{
		"missing key":     `{"dimensions":[]}`,
		"prose":           `Sure, the chair is about 45cm wide.`,
		"negative size":   `{"calculated_dimensions":[{"name":"c","length_cm":-1,"width_cm":40,"height_cm":70,"confidence_score":0.5}]}`,
		"confidence >1":   `{"calculated_dimensions":[{"name":"c","length_cm":40,"width_cm":40,"height_cm":70,"confidence_score":1.5}]}`,
		"count mismatch":  `{"calculated_dimensions":[]}`,
		"string number":   `{"calculated_dimensions":[{"name":"c","length_cm":"40","width_cm":40,"height_cm":70,"confidence_score":0.5}]}`,
		"too many":        `{"calculated_dimensions":[{"name":"a","length_cm":1,"width_cm":1,"height_cm":1,"confidence_score":0.5},{"name":"b","length_cm":1,"width_cm":1,"height_cm":1,"confidence_score":0.5}]}`,
	}
	for name, raw := range tests {
		t.Run(name, func(t *testing.T) {
			v := &fakeVision{raw: raw}
			_, err := newTestService(t, v).Calibrate(context.Background(), photos(2), "Coke_Can",
				[]placement.Target{target(t, "chair", "")}, placement.English)
			if !errors.Is(err, domain.ErrUpstreamFormat) {
				t.Fatalf("error = %v, want ErrUpstreamFormat", err)
			}
			if v.calls != 1 {
				t.Errorf("calls = %d, format errors must not be retried", v.calls)
			}
		})
	}
}

func TestCalibrate_FencedAnswerAccepted(t *testing.T) {
	v := &fakeVision{raw: "```json\n{\"calculated_dimensions\":[{\"name\":\"c\",\"length_cm\":40,\"width_cm\":40,\"height_cm\":70,\"confidence_score\":0.5}]}\n```"}
	if _, err := newTestService(t, v).Calibrate(context.Background(), photos(2), "Coke_Can",
		[]placement.Target{target(t, "chair", "")}, placement.English); err != nil {
		t.Fatalf("fenced answer rejected: %v", err)
	}
}

func TestCalibrate_UpstreamError(t *testing.T) {
	v := &fakeVision{err: domain.ErrUpstreamTimeout}
	_, err := newTestService(t, v).Calibrate(context.Background(), photos(2), "Coke_Can",
		[]placement.Target{target(t, "chair", "")}, placement.English)
	if !errors.Is(err, domain.ErrUpstreamTimeout) {
		t.Fatalf("error = %v, want ErrUpstreamTimeout", err)
	}
}
