package profiling

import (
	"context"
	"errors"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/kailas-cloud/refurnish/internal/domain"
	"github.com/kailas-cloud/refurnish/internal/domain/placement"
	"github.com/kailas-cloud/refurnish/internal/prompt"
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
	return domain.AnalysisResult{Raw: []byte(f.raw)}, nil
}

const nordic = `{"inherent_style":"Nordic minimalist","dominant_color_material":"white oak","light_source_direction":"left window","shadow_intensity":"soft"}`

func newTestService(t *testing.T, v *fakeVision) *Service {
	t.Helper()
	engine, err := prompt.NewEngine()
	if err != nil {
		t.Fatal(err)
	}
	return New(v, engine, zap.NewNop())
}

var photo = domain.Image{MIMEType: "image/jpeg", Data: []byte("room")}

func TestProfile(t *testing.T) {
	v := &fakeVision{raw: nordic}
	p, err := newTestService(t, v).Profile(context.Background(), photo, "living room", placement.English)
	if err != nil {
		t.Fatalf("Profile: %v", err)
	}
	if p.StyleLabel() != "Nordic minimalist" || p.DominantColorMaterial() != "white oak" ||
		p.LightDirection() != "left window" || p.ShadowIntensity() != "soft" {
		t.Errorf("unexpected profile: %+v", p)
	}
	if v.last.Task != domain.TaskProfiling || v.last.Temperature != Temperature || len(v.last.Images) != 1 {
		t.Errorf("unexpected request: task=%s temp=%v images=%d", v.last.Task, v.last.Temperature, len(v.last.Images))
	}
	if !strings.Contains(v.last.Instruction, "living room") {
		t.Errorf("instruction does not carry the room hint:\n%s", v.last.Instruction)
	}
}

func TestProfile_DefaultRoomType(t *testing.T) {
	for lang, want := range map[placement.Language]string{placement.English: "Room", placement.Chinese: "房间"} {
		v := &fakeVision{raw: nordic}
		if _, err := newTestService(t, v).Profile(context.Background(), photo, "  ", lang); err != nil {
			t.Fatal(err)
		}
		if !strings.Contains(v.last.Instruction, want) {
			t.Errorf("%s instruction missing %q", lang, want)
		}
	}
}

func TestProfile_FormatErrors(t *testing.T) {
	for name, raw := range map[string]string{
		"missing field": `{"inherent_style":"Nordic","dominant_color_material":"oak","light_source_direction":"left"}`,
		"empty field":   `{"inherent_style":"","dominant_color_material":"oak","light_source_direction":"left","shadow_intensity":"soft"}`,
		"blank field":   `{"inherent_style":"   ","dominant_color_material":"oak","light_source_direction":"left","shadow_intensity":"soft"}`,
		"wrong type":    `{"inherent_style":1,"dominant_color_material":"oak","light_source_direction":"left","shadow_intensity":"soft"}`,
		"not json":      `The room is Nordic.`,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := newTestService(t, &fakeVision{raw: raw}).Profile(context.Background(), photo, "", placement.English)
			if !errors.Is(err, domain.ErrUpstreamFormat) {
				t.Fatalf("error = %v, want ErrUpstreamFormat", err)
			}
		})
	}
}

func TestProfile_MissingPhoto(t *testing.T) {
	v := &fakeVision{raw: nordic}
	_, err := newTestService(t, v).Profile(context.Background(), domain.Image{}, "", placement.English)
	if !errors.Is(err, domain.ErrInputValidation) {
		t.Fatalf("error = %v, want ErrInputValidation", err)
	}
	if v.calls != 0 {
		t.Error("vision client called without a photo")
	}
}

func TestProfile_UpstreamError(t *testing.T) {
	_, err := newTestService(t, &fakeVision{err: domain.ErrUpstreamUnavailable}).
		Profile(context.Background(), photo, "", placement.English)
	if !errors.Is(err, domain.ErrUpstreamUnavailable) {
		t.Fatalf("error = %v", err)
	}
}
