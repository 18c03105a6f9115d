package chi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"
	"time"

	gochi "github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/kailas-cloud/refurnish/internal/domain"
	"github.com/kailas-cloud/refurnish/internal/domain/catalog"
	domconcept "github.com/kailas-cloud/refurnish/internal/domain/concept"
	"github.com/kailas-cloud/refurnish/internal/domain/dimension"
	"github.com/kailas-cloud/refurnish/internal/domain/placement"
	"github.com/kailas-cloud/refurnish/internal/domain/room"
	domusage "github.com/kailas-cloud/refurnish/internal/domain/usage"
	"github.com/kailas-cloud/refurnish/internal/staticdata"
	healthuc "github.com/kailas-cloud/refurnish/internal/usecase/health"
	"github.com/kailas-cloud/refurnish/internal/usecase/matching"
	"github.com/kailas-cloud/refurnish/internal/usecase/pipeline"
)

// --- Fakes ---

type fakePipeline struct {
	measureReq   pipeline.MeasureRequest
	placementReq pipeline.PlacementRequest
	photoBodies  []string
	estimate     dimension.Estimate
	placement    *pipeline.PlacementResult
	replacement  *pipeline.ReplacementResult
	err          error
}

func (f *fakePipeline) readPhotos(photos []pipeline.Photo) {
	for _, p := range photos {
		b, _ := io.ReadAll(p.Content)
		f.photoBodies = append(f.photoBodies, string(b))
	}
}

func (f *fakePipeline) MeasureDimensions(_ context.Context, req pipeline.MeasureRequest) (dimension.Estimate, error) {
	f.measureReq = req
	f.readPhotos(req.Photos)
	return f.estimate, f.err
}

func (f *fakePipeline) GeneratePlacement(_ context.Context, req pipeline.PlacementRequest) (*pipeline.PlacementResult, error) {
	f.placementReq = req
	f.readPhotos(req.Photos)
	if f.err != nil {
		return nil, f.err
	}
	return f.placement, nil
}

func (f *fakePipeline) RecommendReplacements(
	_ context.Context, req pipeline.PlacementRequest,
) (*pipeline.ReplacementResult, error) {
	f.placementReq = req
	f.readPhotos(req.Photos)
	if f.err != nil {
		return nil, f.err
	}
	return f.replacement, nil
}

type fakeSearcher struct {
	query   matching.SearchQuery
	matches []catalog.Match
	err     error
}

func (f *fakeSearcher) Search(q matching.SearchQuery) ([]catalog.Match, error) {
	f.query = q
	return f.matches, f.err
}

type fakeUsage struct{ window domusage.Window }

func (f fakeUsage) GetReport(_ context.Context, period domusage.Period) domusage.Report {
	return domusage.NewReport(period, "gemini", f.window)
}

type fakeVision struct{ err error }

func (f fakeVision) HealthCheck(context.Context) error { return f.err }

// --- Helpers ---

func newTestServer(t *testing.T, p Pipeline, s CatalogSearcher, opts Options) http.Handler {
	t.Helper()
	refs, err := staticdata.LoadReferences("")
	if err != nil {
		t.Fatal(err)
	}
	srv := NewServer(p, s, refs, fakeUsage{}, healthuc.New(nil, fakeVision{}), opts, zap.NewNop())
	r := gochi.NewRouter()
	srv.Routes(r)
	return r
}

type upload struct {
	name, contentType, body string
}

func multipartRequest(t *testing.T, path, input string, files ...upload) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for _, f := range files {
		h := textproto.MIMEHeader{}
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="photos"; filename=%q`, f.name))
		h.Set("Content-Type", f.contentType)
		part, err := mw.CreatePart(h)
		if err != nil {
			t.Fatal(err)
		}
		_, _ = part.Write([]byte(f.body))
	}
	if input != "" {
		if err := mw.WriteField("inputData", input); err != nil {
			t.Fatal(err)
		}
	}
	if err := mw.Close(); err != nil {
		t.Fatal(err)
	}
	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func twoPhotos() []upload {
	return []upload{
		{"front.jpg", "image/jpeg", "photo-one"},
		{"side.png", "image/png", "photo-two"},
	}
}

func decode(t *testing.T, rr *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.NewDecoder(rr.Body).Decode(v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}

func mustEstimate(t *testing.T) dimension.Estimate {
	t.Helper()
	e, err := dimension.New("chair", 44, 46, 77, 0.86)
	if err != nil {
		t.Fatal(err)
	}
	return e
}

func mustProfile(t *testing.T) room.Profile {
	t.Helper()
	p, err := room.New("Nordic", "white oak", "left", "soft")
	if err != nil {
		t.Fatal(err)
	}
	return p
}

func mustMatch(t *testing.T, id string, price float64) catalog.Match {
	t.Helper()
	it, err := catalog.New(catalog.Params{
		ID: id, Name: id, Category: "Chair", Price: price,
		Size: dimension.Size{Length: 44, Width: 46, Height: 77}, StyleTags: []string{"Nordic"},
	})
	if err != nil {
		t.Fatal(err)
	}
	m, err := catalog.NewMatch(it, 1, 1, 1, 0)
	if err != nil {
		t.Fatal(err)
	}
	return m
}

const measureInput = `{"referenceObject":"Coke_Can","furnitureInfo":{"name":"chair","description":"left corner"}}`

// --- Tests ---

func TestMeasureDimensions(t *testing.T) {
	fp := &fakePipeline{estimate: mustEstimate(t)}
	h := newTestServer(t, fp, &fakeSearcher{}, Options{DefaultLanguage: placement.Chinese})

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, multipartRequest(t, "/api/v1/placement/dimensions", measureInput, twoPhotos()...))

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rr.Code, rr.Body)
	}
	var resp struct {
		Success bool `json:"success"`
		Data    struct {
			Dimensions dimensionsDTO `json:"dimensions"`
		} `json:"data"`
	}
	decode(t, rr, &resp)
	if !resp.Success || resp.Data.Dimensions.LengthCm != 44 || resp.Data.Dimensions.Confidence != 0.86 {
		t.Errorf("response = %+v", resp)
	}

	req := fp.measureReq
	if req.ReferenceID != "Coke_Can" || req.Target.Name() != "chair" || req.Target.Description() != "left corner" {
		t.Errorf("request = %+v", req)
	}
	if req.Language != placement.Chinese {
		t.Errorf("language = %q, want server default", req.Language)
	}
	if len(req.Photos) != 2 || req.Photos[1].Filename != "side.png" || req.Photos[1].MIMEType != "image/png" {
		t.Fatalf("photos = %+v", req.Photos)
	}
	if strings.Join(fp.photoBodies, ",") != "photo-one,photo-two" {
		t.Errorf("photo bodies = %v", fp.photoBodies)
	}
}

func TestGeneratePlacement(t *testing.T) {
	spec, _ := domconcept.NewFurnitureSpec("Chair", dimension.Size{Length: 44, Width: 46, Height: 77},
		[]string{"Nordic"}, []string{"Oak"}, "corner")
	c1, _ := domconcept.New("option_1", "Nordic calm", "d1", "swap to oak", []domconcept.FurnitureSpec{spec})
	c2, _ := domconcept.New("option_2", "Warm retro", "d2", "swap to walnut", []domconcept.FurnitureSpec{spec})

	fp := &fakePipeline{placement: &pipeline.PlacementResult{
		RunID:       "run-1",
		Dimensions:  mustEstimate(t),
		Environment: mustProfile(t),
		Concepts: []pipeline.ConceptResult{
			{
				Concept: c1,
				Items:   []pipeline.SpecMatches{{Spec: spec, Matches: []catalog.Match{mustMatch(t, "c-1", 300)}}},
				Image:   &domain.RenderResult{Data: []byte("png"), MIMEType: "image/png"},
			},
			{Concept: c2, Items: []pipeline.SpecMatches{{Spec: spec}}},
		},
	}}
	h := newTestServer(t, fp, &fakeSearcher{}, Options{})

	input := `{"referenceObject":"Coke_Can","furnitureInfo":{"name":"chair"},"language":"zh",
		"preferences":{"stylePreference":["Nordic","Japanese"],"preferUsed":true,"featureTags":["storage"],
		"budgetRange":{"min":100,"max":400},"roomType":"Bedroom"}}`
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, multipartRequest(t, "/api/v1/placement/generate", input, twoPhotos()...))

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rr.Code, rr.Body)
	}
	var resp struct {
		Data placementResponse `json:"data"`
	}
	decode(t, rr, &resp)
	if resp.Data.RunID != "run-1" || resp.Data.Environment.InherentStyle != "Nordic" {
		t.Errorf("response = %+v", resp.Data)
	}
	if len(resp.Data.Options) != 2 {
		t.Fatalf("options = %d", len(resp.Data.Options))
	}
	if img := resp.Data.Options[0].Image; img == nil || *img != "data:image/png;base64,cG5n" {
		t.Errorf("option_1 image = %v", img)
	}
	if resp.Data.Options[1].Image != nil {
		t.Error("option_2 image must be null")
	}
	products := resp.Data.Options[0].FurnitureList[0].RecommendedProducts
	if len(products) != 1 || products[0].ID != "c-1" || products[0].MatchScore != 1 {
		t.Errorf("products = %+v", products)
	}
	if resp.Data.Options[1].FurnitureList[0].RecommendedProducts == nil {
		t.Error("empty ranking should encode as [] not null")
	}

	prefs := fp.placementReq.Preferences
	if prefs.Style() != "Nordic, Japanese" || prefs.UsedWeight() != 1 || prefs.RoomType() != "Bedroom" {
		t.Errorf("preferences = %+v", prefs)
	}
	if prefs.Language() != placement.Chinese {
		t.Errorf("language = %q", prefs.Language())
	}
	if b := prefs.Budget(); b == nil || b.Min() != 100 || b.Max() != 400 {
		t.Errorf("budget = %v", b)
	}
}

func TestRecommendReplacements(t *testing.T) {
	fp := &fakePipeline{replacement: &pipeline.ReplacementResult{
		RunID:       "run-2",
		Dimensions:  mustEstimate(t),
		Environment: mustProfile(t),
		Matches:     []catalog.Match{mustMatch(t, "c-1", 300), mustMatch(t, "c-2", 200)},
	}}
	h := newTestServer(t, fp, &fakeSearcher{}, Options{})

	input := `{"referenceObject":"A4_Paper","furnitureInfo":{"name":"chair"},"preferences":{"usedWeight":0.3}}`
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, multipartRequest(t, "/api/v1/placement/recommend", input, twoPhotos()...))

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rr.Code, rr.Body)
	}
	var resp struct {
		Data recommendResponse `json:"data"`
	}
	decode(t, rr, &resp)
	if len(resp.Data.Products) != 2 || resp.Data.Products[1].ID != "c-2" {
		t.Errorf("products = %+v", resp.Data.Products)
	}
	if w := fp.placementReq.Preferences.UsedWeight(); w != 0.3 {
		t.Errorf("used weight = %v", w)
	}
}

func TestPlacement_ErrorMapping(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode int
		wantBody ErrorCode
		wantMsg  string
	}{
		{
			name: "insufficient photos",
			err: domain.NewStageError(domain.StageValidation,
				fmt.Errorf("%w: need at least 2, got 1", domain.ErrInsufficientInput)),
			wantCode: http.StatusBadRequest,
			wantBody: ErrorCodeValidationFailed,
			wantMsg:  "validation: invalid input: insufficient photos: need at least 2, got 1",
		},
		{
			name: "format error hides details",
			err: domain.NewStageError(domain.StageCalibration,
				fmt.Errorf("decode /tmp/upload/abc.jpg answer: %w", domain.ErrUpstreamFormat)),
			wantCode: http.StatusBadGateway,
			wantBody: ErrorCodeUpstreamFormat,
			wantMsg:  "calibration: upstream response format error",
		},
		{
			name:     "timeout",
			err:      domain.NewStageError(domain.StageProfiling, domain.ErrUpstreamTimeout),
			wantCode: http.StatusGatewayTimeout,
			wantBody: ErrorCodeUpstreamTimeout,
			wantMsg:  "profiling: upstream timeout",
		},
		{
			name:     "unavailable",
			err:      domain.NewStageError(domain.StageConcepts, fmt.Errorf("sk-secret: %w", domain.ErrUpstreamUnavailable)),
			wantCode: http.StatusServiceUnavailable,
			wantBody: ErrorCodeUpstreamUnavailable,
			wantMsg:  "concepts: upstream unavailable",
		},
		{
			name:     "quota",
			err:      domain.NewStageError(domain.StageCalibration, domain.ErrVisionQuotaExceeded),
			wantCode: http.StatusTooManyRequests,
			wantBody: ErrorCodeQuotaExceeded,
			wantMsg:  "calibration: vision quota exceeded",
		},
		{
			name:     "rejected",
			err:      domain.NewStageError(domain.StageConcepts, domain.ErrUpstreamRejected),
			wantCode: http.StatusBadGateway,
			wantBody: ErrorCodeUpstreamRejected,
			wantMsg:  "concepts: upstream rejected request",
		},
		{
			name:     "unknown",
			err:      domain.NewStageError(domain.StageMatching, errors.New("boom at /srv/data")),
			wantCode: http.StatusInternalServerError,
			wantBody: ErrorCodeInternalError,
			wantMsg:  "matching: internal error",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newTestServer(t, &fakePipeline{err: tt.err}, &fakeSearcher{}, Options{})
			rr := httptest.NewRecorder()
			h.ServeHTTP(rr, multipartRequest(t, "/api/v1/placement/generate", measureInput, twoPhotos()...))

			if rr.Code != tt.wantCode {
				t.Fatalf("status = %d, want %d", rr.Code, tt.wantCode)
			}
			var resp ErrorResponse
			decode(t, rr, &resp)
			if resp.Code != tt.wantBody || resp.Message != tt.wantMsg {
				t.Errorf("body = %+v, want %s %q", resp, tt.wantBody, tt.wantMsg)
			}
		})
	}
}

func TestPlacement_BadRequests(t *testing.T) {
	tests := []struct {
		name  string
		req   func(t *testing.T) *http.Request
		want  int
		calls bool
	}{
		{
			name: "not multipart",
			req: func(*testing.T) *http.Request {
				r := httptest.NewRequest(http.MethodPost, "/api/v1/placement/generate", strings.NewReader("{}"))
				r.Header.Set("Content-Type", "application/json")
				return r
			},
			want: http.StatusBadRequest,
		},
		{
			name: "missing inputData",
			req: func(t *testing.T) *http.Request {
				return multipartRequest(t, "/api/v1/placement/generate", "", twoPhotos()...)
			},
			want: http.StatusBadRequest,
		},
		{
			name: "invalid json",
			req: func(t *testing.T) *http.Request {
				return multipartRequest(t, "/api/v1/placement/generate", "{nope", twoPhotos()...)
			},
			want: http.StatusBadRequest,
		},
		{
			name: "missing furniture name",
			req: func(t *testing.T) *http.Request {
				return multipartRequest(t, "/api/v1/placement/generate",
					`{"referenceObject":"Coke_Can","furnitureInfo":{"name":" "}}`, twoPhotos()...)
			},
			want: http.StatusBadRequest,
		},
		{
			name: "inverted budget",
			req: func(t *testing.T) *http.Request {
				return multipartRequest(t, "/api/v1/placement/generate",
					`{"referenceObject":"Coke_Can","furnitureInfo":{"name":"chair"},
					"preferences":{"budgetRange":{"min":500,"max":100}}}`, twoPhotos()...)
			},
			want: http.StatusBadRequest,
		},
		{
			name: "used weight out of range",
			req: func(t *testing.T) *http.Request {
				return multipartRequest(t, "/api/v1/placement/recommend",
					`{"referenceObject":"Coke_Can","furnitureInfo":{"name":"chair"},
					"preferences":{"usedWeight":1.5}}`, twoPhotos()...)
			},
			want: http.StatusBadRequest,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fp := &fakePipeline{}
			h := newTestServer(t, fp, &fakeSearcher{}, Options{})
			rr := httptest.NewRecorder()
			h.ServeHTTP(rr, tt.req(t))

			if rr.Code != tt.want {
				t.Fatalf("status = %d, want %d, body = %s", rr.Code, tt.want, rr.Body)
			}
			if fp.photoBodies != nil {
				t.Error("pipeline must not run for a bad request")
			}
		})
	}
}

func TestPlacement_UploadTooLarge(t *testing.T) {
	h := newTestServer(t, &fakePipeline{}, &fakeSearcher{}, Options{MaxPhotos: 2, MaxUploadBytes: 16})
	big := strings.Repeat("x", 2<<20)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, multipartRequest(t, "/api/v1/placement/dimensions", measureInput,
		upload{"a.jpg", "image/jpeg", big}, upload{"b.jpg", "image/jpeg", "small"}))

	if rr.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("status = %d, want %d", rr.Code, http.StatusRequestEntityTooLarge)
	}
}

func TestSearchCatalog(t *testing.T) {
	fs := &fakeSearcher{matches: []catalog.Match{mustMatch(t, "c-1", 300)}}
	h := newTestServer(t, &fakePipeline{}, fs, Options{})

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet,
		"/api/v1/catalog/search?category=Chair&keywords=Minimalist,%20Oak,&length=44&width=46&height=77"+
			"&tolerance=0.15&minPrice=100&maxPrice=400&limit=3", http.NoBody))

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rr.Code, rr.Body)
	}
	q := fs.query
	if q.Category != "Chair" || strings.Join(q.Keywords, "|") != "Minimalist|Oak" {
		t.Errorf("query = %+v", q)
	}
	if q.Target == nil || *q.Target != (dimension.Size{Length: 44, Width: 46, Height: 77}) {
		t.Errorf("target = %v", q.Target)
	}
	if q.Tolerance != 0.15 || q.Limit != 3 {
		t.Errorf("tolerance=%v limit=%d", q.Tolerance, q.Limit)
	}
	if q.PriceRange == nil || q.PriceRange.Min() != 100 || q.PriceRange.Max() != 400 {
		t.Errorf("price range = %v", q.PriceRange)
	}

	var resp struct {
		Data []productDTO `json:"data"`
	}
	decode(t, rr, &resp)
	if len(resp.Data) != 1 || resp.Data[0].ID != "c-1" {
		t.Errorf("data = %+v", resp.Data)
	}
}

func TestSearchCatalog_BadQueries(t *testing.T) {
	for _, query := range []string{
		"length=abc",
		"length=44&width=46",
		"minPrice=100",
		"minPrice=500&maxPrice=100",
		"limit=-1",
		"tolerance=NaN",
		"tolerance=-Inf",
		"minPrice=NaN&maxPrice=400",
		"length=Inf&width=46&height=77",
	} {
		t.Run(query, func(t *testing.T) {
			h := newTestServer(t, &fakePipeline{}, &fakeSearcher{}, Options{})
			rr := httptest.NewRecorder()
			h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/v1/catalog/search?"+query, http.NoBody))
			if rr.Code != http.StatusBadRequest {
				t.Errorf("status = %d", rr.Code)
			}
			var body ErrorResponse
			decode(t, rr, &body)
			if body.Message == "" {
				t.Error("empty error message")
			}
		})
	}
}

func TestSearchCatalog_EmbeddedCatalogScoresAreFinite(t *testing.T) {
	c, err := staticdata.LoadCatalog("")
	if err != nil {
		t.Fatal(err)
	}
	h := newTestServer(t, &fakePipeline{}, matching.New(c), Options{})

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet,
		"/api/v1/catalog/search?category=%E6%A4%85%E5%AD%90&keywords=%E7%AE%80%E7%BA%A6&length=44&width=46&height=77",
		http.NoBody))
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rr.Code, rr.Body)
	}
	var resp struct {
		Data []productDTO `json:"data"`
	}
	decode(t, rr, &resp)
	if len(resp.Data) == 0 || resp.Data[0].ID != "chair_001" {
		t.Fatalf("data = %+v", resp.Data)
	}
	for _, p := range resp.Data {
		if !(p.MatchScore >= 0 && p.MatchScore <= 1) {
			t.Errorf("%s score %v", p.ID, p.MatchScore)
		}
	}
}

func TestSearchCatalog_ValidationFromMatcher(t *testing.T) {
	fs := &fakeSearcher{err: fmt.Errorf("%w: tolerance must not be negative", domain.ErrInputValidation)}
	h := newTestServer(t, &fakePipeline{}, fs, Options{})
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/v1/catalog/search?tolerance=-1", http.NoBody))
	if rr.Code != http.StatusBadRequest {
		t.Errorf("status = %d", rr.Code)
	}
}

func TestListReferenceObjects(t *testing.T) {
	h := newTestServer(t, &fakePipeline{}, &fakeSearcher{}, Options{})
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/v1/reference-objects", http.NoBody))

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	var resp struct {
		Data []referenceDTO `json:"data"`
	}
	decode(t, rr, &resp)
	var coke *referenceDTO
	for i := range resp.Data {
		if resp.Data[i].ID == "Coke_Can" {
			coke = &resp.Data[i]
		}
	}
	if coke == nil || coke.HeightCm != 12.2 || coke.WidthCm != 6.6 || coke.Shape != "cylinder" {
		t.Errorf("Coke_Can = %+v", coke)
	}
}

func TestGetUsage(t *testing.T) {
	start := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	refs, _ := staticdata.LoadReferences("")
	srv := NewServer(&fakePipeline{}, &fakeSearcher{}, refs,
		fakeUsage{window: domusage.Window{Limit: 1000, Used: 1000, Start: start, ResetsAt: start.AddDate(0, 1, 0)}},
		healthuc.New(nil, fakeVision{}), Options{}, zap.NewNop())
	r := gochi.NewRouter()
	srv.Routes(r)

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/v1/usage?period=month", http.NoBody))
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rr.Code, rr.Body)
	}
	var resp struct {
		Data usageResponse `json:"data"`
	}
	decode(t, rr, &resp)
	got := resp.Data
	if got.Period != "month" || got.Provider != "gemini" || got.TokensRemaining != 0 || !got.Exhausted {
		t.Errorf("usage = %+v", got)
	}
	if !got.ResetsAt.Equal(time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("resetsAt = %v", got.ResetsAt)
	}

	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/v1/usage?period=year", http.NoBody))
	if rr.Code != http.StatusBadRequest {
		t.Errorf("unknown period status = %d, want 400", rr.Code)
	}
}

func TestHealthCheck(t *testing.T) {
	for _, tt := range []struct {
		name   string
		vision error
		status int
		body   string
	}{
		{"healthy", nil, http.StatusOK, "ok"},
		{"vision down", errors.New("down"), http.StatusServiceUnavailable, "error"},
	} {
		t.Run(tt.name, func(t *testing.T) {
			refs, _ := staticdata.LoadReferences("")
			srv := NewServer(&fakePipeline{}, &fakeSearcher{}, refs, fakeUsage{},
				healthuc.New(nil, fakeVision{err: tt.vision}), Options{}, nil)
			r := gochi.NewRouter()
			srv.Routes(r)

			rr := httptest.NewRecorder()
			r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", http.NoBody))
			if rr.Code != tt.status {
				t.Fatalf("status = %d, want %d", rr.Code, tt.status)
			}
			var resp healthResponse
			decode(t, rr, &resp)
			if resp.Status != tt.body || resp.Checks["vision"] == "" || resp.Version == "" {
				t.Errorf("response = %+v", resp)
			}
		})
	}
}
