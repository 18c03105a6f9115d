package chi

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	gochi "github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/refurnish/internal/domain"
	"github.com/kailas-cloud/refurnish/internal/domain/catalog"
	"github.com/kailas-cloud/refurnish/internal/domain/dimension"
	"github.com/kailas-cloud/refurnish/internal/domain/placement"
	domusage "github.com/kailas-cloud/refurnish/internal/domain/usage"
	logpkg "github.com/kailas-cloud/refurnish/internal/logger"
	healthuc "github.com/kailas-cloud/refurnish/internal/usecase/health"
	"github.com/kailas-cloud/refurnish/internal/usecase/matching"
	"github.com/kailas-cloud/refurnish/internal/usecase/pipeline"
	"github.com/kailas-cloud/refurnish/internal/version"
)

const (
	// multipartMemory is kept in memory before multipart parts spill to disk.
	multipartMemory = 8 << 20
	// formOverhead covers the inputData field and multipart framing.
	formOverhead = 1 << 20
)

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// Options tunes request handling.
type Options struct {
	MaxPhotos       int
	MaxUploadBytes  int64 // per photo
	DefaultLanguage placement.Language
}

// Server serves the placement API.
type Server struct {
	pipeline      Pipeline
	catalog       CatalogSearcher
	references    ReferenceLister
	usage         UsageReporter
	health        *healthuc.Service
	opts          Options
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(
	p Pipeline,
	cat CatalogSearcher,
	refs ReferenceLister,
	usage UsageReporter,
	health *healthuc.Service,
	opts Options,
	logger *zap.Logger,
) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.MaxPhotos <= 0 {
		opts.MaxPhotos = pipeline.DefaultMaxPhotos
	}
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = pipeline.DefaultMaxPhotoBytes
	}
	s := &Server{
		pipeline:   p,
		catalog:    cat,
		references: refs,
		usage:      usage,
		health:     health,
		opts:       opts,
		logger:     logger,
	}
	// Order matters: the quota and timeout sentinels are checked before the
	// broader unavailable one.
	s.errorHandlers = []errorHandler{
		sentinelHandler(domain.ErrInputValidation, http.StatusBadRequest, ErrorCodeValidationFailed),
		sentinelHandler(domain.ErrVisionQuotaExceeded, http.StatusTooManyRequests, ErrorCodeQuotaExceeded),
		sentinelHandler(domain.ErrUpstreamTimeout, http.StatusGatewayTimeout, ErrorCodeUpstreamTimeout),
		sentinelHandler(domain.ErrUpstreamFormat, http.StatusBadGateway, ErrorCodeUpstreamFormat),
		sentinelHandler(domain.ErrUpstreamRejected, http.StatusBadGateway, ErrorCodeUpstreamRejected),
		sentinelHandler(domain.ErrUpstreamUnavailable, http.StatusServiceUnavailable, ErrorCodeUpstreamUnavailable),
	}
	return s
}

// Routes mounts every endpoint on r.
func (s *Server) Routes(r gochi.Router) {
	r.Get("/health", s.HealthCheck)
	r.Get("/metrics", s.Metrics)
	r.Route("/api/v1", func(r gochi.Router) {
		r.Post("/placement/dimensions", s.MeasureDimensions)
		r.Post("/placement/generate", s.GeneratePlacement)
		r.Post("/placement/recommend", s.RecommendReplacements)
		r.Get("/catalog/search", s.SearchCatalog)
		r.Get("/reference-objects", s.ListReferenceObjects)
		r.Get("/usage", s.GetUsage)
	})
}

// MeasureDimensions handles POST /api/v1/placement/dimensions.
func (s *Server) MeasureDimensions(w http.ResponseWriter, r *http.Request) {
	form, ok := s.readForm(w, r)
	if !ok {
		return
	}
	defer form.close()

	lang := form.input.language(s.opts.DefaultLanguage)
	target, err := form.input.target()
	if err != nil {
		writeError(w, http.StatusBadRequest, ErrorCodeValidationFailed, "furnitureInfo: "+err.Error())
		return
	}

	est, err := s.pipeline.MeasureDimensions(r.Context(), pipeline.MeasureRequest{
		Photos:      form.photos,
		ReferenceID: form.input.ReferenceObject,
		Target:      target,
		Language:    lang,
	})
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{Success: true, Data: measureResponse{Dimensions: dimensionsFrom(est)}})
}

// GeneratePlacement handles POST /api/v1/placement/generate.
func (s *Server) GeneratePlacement(w http.ResponseWriter, r *http.Request) {
	req, form, ok := s.placementRequest(w, r)
	if !ok {
		return
	}
	defer form.close()

	res, err := s.pipeline.GeneratePlacement(r.Context(), req)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{Success: true, Data: placementResponse{
		RunID:       res.RunID,
		Dimensions:  dimensionsFrom(res.Dimensions),
		Environment: environmentFrom(res.Environment),
		Options:     optionsFrom(res.Concepts),
	}})
}

// RecommendReplacements handles POST /api/v1/placement/recommend.
func (s *Server) RecommendReplacements(w http.ResponseWriter, r *http.Request) {
	req, form, ok := s.placementRequest(w, r)
	if !ok {
		return
	}
	defer form.close()

	res, err := s.pipeline.RecommendReplacements(r.Context(), req)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{Success: true, Data: recommendResponse{
		RunID:       res.RunID,
		Dimensions:  dimensionsFrom(res.Dimensions),
		Environment: environmentFrom(res.Environment),
		Products:    productsFrom(res.Matches),
	}})
}

// SearchCatalog handles GET /api/v1/catalog/search.
func (s *Server) SearchCatalog(w http.ResponseWriter, r *http.Request) {
	q, err := searchQueryFrom(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, ErrorCodeBadRequest, err.Error())
		return
	}
	ms, err := s.catalog.Search(q)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{Success: true, Data: productsFrom(ms)})
}

// ListReferenceObjects handles GET /api/v1/reference-objects.
func (s *Server) ListReferenceObjects(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, envelope{Success: true, Data: referencesFrom(s.references.List())})
}

// GetUsage handles GET /api/v1/usage.
func (s *Server) GetUsage(w http.ResponseWriter, r *http.Request) {
	period, err := domusage.ParsePeriod(r.URL.Query().Get("period"))
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{Success: true, Data: usageFrom(s.usage.GetReport(r.Context(), period))})
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}

	httpStatus := http.StatusOK
	if report.Status == healthuc.Unhealthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, healthResponse{
		Status:  string(report.Status),
		Checks:  checks,
		Version: version.Version,
	})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

// uploadForm is a parsed placement form. close releases multipart resources.
type uploadForm struct {
	input  inputData
	photos []pipeline.Photo
	files  []multipart.File
	form   *multipart.Form
}

func (f *uploadForm) close() {
	for _, file := range f.files {
		_ = file.Close()
	}
	if f.form != nil {
		_ = f.form.RemoveAll()
	}
}

// readForm parses the multipart body: photos files plus the inputData JSON field.
func (s *Server) readForm(w http.ResponseWriter, r *http.Request) (*uploadForm, bool) {
	limit := int64(s.opts.MaxPhotos)*s.opts.MaxUploadBytes + formOverhead
	r.Body = http.MaxBytesReader(w, r.Body, limit)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, ErrorCodeValidationFailed,
				fmt.Sprintf("upload exceeds %d bytes", limit))
			return nil, false
		}
		writeError(w, http.StatusBadRequest, ErrorCodeBadRequest, "expected multipart/form-data body")
		return nil, false
	}

	form := &uploadForm{form: r.MultipartForm}
	raw := r.MultipartForm.Value["inputData"]
	if len(raw) == 0 {
		form.close()
		writeError(w, http.StatusBadRequest, ErrorCodeBadRequest, "inputData field is required")
		return nil, false
	}
	if err := json.Unmarshal([]byte(raw[0]), &form.input); err != nil {
		form.close()
		writeError(w, http.StatusBadRequest, ErrorCodeBadRequest, "inputData must be valid JSON")
		return nil, false
	}

	for _, fh := range r.MultipartForm.File["photos"] {
		f, err := fh.Open()
		if err != nil {
			form.close()
			writeError(w, http.StatusBadRequest, ErrorCodeBadRequest, "unreadable photo upload")
			return nil, false
		}
		form.files = append(form.files, f)
		form.photos = append(form.photos, pipeline.Photo{
			Filename: fh.Filename,
			MIMEType: fh.Header.Get("Content-Type"),
			Content:  f,
		})
	}
	return form, true
}

func (s *Server) placementRequest(w http.ResponseWriter, r *http.Request) (pipeline.PlacementRequest, *uploadForm, bool) {
	form, ok := s.readForm(w, r)
	if !ok {
		return pipeline.PlacementRequest{}, nil, false
	}
	target, err := form.input.target()
	if err != nil {
		form.close()
		writeError(w, http.StatusBadRequest, ErrorCodeValidationFailed, "furnitureInfo: "+err.Error())
		return pipeline.PlacementRequest{}, nil, false
	}
	prefs, err := form.input.preferences(form.input.language(s.opts.DefaultLanguage))
	if err != nil {
		form.close()
		writeError(w, http.StatusBadRequest, ErrorCodeValidationFailed, "preferences: "+err.Error())
		return pipeline.PlacementRequest{}, nil, false
	}
	return pipeline.PlacementRequest{
		Photos:      form.photos,
		ReferenceID: form.input.ReferenceObject,
		Target:      target,
		Preferences: prefs,
	}, form, true
}

func searchQueryFrom(r *http.Request) (matching.SearchQuery, error) {
	v := r.URL.Query()
	q := matching.SearchQuery{Category: strings.TrimSpace(v.Get("category"))}

	for _, kw := range strings.Split(v.Get("keywords"), ",") {
		if kw = strings.TrimSpace(kw); kw != "" {
			q.Keywords = append(q.Keywords, kw)
		}
	}

	has := map[string]bool{}
	var length, width, height, minPrice, maxPrice float64
	for name, dst := range map[string]*float64{
		"length": &length, "width": &width, "height": &height,
		"tolerance": &q.Tolerance, "minPrice": &minPrice, "maxPrice": &maxPrice,
	} {
		raw := v.Get(name)
		if raw == "" {
			continue
		}
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return matching.SearchQuery{}, fmt.Errorf("%s must be a finite number", name)
		}
		*dst = f
		has[name] = true
	}

	switch {
	case has["length"] && has["width"] && has["height"]:
		q.Target = &dimension.Size{Length: length, Width: width, Height: height}
	case has["length"] || has["width"] || has["height"]:
		return matching.SearchQuery{}, errors.New("length, width and height must be given together")
	}

	if has["minPrice"] || has["maxPrice"] {
		if !has["maxPrice"] {
			return matching.SearchQuery{}, errors.New("maxPrice is required with minPrice")
		}
		pr, err := catalog.NewPriceRange(minPrice, maxPrice)
		if err != nil {
			return matching.SearchQuery{}, err
		}
		q.PriceRange = &pr
	}

	if raw := v.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return matching.SearchQuery{}, errors.New("limit must be a non-negative integer")
		}
		q.Limit = n
	}
	return q, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code ErrorCode, message string) {
	writeJSON(w, status, ErrorResponse{
		Code:    code,
		Message: message,
	})
}

// safeDomainMessage returns "<stage>: <sentinel>" without exposing internals.
// Validation errors are built from request data only and are returned whole.
func safeDomainMessage(err error) string {
	prefix := ""
	if st := domain.StageOf(err); st != "" {
		prefix = string(st) + ": "
	}
	if errors.Is(err, domain.ErrInputValidation) {
		var se *domain.StageError
		if errors.As(err, &se) {
			return prefix + se.Err.Error()
		}
		return err.Error()
	}
	sentinels := []error{
		domain.ErrVisionQuotaExceeded,
		domain.ErrUpstreamTimeout,
		domain.ErrUpstreamFormat,
		domain.ErrUpstreamRejected,
		domain.ErrUpstreamUnavailable,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return prefix + s.Error()
		}
	}
	return prefix + "internal error"
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code ErrorCode) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

func (s *Server) handleDomainError(w http.ResponseWriter, r *http.Request, err error) {
	log := logpkg.FromContextOr(r.Context(), s.logger)
	log.Warn("domain error", zap.String("stage", string(domain.StageOf(err))), zap.Error(err))
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	log.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, ErrorCodeInternalError, msg)
}
