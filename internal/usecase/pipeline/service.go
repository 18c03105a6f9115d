// Package pipeline sequences calibration, profiling, concept generation,
// catalog matching and rendering for one request.
package pipeline

import (
	"context"
	"fmt"
	"mime"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kailas-cloud/refurnish/internal/domain"
	domconcept "github.com/kailas-cloud/refurnish/internal/domain/concept"
	"github.com/kailas-cloud/refurnish/internal/domain/dimension"
	"github.com/kailas-cloud/refurnish/internal/domain/placement"
	logpkg "github.com/kailas-cloud/refurnish/internal/logger"
	"github.com/kailas-cloud/refurnish/internal/metrics"
	"github.com/kailas-cloud/refurnish/internal/tempfile"
	"github.com/kailas-cloud/refurnish/internal/usecase/calibration"
	"github.com/kailas-cloud/refurnish/internal/usecase/concept"
	"github.com/kailas-cloud/refurnish/internal/usecase/matching"
)

// Defaults applied to zero Config fields.
const (
	DefaultMaxPhotos       = 3
	DefaultMaxPhotoBytes   = 10 << 20
	DefaultTopN            = 5
	DefaultTolerance       = 0.2
	DefaultMatchingWorkers = 4
)

// Entry point labels for metrics and logs.
const (
	entryMeasure   = "measure"
	entryPlacement = "placement"
	entryRecommend = "recommend"
)

// Config tunes the pipeline.
type Config struct {
	UploadDir        string
	MaxPhotos        int
	MaxPhotoBytes    int64
	TopN             int
	Tolerance        float64
	ParallelAnalysis bool
	ParallelMatching bool
	MatchingWorkers  int
}

// DefaultConfig returns the production defaults.
func DefaultConfig() Config {
	return Config{
		MaxPhotos:        DefaultMaxPhotos,
		MaxPhotoBytes:    DefaultMaxPhotoBytes,
		TopN:             DefaultTopN,
		Tolerance:        DefaultTolerance,
		ParallelAnalysis: true,
		ParallelMatching: true,
		MatchingWorkers:  DefaultMatchingWorkers,
	}
}

func (c Config) withDefaults() Config {
	if c.MaxPhotos <= 0 {
		c.MaxPhotos = DefaultMaxPhotos
	}
	if c.MaxPhotoBytes <= 0 {
		c.MaxPhotoBytes = DefaultMaxPhotoBytes
	}
	if c.TopN <= 0 {
		c.TopN = DefaultTopN
	}
	if c.Tolerance <= 0 {
		c.Tolerance = DefaultTolerance
	}
	if c.MatchingWorkers <= 0 {
		c.MatchingWorkers = DefaultMatchingWorkers
	}
	return c
}

// Service runs pipeline entry points. It keeps no per-run state.
type Service struct {
	calibrator Calibrator
	profiler   Profiler
	concepts   ConceptGenerator
	matcher    Matcher
	cfg        Config
	logger     *zap.Logger
}

// New creates a pipeline service.
func New(
	calibrator Calibrator, profiler Profiler, concepts ConceptGenerator, matcher Matcher,
	cfg Config, logger *zap.Logger,
) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		calibrator: calibrator, profiler: profiler,
		concepts: concepts, matcher: matcher,
		cfg: cfg.withDefaults(), logger: logger,
	}
}

// MeasureDimensions calibrates the size of one target.
func (s *Service) MeasureDimensions(ctx context.Context, req MeasureRequest) (est dimension.Estimate, err error) {
	run := NewRun()
	log := logpkg.FromContextOr(ctx, s.logger).With(
		zap.String("run_id", run.ID()),
		zap.String("entry", entryMeasure),
	)
	scope := tempfile.NewScope(s.cfg.UploadDir, log)
	defer scope.Release()
	defer s.finish(log, entryMeasure, run, time.Now(), &err)

	photos, err := s.acceptPhotos(scope, req.Photos)
	if err != nil {
		return dimension.Estimate{}, err
	}
	if err := run.Advance(StateCalibrating); err != nil {
		return dimension.Estimate{}, err
	}
	if err := s.calibrate(ctx, run, photos, req.ReferenceID, req.Target, req.Language); err != nil {
		return dimension.Estimate{}, err
	}
	if err := run.Advance(StateDone); err != nil {
		return dimension.Estimate{}, err
	}
	return run.Estimate(), nil
}

// GeneratePlacement measures the target, profiles the room, asks for concepts,
// ranks the catalog for every furniture spec and renders every concept. A
// failed render leaves that concept's image nil.
func (s *Service) GeneratePlacement(ctx context.Context, req PlacementRequest) (res *PlacementResult, err error) {
	run := NewRun()
	log := logpkg.FromContextOr(ctx, s.logger).With(
		zap.String("run_id", run.ID()),
		zap.String("entry", entryPlacement),
	)
	scope := tempfile.NewScope(s.cfg.UploadDir, log)
	defer scope.Release()
	defer s.finish(log, entryPlacement, run, time.Now(), &err)

	photos, err := s.acceptPhotos(scope, req.Photos)
	if err != nil {
		return nil, err
	}
	if err := s.analyze(ctx, run, photos, req); err != nil {
		return nil, err
	}

	if err := run.Advance(StateConceptsRequested); err != nil {
		return nil, err
	}
	concepts, err := s.generateConcepts(ctx, run, req)
	if err != nil {
		return nil, err
	}

	if err := run.Advance(StateMatching); err != nil {
		return nil, err
	}
	results, err := s.matchConcepts(concepts, req.Preferences)
	if err != nil {
		return nil, err
	}

	s.renderConcepts(ctx, log, results, photos[0])
	if err := run.Advance(StateRendered); err != nil {
		return nil, err
	}
	if err := run.Advance(StateDone); err != nil {
		return nil, err
	}
	return &PlacementResult{
		RunID:       run.ID(),
		Dimensions:  run.Estimate(),
		Environment: run.Profile(),
		Concepts:    results,
	}, nil
}

// RecommendReplacements measures the target, profiles the room and ranks the
// catalog with the requirement filter.
func (s *Service) RecommendReplacements(ctx context.Context, req PlacementRequest) (res *ReplacementResult, err error) {
	run := NewRun()
	log := logpkg.FromContextOr(ctx, s.logger).With(
		zap.String("run_id", run.ID()),
		zap.String("entry", entryRecommend),
	)
	scope := tempfile.NewScope(s.cfg.UploadDir, log)
	defer scope.Release()
	defer s.finish(log, entryRecommend, run, time.Now(), &err)

	photos, err := s.acceptPhotos(scope, req.Photos)
	if err != nil {
		return nil, err
	}
	if err := s.analyze(ctx, run, photos, req); err != nil {
		return nil, err
	}

	if err := run.Advance(StateMatching); err != nil {
		return nil, err
	}
	start := time.Now()
	size := run.Estimate().Size()
	prefs := req.Preferences
	matches, err := s.matcher.Filter(matching.FilterQuery{
		Category:    req.Target.Name(),
		Target:      &size,
		RoomStyle:   run.Profile().StyleLabel(),
		FeatureTags: prefs.FeatureTags(),
		UsedWeight:  prefs.UsedWeight(),
		Budget:      prefs.Budget(),
	})
	metrics.PipelineStageDuration.WithLabelValues(string(domain.StageMatching)).Observe(time.Since(start).Seconds())
	if err != nil {
		return nil, domain.NewStageError(domain.StageMatching, err)
	}

	if err := run.Advance(StateDone); err != nil {
		return nil, err
	}
	return &ReplacementResult{
		RunID:       run.ID(),
		Dimensions:  run.Estimate(),
		Environment: run.Profile(),
		Matches:     matches,
	}, nil
}

// acceptPhotos validates the upload count, stores every photo in the scope and
// loads it.
func (s *Service) acceptPhotos(scope *tempfile.Scope, in []Photo) ([]domain.Image, error) {
	if len(in) < calibration.MinPhotos {
		return nil, domain.NewStageError(domain.StageValidation,
			fmt.Errorf("%w: need at least %d, got %d", domain.ErrInsufficientInput, calibration.MinPhotos, len(in)))
	}
	if len(in) > s.cfg.MaxPhotos {
		return nil, domain.NewStageError(domain.StageValidation,
			fmt.Errorf("%w: at most %d photos, got %d", domain.ErrInputValidation, s.cfg.MaxPhotos, len(in)))
	}

	photos := make([]domain.Image, 0, len(in))
	for i, p := range in {
		if p.Content == nil {
			return nil, domain.NewStageError(domain.StageValidation,
				fmt.Errorf("%w: photo %d is empty", domain.ErrInputValidation, i+1))
		}
		mimeType := photoMIME(p)
		ext := filepath.Ext(p.Filename)
		saved, err := scope.Save(p.Content, ext, mimeType, s.cfg.MaxPhotoBytes)
		if err != nil {
			return nil, domain.NewStageError(domain.StageValidation, fmt.Errorf("photo %d: %w", i+1, err))
		}
		loaded, err := scope.Load(saved)
		if err != nil {
			return nil, domain.NewStageError(domain.StageValidation, fmt.Errorf("photo %d: %w", i+1, err))
		}
		photos = append(photos, loaded)
	}
	return photos, nil
}

func photoMIME(p Photo) string {
	if p.MIMEType != "" && p.MIMEType != "application/octet-stream" {
		return p.MIMEType
	}
	if t := mime.TypeByExtension(strings.ToLower(filepath.Ext(p.Filename))); t != "" {
		return t
	}
	return "image/jpeg"
}

// analyze runs calibration and profiling, concurrently when configured. Both
// outputs are recorded on the run; any failure aborts with no partial state.
func (s *Service) analyze(ctx context.Context, run *Run, photos []domain.Image, req PlacementRequest) error {
	lang := req.Preferences.Language()
	if err := run.Advance(StateCalibrating); err != nil {
		return err
	}

	if !s.cfg.ParallelAnalysis {
		if err := s.calibrate(ctx, run, photos, req.ReferenceID, req.Target, lang); err != nil {
			return err
		}
		if err := run.Advance(StateProfiling); err != nil {
			return err
		}
		return s.profile(ctx, run, photos[0], req.Preferences)
	}

	// Both calls are in flight once the run reaches Profiling.
	if err := run.Advance(StateProfiling); err != nil {
		return err
	}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return s.calibrate(gctx, run, photos, req.ReferenceID, req.Target, lang)
	})
	g.Go(func() error {
		return s.profile(gctx, run, photos[0], req.Preferences)
	})
	return g.Wait()
}

func (s *Service) calibrate(
	ctx context.Context, run *Run, photos []domain.Image,
	referenceID string, target placement.Target, lang placement.Language,
) error {
	start := time.Now()
	estimates, err := s.calibrator.Calibrate(ctx, photos, referenceID, []placement.Target{target}, lang)
	metrics.PipelineStageDuration.WithLabelValues(string(domain.StageCalibration)).Observe(time.Since(start).Seconds())
	if err != nil {
		return domain.NewStageError(domain.StageCalibration, err)
	}
	if len(estimates) == 0 {
		return domain.NewStageError(domain.StageCalibration, fmt.Errorf("no estimate: %w", domain.ErrUpstreamFormat))
	}
	return domain.NewStageError(domain.StageCalibration, run.SetEstimate(estimates[0]))
}

func (s *Service) profile(ctx context.Context, run *Run, photo domain.Image, prefs placement.Preferences) error {
	start := time.Now()
	p, err := s.profiler.Profile(ctx, photo, prefs.RoomType(), prefs.Language())
	metrics.PipelineStageDuration.WithLabelValues(string(domain.StageProfiling)).Observe(time.Since(start).Seconds())
	if err != nil {
		return domain.NewStageError(domain.StageProfiling, err)
	}
	return domain.NewStageError(domain.StageProfiling, run.SetProfile(p))
}

func (s *Service) generateConcepts(ctx context.Context, run *Run, req PlacementRequest) ([]domconcept.Concept, error) {
	start := time.Now()
	concepts, err := s.concepts.Generate(ctx, concept.Request{
		Target:      req.Target,
		Estimate:    run.Estimate(),
		Room:        run.Profile(),
		Preferences: req.Preferences,
	})
	metrics.PipelineStageDuration.WithLabelValues(string(domain.StageConcepts)).Observe(time.Since(start).Seconds())
	if err != nil {
		return nil, domain.NewStageError(domain.StageConcepts, err)
	}
	return concepts, nil
}

type matchJob struct {
	concept int
	spec    int
	query   matching.SearchQuery
}

// matchConcepts ranks the catalog for every furniture spec. Results land in
// slots indexed by concept and spec, so concurrent and sequential execution
// produce the same output.
func (s *Service) matchConcepts(concepts []domconcept.Concept, prefs placement.Preferences) ([]ConceptResult, error) {
	start := time.Now()
	defer func() {
		metrics.PipelineStageDuration.WithLabelValues(string(domain.StageMatching)).Observe(time.Since(start).Seconds())
	}()

	results := make([]ConceptResult, len(concepts))
	var jobs []matchJob
	for ci, c := range concepts {
		specs := c.TargetItems()
		results[ci] = ConceptResult{Concept: c, Items: make([]SpecMatches, len(specs))}
		for si, spec := range specs {
			results[ci].Items[si].Spec = spec
			jobs = append(jobs, matchJob{concept: ci, spec: si, query: s.searchQuery(spec, prefs)})
		}
	}

	run := func(j matchJob) error {
		ms, err := s.matcher.Search(j.query)
		if err != nil {
			return domain.NewStageError(domain.StageMatching,
				fmt.Errorf("concept %s item %d: %w", concepts[j.concept].ID(), j.spec+1, err))
		}
		results[j.concept].Items[j.spec].Matches = ms
		return nil
	}

	if !s.cfg.ParallelMatching {
		for _, j := range jobs {
			if err := run(j); err != nil {
				return nil, err
			}
		}
		return results, nil
	}

	var g errgroup.Group
	g.SetLimit(s.cfg.MatchingWorkers)
	for _, j := range jobs {
		g.Go(func() error { return run(j) })
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func (s *Service) searchQuery(spec domconcept.FurnitureSpec, prefs placement.Preferences) matching.SearchQuery {
	q := matching.SearchQuery{
		Category:   spec.Name(),
		Keywords:   spec.Keywords(),
		Tolerance:  s.cfg.Tolerance,
		PriceRange: prefs.Budget(),
		Limit:      s.cfg.TopN,
	}
	if size := spec.Size(); !size.IsZero() {
		q.Target = &size
	}
	return q
}

// renderConcepts renders every concept concurrently. Failures are logged and
// leave the concept's image nil.
func (s *Service) renderConcepts(ctx context.Context, log *zap.Logger, results []ConceptResult, photo domain.Image) {
	start := time.Now()
	var g errgroup.Group
	for i := range results {
		g.Go(func() error {
			img, err := s.concepts.Render(ctx, results[i].Concept, photo)
			if err != nil {
				metrics.PipelineRenderFailuresTotal.Inc()
				log.Warn("Concept render failed",
					zap.String("concept_id", results[i].Concept.ID()),
					zap.Error(err),
				)
				return nil
			}
			results[i].Image = &img
			return nil
		})
	}
	_ = g.Wait()
	metrics.PipelineStageDuration.WithLabelValues(string(domain.StageRendering)).Observe(time.Since(start).Seconds())
}

// finish records the outcome of a run. Failed runs move to Failed.
func (s *Service) finish(log *zap.Logger, entry string, run *Run, start time.Time, errp *error) {
	elapsed := time.Since(start)
	if err := *errp; err != nil {
		_ = run.Fail()
		metrics.PipelineRunsTotal.WithLabelValues(entry, "failed").Inc()
		log.Warn("Pipeline run failed",
			zap.String("stage", string(domain.StageOf(err))),
			zap.Duration("elapsed", elapsed),
			zap.Error(err),
		)
		return
	}
	metrics.PipelineRunsTotal.WithLabelValues(entry, "success").Inc()
	log.Info("Pipeline run completed", zap.Duration("elapsed", elapsed))
}
