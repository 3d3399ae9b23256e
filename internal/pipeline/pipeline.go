// Package pipeline runs one customer-persona analysis end to end: estimate k
// from a sample, cluster the full dataset, then synthesize one persona per
// non-empty cluster concurrently.
package pipeline

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/BerylCAtieno/customer-persona-agent/internal/cluster"
	"github.com/BerylCAtieno/customer-persona-agent/internal/csvdata"
	"github.com/BerylCAtieno/customer-persona-agent/internal/errs"
	"github.com/BerylCAtieno/customer-persona-agent/internal/features"
	"github.com/BerylCAtieno/customer-persona-agent/internal/models"
)

type KEstimator interface {
	EstimateK(ctx context.Context, sample []models.Record) (models.KEstimate, error)
}

type PersonaSynthesizer interface {
	SynthesizePersona(ctx context.Context, group models.ClusterGroup) (models.Persona, error)
}

const (
	DefaultIDField        = "customer_id"
	DefaultSampleSize     = 20
	DefaultMaxConcurrency = 4
)

type Config struct {
	IDField        string
	SampleSize     int
	MaxConcurrency int
}

func (c Config) withDefaults() Config {
	if c.IDField == "" {
		c.IDField = DefaultIDField
	}
	if c.SampleSize <= 0 {
		c.SampleSize = DefaultSampleSize
	}
	if c.MaxConcurrency <= 0 {
		c.MaxConcurrency = DefaultMaxConcurrency
	}
	return c
}

type Pipeline struct {
	estimator   KEstimator
	partitioner cluster.Partitioner
	synth       PersonaSynthesizer
	cfg         Config
	logger      *zap.Logger
	onStage     func(runID string, s Stage)
}

type Option func(*Pipeline)

func WithLogger(l *zap.Logger) Option {
	return func(p *Pipeline) { p.logger = l }
}

// WithStageHook registers fn to observe every stage transition.
func WithStageHook(fn func(runID string, s Stage)) Option {
	return func(p *Pipeline) { p.onStage = fn }
}

func New(est KEstimator, part cluster.Partitioner, synth PersonaSynthesizer, cfg Config, opts ...Option) *Pipeline {
	p := &Pipeline{
		estimator:   est,
		partitioner: part,
		synth:       synth,
		cfg:         cfg.withDefaults(),
		logger:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *Pipeline) Config() Config { return p.cfg }

type runIDKey struct{}

// WithRunID attaches the id used to correlate logs of one run.
func WithRunID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, runIDKey{}, id)
}

// RunID returns the id attached by WithRunID, or "".
func RunID(ctx context.Context) string {
	id, _ := ctx.Value(runIDKey{}).(string)
	return id
}

// AnalyzeCSV parses text and runs the analysis over it.
func (p *Pipeline) AnalyzeCSV(ctx context.Context, text string) (*models.AnalysisResult, error) {
	ds, err := csvdata.Parse(text, p.cfg.IDField)
	if err != nil {
		p.runLogger(ctx).Info("rejected upload", zap.Error(err))
		return nil, err
	}
	return p.Run(ctx, ds)
}

// run tracks the stage of one execution.
type run struct {
	id     string
	stage  Stage
	start  time.Time
	logger *zap.Logger
	hook   func(string, Stage)
}

func (r *run) advance(to Stage, fields ...zap.Field) {
	if !canTransition(r.stage, to) {
		r.logger.DPanic("invalid stage transition", zap.Stringer("from", r.stage), zap.Stringer("to", to))
		return
	}
	r.stage = to
	r.logger.Debug("stage", append([]zap.Field{zap.Stringer("stage", to)}, fields...)...)
	if r.hook != nil {
		r.hook(r.id, to)
	}
}

// fail moves the run to FAILED and returns err unchanged.
func (r *run) fail(err error) error {
	at := r.stage
	r.advance(StageFailed)
	r.logger.Error("analysis failed",
		zap.Stringer("at", at),
		zap.String("category", errs.Category(err)),
		zap.Duration("elapsed", time.Since(r.start)),
		zap.Error(err))
	return err
}

func (p *Pipeline) runLogger(ctx context.Context) *zap.Logger {
	if id := RunID(ctx); id != "" {
		return p.logger.With(zap.String("request_id", id))
	}
	return p.logger
}

// Run executes every stage over ds. Any failure fails the whole run; there is
// no partial result.
func (p *Pipeline) Run(ctx context.Context, ds *models.Dataset) (*models.AnalysisResult, error) {
	id := RunID(ctx)
	if id == "" {
		id = uuid.NewString()
		ctx = WithRunID(ctx, id)
	}
	r := &run{
		id:     id,
		stage:  StageReceived,
		start:  time.Now(),
		logger: p.logger.With(zap.String("request_id", id)),
		hook:   p.onStage,
	}
	if p.onStage != nil {
		p.onStage(id, StageReceived)
	}

	if ds.Len() == 0 {
		return nil, r.fail(errs.Input("CSV data is required."))
	}

	sample := ds.Sample(p.cfg.SampleSize)
	r.advance(StageSampled, zap.Int("records", ds.Len()), zap.Int("sample", len(sample)))

	est, err := p.estimator.EstimateK(ctx, sample)
	if err != nil {
		return nil, r.fail(fmt.Errorf("estimate k: %w", err))
	}
	if est.K < 1 {
		return nil, r.fail(&errs.MalformedResponseError{Reason: fmt.Sprintf("estimated k=%d is below 1", est.K)})
	}
	r.advance(StageKEstimated, zap.Int("k", est.K))

	if ds.Len() < est.K {
		return nil, r.fail(&errs.InputError{
			Err: fmt.Errorf("%w: %d records, estimated k=%d", errs.ErrInsufficientData, ds.Len(), est.K),
		})
	}

	schema, err := features.NewSchema(ds, p.cfg.IDField)
	if err != nil {
		return nil, r.fail(err)
	}
	vectors, cov, err := schema.Vectorize(ds.Records)
	if err != nil {
		return nil, r.fail(err)
	}
	if len(cov.Sentinels) > 0 {
		r.logger.Warn("non-numeric feature cells vectorized as 0", zap.Any("cells_by_feature", cov.Sentinels))
	}
	r.advance(StageVectorized, zap.Strings("features", schema.Keys))

	assignment, err := p.partitioner.Partition(ctx, vectors, est.K)
	if err != nil {
		return nil, r.fail(fmt.Errorf("cluster: %w", err))
	}
	if len(assignment) != len(vectors) {
		r.logger.Warn("partitioner returned a short assignment; unassigned rows are dropped",
			zap.Int("assigned", len(assignment)), zap.Int("rows", len(vectors)))
	}
	r.advance(StageClustered)

	groups, err := cluster.Aggregator{IDField: p.cfg.IDField}.Aggregate(ds.Records, assignment, est.K)
	if err != nil {
		return nil, r.fail(err)
	}
	sizes := make([]int, len(groups))
	for i, g := range groups {
		sizes[i] = g.Size()
	}
	r.advance(StageAggregated, zap.Ints("cluster_sizes", sizes))

	r.advance(StagePersonasSynthesizing)
	personas, err := p.synthesize(ctx, r, groups)
	if err != nil {
		return nil, r.fail(err)
	}

	result := &models.AnalysisResult{KEstimation: est, Personas: personas}
	r.advance(StageAssembled, zap.Int("personas", len(personas)))
	r.advance(StageDone)
	r.logger.Info("analysis complete",
		zap.Int("records", ds.Len()),
		zap.Int("k", est.K),
		zap.Int("personas", len(personas)),
		zap.Duration("elapsed", time.Since(r.start)))
	return result, nil
}

// synthesize fans out one persona call per non-empty group, at most
// MaxConcurrency at a time, and waits for all of them. The first failure
// cancels the calls still in flight and becomes the run's error.
func (p *Pipeline) synthesize(ctx context.Context, r *run, groups []models.ClusterGroup) ([]models.Persona, error) {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.cfg.MaxConcurrency)

	slots := make([]*models.Persona, len(groups))
	for _, grp := range groups {
		if grp.Empty() {
			r.logger.Debug("skipping empty cluster", zap.Int("cluster_id", grp.ID))
			continue
		}
		g.Go(func() error {
			persona, err := p.synth.SynthesizePersona(gctx, grp)
			if err != nil {
				return fmt.Errorf("persona for cluster %d: %w", grp.ID, err)
			}
			persona.ClusterID = grp.ID
			slots[grp.ID] = &persona
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	personas := make([]models.Persona, 0, len(groups))
	for _, s := range slots {
		if s != nil {
			personas = append(personas, *s)
		}
	}
	slices.SortStableFunc(personas, func(a, b models.Persona) int { return a.ClusterID - b.ClusterID })
	return personas, nil
}
