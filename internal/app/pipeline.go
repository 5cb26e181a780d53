package service

import (
	"context"
	"errors"
	"maps"
	"time"

	"github.com/beenjammin/basgra/internal/adapters/engine"
	"github.com/beenjammin/basgra/internal/domain/harvest"
	"github.com/beenjammin/basgra/internal/domain/marshal"
	"github.com/beenjammin/basgra/internal/domain/model"
	"github.com/beenjammin/basgra/internal/domain/reconstruct"
	"github.com/beenjammin/basgra/internal/domain/schema"
	"github.com/beenjammin/basgra/internal/domain/simerr"
	"github.com/beenjammin/basgra/internal/domain/validate"
	"github.com/beenjammin/basgra/pkg/logger"
	"github.com/beenjammin/basgra/pkg/metrics"
)

// Pipeline stage names used in logs and metrics.
const (
	StageValidate    = "validate"
	StageTranslate   = "translate"
	StageMarshal     = "marshal"
	StageEngine      = "engine"
	StageReconstruct = "reconstruct"
)

// Pipeline takes one request from caller tables to a SimulationOutput. It
// holds no per-run state; every Run allocates its own buffers.
type Pipeline struct {
	marshaller *marshal.Marshaller
	engines    map[schema.PETMode]engine.Engine
	logger     logger.Logger
}

// PipelineOption applies a configuration option to the Pipeline.
type PipelineOption func(*Pipeline)

// WithEngine registers e for its PET mode. A later engine for the same
// mode replaces an earlier one.
func WithEngine(e engine.Engine) PipelineOption {
	return func(p *Pipeline) {
		if e != nil {
			p.engines[e.Mode()] = e
		}
	}
}

// WithPipelineLogger sets the logger for stage logs and harvest warnings.
func WithPipelineLogger(l logger.Logger) PipelineOption {
	return func(p *Pipeline) {
		if l != nil {
			p.logger = l
		}
	}
}

// NewPipeline builds a pipeline for the given weather capacity. Every
// registered engine must be compiled for the same capacity.
func NewPipeline(capacity int, opts ...PipelineOption) (*Pipeline, error) {
	if capacity <= 0 {
		return nil, simerr.New(simerr.ErrConfiguration, "pipeline.capacity", "weather_capacity",
			"capacity must be positive, got %d", capacity)
	}
	p := &Pipeline{
		marshaller: marshal.New(capacity),
		engines:    make(map[schema.PETMode]engine.Engine),
		logger:     logger.Nop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	for mode, e := range p.engines {
		if e.Capacity() != capacity {
			return nil, simerr.New(simerr.ErrEnvironment, "engine.capacity", "weather_capacity",
				"%s engine built for capacity %d, configured %d", mode, e.Capacity(), capacity)
		}
	}
	return p, nil
}

// Capacity returns the weather row capacity shared by the marshaller and
// the engines.
func (p *Pipeline) Capacity() int { return p.marshaller.Capacity() }

// HasEngine reports whether an engine is loaded for mode.
func (p *Pipeline) HasEngine(mode schema.PETMode) bool {
	_, ok := p.engines[mode]
	return ok
}

// Validate runs the input checks only. No engine is needed.
func (p *Pipeline) Validate(ctx context.Context, req *model.Request) (validate.Coverage, error) {
	if req == nil {
		return validate.Coverage{}, simerr.New(simerr.ErrConfiguration, "request", "", "no request")
	}
	return p.validate(ctx, cloneRequest(req))
}

func (p *Pipeline) validate(ctx context.Context, req *model.Request) (validate.Coverage, error) {
	var cov validate.Coverage
	err := p.stage(ctx, StageValidate, func() error {
		var err error
		cov, err = validate.Validate(validate.Input{
			Params:      req.Params,
			Weather:     req.Weather,
			Harvest:     req.Harvest,
			Irrigation:  req.Irrigation,
			PETMode:     req.PETMode,
			HarvestMode: req.HarvestMode,
			Capacity:    p.Capacity(),
		})
		return err
	})
	if err != nil {
		check := "unknown"
		var se *simerr.Error
		if errors.As(err, &se) {
			check = se.Check
		}
		metrics.RecordValidationFailure(simerr.KindOf(err), check)
		return validate.Coverage{}, err
	}
	return cov, nil
}

// cloneRequest copies the caller's tables so no stage can alias them.
func cloneRequest(req *model.Request) *model.Request {
	c := *req
	c.Params = maps.Clone(req.Params)
	c.Weather = req.Weather.Clone()
	c.Harvest = req.Harvest.Clone()
	c.Irrigation = append([]int(nil), req.Irrigation...)
	return &c
}

// Run validates req, builds the engine buffers, calls the engine and
// reconstructs its output. The caller's request is never modified.
func (p *Pipeline) Run(ctx context.Context, req *model.Request) (*model.SimulationOutput, error) {
	if req == nil {
		return nil, simerr.New(simerr.ErrConfiguration, "request", "", "no request")
	}
	start := time.Now()
	out, err := p.run(ctx, req)
	metrics.RecordRun(req.PETMode.String(), req.HarvestMode.String(), simerr.KindOf(err))
	if err != nil {
		p.logger.Warn(ctx, "simulation failed",
			logger.String("request_id", req.RequestID),
			logger.String("kind", simerr.KindOf(err)),
			logger.Error(err))
		return nil, err
	}
	metrics.RecordDaysSimulated(out.Len())
	p.logger.Info(ctx, "simulation finished",
		logger.String("request_id", req.RequestID),
		logger.Int("days", out.Len()),
		logger.Float64("ms", millis(time.Since(start))))
	return out, nil
}

func (p *Pipeline) run(ctx context.Context, req *model.Request) (*model.SimulationOutput, error) {
	req = cloneRequest(req)
	cov, err := p.validate(ctx, req)
	if err != nil {
		return nil, err
	}
	eng, ok := p.engines[req.PETMode]
	if !ok {
		return nil, simerr.New(simerr.ErrEnvironment, "engine.mode", "",
			"no %s engine is loaded", req.PETMode)
	}

	var schedule []model.HarvestDirective
	err = p.stage(ctx, StageTranslate, func() error {
		directives, err := model.HarvestFromFrame(req.Harvest)
		if err != nil {
			return simerr.Wrap(simerr.ErrSchema, "harvest.keys", err)
		}
		if req.HarvestMode == schema.AutoHarvest {
			schedule = harvest.Passthrough(directives)
			return nil
		}
		schedule, err = harvest.Translate(directives, cov.Days,
			harvest.WithLogger(p.logger), harvest.WithContext(ctx))
		return err
	})
	if err != nil {
		return nil, err
	}

	var bufs *marshal.Buffers
	err = p.stage(ctx, StageMarshal, func() error {
		var err error
		bufs, err = p.marshaller.Marshal(cov.Params, req.Weather, req.PETMode, schedule, req.Irrigation)
		return err
	})
	if err != nil {
		return nil, err
	}

	var flat []float64
	err = p.stage(ctx, StageEngine, func() error {
		engineStart := time.Now()
		var err error
		flat, err = eng.Evaluate(ctx, bufs, req.Verbose)
		metrics.RecordEngineDuration(millis(time.Since(engineStart)))
		return err
	})
	if err != nil {
		return nil, err
	}

	var out *model.SimulationOutput
	err = p.stage(ctx, StageReconstruct, func() error {
		var err error
		out, err = reconstruct.Reconstruct(flat, cov.Days)
		return err
	})
	return out, err
}

// stage times fn and logs its outcome at debug level.
func (p *Pipeline) stage(ctx context.Context, name string, fn func() error) error {
	start := time.Now()
	err := fn()
	ms := millis(time.Since(start))
	metrics.RecordStageDuration(name, ms)
	if err != nil {
		p.logger.Debug(ctx, "stage failed", logger.String("stage", name), logger.Float64("ms", ms), logger.Error(err))
		return err
	}
	p.logger.Debug(ctx, "stage finished", logger.String("stage", name), logger.Float64("ms", ms))
	return nil
}

func millis(d time.Duration) float64 {
	return float64(d.Microseconds()) / 1000
}
