// Package harvest turns sparse, event-only harvest schedules into the dense
// per-day control schedule the engine reads.
package harvest

import (
	"context"
	"math"

	"github.com/beenjammin/basgra/internal/domain/model"
	"github.com/beenjammin/basgra/internal/domain/schema"
	"github.com/beenjammin/basgra/internal/domain/simerr"
	"github.com/beenjammin/basgra/pkg/logger"
)

// Option configures Translate.
type Option func(*options)

type options struct {
	ctx context.Context
	log logger.Logger
}

// WithLogger sets the logger that receives the weed-fraction warning.
func WithLogger(l logger.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.log = l
		}
	}
}

// WithContext sets the context passed to the logger.
func WithContext(ctx context.Context) Option {
	return func(o *options) {
		if ctx != nil {
			o.ctx = ctx
		}
	}
}

// Inert returns the directive used on days without a harvest event.
func Inert(d model.Day) model.HarvestDirective {
	return model.HarvestDirective{
		Year:        d.Year,
		DOY:         d.DOY,
		FracHarv:    0,
		HarvTrig:    -1,
		HarvTarg:    0,
		WeedDMFrac:  math.NaN(),
		ReseedTrig:  -1,
		ReseedBasal: 0,
	}
}

// Translate builds one directive per entry of days. Days without an event
// get Inert values; event rows overwrite their day. The weed fraction is
// then filled forward so every day carries one. If the first day has none
// it is seeded from the first event that does, and a warning is logged. If
// no event defines a weed fraction the column is zero.
//
// Events whose day is not in days are rejected with a continuity error.
func Translate(sparse []model.HarvestDirective, days []model.Day, opts ...Option) ([]model.HarvestDirective, error) {
	o := options{ctx: context.Background(), log: logger.Nop()}
	for _, opt := range opts {
		opt(&o)
	}

	index := make(map[model.Day]int, len(days))
	dense := make([]model.HarvestDirective, len(days))
	for i, d := range days {
		index[d] = i
		dense[i] = Inert(d)
	}

	for r, ev := range sparse {
		i, ok := index[ev.Day()]
		if !ok {
			return nil, simerr.AtRow(simerr.ErrContinuity, "harvest.calendar", schema.ColDOY, r,
				"event on %s is not a simulated day", ev.Day())
		}
		dense[i] = ev
	}

	fillWeed(o, dense)
	return dense, nil
}

func fillWeed(o options, dense []model.HarvestDirective) {
	if len(dense) == 0 {
		return
	}
	if math.IsNaN(dense[0].WeedDMFrac) {
		first := -1
		for i, h := range dense {
			if !math.IsNaN(h.WeedDMFrac) {
				first = i
				break
			}
		}
		if first < 0 {
			for i := range dense {
				dense[i].WeedDMFrac = 0
			}
			o.log.Warn(o.ctx, "no weed_dm_frac defined, using 0 for the whole simulation")
			return
		}
		dense[0].WeedDMFrac = dense[first].WeedDMFrac
		o.log.Warn(o.ctx, "weed_dm_frac is missing for the first simulated day, using the first defined value; "+
			"harvesting is unaffected, only DMH_WEED",
			logger.String("day", dense[0].Day().String()),
			logger.String("source_day", dense[first].Day().String()),
			logger.Float64("weed_dm_frac", dense[first].WeedDMFrac))
	}
	last := dense[0].WeedDMFrac
	for i := range dense {
		if math.IsNaN(dense[i].WeedDMFrac) {
			dense[i].WeedDMFrac = last
			continue
		}
		last = dense[i].WeedDMFrac
	}
}

// Passthrough returns a copy of an already dense schedule.
func Passthrough(dense []model.HarvestDirective) []model.HarvestDirective {
	out := make([]model.HarvestDirective, len(dense))
	copy(out, dense)
	return out
}
