package model

import (
	"fmt"

	"github.com/beenjammin/basgra/internal/domain/schema"
)

// HarvestDirective is one row of the harvest control schedule.
type HarvestDirective struct {
	Year        int
	DOY         int
	FracHarv    float64 // fraction of harvestable DM removed, <= 1
	HarvTrig    float64 // harvestable DM trigger; -1 never harvests
	HarvTarg    float64 // harvestable DM target
	WeedDMFrac  float64 // fraction of DM attributed to weeds; NaN until filled
	ReseedTrig  float64 // BASAL at or below which reseeding fires; < 0 disables
	ReseedBasal float64 // BASAL value set on reseed
}

// Day returns the calendar key of the directive.
func (h HarvestDirective) Day() Day { return Day{Year: h.Year, DOY: h.DOY} }

// Values returns the directive in harvest column order.
func (h HarvestDirective) Values() []float64 {
	return []float64{
		float64(h.Year), float64(h.DOY),
		h.FracHarv, h.HarvTrig, h.HarvTarg,
		h.WeedDMFrac, h.ReseedTrig, h.ReseedBasal,
	}
}

// HarvestFromFrame converts a harvest frame into directives. Columns may be
// in any order but must include every harvest column.
func HarvestFromFrame(f *Frame) ([]HarvestDirective, error) {
	ordered, err := f.Select(schema.HarvestColumns())
	if err != nil {
		return nil, fmt.Errorf("harvest frame: %w", err)
	}
	out := make([]HarvestDirective, len(ordered.Rows))
	for i, r := range ordered.Rows {
		out[i] = HarvestDirective{
			Year:        int(r[0]),
			DOY:         int(r[1]),
			FracHarv:    r[2],
			HarvTrig:    r[3],
			HarvTarg:    r[4],
			WeedDMFrac:  r[5],
			ReseedTrig:  r[6],
			ReseedBasal: r[7],
		}
	}
	return out, nil
}

// HarvestFrame converts directives back into a frame in harvest column
// order.
func HarvestFrame(hs []HarvestDirective) *Frame {
	f := NewFrame(schema.HarvestColumns()...)
	f.Rows = make([][]float64, len(hs))
	for i, h := range hs {
		f.Rows[i] = h.Values()
	}
	return f
}
