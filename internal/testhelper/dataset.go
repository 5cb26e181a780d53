// Package testhelper builds synthetic parameter sets, weather and harvest
// tables for tests across the pipeline packages.
package testhelper

import (
	"math"

	"github.com/beenjammin/basgra/internal/domain/model"
	"github.com/beenjammin/basgra/internal/domain/schema"
)

// ParameterMap returns a complete, valid parameter mapping. Values are
// plausible Lincoln-site magnitudes, not calibrated.
func ParameterMap() map[string]float64 {
	m := make(map[string]float64, model.NumParameters())
	for _, k := range model.ParameterKeys() {
		m[k] = 0.5
	}
	m["LAT"] = -43.6
	m["TBASE"] = 4.5
	m["ROOTDM"] = 1.0
	m["WCI"] = 0.3
	m["IRRIGF"] = 0.9
	m["irr_frm_paw"] = 0
	m["fixed_removal"] = 0
	m["opt_harvfrin"] = 1
	m["reseed_harv_delay"] = 20
	m["reseed_LAI"] = 1.8
	return m
}

// Parameters returns ParameterMap as a struct.
func Parameters() model.ParameterSet {
	p, err := model.ParametersFromMap(ParameterMap())
	if err != nil {
		panic(err)
	}
	return p
}

// Weather builds n contiguous daily rows starting at start for mode. Climate
// values are a smooth synthetic signal.
func Weather(start model.Day, n int, mode schema.PETMode) *model.Frame {
	cols := schema.WeatherColumns(mode)
	f := model.NewFrame(cols...)
	d0, err := start.Date()
	if err != nil {
		panic(err)
	}
	for i := 0; i < n; i++ {
		day := model.DayOf(d0.AddDate(0, 0, i))
		season := math.Sin(2 * math.Pi * float64(day.DOY) / 365)
		values := map[string]float64{
			"year":     float64(day.Year),
			"doy":      float64(day.DOY),
			"tmin":     6 + 4*season,
			"tmax":     16 + 6*season,
			"rain":     float64(i%4) * 1.5,
			"radn":     12 + 8*season,
			"pet":      2.5 + 1.5*season,
			"wind":     3.2,
			"vpa":      1.1,
			"max_irr":  5.5,
			"irr_trig": 0.7,
			"irr_targ": 1,
		}
		row := make([]float64, len(cols))
		for j, c := range cols {
			row[j] = values[c]
		}
		f.Rows = append(f.Rows, row)
	}
	return f
}

// DenseHarvest builds an automatic-mode harvest table covering every
// weather day with inert, fully populated rows.
func DenseHarvest(weather *model.Frame) *model.Frame {
	days, err := weather.Days(schema.ColYear, schema.ColDOY)
	if err != nil {
		panic(err)
	}
	hs := make([]model.HarvestDirective, len(days))
	for i, d := range days {
		hs[i] = Inert(d)
		hs[i].WeedDMFrac = 0
	}
	return model.HarvestFrame(hs)
}

// Inert returns a directive that never harvests or reseeds.
func Inert(d model.Day) model.HarvestDirective {
	return model.HarvestDirective{
		Year:        d.Year,
		DOY:         d.DOY,
		HarvTrig:    -1,
		WeedDMFrac:  math.NaN(),
		ReseedTrig:  -1,
		ReseedBasal: 0,
	}
}

// Event returns a manual-mode harvest event.
func Event(d model.Day, frac, trig, targ, weed float64) model.HarvestDirective {
	return model.HarvestDirective{
		Year:        d.Year,
		DOY:         d.DOY,
		FracHarv:    frac,
		HarvTrig:    trig,
		HarvTarg:    targ,
		WeedDMFrac:  weed,
		ReseedTrig:  -1,
		ReseedBasal: 1,
	}
}
