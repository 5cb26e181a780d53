// Package validate proves an input dataset meets the engine's preconditions
// before any buffer is built. Checks run cheapest first and stop at the
// first violation.
package validate

import (
	"math"
	"time"

	"github.com/beenjammin/basgra/internal/domain/model"
	"github.com/beenjammin/basgra/internal/domain/schema"
	"github.com/beenjammin/basgra/internal/domain/simerr"
)

// Input is everything one simulation run receives from its caller.
type Input struct {
	Params      map[string]float64
	Weather     *model.Frame
	Harvest     *model.Frame
	Irrigation  []int
	PETMode     schema.PETMode
	HarvestMode schema.HarvestMode
	// Capacity is the engine's weather row capacity; zero means
	// schema.DefaultWeatherCapacity.
	Capacity int
}

// Coverage is what a successful validation established about the input.
type Coverage struct {
	Params model.ParameterSet
	First  time.Time
	Last   time.Time
	// Days and Dates hold the expected daily sequence; the weather rows
	// match it one to one.
	Days  []model.Day
	Dates []time.Time
}

// Validate runs every check in order and returns the verified coverage.
func Validate(in Input) (Coverage, error) {
	var cov Coverage

	// 1. parameters
	p, err := model.ParametersFromMap(in.Params)
	if err != nil {
		return Coverage{}, err
	}
	cov.Params = p

	// 2. weather schema
	capacity := in.Capacity
	if capacity <= 0 {
		capacity = schema.DefaultWeatherCapacity
	}
	if err := checkTable("weather", in.Weather, schema.WeatherColumns(in.PETMode)); err != nil {
		return Coverage{}, err
	}
	if n := in.Weather.Len(); n == 0 || n > capacity {
		return Coverage{}, simerr.New(simerr.ErrRange, "weather.capacity", "",
			"weather must have between 1 and %d rows, got %d", capacity, n)
	}

	// 3. contiguity
	days, err := in.Weather.Days(schema.ColYear, schema.ColDOY)
	if err != nil {
		return Coverage{}, simerr.Wrap(simerr.ErrSchema, "weather.keys", err)
	}
	if err := contiguity(days, &cov); err != nil {
		return Coverage{}, err
	}

	// 4. harvest schema and values
	if err := checkTable("harvest", in.Harvest, schema.HarvestColumns()); err != nil {
		return Coverage{}, err
	}
	if err := checkHarvestValues(in.Harvest, p.FixedRemoval()); err != nil {
		return Coverage{}, err
	}

	// 5. harvest coverage
	hdays, err := in.Harvest.Days(schema.ColYear, schema.ColDOY)
	if err != nil {
		return Coverage{}, simerr.Wrap(simerr.ErrSchema, "harvest.keys", err)
	}
	if in.HarvestMode == schema.AutoHarvest {
		err = denseCoverage(hdays, cov.Days)
	} else {
		err = sparseCoverage(hdays, cov)
	}
	if err != nil {
		return Coverage{}, err
	}

	// 6. irrigation days
	for i, d := range in.Irrigation {
		if d < 0 || d > schema.MaxDOY {
			return Coverage{}, simerr.AtRow(simerr.ErrRange, "irrigation.range", "doy_irr", i,
				"irrigation day %d outside [0, %d]", d, schema.MaxDOY)
		}
	}

	return cov, nil
}

// checkTable verifies the key set, ragged rows, integral year/doy and
// missing values of a caller table.
func checkTable(name string, f *model.Frame, want []string) error {
	if f == nil {
		return simerr.New(simerr.ErrSchema, name+".keys", "", "%s table is missing", name)
	}
	if ok, missing, extra := schema.SameKeySet(f.Columns, want); !ok {
		field := ""
		if len(missing) > 0 {
			field = missing[0]
		} else if len(extra) > 0 {
			field = extra[0]
		}
		return simerr.New(simerr.ErrSchema, name+".keys", field,
			"incorrect keys for %s: missing %v, unexpected %v", name, missing, extra)
	}
	yj, dj := f.Index(schema.ColYear), f.Index(schema.ColDOY)
	for i, r := range f.Rows {
		if len(r) != len(f.Columns) {
			return simerr.AtRow(simerr.ErrSchema, name+".shape", "", i,
				"row has %d cells, expected %d", len(r), len(f.Columns))
		}
		for _, j := range []int{yj, dj} {
			if v := r[j]; !isInteger(v) {
				return simerr.AtRow(simerr.ErrSchema, name+".integer", f.Columns[j], i,
					"%s must be an integer, got %v", f.Columns[j], v)
			}
		}
		// Bounded before Frame.Days converts the keys to int.
		if y := r[yj]; y < schema.MinYear || y > schema.MaxYear {
			return simerr.AtRow(simerr.ErrRange, name+".year", schema.ColYear, i,
				"year must be within [%d, %d], got %v", schema.MinYear, schema.MaxYear, y)
		}
		if d := r[dj]; d < 1 || d > schema.MaxDOY {
			return simerr.AtRow(simerr.ErrRange, name+".doy", schema.ColDOY, i,
				"doy must be within [1, %d], got %v", schema.MaxDOY, d)
		}
	}
	for i, r := range f.Rows {
		for j, v := range r {
			if math.IsNaN(v) {
				return simerr.AtRow(simerr.ErrSchema, name+".missing", f.Columns[j], i,
					"%s cannot have missing values", name)
			}
		}
	}
	return nil
}

func isInteger(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0) && v == math.Trunc(v)
}

// contiguity compares every weather row with the daily sequence running
// from the earliest to the latest weather day.
func contiguity(days []model.Day, cov *Coverage) error {
	dates := make([]time.Time, len(days))
	for i, d := range days {
		t, err := d.Date()
		if err != nil {
			return &simerr.Error{Kind: simerr.ErrRange, Check: "weather.date", Field: schema.ColDOY, Row: i, Err: err}
		}
		dates[i] = t
	}
	first, last := dates[0], dates[0]
	for _, t := range dates[1:] {
		if t.Before(first) {
			first = t
		}
		if t.After(last) {
			last = t
		}
	}
	// Span comes from ordinals; the range is built only once every row matches.
	span := model.DayOf(last).Ordinal() - model.DayOf(first).Ordinal() + 1
	for i, t := range dates {
		if i >= span {
			return simerr.AtRow(simerr.ErrContinuity, "weather.contiguity", "", i,
				"weather contains duplicate days: %s repeats within %s..%s",
				days[i], model.DayOf(first), model.DayOf(last))
		}
		if want := first.AddDate(0, 0, i); !t.Equal(want) {
			return simerr.AtRow(simerr.ErrContinuity, "weather.contiguity", "", i,
				"weather contains missing, duplicate or out of order days: expected %s, got %s",
				model.DayOf(want), days[i])
		}
	}
	if span != len(dates) {
		return simerr.AtRow(simerr.ErrContinuity, "weather.contiguity", "", len(dates)-1,
			"weather covers %d rows but %s..%s spans %d days",
			len(dates), model.DayOf(first), model.DayOf(last), span)
	}

	expected := model.DateRange(first, last)
	cov.First, cov.Last = first, last
	cov.Dates = expected
	cov.Days = make([]model.Day, len(expected))
	for i, t := range expected {
		cov.Days[i] = model.DayOf(t)
	}
	return nil
}

func checkHarvestValues(f *model.Frame, fixedRemoval bool) error {
	fj := f.Index(schema.ColFracHarv)
	tj, gj := f.Index(schema.ColHarvTrig), f.Index(schema.ColHarvTarg)
	for i, r := range f.Rows {
		if r[fj] > 1 {
			return simerr.AtRow(simerr.ErrRange, "harvest.frac_harv", schema.ColFracHarv, i,
				"frac_harv cannot be greater than 1, got %v", r[fj])
		}
	}
	if !fixedRemoval {
		return nil
	}
	for i, r := range f.Rows {
		if r[tj] < r[gj] {
			return simerr.AtRow(simerr.ErrRange, "harvest.fixed_removal", schema.ColHarvTrig, i,
				"with fixed removal harv_trig must be >= harv_targ, got %v < %v", r[tj], r[gj])
		}
	}
	return nil
}

func denseCoverage(hdays, expected []model.Day) error {
	if len(hdays) != len(expected) {
		return simerr.New(simerr.ErrContinuity, "harvest.length", "",
			"harvest and weather must be the same length, got %d and %d", len(hdays), len(expected))
	}
	for i, d := range hdays {
		if d != expected[i] {
			return simerr.AtRow(simerr.ErrContinuity, "harvest.contiguity", "", i,
				"harvest days must match weather days: expected %s, got %s", expected[i], d)
		}
	}
	return nil
}

func sparseCoverage(hdays []model.Day, cov Coverage) error {
	for i, d := range hdays {
		t, err := d.Date()
		if err != nil {
			return &simerr.Error{Kind: simerr.ErrRange, Check: "harvest.date", Field: schema.ColDOY, Row: i, Err: err}
		}
		if t.Before(cov.First) {
			return simerr.AtRow(simerr.ErrContinuity, "harvest.coverage", "", i,
				"harvest event %s is before the first simulated day %s", d, model.DayOf(cov.First))
		}
		if t.After(cov.Last) {
			return simerr.AtRow(simerr.ErrContinuity, "harvest.coverage", "", i,
				"harvest event %s is after the last simulated day %s", d, model.DayOf(cov.Last))
		}
	}
	return nil
}
