// Package reconstruct rebuilds the labelled, dated output table from the
// engine's flat result buffer.
package reconstruct

import (
	"math"
	"time"

	"github.com/beenjammin/basgra/internal/domain/model"
	"github.com/beenjammin/basgra/internal/domain/schema"
	"github.com/beenjammin/basgra/internal/domain/simerr"
)

// Reconstruct converts flat, the engine output for len(days) simulated
// days, into a SimulationOutput. The engine writes an ndays x nout matrix
// column-major, so cell (i, j) is flat[j*ndays+i]. Dates come from days,
// which must be the weather day ordering handed to the marshaller.
func Reconstruct(flat []float64, days []model.Day) (*model.SimulationOutput, error) {
	ndays := len(days)
	nout := schema.NumOutputColumns()
	if len(flat) != ndays*nout {
		return nil, simerr.New(simerr.ErrEngineFault, "output.size", "",
			"engine returned %d values, expected %d (%d days x %d columns)", len(flat), ndays*nout, ndays, nout)
	}

	cols := schema.OutputColumns()
	out := &model.SimulationOutput{
		Columns: cols,
		Dates:   make([]time.Time, ndays),
		Rows:    make([][]float64, ndays),
	}
	for i, d := range days {
		date, err := d.Date()
		if err != nil {
			return nil, &simerr.Error{Kind: simerr.ErrRange, Check: "output.date", Field: schema.ColDOY, Row: i, Err: err}
		}
		out.Dates[i] = date

		row := make([]float64, nout)
		for j := range row {
			v := flat[j*ndays+i]
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return nil, simerr.AtRow(simerr.ErrEngineFault, "output.finite", cols[j], i,
					"engine produced %v on %s", v, date.Format(time.DateOnly))
			}
			row[j] = v
		}
		out.Rows[i] = row
	}
	return out, nil
}
