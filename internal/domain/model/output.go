package model

import (
	"fmt"
	"time"
)

// SimulationOutput is the reconstructed engine output: one row per
// simulated day, keyed by date, in input order.
type SimulationOutput struct {
	Columns []string
	Dates   []time.Time
	Rows    [][]float64
}

// Len returns the number of simulated days.
func (o *SimulationOutput) Len() int { return len(o.Rows) }

// Column returns a copy of the named output column.
func (o *SimulationOutput) Column(name string) ([]float64, error) {
	for j, c := range o.Columns {
		if c != name {
			continue
		}
		out := make([]float64, len(o.Rows))
		for i, r := range o.Rows {
			out[i] = r[j]
		}
		return out, nil
	}
	return nil, fmt.Errorf("no output column %q", name)
}

// Row returns the row for date, if present.
func (o *SimulationOutput) Row(date time.Time) ([]float64, bool) {
	for i, d := range o.Dates {
		if d.Equal(date) {
			return o.Rows[i], true
		}
	}
	return nil, false
}
