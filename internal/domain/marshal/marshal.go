// Package marshal lays validated inputs out in the fixed buffers the
// engine reads. Two-dimensional buffers are column-major: element (i, j) of
// an r-row matrix lives at j*r+i.
package marshal

import (
	"github.com/beenjammin/basgra/internal/domain/model"
	"github.com/beenjammin/basgra/internal/domain/schema"
	"github.com/beenjammin/basgra/internal/domain/simerr"
)

// Buffers is the complete argument set of one engine call.
type Buffers struct {
	Params      []float64 // one value per parameter, engine order
	Weather     []float64 // Capacity x WeatherCols, column-major, zero padded
	WeatherCols int
	Harvest     []float64 // NDays x len(HarvestColumns), column-major
	Irrigation  []int32
	Output      []float64 // NDays x NOut, column-major, written by the engine
	NDays       int
	NIrr        int
	NOut        int
	Capacity    int
}

// HarvestCols returns the row width of the harvest buffer.
func (b *Buffers) HarvestCols() int { return len(schema.HarvestColumns()) }

// WeatherAt returns weather cell (row, col).
func (b *Buffers) WeatherAt(row, col int) float64 { return b.Weather[col*b.Capacity+row] }

// HarvestAt returns harvest cell (row, col).
func (b *Buffers) HarvestAt(row, col int) float64 { return b.Harvest[col*b.NDays+row] }

// Marshaller builds Buffers for a fixed weather capacity.
type Marshaller struct {
	capacity int
}

// New returns a Marshaller for the engine's compiled weather capacity.
func New(capacity int) *Marshaller {
	return &Marshaller{capacity: capacity}
}

// Capacity returns the weather buffer row count.
func (m *Marshaller) Capacity() int { return m.capacity }

// Marshal lays out one run. Inputs are assumed validated; only the guards
// that keep buffer construction well defined are applied here.
func (m *Marshaller) Marshal(
	params model.ParameterSet,
	weather *model.Frame,
	mode schema.PETMode,
	harvest []model.HarvestDirective,
	irrigation []int,
) (*Buffers, error) {
	ndays := weather.Len()
	if ndays == 0 {
		return nil, simerr.New(simerr.ErrRange, "marshal.capacity", "", "weather has no rows")
	}
	if ndays > m.capacity {
		return nil, simerr.New(simerr.ErrRange, "marshal.capacity", "",
			"%d weather rows exceed engine capacity %d", ndays, m.capacity)
	}
	if len(harvest) != ndays {
		return nil, simerr.New(simerr.ErrSchema, "marshal.harvest", "",
			"harvest has %d rows, weather has %d", len(harvest), ndays)
	}
	ordered, err := weather.Select(schema.WeatherColumns(mode))
	if err != nil {
		return nil, simerr.Wrap(simerr.ErrSchema, "marshal.weather", err)
	}

	b := &Buffers{
		Params:      params.Vector(),
		WeatherCols: len(ordered.Columns),
		NDays:       ndays,
		NIrr:        len(irrigation),
		NOut:        schema.NumOutputColumns(),
		Capacity:    m.capacity,
	}

	b.Weather = make([]float64, m.capacity*b.WeatherCols)
	for i, row := range ordered.Rows {
		for j, v := range row {
			b.Weather[j*m.capacity+i] = v
		}
	}

	hcols := b.HarvestCols()
	b.Harvest = make([]float64, ndays*hcols)
	for i, h := range harvest {
		for j, v := range h.Values() {
			b.Harvest[j*ndays+i] = v
		}
	}

	b.Irrigation = make([]int32, len(irrigation))
	for i, d := range irrigation {
		b.Irrigation[i] = int32(d)
	}

	b.Output = make([]float64, ndays*b.NOut)
	return b, nil
}
