package model

import (
	"encoding/json"
	"fmt"
	"math"
)

// Frame is a column-labelled table of float64 cells as received from a
// caller. NaN marks a missing value.
type Frame struct {
	Columns []string
	Rows    [][]float64
}

// NewFrame builds an empty frame with the given columns.
func NewFrame(columns ...string) *Frame {
	cols := make([]string, len(columns))
	copy(cols, columns)
	return &Frame{Columns: cols}
}

// Len returns the number of rows.
func (f *Frame) Len() int {
	if f == nil {
		return 0
	}
	return len(f.Rows)
}

// Index returns the position of col, or -1.
func (f *Frame) Index(col string) int {
	for i, c := range f.Columns {
		if c == col {
			return i
		}
	}
	return -1
}

// Append adds a row. The row length must match the column count.
func (f *Frame) Append(row ...float64) error {
	if len(row) != len(f.Columns) {
		return fmt.Errorf("row has %d cells, frame has %d columns", len(row), len(f.Columns))
	}
	r := make([]float64, len(row))
	copy(r, row)
	f.Rows = append(f.Rows, r)
	return nil
}

// Column returns a copy of the named column.
func (f *Frame) Column(col string) ([]float64, error) {
	j := f.Index(col)
	if j < 0 {
		return nil, fmt.Errorf("no column %q", col)
	}
	out := make([]float64, len(f.Rows))
	for i, r := range f.Rows {
		out[i] = r[j]
	}
	return out, nil
}

// Set overwrites a single cell.
func (f *Frame) Set(row int, col string, v float64) error {
	j := f.Index(col)
	if j < 0 {
		return fmt.Errorf("no column %q", col)
	}
	if row < 0 || row >= len(f.Rows) {
		return fmt.Errorf("row %d out of range", row)
	}
	f.Rows[row][j] = v
	return nil
}

// Select returns a new frame holding cols in the given order.
func (f *Frame) Select(cols []string) (*Frame, error) {
	idx := make([]int, len(cols))
	for k, c := range cols {
		j := f.Index(c)
		if j < 0 {
			return nil, fmt.Errorf("no column %q", c)
		}
		idx[k] = j
	}
	out := NewFrame(cols...)
	out.Rows = make([][]float64, len(f.Rows))
	for i, r := range f.Rows {
		nr := make([]float64, len(idx))
		for k, j := range idx {
			nr[k] = r[j]
		}
		out.Rows[i] = nr
	}
	return out, nil
}

// Clone returns a deep copy.
func (f *Frame) Clone() *Frame {
	if f == nil {
		return nil
	}
	out := NewFrame(f.Columns...)
	out.Rows = make([][]float64, len(f.Rows))
	for i, r := range f.Rows {
		nr := make([]float64, len(r))
		copy(nr, r)
		out.Rows[i] = nr
	}
	return out
}

// Days reads the year/doy key columns. Values are truncated to int; the
// validator has already rejected non-integral keys on the pipeline path.
func (f *Frame) Days(yearCol, doyCol string) ([]Day, error) {
	yj, dj := f.Index(yearCol), f.Index(doyCol)
	if yj < 0 || dj < 0 {
		return nil, fmt.Errorf("frame lacks %q/%q key columns", yearCol, doyCol)
	}
	out := make([]Day, len(f.Rows))
	for i, r := range f.Rows {
		out[i] = Day{Year: int(r[yj]), DOY: int(r[dj])}
	}
	return out, nil
}

type frameJSON struct {
	Columns []string     `json:"columns"`
	Rows    [][]*float64 `json:"rows"`
}

// MarshalJSON encodes missing values as null.
func (f Frame) MarshalJSON() ([]byte, error) {
	fj := frameJSON{Columns: f.Columns, Rows: make([][]*float64, len(f.Rows))}
	for i, r := range f.Rows {
		fj.Rows[i] = nullable(r)
	}
	return json.Marshal(fj)
}

// UnmarshalJSON decodes null cells as NaN.
func (f *Frame) UnmarshalJSON(data []byte) error {
	var fj frameJSON
	if err := json.Unmarshal(data, &fj); err != nil {
		return err
	}
	f.Columns = fj.Columns
	f.Rows = make([][]float64, len(fj.Rows))
	for i, r := range fj.Rows {
		if len(r) != len(fj.Columns) {
			return fmt.Errorf("row %d has %d cells, expected %d", i, len(r), len(fj.Columns))
		}
		row := make([]float64, len(r))
		for j, v := range r {
			if v == nil {
				row[j] = math.NaN()
				continue
			}
			row[j] = *v
		}
		f.Rows[i] = row
	}
	return nil
}

func nullable(r []float64) []*float64 {
	out := make([]*float64, len(r))
	for j := range r {
		if math.IsNaN(r[j]) || math.IsInf(r[j], 0) {
			continue
		}
		v := r[j]
		out[j] = &v
	}
	return out
}
