// Package tabular reads and writes the delimited and YAML files the CLI
// exchanges with users.
package tabular

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/beenjammin/basgra/internal/domain/model"
	"github.com/beenjammin/basgra/internal/domain/simerr"
)

// ErrEmpty is returned for a file with no header row.
var ErrEmpty = errors.New("empty table")

// missing cell spellings, compared case-insensitively.
var missing = map[string]struct{}{"": {}, "na": {}, "nan": {}, "null": {}}

// ReadFrame reads a CSV table with a header row. Empty, NA and NaN cells
// become NaN. A leading unnamed index column, as written by pandas, is
// dropped.
func ReadFrame(r io.Reader) (*model.Frame, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, ErrEmpty
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	skip := len(header) > 0 && strings.TrimSpace(header[0]) == ""
	if skip {
		header = header[1:]
	}
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}

	f := model.NewFrame(header...)
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read line %d: %w", line, err)
		}
		if skip {
			rec = rec[1:]
		}
		row := make([]float64, len(rec))
		for j, cell := range rec {
			v, err := parseCell(cell)
			if err != nil {
				return nil, fmt.Errorf("line %d column %q: %w", line, header[j], err)
			}
			row[j] = v
		}
		if err := f.Append(row...); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
	}
	return f, nil
}

func parseCell(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if _, ok := missing[strings.ToLower(s)]; ok {
		return math.NaN(), nil
	}
	return strconv.ParseFloat(s, 64)
}

func formatCell(v float64) string {
	if math.IsNaN(v) {
		return ""
	}
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// WriteFrame writes f as CSV with a header row. NaN cells are left empty.
func WriteFrame(w io.Writer, f *model.Frame) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(f.Columns); err != nil {
		return err
	}
	rec := make([]string, len(f.Columns))
	for _, r := range f.Rows {
		for j, v := range r {
			rec[j] = formatCell(v)
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteOutput writes a simulation result as CSV with a leading date column.
func WriteOutput(w io.Writer, out *model.SimulationOutput) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(append([]string{"date"}, out.Columns...)); err != nil {
		return err
	}
	rec := make([]string, len(out.Columns)+1)
	for i, r := range out.Rows {
		rec[0] = out.Dates[i].Format(time.DateOnly)
		for j, v := range r {
			rec[j+1] = formatCell(v)
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// ReadParameters decodes a YAML mapping of parameter key to value and
// converts it with model.ParametersFromMap. The raw mapping is returned as
// well so callers can forward it unchanged.
func ReadParameters(r io.Reader) (model.ParameterSet, map[string]float64, error) {
	var raw map[string]float64
	if err := yaml.NewDecoder(r).Decode(&raw); err != nil {
		return model.ParameterSet{}, nil, simerr.Wrap(simerr.ErrConfiguration, "params.decode", err)
	}
	p, err := model.ParametersFromMap(raw)
	if err != nil {
		return model.ParameterSet{}, nil, err
	}
	return p, raw, nil
}

// WriteParameters encodes p as a YAML mapping with sorted keys.
func WriteParameters(w io.Writer, p model.ParameterSet) error {
	m := p.Map()
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	node := &yaml.Node{Kind: yaml.MappingNode}
	for _, k := range keys {
		node.Content = append(node.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Value: k},
			&yaml.Node{Kind: yaml.ScalarNode, Value: strconv.FormatFloat(m[k], 'g', -1, 64)},
		)
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(node); err != nil {
		return err
	}
	return enc.Close()
}

// ParseDays parses an irrigation day list such as "1,2,3" or "100-120,200".
// Ranges are inclusive. An empty string yields an empty list.
func ParseDays(s string) ([]int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return []int{}, nil
	}
	var out []int
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		lo, hi, isRange := strings.Cut(part, "-")
		a, err := strconv.Atoi(strings.TrimSpace(lo))
		if err != nil {
			return nil, fmt.Errorf("irrigation day %q: %w", part, err)
		}
		if !isRange {
			out = append(out, a)
			continue
		}
		b, err := strconv.Atoi(strings.TrimSpace(hi))
		if err != nil {
			return nil, fmt.Errorf("irrigation range %q: %w", part, err)
		}
		if b < a {
			return nil, fmt.Errorf("irrigation range %q is reversed", part)
		}
		for d := a; d <= b; d++ {
			out = append(out, d)
		}
	}
	return out, nil
}
