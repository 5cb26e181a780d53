// Package model contains the tables and records passed between pipeline
// stages.
package model

import (
	"fmt"
	"time"

	"github.com/beenjammin/basgra/internal/domain/schema"
)

// Day is a (year, day-of-year) calendar key. DOY is 1-based.
type Day struct {
	Year int
	DOY  int
}

func (d Day) String() string { return fmt.Sprintf("%d-%03d", d.Year, d.DOY) }

// DaysInYear returns 366 for leap years and 365 otherwise.
func DaysInYear(year int) int {
	if time.Date(year, time.December, 31, 0, 0, 0, 0, time.UTC).YearDay() == schema.MaxDOY {
		return schema.MaxDOY
	}
	return schema.MaxDOY - 1
}

// Date converts d to midnight UTC. It fails when DOY is outside the year.
func (d Day) Date() (time.Time, error) {
	if d.DOY < 1 || d.DOY > DaysInYear(d.Year) {
		return time.Time{}, fmt.Errorf("day-of-year %d out of range for year %d", d.DOY, d.Year)
	}
	return time.Date(d.Year, time.January, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, d.DOY-1), nil
}

// DayOf is the inverse of Day.Date.
func DayOf(t time.Time) Day {
	return Day{Year: t.Year(), DOY: t.YearDay()}
}

// Ordinal numbers days consecutively in the proleptic Gregorian calendar,
// with 0001-001 as day 1. It assumes Year >= 1 and a valid DOY.
func (d Day) Ordinal() int {
	y := d.Year - 1
	return 365*y + y/4 - y/100 + y/400 + d.DOY
}

// DateRange returns every calendar day from first to last inclusive.
// It returns nil when last precedes first.
func DateRange(first, last time.Time) []time.Time {
	if last.Before(first) {
		return nil
	}
	n := DayOf(last).Ordinal() - DayOf(first).Ordinal() + 1
	out := make([]time.Time, 0, n)
	for d := first; !d.After(last); d = d.AddDate(0, 0, 1) {
		out = append(out, d)
	}
	return out
}
