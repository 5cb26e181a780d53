package tabular

import (
	"bytes"
	"errors"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/beenjammin/basgra/internal/domain/model"
	"github.com/beenjammin/basgra/internal/domain/simerr"
	"github.com/beenjammin/basgra/internal/testhelper"
	. "github.com/smartystreets/goconvey/convey"
)

func TestReadFrame(t *testing.T) {
	Convey("Given a CSV weather extract", t, func() {
		src := "year,doy,rain,pet\n2011,1,0.5,NA\n2011,2, ,2.1\n2011,3,nan,2.2\n"

		Convey("When reading it", func() {
			f, err := ReadFrame(strings.NewReader(src))
			So(err, ShouldBeNil)

			Convey("Then columns and rows are kept in file order", func() {
				So(f.Columns, ShouldResemble, []string{"year", "doy", "rain", "pet"})
				So(f.Len(), ShouldEqual, 3)
				So(f.Rows[0][:3], ShouldResemble, []float64{2011, 1, 0.5})
			})

			Convey("Then missing spellings become NaN", func() {
				So(math.IsNaN(f.Rows[0][3]), ShouldBeTrue)
				So(math.IsNaN(f.Rows[1][2]), ShouldBeTrue)
				So(math.IsNaN(f.Rows[2][2]), ShouldBeTrue)
			})
		})
	})

	Convey("Given a pandas export with an unnamed index column", t, func() {
		f, err := ReadFrame(strings.NewReader(",year,doy\n0,2011,1\n1,2011,2\n"))
		So(err, ShouldBeNil)
		So(f.Columns, ShouldResemble, []string{"year", "doy"})
		So(f.Rows[1], ShouldResemble, []float64{2011, 2})
	})

	Convey("Given malformed input", t, func() {
		Convey("When the file is empty", func() {
			_, err := ReadFrame(strings.NewReader(""))
			So(errors.Is(err, ErrEmpty), ShouldBeTrue)
		})

		Convey("When a cell is not numeric", func() {
			_, err := ReadFrame(strings.NewReader("year,doy\n2011,abc\n"))
			So(err, ShouldNotBeNil)
			So(err.Error(), ShouldContainSubstring, `"doy"`)
		})

		Convey("When a row is short", func() {
			_, err := ReadFrame(strings.NewReader("year,doy\n2011\n"))
			So(err, ShouldNotBeNil)
		})
	})
}

func TestWriteFrame(t *testing.T) {
	Convey("Given a frame with a missing cell", t, func() {
		f := model.NewFrame("year", "doy", "weed_dm_frac")
		So(f.Append(2011, 1, math.NaN()), ShouldBeNil)
		So(f.Append(2011, 2, 0.25), ShouldBeNil)

		Convey("Then it is written with an empty cell and reads back", func() {
			var buf bytes.Buffer
			So(WriteFrame(&buf, f), ShouldBeNil)
			So(buf.String(), ShouldEqual, "year,doy,weed_dm_frac\n2011,1,\n2011,2,0.25\n")

			back, err := ReadFrame(&buf)
			So(err, ShouldBeNil)
			So(math.IsNaN(back.Rows[0][2]), ShouldBeTrue)
			So(back.Rows[1], ShouldResemble, []float64{2011, 2, 0.25})
		})
	})
}

func TestWriteOutput(t *testing.T) {
	Convey("Given a two day result", t, func() {
		out := &model.SimulationOutput{
			Columns: []string{"year", "doy", "BASAL"},
			Dates: []time.Time{
				time.Date(2012, time.December, 31, 0, 0, 0, 0, time.UTC),
				time.Date(2013, time.January, 1, 0, 0, 0, 0, time.UTC),
			},
			Rows: [][]float64{{2012, 366, 0.75}, {2013, 1, 0.8}},
		}

		Convey("Then the CSV leads with ISO dates", func() {
			var buf bytes.Buffer
			So(WriteOutput(&buf, out), ShouldBeNil)
			So(buf.String(), ShouldEqual,
				"date,year,doy,BASAL\n2012-12-31,2012,366,0.75\n2013-01-01,2013,1,0.8\n")
		})
	})
}

func TestParameters(t *testing.T) {
	Convey("Given a parameter set written as YAML", t, func() {
		p := testhelper.Parameters()
		var buf bytes.Buffer
		So(WriteParameters(&buf, p), ShouldBeNil)

		Convey("Then it reads back identically", func() {
			back, raw, err := ReadParameters(&buf)
			So(err, ShouldBeNil)
			So(back, ShouldResemble, p)
			So(raw["LAT"], ShouldEqual, -43.6)
		})
	})

	Convey("Given YAML missing a parameter", t, func() {
		_, _, err := ReadParameters(strings.NewReader("LAT: -43.6\n"))
		So(errors.Is(err, simerr.ErrConfiguration), ShouldBeTrue)
	})

	Convey("Given YAML that is not a mapping of numbers", t, func() {
		_, _, err := ReadParameters(strings.NewReader("LAT: south\n"))
		So(errors.Is(err, simerr.ErrConfiguration), ShouldBeTrue)
	})
}

func TestParseDays(t *testing.T) {
	Convey("Given irrigation day lists", t, func() {
		Convey("Then single days and ranges expand", func() {
			days, err := ParseDays("1, 2,3,100-103")
			So(err, ShouldBeNil)
			So(days, ShouldResemble, []int{1, 2, 3, 100, 101, 102, 103})
		})

		Convey("Then an empty list is allowed", func() {
			days, err := ParseDays("  ")
			So(err, ShouldBeNil)
			So(days, ShouldBeEmpty)
		})

		Convey("Then garbage and reversed ranges fail", func() {
			_, err := ParseDays("1,x")
			So(err, ShouldNotBeNil)
			_, err = ParseDays("10-5")
			So(err, ShouldNotBeNil)
		})
	})
}
