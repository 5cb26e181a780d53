package harvest_test

import (
	"bytes"
	"errors"
	"math"
	"testing"

	"github.com/beenjammin/basgra/internal/domain/harvest"
	"github.com/beenjammin/basgra/internal/domain/model"
	"github.com/beenjammin/basgra/internal/domain/simerr"
	"github.com/beenjammin/basgra/pkg/logger"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	. "github.com/smartystreets/goconvey/convey"
)

func calendar(n int) []model.Day {
	out := make([]model.Day, n)
	for i := range out {
		out[i] = model.Day{Year: 2011, DOY: i + 1}
	}
	return out
}

func event(doy int, frac, weed float64) model.HarvestDirective {
	return model.HarvestDirective{
		Year: 2011, DOY: doy,
		FracHarv: frac, HarvTrig: 2500, HarvTarg: 1500,
		WeedDMFrac: weed, ReseedTrig: -1, ReseedBasal: 1,
	}
}

func TestTranslate(t *testing.T) {
	days := calendar(10)

	Convey("Given a sparse schedule with two events", t, func() {
		sparse := []model.HarvestDirective{event(3, 0.5, 0.1), event(7, 0.8, 0.2)}

		Convey("When translating", func() {
			dense, err := harvest.Translate(sparse, days)
			So(err, ShouldBeNil)

			Convey("Then there is one directive per weather day", func() {
				So(len(dense), ShouldEqual, len(days))
				for i, h := range dense {
					So(h.Day(), ShouldResemble, days[i])
				}
			})

			Convey("Then event days carry the event values", func() {
				So(dense[2].FracHarv, ShouldEqual, 0.5)
				So(dense[6].FracHarv, ShouldEqual, 0.8)
				So(dense[6].HarvTrig, ShouldEqual, 2500)
			})

			Convey("Then other days are inert", func() {
				for _, i := range []int{3, 4, 5, 7, 8, 9} {
					So(dense[i].FracHarv, ShouldEqual, 0)
					So(dense[i].HarvTrig, ShouldEqual, -1)
					So(dense[i].HarvTarg, ShouldEqual, 0)
					So(dense[i].ReseedTrig, ShouldEqual, -1)
					So(dense[i].ReseedBasal, ShouldEqual, 0)
				}
			})

			Convey("Then no weed fraction is missing", func() {
				for _, h := range dense {
					So(math.IsNaN(h.WeedDMFrac), ShouldBeFalse)
				}
				So(dense[5].WeedDMFrac, ShouldEqual, 0.1)
				So(dense[9].WeedDMFrac, ShouldEqual, 0.2)
			})

			Convey("Then the result is deterministic", func() {
				again, err := harvest.Translate(sparse, days)
				So(err, ShouldBeNil)
				if d := cmp.Diff(dense, again); d != "" {
					t.Errorf("translate not deterministic (-first +second):\n%s", d)
				}
			})
		})
	})

	Convey("Given day 1 lacks a weed fraction and day 5 defines 0.3", t, func() {
		sparse := []model.HarvestDirective{
			event(5, 0.5, 0.3),
			event(8, 0.5, math.NaN()),
			event(9, 0.5, 0.6),
		}
		var buf bytes.Buffer
		dense, err := harvest.Translate(sparse, days, harvest.WithLogger(logger.New(&buf)))
		So(err, ShouldBeNil)

		Convey("Then days 1 to 5 carry 0.3 and later days carry the last value", func() {
			got := make([]float64, len(dense))
			for i, h := range dense {
				got[i] = h.WeedDMFrac
			}
			want := []float64{0.3, 0.3, 0.3, 0.3, 0.3, 0.3, 0.3, 0.3, 0.6, 0.6}
			if d := cmp.Diff(want, got); d != "" {
				t.Errorf("weed fill mismatch (-want +got):\n%s", d)
			}
			So(got, ShouldResemble, want)
		})

		Convey("Then a warning was logged", func() {
			So(buf.String(), ShouldContainSubstring, "weed_dm_frac is missing")
			So(buf.String(), ShouldContainSubstring, `"level":"warn"`)
		})
	})

	Convey("Given no event defines a weed fraction", t, func() {
		dense, err := harvest.Translate([]model.HarvestDirective{event(2, 0.5, math.NaN())}, days)

		Convey("Then the weed column is zero", func() {
			So(err, ShouldBeNil)
			for _, h := range dense {
				So(h.WeedDMFrac, ShouldEqual, 0)
			}
		})
	})

	Convey("Given an empty sparse schedule", t, func() {
		dense, err := harvest.Translate(nil, days)
		So(err, ShouldBeNil)
		So(len(dense), ShouldEqual, 10)
	})

	Convey("Given an event off the simulated calendar", t, func() {
		_, err := harvest.Translate([]model.HarvestDirective{event(40, 0.5, 0.1)}, days)

		Convey("Then a continuity error names the row", func() {
			So(errors.Is(err, simerr.ErrContinuity), ShouldBeTrue)
			var se *simerr.Error
			So(errors.As(err, &se), ShouldBeTrue)
			So(se.Row, ShouldEqual, 0)
		})
	})
}

func TestPassthrough(t *testing.T) {
	Convey("Given a dense schedule", t, func() {
		dense := []model.HarvestDirective{harvest.Inert(model.Day{Year: 2011, DOY: 1})}
		out := harvest.Passthrough(dense)

		Convey("Then the copy is equal but independent", func() {
			if d := cmp.Diff(dense, out, cmpopts.EquateNaNs()); d != "" {
				t.Errorf("passthrough changed values:\n%s", d)
			}
			out[0].FracHarv = 1
			So(dense[0].FracHarv, ShouldEqual, 0)
		})
	})
}
