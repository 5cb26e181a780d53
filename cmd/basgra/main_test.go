package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/smartystreets/goconvey/convey"

	"github.com/beenjammin/basgra/internal/adapters/tabular"
	"github.com/beenjammin/basgra/internal/domain/model"
	"github.com/beenjammin/basgra/internal/domain/schema"
	"github.com/beenjammin/basgra/internal/testhelper"
)

// inputs writes a ten day dataset for mode and returns the file flags.
func inputs(t *testing.T, mode schema.PETMode, frac float64) []string {
	t.Helper()
	dir := t.TempDir()
	start := model.Day{Year: 2011, DOY: 1}

	write := func(name string, fn func(*os.File) error) string {
		path := filepath.Join(dir, name)
		fh, err := os.Create(path)
		if err != nil {
			t.Fatal(err)
		}
		defer fh.Close()
		if err := fn(fh); err != nil {
			t.Fatal(err)
		}
		return path
	}

	params := write("params.yaml", func(fh *os.File) error {
		return tabular.WriteParameters(fh, testhelper.Parameters())
	})
	weather := write("weather.csv", func(fh *os.File) error {
		return tabular.WriteFrame(fh, testhelper.Weather(start, 10, mode))
	})
	harvest := write("harvest.csv", func(fh *os.File) error {
		return tabular.WriteFrame(fh, model.HarvestFrame([]model.HarvestDirective{
			testhelper.Event(model.Day{Year: 2011, DOY: 5}, frac, 100, 50, 0.3),
		}))
	})
	args := []string{"--params", params, "--weather", weather, "--harvest", harvest, "--irrigation-days", "1-3"}
	if mode == schema.DerivedPET {
		args = append(args, "--derive-pet")
	}
	return args
}

// stubEnv points configuration at the zero engine.
func stubEnv(t *testing.T) {
	t.Setenv("BASGRA_ENGINE_STUB", "true")
	t.Setenv("BASGRA_WEATHER_CAPACITY", "40")
	t.Setenv("BASGRA_LOG_LEVEL", "error")
}

func runRoot(args ...string) (string, string, error) {
	var out, errOut bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), errOut.String(), err
}

func TestRunCommand(t *testing.T) {
	convey.Convey("Given the run command with the zero engine", t, func() {
		stubEnv(t)

		convey.Convey("When the inputs are valid", func() {
			out, _, err := runRoot(append([]string{"run"}, inputs(t, schema.SuppliedPET, 0.5)...)...)

			convey.Convey("Then one CSV row per day is written to stdout", func() {
				convey.So(err, convey.ShouldBeNil)
				lines := strings.Split(strings.TrimSpace(out), "\n")
				convey.So(lines, convey.ShouldHaveLength, 11)
				convey.So(lines[0], convey.ShouldStartWith, "date,year,doy,DAVTMP")
				convey.So(lines[1], convey.ShouldStartWith, "2011-01-01,")
				convey.So(lines[10], convey.ShouldStartWith, "2011-01-10,")
			})
		})

		convey.Convey("When the output goes to a file", func() {
			path := filepath.Join(t.TempDir(), "out.csv")
			args := append([]string{"run", "--out", path}, inputs(t, schema.DerivedPET, 0.5)...)
			out, _, err := runRoot(args...)

			convey.Convey("Then stdout stays empty and the file holds the table", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(out, convey.ShouldBeEmpty)
				data, rerr := os.ReadFile(path)
				convey.So(rerr, convey.ShouldBeNil)
				convey.So(string(data), convey.ShouldStartWith, "date,year,doy")
			})
		})

		convey.Convey("When a harvest fraction is out of range", func() {
			_, _, err := runRoot(append([]string{"run"}, inputs(t, schema.SuppliedPET, 1.5)...)...)

			convey.Convey("Then the run fails before the engine", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(err.Error(), convey.ShouldContainSubstring, "frac_harv")
			})
		})

		convey.Convey("When a required flag is missing", func() {
			_, _, err := runRoot("run", "--params", "p.yaml")
			convey.So(err, convey.ShouldNotBeNil)
		})
	})
}

func TestValidateCommand(t *testing.T) {
	convey.Convey("Given the validate command", t, func() {
		stubEnv(t)

		convey.Convey("When the inputs are valid", func() {
			out, _, err := runRoot(append([]string{"validate"}, inputs(t, schema.SuppliedPET, 0.5)...)...)

			convey.Convey("Then the covered period is reported", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(out, convey.ShouldEqual, "ok: 10 days from 2011-01-01 to 2011-01-10 (pet PET, manual harvest)\n")
			})
		})

		convey.Convey("When irrigation names days 0 and 366", func() {
			args := inputs(t, schema.SuppliedPET, 0.5)
			args[7] = "0,366"
			_, _, err := runRoot(append([]string{"validate"}, args...)...)
			convey.So(err, convey.ShouldBeNil)
		})

		convey.Convey("When the weather file does not exist", func() {
			args := inputs(t, schema.SuppliedPET, 0.5)
			args[3] = filepath.Join(t.TempDir(), "missing.csv")
			_, _, err := runRoot(append([]string{"validate"}, args...)...)
			convey.So(err, convey.ShouldNotBeNil)
		})
	})
}

func TestExitCodes(t *testing.T) {
	convey.Convey("Given the process entry point", t, func() {
		stubEnv(t)

		convey.Convey("Then success exits zero", func() {
			convey.So(execute(context.Background(), []string{"--help"}), convey.ShouldEqual, exitOK)
		})

		convey.Convey("Then invalid input exits two", func() {
			args := append([]string{"validate"}, inputs(t, schema.SuppliedPET, 1.5)...)
			convey.So(execute(context.Background(), args), convey.ShouldEqual, exitInput)
		})

		convey.Convey("Then other failures exit one", func() {
			convey.So(execute(context.Background(), []string{"nope"}), convey.ShouldEqual, exitFailure)
		})
	})
}

func TestUpdateSystemMetrics(t *testing.T) {
	convey.Convey("Given the system metrics updater", t, func() {
		convey.So(updateSystemMetrics, convey.ShouldNotPanic)

		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan struct{})
		go func() {
			startSystemMetricsUpdater(ctx)
			close(done)
		}()
		cancel()
		<-done
	})
}

func TestLoadTestCommand(t *testing.T) {
	convey.Convey("Given the loadtest command", t, func() {
		convey.Convey("When the params flag is missing", func() {
			_, _, err := runRoot("loadtest")
			convey.So(err, convey.ShouldNotBeNil)
		})

		convey.Convey("When the service is unreachable", func() {
			args := inputs(t, schema.SuppliedPET, 0.5)
			_, _, err := runRoot("loadtest", args[0], args[1], "--url", "http://127.0.0.1:1", "--requests", "1", "--timeout", "1s")
			convey.So(err, convey.ShouldNotBeNil)
		})
	})
}
