package engine

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/beenjammin/basgra/internal/domain/marshal"
	"github.com/beenjammin/basgra/internal/domain/model"
	"github.com/beenjammin/basgra/internal/domain/schema"
	"github.com/beenjammin/basgra/internal/domain/simerr"
	"github.com/beenjammin/basgra/internal/testhelper"
	. "github.com/smartystreets/goconvey/convey"
)

func buffers(capacity int, mode schema.PETMode) *marshal.Buffers {
	w := testhelper.Weather(model.Day{Year: 2011, DOY: 1}, 10, mode)
	h, err := model.HarvestFromFrame(testhelper.DenseHarvest(w))
	if err != nil {
		panic(err)
	}
	b, err := marshal.New(capacity).Marshal(testhelper.Parameters(), w, mode, h, []int{1, 2, 3})
	if err != nil {
		panic(err)
	}
	return b
}

func TestZeroEngine(t *testing.T) {
	Convey("Given a zero engine", t, func() {
		e := Zero(50, schema.SuppliedPET)
		ctx := context.Background()

		Convey("When evaluating matching buffers", func() {
			out, err := e.Evaluate(ctx, buffers(50, schema.SuppliedPET), false)

			Convey("Then the output is all zeros", func() {
				So(err, ShouldBeNil)
				So(len(out), ShouldEqual, 10*schema.NumOutputColumns())
				for _, v := range out {
					So(v, ShouldEqual, 0)
				}
			})
		})

		Convey("When the buffers were built for another capacity", func() {
			_, err := e.Evaluate(ctx, buffers(60, schema.SuppliedPET), false)
			So(errors.Is(err, simerr.ErrEnvironment), ShouldBeTrue)
		})

		Convey("When the buffers were built for the Penman variant", func() {
			_, err := e.Evaluate(ctx, buffers(50, schema.DerivedPET), false)
			So(errors.Is(err, simerr.ErrEnvironment), ShouldBeTrue)
		})

		Convey("When the output buffer is missing", func() {
			b := buffers(50, schema.SuppliedPET)
			b.Output = nil
			_, err := e.Evaluate(ctx, b, false)
			So(errors.Is(err, simerr.ErrEngineFault), ShouldBeTrue)
		})

		Convey("When no buffers are given", func() {
			_, err := e.Evaluate(ctx, nil, false)
			So(errors.Is(err, simerr.ErrEngineFault), ShouldBeTrue)
		})
	})

	Convey("Given a function engine", t, func() {
		var verboseSeen bool
		e := NewFunc(50, schema.SuppliedPET, func(_ context.Context, b *marshal.Buffers, verbose bool) error {
			verboseSeen = verbose
			for i := range b.Output {
				b.Output[i] = float64(i)
			}
			return nil
		})

		Convey("Then it fills the output in place and sees the verbose flag", func() {
			b := buffers(50, schema.SuppliedPET)
			out, err := e.Evaluate(context.Background(), b, true)
			So(err, ShouldBeNil)
			So(out[3], ShouldEqual, 3)
			So(b.Output[3], ShouldEqual, 3)
			So(verboseSeen, ShouldBeTrue)
		})
	})
}

func TestSerialized(t *testing.T) {
	Convey("Given an engine wrapped for serial access", t, func() {
		var inside, maxInside int32
		inner := NewFunc(50, schema.SuppliedPET, func(context.Context, *marshal.Buffers, bool) error {
			n := atomic.AddInt32(&inside, 1)
			for {
				m := atomic.LoadInt32(&maxInside)
				if n <= m || atomic.CompareAndSwapInt32(&maxInside, m, n) {
					break
				}
			}
			time.Sleep(2 * time.Millisecond)
			atomic.AddInt32(&inside, -1)
			return nil
		})
		s := Serialize(inner)
		So(s.Capacity(), ShouldEqual, 50)
		So(s.Mode(), ShouldEqual, schema.SuppliedPET)

		Convey("When many goroutines evaluate at once", func() {
			var wg sync.WaitGroup
			for i := 0; i < 8; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					_, _ = s.Evaluate(context.Background(), buffers(50, schema.SuppliedPET), false)
				}()
			}
			wg.Wait()

			Convey("Then at most one call runs at a time", func() {
				So(atomic.LoadInt32(&maxInside), ShouldEqual, 1)
			})
		})

		Convey("When the context is already cancelled", func() {
			ctx, cancel := context.WithCancel(context.Background())
			cancel()
			_, err := s.Evaluate(ctx, buffers(50, schema.SuppliedPET), false)
			So(errors.Is(err, context.Canceled), ShouldBeTrue)
		})
	})
}

func TestLocator(t *testing.T) {
	Convey("Given an empty library directory", t, func() {
		dir := t.TempDir()
		ctx := context.Background()

		Convey("When no build command is configured", func() {
			_, err := NewLocator(WithDir(dir)).Locate(ctx, schema.SuppliedPET)

			Convey("Then the engine is unavailable", func() {
				So(errors.Is(err, simerr.ErrEnvironment), ShouldBeTrue)
				So(err.Error(), ShouldContainSubstring, "engine unavailable")
			})
		})

		Convey("When a build command produces the library", func() {
			loc := NewLocator(WithDir(dir),
				WithBuildCommand("echo run >> builds.log && touch "+DefaultPETLibrary))

			path, err := loc.Locate(ctx, schema.SuppliedPET)
			So(err, ShouldBeNil)
			So(path, ShouldEqual, filepath.Join(dir, DefaultPETLibrary))

			_, err = loc.Locate(ctx, schema.SuppliedPET)
			So(err, ShouldBeNil)

			Convey("Then the build ran once", func() {
				data, err := os.ReadFile(filepath.Join(dir, "builds.log"))
				So(err, ShouldBeNil)
				So(strings.Count(string(data), "run"), ShouldEqual, 1)
			})

			Convey("Then the Penman variant is still missing", func() {
				_, err := loc.Locate(ctx, schema.DerivedPET)
				So(errors.Is(err, simerr.ErrEnvironment), ShouldBeTrue)
			})

			Convey("Then opening a file that is not a shared object fails", func() {
				_, _, err := Load(ctx, loc, 50, schema.SuppliedPET)
				So(errors.Is(err, simerr.ErrEnvironment), ShouldBeTrue)
			})
		})

		Convey("When the build command fails", func() {
			_, err := NewLocator(WithDir(dir), WithBuildCommand("exit 3")).Locate(ctx, schema.DerivedPET)
			So(errors.Is(err, simerr.ErrEnvironment), ShouldBeTrue)
		})

		Convey("When library names are overridden", func() {
			loc := NewLocator(WithDir(dir), WithLibraries("a.so", "/opt/b.so"))
			So(loc.Path(schema.SuppliedPET), ShouldEqual, filepath.Join(dir, "a.so"))
			So(loc.Path(schema.DerivedPET), ShouldEqual, "/opt/b.so")
		})
	})
}
