// Package engine binds the compiled BASGRA simulator.
//
// The simulator reads the buffers built by package marshal and fills the
// output buffer in place. It has no status code; callers detect faults by
// scanning the result.
package engine

import (
	"context"
	"sync"

	"github.com/beenjammin/basgra/internal/domain/marshal"
	"github.com/beenjammin/basgra/internal/domain/schema"
	"github.com/beenjammin/basgra/internal/domain/simerr"
)

// Engine evaluates one marshalled run.
type Engine interface {
	// Evaluate runs the simulator and returns the NDays x NOut output,
	// column-major. The call cannot be interrupted once started.
	Evaluate(ctx context.Context, b *marshal.Buffers, verbose bool) ([]float64, error)
	// Capacity is the weather row count compiled into the simulator.
	Capacity() int
	// Mode is the PET variant the simulator was built for.
	Mode() schema.PETMode
}

// checkBuffers rejects buffers laid out for a different engine build.
func checkBuffers(e Engine, b *marshal.Buffers) error {
	if b == nil {
		return simerr.New(simerr.ErrEngineFault, "engine.buffers", "", "no buffers")
	}
	if b.Capacity != e.Capacity() {
		return simerr.New(simerr.ErrEnvironment, "engine.capacity", "",
			"buffers sized for capacity %d, engine built for %d", b.Capacity, e.Capacity())
	}
	if want := len(schema.WeatherColumns(e.Mode())); b.WeatherCols != want {
		return simerr.New(simerr.ErrEnvironment, "engine.mode", "",
			"buffers carry %d weather columns, %s engine expects %d", b.WeatherCols, e.Mode(), want)
	}
	if len(b.Output) != b.NDays*b.NOut {
		return simerr.New(simerr.ErrEngineFault, "engine.buffers", "",
			"output buffer holds %d values, expected %d", len(b.Output), b.NDays*b.NOut)
	}
	return nil
}

// Serialized guards an engine that must not be re-entered. The simulator
// keeps scratch state sized to its capacity, so concurrent calls into one
// loaded instance are queued.
type Serialized struct {
	mu    sync.Mutex
	inner Engine
}

// Serialize wraps e.
func Serialize(e Engine) *Serialized {
	return &Serialized{inner: e}
}

func (s *Serialized) Evaluate(ctx context.Context, b *marshal.Buffers, verbose bool) ([]float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.inner.Evaluate(ctx, b, verbose)
}

func (s *Serialized) Capacity() int        { return s.inner.Capacity() }
func (s *Serialized) Mode() schema.PETMode { return s.inner.Mode() }
