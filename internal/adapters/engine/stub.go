package engine

import (
	"context"

	"github.com/beenjammin/basgra/internal/domain/marshal"
	"github.com/beenjammin/basgra/internal/domain/schema"
)

// EvaluateFunc fills b.Output.
type EvaluateFunc func(ctx context.Context, b *marshal.Buffers, verbose bool) error

// Func adapts a Go function to Engine. It applies the same buffer checks
// as the compiled library.
type Func struct {
	capacity int
	mode     schema.PETMode
	fn       EvaluateFunc
}

// NewFunc returns an engine that calls fn.
func NewFunc(capacity int, mode schema.PETMode, fn EvaluateFunc) *Func {
	return &Func{capacity: capacity, mode: mode, fn: fn}
}

// Zero returns an engine that leaves the output buffer at zero.
func Zero(capacity int, mode schema.PETMode) *Func {
	return NewFunc(capacity, mode, func(context.Context, *marshal.Buffers, bool) error { return nil })
}

func (f *Func) Evaluate(ctx context.Context, b *marshal.Buffers, verbose bool) ([]float64, error) {
	if err := checkBuffers(f, b); err != nil {
		return nil, err
	}
	if err := f.fn(ctx, b, verbose); err != nil {
		return nil, err
	}
	return b.Output, nil
}

func (f *Func) Capacity() int        { return f.capacity }
func (f *Func) Mode() schema.PETMode { return f.mode }
