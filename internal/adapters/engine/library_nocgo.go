//go:build !cgo || !(linux || darwin)

package engine

import (
	"context"

	"github.com/beenjammin/basgra/internal/domain/marshal"
	"github.com/beenjammin/basgra/internal/domain/schema"
	"github.com/beenjammin/basgra/internal/domain/simerr"
)

// Library is unavailable in builds without cgo.
type Library struct {
	path     string
	capacity int
	mode     schema.PETMode
}

// Open always fails: loading the simulator needs cgo on linux or darwin.
func Open(path string, capacity int, mode schema.PETMode) (*Library, error) {
	return nil, simerr.New(simerr.ErrEnvironment, "engine.open", "",
		"cannot load %s: binary built without cgo support", path)
}

func (l *Library) Evaluate(context.Context, *marshal.Buffers, bool) ([]float64, error) {
	return nil, simerr.New(simerr.ErrEnvironment, "engine.open", "", "engine unavailable")
}

func (l *Library) Capacity() int        { return l.capacity }
func (l *Library) Mode() schema.PETMode { return l.mode }
func (l *Library) Path() string         { return l.path }
func (l *Library) Close() error         { return nil }
