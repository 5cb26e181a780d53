//go:build cgo && (linux || darwin)

package engine

/*
#cgo linux LDFLAGS: -ldl
#include <dlfcn.h>
#include <stdbool.h>
#include <stdlib.h>

typedef void (*basgra_fn)(double *params, double *weather, double *harvest,
                          int *ndays, int *nout, int *nirr, int *doy_irr,
                          double *y, bool *verbose);

typedef int (*capacity_fn)(void);

static void call_basgra(void *fn, double *params, double *weather, double *harvest,
                        int *ndays, int *nout, int *nirr, int *doy_irr,
                        double *y, bool *verbose) {
	((basgra_fn)fn)(params, weather, harvest, ndays, nout, nirr, doy_irr, y, verbose);
}

static int call_capacity(void *fn) {
	return ((capacity_fn)fn)();
}
*/
import "C"

import (
	"context"
	"fmt"
	"sync"
	"unsafe"

	"github.com/beenjammin/basgra/internal/domain/marshal"
	"github.com/beenjammin/basgra/internal/domain/schema"
	"github.com/beenjammin/basgra/internal/domain/simerr"
)

// Exported symbols. gfortran lowercases names and appends an underscore.
const (
	entrySymbol    = "basgra_"
	capacitySymbol = "basgra_weather_capacity_"
)

// Library is a simulator loaded from a shared object.
type Library struct {
	path     string
	capacity int
	mode     schema.PETMode

	mu     sync.Mutex
	handle unsafe.Pointer
	entry  unsafe.Pointer
}

// Open loads the shared object at path. capacity and mode describe the
// build; if the library exports basgra_weather_capacity_ the value is
// checked against capacity.
func Open(path string, capacity int, mode schema.PETMode) (*Library, error) {
	cpath := C.CString(path)
	defer C.free(unsafe.Pointer(cpath))

	handle := C.dlopen(cpath, C.RTLD_NOW|C.RTLD_LOCAL)
	if handle == nil {
		return nil, simerr.Wrap(simerr.ErrEnvironment, "engine.open", fmt.Errorf("dlopen %s: %s", path, dlerror()))
	}
	entry := lookup(handle, entrySymbol)
	if entry == nil {
		C.dlclose(handle)
		return nil, simerr.New(simerr.ErrEnvironment, "engine.symbol", entrySymbol,
			"%s does not export %s", path, entrySymbol)
	}
	if fn := lookup(handle, capacitySymbol); fn != nil {
		if got := int(C.call_capacity(fn)); got != capacity {
			C.dlclose(handle)
			return nil, simerr.New(simerr.ErrEnvironment, "engine.capacity", capacitySymbol,
				"%s was built for %d weather days, configured for %d", path, got, capacity)
		}
	}
	return &Library{path: path, capacity: capacity, mode: mode, handle: handle, entry: entry}, nil
}

func lookup(handle unsafe.Pointer, name string) unsafe.Pointer {
	cname := C.CString(name)
	defer C.free(unsafe.Pointer(cname))
	return C.dlsym(handle, cname)
}

func dlerror() string {
	if msg := C.dlerror(); msg != nil {
		return C.GoString(msg)
	}
	return "unknown error"
}

// Evaluate calls basgra_. The output buffer is filled in place.
func (l *Library) Evaluate(_ context.Context, b *marshal.Buffers, verbose bool) ([]float64, error) {
	if err := checkBuffers(l, b); err != nil {
		return nil, err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.entry == nil {
		return nil, simerr.New(simerr.ErrEnvironment, "engine.closed", "", "%s is closed", l.path)
	}

	ndays := C.int(b.NDays)
	nout := C.int(b.NOut)
	nirr := C.int(b.NIrr)
	verb := C.bool(verbose)
	irr := b.Irrigation
	if len(irr) == 0 {
		irr = []int32{0}
	}

	C.call_basgra(l.entry,
		(*C.double)(unsafe.Pointer(&b.Params[0])),
		(*C.double)(unsafe.Pointer(&b.Weather[0])),
		(*C.double)(unsafe.Pointer(&b.Harvest[0])),
		&ndays, &nout, &nirr,
		(*C.int)(unsafe.Pointer(&irr[0])),
		(*C.double)(unsafe.Pointer(&b.Output[0])),
		&verb,
	)
	return b.Output, nil
}

func (l *Library) Capacity() int        { return l.capacity }
func (l *Library) Mode() schema.PETMode { return l.mode }
func (l *Library) Path() string         { return l.path }

// Close unloads the library.
func (l *Library) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.handle == nil {
		return nil
	}
	rc := C.dlclose(l.handle)
	l.handle, l.entry = nil, nil
	if rc != 0 {
		return fmt.Errorf("dlclose %s: %s", l.path, dlerror())
	}
	return nil
}
