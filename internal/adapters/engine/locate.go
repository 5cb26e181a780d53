package engine

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"time"

	"github.com/beenjammin/basgra/internal/domain/schema"
	"github.com/beenjammin/basgra/internal/domain/simerr"
	"github.com/beenjammin/basgra/pkg/logger"
)

// Default library file names, one per PET variant.
const (
	DefaultPETLibrary    = "libbasgra_pet.so"
	DefaultPenmanLibrary = "libbasgra_penman.so"
	defaultBuildTimeout  = 10 * time.Minute
)

// Locator resolves the shared object for a PET variant and, when
// configured, builds it on first use.
type Locator struct {
	dir           string
	petLibrary    string
	penmanLibrary string
	buildCommand  string
	buildTimeout  time.Duration
	log           logger.Logger

	mu    sync.Mutex
	built bool
}

// LocatorOption configures a Locator.
type LocatorOption func(*Locator)

// WithDir sets the directory holding the libraries.
func WithDir(dir string) LocatorOption {
	return func(l *Locator) {
		if dir != "" {
			l.dir = dir
		}
	}
}

// WithLibraries overrides the library file names.
func WithLibraries(pet, penman string) LocatorOption {
	return func(l *Locator) {
		if pet != "" {
			l.petLibrary = pet
		}
		if penman != "" {
			l.penmanLibrary = penman
		}
	}
}

// WithBuildCommand sets a shell command run in the library directory when
// the library is missing.
func WithBuildCommand(cmd string) LocatorOption {
	return func(l *Locator) { l.buildCommand = cmd }
}

// WithBuildTimeout bounds the build command.
func WithBuildTimeout(d time.Duration) LocatorOption {
	return func(l *Locator) {
		if d > 0 {
			l.buildTimeout = d
		}
	}
}

// WithLocatorLogger sets the logger for build output.
func WithLocatorLogger(log logger.Logger) LocatorOption {
	return func(l *Locator) {
		if log != nil {
			l.log = log
		}
	}
}

// NewLocator returns a Locator with defaults applied.
func NewLocator(opts ...LocatorOption) *Locator {
	l := &Locator{
		dir:           ".",
		petLibrary:    DefaultPETLibrary,
		penmanLibrary: DefaultPenmanLibrary,
		buildTimeout:  defaultBuildTimeout,
		log:           logger.Nop(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Path returns where the library for mode is expected.
func (l *Locator) Path(mode schema.PETMode) string {
	name := l.petLibrary
	if mode == schema.DerivedPET {
		name = l.penmanLibrary
	}
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(l.dir, name)
}

// Locate returns the library path for mode. A missing library triggers the
// build command at most once per Locator.
func (l *Locator) Locate(ctx context.Context, mode schema.PETMode) (string, error) {
	path := l.Path(mode)
	if exists(path) {
		return path, nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.buildCommand == "" {
		return "", simerr.New(simerr.ErrEnvironment, "engine.locate", "",
			"engine unavailable: %s not found and no build command configured", path)
	}
	if !l.built {
		l.built = true
		if err := l.build(ctx); err != nil {
			return "", simerr.Wrap(simerr.ErrEnvironment, "engine.build", err)
		}
	}
	if !exists(path) {
		return "", simerr.New(simerr.ErrEnvironment, "engine.locate", "",
			"engine unavailable: %s not found after build", path)
	}
	return path, nil
}

func (l *Locator) build(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, l.buildTimeout)
	defer cancel()

	l.log.Info(ctx, "engine library missing, running build command",
		logger.String("dir", l.dir), logger.String("command", l.buildCommand))

	cmd := exec.CommandContext(ctx, "sh", "-c", l.buildCommand)
	cmd.Dir = l.dir
	out, err := cmd.CombinedOutput()
	l.log.Debug(ctx, "engine build output", logger.String("output", string(out)))
	if err != nil {
		return fmt.Errorf("build command %q: %w", l.buildCommand, err)
	}
	return nil
}

func exists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// Load locates and opens the library for mode and serializes access to it.
func Load(ctx context.Context, loc *Locator, capacity int, mode schema.PETMode) (*Serialized, *Library, error) {
	path, err := loc.Locate(ctx, mode)
	if err != nil {
		return nil, nil, err
	}
	lib, err := Open(path, capacity, mode)
	if err != nil {
		return nil, nil, err
	}
	return Serialize(lib), lib, nil
}
