// Command basgra validates BASGRA inputs, runs single simulations from
// files and serves the simulation API.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/beenjammin/basgra/internal/adapters/engine"
	service "github.com/beenjammin/basgra/internal/app"
	"github.com/beenjammin/basgra/internal/config"
	"github.com/beenjammin/basgra/internal/domain/schema"
	"github.com/beenjammin/basgra/internal/domain/simerr"
	"github.com/beenjammin/basgra/pkg/logger"
)

// Exit codes. Input errors are the caller's to fix; everything else is ours.
const (
	exitOK      = 0
	exitFailure = 1
	exitInput   = 2
)

var configPath string

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := execute(ctx, os.Args[1:])
	stop()
	os.Exit(code)
}

func execute(ctx context.Context, args []string) int {
	root := newRootCmd()
	root.SetArgs(args)
	err := root.ExecuteContext(ctx)
	if err == nil {
		return exitOK
	}
	fmt.Fprintln(os.Stderr, "basgra:", err)
	if simerr.IsInputError(err) {
		return exitInput
	}
	return exitFailure
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "basgra",
		Short:         "BASGRA grassland simulation runner",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPostRun: func(*cobra.Command, []string) {
			_ = logger.Sync()
		},
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "YAML config file (overrides "+config.EnvFile+")")

	root.AddCommand(newServeCmd(), newRunCmd(), newValidateCmd(), newLoadTestCmd())
	return root
}

// setup loads configuration and initialises logging for a subcommand.
// A nil logTo selects the global stdout logger; file commands log to
// stderr so stdout stays free for results.
func setup(ctx context.Context, logTo io.Writer) (*config.Config, logger.Logger, error) {
	var log logger.Logger
	if logTo == nil {
		if err := logger.Init(); err != nil {
			return nil, nil, fmt.Errorf("failed to initialize logging: %w", err)
		}
		log = logger.Get()
	} else {
		log = logger.New(logTo)
	}
	if configPath != "" {
		if err := os.Setenv(config.EnvFile, configPath); err != nil {
			return nil, nil, err
		}
	}
	cfg, err := config.Load(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		log.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}
	return cfg, log, nil
}

// engines loads one engine per PET variant. A variant whose library cannot
// be loaded is left out; requests for it fail with an environment error.
// The returned func releases the loaded libraries.
func engines(ctx context.Context, cfg *config.Config, log logger.Logger) ([]service.PipelineOption, func()) {
	modes := []schema.PETMode{schema.SuppliedPET, schema.DerivedPET}
	var opts []service.PipelineOption
	if cfg.EngineStub {
		log.Warn(ctx, "engine_stub set; simulations return zeros")
		for _, m := range modes {
			opts = append(opts, service.WithEngine(engine.Zero(cfg.WeatherCapacity, m)))
		}
		return opts, func() {}
	}

	loc := engine.NewLocator(
		engine.WithDir(cfg.EngineDir),
		engine.WithLibraries(cfg.EnginePETLibrary, cfg.EnginePenmanLibrary),
		engine.WithBuildCommand(cfg.EngineBuildCommand),
		engine.WithLocatorLogger(log.Named("engine")),
	)
	var libs []*engine.Library
	for _, m := range modes {
		e, lib, err := engine.Load(ctx, loc, cfg.WeatherCapacity, m)
		if err != nil {
			log.Warn(ctx, "engine unavailable", logger.String("mode", m.String()), logger.Error(err))
			continue
		}
		log.Info(ctx, "engine loaded", logger.String("mode", m.String()), logger.String("path", lib.Path()))
		libs = append(libs, lib)
		opts = append(opts, service.WithEngine(e))
	}
	return opts, func() {
		for _, lib := range libs {
			if err := lib.Close(); err != nil {
				log.Warn(ctx, "engine close failed", logger.String("path", lib.Path()), logger.Error(err))
			}
		}
	}
}

// newPipeline builds the pipeline over the configured engines.
func newPipeline(ctx context.Context, cfg *config.Config, log logger.Logger) (*service.Pipeline, func(), error) {
	opts, release := engines(ctx, cfg, log)
	opts = append(opts, service.WithPipelineLogger(log.Named("pipeline")))
	p, err := service.NewPipeline(cfg.WeatherCapacity, opts...)
	if err != nil {
		release()
		return nil, nil, err
	}
	return p, release, nil
}
