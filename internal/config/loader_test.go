package config_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/beenjammin/basgra/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfigLoader(t *testing.T) {
	convey.Convey("Given a config loader", t, func() {
		ctx := context.Background()
		clearConfigEnvVars(t)

		convey.Convey("When loading config with defaults only", func() {
			cfg, err := config.Load(ctx)

			convey.Convey("Then it should load successfully with defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
				convey.So(cfg.WeatherCapacity, convey.ShouldEqual, 36_600)
			})
		})

		convey.Convey("When loading config with environment variables", func() {
			t.Setenv("BASGRA_ADDR", ":8080")
			t.Setenv("BASGRA_QUEUE_SIZE", "50")
			t.Setenv("BASGRA_WORKER_COUNT", "2")
			t.Setenv("BASGRA_WEATHER_CAPACITY", "400")
			t.Setenv("BASGRA_ENGINE_BUILD_COMMAND", "make lib")
			t.Setenv("BASGRA_ENGINE_VERBOSE", "true")

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should override defaults with env vars", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
				convey.So(cfg.QueueSize, convey.ShouldEqual, 50)
				convey.So(cfg.WorkerCount, convey.ShouldEqual, 2)
				convey.So(cfg.WeatherCapacity, convey.ShouldEqual, 400)
				convey.So(cfg.EngineBuildCommand, convey.ShouldEqual, "make lib")
				convey.So(cfg.EngineVerbose, convey.ShouldBeTrue)
			})
		})

		convey.Convey("When loading config with a YAML file", func() {
			path := writeConfig(t, `
# engine layout
addr: ":9090"
engine_dir: /opt/basgra
engine_penman_library: libpenman.so
max_jobs: 20
`)
			t.Setenv("BASGRA_CONFIG", path)
			t.Setenv("BASGRA_MAX_JOBS", "30")

			cfg, err := config.Load(ctx)

			convey.Convey("Then file values apply and env wins over the file", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9090")
				convey.So(cfg.EngineDir, convey.ShouldEqual, "/opt/basgra")
				convey.So(cfg.EnginePenmanLibrary, convey.ShouldEqual, "libpenman.so")
				convey.So(cfg.EnginePETLibrary, convey.ShouldEqual, "libbasgra_pet.so")
				convey.So(cfg.MaxJobs, convey.ShouldEqual, 30)
			})
		})

		convey.Convey("When the YAML file is invalid", func() {
			t.Setenv("BASGRA_CONFIG", writeConfig(t, `invalid: yaml: content: [`))
			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return a load error", func() {
				convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When the YAML file does not exist", func() {
			t.Setenv("BASGRA_CONFIG", filepath.Join(t.TempDir(), "missing.yaml"))
			_, err := config.Load(ctx)
			convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
		})

		convey.Convey("When addr is empty", func() {
			t.Setenv("BASGRA_ADDR", "")
			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return a validation error", func() {
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
				convey.So(err.Error(), convey.ShouldContainSubstring, "addr must not be empty")
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When a numeric variable is not a number", func() {
			t.Setenv("BASGRA_QUEUE_SIZE", "invalid")
			cfg, err := config.Load(ctx)
			convey.So(err, convey.ShouldNotBeNil)
			convey.So(cfg, convey.ShouldBeNil)
		})

		convey.Convey("When the capacity is zero", func() {
			t.Setenv("BASGRA_WEATHER_CAPACITY", "0")
			_, err := config.Load(ctx)
			convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
		})
	})
}

// Helper functions.

func clearConfigEnvVars(t *testing.T) {
	t.Helper()
	for _, kv := range os.Environ() {
		name, _, _ := strings.Cut(kv, "=")
		if strings.HasPrefix(name, config.EnvPrefix) {
			t.Setenv(name, "")
			_ = os.Unsetenv(name)
		}
	}
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "basgra.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}
