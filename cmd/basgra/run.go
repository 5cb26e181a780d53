package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/beenjammin/basgra/internal/adapters/tabular"
	service "github.com/beenjammin/basgra/internal/app"
	"github.com/beenjammin/basgra/internal/domain/model"
	"github.com/beenjammin/basgra/internal/domain/schema"
	"github.com/beenjammin/basgra/internal/domain/simerr"
)

// inputFlags names the files that make up one simulation request.
type inputFlags struct {
	params      string
	weather     string
	harvest     string
	irrigation  string
	derivePET   bool
	autoHarvest bool
	verbose     bool
}

func (f *inputFlags) register(cmd *cobra.Command) {
	fl := cmd.Flags()
	fl.StringVar(&f.params, "params", "", "YAML mapping of parameter key to value")
	fl.StringVar(&f.weather, "weather", "", "daily weather CSV")
	fl.StringVar(&f.harvest, "harvest", "", "harvest CSV, sparse events or one row per day with --auto-harvest")
	fl.StringVar(&f.irrigation, "irrigation-days", "", `irrigated days of year in [0, 366], e.g. "1-30,200"`)
	fl.BoolVar(&f.derivePET, "derive-pet", false, "derive PET from wind and vpa (Penman) instead of reading a pet column")
	fl.BoolVar(&f.autoHarvest, "auto-harvest", false, "harvest CSV holds one row per simulated day")
	fl.BoolVar(&f.verbose, "verbose", false, "pass the debug flag to the engine")
	for _, name := range []string{"params", "weather", "harvest"} {
		_ = cmd.MarkFlagRequired(name)
	}
}

// request reads the input files into a simulation request.
func (f *inputFlags) request() (*model.Request, error) {
	req := &model.Request{
		PETMode:     schema.SuppliedPET,
		HarvestMode: schema.ManualHarvest,
		Verbose:     f.verbose,
	}
	if f.derivePET {
		req.PETMode = schema.DerivedPET
	}
	if f.autoHarvest {
		req.HarvestMode = schema.AutoHarvest
	}

	pf, err := os.Open(f.params)
	if err != nil {
		return nil, simerr.Wrap(simerr.ErrConfiguration, "params.open", err)
	}
	defer pf.Close()
	if _, req.Params, err = tabular.ReadParameters(pf); err != nil {
		return nil, err
	}

	if req.Weather, err = readFrame(f.weather, "weather"); err != nil {
		return nil, err
	}
	if req.Harvest, err = readFrame(f.harvest, "harvest"); err != nil {
		return nil, err
	}
	if req.Irrigation, err = tabular.ParseDays(f.irrigation); err != nil {
		return nil, simerr.Wrap(simerr.ErrSchema, "irrigation.parse", err)
	}
	return req, nil
}

func readFrame(path, table string) (*model.Frame, error) {
	fh, err := os.Open(path)
	if err != nil {
		return nil, simerr.Wrap(simerr.ErrSchema, table+".open", err)
	}
	defer fh.Close()
	f, err := tabular.ReadFrame(fh)
	if err != nil {
		return nil, simerr.Wrap(simerr.ErrSchema, table+".read", err)
	}
	return f, nil
}

func newRunCmd() *cobra.Command {
	var (
		in  inputFlags
		out string
	)
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run one simulation from files and write the daily output as CSV",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			w := cmd.OutOrStdout()
			if out != "" && out != "-" {
				fh, err := os.Create(out)
				if err != nil {
					return err
				}
				defer fh.Close()
				w = fh
			}
			return runOnce(cmd.Context(), &in, w, cmd.ErrOrStderr())
		},
	}
	in.register(cmd)
	cmd.Flags().StringVarP(&out, "out", "o", "-", "output CSV path, - for stdout")
	return cmd
}

func runOnce(ctx context.Context, in *inputFlags, w, logTo io.Writer) error {
	cfg, log, err := setup(ctx, logTo)
	if err != nil {
		return err
	}
	req, err := in.request()
	if err != nil {
		return err
	}
	p, release, err := newPipeline(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer release()

	res, err := p.Run(ctx, req)
	if err != nil {
		return err
	}
	return tabular.WriteOutput(w, res)
}

func newValidateCmd() *cobra.Command {
	var in inputFlags
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Check simulation inputs without running the engine",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return validateOnce(cmd.Context(), &in, cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}
	in.register(cmd)
	return cmd
}

func validateOnce(ctx context.Context, in *inputFlags, w, logTo io.Writer) error {
	cfg, log, err := setup(ctx, logTo)
	if err != nil {
		return err
	}
	req, err := in.request()
	if err != nil {
		return err
	}
	// Validation never calls an engine, so none is loaded.
	p, err := service.NewPipeline(cfg.WeatherCapacity, service.WithPipelineLogger(log.Named("pipeline")))
	if err != nil {
		return err
	}
	cov, err := p.Validate(ctx, req)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "ok: %d days from %s to %s (%s PET, %s harvest)\n",
		len(cov.Days), cov.First.Format(time.DateOnly), cov.Last.Format(time.DateOnly),
		req.PETMode, req.HarvestMode)
	return err
}
