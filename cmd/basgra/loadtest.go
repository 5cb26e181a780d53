package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/beenjammin/basgra/internal/adapters/tabular"
	"github.com/beenjammin/basgra/internal/domain/simerr"
	"github.com/beenjammin/basgra/internal/loadgen"
	"github.com/beenjammin/basgra/pkg/logger"
)

func newLoadTestCmd() *cobra.Command {
	cfg := loadgen.NewConfig(nil)
	var params string
	cmd := &cobra.Command{
		Use:   "loadtest",
		Short: "Drive a running service with synthetic simulations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			pf, err := os.Open(params)
			if err != nil {
				return simerr.Wrap(simerr.ErrConfiguration, "params.open", err)
			}
			defer pf.Close()
			if _, cfg.Params, err = tabular.ReadParameters(pf); err != nil {
				return err
			}
			cfg.Logger = logger.New(cmd.ErrOrStderr())

			stats, err := loadgen.Run(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(),
				"submitted %d: accepted %d, duplicate %d, rejected %d %v; succeeded %d, failed %d %v; %.1f sims/s over %s\n",
				stats.Submitted, stats.Accepted, stats.Duplicate, stats.Rejected, stats.RejectedBy,
				stats.Succeeded, stats.Failed, stats.FailedBy,
				stats.SimulationsPerSecond(), stats.Duration.Round(time.Millisecond))
			return err
		},
	}
	fl := cmd.Flags()
	fl.StringVar(&params, "params", "", "YAML mapping of parameter key to value")
	fl.StringVar(&cfg.BaseURL, "url", cfg.BaseURL, "base URL of the service")
	fl.IntVar(&cfg.Requests, "requests", cfg.Requests, "number of simulations to submit")
	fl.IntVar(&cfg.Days, "days", cfg.Days, "simulated days per request")
	fl.IntVar(&cfg.Workers, "workers", cfg.Workers, "concurrent submitters")
	fl.DurationVar(&cfg.Timeout, "timeout", cfg.Timeout, "HTTP request timeout")
	fl.DurationVar(&cfg.PollInterval, "poll", cfg.PollInterval, "job status poll interval")
	fl.BoolVar(&cfg.DerivePET, "derive-pet", false, "send Penman weather")
	_ = cmd.MarkFlagRequired("params")
	return cmd
}
