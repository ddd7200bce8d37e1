package main

import (
	"log/slog"
	"time"

	"github.com/spf13/cobra"
)

// options are the flags shared by every subcommand.
type options struct {
	count   int
	seed    int64
	url     string
	tenant  string
	local   bool
	batch   int
	workers int
	timeout time.Duration
}

func newRootCommand() *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:   "loadgen",
		Short: "Load generator for the Harrier scoring API",
		Long: `Loadgen generates synthetic claims or applications and scores them,
either through a running Harrier server or in-process with --local.

The same --seed always produces the same records, so runs can be compared.`,
		SilenceUsage: true,
	}

	flags := cmd.PersistentFlags()
	flags.IntVar(&opts.count, "count", 1000, "Number of records to generate")
	flags.Int64Var(&opts.seed, "seed", 0, "Random seed (0 picks one from the clock)")
	flags.StringVar(&opts.url, "url", "http://localhost:8080", "Harrier base URL")
	flags.StringVar(&opts.tenant, "tenant", "loadgen", "Tenant ID for requests")
	flags.BoolVar(&opts.local, "local", false, "Score in-process instead of over HTTP")
	flags.IntVar(&opts.batch, "batch", 500, "Records per batch request")
	flags.IntVar(&opts.workers, "workers", 4, "Concurrent batch requests")
	flags.DurationVar(&opts.timeout, "timeout", 30*time.Second, "Per-request timeout")
	debug := flags.Bool("debug", false, "Enable debug logging")

	cmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		if *debug {
			slog.SetLogLoggerLevel(slog.LevelDebug)
		}
		return opts.validate()
	}

	cmd.AddCommand(newClaimsCommand(opts))
	cmd.AddCommand(newApplicationsCommand(opts))
	return cmd
}
