// Command simulate drives a running tracker with generated trainers and
// verifies the leaderboards and titles it serves.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/okian/academy/internal/simulate"
	"github.com/okian/academy/pkg/logger"
	"github.com/spf13/cobra"
)

const logFilePermission = 0o600

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cfg := simulate.DefaultConfig()
	var (
		logFile   string
		logFormat string
	)

	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Submit generated trainer snapshots and verify the tracker's answers",
		Example: `  simulate
  simulate --players 2000 --workers 16 --url http://localhost:8080
  simulate --seed 7 --output out/trainers.json --log run.log`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := io.Writer(os.Stdout)
			if logFile != "" {
				f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, logFilePermission)
				if err != nil {
					return fmt.Errorf("open log file: %w", err)
				}
				defer f.Close()
				out = io.MultiWriter(os.Stdout, f)
			}
			if err := logger.InitWithWriter(out, logFormat); err != nil {
				return fmt.Errorf("init logger: %w", err)
			}
			if cfg.Verbose {
				_ = logger.SetLevelString("debug")
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if _, err := simulate.Run(ctx, cfg); err != nil {
				logger.Get().Error(ctx, "simulation failed", logger.Error(err))
				return err
			}
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&cfg.BaseURL, "url", cfg.BaseURL, "base URL of the tracker")
	f.IntVar(&cfg.Players, "players", cfg.Players, "number of trainers to generate")
	f.IntVar(&cfg.SnapshotsPerPlayer, "snapshots", cfg.SnapshotsPerPlayer, "snapshots per trainer")
	f.IntVar(&cfg.Workers, "workers", cfg.Workers, "concurrent HTTP workers")
	f.Float64Var(&cfg.Rate, "rate", cfg.Rate, "submissions per second, 0 for unlimited")
	f.DurationVar(&cfg.Timeout, "timeout", cfg.Timeout, "HTTP request timeout")
	f.DurationVar(&cfg.Settle, "settle", cfg.Settle, "how long to wait for snapshots to be applied")
	f.IntVar(&cfg.TopN, "top", cfg.TopN, "leaderboard entries to check per category")
	f.IntVar(&cfg.SecondaryLimit, "secondary", cfg.SecondaryLimit, "secondary titles to compare")
	f.IntVar(&cfg.TotalSpecies, "total-species", cfg.TotalSpecies, "pokedex denominator the tracker uses")
	f.Uint64Var(&cfg.Seed, "seed", cfg.Seed, "stat generator seed, 0 for random")
	f.StringVar(&cfg.OutputFile, "output", "", "write the generated trainers to this JSON file")
	f.StringVar(&logFile, "log", "", "also append logs to this file")
	f.StringVar(&logFormat, "log-format", logger.FormatText, "log format: text or json")
	f.BoolVarP(&cfg.Verbose, "verbose", "v", false, "enable debug logging")

	return cmd
}

// run executes the root command with args.
func run(ctx context.Context, args []string) error {
	cmd := newRootCmd()
	cmd.SetArgs(args)
	return cmd.ExecuteContext(ctx)
}
