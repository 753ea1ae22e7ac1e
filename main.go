package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
)

func main() {
	// Set up slog (JSON to stdout for structured logging)
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "symbiosis <configuration-file> [show-progress]",
		Short: "Discrete-event simulation of symbionts colonizing a sponge",
		Long: `symbiosis simulates symbionts arriving at, dividing within and leaving a
grid-shaped sponge host, and writes a daily population time series and one
exit record per symbiont.

The configuration file is YAML (.yaml/.yml) or a NAME,value CSV.
show-progress is true, false, 1 or 0 (default true).`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			showProgress := true
			if len(args) == 2 {
				var err error
				if showProgress, err = parseShowProgress(args[1]); err != nil {
					return err
				}
			}
			cmd.SilenceUsage = true
			if err := runSimulation(cmd.Context(), args[0], showProgress, cmd.ErrOrStderr()); err != nil {
				slog.Error("simulation failed", "config", args[0], "error", err)
				return err
			}
			return nil
		},
	}
}

// parseShowProgress accepts only true, false, 1 and 0.
func parseShowProgress(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "true", "1":
		return true, nil
	case "false", "0":
		return false, nil
	}
	return false, fmt.Errorf("show-progress must be true, false, 1 or 0, got %q", s)
}
