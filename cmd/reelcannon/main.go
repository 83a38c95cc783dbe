package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/kikiluvv/reelcannon/internal/config"
	"github.com/kikiluvv/reelcannon/internal/ffmpeg"
	"github.com/kikiluvv/reelcannon/internal/logging"
	"github.com/kikiluvv/reelcannon/internal/render"
)

// Process exit codes
const (
	exitOK          = 0
	exitError       = 1
	exitConfig      = 2
	exitProbe       = 3
	exitExecution   = 4
	exitInterrupted = 130
)

var (
	cfgFile     string
	verbose     bool
	metricsFile string
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()

	if err != nil {
		log.Error().Err(err).Msg("reelcannon failed")
	}
	os.Exit(exitCode(err))
}

// exitCode maps typed errors to process exit codes
func exitCode(err error) int {
	var (
		cfgErr   *render.ConfigError
		probeErr *ffmpeg.ProbeError
		execErr  *ffmpeg.ExecutionError
	)
	switch {
	case err == nil:
		return exitOK
	case errors.Is(err, context.Canceled):
		return exitInterrupted
	case errors.As(err, &cfgErr):
		return exitConfig
	case errors.As(err, &probeErr):
		return exitProbe
	case errors.As(err, &execErr):
		return exitExecution
	default:
		return exitError
	}
}

var rootCmd = &cobra.Command{
	Use:           "reelcannon",
	Short:         "reelcannon - vertical short-form video renderer",
	Long:          "Turns a landscape clip plus a JSON render request into a branded, subtitled vertical video using ffmpeg.",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Initialize logging
		logging.Init(verbose)

		// Load config
		cfg, err := config.Load(cfgFile)
		if err != nil {
			return err
		}
		if metricsFile != "" {
			cfg.Metrics.Textfile = metricsFile
		}

		// Store config in context
		ctx := config.WithConfig(cmd.Context(), cfg)
		cmd.SetContext(ctx)

		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./reelcannon.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().StringVar(&metricsFile, "metrics-file", "", "write prometheus metrics to this textfile after a render")

	rootCmd.AddCommand(renderCmd)
	rootCmd.AddCommand(planCmd)
	rootCmd.AddCommand(probeCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(listCmd)
}
