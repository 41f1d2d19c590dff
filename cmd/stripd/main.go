package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/dokzlo13/stripd/internal/app"
	"github.com/dokzlo13/stripd/internal/config"
)

// Version information - set during build
var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		configPath string
		resetState bool
	)

	root := &cobra.Command{
		Use:   "stripd",
		Short: "stripd - LED strip pattern daemon",
		Long: `stripd drives an addressable LED strip with animated patterns.

Patterns run on a fixed tick. Temporary patterns fall back to a default
pattern once they finish. Patterns can be switched over the HTTP control API,
and live values (remote colors, compass headings) can be fed through Redis
or the API.`,
		Version:       version,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(configPath, resetState)
		},
	}

	root.PersistentFlags().StringVarP(&configPath, "config", "c", "config.yaml", "Path to configuration file")
	root.Flags().BoolVar(&resetState, "reset-state", false, "Clear the persisted default pattern on startup")

	root.AddCommand(newValidateCmd(&configPath))
	return root
}

func newValidateCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Check the configuration and its default pattern",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}

			sources, err := app.NewSourceService(cfg)
			if err != nil {
				return err
			}
			defer sources.Close()

			if cfg.DefaultPattern != nil {
				p, err := sources.Catalog.Build(*cfg.DefaultPattern)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "default pattern: %s\n", p.Name())
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: ok\n", *configPath)
			return nil
		},
	}
}

func run(configPath string, resetState bool) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	setupLogging(os.Stderr, cfg.Log.Level, cfg.Log.JSON, cfg.Log.Colors)

	log.Info().Str("config", configPath).Str("version", version).Msg("Starting stripd")

	application, err := app.New(cfg, configPath)
	if err != nil {
		return fmt.Errorf("failed to create application: %w", err)
	}

	if resetState {
		log.Info().Msg("Clearing persisted default pattern (--reset-state)")
		if err := application.ResetState(); err != nil {
			log.Warn().Err(err).Msg("Failed to clear persisted state")
		}
	}

	ctx, stop := app.SignalContext(context.Background())
	defer stop()

	return application.Run(ctx)
}

func setupLogging(out io.Writer, level string, useJSON bool, colors bool) {
	// ISO 8601 format with timezone
	zerolog.TimeFieldFormat = time.RFC3339

	if useJSON {
		log.Logger = zerolog.New(out).With().Timestamp().Logger()
	} else {
		log.Logger = zerolog.New(zerolog.ConsoleWriter{
			Out:        out,
			TimeFormat: "2006-01-02T15:04:05.000Z07:00",
			NoColor:    !colors,
		}).With().Timestamp().Logger()
	}

	zerolog.SetGlobalLevel(parseLevel(level))
}

func parseLevel(level string) zerolog.Level {
	switch level {
	case "trace":
		return zerolog.TraceLevel
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}
