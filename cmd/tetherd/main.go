package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	clientrun "github.com/rzbill/tether/internal/cmd/client"
	serverrun "github.com/rzbill/tether/internal/cmd/server"
	cfgpkg "github.com/rzbill/tether/internal/config"
	logpkg "github.com/rzbill/tether/pkg/log"
	"github.com/spf13/cobra"
)

func main() {
	// initialize logger for CLI output; TETHER_LOG_LEVEL is respected
	level := os.Getenv("TETHER_LOG_LEVEL")
	parsed, err := logpkg.ParseLevel(level)
	if err != nil || level == "" {
		parsed = logpkg.InfoLevel
	}
	logger := logpkg.NewLogger(
		logpkg.WithLevel(parsed),
		logpkg.WithFormatter(&logpkg.TextFormatter{}),
		logpkg.WithOutput(logpkg.NewConsoleOutput()),
	)

	// Redirect standard library logs (used by Pebble) to our logger
	logpkg.RedirectStdLog(logger)

	rootCmd := &cobra.Command{
		Use:   "tetherd",
		Short: "Tether sync node CLI",
		Long:  "Tether is an embeddable sync engine. This CLI runs a durable server node and basic client operations.",
	}

	// server start
	serverCmd := &cobra.Command{Use: "server", Short: "Server commands"}
	serverStartCmd := &cobra.Command{
		Use:     "start",
		Short:   "Start a durable tether server",
		Aliases: []string{"run"},
		RunE: func(cmd *cobra.Command, args []string) error {
			dataDir, _ := cmd.Flags().GetString("data-dir")
			listen, _ := cmd.Flags().GetString("listen")
			fsyncMode, _ := cmd.Flags().GetString("fsync")
			logLevel, _ := cmd.Flags().GetString("log-level")
			logFormat, _ := cmd.Flags().GetString("log-format")
			seedCount, _ := cmd.Flags().GetInt("seed-count")

			cfg := cfgpkg.Default()
			cfgpkg.FromEnv(&cfg)
			if logLevel != "" {
				cfg.LogLevel = logLevel
			}
			if logFormat != "" {
				cfg.LogFormat = logFormat
			}
			if fsyncMode != "" {
				cfg.Fsync = fsyncMode
			}

			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			if err := serverrun.Run(ctx, serverrun.Options{
				DataDir:    dataDir,
				ListenAddr: listen,
				SeedCount:  seedCount,
				Config:     cfg,
			}); err != nil {
				return fmt.Errorf("server error: %w", err)
			}
			return nil
		},
	}
	serverStartCmd.Flags().String("data-dir", "", "data directory (default: platform data dir)")
	serverStartCmd.Flags().String("listen", ":9898", "sync listen address")
	serverStartCmd.Flags().String("fsync", "", "fsync mode: always|interval|never")
	serverStartCmd.Flags().String("log-level", "", "log level: debug|info|warn|error")
	serverStartCmd.Flags().String("log-format", "", "log format: text|json")
	serverStartCmd.Flags().Int("seed-count", serverrun.DefaultSeedCount, "demo messages to seed")
	serverCmd.AddCommand(serverStartCmd)
	rootCmd.AddCommand(serverCmd)

	// client ping
	clientCmd := &cobra.Command{Use: "client", Short: "Client commands"}
	clientPingCmd := &cobra.Command{
		Use:   "ping <endpoint>",
		Short: "Connect to a server and print the adopted root",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dataDir, _ := cmd.Flags().GetString("data-dir")

			cfg := cfgpkg.Default()
			cfgpkg.FromEnv(&cfg)

			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			return clientrun.Ping(ctx, os.Stdout, clientrun.Options{
				Endpoint: args[0],
				DataDir:  dataDir,
				Config:   cfg,
			})
		},
	}
	clientPingCmd.Flags().String("data-dir", "", "keep client state in this directory instead of a scratch dir")
	clientCmd.AddCommand(clientPingCmd)
	rootCmd.AddCommand(clientCmd)

	if err := rootCmd.Execute(); err != nil {
		logger.Error("command failed", logpkg.Err(err))
		os.Exit(1)
	}
}
