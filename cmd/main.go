package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"camera-fleet-engine/internal/api"
	"camera-fleet-engine/internal/config"
	"camera-fleet-engine/internal/fleet"
)

var version = "1.0.0"

var (
	configFile string
	logLevel   string
)

var rootCmd = &cobra.Command{
	Use:   "camera-fleet-engine",
	Short: "Camera fleet telemetry, alert and audit engine",
	Long: `An in-memory monitoring engine for a fleet of CCTV cameras. It advances
simulated device telemetry on a fixed cadence, derives health and security
alerts with an acknowledgement lifecycle, aggregates fleet statistics and
records every user action in an immutable audit trail, exposed over an HTTP
and WebSocket API.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return run()
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the engine version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println(version)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file (default is ./config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level override (debug, info, warn, error)")
	rootCmd.AddCommand(versionCmd)
}

func run() error {
	cfg, err := config.Load(configFile)
	if err != nil {
		return err
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}

	manager, err := fleet.NewManager(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize fleet manager: %w", err)
	}

	server := api.NewServer(cfg.API, manager, manager.Logger())
	manager.AddNotifier(server.WebSocket())

	if err := manager.Start(); err != nil {
		return fmt.Errorf("failed to start fleet manager: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start(ctx)
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		fmt.Fprintf(os.Stderr, "received %s, shutting down\n", sig)
	case err := <-errCh:
		if err != nil {
			manager.Stop()
			return err
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		fmt.Fprintf(os.Stderr, "api shutdown error: %v\n", err)
	}
	manager.Stop()
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
