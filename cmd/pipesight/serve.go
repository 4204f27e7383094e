package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/pipesight/pipesight/pkg/api"
	"github.com/pipesight/pipesight/pkg/config"
	"github.com/pipesight/pipesight/pkg/log"
	"github.com/pipesight/pipesight/pkg/metrics"
	"github.com/pipesight/pipesight/pkg/monitor"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the monitoring server",
	Long: `Start the Pipesight server: recover the state cache from the durable
event log, start the ingestion consumer and broadcast hub, and serve the
HTTP API and WebSocket stream.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		configPath, _ := cmd.Flags().GetString("config")

		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}

		// Flags override file values
		if cmd.Flags().Changed("listen-addr") {
			cfg.ListenAddr, _ = cmd.Flags().GetString("listen-addr")
		}
		if cmd.Flags().Changed("data-dir") {
			cfg.DataDir, _ = cmd.Flags().GetString("data-dir")
		}
		if cmd.Flags().Changed("log-level") {
			cfg.Log.Level, _ = cmd.Flags().GetString("log-level")
		}
		if cmd.Flags().Changed("log-format") {
			cfg.Log.Format, _ = cmd.Flags().GetString("log-format")
		}

		log.Init(log.Config{
			Level:      log.Level(cfg.Log.Level),
			JSONOutput: cfg.Log.Format == "json",
		})
		metrics.SetVersion(Version)

		mon, err := monitor.New(cfg)
		if err != nil {
			return fmt.Errorf("failed to create monitor: %w", err)
		}
		if err := mon.Start(); err != nil {
			return fmt.Errorf("failed to start monitor: %w", err)
		}

		apiServer := api.NewServer(mon)
		errCh := make(chan error, 1)
		go func() {
			if err := apiServer.Start(cfg.ListenAddr); err != nil {
				errCh <- fmt.Errorf("api server error: %w", err)
			}
		}()

		log.Info("pipesight is running, press Ctrl+C to stop")

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

		select {
		case <-sigCh:
			log.Info("shutting down")
		case err := <-errCh:
			log.Errorf("server failed", err)
		}

		if err := apiServer.Stop(); err != nil {
			log.Errorf("api shutdown failed", err)
		}
		if err := mon.Stop(); err != nil {
			return fmt.Errorf("failed to stop monitor: %w", err)
		}

		log.Info("shutdown complete")
		return nil
	},
}

func init() {
	serveCmd.Flags().String("config", "", "Path to YAML config file")
	serveCmd.Flags().String("listen-addr", "127.0.0.1:8090", "HTTP/WebSocket listen address")
	serveCmd.Flags().String("data-dir", "./pipesight-data", "Data directory for the event log")
	serveCmd.Flags().String("log-level", "info", "Log level (debug, info, warn, error)")
	serveCmd.Flags().String("log-format", "console", "Log format (console or json)")
}
