package main

import (
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/xi-lua/sentinel/pkg/config"
	"github.com/xi-lua/sentinel/pkg/metrics"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start key rotation and the Unified Monitor, blocking until signalled",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		c, err := openCore()
		if err != nil {
			return err
		}
		defer c.Close()

		c.Start()
		defer c.Stop()

		fmt.Println("✓ AutoHeal key rotation started")
		fmt.Println("✓ Unified Monitor started")

		errCh := make(chan error, 1)
		if cfg.MetricsAddr != "" {
			mux := http.NewServeMux()
			mux.Handle("/metrics", metrics.Handler())
			go func() {
				if err := http.ListenAndServe(cfg.MetricsAddr, mux); err != nil {
					errCh <- fmt.Errorf("metrics server: %v", err)
				}
			}()
			fmt.Printf("✓ Metrics listening on %s/metrics\n", cfg.MetricsAddr)
		}

		fmt.Println("xictl is running. Press Ctrl+C to stop.")

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

		select {
		case <-sigCh:
			fmt.Println("\nShutting down...")
		case err := <-errCh:
			fmt.Fprintf(os.Stderr, "\nError: %v\n", err)
		}

		fmt.Println("✓ Shutdown complete")
		return nil
	},
}
