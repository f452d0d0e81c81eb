package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/geolocate-mvp/zipgallery/internal/config"
	"github.com/geolocate-mvp/zipgallery/internal/handlers"
	"github.com/spf13/cobra"
)

func newServeCmd() *cobra.Command {
	var port string
	var idleTimeout time.Duration

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the archive preview server",
		Long: `Starts the archive preview API on the specified port.

Browsers upload a ZIP archive to /api/archive and page through its images
with /api/archive/next and /api/archive/prev. Each browser gets its own
gallery, identified by a cookie; galleries idle for longer than
--idle-timeout are closed and their previews released.`,
		Example: `  # Start server on default port 8888
  zipgallery serve

  # Start server on custom port
  zipgallery serve --port 3000`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("port") {
				cfg.Port = port
			}
			if idleTimeout <= 0 {
				return fmt.Errorf("--idle-timeout must be positive, got %s", idleTimeout)
			}

			handler := handlers.New(cfg)
			defer handler.Close()

			addr := ":" + cfg.Port
			server := &http.Server{
				Addr:    addr,
				Handler: handler.Routes(),
			}

			// Start server in goroutine
			serverErr := make(chan error, 1)
			go func() {
				slog.Info("Archive preview server available", "addr", addr, "url", "http://localhost"+addr)
				if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					serverErr <- err
				}
			}()

			sweep := time.NewTicker(idleTimeout / 2)
			defer sweep.Stop()

			// Wait for context cancellation (Ctrl+C) or server error
			for {
				select {
				case <-sweep.C:
					if n := handler.EvictIdle(idleTimeout); n > 0 {
						slog.Debug("Idle galleries evicted", "count", n)
					}
				case <-cmd.Context().Done():
					slog.Info("Shutting down server...")
					// Give server 5 seconds to shut down gracefully
					shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
					defer cancel()
					if err := server.Shutdown(shutdownCtx); err != nil {
						slog.Error("Server shutdown failed", "err", err)
						return err
					}
					slog.Info("Server stopped")
					return nil
				case err := <-serverErr:
					return err
				}
			}
		},
	}

	cmd.Flags().StringVarP(&port, "port", "p", "8888", "Port to listen on (overrides PORT)")
	cmd.Flags().DurationVar(&idleTimeout, "idle-timeout", 30*time.Minute, "Close galleries idle for this long")

	return cmd
}
