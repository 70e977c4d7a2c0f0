package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/dukerupert/kinboard/internal/server"
	ws "github.com/dukerupert/kinboard/internal/websocket"
)

func addServe(topLevel *cobra.Command, o *globalOptions) {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the JSON API and the live event feed.",
		Example: `
kinboard serve --addr :8080
`,
		RunE: withEnv(o, func(cmd *cobra.Command, _ []string, e *env) error {
			hub := ws.NewHub(e.logger)
			defer hub.Attach(e.bus)()

			srv := server.New(e.rt, e.store, hub, time.Now, e.logger)
			httpServer := &http.Server{
				Addr:         e.cfg.Addr,
				Handler:      srv.Router(),
				ReadTimeout:  5 * time.Second,
				WriteTimeout: 10 * time.Second,
				IdleTimeout:  120 * time.Second,
			}

			errs := make(chan error, 1)
			go func() {
				fmt.Fprintf(cmd.OutOrStdout(), "kinboard running at http://%s\n", e.cfg.Addr)
				if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errs <- err
				}
				close(errs)
			}()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			select {
			case err := <-errs:
				if err != nil {
					return fmt.Errorf("server error: %w", err)
				}
				return nil
			case <-ctx.Done():
			}

			e.logger.Info("shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := httpServer.Shutdown(shutdownCtx); err != nil {
				return fmt.Errorf("shutdown: %w", err)
			}
			return nil
		}),
	}
	cmd.Flags().StringVar(&addr, "addr", "", "Address to listen on.")

	topLevel.AddCommand(cmd)
}
