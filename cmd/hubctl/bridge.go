package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/chaz8081/hubctl/internal/bridge"
)

var bridgeListen string

var bridgeCmd = &cobra.Command{
	Use:   "bridge",
	Short: "Serve a hub to websocket clients",
	Long: `Connect to a hub and serve it on a websocket endpoint at /ws.

Clients receive a JSON snapshot of the hub, then every hub event.
They send requests such as

  {"id": 1, "op": "subscribe", "port": "A", "capability": "tilt"}
  {"id": 2, "op": "speed", "port": "B", "value": 50, "duration_ms": 1000}

and get a result message with the same id when the command completes.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if bridgeListen != "" {
			cfg.Bridge.Listen = bridgeListen
		}

		ctx, cancel := signalContext()
		defer cancel()

		s, err := openSession(ctx)
		if err != nil {
			return err
		}
		defer s.Close()

		b := bridge.NewServer(s.hub)
		go b.Run(ctx)

		mux := http.NewServeMux()
		mux.Handle("/ws", b)
		srv := &http.Server{
			Addr:              cfg.Bridge.Listen,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			<-ctx.Done()
			shutdownCtx, done := context.WithTimeout(context.Background(), 2*time.Second)
			defer done()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				slog.Warn("[BRIDGE] shutdown", "error", err)
			}
		}()

		fmt.Fprintf(cmd.OutOrStdout(), "Serving %s on ws://%s/ws\n", s.hub.Name(), cfg.Bridge.Listen)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	},
}

func init() {
	addHubFlags(bridgeCmd)
	bridgeCmd.Flags().StringVar(&bridgeListen, "listen", "", "listen address (default from bridge.listen)")
	rootCmd.AddCommand(bridgeCmd)
}
