package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/chaz8081/hubctl/internal/hub"
)

var monitorAttachTimeout time.Duration

var monitorCmd = &cobra.Command{
	Use:   "monitor <port> <capability>...",
	Short: "Stream sensor readings from a port",
	Long: `Stream readings of one capability, or several combined capabilities of a
color-distance sensor, from the device at port until interrupted.

Example:
  hubctl monitor A tilt
  hubctl monitor C color distance`,
	Args: cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signalContext()
		defer cancel()
		out := cmd.OutOrStdout()

		s, err := openSession(ctx)
		if err != nil {
			return err
		}
		defer s.Close()

		port, capabilities := args[0], args[1:]
		if err := waitForPort(ctx, out, s.hub, port, monitorAttachTimeout); err != nil {
			return err
		}
		var sub *hub.Subscription
		if len(capabilities) == 1 {
			sub, err = s.hub.Subscribe(port, capabilities[0])
		} else {
			sub, err = s.hub.SubscribeCombined(port, capabilities...)
		}
		if err != nil {
			return err
		}
		defer sub.Close()

		start := time.Now()
		for {
			select {
			case <-ctx.Done():
				return nil
			case ev := <-s.hub.Events():
				fmt.Fprintln(out, formatEvent(ev))
				if ev.Kind == hub.EventDisconnect {
					return hub.ErrNotConnected
				}
			case r, ok := <-sub.C:
				if !ok {
					return fmt.Errorf("device at %s detached", port)
				}
				fmt.Fprintf(out, "%8.3fs %s %-16s %s\n",
					time.Since(start).Seconds(), r.Port, r.Capability, formatReading(r.Value))
			}
		}
	},
}

func init() {
	addHubFlags(monitorCmd)
	monitorCmd.Flags().DurationVar(&monitorAttachTimeout, "attach-timeout", 5*time.Second, "how long to wait for a device at the port")
	rootCmd.AddCommand(monitorCmd)
}
