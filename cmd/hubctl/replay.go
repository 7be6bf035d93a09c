package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/chaz8081/hubctl/internal/capture"
	"github.com/chaz8081/hubctl/internal/hub"
)

var (
	replaySubscribe   []string
	replayPace        float64
	replayUngated     bool
	replayStepTimeout time.Duration
)

var replayCmd = &cobra.Command{
	Use:   "replay <file>",
	Short: "Decode a recorded capture offline",
	Long: `Feed a capture recorded with --capture through the protocol engine and
print the events and readings it produces.

Readings decode only for ports in the mode they were recorded in, so pass
the subscriptions made while recording:

  hubctl replay session.cbor --subscribe A:tilt --subscribe C:color,distance

Notifications recorded after a write wait for the engine to make that
write; --ungated delivers them regardless.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		subs, err := parseSubscriptions(replaySubscribe)
		if err != nil {
			return err
		}

		f, err := os.Open(args[0])
		if err != nil {
			return err
		}
		header, records, err := capture.ReadAll(f)
		f.Close()
		if err != nil && len(records) == 0 {
			return err
		}
		out := cmd.OutOrStdout()
		if err != nil {
			fmt.Fprintf(out, "warning: %v; replaying %d records\n", err, len(records))
		}
		fmt.Fprintf(out, "Capture of %s %q (%s): %d records\n", header.HubType, header.Name, header.Address, len(records))

		ctx, cancel := signalContext()
		defer cancel()

		player := capture.NewPlayer(header, records, capture.PlayerOptions{
			Pace:        replayPace,
			StepTimeout: replayStepTimeout,
			Ungated:     replayUngated,
		})
		h := hub.New(player, header.HubType, hubOptions(cfg.Hub))
		if err := h.Connect(ctx); err != nil {
			return err
		}
		defer h.Disconnect()

		return replay(ctx, out, h, player, subs)
	},
}

func init() {
	replayCmd.Flags().StringArrayVar(&replaySubscribe, "subscribe", nil, "port:capability[,capability] to subscribe on attach (repeatable)")
	replayCmd.Flags().Float64Var(&replayPace, "pace", 0, "replay at recorded speed scaled by this factor; 0 for as fast as possible")
	replayCmd.Flags().BoolVar(&replayUngated, "ungated", false, "do not hold notifications back for recorded writes")
	replayCmd.Flags().DurationVar(&replayStepTimeout, "step-timeout", 2*time.Second, "skip a notification whose prerequisites do not occur within this long")
	rootCmd.AddCommand(replayCmd)
}

// parseSubscriptions parses port:capability[,capability] pairs into a map
// of port to capabilities.
func parseSubscriptions(args []string) (map[string][]string, error) {
	subs := make(map[string][]string, len(args))
	for _, arg := range args {
		port, caps, ok := strings.Cut(arg, ":")
		if !ok || port == "" || caps == "" {
			return nil, fmt.Errorf("subscription %q: want port:capability", arg)
		}
		subs[port] = append(subs[port], strings.Split(caps, ",")...)
	}
	return subs, nil
}

// replay prints events and readings until the player is done, subscribing
// to ports as they attach.
func replay(ctx context.Context, out io.Writer, h *hub.Hub, player *capture.Player, subs map[string][]string) error {
	readings := make(chan hub.Reading, 64)
	done := make(chan struct{})
	defer close(done)
	var open []*hub.Subscription
	defer func() {
		for _, s := range open {
			s.Close()
		}
	}()

	subscribed := make(map[string]bool)
	subscribe := func(port string) {
		caps, ok := subs[port]
		if !ok || subscribed[port] {
			return
		}
		var s *hub.Subscription
		var err error
		if len(caps) == 1 {
			s, err = h.Subscribe(port, caps[0])
		} else {
			s, err = h.SubscribeCombined(port, caps...)
		}
		if err != nil {
			fmt.Fprintf(out, "subscribe %s: %v\n", port, err)
			return
		}
		subscribed[port] = true
		open = append(open, s)
		go func() {
			for r := range s.C {
				select {
				case readings <- r:
				case <-done:
					return
				}
			}
		}()
	}
	for _, a := range h.Attachments() {
		subscribe(a.Port)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev := <-h.Events():
			fmt.Fprintln(out, formatEvent(ev))
			switch ev.Kind {
			case hub.EventAttach:
				subscribe(ev.Attachment.Port)
			case hub.EventDetach:
				delete(subscribed, ev.Attachment.Port)
			}
		case r := <-readings:
			fmt.Fprintf(out, "%s %-16s %s\n", r.Port, r.Capability, formatReading(r.Value))
		case <-player.Done():
			drain(out, h, readings)
			fmt.Fprintf(out, "Replay finished: engine wrote %d messages\n", len(player.Writes()))
			printInfo(out, h)
			return nil
		}
	}
}

// drain prints whatever was queued when playback ended.
func drain(out io.Writer, h *hub.Hub, readings <-chan hub.Reading) {
	for {
		select {
		case ev := <-h.Events():
			fmt.Fprintln(out, formatEvent(ev))
		case r := <-readings:
			fmt.Fprintf(out, "%s %-16s %s\n", r.Port, r.Capability, formatReading(r.Value))
		case <-time.After(50 * time.Millisecond):
			return
		}
	}
}
