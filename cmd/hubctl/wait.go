package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/chaz8081/hubctl/internal/hub"
)

// waitForPort returns once a device is attached at port, printing the
// hub events consumed meanwhile.
func waitForPort(ctx context.Context, w io.Writer, h *hub.Hub, port string, timeout time.Duration) error {
	if _, err := h.Attachment(port); err == nil {
		return nil
	}
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-deadline.C:
			return fmt.Errorf("no device attached at %s after %s", port, timeout)
		case ev := <-h.Events():
			fmt.Fprintln(w, formatEvent(ev))
			if ev.Kind == hub.EventDisconnect {
				return hub.ErrNotConnected
			}
			if _, err := h.Attachment(port); err == nil {
				return nil
			}
		}
	}
}
