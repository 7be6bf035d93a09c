package main

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/chaz8081/hubctl/internal/hub"
)

var (
	infoSettle time.Duration
	infoModes  bool
)

var infoCmd = &cobra.Command{
	Use:   "info",
	Short: "Connect to a hub and print its identity and attached devices",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signalContext()
		defer cancel()

		s, err := openSession(ctx)
		if err != nil {
			return err
		}
		defer s.Close()

		// Attach messages follow the handshake.
		select {
		case <-time.After(infoSettle):
		case <-ctx.Done():
		}
		if infoModes {
			for _, a := range s.hub.Attachments() {
				if err := s.hub.RequestPortInformation(a.Port); err != nil {
					return err
				}
			}
			select {
			case <-time.After(infoSettle):
			case <-ctx.Done():
			}
		}
		printInfo(cmd.OutOrStdout(), s.hub)
		return nil
	},
}

func init() {
	addHubFlags(infoCmd)
	infoCmd.Flags().DurationVar(&infoSettle, "wait", time.Second, "time to collect attached devices before printing")
	infoCmd.Flags().BoolVar(&infoModes, "modes", false, "query and print the modes of each attached port")
	rootCmd.AddCommand(infoCmd)
}

// printInfo writes the hub summary and port table.
func printInfo(w io.Writer, h *hub.Hub) {
	fmt.Fprintf(w, "=== %s ===\n", h.Name())
	fmt.Fprintf(w, "  Type:      %s\n", h.Type())
	fmt.Fprintf(w, "  Firmware:  %s\n", h.FirmwareVersion())
	if hw := h.HardwareVersion(); hw != "" {
		fmt.Fprintf(w, "  Hardware:  %s\n", hw)
	}
	if mac := h.PrimaryMAC(); mac != "" {
		fmt.Fprintf(w, "  MAC:       %s\n", mac)
	}
	fmt.Fprintf(w, "  Battery:   %d%%\n", h.BatteryLevel())
	if rssi := h.RSSI(); rssi != 0 {
		fmt.Fprintf(w, "  RSSI:      %d dBm\n", rssi)
	}
	attachments := h.Attachments()
	if len(attachments) == 0 {
		fmt.Fprintln(w, "  No devices attached")
		return
	}
	fmt.Fprintln(w, "  Ports:")
	for _, a := range attachments {
		fmt.Fprintf(w, "    %s\n", formatAttachment(a))
		if pi, ok := h.PortInformation(a.Port); ok {
			fmt.Fprintf(w, "      %s\n", formatPortModes(pi))
		}
	}
}
