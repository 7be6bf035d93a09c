package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/chaz8081/hubctl/internal/ble"
)

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "List LEGO hubs in range",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signalContext()
		defer cancel()

		sc := cfg.Scan
		if hubName != "" {
			sc.Name = hubName
		}
		if hubAddress != "" {
			sc.Address = hubAddress
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Scanning for %s...\n", sc.Timeout)
		hubs, err := scanHubs(ctx, ble.NewTinyGoAdapter(), sc)
		if err != nil {
			return err
		}
		if len(hubs) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No hubs found.")
			return nil
		}
		for _, h := range hubs {
			fmt.Fprintf(cmd.OutOrStdout(), "%-20s %-18s %4d dBm  %s\n",
				h.adv.Name, h.hubType, h.adv.RSSI, h.adv.Address)
		}
		return nil
	},
}

func init() {
	addHubFlags(scanCmd)
	rootCmd.AddCommand(scanCmd)
}
