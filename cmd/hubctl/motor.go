package main

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"
)

var (
	motorDuration time.Duration
	motorDegrees  int
	motorRamp     time.Duration
	motorPower    bool
)

var motorCmd = &cobra.Command{
	Use:   "motor <port> <speed>",
	Short: "Drive a motor",
	Long: `Drive the motor at port at speed percent (-100..100).

Without --duration or --degrees the motor runs until interrupted and is
stopped on exit. --power drives unregulated; --ramp accelerates from
standstill over the given time first. Put -- before a negative speed:

  hubctl motor A -- -50`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		port := args[0]
		speed, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("speed %q: %w", args[1], err)
		}

		ctx, cancel := signalContext()
		defer cancel()
		out := cmd.OutOrStdout()

		s, err := openSession(ctx)
		if err != nil {
			return err
		}
		defer s.Close()

		if err := waitForPort(ctx, out, s.hub, port, 5*time.Second); err != nil {
			return err
		}

		if motorRamp > 0 {
			if err := s.hub.RampSpeed(ctx, port, 0, speed, motorRamp); err != nil {
				return err
			}
		}

		switch {
		case motorDegrees != 0:
			err = s.hub.RotateByDegrees(ctx, port, motorDegrees, speed)
		case motorPower:
			err = s.hub.SetPower(ctx, port, speed, motorDuration)
		default:
			err = s.hub.SetSpeed(ctx, port, speed, motorDuration)
		}
		if err != nil {
			return err
		}
		if motorDegrees != 0 || motorDuration > 0 {
			fmt.Fprintln(out, "done")
			return nil
		}

		fmt.Fprintln(out, "running, press Ctrl+C to stop")
		<-ctx.Done()
		// ctx is already cancelled.
		return s.hub.Stop(context.Background(), port)
	},
}

func init() {
	addHubFlags(motorCmd)
	motorCmd.Flags().DurationVarP(&motorDuration, "duration", "d", 0, "run for this long, then stop")
	motorCmd.Flags().IntVar(&motorDegrees, "degrees", 0, "rotate by this many degrees (tacho motors)")
	motorCmd.Flags().DurationVar(&motorRamp, "ramp", 0, "ramp up from standstill over this long")
	motorCmd.Flags().BoolVar(&motorPower, "power", false, "drive unregulated power instead of speed")
	rootCmd.AddCommand(motorCmd)
}
