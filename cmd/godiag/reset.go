package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/openmotive/godiag/uds"
)

func newResetCmd() *cobra.Command {
	flags := &clientFlags{}
	var (
		resetType uint8
		reconnect bool
		settle    time.Duration
	)

	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Reset the ECU",
		Long: `Send ECUReset with the given reset type: 1 hard, 2 key off/on, 3 soft.

The reset invalidates the DoIP channel; with --reconnect the client
re-establishes it after a settle delay and confirms the ECU is back with
TesterPresent.`,
		Example: `  # Hard reset, then reconnect and verify
  godiag reset --type 1 --reconnect`,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, closeConn, err := flags.connect()
			if err != nil {
				return err
			}
			defer closeConn()

			if err := client.ECUReset(uds.ResetType(resetType)); err != nil {
				return reportErr(err)
			}
			fmt.Fprintf(os.Stdout, "ECU accepted %v\n", uds.ResetType(resetType))

			if !reconnect {
				return nil
			}

			// ECUs do not restart instantly
			time.Sleep(settle)
			if err := client.Reconnect(); err != nil {
				return fmt.Errorf("reconnect after reset: %w", err)
			}
			if err := client.TesterPresent(); err != nil {
				return reportErr(err)
			}
			fmt.Fprintln(os.Stdout, "Reconnected, ECU is responding")
			return nil
		},
	}

	flags.register(cmd)
	cmd.Flags().Uint8Var(&resetType, "type", uint8(uds.ResetHard), "Reset type")
	cmd.Flags().BoolVar(&reconnect, "reconnect", false, "Reconnect and verify after the reset")
	cmd.Flags().DurationVar(&settle, "settle", 500*time.Millisecond, "Delay before reconnecting")

	return cmd
}
