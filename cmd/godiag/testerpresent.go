package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func newTesterPresentCmd() *cobra.Command {
	flags := &clientFlags{}

	cmd := &cobra.Command{
		Use:   "tester-present",
		Short: "Check that the ECU is responding",
		Long: `Send a single TesterPresent request. Useful to verify an ECU came back
after a reset or to keep a non-default session alive.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, closeConn, err := flags.connect()
			if err != nil {
				return err
			}
			defer closeConn()

			if err := client.TesterPresent(); err != nil {
				return reportErr(err)
			}
			fmt.Fprintln(os.Stdout, "ECU is responding")
			return nil
		},
	}

	flags.register(cmd)

	return cmd
}
