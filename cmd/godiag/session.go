package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/openmotive/godiag/uds"
)

func newSessionCmd() *cobra.Command {
	flags := &clientFlags{}
	var level uint8

	cmd := &cobra.Command{
		Use:   "session",
		Short: "Change the diagnostic session",
		Long: `Send DiagnosticSessionControl with the given session level:
1 default, 2 programming, 3 extended, 4 safety system.`,
		Example: `  # Enter the extended session
  godiag session --level 3`,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, closeConn, err := flags.connect()
			if err != nil {
				return err
			}
			defer closeConn()

			if err := client.ChangeSession(uds.SessionType(level)); err != nil {
				return reportErr(err)
			}
			fmt.Fprintf(os.Stdout, "Session changed to %v\n", client.Session())
			return nil
		},
	}

	flags.register(cmd)
	cmd.Flags().Uint8Var(&level, "level", uint8(uds.SessionDefault), "Session level to enter")

	return cmd
}
