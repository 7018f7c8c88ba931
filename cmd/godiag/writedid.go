package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func newWriteDIDCmd() *cobra.Command {
	flags := &clientFlags{}

	cmd := &cobra.Command{
		Use:   "write-did <identifier> <value>",
		Short: "Write a data identifier",
		Long: `Encode the value with the codec registered for the identifier and send
WriteDataByIdentifier. A positive response from the server means the
record was accepted.`,
		Example: `  # Change the VIN (17 ASCII characters)
  godiag write-did 0xF190 ABC123456789GHIJK`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			did, err := parseDID(args[0])
			if err != nil {
				return err
			}

			client, closeConn, err := flags.connect()
			if err != nil {
				return err
			}
			defer closeConn()

			if err := client.WriteDataByIdentifier(did, args[1]); err != nil {
				return reportErr(err)
			}
			fmt.Fprintf(os.Stdout, "0x%04X written\n", did)
			return nil
		},
	}

	flags.register(cmd)

	return cmd
}
