package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/openmotive/godiag/uds"
)

func newReadDIDCmd() *cobra.Command {
	flags := &clientFlags{}
	var raw bool

	cmd := &cobra.Command{
		Use:   "read-did <identifier>",
		Short: "Read a data identifier",
		Long: `Send ReadDataByIdentifier for the given 16-bit identifier and decode
the record with the codec registered in the configuration. With --raw the
record bytes are printed as hex without decoding.`,
		Example: `  # Read the VIN
  godiag read-did 0xF190

  # Read an unconfigured identifier as raw bytes
  godiag read-did 0xF18C --raw`,
		Args: cobra.ExactArgs(1),
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

			if raw {
				record, err := client.ReadDataByIdentifierRaw(did)
				if err != nil {
					return reportErr(err)
				}
				fmt.Fprintf(os.Stdout, "0x%04X = % X\n", did, record)
				return nil
			}

			value, err := client.ReadDataByIdentifier(did)
			if err != nil {
				if errors.Is(err, uds.ErrNoCodec) {
					return fmt.Errorf("no codec configured for 0x%04X; use --raw or add it to data_identifiers", did)
				}
				return reportErr(err)
			}
			fmt.Fprintf(os.Stdout, "0x%04X = %v\n", did, value)
			return nil
		},
	}

	flags.register(cmd)
	cmd.Flags().BoolVar(&raw, "raw", false, "Print the record bytes without decoding")

	return cmd
}
