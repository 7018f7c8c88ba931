package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var version = "dev"

func main() {
	rootCmd := &cobra.Command{
		Use:   "godiag",
		Short: "UDS over DoIP diagnostic client",
		Long: `godiag talks to vehicle ECUs over DoIP (ISO 13400) using the UDS
(ISO 14229) diagnostic services: session control, read/write data by
identifier, security access, ECU reset and tester present.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newDiscoverCmd())
	rootCmd.AddCommand(newSessionCmd())
	rootCmd.AddCommand(newReadDIDCmd())
	rootCmd.AddCommand(newWriteDIDCmd())
	rootCmd.AddCommand(newResetCmd())
	rootCmd.AddCommand(newTesterPresentCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the godiag version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(os.Stdout, "godiag %s\n", version)
		},
	}
}
