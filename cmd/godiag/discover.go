package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/openmotive/godiag/doip"
)

type discoverFlags struct {
	broadcast string
	timeout   time.Duration
	verbose   bool
}

func newDiscoverCmd() *cobra.Command {
	flags := &discoverFlags{}

	cmd := &cobra.Command{
		Use:   "discover",
		Short: "Discover DoIP entities via vehicle identification",
		Long: `Broadcast a vehicle identification request on UDP port 13400 and print
the first vehicle announcement: VIN, logical address, EID and GID.`,
		Example: `  # Discover on the local broadcast domain
  godiag discover

  # Ask a specific entity
  godiag discover --broadcast 192.168.7.2:13400 --timeout 5s`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDiscover(flags)
		},
	}

	cmd.Flags().StringVar(&flags.broadcast, "broadcast", "255.255.255.255:13400", "Broadcast target for the identification request")
	cmd.Flags().DurationVar(&flags.timeout, "timeout", 2*time.Second, "How long to wait for an announcement")
	cmd.Flags().BoolVar(&flags.verbose, "verbose", false, "Log protocol traffic to stderr")

	return cmd
}

func runDiscover(flags *discoverFlags) error {
	w := os.Stderr
	logger := doip.NewLogger()
	if flags.verbose {
		logger = doip.NewLoggerWithWriter(w)
	}

	ann, err := doip.Discover(logger, flags.broadcast, flags.timeout)
	if err != nil {
		if err == doip.ErrTimeout {
			return fmt.Errorf("no response from any DoIP entity within %v", flags.timeout)
		}
		return err
	}

	fmt.Fprintf(os.Stdout, "Entity:          %s:%d\n", ann.IP, ann.Port)
	fmt.Fprintf(os.Stdout, "VIN:             %s\n", ann.VIN)
	fmt.Fprintf(os.Stdout, "Logical address: 0x%04X\n", ann.LogicalAddress)
	fmt.Fprintf(os.Stdout, "EID:             %X\n", ann.EID[:])
	fmt.Fprintf(os.Stdout, "GID:             %X\n", ann.GID[:])
	return nil
}
