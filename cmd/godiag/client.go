package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/openmotive/godiag/doip"
	"github.com/openmotive/godiag/internal/config"
	"github.com/openmotive/godiag/uds"
)

// clientFlags are shared by every command that opens a diagnostic
// session.
type clientFlags struct {
	configPath string
	host       string
	port       int
	ecu        uint16
	tester     uint16
	timeout    time.Duration
	verbose    bool
}

func (f *clientFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.configPath, "config", "", "Path to YAML configuration file")
	cmd.Flags().StringVar(&f.host, "host", "", "DoIP entity host (overrides config)")
	cmd.Flags().IntVar(&f.port, "port", 0, "DoIP entity port (overrides config)")
	cmd.Flags().Uint16Var(&f.ecu, "ecu", 0, "ECU logical address (overrides config)")
	cmd.Flags().Uint16Var(&f.tester, "tester", 0, "Tester logical address (overrides config)")
	cmd.Flags().DurationVar(&f.timeout, "timeout", 0, "Per-request timeout (overrides config)")
	cmd.Flags().BoolVar(&f.verbose, "verbose", false, "Log protocol traffic to stderr")
}

func (f *clientFlags) load() (config.Config, error) {
	cfg := config.Default()
	if f.configPath != "" {
		loaded, err := config.Load(f.configPath)
		if err != nil {
			return config.Config{}, err
		}
		cfg = loaded
	}
	if f.host != "" {
		cfg.Host = f.host
	}
	if f.port != 0 {
		cfg.Port = f.port
	}
	if f.ecu != 0 {
		cfg.ECUAddress = f.ecu
	}
	if f.tester != 0 {
		cfg.TesterAddress = f.tester
	}
	if f.timeout != 0 {
		cfg.RequestTimeoutMs = int(f.timeout / time.Millisecond)
	}
	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

func (f *clientFlags) logWriter() io.Writer {
	if f.verbose {
		return os.Stderr
	}
	return io.Discard
}

// connect opens the DoIP channel and builds the UDS client on top of it.
// The returned closer releases the socket on every exit path.
func (f *clientFlags) connect() (*uds.Client, func(), error) {
	cfg, err := f.load()
	if err != nil {
		return nil, nil, err
	}

	logger := doip.NewLoggerWithWriter(f.logWriter())
	conn := doip.NewConn(logger, cfg.TesterAddress, cfg.Server())
	conn.SetReadTimeout(cfg.RequestTimeout())
	if err := conn.Connect(); err != nil {
		return nil, nil, fmt.Errorf("connect to %s: %w", cfg.Server(), err)
	}

	client := uds.NewClientWithTimeout(logger, conn, cfg.ECUAddress, cfg.RequestTimeout(), cfg.PendingMax)
	client.RegisterCodecs(cfg.Codecs())
	return client, conn.Disconnect, nil
}

// reportErr renders UDS failures the way a tester expects: negative
// responses with service, code name and raw code.
func reportErr(err error) error {
	if nre, ok := uds.AsNegativeResponse(err); ok {
		return fmt.Errorf("server refused %s with %q (0x%02X)",
			uds.ServiceName(nre.ServiceID), uds.NRCName(nre.Code), nre.Code)
	}
	return err
}

func parseDID(s string) (uint16, error) {
	var did uint16
	if _, err := fmt.Sscanf(s, "0x%x", &did); err == nil {
		return did, nil
	}
	if _, err := fmt.Sscanf(s, "%d", &did); err == nil {
		return did, nil
	}
	return 0, fmt.Errorf("invalid data identifier %q", s)
}
