// Package config loads the YAML client configuration: addresses, timing
// and the data-identifier codec table.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/openmotive/godiag/uds"
)

// Codec names accepted in data_identifiers entries.
const (
	CodecASCII = "ascii"
	CodecBytes = "bytes"
)

// DataIdentifier configures the codec for one 16-bit identifier.
type DataIdentifier struct {
	Codec  string `yaml:"codec"`
	Length int    `yaml:"length,omitempty"`
}

// Config is the diagnostic client configuration.
type Config struct {
	Host             string                    `yaml:"host"`
	Port             int                       `yaml:"port"`
	TesterAddress    uint16                    `yaml:"tester_address"`
	ECUAddress       uint16                    `yaml:"ecu_address"`
	RequestTimeoutMs int                       `yaml:"request_timeout_ms"`
	PendingMax       int                       `yaml:"pending_max"`
	DataIdentifiers  map[uint16]DataIdentifier `yaml:"data_identifiers"`
}

// Default returns the configuration used when no file is given: localhost
// entity on the ISO discovery port, the conventional tester address and a
// VIN codec.
func Default() Config {
	return Config{
		Host:             "127.0.0.1",
		Port:             13400,
		TesterAddress:    0x0E80,
		ECUAddress:       0x00E0,
		RequestTimeoutMs: 2000,
		PendingMax:       5,
		DataIdentifiers: map[uint16]DataIdentifier{
			uds.DIDVIN: {Codec: CodecASCII, Length: 17},
		},
	}
}

// Load reads and validates a configuration file.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate fills defaults and rejects inconsistent settings.
func (c *Config) Validate() error {
	if c.Host == "" {
		c.Host = "127.0.0.1"
	}
	if c.Port == 0 {
		c.Port = 13400
	}
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("config: port %d out of range", c.Port)
	}
	if c.RequestTimeoutMs <= 0 {
		c.RequestTimeoutMs = 2000
	}
	if c.PendingMax < 0 {
		return fmt.Errorf("config: pending_max must not be negative")
	}
	for did, d := range c.DataIdentifiers {
		switch d.Codec {
		case CodecASCII:
			if d.Length <= 0 {
				return fmt.Errorf("config: data identifier 0x%04X: ascii codec needs a positive length", did)
			}
		case CodecBytes:
		default:
			return fmt.Errorf("config: data identifier 0x%04X: unknown codec %q", did, d.Codec)
		}
	}
	return nil
}

// Server returns the "host:port" target of the DoIP entity.
func (c Config) Server() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// RequestTimeout returns the per-exchange timeout.
func (c Config) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutMs) * time.Millisecond
}

// Codecs builds the UDS codec table from the configured identifiers.
func (c Config) Codecs() uds.CodecMap {
	m := make(uds.CodecMap, len(c.DataIdentifiers))
	for did, d := range c.DataIdentifiers {
		switch d.Codec {
		case CodecASCII:
			m[did] = uds.ASCIICodec{Length: d.Length}
		case CodecBytes:
			m[did] = uds.BytesCodec{}
		}
	}
	return m
}
