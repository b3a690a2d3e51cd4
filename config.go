// config.go: CLI configuration loading
//
// Copyright (c) 2025 AGILira
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package conduit

import (
	"fmt"
	"os"
	"time"

	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"
)

// CLIConfig is the optional YAML configuration file read by
// cmd/conduit-send and cmd/conduit-recv. Flags always override values
// loaded from a config file.
type CLIConfig struct {
	// Logging is the logging subsystem configuration.
	Logging LoggingConfig `yaml:"logging"`
	// RingSize is the data-area size in bytes, before the header is
	// added, expressed as a plain byte count (cmd/conduit-send parses the
	// human-readable --ring-size form with github.com/c2h5oh/datasize).
	RingSize int64 `yaml:"ring_size"`
	// HandshakeTimeout bounds WaitReady.
	HandshakeTimeout time.Duration `yaml:"handshake_timeout"`
	// UnlinkOnExit is decoded from the config file, but cmd/conduit-send
	// decides whether to unlink the segment name from its --unlink flag
	// alone; this field is not read by either command.
	UnlinkOnExit bool `yaml:"unlink_on_exit"`
}

// LoggingConfig is the configuration for the logging subsystem.
type LoggingConfig struct {
	Level zapcore.Level `yaml:"level"`
}

// DefaultCLIConfig returns the configuration used when no --config file
// is given.
func DefaultCLIConfig() *CLIConfig {
	return &CLIConfig{
		Logging:          LoggingConfig{Level: zapcore.InfoLevel},
		RingSize:         1 << 20,
		HandshakeTimeout: 5 * time.Second,
		UnlinkOnExit:     false,
	}
}

// LoadCLIConfig loads configuration from the given YAML file path,
// starting from DefaultCLIConfig so unset fields keep their defaults.
func LoadCLIConfig(path string) (*CLIConfig, error) {
	buf, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("conduit: reading config file: %w", err)
	}

	cfg := DefaultCLIConfig()
	if err := yaml.Unmarshal(buf, cfg); err != nil {
		return nil, fmt.Errorf("conduit: parsing config file: %w", err)
	}
	return cfg, nil
}

// HeaderedSize is the total segment size to Open for a ring of the given
// data-area size: the header plus the requested data area.
func HeaderedSize(ringSize int64) int64 {
	return int64(HeaderSize) + ringSize
}
