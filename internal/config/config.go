// Package config loads the YAML poll configuration used by dlt645ctl.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/arloliu/go-dlt645/dlt645"
	"github.com/arloliu/go-dlt645/logger"
	"github.com/arloliu/go-dlt645/transport"
)

const (
	DefaultVariant  = "2007"
	DefaultLogLevel = "info"
	DefaultInterval = 10 * time.Second
	MinInterval     = time.Second
)

// Config is the poll configuration file.
type Config struct {
	Variant  string        `yaml:"variant"`
	LogLevel string        `yaml:"log_level"`
	Serial   SerialConfig  `yaml:"serial"`
	Interval time.Duration `yaml:"interval"`
	Meters   []Meter       `yaml:"meters"`
}

// SerialConfig describes the serial link.
type SerialConfig struct {
	Device       string        `yaml:"device"`
	BaudRate     int           `yaml:"baud_rate"`
	Parity       string        `yaml:"parity"`
	DataBits     int           `yaml:"data_bits"`
	StopBits     int           `yaml:"stop_bits"`
	ReadTimeout  time.Duration `yaml:"read_timeout,omitempty"`
	ReplyTimeout time.Duration `yaml:"reply_timeout"`
	RetryLimit   int           `yaml:"retry_limit"`
	Preamble     int           `yaml:"preamble,omitempty"`
}

// Meter is one meter to poll and the fields to read from it.
type Meter struct {
	Name    string   `yaml:"name"`
	Address string   `yaml:"address"`
	Fields  []string `yaml:"fields"`
}

// Default returns a complete example configuration.
func Default() *Config {
	return &Config{
		Variant:  DefaultVariant,
		LogLevel: DefaultLogLevel,
		Serial: SerialConfig{
			Device:       "/dev/ttyUSB0",
			BaudRate:     transport.DefaultBaudRate,
			Parity:       transport.DefaultParity,
			DataBits:     transport.DefaultDataBits,
			StopBits:     transport.DefaultStopBits,
			ReplyTimeout: transport.DefaultReplyTimeout,
			RetryLimit:   1,
		},
		Interval: DefaultInterval,
		Meters: []Meter{
			{
				Name:    "main",
				Address: "1234567890AB",
				Fields: []string{
					string(dlt645.RevisedPhaseAVoltage),
					string(dlt645.RevisedForwardActiveEnergy),
				},
			},
		},
	}
}

// Load reads and validates the configuration file at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return cfg, nil
}

// Parse decodes YAML data, fills in defaults and validates the result.
// Unknown keys are rejected. Addresses and field identifiers are normalized
// to uppercase.
func Parse(data []byte) (*Config, error) {
	var cfg Config

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parse YAML: %w", err)
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}

// Marshal encodes the configuration as YAML.
func (c *Config) Marshal() ([]byte, error) {
	var buf bytes.Buffer

	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(c); err != nil {
		return nil, fmt.Errorf("marshal config: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("marshal config: %w", err)
	}

	return buf.Bytes(), nil
}

func (c *Config) applyDefaults() {
	if c.Variant == "" {
		c.Variant = DefaultVariant
	}
	if c.LogLevel == "" {
		c.LogLevel = DefaultLogLevel
	}
	if c.Interval == 0 {
		c.Interval = DefaultInterval
	}

	s := &c.Serial
	if s.BaudRate == 0 {
		s.BaudRate = transport.DefaultBaudRate
	}
	if s.Parity == "" {
		s.Parity = transport.DefaultParity
	}
	if s.DataBits == 0 {
		s.DataBits = transport.DefaultDataBits
	}
	if s.StopBits == 0 {
		s.StopBits = transport.DefaultStopBits
	}
	if s.ReplyTimeout == 0 {
		s.ReplyTimeout = transport.DefaultReplyTimeout
	}
}

// Validate checks the configuration and normalizes meter addresses and
// field identifiers.
func (c *Config) Validate() error {
	v, err := dlt645.VariantByName(c.Variant)
	if err != nil {
		return fmt.Errorf("variant: %w", err)
	}

	if _, err := logger.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("log_level: %w", err)
	}

	if strings.TrimSpace(c.Serial.Device) == "" {
		return errors.New("serial.device is required")
	}

	if c.Interval < MinInterval {
		return fmt.Errorf("interval must be at least %v, got %v", MinInterval, c.Interval)
	}

	if len(c.Meters) == 0 {
		return errors.New("at least one meter is required")
	}

	seen := make(map[string]int, len(c.Meters))
	for i := range c.Meters {
		m := &c.Meters[i]

		if !dlt645.ValidAddress(m.Address) {
			return fmt.Errorf("meters[%d]: invalid address %q", i, m.Address)
		}
		m.Address = strings.ToUpper(m.Address)
		if m.Address == dlt645.BroadcastAddress {
			return fmt.Errorf("meters[%d]: broadcast address cannot be polled", i)
		}
		if j, dup := seen[m.Address]; dup {
			return fmt.Errorf("meters[%d]: address %s already used by meters[%d]", i, m.Address, j)
		}
		seen[m.Address] = i

		if m.Name == "" {
			m.Name = m.Address
		}

		if len(m.Fields) == 0 {
			return fmt.Errorf("meters[%d]: at least one field is required", i)
		}
		for j, f := range m.Fields {
			id, err := dlt645.ParseFieldID(f, v.IDWidth())
			if err != nil {
				return fmt.Errorf("meters[%d].fields[%d]: %w", i, j, err)
			}
			m.Fields[j] = string(id)
		}
	}

	// the link options are checked by the transport itself
	if _, err := c.TransportConfig(); err != nil {
		return fmt.Errorf("serial: %w", err)
	}

	return nil
}

// ProtocolVariant returns the configured variant.
func (c *Config) ProtocolVariant() (dlt645.Variant, error) {
	return dlt645.VariantByName(c.Variant)
}

// Level returns the configured log level.
func (c *Config) Level() (logger.Level, error) {
	return logger.ParseLevel(c.LogLevel)
}

// TransportConfig builds the serial link configuration. extra options are
// applied last.
func (c *Config) TransportConfig(extra ...transport.Option) (*transport.Config, error) {
	v, err := c.ProtocolVariant()
	if err != nil {
		return nil, err
	}

	s := c.Serial
	opts := []transport.Option{
		transport.WithVariant(v),
		transport.WithBaudRate(s.BaudRate),
		transport.WithParity(s.Parity),
		transport.WithDataBits(s.DataBits),
		transport.WithStopBits(s.StopBits),
		transport.WithReplyTimeout(s.ReplyTimeout),
		transport.WithRetryLimit(s.RetryLimit),
		transport.WithPreamble(s.Preamble),
	}
	if s.ReadTimeout > 0 {
		opts = append(opts, transport.WithReadTimeout(s.ReadTimeout))
	}

	return transport.NewConfig(s.Device, append(opts, extra...)...)
}

// FieldIDs returns the meter's fields as identifiers. Call it on a
// validated configuration.
func (m Meter) FieldIDs() []dlt645.FieldID {
	ids := make([]dlt645.FieldID, len(m.Fields))
	for i, f := range m.Fields {
		ids[i] = dlt645.FieldID(f)
	}

	return ids
}
