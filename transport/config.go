package transport

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/goburrow/serial"

	"github.com/arloliu/go-dlt645/dlt645"
	"github.com/arloliu/go-dlt645/logger"
)

// Default serial settings. DL/T 645 meters commonly ship configured for
// 2400 baud, 8 data bits, even parity and one stop bit.
const (
	DefaultBaudRate     = 2400
	DefaultDataBits     = 8
	DefaultStopBits     = 1
	DefaultParity       = "E"
	DefaultReadTimeout  = 100 * time.Millisecond
	DefaultReplyTimeout = 5 * time.Second
	DefaultCloseTimeout = 3 * time.Second
	DefaultRetryLimit   = 0
	DefaultBufferSize   = 512
)

// Limits enforced by the options.
const (
	MinReplyTimeout = 100 * time.Millisecond
	MaxReplyTimeout = 60 * time.Second

	MaxRetryLimit = 5
	MaxPreamble   = 4

	// MinBufferSize fits the longest possible frame.
	MinBufferSize = dlt645.HeaderLen + dlt645.MaxPayloadLen + dlt645.TrailerLen
)

var validBaudRates = []int{1200, 2400, 4800, 9600, 19200, 38400, 57600, 115200}

// Config holds the serial link configuration of a Client.
type Config struct {
	device string

	variant dlt645.Variant

	baudRate int
	dataBits int
	stopBits int
	parity   string

	// readTimeout bounds each read of the port so the reader can notice
	// Close.
	readTimeout  time.Duration
	replyTimeout time.Duration
	closeTimeout time.Duration
	retryLimit   int

	// preamble is the number of 0xFE wake-up bytes sent before each frame.
	preamble int

	bufferSize int

	logger logger.Logger
}

// NewConfig creates a link configuration for the serial device, for example
// "/dev/ttyUSB0" or "COM3". opts are applied in order.
func NewConfig(device string, opts ...Option) (*Config, error) {
	device = strings.TrimSpace(device)
	if device == "" {
		return nil, errors.New("transport: serial device must not be empty")
	}

	cfg := &Config{
		device:       device,
		variant:      dlt645.Revised,
		baudRate:     DefaultBaudRate,
		dataBits:     DefaultDataBits,
		stopBits:     DefaultStopBits,
		parity:       DefaultParity,
		readTimeout:  DefaultReadTimeout,
		replyTimeout: DefaultReplyTimeout,
		closeTimeout: DefaultCloseTimeout,
		retryLimit:   DefaultRetryLimit,
		bufferSize:   DefaultBufferSize,
		logger:       logger.GetLogger(),
	}

	for _, opt := range opts {
		if err := opt.apply(cfg); err != nil {
			return nil, err
		}
	}

	return cfg, nil
}

// Device returns the serial device path.
func (cfg *Config) Device() string { return cfg.device }

// Variant returns the protocol variant spoken on the link.
func (cfg *Config) Variant() dlt645.Variant { return cfg.variant }

// BaudRate returns the line speed.
func (cfg *Config) BaudRate() int { return cfg.baudRate }

// DataBits returns the number of data bits per character.
func (cfg *Config) DataBits() int { return cfg.dataBits }

// StopBits returns the number of stop bits.
func (cfg *Config) StopBits() int { return cfg.stopBits }

// Parity returns "N", "E" or "O".
func (cfg *Config) Parity() string { return cfg.parity }

// ReadTimeout returns the per-read timeout of the port.
func (cfg *Config) ReadTimeout() time.Duration { return cfg.readTimeout }

// ReplyTimeout returns how long a transaction waits for the meter's reply.
func (cfg *Config) ReplyTimeout() time.Duration { return cfg.replyTimeout }

// RetryLimit returns how many times an unanswered request is resent.
func (cfg *Config) RetryLimit() int { return cfg.retryLimit }

// Preamble returns the number of wake-up bytes sent before each frame.
func (cfg *Config) Preamble() int { return cfg.preamble }

// BufferSize returns the receive ring capacity in bytes.
func (cfg *Config) BufferSize() int { return cfg.bufferSize }

// GetLogger returns the configured logger.
func (cfg *Config) GetLogger() logger.Logger { return cfg.logger }

func (cfg *Config) serialConfig() *serial.Config {
	return &serial.Config{
		Address:  cfg.device,
		BaudRate: cfg.baudRate,
		DataBits: cfg.dataBits,
		StopBits: cfg.stopBits,
		Parity:   cfg.parity,
		Timeout:  cfg.readTimeout,
	}
}

// Option is a functional option for configuring a Config.
type Option interface {
	apply(*Config) error
}

type optFunc func(*Config) error

func (f optFunc) apply(cfg *Config) error { return f(cfg) }

// WithVariant sets the protocol variant. The default is dlt645.Revised.
func WithVariant(v dlt645.Variant) Option {
	return optFunc(func(cfg *Config) error {
		if v.IDWidth() == 0 {
			return errors.New("transport: protocol variant is not set")
		}
		cfg.variant = v

		return nil
	})
}

// WithBaudRate sets the line speed.
func WithBaudRate(rate int) Option {
	return optFunc(func(cfg *Config) error {
		if !slices.Contains(validBaudRates, rate) {
			return fmt.Errorf("transport: unsupported baud rate %d", rate)
		}
		cfg.baudRate = rate

		return nil
	})
}

// WithDataBits sets the number of data bits, 5 to 8.
func WithDataBits(n int) Option {
	return optFunc(func(cfg *Config) error {
		if n < 5 || n > 8 {
			return fmt.Errorf("transport: data bits %d out of range [5, 8]", n)
		}
		cfg.dataBits = n

		return nil
	})
}

// WithStopBits sets the number of stop bits, 1 or 2.
func WithStopBits(n int) Option {
	return optFunc(func(cfg *Config) error {
		if n != 1 && n != 2 {
			return fmt.Errorf("transport: stop bits %d must be 1 or 2", n)
		}
		cfg.stopBits = n

		return nil
	})
}

// WithParity sets the parity: "N" (none), "E" (even) or "O" (odd).
func WithParity(p string) Option {
	return optFunc(func(cfg *Config) error {
		switch p = strings.ToUpper(strings.TrimSpace(p)); p {
		case "N", "E", "O":
			cfg.parity = p
			return nil
		default:
			return fmt.Errorf("transport: invalid parity %q", p)
		}
	})
}

// WithReadTimeout sets the per-read timeout of the port.
func WithReadTimeout(d time.Duration) Option {
	return optFunc(func(cfg *Config) error {
		if d <= 0 {
			return errors.New("transport: read timeout must be positive")
		}
		cfg.readTimeout = d

		return nil
	})
}

// WithReplyTimeout sets how long a transaction waits for a reply.
func WithReplyTimeout(d time.Duration) Option {
	return optFunc(func(cfg *Config) error {
		if d < MinReplyTimeout || d > MaxReplyTimeout {
			return fmt.Errorf("transport: reply timeout %v out of range [%v, %v]", d, MinReplyTimeout, MaxReplyTimeout)
		}
		cfg.replyTimeout = d

		return nil
	})
}

// WithCloseTimeout sets how long Close waits for the reader to stop.
func WithCloseTimeout(d time.Duration) Option {
	return optFunc(func(cfg *Config) error {
		if d <= 0 {
			return errors.New("transport: close timeout must be positive")
		}
		cfg.closeTimeout = d

		return nil
	})
}

// WithRetryLimit sets how many times an unanswered request is resent.
func WithRetryLimit(n int) Option {
	return optFunc(func(cfg *Config) error {
		if n < 0 || n > MaxRetryLimit {
			return fmt.Errorf("transport: retry limit %d out of range [0, %d]", n, MaxRetryLimit)
		}
		cfg.retryLimit = n

		return nil
	})
}

// WithPreamble sets the number of 0xFE wake-up bytes sent in front of each
// frame. Some meters need them to leave power-saving mode. The default is 0.
func WithPreamble(n int) Option {
	return optFunc(func(cfg *Config) error {
		if n < 0 || n > MaxPreamble {
			return fmt.Errorf("transport: preamble %d out of range [0, %d]", n, MaxPreamble)
		}
		cfg.preamble = n

		return nil
	})
}

// WithBufferSize sets the receive ring capacity.
func WithBufferSize(size int) Option {
	return optFunc(func(cfg *Config) error {
		if size < MinBufferSize {
			return fmt.Errorf("transport: buffer size %d below minimum %d", size, MinBufferSize)
		}
		cfg.bufferSize = size

		return nil
	})
}

// WithLogger sets the logger for the link.
func WithLogger(l logger.Logger) Option {
	return optFunc(func(cfg *Config) error {
		if l == nil {
			return errors.New("transport: logger must not be nil")
		}
		cfg.logger = l

		return nil
	})
}
