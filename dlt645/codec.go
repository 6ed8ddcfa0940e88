package dlt645

import (
	"errors"
	"fmt"

	"github.com/arloliu/go-dlt645/logger"
)

// Codec builds and parses frames for one protocol variant.
//
// A Codec holds no mutable state; all methods are safe for concurrent use.
type Codec struct {
	variant  Variant
	registry *Registry
	logger   logger.Logger
}

// NewCodec creates a codec for the given variant. Unless WithRegistry is
// supplied, the variant's built-in registry is used.
func NewCodec(v Variant, opts ...Option) (*Codec, error) {
	if v.isZero() {
		return nil, errors.New("dlt645: protocol variant is not set")
	}

	c := &Codec{
		variant:  v,
		registry: v.registry,
		logger:   logger.GetLogger(),
	}

	for _, opt := range opts {
		if err := opt.apply(c); err != nil {
			return nil, err
		}
	}

	if c.registry.IDWidth() != v.idWidth {
		return nil, fmt.Errorf("dlt645: registry identifier width %d does not match %s width %d",
			c.registry.IDWidth(), v, v.idWidth)
	}

	return c, nil
}

// MustNewCodec is like NewCodec but panics on error.
func MustNewCodec(v Variant, opts ...Option) *Codec {
	c, err := NewCodec(v, opts...)
	if err != nil {
		panic(err)
	}

	return c
}

// Variant returns the codec's protocol variant.
func (c *Codec) Variant() Variant { return c.variant }

// Registry returns the field registry used for payload decoding.
func (c *Codec) Registry() *Registry { return c.registry }

// Option configures a Codec.
type Option interface {
	apply(*Codec) error
}

type optFunc func(*Codec) error

func (f optFunc) apply(c *Codec) error { return f(c) }

// WithRegistry replaces the variant's built-in field registry.
func WithRegistry(r *Registry) Option {
	return optFunc(func(c *Codec) error {
		if r == nil {
			return errors.New("dlt645: registry must not be nil")
		}
		c.registry = r

		return nil
	})
}

// WithLogger sets the logger used for decode diagnostics.
func WithLogger(l logger.Logger) Option {
	return optFunc(func(c *Codec) error {
		if l == nil {
			return errors.New("dlt645: logger must not be nil")
		}
		c.logger = l

		return nil
	})
}
