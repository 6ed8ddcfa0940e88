package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"sync"
	"sync/atomic"

	"github.com/goburrow/serial"
	"github.com/puzpuzpuz/xsync/v3"

	"github.com/arloliu/go-dlt645/dlt645"
	"github.com/arloliu/go-dlt645/internal/pool"
	"github.com/arloliu/go-dlt645/logger"
)

const readChunkSize = 256

// openPort opens the serial device. Tests replace it.
var openPort = func(c *serial.Config) (io.ReadWriteCloser, error) {
	return serial.Open(c)
}

// UnsolicitedHandler receives valid frames that no transaction was waiting
// for, such as replies that arrived after their timeout or frames from
// another master on the bus.
type UnsolicitedHandler func(*dlt645.ParsedFrame)

type reply struct {
	frame *dlt645.ParsedFrame
	err   error
}

// Client is the master side of a DL/T 645 serial bus.
//
// The bus is half-duplex: transactions are serialized and only one request
// is outstanding at a time. A reader goroutine pulls bytes from the port,
// cuts them into frames and hands each reply to the transaction waiting for
// that meter address.
//
// All methods are safe for concurrent use.
type Client struct {
	cfg    *Config
	codec  *dlt645.Codec
	logger logger.Logger

	onUnsolicited UnsolicitedHandler

	mu         sync.Mutex // guards port, opened and readerDone
	port       io.ReadWriteCloser
	opened     bool
	readerDone chan struct{}

	// ctx is cancelled with the reason when the client is closed or the
	// reader fails.
	ctx    context.Context
	cancel context.CancelCauseFunc
	closed atomic.Bool

	txMu    sync.Mutex
	pending *xsync.MapOf[string, chan reply]
	ring    *frameRing

	metrics Metrics
}

// ClientOption is a functional option for configuring a Client.
type ClientOption interface {
	apply(*Client) error
}

type clientOptFunc func(*Client) error

func (f clientOptFunc) apply(c *Client) error { return f(c) }

// WithPort makes the client use rw instead of opening the configured serial
// device, for example a TCP transparent gateway or one end of net.Pipe in
// tests. The client takes ownership of rw and closes it on Close.
func WithPort(rw io.ReadWriteCloser) ClientOption {
	return clientOptFunc(func(c *Client) error {
		if rw == nil {
			return errors.New("transport: port must not be nil")
		}
		c.port = rw

		return nil
	})
}

// WithUnsolicitedHandler sets the handler for frames no transaction was
// waiting for. The handler runs on the reader goroutine and must not block.
func WithUnsolicitedHandler(h UnsolicitedHandler) ClientOption {
	return clientOptFunc(func(c *Client) error {
		c.onUnsolicited = h
		return nil
	})
}

// NewClient creates a client for the given link configuration. The client
// does not touch the line until Open is called.
func NewClient(cfg *Config, opts ...ClientOption) (*Client, error) {
	if cfg == nil {
		return nil, errors.New("transport: config is nil")
	}

	codec, err := dlt645.NewCodec(cfg.variant, dlt645.WithLogger(cfg.logger))
	if err != nil {
		return nil, err
	}

	c := &Client{
		cfg:     cfg,
		codec:   codec,
		logger:  cfg.logger.With("device", cfg.device),
		pending: xsync.NewMapOf[string, chan reply](),
		ring:    newFrameRing(cfg.bufferSize),
	}
	c.ctx, c.cancel = context.WithCancelCause(context.Background())

	for _, opt := range opts {
		if err := opt.apply(c); err != nil {
			return nil, err
		}
	}

	return c, nil
}

// Codec returns the codec used to build and parse frames.
func (c *Client) Codec() *dlt645.Codec { return c.codec }

// Config returns the link configuration.
func (c *Client) Config() *Config { return c.cfg }

// Metrics returns the client's counters.
func (c *Client) Metrics() *Metrics { return &c.metrics }

// Open opens the serial port, unless one was supplied with WithPort, and
// starts the reader. A closed client cannot be reopened.
func (c *Client) Open(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed.Load() {
		return ErrClosed
	}
	if c.opened {
		return ErrAlreadyOpen
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	if c.port == nil {
		port, err := openPort(c.cfg.serialConfig())
		if err != nil {
			return fmt.Errorf("transport: open %s: %w", c.cfg.device, err)
		}
		c.port = port
	}

	c.opened = true
	c.readerDone = make(chan struct{})
	go c.readLoop(c.port, c.readerDone)

	c.logger.Info("transport: link opened",
		"variant", c.cfg.variant.String(),
		"baudRate", c.cfg.baudRate,
		"parity", c.cfg.parity,
	)

	return nil
}

// Close stops the reader, closes the port and fails any transaction in
// progress with ErrClosed. Close is idempotent.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}
	c.cancel(ErrClosed)

	if c.port == nil {
		return nil
	}

	err := c.port.Close()

	if c.readerDone != nil {
		timer := pool.GetTimer(c.cfg.closeTimeout)
		defer pool.PutTimer(timer)

		select {
		case <-c.readerDone:
		case <-timer.C:
			c.logger.Error("transport: reader did not stop", "timeout", c.cfg.closeTimeout)
			return errors.New("transport: close timeout")
		}
	}

	c.logger.Debug("transport: link closed")

	if err != nil && !isClosedErr(err) {
		return fmt.Errorf("transport: close port: %w", err)
	}

	return nil
}

// Transact sends a request frame and waits for the reply from the
// addressed meter. A request that goes unanswered within the reply timeout
// is resent up to RetryLimit times. Corrupt replies are dropped by the
// reader and so count as unanswered.
func (c *Client) Transact(ctx context.Context, frame dlt645.Frame) (*dlt645.ParsedFrame, error) {
	wire := frame.Address()

	addr, err := dlt645.DecodeAddress(wire[:])
	if err != nil {
		return nil, err
	}
	if addr == dlt645.BroadcastAddress {
		return nil, ErrNoReply
	}

	if err := c.checkOpen(); err != nil {
		return nil, err
	}

	c.txMu.Lock()
	defer c.txMu.Unlock()

	ch := make(chan reply, 1)
	c.pending.Store(addr, ch)
	defer c.pending.Delete(addr)

	c.metrics.setInflight(true)
	defer c.metrics.setInflight(false)

	var lastErr error
	for attempt := 0; attempt <= c.cfg.retryLimit; attempt++ {
		if attempt > 0 {
			c.metrics.incRetryCount()
			c.logger.Debug("transport: resend request", "meter", addr, "attempt", attempt+1)
		}

		if err := c.send(frame); err != nil {
			return nil, err
		}

		pf, err := c.waitReply(ctx, ch, addr)
		if err == nil {
			return pf, nil
		}
		if !errors.Is(err, ErrReplyTimeout) {
			return nil, err
		}
		lastErr = err
	}

	return nil, lastErr
}

// Read reads one field from the meter at addr.
func (c *Client) Read(ctx context.Context, addr string, id dlt645.FieldID) (dlt645.FieldValue, error) {
	canon, err := dlt645.ParseFieldID(string(id), c.cfg.variant.IDWidth())
	if err != nil {
		return dlt645.FieldValue{}, err
	}

	frame, err := c.codec.BuildRead(addr, canon)
	if err != nil {
		return dlt645.FieldValue{}, err
	}

	pf, err := c.Transact(ctx, frame)
	if err != nil {
		return dlt645.FieldValue{}, err
	}

	v, ok := pf.Field(canon)
	if !ok {
		return dlt645.FieldValue{}, fmt.Errorf("%w: %s from meter %s", ErrFieldMissing, canon, pf.Address)
	}

	return v, nil
}

// ReadMulti reads several fields in one request. Fields the meter left out
// are absent from the returned frame.
func (c *Client) ReadMulti(ctx context.Context, addr string, ids []dlt645.FieldID) (*dlt645.ParsedFrame, error) {
	frame, err := c.codec.BuildMultiRead(addr, ids)
	if err != nil {
		return nil, err
	}

	return c.Transact(ctx, frame)
}

// Write writes value to a field and returns the meter's acknowledgement.
func (c *Client) Write(ctx context.Context, addr string, id dlt645.FieldID, value []byte) (*dlt645.ParsedFrame, error) {
	frame, err := c.codec.BuildWrite(addr, id, value)
	if err != nil {
		return nil, err
	}

	return c.Transact(ctx, frame)
}

// Switch sends a relay command and returns the reply, which for a query
// carries the switch state field.
func (c *Client) Switch(ctx context.Context, addr string, cmd dlt645.SwitchCommand) (*dlt645.ParsedFrame, error) {
	frame, err := c.codec.BuildSwitch(addr, cmd)
	if err != nil {
		return nil, err
	}

	return c.Transact(ctx, frame)
}

// PowerProtect sends a power-protect command and returns the reply.
func (c *Client) PowerProtect(ctx context.Context, addr string, cmd dlt645.PowerProtectCommand) (*dlt645.ParsedFrame, error) {
	frame, err := c.codec.BuildPowerProtect(addr, cmd)
	if err != nil {
		return nil, err
	}

	return c.Transact(ctx, frame)
}

// Broadcast sends a frame to every meter on the bus. Meters do not answer
// broadcasts, so Broadcast returns once the frame is written.
func (c *Client) Broadcast(ctx context.Context, control dlt645.ControlCode, payload []byte) error {
	frame, err := c.codec.BuildBroadcast(control, payload)
	if err != nil {
		return err
	}

	if err := c.checkOpen(); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	c.txMu.Lock()
	defer c.txMu.Unlock()

	return c.send(frame)
}

func (c *Client) checkOpen() error {
	if c.ctx.Err() != nil {
		return context.Cause(c.ctx)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.opened {
		return ErrNotOpen
	}

	return nil
}

func (c *Client) send(frame dlt645.Frame) error {
	data := make([]byte, 0, c.cfg.preamble+frame.Len())
	for range c.cfg.preamble {
		data = append(data, 0xFE)
	}
	data = append(data, frame.Bytes()...)

	c.logger.Debug("transport: send frame", "frame", frame.Hex())

	for written := 0; written < len(data); {
		n, err := c.port.Write(data[written:])
		written += n

		if err != nil {
			if c.closed.Load() {
				return ErrClosed
			}

			return fmt.Errorf("transport: write frame: %w", err)
		}
	}

	c.metrics.incFrameSendCount()

	return nil
}

func (c *Client) waitReply(ctx context.Context, ch <-chan reply, addr string) (*dlt645.ParsedFrame, error) {
	timer := pool.GetTimer(c.cfg.replyTimeout)
	defer pool.PutTimer(timer)

	select {
	case <-ctx.Done():
		return nil, ctx.Err()

	case <-c.ctx.Done():
		return nil, context.Cause(c.ctx)

	case <-timer.C:
		c.metrics.incTimeoutCount()
		c.logger.Warn("transport: reply timeout", "meter", addr, "timeout", c.cfg.replyTimeout)

		return nil, fmt.Errorf("%w: meter %s after %v", ErrReplyTimeout, addr, c.cfg.replyTimeout)

	case r := <-ch:
		return r.frame, r.err
	}
}

// readLoop runs until the port fails or is closed.
func (c *Client) readLoop(port io.Reader, done chan<- struct{}) {
	defer close(done)

	buf := make([]byte, readChunkSize)
	for {
		n, err := port.Read(buf)
		if n > 0 {
			c.receive(buf[:n])
		}

		if err == nil {
			continue
		}

		if isTimeoutErr(err) && !c.closed.Load() {
			continue
		}

		if c.closed.Load() || isClosedErr(err) {
			c.cancel(ErrClosed)
		} else {
			c.logger.Error("transport: read failed", "error", err)
			c.cancel(fmt.Errorf("%w: %w", ErrClosed, err))
		}

		return
	}
}

func (c *Client) receive(data []byte) {
	if dropped := c.ring.Write(data); dropped > 0 {
		c.metrics.addOverflowBytes(dropped)
		c.logger.Warn("transport: receive buffer overflow", "dropped", dropped)
	}

	for {
		raw, discarded, ok := c.ring.Next()
		if discarded > 0 {
			c.metrics.addDiscardedBytes(discarded)
			c.logger.Debug("transport: discard bytes before frame", "count", discarded)
		}
		if !ok {
			return
		}

		c.dispatch(raw)
	}
}

func (c *Client) dispatch(raw []byte) {
	pf, err := c.codec.Parse(raw)
	if err != nil {
		if errors.Is(err, dlt645.ErrChecksumMismatch) {
			c.metrics.incChecksumErrCount()
		} else {
			c.metrics.incParseErrCount()
		}

		c.logger.Warn("transport: drop invalid frame", "frame", dlt645.FormatHex(raw), "error", err)

		return
	}

	c.metrics.incFrameRecvCount()
	c.logger.Debug("transport: received frame",
		"meter", pf.Address,
		"control", pf.Control.String(),
		"fields", len(pf.Fields),
	)

	if pf.Control.IsResponse() {
		if ch, ok := c.pending.Load(pf.Address); ok {
			select {
			case ch <- reply{frame: pf}:
			default:
				c.logger.Debug("transport: duplicate reply dropped", "meter", pf.Address)
			}

			return
		}
	}

	c.metrics.incUnsolicitedCount()
	if c.onUnsolicited != nil {
		c.onUnsolicited(pf)
	}
}

func isTimeoutErr(err error) bool {
	if errors.Is(err, serial.ErrTimeout) || errors.Is(err, os.ErrDeadlineExceeded) {
		return true
	}

	var te interface{ Timeout() bool }

	return errors.As(err, &te) && te.Timeout()
}

func isClosedErr(err error) bool {
	return errors.Is(err, io.EOF) ||
		errors.Is(err, io.ErrClosedPipe) ||
		errors.Is(err, os.ErrClosed) ||
		errors.Is(err, net.ErrClosed)
}
