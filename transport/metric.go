package transport

import "sync/atomic"

// Metrics contains atomic counters for a Client.
// Metrics can be used as the value of a prometheus CounterFunc or GaugeFunc.
type Metrics struct {
	// FrameSendCount indicates the number of frames written to the line,
	// retries included.
	FrameSendCount atomic.Uint64
	// FrameRecvCount indicates the number of valid frames received.
	FrameRecvCount atomic.Uint64
	// UnsolicitedCount indicates the number of valid frames no transaction
	// was waiting for.
	UnsolicitedCount atomic.Uint64

	// ParseErrCount indicates the number of received frames rejected by the
	// codec for reasons other than a bad checksum.
	ParseErrCount atomic.Uint64
	// ChecksumErrCount indicates the number of received frames with a bad
	// checksum.
	ChecksumErrCount atomic.Uint64

	// TimeoutCount indicates the number of reply timeouts.
	TimeoutCount atomic.Uint64
	// RetryCount indicates the number of resent requests.
	RetryCount atomic.Uint64

	// DiscardedBytes indicates the number of bytes skipped while looking
	// for a frame start, wake-up bytes included.
	DiscardedBytes atomic.Uint64
	// OverflowBytes indicates the number of bytes lost to a full receive
	// buffer.
	OverflowBytes atomic.Uint64

	// InflightGauge is 1 while a transaction waits for its reply.
	InflightGauge atomic.Int32
}

func (m *Metrics) incFrameSendCount() { m.FrameSendCount.Add(1) }

func (m *Metrics) incFrameRecvCount() { m.FrameRecvCount.Add(1) }

func (m *Metrics) incUnsolicitedCount() { m.UnsolicitedCount.Add(1) }

func (m *Metrics) incParseErrCount() { m.ParseErrCount.Add(1) }

func (m *Metrics) incChecksumErrCount() { m.ChecksumErrCount.Add(1) }

func (m *Metrics) incTimeoutCount() { m.TimeoutCount.Add(1) }

func (m *Metrics) incRetryCount() { m.RetryCount.Add(1) }

func (m *Metrics) addDiscardedBytes(n int) { m.DiscardedBytes.Add(uint64(n)) } //nolint:gosec

func (m *Metrics) addOverflowBytes(n int) { m.OverflowBytes.Add(uint64(n)) } //nolint:gosec

func (m *Metrics) setInflight(on bool) {
	if on {
		m.InflightGauge.Store(1)
	} else {
		m.InflightGauge.Store(0)
	}
}
