package transport

import "errors"

var (
	ErrNotOpen      = errors.New("transport: client is not open")
	ErrAlreadyOpen  = errors.New("transport: client is already open")
	ErrClosed       = errors.New("transport: client closed")
	ErrReplyTimeout = errors.New("transport: reply timeout")
	ErrNoReply      = errors.New("transport: broadcast frames get no reply")
	ErrFieldMissing = errors.New("transport: field missing from reply")
)
