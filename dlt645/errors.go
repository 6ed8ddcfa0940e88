package dlt645

import (
	"errors"
	"fmt"
)

// Sentinel errors for the DL/T 645 codec.
var (
	// Build-side errors.
	ErrInvalidAddress     = errors.New("dlt645: invalid meter address")
	ErrInvalidFieldID     = errors.New("dlt645: invalid field identifier")
	ErrInvalidControlCode = errors.New("dlt645: control code not supported by variant")
	ErrPayloadTooLong     = errors.New("dlt645: payload exceeds 255 bytes")

	// Parse-side errors.
	ErrFrameTooShort     = errors.New("dlt645: frame too short")
	ErrDelimiterMismatch = errors.New("dlt645: frame delimiter mismatch")
	ErrLengthMismatch    = errors.New("dlt645: frame length mismatch")
	ErrChecksumMismatch  = errors.New("dlt645: checksum mismatch")
)

// BuildError reports a malformed builder input. Field names the offending
// argument ("address", "field", "control", "payload") and Value holds it as
// the caller supplied it.
type BuildError struct {
	Field string
	Value string
	Err   error
}

func (e *BuildError) Error() string {
	return fmt.Sprintf("%v: %s %q", e.Err, e.Field, e.Value)
}

func (e *BuildError) Unwrap() error { return e.Err }

// LengthMismatchError is returned when the declared payload length does not
// agree with the size of the received buffer.
type LengthMismatchError struct {
	Expected int
	Actual   int
}

func (e *LengthMismatchError) Error() string {
	return fmt.Sprintf("%v: expected %d bytes, got %d", ErrLengthMismatch, e.Expected, e.Actual)
}

func (e *LengthMismatchError) Unwrap() error { return ErrLengthMismatch }

// ChecksumMismatchError carries the recomputed checksum and the one found on
// the wire.
type ChecksumMismatchError struct {
	Expected byte
	Actual   byte
}

func (e *ChecksumMismatchError) Error() string {
	return fmt.Sprintf("%v: computed=0x%02X, wire=0x%02X", ErrChecksumMismatch, e.Expected, e.Actual)
}

func (e *ChecksumMismatchError) Unwrap() error { return ErrChecksumMismatch }

func buildErr(field, value string, err error) error {
	return &BuildError{Field: field, Value: value, Err: err}
}
