package dlt645

import (
	"encoding/hex"
	"fmt"
	"slices"
	"strings"
)

// Frame delimiters and fixed layout sizes.
//
//	0x68 | address[6] | control | length | payload[length] | checksum | 0x16
const (
	StartByte byte = 0x68
	EndByte   byte = 0x16

	// HeaderLen covers the start byte, address, control and length bytes.
	HeaderLen = 1 + AddressLen + 1 + 1
	// TrailerLen covers the checksum and end byte.
	TrailerLen = 2

	// MaxPayloadLen is the largest payload the length byte can declare.
	MaxPayloadLen = 255
)

// Frame is an outbound command frame. Frames are produced by the Build*
// methods of Codec and are immutable.
type Frame struct {
	address  [AddressLen]byte
	control  ControlCode
	payload  []byte
	checksum byte
}

func newFrame(addr [AddressLen]byte, control ControlCode, payload []byte) (Frame, error) {
	if len(payload) > MaxPayloadLen {
		return Frame{}, buildErr("payload", fmt.Sprintf("%d bytes", len(payload)), ErrPayloadTooLong)
	}

	length := byte(len(payload))

	return Frame{
		address:  addr,
		control:  control,
		payload:  payload,
		checksum: Checksum(addr[:], byte(control), length, payload),
	}, nil
}

// Address returns the wire-form (inverted, reversed) address.
func (f Frame) Address() [AddressLen]byte { return f.address }

// Control returns the control code.
func (f Frame) Control() ControlCode { return f.control }

// Payload returns a copy of the payload.
func (f Frame) Payload() []byte { return slices.Clone(f.payload) }

// Checksum returns the frame checksum byte.
func (f Frame) Checksum() byte { return f.checksum }

// Len returns the encoded frame size: HeaderLen + len(payload) + TrailerLen.
func (f Frame) Len() int { return HeaderLen + len(f.payload) + TrailerLen }

// Bytes encodes the frame. Each call returns a new slice.
func (f Frame) Bytes() []byte {
	buf := make([]byte, 0, f.Len())
	buf = append(buf, StartByte)
	buf = append(buf, f.address[:]...)
	buf = append(buf, byte(f.control), byte(len(f.payload)))
	buf = append(buf, f.payload...)
	buf = append(buf, f.checksum, EndByte)

	return buf
}

// Hex returns the encoded frame as space separated uppercase hex.
func (f Frame) Hex() string { return FormatHex(f.Bytes()) }

func (f Frame) String() string {
	return fmt.Sprintf("%s [%s]", f.control, f.Hex())
}

// FormatHex renders b as uppercase hex bytes separated by single spaces,
// e.g. "68 69 BD".
func FormatHex(b []byte) string {
	if len(b) == 0 {
		return ""
	}

	var sb strings.Builder
	sb.Grow(len(b) * 3)
	for i, v := range b {
		if i > 0 {
			sb.WriteByte(' ')
		}
		fmt.Fprintf(&sb, "%02X", v)
	}

	return sb.String()
}

// ParseHex decodes a hex string. Whitespace between digits is ignored, so
// both "6869BD" and "68 69 BD" are accepted.
func ParseHex(s string) ([]byte, error) {
	clean := strings.Join(strings.Fields(s), "")

	b, err := hex.DecodeString(clean)
	if err != nil {
		return nil, fmt.Errorf("dlt645: invalid hex string: %w", err)
	}

	return b, nil
}
