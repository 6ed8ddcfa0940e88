package dlt645

import (
	"encoding/hex"
	"fmt"
	"strings"
)

// AddressLen is the size of the meter address field in bytes.
const AddressLen = 6

// BroadcastAddress is the canonical all-meters address. Its wire form is six
// zero bytes.
const BroadcastAddress = "FFFFFFFFFFFF"

var broadcastWire = [AddressLen]byte{}

// EncodeAddress converts a 12-hex-digit canonical meter address into its wire
// form: byte order reversed, then every byte inverted (0xFF - b).
func EncodeAddress(addr string) ([AddressLen]byte, error) {
	var wire [AddressLen]byte

	if !isHex(addr, AddressLen*2) {
		return wire, buildErr("address", addr, ErrInvalidAddress)
	}

	var canon [AddressLen]byte
	// isHex guarantees the decode cannot fail.
	_, _ = hex.Decode(canon[:], []byte(addr))

	for i := range AddressLen {
		wire[i] = 0xFF - canon[AddressLen-1-i]
	}

	return wire, nil
}

// DecodeAddress is the inverse of EncodeAddress. It returns the canonical
// address in uppercase hex.
func DecodeAddress(wire []byte) (string, error) {
	if len(wire) != AddressLen {
		return "", fmt.Errorf("%w: got %d bytes, want %d", ErrInvalidAddress, len(wire), AddressLen)
	}

	canon := make([]byte, AddressLen)
	for i := range AddressLen {
		canon[AddressLen-1-i] = 0xFF - wire[i]
	}

	return strings.ToUpper(hex.EncodeToString(canon)), nil
}

// ValidAddress reports whether addr is a well-formed canonical address.
func ValidAddress(addr string) bool {
	return isHex(addr, AddressLen*2)
}

func isHex(s string, n int) bool {
	if len(s) != n {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= '0' && c <= '9', c >= 'a' && c <= 'f', c >= 'A' && c <= 'F':
		default:
			return false
		}
	}

	return true
}
