package dlt645

import (
	"fmt"
	"slices"
	"strconv"
)

// FieldValue is one decoded field of a response payload.
//
// For linear fields Scaled holds the raw value times the scale factor,
// rounded to three decimals, and Text is empty. For custom (status) fields
// Custom is set, Text holds the decoded label and Scaled the raw value.
type FieldValue struct {
	ID     FieldID
	Name   string
	Unit   string
	Raw    uint64
	Scaled float64
	Text   string
	Custom bool
}

// IsText reports whether the field was decoded by a custom rule.
func (v FieldValue) IsText() bool { return v.Custom }

// String returns the display value with its unit, e.g. "230.5 V" or
// "enabled".
func (v FieldValue) String() string {
	if v.IsText() {
		return v.Text
	}

	s := strconv.FormatFloat(v.Scaled, 'f', -1, 64)
	if v.Unit == "" {
		return s
	}

	return s + " " + v.Unit
}

// ParsedFrame is the decoded form of an inbound frame.
type ParsedFrame struct {
	// Address is the canonical (human-readable) meter address.
	Address  string
	Control  ControlCode
	Length   byte
	Payload  []byte
	Checksum byte

	// Fields holds the decoded values keyed by identifier. Order lists the
	// same identifiers in payload order.
	Fields map[FieldID]FieldValue
	Order  []FieldID

	// Skipped lists identifiers found in the payload that are not in the
	// registry. Their values could not be decoded.
	Skipped []FieldID
}

// Field returns the decoded value for id.
func (p *ParsedFrame) Field(id FieldID) (FieldValue, bool) {
	v, ok := p.Fields[id]
	return v, ok
}

// IsBroadcast reports whether the frame carries the broadcast address.
func (p *ParsedFrame) IsBroadcast() bool { return p.Address == BroadcastAddress }

// Values returns the decoded fields in payload order.
func (p *ParsedFrame) Values() []FieldValue {
	out := make([]FieldValue, 0, len(p.Order))
	for _, id := range p.Order {
		out = append(out, p.Fields[id])
	}

	return out
}

// Parse validates buf as one complete frame and decodes it.
//
// Checks run in order and stop at the first failure: minimum size,
// delimiters, declared length against buffer size, checksum. A field whose
// identifier is unknown, or whose value is cut short, is not an error.
func (c *Codec) Parse(buf []byte) (*ParsedFrame, error) {
	if len(buf) < c.variant.minFrameLen {
		return nil, fmt.Errorf("%w: got %d bytes, want at least %d", ErrFrameTooShort, len(buf), c.variant.minFrameLen)
	}

	if buf[0] != StartByte || buf[len(buf)-1] != EndByte {
		return nil, fmt.Errorf("%w: start=0x%02X end=0x%02X", ErrDelimiterMismatch, buf[0], buf[len(buf)-1])
	}

	addrBytes := buf[1 : 1+AddressLen]
	control := buf[1+AddressLen]
	length := buf[HeaderLen-1]

	expected := HeaderLen + int(length) + TrailerLen
	if expected != len(buf) {
		return nil, &LengthMismatchError{Expected: expected, Actual: len(buf)}
	}

	payload := buf[HeaderLen : HeaderLen+int(length)]
	wireChecksum := buf[HeaderLen+int(length)]

	calcChecksum := Checksum(addrBytes, control, length, payload)
	if calcChecksum != wireChecksum {
		return nil, &ChecksumMismatchError{Expected: calcChecksum, Actual: wireChecksum}
	}

	addr, err := DecodeAddress(addrBytes)
	if err != nil {
		return nil, err
	}

	pf := &ParsedFrame{
		Address:  addr,
		Control:  ControlCode(control),
		Length:   length,
		Payload:  slices.Clone(payload),
		Checksum: wireChecksum,
	}
	pf.Fields, pf.Order, pf.Skipped = c.DecodePayload(pf.Payload)

	return pf, nil
}

// DecodePayload decodes a payload made of identifier/value pairs.
//
// An identifier that is not in the registry has no known value width, so the
// decoder moves past the identifier only and reads the following bytes as the
// next identifier. Such identifiers are returned in skipped. Decoding stops
// quietly when fewer bytes remain than a field needs.
func (c *Codec) DecodePayload(payload []byte) (fields map[FieldID]FieldValue, order []FieldID, skipped []FieldID) {
	fields = make(map[FieldID]FieldValue)
	width := c.variant.idWidth

	for offset := 0; offset+width <= len(payload); {
		id := fieldIDFromBytes(payload[offset : offset+width])
		offset += width

		desc, ok := c.registry.Lookup(id)
		if !ok {
			c.logger.Debug("dlt645: skip unregistered field", "id", id, "offset", offset-width)
			skipped = append(skipped, id)

			continue
		}

		if offset+desc.Width > len(payload) {
			c.logger.Debug("dlt645: truncated field value",
				"id", id,
				"want", desc.Width,
				"remaining", len(payload)-offset,
			)

			break
		}

		raw := decodeUint(payload[offset:offset+desc.Width], desc.Order)
		offset += desc.Width

		scaled, text := desc.Rule.apply(raw)
		_, custom := desc.Rule.(Custom)
		if _, dup := fields[id]; !dup {
			order = append(order, id)
		}
		fields[id] = FieldValue{
			ID:     id,
			Name:   desc.Name,
			Unit:   desc.Unit,
			Raw:    raw,
			Scaled: scaled,
			Text:   text,
			Custom: custom,
		}
	}

	return fields, order, skipped
}

func decodeUint(b []byte, order ByteOrder) uint64 {
	var v uint64
	if order == LittleEndian {
		for i := len(b) - 1; i >= 0; i-- {
			v = v<<8 | uint64(b[i])
		}

		return v
	}

	for _, x := range b {
		v = v<<8 | uint64(x)
	}

	return v
}
