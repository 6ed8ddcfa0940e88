// Package dlt645 implements the frame codec of the DL/T 645 multi-function
// electricity meter protocol, in its 1997 (legacy) and 2007 (revised)
// generations.
//
// The codec converts command intents into wire-exact frames and validates and
// decodes received frames into typed field values. It performs no I/O; see the
// transport package for a serial link built on top of it.
//
// # Frame Layout
//
//	0x68 | address[6] | control | length | payload[length] | checksum | 0x16
//
// The address is the meter's 12-digit canonical address with its byte order
// reversed and every byte inverted (0xFF - b). The broadcast address
// FFFFFFFFFFFF is therefore sent as six zero bytes.
//
// The checksum is the XOR of the address, control, length and payload bytes.
//
// # Variants
//
// The two generations differ in field identifier width (4 bytes for Legacy,
// 6 bytes for Revised), control-code set and minimum frame size. A Codec is
// bound to one Variant at construction and never negotiates:
//
//	codec, err := dlt645.NewCodec(dlt645.Legacy)
//	frame, err := codec.BuildRead("000048604296", dlt645.LegacyForwardActiveEnergy)
//	// frame.Hex() == "68 69 BD 9F B7 FF FF 01 04 00 00 01 00 F8 16"
//
// # Payload Decoding
//
// Response payloads are sequences of identifier/value pairs. Value widths,
// byte order, units and scale factors come from a Registry. Identifiers that
// are not registered are reported in ParsedFrame.Skipped; because their value
// width is unknown the decoder only steps over the identifier bytes, which
// can misalign the remaining payload when such a field carries a value.
// Register width-only descriptors with NewRegistry to avoid this.
package dlt645
