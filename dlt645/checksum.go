package dlt645

// Checksum computes the frame integrity byte: the running XOR of every
// address byte, the control code, the declared payload length and every
// payload byte.
//
// length must be the length byte carried in the frame, not a recomputed
// len(payload), so that a corrupted length field shows up as a mismatch.
func Checksum(addr []byte, control byte, length byte, payload []byte) byte {
	var cs byte
	for _, b := range addr {
		cs ^= b
	}
	cs ^= control
	cs ^= length
	for _, b := range payload {
		cs ^= b
	}

	return cs
}
