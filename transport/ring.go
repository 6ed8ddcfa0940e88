package transport

import "github.com/arloliu/go-dlt645/dlt645"

// frameRing accumulates bytes read from the line and cuts complete frames
// out of them.
//
// A frame candidate starts at 0x68; its size follows from the declared
// length byte, and it is accepted only if the byte at that position is 0x16.
// A 0x16 inside a payload therefore never ends a frame early. Bytes in front
// of a candidate (wake-up FE bytes, line noise) are discarded. While a
// candidate is still incomplete, a later complete frame with a valid checksum
// wins over it, since a half-duplex line may never deliver the missing bytes.
//
// frameRing is not goroutine-safe; it is owned by the client's reader.
type frameRing struct {
	buf  []byte
	head int // index of the oldest byte
	size int
}

func newFrameRing(capacity int) *frameRing {
	return &frameRing{buf: make([]byte, capacity)}
}

// Len returns the number of buffered bytes.
func (r *frameRing) Len() int { return r.size }

// Cap returns the ring capacity.
func (r *frameRing) Cap() int { return len(r.buf) }

// Write appends p. When p does not fit, the oldest bytes are overwritten and
// their count is returned.
func (r *frameRing) Write(p []byte) (dropped int) {
	capacity := len(r.buf)

	if len(p) >= capacity {
		dropped = r.size + len(p) - capacity
		copy(r.buf, p[len(p)-capacity:])
		r.head = 0
		r.size = capacity

		return dropped
	}

	if over := r.size + len(p) - capacity; over > 0 {
		r.discard(over)
		dropped = over
	}

	tail := (r.head + r.size) % capacity
	n := copy(r.buf[tail:], p)
	copy(r.buf, p[n:])
	r.size += len(p)

	return dropped
}

// Next extracts the next complete frame. discarded counts the bytes dropped
// while searching for it. ok is false when no complete frame is buffered
// yet; a partial candidate stays in the ring.
func (r *frameRing) Next() (frame []byte, discarded int, ok bool) {
	for {
		for r.size > 0 && r.at(0) != dlt645.StartByte {
			r.discard(1)
			discarded++
		}

		if r.size < dlt645.HeaderLen {
			return nil, discarded, false
		}

		total := dlt645.HeaderLen + int(r.at(dlt645.HeaderLen-1)) + dlt645.TrailerLen
		if total > len(r.buf) {
			// cannot ever be completed, so this 0x68 is not a frame start
			r.discard(1)
			discarded++

			continue
		}

		if r.size < total {
			skip, found := r.completeAfter(1)
			if !found {
				return nil, discarded, false
			}
			r.discard(skip)
			discarded += skip

			continue
		}

		if r.at(total-1) != dlt645.EndByte {
			r.discard(1)
			discarded++

			continue
		}

		frame = make([]byte, total)
		r.peek(frame)
		r.discard(total)

		return frame, discarded, true
	}
}

// completeAfter returns the offset, at or after from, of the first 0x68 that
// starts a fully buffered frame ending in 0x16 with a matching checksum.
func (r *frameRing) completeAfter(from int) (int, bool) {
	for i := from; i+dlt645.HeaderLen <= r.size; i++ {
		if r.at(i) != dlt645.StartByte {
			continue
		}

		total := dlt645.HeaderLen + int(r.at(i+dlt645.HeaderLen-1)) + dlt645.TrailerLen
		if i+total > r.size || r.at(i+total-1) != dlt645.EndByte {
			continue
		}

		if r.checksumOK(i, total) {
			return i, true
		}
	}

	return 0, false
}

func (r *frameRing) checksumOK(off, total int) bool {
	f := make([]byte, total)
	for k := range f {
		f[k] = r.at(off + k)
	}
	payload := f[dlt645.HeaderLen : total-dlt645.TrailerLen]
	cs := dlt645.Checksum(f[1:1+dlt645.AddressLen], f[1+dlt645.AddressLen], f[dlt645.HeaderLen-1], payload)

	return cs == f[total-dlt645.TrailerLen]
}

func (r *frameRing) at(i int) byte {
	return r.buf[(r.head+i)%len(r.buf)]
}

func (r *frameRing) peek(dst []byte) {
	n := copy(dst, r.buf[r.head:min(r.head+len(dst), len(r.buf))])
	copy(dst[n:], r.buf)
}

func (r *frameRing) discard(n int) {
	r.head = (r.head + n) % len(r.buf)
	r.size -= n
}
