package inflatelib

// bitstream converts a borrowed byte slice into an LSB-first bit sequence.
// Bits within a byte are ordered from the least significant bit to the most
// significant bit, and multi-bit values are assembled LSB-first: the first
// bit read becomes bit 0 of the result.
//
// The reader must be able to suspend mid-read: a read that fails for lack of
// input leaves any whole bytes it pulled from the slice in the accumulator,
// so that retrying the same read after attachInput delivers the same logical
// bits. A peek tops the accumulator up to at least 16 bits when input allows,
// so it may hold up to 23; a failed read leaves it with fewer than 16.
type bitstream struct {
	// in is the unconsumed portion of the caller's input. Consumed bytes are
	// dropped from the front.
	in []byte

	// The low count bits of bits hold data pulled from in but not yet
	// consumed, oldest bit lowest.
	bits  uint32
	count uint
}

func (b *bitstream) reset() {
	b.in = nil
	b.bits = 0
	b.count = 0
}

// attachInput borrows a new input slice. The previously attached slice must
// have been fully consumed (the accumulator may still hold residual bits).
func (b *bitstream) attachInput(data []byte) {
	b.in = data
}

// detachInput hands the unconsumed remainder of the input back to the caller.
func (b *bitstream) detachInput() []byte {
	rest := b.in
	b.in = nil
	return rest
}

// load pulls one byte from the input into the accumulator. The caller must
// ensure input is available.
func (b *bitstream) load() {
	b.bits |= uint32(b.in[0]) << b.count
	b.in = b.in[1:]
	b.count += 8
}

// readBits consumes and returns the next n bits, 1 <= n <= 16. It reports
// false when fewer than n bits remain; in that case nothing is logically
// consumed and retrying the identical read with more input attached yields
// the same bits.
func (b *bitstream) readBits(n uint) (uint16, bool) {
	for b.count < n {
		if len(b.in) == 0 {
			return 0, false
		}
		b.load()
	}

	v := uint16(b.bits & (1<<n - 1))
	b.bits >>= n
	b.count -= n
	return v, true
}

// readBitsUnchecked is readBits without the input-exhaustion check. The
// caller guarantees that the input can supply n bits.
func (b *bitstream) readBitsUnchecked(n uint) uint16 {
	for b.count < n {
		b.load()
	}

	v := uint16(b.bits & (1<<n - 1))
	b.bits >>= n
	b.count -= n
	return v
}

// peek exposes up to 16 bits without consuming them, returning the bits and
// how many of them are valid.
func (b *bitstream) peek() (uint16, uint) {
	for b.count < 16 && len(b.in) > 0 {
		b.load()
	}

	n := b.count
	if n > 16 {
		n = 16
	}
	return uint16(b.bits), n
}

// peekUnchecked is peek for callers that have already verified at least two
// bytes of input remain; the full 16 bits are always valid.
func (b *bitstream) peekUnchecked() uint16 {
	for b.count < 16 {
		b.load()
	}
	return uint16(b.bits)
}

// consume discards n bits. The caller guarantees they are present, e.g. by a
// prior peek.
func (b *bitstream) consume(n uint) {
	b.bits >>= n
	b.count -= n
}

// byteAlign discards the zero to seven residual bits of the current byte so
// the next read starts on a byte boundary. The accumulator always holds a
// whole number of bytes beyond the current bit position (it is only ever
// loaded byte-at-a-time from an aligned slice), so the residue is count mod
// 8; any whole bytes a prior peek pulled in stay queued for later reads.
func (b *bitstream) byteAlign() {
	n := b.count & 7
	b.bits >>= n
	b.count -= n
}

// copyBytes copies up to len(dest) raw bytes from the stream, returning the
// number copied. The stream must be byte-aligned; whole bytes sitting in
// the accumulator are copied out first.
func (b *bitstream) copyBytes(dest []byte) int {
	n := 0
	for b.count >= 8 && n < len(dest) {
		dest[n] = byte(b.bits)
		b.bits >>= 8
		b.count -= 8
		n++
	}

	m := copy(dest[n:], b.in)
	b.in = b.in[m:]
	return n + m
}

// bytesRemaining reports how many unread whole bytes the input slice holds.
func (b *bitstream) bytesRemaining() int {
	return len(b.in)
}

// unloadWholeBytes removes the whole bytes a peek or failed read may have
// buffered, leaving only the sub-byte residue, and returns how many were
// removed. The caller hands those bytes back to its input accounting; they
// re-enter through attachInput on the next call at the same logical
// position.
func (b *bitstream) unloadWholeBytes() int {
	k := int(b.count / 8)
	b.count -= uint(k) * 8
	b.bits &= 1<<b.count - 1
	return k
}
