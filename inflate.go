package inflatelib

import (
	"fmt"
	"io"
)

type blockType uint8

// Values match the 2-bit BTYPE field of the block header.
const (
	blockTypeStored blockType = iota
	blockTypeStatic
	blockTypeDynamic
)

type inflateState uint8

// The decoder suspends whenever input or output runs out, so every point it
// can stop at is a named state. Aside from stateReadingBFinal needing to be
// the zero value, the exact values don't matter, but some of the relative
// ordering does: everything before stateReadingLitLenCode belongs to block
// setup.
const (
	stateReadingBFinal inflateState = iota
	stateReadingBType

	// Stored blocks.
	stateReadingStoredLen
	stateReadingStoredLenComplement
	stateReadingStoredData

	// Dynamic-block Huffman table setup.
	stateReadingNumLitCodes
	stateReadingNumDistCodes
	stateReadingNumCodeLenCodes
	stateReadingCodeLenCodes
	stateReadingTreeCodesBefore
	stateReadingTreeCodesAfter

	// Shared by static and dynamic blocks.
	stateReadingLitLenCode
	stateDecodingLitLenCode
	stateReadingLengthExtraBits
	stateReadingDistanceCode
	stateReadingDistanceExtraBits
	stateCopyingLengthDistance
	stateCopyingWindowOutput

	// The final block's terminator has been consumed and drained.
	stateEOF
)

type streamMode uint8

const (
	modeUnset streamMode = iota
	modeDeflate
	modeDeflate64
)

func (m streamMode) String() string {
	switch m {
	case modeDeflate:
		return "Deflate"
	case modeDeflate64:
		return "Deflate64"
	default:
		return "unset"
	}
}

// decoderState is the per-stream state hidden behind the Stream façade.
type decoderState struct {
	bs  bitstream
	win window

	state  inflateState
	btype  blockType
	bfinal bool
	mode   streamMode

	codeLengthTable *huffmanTable
	litLenTable     *huffmanTable
	distanceTable   *huffmanTable

	// Stored-block scratch: bytes of the block not yet copied.
	storedLen uint16

	// Dynamic-header scratch. codeLengths first holds the 19 code length
	// code lengths, then is overwritten by the concatenated literal/length
	// and distance code length vectors.
	numLitLenCodes  uint16 // HLIT + 257 (257-288)
	numDistCodes    uint8  // HDIST + 1 (1-32)
	numCodeLenCodes uint8  // HCLEN + 4 (4-19)
	lengthCode      uint8  // last symbol decoded from the code length table
	loopCounter     int
	codeLengths     [maxLitLenCodes + maxDistCodes]uint8

	// Compressed-block scratch.
	extraBits     uint8
	symbol        uint16
	blockLength   uint32
	blockDistance uint32
}

// Length data for literal/length symbols 257-285: the block length is
// lengthBase[sym-257] plus that many extra bits from the stream. The sole
// difference between Deflate and Deflate64 is symbol 285, which encodes
// base 258 with no extra bits in Deflate but base 3 with 16 extra bits in
// Deflate64.
var lengthBase = [29]uint16{
	3, 4, 5, 6, 7, 8, 9, 10, 11, 13, 15, 17, 19, 23, 27,
	31, 35, 43, 51, 59, 67, 83, 99, 115, 131, 163, 195, 227, 3,
}
var lengthExtraBits = [29]uint8{
	0, 0, 0, 0, 0, 0, 0, 0, 1, 1, 1, 1, 2, 2, 2,
	2, 3, 3, 3, 3, 4, 4, 4, 4, 5, 5, 5, 5, 16,
}

// Distance data for symbols 0-31: the distance is distanceBase[sym] plus
// extra bits. Symbols 30 and 31 only exist in Deflate64.
var distanceBase = [32]uint16{
	1, 2, 3, 4, 5, 7, 9, 13, 17, 25, 33,
	49, 65, 97, 129, 193, 257, 385, 513, 769, 1025, 1537,
	2049, 3073, 4097, 6145, 8193, 12289, 16385, 24577, 32769, 49153,
}
var distanceExtraBits = [32]uint8{
	0, 0, 0, 0, 1, 1, 2, 2, 3, 3, 4, 4, 5, 5, 6, 6,
	7, 7, 8, 8, 9, 9, 10, 10, 11, 11, 12, 12, 13, 13, 14, 14,
}

// The order the code length alphabet's own code lengths appear in, per
// RFC 1951, section 3.2.7.
var codeOrder = [numCodeLenCodes]uint8{16, 17, 18, 0, 8, 7, 9, 6, 10, 5, 11, 4, 12, 3, 13, 2, 14, 1, 15}

// Input thresholds for the unchecked fast path: enough whole bytes to
// guarantee a maximum-length literal/length code, its extra bits, a
// distance code, and its extra bits without re-checking availability.
// Deflate needs at most 15+5+15+13 = 48 bits; Deflate64 at most
// 15+16+15+14 = 60.
const (
	fastPathBytesDeflate   = 6
	fastPathBytesDeflate64 = 8
)

func (s *Stream) dataErrorf(format string, args ...interface{}) error {
	return &DataError{msg: fmt.Sprintf(format, args...)}
}

// processData drives the state machine until input or output runs out, the
// stream ends, or the data is found to be malformed. Returning io.EOF means
// the final block's terminator was consumed and the window fully drained.
func (s *Stream) processData() error {
	d := s.state

	for {
		switch d.state {
		case stateReadingBFinal:
			v, ok := d.bs.readBits(1)
			if !ok {
				return nil // not enough data
			}
			d.bfinal = v != 0
			d.state = stateReadingBType
			fallthrough

		case stateReadingBType:
			v, ok := d.bs.readBits(2)
			if !ok {
				return nil // not enough data
			}
			if v > 2 {
				return s.dataErrorf("Unexpected block type '%d'", v)
			}

			d.btype = blockType(v)
			switch d.btype {
			case blockTypeStored:
				d.bs.byteAlign()
				d.state = stateReadingStoredLen
			case blockTypeStatic:
				if err := d.initStaticTables(); err != nil {
					return err
				}
				d.state = stateReadingLitLenCode
			case blockTypeDynamic:
				d.state = stateReadingNumLitCodes
			}

		case stateEOF:
			return io.EOF // already read all data

		default:
			// Mid-block; d.btype says which handler resumes below.
		}

		var err error
		switch d.btype {
		case blockTypeStored:
			err = s.readStored()

		case blockTypeDynamic:
			if d.state < stateReadingLitLenCode {
				// The dynamic Huffman tables aren't fully initialized yet.
				if err = s.readDynamicHeader(); err != nil {
					return err
				}
				if d.state < stateReadingLitLenCode {
					return nil // not enough data
				}
			}
			fallthrough

		case blockTypeStatic:
			err = s.readCompressed()
		}

		if err != nil {
			return err
		}
		if d.state != stateReadingBFinal {
			break
		}
		// A block just finished with more to come; keep going.
	}

	if d.state == stateEOF {
		return io.EOF
	}
	return nil
}

// readStored handles BTYPE=0 blocks: the LEN/~LEN header followed by LEN raw
// bytes, which still pass through the window so later blocks can reference
// them.
func (s *Stream) readStored() error {
	d := s.state

	switch d.state {
	case stateReadingStoredLen:
		v, ok := d.bs.readBits(16)
		if !ok {
			return nil // not enough data
		}
		d.storedLen = v
		d.state = stateReadingStoredLenComplement
		fallthrough

	case stateReadingStoredLenComplement:
		v, ok := d.bs.readBits(16)
		if !ok {
			return nil // not enough data
		}
		if d.storedLen != ^v {
			return s.dataErrorf(
				"Uncompressed block length (%04X) does not match its encoded one's complement value (%04X)",
				d.storedLen, v)
		}
		d.state = stateReadingStoredData
		fallthrough

	case stateReadingStoredData:
		count := int(d.storedLen)
		if free := int(d.win.free()); count > free {
			count = free
		}
		d.storedLen -= uint16(d.win.copyLiteralRun(&d.bs, count))

		n := d.win.drainTo(s.NextOut)
		s.NextOut = s.NextOut[n:]

		// Safe to move on only once all bytes are both read and written.
		if d.storedLen == 0 && d.win.unconsumed == 0 {
			if d.bfinal {
				d.state = stateEOF
			} else {
				d.state = stateReadingBFinal
			}
		}
	}

	return nil
}

// initStaticTables builds the fixed literal/length and distance codes of
// RFC 1951, section 3.2.6 into the same tables the dynamic path uses.
func (d *decoderState) initStaticTables() error {
	var lengths [maxLitLenCodes]uint8

	for i := 0; i < 144; i++ {
		lengths[i] = 8
	}
	for i := 144; i < 256; i++ {
		lengths[i] = 9
	}
	for i := 256; i < 280; i++ {
		lengths[i] = 7
	}
	for i := 280; i < 288; i++ {
		lengths[i] = 8
	}
	if err := d.litLenTable.build(lengths[:]); err != nil {
		return err
	}

	for i := 0; i < maxDistCodes; i++ {
		lengths[i] = 5
	}
	return d.distanceTable.build(lengths[:maxDistCodes])
}

// readDynamicHeader reads the HLIT/HDIST/HCLEN counts, the code length
// code's own lengths, and then the run-length-encoded literal/length and
// distance code length vectors, building all three Huffman tables along the
// way (RFC 1951, section 3.2.7).
func (s *Stream) readDynamicHeader() error {
	d := s.state

	switch d.state {
	case stateReadingNumLitCodes:
		v, ok := d.bs.readBits(5)
		if !ok {
			return nil // not enough data
		}
		d.numLitLenCodes = v + 257
		d.state = stateReadingNumDistCodes
		fallthrough

	case stateReadingNumDistCodes:
		v, ok := d.bs.readBits(5)
		if !ok {
			return nil // not enough data
		}
		d.numDistCodes = uint8(v + 1)
		d.state = stateReadingNumCodeLenCodes
		fallthrough

	case stateReadingNumCodeLenCodes:
		v, ok := d.bs.readBits(4)
		if !ok {
			return nil // not enough data
		}
		d.numCodeLenCodes = uint8(v + 4)
		d.loopCounter = 0
		d.state = stateReadingCodeLenCodes
		fallthrough

	case stateReadingCodeLenCodes:
		for d.loopCounter < int(d.numCodeLenCodes) {
			v, ok := d.bs.readBits(3)
			if !ok {
				return nil // not enough data
			}
			d.codeLengths[codeOrder[d.loopCounter]] = uint8(v)
			d.loopCounter++
		}
		// Lengths not present in the header are zero.
		for d.loopCounter < numCodeLenCodes {
			d.codeLengths[codeOrder[d.loopCounter]] = 0
			d.loopCounter++
		}

		if err := d.codeLengthTable.build(d.codeLengths[:numCodeLenCodes]); err != nil {
			return err
		}

		d.loopCounter = 0
		d.state = stateReadingTreeCodesBefore
		fallthrough

	case stateReadingTreeCodesBefore, stateReadingTreeCodesAfter:
		total := int(d.numLitLenCodes) + int(d.numDistCodes)
		for d.loopCounter < total {
			if d.state == stateReadingTreeCodesBefore {
				sym, ok, err := d.codeLengthTable.decode(&d.bs)
				if err != nil {
					return err
				}
				if !ok {
					return nil // not enough data
				}
				d.lengthCode = uint8(sym)
			}

			switch {
			case d.lengthCode <= 15:
				// A literal code length.
				d.codeLengths[d.loopCounter] = d.lengthCode
				d.loopCounter++

			case d.lengthCode == 16:
				// Repeat the previous code length 3-6 times.
				v, ok := d.bs.readBits(2)
				if !ok {
					// Don't decode a fresh length code on re-entry.
					d.state = stateReadingTreeCodesAfter
					return nil
				}

				if d.loopCounter == 0 {
					return s.dataErrorf("Code length repeat code encountered at beginning of data")
				}
				prev := d.codeLengths[d.loopCounter-1]

				rep := int(v) + 3
				if d.loopCounter+rep > total {
					return s.dataErrorf(
						"Code length repeat code specifies %d repetitions, but only %d codes remain",
						rep, total-d.loopCounter)
				}
				for i := 0; i < rep; i++ {
					d.codeLengths[d.loopCounter] = prev
					d.loopCounter++
				}

			default:
				// Repeat zero 3-10 times (code 17) or 11-138 times (18).
				bits, base := uint(3), 3
				if d.lengthCode == 18 {
					bits, base = 7, 11
				}

				v, ok := d.bs.readBits(bits)
				if !ok {
					d.state = stateReadingTreeCodesAfter
					return nil
				}

				rep := int(v) + base
				if d.loopCounter+rep > total {
					return s.dataErrorf(
						"Zero repeat code specifies %d repetitions, but only %d codes remain",
						rep, total-d.loopCounter)
				}
				for i := 0; i < rep; i++ {
					d.codeLengths[d.loopCounter] = 0
					d.loopCounter++
				}
			}

			d.state = stateReadingTreeCodesBefore
		}

		if err := d.litLenTable.build(d.codeLengths[:d.numLitLenCodes]); err != nil {
			return err
		}
		if err := d.distanceTable.build(
			d.codeLengths[d.numLitLenCodes : int(d.numLitLenCodes)+int(d.numDistCodes)]); err != nil {
			return err
		}

		d.state = stateReadingLitLenCode
	}

	return nil
}

// readCompressed runs the literal/length/distance loop shared by static and
// dynamic blocks until the end-of-block symbol, an error, or starvation of
// input or output.
func (s *Stream) readCompressed() error {
	d := s.state
	var err error

	keepGoing := true
	for keepGoing {
		switch d.state {
		case stateReadingLitLenCode:
			if d.fastPathReady(len(s.NextOut)) {
				if err = s.readSymbolRunUnchecked(); err != nil {
					keepGoing = false
					break
				}
				break
			}

			var sym uint16
			var ok bool
			sym, ok, err = d.litLenTable.decode(&d.bs)
			if !ok || err != nil {
				keepGoing = false // not enough data, or malformed
				break
			}
			d.symbol = sym
			fallthrough

		case stateDecodingLitLenCode:
			if d.symbol < 256 {
				// A literal byte.
				if !d.win.writeByte(byte(d.symbol)) {
					// The window is full; drain to make room.
					n := d.win.drainTo(s.NextOut)
					s.NextOut = s.NextOut[n:]
					if n == 0 {
						keepGoing = false // not enough output space
						d.state = stateDecodingLitLenCode
						break
					}
					d.win.writeByte(byte(d.symbol))
				}
				d.state = stateReadingLitLenCode
				break
			}
			if d.symbol == 256 {
				// End of block.
				d.state = stateCopyingWindowOutput
				break
			}
			if d.symbol > 285 {
				// HLIT can declare code lengths for symbols 286 and 287, so
				// the check has to happen here rather than at table build.
				err = s.dataErrorf("Invalid symbol '%d' from literal/length tree", d.symbol)
				keepGoing = false
				break
			}

			// symbol encodes a block length.
			idx := d.symbol - 257
			d.blockLength = uint32(lengthBase[idx])
			d.extraBits = lengthExtraBits[idx]
			if idx == 28 && d.mode == modeDeflate {
				d.blockLength = 258
				d.extraBits = 0
			}
			fallthrough

		case stateReadingLengthExtraBits:
			if d.extraBits > 0 {
				v, ok := d.bs.readBits(uint(d.extraBits))
				if !ok {
					keepGoing = false // not enough data
					d.state = stateReadingLengthExtraBits
					break
				}
				d.blockLength += uint32(v)
			}
			fallthrough

		case stateReadingDistanceCode:
			var sym uint16
			var ok bool
			sym, ok, err = d.distanceTable.decode(&d.bs)
			if !ok || err != nil {
				keepGoing = false
				d.state = stateReadingDistanceCode
				break
			}
			if sym >= 30 && d.mode == modeDeflate {
				err = s.dataErrorf("Distance symbol '%d' is only valid in Deflate64 streams", sym)
				keepGoing = false
				break
			}

			d.blockDistance = uint32(distanceBase[sym])
			d.extraBits = distanceExtraBits[sym]
			fallthrough

		case stateReadingDistanceExtraBits:
			if d.extraBits > 0 {
				v, ok := d.bs.readBits(uint(d.extraBits))
				if !ok {
					keepGoing = false // not enough data
					d.state = stateReadingDistanceExtraBits
					break
				}
				d.blockDistance += uint32(v)
			}
			d.state = stateCopyingLengthDistance
			fallthrough

		// The output buffer may be too small for the whole copy, so the
		// window-to-output leg gets its own resumable state.
		case stateCopyingLengthDistance:
			copied, ok := d.win.copyBackReference(d.blockDistance, d.blockLength)
			if !ok {
				err = s.dataErrorf(
					"Compressed block has a distance '%d' which exceeds the size of the window (%d bytes)",
					d.blockDistance, d.win.totalBytes)
				keepGoing = false
				break
			}
			d.blockLength -= uint32(copied)

			n := d.win.drainTo(s.NextOut)
			s.NextOut = s.NextOut[n:]

			// Two ways this copy may be unfinished: the length was too long
			// for the window's free space, or the output buffer filled.
			if d.blockLength == 0 && d.win.unconsumed == 0 {
				d.state = stateReadingLitLenCode
			} else {
				d.state = stateCopyingLengthDistance
				if (d.blockLength == 0 || copied == 0) && len(s.NextOut) == 0 {
					keepGoing = false // need a fresh output buffer
				}
			}

		case stateCopyingWindowOutput:
			// All of the block's input is consumed; finish writing it out.
			n := d.win.drainTo(s.NextOut)
			s.NextOut = s.NextOut[n:]
			if d.win.unconsumed == 0 {
				if d.bfinal {
					d.state = stateEOF
				} else {
					d.state = stateReadingBFinal
				}
			}
			keepGoing = false
		}
	}

	// Flush whatever the window still holds before returning.
	n := d.win.drainTo(s.NextOut)
	s.NextOut = s.NextOut[n:]

	return err
}

// fastPathReady reports whether enough input bytes remain to decode a full
// literal/length + extra + distance + extra sequence without per-read
// checks, and there is output space to make progress against.
func (d *decoderState) fastPathReady(outSpace int) bool {
	threshold := fastPathBytesDeflate
	if d.mode == modeDeflate64 {
		threshold = fastPathBytesDeflate64
	}
	return d.bs.bytesRemaining() >= threshold && outSpace > 0
}

// readSymbolRunUnchecked is the fast path: it decodes one literal/length
// symbol and, for a length, the whole extra/distance/extra sequence using
// the unchecked bitstream and table variants. Window and output pressure
// are still handled by the regular states it hands off to.
func (s *Stream) readSymbolRunUnchecked() error {
	d := s.state

	sym, err := d.litLenTable.decodeUnchecked(&d.bs)
	if err != nil {
		return err
	}
	d.symbol = sym

	if sym <= 256 {
		d.state = stateDecodingLitLenCode
		return nil
	}
	if sym > 285 {
		return s.dataErrorf("Invalid symbol '%d' from literal/length tree", sym)
	}

	idx := sym - 257
	length := uint32(lengthBase[idx])
	extra := lengthExtraBits[idx]
	if idx == 28 && d.mode == modeDeflate {
		length = 258
		extra = 0
	}
	if extra > 0 {
		length += uint32(d.bs.readBitsUnchecked(uint(extra)))
	}

	dsym, err := d.distanceTable.decodeUnchecked(&d.bs)
	if err != nil {
		return err
	}
	if dsym >= 30 && d.mode == modeDeflate {
		return s.dataErrorf("Distance symbol '%d' is only valid in Deflate64 streams", dsym)
	}

	distance := uint32(distanceBase[dsym])
	if extra = distanceExtraBits[dsym]; extra > 0 {
		distance += uint32(d.bs.readBitsUnchecked(uint(extra)))
	}

	d.blockLength = length
	d.blockDistance = distance
	d.state = stateCopyingLengthDistance
	return nil
}
