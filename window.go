package inflatelib

// Deflate64 allows up to a 64 KiB distance and lengths even longer than
// that, so the history buffer is a single 64 KiB ring. The 16-bit cursors
// wrap for free on overflow.
const (
	windowSize = 0x10000
	windowMask = 0x0FFFF
)

// window is the sliding history of the most recent output. Data moves
// through it in two steps: decoded bytes are written into the ring, and
// separately drained to the caller's output buffer. The two steps need not
// keep pace with one another, which is what lets a single length/distance
// pair longer than the output buffer (or even the ring) resolve across
// multiple calls.
type window struct {
	// Only one cursor plus the unconsumed count is strictly necessary;
	// keeping both cursors avoids recomputing one from the other.
	readOffset  uint16
	writeOffset uint16

	// unconsumed cannot be inferred from the cursors: when the ring is full
	// they are equal, just as when it is empty.
	unconsumed uint32

	// totalBytes counts every byte ever written, so that a distance can be
	// checked against how much history actually exists. It keeps growing
	// past the ring size; the distance encoding caps what we compare it to.
	totalBytes uint64

	data [windowSize]byte
}

func (w *window) reset() {
	w.readOffset = 0
	w.writeOffset = 0
	w.unconsumed = 0
	w.totalBytes = 0
}

// free reports how many bytes can be written before unconsumed data would be
// clobbered.
func (w *window) free() uint32 {
	return windowSize - w.unconsumed
}

// drainTo moves up to len(output) unconsumed bytes to output in FIFO order,
// returning the number moved.
func (w *window) drainTo(output []byte) int {
	total := uint32(len(output))
	if total > w.unconsumed {
		total = w.unconsumed
	}

	for remaining := total; remaining > 0; {
		chunk := uint32(windowSize - int(w.readOffset)) // bytes before the ring wraps
		if chunk > remaining {
			chunk = remaining
		}

		start := int(w.readOffset)
		copy(output[:chunk], w.data[start:start+int(chunk)])
		output = output[chunk:]
		remaining -= chunk
		w.readOffset += uint16(chunk) // wraps to zero at the ring boundary
	}

	w.unconsumed -= total
	return int(total)
}

// copyLiteralRun copies up to count raw bytes from the byte-aligned
// bitstream into the ring, returning the number copied. It copies fewer
// only when the bitstream's input is exhausted; the caller must keep
// unconsumed+count within the ring size.
func (w *window) copyLiteralRun(bs *bitstream, count int) int {
	result := 0

	for count > 0 {
		chunk := windowSize - int(w.writeOffset)
		if chunk > count {
			chunk = count
		}

		start := int(w.writeOffset)
		copied := bs.copyBytes(w.data[start : start+chunk])
		count -= copied
		result += copied
		w.writeOffset += uint16(copied)

		if copied < chunk {
			// Input ran dry.
			break
		}
	}

	w.totalBytes += uint64(result)
	w.unconsumed += uint32(result)
	return result
}

// copyBackReference copies up to length bytes of history starting distance
// bytes behind the write cursor back to the write cursor. It reports false
// when the distance reaches past all bytes ever written. The copy stops
// early when the ring has no free space left; the caller drains and calls
// again with the remaining length.
func (w *window) copyBackReference(distance, length uint32) (int, bool) {
	if uint64(distance) > w.totalBytes {
		return 0, false
	}

	// 16-bit wraparound lands the cursor on the right ring slot even when
	// the distance reaches back past index zero.
	copyIndex := w.writeOffset - uint16(distance)
	writeSpace := w.free()
	result := 0

	// A single copy won't do, for three reasons: the source may wrap before
	// length bytes, the destination may wrap, and length may exceed
	// distance, meaning part of the source hasn't been written yet. Each
	// pass copies the largest run that is contiguous in both regions and
	// already written; with length > distance, earlier passes produce the
	// bytes later passes read.
	for length > 0 && writeSpace > 0 {
		var readRun uint32
		if copyIndex < w.writeOffset {
			readRun = uint32(w.writeOffset - copyIndex)
		} else {
			readRun = uint32(windowSize - int(copyIndex))
		}

		writeRun := uint32(windowSize - int(w.writeOffset))
		if writeRun > writeSpace {
			writeRun = writeSpace
		}

		chunk := length
		if chunk > readRun {
			chunk = readRun
		}
		if chunk > writeRun {
			chunk = writeRun
		}

		// Within one pass the regions cannot overlap: chunk never exceeds
		// the gap between the two cursors.
		dst := int(w.writeOffset)
		src := int(copyIndex)
		copy(w.data[dst:dst+int(chunk)], w.data[src:src+int(chunk)])

		w.writeOffset += uint16(chunk)
		w.unconsumed += chunk
		w.totalBytes += uint64(chunk)
		copyIndex += uint16(chunk)
		writeSpace -= chunk
		length -= chunk
		result += int(chunk)
	}

	return result, true
}

// writeByte appends one byte, reporting false when the ring is full and the
// caller needs to drain first.
func (w *window) writeByte(b byte) bool {
	if w.unconsumed >= windowSize {
		return false
	}

	w.data[w.writeOffset] = b
	w.writeOffset++
	w.unconsumed++
	w.totalBytes++
	return true
}
