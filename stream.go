package inflatelib

import (
	"errors"
	"io"
)

// Stream is a single decode in progress. The caller attaches input and
// output space to the exported fields, calls Inflate or Inflate64, and
// inspects the updated fields afterwards; the decoder never retains the
// attached slices across calls.
//
// The zero value must be initialized with Init before use. A Stream is not
// safe for concurrent use, but distinct Streams share nothing and may be
// driven independently.
type Stream struct {
	// NextIn holds the unconsumed input. The decoder consumes from the
	// front and leaves whatever it did not use, including any bytes past
	// the end of the final block.
	NextIn []byte

	// TotalIn counts the bytes consumed since Init or Reset. It only ever
	// grows, and it grows even on a call that ends in a data error,
	// reflecting the bytes processed before the error was found.
	TotalIn uint64

	// NextOut is the space the decoder may write to. Written bytes are
	// sliced off the front, so after a call NextOut describes the space
	// still unwritten.
	NextOut []byte

	// TotalOut counts the bytes written since Init or Reset, on the same
	// best-effort basis as TotalIn.
	TotalOut uint64

	// ErrMsg describes the last failure in human-readable form, including
	// the offending values where available. It is valid until the next
	// state-changing call. The same text rides on the returned error.
	ErrMsg string

	state *decoderState
}

// Init allocates the stream's fixed structures: the three Huffman tables,
// the 64 KiB window, and the header scratch. It must be called before the
// first decode and undoes a prior Destroy.
func (s *Stream) Init() error {
	// Clear any stale message, in case the stream is being recycled.
	s.ErrMsg = ""

	d := &decoderState{
		codeLengthTable: newHuffmanTable(numCodeLenCodes),
		litLenTable:     newHuffmanTable(maxLitLenCodes),
		distanceTable:   newHuffmanTable(maxDistCodes),
	}
	d.state = stateReadingBFinal
	s.state = d
	s.TotalIn = 0
	s.TotalOut = 0
	return nil
}

// Reset returns an initialized stream to its post-Init state without
// reallocating anything. It also unbinds the stream's mode, so a stream
// that decoded Deflate can be reused for Deflate64 and vice versa.
func (s *Stream) Reset() error {
	d := s.state
	if d == nil {
		return s.argError("Internal state is nil; ensure Init has been called first")
	}

	d.bs.reset()
	d.win.reset()

	// The Huffman tables rebuild on demand per block; their storage is all
	// that has to survive, and it does.
	d.state = stateReadingBFinal
	d.mode = modeUnset

	s.TotalIn = 0
	s.TotalOut = 0
	return nil
}

// Destroy releases the stream's internal state. It is safe to call on a
// stream that was never initialized, or more than once.
func (s *Stream) Destroy() error {
	s.state = nil
	return nil
}

// Inflate advances a Deflate (RFC 1951) decode using the currently attached
// NextIn and NextOut. It returns nil when it stopped for more input or
// output space, io.EOF once the final block and its buffered output have
// been fully delivered, and a *DataError or *ArgError otherwise.
func (s *Stream) Inflate() error {
	return s.inflate(modeDeflate)
}

// Inflate64 is Inflate for the Deflate64 variant: literal/length symbol 285
// takes 16 extra bits on a base length of 3, and distance symbols 30 and 31
// extend the reach to the full 64 KiB window.
func (s *Stream) Inflate64() error {
	return s.inflate(modeDeflate64)
}

func (s *Stream) inflate(m streamMode) error {
	d := s.state
	if d == nil {
		return s.argError("Internal state is nil; ensure Init has been called first")
	}

	// The first decode call after Init or Reset binds the stream's mode;
	// after that the two entry points are not interchangeable.
	if d.mode == modeUnset {
		d.mode = m
	} else if d.mode != m {
		return s.argError("Stream is already bound to " + d.mode.String() + "; Reset it before switching modes")
	}

	// The previous call either handed its unread input back to NextIn or
	// consumed all of it, so the bitstream's input slice is empty and can
	// borrow the current one; only buffered bits carry over.
	d.bs.attachInput(s.NextIn)
	initialOut := len(s.NextOut)

	err := s.processData()

	// Even on failure, report whatever was actually consumed and produced
	// before the stop. Whole bytes sitting unread in the bit accumulator
	// are normally handed back, so the consumed count lands on the byte
	// containing the current bit position. When the call stopped because a
	// read ran out of input (no error, input used up, output space left),
	// every buffered bit belongs to that pending read: the bytes stay in
	// the accumulator and all of NextIn counts as consumed. Bytes buffered
	// by an earlier call are never handed back, as NextIn no longer holds
	// them.
	s.TotalOut += uint64(initialOut - len(s.NextOut))
	unread := len(d.bs.detachInput())
	starved := err == nil && unread == 0 && len(s.NextOut) > 0
	if !starved && int(d.bs.count/8) <= len(s.NextIn)-unread {
		unread += d.bs.unloadWholeBytes()
	}
	consumed := len(s.NextIn) - unread
	s.TotalIn += uint64(consumed)
	s.NextIn = s.NextIn[consumed:]

	if err != nil && err != io.EOF {
		var de *DataError
		var ae *ArgError
		switch {
		case errors.As(err, &de):
			s.ErrMsg = de.msg
		case errors.As(err, &ae):
			s.ErrMsg = ae.msg
		default:
			s.ErrMsg = err.Error()
		}
	}
	return err
}

func (s *Stream) argError(msg string) error {
	s.ErrMsg = msg
	return &ArgError{msg: msg}
}
