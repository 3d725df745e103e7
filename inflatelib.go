/*
Package inflatelib implements a streaming decoder for the Deflate (RFC 1951)
and Deflate64 compressed data formats.

The decoder consumes a raw bit stream with no container framing and is
driven entirely by the caller: attach input and output buffers of any size
to a Stream, call Inflate or Inflate64, and repeat. Every call makes as
much progress as the attached buffers allow and then returns, so input may
arrive one byte at a time and output may be drained one byte at a time
without affecting the decoded result.

	var s inflatelib.Stream
	if err := s.Init(); err != nil {
		// ...
	}
	defer s.Destroy()

	s.NextIn = compressed
	for {
		buf := make([]byte, 4096)
		s.NextOut = buf
		err := s.Inflate()
		decoded = append(decoded, buf[:len(buf)-len(s.NextOut)]...)
		if err == io.EOF {
			break
		}
		if err != nil {
			// ...
		}
	}

Decoding is single-threaded and cooperative; there are no goroutines,
timers, or callbacks behind the API. A caller cancels a decode by simply
not calling again.
*/
package inflatelib

// Library version.
const (
	VersionString = "0.0.1"
	VersionMajor  = 0
	VersionMinor  = 0
	VersionPatch  = 1
)
