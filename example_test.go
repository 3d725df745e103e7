package inflatelib_test

import (
	"fmt"
	"io"

	"github.com/microsoft/inflatelib"
)

func ExampleStream_Inflate() {
	// A single stored block holding "Hi".
	compressed := []byte{0x01, 0x02, 0x00, 0xFD, 0xFF, 0x48, 0x69}

	var s inflatelib.Stream
	if err := s.Init(); err != nil {
		panic(err)
	}
	defer s.Destroy()

	var decoded []byte
	s.NextIn = compressed
	for {
		buf := make([]byte, 64)
		s.NextOut = buf
		err := s.Inflate()
		decoded = append(decoded, buf[:len(buf)-len(s.NextOut)]...)
		if err == io.EOF {
			break
		}
		if err != nil {
			panic(err)
		}
	}

	fmt.Printf("%s\n", decoded)
	// Output: Hi
}
