// inflate-perf measures decode throughput over a raw Deflate or Deflate64
// stream. It runs the decode a number of times under configurable input and
// output strides, reports wall-clock percentiles, and prints an xxhash
// digest of the output so two runs (or two implementations) can be compared
// byte for byte.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"sort"
	"time"

	"github.com/cespare/xxhash/v2"
	"golang.org/x/sync/errgroup"

	"github.com/microsoft/inflatelib"
	"github.com/microsoft/inflatelib/flagutil"
	"github.com/microsoft/inflatelib/logutil"
)

var log = logutil.NewPackageLogger("inflate-perf")

type result struct {
	elapsed time.Duration
	bytes   uint64
	digest  uint64
}

// decodeOnce drives one full decode, hashing the output instead of keeping
// it.
func decodeOnce(data []byte, deflate64 bool, inStride, outStride int) (result, error) {
	var s inflatelib.Stream
	if err := s.Init(); err != nil {
		return result{}, err
	}
	defer s.Destroy()

	step := s.Inflate
	if deflate64 {
		step = s.Inflate64
	}

	digest := xxhash.New()
	buf := make([]byte, outStride)
	pos := 0

	start := time.Now()
	for {
		if len(s.NextIn) == 0 && pos < len(data) {
			end := pos + inStride
			if end > len(data) {
				end = len(data)
			}
			s.NextIn = data[pos:end]
			pos = end
		}

		s.NextOut = buf
		err := step()
		digest.Write(buf[:outStride-len(s.NextOut)])
		if err == io.EOF {
			return result{time.Since(start), s.TotalOut, digest.Sum64()}, nil
		}
		if err != nil {
			return result{}, fmt.Errorf("%v (%s)", err, s.ErrMsg)
		}
		if len(s.NextIn) == 0 && pos >= len(data) && len(s.NextOut) == outStride {
			return result{}, errors.New("input ended before the stream did")
		}
	}
}

func percentile(sorted []time.Duration, p int) time.Duration {
	if len(sorted) == 0 {
		return 0
	}
	idx := p * (len(sorted) - 1) / 100
	return sorted[idx]
}

func main() {
	logutil.SetFormatter(logutil.NewStringFormatter(os.Stderr))

	var logLevel flagutil.LogLevelFlag
	var inStride, outStride flagutil.ByteSizeFlag
	deflate64 := flag.Bool("deflate64", false, "decode as Deflate64 instead of Deflate")
	iterations := flag.Int("iterations", 25, "number of timed decodes")
	parallel := flag.Int("parallel", 1, "number of streams decoded concurrently")
	flag.Var(&inStride, "in-stride", "input chunk size (default: whole file)")
	flag.Var(&outStride, "out-stride", "output buffer size (default 64K)")
	flag.Var(&logLevel, "log-level", "log verbosity (CRITICAL..TRACE)")
	flag.Parse()

	logutil.SetGlobalLogLevel(logLevel.Level())

	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: inflate-perf [flags] stream.bin")
		os.Exit(1)
	}
	data, err := os.ReadFile(flag.Arg(0))
	if err != nil {
		log.Fatalf("%v", err)
	}

	in := inStride.Bytes()
	if in == 0 {
		in = len(data) + 1
	}
	out := outStride.Bytes()
	if out == 0 {
		out = 64 << 10
	}

	// Warm-up pass; also establishes the expected digest.
	ref, err := decodeOnce(data, *deflate64, in, out)
	if err != nil {
		log.Fatalf("decode failed: %v", err)
	}
	log.Infof("stream inflates %d -> %d bytes, digest %016x", len(data), ref.bytes, ref.digest)

	results := make([]result, *iterations)
	var group errgroup.Group
	group.SetLimit(*parallel)
	for i := range results {
		i := i
		group.Go(func() error {
			r, err := decodeOnce(data, *deflate64, in, out)
			if err != nil {
				return err
			}
			if r.digest != ref.digest {
				return fmt.Errorf("iteration %d produced digest %016x, expected %016x", i, r.digest, ref.digest)
			}
			results[i] = r
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		log.Fatalf("%v", err)
	}

	elapsed := make([]time.Duration, len(results))
	for i, r := range results {
		elapsed[i] = r.elapsed
	}
	sort.Slice(elapsed, func(i, j int) bool { return elapsed[i] < elapsed[j] })

	throughput := func(d time.Duration) float64 {
		if d <= 0 {
			return 0
		}
		return float64(ref.bytes) / d.Seconds() / (1 << 20)
	}

	fmt.Printf("iterations: %d  (parallel %d, in-stride %d, out-stride %d)\n",
		*iterations, *parallel, in, out)
	fmt.Printf("p50: %v  (%.1f MiB/s)\n", percentile(elapsed, 50), throughput(percentile(elapsed, 50)))
	fmt.Printf("p90: %v  (%.1f MiB/s)\n", percentile(elapsed, 90), throughput(percentile(elapsed, 90)))
	fmt.Printf("min: %v  max: %v\n", elapsed[0], elapsed[len(elapsed)-1])
}
