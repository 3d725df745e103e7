// bin-write turns a YAML description of a bit stream into a binary file.
// It exists to author decoder test vectors by hand: header fields and extra
// bits are written LSB-first with "bits", Huffman codes MSB-first with
// "code", and whole bytes with "bytes" or "string".
//
// Example document, a stored block holding "Hi":
//
//	- bits: {value: 1, width: 1}   # BFINAL
//	- bits: {value: 0, width: 2}   # BTYPE: stored
//	- align: true
//	- bits: {value: 2, width: 16}  # LEN
//	- bits: {value: 0xFFFD, width: 16}
//	- string: "Hi"
package main

import (
	"encoding/hex"
	"flag"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v2"

	"github.com/microsoft/inflatelib/logutil"
)

var log = logutil.NewPackageLogger("bin-write")

type field struct {
	Value uint32 `yaml:"value"`
	Width uint   `yaml:"width"`
}

type op struct {
	Bits   *field `yaml:"bits"`
	Code   *field `yaml:"code"`
	Bytes  string `yaml:"bytes"`
	String string `yaml:"string"`
	Align  bool   `yaml:"align"`
	Repeat *struct {
		Count int  `yaml:"count"`
		Ops   []op `yaml:"ops"`
	} `yaml:"repeat"`
}

type bitWriter struct {
	buf []byte
	cur uint32
	n   uint
}

func (w *bitWriter) writeBits(v uint32, n uint) {
	w.cur |= v << w.n
	w.n += n
	for w.n >= 8 {
		w.buf = append(w.buf, byte(w.cur))
		w.cur >>= 8
		w.n -= 8
	}
}

func (w *bitWriter) align() {
	if w.n > 0 {
		w.buf = append(w.buf, byte(w.cur))
		w.cur = 0
		w.n = 0
	}
}

func (w *bitWriter) bytes() []byte {
	out := w.buf
	if w.n > 0 {
		out = append(out, byte(w.cur))
	}
	return out
}

func emit(w *bitWriter, ops []op) error {
	for i, o := range ops {
		switch {
		case o.Bits != nil:
			if o.Bits.Width == 0 || o.Bits.Width > 32 {
				return fmt.Errorf("op %d: bits width %d out of range", i, o.Bits.Width)
			}
			w.writeBits(o.Bits.Value, o.Bits.Width)

		case o.Code != nil:
			if o.Code.Width == 0 || o.Code.Width > 32 {
				return fmt.Errorf("op %d: code width %d out of range", i, o.Code.Width)
			}
			for b := int(o.Code.Width) - 1; b >= 0; b-- {
				w.writeBits(o.Code.Value>>uint(b)&1, 1)
			}

		case o.Bytes != "":
			raw, err := hex.DecodeString(strings.Map(func(r rune) rune {
				if r == ' ' || r == '\n' || r == '\t' {
					return -1
				}
				return r
			}, o.Bytes))
			if err != nil {
				return fmt.Errorf("op %d: %v", i, err)
			}
			w.align()
			w.buf = append(w.buf, raw...)

		case o.String != "":
			w.align()
			w.buf = append(w.buf, o.String...)

		case o.Align:
			w.align()

		case o.Repeat != nil:
			for r := 0; r < o.Repeat.Count; r++ {
				if err := emit(w, o.Repeat.Ops); err != nil {
					return err
				}
			}

		default:
			return fmt.Errorf("op %d: no directive given", i)
		}
	}
	return nil
}

func main() {
	logutil.SetFormatter(logutil.NewStringFormatter(os.Stderr))
	output := flag.String("o", "", "output file (defaults to stdout)")
	flag.Parse()

	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: bin-write [-o out.bin] stream.yaml")
		os.Exit(1)
	}

	raw, err := os.ReadFile(flag.Arg(0))
	if err != nil {
		log.Fatalf("%v", err)
	}

	var ops []op
	if err := yaml.Unmarshal(raw, &ops); err != nil {
		log.Fatalf("parsing %s: %v", flag.Arg(0), err)
	}

	var w bitWriter
	if err := emit(&w, ops); err != nil {
		log.Fatalf("%v", err)
	}

	data := w.bytes()
	if *output == "" {
		os.Stdout.Write(data)
		return
	}
	if err := os.WriteFile(*output, data, 0o644); err != nil {
		log.Fatalf("%v", err)
	}
	log.Infof("wrote %d bytes to %s", len(data), *output)
}
