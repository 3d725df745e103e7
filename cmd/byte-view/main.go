// byte-view dumps a region of a file as hex and ASCII, sixteen bytes per
// line. Useful for eyeballing compressed streams and the tool outputs that
// feed the decoder tests.
package main

import (
	"flag"
	"fmt"
	"os"
)

func dump(data []byte, base int) {
	for off := 0; off < len(data); off += 16 {
		end := off + 16
		if end > len(data) {
			end = len(data)
		}
		line := data[off:end]

		fmt.Printf("%08X  ", base+off)
		for i := 0; i < 16; i++ {
			if i == 8 {
				fmt.Print(" ")
			}
			if i < len(line) {
				fmt.Printf("%02X ", line[i])
			} else {
				fmt.Print("   ")
			}
		}
		fmt.Print(" |")
		for _, b := range line {
			if b < 0x20 || b > 0x7E {
				b = '.'
			}
			fmt.Printf("%c", b)
		}
		fmt.Println("|")
	}
}

func main() {
	offset := flag.Int("offset", 0, "byte offset to start dumping at")
	length := flag.Int("length", -1, "number of bytes to dump (-1 for the rest of the file)")
	flag.Parse()

	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: byte-view [flags] file")
		os.Exit(1)
	}

	data, err := os.ReadFile(flag.Arg(0))
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	if *offset < 0 || *offset > len(data) {
		fmt.Fprintf(os.Stderr, "offset %d is outside the file (%d bytes)\n", *offset, len(data))
		os.Exit(1)
	}
	data = data[*offset:]
	if *length >= 0 && *length < len(data) {
		data = data[:*length]
	}

	dump(data, *offset)
}
