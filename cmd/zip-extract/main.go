// zip-extract extracts the members of a ZIP archive, driving the inflatelib
// decoder for members compressed with Deflate (method 8) or Deflate64
// (method 9). Stored members (method 0) are copied through. Each member's
// CRC-32 and size are checked against the central directory record.
package main

import (
	"bytes"
	"encoding/binary"
	"errors"
	"flag"
	"fmt"
	"hash/crc32"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/microsoft/inflatelib"
	"github.com/microsoft/inflatelib/flagutil"
	"github.com/microsoft/inflatelib/logutil"
	"github.com/microsoft/inflatelib/yamlutil"
)

var log = logutil.NewPackageLogger("zip-extract")

// ZIP record signatures, little-endian on disk.
const (
	sigEndOfCentralDirectory = 0x06054B50
	sigCentralDirectoryFile  = 0x02014B50
	sigLocalFileHeader       = 0x04034B50
)

const (
	methodStored    = 0
	methodDeflate   = 8
	methodDeflate64 = 9
)

type member struct {
	name             string
	method           uint16
	crc32            uint32
	compressedSize   uint32
	uncompressedSize uint32
	localOffset      uint32
}

func findEndOfCentralDirectory(data []byte) (cdOffset, cdRecords int, err error) {
	// The record is 22 bytes plus a comment of up to 64 KiB; scan backwards
	// for its signature.
	start := len(data) - (22 + 0xFFFF)
	if start < 0 {
		start = 0
	}
	for i := len(data) - 22; i >= start; i-- {
		if binary.LittleEndian.Uint32(data[i:]) != sigEndOfCentralDirectory {
			continue
		}
		cdRecords = int(binary.LittleEndian.Uint16(data[i+10:]))
		cdOffset = int(binary.LittleEndian.Uint32(data[i+16:]))
		if cdOffset >= len(data) {
			return 0, 0, fmt.Errorf("central directory offset %#x is outside the file", cdOffset)
		}
		return cdOffset, cdRecords, nil
	}
	return 0, 0, errors.New("no end of central directory record found")
}

func readCentralDirectory(data []byte, offset, records int) ([]member, error) {
	members := make([]member, 0, records)
	pos := offset
	for i := 0; i < records; i++ {
		if pos+46 > len(data) {
			return nil, fmt.Errorf("central directory truncated at record %d", i)
		}
		rec := data[pos:]
		if binary.LittleEndian.Uint32(rec) != sigCentralDirectoryFile {
			return nil, fmt.Errorf("bad central directory signature at record %d", i)
		}

		nameLen := int(binary.LittleEndian.Uint16(rec[28:]))
		extraLen := int(binary.LittleEndian.Uint16(rec[30:]))
		commentLen := int(binary.LittleEndian.Uint16(rec[32:]))
		if pos+46+nameLen > len(data) {
			return nil, fmt.Errorf("file name truncated at record %d", i)
		}

		members = append(members, member{
			name:             string(rec[46 : 46+nameLen]),
			method:           binary.LittleEndian.Uint16(rec[10:]),
			crc32:            binary.LittleEndian.Uint32(rec[16:]),
			compressedSize:   binary.LittleEndian.Uint32(rec[20:]),
			uncompressedSize: binary.LittleEndian.Uint32(rec[24:]),
			localOffset:      binary.LittleEndian.Uint32(rec[42:]),
		})
		pos += 46 + nameLen + extraLen + commentLen
	}
	return members, nil
}

// memberData locates a member's raw bytes by walking past its local header.
func memberData(data []byte, m *member) ([]byte, error) {
	off := int(m.localOffset)
	if off+30 > len(data) {
		return nil, errors.New("local header is outside the file")
	}
	hdr := data[off:]
	if binary.LittleEndian.Uint32(hdr) != sigLocalFileHeader {
		return nil, errors.New("bad local header signature")
	}

	// The local sizes can disagree with the central directory (streamed
	// archives); the central directory is authoritative.
	nameLen := int(binary.LittleEndian.Uint16(hdr[26:]))
	extraLen := int(binary.LittleEndian.Uint16(hdr[28:]))
	start := off + 30 + nameLen + extraLen
	end := start + int(m.compressedSize)
	if start > len(data) || end > len(data) {
		return nil, errors.New("member data is outside the file")
	}
	return data[start:end], nil
}

func extract(data []byte, m *member, w io.Writer) error {
	raw, err := memberData(data, m)
	if err != nil {
		return err
	}

	sum := crc32.NewIEEE()
	out := io.MultiWriter(w, sum)
	var written uint64

	switch m.method {
	case methodStored:
		n, err := out.Write(raw)
		if err != nil {
			return err
		}
		written = uint64(n)

	case methodDeflate, methodDeflate64:
		var s inflatelib.Stream
		if err := s.Init(); err != nil {
			return err
		}
		defer s.Destroy()

		step := s.Inflate
		if m.method == methodDeflate64 {
			step = s.Inflate64
		}

		buf := make([]byte, 64<<10)
		s.NextIn = raw
		for {
			s.NextOut = buf
			err := step()
			if _, werr := out.Write(buf[:len(buf)-len(s.NextOut)]); werr != nil {
				return werr
			}
			if err == io.EOF {
				break
			}
			if err != nil {
				return fmt.Errorf("%v (%s)", err, s.ErrMsg)
			}
			if len(s.NextIn) == 0 && len(s.NextOut) == len(buf) {
				return errors.New("compressed data ended before the stream did")
			}
		}
		written = s.TotalOut

	default:
		return fmt.Errorf("unsupported compression method %d", m.method)
	}

	if written != uint64(m.uncompressedSize) {
		return fmt.Errorf("decoded %d bytes, central directory says %d", written, m.uncompressedSize)
	}
	if sum.Sum32() != m.crc32 {
		return fmt.Errorf("CRC-32 mismatch: computed %08X, expected %08X", sum.Sum32(), m.crc32)
	}
	return nil
}

func methodName(method uint16) string {
	switch method {
	case methodStored:
		return "stored"
	case methodDeflate:
		return "deflate"
	case methodDeflate64:
		return "deflate64"
	default:
		return fmt.Sprintf("method-%d", method)
	}
}

func run() error {
	logutil.SetFormatter(logutil.NewPrettyFormatter(os.Stderr))

	var logLevel flagutil.LogLevelFlag
	outDir := flag.String("out", ".", "directory to extract into")
	list := flag.Bool("list", false, "list archive members instead of extracting")
	configPath := flag.String("config", "", "optional YAML file supplying flag defaults")
	flag.Var(&logLevel, "log-level", "log verbosity (CRITICAL..TRACE)")
	flag.Parse()

	if *configPath != "" {
		raw, err := os.ReadFile(*configPath)
		if err != nil {
			return err
		}
		if err := yamlutil.SetFlagsFromYaml(flag.CommandLine, raw); err != nil {
			return err
		}
	}

	if os.Getenv("INFLATELIB_LOG_JOURNALD") != "" {
		if f, ok := logutil.NewJournaldFormatter(); ok {
			logutil.SetFormatter(f)
		}
	}
	logutil.SetGlobalLogLevel(logLevel.Level())

	if flag.NArg() < 1 {
		return errors.New("usage: zip-extract [flags] archive.zip [member ...]")
	}
	data, err := os.ReadFile(flag.Arg(0))
	if err != nil {
		return err
	}

	cdOffset, cdRecords, err := findEndOfCentralDirectory(data)
	if err != nil {
		return err
	}
	members, err := readCentralDirectory(data, cdOffset, cdRecords)
	if err != nil {
		return err
	}
	log.Debugf("central directory at %#x with %d records", cdOffset, cdRecords)

	wanted := flag.Args()[1:]
	selected := func(name string) bool {
		if len(wanted) == 0 {
			return true
		}
		for _, w := range wanted {
			if name == w {
				return true
			}
		}
		return false
	}

	for i := range members {
		m := &members[i]
		if !selected(m.name) {
			continue
		}

		if *list {
			fmt.Printf("%9d  %9d  %-9s  %s\n",
				m.uncompressedSize, m.compressedSize, methodName(m.method), m.name)
			continue
		}

		if strings.HasSuffix(m.name, "/") {
			// Directory entry.
			if err := os.MkdirAll(filepath.Join(*outDir, filepath.FromSlash(m.name)), 0o755); err != nil {
				return err
			}
			continue
		}

		dest := filepath.Join(*outDir, filepath.FromSlash(m.name))
		if !strings.HasPrefix(filepath.Clean(dest), filepath.Clean(*outDir)) {
			log.Warningf("skipping %q: escapes the output directory", m.name)
			continue
		}
		if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
			return err
		}

		var buf bytes.Buffer
		if err := extract(data, m, &buf); err != nil {
			return fmt.Errorf("%s: %v", m.name, err)
		}
		if err := os.WriteFile(dest, buf.Bytes(), 0o644); err != nil {
			return err
		}
		log.Infof("extracted %s (%s, %d bytes)", m.name, methodName(m.method), m.uncompressedSize)
	}

	return nil
}

func main() {
	if err := run(); err != nil {
		log.Errorf("%v", err)
		os.Exit(1)
	}
}
