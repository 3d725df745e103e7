// Package flagutil holds flag.Value implementations shared by the
// inflatelib command line tools.
package flagutil

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/microsoft/inflatelib/logutil"
)

// LogLevelFlag parses a log level name (CRITICAL..TRACE). This type
// implements the flag.Value interface.
type LogLevelFlag struct {
	val logutil.LogLevel
	set bool
}

func (f *LogLevelFlag) Level() logutil.LogLevel {
	if !f.set {
		return logutil.INFO
	}
	return f.val
}

func (f *LogLevelFlag) Set(v string) error {
	l, err := logutil.ParseLevel(v)
	if err != nil {
		return err
	}
	f.val = l
	f.set = true
	return nil
}

func (f *LogLevelFlag) String() string {
	if !f.set {
		return "INFO"
	}
	return f.val.Char()
}

// ByteSizeFlag parses a byte count with an optional K/M/G suffix, e.g.
// "64K". This type implements the flag.Value interface.
type ByteSizeFlag struct {
	val int
}

func (f *ByteSizeFlag) Bytes() int {
	return f.val
}

func (f *ByteSizeFlag) Set(v string) error {
	if v == "" {
		return errors.New("empty size")
	}

	mult := 1
	switch strings.ToUpper(v[len(v)-1:]) {
	case "K":
		mult = 1 << 10
		v = v[:len(v)-1]
	case "M":
		mult = 1 << 20
		v = v[:len(v)-1]
	case "G":
		mult = 1 << 30
		v = v[:len(v)-1]
	}

	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("not a byte size: %v", err)
	}
	if n <= 0 {
		return errors.New("size must be positive")
	}
	f.val = n * mult
	return nil
}

func (f *ByteSizeFlag) String() string {
	return strconv.Itoa(f.val)
}
