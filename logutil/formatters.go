package logutil

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"time"
)

// Formatter renders one log entry. Implementations are called with the
// registry lock held, so they need no locking of their own.
type Formatter interface {
	Format(pkg string, level LogLevel, msg string)
}

// NewStringFormatter writes bare "pkg: message" lines, suitable for piping.
func NewStringFormatter(w io.Writer) Formatter {
	return &stringFormatter{w: bufio.NewWriter(w)}
}

type stringFormatter struct {
	w *bufio.Writer
}

func (s *stringFormatter) Format(pkg string, _ LogLevel, msg string) {
	fmt.Fprintf(s.w, "%s: %s\n", pkg, msg)
	s.w.Flush()
}

// NewPrettyFormatter writes a glog-style header in front of each entry:
// level character, timestamp, pid, and package.
func NewPrettyFormatter(w io.Writer) Formatter {
	return &prettyFormatter{w: bufio.NewWriter(w), pid: os.Getpid()}
}

type prettyFormatter struct {
	w   *bufio.Writer
	pid int
}

func (p *prettyFormatter) Format(pkg string, level LogLevel, msg string) {
	now := time.Now()
	fmt.Fprintf(p.w, "%s%s %d %s] %s\n",
		level.Char(), now.Format("0102 15:04:05.000000"), p.pid, pkg, msg)
	p.w.Flush()
}
