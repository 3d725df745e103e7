// Package logutil provides leveled, per-package loggers for the inflatelib
// tools. Packages register a logger at init time, and the process picks the
// output format and verbosity once in main.
package logutil

import (
	"fmt"
	"os"
	"strings"
	"sync"
)

// LogLevel is the set of all log levels.
type LogLevel int8

const (
	// CRITICAL is the lowest log level; only errors which will end the program are propagated.
	CRITICAL LogLevel = iota - 1
	// ERROR is for errors that are not fatal but lead to troubling behavior.
	ERROR
	// WARNING is for conditions which are not errors but are unusual, often misconfigurations.
	WARNING
	// INFO is a log level for common, everyday log updates.
	INFO
	// DEBUG is the default hidden level for more verbose updates about internal processes.
	DEBUG
	// TRACE is for (potentially) call by call tracing of programs.
	TRACE
)

// Char returns a single-character representation of the log level.
func (l LogLevel) Char() string {
	switch l {
	case CRITICAL:
		return "C"
	case ERROR:
		return "E"
	case WARNING:
		return "W"
	case INFO:
		return "I"
	case DEBUG:
		return "D"
	case TRACE:
		return "T"
	default:
		panic("unhandled log level")
	}
}

// ParseLevel translates a log level name into its level.
func ParseLevel(s string) (LogLevel, error) {
	switch strings.ToUpper(s) {
	case "CRITICAL", "C":
		return CRITICAL, nil
	case "ERROR", "0", "E":
		return ERROR, nil
	case "WARNING", "1", "W":
		return WARNING, nil
	case "INFO", "2", "I":
		return INFO, nil
	case "DEBUG", "3", "D":
		return DEBUG, nil
	case "TRACE", "4", "T":
		return TRACE, nil
	}
	return CRITICAL, fmt.Errorf("couldn't parse log level %s", s)
}

type registry struct {
	lock      sync.Mutex
	packages  map[string]*PackageLogger
	formatter Formatter
}

var logger = new(registry)

// SetFormatter sets the formatting function for all logs.
func SetFormatter(f Formatter) {
	logger.lock.Lock()
	defer logger.lock.Unlock()
	logger.formatter = f
}

// SetGlobalLogLevel sets the log level for every registered package.
func SetGlobalLogLevel(l LogLevel) {
	logger.lock.Lock()
	defer logger.lock.Unlock()
	for _, p := range logger.packages {
		p.level = l
	}
}

// NewPackageLogger creates (or returns) the logger for pkg. It is meant to
// be assigned to a global var in the calling package.
func NewPackageLogger(pkg string) *PackageLogger {
	logger.lock.Lock()
	defer logger.lock.Unlock()
	if logger.packages == nil {
		logger.packages = make(map[string]*PackageLogger)
	}
	p, ok := logger.packages[pkg]
	if !ok {
		p = &PackageLogger{pkg: pkg, level: INFO}
		logger.packages[pkg] = p
	}
	return p
}

// PackageLogger emits log entries tagged with one package's name.
type PackageLogger struct {
	pkg   string
	level LogLevel
}

func (p *PackageLogger) log(l LogLevel, format string, args ...interface{}) {
	logger.lock.Lock()
	defer logger.lock.Unlock()
	if p.level < l || logger.formatter == nil {
		return
	}
	logger.formatter.Format(p.pkg, l, fmt.Sprintf(format, args...))
}

func (p *PackageLogger) Tracef(format string, args ...interface{}) {
	p.log(TRACE, format, args...)
}

func (p *PackageLogger) Debugf(format string, args ...interface{}) {
	p.log(DEBUG, format, args...)
}

func (p *PackageLogger) Infof(format string, args ...interface{}) {
	p.log(INFO, format, args...)
}

func (p *PackageLogger) Warningf(format string, args ...interface{}) {
	p.log(WARNING, format, args...)
}

func (p *PackageLogger) Errorf(format string, args ...interface{}) {
	p.log(ERROR, format, args...)
}

// Fatalf logs at CRITICAL and exits the process.
func (p *PackageLogger) Fatalf(format string, args ...interface{}) {
	p.log(CRITICAL, format, args...)
	os.Exit(1)
}
