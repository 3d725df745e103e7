package logutil

import (
	"github.com/coreos/go-systemd/v22/journal"
)

// NewJournaldFormatter sends entries to the systemd journal with the
// package name attached as a field. It reports false when no journal
// socket is available, in which case the caller should fall back to a
// stream formatter.
func NewJournaldFormatter() (Formatter, bool) {
	if !journal.Enabled() {
		return nil, false
	}
	return &journaldFormatter{}, true
}

type journaldFormatter struct{}

var journalPriority = map[LogLevel]journal.Priority{
	CRITICAL: journal.PriCrit,
	ERROR:    journal.PriErr,
	WARNING:  journal.PriWarning,
	INFO:     journal.PriInfo,
	DEBUG:    journal.PriDebug,
	TRACE:    journal.PriDebug,
}

func (j *journaldFormatter) Format(pkg string, level LogLevel, msg string) {
	journal.Send(msg, journalPriority[level], map[string]string{
		"PACKAGE": pkg,
	})
}
