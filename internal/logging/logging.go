// Package logging builds the arbor loggers shared by the binaries.
package logging

import (
	"github.com/phuslu/log"
	"github.com/ternarybob/arbor"
	arbormodels "github.com/ternarybob/arbor/models"
	"github.com/ternarybob/arbor/writers"
)

// New returns a console logger at the given level ("debug", "info", "warn",
// "error"). Unknown levels fall back to info inside arbor. Fatal events are
// only logged; callers exit themselves.
func New(level string) arbor.ILogger {
	if level == "" {
		level = "info"
	}
	return arbor.NewLogger().WithConsoleWriter(arbormodels.WriterConfiguration{
		Type:       arbormodels.LogWriterTypeConsole,
		TimeFormat: "15:04:05",
	}).WithLevelFromString(level)
}

// discard is an arbor writer that drops every event.
type discard struct{}

func (d discard) WithLevel(log.Level) writers.IWriter { return d }
func (discard) Write(p []byte) (int, error) { return len(p), nil }
func (discard) GetFilePath() string { return "" }
func (discard) Close() error { return nil }

// Nop discards everything. It carries its own writer so it never reaches the
// globally registered console writer.
func Nop() arbor.ILogger {
	return arbor.NewLogger().WithWriters([]writers.IWriter{discard{}})
}

// OrNop returns l, or a no-op logger when l is nil.
func OrNop(l arbor.ILogger) arbor.ILogger {
	if l == nil {
		return Nop()
	}
	return l
}
