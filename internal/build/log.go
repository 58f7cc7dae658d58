// Package build wires up subsystem-tagged loggers the way the rest of the
// stack expects: every package gets a placeholder logger at init time, and
// SetupLoggers replaces each one's backend once the root log writer exists.
package build

import (
	"os"

	"github.com/decred/slog"
	"github.com/jrick/logrotate/rotator"
)

// Subsystem tags, one per core package that logs.
const (
	SubsystemWalletDB  = "WDB"
	SubsystemKeystore  = "KEYS"
	SubsystemSync      = "SYNC"
	SubsystemSpend     = "SPND"
	SubsystemRPC       = "RPCS"
	SubsystemCore      = "CORE"
	SubsystemChainView = "CHVW"
)

type replaceableLogger struct {
	slog.Logger
	subsystem string
}

var subsystemLoggers []*replaceableLogger

// NewLogger registers a new subsystem logger, initially backed by a
// disabled backend so that early log calls before SetupLoggers runs are
// silently dropped rather than panicking.
func NewLogger(subsystem string) slog.Logger {
	l := &replaceableLogger{
		Logger:    slog.Disabled,
		subsystem: subsystem,
	}
	subsystemLoggers = append(subsystemLoggers, l)
	return l
}

// RotatingLogWriter multiplexes log output to stdout and to a rotated file
// on disk, backed by jrick/logrotate.
type RotatingLogWriter struct {
	rotator *rotator.Rotator
}

// NewRotatingLogWriter creates a log writer rotating logFile at maxRollMB.
func NewRotatingLogWriter(logFile string, maxRollMB int64) (*RotatingLogWriter, error) {
	r, err := rotator.New(logFile, maxRollMB, false, 3)
	if err != nil {
		return nil, err
	}
	return &RotatingLogWriter{rotator: r}, nil
}

func (w *RotatingLogWriter) Write(p []byte) (int, error) {
	os.Stdout.Write(p)
	return w.rotator.Write(p)
}

// SetupLoggers replaces every registered subsystem logger's backend with one
// writing through root, at the given level.
func SetupLoggers(root *RotatingLogWriter, level slog.Level) {
	backend := slog.NewBackend(root)
	for _, l := range subsystemLoggers {
		logger := backend.Logger(l.subsystem)
		logger.SetLevel(level)
		l.Logger = logger
	}
}
