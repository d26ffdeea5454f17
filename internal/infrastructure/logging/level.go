package logging

import (
	"errors"
	"log/slog"
)

// Level is a log level name usable as a cobra flag value.
type Level string

const (
	LevelDebug Level = "debug"
	LevelInfo  Level = "info"
	LevelWarn  Level = "warn"
	LevelError Level = "error"
)

func (l *Level) String() string {
	if l == nil {
		return ""
	}
	return string(*l)
}

func (l *Level) Set(v string) error {
	for _, level := range []Level{LevelDebug, LevelInfo, LevelWarn, LevelError} {
		if v == string(level) {
			*l = level
			return nil
		}
	}
	return errors.New(`must be one of "debug", "info", "warn", or "error"`)
}

func (l *Level) Type() string {
	return "log-level"
}

// SlogLevel maps the name to a slog level. Unknown names map to info.
func (l Level) SlogLevel() slog.Level {
	switch l {
	case LevelDebug:
		return slog.LevelDebug
	case LevelWarn:
		return slog.LevelWarn
	case LevelError:
		return slog.LevelError
	}
	return slog.LevelInfo
}

// Valid reports whether l names a known level. The empty level is valid and
// means info.
func (l Level) Valid() bool {
	switch l {
	case "", LevelDebug, LevelInfo, LevelWarn, LevelError:
		return true
	}
	return false
}
