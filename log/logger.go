package log

import "os"

// Logger represents an active logging object that generates leveled
// output. Implementations must be safe for concurrent use.
type Logger interface {
	// Debug starts a new message with debug level.
	Debug(...any)
	// Debugf starts a new message with debug level.
	Debugf(string, ...any)
	// Info starts a new message with info level.
	Info(...any)
	// Infof starts a new message with info level.
	Infof(string, ...any)
	// Warn starts a new message with warn level.
	Warn(...any)
	// Warnf starts a new message with warn level.
	Warnf(string, ...any)
	// Error starts a new message with error level.
	Error(...any)
	// Errorf starts a new message with error level.
	Errorf(string, ...any)
	// LogLevel returns the log level being used.
	LogLevel() Level
}

// DefaultLogger is a global logger configured to output messages at
// InfoLevel and above to os.Stderr.
var DefaultLogger Logger = NewZap(InfoLevel, os.Stderr)

// DiscardLogger is a no-op logger that discards all log messages.
var DiscardLogger Logger = discard{}
