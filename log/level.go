package log

// Level specifies the log level.
type Level int

const (
	// InvalidLevel is the default level when none is set.
	InvalidLevel Level = iota
	// DebugLevel logs everything.
	DebugLevel
	// InfoLevel logs informational messages and above.
	InfoLevel
	// WarningLevel logs warnings and errors.
	WarningLevel
	// ErrorLevel logs errors only.
	ErrorLevel
)

// String returns the string representation of the level.
func (l Level) String() string {
	switch l {
	case DebugLevel:
		return "debug"
	case InfoLevel:
		return "info"
	case WarningLevel:
		return "warning"
	case ErrorLevel:
		return "error"
	default:
		return "invalid"
	}
}
