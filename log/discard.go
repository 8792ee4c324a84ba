package log

// discard is a Logger implementation that drops every message.
type discard struct{}

var _ Logger = discard{}

func (discard) Debug(...any)          {}
func (discard) Debugf(string, ...any) {}
func (discard) Info(...any)           {}
func (discard) Infof(string, ...any)  {}
func (discard) Warn(...any)           {}
func (discard) Warnf(string, ...any)  {}
func (discard) Error(...any)          {}
func (discard) Errorf(string, ...any) {}
func (discard) LogLevel() Level       { return InvalidLevel }
