// Package startup records named, taggable steps during container
// bootstrap. The container brackets every post-processor invocation with a
// step so that slow extensions show up in startup diagnostics. The default
// implementation is a no-op; Buffering keeps steps in memory and Tracing
// forwards them to an OpenTelemetry tracer.
package startup

// Startup is the entry point for recording bootstrap steps.
type Startup interface {
	// Start begins a new step with the given name. Step names are fixed
	// dotted identifiers (for example "iocboot.context.refresh") and are
	// part of the observable contract for downstream metrics consumers.
	Start(name string) Step
}

// Step records a single phase of the bootstrap sequence. A Step is not
// reusable once ended.
type Step interface {
	// Tag attaches a key to the step. The value supplier is only invoked
	// when the implementation actually records tags, so callers may pass
	// suppliers that format lazily.
	Tag(key string, value func() string) Step
	// End marks the step as complete.
	End()
}

// Default returns the no-op Startup used when no instrumentation has been
// configured.
func Default() Startup { return noopStartup{} }

type noopStartup struct{}

func (noopStartup) Start(string) Step { return noopStep{} }

type noopStep struct{}

func (s noopStep) Tag(string, func() string) Step { return s }

func (noopStep) End() {}
