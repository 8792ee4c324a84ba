package startup

import (
	"context"
	"io"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

// Tracing is a Startup implementation that emits every step as an
// OpenTelemetry span. Steps are synchronous and single-threaded during
// bootstrap, so spans nest naturally via the shared context.
type Tracing struct {
	tracer trace.Tracer
	ctx    context.Context
}

var _ Startup = (*Tracing)(nil)

// NewTracing wraps the given tracer. The background context is used as the
// root for all step spans.
func NewTracing(tracer trace.Tracer) *Tracing {
	return &Tracing{tracer: tracer, ctx: context.Background()}
}

// NewStdoutTracing builds a Tracing recorder backed by an in-process trace
// provider that pretty-prints finished spans to w. The returned shutdown
// function flushes the exporter and must be called when bootstrap
// diagnostics are no longer needed.
func NewStdoutTracing(w io.Writer) (*Tracing, func(context.Context) error, error) {
	exporter, err := stdouttrace.New(
		stdouttrace.WithWriter(w),
		stdouttrace.WithPrettyPrint(),
	)
	if err != nil {
		return nil, nil, err
	}
	provider := sdktrace.NewTracerProvider(sdktrace.WithBatcher(exporter))
	return NewTracing(provider.Tracer("iocboot")), provider.Shutdown, nil
}

// Start begins a span named after the step.
func (t *Tracing) Start(name string) Step {
	ctx, span := t.tracer.Start(t.ctx, name)
	parent := t.ctx
	t.ctx = ctx
	return &tracingStep{owner: t, span: span, parent: parent}
}

type tracingStep struct {
	owner  *Tracing
	span   trace.Span
	parent context.Context
	ended  bool
}

func (s *tracingStep) Tag(key string, value func() string) Step {
	if s.span.IsRecording() {
		s.span.SetAttributes(attribute.String(key, value()))
	}
	return s
}

func (s *tracingStep) End() {
	if s.ended {
		return
	}
	s.ended = true
	s.span.End()
	s.owner.ctx = s.parent
}
