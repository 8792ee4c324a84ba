package iocboot

import (
	"github.com/Station-Manager/iocboot/log"
	"github.com/Station-Manager/iocboot/startup"
)

// Context drives a container refresh against a Factory. A Context holds no
// state across refreshes beyond the factory it owns; two contexts never
// share registries.
type Context struct {
	factory        *Factory
	postProcessors []FactoryPostProcessor
	startup        startup.Startup
}

// ContextOption configures a Context at construction time.
type ContextOption func(*Context)

// WithFactory supplies a pre-populated factory instead of an empty one.
func WithFactory(f *Factory) ContextOption {
	return func(c *Context) { c.factory = f }
}

// WithContextLogger sets the logger on the context's current factory.
// Place it after WithFactory when both are used.
func WithContextLogger(logger log.Logger) ContextOption {
	return func(c *Context) {
		if c.factory != nil {
			c.factory.logger = logger
		}
	}
}

// WithContextStartup sets the instrumentation sink for the refresh
// sequence and the factory phases.
func WithContextStartup(s startup.Startup) ContextOption {
	return func(c *Context) {
		c.startup = s
		if c.factory != nil {
			c.factory.startup = s
		}
	}
}

// NewContext creates a context with its own empty factory unless one is
// supplied.
func NewContext(opts ...ContextOption) *Context {
	c := &Context{factory: NewFactory()}
	for _, opt := range opts {
		opt(c)
	}
	if c.startup == nil {
		c.startup = c.factory.Startup()
	}
	return c
}

// Factory returns the factory this context refreshes.
func (c *Context) Factory() *Factory { return c.factory }

// AddFactoryPostProcessor registers a directly-supplied factory
// post-processor, invoked before any registry-discovered one on the next
// refresh. Supplied processors keep their input order.
func (c *Context) AddFactoryPostProcessor(p FactoryPostProcessor) {
	c.postProcessors = append(c.postProcessors, p)
}

// Refresh runs the bootstrap sequence once: factory post-processing, bean
// post-processor registration, the merged-definition pass, then singleton
// pre-instantiation. The first error aborts the remaining phases and
// propagates.
func (c *Context) Refresh() error {
	step := c.startup.Start(stepContextRefresh)
	defer step.End()

	if err := InvokeFactoryPostProcessors(c.factory, c.postProcessors); err != nil {
		return err
	}
	if err := RegisterBeanPostProcessors(c.factory); err != nil {
		return err
	}

	beansStep := c.startup.Start(stepBeansPostProcess)
	err := InvokeMergedDefinitionPostProcessors(c.factory)
	beansStep.End()
	if err != nil {
		return err
	}

	return c.factory.PreInstantiateSingletons()
}
