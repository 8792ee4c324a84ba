// Package iocboot implements the post-processor bootstrap sequence of an
// IoC container: discovery, ordering and invocation of the extension
// hooks that run while a container starts up.
//
// Extensions participate through capability interfaces checked at
// runtime: RegistryPostProcessor mutates the definition registry before
// any bean exists, FactoryPostProcessor inspects the finished definition
// set, BeanPostProcessor wraps bean initialization, and
// MergedDefinitionPostProcessor rewrites flattened definitions. A
// three-tier priority scheme (PriorityOrdered, Ordered, unordered)
// controls invocation order; the resulting order is a documented
// compatibility contract.
//
// A typical bootstrap is driven through Context.Refresh, which runs
// InvokeFactoryPostProcessors, RegisterBeanPostProcessors and
// InvokeMergedDefinitionPostProcessors against a Factory and then
// pre-instantiates the remaining singletons. Each post-processor
// invocation is bracketed by a startup.Step for diagnostics.
package iocboot
