package iocboot

import "reflect"

// FactoryPostProcessor inspects or modifies the fully-populated definition
// set after all definition-registry mutation has finished. Property values
// may be rewritten, but no bean has been instantiated yet.
type FactoryPostProcessor interface {
	PostProcessFactory(f *Factory) error
}

// RegistryPostProcessor adds, modifies or removes definitions before any
// bean is instantiated. Every RegistryPostProcessor is also a
// FactoryPostProcessor and receives the factory callback once registry
// mutation has completed.
//
// A RegistryPostProcessor may register further RegistryPostProcessor
// definitions during its own invocation; the bootstrap sequence keeps
// re-scanning until no unprocessed instance remains.
type RegistryPostProcessor interface {
	FactoryPostProcessor
	PostProcessDefinitionRegistry(f *Factory) error
}

// BeanPostProcessor wraps bean instances around their initialization
// callback. BeforeInit runs before Initializer.Initialize, AfterInit runs
// after it. Either may return a replacement instance (a wrapper or proxy);
// returning the input unchanged is the common case.
type BeanPostProcessor interface {
	BeforeInit(bean any, beanName string) (any, error)
	AfterInit(bean any, beanName string) (any, error)
}

// MergedDefinitionPostProcessor modifies a definition's merged form, keyed
// by its resolved type. beanType is nil when the definition's type name
// could not be resolved; implementations must tolerate that.
type MergedDefinitionPostProcessor interface {
	BeanPostProcessor
	PostProcessMergedDefinition(def *Definition, beanType reflect.Type, beanName string)
}

// EventListener is the capability detected by the end-of-chain
// post-processor installed during bootstrap: beans implementing it are
// recorded as listeners, including inner/anonymous ones.
type EventListener interface {
	OnEvent(event any)
}

// Capability interface types used for registry queries.
var (
	registryPostProcessorType = reflect.TypeOf((*RegistryPostProcessor)(nil)).Elem()
	factoryPostProcessorType  = reflect.TypeOf((*FactoryPostProcessor)(nil)).Elem()
	beanPostProcessorType     = reflect.TypeOf((*BeanPostProcessor)(nil)).Elem()
	mergedPostProcessorType   = reflect.TypeOf((*MergedDefinitionPostProcessor)(nil)).Elem()
	priorityOrderedType       = reflect.TypeOf((*PriorityOrdered)(nil)).Elem()
	orderedType               = reflect.TypeOf((*Ordered)(nil)).Elem()
)
