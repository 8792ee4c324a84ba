package iocboot

import (
	"fmt"
	"reflect"
	"sort"

	mapset "github.com/deckarep/golang-set/v2"
)

// This file drives the post-processor phases of container bootstrap.
//
// WARNING: Although it may appear that these functions can be refactored
// to avoid multiple loops over multiple slices, the repeated passes over
// the post-processor names are intentional. The PriorityOrdered and
// Ordered contracts require that processors are neither realized nor
// registered in the wrong order, and the invocation order across passes is
// an externally observable compatibility contract.

// InvokeFactoryPostProcessors drives the definition-registry and factory
// post-processor phases against the given factory.
//
// The directly-supplied post-processors come from the bootstrapping
// caller; further ones are discovered from the factory's own definitions.
// Registry-capable supplied processors are invoked immediately in input
// order, then registry processors are discovered and invoked in three
// priority tiers, re-scanning until no unprocessed candidate remains
// (processors may register new processors mid-phase). Every registry
// processor then receives the factory callback, followed by the
// independent factory-processor phase, again in priority tiers.
//
// The first processor error aborts the sequence and propagates to the
// caller; no later phase runs against a partially processed factory.
func InvokeFactoryPostProcessors(f *Factory, postProcessors []FactoryPostProcessor) error {
	processed := mapset.NewThreadUnsafeSet[string]()

	var regular []FactoryPostProcessor
	var registryProcessors []RegistryPostProcessor
	for _, pp := range postProcessors {
		if rp, ok := pp.(RegistryPostProcessor); ok {
			if err := rp.PostProcessDefinitionRegistry(f); err != nil {
				return err
			}
			registryProcessors = append(registryProcessors, rp)
		} else {
			regular = append(regular, pp)
		}
	}

	// Do not realize regular beans here: they must stay uninstantiated so
	// the factory post-processors still apply to them.
	var current []RegistryPostProcessor

	// First, the discovered registry processors that are PriorityOrdered.
	for _, name := range f.NamesForType(registryPostProcessorType) {
		if f.IsTypeMatch(name, priorityOrderedType) {
			p, err := GetBeanAs[RegistryPostProcessor](f, name)
			if err != nil {
				return err
			}
			current = append(current, p)
			processed.Add(name)
		}
	}
	sortPostProcessors(current)
	registryProcessors = append(registryProcessors, current...)
	if err := invokeRegistryPostProcessors(current, f); err != nil {
		return err
	}
	current = current[:0]

	// Next, the ones that are Ordered. The names are re-queried: the
	// previous batch may have registered more definitions.
	for _, name := range f.NamesForType(registryPostProcessorType) {
		if !processed.Contains(name) && f.IsTypeMatch(name, orderedType) {
			p, err := GetBeanAs[RegistryPostProcessor](f, name)
			if err != nil {
				return err
			}
			current = append(current, p)
			processed.Add(name)
		}
	}
	sortPostProcessors(current)
	registryProcessors = append(registryProcessors, current...)
	if err := invokeRegistryPostProcessors(current, f); err != nil {
		return err
	}
	current = current[:0]

	// Finally, all remaining registry processors, until a full scan finds
	// none: a fixed point, since each batch may register new candidates.
	rounds := 0
	for reiterate := true; reiterate; {
		reiterate = false
		rounds++
		if rounds > f.maxDiscoveryRounds {
			return fmt.Errorf("%w within %d rounds", ErrDiscoveryNotConverging, f.maxDiscoveryRounds)
		}
		for _, name := range f.NamesForType(registryPostProcessorType) {
			if processed.Contains(name) {
				continue
			}
			p, err := GetBeanAs[RegistryPostProcessor](f, name)
			if err != nil {
				return err
			}
			current = append(current, p)
			processed.Add(name)
			reiterate = true
		}
		sortPostProcessors(current)
		registryProcessors = append(registryProcessors, current...)
		if err := invokeRegistryPostProcessors(current, f); err != nil {
			return err
		}
		current = current[:0]
	}

	// Every registry processor handled so far also receives the factory
	// callback, in accumulated invocation order, before the
	// directly-supplied regular ones.
	for _, p := range registryProcessors {
		if err := invokeFactoryPostProcessor(p, f); err != nil {
			return err
		}
	}
	for _, p := range regular {
		if err := invokeFactoryPostProcessor(p, f); err != nil {
			return err
		}
	}

	// Independent factory-processor phase over the discovered names,
	// skipping everything the registry phase already handled. Realization
	// is deferred per tier: the split predicates only need type matches.
	var priorityOrdered []FactoryPostProcessor
	var orderedNames, nonOrderedNames []string
	for _, name := range f.NamesForType(factoryPostProcessorType) {
		switch {
		case processed.Contains(name):
			// already handled in the registry phase above
		case f.IsTypeMatch(name, priorityOrderedType):
			p, err := GetBeanAs[FactoryPostProcessor](f, name)
			if err != nil {
				return err
			}
			priorityOrdered = append(priorityOrdered, p)
		case f.IsTypeMatch(name, orderedType):
			orderedNames = append(orderedNames, name)
		default:
			nonOrderedNames = append(nonOrderedNames, name)
		}
	}

	sortPostProcessors(priorityOrdered)
	for _, p := range priorityOrdered {
		if err := invokeFactoryPostProcessor(p, f); err != nil {
			return err
		}
	}

	ordered := make([]FactoryPostProcessor, 0, len(orderedNames))
	for _, name := range orderedNames {
		p, err := GetBeanAs[FactoryPostProcessor](f, name)
		if err != nil {
			return err
		}
		ordered = append(ordered, p)
	}
	sortPostProcessors(ordered)
	for _, p := range ordered {
		if err := invokeFactoryPostProcessor(p, f); err != nil {
			return err
		}
	}

	for _, name := range nonOrderedNames {
		p, err := GetBeanAs[FactoryPostProcessor](f, name)
		if err != nil {
			return err
		}
		if err := invokeFactoryPostProcessor(p, f); err != nil {
			return err
		}
	}

	// Processors may have rewritten raw definition data that cached merged
	// copies would now contradict.
	f.ClearMetadataCache()
	return nil
}

// RegisterBeanPostProcessors discovers every BeanPostProcessor definition
// and registers the instances with the factory, in priority tiers.
//
// A bookkeeping checker is registered first, configured with the final
// expected chain length, so beans realized while the chain is still
// growing get flagged. MergedDefinitionPostProcessor instances are
// re-registered once more at the very end of their tiers: merged-definition
// processors must sit last to pick up wrapping effects applied by
// later-registered processors. The resulting duplicate registration is
// intentional. A detector for event-listener beans closes the chain.
func RegisterBeanPostProcessors(f *Factory) error {
	names := f.NamesForType(beanPostProcessorType)

	targetCount := f.BeanPostProcessorCount() + 1 + len(names)
	f.AddBeanPostProcessor(&beanPostProcessorChecker{factory: f, targetCount: targetCount})

	var priorityOrdered []BeanPostProcessor
	var internal []BeanPostProcessor
	var orderedNames, nonOrderedNames []string
	for _, name := range names {
		switch {
		case f.IsTypeMatch(name, priorityOrderedType):
			p, err := GetBeanAs[BeanPostProcessor](f, name)
			if err != nil {
				return err
			}
			priorityOrdered = append(priorityOrdered, p)
			if mp, ok := p.(MergedDefinitionPostProcessor); ok {
				internal = append(internal, mp)
			}
		case f.IsTypeMatch(name, orderedType):
			orderedNames = append(orderedNames, name)
		default:
			nonOrderedNames = append(nonOrderedNames, name)
		}
	}

	sortPostProcessors(priorityOrdered)
	f.AddBeanPostProcessors(priorityOrdered)

	ordered := make([]BeanPostProcessor, 0, len(orderedNames))
	for _, name := range orderedNames {
		p, err := GetBeanAs[BeanPostProcessor](f, name)
		if err != nil {
			return err
		}
		ordered = append(ordered, p)
		if mp, ok := p.(MergedDefinitionPostProcessor); ok {
			internal = append(internal, mp)
		}
	}
	sortPostProcessors(ordered)
	f.AddBeanPostProcessors(ordered)

	nonOrdered := make([]BeanPostProcessor, 0, len(nonOrderedNames))
	for _, name := range nonOrderedNames {
		p, err := GetBeanAs[BeanPostProcessor](f, name)
		if err != nil {
			return err
		}
		nonOrdered = append(nonOrdered, p)
		if mp, ok := p.(MergedDefinitionPostProcessor); ok {
			internal = append(internal, mp)
		}
	}
	f.AddBeanPostProcessors(nonOrdered)

	sortPostProcessors(internal)
	f.AddBeanPostProcessors(internal)

	f.AddBeanPostProcessor(&listenerDetector{factory: f})
	return nil
}

// InvokeMergedDefinitionPostProcessors resolves the merged form of every
// registered definition and applies all MergedDefinitionPostProcessor
// instances to it, recursing into definitions nested inside property
// values and indexed constructor arguments. Each top-level definition is
// marked as post-processed so a repeated pass does not reapply the
// processors. The loaded processor list is bulk-registered with the
// factory afterwards.
func InvokeMergedDefinitionPostProcessors(f *Factory) error {
	processors, err := loadMergedDefinitionPostProcessors(f)
	if err != nil {
		return err
	}

	for _, name := range f.DefinitionNames() {
		merged, err := f.MergedDefinition(name)
		if err != nil {
			return err
		}
		if merged.PostProcessed() {
			continue
		}
		beanType := f.resolveDefinitionType(merged)
		if err := postProcessDefinition(f, processors, name, beanType, merged); err != nil {
			return err
		}
		merged.markPostProcessed()
	}

	chain := make([]BeanPostProcessor, 0, len(processors))
	for _, p := range processors {
		chain = append(chain, p)
	}
	f.AddBeanPostProcessors(chain)
	return nil
}

func postProcessDefinition(f *Factory, processors []MergedDefinitionPostProcessor,
	name string, beanType reflect.Type, merged *Definition) error {

	for _, p := range processors {
		p.PostProcessMergedDefinition(merged, beanType, name)
	}

	for _, pv := range merged.Properties {
		if inner, ok := pv.Value.(*Definition); ok {
			if err := postProcessInnerDefinition(f, processors, inner); err != nil {
				return err
			}
		}
	}
	for _, index := range sortedCtorArgIndexes(merged) {
		if inner, ok := merged.CtorArgs[index].(*Definition); ok {
			if err := postProcessInnerDefinition(f, processors, inner); err != nil {
				return err
			}
		}
	}
	return nil
}

func postProcessInnerDefinition(f *Factory, processors []MergedDefinitionPostProcessor, inner *Definition) error {
	innerName, innerMerged, err := f.ResolveInnerDefinition(inner)
	if err != nil {
		return err
	}
	innerType := f.resolveDefinitionType(innerMerged)
	return postProcessDefinition(f, processors, innerName, innerType, innerMerged)
}

func sortedCtorArgIndexes(def *Definition) []int {
	if len(def.CtorArgs) == 0 {
		return nil
	}
	indexes := make([]int, 0, len(def.CtorArgs))
	for i := range def.CtorArgs {
		indexes = append(indexes, i)
	}
	sort.Ints(indexes)
	return indexes
}

// loadMergedDefinitionPostProcessors realizes and sorts every registered
// MergedDefinitionPostProcessor.
func loadMergedDefinitionPostProcessors(f *Factory) ([]MergedDefinitionPostProcessor, error) {
	var processors []MergedDefinitionPostProcessor
	for _, name := range f.NamesForType(mergedPostProcessorType) {
		p, err := GetBeanAs[MergedDefinitionPostProcessor](f, name)
		if err != nil {
			return nil, err
		}
		processors = append(processors, p)
	}
	sortPostProcessors(processors)
	return processors, nil
}

func invokeRegistryPostProcessors(postProcessors []RegistryPostProcessor, f *Factory) error {
	for _, p := range postProcessors {
		step := f.Startup().Start(stepDefinitionRegistryPostProcess).
			Tag(tagPostProcessor, func() string { return fmt.Sprintf("%T", p) })
		err := p.PostProcessDefinitionRegistry(f)
		step.End()
		if err != nil {
			return err
		}
	}
	return nil
}

func invokeFactoryPostProcessor(p FactoryPostProcessor, f *Factory) error {
	step := f.Startup().Start(stepBeanFactoryPostProcess).
		Tag(tagPostProcessor, func() string { return fmt.Sprintf("%T", p) })
	err := p.PostProcessFactory(f)
	step.End()
	return err
}
