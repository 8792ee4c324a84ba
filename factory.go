package iocboot

import (
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/Station-Manager/iocboot/log"
	"github.com/Station-Manager/iocboot/startup"
	mapset "github.com/deckarep/golang-set/v2"
)

const defaultMaxDiscoveryRounds = 1000

// Factory is the bean registry the bootstrap sequence runs against. It
// holds named definitions (the source of truth), singletons realized from
// them, and the bean post-processor chain built up during bootstrap.
//
// The bootstrap phases treat the factory as append-mostly shared state:
// invoking a post-processor may register new definitions, so phases
// re-query names instead of caching them. Access during bootstrap is
// single-threaded; the internal lock only guards against concurrent
// registration outside of bootstrap.
type Factory struct {
	mu sync.RWMutex

	// definitions is the source of truth for all registered beans.
	definitions     map[string]*Definition
	definitionNames []string

	singletons     map[string]any
	singletonNames []string

	// inCreation guards against definition cycles during bean creation.
	inCreation map[string]bool

	// namedTypes resolves Definition.TypeName to a concrete type.
	namedTypes map[string]reflect.Type

	// mergedDefinitions caches flattened definitions until the raw
	// metadata changes underneath them.
	mergedDefinitions map[string]*Definition

	postProcessors []BeanPostProcessor

	// listenerNames records beans detected as event listeners by the
	// end-of-chain post-processor.
	listenerNames mapset.Set[string]

	logger             log.Logger
	startup            startup.Startup
	maxDiscoveryRounds int
}

// FactoryOption configures a Factory at construction time.
type FactoryOption func(*Factory)

// WithLogger sets the logger used for bootstrap diagnostics.
func WithLogger(logger log.Logger) FactoryOption {
	return func(f *Factory) { f.logger = logger }
}

// WithStartup sets the instrumentation sink bracketing every
// post-processor invocation.
func WithStartup(s startup.Startup) FactoryOption {
	return func(f *Factory) { f.startup = s }
}

// WithMaxDiscoveryRounds caps the fixed-point discovery loop of the
// definition-registry phase. A post-processor that keeps registering new
// post-processors forever would otherwise loop unbounded; exceeding the
// cap surfaces ErrDiscoveryNotConverging instead.
func WithMaxDiscoveryRounds(n int) FactoryOption {
	return func(f *Factory) { f.maxDiscoveryRounds = n }
}

// NewFactory creates an empty factory.
func NewFactory(opts ...FactoryOption) *Factory {
	f := &Factory{
		definitions:        make(map[string]*Definition),
		singletons:         make(map[string]any),
		inCreation:         make(map[string]bool),
		namedTypes:         make(map[string]reflect.Type),
		mergedDefinitions:  make(map[string]*Definition),
		listenerNames:      mapset.NewThreadUnsafeSet[string](),
		logger:             log.DefaultLogger,
		startup:            startup.Default(),
		maxDiscoveryRounds: defaultMaxDiscoveryRounds,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// normalizeBeanName enforces lower-case bean names so lookups are
// case-insensitive.
func normalizeBeanName(name string) string { return strings.ToLower(name) }

// RegisterDefinition registers a definition under the given name,
// replacing any previous one. Struct types are normalized to
// pointer-to-struct for consistent instantiation semantics.
func (f *Factory) RegisterDefinition(name string, def *Definition) error {
	if name == emptyString {
		return ErrBeanNameEmpty
	}
	if def == nil {
		return ErrDefinitionNil
	}
	if def.Type != nil {
		switch def.Type.Kind() {
		case reflect.Ptr:
			if def.Type.Elem().Kind() != reflect.Struct {
				return ErrBeanTypeNotSupported
			}
		case reflect.Struct:
			def.Type = reflect.PointerTo(def.Type)
		default:
			return ErrBeanTypeNotSupported
		}
	}

	name = normalizeBeanName(name)
	f.mu.Lock()
	if _, exists := f.definitions[name]; !exists {
		f.definitionNames = append(f.definitionNames, name)
	}
	f.definitions[name] = def
	delete(f.mergedDefinitions, name)
	f.mu.Unlock()
	return nil
}

// RemoveDefinition removes a definition. Already-realized singletons stay.
func (f *Factory) RemoveDefinition(name string) error {
	name = normalizeBeanName(name)
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.definitions[name]; !ok {
		return fmt.Errorf("%w: %q", ErrDefinitionNotFound, name)
	}
	delete(f.definitions, name)
	delete(f.mergedDefinitions, name)
	for i, n := range f.definitionNames {
		if n == name {
			f.definitionNames = append(f.definitionNames[:i], f.definitionNames[i+1:]...)
			break
		}
	}
	return nil
}

// RegisterSingleton registers a ready-made instance under the given name.
// Struct values are normalized to pointers.
func (f *Factory) RegisterSingleton(name string, instance any) error {
	if name == emptyString {
		return ErrBeanNameEmpty
	}
	if instance == nil {
		return ErrBeanNil
	}

	if t := reflect.TypeOf(instance); t.Kind() == reflect.Struct {
		ptr := reflect.New(t)
		ptr.Elem().Set(reflect.ValueOf(instance))
		instance = ptr.Interface()
	}

	name = normalizeBeanName(name)
	f.mu.Lock()
	if _, exists := f.singletons[name]; !exists {
		f.singletonNames = append(f.singletonNames, name)
	}
	f.singletons[name] = instance
	f.mu.Unlock()
	return nil
}

// ContainsDefinition reports whether a definition is registered under the
// given name.
func (f *Factory) ContainsDefinition(name string) bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	_, ok := f.definitions[normalizeBeanName(name)]
	return ok
}

// ContainsSingleton reports whether a singleton instance exists under the
// given name.
func (f *Factory) ContainsSingleton(name string) bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	_, ok := f.singletons[normalizeBeanName(name)]
	return ok
}

// Definition returns the raw (unmerged) definition registered under name.
func (f *Factory) Definition(name string) (*Definition, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	def, ok := f.definitions[normalizeBeanName(name)]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrDefinitionNotFound, name)
	}
	return def, nil
}

// DefinitionNames returns all definition names in registration order.
func (f *Factory) DefinitionNames() []string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := make([]string, len(f.definitionNames))
	copy(out, f.definitionNames)
	return out
}

// RegisterType makes a type resolvable by name through
// Definition.TypeName. Struct types are normalized to pointer-to-struct.
func (f *Factory) RegisterType(name string, t reflect.Type) {
	if t.Kind() == reflect.Struct {
		t = reflect.PointerTo(t)
	}
	f.mu.Lock()
	f.namedTypes[name] = t
	f.mu.Unlock()
}

// NamesForType enumerates, in registration order, the names of all
// definitions and manually-registered singletons whose declared type
// implements the given capability interface. No bean is instantiated.
func (f *Factory) NamesForType(capability reflect.Type) []string {
	f.mu.RLock()
	defer f.mu.RUnlock()

	var names []string
	for _, name := range f.definitionNames {
		if f.typeMatchLocked(name, capability) {
			names = append(names, name)
		}
	}
	for _, name := range f.singletonNames {
		if _, shadowed := f.definitions[name]; shadowed {
			continue
		}
		if f.typeMatchLocked(name, capability) {
			names = append(names, name)
		}
	}
	return names
}

// IsTypeMatch reports whether the bean registered under name would
// implement the given capability, without forcing instantiation. The
// check inspects the declared definition type (or the singleton's dynamic
// type when the instance already exists).
func (f *Factory) IsTypeMatch(name string, capability reflect.Type) bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.typeMatchLocked(normalizeBeanName(name), capability)
}

func (f *Factory) typeMatchLocked(name string, capability reflect.Type) bool {
	if instance, ok := f.singletons[name]; ok {
		return typeMatches(reflect.TypeOf(instance), capability)
	}
	def, ok := f.definitions[name]
	if !ok {
		return false
	}
	beanType := def.Type
	if beanType == nil && def.TypeName != emptyString {
		beanType = f.namedTypes[def.TypeName]
	}
	if beanType == nil && def.Parent != emptyString {
		return f.typeMatchLocked(def.Parent, capability)
	}
	if beanType == nil {
		return false
	}
	return typeMatches(beanType, capability)
}

func typeMatches(t, capability reflect.Type) bool {
	if t == nil {
		return false
	}
	if capability.Kind() == reflect.Interface {
		return t.Implements(capability)
	}
	return t.AssignableTo(capability)
}

// resolveDefinitionType resolves the concrete type of a merged definition.
// Resolution failure is a tolerated condition: the caller receives nil and
// continues with an unresolved type.
func (f *Factory) resolveDefinitionType(def *Definition) reflect.Type {
	if def.Type != nil {
		return def.Type
	}
	if def.TypeName == emptyString {
		return nil
	}
	f.mu.RLock()
	t, ok := f.namedTypes[def.TypeName]
	f.mu.RUnlock()
	if !ok {
		f.logger.Debugf("type %q is not registered; continuing with unresolved type", def.TypeName)
		return nil
	}
	return t
}

// MergedDefinition returns the flattened form of the named definition,
// with parent defaults applied. Merged forms are cached until the raw
// metadata changes or ClearMetadataCache is called.
func (f *Factory) MergedDefinition(name string) (*Definition, error) {
	name = normalizeBeanName(name)

	f.mu.RLock()
	if merged, ok := f.mergedDefinitions[name]; ok {
		f.mu.RUnlock()
		return merged, nil
	}
	def, ok := f.definitions[name]
	f.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrDefinitionNotFound, name)
	}

	merged, err := f.mergeDefinition(def)
	if err != nil {
		return nil, fmt.Errorf("merging definition %q: %w", name, err)
	}

	f.mu.Lock()
	f.mergedDefinitions[name] = merged
	f.mu.Unlock()
	return merged, nil
}

func (f *Factory) mergeDefinition(def *Definition) (*Definition, error) {
	if def.Parent == emptyString {
		return def.clone(), nil
	}
	parent, err := f.MergedDefinition(def.Parent)
	if err != nil {
		return nil, err
	}
	return def.mergeInto(parent), nil
}

// ClearMetadataCache drops every cached merged definition. The bootstrap
// sequence calls it after the factory post-processor phase: processors may
// have rewritten raw definition data that cached merged copies would now
// contradict.
func (f *Factory) ClearMetadataCache() {
	f.mu.Lock()
	f.mergedDefinitions = make(map[string]*Definition)
	f.mu.Unlock()
}

// AddBeanPostProcessor appends a post-processor to the chain applied
// around bean initialization.
func (f *Factory) AddBeanPostProcessor(p BeanPostProcessor) {
	f.mu.Lock()
	f.postProcessors = append(f.postProcessors, p)
	f.mu.Unlock()
}

// AddBeanPostProcessors appends post-processors in bulk, keeping their
// relative order.
func (f *Factory) AddBeanPostProcessors(ps []BeanPostProcessor) {
	f.mu.Lock()
	f.postProcessors = append(f.postProcessors, ps...)
	f.mu.Unlock()
}

// BeanPostProcessorCount returns the current length of the post-processor
// chain.
func (f *Factory) BeanPostProcessorCount() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.postProcessors)
}

func (f *Factory) beanPostProcessors() []BeanPostProcessor {
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := make([]BeanPostProcessor, len(f.postProcessors))
	copy(out, f.postProcessors)
	return out
}

func (f *Factory) isInfrastructure(name string) bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	def, ok := f.definitions[normalizeBeanName(name)]
	return ok && def.Role == RoleInfrastructure
}

func (f *Factory) registerListener(name string) {
	f.mu.Lock()
	f.listenerNames.Add(name)
	f.mu.Unlock()
}

// ListenerNames returns the names of beans detected as event listeners
// during initialization.
func (f *Factory) ListenerNames() []string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.listenerNames.ToSlice()
}

// Logger returns the factory's diagnostic logger.
func (f *Factory) Logger() log.Logger { return f.logger }

// Startup returns the instrumentation sink for bootstrap steps.
func (f *Factory) Startup() startup.Startup { return f.startup }
