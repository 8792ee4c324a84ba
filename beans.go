package iocboot

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/google/uuid"
)

// GetBean returns the bean registered under name, realizing it from its
// definition if needed. Realized beans go through property-value
// application, the bean post-processor chain and the Initializer callback,
// and are retained as singletons.
func (f *Factory) GetBean(name string) (any, error) {
	if name == emptyString {
		return nil, ErrBeanNameEmpty
	}
	name = normalizeBeanName(name)

	f.mu.RLock()
	instance, ok := f.singletons[name]
	f.mu.RUnlock()
	if ok {
		return instance, nil
	}

	merged, err := f.MergedDefinition(name)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrBeanNotFound, name)
	}

	instance, err = f.createBean(name, merged)
	if err != nil {
		return nil, err
	}

	f.mu.Lock()
	// A post-processor may have registered the singleton mid-creation;
	// first write wins.
	if existing, ok := f.singletons[name]; ok {
		instance = existing
	} else {
		f.singletons[name] = instance
		f.singletonNames = append(f.singletonNames, name)
	}
	f.mu.Unlock()
	return instance, nil
}

// MustGetBean is like GetBean but panics on failure. Prefer GetBean in
// production code.
func (f *Factory) MustGetBean(name string) any {
	v, err := f.GetBean(name)
	if err != nil {
		panic(err)
	}
	return v
}

// GetBeanAs returns the bean registered under name, asserted to type T.
func GetBeanAs[T any](f *Factory, name string) (T, error) {
	var zero T
	v, err := f.GetBean(name)
	if err != nil {
		return zero, err
	}
	typed, ok := v.(T)
	if !ok {
		return zero, fmt.Errorf("bean %q is not of requested type %T", name, zero)
	}
	return typed, nil
}

// createBean runs the full creation lifecycle for a merged definition:
// instantiate, apply property values, BeforeInit chain, Initialize,
// AfterInit chain.
func (f *Factory) createBean(name string, merged *Definition) (any, error) {
	f.mu.Lock()
	if f.inCreation[name] {
		f.mu.Unlock()
		return nil, fmt.Errorf("%w: %q", ErrCurrentlyInCreation, name)
	}
	f.inCreation[name] = true
	f.mu.Unlock()
	defer func() {
		f.mu.Lock()
		delete(f.inCreation, name)
		f.mu.Unlock()
	}()

	instance, err := f.instantiate(name, merged)
	if err != nil {
		return nil, err
	}

	if err := f.applyPropertyValues(name, instance, merged); err != nil {
		return nil, err
	}

	for _, p := range f.beanPostProcessors() {
		if instance, err = p.BeforeInit(instance, name); err != nil {
			return nil, fmt.Errorf("before-init post-processing of bean %q: %w", name, err)
		}
	}

	if initializer, ok := instance.(Initializer); ok {
		if err := initializer.Initialize(); err != nil {
			return nil, fmt.Errorf("initializer for bean %q failed: %w", name, err)
		}
	}

	for _, p := range f.beanPostProcessors() {
		if instance, err = p.AfterInit(instance, name); err != nil {
			return nil, fmt.Errorf("after-init post-processing of bean %q: %w", name, err)
		}
	}

	return instance, nil
}

func (f *Factory) instantiate(name string, merged *Definition) (any, error) {
	if merged.Supplier != nil {
		instance, err := merged.Supplier()
		if err != nil {
			return nil, fmt.Errorf("supplier for bean %q failed: %w", name, err)
		}
		if instance == nil {
			return nil, fmt.Errorf("supplier for bean %q: %w", name, ErrBeanNil)
		}
		return instance, nil
	}

	beanType := f.resolveDefinitionType(merged)
	if beanType == nil {
		return nil, fmt.Errorf("bean %q: %w", name, ErrTypeUnresolved)
	}
	if beanType.Kind() == reflect.Ptr && beanType.Elem().Kind() == reflect.Struct {
		return reflect.New(beanType.Elem()).Interface(), nil
	}
	return nil, fmt.Errorf("bean %q of type %v: %w", name, beanType, ErrBeanTypeNotSupported)
}

// applyPropertyValues sets each property on the matching exported struct
// field. Values are resolved first: bean references by name, nested
// definitions through full inner-bean creation, anything else as literal.
func (f *Factory) applyPropertyValues(name string, instance any, merged *Definition) error {
	if len(merged.Properties) == 0 {
		return nil
	}

	rv := reflect.ValueOf(instance)
	if rv.Kind() == reflect.Ptr {
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct {
		return fmt.Errorf("bean %q: cannot apply property values to %s", name, rv.Kind())
	}

	for _, pv := range merged.Properties {
		value, err := f.resolveValue(pv.Value)
		if err != nil {
			return fmt.Errorf("resolving property %q of bean %q: %w", pv.Name, name, err)
		}

		field := fieldByName(rv, pv.Name)
		if !field.IsValid() || !field.CanSet() {
			return fmt.Errorf("bean %q has no settable field for property %q", name, pv.Name)
		}

		dv := reflect.ValueOf(value)
		switch {
		case dv.Type().AssignableTo(field.Type()):
			field.Set(dv)
		case field.Kind() == reflect.Interface && dv.Type().Implements(field.Type()):
			field.Set(dv)
		default:
			return fmt.Errorf("bean %q property %q: cannot assign %v to %v",
				name, pv.Name, dv.Type(), field.Type())
		}
	}
	return nil
}

func (f *Factory) resolveValue(value any) (any, error) {
	switch v := value.(type) {
	case BeanRef:
		return f.GetBean(string(v))
	case *Definition:
		innerName, innerMerged, err := f.ResolveInnerDefinition(v)
		if err != nil {
			return nil, err
		}
		// Inner beans run the full creation lifecycle but are not
		// retained as singletons.
		return f.createBean(innerName, innerMerged)
	default:
		return value, nil
	}
}

func fieldByName(rv reflect.Value, name string) reflect.Value {
	if field := rv.FieldByName(name); field.IsValid() {
		return field
	}
	// Property names are matched case-insensitively against exported
	// fields, aligning with the lower-case bean name policy.
	t := rv.Type()
	for i := 0; i < t.NumField(); i++ {
		if sf := t.Field(i); sf.IsExported() && strings.EqualFold(sf.Name, name) {
			return rv.Field(i)
		}
	}
	return reflect.Value{}
}

// ResolveInnerDefinition resolves a nested definition to an effective name
// and merged form. Anonymous nested definitions get a generated name.
func (f *Factory) ResolveInnerDefinition(def *Definition) (string, *Definition, error) {
	if def == nil {
		return emptyString, nil, ErrDefinitionNil
	}
	merged, err := f.mergeDefinition(def)
	if err != nil {
		return emptyString, nil, err
	}
	return innerBeanNamePrefix + uuid.NewString(), merged, nil
}

// PreInstantiateSingletons realizes every non-lazy singleton definition.
// The bootstrap driver calls it after all post-processors are in place so
// each bean gets full post-processor coverage.
func (f *Factory) PreInstantiateSingletons() error {
	for _, name := range f.DefinitionNames() {
		merged, err := f.MergedDefinition(name)
		if err != nil {
			return err
		}
		if merged.Lazy || f.ContainsSingleton(name) {
			continue
		}
		if _, err := f.GetBean(name); err != nil {
			return err
		}
	}
	return nil
}
