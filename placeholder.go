package iocboot

import (
	"fmt"
	"os"
	"strings"
)

// ValueProvider sources a configuration value for a placeholder key.
// A typical implementation reads env vars, files, flags, or other
// configuration sources.
type ValueProvider func(key string) (value string, found bool)

// MapValueProvider sources values from an in-memory map.
func MapValueProvider(values map[string]string) ValueProvider {
	return func(key string) (string, bool) {
		v, ok := values[key]
		return v, ok
	}
}

// EnvValueProvider sources values from the process environment.
func EnvValueProvider(key string) (string, bool) {
	return os.LookupEnv(key)
}

// PlaceholderPostProcessor is a built-in FactoryPostProcessor that
// rewrites "${key}" and "${key:default}" markers inside string property
// values and constructor arguments, in every definition including nested
// ones. Providers are consulted in order; an unresolvable key without a
// default fails the bootstrap.
type PlaceholderPostProcessor struct {
	providers []ValueProvider
	order     int
}

var (
	_ FactoryPostProcessor = (*PlaceholderPostProcessor)(nil)
	_ Ordered              = (*PlaceholderPostProcessor)(nil)
)

// NewPlaceholderPostProcessor creates a processor consulting the given
// providers, falling back to the process environment.
func NewPlaceholderPostProcessor(providers ...ValueProvider) *PlaceholderPostProcessor {
	return &PlaceholderPostProcessor{
		providers: append(providers, EnvValueProvider),
	}
}

// WithOrder sets the processor's rank within the ordered tier.
func (p *PlaceholderPostProcessor) WithOrder(order int) *PlaceholderPostProcessor {
	p.order = order
	return p
}

// Order implements Ordered.
func (p *PlaceholderPostProcessor) Order() int { return p.order }

// PostProcessFactory rewrites placeholders in every registered definition.
func (p *PlaceholderPostProcessor) PostProcessFactory(f *Factory) error {
	for _, name := range f.DefinitionNames() {
		def, err := f.Definition(name)
		if err != nil {
			return err
		}
		if err := p.processDefinition(def); err != nil {
			return fmt.Errorf("definition %q: %w", name, err)
		}
	}
	return nil
}

func (p *PlaceholderPostProcessor) processDefinition(def *Definition) error {
	for i, pv := range def.Properties {
		resolved, err := p.resolveAny(pv.Value)
		if err != nil {
			return fmt.Errorf("property %q: %w", pv.Name, err)
		}
		def.Properties[i].Value = resolved
	}
	for index, value := range def.CtorArgs {
		resolved, err := p.resolveAny(value)
		if err != nil {
			return fmt.Errorf("constructor argument %d: %w", index, err)
		}
		def.CtorArgs[index] = resolved
	}
	return nil
}

func (p *PlaceholderPostProcessor) resolveAny(value any) (any, error) {
	switch v := value.(type) {
	case string:
		return p.resolveString(v)
	case *Definition:
		return v, p.processDefinition(v)
	default:
		return value, nil
	}
}

func (p *PlaceholderPostProcessor) resolveString(s string) (string, error) {
	var out strings.Builder
	for {
		start := strings.Index(s, placeholderPrefix)
		if start < 0 {
			out.WriteString(s)
			return out.String(), nil
		}
		end := strings.Index(s[start:], placeholderSuffix)
		if end < 0 {
			out.WriteString(s)
			return out.String(), nil
		}
		end += start

		out.WriteString(s[:start])
		key := s[start+len(placeholderPrefix) : end]
		defaultValue := emptyString
		hasDefault := false
		if sep := strings.Index(key, placeholderDefaultSep); sep >= 0 {
			key, defaultValue, hasDefault = key[:sep], key[sep+1:], true
		}

		value, found := p.lookup(key)
		switch {
		case found:
			out.WriteString(value)
		case hasDefault:
			out.WriteString(defaultValue)
		default:
			return emptyString, fmt.Errorf("%w: %q", ErrPlaceholderUnresolved, key)
		}
		s = s[end+len(placeholderSuffix):]
	}
}

func (p *PlaceholderPostProcessor) lookup(key string) (string, bool) {
	for _, provider := range p.providers {
		if value, found := provider(key); found {
			return value, true
		}
	}
	return emptyString, false
}
