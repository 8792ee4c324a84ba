package iocboot

import "reflect"

// Role classifies a definition for bookkeeping purposes. Infrastructure
// beans are internal plumbing and are exempt from the post-processor
// coverage check performed during bootstrap.
type Role int

const (
	RoleApplication Role = iota
	RoleSupport
	RoleInfrastructure
)

// PropertyValue is a named value applied to a bean's exported field during
// creation. The value may be a literal, a BeanRef, or a nested *Definition.
type PropertyValue struct {
	Name  string
	Value any
}

// BeanRef is a by-name reference to another bean, resolved at creation
// time.
type BeanRef string

// Definition describes how a bean is created: its type (or a type name
// still to be resolved), an optional parent definition to inherit from,
// property values and indexed constructor arguments. Definitions are owned
// by the Factory they are registered with; post-processors read and mutate
// them in place.
type Definition struct {
	// Type is the bean type. Struct types are normalized to
	// pointer-to-struct on registration.
	Type reflect.Type

	// TypeName names a type registered with Factory.RegisterType. It is
	// resolved lazily; resolution failure during the merged-definition
	// pass is tolerated and leaves the type nil.
	TypeName string

	// Parent names a definition whose settings this one inherits.
	Parent string

	Role Role

	// Lazy excludes the bean from singleton pre-instantiation.
	Lazy bool

	// Supplier, when set, is used instead of reflective instantiation.
	Supplier func() (any, error)

	Properties []PropertyValue

	// CtorArgs holds indexed constructor arguments. Values may be nested
	// *Definition instances; they participate in the merged-definition
	// pass like property values do.
	CtorArgs map[int]any

	// postProcessed is set on the merged form once every merged-definition
	// post-processor has seen it.
	postProcessed bool
}

// NewDefinition creates a definition for the given bean type.
func NewDefinition(beanType reflect.Type) *Definition {
	return &Definition{Type: beanType}
}

// NewDefinitionNamed creates a definition whose type is resolved by name
// at merge time.
func NewDefinitionNamed(typeName string) *Definition {
	return &Definition{TypeName: typeName}
}

// WithSupplier sets an instance supplier used instead of reflective
// instantiation.
func (d *Definition) WithSupplier(fn func() (any, error)) *Definition {
	d.Supplier = fn
	return d
}

// WithParent sets the parent definition name.
func (d *Definition) WithParent(name string) *Definition {
	d.Parent = normalizeBeanName(name)
	return d
}

// WithRole sets the definition role.
func (d *Definition) WithRole(role Role) *Definition {
	d.Role = role
	return d
}

// WithLazy excludes the bean from singleton pre-instantiation.
func (d *Definition) WithLazy() *Definition {
	d.Lazy = true
	return d
}

// WithProperty appends a property value.
func (d *Definition) WithProperty(name string, value any) *Definition {
	d.Properties = append(d.Properties, PropertyValue{Name: name, Value: value})
	return d
}

// WithCtorArg sets the indexed constructor argument.
func (d *Definition) WithCtorArg(index int, value any) *Definition {
	if d.CtorArgs == nil {
		d.CtorArgs = make(map[int]any)
	}
	d.CtorArgs[index] = value
	return d
}

// PostProcessed reports whether the merged-definition pass has already
// handled this definition.
func (d *Definition) PostProcessed() bool { return d.postProcessed }

func (d *Definition) markPostProcessed() { d.postProcessed = true }

// clone returns a shallow copy with its own property and ctor-arg
// containers. Nested definitions are shared, matching the ownership model:
// the factory owns definitions, copies only isolate the containers.
func (d *Definition) clone() *Definition {
	cp := *d
	cp.postProcessed = false
	cp.Properties = make([]PropertyValue, len(d.Properties))
	copy(cp.Properties, d.Properties)
	if d.CtorArgs != nil {
		cp.CtorArgs = make(map[int]any, len(d.CtorArgs))
		for i, v := range d.CtorArgs {
			cp.CtorArgs[i] = v
		}
	}
	return &cp
}

// mergeInto overlays this (child) definition on top of an already-merged
// parent, producing the flattened form used by the merged-definition pass
// and by bean creation. Parent properties apply first so child values win.
func (d *Definition) mergeInto(parent *Definition) *Definition {
	merged := parent.clone()
	if d.Type != nil {
		merged.Type = d.Type
	}
	if d.TypeName != emptyString {
		merged.TypeName = d.TypeName
	}
	if d.Supplier != nil {
		merged.Supplier = d.Supplier
	}
	merged.Role = d.Role
	merged.Lazy = merged.Lazy || d.Lazy
	merged.Parent = emptyString
	merged.Properties = append(merged.Properties, d.Properties...)
	if d.CtorArgs != nil {
		if merged.CtorArgs == nil {
			merged.CtorArgs = make(map[int]any, len(d.CtorArgs))
		}
		for i, v := range d.CtorArgs {
			merged.CtorArgs[i] = v
		}
	}
	return merged
}
