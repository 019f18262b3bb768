package ir

import (
	"slices"
	"strings"
)

// Modifiers attached to classes and methods.
const (
	ModifierExported    = "exported"
	ModifierUnexported  = "unexported"
	ModifierPointer     = "pointer"
	ModifierAbstract    = "abstract"
	ModifierStatic      = "static"
	ModifierConstructor = "constructor"
)

// AnyType is the name of the unconstrained type.
const AnyType = "any"

// TypeDescriptor is a named type reference.
//
// Name is the canonical type expression with packages written as full import
// paths, for example "github.com/acme/graph.Node" or "[]string". Union members
// are joined with "|" and intersection members with "&". AllowsNull reports
// whether the declaration carried the pointer marker.
type TypeDescriptor struct {
	Name       string `json:"name"`
	AllowsNull bool   `json:"allowsNull"`
}

// NewType creates a type descriptor. It returns nil for an empty name.
func NewType(name string, allowsNull bool) *TypeDescriptor {
	if name == "" {
		return nil
	}
	return &TypeDescriptor{Name: name, AllowsNull: allowsNull}
}

// IsUnion reports whether the type is a union of several members.
func (t *TypeDescriptor) IsUnion() bool {
	return strings.Contains(t.Name, "|")
}

// IsIntersection reports whether the type is an intersection of several members.
func (t *TypeDescriptor) IsIntersection() bool {
	return strings.Contains(t.Name, "&")
}

// IsAny reports whether the type is unconstrained.
func (t *TypeDescriptor) IsAny() bool {
	return t.Name == AnyType || t.Name == "interface{}"
}

// Members splits a union or intersection into its member names.
// A plain type yields a single member.
func (t *TypeDescriptor) Members() []string {
	switch {
	case t.IsUnion():
		return strings.Split(t.Name, "|")
	case t.IsIntersection():
		return strings.Split(t.Name, "&")
	}
	return []string{t.Name}
}

// ParameterDescriptor describes a single method parameter.
//
// Exactly one of three default states holds: no default, a literal default
// (HasDefaultValue with DefaultValue), or a named constant default
// (HasDefaultValue and DefaultIsNamedConstant with ConstantReferenceName).
// For constant defaults DefaultValue carries the constant's value.
type ParameterDescriptor struct {
	// Type is nil for an untyped parameter.
	Type                   *TypeDescriptor `json:"type"`
	Name                   string          `json:"name"`
	Variadic               bool            `json:"variadic,omitempty"`
	HasDefaultValue        bool            `json:"hasDefaultValue,omitempty"`
	DefaultIsNamedConstant bool            `json:"defaultIsNamedConstant,omitempty"`
	ConstantReferenceName  string          `json:"constantReferenceName,omitempty"`
	DefaultValue           any             `json:"defaultValue,omitempty"`
}

// Validate checks that the parameter holds a single consistent default state.
func (p *ParameterDescriptor) Validate() error {
	if p.Name == "" {
		return &ValidationError{Code: "missing_name", Message: "parameter has no name"}
	}
	if p.DefaultIsNamedConstant && !p.HasDefaultValue {
		return &ValidationError{Code: "invalid_default", Message: "parameter " + p.Name + " has a constant default but no default value"}
	}
	if p.DefaultIsNamedConstant && p.ConstantReferenceName == "" {
		return &ValidationError{Code: "invalid_default", Message: "parameter " + p.Name + " has a constant default without a reference"}
	}
	if !p.DefaultIsNamedConstant && p.ConstantReferenceName != "" {
		return &ValidationError{Code: "invalid_default", Message: "parameter " + p.Name + " has a constant reference but no constant default"}
	}
	if !p.HasDefaultValue && p.DefaultValue != nil {
		return &ValidationError{Code: "invalid_default", Message: "parameter " + p.Name + " has a default value but HasDefaultValue is false"}
	}
	if p.Variadic && p.HasDefaultValue {
		return &ValidationError{Code: "invalid_default", Message: "variadic parameter " + p.Name + " cannot have a default"}
	}
	return nil
}

// MethodDescriptor describes a method of a class.
type MethodDescriptor struct {
	Modifiers  []string                          `json:"modifiers"`
	Name       string                            `json:"name"`
	Parameters *OrderedMap[*ParameterDescriptor] `json:"parameters"`
	// Results is empty when the method returns nothing or its result is unknown.
	Results []*TypeDescriptor `json:"results"`
}

// NewMethod creates a method descriptor with an empty parameter list.
func NewMethod(name string, modifiers ...string) *MethodDescriptor {
	return &MethodDescriptor{
		Name:       name,
		Modifiers:  modifiers,
		Parameters: NewOrderedMap[*ParameterDescriptor](),
	}
}

// ReturnType returns the first result, or nil.
func (m *MethodDescriptor) ReturnType() *TypeDescriptor {
	if len(m.Results) == 0 {
		return nil
	}
	return m.Results[0]
}

func (m *MethodDescriptor) HasReturnType() bool {
	return len(m.Results) > 0
}

// HasModifier reports whether the method carries modifier.
func (m *MethodDescriptor) HasModifier(modifier string) bool {
	return slices.Contains(m.Modifiers, modifier)
}

// RemoveModifier deletes every occurrence of modifier.
func (m *MethodDescriptor) RemoveModifier(modifier string) {
	m.Modifiers = slices.DeleteFunc(m.Modifiers, func(s string) bool { return s == modifier })
}

// Variadic reports whether the last parameter is variadic.
func (m *MethodDescriptor) Variadic() bool {
	params := m.Parameters.Values()
	return len(params) > 0 && params[len(params)-1].Variadic
}

// ClassDescriptor describes a class or interface and, after transformation,
// the proxy class generated for it.
type ClassDescriptor struct {
	IsInterface bool `json:"isInterface"`
	// Namespace is the package import path.
	Namespace             string                         `json:"namespace"`
	Modifiers             []string                       `json:"modifiers"`
	FullName              string                         `json:"fullName"`
	ShortName             string                         `json:"shortName"`
	ParentFullName        string                         `json:"parentFullName,omitempty"`
	ImplementedInterfaces []string                       `json:"implementedInterfaces"`
	Methods               *OrderedMap[*MethodDescriptor] `json:"methods"`
	// Origin is the full name the proxy was derived from. It is empty until
	// the descriptor has been transformed.
	Origin string `json:"origin,omitempty"`
}

// NewClass creates a class descriptor with an empty method list.
func NewClass(fullName string) *ClassDescriptor {
	namespace, short := SplitName(fullName)
	return &ClassDescriptor{
		Namespace: namespace,
		FullName:  fullName,
		ShortName: short,
		Methods:   NewOrderedMap[*MethodDescriptor](),
	}
}

// Validate checks the descriptor for structural issues.
// It returns all validation errors found, not just the first.
func (c *ClassDescriptor) Validate() []error {
	var errs []error
	if c.FullName == "" {
		errs = append(errs, &ValidationError{Code: "missing_name", Message: "class has no full name"})
	}
	if c.ShortName == "" {
		errs = append(errs, &ValidationError{Code: "missing_name", Message: "class " + c.FullName + " has no short name"})
	}
	if c.Methods == nil {
		return append(errs, &ValidationError{Code: "missing_methods", Message: "class " + c.FullName + " has no method map"})
	}
	for name, m := range c.Methods.All() {
		if name != m.Name {
			errs = append(errs, &ValidationError{Code: "method_key_mismatch", Message: "method key " + name + " does not match name " + m.Name})
		}
		if m.Parameters == nil {
			continue
		}
		for _, p := range m.Parameters.Values() {
			if err := p.Validate(); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errs
}

// SplitName splits "import/path.Name" into its package path and type name.
func SplitName(fullName string) (pkg, name string) {
	slash := strings.LastIndex(fullName, "/")
	dot := strings.LastIndex(fullName, ".")
	if dot <= slash {
		return "", fullName
	}
	return fullName[:dot], fullName[dot+1:]
}

// ValidationError represents a descriptor validation error.
type ValidationError struct {
	Code    string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}
