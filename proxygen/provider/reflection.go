package provider

import (
	"context"
	"fmt"
	"reflect"
	"strconv"
	"sync"

	"github.com/broady/proxykit/proxygen/ir"
)

// ReflectionFacility extracts type facts using runtime reflection.
//
// Reflection cannot see parameter names, defaults, or embedded interfaces,
// so types are registered explicitly together with whatever the caller wants
// to add. Unregistered names are not found.
type ReflectionFacility struct {
	mu        sync.RWMutex
	types     map[string]*registration
	constants map[string]any
}

type registration struct {
	typ       reflect.Type
	names     map[string][]string
	defaults  map[string]map[string]any
	constants map[string]map[string]string
	tentative map[string][]string
}

var (
	_ Facility         = (*ReflectionFacility)(nil)
	_ ConstantResolver = (*ReflectionFacility)(nil)
)

// NewReflectionFacility creates an empty facility.
func NewReflectionFacility() *ReflectionFacility {
	return &ReflectionFacility{
		types:     make(map[string]*registration),
		constants: make(map[string]any),
	}
}

// RegisterOption adds information reflection cannot provide.
type RegisterOption func(*registration)

// ParamNames names the parameters of a method in order.
func ParamNames(method string, names ...string) RegisterOption {
	return func(r *registration) {
		r.names[method] = names
	}
}

// Default sets a literal default for a parameter.
func Default(method, param string, value any) RegisterOption {
	return func(r *registration) {
		if r.defaults[method] == nil {
			r.defaults[method] = make(map[string]any)
		}
		r.defaults[method][param] = value
	}
}

// Constant sets a named constant default for a parameter. The constant's
// value must be registered with DefineConstant.
func Constant(method, param, ref string) RegisterOption {
	return func(r *registration) {
		if r.constants[method] == nil {
			r.constants[method] = make(map[string]string)
		}
		r.constants[method][param] = ref
	}
}

// TentativeResults sets the result types used when a method declares none.
// Types use the forms accepted by ParseTypeExpr.
func TentativeResults(method string, types ...string) RegisterOption {
	return func(r *registration) {
		r.tentative[method] = types
	}
}

// Register adds t under its full name and returns that name.
// A pointer type is registered under the name of its element.
func (f *ReflectionFacility) Register(t reflect.Type, opts ...RegisterOption) string {
	r := &registration{
		typ:       t,
		names:     make(map[string][]string),
		defaults:  make(map[string]map[string]any),
		constants: make(map[string]map[string]string),
		tentative: make(map[string][]string),
	}
	for _, opt := range opts {
		opt(r)
	}

	name := reflectTypeName(baseType(t))
	f.mu.Lock()
	defer f.mu.Unlock()
	f.types[name] = r
	return name
}

// DefineConstant registers the value of a constant reference.
func (f *ReflectionFacility) DefineConstant(ref string, value any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.constants[ref] = value
}

// ResolveConstant returns the value registered with DefineConstant.
func (f *ReflectionFacility) ResolveConstant(ctx context.Context, ref string) (any, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	v, ok := f.constants[ref]
	if !ok {
		return nil, fmt.Errorf("constant %s is not defined", ref)
	}
	return v, nil
}

// Lookup returns the facts of a registered type.
func (f *ReflectionFacility) Lookup(ctx context.Context, name string) (*TypeFacts, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f.mu.RLock()
	r, ok := f.types[name]
	f.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("type %s is not registered", name)
	}

	t := baseType(r.typ)
	facts := &TypeFacts{
		FullName:  name,
		Modifiers: []string{visibility(t.Name())},
	}

	// Interface method types have no receiver; concrete ones do.
	methodSet, skip := t, 0
	if t.Kind() == reflect.Interface {
		facts.IsInterface = true
	} else {
		methodSet, skip = reflect.PointerTo(t), 1
	}

	if t.Kind() == reflect.Struct {
		for i := 0; i < t.NumField(); i++ {
			field := t.Field(i)
			if !field.Anonymous {
				continue
			}
			ft := baseType(field.Type)
			switch ft.Kind() {
			case reflect.Interface:
				facts.Interfaces = append(facts.Interfaces, reflectTypeName(ft))
			case reflect.Struct:
				if facts.Parent == "" {
					facts.Parent = reflectTypeName(ft)
				}
			}
		}
	}

	for i := 0; i < methodSet.NumMethod(); i++ {
		m := methodSet.Method(i)
		mf, err := f.methodFacts(r, m.Name, m.Type, skip, facts.IsInterface)
		if err != nil {
			return nil, fmt.Errorf("%s.%s: %w", name, m.Name, err)
		}
		facts.Methods = append(facts.Methods, mf)
	}
	return facts, nil
}

func (f *ReflectionFacility) methodFacts(r *registration, method string, mt reflect.Type, skip int, abstract bool) (MethodFacts, error) {
	mf := MethodFacts{Name: method, Modifiers: []string{visibility(method)}}
	if abstract {
		mf.Modifiers = append(mf.Modifiers, ir.ModifierAbstract)
	}

	names := r.names[method]
	for i := skip; i < mt.NumIn(); i++ {
		idx := i - skip
		name := "arg" + strconv.Itoa(idx)
		if idx < len(names) && names[idx] != "" {
			name = names[idx]
		}
		pt := mt.In(i)
		variadic := mt.IsVariadic() && i == mt.NumIn()-1
		if variadic {
			pt = pt.Elem()
		}
		p := ParamFacts{Name: name, Type: reflectTypeExpr(pt), Variadic: variadic}

		if ref, ok := r.constants[method][name]; ok {
			v, err := f.ResolveConstant(context.Background(), ref)
			if err != nil {
				return MethodFacts{}, err
			}
			p.HasDefault, p.ConstantRef, p.Default = true, ref, v
		} else if v, ok := r.defaults[method][name]; ok {
			p.HasDefault, p.Default = true, v
		}
		mf.Params = append(mf.Params, p)
	}

	for i := 0; i < mt.NumOut(); i++ {
		mf.Results = append(mf.Results, reflectTypeExpr(mt.Out(i)))
	}
	for _, s := range r.tentative[method] {
		if x := ParseTypeExpr(s); x != nil {
			mf.TentativeResults = append(mf.TentativeResults, x)
		}
	}
	return mf, nil
}

func baseType(t reflect.Type) reflect.Type {
	for t.Kind() == reflect.Pointer && t.Name() == "" {
		t = t.Elem()
	}
	return t
}

// reflectTypeExpr mirrors typeExpr for reflect types: a single pointer to a
// type becomes a nullable type.
func reflectTypeExpr(t reflect.Type) *TypeExpr {
	if t.Kind() == reflect.Pointer && t.Name() == "" && t.Elem().Kind() != reflect.Pointer {
		if x := reflectTypeExpr(t.Elem()); x.Name != ir.AnyType {
			x.AllowsNull = true
			return x
		}
	}
	return Named(reflectTypeName(t), false)
}

// reflectTypeName returns the canonical name of t with full import paths.
func reflectTypeName(t reflect.Type) string {
	if t.Name() != "" {
		if t.PkgPath() == "" {
			return t.Name()
		}
		return t.PkgPath() + "." + t.Name()
	}
	switch t.Kind() {
	case reflect.Pointer:
		return "*" + reflectTypeName(t.Elem())
	case reflect.Slice:
		return "[]" + reflectTypeName(t.Elem())
	case reflect.Array:
		return "[" + strconv.Itoa(t.Len()) + "]" + reflectTypeName(t.Elem())
	case reflect.Map:
		return "map[" + reflectTypeName(t.Key()) + "]" + reflectTypeName(t.Elem())
	case reflect.Chan:
		switch t.ChanDir() {
		case reflect.RecvDir:
			return "<-chan " + reflectTypeName(t.Elem())
		case reflect.SendDir:
			return "chan<- " + reflectTypeName(t.Elem())
		}
		return "chan " + reflectTypeName(t.Elem())
	case reflect.Interface:
		if t.NumMethod() == 0 {
			return ir.AnyType
		}
	}
	return t.String()
}
