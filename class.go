package proxykit

import (
	"reflect"
	"sync"
)

// Param describes a parameter of a dynamic class method.
type Param struct {
	Name string
	// HasDefault reports whether Default may be used for an omitted argument.
	HasDefault bool
	Default    any
}

// Method is a forwarding method of a class.
type Method struct {
	Name      string
	Modifiers []string
	Params    []Param
	Variadic  bool
	// Rewrap lists the result indices re-wrapped into a new proxy of the same class.
	Rewrap []int
}

// Class is a loaded proxy class.
//
// Compiled classes set Wrap, which turns a base dispatcher into the typed
// proxy. Classes loaded from source at runtime leave Wrap nil and are
// instantiated as *Object.
type Class struct {
	Name    string
	Parent  string
	Origin  string
	Methods []*Method
	Wrap    func(Dispatcher) any

	index map[string]*Method
}

// BaseFactory constructs a base dispatcher from constructor arguments.
type BaseFactory func(args ...any) (Dispatcher, error)

type registry struct {
	mu      sync.RWMutex
	classes map[string]*Class
	bases   map[string]BaseFactory
}

var defaultRegistry = &registry{
	classes: make(map[string]*Class),
	bases:   make(map[string]BaseFactory),
}

func init() {
	RegisterBase(ObjectProxyName, newObjectProxyDispatcher)
}

// Define adds c to the process-wide class registry and returns the registered
// class. Classes are never replaced: if a class with the same name is already
// defined, that class is returned and c is discarded.
func Define(c *Class) *Class {
	defaultRegistry.mu.Lock()
	defer defaultRegistry.mu.Unlock()

	if existing, ok := defaultRegistry.classes[c.Name]; ok {
		return existing
	}
	c.index = make(map[string]*Method, len(c.Methods))
	for _, m := range c.Methods {
		c.index[m.Name] = m
	}
	defaultRegistry.classes[c.Name] = c
	return c
}

// Lookup returns the defined class with the given name.
func Lookup(name string) (*Class, bool) {
	defaultRegistry.mu.RLock()
	defer defaultRegistry.mu.RUnlock()
	c, ok := defaultRegistry.classes[name]
	return c, ok
}

// RegisterBase registers the constructor of a base proxy type.
// A later registration for the same name replaces the earlier one.
func RegisterBase(name string, factory BaseFactory) {
	defaultRegistry.mu.Lock()
	defer defaultRegistry.mu.Unlock()
	defaultRegistry.bases[name] = factory
}

// LookupBase returns the constructor registered for a base proxy type.
func LookupBase(name string) (BaseFactory, bool) {
	defaultRegistry.mu.RLock()
	defer defaultRegistry.mu.RUnlock()
	f, ok := defaultRegistry.bases[name]
	return f, ok
}

// newObjectProxyDispatcher takes the target followed by any number of Options.
func newObjectProxyDispatcher(args ...any) (Dispatcher, error) {
	if len(args) == 0 {
		return nil, Errorf(CodeArgumentCount, "%s requires a target instance", ObjectProxyName)
	}
	opts := make([]Option, 0, len(args)-1)
	for i, arg := range args[1:] {
		opt, ok := arg.(Option)
		if !ok {
			return nil, Errorf(CodeInvalidArgument, "%s argument %d: expected Option, got %T", ObjectProxyName, i+1, arg)
		}
		opts = append(opts, opt)
	}
	return NewObjectProxy(args[0], opts...), nil
}

// Method returns the forwarding method with the given name.
func (c *Class) Method(name string) (*Method, bool) {
	if c.index != nil {
		m, ok := c.index[name]
		return m, ok
	}
	for _, m := range c.Methods {
		if m.Name == name {
			return m, true
		}
	}
	return nil, false
}

// New instantiates the class. The arguments are passed to the factory of the
// parent base proxy type.
func (c *Class) New(args ...any) (any, error) {
	factory, ok := LookupBase(c.Parent)
	if !ok {
		return nil, Errorf(CodeNotFound, "base proxy type %s is not registered", c.Parent)
	}
	d, err := factory(args...)
	if err != nil {
		return nil, err
	}
	return c.wrap(d), nil
}

func (c *Class) wrap(d Dispatcher) any {
	if c.Wrap != nil {
		return c.Wrap(d)
	}
	return &Object{Dispatcher: d, class: c}
}

// Object is an instance of a class loaded at runtime.
type Object struct {
	Dispatcher
	class *Class
}

// Class returns the class the object was instantiated from.
func (o *Object) Class() *Class {
	return o.class
}

// Invoke calls a forwarding method by name. Omitted trailing arguments are
// filled from the method's defaults. Results marked for re-wrapping are
// returned as new objects of the same class.
func (o *Object) Invoke(method string, args ...any) ([]any, error) {
	m, ok := o.class.Method(method)
	if !ok {
		return nil, Errorf(CodeMethodNotFound, "%s has no method %s", o.class.Name, method)
	}
	args, err := m.bind(args)
	if err != nil {
		return nil, err
	}

	results := o.Call(m.Name, args...)
	if o.HasCurrentError() {
		return results, nil
	}
	for _, i := range m.Rewrap {
		if i < len(results) && !isNil(results[i]) {
			results[i] = &Object{Dispatcher: o.Derive(results[i]), class: o.class}
		}
	}
	return results, nil
}

func (m *Method) bind(args []any) ([]any, error) {
	fixed := len(m.Params)
	if m.Variadic {
		fixed--
		if len(args) >= fixed {
			return args, nil
		}
	} else if len(args) > fixed {
		return nil, Errorf(CodeArgumentCount, "%s expects at most %d arguments, got %d", m.Name, fixed, len(args))
	}

	bound := make([]any, fixed)
	copy(bound, args)
	for i := len(args); i < fixed; i++ {
		p := m.Params[i]
		if !p.HasDefault {
			return nil, Errorf(CodeArgumentCount, "%s: missing argument %s", m.Name, p.Name).
				WithDetail("param", p.Name)
		}
		bound[i] = p.Default
	}
	return bound, nil
}

func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
		return rv.IsNil()
	}
	return false
}
