package proxykit

import (
	"fmt"
	"reflect"
	"time"
)

// ObjectProxyName is the registered name of the default base proxy type.
const ObjectProxyName = "github.com/broady/proxykit.ObjectProxy"

// Result statuses reported by ResultStatus.
const (
	StatusSuccess = "success"
	StatusFailed  = "failed"
)

// Dispatcher is the contract every base proxy type satisfies.
//
// Generated proxies embed a dispatcher and route each forwarded method through
// Call. Derive creates a sibling dispatcher over another instance; it is used
// to re-wrap methods that return the proxied interface.
type Dispatcher interface {
	Call(method string, args ...any) []any
	Derive(instance any) Dispatcher
	Instance() any
	CurrentError() error
	HasCurrentError() bool
	ResultStatus() string
}

// Option configures an ObjectProxy.
type Option func(*ObjectProxy)

// WithAfterCall appends hooks run after every successful dispatch.
// Hooks run in the order given.
func WithAfterCall(hooks ...AfterCallFunc) Option {
	return func(p *ObjectProxy) {
		p.hooks = append(p.hooks, hooks...)
	}
}

// ObjectProxy is the default base proxy. It forwards calls to a fixed target
// through reflection and records the failure of the most recent call.
//
// An ObjectProxy is not safe for concurrent use.
type ObjectProxy struct {
	instance     any
	hooks        []AfterCallFunc
	afterCall    AfterCallFunc
	currentError error
}

var _ Dispatcher = (*ObjectProxy)(nil)

// NewObjectProxy creates a base proxy around target.
func NewObjectProxy(target any, opts ...Option) *ObjectProxy {
	p := &ObjectProxy{instance: target}
	for _, opt := range opts {
		opt(p)
	}
	p.afterCall = chainAfterCall(p.hooks)
	return p
}

// Call invokes method on the target and returns its results.
//
// When the last result is a non-nil error, it becomes the current error and
// the results are returned as-is without running the after-call hooks. A
// panic in the target is recorded and propagated unchanged.
func (p *ObjectProxy) Call(method string, args ...any) []any {
	p.currentError = nil
	start := time.Now()

	fn, err := lookupMethod(p.instance, method)
	if err != nil {
		p.currentError = err
		panic(err)
	}
	in, spread, err := prepareArgs(method, fn.Type(), args)
	if err != nil {
		p.currentError = err
		panic(err)
	}

	out := p.invoke(method, fn, in, spread)
	results := make([]any, len(out))
	for i, v := range out {
		results[i] = v.Interface()
	}

	if err := trailingError(fn.Type(), results); err != nil {
		p.currentError = err
		return results
	}
	if p.afterCall != nil {
		results = p.afterCall(method, args, results, start)
	}
	return results
}

func (p *ObjectProxy) invoke(method string, fn reflect.Value, in []reflect.Value, spread bool) []reflect.Value {
	defer func() {
		if r := recover(); r != nil {
			if err, ok := r.(error); ok {
				p.currentError = err
			} else {
				p.currentError = &PanicError{Method: method, Value: r}
			}
			panic(r)
		}
	}()
	if spread {
		return fn.CallSlice(in)
	}
	return fn.Call(in)
}

// Derive returns a new ObjectProxy over instance that shares this proxy's hooks.
func (p *ObjectProxy) Derive(instance any) Dispatcher {
	return &ObjectProxy{
		instance:  instance,
		hooks:     p.hooks,
		afterCall: p.afterCall,
	}
}

// Instance returns the proxied target.
func (p *ObjectProxy) Instance() any {
	return p.instance
}

// CurrentError returns the failure of the most recent call, or nil.
func (p *ObjectProxy) CurrentError() error {
	return p.currentError
}

func (p *ObjectProxy) HasCurrentError() bool {
	return p.currentError != nil
}

// ResultStatus reports whether the most recent call succeeded.
func (p *ObjectProxy) ResultStatus() string {
	if p.currentError != nil {
		return StatusFailed
	}
	return StatusSuccess
}

var errorType = reflect.TypeOf((*error)(nil)).Elem()

func lookupMethod(instance any, method string) (reflect.Value, error) {
	if instance == nil {
		return reflect.Value{}, Errorf(CodeMethodNotFound, "method %s called on nil instance", method)
	}
	fn := reflect.ValueOf(instance).MethodByName(method)
	if !fn.IsValid() {
		return reflect.Value{}, Errorf(CodeMethodNotFound, "%T has no method %s", instance, method)
	}
	return fn, nil
}

// prepareArgs converts args to the parameter types of ft. For a variadic
// function, a final argument that is already the variadic slice is passed
// through CallSlice.
func prepareArgs(method string, ft reflect.Type, args []any) ([]reflect.Value, bool, error) {
	n := ft.NumIn()
	if !ft.IsVariadic() {
		if len(args) != n {
			return nil, false, Errorf(CodeArgumentCount, "%s expects %d arguments, got %d", method, n, len(args))
		}
		in, err := convertArgs(method, args, func(i int) reflect.Type { return ft.In(i) })
		return in, false, err
	}

	if len(args) < n-1 {
		return nil, false, Errorf(CodeArgumentCount, "%s expects at least %d arguments, got %d", method, n-1, len(args))
	}
	sliceType := ft.In(n - 1)
	if len(args) == n && isSliceArg(args[n-1], sliceType) {
		in, err := convertArgs(method, args, func(i int) reflect.Type { return ft.In(i) })
		return in, true, err
	}
	in, err := convertArgs(method, args, func(i int) reflect.Type {
		if i < n-1 {
			return ft.In(i)
		}
		return sliceType.Elem()
	})
	return in, false, err
}

func isSliceArg(arg any, sliceType reflect.Type) bool {
	if arg == nil {
		return true
	}
	return reflect.TypeOf(arg).AssignableTo(sliceType)
}

func convertArgs(method string, args []any, typeOf func(int) reflect.Type) ([]reflect.Value, error) {
	in := make([]reflect.Value, len(args))
	for i, arg := range args {
		v, err := convertArg(arg, typeOf(i))
		if err != nil {
			return nil, Errorf(CodeInvalidArgument, "%s argument %d: %w", method, i, err)
		}
		in[i] = v
	}
	return in, nil
}

func convertArg(arg any, t reflect.Type) (reflect.Value, error) {
	if arg == nil {
		return reflect.Zero(t), nil
	}
	v := reflect.ValueOf(arg)
	if v.Type().AssignableTo(t) {
		return v, nil
	}
	if convertible(v.Type(), t) {
		return v.Convert(t), nil
	}
	return reflect.Value{}, fmt.Errorf("cannot use %T as %s", arg, t)
}

// convertible excludes the integer-to-string conversion, which reflect allows
// but which never matches the caller's intent.
func convertible(from, to reflect.Type) bool {
	if !from.ConvertibleTo(to) {
		return false
	}
	if to.Kind() == reflect.String && from.Kind() != reflect.String {
		return false
	}
	return true
}

func trailingError(ft reflect.Type, results []any) error {
	n := ft.NumOut()
	if n == 0 || ft.Out(n-1) != errorType {
		return nil
	}
	err, _ := results[n-1].(error)
	return err
}

// As converts a dispatched result to T. A nil or mismatched value yields the
// zero value of T.
func As[T any](v any) T {
	t, _ := v.(T)
	return t
}
