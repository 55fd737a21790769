package zuice

import (
	"errors"
	"fmt"
	"reflect"
	"runtime/debug"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// injectorName is the name key that, like Type[*Injector](), resolves to the
// injector doing the resolution.
const injectorName = NameKey("injector")

// Injector resolves keys against a frozen copy of a Bindings and a Scope.
//
// An Injector is safe for concurrent use. Resolutions share the scope cache,
// so concurrent resolutions of a singleton agree on one instance; everything
// else about a resolution is local to the call.
//
// Example:
//
//	bindings := zuice.NewBindings()
//	bindings.Bind(Greeting).ToInstance("Hello")
//
//	injector, err := zuice.NewInjector(bindings)
//	if err != nil {
//	    return err
//	}
//
//	greeter, err := zuice.Get[*Greeter](injector, zuice.Type[*Greeter]())
type Injector struct {
	id       string
	bindings *Bindings
	scope    *Scope
	parent   *Injector
	logger   *zap.Logger
}

// NewInjector creates an Injector from a copy of bindings. Later changes to
// bindings do not affect the injector. It fails if bindings recorded an
// error while it was being built.
func NewInjector(bindings *Bindings, opts ...Option) (*Injector, error) {
	if bindings == nil {
		bindings = NewBindings()
	}
	if err := bindings.Err(); err != nil {
		return nil, err
	}

	o := buildOptions(opts)

	return &Injector{
		id:       uuid.NewString(),
		bindings: bindings.Copy(),
		scope:    NewScope(),
		parent:   o.parent,
		logger:   o.logger,
	}, nil
}

// MustInjector is like NewInjector but panics on error.
func MustInjector(bindings *Bindings, opts ...Option) *Injector {
	injector, err := NewInjector(bindings, opts...)
	if err != nil {
		panic(err)
	}
	return injector
}

// ID returns the unique identifier of the injector.
func (i *Injector) ID() string {
	return i.id
}

// Parent returns the injector this one was derived from with WithParent, or nil.
func (i *Injector) Parent() *Injector {
	return i.parent
}

// Scope returns the scope view the injector resolves under.
func (i *Injector) Scope() *Scope {
	return i.scope
}

// Get resolves key, which may be a Key, a string or a reflect.Type.
//
// A type key without a binding or registered constructor is still built when
// it is a struct or a pointer to a struct: Type[*T]() resolves to &T{}. Such
// keys never fail with NoSuchBindingError, so a forgotten binding shows up as
// a zero value rather than an error.
func (i *Injector) Get(key any) (any, error) {
	k, err := KeyOf(key)
	if err != nil {
		return nil, err
	}
	return i.get(k)
}

// GetWith resolves key with values in scope. The receiver is not changed:
// the resolution happens in a derived view whose scope has entered values.
func (i *Injector) GetWith(key any, values Values) (any, error) {
	k, err := KeyOf(key)
	if err != nil {
		return nil, err
	}
	return i.With(values).get(k)
}

// GetType is like Get but only accepts type keys.
func (i *Injector) GetType(key any) (any, error) {
	k, err := KeyOf(key)
	if err != nil {
		return nil, err
	}
	if k.Kind() != KindType {
		return nil, ContractError{Subject: "get " + k.String(), Cause: ErrNotAType}
	}
	return i.get(k)
}

// With returns a view of the injector with values entered into its scope.
// The view shares the bindings, parent and backing cache of i.
func (i *Injector) With(values Values) *Injector {
	if len(values) == 0 {
		return i
	}
	return i.withScope(i.scope.Enter(values))
}

// Call invokes fn with its arguments resolved by the injector. fn may be a
// *Function or a plain Go function; a plain function registered with
// Bindings.Register uses its registered strategy, otherwise its parameters
// are resolved by type.
func (i *Injector) Call(fn any) (any, error) {
	function, err := i.functionFor(fn)
	if err != nil {
		return nil, err
	}

	args, err := function.resolver.BuildArgs(i)
	if err != nil {
		return nil, err
	}
	return function.Invoke(args)
}

// Construct builds class in injected mode. Members named in args take the
// supplied value instead of being resolved.
func (i *Injector) Construct(class *Class, args Args) (any, error) {
	if class == nil {
		return nil, ContractError{Subject: "construct", Cause: ErrNotAStruct}
	}

	key := TypeOf(class.Produces())
	v, err := i.invokeConstructor(key, class, args)
	if err != nil {
		return nil, err
	}
	i.trace(key, "construct")
	return v, nil
}

func (i *Injector) withScope(scope *Scope) *Injector {
	return &Injector{
		id:       i.id,
		bindings: i.bindings,
		scope:    scope,
		parent:   i.parent,
		logger:   i.logger,
	}
}

func (i *Injector) get(key Key) (any, error) {
	v, source, err := i.resolve(key)
	if err != nil {
		return nil, err
	}
	i.trace(key, source)
	return v, nil
}

func (i *Injector) resolve(key Key) (any, string, error) {
	if key == injectorKey || key == injectorName {
		return i, "self", nil
	}

	if v, ok := i.scope.Get(key); ok {
		return v, "scope", nil
	}

	if b, ok := i.bindings.lookup(key); ok {
		v, err := i.provide(b)
		return v, "binding", err
	}

	// Explicit bindings anywhere up the chain beat reflective construction.
	if i.parent != nil && i.parent.hasBinding(key) {
		v, err := i.parent.get(key)
		return v, "parent binding", err
	}

	// So do values an ancestor holds in scope, such as those entered with With.
	for p := i.parent; p != nil; p = p.parent {
		if v, ok := p.scope.Get(key); ok {
			return v, "parent scope", nil
		}
	}

	switch k := key.(type) {
	case TypeKey:
		if v, ok, err := i.constructType(k, nil); ok || err != nil {
			return v, "constructor", err
		}
	case factoryKey:
		return i.factory(k.target), "factory", nil
	}

	if i.parent != nil {
		v, err := i.parent.get(key)
		return v, "parent", err
	}

	return nil, "", NoSuchBindingError{Key: key}
}

// provide invokes the provider of b. Cached bindings are looked up and stored
// under the signature made of their scope keys, and the provider runs under
// that signature so it only sees values the cache entry depends on.
func (i *Injector) provide(b *binding) (any, error) {
	if !b.cached {
		return i.invoke(b)
	}

	signature := make(Values, len(b.scopeKeys))
	for _, k := range b.scopeKeys {
		v, err := i.get(k)
		if err != nil {
			return nil, err
		}
		signature[k] = v
	}

	scoped := i.withScope(i.scope.InScope(signature))
	if v, ok := scoped.scope.Get(b.key); ok {
		return v, nil
	}

	v, err := scoped.invoke(b)
	if err != nil {
		return nil, err
	}
	return scoped.scope.Set(b.key, v), nil
}

func (i *Injector) invoke(b *binding) (v any, err error) {
	if b.provider == nil {
		// Bound with only Singleton or InScope: build the type reflectively.
		k, isType := b.key.(TypeKey)
		if !isType {
			return nil, NoSuchBindingError{Key: b.key}
		}
		v, ok, err := i.constructType(k, nil)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, NoSuchBindingError{Key: b.key}
		}
		return v, nil
	}

	defer func() {
		if r := recover(); r != nil {
			v = nil
			err = ConstructorPanicError{Key: b.key, Panic: r, Stack: debug.Stack()}
		}
	}()

	v, err = b.provider(i)
	if err != nil {
		return nil, wrapConstructorError(b.key, err)
	}
	return v, nil
}

// constructType builds t reflectively. ok is false when t has no registered
// constructor and is not a struct or pointer to struct.
func (i *Injector) constructType(key TypeKey, args Args) (any, bool, error) {
	t := key.Type()

	if c, found := i.constructorFor(t); found {
		v, err := i.invokeConstructor(key, c, args)
		return v, true, err
	}

	// A registered *T also builds T.
	if t.Kind() == reflect.Struct {
		if c, found := i.constructorFor(reflect.PointerTo(t)); found {
			v, err := i.invokeConstructor(key, c, args)
			if err != nil {
				return nil, true, err
			}
			rv := reflect.ValueOf(v)
			if rv.Kind() != reflect.Pointer || rv.IsNil() {
				return nil, true, TypeMismatchError{Expected: t, Actual: rv.Type(), Context: "construct " + key.String()}
			}
			return rv.Elem().Interface(), true, nil
		}
	}

	switch {
	case t.Kind() == reflect.Struct:
		return reflect.New(t).Elem().Interface(), true, nil
	case t.Kind() == reflect.Pointer && t.Elem().Kind() == reflect.Struct:
		return reflect.New(t.Elem()).Interface(), true, nil
	}

	return nil, false, nil
}

func (i *Injector) invokeConstructor(key Key, c constructor, args Args) (v any, err error) {
	defer func() {
		if r := recover(); r != nil {
			v = nil
			err = ConstructorPanicError{Key: key, Panic: r, Stack: debug.Stack()}
		}
	}()

	v, err = c.construct(i, args)
	if err != nil {
		return nil, wrapConstructorError(key, err)
	}
	return v, nil
}

func (i *Injector) factory(target Key) Factory {
	return func(values Values) (any, error) {
		return i.With(values).get(target)
	}
}

func (i *Injector) hasBinding(key Key) bool {
	for current := i; current != nil; current = current.parent {
		if _, ok := current.bindings.lookup(key); ok {
			return true
		}
	}
	return false
}

func (i *Injector) constructorFor(t reflect.Type) (constructor, bool) {
	for current := i; current != nil; current = current.parent {
		if c, ok := current.bindings.constructorFor(t); ok {
			return c, true
		}
	}
	return nil, false
}

func (i *Injector) functionFor(fn any) (*Function, error) {
	if f, ok := fn.(*Function); ok {
		if f == nil {
			return nil, ContractError{Subject: "call", Cause: ErrNotAFunction}
		}
		return f, nil
	}

	v := reflect.ValueOf(fn)
	if !v.IsValid() || v.Kind() != reflect.Func || v.IsNil() {
		return nil, ContractError{Subject: fmt.Sprintf("call %T", fn), Cause: ErrNotAFunction}
	}

	if ptr, ok := functionPointer(v); ok {
		for current := i; current != nil; current = current.parent {
			if registered, ok := current.bindings.functions[ptr]; ok && registered.typ == v.Type() {
				return registered.withFunc(v), nil
			}
		}
	}

	return NewFunction(fn)
}

func (i *Injector) trace(key Key, source string) {
	if ce := i.logger.Check(zap.DebugLevel, "resolved"); ce != nil {
		ce.Write(
			zap.Stringer("key", key),
			zap.String("source", source),
			zap.String("injector", i.id),
		)
	}
}

// wrapConstructorError attributes err to key unless it already comes from the
// container.
func wrapConstructorError(key Key, err error) error {
	var mismatch TypeMismatchError
	switch {
	case errors.Is(err, ErrNoSuchBinding),
		errors.Is(err, ErrConstructor),
		errors.Is(err, ErrInvalidArguments),
		errors.Is(err, ErrInvalidBinding),
		errors.As(err, &mismatch):
		return err
	}
	return ConstructorError{Key: key, Cause: err}
}

// Get resolves key and asserts the result to T.
func Get[T any](i *Injector, key any) (T, error) {
	var zero T

	v, err := i.Get(key)
	if err != nil {
		return zero, err
	}
	return as[T](v, key)
}

// GetWith resolves key with values in scope and asserts the result to T.
func GetWith[T any](i *Injector, key any, values Values) (T, error) {
	var zero T

	v, err := i.GetWith(key, values)
	if err != nil {
		return zero, err
	}
	return as[T](v, key)
}

// Resolve resolves the type key of T.
//
//	greeter, err := zuice.Resolve[*Greeter](injector)
func Resolve[T any](i *Injector) (T, error) {
	return Get[T](i, Type[T]())
}

// MustResolve is like Resolve but panics on error.
func MustResolve[T any](i *Injector) T {
	v, err := Resolve[T](i)
	if err != nil {
		panic(err)
	}
	return v
}

// Call invokes fn through the injector and asserts its result to T.
func Call[T any](i *Injector, fn any) (T, error) {
	var zero T

	v, err := i.Call(fn)
	if err != nil {
		return zero, err
	}
	return as[T](v, fn)
}

func as[T any](v any, subject any) (T, error) {
	var zero T
	if v == nil {
		return zero, nil
	}

	typed, ok := v.(T)
	if !ok {
		return zero, TypeMismatchError{
			Expected: reflect.TypeOf((*T)(nil)).Elem(),
			Actual:   reflect.TypeOf(v),
			Context:  "result of " + describeSubject(subject),
		}
	}
	return typed, nil
}

func describeSubject(subject any) string {
	if f, ok := subject.(*Function); ok {
		return f.Name()
	}
	if v := reflect.ValueOf(subject); v.IsValid() && v.Kind() == reflect.Func {
		return functionName(v)
	}
	return describeKey(subject)
}
