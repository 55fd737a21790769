package zuice

import (
	"errors"
	"maps"
	"reflect"
	"slices"
	"strings"
)

// Provider produces the value for a key. It receives the Injector doing the
// resolution and may use it to resolve its own dependencies.
type Provider func(injector *Injector) (any, error)

// binding associates one key with one provider and an optional scope.
type binding struct {
	key      Key
	provider Provider

	// cached is set by Singleton and InScope. Cached bindings are memoized
	// in the injector's scope under the signature made of scopeKeys.
	cached    bool
	scopeKeys []Key
}

func (b *binding) clone() *binding {
	c := *b
	c.scopeKeys = slices.Clone(b.scopeKeys)
	return &c
}

// constructor is implemented by everything that can reflectively build a
// value for a type key: *Class and *Function.
type constructor interface {
	construct(injector *Injector, args Args) (any, error)
}

// Bindings is a table of keys to providers.
//
// Bindings is NOT thread-safe. It is configured in a single goroutine and then
// frozen into an Injector with NewInjector, which takes its own copy: changing
// a Bindings after creating an Injector never changes what that Injector
// resolves.
//
// Example:
//
//	bindings := zuice.NewBindings()
//	bindings.Bind("apple").ToInstance(apple)
//	bindings.Bind(zuice.Type[*Counter]()).Singleton()
//
//	injector, err := zuice.NewInjector(bindings)
type Bindings struct {
	bindings map[Key]*binding

	// constructors is the side table of registered classes and constructor
	// functions, keyed by the type they produce.
	constructors map[reflect.Type]constructor

	// functions is the side table of registered functions, keyed by code pointer,
	// consulted by Injector.Call for plain Go functions.
	functions map[uintptr]*Function

	errs []error
}

// NewBindings creates an empty Bindings.
func NewBindings() *Bindings {
	return &Bindings{
		bindings:     make(map[Key]*binding),
		constructors: make(map[reflect.Type]constructor),
		functions:    make(map[uintptr]*Function),
	}
}

// Bind starts a binding for key, which may be a Key, a string (name key) or a
// reflect.Type (type key). It fails with AlreadyBoundError if key is already
// bound. Failures are reported by the returned Binder's Err and by Err.
func (b *Bindings) Bind(key any) *Binder {
	k, err := KeyOf(key)
	if err != nil {
		return b.failed(err)
	}
	return b.bind(k, nil)
}

// BindType is like Bind but only accepts type keys.
func (b *Bindings) BindType(key any) *Binder {
	k, err := KeyOf(key)
	if err != nil || k.Kind() != KindType {
		return b.failed(InvalidBindingError{Key: key, Want: KindType.String()})
	}
	return b.bind(k, nil)
}

// BindName is like Bind but only accepts name keys.
func (b *Bindings) BindName(key any) *Binder {
	k, err := KeyOf(key)
	if err != nil || k.Kind() != KindName {
		return b.failed(InvalidBindingError{Key: key, Want: KindName.String()})
	}
	return b.bind(k, nil)
}

func (b *Bindings) bind(key Key, scopeKeys []Key) *Binder {
	if _, exists := b.bindings[key]; exists {
		return b.failed(AlreadyBoundError{Key: key})
	}

	entry := &binding{key: key}
	if scopeKeys != nil {
		entry.cached = true
		entry.scopeKeys = slices.Clone(scopeKeys)
	}
	b.bindings[key] = entry

	return &Binder{owner: b, binding: entry}
}

func (b *Bindings) failed(err error) *Binder {
	b.errs = append(b.errs, err)
	return &Binder{owner: b, err: err}
}

// Scope returns a view of b in which every binding is cached per value of
// keys: two resolutions share a value exactly when each of keys resolves to
// the same value.
//
//	bindings.Scope(Name).Bind(counter).ToProvider(count)
func (b *Bindings) Scope(keys ...any) *ScopedBindings {
	scoped := &ScopedBindings{owner: b, keys: []Key{}}
	for _, key := range keys {
		k, err := KeyOf(key)
		if err != nil {
			b.errs = append(b.errs, err)
			continue
		}
		scoped.keys = append(scoped.keys, k)
	}
	return scoped
}

// Register records classes and constructor functions in the side table used
// for reflective construction. A *Function is registered under its first
// return type and, for Injector.Call, under its code pointer.
func (b *Bindings) Register(constructors ...Constructable) error {
	var errs []error
	for _, c := range constructors {
		if err := b.register(c); err != nil {
			errs = append(errs, err)
		}
	}

	err := errors.Join(errs...)
	if err != nil {
		b.errs = append(b.errs, err)
	}
	return err
}

func (b *Bindings) register(c Constructable) error {
	switch c := c.(type) {
	case *Class:
		if _, exists := b.constructors[c.Produces()]; exists {
			return AlreadyBoundError{Key: TypeOf(c.Produces())}
		}
		b.constructors[c.Produces()] = c
	case *Function:
		if ptr, ok := functionPointer(c.fn); ok {
			b.functions[ptr] = c
		}
		if out := c.Produces(); out != nil {
			if _, exists := b.constructors[out]; exists {
				return AlreadyBoundError{Key: TypeOf(out)}
			}
			b.constructors[out] = c
		}
	default:
		return ContractError{Subject: "register", Cause: ErrNotAFunction}
	}
	return nil
}

// Contains reports whether key is bound.
func (b *Bindings) Contains(key any) bool {
	k, err := KeyOf(key)
	if err != nil {
		return false
	}
	_, ok := b.bindings[k]
	return ok
}

// Len returns the number of bound keys.
func (b *Bindings) Len() int {
	return len(b.bindings)
}

// Keys returns the bound keys in no particular order.
func (b *Bindings) Keys() []Key {
	return slices.Collect(maps.Keys(b.bindings))
}

// Copy returns an independent copy of b. Binders obtained from b before the
// copy keep writing to b only.
func (b *Bindings) Copy() *Bindings {
	c := &Bindings{
		bindings:     make(map[Key]*binding, len(b.bindings)),
		constructors: maps.Clone(b.constructors),
		functions:    maps.Clone(b.functions),
		errs:         slices.Clone(b.errs),
	}
	for k, v := range b.bindings {
		c.bindings[k] = v.clone()
	}
	return c
}

// Update merges the bindings of other into b. It fails with
// AlreadyBoundError, without changing b, if any key is bound in both.
func (b *Bindings) Update(other *Bindings) error {
	var errs []error
	for k := range other.bindings {
		if _, exists := b.bindings[k]; exists {
			errs = append(errs, AlreadyBoundError{Key: k})
		}
	}
	for t := range other.constructors {
		if existing, exists := b.constructors[t]; exists && existing != other.constructors[t] {
			errs = append(errs, AlreadyBoundError{Key: TypeOf(t)})
		}
	}
	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	for k, v := range other.bindings {
		b.bindings[k] = v.clone()
	}
	maps.Copy(b.constructors, other.constructors)
	maps.Copy(b.functions, other.functions)
	b.errs = append(b.errs, other.errs...)
	return nil
}

// Install applies modules to b.
func (b *Bindings) Install(modules ...Module) error {
	for _, module := range modules {
		if module == nil {
			continue
		}

		if err := module(b); err != nil {
			return err
		}
	}

	return nil
}

// Err returns every error recorded by Bind, Register and the Binders created
// from b, joined, or nil. A name or token key that was bound without a
// provider is reported as incomplete; only type keys can be built without one.
func (b *Bindings) Err() error {
	errs := slices.Clone(b.errs)
	for _, key := range b.incomplete() {
		errs = append(errs, ContractError{Subject: "bind " + key.String(), Cause: ErrIncompleteBinding})
	}
	return errors.Join(errs...)
}

func (b *Bindings) incomplete() []Key {
	var keys []Key
	for key, entry := range b.bindings {
		if entry.provider == nil && key.Kind() != KindType {
			keys = append(keys, key)
		}
	}
	slices.SortFunc(keys, func(a, b Key) int { return strings.Compare(a.String(), b.String()) })
	return keys
}

func (b *Bindings) lookup(key Key) (*binding, bool) {
	entry, ok := b.bindings[key]
	return entry, ok
}

func (b *Bindings) constructorFor(t reflect.Type) (constructor, bool) {
	c, ok := b.constructors[t]
	return c, ok
}

// ScopedBindings binds keys into its parent Bindings with a scope declaration.
type ScopedBindings struct {
	owner *Bindings
	keys  []Key
}

// Bind starts a scoped binding for key.
func (s *ScopedBindings) Bind(key any) *Binder {
	k, err := KeyOf(key)
	if err != nil {
		return s.owner.failed(err)
	}
	return s.owner.bind(k, s.keys)
}

// Binder completes a binding started by Bindings.Bind.
//
// Binder methods return the Binder so calls can be chained. The first error
// is kept and reported by Err; later calls on a failed Binder do nothing.
type Binder struct {
	owner   *Bindings
	binding *binding
	bound   bool
	err     error
}

// ToInstance binds the key to value.
func (b *Binder) ToInstance(value any) *Binder {
	return b.ToProvider(func(*Injector) (any, error) {
		return value, nil
	})
}

// ToProvider binds the key to provider. It fails with AlreadyBoundError if
// this Binder already committed a provider.
func (b *Binder) ToProvider(provider Provider) *Binder {
	if b.err != nil {
		return b
	}
	if provider == nil {
		return b.fail(ContractError{Subject: "bind " + b.binding.key.String(), Cause: ErrProviderNil})
	}
	if b.bound {
		return b.fail(AlreadyBoundError{Key: b.binding.key})
	}

	b.bound = true
	b.binding.provider = provider
	return b
}

// ToKey binds the key to whatever other resolves to. Binding a key to itself
// is rejected.
func (b *Binder) ToKey(other any) *Binder {
	if b.err != nil {
		return b
	}

	k, err := KeyOf(other)
	if err != nil {
		return b.fail(err)
	}
	if k == b.binding.key {
		return b.fail(ContractError{Subject: "bind " + k.String(), Cause: ErrSelfBinding})
	}

	return b.ToProvider(func(injector *Injector) (any, error) {
		return injector.get(k)
	})
}

// ToType is like ToKey but only accepts type keys.
func (b *Binder) ToType(other any) *Binder {
	if b.err != nil {
		return b
	}

	k, err := KeyOf(other)
	if err != nil || k.Kind() != KindType {
		return b.fail(ContractError{Subject: "bind " + b.binding.key.String(), Cause: ErrNotAType})
	}
	return b.ToKey(k)
}

// ToName is like ToKey but only accepts name keys.
func (b *Binder) ToName(other any) *Binder {
	if b.err != nil {
		return b
	}

	k, err := KeyOf(other)
	if err != nil || k.Kind() != KindName {
		return b.fail(ContractError{Subject: "bind " + b.binding.key.String(), Cause: ErrNotAName})
	}
	return b.ToKey(k)
}

// Singleton memoizes the binding: repeated resolutions return the same value.
// Combined with InScope, one value is kept per scope signature.
//
// The provider is not run under a lock. When several goroutines resolve the
// key for the first time at once, the provider may run more than once; every
// caller still receives the first value stored, and the others are discarded.
func (b *Binder) Singleton() *Binder {
	if b.err != nil {
		return b
	}
	b.binding.cached = true
	return b
}

// InScope caches the binding per value of keys. As with Singleton, concurrent
// first resolutions under one signature may each run the provider, but all of
// them return the same cached value.
func (b *Binder) InScope(keys ...any) *Binder {
	if b.err != nil {
		return b
	}

	for _, key := range keys {
		k, err := KeyOf(key)
		if err != nil {
			return b.fail(err)
		}
		if !slices.Contains(b.binding.scopeKeys, k) {
			b.binding.scopeKeys = append(b.binding.scopeKeys, k)
		}
	}
	b.binding.cached = true
	return b
}

// Err returns the first error met while building this binding.
func (b *Binder) Err() error {
	return b.err
}

func (b *Binder) fail(err error) *Binder {
	b.err = err
	b.owner.errs = append(b.owner.errs, err)
	return b
}
