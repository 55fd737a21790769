// Package zuice resolves values from a declarative table of bindings.
//
// A Bindings maps keys to providers. An Injector is built from a frozen copy of
// a Bindings and resolves keys on request, recursively resolving whatever the
// provider or constructor of a key depends on.
//
// # Keys
//
// Values are identified by keys:
//   - NameKey: a plain string, resolvable only through a binding
//   - TypeKey: a Go type, made with Type[T](); bound explicitly or built reflectively
//   - *Token: a unique key minted with NewToken
//   - FactoryOf(key): a deferred Factory for another key
//
// Strings and reflect.Type values are accepted wherever a key is expected.
//
// # Basic Usage
//
//	var (
//	    Greeting = zuice.NewToken("Greeting")
//	    Name     = zuice.NewToken("Name")
//	)
//
//	var GreeterClass = zuice.MustClass[Greeter](
//	    zuice.Dependency("Greeting", Greeting),
//	    zuice.Dependency("Name", Name),
//	)
//
//	bindings := zuice.NewBindings()
//	bindings.Bind(Greeting).ToInstance("Hello")
//	bindings.Register(GreeterClass)
//
//	injector, err := zuice.NewInjector(bindings)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	greeter, err := zuice.GetWith[*Greeter](injector, zuice.Type[*Greeter](), zuice.Values{Name: "Bob"})
//
// # Bindings
//
// A key is bound at most once. A Binder binds it to an instance, a provider or
// another key:
//
//	bindings.Bind("apple").ToInstance(apple)
//	bindings.Bind(zuice.Type[Store]()).ToType(zuice.Type[*MemoryStore]())
//	bindings.Bind("clock").ToProvider(func(*zuice.Injector) (any, error) {
//	    return time.Now, nil
//	})
//
// Mistakes such as binding a key twice are recorded on the Bindings and
// reported by Err; NewInjector refuses a Bindings carrying errors.
//
// # Scopes
//
// Singleton caches a binding for the lifetime of the injector. A scoped
// binding is cached once per value of its scope keys:
//
//	bindings.Bind(zuice.Type[*Counter]()).Singleton()
//	bindings.Scope(Name).Bind(visits).ToProvider(newVisits)
//
// GetWith and With put values in scope without changing the injector they
// are called on. A cached value is visible from any view whose scope values
// include the values it was cached under.
//
// # Functions and Classes
//
// Go does not keep parameter names at run time. A Function without a
// parameter manifest resolves its parameters by type; Params declares names
// and defaults, which resolve by name, and InjectWith and InjectNamed map
// parameters to keys:
//
//	zuice.MustFunction(NewBasket,
//	    zuice.Params(zuice.Param("apple"), zuice.Param("banana"), zuice.ParamDefault("foo", 10)),
//	    zuice.InjectWith(zuice.Type[*Apple](), "banana"),
//	)
//
// A Class declares which struct fields are injected. Classes can also be
// constructed by hand with New, NewWith and Construct, in which case positional
// values fill the members in declaration order.
//
// # Injector Hierarchies
//
// WithParent derives an injector from another. Keys the child cannot resolve
// are delegated to the parent, and bindings held by any ancestor take priority
// over reflective construction in the child.
//
// # Thread Safety
//
// Bindings is not safe for concurrent use. An Injector is: concurrent
// resolutions of a cached binding agree on a single value.
//
// # Error Handling
//
// Errors are typed and match sentinels with errors.Is:
//   - InvalidBindingError (ErrInvalidBinding): a value that is not a key of the required kind
//   - AlreadyBoundError (ErrAlreadyBound): a key bound twice
//   - NoSuchBindingError (ErrNoSuchBinding): nothing can produce the key
//   - ContractError: an inconsistent binding, function or class declaration
//   - ArgumentError (ErrInvalidArguments): bad manual construction or invocation
//   - ConstructorError, ConstructorPanicError (ErrConstructor): a provider failed
package zuice
