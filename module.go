package zuice

// Module represents a group of registrations applied to a Bindings.
type Module func(*Bindings) error

// NewModule creates a new module with the given name and builders.
// Modules are a way to group related bindings together.
//
// Example:
//
//	var GreetingModule = zuice.NewModule("greeting",
//	    zuice.BindInstance(Greeting, "Hello"),
//	    zuice.Register(GreeterClass),
//	)
//
//	var AppModule = zuice.NewModule("app",
//	    GreetingModule,
//	    zuice.BindSingleton(zuice.Type[*Counter]()),
//	    zuice.BindScoped(counter, count, Name),
//	)
func NewModule(name string, builders ...Module) Module {
	return func(b *Bindings) error {
		// Execute all builders in order
		for _, builder := range builders {
			if builder == nil {
				continue
			}

			if err := builder(b); err != nil {
				return ModuleError{Module: name, Cause: err}
			}
		}

		return nil
	}
}

// BindInstance creates a Module binding key to value.
func BindInstance(key, value any) Module {
	return func(b *Bindings) error {
		return b.Bind(key).ToInstance(value).Err()
	}
}

// BindProvider creates a Module binding key to provider.
func BindProvider(key any, provider Provider) Module {
	return func(b *Bindings) error {
		return b.Bind(key).ToProvider(provider).Err()
	}
}

// BindKey creates a Module binding key to whatever other resolves to.
func BindKey(key, other any) Module {
	return func(b *Bindings) error {
		return b.Bind(key).ToKey(other).Err()
	}
}

// BindSingleton creates a Module binding key as a singleton. Without a
// provider, key must be a type key and is built reflectively once.
func BindSingleton(key any, provider ...Provider) Module {
	return func(b *Bindings) error {
		binder := b.Bind(key)
		for _, p := range provider {
			binder = binder.ToProvider(p)
		}
		return binder.Singleton().Err()
	}
}

// BindScoped creates a Module binding key to provider, cached per value of
// scopeKeys.
func BindScoped(key any, provider Provider, scopeKeys ...any) Module {
	return func(b *Bindings) error {
		return b.Scope(scopeKeys...).Bind(key).ToProvider(provider).Err()
	}
}

// Register creates a Module registering classes and constructor functions.
func Register(constructors ...Constructable) Module {
	return func(b *Bindings) error {
		return b.Register(constructors...)
	}
}
