package zuice

import (
	"errors"
	"reflect"
	"slices"
)

// ArgumentResolver turns the declared parameters of a constructor or function
// into call arguments by consulting an Injector.
//
// Resolvers are plain values so they can be inspected, for example to list
// the keys a function depends on.
type ArgumentResolver interface {
	BuildArgs(injector *Injector) (Arguments, error)
}

var (
	_ ArgumentResolver = ByName{}
	_ ArgumentResolver = ByType{}
	_ ArgumentResolver = WithKeys{}
	_ ArgumentResolver = (*Members)(nil)
)

// ByName resolves each parameter by the name key of its declared name. A
// parameter with a default takes it when its own key is not bound; any other
// failure is returned.
type ByName struct {
	Params []Parameter
}

// BuildArgs implements ArgumentResolver.
func (r ByName) BuildArgs(injector *Injector) (Arguments, error) {
	args := Arguments{Positional: make([]any, 0, len(r.Params))}
	for _, p := range r.Params {
		v, err := resolveParam(injector, NameKey(p.Name), p)
		if err != nil {
			return Arguments{}, err
		}
		args.Positional = append(args.Positional, v)
	}
	return args, nil
}

// Keys returns the keys resolved, in parameter order.
func (r ByName) Keys() []Key {
	keys := make([]Key, len(r.Params))
	for i, p := range r.Params {
		keys[i] = NameKey(p.Name)
	}
	return keys
}

// ByType resolves each parameter by its Go type. It is the strategy of
// functions created without a parameter manifest.
type ByType struct {
	Types []reflect.Type
}

// BuildArgs implements ArgumentResolver.
func (r ByType) BuildArgs(injector *Injector) (Arguments, error) {
	args := Arguments{Positional: make([]any, 0, len(r.Types))}
	for _, t := range r.Types {
		v, err := injector.get(TypeOf(t))
		if err != nil {
			return Arguments{}, err
		}
		args.Positional = append(args.Positional, v)
	}
	return args, nil
}

// Keys returns the keys resolved, in parameter order.
func (r ByType) Keys() []Key {
	keys := make([]Key, len(r.Types))
	for i, t := range r.Types {
		keys[i] = TypeOf(t)
	}
	return keys
}

// WithKeys resolves the leading parameters from Positional and the parameters
// named in Named from their keys. Other parameters are resolved by name.
// Entries of Named that are not parameters are passed as extra keyword
// arguments.
type WithKeys struct {
	Params     []Parameter
	Positional []Key
	Named      map[string]Key
}

// BuildArgs implements ArgumentResolver.
func (r WithKeys) BuildArgs(injector *Injector) (Arguments, error) {
	args := Arguments{Positional: make([]any, 0, len(r.Params))}

	for i, p := range r.Params {
		key := r.keyFor(i, p)

		v, err := resolveParam(injector, key, p)
		if err != nil {
			return Arguments{}, err
		}
		args.Positional = append(args.Positional, v)
	}

	for _, name := range sortedNames(r.Named) {
		if slices.ContainsFunc(r.Params, func(p Parameter) bool { return p.Name == name }) {
			continue
		}

		v, err := injector.get(r.Named[name])
		if err != nil {
			return Arguments{}, err
		}
		if args.Named == nil {
			args.Named = make(map[string]any)
		}
		args.Named[name] = v
	}

	return args, nil
}

// Keys returns the keys resolved for the declared parameters, in order.
func (r WithKeys) Keys() []Key {
	keys := make([]Key, len(r.Params))
	for i, p := range r.Params {
		keys[i] = r.keyFor(i, p)
	}
	return keys
}

func (r WithKeys) keyFor(i int, p Parameter) Key {
	if i < len(r.Positional) {
		return r.Positional[i]
	}
	if key, ok := r.Named[p.Name]; ok {
		return key
	}
	return NameKey(p.Name)
}

// resolveParam resolves key for p. The default of p is only used when key
// itself is missing, not when one of its dependencies is.
func resolveParam(injector *Injector, key Key, p Parameter) (any, error) {
	v, err := injector.get(key)
	if err != nil && p.HasDefault && isMissing(err, key) {
		return p.Default, nil
	}
	return v, err
}

func isMissing(err error, key Key) bool {
	var missing NoSuchBindingError
	return errors.As(err, &missing) && missing.Key == any(key)
}
