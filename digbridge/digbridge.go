// Package digbridge shares values between zuice and go.uber.org/dig.
//
// Bind exposes types constructed by a dig container as zuice type keys, and
// Provide exposes types resolved by a zuice injector to a dig container:
//
//	c := dig.New()
//	_ = c.Provide(NewDatabase)
//
//	bindings := zuice.NewBindings()
//	_ = digbridge.Bind(bindings, c, reflect.TypeOf((*Database)(nil)))
//
// Do not bridge one type in both directions; a dig constructor that resolves
// through the injector back into the same container would deadlock.
package digbridge

import (
	"errors"
	"fmt"
	"reflect"
	"sync"

	"go.uber.org/dig"

	"github.com/mwilliamson/zuice"
)

var errorType = reflect.TypeOf((*error)(nil)).Elem()

// ErrNotExtracted is returned when dig invoked an extraction function
// without a usable value.
var ErrNotExtracted = errors.New("dig did not supply a value")

// extractor reads values out of a dig container. dig containers are not
// safe for concurrent Invoke calls, so every extraction is serialized.
type extractor struct {
	mu        sync.Mutex
	container *dig.Container
}

func (e *extractor) extract(t reflect.Type) (any, error) {
	var result any
	var extracted bool

	// Build the extraction function dynamically
	fnType := reflect.FuncOf([]reflect.Type{t}, []reflect.Type{errorType}, false)
	fn := reflect.MakeFunc(fnType, func(args []reflect.Value) []reflect.Value {
		if len(args) > 0 && args[0].IsValid() {
			result = args[0].Interface()
			extracted = true
			return []reflect.Value{reflect.Zero(errorType)}
		}

		err := fmt.Errorf("%w: %s", ErrNotExtracted, t)
		return []reflect.Value{reflect.ValueOf(&err).Elem()}
	})

	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.container.Invoke(fn.Interface()); err != nil {
		return nil, err
	}
	if !extracted {
		return nil, fmt.Errorf("%w: %s", ErrNotExtracted, t)
	}
	return result, nil
}

// Bind binds each of types in bindings to the value container builds for it.
// dig caches what it builds, so the values behave as singletons.
func Bind(bindings *zuice.Bindings, container *dig.Container, types ...reflect.Type) error {
	if bindings == nil || container == nil {
		return errors.New("digbridge: bindings and container are required")
	}

	e := &extractor{container: container}

	var errs []error
	for _, t := range types {
		if t == nil {
			errs = append(errs, zuice.InvalidBindingError{Key: t, Want: zuice.KindType.String()})
			continue
		}

		err := bindings.Bind(zuice.TypeOf(t)).ToProvider(func(*zuice.Injector) (any, error) {
			return e.extract(t)
		}).Err()
		if err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

// BindType is the typed form of Bind for a single type.
func BindType[T any](bindings *zuice.Bindings, container *dig.Container) error {
	return Bind(bindings, container, reflect.TypeOf((*T)(nil)).Elem())
}

// Provide registers a constructor with container for each of types. The
// constructor resolves the type through injector, so dig receives whatever
// the injector's bindings or reflective construction produce.
func Provide(container *dig.Container, injector *zuice.Injector, types ...reflect.Type) error {
	if container == nil || injector == nil {
		return errors.New("digbridge: container and injector are required")
	}

	var errs []error
	for _, t := range types {
		if t == nil {
			errs = append(errs, zuice.InvalidBindingError{Key: t, Want: zuice.KindType.String()})
			continue
		}

		if err := container.Provide(resolver(injector, t)); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

// ProvideType is the typed form of Provide for a single type.
func ProvideType[T any](container *dig.Container, injector *zuice.Injector) error {
	return Provide(container, injector, reflect.TypeOf((*T)(nil)).Elem())
}

// resolver builds a func() (T, error) resolving t through injector.
func resolver(injector *zuice.Injector, t reflect.Type) any {
	fnType := reflect.FuncOf(nil, []reflect.Type{t, errorType}, false)

	fn := reflect.MakeFunc(fnType, func([]reflect.Value) []reflect.Value {
		fail := func(err error) []reflect.Value {
			return []reflect.Value{reflect.Zero(t), reflect.ValueOf(&err).Elem()}
		}

		v, err := injector.Get(zuice.TypeOf(t))
		if err != nil {
			return fail(err)
		}

		out := reflect.New(t).Elem()
		if v != nil {
			rv := reflect.ValueOf(v)
			if !rv.Type().AssignableTo(t) {
				return fail(zuice.TypeMismatchError{Expected: t, Actual: rv.Type(), Context: "digbridge"})
			}
			out.Set(rv)
		}

		return []reflect.Value{out, reflect.Zero(errorType)}
	})

	return fn.Interface()
}
