package zuice

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
)

// ========================================
// Core Error Values (Sentinel Errors)
// ========================================
// Typed errors below match these with errors.Is.

var (
	// Binding errors.
	ErrInvalidBinding = errors.New("invalid binding")
	ErrAlreadyBound   = errors.New("already bound")

	// Resolution errors.
	ErrNoSuchBinding = errors.New("no such binding")

	// Contract errors, raised when a binding, function or class is declared.
	ErrSelfBinding         = errors.New("cannot bind a key to itself")
	ErrNotAType            = errors.New("key is not a type")
	ErrNotAName            = errors.New("key is not a name")
	ErrConflictingArgument = errors.New("parameter is specified both positionally and by name")
	ErrNotAFunction        = errors.New("constructor must be a function")
	ErrNotAStruct          = errors.New("class type must be a struct")
	ErrProviderNil         = errors.New("provider cannot be nil")
	ErrIncompleteBinding   = errors.New("binding has no provider")

	// Construction errors.
	ErrInvalidArguments = errors.New("invalid arguments")
	ErrConstructor      = errors.New("constructor failed")
)

var (
	_ error = InvalidBindingError{}
	_ error = AlreadyBoundError{}
	_ error = NoSuchBindingError{}
	_ error = ContractError{}
	_ error = ArgumentError{}
	_ error = TypeMismatchError{}
	_ error = ConstructorError{}
	_ error = ConstructorPanicError{}
	_ error = ModuleError{}
)

// ========================================
// Typed Errors for Rich Context
// ========================================

// InvalidBindingError indicates a bind call received a key of the wrong kind.
type InvalidBindingError struct {
	// Key is the value that was passed as a key.
	Key any

	// Want is set when a specific kind was requested, as by BindType.
	Want string
}

func (e InvalidBindingError) Error() string {
	if e.Want != "" {
		return fmt.Sprintf("invalid binding: %v is not a %s key", describeKey(e.Key), e.Want)
	}
	return fmt.Sprintf("invalid binding: %v (%T) is not a key", describeKey(e.Key), e.Key)
}

func (e InvalidBindingError) Is(target error) bool {
	return target == ErrInvalidBinding
}

// AlreadyBoundError indicates a key was bound twice, or that two Bindings
// being merged overlap.
type AlreadyBoundError struct {
	Key Key
}

func (e AlreadyBoundError) Error() string {
	return fmt.Sprintf("%s is already bound", describeKey(e.Key))
}

func (e AlreadyBoundError) Is(target error) bool {
	return target == ErrAlreadyBound
}

// NoSuchBindingError indicates every resolution strategy was exhausted for Key.
type NoSuchBindingError struct {
	Key any
}

func (e NoSuchBindingError) Error() string {
	return fmt.Sprintf("no binding for %s", describeKey(e.Key))
}

func (e NoSuchBindingError) Is(target error) bool {
	return target == ErrNoSuchBinding
}

// ContractError is returned when a binding, function or class declaration is
// inconsistent. These are programming errors detected at declaration time.
type ContractError struct {
	Subject string
	Cause   error
}

func (e ContractError) Error() string {
	return fmt.Sprintf("%s: %v", e.Subject, e.Cause)
}

func (e ContractError) Unwrap() error {
	return e.Cause
}

// ArgumentError describes a bad manual construction or invocation: too many
// positional arguments, a missing or unexpected keyword, or a keyword given twice.
type ArgumentError struct {
	Target  string
	Message string
}

func (e ArgumentError) Error() string {
	return fmt.Sprintf("%s: %s", e.Target, e.Message)
}

func (e ArgumentError) Is(target error) bool {
	return target == ErrInvalidArguments
}

// TypeMismatchError indicates a resolved value cannot be assigned where it is needed.
type TypeMismatchError struct {
	Expected reflect.Type
	Actual   reflect.Type
	Context  string
}

func (e TypeMismatchError) Error() string {
	return fmt.Sprintf("%s: expected %s, got %s", e.Context, formatType(e.Expected), formatType(e.Actual))
}

// ConstructorError wraps an error returned by a provider or constructor.
type ConstructorError struct {
	Key   Key
	Cause error
}

func (e ConstructorError) Error() string {
	return fmt.Sprintf("constructing %s: %v", describeKey(e.Key), e.Cause)
}

func (e ConstructorError) Unwrap() error {
	return e.Cause
}

func (e ConstructorError) Is(target error) bool {
	return target == ErrConstructor
}

// ConstructorPanicError indicates a provider or constructor panicked.
// It captures the panic value and stack trace for debugging.
type ConstructorPanicError struct {
	Key   Key
	Panic any
	Stack []byte
}

func (e ConstructorPanicError) Error() string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("constructing %s panicked: %v\n", describeKey(e.Key), e.Panic))

	if len(e.Stack) > 0 {
		b.WriteString("\nStack trace:\n")
		b.Write(e.Stack)
	}

	return b.String()
}

func (e ConstructorPanicError) Is(target error) bool {
	return target == ErrConstructor
}

// ModuleError wraps errors from module installation.
type ModuleError struct {
	Module string
	Cause  error
}

func (e ModuleError) Error() string {
	return fmt.Sprintf("module %q: %v", e.Module, e.Cause)
}

func (e ModuleError) Unwrap() error {
	return e.Cause
}

func describeKey(key any) string {
	switch k := key.(type) {
	case nil:
		return "<nil>"
	case Key:
		return k.String()
	case reflect.Type:
		return formatType(k)
	default:
		return fmt.Sprintf("%v", k)
	}
}

// formatType formats a reflect.Type for error messages.
func formatType(t reflect.Type) string {
	if t == nil {
		return "<nil>"
	}

	switch t.Kind() {
	case reflect.Pointer:
		// Format pointers as *Type instead of *package.Type
		elem := t.Elem()
		if elem.PkgPath() != "" && elem.Name() != "" {
			return "*" + elem.Name()
		}
		return t.String()
	case reflect.Slice:
		elem := t.Elem()
		if elem.PkgPath() != "" && elem.Name() != "" {
			return "[]" + elem.Name()
		}
		return t.String()
	case reflect.Func:
		return t.String()
	default:
		if t.Name() != "" {
			return t.Name()
		}
		return t.String()
	}
}
