package zuice

import (
	"errors"
	"fmt"
	"reflect"
	"runtime"
	"runtime/debug"
	"slices"
	"strings"
)

// Parameter describes one declared parameter of a function: its name and its
// default value, if any. Go does not expose parameter names at run time, so
// functions injected by name carry an explicit list of Parameters.
type Parameter struct {
	Name       string
	HasDefault bool
	Default    any
}

// Param declares a required parameter.
func Param(name string) Parameter {
	return Parameter{Name: name}
}

// ParamDefault declares a parameter that falls back to def when nothing is
// bound for it.
func ParamDefault(name string, def any) Parameter {
	return Parameter{Name: name, HasDefault: true, Default: def}
}

// Args holds keyword arguments. A function whose last parameter has type
// Args receives every keyword argument that does not match a declared
// parameter.
type Args map[string]any

// Arguments are the call arguments built by an ArgumentResolver.
type Arguments struct {
	Positional []any
	Named      map[string]any
}

var (
	argsType  = reflect.TypeOf(Args(nil))
	errorType = reflect.TypeOf((*error)(nil)).Elem()
)

// Constructable is implemented by *Class and *Function, the two kinds of
// constructors that can be registered with Bindings.Register.
type Constructable interface {
	constructor

	// Produces returns the type of the values built, or nil.
	Produces() reflect.Type
}

var (
	_ Constructable = (*Function)(nil)
	_ Constructable = (*Class)(nil)
)

// Function is a Go function together with the strategy used to resolve its
// arguments.
type Function struct {
	fn   reflect.Value
	typ  reflect.Type
	name string

	params     []Parameter
	paramTypes []reflect.Type

	// keywords is set when the last parameter has type Args.
	keywords bool

	resolver ArgumentResolver
}

// FunctionOption configures NewFunction.
type FunctionOption func(*functionConfig)

type functionConfig struct {
	params    []Parameter
	hasParams bool

	byName   bool
	withKeys bool
	keys     []any
	named    map[string]any
}

// Params declares the parameters of the function, in order.
func Params(params ...Parameter) FunctionOption {
	return func(c *functionConfig) {
		c.params = append(c.params, params...)
		c.hasParams = true
	}
}

// InjectByName resolves each parameter by its declared name. This is the
// default when Params is given.
func InjectByName() FunctionOption {
	return func(c *functionConfig) {
		c.byName = true
	}
}

// InjectWith resolves the leading parameters positionally from keys.
// Remaining parameters are resolved by name.
func InjectWith(keys ...any) FunctionOption {
	return func(c *functionConfig) {
		c.withKeys = true
		c.keys = append(c.keys, keys...)
	}
}

// InjectNamed resolves the named parameters from the given keys. Entries that
// do not name a parameter are passed as extra keyword arguments.
func InjectNamed(keys map[string]any) FunctionOption {
	return func(c *functionConfig) {
		c.withKeys = true
		if c.named == nil {
			c.named = make(map[string]any, len(keys))
		}
		for name, key := range keys {
			c.named[name] = key
		}
	}
}

// NewFunction describes fn for injection. fn must return nothing, a value, an
// error, or a value and an error.
//
// Without options every parameter is resolved by its Go type:
//
//	f, err := zuice.NewFunction(NewService)
//
// With Params, parameters are resolved by name and may declare defaults:
//
//	f, err := zuice.NewFunction(NewBasket,
//	    zuice.Params(zuice.Param("apple"), zuice.Param("banana"), zuice.ParamDefault("foo", 10)),
//	    zuice.InjectWith(zuice.Type[*Apple](), "banana"),
//	)
func NewFunction(fn any, opts ...FunctionOption) (*Function, error) {
	v := reflect.ValueOf(fn)
	if !v.IsValid() || v.Kind() != reflect.Func || v.IsNil() {
		return nil, ContractError{Subject: fmt.Sprintf("function %T", fn), Cause: ErrNotAFunction}
	}

	cfg := &functionConfig{}
	for _, opt := range opts {
		if opt != nil {
			opt(cfg)
		}
	}

	f := &Function{
		fn:   v,
		typ:  v.Type(),
		name: functionName(v),
	}

	if err := f.validateSignature(); err != nil {
		return nil, err
	}
	if err := f.declareParams(cfg); err != nil {
		return nil, err
	}

	resolver, err := f.buildResolver(cfg)
	if err != nil {
		return nil, err
	}
	f.resolver = resolver

	return f, nil
}

// MustFunction is like NewFunction but panics on error. It simplifies
// package-level declarations.
func MustFunction(fn any, opts ...FunctionOption) *Function {
	f, err := NewFunction(fn, opts...)
	if err != nil {
		panic(err)
	}
	return f
}

func (f *Function) validateSignature() error {
	if f.typ.IsVariadic() {
		return f.contractError(errors.New("variadic functions cannot be injected"))
	}

	switch f.typ.NumOut() {
	case 0, 1:
	case 2:
		if f.typ.Out(1) != errorType {
			return f.contractError(errors.New("second return value must be error"))
		}
	default:
		return f.contractError(errors.New("function must return (T), (T, error), (error) or nothing"))
	}

	n := f.typ.NumIn()
	if n > 0 && f.typ.In(n-1) == argsType {
		f.keywords = true
		n--
	}

	f.paramTypes = make([]reflect.Type, n)
	for i := range n {
		f.paramTypes[i] = f.typ.In(i)
	}

	return nil
}

func (f *Function) declareParams(cfg *functionConfig) error {
	if !cfg.hasParams {
		f.params = make([]Parameter, len(f.paramTypes))
		for i := range f.params {
			f.params[i] = Param(fmt.Sprintf("arg%d", i))
		}
		return nil
	}

	if len(cfg.params) != len(f.paramTypes) {
		return f.contractError(fmt.Errorf("declares %d parameters, function takes %d", len(cfg.params), len(f.paramTypes)))
	}

	seen := make(map[string]bool, len(cfg.params))
	for i, p := range cfg.params {
		if p.Name == "" {
			return f.contractError(fmt.Errorf("parameter %d has no name", i))
		}
		if seen[p.Name] {
			return f.contractError(fmt.Errorf("parameter %q declared twice", p.Name))
		}
		seen[p.Name] = true

		if p.HasDefault {
			if _, err := assignValue(p.Default, f.paramTypes[i], "default of "+p.Name); err != nil {
				return f.contractError(err)
			}
		}
	}

	f.params = slices.Clone(cfg.params)
	return nil
}

func (f *Function) buildResolver(cfg *functionConfig) (ArgumentResolver, error) {
	switch {
	case cfg.withKeys:
		return f.buildWithKeys(cfg)
	case cfg.byName || cfg.hasParams:
		if !cfg.hasParams && len(f.params) > 0 {
			return nil, f.contractError(errors.New("injecting by name requires Params"))
		}
		return ByName{Params: slices.Clone(f.params)}, nil
	default:
		return ByType{Types: slices.Clone(f.paramTypes)}, nil
	}
}

func (f *Function) buildWithKeys(cfg *functionConfig) (ArgumentResolver, error) {
	if len(cfg.keys) > len(f.params) {
		return nil, f.contractError(fmt.Errorf("%d keys given for %d parameters", len(cfg.keys), len(f.params)))
	}

	resolver := WithKeys{
		Params:     slices.Clone(f.params),
		Positional: make([]Key, len(cfg.keys)),
		Named:      make(map[string]Key, len(cfg.named)),
	}

	for i, key := range cfg.keys {
		k, err := KeyOf(key)
		if err != nil {
			return nil, f.contractError(err)
		}
		resolver.Positional[i] = k
	}

	for name, key := range cfg.named {
		k, err := KeyOf(key)
		if err != nil {
			return nil, f.contractError(err)
		}

		idx := f.paramIndex(name)
		if idx >= 0 && idx < len(resolver.Positional) {
			return nil, f.contractError(fmt.Errorf("%w: %q", ErrConflictingArgument, name))
		}
		if idx < 0 && !f.keywords {
			return nil, f.contractError(fmt.Errorf("unexpected keyword argument %q", name))
		}
		resolver.Named[name] = k
	}

	return resolver, nil
}

// Name returns the Go name of the function.
func (f *Function) Name() string {
	return f.name
}

// Params returns the declared parameters.
func (f *Function) Params() []Parameter {
	return slices.Clone(f.params)
}

// Resolver returns the strategy used to resolve the function's arguments.
func (f *Function) Resolver() ArgumentResolver {
	return f.resolver
}

// Produces returns the type of the function's first result, or nil if it
// returns nothing or only an error.
func (f *Function) Produces() reflect.Type {
	if f.typ.NumOut() == 0 || f.typ.Out(0) == errorType {
		return nil
	}
	return f.typ.Out(0)
}

// Invoke calls the function. Positional arguments fill the parameters in
// order, then named arguments fill parameters by name; parameters left empty
// take their default.
func (f *Function) Invoke(args Arguments) (any, error) {
	in, err := f.callArguments(args)
	if err != nil {
		return nil, err
	}
	return f.call(in)
}

func (f *Function) construct(injector *Injector, extra Args) (any, error) {
	args, err := f.resolver.BuildArgs(injector)
	if err != nil {
		return nil, err
	}

	if len(extra) > 0 {
		if args.Named == nil {
			args.Named = make(map[string]any, len(extra))
		}
		for name, v := range extra {
			// Explicitly supplied arguments win over injected ones.
			if idx := f.paramIndex(name); idx >= 0 && idx < len(args.Positional) {
				args.Positional[idx] = v
				continue
			}
			args.Named[name] = v
		}
	}

	return f.Invoke(args)
}

func (f *Function) callArguments(args Arguments) ([]reflect.Value, error) {
	if len(args.Positional) > len(f.params) {
		return nil, ArgumentError{
			Target:  f.name,
			Message: fmt.Sprintf("takes at most %d positional arguments (%d given)", len(f.params), len(args.Positional)),
		}
	}

	in := make([]reflect.Value, len(f.params))
	filled := make([]bool, len(f.params))

	for i, v := range args.Positional {
		value, err := assignValue(v, f.paramTypes[i], "argument "+f.params[i].Name)
		if err != nil {
			return nil, err
		}
		in[i] = value
		filled[i] = true
	}

	extra := Args{}
	for _, name := range sortedNames(args.Named) {
		v := args.Named[name]

		idx := f.paramIndex(name)
		if idx < 0 {
			extra[name] = v
			continue
		}
		if filled[idx] {
			return nil, ArgumentError{
				Target:  f.name,
				Message: fmt.Sprintf("got multiple values for keyword argument '%s'", name),
			}
		}

		value, err := assignValue(v, f.paramTypes[idx], "argument "+name)
		if err != nil {
			return nil, err
		}
		in[idx] = value
		filled[idx] = true
	}

	for i, p := range f.params {
		if filled[i] {
			continue
		}
		if !p.HasDefault {
			return nil, ArgumentError{
				Target:  f.name,
				Message: fmt.Sprintf("missing argument '%s'", p.Name),
			}
		}

		value, err := assignValue(p.Default, f.paramTypes[i], "default of "+p.Name)
		if err != nil {
			return nil, err
		}
		in[i] = value
	}

	if f.keywords {
		in = append(in, reflect.ValueOf(extra))
	} else if len(extra) > 0 {
		return nil, ArgumentError{
			Target:  f.name,
			Message: fmt.Sprintf("unexpected keyword argument '%s'", sortedNames(extra)[0]),
		}
	}

	return in, nil
}

func (f *Function) call(in []reflect.Value) (result any, err error) {
	defer func() {
		if r := recover(); r != nil {
			result = nil
			err = ConstructorPanicError{Key: TypeOf(f.typ), Panic: r, Stack: debug.Stack()}
		}
	}()

	out := f.fn.Call(in)

	switch len(out) {
	case 0:
		return nil, nil
	case 1:
		if f.typ.Out(0) == errorType {
			return nil, errorResult(out[0])
		}
		return out[0].Interface(), nil
	default:
		if err := errorResult(out[1]); err != nil {
			return nil, err
		}
		return out[0].Interface(), nil
	}
}

// withFunc returns a copy of f that calls fn, which must have the same type.
func (f *Function) withFunc(fn reflect.Value) *Function {
	c := *f
	c.fn = fn
	return &c
}

func (f *Function) paramIndex(name string) int {
	return slices.IndexFunc(f.params, func(p Parameter) bool { return p.Name == name })
}

func (f *Function) contractError(err error) error {
	return ContractError{Subject: "function " + f.name, Cause: err}
}

func errorResult(v reflect.Value) error {
	if v.IsNil() {
		return nil
	}
	return v.Interface().(error)
}

// assignValue converts v into a value usable as a t. Nil becomes the zero
// value of nillable types. Values of the same kind, and numeric values, are
// converted.
func assignValue(v any, t reflect.Type, context string) (reflect.Value, error) {
	if v == nil {
		switch t.Kind() {
		case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
			return reflect.Zero(t), nil
		}
		return reflect.Value{}, TypeMismatchError{Expected: t, Actual: nil, Context: context}
	}

	rv := reflect.ValueOf(v)
	if rv.Type().AssignableTo(t) {
		return rv, nil
	}
	if rv.Type().ConvertibleTo(t) && (rv.Kind() == t.Kind() || (isNumeric(rv.Kind()) && isNumeric(t.Kind()))) {
		return rv.Convert(t), nil
	}

	return reflect.Value{}, TypeMismatchError{Expected: t, Actual: rv.Type(), Context: context}
}

func isNumeric(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}

func sortedNames[V any](m map[string]V) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

func functionName(v reflect.Value) string {
	if fn := runtime.FuncForPC(v.Pointer()); fn != nil {
		return fn.Name()
	}
	return v.Type().String()
}

// functionPointer returns the code pointer identifying fn. Method values all
// share one wrapper and cannot be told apart, so they have none.
func functionPointer(fn reflect.Value) (uintptr, bool) {
	if !fn.IsValid() || fn.Kind() != reflect.Func || fn.IsNil() {
		return 0, false
	}
	if strings.HasSuffix(functionName(fn), "-fm") {
		return 0, false
	}
	return fn.Pointer(), true
}
