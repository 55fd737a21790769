package zuice

import (
	"errors"
	"fmt"
	"reflect"
	"slices"
	"sync/atomic"
)

// declarationOrder stamps members and initializers as they are created. It
// only ever increases, so a later declaration always sorts after an earlier one.
var declarationOrder atomic.Uint64

func nextOrder() uint64 {
	return declarationOrder.Add(1)
}

// MemberKind distinguishes injected dependencies from plain arguments.
type MemberKind int

const (
	// MemberDependency is populated by resolving a key.
	MemberDependency MemberKind = iota

	// MemberArgument is populated from a supplied value or its default.
	MemberArgument
)

func (k MemberKind) String() string {
	if k == MemberArgument {
		return "argument"
	}
	return "dependency"
}

// Declaration is one entry in the definition of a Class: a Member, an
// Initializer or an Extends clause.
type Declaration interface {
	declare(c *Class) error
}

// Member declares that a struct field is populated when the class is
// constructed.
type Member struct {
	Field      string
	Kind       MemberKind
	Key        Key
	HasDefault bool
	Default    any

	// Order is the position of the declaration among all declarations made
	// by the process. Manual positional construction follows it.
	Order uint64

	index []int
	typ   reflect.Type
	err   error
}

// Dependency declares that field is populated by resolving key.
func Dependency(field string, key any) Member {
	m := Member{Field: field, Kind: MemberDependency, Order: nextOrder()}
	k, err := KeyOf(key)
	if err != nil {
		m.err = err
	}
	m.Key = k
	return m
}

// Argument declares that field is populated from a value supplied at
// construction time.
func Argument(field string) Member {
	return Member{Field: field, Kind: MemberArgument, Order: nextOrder()}
}

// ArgumentDefault is like Argument but falls back to def when no value is
// supplied.
func ArgumentDefault(field string, def any) Member {
	return Member{Field: field, Kind: MemberArgument, HasDefault: true, Default: def, Order: nextOrder()}
}

func (m Member) declare(c *Class) error {
	if m.err != nil {
		return m.err
	}

	sf, ok := c.typ.FieldByName(m.Field)
	if !ok {
		return fmt.Errorf("no field %q", m.Field)
	}
	if !sf.IsExported() {
		return fmt.Errorf("field %q is not exported", m.Field)
	}
	if m.HasDefault {
		if _, err := assignValue(m.Default, sf.Type, "default of "+m.Field); err != nil {
			return err
		}
	}

	m.index = sf.Index
	m.typ = sf.Type
	c.addMember(m)
	return nil
}

// Initializer is a function run after the members of a new instance are
// populated.
type Initializer struct {
	Order uint64

	owner reflect.Type
	fn    func(v reflect.Value) error
	path  []int
}

// Init declares fn as an initializer of T. Initializers run after member
// assignment, in declaration order, whether the instance was injected or
// constructed manually. An initializer declared on a parent class receives
// the embedded parent.
func Init[T any](fn func(*T) error) Initializer {
	return Initializer{
		Order: nextOrder(),
		owner: reflect.TypeOf((*T)(nil)).Elem(),
		fn: func(v reflect.Value) error {
			return fn(v.Interface().(*T))
		},
	}
}

func (i Initializer) declare(c *Class) error {
	if i.fn == nil {
		return errors.New("initializer is nil")
	}
	if i.owner != c.typ {
		return fmt.Errorf("initializer of %s declared on %s", formatType(i.owner), formatType(c.typ))
	}
	c.inits = append(c.inits, i)
	return nil
}

type extendsDecl struct {
	parent *Class
}

// Extends makes the class inherit the members and initializers of parent.
// The class struct must embed the parent struct. Members declared by the class
// shadow inherited members of the same field name.
func Extends(parent *Class) Declaration {
	return extendsDecl{parent: parent}
}

func (d extendsDecl) declare(c *Class) error {
	if d.parent == nil {
		return errors.New("parent class is nil")
	}

	path, ok := embeddedPath(c.typ, d.parent.typ)
	if !ok {
		return fmt.Errorf("%s does not embed %s", formatType(c.typ), formatType(d.parent.typ))
	}

	for _, m := range d.parent.members {
		sf, ok := c.typ.FieldByName(m.Field)
		if !ok {
			return fmt.Errorf("inherited field %q is not reachable", m.Field)
		}
		m.index = sf.Index
		m.typ = sf.Type
		c.addMember(m)
	}

	for _, initializer := range d.parent.inits {
		initializer.path = append(slices.Clone(path), initializer.path...)
		c.inits = append(c.inits, initializer)
	}

	c.parent = d.parent
	return nil
}

// Class describes how to build a *T from declared members: a value for every
// Member, then every Initializer.
//
//	var GreeterClass = zuice.MustClass[Greeter](
//	    zuice.Dependency("Greeting", Greeting),
//	    zuice.Dependency("Name", Name),
//	)
//
// Register the class with Bindings.Register so injectors build it for
// zuice.Type[*Greeter]().
type Class struct {
	typ     reflect.Type
	parent  *Class
	members []Member
	inits   []Initializer
}

// NewClass defines a class for the struct type T.
func NewClass[T any](decls ...Declaration) (*Class, error) {
	t := reflect.TypeOf((*T)(nil)).Elem()
	if t.Kind() != reflect.Struct {
		return nil, ContractError{Subject: "class " + formatType(t), Cause: ErrNotAStruct}
	}

	c := &Class{typ: t}

	// Inherited members must be in place before the class's own declarations
	// shadow them.
	ordered := slices.Clone(decls)
	slices.SortStableFunc(ordered, func(a, b Declaration) int {
		_, ae := a.(extendsDecl)
		_, be := b.(extendsDecl)
		switch {
		case ae && !be:
			return -1
		case be && !ae:
			return 1
		}
		return 0
	})

	var errs []error
	for _, d := range ordered {
		if d == nil {
			continue
		}
		if err := d.declare(c); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return nil, ContractError{Subject: "class " + formatType(t), Cause: errors.Join(errs...)}
	}

	slices.SortFunc(c.members, func(a, b Member) int { return compareOrder(a.Order, b.Order) })
	slices.SortFunc(c.inits, func(a, b Initializer) int { return compareOrder(a.Order, b.Order) })

	return c, nil
}

// MustClass is like NewClass but panics on error.
func MustClass[T any](decls ...Declaration) *Class {
	c, err := NewClass[T](decls...)
	if err != nil {
		panic(err)
	}
	return c
}

func (c *Class) addMember(m Member) {
	c.members = slices.DeleteFunc(c.members, func(existing Member) bool {
		return existing.Field == m.Field
	})
	c.members = append(c.members, m)
}

// Type returns the struct type of the class.
func (c *Class) Type() reflect.Type {
	return c.typ
}

// Produces returns *T, the type of the values the class builds.
func (c *Class) Produces() reflect.Type {
	return reflect.PointerTo(c.typ)
}

// Parent returns the class passed to Extends, or nil.
func (c *Class) Parent() *Class {
	return c.parent
}

// Members returns the member list of the class, including inherited members,
// in declaration order.
func (c *Class) Members() *Members {
	return &Members{class: c}
}

// New constructs an instance without an injector. Positional values populate
// the members in declaration order.
func (c *Class) New(positional ...any) (any, error) {
	return c.NewWith(nil, positional...)
}

// NewWith constructs an instance without an injector. Positional values
// populate the members in declaration order, and the remaining members are
// taken from kw by field name.
func (c *Class) NewWith(kw Args, positional ...any) (any, error) {
	if len(positional) > len(c.members) {
		return nil, ArgumentError{
			Target:  c.name(),
			Message: fmt.Sprintf("%s requires %d injected member(s) (%d given)", c.name(), len(c.members), len(positional)),
		}
	}

	remaining := make(Args, len(kw))
	for name, v := range kw {
		remaining[name] = v
	}

	values := make([]any, len(c.members))
	for i, m := range c.members {
		if i < len(positional) {
			if _, dup := remaining[m.Field]; dup {
				return nil, ArgumentError{
					Target:  c.name(),
					Message: fmt.Sprintf("got multiple values for keyword argument '%s'", m.Field),
				}
			}
			values[i] = positional[i]
			continue
		}

		v, ok := remaining[m.Field]
		if !ok {
			return nil, ArgumentError{
				Target:  c.name(),
				Message: fmt.Sprintf("missing keyword argument '%s'", m.Field),
			}
		}
		delete(remaining, m.Field)
		values[i] = v
	}

	if len(remaining) > 0 {
		return nil, ArgumentError{
			Target:  c.name(),
			Message: fmt.Sprintf("unexpected keyword argument '%s'", sortedNames(remaining)[0]),
		}
	}

	return c.build(values)
}

// Construct is the typed form of Class.NewWith.
func Construct[T any](c *Class, kw Args, positional ...any) (*T, error) {
	if c.typ != reflect.TypeOf((*T)(nil)).Elem() {
		return nil, TypeMismatchError{Expected: reflect.TypeOf((*T)(nil)), Actual: c.Produces(), Context: "construct"}
	}

	v, err := c.NewWith(kw, positional...)
	if err != nil {
		return nil, err
	}
	return v.(*T), nil
}

// construct builds an instance in injected mode. Members found in args take
// the supplied value; other dependencies are resolved through injector and
// other arguments take their default.
func (c *Class) construct(injector *Injector, args Args) (any, error) {
	values, err := c.Members().resolve(injector, args)
	if err != nil {
		return nil, err
	}
	return c.build(values)
}

func (c *Class) build(values []any) (any, error) {
	ptr := reflect.New(c.typ)
	elem := ptr.Elem()

	for i, m := range c.members {
		v, err := assignValue(values[i], m.typ, "member "+m.Field)
		if err != nil {
			return nil, err
		}
		elem.FieldByIndex(m.index).Set(v)
	}

	for _, initializer := range c.inits {
		target := ptr
		if len(initializer.path) > 0 {
			target = elem.FieldByIndex(initializer.path).Addr()
		}
		if err := initializer.fn(target); err != nil {
			return nil, err
		}
	}

	return ptr.Interface(), nil
}

func (c *Class) name() string {
	return c.typ.Name()
}

// Members is the declarative member list of a class, usable as an
// ArgumentResolver: BuildArgs resolves every member by field name.
type Members struct {
	class *Class
}

// List returns the members in declaration order.
func (m *Members) List() []Member {
	return slices.Clone(m.class.members)
}

// BuildArgs implements ArgumentResolver. Dependencies are resolved through
// injector; arguments take their default.
func (m *Members) BuildArgs(injector *Injector) (Arguments, error) {
	values, err := m.resolve(injector, nil)
	if err != nil {
		return Arguments{}, err
	}

	args := Arguments{Named: make(map[string]any, len(values))}
	for i, member := range m.class.members {
		args.Named[member.Field] = values[i]
	}
	return args, nil
}

func (m *Members) resolve(injector *Injector, supplied Args) ([]any, error) {
	c := m.class

	for name := range supplied {
		if !slices.ContainsFunc(c.members, func(member Member) bool { return member.Field == name }) {
			return nil, ArgumentError{
				Target:  c.name(),
				Message: fmt.Sprintf("unexpected keyword argument '%s'", name),
			}
		}
	}

	values := make([]any, len(c.members))
	for i, member := range c.members {
		if v, ok := supplied[member.Field]; ok {
			values[i] = v
			continue
		}

		switch member.Kind {
		case MemberDependency:
			v, err := injector.get(member.Key)
			if err != nil {
				return nil, err
			}
			values[i] = v
		case MemberArgument:
			if !member.HasDefault {
				return nil, ArgumentError{
					Target:  c.name(),
					Message: fmt.Sprintf("missing keyword argument '%s'", member.Field),
				}
			}
			values[i] = member.Default
		}
	}

	return values, nil
}

// embeddedPath finds the field index path from t to an embedded struct of
// type target, following anonymous fields only.
func embeddedPath(t, target reflect.Type) ([]int, bool) {
	for i := range t.NumField() {
		sf := t.Field(i)
		if !sf.Anonymous {
			continue
		}
		if sf.Type == target {
			return []int{i}, true
		}
		if sf.Type.Kind() == reflect.Struct {
			if rest, ok := embeddedPath(sf.Type, target); ok {
				return append([]int{i}, rest...), true
			}
		}
	}
	return nil, false
}

func compareOrder(a, b uint64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}
