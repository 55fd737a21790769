package zuice

import (
	"fmt"
	"reflect"

	"github.com/google/uuid"
)

// Kind identifies the variant of a Key.
type Kind int

const (
	// KindName is a plain string key, only resolvable through an explicit binding.
	KindName Kind = iota

	// KindType is a Go type key. It can be bound explicitly or constructed reflectively.
	KindType

	// KindToken is an explicitly minted unique key.
	KindToken

	// KindFactory denotes a deferred factory for another key.
	KindFactory
)

// String returns the human-readable name of the kind.
func (k Kind) String() string {
	switch k {
	case KindName:
		return "name"
	case KindType:
		return "type"
	case KindToken:
		return "token"
	case KindFactory:
		return "factory"
	default:
		return "unknown"
	}
}

// Key identifies a bindable, resolvable slot.
//
// The set of implementations is closed: NameKey, TypeKey, *Token and the
// keys returned by FactoryOf. All of them are comparable and can be used as
// map keys.
type Key interface {
	fmt.Stringer

	// Kind reports which variant the key is.
	Kind() Kind

	isKey()
}

var (
	_ Key = NameKey("")
	_ Key = TypeKey{}
	_ Key = (*Token)(nil)
	_ Key = factoryKey{}
)

// NameKey is an opaque string key.
type NameKey string

func (NameKey) Kind() Kind       { return KindName }
func (k NameKey) String() string { return fmt.Sprintf("%q", string(k)) }
func (NameKey) isKey()           {}

// TypeKey identifies a Go type.
type TypeKey struct {
	t reflect.Type
}

// Type returns the key for the type T.
//
//	zuice.Type[*Database]()
//	zuice.Type[Logger]() // interface types work as well
func Type[T any]() TypeKey {
	return TypeKey{t: reflect.TypeOf((*T)(nil)).Elem()}
}

// TypeOf returns the key for an already reflected type.
func TypeOf(t reflect.Type) TypeKey {
	return TypeKey{t: t}
}

// Type returns the underlying reflected type.
func (k TypeKey) Type() reflect.Type { return k.t }

func (TypeKey) Kind() Kind { return KindType }

func (k TypeKey) String() string { return formatType(k.t) }

func (TypeKey) isKey() {}

// Token is a unique key minted by NewToken. Two tokens are equal only if they
// are the same token, regardless of their names.
type Token struct {
	name string
	id   uuid.UUID
}

// NewToken mints a new unique key. The name is only used for diagnostics.
//
//	var Name = zuice.NewToken("Name")
func NewToken(name string) *Token {
	return &Token{name: name, id: uuid.New()}
}

// Name returns the name the token was minted with.
func (t *Token) Name() string { return t.name }

// ID returns the unique identifier of the token.
func (t *Token) ID() uuid.UUID { return t.id }

func (*Token) Kind() Kind { return KindToken }

func (t *Token) String() string {
	if t == nil {
		return "<nil token>"
	}
	return "token " + t.name
}

func (*Token) isKey() {}

// Bind pairs the token with a value, for use with ValuesOf.
//
//	injector.GetWith(zuice.Type[*Greeter](), zuice.ValuesOf(Name.Bind("Bob")))
func (t *Token) Bind(value any) BoundValue {
	return BoundValue{Key: t, Value: value}
}

// factoryKey denotes a deferred factory for target.
type factoryKey struct {
	target Key
}

// FactoryOf returns a key that resolves to a Factory for key. Calling the
// factory with a set of values resolves key with those values in scope.
//
//	factory, _ := zuice.Get[zuice.Factory](injector, zuice.FactoryOf(zuice.Type[*Greeter]()))
//	greeter, _ := factory(zuice.Values{Name: "Bob"})
func FactoryOf(key any) Key {
	k, err := KeyOf(key)
	if err != nil {
		panic(err)
	}
	return factoryKey{target: k}
}

func (factoryKey) Kind() Kind { return KindFactory }

func (k factoryKey) String() string { return "factory(" + k.target.String() + ")" }

func (factoryKey) isKey() {}

// Factory builds values for a key on demand, with values put in scope for the
// duration of the resolution.
type Factory func(values Values) (any, error)

// Values maps keys to the values they take in a scope.
type Values map[Key]any

// BoundValue is a single (key, value) pair.
type BoundValue struct {
	Key   Key
	Value any
}

// ValuesOf collects bound values into Values. Later pairs override earlier
// pairs for the same key.
func ValuesOf(values ...BoundValue) Values {
	out := make(Values, len(values))
	for _, v := range values {
		out[v.Key] = v.Value
	}
	return out
}

// KeyOf normalizes key into a Key. Strings become name keys and reflected
// types become type keys.
func KeyOf(key any) (Key, error) {
	switch k := key.(type) {
	case nil:
		return nil, InvalidBindingError{Key: key}
	case TypeKey:
		if k.t == nil {
			return nil, InvalidBindingError{Key: key}
		}
		return k, nil
	case *Token:
		if k == nil {
			return nil, InvalidBindingError{Key: key}
		}
		return k, nil
	case Key:
		return k, nil
	case string:
		return NameKey(k), nil
	case reflect.Type:
		return TypeKey{t: k}, nil
	default:
		return nil, InvalidBindingError{Key: key}
	}
}

// injectorKey resolves to the Injector doing the resolution.
var injectorKey = Type[*Injector]()
