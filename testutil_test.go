package zuice_test

import (
	"sync"

	"github.com/mwilliamson/zuice"
)

// ============================================================================
// Shared Test Types
// ============================================================================

var (
	Greeting = zuice.NewToken("Greeting")
	Name     = zuice.NewToken("Name")
)

// Greeter is built from two token dependencies.
type Greeter struct {
	Greeting string
	Name     string
}

func (g *Greeter) Hello() string {
	return g.Greeting + " " + g.Name
}

var GreeterClass = zuice.MustClass[Greeter](
	zuice.Dependency("Greeting", Greeting),
	zuice.Dependency("Name", Name),
)

type Apple struct {
	Colour string
}

type Banana struct {
	Ripe bool
}

// Basket is built by a constructor function with a defaulted parameter.
type Basket struct {
	Apple  *Apple
	Banana *Banana
	Foo    int
}

func NewBasket(apple *Apple, banana *Banana, foo int) *Basket {
	return &Basket{Apple: apple, Banana: banana, Foo: foo}
}

// Donkey cannot be built unless legs is bound.
type Donkey struct {
	Legs int
}

func NewDonkey(legs int) *Donkey {
	return &Donkey{Legs: legs}
}

// ============================================================================
// Counters
// ============================================================================

// Counter records the value of its source when it was built.
type Counter struct {
	X int
}

// counterSource numbers the counters it builds, starting at 1.
type counterSource struct {
	mu sync.Mutex
	n  int
}

func (s *counterSource) next() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.n++
	return s.n
}

func (s *counterSource) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.n
}

func (s *counterSource) newCounter() *Counter {
	return &Counter{X: s.next()}
}

func (s *counterSource) provider() zuice.Provider {
	return func(*zuice.Injector) (any, error) {
		return s.newCounter(), nil
	}
}

// ============================================================================
// Helpers
// ============================================================================

func greeterBindings() *zuice.Bindings {
	bindings := zuice.NewBindings()
	bindings.Bind(Greeting).ToInstance("Hello")
	if err := bindings.Register(GreeterClass); err != nil {
		panic(err)
	}
	return bindings
}

func mustKey(key any) zuice.Key {
	k, err := zuice.KeyOf(key)
	if err != nil {
		panic(err)
	}
	return k
}
