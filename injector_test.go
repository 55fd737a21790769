package zuice_test

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/mwilliamson/zuice"
)

func TestInjector_Get(t *testing.T) {
	t.Run("returns the instance bound to a name", func(t *testing.T) {
		t.Parallel()

		apple := &Apple{}
		bindings := zuice.NewBindings()
		bindings.Bind("apple").ToInstance(apple)

		injector := zuice.MustInjector(bindings)

		got, err := injector.Get("apple")
		require.NoError(t, err)
		assert.Same(t, apple, got)
	})

	t.Run("calls providers on every resolution", func(t *testing.T) {
		t.Parallel()

		source := &counterSource{}
		bindings := zuice.NewBindings()
		bindings.Bind(zuice.Type[*Counter]()).ToProvider(source.provider())

		injector := zuice.MustInjector(bindings)

		first := zuice.MustResolve[*Counter](injector)
		second := zuice.MustResolve[*Counter](injector)

		assert.Equal(t, 1, first.X)
		assert.Equal(t, 2, second.X)
	})

	t.Run("resolves keys bound to other keys", func(t *testing.T) {
		t.Parallel()

		bindings := zuice.NewBindings()
		bindings.Bind("greeting").ToInstance("Hello")
		bindings.Bind(Greeting).ToName("greeting")

		got, err := zuice.Get[string](zuice.MustInjector(bindings), Greeting)
		require.NoError(t, err)
		assert.Equal(t, "Hello", got)
	})

	t.Run("fails for unbound names", func(t *testing.T) {
		t.Parallel()

		_, err := zuice.MustInjector(nil).Get("apple")
		assert.ErrorIs(t, err, zuice.ErrNoSuchBinding)

		var missing zuice.NoSuchBindingError
		require.ErrorAs(t, err, &missing)
		assert.Equal(t, zuice.NameKey("apple"), missing.Key)
	})

	t.Run("rejects values that are not keys", func(t *testing.T) {
		t.Parallel()

		_, err := zuice.MustInjector(nil).Get(42)
		assert.ErrorIs(t, err, zuice.ErrInvalidBinding)
	})

	t.Run("resolves itself", func(t *testing.T) {
		t.Parallel()

		injector := zuice.MustInjector(nil)

		byType, err := injector.Get(zuice.Type[*zuice.Injector]())
		require.NoError(t, err)
		assert.Same(t, injector, byType)

		byName, err := injector.Get("injector")
		require.NoError(t, err)
		assert.Same(t, injector, byName)
	})

	t.Run("bindings changed after creating the injector are ignored", func(t *testing.T) {
		t.Parallel()

		bindings := zuice.NewBindings()
		bindings.Bind("apple").ToInstance("original")

		injector := zuice.MustInjector(bindings)

		bindings.Bind("banana").ToInstance("added")
		require.NoError(t, bindings.Register(GreeterClass))

		got, err := injector.Get("apple")
		require.NoError(t, err)
		assert.Equal(t, "original", got)

		_, err = injector.Get("banana")
		assert.ErrorIs(t, err, zuice.ErrNoSuchBinding)

		_, err = injector.GetWith(zuice.Type[*Greeter](), zuice.Values{Name: "Bob"})
		require.NoError(t, err, "without the class, *Greeter is built as an empty struct")
	})

	t.Run("type mismatches are reported by the generic helpers", func(t *testing.T) {
		t.Parallel()

		bindings := zuice.NewBindings()
		bindings.Bind("apple").ToInstance("not an int")

		_, err := zuice.Get[int](zuice.MustInjector(bindings), "apple")

		var mismatch zuice.TypeMismatchError
		assert.ErrorAs(t, err, &mismatch)
	})

	t.Run("nil values assert to the zero value", func(t *testing.T) {
		t.Parallel()

		bindings := zuice.NewBindings()
		bindings.Bind("apple").ToInstance(nil)

		got, err := zuice.Get[*Apple](zuice.MustInjector(bindings), "apple")
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("GetType only accepts type keys", func(t *testing.T) {
		t.Parallel()

		injector := zuice.MustInjector(nil)

		_, err := injector.GetType("apple")
		assert.ErrorIs(t, err, zuice.ErrNotAType)

		v, err := injector.GetType(zuice.Type[*Apple]())
		require.NoError(t, err)
		assert.IsType(t, &Apple{}, v)
	})
}

func TestInjector_Singleton(t *testing.T) {
	t.Run("constructs a bound type once", func(t *testing.T) {
		t.Parallel()

		source := &counterSource{}
		bindings := zuice.NewBindings()
		require.NoError(t, bindings.Register(zuice.MustFunction(source.newCounter)))
		bindings.Bind(zuice.Type[*Counter]()).Singleton()

		injector := zuice.MustInjector(bindings)

		first := zuice.MustResolve[*Counter](injector)
		second := zuice.MustResolve[*Counter](injector)

		assert.Equal(t, 1, first.X)
		assert.Equal(t, 1, second.X)
		assert.Same(t, first, second)
	})

	t.Run("memoizes providers", func(t *testing.T) {
		t.Parallel()

		source := &counterSource{}
		bindings := zuice.NewBindings()
		bindings.Bind("counter").ToProvider(source.provider()).Singleton()

		injector := zuice.MustInjector(bindings)

		first, err := injector.Get("counter")
		require.NoError(t, err)
		second, err := injector.Get("counter")
		require.NoError(t, err)

		assert.Same(t, first, second)
		assert.Equal(t, 1, source.count())
	})

	t.Run("singletons are shared by views with scope values", func(t *testing.T) {
		t.Parallel()

		source := &counterSource{}
		bindings := zuice.NewBindings()
		bindings.Bind("counter").ToProvider(source.provider()).Singleton()

		injector := zuice.MustInjector(bindings)

		bob, err := injector.GetWith("counter", zuice.Values{Name: "Bob"})
		require.NoError(t, err)
		jim, err := injector.GetWith("counter", zuice.Values{Name: "Jim"})
		require.NoError(t, err)

		assert.Same(t, bob, jim)
	})

	t.Run("singleton providers cannot see scope values", func(t *testing.T) {
		t.Parallel()

		bindings := zuice.NewBindings()
		bindings.Bind("greeting").ToProvider(func(injector *zuice.Injector) (any, error) {
			return injector.Get(Name)
		}).Singleton()

		_, err := zuice.MustInjector(bindings).GetWith("greeting", zuice.Values{Name: "Bob"})
		assert.ErrorIs(t, err, zuice.ErrNoSuchBinding)
	})

	t.Run("singleton bindings of names need a provider", func(t *testing.T) {
		t.Parallel()

		bindings := zuice.NewBindings()
		bindings.Bind("counter").Singleton()

		_, err := zuice.NewInjector(bindings)
		assert.ErrorIs(t, err, zuice.ErrIncompleteBinding)
	})

	t.Run("concurrent resolutions agree on one instance", func(t *testing.T) {
		t.Parallel()

		source := &counterSource{}
		bindings := zuice.NewBindings()
		bindings.Bind(zuice.Type[*Counter]()).ToProvider(source.provider()).Singleton()

		injector := zuice.MustInjector(bindings)

		const workers = 50
		results := make([]*Counter, workers)

		var wg sync.WaitGroup
		for i := range workers {
			wg.Add(1)
			go func() {
				defer wg.Done()
				results[i] = zuice.MustResolve[*Counter](injector)
			}()
		}
		wg.Wait()

		for _, r := range results {
			assert.Same(t, results[0], r)
		}
	})
}

func TestInjector_Scopes(t *testing.T) {
	newInjector := func(source *counterSource) *zuice.Injector {
		bindings := zuice.NewBindings()
		bindings.Scope(Name).Bind(zuice.Type[*Counter]()).ToProvider(source.provider())
		return zuice.MustInjector(bindings)
	}

	t.Run("caches one value per scope value", func(t *testing.T) {
		t.Parallel()

		injector := newInjector(&counterSource{})
		get := func(name string) int {
			counter, err := zuice.GetWith[*Counter](injector, zuice.Type[*Counter](), zuice.Values{Name: name})
			require.NoError(t, err)
			return counter.X
		}

		assert.Equal(t, 1, get("Bob"))
		assert.Equal(t, 2, get("Jim"))
		assert.Equal(t, 1, get("Bob"))
		assert.Equal(t, 2, get("Jim"))
	})

	t.Run("unrelated scope values share the cached value", func(t *testing.T) {
		t.Parallel()

		place := zuice.NewToken("Place")
		injector := newInjector(&counterSource{})

		paris, err := zuice.GetWith[*Counter](injector, zuice.Type[*Counter](), zuice.Values{Name: "Bob", place: "Paris"})
		require.NoError(t, err)
		rome, err := zuice.GetWith[*Counter](injector, zuice.Type[*Counter](), zuice.Values{Name: "Bob", place: "Rome"})
		require.NoError(t, err)

		assert.Same(t, paris, rome)
	})

	t.Run("scope values holding slices match themselves", func(t *testing.T) {
		t.Parallel()

		type headers struct {
			Path   string
			Values []string
		}
		key := zuice.NewToken("Headers")

		source := &counterSource{}
		bindings := zuice.NewBindings()
		bindings.Scope(key).Bind(zuice.Type[*Counter]()).ToProvider(source.provider())
		injector := zuice.MustInjector(bindings)

		got, err := injector.GetWith(key, zuice.Values{key: headers{Path: "/a", Values: []string{"x"}}})
		require.NoError(t, err)
		assert.Equal(t, headers{Path: "/a", Values: []string{"x"}}, got)

		get := func(h headers) int {
			counter, err := zuice.GetWith[*Counter](injector, zuice.Type[*Counter](), zuice.Values{key: h})
			require.NoError(t, err)
			return counter.X
		}

		assert.Equal(t, 1, get(headers{Path: "/a", Values: []string{"x"}}))
		assert.Equal(t, 1, get(headers{Path: "/a", Values: []string{"x"}}))
		assert.Equal(t, 2, get(headers{Path: "/a", Values: []string{"y"}}))
	})

	t.Run("fails when a scope key is missing", func(t *testing.T) {
		t.Parallel()

		_, err := newInjector(&counterSource{}).Get(zuice.Type[*Counter]())
		assert.ErrorIs(t, err, zuice.ErrNoSuchBinding)
	})

	t.Run("scoped providers see the values of their scope", func(t *testing.T) {
		t.Parallel()

		bindings := zuice.NewBindings()
		bindings.Bind("shout").ToProvider(func(injector *zuice.Injector) (any, error) {
			name, err := zuice.Get[string](injector, Name)
			return name + "!", err
		}).InScope(Name)

		got, err := zuice.GetWith[string](zuice.MustInjector(bindings), "shout", zuice.Values{Name: "Bob"})
		require.NoError(t, err)
		assert.Equal(t, "Bob!", got)
	})

	t.Run("GetWith does not change the receiver", func(t *testing.T) {
		t.Parallel()

		injector := zuice.MustInjector(nil)

		got, err := injector.GetWith(Name, zuice.ValuesOf(Name.Bind("Bob")))
		require.NoError(t, err)
		assert.Equal(t, "Bob", got)

		_, err = injector.Get(Name)
		assert.ErrorIs(t, err, zuice.ErrNoSuchBinding)
	})

	t.Run("With returns a view sharing the cache", func(t *testing.T) {
		t.Parallel()

		source := &counterSource{}
		injector := newInjector(source)
		bob := injector.With(zuice.Values{Name: "Bob"})

		assert.Equal(t, injector.ID(), bob.ID())
		assert.Same(t, injector, injector.With(nil))

		first := zuice.MustResolve[*Counter](bob)
		second, err := zuice.GetWith[*Counter](injector, zuice.Type[*Counter](), zuice.Values{Name: "Bob"})
		require.NoError(t, err)

		assert.Same(t, first, second)
		assert.Equal(t, zuice.Values{Name: "Bob"}, bob.Scope().Signature())
	})
}

func TestInjector_Construction(t *testing.T) {
	t.Run("builds classes with values in scope", func(t *testing.T) {
		t.Parallel()

		injector := zuice.MustInjector(greeterBindings())

		greeter, err := zuice.GetWith[*Greeter](injector, zuice.Type[*Greeter](), zuice.Values{Name: "Bob"})
		require.NoError(t, err)
		assert.Equal(t, "Hello Bob", greeter.Hello())
	})

	t.Run("registered pointer classes also build the struct", func(t *testing.T) {
		t.Parallel()

		injector := zuice.MustInjector(greeterBindings())

		greeter, err := zuice.GetWith[Greeter](injector, zuice.Type[Greeter](), zuice.Values{Name: "Bob"})
		require.NoError(t, err)
		assert.Equal(t, "Hello Bob", greeter.Hello())
	})

	t.Run("builds structs without a constructor as zero values", func(t *testing.T) {
		t.Parallel()

		injector := zuice.MustInjector(nil)

		apple, err := zuice.Resolve[*Apple](injector)
		require.NoError(t, err)
		assert.Equal(t, &Apple{}, apple)

		banana, err := zuice.Resolve[Banana](injector)
		require.NoError(t, err)
		assert.Equal(t, Banana{}, banana)
	})

	t.Run("fails for types it cannot build", func(t *testing.T) {
		t.Parallel()

		_, err := zuice.Resolve[int](zuice.MustInjector(nil))
		assert.ErrorIs(t, err, zuice.ErrNoSuchBinding)
	})

	t.Run("fails when a constructor argument is unbound", func(t *testing.T) {
		t.Parallel()

		bindings := zuice.NewBindings()
		require.NoError(t, bindings.Register(zuice.MustFunction(NewDonkey, zuice.Params(zuice.Param("legs")))))

		_, err := zuice.Resolve[*Donkey](zuice.MustInjector(bindings))
		assert.ErrorIs(t, err, zuice.ErrNoSuchBinding)

		var missing zuice.NoSuchBindingError
		require.ErrorAs(t, err, &missing)
		assert.Equal(t, zuice.NameKey("legs"), missing.Key)
	})

	t.Run("resolves constructor arguments from keys and defaults", func(t *testing.T) {
		t.Parallel()

		apple, banana := &Apple{}, &Banana{}

		bindings := zuice.NewBindings()
		bindings.Bind(zuice.Type[*Apple]()).ToInstance(apple)
		bindings.Bind("banana").ToInstance(banana)
		require.NoError(t, bindings.Register(zuice.MustFunction(NewBasket,
			zuice.Params(zuice.Param("apple"), zuice.Param("banana"), zuice.ParamDefault("foo", 10)),
			zuice.InjectWith(zuice.Type[*Apple](), "banana"),
		)))

		basket, err := zuice.Resolve[*Basket](zuice.MustInjector(bindings))
		require.NoError(t, err)
		assert.Same(t, apple, basket.Apple)
		assert.Same(t, banana, basket.Banana)
		assert.Equal(t, 10, basket.Foo)
	})

	t.Run("explicit bindings take priority over construction", func(t *testing.T) {
		t.Parallel()

		apple := &Apple{Colour: "green"}
		bindings := zuice.NewBindings()
		bindings.Bind(zuice.Type[*Apple]()).ToInstance(apple)
		require.NoError(t, bindings.Register(zuice.MustFunction(func() *Apple { return &Apple{Colour: "red"} })))

		got, err := zuice.Resolve[*Apple](zuice.MustInjector(bindings))
		require.NoError(t, err)
		assert.Same(t, apple, got)
	})

	t.Run("constructed values are not cached", func(t *testing.T) {
		t.Parallel()

		injector := zuice.MustInjector(nil)

		assert.NotSame(t, zuice.MustResolve[*Apple](injector), zuice.MustResolve[*Apple](injector))
	})

	t.Run("Construct uses supplied arguments", func(t *testing.T) {
		t.Parallel()

		injector := zuice.MustInjector(greeterBindings())

		v, err := injector.Construct(GreeterClass, zuice.Args{"Name": "Jim"})
		require.NoError(t, err)
		assert.Equal(t, "Hello Jim", v.(*Greeter).Hello())

		_, err = injector.Construct(GreeterClass, zuice.Args{"Name": "Jim", "Age": 3})
		assert.ErrorIs(t, err, zuice.ErrInvalidArguments)

		_, err = injector.Construct(nil, nil)
		assert.ErrorIs(t, err, zuice.ErrNotAStruct)
	})
}

func TestInjector_Factory(t *testing.T) {
	t.Parallel()

	injector := zuice.MustInjector(greeterBindings())

	factory, err := zuice.Get[zuice.Factory](injector, zuice.FactoryOf(zuice.Type[*Greeter]()))
	require.NoError(t, err)

	bob, err := factory(zuice.Values{Name: "Bob"})
	require.NoError(t, err)
	jim, err := factory(zuice.ValuesOf(Name.Bind("Jim")))
	require.NoError(t, err)

	assert.Equal(t, "Hello Bob", bob.(*Greeter).Hello())
	assert.Equal(t, "Hello Jim", jim.(*Greeter).Hello())

	_, err = factory(nil)
	assert.ErrorIs(t, err, zuice.ErrNoSuchBinding)
}

func TestInjector_Parent(t *testing.T) {
	t.Run("delegates unknown keys to the parent", func(t *testing.T) {
		t.Parallel()

		bindings := zuice.NewBindings()
		bindings.Bind("apple").ToInstance("from parent")
		parent := zuice.MustInjector(bindings)

		child := zuice.MustInjector(nil, zuice.WithParent(parent))

		got, err := child.Get("apple")
		require.NoError(t, err)
		assert.Equal(t, "from parent", got)
		assert.Same(t, parent, child.Parent())
		assert.NotEqual(t, parent.ID(), child.ID())
	})

	t.Run("child bindings shadow the parent", func(t *testing.T) {
		t.Parallel()

		parentBindings := zuice.NewBindings()
		parentBindings.Bind("apple").ToInstance("from parent")

		childBindings := zuice.NewBindings()
		childBindings.Bind("apple").ToInstance("from child")

		child := zuice.MustInjector(childBindings, zuice.WithParent(zuice.MustInjector(parentBindings)))

		got, err := child.Get("apple")
		require.NoError(t, err)
		assert.Equal(t, "from child", got)
	})

	t.Run("parent bindings take priority over construction in the child", func(t *testing.T) {
		t.Parallel()

		apple := &Apple{Colour: "green"}
		bindings := zuice.NewBindings()
		bindings.Bind(zuice.Type[*Apple]()).ToInstance(apple)

		child := zuice.MustInjector(nil, zuice.WithParent(zuice.MustInjector(bindings)))

		got, err := zuice.Resolve[*Apple](child)
		require.NoError(t, err)
		assert.Same(t, apple, got)
	})

	t.Run("values in the parent's scope take priority over construction in the child", func(t *testing.T) {
		t.Parallel()

		apple := &Apple{Colour: "green"}
		parent := zuice.MustInjector(nil).With(zuice.Values{zuice.Type[*Apple](): apple})
		child := zuice.MustInjector(nil, zuice.WithParent(parent))

		got, err := zuice.Resolve[*Apple](child)
		require.NoError(t, err)
		assert.Same(t, apple, got)
	})

	t.Run("classes registered in the parent are built with the child's bindings", func(t *testing.T) {
		t.Parallel()

		parent := zuice.MustInjector(greeterBindings())

		childBindings := zuice.NewBindings()
		childBindings.Bind(Name).ToInstance("Alice")
		child := zuice.MustInjector(childBindings, zuice.WithParent(parent))

		greeter, err := zuice.Resolve[*Greeter](child)
		require.NoError(t, err)
		assert.Equal(t, "Hello Alice", greeter.Hello())
	})
}

// resolutionLog records the names of providers in the order they run.
type resolutionLog struct {
	mu    sync.Mutex
	names []string
}

func (l *resolutionLog) bindings(names ...string) *zuice.Bindings {
	bindings := zuice.NewBindings()
	for _, name := range names {
		bindings.Bind(name).ToProvider(func(*zuice.Injector) (any, error) {
			l.mu.Lock()
			defer l.mu.Unlock()
			l.names = append(l.names, name)
			return name, nil
		})
	}
	return bindings
}

func (l *resolutionLog) order() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.names...)
}

func TestInjector_DependencyOrder(t *testing.T) {
	join := func(c, a, b string) string { return c + a + b }

	t.Run("parameters declared by name resolve in declaration order", func(t *testing.T) {
		t.Parallel()

		log := &resolutionLog{}
		injector := zuice.MustInjector(log.bindings("a", "b", "c"))

		fn := zuice.MustFunction(join, zuice.Params(zuice.Param("c"), zuice.Param("a"), zuice.Param("b")))
		got, err := injector.Call(fn)
		require.NoError(t, err)
		assert.Equal(t, "cab", got)
		assert.Equal(t, []string{"c", "a", "b"}, log.order())
	})

	t.Run("parameters with keys resolve in declaration order", func(t *testing.T) {
		t.Parallel()

		log := &resolutionLog{}
		injector := zuice.MustInjector(log.bindings("a", "b", "c"))

		fn := zuice.MustFunction(join, zuice.InjectWith("c", "a", "b"))
		got, err := injector.Call(fn)
		require.NoError(t, err)
		assert.Equal(t, "cab", got)
		assert.Equal(t, []string{"c", "a", "b"}, log.order())
	})

	t.Run("class members resolve in declaration order", func(t *testing.T) {
		t.Parallel()

		type letters struct {
			A, B, C string
		}
		class := zuice.MustClass[letters](
			zuice.Dependency("C", "c"),
			zuice.Dependency("A", "a"),
			zuice.Dependency("B", "b"),
		)

		log := &resolutionLog{}
		injector := zuice.MustInjector(log.bindings("a", "b", "c"))

		got, err := injector.Construct(class, nil)
		require.NoError(t, err)
		assert.Equal(t, &letters{A: "a", B: "b", C: "c"}, got)
		assert.Equal(t, []string{"c", "a", "b"}, log.order())
	})
}

func TestInjector_Errors(t *testing.T) {
	t.Run("provider errors are wrapped", func(t *testing.T) {
		t.Parallel()

		boom := errors.New("boom")
		bindings := zuice.NewBindings()
		bindings.Bind("apple").ToProvider(func(*zuice.Injector) (any, error) {
			return nil, boom
		})

		_, err := zuice.MustInjector(bindings).Get("apple")
		assert.ErrorIs(t, err, boom)
		assert.ErrorIs(t, err, zuice.ErrConstructor)

		var constructorErr zuice.ConstructorError
		require.ErrorAs(t, err, &constructorErr)
		assert.Equal(t, zuice.NameKey("apple"), constructorErr.Key)
	})

	t.Run("missing dependencies are not wrapped", func(t *testing.T) {
		t.Parallel()

		bindings := zuice.NewBindings()
		bindings.Bind("apple").ToProvider(func(injector *zuice.Injector) (any, error) {
			return injector.Get("banana")
		})

		_, err := zuice.MustInjector(bindings).Get("apple")

		var missing zuice.NoSuchBindingError
		require.ErrorAs(t, err, &missing)
		assert.Equal(t, zuice.NameKey("banana"), missing.Key)

		var constructorErr zuice.ConstructorError
		assert.False(t, errors.As(err, &constructorErr))
	})

	t.Run("provider panics are recovered", func(t *testing.T) {
		t.Parallel()

		bindings := zuice.NewBindings()
		bindings.Bind("apple").ToProvider(func(*zuice.Injector) (any, error) {
			panic("rotten")
		})

		_, err := zuice.MustInjector(bindings).Get("apple")
		assert.ErrorIs(t, err, zuice.ErrConstructor)

		var panicErr zuice.ConstructorPanicError
		require.ErrorAs(t, err, &panicErr)
		assert.Equal(t, "rotten", panicErr.Panic)
		assert.NotEmpty(t, panicErr.Stack)
	})

	t.Run("constructor panics are recovered", func(t *testing.T) {
		t.Parallel()

		bindings := zuice.NewBindings()
		require.NoError(t, bindings.Register(zuice.MustFunction(func() *Apple { panic("rotten") })))

		_, err := zuice.Resolve[*Apple](zuice.MustInjector(bindings))

		var panicErr zuice.ConstructorPanicError
		assert.ErrorAs(t, err, &panicErr)
	})
}

func TestInjector_Logging(t *testing.T) {
	t.Run("traces resolutions at debug level", func(t *testing.T) {
		t.Parallel()

		core, logs := observer.New(zapcore.DebugLevel)

		bindings := zuice.NewBindings()
		bindings.Bind("apple").ToInstance(1)

		injector := zuice.MustInjector(bindings, zuice.WithLogger(zap.New(core)))
		_, err := injector.Get("apple")
		require.NoError(t, err)

		entries := logs.FilterMessage("resolved").All()
		require.Len(t, entries, 1)

		fields := entries[0].ContextMap()
		assert.Equal(t, `"apple"`, fields["key"])
		assert.Equal(t, "binding", fields["source"])
		assert.Equal(t, injector.ID(), fields["injector"])
	})

	t.Run("children inherit the parent's logger", func(t *testing.T) {
		t.Parallel()

		core, logs := observer.New(zapcore.DebugLevel)
		parent := zuice.MustInjector(nil, zuice.WithLogger(zap.New(core)))
		child := zuice.MustInjector(nil, zuice.WithParent(parent))

		_, err := zuice.Resolve[*Apple](child)
		require.NoError(t, err)

		assert.Equal(t, 1, logs.FilterField(zap.String("source", "constructor")).Len())
	})

	t.Run("logs nothing above debug", func(t *testing.T) {
		t.Parallel()

		core, logs := observer.New(zapcore.InfoLevel)
		injector := zuice.MustInjector(nil, zuice.WithLogger(zap.New(core)))

		_, err := zuice.Resolve[*Apple](injector)
		require.NoError(t, err)
		assert.Zero(t, logs.Len())
	})
}
