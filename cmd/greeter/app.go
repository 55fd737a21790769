package main

import (
	"net/http"

	gochi "github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/mwilliamson/zuice"
	zuicechi "github.com/mwilliamson/zuice/chi"
	"github.com/mwilliamson/zuice/config"
)

var (
	// Greeting is the greeting word, bound to the configured "greeting".
	Greeting = zuice.NewToken("Greeting")

	// Name is the person being greeted. It is only ever supplied per call.
	Name = zuice.NewToken("Name")
)

// Config is the greeter configuration, read from an INI file, .env files and
// the environment.
type Config struct {
	Greeting string `ini:"greeting" env:"GREETER_GREETING" inject:"greeting"`
	Addr     string `ini:"addr" env:"GREETER_ADDR"`
}

func defaultConfig() Config {
	return Config{Greeting: "Hello", Addr: ":8080"}
}

// Greeter greets one person.
type Greeter struct {
	Greeting string
	Name     string
}

var greeterClass = zuice.MustClass[Greeter](
	zuice.Dependency("Greeting", Greeting),
	zuice.Dependency("Name", Name),
)

// Hello returns the greeting.
func (g *Greeter) Hello() string {
	return g.Greeting + " " + g.Name
}

type greetView struct{}

func (v greetView) Responder() any {
	return zuice.MustFunction(v.respond, zuice.InjectWith(zuice.Type[*zuice.Injector](), "name"))
}

func (greetView) respond(injector *zuice.Injector, name string) (zuicechi.Response, error) {
	greeter, err := zuice.GetWith[*Greeter](injector, zuice.Type[*Greeter](), zuice.ValuesOf(Name.Bind(name)))
	if err != nil {
		return nil, err
	}
	return zuicechi.JSON(http.StatusOK, map[string]string{"message": greeter.Hello()}), nil
}

// newBindings wires the application.
func newBindings(cfg *Config) (*zuice.Bindings, error) {
	bindings := zuice.NewBindings()

	err := bindings.Install(zuice.NewModule("greeter",
		config.Module(cfg),
		zuice.BindKey(Greeting, "greeting"),
		zuice.Register(greeterClass),
	))
	if err != nil {
		return nil, err
	}

	return bindings, nil
}

// greet resolves a Greeter for name.
func greet(bindings *zuice.Bindings, logger *zap.Logger, name string) (string, error) {
	injector, err := zuice.NewInjector(bindings, zuice.WithLogger(logger))
	if err != nil {
		return "", err
	}

	greeter, err := zuice.GetWith[*Greeter](injector, zuice.Type[*Greeter](), zuice.Values{Name: name})
	if err != nil {
		return "", err
	}
	return greeter.Hello(), nil
}

// newRouter serves the greeter over HTTP.
func newRouter(bindings *zuice.Bindings, logger *zap.Logger) (http.Handler, error) {
	respondWith, err := zuicechi.RespondWith(bindings,
		zuicechi.WithLogger(logger),
		zuicechi.WithPanicRecovery(true),
	)
	if err != nil {
		return nil, err
	}

	r := gochi.NewRouter()
	r.Get("/greet/{name}", respondWith.View(zuice.Type[greetView]()))
	return r, nil
}
