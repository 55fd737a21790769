// Package chi provides zuice integration for the Chi router.
//
// Views are resolved from an injector built once from the application
// bindings. Each request then gets its own child injector holding the request,
// the response writer and the route's URL parameters, and the view's
// responder is called through it.
//
// Example usage:
//
//	respondWith, _ := zuicechi.RespondWith(bindings, zuicechi.WithLogger(logger))
//
//	r := chi.NewRouter()
//	r.Get("/", respondWith.View(zuice.Type[*IndexView]()))
//	r.Get("/archive/{year}/{month}", respondWith.View(zuice.Type[*ArchiveView]()))
package chi

import (
	"context"
	"fmt"
	"net/http"

	gochi "github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/mwilliamson/zuice"
)

// RequestKey is the name key bound to the *http.Request of the current request.
const RequestKey = zuice.NameKey("request")

// View is implemented by values served with RespondWith. Responder returns
// the function handling the request: a *zuice.Function or a plain Go
// function. Its arguments are resolved by the request injector and it must
// return a Response.
type View interface {
	Responder() any
}

// Response renders the result of a view.
type Response interface {
	Render(w http.ResponseWriter, r *http.Request) error
}

// Config holds the configuration for RespondWith.
type Config struct {
	// Logger receives resolution and rendering errors. Defaults to a no-op logger.
	Logger *zap.Logger

	// ErrorHandler is called when a view cannot be resolved, called or rendered.
	// If nil, a default handler logging the error and returning 500 Internal
	// Server Error is used.
	ErrorHandler func(http.ResponseWriter, *http.Request, error)

	// PanicRecovery enables panic recovery in the handler.
	PanicRecovery bool

	// RequestModules are installed into the bindings of every request
	// injector. Use them for providers that depend on the request.
	RequestModules []zuice.Module

	// InjectorOptions are passed to the root injector.
	InjectorOptions []zuice.Option
}

// Option configures RespondWith.
type Option func(*Config)

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Config) {
		c.Logger = logger
	}
}

// WithErrorHandler sets the error handler.
func WithErrorHandler(h func(http.ResponseWriter, *http.Request, error)) Option {
	return func(c *Config) {
		c.ErrorHandler = h
	}
}

// WithPanicRecovery enables or disables panic recovery in the handler.
func WithPanicRecovery(enabled bool) Option {
	return func(c *Config) {
		c.PanicRecovery = enabled
	}
}

// WithRequestModule adds modules installed for every request.
// Multiple modules are installed in the order they are added.
func WithRequestModule(modules ...zuice.Module) Option {
	return func(c *Config) {
		c.RequestModules = append(c.RequestModules, modules...)
	}
}

// WithInjectorOptions adds options for the root injector.
func WithInjectorOptions(opts ...zuice.Option) Option {
	return func(c *Config) {
		c.InjectorOptions = append(c.InjectorOptions, opts...)
	}
}

func defaultConfig() *Config {
	return &Config{
		Logger: zap.NewNop(),
	}
}

// Builder turns views into chi handlers.
type Builder struct {
	root *zuice.Injector
	cfg  *Config
}

// RespondWith creates a Builder whose views are resolved from an injector
// built from bindings. bindings itself is never modified.
func RespondWith(bindings *zuice.Bindings, opts ...Option) (*Builder, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.ErrorHandler == nil {
		logger := cfg.Logger
		cfg.ErrorHandler = func(w http.ResponseWriter, r *http.Request, err error) {
			logger.Error("failed to respond",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Error(err),
			)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		}
	}

	injectorOpts := append([]zuice.Option{zuice.WithLogger(cfg.Logger)}, cfg.InjectorOptions...)
	root, err := zuice.NewInjector(bindings, injectorOpts...)
	if err != nil {
		return nil, err
	}

	return &Builder{root: root, cfg: cfg}, nil
}

// Injector returns the root injector views are resolved from.
func (b *Builder) Injector() *zuice.Injector {
	return b.root
}

// View returns a handler serving the view bound to key.
//
// The view is resolved from the root injector, which holds nothing about the
// request, so views cannot depend on the request at construction time. The
// responder is called with a request injector that binds:
//
//   - "request" and zuice.Type[*http.Request]() to the request
//   - zuice.Type[http.ResponseWriter]() to the response writer
//   - zuice.Type[context.Context]() to the request context
//   - every URL parameter of the matched route, by name
func (b *Builder) View(key any) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if b.cfg.PanicRecovery {
			defer func() {
				if v := recover(); v != nil {
					b.cfg.ErrorHandler(w, r, fmt.Errorf("panic in view: %v", v))
				}
			}()
		}

		if err := b.respond(w, r, key); err != nil {
			b.cfg.ErrorHandler(w, r, err)
		}
	}
}

func (b *Builder) respond(w http.ResponseWriter, r *http.Request, key any) error {
	resolved, err := b.root.Get(key)
	if err != nil {
		return err
	}

	view, ok := resolved.(View)
	if !ok {
		return fmt.Errorf("%T does not implement chi.View", resolved)
	}

	injector, err := b.requestInjector(w, r)
	if err != nil {
		return err
	}

	result, err := injector.Call(view.Responder())
	if err != nil {
		return err
	}

	response, ok := result.(Response)
	if !ok {
		return fmt.Errorf("responder of %T returned %T, not a chi.Response", resolved, result)
	}

	return response.Render(w, r.WithContext(NewContext(r.Context(), injector)))
}

func (b *Builder) requestInjector(w http.ResponseWriter, r *http.Request) (*zuice.Injector, error) {
	bindings := zuice.NewBindings()
	bindings.Bind(RequestKey).ToInstance(r)
	bindings.Bind(zuice.Type[*http.Request]()).ToInstance(r)
	bindings.Bind(zuice.Type[http.ResponseWriter]()).ToInstance(w)
	bindings.Bind(zuice.Type[context.Context]()).ToInstance(r.Context())

	if rctx := gochi.RouteContext(r.Context()); rctx != nil {
		for i, name := range rctx.URLParams.Keys {
			if name == "" || bindings.Contains(name) {
				continue
			}
			bindings.BindName(name).ToInstance(rctx.URLParams.Values[i])
		}
	}

	if err := bindings.Install(b.cfg.RequestModules...); err != nil {
		return nil, err
	}

	return zuice.NewInjector(bindings, zuice.WithParent(b.root))
}

type contextKey struct{}

// NewContext returns a copy of ctx carrying injector.
func NewContext(ctx context.Context, injector *zuice.Injector) context.Context {
	return context.WithValue(ctx, contextKey{}, injector)
}

// FromContext returns the request injector stored in ctx. Responses receive a
// request whose context carries it.
func FromContext(ctx context.Context) (*zuice.Injector, bool) {
	injector, ok := ctx.Value(contextKey{}).(*zuice.Injector)
	return injector, ok
}
