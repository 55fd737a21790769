// Package echo provides zuice integration for the Echo web framework.
//
// InjectorMiddleware gives every request its own child injector holding the
// echo context, the request and the route's URL parameters. Handle resolves a
// controller from that injector and calls one of its methods.
//
// Example usage:
//
//	injector, _ := zuice.NewInjector(bindings)
//
//	e := echo.New()
//	e.Use(zuiceecho.InjectorMiddleware(injector))
//
//	e.POST("/login", zuiceecho.Handle((*AuthController).Login))
//	e.GET("/users/:id", zuiceecho.Handle((*UserController).GetByID))
package echo

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/mwilliamson/zuice"
)

// ErrNoInjector is reported when a handler runs without InjectorMiddleware.
var ErrNoInjector = errors.New("no request injector in context")

// Config holds the configuration for the injector middleware.
type Config struct {
	// Logger receives request errors. Defaults to a no-op logger.
	Logger *zap.Logger

	// ErrorHandler is called when the request injector cannot be built.
	// If nil, a default handler returning 500 Internal Server Error is used.
	ErrorHandler func(echo.Context, error) error

	// RequestModules are installed into the bindings of every request
	// injector, after the echo bindings.
	RequestModules []zuice.Module
}

// Option configures the injector middleware.
type Option func(*Config)

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Config) {
		c.Logger = logger
	}
}

// WithErrorHandler sets the error handler for request injector failures.
func WithErrorHandler(h func(echo.Context, error) error) Option {
	return func(c *Config) {
		c.ErrorHandler = h
	}
}

// WithRequestModule adds modules installed for every request.
func WithRequestModule(modules ...zuice.Module) Option {
	return func(c *Config) {
		c.RequestModules = append(c.RequestModules, modules...)
	}
}

func internalError(logger *zap.Logger, msg string) func(echo.Context, error) error {
	return func(c echo.Context, err error) error {
		logger.Error(msg, zap.String("path", c.Request().URL.Path), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, map[string]string{
			"error": "Internal Server Error",
		})
	}
}

// InjectorMiddleware creates an echo.MiddlewareFunc deriving a request
// injector from root for each request. The request injector binds:
//
//   - zuice.Type[echo.Context]() to the echo context
//   - "request" and zuice.Type[*http.Request]() to the request
//   - zuice.Type[context.Context]() to the request context
//   - every URL parameter of the matched route, by name
//
// It is attached to the request context and can be retrieved with FromContext.
func InjectorMiddleware(root *zuice.Injector, opts ...Option) echo.MiddlewareFunc {
	cfg := &Config{Logger: zap.NewNop()}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.ErrorHandler == nil {
		cfg.ErrorHandler = internalError(cfg.Logger, "failed to build request injector")
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			injector, err := requestInjector(root, c, cfg.RequestModules)
			if err != nil {
				return cfg.ErrorHandler(c, err)
			}

			c.SetRequest(c.Request().WithContext(NewContext(c.Request().Context(), injector)))
			return next(c)
		}
	}
}

func requestInjector(root *zuice.Injector, c echo.Context, modules []zuice.Module) (*zuice.Injector, error) {
	r := c.Request()

	bindings := zuice.NewBindings()
	bindings.Bind(zuice.Type[echo.Context]()).ToInstance(c)
	bindings.Bind("request").ToInstance(r)
	bindings.Bind(zuice.Type[*http.Request]()).ToInstance(r)
	bindings.Bind(zuice.Type[context.Context]()).ToInstance(r.Context())

	values := c.ParamValues()
	for i, name := range c.ParamNames() {
		if name == "" || i >= len(values) || bindings.Contains(name) {
			continue
		}
		bindings.BindName(name).ToInstance(values[i])
	}

	if err := bindings.Install(modules...); err != nil {
		return nil, err
	}

	return zuice.NewInjector(bindings, zuice.WithParent(root))
}

// HandlerConfig holds configuration for the Handle wrapper.
type HandlerConfig struct {
	// PanicRecovery enables panic recovery in the handler.
	PanicRecovery bool

	// Logger receives resolution errors and recovered panics.
	Logger *zap.Logger

	// ErrorHandler is called when the controller cannot be resolved.
	// If nil, a default handler returning 500 Internal Server Error is used.
	ErrorHandler func(echo.Context, error) error
}

// HandlerOption configures the Handle wrapper.
type HandlerOption func(*HandlerConfig)

// WithPanicRecovery enables or disables panic recovery in the handler.
func WithPanicRecovery(enabled bool) HandlerOption {
	return func(c *HandlerConfig) {
		c.PanicRecovery = enabled
	}
}

// WithHandlerLogger sets the logger of the Handle wrapper.
func WithHandlerLogger(logger *zap.Logger) HandlerOption {
	return func(c *HandlerConfig) {
		c.Logger = logger
	}
}

// WithResolutionErrorHandler sets the error handler for controller resolution failures.
func WithResolutionErrorHandler(h func(echo.Context, error) error) HandlerOption {
	return func(c *HandlerConfig) {
		c.ErrorHandler = h
	}
}

// Handle wraps a controller method. The controller T is resolved from the
// request injector on every request.
func Handle[T any](method func(T, echo.Context) error, opts ...HandlerOption) echo.HandlerFunc {
	cfg := &HandlerConfig{Logger: zap.NewNop()}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.ErrorHandler == nil {
		cfg.ErrorHandler = internalError(cfg.Logger, "failed to resolve controller")
	}

	return func(c echo.Context) (err error) {
		if cfg.PanicRecovery {
			defer func() {
				if r := recover(); r != nil {
					err = internalError(cfg.Logger, "panic in handler")(c, fmt.Errorf("panic: %v", r))
				}
			}()
		}

		injector, ok := FromContext(c.Request().Context())
		if !ok {
			return cfg.ErrorHandler(c, ErrNoInjector)
		}

		controller, err := zuice.Resolve[T](injector)
		if err != nil {
			return cfg.ErrorHandler(c, err)
		}

		return method(controller, c)
	}
}

type contextKey struct{}

// NewContext returns a copy of ctx carrying injector.
func NewContext(ctx context.Context, injector *zuice.Injector) context.Context {
	return context.WithValue(ctx, contextKey{}, injector)
}

// FromContext returns the request injector stored in ctx.
func FromContext(ctx context.Context) (*zuice.Injector, bool) {
	injector, ok := ctx.Value(contextKey{}).(*zuice.Injector)
	return injector, ok
}
