// Package fiber provides zuice integration for the Fiber web framework.
//
// InjectorMiddleware gives every request its own child injector holding the
// fiber context. Handle resolves a controller from that injector, with the
// route's URL parameters in scope, and calls one of its methods.
//
// Example usage:
//
//	injector, _ := zuice.NewInjector(bindings)
//
//	app := fiber.New()
//	app.Use(zuicefiber.InjectorMiddleware(injector))
//
//	app.Post("/login", zuicefiber.Handle((*AuthController).Login))
//	app.Get("/users/:id", zuicefiber.Handle((*UserController).GetByID))
package fiber

import (
	"context"
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/mwilliamson/zuice"
)

// injectorKey is the key used to store the injector in fiber.Ctx.Locals
const injectorKey = "zuice_injector"

// ErrNoInjector is reported when a handler runs without InjectorMiddleware.
var ErrNoInjector = errors.New("no request injector in context")

// Config holds the configuration for the injector middleware.
type Config struct {
	// Logger receives request errors. Defaults to a no-op logger.
	Logger *zap.Logger

	// ErrorHandler is called when the request injector cannot be built.
	// If nil, a default handler returning 500 Internal Server Error is used.
	ErrorHandler func(*fiber.Ctx, error) error

	// RequestModules are installed into the bindings of every request
	// injector, after the fiber bindings.
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
func WithErrorHandler(h func(*fiber.Ctx, error) error) Option {
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

func internalError(logger *zap.Logger, msg string) func(*fiber.Ctx, error) error {
	return func(c *fiber.Ctx, err error) error {
		logger.Error(msg, zap.String("path", c.Path()), zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Internal Server Error",
		})
	}
}

// InjectorMiddleware creates a Fiber middleware deriving a request injector
// from root for each request. The injector binds zuice.Type[*fiber.Ctx]() to
// the fiber context and zuice.Type[context.Context]() to its user context. It
// is stored in fiber.Ctx.Locals and attached to the user context.
//
// Fiber runs middleware before the route is matched, so URL parameters are
// put in scope by Handle rather than bound here.
func InjectorMiddleware(root *zuice.Injector, opts ...Option) fiber.Handler {
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

	return func(c *fiber.Ctx) error {
		bindings := zuice.NewBindings()
		bindings.Bind(zuice.Type[*fiber.Ctx]()).ToInstance(c)
		bindings.Bind(zuice.Type[context.Context]()).ToInstance(c.UserContext())

		if err := bindings.Install(cfg.RequestModules...); err != nil {
			return cfg.ErrorHandler(c, err)
		}

		injector, err := zuice.NewInjector(bindings, zuice.WithParent(root))
		if err != nil {
			return cfg.ErrorHandler(c, err)
		}

		c.SetUserContext(NewContext(c.UserContext(), injector))
		c.Locals(injectorKey, injector)

		return c.Next()
	}
}

// HandlerConfig holds configuration for the Handle wrapper.
type HandlerConfig struct {
	// PanicRecovery enables panic recovery in the handler.
	PanicRecovery bool

	// Logger receives resolution errors and recovered panics.
	Logger *zap.Logger

	// ErrorHandler is called when the controller cannot be resolved.
	// If nil, a default handler returning 500 Internal Server Error is used.
	ErrorHandler func(*fiber.Ctx, error) error
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
func WithResolutionErrorHandler(h func(*fiber.Ctx, error) error) HandlerOption {
	return func(c *HandlerConfig) {
		c.ErrorHandler = h
	}
}

// Handle wraps a controller method. The controller T is resolved from the
// request injector with every URL parameter of the route in scope under its
// name.
func Handle[T any](method func(T, *fiber.Ctx) error, opts ...HandlerOption) fiber.Handler {
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

	return func(c *fiber.Ctx) (err error) {
		if cfg.PanicRecovery {
			defer func() {
				if v := recover(); v != nil {
					err = internalError(cfg.Logger, "panic in handler")(c, fmt.Errorf("panic: %v", v))
				}
			}()
		}

		injector := FromContext(c)
		if injector == nil {
			return cfg.ErrorHandler(c, ErrNoInjector)
		}

		controller, resolveErr := zuice.Resolve[T](injector.With(routeParams(c)))
		if resolveErr != nil {
			return cfg.ErrorHandler(c, resolveErr)
		}

		return method(controller, c)
	}
}

func routeParams(c *fiber.Ctx) zuice.Values {
	names := c.Route().Params
	values := make(zuice.Values, len(names))
	for _, name := range names {
		if name == "" {
			continue
		}
		values[zuice.NameKey(name)] = c.Params(name)
	}
	return values
}

// FromContext retrieves the request injector from fiber.Ctx.Locals.
//
// Example:
//
//	injector := zuicefiber.FromContext(c)
//	users := zuice.MustResolve[*UserService](injector)
func FromContext(c *fiber.Ctx) *zuice.Injector {
	injector, _ := c.Locals(injectorKey).(*zuice.Injector)
	return injector
}

type contextKey struct{}

// NewContext returns a copy of ctx carrying injector.
func NewContext(ctx context.Context, injector *zuice.Injector) context.Context {
	return context.WithValue(ctx, contextKey{}, injector)
}

// InjectorFromContext returns the request injector stored in ctx.
func InjectorFromContext(ctx context.Context) (*zuice.Injector, bool) {
	injector, ok := ctx.Value(contextKey{}).(*zuice.Injector)
	return injector, ok
}
