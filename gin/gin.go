// Package gin provides zuice integration for the Gin web framework.
//
// InjectorMiddleware gives every request its own child injector holding the
// gin context, the request and the route's URL parameters. Handle resolves a
// controller from that injector and calls one of its methods.
//
// Example usage:
//
//	injector, _ := zuice.NewInjector(bindings)
//
//	g := gin.New()
//	g.Use(zuicegin.InjectorMiddleware(injector))
//
//	g.POST("/login", zuicegin.Handle((*AuthController).Login))
//	g.GET("/users/:id", zuicegin.Handle((*UserController).GetByID))
package gin

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
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
	ErrorHandler func(*gin.Context, error)

	// RequestModules are installed into the bindings of every request
	// injector, after the gin bindings.
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
func WithErrorHandler(h func(*gin.Context, error)) Option {
	return func(c *Config) {
		c.ErrorHandler = h
	}
}

// WithRequestModule adds modules installed for every request.
//
// Example:
//
//	zuicegin.InjectorMiddleware(injector,
//	    zuicegin.WithRequestModule(zuice.BindProvider(CurrentUser, func(i *zuice.Injector) (any, error) {
//	        c, err := zuice.Resolve[*gin.Context](i)
//	        if err != nil {
//	            return nil, err
//	        }
//	        return c.GetHeader("X-User"), nil
//	    })),
//	)
func WithRequestModule(modules ...zuice.Module) Option {
	return func(c *Config) {
		c.RequestModules = append(c.RequestModules, modules...)
	}
}

func defaultConfig() *Config {
	return &Config{
		Logger: zap.NewNop(),
	}
}

func abort(logger *zap.Logger, msg string) func(*gin.Context, error) {
	return func(c *gin.Context, err error) {
		logger.Error(msg, zap.String("path", c.Request.URL.Path), zap.Error(err))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"error": "Internal Server Error",
		})
	}
}

// InjectorMiddleware creates a gin.HandlerFunc deriving a request injector
// from root for each request. The request injector binds:
//
//   - zuice.Type[*gin.Context]() to the gin context
//   - "request" and zuice.Type[*http.Request]() to the request
//   - zuice.Type[context.Context]() to the request context
//   - every URL parameter of the matched route, by name
//
// It is attached to the request context and can be retrieved with FromContext.
func InjectorMiddleware(root *zuice.Injector, opts ...Option) gin.HandlerFunc {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.ErrorHandler == nil {
		cfg.ErrorHandler = abort(cfg.Logger, "failed to build request injector")
	}

	return func(c *gin.Context) {
		injector, err := requestInjector(root, c, cfg.RequestModules)
		if err != nil {
			cfg.ErrorHandler(c, err)
			return
		}

		c.Request = c.Request.WithContext(NewContext(c.Request.Context(), injector))
		c.Next()
	}
}

func requestInjector(root *zuice.Injector, c *gin.Context, modules []zuice.Module) (*zuice.Injector, error) {
	bindings := zuice.NewBindings()
	bindings.Bind(zuice.Type[*gin.Context]()).ToInstance(c)
	bindings.Bind("request").ToInstance(c.Request)
	bindings.Bind(zuice.Type[*http.Request]()).ToInstance(c.Request)
	bindings.Bind(zuice.Type[context.Context]()).ToInstance(c.Request.Context())

	for _, param := range c.Params {
		if param.Key == "" || bindings.Contains(param.Key) {
			continue
		}
		bindings.BindName(param.Key).ToInstance(param.Value)
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
	ErrorHandler func(*gin.Context, error)
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
func WithResolutionErrorHandler(h func(*gin.Context, error)) HandlerOption {
	return func(c *HandlerConfig) {
		c.ErrorHandler = h
	}
}

// Handle wraps a controller method. The controller T is resolved from the
// request injector on every request, so it may depend on URL parameters and
// anything else the request injector binds.
func Handle[T any](method func(T, *gin.Context), opts ...HandlerOption) gin.HandlerFunc {
	cfg := &HandlerConfig{Logger: zap.NewNop()}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.ErrorHandler == nil {
		cfg.ErrorHandler = abort(cfg.Logger, "failed to resolve controller")
	}

	return func(c *gin.Context) {
		if cfg.PanicRecovery {
			defer func() {
				if r := recover(); r != nil {
					cfg.Logger.Error("panic in handler", zap.Any("panic", r))
					c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
						"error": "Internal Server Error",
					})
				}
			}()
		}

		injector, ok := FromContext(c.Request.Context())
		if !ok {
			cfg.ErrorHandler(c, ErrNoInjector)
			return
		}

		controller, err := zuice.Resolve[T](injector)
		if err != nil {
			cfg.ErrorHandler(c, err)
			return
		}

		method(controller, c)
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
