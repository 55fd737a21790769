package zuice

import "go.uber.org/zap"

// Option configures an Injector.
type Option interface {
	apply(*injectorOptions)
}

// injectorOptions holds injector configuration.
type injectorOptions struct {
	parent *Injector
	logger *zap.Logger
}

// optionFunc adapts a function to Option.
type optionFunc func(*injectorOptions)

func (f optionFunc) apply(opts *injectorOptions) {
	f(opts)
}

// WithParent derives the new injector from parent. Keys the new injector
// cannot resolve are delegated to parent, and explicit bindings held by
// parent take priority over reflective construction in the new injector.
func WithParent(parent *Injector) Option {
	return optionFunc(func(opts *injectorOptions) {
		opts.parent = parent
	})
}

// WithLogger sets the logger used to trace resolutions at debug level. An
// injector with a parent inherits the parent's logger by default; otherwise
// nothing is logged.
func WithLogger(logger *zap.Logger) Option {
	return optionFunc(func(opts *injectorOptions) {
		opts.logger = logger
	})
}

func buildOptions(opts []Option) *injectorOptions {
	o := &injectorOptions{}
	for _, opt := range opts {
		if opt != nil {
			opt.apply(o)
		}
	}

	if o.logger == nil {
		if o.parent != nil {
			o.logger = o.parent.logger
		} else {
			o.logger = zap.NewNop()
		}
	}

	return o
}
