// Command greeter greets people, from the command line or over HTTP, with
// every collaborator wired by zuice.
package main

import (
	"errors"
	"fmt"
	"net/http"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mwilliamson/zuice/config"
)

type rootFlags struct {
	configFile string
	section    string
	envFiles   []string
	verbose    bool
}

// listenAndServe is swapped out by tests.
var listenAndServe = func(server *http.Server) error {
	return server.ListenAndServe()
}

func main() {
	if err := NewRoot().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// NewRoot builds the greeter command tree.
func NewRoot() *cobra.Command {
	flags := &rootFlags{}

	root := &cobra.Command{
		Use:           "greeter",
		Short:         "Greets people",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVarP(&flags.configFile, "config", "c", "", "INI file to read configuration from")
	root.PersistentFlags().StringVar(&flags.section, "section", "", "INI section to read, defaults to $ENV")
	root.PersistentFlags().StringSliceVar(&flags.envFiles, "env-file", nil, ".env files to load")
	root.PersistentFlags().BoolVarP(&flags.verbose, "verbose", "v", false, "log every resolution")

	root.AddCommand(greetCmd(flags), serveCmd(flags))
	return root
}

func greetCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "greet <name>",
		Short: "Print a greeting",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := setup(flags)
			if err != nil {
				return err
			}
			defer logger.Sync() //nolint:errcheck

			bindings, err := newBindings(cfg)
			if err != nil {
				return err
			}

			message, err := greet(bindings, logger, args[0])
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), message)
			return nil
		},
	}
}

func serveCmd(flags *rootFlags) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve greetings over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := setup(flags)
			if err != nil {
				return err
			}
			defer logger.Sync() //nolint:errcheck

			if addr != "" {
				cfg.Addr = addr
			}

			bindings, err := newBindings(cfg)
			if err != nil {
				return err
			}

			handler, err := newRouter(bindings, logger)
			if err != nil {
				return err
			}

			logger.Info("serving", zap.String("addr", cfg.Addr))
			err = listenAndServe(&http.Server{Addr: cfg.Addr, Handler: handler})
			if errors.Is(err, http.ErrServerClosed) {
				return nil
			}
			return err
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "address to listen on, overrides the configuration")
	return cmd
}

// setup loads the configuration and creates the logger.
func setup(flags *rootFlags) (*Config, *zap.Logger, error) {
	cfg := defaultConfig()

	sources := []config.Source{config.FromDotenv(flags.envFiles...)}
	if flags.configFile != "" {
		if flags.section != "" {
			sources = append(sources, config.FromINISection(flags.configFile, flags.section))
		} else {
			sources = append(sources, config.FromINI(flags.configFile))
		}
	}

	if err := config.Load(&cfg, sources...); err != nil {
		return nil, nil, fmt.Errorf("loading configuration: %w", err)
	}

	logger, err := newLogger(flags.verbose)
	if err != nil {
		return nil, nil, err
	}

	return &cfg, logger, nil
}

func newLogger(verbose bool) (*zap.Logger, error) {
	if verbose {
		return zap.NewDevelopment()
	}

	zcfg := zap.NewProductionConfig()
	zcfg.OutputPaths = []string{"stderr"}
	return zcfg.Build()
}
