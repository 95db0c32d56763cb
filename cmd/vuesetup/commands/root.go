// Package commands implements the vuesetup CLI commands.
package commands

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/metric"

	"github.com/Sumatoshi-tech/vuesetup/pkg/cache"
	"github.com/Sumatoshi-tech/vuesetup/pkg/config"
	"github.com/Sumatoshi-tech/vuesetup/pkg/convert"
	"github.com/Sumatoshi-tech/vuesetup/pkg/observability"
	"github.com/Sumatoshi-tech/vuesetup/pkg/version"
)

// ErrCheckFailed is returned by --check runs when some input would change.
var ErrCheckFailed = errors.New("conversion check failed")

// globalFlags are the persistent flags of the root command.
type globalFlags struct {
	config  string
	verbose bool
	quiet   bool
}

// NewRootCommand builds the vuesetup command tree.
func NewRootCommand() *cobra.Command {
	flags := &globalFlags{}

	rootCmd := &cobra.Command{
		Use:   "vuesetup",
		Short: "Convert Vue class components to setup() components",
		Long: `vuesetup rewrites Vue class components (vue-class-component and
vue-property-decorator) into component objects with a composition-style
setup() function.

Commands:
  convert   Convert one file or stdin
  batch     Convert every script under a set of paths
  rules     Dump or validate classifier rules
  serve     Start the HTTP conversion service
  mcp       Start the MCP server on stdio
  lsp       Start the language server on stdio`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&flags.config, "config", "", "config file (default is ./.vuesetup.yaml or $HOME/.vuesetup.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&flags.verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().BoolVarP(&flags.quiet, "quiet", "q", false, "suppress output")

	rootCmd.AddCommand(newConvertCommand(flags))
	rootCmd.AddCommand(newBatchCommand(flags))
	rootCmd.AddCommand(newRulesCommand(flags))
	rootCmd.AddCommand(newServeCommand(flags))
	rootCmd.AddCommand(newMCPCommand(flags))
	rootCmd.AddCommand(newLSPCommand(flags))
	rootCmd.AddCommand(newVersionCommand())

	return rootCmd
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version.String())
		},
	}
}

// env is the configured runtime shared by the commands.
type env struct {
	cfg       *config.Config
	providers observability.Providers
	converter *convert.Converter
	red       *observability.REDMetrics
}

// setup loads configuration and builds the converter. A non-nil meter
// replaces the one from the telemetry providers.
func (g *globalFlags) setup(logOut io.Writer, mode observability.AppMode, meter metric.Meter) (*env, error) {
	cfg, err := config.LoadConfig(g.config)
	if err != nil {
		return nil, err
	}

	switch {
	case g.verbose:
		cfg.Logging.Level = "debug"
	case g.quiet:
		cfg.Logging.Level = "error"
	}

	r, err := cfg.LoadRules()
	if err != nil {
		return nil, err
	}

	providers, err := observability.InitWithWriter(cfg.Observability(mode, version.Version), logOut)
	if err != nil {
		return nil, fmt.Errorf("init observability: %w", err)
	}

	if meter == nil {
		meter = providers.Meter
	}

	convMetrics, err := observability.NewConversionMetrics(meter)
	if err != nil {
		return nil, errors.Join(err, providers.Shutdown(context.Background()))
	}

	red, err := observability.NewREDMetrics(meter)
	if err != nil {
		return nil, errors.Join(err, providers.Shutdown(context.Background()))
	}

	conv := convert.New(r)
	conv.Logger = providers.Logger
	conv.Tracer = providers.Tracer
	conv.Metrics = convMetrics
	conv.Options = cfg.ConvertOptions()

	if cfg.Cache.Enabled {
		conv.Cache = cache.New(config.Bytes(cfg.Cache.MaxSize))
	}

	return &env{cfg: cfg, providers: providers, converter: conv, red: red}, nil
}

func (e *env) close() {
	shutdownErr := e.providers.Shutdown(context.Background())
	if shutdownErr != nil {
		e.providers.Logger.Warn("observability shutdown failed", "error", shutdownErr)
	}
}
