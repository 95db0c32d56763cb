package commands

import (
	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/vuesetup/pkg/lsp"
	"github.com/Sumatoshi-tech/vuesetup/pkg/mcp"
	"github.com/Sumatoshi-tech/vuesetup/pkg/observability"
)

func newMCPCommand(global *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Start MCP server for AI agent integration",
		Long: `Start a Model Context Protocol (MCP) server on stdio transport.

The server exposes the converter as tools that AI agents can discover and
invoke:
  - vuesetup_convert: convert class components, optionally with a diff
  - vuesetup_inspect: classify component members without rewriting`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := global.setup(cmd.ErrOrStderr(), observability.ModeMCP, nil)
			if err != nil {
				return err
			}
			defer rt.close()

			srv := mcp.NewServer(mcp.ServerDeps{
				Converter: rt.converter,
				Logger:    rt.providers.Logger,
				Metrics:   rt.red,
				Tracer:    rt.providers.Tracer,
			})

			return srv.Run(cmd.Context())
		},
	}
}

func newLSPCommand(global *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "lsp",
		Short: "Start the language server on stdio",
		Long: `Start a Language Server Protocol server on stdio. Open TypeScript and TSX
documents get a diagnostic on every convertible class component and on
every member the conversion would drop, plus a "Convert class components to
setup()" code action.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := global.setup(cmd.ErrOrStderr(), observability.ModeLSP, nil)
			if err != nil {
				return err
			}
			defer rt.close()

			return lsp.NewServer(rt.converter, rt.providers.Logger).Run()
		},
	}
}
