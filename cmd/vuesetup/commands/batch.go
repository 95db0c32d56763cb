package commands

import (
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/vuesetup/pkg/batch"
	"github.com/Sumatoshi-tech/vuesetup/pkg/config"
	"github.com/Sumatoshi-tech/vuesetup/pkg/observability"
)

func newBatchCommand(global *globalFlags) *cobra.Command {
	var (
		write, check      bool
		colorize, nocolor bool
		workers           int
	)

	cmd := &cobra.Command{
		Use:   "batch <paths...>",
		Short: "Convert every TypeScript and TSX file under the given paths",
		Long: `Walk the given files and directories and convert every candidate script.
Vendored directories (node_modules and similar) and hidden directories are
skipped. Without --write nothing on disk changes and the summary shows what
would be converted.

Examples:
  vuesetup batch src                # Dry run with a summary table
  vuesetup batch --write src tests  # Convert in place
  vuesetup batch --check src        # Exit 1 if any file would change`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			setColor(colorize, nocolor)

			rt, err := global.setup(cmd.ErrOrStderr(), observability.ModeCLI, nil)
			if err != nil {
				return err
			}
			defer rt.close()

			opts := batch.Options{
				Include:     rt.cfg.Batch.Include,
				Exclude:     rt.cfg.Batch.Exclude,
				MaxFileSize: config.Bytes(rt.cfg.Batch.MaxFileSize),
				Workers:     rt.cfg.Batch.Workers,
				Write:       (rt.cfg.Batch.Write || write) && !check,
			}

			if cmd.Flags().Changed("workers") {
				opts.Workers = workers
			}

			files, err := batch.Collect(args, opts)
			if err != nil {
				return err
			}

			runner := &batch.Runner{Converter: rt.converter, Logger: rt.providers.Logger, Options: opts}

			summary, err := runner.Run(cmd.Context(), files)
			if err != nil {
				return err
			}

			if !global.quiet {
				summary.Render(cmd.OutOrStdout(), global.verbose)
			}

			if lru := rt.converter.Cache; lru != nil {
				rt.providers.Logger.Debug("cache", "stats", lru.Stats().String())
			}

			if check && summary.Count(batch.StatusConverted) > 0 {
				color.New(color.FgYellow).Fprintf(cmd.ErrOrStderr(), "%d files would be converted\n",
					summary.Count(batch.StatusConverted))

				return ErrCheckFailed
			}

			return summary.Err()
		},
	}

	cmd.Flags().BoolVarP(&write, "write", "w", false, "write converted files in place")
	cmd.Flags().BoolVar(&check, "check", false, "exit with status 1 when some file would change")
	cmd.Flags().IntVarP(&workers, "workers", "j", 0, "concurrent conversions (default: config, or one per CPU)")
	cmd.Flags().BoolVar(&colorize, "color", false, "force colored output")
	cmd.Flags().BoolVar(&nocolor, "no-color", false, "disable colored output")

	return cmd
}
