package commands

import (
	"errors"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/vuesetup/pkg/config"
	"github.com/Sumatoshi-tech/vuesetup/pkg/rules"
)

func newRulesCommand(global *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rules",
		Short: "Inspect classifier rules",
		Long: `Rules decide which classes are components, which decorators mark which
member roles and how lifecycle hooks are named. A rules YAML file overlays
the built-in defaults; set it with the "rules" configuration key.`,
	}

	cmd.AddCommand(newRulesDumpCommand(global))
	cmd.AddCommand(newRulesValidateCommand())
	cmd.AddCommand(newRulesSchemaCommand())

	return cmd
}

func newRulesDumpCommand(global *globalFlags) *cobra.Command {
	var defaults bool

	cmd := &cobra.Command{
		Use:   "dump",
		Short: "Print the effective rules as YAML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			r := rules.Default()

			if !defaults {
				cfg, err := config.LoadConfig(global.config)
				if err != nil {
					return err
				}

				r, err = cfg.LoadRules()
				if err != nil {
					return err
				}
			}

			data, err := r.Marshal()
			if err != nil {
				return err
			}

			_, err = cmd.OutOrStdout().Write(data)

			return err
		},
	}

	cmd.Flags().BoolVar(&defaults, "defaults", false, "print the built-in rules, ignoring configuration")

	return cmd
}

func newRulesValidateCommand() *cobra.Command {
	var colorize, nocolor bool

	cmd := &cobra.Command{
		Use:   "validate <file>",
		Short: "Validate a rules YAML file against the rules schema",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			setColor(colorize, nocolor)

			data, err := readInput(cmd.InOrStdin(), args[0])
			if err != nil {
				return err
			}

			verr := rules.Validate(data)
			if verr == nil {
				color.New(color.FgGreen).Fprintf(cmd.OutOrStdout(), "rules are valid (%s)\n", args[0])

				return nil
			}

			color.New(color.FgRed).Fprintf(cmd.OutOrStdout(), "rules validation failed (%s)\n", args[0])

			var schemaErr *rules.ValidationError
			if errors.As(verr, &schemaErr) {
				for _, problem := range schemaErr.Problems {
					color.New(color.FgRed).Fprintf(cmd.OutOrStdout(), "  - %s\n", problem)
				}
			} else {
				color.New(color.FgRed).Fprintf(cmd.OutOrStdout(), "  - %v\n", verr)
			}

			return fmt.Errorf("%s: %w", args[0], rules.ErrInvalidRules)
		},
	}

	cmd.Flags().BoolVar(&colorize, "color", false, "force colored output")
	cmd.Flags().BoolVar(&nocolor, "no-color", false, "disable colored output")

	return cmd
}

func newRulesSchemaCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "schema",
		Short: "Print the JSON schema of rules files",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := cmd.OutOrStdout().Write(rules.Schema())

			return err
		},
	}
}
