package commands

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/vuesetup/pkg/convert"
	"github.com/Sumatoshi-tech/vuesetup/pkg/observability"
	"github.com/Sumatoshi-tech/vuesetup/pkg/textutil"
	"github.com/Sumatoshi-tech/vuesetup/pkg/tsast"
)

// ErrUnsupportedLanguage is returned for a --language other than ts or tsx.
var ErrUnsupportedLanguage = errors.New("language must be ts or tsx")

type convertFlags struct {
	output       string
	filename     string
	language     string
	indent       string
	importSource string
	diff         bool
	check        bool
	colorize     bool
	nocolor      bool
	runtimeProps bool
}

func newConvertCommand(global *globalFlags) *cobra.Command {
	flags := &convertFlags{}

	cmd := &cobra.Command{
		Use:   "convert [file|-]",
		Short: "Convert the class components of one file",
		Long: `Convert every Vue class component of one TypeScript or TSX file into a
component object with a setup() function. Text outside the components is
kept as is.

Examples:
  vuesetup convert Hello.ts              # Print the converted file
  vuesetup convert -o Hello.ts Hello.ts  # Convert in place
  vuesetup convert --diff Hello.tsx      # Show a unified diff
  vuesetup convert --check src/A.ts      # Exit 1 if A.ts would change
  cat A.tsx | vuesetup convert -         # Read stdin (parsed as TSX)`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			input := stdinArg
			if len(args) == 1 {
				input = args[0]
			}

			return runConvert(cmd, global, flags, input)
		},
	}

	cmd.Flags().StringVarP(&flags.output, "output", "o", "", "output file (default: stdout)")
	cmd.Flags().StringVar(&flags.filename, "filename", "component.tsx", "file name used for stdin input")
	cmd.Flags().StringVarP(&flags.language, "language", "l", "", "force the grammar: ts or tsx")
	cmd.Flags().StringVar(&flags.indent, "indent", "", "indentation unit for generated lines (default: detected)")
	cmd.Flags().StringVar(&flags.importSource, "import-source", "", "add an import of the used composition helpers from this module")
	cmd.Flags().BoolVar(&flags.runtimeProps, "runtime-props", false, "emit a runtime props option from @Prop arguments")
	cmd.Flags().BoolVar(&flags.diff, "diff", false, "print a unified diff instead of the converted file")
	cmd.Flags().BoolVar(&flags.check, "check", false, "exit with status 1 when the input would change")
	cmd.Flags().BoolVar(&flags.colorize, "color", false, "force colored output")
	cmd.Flags().BoolVar(&flags.nocolor, "no-color", false, "disable colored output")

	return cmd
}

func runConvert(cmd *cobra.Command, global *globalFlags, flags *convertFlags, input string) error {
	setColor(flags.colorize, flags.nocolor)

	lang, err := parseLanguage(flags.language)
	if err != nil {
		return err
	}

	rt, err := global.setup(cmd.ErrOrStderr(), observability.ModeCLI, nil)
	if err != nil {
		return err
	}
	defer rt.close()

	conv := rt.converter
	conv.Options.Language = lang

	if flags.indent != "" {
		conv.Options.Indent = flags.indent
	}

	if flags.importSource != "" {
		conv.Options.ImportSource = flags.importSource
	}

	conv.Options.RuntimeProps = conv.Options.RuntimeProps || flags.runtimeProps

	src, err := readInput(cmd.InOrStdin(), input)
	if err != nil {
		return err
	}

	name := input
	if input == stdinArg {
		name = flags.filename
	}

	res, err := conv.Convert(cmd.Context(), name, src)
	if err != nil {
		return err
	}

	if !global.quiet {
		printReports(cmd.ErrOrStderr(), name, res)
	}

	switch {
	case flags.check:
		if res.Changed {
			color.New(color.FgYellow).Fprintf(cmd.ErrOrStderr(), "%s would be converted\n", name)

			return ErrCheckFailed
		}

		return nil
	case flags.diff:
		printDiff(cmd.OutOrStdout(), textutil.UnifiedDiff(name, string(src), res.Code, textutil.DefaultContext))

		return nil
	default:
		return writeOutput(cmd.OutOrStdout(), flags.output, []byte(res.Code))
	}
}

func parseLanguage(lang string) (tsast.Language, error) {
	switch lang {
	case "":
		return "", nil
	case "ts", "typescript":
		return tsast.TypeScript, nil
	case "tsx":
		return tsast.TSX, nil
	}

	return "", fmt.Errorf("%w: %q", ErrUnsupportedLanguage, lang)
}

func setColor(colorize, nocolor bool) {
	if nocolor {
		color.NoColor = true //nolint:reassign // intentional override of library global
	} else if colorize {
		color.NoColor = false //nolint:reassign // intentional override of library global
	}
}

// printReports lists the converted components and their ignored members.
func printReports(w io.Writer, name string, res *convert.Result) {
	if len(res.Components) == 0 {
		color.New(color.Faint).Fprintf(w, "%s: no class components\n", name)

		return
	}

	for _, comp := range res.Components {
		counts := make([]string, 0, len(convert.Roles))

		for _, role := range convert.Roles {
			if n := comp.Roles[role]; n > 0 && role != convert.RoleIgnored {
				counts = append(counts, fmt.Sprintf("%s %d", role, n))
			}
		}

		compName := comp.Name
		if compName == "" {
			compName = "(anonymous)"
		}

		color.New(color.FgGreen).Fprintf(w, "%s:%d: converted %s", name, comp.Start.Line+1, compName)
		fmt.Fprintf(w, " (%s)\n", strings.Join(counts, ", "))

		for _, ign := range comp.Ignored {
			color.New(color.FgYellow).Fprintf(w, "  ignored %s\n", ign)
		}

		for _, m := range comp.Members {
			if m.Hint != "" {
				color.New(color.FgCyan).Fprintf(w, "  %s:%d: %s: %s\n", name, m.Start.Line+1, m.Name, m.Hint)
			}
		}
	}
}

// printDiff writes a unified diff with added lines in green and removed
// lines in red.
func printDiff(w io.Writer, diff string) {
	for line := range strings.SplitAfterSeq(diff, "\n") {
		if line == "" {
			continue
		}

		switch {
		case strings.HasPrefix(line, "+++"), strings.HasPrefix(line, "---"):
			color.New(color.Bold).Fprint(w, line)
		case strings.HasPrefix(line, "@@"):
			color.New(color.FgCyan).Fprint(w, line)
		case strings.HasPrefix(line, "+"):
			color.New(color.FgGreen).Fprint(w, line)
		case strings.HasPrefix(line, "-"):
			color.New(color.FgRed).Fprint(w, line)
		default:
			fmt.Fprint(w, line)
		}
	}
}
