package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// FlagGroup names a set of flags shown together in help output.
type FlagGroup struct {
	Name  string
	Flags []string
}

// GlobalGroup lists the flags registered by AddGlobalFlags.
var GlobalGroup = FlagGroup{
	Name:  "GLOBAL OPTIONS",
	Flags: []string{"help", "version", "verbose", "quiet", "no-color", "config", "journal"},
}

// SetupGroupedHelp configures a command to display flags grouped by category
func SetupGroupedHelp(cmd *cobra.Command, groups ...FlagGroup) {
	originalHelpFunc := cmd.HelpFunc()
	cmd.SetHelpFunc(func(cmd *cobra.Command, args []string) {
		// First print the original help without flags
		cmd.Flags().VisitAll(func(flag *pflag.Flag) {
			flag.Hidden = true
		})
		originalHelpFunc(cmd, args)
		cmd.Flags().VisitAll(func(flag *pflag.Flag) {
			flag.Hidden = false
		})

		w := cmd.OutOrStdout()
		fmt.Fprintln(w, "\nFlags:")
		for _, g := range groups {
			printFlagGroup(w, cmd, g)
		}

		fmt.Fprintln(w, "\nEnvironment Variables:")
		fmt.Fprintln(w, "  SRAFETCH_CONFIG        Config file (default: ./srafetch.yaml, then ~/.config/srafetch/config.yaml)")
		fmt.Fprintln(w, "  SRAFETCH_CONFIG_HOME   Configuration directory (default: ~/.config/srafetch)")
		fmt.Fprintln(w, "  SRAFETCH_JOURNAL_PATH  Journal database used when the config enables the journal")
		fmt.Fprintln(w, "  NO_COLOR               Disable colored output")
	})
}

// printFlagGroup prints a group of flags with a header
func printFlagGroup(w io.Writer, cmd *cobra.Command, group FlagGroup) {
	var flags []*pflag.Flag
	for _, name := range group.Flags {
		if flag := cmd.Flags().Lookup(name); flag != nil && !flag.Hidden {
			flags = append(flags, flag)
		}
	}

	if len(flags) == 0 {
		return
	}

	fmt.Fprintf(w, "\n%s:\n", group.Name)
	for _, flag := range flags {
		shorthand := ""
		if flag.Shorthand != "" {
			shorthand = fmt.Sprintf("-%s, ", flag.Shorthand)
		}

		flagLine := fmt.Sprintf("  %s--%s", shorthand, flag.Name)

		typeStr := ""
		switch flag.Value.Type() {
		case "string":
			if flag.DefValue != "" {
				typeStr = fmt.Sprintf(" string (default %q)", flag.DefValue)
			} else {
				typeStr = " string"
			}
		case "stringSlice":
			typeStr = " strings"
		case "bool":
			typeStr = ""
		default:
			if flag.DefValue != "" && flag.DefValue != "[]" {
				typeStr = fmt.Sprintf(" (default %s)", flag.DefValue)
			}
		}

		// Ensure proper alignment
		padding := 40 - len(flagLine) - len(typeStr)
		if padding < 1 {
			padding = 1
		}

		fmt.Fprintf(w, "%s%s%s%s\n", flagLine, typeStr, strings.Repeat(" ", padding), flag.Usage)
	}
}
