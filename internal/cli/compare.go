package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/koyomi-dev/koyomi/internal/diff"
	"github.com/koyomi-dev/koyomi/internal/event"
	"github.com/koyomi-dev/koyomi/internal/ics"
	"github.com/koyomi-dev/koyomi/internal/report"
)

func compareCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "compare OLD.ics NEW.ics",
		Short:   "Semantically compare two calendar files",
		Example: "  koyomi compare prod-2024.ics prod-2025.ics --format full",
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			opts, err := reportOptions(cfg)
			if err != nil {
				return err
			}

			oldSet, oldDiags, err := parseFile(args[0])
			if err != nil {
				return fmt.Errorf("comparison could not run: %w", err)
			}
			newSet, newDiags, err := parseFile(args[1])
			if err != nil {
				return fmt.Errorf("comparison could not run: %w", err)
			}
			printDiagnostics(cmd.ErrOrStderr(), oldDiags, newDiags)

			res := diff.Compare(oldSet, newSet)
			out, err := report.Format(res, opts)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), out)
			return nil
		},
	}
}

// parseFile reads and parses one ICS file. The file name is kept as the
// set identity so reports and errors always name their source.
func parseFile(path string) (event.Set, []ics.Diagnostic, error) {
	f, err := os.Open(path)
	if err != nil {
		return event.Set{}, nil, err
	}
	defer f.Close()
	return ics.Parse(path, f)
}

// printDiagnostics reports skipped events on stderr so stdout stays
// machine-parseable.
func printDiagnostics(w io.Writer, groups ...[]ics.Diagnostic) {
	n := 0
	for _, diags := range groups {
		for _, d := range diags {
			fmt.Fprintln(w, "warning:", d.String())
			n++
		}
	}
	if n > 0 {
		fmt.Fprintf(w, "comparison ran with %d skipped event(s)\n", n)
	}
}
