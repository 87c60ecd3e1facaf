package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/koyomi-dev/koyomi/internal/report"
)

func analyzeCmd() *cobra.Command {
	var csvPath string
	cmd := &cobra.Command{
		Use:   "analyze FILE.ics",
		Short: "Summarize a calendar file: event counts, date range, categories",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			opts, err := reportOptions(cfg)
			if err != nil {
				return err
			}

			set, diags, err := parseFile(args[0])
			if err != nil {
				return fmt.Errorf("analysis could not run: %w", err)
			}

			stats := report.Summarize(set, diags)
			out, err := report.FormatStats(stats, opts.Style)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), out)

			if csvPath != "" {
				rows, err := report.EventsCSV(set)
				if err != nil {
					return err
				}
				if err := os.WriteFile(csvPath, []byte(rows), 0o644); err != nil {
					return fmt.Errorf("writing event CSV: %w", err)
				}
				fmt.Fprintf(cmd.ErrOrStderr(), "wrote %s\n", csvPath)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&csvPath, "csv", "", "also write the event list as CSV to this path")
	return cmd
}
