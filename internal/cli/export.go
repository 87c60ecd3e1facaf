package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/koyomi-dev/koyomi/internal/ics"
	"github.com/koyomi-dev/koyomi/internal/logging"
)

func exportCmd() *cobra.Command {
	var (
		year           int
		output         string
		excludeSundays bool
	)
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Generate an AWS Change Calendar ICS file of Japanese holidays",
		Example: "  koyomi export --year 2026 --output jp-holidays-2026.ics\n" +
			"  koyomi export --year 2026 --exclude-sundays",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			provider := newHolidayProvider(cfg, logging.New("export"))
			ctx := cmd.Context()

			if year == 0 {
				year = time.Now().Year()
			}
			holidays, err := provider.Range(ctx,
				time.Date(year, 1, 1, 0, 0, 0, 0, time.UTC),
				time.Date(year, 12, 31, 0, 0, 0, 0, time.UTC))
			if err != nil {
				return err
			}
			if len(holidays) == 0 {
				return fmt.Errorf("no holiday data for %d", year)
			}

			gen := ics.Generator{ExcludeSundays: excludeSundays}
			text, err := gen.Encode(holidays)
			if err != nil {
				return err
			}

			if output == "" {
				output = filepath.Join(cfg.Output.Directory, fmt.Sprintf("jp-holidays-%d.ics", year))
			}
			if output == "-" {
				fmt.Fprint(cmd.OutOrStdout(), text)
				return nil
			}
			if err := os.WriteFile(output, []byte(text), 0o644); err != nil {
				return fmt.Errorf("writing calendar: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s (%d holidays)\n", output, len(holidays))
			return nil
		},
	}
	cmd.Flags().IntVar(&year, "year", 0, "calendar year (default: current year)")
	cmd.Flags().StringVar(&output, "output", "", "output path, or - for stdout")
	cmd.Flags().BoolVar(&excludeSundays, "exclude-sundays", false, "skip holidays that fall on a Sunday")
	return cmd
}
