package cli

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/koyomi-dev/koyomi/internal/holiday"
	"github.com/koyomi-dev/koyomi/internal/logging"
)

func holidaysCmd() *cobra.Command {
	var year int
	var refresh bool
	cmd := &cobra.Command{
		Use:   "holidays",
		Short: "List Japanese national holidays from the Cabinet Office data",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			provider := newHolidayProvider(cfg, logging.New("holidays"))
			ctx := cmd.Context()

			if refresh {
				if err := provider.Refresh(ctx); err != nil {
					return err
				}
			}

			var list []holiday.Holiday
			if year != 0 {
				list, err = provider.Range(ctx,
					time.Date(year, 1, 1, 0, 0, 0, 0, time.UTC),
					time.Date(year, 12, 31, 0, 0, 0, 0, time.UTC))
			} else {
				list, err = provider.All(ctx)
			}
			if err != nil {
				return err
			}

			if strings.EqualFold(cfg.Output.Format, "json") {
				type holidayJSON struct {
					Date string `json:"date"`
					Name string `json:"name"`
				}
				out := make([]holidayJSON, 0, len(list))
				for _, h := range list {
					out = append(out, holidayJSON{Date: h.Date.Format("2006-01-02"), Name: h.Name})
				}
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(out)
			}

			for _, h := range list {
				fmt.Fprintf(cmd.OutOrStdout(), "%s (%s)  %s\n", h.Date.Format("2006-01-02"), h.Date.Weekday().String()[:3], h.Name)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d holiday(s)\n", len(list))
			return nil
		},
	}
	cmd.Flags().IntVar(&year, "year", 0, "limit to one year")
	cmd.Flags().BoolVar(&refresh, "refresh", false, "bypass the cache and refetch the source data")
	return cmd
}
