// Package cli implements the koyomi command tree.
package cli

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/koyomi-dev/koyomi/internal/awscal"
	"github.com/koyomi-dev/koyomi/internal/config"
	"github.com/koyomi-dev/koyomi/internal/holiday"
	"github.com/koyomi-dev/koyomi/internal/logging"
	"github.com/koyomi-dev/koyomi/internal/report"
)

var (
	flagConfig  string
	flagRegion  string
	flagProfile string
	flagNoColor bool
	flagFormat  string
)

// Execute builds the command tree and runs it.
func Execute() error {
	c := &cobra.Command{
		Use:   "koyomi",
		Short: "Compare calendar files and manage AWS SSM Change Calendars",
		Long: "koyomi ingests Japanese national holidays, generates AWS SSM Change\n" +
			"Calendar documents and semantically compares calendar files.",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Usage()
		},
	}

	c.PersistentFlags().StringVar(&flagConfig, "config", "", "path to the configuration file")
	c.PersistentFlags().StringVar(&flagRegion, "region", "", "AWS region (overrides config)")
	c.PersistentFlags().StringVar(&flagProfile, "profile", "", "AWS profile (overrides config)")
	c.PersistentFlags().BoolVar(&flagNoColor, "no-color", false, "disable colored output")
	c.PersistentFlags().StringVar(&flagFormat, "format", "", "output format: summary, full or json")

	c.AddCommand(compareCmd())
	c.AddCommand(remoteDiffCmd())
	c.AddCommand(analyzeCmd())
	c.AddCommand(holidaysCmd())
	c.AddCommand(exportCmd())
	c.AddCommand(calendarCmd())
	c.AddCommand(serveCmd())

	err := c.Execute()
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
	}
	return err
}

// loadConfig reads the config file and applies the persistent flag
// overrides.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(flagConfig)
	if err != nil {
		return nil, err
	}
	if flagRegion != "" {
		cfg.AWS.Region = flagRegion
	}
	if flagProfile != "" {
		cfg.AWS.Profile = flagProfile
	}
	if flagNoColor {
		cfg.Output.Color = false
	}
	if flagFormat != "" {
		cfg.Output.Format = flagFormat
	}
	return cfg, nil
}

func reportOptions(cfg *config.Config) (report.Options, error) {
	var style report.Style
	switch strings.ToLower(cfg.Output.Format) {
	case "summary", "":
		style = report.StyleSummary
	case "full":
		style = report.StyleFull
	case "json":
		style = report.StyleJSON
	default:
		return report.Options{}, fmt.Errorf("unknown format %q, want summary, full or json", cfg.Output.Format)
	}
	return report.Options{Style: style, Color: cfg.Output.Color}, nil
}

func newRemote(ctx context.Context, cfg *config.Config, logger logging.Logger) (*awscal.Client, error) {
	return awscal.New(ctx, cfg.AWS.Region, cfg.AWS.Profile, logger)
}

func newHolidayProvider(cfg *config.Config, logger logging.Logger) *holiday.Provider {
	hcfg := holiday.DefaultConfig()
	hcfg.CacheDir = cfg.CacheDir
	return holiday.New(hcfg, logger)
}
