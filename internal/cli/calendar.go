package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/koyomi-dev/koyomi/internal/awscal"
	"github.com/koyomi-dev/koyomi/internal/config"
	"github.com/koyomi-dev/koyomi/internal/ics"
	"github.com/koyomi-dev/koyomi/internal/logging"
)

func calendarCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "calendar",
		Short: "Manage AWS SSM Change Calendar documents",
	}
	cmd.AddCommand(calendarCreateCmd())
	cmd.AddCommand(calendarUpdateCmd())
	cmd.AddCommand(calendarDeleteCmd())
	cmd.AddCommand(calendarListCmd())
	cmd.AddCommand(calendarStatusCmd())
	return cmd
}

// calendarContent resolves the ICS text for create/update: either a
// local file or a generated holiday calendar for the given year.
func calendarContent(cmd *cobra.Command, cfg *config.Config, file string, year int, excludeSundays bool) (string, error) {
	if file != "" {
		data, err := os.ReadFile(file)
		if err != nil {
			return "", err
		}
		return string(data), nil
	}

	if year == 0 {
		year = time.Now().Year()
	}
	provider := newHolidayProvider(cfg, logging.New("calendar"))
	holidays, err := provider.Range(cmd.Context(),
		time.Date(year, 1, 1, 0, 0, 0, 0, time.UTC),
		time.Date(year, 12, 31, 0, 0, 0, 0, time.UTC))
	if err != nil {
		return "", err
	}
	if len(holidays) == 0 {
		return "", fmt.Errorf("no holiday data for %d", year)
	}
	gen := ics.Generator{ExcludeSundays: excludeSundays}
	return gen.Encode(holidays)
}

func calendarCreateCmd() *cobra.Command {
	var (
		file           string
		year           int
		excludeSundays bool
	)
	cmd := &cobra.Command{
		Use:   "create NAME",
		Short: "Create a change calendar from a file or generated holidays",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			content, err := calendarContent(cmd, cfg, file, year, excludeSundays)
			if err != nil {
				return err
			}
			client, err := newRemote(cmd.Context(), cfg, logging.New("calendar"))
			if err != nil {
				return err
			}
			tagYear := year
			if tagYear == 0 {
				tagYear = time.Now().Year()
			}
			version, err := client.Create(cmd.Context(), args[0], content, awscal.DefaultTags(tagYear))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created %s (version %s)\n", args[0], version)
			return nil
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "ICS file to upload (default: generate holidays)")
	cmd.Flags().IntVar(&year, "year", 0, "holiday year when generating (default: current year)")
	cmd.Flags().BoolVar(&excludeSundays, "exclude-sundays", false, "skip holidays that fall on a Sunday")
	return cmd
}

func calendarUpdateCmd() *cobra.Command {
	var (
		file           string
		year           int
		excludeSundays bool
	)
	cmd := &cobra.Command{
		Use:   "update NAME",
		Short: "Replace the content of an existing change calendar",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			content, err := calendarContent(cmd, cfg, file, year, excludeSundays)
			if err != nil {
				return err
			}
			client, err := newRemote(cmd.Context(), cfg, logging.New("calendar"))
			if err != nil {
				return err
			}
			version, err := client.Update(cmd.Context(), args[0], content)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "updated %s (version %s)\n", args[0], version)
			return nil
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "ICS file to upload (default: generate holidays)")
	cmd.Flags().IntVar(&year, "year", 0, "holiday year when generating (default: current year)")
	cmd.Flags().BoolVar(&excludeSundays, "exclude-sundays", false, "skip holidays that fall on a Sunday")
	return cmd
}

func calendarDeleteCmd() *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "delete NAME",
		Short: "Delete a change calendar document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !force {
				return fmt.Errorf("refusing to delete %s without --force", args[0])
			}
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			client, err := newRemote(cmd.Context(), cfg, logging.New("calendar"))
			if err != nil {
				return err
			}
			if err := client.Delete(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", args[0])
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "confirm the deletion")
	return cmd
}

func calendarListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the change calendars in the account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			client, err := newRemote(cmd.Context(), cfg, logging.New("calendar"))
			if err != nil {
				return err
			}
			names, err := client.List(cmd.Context())
			if err != nil {
				return err
			}
			for _, name := range names {
				fmt.Fprintln(cmd.OutOrStdout(), name)
			}
			if len(names) == 0 {
				fmt.Fprintln(cmd.ErrOrStderr(), "no change calendars found")
			}
			return nil
		},
	}
}

func calendarStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status NAME",
		Short: "Show the current OPEN/CLOSED state of a change calendar",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			client, err := newRemote(cmd.Context(), cfg, logging.New("calendar"))
			if err != nil {
				return err
			}
			state, err := client.State(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", args[0], state)
			return nil
		},
	}
}
