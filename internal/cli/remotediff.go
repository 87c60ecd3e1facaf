package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/koyomi-dev/koyomi/internal/diff"
	"github.com/koyomi-dev/koyomi/internal/event"
	"github.com/koyomi-dev/koyomi/internal/ics"
	"github.com/koyomi-dev/koyomi/internal/logging"
	"github.com/koyomi-dev/koyomi/internal/report"
	"github.com/koyomi-dev/koyomi/internal/store"
)

func remoteDiffCmd() *cobra.Command {
	var against string
	cmd := &cobra.Command{
		Use:   "remote-diff CALENDAR",
		Short: "Diff a remote change calendar against its last snapshot or a local file",
		Long: "Fetches the named SSM Change Calendar, records a snapshot, and\n" +
			"compares it against the previously recorded snapshot. With --against,\n" +
			"compares against a local ICS file instead.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			opts, err := reportOptions(cfg)
			if err != nil {
				return err
			}
			logger := logging.New("remote-diff")
			ctx := cmd.Context()

			remote, err := newRemote(ctx, cfg, logger)
			if err != nil {
				return err
			}
			name := args[0]
			cal, err := remote.GetCalendar(ctx, name)
			if err != nil {
				return err
			}
			newSet, newDiags, err := ics.Parse(name, strings.NewReader(cal.Content))
			if err != nil {
				return fmt.Errorf("comparison could not run: %w", err)
			}

			var oldSet event.Set
			var oldDiags []ics.Diagnostic
			if against != "" {
				oldSet, oldDiags, err = parseFile(against)
				if err != nil {
					return fmt.Errorf("comparison could not run: %w", err)
				}
			} else {
				oldSet, oldDiags, err = snapshotSide(ctx, cfg.StorePath, name, cal.Content, cal.State, newSet.Len(), logger)
				if err != nil {
					return err
				}
				if oldSet.Name == "" {
					fmt.Fprintf(cmd.OutOrStdout(), "first snapshot of %s recorded (%d events), nothing to diff yet\n", name, newSet.Len())
					return nil
				}
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
	cmd.Flags().StringVar(&against, "against", "", "local ICS file to use as the old side")
	return cmd
}

// snapshotSide records the freshly fetched calendar and returns the
// previous snapshot parsed as the old side. An empty set name signals
// that this was the first snapshot.
func snapshotSide(ctx context.Context, storePath, name, content, state string, eventCount int, logger logging.Logger) (event.Set, []ics.Diagnostic, error) {
	st, err := store.Open(storePath, logger)
	if err != nil {
		return event.Set{}, nil, err
	}
	defer st.Close()

	prev, err := st.Latest(ctx, name)
	if err != nil && !errors.Is(err, store.ErrNoSnapshot) {
		return event.Set{}, nil, err
	}
	if _, err := st.Record(ctx, name, content, state, eventCount); err != nil {
		return event.Set{}, nil, err
	}
	if prev == nil {
		return event.Set{}, nil, nil
	}

	label := name + "@" + prev.FetchedAt.Format(time.RFC3339)
	set, diags, err := ics.Parse(label, strings.NewReader(prev.Content))
	if err != nil {
		return event.Set{}, nil, fmt.Errorf("previous snapshot: %w", err)
	}
	return set, diags, nil
}
