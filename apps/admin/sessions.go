package main

import (
	"context"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

func (cli *commandLine) sessionsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "Inspect and purge persisted wizard sessions",
		RunE: func(cmd *cobra.Command, _ []string) error {
			_ = cmd.Usage()
			return errHelp
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List wizard sessions, most recently updated first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cli.listSessions(cmd)
		},
	})

	var idle time.Duration
	purgeCmd := &cobra.Command{
		Use:   "purge",
		Short: "Delete wizard sessions idle for longer than --idle",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cli.purgeSessions(cmd, idle)
		},
	}
	purgeCmd.Flags().DurationVar(&idle, "idle", 24*time.Hour, "idle duration after which a session is purged")
	cmd.AddCommand(purgeCmd)

	return cmd
}

func (cli *commandLine) listSessions(cmd *cobra.Command) error {
	snaps, err := cli.repo.List(context.Background())
	if err != nil {
		return errors.Wrap(err, "listing sessions")
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tOWNER\tMODE\tCONFERENCE\tSTEP\tUPDATED")
	for _, snap := range snaps {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d/%d\t%s\n",
			snap.ID, orDash(snap.Owner), snap.Mode, orDash(snap.ConferenceID),
			snap.CurrentStep, snap.MaxStep, snap.UpdatedAt.Format(time.RFC3339))
	}
	return w.Flush()
}

func (cli *commandLine) purgeSessions(cmd *cobra.Command, idle time.Duration) error {
	if idle <= 0 {
		return fmt.Errorf("--idle must be positive (got %s)", idle)
	}
	n, err := cli.repo.DeleteIdle(context.Background(), cli.nowFunc().Add(-idle))
	if err != nil {
		return errors.Wrap(err, "purging sessions")
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%d session(s) purged\n", n)
	return nil
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
