package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/devduo/studio-backend/database"
	"github.com/devduo/studio-backend/errs"
	"github.com/devduo/studio-backend/kvstore"
)

func (s *cli) statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show which backend holds the projects and how much local storage is used",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if err := s.open(ctx); err != nil {
				return err
			}
			a := s.app

			backend := "local"
			if a.Store.UsingRemote() {
				backend = "remote (" + string(database.ConfigFrom(a.Config).Driver) + ")"
			}
			used := "N/A"
			if bytes, err := kvstore.Usage(ctx, a.Local); err == nil {
				used = kvstore.FormatUsage(bytes)
			}
			session := s.gate.User(ctx)
			if session == "" {
				session = "anonymous"
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintf(w, "Backend:\t%s\n", backend)
			fmt.Fprintf(w, "Projects:\t%d\n", len(a.Store.Projects()))
			fmt.Fprintf(w, "Local storage:\t%s\n", used)
			fmt.Fprintf(w, "Session:\t%s\n", session)
			if a.RemoteErr != nil {
				fmt.Fprintf(w, "Remote error:\t%v\n", a.RemoteErr)
			}
			if msg := a.Store.Err(); msg != "" {
				fmt.Fprintf(w, "Last error:\t%s\n", msg)
			}
			return w.Flush()
		},
	}
}

func (s *cli) dbCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "db",
		Short: "Inspect the remote SQL database",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "columns",
		Short: "Compare the projects table with the columns the service maps",
		Long: `Compare the live projects table with the columns the service reads and writes. Nothing is
migrated; the command only reports. It exits with an error when the table drifted.

Examples:
  DB_TYPE=postgres studioctl db columns`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := s.open(cmd.Context()); err != nil {
				return err
			}
			if s.app.RemoteErr != nil {
				return s.app.RemoteErr
			}
			if s.app.Database == nil || s.app.Database.DB() == nil {
				return errs.NewConfigError("DB_TYPE", fmt.Errorf("no SQL database configured"))
			}

			report, err := database.GenerateColumnReport(s.app.Database.DB())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if !report.Exists {
				fmt.Fprintf(out, "Table %s does not exist. Missing columns: %s\n", report.Table, strings.Join(report.Missing, ", "))
				return fmt.Errorf("table %s is missing", report.Table)
			}
			if report.Clean() {
				fmt.Fprintf(out, "Table %s matches the project model\n", report.Table)
				return nil
			}
			if len(report.Unmapped) > 0 {
				fmt.Fprintf(out, "Unmapped columns: %s\n", strings.Join(report.Unmapped, ", "))
			}
			if len(report.Missing) > 0 {
				fmt.Fprintf(out, "Missing columns: %s\n", strings.Join(report.Missing, ", "))
			}
			return fmt.Errorf("table %s has drifted from the project model", report.Table)
		},
	})
	return cmd
}
