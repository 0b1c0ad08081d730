package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/shipmobile/mobctl/internal/db"
)

var dbCmd = &cobra.Command{
	Use:   "db",
	Short: "Event log management",
}

func openEventDB() (*db.DB, error) {
	path, err := db.DefaultDBPath()
	if err != nil {
		return nil, err
	}
	return db.Open(path)
}

var dbMigrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply event log schema migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := openEventDB()
		if err != nil {
			return err
		}
		defer d.Close()

		if err := d.Migrate(); err != nil {
			return err
		}
		cmd.Println("Schema is up to date.")
		return nil
	},
}

var dbResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Reset the event log (destructive!)",
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := openEventDB()
		if err != nil {
			return err
		}
		defer d.Close()

		if err := d.Reset(); err != nil {
			return err
		}
		cmd.Println("Event log reset.")
		return nil
	},
}

var dbPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the event log path",
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := db.DefaultDBPath()
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), path)
		return nil
	},
}

var dbRecentCmd = &cobra.Command{
	Use:   "recent",
	Short: "Show recent build outcomes from the event log",
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := openEventDB()
		if err != nil {
			return err
		}
		defer d.Close()
		if err := d.Migrate(); err != nil {
			return err
		}

		events, err := d.RecentBuilds(20)
		if err != nil {
			return err
		}
		if len(events) == 0 {
			cmd.Println("No builds recorded.")
			return nil
		}

		w := cmd.OutOrStdout()
		fmt.Fprintf(w, "%-22s %-9s %-10s %-10s %s\n", "BUILD", "PLATFORM", "ENV", "OUTCOME", "WHEN")
		for _, e := range events {
			fmt.Fprintf(w, "%-22s %-9s %-10s %-10s %s\n", e.BuildID, e.Platform, e.Environment, e.Event, e.Timestamp)
		}
		return nil
	},
}

func init() {
	dbCmd.AddCommand(dbMigrateCmd)
	dbCmd.AddCommand(dbResetCmd)
	dbCmd.AddCommand(dbPathCmd)
	dbCmd.AddCommand(dbRecentCmd)
}
