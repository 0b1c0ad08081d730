package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/shipmobile/mobctl/internal/store"
)

var buildsStatusFilter string

var buildsCmd = &cobra.Command{
	Use:   "builds",
	Short: "Inspect build history",
}

var buildsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List past builds",
	RunE: func(cmd *cobra.Command, args []string) error {
		history, err := store.DefaultStore()
		if err != nil {
			return fmt.Errorf("open build history: %w", err)
		}

		builds, err := history.List(buildsStatusFilter)
		if err != nil {
			return fmt.Errorf("list builds: %w", err)
		}
		if len(builds) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No builds found.")
			return nil
		}

		w := cmd.OutOrStdout()
		fmt.Fprintf(w, "%-22s %-9s %-10s %-7s %-10s %-20s %s\n", "ID", "PLATFORM", "ENV", "TYPE", "STATUS", "STARTED", "VERSION")
		for _, b := range builds {
			fmt.Fprintf(w, "%-22s %-9s %-10s %-7s %-10s %-20s v%s (%d)\n",
				b.ID, b.Platform, b.Environment, b.BuildType, colorStatus(b.Status), b.StartedAt, b.Version, b.BuildNumber)
		}
		return nil
	},
}

var buildsShowCmd = &cobra.Command{
	Use:   "show <build-id>",
	Short: "Show one build in detail",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		history, err := store.DefaultStore()
		if err != nil {
			return fmt.Errorf("open build history: %w", err)
		}

		b, err := history.Get(args[0])
		if err != nil {
			return err
		}

		w := cmd.OutOrStdout()
		fmt.Fprintf(w, "Build:       %s\n", b.ID)
		fmt.Fprintf(w, "App:         %s v%s (%d)\n", b.AppName, b.Version, b.BuildNumber)
		fmt.Fprintf(w, "Target:      %s %s %s\n", b.Platform, b.Environment, b.BuildType)
		fmt.Fprintf(w, "Status:      %s\n", colorStatus(b.Status))
		fmt.Fprintf(w, "Started:     %s\n", b.StartedAt)
		if b.FinishedAt != "" {
			fmt.Fprintf(w, "Finished:    %s\n", b.FinishedAt)
		}
		if b.Artifact != "" {
			fmt.Fprintf(w, "Artifact:    %s\n", b.Artifact)
		}
		if b.Error != "" {
			fmt.Fprintf(w, "Error:       %s\n", b.Error)
		}
		return nil
	},
}

var buildsDeleteCmd = &cobra.Command{
	Use:   "delete <build-id>",
	Short: "Delete a build from history",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		history, err := store.DefaultStore()
		if err != nil {
			return fmt.Errorf("open build history: %w", err)
		}

		if err := history.Delete(args[0]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Deleted build %s from %s\n", args[0], history.BaseDir())
		return nil
	},
}

func colorStatus(status string) string {
	switch status {
	case store.StatusSucceeded:
		return okf("%s", status)
	case store.StatusFailed:
		return failf("%s", status)
	default:
		return status
	}
}

func init() {
	buildsListCmd.Flags().StringVar(&buildsStatusFilter, "status", "", "filter by status ("+strings.Join([]string{store.StatusRunning, store.StatusSucceeded, store.StatusFailed}, "|")+")")
	buildsCmd.AddCommand(buildsListCmd)
	buildsCmd.AddCommand(buildsShowCmd)
	buildsCmd.AddCommand(buildsDeleteCmd)
}
