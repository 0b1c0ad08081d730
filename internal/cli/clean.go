package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/shipmobile/mobctl/internal/config"
)

var cleanDeep bool

var cleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Remove build intermediates from the project tree",
	Long: `Clean removes native build output and generated files. With --deep it
also clears installed dependencies (node_modules, ios/Pods) and the local
gradle cache, forcing a full reinstall on the next build.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadProject()
		if err != nil {
			return err
		}

		targets := []string{
			filepath.Join("android", "app", "build"),
			filepath.Join("android", ".gradle"),
			filepath.Join("ios", "build"),
			config.EnvFileName,
		}
		if cleanDeep {
			targets = append(targets,
				"node_modules",
				filepath.Join("ios", "Pods"),
				filepath.Join("android", "build"),
			)
		}

		for _, target := range targets {
			path := filepath.Join(cfg.ProjectDir, target)
			if _, err := os.Stat(path); os.IsNotExist(err) {
				continue
			}
			if err := os.RemoveAll(path); err != nil {
				fmt.Fprintln(cmd.ErrOrStderr(), warnf("warning: remove %s: %v", target, err))
				continue
			}
			fmt.Fprintf(cmd.OutOrStdout(), "removed %s\n", target)
		}
		return nil
	},
}

func init() {
	cleanCmd.Flags().BoolVar(&cleanDeep, "deep", false, "also remove node_modules, Pods, and gradle caches")
}
