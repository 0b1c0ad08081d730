// Package cli wires the cobra command tree. Commands stay thin: they parse
// flags, assemble collaborators, and delegate to the orchestrator and the
// other internal packages.
package cli

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/shipmobile/mobctl/internal/cleanup"
)

var version = "dev"

func SetVersion(v string) {
	version = v
}

// registry is the process-wide compensation registry. Build commands hand it
// to the orchestrator; the signal handler drains it so an interrupted build
// still restores what it touched.
var registry = cleanup.New(os.Stderr)

var debugFlag bool

var rootCmd = &cobra.Command{
	Use:   "mobctl",
	Short: "mobctl — build and deploy react-native apps",
	Long: `mobctl drives the native Android and iOS toolchains through repeatable
build pipelines: environment injection, version stamping, signing, bundling,
compilation, and artifact export, with automatic rollback of every transient
change to the project tree.

Project descriptors live in .mobctl/ (environments.yml, app.yml, and the
untracked credentials.yml). Build history is stored under ~/.mobctl/.`,
}

func Execute() error {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-ch
		registry.Execute()
		os.Exit(130)
	}()

	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&debugFlag, "debug", false, "print diagnostic detail on failure")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(buildCmd)
	rootCmd.AddCommand(startCmd)
	rootCmd.AddCommand(installCmd)
	rootCmd.AddCommand(devicesCmd)
	rootCmd.AddCommand(openCmd)
	rootCmd.AddCommand(cleanCmd)
	rootCmd.AddCommand(buildsCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(dbCmd)
}
