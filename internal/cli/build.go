package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/shipmobile/mobctl/internal/orchestrator"
	"github.com/shipmobile/mobctl/internal/pipeline"
	"github.com/shipmobile/mobctl/internal/toolchain"
)

var buildCmd = &cobra.Command{
	Use:   "build <platform> <environment> <build-type>",
	Short: "Build an app artifact for a platform and environment",
	Long: `Build runs the full pipeline for the given platform (android|ios),
environment (as defined in .mobctl/environments.yml), and build type
(debug|prod). Prod builds sign with the material from .mobctl/credentials.yml
and produce a store-uploadable artifact; every transient change the pipeline
makes to the tree is rolled back when the build ends, pass or fail.`,
	Args: cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadProject()
		if err != nil {
			return err
		}

		events := openEvents()
		if events != nil {
			defer events.Close()
		}

		o := orchestrator.New(orchestrator.Options{
			Store:    cfg,
			Runner:   toolchain.NewExecRunner(),
			Registry: registry,
			History:  openHistory(),
			Events:   events,
			Progress: cmd.OutOrStdout(),
			ToolOut:  os.Stderr,
		})

		result, err := o.Build(cmd.Context(), orchestrator.BuildOpts{
			Platform:    args[0],
			Environment: args[1],
			BuildType:   args[2],
		})
		if err != nil {
			if debugFlag {
				var stepErr *pipeline.StepError
				if errors.As(err, &stepErr) {
					fmt.Fprintln(cmd.ErrOrStderr(), failf("build failed at step %q on %s: %v", stepErr.Step, stepErr.Platform, stepErr.Err))
					return err
				}
			}
			return err
		}

		fmt.Fprintln(cmd.OutOrStdout(), okf("build %s succeeded", result.Build.BuildID))
		fmt.Fprintf(cmd.OutOrStdout(), "artifact: %s\n", result.Artifact)
		return nil
	},
}
