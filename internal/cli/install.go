package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/shipmobile/mobctl/internal/device"
	"github.com/shipmobile/mobctl/internal/orchestrator"
	"github.com/shipmobile/mobctl/internal/toolchain"
)

var (
	installDevice   string
	installArtifact string
)

var installCmd = &cobra.Command{
	Use:   "install <platform> [environment]",
	Short: "Install a built artifact on a device or simulator",
	Long: `Install pushes an artifact onto a connected device. Without --artifact
the most recent successful build for the platform (and environment, when
given) is used.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadProject()
		if err != nil {
			return err
		}

		environment := ""
		if len(args) == 2 {
			environment = args[1]
		}

		o := orchestrator.New(orchestrator.Options{
			Store:    cfg,
			Runner:   toolchain.NewExecRunner(),
			Registry: registry,
			Devices:  newDeviceManager(os.Stderr),
			History:  openHistory(),
			Progress: cmd.OutOrStdout(),
		})

		target, artifact, err := o.Install(cmd.Context(), orchestrator.InstallOpts{
			Platform:    args[0],
			Environment: environment,
			DeviceID:    installDevice,
			Artifact:    installArtifact,
		})
		if err != nil {
			if errors.Is(err, device.ErrNoDevice) {
				fmt.Fprintln(cmd.ErrOrStderr(), warnf("no device available; connect one or run `mobctl open %s`", args[0]))
			}
			return err
		}

		fmt.Fprintln(cmd.OutOrStdout(), okf("installed %s on %s", artifact, target.Name))
		return nil
	},
}

func init() {
	installCmd.Flags().StringVar(&installDevice, "device", "", "target device id (default: first online device)")
	installCmd.Flags().StringVar(&installArtifact, "artifact", "", "artifact path (default: latest successful build)")
}
