package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/shipmobile/mobctl/internal/device"
	"github.com/shipmobile/mobctl/internal/pipeline"
)

var openCmd = &cobra.Command{
	Use:   "open <platform>",
	Short: "Boot an emulator or simulator",
	Long: `Open boots the first available emulator (android) or simulator (ios)
and waits for it to finish booting. An already-running device is reused.
If nothing boots within the wait ceiling, a warning is printed and the
command exits cleanly.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		platform, err := pipeline.ParsePlatform(args[0])
		if err != nil {
			return err
		}

		manager := newDeviceManager(os.Stderr)
		target, err := manager.Boot(cmd.Context(), platform)
		if err != nil {
			// Timeouts and missing tooling are warnings, not failures:
			// the user can still build without a device attached.
			if errors.Is(err, device.ErrNoDevice) {
				fmt.Fprintln(cmd.ErrOrStderr(), warnf("no %s device available", platform))
				return nil
			}
			return err
		}

		fmt.Fprintln(cmd.OutOrStdout(), okf("%s (%s) is up", target.Name, target.ID))
		return nil
	},
}
