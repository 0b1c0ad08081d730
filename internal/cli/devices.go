package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var devicesCmd = &cobra.Command{
	Use:   "devices",
	Short: "List connected devices, emulators, and simulators",
	RunE: func(cmd *cobra.Command, args []string) error {
		manager := newDeviceManager(os.Stderr)
		devices, err := manager.List(cmd.Context())
		if err != nil {
			return err
		}

		if len(devices) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No devices found.")
			return nil
		}

		w := cmd.OutOrStdout()
		fmt.Fprintf(w, "%-10s %-42s %-10s %s\n", "PLATFORM", "ID", "STATE", "NAME")
		for _, d := range devices {
			state := d.State
			if d.Online() {
				state = okf("%s", d.State)
			}
			fmt.Fprintf(w, "%-10s %-42s %-10s %s\n", d.Platform, d.ID, state, d.Name)
		}
		return nil
	},
}
