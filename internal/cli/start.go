package cli

import (
	"github.com/spf13/cobra"

	"github.com/shipmobile/mobctl/internal/bundler"
	"github.com/shipmobile/mobctl/internal/toolchain"
)

var (
	startPort       int
	startResetCache bool
)

var startCmd = &cobra.Command{
	Use:   "start <environment>",
	Short: "Run the JS dev server against an environment",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadProject()
		if err != nil {
			return err
		}

		srv := bundler.NewServer(toolchain.NewExecRunner(), cfg, cmd.OutOrStdout(), cmd.ErrOrStderr())
		return srv.Start(cmd.Context(), bundler.StartOpts{
			Environment: args[0],
			Port:        startPort,
			ResetCache:  startResetCache,
		})
	},
}

func init() {
	startCmd.Flags().IntVar(&startPort, "port", bundler.DefaultPort, "dev server port")
	startCmd.Flags().BoolVar(&startResetCache, "reset-cache", false, "clear the bundler cache on startup")
}
