package cli

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/shipmobile/mobctl/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Validate and inspect the project descriptors",
}

var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate .mobctl/ descriptors",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadProject()
		if err != nil {
			return err
		}

		errs := config.ValidateStore(cfg)
		if len(errs) == 0 {
			cmd.Println("Configuration is valid.")
			return nil
		}

		cmd.Println("Validation errors:")
		for _, e := range errs {
			cmd.Printf("  - %s\n", e)
		}
		return fmt.Errorf("config has %d validation error(s)", len(errs))
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the resolved project configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadProject()
		if err != nil {
			return err
		}

		w := cmd.OutOrStdout()
		fmt.Fprintf(w, "Project:  %s\n", cfg.ProjectDir)
		fmt.Fprintf(w, "App:      %s\n", cfg.Manifest.Name)
		fmt.Fprintf(w, "Android:  v%s (%d)\n", cfg.Manifest.Android.Version, cfg.Manifest.Android.Build)
		fmt.Fprintf(w, "iOS:      v%s (%d)\n", cfg.Manifest.IOS.Version, cfg.Manifest.IOS.Build)

		names := cfg.EnvironmentNames()
		sort.Strings(names)
		fmt.Fprintln(w, "Environments:")
		for _, name := range names {
			env, _ := cfg.Environment(name)
			fmt.Fprintf(w, "  %-12s %s://%s:%d\n", name, env.Protocol, env.Domain, env.Port)
		}

		// Secret values never get printed, only whether signing is set up.
		if cfg.HasCredentials() {
			fmt.Fprintln(w, "Signing:  configured")
		} else {
			fmt.Fprintln(w, "Signing:  not configured (debug builds only)")
		}
		return nil
	},
}

func init() {
	configCmd.AddCommand(configValidateCmd)
	configCmd.AddCommand(configShowCmd)
}
