package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check the configuration and cohorts without solving",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		in, err := cfg.Input()
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "ok: %d cohorts over %d hours\n", len(in.Cohorts), in.Horizon)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}
