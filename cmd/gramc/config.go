package main

import (
	"os"

	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:     "config",
		Short:   "Print the effective config in TOML",
		Example: `  gramc config --config gramc.toml`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return appConfig.Encode(os.Stdout)
		},
	}
	rootCmd.AddCommand(cmd)
}
