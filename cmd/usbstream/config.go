package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ardnew/usbstream/config"
)

func newConfigCommand(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration",
		Long: fmt.Sprintf(`Print the configuration after defaults, the configuration file and
%s_* environment variables are applied.`, config.EnvPrefix),
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			if root.cfg.File != "" {
				fmt.Fprintf(out, "# %s\n", root.cfg.File)
			}
			return root.cfg.WriteYAML(out)
		},
	}
}
