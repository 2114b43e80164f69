package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bobmcallan/vire-digest/internal/common"
)

// NewVersionCmd creates the version command.
func NewVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Long:  `Print the version, build and commit of vire-digest.`,
		Run: func(cmd *cobra.Command, _ []string) {
			common.LoadVersionFromBuildInfo()
			fmt.Fprintf(cmd.OutOrStdout(), "vire-digest version %s\n", common.GetFullVersion())
		},
	}
}
