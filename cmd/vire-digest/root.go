package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/bobmcallan/vire-digest/internal/app"
	"github.com/bobmcallan/vire-digest/internal/common"
)

// NewRootCmd creates the root command for vire-digest.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "vire-digest",
		Short: "Pre-market trading digest generator",
		Long: `vire-digest builds a daily trading digest from the last day of market news.
It generates the digest with Gemini, extracts market properties from it,
backfills missing indicators from quote APIs and delivers the result to
Slack, email and Notion, writing a run report for every run.`,
		Version:       common.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().String("config-dir", "", "Config directory (default $DIGEST_CONFIG_DIR or ./config)")
	cmd.PersistentFlags().String("profile", "", "Config profile overlay (default from config or $DIGEST_PROFILE)")

	cmd.AddCommand(NewRunCmd())
	cmd.AddCommand(NewParseCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// appOptions reads the persistent config flags
func appOptions(cmd *cobra.Command) (app.Options, error) {
	dir, err := cmd.Flags().GetString("config-dir")
	if err != nil {
		return app.Options{}, err
	}
	profile, err := cmd.Flags().GetString("profile")
	if err != nil {
		return app.Options{}, err
	}
	return app.Options{ConfigDir: dir, Profile: profile}, nil
}
