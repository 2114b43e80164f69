package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/bobmcallan/vire-digest/internal/app"
	"github.com/bobmcallan/vire-digest/internal/common"
)

// NewRunCmd creates the run command.
func NewRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Generate and deliver today's digest",
		Long: `Fetch recent news, generate the digest, extract and backfill its properties,
deliver it to every configured channel and write the run report.

The command exits non-zero when no news was found or every attempted
delivery failed. The run report is written in both cases.`,
		Args: cobra.NoArgs,
		RunE: runDigest,
	}

	cmd.Flags().Bool("quiet", false, "Do not print the digest to stdout")
	cmd.Flags().Bool("no-banner", false, "Do not print the startup banner")

	return cmd
}

func runDigest(cmd *cobra.Command, _ []string) error {
	opts, err := appOptions(cmd)
	if err != nil {
		return err
	}
	quiet, err := cmd.Flags().GetBool("quiet")
	if err != nil {
		return err
	}
	noBanner, err := cmd.Flags().GetBool("no-banner")
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.NewApp(ctx, opts)
	if err != nil {
		return fmt.Errorf("failed to initialize app: %w", err)
	}

	if !noBanner {
		common.PrintBanner(cmd.ErrOrStderr(), a.Config, a.Logger)
	}

	return printRun(ctx, cmd, a, quiet)
}

func printRun(ctx context.Context, cmd *cobra.Command, a *app.App, quiet bool) error {
	result, err := a.Run(ctx)

	if !quiet && result != nil && result.Digest != nil {
		fmt.Fprintln(cmd.OutOrStdout(), result.Digest.Markdown)
	}
	if result != nil && result.JSONPath != "" {
		fmt.Fprintf(cmd.ErrOrStderr(), "Run report: %s, %s\n", result.JSONPath, result.MarkdownPath)
	}

	return err
}
