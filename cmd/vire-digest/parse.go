package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/bobmcallan/vire-digest/internal/app"
	"github.com/bobmcallan/vire-digest/internal/models"
)

// parseOutput is the JSON document printed by the parse command
type parseOutput struct {
	Properties models.DigestProperties `json:"properties"`
	Blocks     []models.ContentBlock   `json:"blocks"`
}

// NewParseCmd creates the parse command.
func NewParseCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "parse [file]",
		Short: "Extract blocks and properties from a digest",
		Long: `Parse an existing digest markdown file (or stdin when no file is given)
and print its content blocks and extracted properties as JSON.

Use --backfill to fill market indicators missing from the text from the
configured quote sources.`,
		Args: cobra.MaximumNArgs(1),
		RunE: runParse,
	}

	cmd.Flags().Bool("backfill", false, "Backfill missing market indicators from quote sources")
	cmd.Flags().Bool("properties-only", false, "Print only the extracted properties")

	return cmd
}

func runParse(cmd *cobra.Command, args []string) error {
	opts, err := appOptions(cmd)
	if err != nil {
		return err
	}
	withBackfill, err := cmd.Flags().GetBool("backfill")
	if err != nil {
		return err
	}
	propsOnly, err := cmd.Flags().GetBool("properties-only")
	if err != nil {
		return err
	}

	text, err := readInput(cmd.InOrStdin(), args)
	if err != nil {
		return err
	}

	a, err := app.NewApp(cmd.Context(), opts)
	if err != nil {
		return fmt.Errorf("failed to initialize app: %w", err)
	}

	d := a.Parse(cmd.Context(), text, withBackfill)
	return writeParseOutput(cmd.OutOrStdout(), d, propsOnly)
}

// readInput reads the digest from the named file, or from stdin
func readInput(stdin io.Reader, args []string) (string, error) {
	if len(args) == 0 || args[0] == "-" {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return "", fmt.Errorf("failed to read stdin: %w", err)
		}
		return string(data), nil
	}

	data, err := os.ReadFile(args[0])
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", args[0], err)
	}
	return string(data), nil
}

func writeParseOutput(w io.Writer, d *models.Digest, propsOnly bool) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")

	if propsOnly {
		return enc.Encode(d.Properties)
	}
	blocks := d.Blocks
	if blocks == nil {
		blocks = []models.ContentBlock{}
	}
	return enc.Encode(parseOutput{Properties: d.Properties, Blocks: blocks})
}
