package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nao1215/wdcrawl/internal/rdf"
)

// NewConvertCmd creates the convert command.
// It re-runs the Turtle conversion standalone, for streams produced by
// interrupted crawls or by other tools.
func NewConvertCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "convert <input.nt>",
		Short: "Convert an N-Triples file to compact Turtle",
		Long: `Convert reads an N-Triples file and writes a compact Turtle version.

Statements are deduplicated and grouped by subject, with well-known
Wikidata prefixes declared only when used. Malformed lines are skipped
and counted rather than aborting the conversion, so partially written
streams from interrupted crawls convert cleanly.

Examples:
  # Write graph.ttl next to graph.nt
  wdcrawl convert graph.nt

  # Choose the output path
  wdcrawl convert -o compact.ttl graph.nt`,
		Args: cobra.ExactArgs(1),
		RunE: runConvertCmd,
	}

	cmd.Flags().StringP("output", "o", "",
		"Output file path (default: input path with .ttl extension)")

	return cmd
}

// runConvertCmd executes the convert command.
func runConvertCmd(cmd *cobra.Command, args []string) error {
	inputPath := args[0]

	outputPath, err := cmd.Flags().GetString("output")
	if err != nil {
		return err
	}
	if outputPath == "" {
		outputPath = turtlePathFor(inputPath)
	}

	result, err := rdf.DecodeFile(inputPath)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", inputPath, err)
	}

	f, err := os.OpenFile(outputPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	if err := result.Graph.WriteTurtle(f); err != nil {
		_ = f.Close() //nolint:errcheck // Write error takes precedence
		return fmt.Errorf("failed to write Turtle: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close output file: %w", err)
	}

	fmt.Printf("Converted %d statement(s) to %s", result.Parsed, outputPath)
	if result.Skipped > 0 {
		fmt.Printf(" (%d malformed line(s) skipped)", result.Skipped)
	}
	fmt.Println()

	return nil
}

// turtlePathFor derives the default output path by swapping the input's
// extension for .ttl.
func turtlePathFor(inputPath string) string {
	if stem, ok := strings.CutSuffix(inputPath, ".nt"); ok {
		return stem + ".ttl"
	}
	return inputPath + ".ttl"
}
