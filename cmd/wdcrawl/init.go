package main

import (
	"embed"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/nao1215/wdcrawl/internal/config"
)

//go:embed templates/wdcrawl.yaml
var presetTemplate embed.FS

// NewInitCmd creates the init command.
func NewInitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize a new wdcrawl preset file",
		Long: `Init creates a new .wdcrawl preset file in the current directory.

The generated file includes:
- A defaults section applied to every preset
- Commented example presets for common crawl shapes
- Documentation for all available options

Examples:
  # Create .wdcrawl in current directory
  wdcrawl init

  # Create preset file at a specific path
  wdcrawl init -o mypresets.yaml

  # Force overwrite existing file
  wdcrawl init -f`,
		RunE: runInitCmd,
	}

	cmd.Flags().StringP("output", "o", config.DefaultPresetFile,
		"Output file path for the preset file")
	cmd.Flags().BoolP("force", "f", false,
		"Overwrite existing preset file")

	return cmd
}

// runInitCmd executes the init command.
func runInitCmd(cmd *cobra.Command, _ []string) error {
	outputPath, err := cmd.Flags().GetString("output")
	if err != nil {
		return err
	}

	force, err := cmd.Flags().GetBool("force")
	if err != nil {
		return err
	}

	// Check if file already exists
	if !force {
		if _, err := os.Stat(outputPath); err == nil {
			return fmt.Errorf("preset file already exists: %s (use -f to overwrite)", outputPath)
		}
	}

	// Read template from embedded filesystem
	content, err := presetTemplate.ReadFile("templates/wdcrawl.yaml")
	if err != nil {
		return fmt.Errorf("failed to read preset template: %w", err)
	}

	// Create parent directories if needed
	dir := filepath.Dir(outputPath)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}

	// Write preset file
	if err := os.WriteFile(outputPath, content, 0600); err != nil {
		return fmt.Errorf("failed to write preset file: %w", err)
	}

	fmt.Printf("Created preset file: %s\n", outputPath)
	fmt.Println("\nEdit this file to define named crawl presets such as:")
	fmt.Println("  - Target classes and hop radius per dataset")
	fmt.Println("  - Seed instance caps and label languages")
	fmt.Println("  - Subclass expansion and property enrichment toggles")

	return nil
}
