package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command for wdcrawl.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "wdcrawl",
		Short: "Bounded crawler for the Wikidata knowledge graph",
		Long: `wdcrawl collects the RDF neighborhood of a class of Wikidata entities.

Given one or more class identifiers (e.g. Q5 for human), it enumerates
instances of those classes, fetches their triples from the query service
hop by hop up to a configured radius, and writes the result as N-Triples
and Turtle files. Requests are rate limited and identified per the
Wikimedia User-Agent policy.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags that apply to all commands
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")

	// Add subcommands
	cmd.AddCommand(NewCrawlCmd())
	cmd.AddCommand(NewHistoryCmd())
	cmd.AddCommand(NewConvertCmd())
	cmd.AddCommand(NewInitCmd())
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
