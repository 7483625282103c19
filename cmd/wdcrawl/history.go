package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nao1215/wdcrawl/internal/config"
	"github.com/nao1215/wdcrawl/internal/database"
	"github.com/nao1215/wdcrawl/internal/model"
	"github.com/nao1215/wdcrawl/internal/report"
)

// NewHistoryCmd creates the history command.
// This command lists and inspects past crawl jobs stored in the database.
func NewHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history [job-id]",
		Short: "List and inspect past crawl jobs",
		Long: `History shows crawl jobs recorded in the local history database.

Without arguments it lists all jobs, most recent first. With a job
identifier it renders the full report for that job, reading aggregates
from the job's artifact directory when it still exists.

Examples:
  # List all past crawls
  wdcrawl history

  # List only failed crawls
  wdcrawl history --status failed

  # Show the full report for one job
  wdcrawl history 1b9d6bcd-bbfd-4b2d-9b5d-ab8dfbbd4bed

  # Show a job report as JSON
  wdcrawl history --json 1b9d6bcd-bbfd-4b2d-9b5d-ab8dfbbd4bed

  # Remove one job record, or the whole history
  wdcrawl history --delete 1b9d6bcd-bbfd-4b2d-9b5d-ab8dfbbd4bed
  wdcrawl history --purge`,
		Args: cobra.MaximumNArgs(1),
		RunE: runHistoryCmd,
	}

	// Listing flags
	cmd.Flags().StringP("status", "s", "",
		"Filter the listing by status (running, completed, failed, aborted)")

	// Output format flags
	cmd.Flags().BoolP("json", "j", false,
		"Output job report in JSON format")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output job report in Markdown format")

	// Maintenance flags
	cmd.Flags().StringP("delete", "d", "",
		"Delete the job record with the given identifier (artifacts are kept)")
	cmd.Flags().Bool("purge", false,
		"Delete all job records and their artifact directories")

	return cmd
}

// runHistoryCmd executes the history command.
func runHistoryCmd(cmd *cobra.Command, args []string) error {
	hdb, err := database.Open(config.XDGDataDir(), database.DefaultOptions())
	if err != nil {
		return fmt.Errorf("failed to open history database: %w", err)
	}
	defer hdb.Close()

	ctx := context.Background()

	// Handle --purge flag
	purge, err := cmd.Flags().GetBool("purge")
	if err != nil {
		return err
	}
	if purge {
		return purgeHistory(ctx, hdb)
	}

	// Handle --delete flag
	deleteID, err := cmd.Flags().GetString("delete")
	if err != nil {
		return err
	}
	if deleteID != "" {
		if err := hdb.DeleteJob(ctx, deleteID); err != nil {
			return fmt.Errorf("failed to delete job record: %w", err)
		}
		fmt.Printf("Removed job %s from the history. Artifacts on disk were not touched.\n", deleteID)
		return nil
	}

	// With a job identifier, render the full report
	if len(args) == 1 {
		return showJob(ctx, cmd, hdb, args[0])
	}

	// Otherwise list, optionally filtered by status
	statusFilter, err := cmd.Flags().GetString("status")
	if err != nil {
		return err
	}
	return listJobs(ctx, hdb, statusFilter)
}

// purgeHistory removes every job record together with its artifact
// directory. Artifacts of jobs still marked as running are left alone,
// as are directories the records point at but that no longer exist.
func purgeHistory(ctx context.Context, hdb *database.HistoryDB) error {
	records, err := hdb.ListJobs(ctx)
	if err != nil {
		return fmt.Errorf("failed to list jobs: %w", err)
	}

	removed := 0
	for _, rec := range records {
		if rec.Status == model.StatusRunning || rec.OutputDir == "" {
			continue
		}
		if err := os.RemoveAll(rec.OutputDir); err != nil {
			return fmt.Errorf("failed to remove artifacts for job %s: %w", rec.ID, err)
		}
		removed++
	}

	n, err := hdb.Purge(ctx)
	if err != nil {
		return fmt.Errorf("failed to purge history: %w", err)
	}
	fmt.Printf("Removed %d job record(s) and %d artifact director(ies).\n", n, removed)
	return nil
}

// showJob renders the report for one recorded job.
func showJob(ctx context.Context, cmd *cobra.Command, hdb *database.HistoryDB, id string) error {
	rec, err := hdb.GetJob(ctx, id)
	if err != nil {
		if errors.Is(err, database.ErrJobNotFound) {
			return fmt.Errorf("no job %s in the history (use 'wdcrawl history' to list jobs)", id)
		}
		return fmt.Errorf("failed to load job record: %w", err)
	}

	jsonOutput, err := cmd.Flags().GetBool("json")
	if err != nil {
		return err
	}
	markdownOutput, err := cmd.Flags().GetBool("markdown")
	if err != nil {
		return err
	}
	if jsonOutput && markdownOutput {
		return config.ErrConflictingReportFormats
	}

	r := report.FromRecord(rec)

	if jsonOutput {
		writer := report.NewJSONWriter(os.Stdout,
			report.WithPrettyPrint(),
			report.WithVersion(getVersion()),
		)
		_, err := writer.Write(r)
		return err
	}
	if markdownOutput {
		_, err := report.NewMarkdownWriter(os.Stdout).Write(r)
		return err
	}
	_, err = report.NewSimpleWriter(os.Stdout, report.WithVerbose(true)).Write(r)
	return err
}

// listJobs prints a table of recorded jobs, most recent first.
func listJobs(ctx context.Context, hdb *database.HistoryDB, statusFilter string) error {
	var records []*model.JobRecord
	var err error

	if statusFilter != "" {
		records, err = hdb.ListJobsByStatus(ctx, model.ParseJobStatus(statusFilter))
	} else {
		records, err = hdb.ListJobs(ctx)
	}
	if err != nil {
		return fmt.Errorf("failed to list jobs: %w", err)
	}

	if len(records) == 0 {
		fmt.Println("No crawl jobs found in the history.")
		fmt.Println("\nUse 'wdcrawl crawl <class-id>' to start a crawl.")
		return nil
	}

	fmt.Printf("Crawl history (%d jobs):\n\n", len(records))
	fmt.Printf("  %-36s  %-9s  %-16s  %8s  %s\n", "ID", "Status", "Classes", "Triples", "Started")
	fmt.Println("  " + strings.Repeat("-", 90))

	for _, rec := range records {
		fmt.Printf("  %-36s  %-9s  %-16s  %8d  %s\n",
			rec.ID,
			rec.Status.String(),
			formatClassList(rec.Config.TargetClasses),
			rec.TripleCount,
			rec.StartedAt.Local().Format("2006-01-02 15:04:05"),
		)
	}

	fmt.Println("\nUse 'wdcrawl history <id>' to see the full report for a job.")

	return nil
}

// formatClassList renders the target class list for the table, truncated
// to keep columns aligned.
func formatClassList(classes []model.EntityID) string {
	s := strings.Join(model.EntityIDStrings(classes), ",")
	if len(s) > 16 {
		return s[:13] + "..."
	}
	return s
}
