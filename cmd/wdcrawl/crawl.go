package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/nao1215/wdcrawl/internal/config"
	"github.com/nao1215/wdcrawl/internal/crawler"
	"github.com/nao1215/wdcrawl/internal/database"
	"github.com/nao1215/wdcrawl/internal/job"
	"github.com/nao1215/wdcrawl/internal/log"
	"github.com/nao1215/wdcrawl/internal/model"
	"github.com/nao1215/wdcrawl/internal/report"
	"github.com/nao1215/wdcrawl/internal/search"
	"github.com/nao1215/wdcrawl/internal/storage"
	"github.com/nao1215/wdcrawl/internal/wdqs"
)

// NewCrawlCmd creates the crawl command.
func NewCrawlCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "crawl [class-id...]",
		Short: "Crawl the neighborhood of one or more Wikidata classes",
		Long: `Crawl collects the RDF neighborhood of the given Wikidata classes.

It resolves the transitive subclass closure of each class, enumerates
instances through the search index, then fetches triples hop by hop from
the query service up to the configured radius. The raw N-Triples stream
and a compact Turtle serialization are written to a per-job artifact
directory, and the job is recorded in the local history database.

Examples:
  # Crawl direct neighbors of humans (Q5)
  wdcrawl crawl Q5

  # Two hops, up to 500 seed instances, with property labels
  wdcrawl crawl -r 2 -n 500 --properties Q146

  # Crawl several classes as one job
  wdcrawl crawl Q5 Q95074

  # Use a named preset from the .wdcrawl file
  wdcrawl crawl --preset writers

  # Output a JSON report to a file
  wdcrawl crawl --json -o report.json Q5

Preset file (.wdcrawl) example:
  defaults:
    radius: 1
    language: en
  presets:
    writers:
      classes: [Q36180]
      maxInstances: 200
      fetchProperties: true`,
		Args: cobra.ArbitraryArgs,
		RunE: runCrawlCmd,
	}

	// Crawl shape flags
	cmd.Flags().IntP("radius", "r", config.DefaultRadius,
		"Hop radius: how many hops to follow from the seed instances")
	cmd.Flags().IntP("max-instances", "n", config.DefaultMaxInstances,
		"Maximum number of seed instances to enumerate")
	cmd.Flags().StringP("language", "l", config.DefaultLanguage,
		"Label language tag (BCP 47) requested from the endpoint")
	cmd.Flags().Bool("no-subclasses", false,
		"Do not expand target classes to their subclass closure")
	cmd.Flags().BoolP("properties", "P", false,
		"Fetch label/description metadata for observed properties")

	// Endpoint flags
	cmd.Flags().String("endpoint", config.DefaultSPARQLEndpoint,
		"SPARQL query service endpoint URL")
	cmd.Flags().String("search-endpoint", config.DefaultSearchEndpoint,
		"MediaWiki API endpoint URL used for instance enumeration")
	cmd.Flags().StringP("user-agent", "A", config.DefaultUserAgent,
		"User-Agent sent with every request (Wikimedia policy requires one)")
	cmd.Flags().Duration("interval", config.DefaultMinRequestInterval,
		"Minimum interval between SPARQL request starts")
	cmd.Flags().Duration("timeout", config.DefaultRequestTimeout,
		"Per-attempt timeout for SPARQL requests")

	// Preset flags
	cmd.Flags().StringP("preset", "p", "",
		"Name of a crawl preset from the preset file")
	cmd.Flags().StringP("config", "c", "",
		"Preset file path (default: .wdcrawl in current or home directory)")

	// Output flags
	cmd.Flags().String("output-dir", "",
		"Root directory for per-job artifact directories (default: XDG data directory)")
	cmd.Flags().BoolP("json", "j", false,
		"Output JSON report (mutually exclusive with --markdown)")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output Markdown report (mutually exclusive with --json)")
	cmd.Flags().StringP("output", "o", "",
		"Write report to specified file path (creates directories if needed)")

	return cmd
}

// runCrawlCmd executes the crawl command.
func runCrawlCmd(cmd *cobra.Command, args []string) error {
	// Build config from flags
	cfg, err := buildConfig(cmd, args)
	if err != nil {
		return err
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	// Set up structured logging
	cfg.Verbose = getVerboseFlag(cmd)
	logger := log.NewLogger(os.Stderr, cfg.Verbose)
	slog.SetDefault(logger)

	// Set up context with signal handling for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle interrupt signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("received shutdown signal, cancelling...")
		cancel()
	}()

	return runCrawl(ctx, cfg, logger)
}

// getVerboseFlag retrieves the verbose flag from the command or its parent.
func getVerboseFlag(cmd *cobra.Command) bool {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		verbose, err = cmd.Root().PersistentFlags().GetBool("verbose")
		if err != nil {
			return false
		}
	}
	return verbose
}

// buildConfig creates a Config from cobra command flags.
func buildConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	cfg := config.NewConfig()

	// Get flag values
	var err error

	cfg.Radius, err = cmd.Flags().GetInt("radius")
	if err != nil {
		return nil, err
	}

	cfg.MaxInstances, err = cmd.Flags().GetInt("max-instances")
	if err != nil {
		return nil, err
	}

	cfg.Language, err = cmd.Flags().GetString("language")
	if err != nil {
		return nil, err
	}

	noSubclasses, err := cmd.Flags().GetBool("no-subclasses")
	if err != nil {
		return nil, err
	}
	cfg.ExpandSubclasses = !noSubclasses

	cfg.FetchProperties, err = cmd.Flags().GetBool("properties")
	if err != nil {
		return nil, err
	}

	cfg.SPARQLEndpoint, err = cmd.Flags().GetString("endpoint")
	if err != nil {
		return nil, err
	}

	cfg.SearchEndpoint, err = cmd.Flags().GetString("search-endpoint")
	if err != nil {
		return nil, err
	}

	cfg.UserAgent, err = cmd.Flags().GetString("user-agent")
	if err != nil {
		return nil, err
	}

	cfg.MinRequestInterval, err = cmd.Flags().GetDuration("interval")
	if err != nil {
		return nil, err
	}

	cfg.RequestTimeout, err = cmd.Flags().GetDuration("timeout")
	if err != nil {
		return nil, err
	}

	cfg.PresetFilePath, err = cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}

	cfg.JSONReport, err = cmd.Flags().GetBool("json")
	if err != nil {
		return nil, err
	}

	cfg.MarkdownReport, err = cmd.Flags().GetBool("markdown")
	if err != nil {
		return nil, err
	}

	cfg.ReportFile, err = cmd.Flags().GetString("output")
	if err != nil {
		return nil, err
	}

	cfg.OutputDir, err = cmd.Flags().GetString("output-dir")
	if err != nil {
		return nil, err
	}
	if cfg.OutputDir == "" {
		cfg.OutputDir = config.DefaultOutputRoot()
	}

	// Positional arguments are target class identifiers
	cfg.Targets = args

	// Load presets from the preset file.
	// If user explicitly specified a preset file path, error if not found.
	// If no path specified, silently use empty presets if no file found.
	explicitPresetPath := cfg.PresetFilePath != ""
	presetPath := config.FindPresetFile(cfg.PresetFilePath)

	if presetPath != "" {
		cfg.Presets, err = config.LoadPresetFile(presetPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load preset file %s: %w", presetPath, err)
		}
	} else if explicitPresetPath {
		// User explicitly specified a preset file that doesn't exist
		return nil, fmt.Errorf("preset file not found: %s", cfg.PresetFilePath)
	} else {
		// Use empty presets if no file found and user didn't explicitly specify one
		cfg.Presets = &config.File{
			Presets: make(map[string]config.Preset),
		}
	}

	// Apply the named preset on top of the flag values
	presetName, err := cmd.Flags().GetString("preset")
	if err != nil {
		return nil, err
	}
	if presetName != "" {
		preset, ok := cfg.Presets.GetPreset(presetName)
		if !ok {
			return nil, fmt.Errorf("%w: %s", config.ErrPresetNotFound, presetName)
		}
		preset.Apply(cfg)
	}

	// Always record finished jobs using the XDG data directory
	cfg.SaveToDB = true
	cfg.DBDir = config.XDGDataDir()

	return cfg, nil
}

// runCrawl wires the transport, orchestrator, and job manager, then runs
// one crawl job over all target classes and reports the result.
func runCrawl(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	classes, err := parseClasses(cfg.Targets)
	if err != nil {
		return err
	}

	logger.Info("starting crawl",
		"classes", model.EntityIDStrings(classes),
		"radius", cfg.Radius,
		"maxInstances", cfg.MaxInstances,
		"endpoint", cfg.SPARQLEndpoint,
	)

	// One limiter shared by everything that talks to the query service,
	// so concurrent jobs together respect the minimum request interval.
	limiter := wdqs.NewLimiter(cfg.MinRequestInterval)
	service, err := wdqs.NewClient(cfg.SPARQLEndpoint, cfg.UserAgent,
		wdqs.WithLimiter(limiter),
		wdqs.WithTimeout(cfg.RequestTimeout),
		wdqs.WithMaxAttempts(cfg.MaxAttempts),
		wdqs.WithLogger(logger),
	)
	if err != nil {
		return fmt.Errorf("failed to create query client: %w", err)
	}

	searchClient, err := search.NewClient(cfg.SearchEndpoint, cfg.UserAgent,
		search.WithClientLogger(logger),
	)
	if err != nil {
		return fmt.Errorf("failed to create search client: %w", err)
	}
	enumerator := search.NewEnumerator(searchClient,
		search.WithPageSize(cfg.SearchPageSize),
		search.WithDelay(cfg.SearchDelay),
		search.WithLogger(logger),
	)

	store, err := storage.NewStore(cfg.OutputDir)
	if err != nil {
		return fmt.Errorf("failed to create artifact store: %w", err)
	}

	runner := crawler.New(service, enumerator,
		crawler.WithEdgeBatchSize(cfg.EdgeBatchSize),
		crawler.WithPropertyBatchSize(cfg.PropertyBatchSize),
		crawler.WithLogger(logger),
	)

	manager := job.NewManager(runner, store, cfg.ConcurrentJobs,
		job.WithManagerLogger(logger),
	)
	defer manager.Close()

	// Open history database if saving is enabled
	var hdb *database.HistoryDB
	if cfg.SaveToDB {
		hdb, err = database.Open(cfg.DBDir, database.DefaultOptions())
		if err != nil {
			return fmt.Errorf("failed to open history database: %w", err)
		}
		defer hdb.Close()
	}

	j, err := manager.Start(ctx, cfg.CrawlConfigFor(classes))
	if err != nil {
		return err
	}

	fmt.Printf("Crawling %d class(es), job %s\n", len(classes), j.ID())

	// Stream progress snapshots until the job reaches a terminal state
	snapshots, unsubscribe := j.Subscribe()
	defer unsubscribe()
	for p := range snapshots {
		printProgress(p)
	}
	fmt.Println()

	<-j.Done()
	rec := j.Record()

	// Record the finished job in the history database
	if hdb != nil {
		if err := hdb.SaveJob(ctx, &rec); err != nil {
			logger.Error("failed to save job to history", "jobID", rec.ID, "error", err)
		}
	}

	if err := outputReport(cfg, report.FromRecord(&rec)); err != nil {
		logger.Error("report failed", "jobID", rec.ID, "error", err)
	}

	switch rec.Status {
	case model.StatusFailed:
		return fmt.Errorf("crawl failed: %s", rec.Error)
	case model.StatusAborted:
		return fmt.Errorf("crawl aborted")
	default:
		return nil
	}
}

// parseClasses validates the target class identifiers.
func parseClasses(targets []string) ([]model.EntityID, error) {
	classes := make([]model.EntityID, 0, len(targets))
	for _, target := range targets {
		id, err := model.NewEntityID(target)
		if err != nil {
			return nil, fmt.Errorf("invalid class identifier %q: %w", target, err)
		}
		if !id.IsItem() {
			return nil, fmt.Errorf("invalid class identifier %q: classes must be items (Q prefix)", target)
		}
		classes = append(classes, id)
	}
	return classes, nil
}

// printProgress renders one progress snapshot as a single overwritten
// terminal line.
func printProgress(p model.Progress) {
	line := fmt.Sprintf("[%3d%%] %s", p.Percent(), p.Phase)
	if p.Hop > 0 {
		line += fmt.Sprintf(" hop %d/%d", p.Hop, p.Radius)
	}
	if p.TriplesWritten > 0 {
		line += fmt.Sprintf(" (%d triples)", p.TriplesWritten)
	}
	if p.Message != "" {
		line += ": " + p.Message
	}
	fmt.Printf("\r%-78.78s", line)
}

// outputReport outputs the crawl report in the requested format.
func outputReport(cfg *config.Config, r *report.Report) error {
	// Determine output destination
	var output *os.File
	if cfg.ReportFile != "" {
		// Create directories if they don't exist
		dir := filepath.Dir(cfg.ReportFile)
		if dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0750); err != nil {
				return fmt.Errorf("failed to create output directory: %w", err)
			}
		}

		// Create/overwrite the output file with owner-only permissions
		f, err := os.OpenFile(cfg.ReportFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer f.Close()
		output = f
	} else {
		output = os.Stdout
	}

	// JSON output (full record plus aggregates)
	if cfg.JSONReport {
		writer := report.NewJSONWriter(output,
			report.WithPrettyPrint(),
			report.WithVersion(getVersion()),
		)
		_, err := writer.Write(r)
		return err
	}

	// Markdown output
	if cfg.MarkdownReport {
		writer := report.NewMarkdownWriter(output)
		_, err := writer.Write(r)
		return err
	}

	// Human-readable report (default)
	writer := report.NewSimpleWriter(output, report.WithVerbose(cfg.Verbose))
	_, err := writer.Write(r)
	return err
}
