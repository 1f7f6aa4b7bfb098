// Package main is the crec CLI entry point.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"go.uber.org/zap"

	"github.com/hyperjump/crec/internal/cli"
	"github.com/hyperjump/crec/internal/compare"
	"github.com/hyperjump/crec/internal/config"
	"github.com/hyperjump/crec/internal/dataset"
	"github.com/hyperjump/crec/internal/downloader"
	"github.com/hyperjump/crec/internal/models"
	"github.com/hyperjump/crec/internal/parser"
	"github.com/hyperjump/crec/internal/search"
	"github.com/hyperjump/crec/internal/spellcheck"
	"github.com/hyperjump/crec/internal/watcher"
	"github.com/hyperjump/crec/pkg/utils"
)

var version = "dev"

const defaultConfigPath = "/usr/local/etc/crec/config.yaml"

var errUnknownCommand = errors.New("unknown command")

// loadConfig loads config from path. When path is the default, config.yaml in the
// current directory wins if present, and a missing default file yields the built-in
// defaults. Returns the config and the path that was actually loaded ("" for defaults).
func loadConfig(path string) (*config.Config, string, error) {
	if path == defaultConfigPath {
		if cwd, cwdErr := os.Getwd(); cwdErr == nil {
			fallback := filepath.Join(cwd, "config.yaml")
			if _, statErr := os.Stat(fallback); statErr == nil {
				cfg, loadErr := config.Load(fallback)
				if loadErr != nil {
					return nil, "", loadErr
				}
				return cfg, fallback, nil
			}
		}
		if _, err := os.Stat(path); os.IsNotExist(err) {
			return config.Default(), "", nil
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

func main() {
	if len(os.Args) < 2 {
		printUsage(os.Stderr)
		os.Exit(1)
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := run(ctx, os.Args[1], os.Args[2:], os.Stdout)
	stop()
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		if errors.Is(err, errUnknownCommand) {
			printUsage(os.Stderr)
		}
		os.Exit(1)
	}
}

func run(ctx context.Context, command string, args []string, stdout io.Writer) error {
	switch command {
	case "download":
		return runDownload(ctx, args, stdout)
	case "parse":
		return runParse(ctx, args, stdout)
	case "compare":
		return runCompare(ctx, args, stdout)
	case "export":
		return runExport(ctx, args, stdout)
	case "watch":
		return runWatch(ctx, args)
	case "search":
		return runSearch(ctx, args, stdout)
	case "version", "--version", "-v":
		fmt.Fprintf(stdout, "crec version %s\n", version)
		return nil
	case "help", "--help", "-h":
		printUsage(stdout)
		return nil
	default:
		return fmt.Errorf("%w: %s", errUnknownCommand, command)
	}
}

// commonFlags are accepted by every subcommand.
type commonFlags struct {
	configPath *string
	debug      *bool
}

func addCommonFlags(fs *flag.FlagSet) commonFlags {
	return commonFlags{
		configPath: fs.String("config", defaultConfigPath, "config file path"),
		debug:      fs.Bool("debug", false, "enable debug logging"),
	}
}

// setup loads the config and builds the logger for a subcommand.
func (c commonFlags) setup() (*config.Config, *zap.Logger, error) {
	cfg, resolved, err := loadConfig(*c.configPath)
	if err != nil {
		return nil, nil, err
	}
	debug := cfg.Debug || *c.debug
	logger, err := utils.NewLogger(debug)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create logger: %w", err)
	}
	logger.Debug("config loaded", zap.String("config_path", resolved), zap.Bool("debug", debug))
	return cfg, logger, nil
}

func runDownload(ctx context.Context, args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("download", flag.ContinueOnError)
	common := addCommonFlags(fs)
	from := fs.String("from", "", "first date (YYYY-MM-DD)")
	to := fs.String("to", "", "last date (YYYY-MM-DD, default: same as -from)")
	out := fs.String("out", "raw", "output directory for raw documents")
	baseURL := fs.String("base-url", "", "record endpoint (overrides download.base_url)")
	skipWeekends := fs.Bool("skip-weekends", false, "do not request Saturdays and Sundays")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *from == "" {
		return errors.New("download: -from is required")
	}
	dates, err := models.ParseDateRange(*from, *to)
	if err != nil {
		return err
	}

	cfg, logger, err := common.setup()
	if err != nil {
		return err
	}
	defer logger.Sync()
	if *baseURL != "" {
		cfg.Download.BaseURL = *baseURL
	}

	d := downloader.New(&cfg.Download,
		downloader.WithLogger(logger),
		downloader.WithSkipWeekends(cfg.Download.SkipWeekends || *skipWeekends),
	)
	stats, err := d.Download(ctx, dates, *out)
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "Downloaded %d pages to %s (%d already present, %d days without a record, %d requests)\n",
		stats.Written, *out, stats.Skipped, stats.EmptyDays, stats.Requested)
	return nil
}

// parseFlags are shared by parse and watch.
type parseFlags struct {
	in         *string
	out        *string
	spellcheck *bool
	dictionary *string
}

func addParseFlags(fs *flag.FlagSet) parseFlags {
	return parseFlags{
		in:         fs.String("in", "raw", "directory of raw documents"),
		out:        fs.String("out", "speeches.db", "dataset file (.db, .sqlite or .xlsx)"),
		spellcheck: fs.Bool("spellcheck", false, "correct OCR spelling errors (overrides parse.spellcheck.enabled)"),
		dictionary: fs.String("dictionary", "", "word frequency list for -spellcheck"),
	}
}

func (p parseFlags) parser(cfg *config.Config, logger *zap.Logger) (*parser.Parser, error) {
	sc := cfg.Parse.SpellCheck
	if *p.spellcheck {
		sc.Enabled = true
	}
	if *p.dictionary != "" {
		sc.DictionaryPath = *p.dictionary
	}
	checker, err := spellcheck.FromConfig(&sc)
	if err != nil {
		return nil, err
	}
	return parser.New(parser.WithLogger(logger), parser.WithSpellChecker(checker)), nil
}

func runParse(ctx context.Context, args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("parse", flag.ContinueOnError)
	common := addCommonFlags(fs)
	pf := addParseFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	cfg, logger, err := common.setup()
	if err != nil {
		return err
	}
	defer logger.Sync()

	p, err := pf.parser(cfg, logger)
	if err != nil {
		return err
	}
	res, err := p.Parse(ctx, *pf.in, *pf.out)
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "Parsed %d documents into %d records -> %s (run %s)\n",
		res.Documents, res.Records, res.Output, res.RunID)
	return nil
}

func runCompare(ctx context.Context, args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("compare", flag.ContinueOnError)
	common := addCommonFlags(fs)
	oldPath := fs.String("old", "", "previous dataset")
	newPath := fs.String("new", "", "new dataset")
	unit := fs.String("unit", "", "comparison unit: tokens or chars (default from config)")
	diff := fs.String("diff", "", "diff rendering: none, words or unified (default from config)")
	changedOnly := fs.Bool("changed-only", false, "hide records whose text is unchanged")
	output := fs.String("output", "text", "output format: text or json")
	reportPath := fs.String("report", "", "write the report to this file instead of stdout")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *oldPath == "" || *newPath == "" {
		return errors.New("compare: -old and -new are required")
	}
	format, err := cli.ParseOutputFormat(*output)
	if err != nil {
		return err
	}

	cfg, logger, err := common.setup()
	if err != nil {
		return err
	}
	defer logger.Sync()
	if *unit != "" {
		cfg.Compare.Unit = *unit
	}
	if *diff != "" {
		cfg.Compare.Diff = *diff
	}
	if err := config.Validate(cfg); err != nil {
		return err
	}

	report, err := compare.CompareFiles(ctx, *oldPath, *newPath, compare.Options{
		Unit:   cfg.Compare.Unit,
		Diff:   cfg.Compare.Diff,
		Logger: logger,
	})
	if err != nil {
		return err
	}

	w := stdout
	if *reportPath != "" {
		f, err := os.Create(*reportPath)
		if err != nil {
			return fmt.Errorf("create report: %w", err)
		}
		defer f.Close()
		w = f
	}
	if err := cli.WriteReport(w, report, format, cfg.Compare.ChangedOnly || *changedOnly); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	if *reportPath != "" {
		logger.Info("Report written", zap.String("path", *reportPath))
	}
	return nil
}

func runExport(ctx context.Context, args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("export", flag.ContinueOnError)
	common := addCommonFlags(fs)
	in := fs.String("in", "", "dataset to read")
	out := fs.String("out", "", "dataset to write; format follows the extension")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *in == "" || *out == "" {
		return errors.New("export: -in and -out are required")
	}
	_, logger, err := common.setup()
	if err != nil {
		return err
	}
	defer logger.Sync()

	ds, err := dataset.Read(ctx, *in)
	if err != nil {
		return err
	}
	if err := dataset.Write(ctx, *out, ds); err != nil {
		return err
	}
	fmt.Fprintf(stdout, "Exported %d records from %s to %s\n", len(ds.Records), *in, *out)
	return nil
}

func runWatch(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("watch", flag.ContinueOnError)
	common := addCommonFlags(fs)
	pf := addParseFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	cfg, logger, err := common.setup()
	if err != nil {
		return err
	}
	defer logger.Sync()

	p, err := pf.parser(cfg, logger)
	if err != nil {
		return err
	}
	reparse := func(ctx context.Context) error {
		_, err := p.Parse(ctx, *pf.in, *pf.out)
		return err
	}
	if err := reparse(ctx); err != nil {
		logger.Error("Initial parse failed", zap.Error(err))
	}
	logger.Info("Watching for raw documents", zap.String("dir", *pf.in), zap.String("out", *pf.out))
	return watcher.New(*pf.in, reparse, watcher.WithLogger(logger)).Run(ctx)
}

// buildSearchQuery joins all positional args with spaces so multi-word queries
// work the same with or without shell quoting.
func buildSearchQuery(args []string) string {
	return strings.TrimSpace(strings.Join(args, " "))
}

// searchArgsReorder moves any flags (and their values) that appear after the query
// to the front of the slice so that flag.Parse() sees them. Go's flag package
// stops at the first non-flag argument.
func searchArgsReorder(args []string) []string {
	for i, a := range args {
		if len(a) > 0 && a[0] == '-' {
			if i == 0 {
				return args
			}
			reordered := make([]string, 0, len(args))
			reordered = append(reordered, args[i:]...)
			reordered = append(reordered, args[:i]...)
			return reordered
		}
	}
	return args
}

func runSearch(ctx context.Context, args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("search", flag.ContinueOnError)
	common := addCommonFlags(fs)
	datasetPath := fs.String("dataset", "speeches.db", "dataset to search")
	indexPath := fs.String("index", "", "index directory (default from config)")
	rebuild := fs.Bool("rebuild", false, "rebuild the index even if it matches the dataset")
	limit := fs.Int("limit", 0, "number of results (default from config)")
	chamber := fs.String("chamber", "", "only speeches from this chamber")
	speaker := fs.String("speaker", "", "only speeches by this speaker")
	fuzzy := fs.Bool("fuzzy", false, "enable fuzzy matching for typo tolerance")
	output := fs.String("output", "text", "output format: text or json")
	if err := fs.Parse(searchArgsReorder(args)); err != nil {
		return err
	}
	query := buildSearchQuery(fs.Args())
	if query == "" {
		return errors.New("search: a query is required")
	}
	format, err := cli.ParseOutputFormat(*output)
	if err != nil {
		return err
	}

	cfg, logger, err := common.setup()
	if err != nil {
		return err
	}
	defer logger.Sync()
	if *indexPath != "" {
		cfg.Search.IndexPath = *indexPath
	}

	ds, err := dataset.Read(ctx, *datasetPath)
	if err != nil {
		return err
	}
	engine, err := search.Build(ctx, cfg.Search.IndexPath, ds, *rebuild, search.WithLogger(logger))
	if err != nil {
		return err
	}
	defer engine.Close()

	q := &search.Query{
		Text:    query,
		Limit:   *limit,
		Chamber: *chamber,
		Speaker: *speaker,
		Fuzzy:   *fuzzy,
	}
	if err := search.ProcessQuery(q, cfg.Search.DefaultLimit); err != nil {
		return err
	}
	resp, err := engine.Search(ctx, q)
	if err != nil {
		return err
	}
	return cli.WriteSearchResults(stdout, resp, format)
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, `crec - Congressional Record download, parse and compare

Usage:
  crec download [flags]          Download raw documents for a date range
  crec parse [flags]             Parse raw documents into a speech dataset
  crec compare [flags]           Compare two speech datasets
  crec export [flags]            Convert a dataset between .db and .xlsx
  crec watch [flags]             Re-parse whenever raw documents change
  crec search [flags] <query>    Full-text search over a dataset
  crec version                   Show version
  crec help                      Show this help

Common Flags:
  -config string    Config file path (default: /usr/local/etc/crec/config.yaml, or ./config.yaml)
  -debug            Enable debug logging

Download Flags:
  -from, -to        Date range (YYYY-MM-DD, inclusive)
  -out string       Output directory (default: raw)
  -base-url string  Record endpoint
  -skip-weekends    Do not request Saturdays and Sundays

Parse / Watch Flags:
  -in string        Raw document directory (default: raw)
  -out string       Dataset file (default: speeches.db)
  -spellcheck       Correct OCR spelling errors
  -dictionary path  Word frequency list for -spellcheck

Compare Flags:
  -old, -new        Datasets to compare
  -unit string      tokens or chars
  -diff string      none, words or unified
  -changed-only     Hide unchanged records
  -output string    text or json
  -report path      Write the report to a file

Search Flags:
  -dataset path     Dataset to search (default: speeches.db)
  -index path       Index directory
  -rebuild          Rebuild the index
  -limit int        Number of results
  -chamber, -speaker  Filters
  -fuzzy            Typo-tolerant matching
  -output string    text or json

Examples:
  crec download -from 2021-01-04 -to 2021-01-08 -out raw
  crec parse -in raw -out speeches.db
  crec compare -old last-week.db -new speeches.db -diff words -changed-only
  crec export -in speeches.db -out speeches.xlsx
  crec search -dataset speeches.db infrastructure bill`)
}
