package main

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/alecthomas/chroma/v2/quick"
	"github.com/dustin/go-humanize"
	"github.com/dustin/go-humanize/english"
	"github.com/joho/godotenv"
	"github.com/mattn/go-isatty"
	"github.com/sahilm/fuzzy"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/tordrt/json2relcsv"
	"github.com/tordrt/json2relcsv/internal/config"
	"github.com/tordrt/json2relcsv/internal/db"
	"github.com/tordrt/json2relcsv/internal/formatter"
	"github.com/tordrt/json2relcsv/internal/logging"
	"github.com/tordrt/json2relcsv/internal/schema"
	"github.com/tordrt/json2relcsv/internal/value"
)

const dotEnvFile = ".env"

type cliOptions struct {
	input         string
	printAST      bool
	outDir        string
	format        string
	tables        string
	describe      string
	loadURL       string
	loadEnv       bool
	configPath    string
	maxDepth      int
	maxInputBytes int64
	workers       int
	bareRootNames bool
	color         string
	logLevel      string
	logFormat     string
	noOutput      bool
}

func newRootCmd() *cobra.Command {
	opts := &cliOptions{}

	cmd := &cobra.Command{
		Use:   "json2relcsv",
		Short: "Convert a JSON document into relational CSV tables",
		Long: `json2relcsv reads a JSON document from stdin and splits it into flat tables, one CSV file per table.
Nested objects become child tables that point back to their parent through a <parent>_id column,
and arrays of scalars become junction tables.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, opts)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&opts.input, "input", "i", "-", "Input JSON file (default: stdin)")
	f.BoolVar(&opts.printAST, "print-ast", false, "Print the parsed value tree before conversion")
	f.StringVarP(&opts.outDir, "out-dir", "o", ".", "Output directory (\"-\" writes the copy script to stdout)")
	f.StringVarP(&opts.format, "format", "f", config.FormatCSV, "Output format: csv or copy")
	f.StringVarP(&opts.tables, "tables", "t", "", "Only write and describe these tables (comma-separated)")
	f.StringVar(&opts.describe, "describe", "", "Describe the inferred schema on stdout: text, markdown or mermaid")
	f.StringVar(&opts.loadURL, "load", "", "Load the tables into a database (sqlite://, postgres://, mysql://, duckdb://)")
	f.BoolVar(&opts.loadEnv, "load-database-url", false, "Load the tables into the database named by $DATABASE_URL")
	f.StringVarP(&opts.configPath, "config", "c", "", "YAML config file")
	f.IntVar(&opts.maxDepth, "max-depth", 512, "Maximum nesting depth")
	f.Int64Var(&opts.maxInputBytes, "max-input-bytes", config.DefaultMaxInputBytes, "Maximum input size in bytes")
	f.IntVar(&opts.workers, "workers", 4, "Number of CSV files written concurrently")
	f.BoolVar(&opts.bareRootNames, "bare-root-names", false, "Name children of the root by their key alone")
	f.StringVar(&opts.color, "color", "auto", "Highlight --print-ast output: auto, always or never")
	f.StringVar(&opts.logLevel, "log-level", "info", "Log level: debug, info, warn or error")
	f.StringVar(&opts.logFormat, "log-format", "text", "Log format: text or json")
	f.BoolVar(&opts.noOutput, "no-output", false, "Skip writing output files")
	cmd.MarkFlagsMutuallyExclusive("load", "load-database-url")

	return cmd
}

func run(cmd *cobra.Command, opts *cliOptions) error {
	if err := loadDotEnv(dotEnvFile); err != nil {
		return err
	}

	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return err
	}
	if err := applyFlags(cmd.Flags(), opts, cfg); err != nil {
		return err
	}

	colorize, err := useColor(opts.color, cmd.OutOrStdout())
	if err != nil {
		return err
	}

	stdout, stderr := cmd.OutOrStdout(), cmd.ErrOrStderr()
	logging.Setup(stderr, cfg.Logging.Level, cfg.Logging.Format)
	ctx, _ := logging.WithRun(cmd.Context())
	logger := logging.FromContext(ctx)

	// Read and parse input
	in, closeInput, err := openInput(cmd, opts.input)
	if err != nil {
		return err
	}
	data, err := json2relcsv.ReadInput(in, cfg.Input.MaxBytes)
	closeInput()
	if err != nil {
		return err
	}

	convOpts := &json2relcsv.Options{
		MaxDepth:      cfg.Inference.MaxDepth,
		MaxInputBytes: cfg.Input.MaxBytes,
		BareRootNames: cfg.Inference.BareRootNames,
		Logger:        logger,
	}
	root, err := json2relcsv.Parse(data, convOpts)
	if err != nil {
		return err
	}

	if opts.printAST {
		if err := printAST(stdout, root, colorize); err != nil {
			return fmt.Errorf("failed to print value tree: %w", err)
		}
	}

	res, err := json2relcsv.Infer(root, convOpts)
	if err != nil {
		return err
	}
	if err := checkTables(res.Schema, cfg.Output.Tables); err != nil {
		return err
	}

	if opts.describe != "" {
		if err := json2relcsv.Describe(res.Schema, opts.describe, stdout, cfg.Output.Tables...); err != nil {
			return err
		}
	}

	var files []formatter.WrittenFile
	if !opts.noOutput {
		files, err = json2relcsv.Write(res.Schema, &json2relcsv.OutputOptions{
			OutputDir: cfg.Output.Dir,
			Format:    cfg.Output.Format,
			Workers:   cfg.Output.Workers,
			Tables:    cfg.Output.Tables,
			Writer:    stdout,
		})
		if err != nil {
			return err
		}
	}

	var loaded *db.LoadStats
	if cfg.Load.URL != "" {
		loaded, err = json2relcsv.Load(ctx, cfg.Load.URL, res.Schema, logger)
		if err != nil {
			return err
		}
	}

	printSummary(stderr, res.Schema, res.Diagnostics.Count(""), files, cfg.Output.Dir, loaded)
	return nil
}

// applyFlags overrides config values with the flags set on the command line
func applyFlags(flags *pflag.FlagSet, opts *cliOptions, cfg *config.Config) error {
	if flags.Changed("out-dir") {
		cfg.Output.Dir = opts.outDir
	}
	if flags.Changed("format") {
		cfg.Output.Format = opts.format
	}
	if flags.Changed("tables") {
		cfg.Output.Tables = splitList(opts.tables)
	}
	if flags.Changed("workers") {
		cfg.Output.Workers = opts.workers
	}
	if flags.Changed("load") {
		cfg.Load.URL = opts.loadURL
	}
	if opts.loadEnv {
		url := os.Getenv(config.EnvDatabaseURL)
		if url == "" {
			return fmt.Errorf("--load-database-url requires %s to be set", config.EnvDatabaseURL)
		}
		cfg.Load.URL = url
	}
	if flags.Changed("max-depth") {
		if opts.maxDepth <= 0 {
			return fmt.Errorf("--max-depth must be positive")
		}
		cfg.Inference.MaxDepth = opts.maxDepth
	}
	if flags.Changed("max-input-bytes") {
		if opts.maxInputBytes <= 0 {
			return fmt.Errorf("--max-input-bytes must be positive")
		}
		cfg.Input.MaxBytes = opts.maxInputBytes
	}
	if flags.Changed("bare-root-names") {
		cfg.Inference.BareRootNames = opts.bareRootNames
	}
	if flags.Changed("log-level") {
		cfg.Logging.Level = opts.logLevel
	}
	if flags.Changed("log-format") {
		cfg.Logging.Format = opts.logFormat
	}
	return cfg.Validate()
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// loadDotEnv loads path into the environment when it exists. Variables that
// are already set win.
func loadDotEnv(path string) error {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

func openInput(cmd *cobra.Command, path string) (io.Reader, func(), error) {
	if path == "" || path == "-" {
		return cmd.InOrStdin(), func() {}, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open input: %w", err)
	}
	return f, func() { _ = f.Close() }, nil
}

func useColor(mode string, w io.Writer) (bool, error) {
	switch mode {
	case "always":
		return true, nil
	case "never":
		return false, nil
	case "auto":
		f, ok := w.(*os.File)
		if !ok {
			return false, nil
		}
		return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd()), nil
	default:
		return false, fmt.Errorf("invalid --color %q (must be auto, always or never)", mode)
	}
}

func printAST(w io.Writer, root value.Value, colorize bool) error {
	var buf bytes.Buffer
	if err := value.Dump(&buf, root); err != nil {
		return err
	}
	if !colorize {
		_, err := w.Write(buf.Bytes())
		return err
	}
	return quick.Highlight(w, buf.String(), "json", "terminal256", "monokai")
}

// checkTables rejects --tables names the conversion did not produce
func checkTables(s *schema.Schema, names []string) error {
	known := make([]string, len(s.Tables))
	for i, t := range s.Tables {
		known[i] = t.Name
	}

	for _, name := range names {
		if s.Table(name) != nil {
			continue
		}
		if matches := fuzzy.Find(name, known); len(matches) > 0 {
			return fmt.Errorf("unknown table %q (did you mean %q?)", name, matches[0].Str)
		}
		return fmt.Errorf("unknown table %q", name)
	}
	return nil
}

func printSummary(w io.Writer, s *schema.Schema, warnings int, files []formatter.WrittenFile, dir string, loaded *db.LoadStats) {
	_, _ = fmt.Fprintf(w, "converted %s tables, %s rows",
		humanize.Comma(int64(len(s.Tables))), humanize.Comma(int64(s.RowCount())))
	if warnings > 0 {
		_, _ = fmt.Fprintf(w, " (%s)", english.Plural(warnings, "warning", ""))
	}
	_, _ = fmt.Fprintln(w)

	if len(files) > 0 {
		var n int64
		for _, f := range files {
			n += f.Bytes
		}
		_, _ = fmt.Fprintf(w, "wrote %d files (%s) to %s\n", len(files), humanize.Bytes(uint64(n)), dir)
	}
	if loaded != nil {
		_, _ = fmt.Fprintf(w, "loaded %s rows into %d tables\n", humanize.Comma(loaded.Rows), loaded.Tables)
	}
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
