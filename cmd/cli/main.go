package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"text/tabwriter"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"sheetview/adapters/spreadsheet"
	"sheetview/app"
	"sheetview/internal/config"
	"sheetview/internal/dataset"
	"sheetview/internal/header"
	"sheetview/internal/session"
	"sheetview/internal/testkit"
	"sheetview/internal/worker"
	"sheetview/ui/tui"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "sheetview",
		Short:         "Find the header row of messy spreadsheets and browse the records below it",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(
		newInspectCmd(),
		newExportCmd(),
		newBrowseCmd(),
		newServeCmd(),
		newSampleCmd(),
	)
	return rootCmd
}

func newInspectCmd() *cobra.Command {
	var depth int
	var verbose bool

	cmd := &cobra.Command{
		Use:   "inspect [file]",
		Short: "Show which row was picked as the header and why",
		Long: `Score the first rows of a spreadsheet and report the chosen header row, its fields and the
record count.

Example: sheetview inspect inventario.xlsx --verbose`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInspect(cmd.OutOrStdout(), args[0], depth, verbose)
		},
	}
	cmd.Flags().IntVar(&depth, "depth", header.DefaultSearchDepth, "number of leading rows considered as header candidates")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "print the detector's per-row diagnostics")
	return cmd
}

func runInspect(out io.Writer, path string, depth int, verbose bool) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	opts := header.DefaultOptions()
	opts.SearchDepth = depth
	pipeline := &worker.Pipeline{Reader: spreadsheet.NewReader(), Detector: opts}

	var logf func(string)
	if verbose {
		logf = func(msg string) { fmt.Fprintln(out, "  "+msg) }
	}
	coll, res, err := pipeline.Process(data, filepath.Base(path), logf)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "File:        %s\n", path)
	fmt.Fprintf(out, "Header row:  %d (score %d, confidence %.2f)\n", res.Index+1, res.Score, res.Confidence)
	fmt.Fprintf(out, "Fields:      %s\n", strings.Join(coll.Fields, ", "))
	fmt.Fprintf(out, "Records:     %d\n", coll.Len())

	if len(res.Candidates) > 0 {
		fmt.Fprintln(out, "\nCandidates:")
		tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "ROW\tHITS\tFILLED\tSCORE\tSAMPLE")
		for _, c := range res.Candidates {
			fmt.Fprintf(tw, "%d\t%d\t%d\t%d\t%s\n", c.Index+1, c.Hits, c.Filled, c.Score, strings.Join(c.Sample, " | "))
		}
		tw.Flush()
	}
	return nil
}

type exportOptions struct {
	format  string
	output  string
	search  string
	sortKey string
	desc    bool
	filters []string
	columns []string
}

func newExportCmd() *cobra.Command {
	var opts exportOptions

	cmd := &cobra.Command{
		Use:   "export [file]",
		Short: "Write the records of a spreadsheet, optionally filtered and sorted",
		Long: `Decode a spreadsheet, apply search, column filters and sort, and write the visible records.

Filters take the form field=expr where expr is text to look for or a numeric range min..max.

Example: sheetview export inventario.xlsx --format csv --filter stock=5.. --sort precio --desc`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			if opts.output != "" && opts.output != "-" {
				f, err := os.Create(opts.output)
				if err != nil {
					return err
				}
				defer f.Close()
				out = f
			}
			return runExport(out, args[0], opts)
		},
	}
	cmd.Flags().StringVarP(&opts.format, "format", "f", "json", "output format: json, csv or xlsx")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "-", "output file, - for stdout")
	cmd.Flags().StringVar(&opts.search, "search", "", "keep records where any column contains this text")
	cmd.Flags().StringVar(&opts.sortKey, "sort", "", "column to sort by")
	cmd.Flags().BoolVar(&opts.desc, "desc", false, "sort descending")
	cmd.Flags().StringArrayVar(&opts.filters, "filter", nil, "column filter, field=expr (repeatable)")
	cmd.Flags().StringSliceVar(&opts.columns, "columns", nil, "columns to write, in header order (default all)")
	return cmd
}

func runExport(out io.Writer, path string, opts exportOptions) error {
	format, err := spreadsheet.ParseExportFormat(opts.format)
	if err != nil {
		return err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	coll, _, err := worker.NewPipeline().Process(data, filepath.Base(path), nil)
	if err != nil {
		return err
	}

	engine := dataset.NewEngine()
	engine.SetRecords(coll)
	if err := applyExportQuery(engine, opts); err != nil {
		return err
	}
	return spreadsheet.Export(out, format, engine.VisibleColumns(), engine.VisibleRecords())
}

func applyExportQuery(engine *dataset.Engine, opts exportOptions) error {
	if len(opts.columns) > 0 {
		for _, c := range opts.columns {
			if !engine.HasField(c) {
				return fmt.Errorf("%w: %q", dataset.ErrUnknownField, c)
			}
		}
		engine.SetVisibleColumns(opts.columns)
	}

	filters := make(map[string]dataset.Filter, len(opts.filters))
	for _, expr := range opts.filters {
		field, value, ok := strings.Cut(expr, "=")
		if !ok {
			return fmt.Errorf("%w: %q is not field=expr", dataset.ErrInvalidFilter, expr)
		}
		field = strings.TrimSpace(field)
		if !engine.HasField(field) {
			return fmt.Errorf("%w: %q", dataset.ErrUnknownField, field)
		}
		filters[field] = dataset.ParseFilterExpr(value)
	}
	engine.SetFilters(filters)
	engine.SetSearchTerm(opts.search)

	if opts.sortKey != "" {
		if !engine.HasField(opts.sortKey) {
			return fmt.Errorf("%w: %q", dataset.ErrUnknownField, opts.sortKey)
		}
		dir := dataset.SortAscending
		if opts.desc {
			dir = dataset.SortDescending
		}
		engine.SetSortDirection(opts.sortKey, dir)
	}
	return nil
}

func newBrowseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "browse [file]",
		Short: "Browse a spreadsheet in the terminal",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}

			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()
			w := worker.Start(ctx, nil, worker.Options{})
			defer w.Close()

			sess := session.New(w, nil, tui.SessionOptions())
			model := tui.New(sess).WithFile(filepath.Base(args[0]), data)
			final, err := tea.NewProgram(model, tea.WithAltScreen()).Run()
			if err != nil {
				return err
			}
			if m, ok := final.(tui.Model); ok && m.Err() != nil {
				return m.Err()
			}
			return nil
		},
	}
}

func newServeCmd() *cobra.Command {
	var port string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP service",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := godotenv.Load(); err != nil {
				fmt.Fprintln(cmd.ErrOrStderr(), "No .env file found, using system environment variables")
			}
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if port != "" {
				cfg.Server.Port = port
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return app.Serve(ctx, cfg)
		},
	}
	cmd.Flags().StringVar(&port, "port", "", "listen port (overrides PORT)")
	return cmd
}

func newSampleCmd() *cobra.Command {
	cfg := testkit.DefaultInventoryConfig()
	var output string

	cmd := &cobra.Command{
		Use:   "sample",
		Short: "Write a generated inventory workbook with title rows above the header",
		Long: `Generate a deterministic inventory report for trying out header detection.
The format follows the output extension: .xlsx or .csv.

Example: sheetview sample --rows 5000 --title-rows 3 -o demo.xlsx`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSample(output, cfg)
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "sample.xlsx", "output file (.xlsx or .csv)")
	cmd.Flags().IntVar(&cfg.Rows, "rows", cfg.Rows, "number of records")
	cmd.Flags().IntVar(&cfg.TitleRows, "title-rows", cfg.TitleRows, "title lines above the header")
	cmd.Flags().IntVar(&cfg.BlankRows, "blank-rows", cfg.BlankRows, "blank lines between the titles and the header")
	cmd.Flags().Int64Var(&cfg.Seed, "seed", cfg.Seed, "random seed")
	return cmd
}

func runSample(output string, cfg testkit.InventoryGeneratorConfig) error {
	m := testkit.NewInventoryGenerator(cfg).Matrix()

	var data []byte
	var err error
	switch strings.ToLower(filepath.Ext(output)) {
	case ".csv":
		data, err = testkit.CSV(m)
	case ".xlsx":
		data, err = testkit.XLSX(m)
	default:
		return fmt.Errorf("unsupported sample extension %q, use .xlsx or .csv", filepath.Ext(output))
	}
	if err != nil {
		return err
	}
	return os.WriteFile(output, data, 0o644)
}
