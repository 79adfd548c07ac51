/*
main.go - Command-line commission run

PURPOSE:
  Runs the engine once and prints the report. The inputs come from a SQLite
  database, a dataset file, or both (the file is imported into the database
  first).

COMMAND-LINE FLAGS:
  -db          SQLite database path
  -dataset     JSON or YAML dataset file (by extension)
  -config      YAML configuration file (policy and timeout only)
  -start/-end  Inclusive range, YYYY-MM-DD
  -month       Whole month, YYYY-MM (default: current month)
  -introducer  One introducer, or "all"
  -format      text | json | xlsx
  -out         Output file (default: stdout; required for xlsx)

EXAMPLES:
  commission -dataset=./january.yaml -month=2025-01
  commission -db=./commission.db -start=2025-01-01 -end=2025-01-15 -introducer=Joe
  commission -db=./commission.db -format=xlsx -out=january.xlsx
*/
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/warp/introducer-commission/commission"
	"github.com/warp/introducer-commission/config"
	"github.com/warp/introducer-commission/factory"
	"github.com/warp/introducer-commission/generic"
	"github.com/warp/introducer-commission/generic/store"
	"github.com/warp/introducer-commission/report"
	"github.com/warp/introducer-commission/store/sqlite"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	if err := run(context.Background(), os.Args[1:], os.Stdout, time.Now(), logger); err != nil {
		fmt.Fprintln(os.Stderr, "commission:", err)
		if errors.Is(err, flag.ErrHelp) || generic.IsClientError(err) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}

type options struct {
	dbPath     string
	dataset    string
	configPath string
	start      string
	end        string
	month      string
	introducer string
	format     string
	out        string
}

func parseFlags(args []string) (options, error) {
	var o options
	fs := flag.NewFlagSet("commission", flag.ContinueOnError)
	fs.StringVar(&o.dbPath, "db", "", "SQLite database path")
	fs.StringVar(&o.dataset, "dataset", "", "JSON or YAML dataset file")
	fs.StringVar(&o.configPath, "config", "", "YAML configuration file")
	fs.StringVar(&o.start, "start", "", "range start (YYYY-MM-DD)")
	fs.StringVar(&o.end, "end", "", "range end (YYYY-MM-DD)")
	fs.StringVar(&o.month, "month", "", "whole month (YYYY-MM)")
	fs.StringVar(&o.introducer, "introducer", commission.AllIntroducers, "introducer name or \"all\"")
	fs.StringVar(&o.format, "format", "text", "text | json | xlsx")
	fs.StringVar(&o.out, "out", "", "output file (default stdout)")
	if err := fs.Parse(args); err != nil {
		return options{}, err
	}

	if o.dbPath == "" && o.dataset == "" {
		return options{}, fmt.Errorf("%w: -db or -dataset is required", generic.ErrInvalidInput)
	}
	switch o.format {
	case "text", "json":
	case "xlsx":
		if o.out == "" {
			return options{}, fmt.Errorf("%w: -format xlsx needs -out", generic.ErrInvalidInput)
		}
	default:
		return options{}, fmt.Errorf("%w: unknown format %q", generic.ErrInvalidInput, o.format)
	}
	return o, nil
}

// queryRange resolves the range flags. now is read only when no range
// flag is given.
func (o options) queryRange(now time.Time) (generic.DateRange, error) {
	switch {
	case o.month != "" && (o.start != "" || o.end != ""):
		return generic.DateRange{}, fmt.Errorf("%w: use either -month or -start/-end", generic.ErrInvalidDateRange)
	case o.month != "":
		return generic.ParseMonth(o.month)
	case o.start != "" || o.end != "":
		return generic.NewDateRange(o.start, o.end)
	default:
		return generic.CurrentMonthRange(now), nil
	}
}

func run(ctx context.Context, args []string, stdout io.Writer, now time.Time, logger *slog.Logger) error {
	o, err := parseFlags(args)
	if err != nil {
		return err
	}
	rng, err := o.queryRange(now)
	if err != nil {
		return err
	}

	cfg := config.Default()
	if o.configPath != "" {
		if cfg, err = config.Load(o.configPath); err != nil {
			return err
		}
	}

	sources, closeSources, err := openSources(ctx, o)
	if err != nil {
		return err
	}
	defer closeSources()

	engine := commission.NewEngine(sources, logger)
	engine.Policy = cfg.Policy
	engine.Timeout = cfg.ComputeTimeout

	result, err := engine.Compute(ctx, commission.Query{Range: rng, Introducer: o.introducer})
	if err != nil {
		return err
	}

	w := stdout
	if o.out != "" {
		f, err := os.Create(o.out)
		if err != nil {
			return fmt.Errorf("create output: %w", err)
		}
		defer f.Close()
		w = f
	}
	return render(w, o.format, result)
}

// openSources returns the SQLite store when -db is given, importing the
// dataset file into it if one is named. A dataset alone is served from memory.
func openSources(ctx context.Context, o options) (generic.Sources, func(), error) {
	var dataset *generic.Dataset
	if o.dataset != "" {
		data, err := os.ReadFile(o.dataset)
		if err != nil {
			return nil, nil, fmt.Errorf("read dataset: %w", err)
		}
		d, err := factory.NewDatasetFactory().ParseDataset(data, factory.FormatForPath(o.dataset))
		if err != nil {
			return nil, nil, fmt.Errorf("%s: %w", o.dataset, err)
		}
		dataset = &d
	}

	if o.dbPath == "" {
		return store.NewMemoryFromDataset(*dataset), func() {}, nil
	}

	db, err := sqlite.New(o.dbPath)
	if err != nil {
		return nil, nil, err
	}
	if dataset != nil {
		if err := db.ImportDataset(ctx, *dataset); err != nil {
			db.Close()
			return nil, nil, err
		}
	}
	return db, func() { db.Close() }, nil
}

func render(w io.Writer, format string, result *commission.Result) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(report.NewResultDocument(result))
	case "xlsx":
		return report.WriteXLSX(w, result)
	default:
		return report.WriteText(w, result)
	}
}
