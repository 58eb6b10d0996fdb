package main

import (
	"fmt"
	"io"

	"github.com/spf13/pflag"

	"github.com/JonMunkholm/nlexport/internal/config"
	"github.com/JonMunkholm/nlexport/internal/core"
	"github.com/JonMunkholm/nlexport/internal/dump"
	"github.com/JonMunkholm/nlexport/internal/manifest"
	"github.com/JonMunkholm/nlexport/internal/output"
)

type flags struct {
	target    string
	sep       string
	na        string
	meta      bool
	skip      int
	manifest  string
	out       string
	format    string
	encoding  string
	maxSteps  int
	summary   bool
	pgTable   string
	force     bool
	logLevel  string
	logFormat string
	version   bool
}

func (f *flags) register(cfg *config.Config, stderr io.Writer) *pflag.FlagSet {
	fs := pflag.NewFlagSet("nlexport", pflag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.SortFlags = false

	fs.StringVarP(&f.target, "target", "t", cfg.Convert.Target, "sheet to extract: turtles, patches, links, plots or experiment (default: plots for world exports)")
	fs.StringVar(&f.sep, "sep", cfg.Convert.Separator, `output field separator; \t is a tab`)
	fs.StringVar(&f.na, "na", cfg.Convert.NA, "text written for missing values")
	fs.BoolVarP(&f.meta, "meta", "m", cfg.Convert.Metadata, "add file, platform, model, date and constants columns")
	fs.IntVar(&f.skip, "skip", 0, "drop this many rows from the front of every file without its own skip count")
	fs.StringVar(&f.manifest, "manifest", "", "YAML job file listing inputs and options")
	fs.StringVarP(&f.out, "out", "o", "", "write the table to this file (default: stdout)")
	fs.StringVarP(&f.format, "format", "f", cfg.Convert.Format, "output format: tsv or xlsx")
	fs.StringVar(&f.encoding, "encoding", cfg.Convert.Encoding, "charset of the inputs: utf-8, latin1, windows-1252, macintosh")
	fs.IntVar(&f.maxSteps, "max-steps", cfg.Convert.MaxSteps, "reject plots with more steps than this")
	fs.BoolVar(&f.summary, "summary", false, "print per-column statistics to stderr")
	fs.StringVar(&f.pgTable, "pg-table", "", "also load the table into this PostgreSQL table (needs DATABASE_URL)")
	fs.BoolVar(&f.force, "force", false, "with --pg-table, load files that were imported before")
	fs.StringVar(&f.logLevel, "log-level", cfg.Logging.Level, "debug, info, warn or error")
	fs.StringVar(&f.logFormat, "log-format", cfg.Logging.Format, "text, json or auto")
	fs.BoolVar(&f.version, "version", false, "print the version and exit")

	fs.Usage = func() {
		fmt.Fprintf(stderr, "Usage: nlexport [flags] FILE[:SKIP]...\n\n")
		fmt.Fprintf(stderr, "Merges NetLogo plots, world and BehaviorSpace exports into one table.\n\n")
		fs.PrintDefaults()
	}
	return fs
}

// resolve merges the job file, the flags and the positional inputs.
// Flags the user set explicitly win over the job file.
func (f *flags) resolve(fs *pflag.FlagSet, args []string) (*job, error) {
	if f.skip < 0 {
		return nil, usagef("--skip must be non-negative, got %d", f.skip)
	}
	if f.maxSteps < 0 {
		return nil, usagef("--max-steps must be non-negative, got %d", f.maxSteps)
	}

	var inputs []core.Input
	if f.manifest != "" {
		m, err := manifest.Load(f.manifest)
		if err != nil {
			return nil, err
		}
		f.applyManifest(fs, m)
		inputs = m.CoreInputs()
	}

	for _, arg := range args {
		in, err := core.ParseInput(arg)
		if err != nil {
			return nil, &usageError{err: err}
		}
		inputs = append(inputs, in)
	}
	for i := range inputs {
		if !inputs[i].HasSkip {
			inputs[i].Skip = f.skip
		}
	}
	if len(inputs) == 0 {
		return nil, usagef("no input files (give FILE arguments or --manifest)")
	}

	target, err := dump.ParseTarget(f.target)
	if err != nil {
		return nil, &usageError{err: err}
	}
	writer, err := output.ForFormat(f.format, output.UnescapeSep(f.sep), f.na)
	if err != nil {
		return nil, &usageError{err: err}
	}
	if f.force && f.pgTable == "" {
		return nil, usagef("--force only applies with --pg-table")
	}

	return &job{
		inputs: inputs,
		opts: core.Options{
			Target:   target,
			Metadata: f.meta,
			Charset:  f.encoding,
			MaxSteps: f.maxSteps,
		},
		writer:    writer,
		out:       f.out,
		summary:   f.summary,
		pgTable:   f.pgTable,
		force:     f.force,
		logLevel:  f.logLevel,
		logFormat: f.logFormat,
	}, nil
}

func (f *flags) applyManifest(fs *pflag.FlagSet, m *manifest.Manifest) {
	set := func(name string, dst *string, v string) {
		if v != "" && !fs.Changed(name) {
			*dst = v
		}
	}
	set("target", &f.target, m.Target)
	set("sep", &f.sep, m.Sep)
	set("na", &f.na, m.NA)
	set("encoding", &f.encoding, m.Encoding)
	set("format", &f.format, m.Format)
	set("out", &f.out, m.Out)
	set("pg-table", &f.pgTable, m.PGTable)
	if m.Meta != nil && !fs.Changed("meta") {
		f.meta = *m.Meta
	}
}
