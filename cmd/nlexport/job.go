package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"text/tabwriter"

	"github.com/JonMunkholm/nlexport/internal/config"
	"github.com/JonMunkholm/nlexport/internal/core"
	"github.com/JonMunkholm/nlexport/internal/logging"
	"github.com/JonMunkholm/nlexport/internal/output"
	"github.com/JonMunkholm/nlexport/internal/store"
	"github.com/JonMunkholm/nlexport/internal/table"
)

// job is one fully resolved invocation.
type job struct {
	inputs    []core.Input
	opts      core.Options
	writer    output.Writer
	out       string
	summary   bool
	pgTable   string
	force     bool
	logLevel  string
	logFormat string
}

func (j *job) run(ctx context.Context, cfg *config.Config, stdout, stderr io.Writer) error {
	log := logging.New(stderr, j.logLevel, j.logFormat)
	slog.SetDefault(log)

	var (
		loader  *store.Loader
		digests map[string]string
	)
	if j.pgTable != "" {
		if !cfg.Database.Enabled() {
			return usagef("--pg-table needs DATABASE_URL")
		}
		pool, err := store.Connect(ctx, &cfg.Database)
		if err != nil {
			return err
		}
		defer pool.Close()
		loader = store.NewLoader(pool)
		if err := loader.EnsureHistory(ctx); err != nil {
			return err
		}
		if digests, err = j.skipLoaded(ctx, loader); err != nil {
			return err
		}
		if len(j.inputs) == 0 {
			log.Info("every input was imported before; nothing to do (use --force to reload)")
			return nil
		}
	}

	conv, err := core.NewConverter(j.opts)
	if err != nil {
		return err
	}
	merged, report, err := conv.Convert(ctx, j.inputs)
	if err != nil {
		return err
	}

	if err := j.write(stdout, merged); err != nil {
		return err
	}

	if j.summary {
		if err := writeSummary(stderr, core.Summarize(merged)); err != nil {
			return err
		}
	}

	if loader != nil {
		imports := make([]store.Import, len(report.Files))
		for i, fr := range report.Files {
			imports[i] = store.Import{
				File:   fr.Name,
				Digest: digests[fr.Name],
				Target: string(j.opts.Target),
				Rows:   fr.Rows,
			}
		}
		n, err := loader.LoadRun(ctx, table.Sanitize(j.pgTable), merged, imports)
		if err != nil {
			return err
		}
		log.Info("loaded table", "table", j.pgTable, "rows", n)
	}
	return nil
}

// skipLoaded drops inputs whose digest is already in the import history,
// unless forced, and returns the digest of every remaining file. Stdin is
// never skipped and has no digest.
func (j *job) skipLoaded(ctx context.Context, loader *store.Loader) (map[string]string, error) {
	digests := make(map[string]string, len(j.inputs))
	kept := j.inputs[:0]
	for _, in := range j.inputs {
		if in.Path == core.Stdin {
			kept = append(kept, in)
			continue
		}
		d, err := store.Digest(in.Path)
		if err != nil {
			return nil, err
		}
		if !j.force {
			loaded, err := loader.Loaded(ctx, d)
			if err != nil {
				return nil, err
			}
			if loaded {
				slog.Info("skipping already imported file", "file", in.Path, "digest", d)
				continue
			}
		}
		digests[in.Path] = d
		kept = append(kept, in)
	}
	j.inputs = kept
	return digests, nil
}

// write renders t to --out, or stdout when unset.
func (j *job) write(stdout io.Writer, t *table.Table) error {
	if j.out == "" || j.out == "-" {
		return j.writer.Write(stdout, t)
	}
	f, err := os.Create(j.out)
	if err != nil {
		return err
	}
	if err := j.writer.Write(f, t); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", j.out, err)
	}
	return f.Close()
}

func writeSummary(w io.Writer, cols []core.ColumnSummary) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "column\tcount\tmissing\tmin\tmax\tmean\tmedian\tstddev\t")
	for _, c := range cols {
		if !c.Numeric {
			fmt.Fprintf(tw, "%s\t%d\t%d\t-\t-\t-\t-\t-\t\n", c.Name, c.Count, c.Missing)
			continue
		}
		fmt.Fprintf(tw, "%s\t%d\t%d\t%g\t%g\t%.4g\t%g\t%.4g\t\n",
			c.Name, c.Count, c.Missing, c.Min, c.Max, c.Mean, c.Median, c.StdDev)
	}
	return tw.Flush()
}
