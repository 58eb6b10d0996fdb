package core

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/JonMunkholm/nlexport/internal/dump"
	"github.com/JonMunkholm/nlexport/internal/logging"
	"github.com/JonMunkholm/nlexport/internal/table"
)

// Options configures a Converter.
type Options struct {
	Target   dump.Target
	Metadata bool
	// Charset names the encoding of the inputs. Empty means UTF-8.
	Charset string
	// MaxSteps bounds the steps of a plot; zero uses dump.DefaultMaxSteps.
	MaxSteps int
}

// Input is one export to convert.
type Input struct {
	Path string
	// Skip drops this many rows from the front of the file's table.
	Skip int
	// HasSkip is set when Skip was given for this input, even as zero.
	HasSkip bool
}

// ParseInput parses a FILE or FILE:N argument. A suffix that is not a
// non-negative integer is taken as part of the path.
func ParseInput(arg string) (Input, error) {
	i := strings.LastIndexByte(arg, ':')
	if i <= 0 || i == len(arg)-1 {
		return Input{Path: arg}, nil
	}
	n, err := strconv.Atoi(arg[i+1:])
	if err != nil {
		return Input{Path: arg}, nil
	}
	if n < 0 {
		return Input{}, fmt.Errorf("invalid skip count %d in %q", n, arg)
	}
	return Input{Path: arg[:i], Skip: n, HasSkip: true}, nil
}

// Upload is an export that is already open, such as a multipart part.
type Upload struct {
	Name string
	Body io.Reader
	Skip int
}

// FileReport describes one converted input.
type FileReport struct {
	Name    string    `json:"name"`
	Kind    dump.Kind `json:"-"`
	Format  string    `json:"kind"`
	Rows    int       `json:"rows"`
	Columns int       `json:"columns"`
	Skipped int       `json:"skipped"`
	Bytes   int64     `json:"bytes"`
}

// Report describes a whole conversion run.
type Report struct {
	RunID    string        `json:"run_id"`
	Files    []FileReport  `json:"files"`
	Rows     int           `json:"rows"`
	Columns  int           `json:"columns"`
	Duration time.Duration `json:"duration"`
}

// Converter parses and merges exports.
type Converter struct {
	opts Options
}

// NewConverter validates opts and returns a Converter.
func NewConverter(opts Options) (*Converter, error) {
	if _, err := Charset(opts.Charset); err != nil {
		return nil, err
	}
	return &Converter{opts: opts}, nil
}

// Convert opens and converts every input in order and returns the merged
// table with sanitized headers.
func (c *Converter) Convert(ctx context.Context, inputs []Input) (*table.Table, *Report, error) {
	uploads := make([]Upload, len(inputs))
	for i, in := range inputs {
		uploads[i] = Upload{Name: in.Path, Skip: in.Skip}
	}
	return c.run(ctx, uploads, func(u Upload) (*Source, error) {
		src, err := Open(u.Name, c.opts.Charset)
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", u.Name, err)
		}
		return src, nil
	})
}

// ConvertUploads is Convert for already-open streams.
func (c *Converter) ConvertUploads(ctx context.Context, uploads []Upload) (*table.Table, *Report, error) {
	return c.run(ctx, uploads, func(u Upload) (*Source, error) {
		return Decode(u.Body, c.opts.Charset)
	})
}

func (c *Converter) run(ctx context.Context, uploads []Upload, open func(Upload) (*Source, error)) (*table.Table, *Report, error) {
	start := time.Now()
	report := &Report{RunID: uuid.NewString()}
	ctx = logging.WithRunID(ctx, report.RunID)
	log := logging.WithFields(ctx, "target", string(c.opts.Target), "inputs", len(uploads))
	log.Info("conversion started")

	var merged *table.Table
	for _, u := range uploads {
		if err := ctx.Err(); err != nil {
			return nil, report, err
		}
		t, fr, err := c.convertOne(ctx, u, open)
		if err != nil {
			log.Error("conversion failed", "file", u.Name, "error", err)
			return nil, report, err
		}
		report.Files = append(report.Files, fr)
		merged = table.Merge(merged, t)
	}
	if merged == nil {
		merged = table.MustNew()
	}

	merged = table.SanitizeHeaders(merged)
	report.Rows = merged.Len()
	report.Columns = merged.Width()
	report.Duration = time.Since(start)
	log.Info("conversion finished",
		"rows", report.Rows,
		"columns", report.Columns,
		"duration_ms", report.Duration.Milliseconds(),
	)
	return merged, report, nil
}

func (c *Converter) convertOne(ctx context.Context, u Upload, open func(Upload) (*Source, error)) (*table.Table, FileReport, error) {
	fr := FileReport{Name: u.Name}
	src, err := open(u)
	if err != nil {
		return nil, fr, err
	}
	defer src.Close()

	log := logging.WithFields(ctx, "file", u.Name)
	t, kind, err := dump.Parse(src, dump.Options{
		Name:     u.Name,
		Target:   c.opts.Target,
		Metadata: c.opts.Metadata,
		MaxSteps: c.opts.MaxSteps,
		Logger:   log,
	})
	fr.Kind, fr.Format, fr.Bytes = kind, kind.String(), src.Bytes
	if err != nil {
		return nil, fr, err
	}

	fr.Skipped = t.Skip(u.Skip)
	fr.Rows, fr.Columns = t.Len(), t.Width()
	c.checkKeys(log, t)
	log.Info("file parsed", "kind", fr.Format, "rows", fr.Rows, "columns", fr.Columns, "skipped", fr.Skipped)
	return t, fr, nil
}

// checkKeys logs turtles sharing a who number and links repeated between
// the same pair of turtles.
func (c *Converter) checkKeys(log *slog.Logger, t *table.Table) {
	switch c.opts.Target {
	case dump.TargetTurtles:
		byWho, err := dump.TurtlesByWho(t)
		if err != nil {
			log.Warn("turtles without who column", "error", err)
			return
		}
		if dup := t.Len() - len(byWho); dup > 0 {
			log.Warn("duplicate who numbers", "duplicates", dup)
		}
	case dump.TargetLinks:
		byEnds, err := dump.LinksByEnds(t)
		if err != nil {
			log.Warn("links without end columns", "error", err)
			return
		}
		repeated := 0
		for _, rows := range byEnds {
			if len(rows) > 1 {
				repeated++
			}
		}
		if repeated > 0 {
			log.Warn("repeated links", "pairs", repeated)
		}
	}
}
