package dump

import (
	"fmt"
	"log/slog"
	"strings"
)

// Kind is the export flavour, decided from a file's first line.
type Kind int

const (
	KindUnknown Kind = iota
	KindPlots
	KindWorld
	KindExperiment
)

func (k Kind) String() string {
	switch k {
	case KindPlots:
		return "plots"
	case KindWorld:
		return "world"
	case KindExperiment:
		return "BehaviorSpace"
	default:
		return "unknown"
	}
}

// Target names the data a caller wants out of an export.
type Target string

const (
	TargetDefault    Target = ""
	TargetTurtles    Target = "turtles"
	TargetPatches    Target = "patches"
	TargetLinks      Target = "links"
	TargetPlots      Target = "plots"
	TargetExperiment Target = "experiment"
)

// Targets lists every accepted target name.
var Targets = []Target{TargetTurtles, TargetPatches, TargetLinks, TargetPlots, TargetExperiment}

// ParseTarget accepts a target name case-insensitively. The empty string
// selects each kind's natural target.
func ParseTarget(s string) (Target, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return TargetDefault, nil
	}
	for _, t := range Targets {
		if string(t) == s {
			return t, nil
		}
	}
	return "", fmt.Errorf("unknown target %q (want one of turtles, patches, links, plots, experiment)", s)
}

// resolve picks the target for a kind and rejects combinations the kind
// cannot produce.
func (t Target) resolve(k Kind) (Target, error) {
	switch k {
	case KindWorld:
		switch t {
		case TargetDefault:
			return TargetPlots, nil
		case TargetTurtles, TargetPatches, TargetLinks, TargetPlots:
			return t, nil
		}
	case KindPlots:
		if t == TargetDefault || t == TargetPlots {
			return TargetPlots, nil
		}
	case KindExperiment:
		if t == TargetDefault || t == TargetExperiment {
			return TargetExperiment, nil
		}
	}
	return "", &TargetMismatchError{Kind: k, Target: t}
}

// Options controls one parse. The zero value parses the kind's default
// target without metadata columns and logs to slog.Default.
type Options struct {
	// Name identifies the source in errors and in the file metadata column.
	Name string

	Target Target

	// Metadata prepends per-row columns describing the source file.
	Metadata bool

	Logger *slog.Logger

	// MaxSteps bounds the plot steps a file may produce. Zero means
	// DefaultMaxSteps.
	MaxSteps int
}

// DefaultMaxSteps is the step limit used when Options.MaxSteps is zero.
const DefaultMaxSteps = 1_000_000

func (o Options) maxSteps() int {
	if o.MaxSteps > 0 {
		return o.MaxSteps
	}
	return DefaultMaxSteps
}

func (o Options) logger() *slog.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return slog.Default()
}

// Field is one named constant carried into the metadata columns.
type Field struct {
	Name  string
	Value string
}

// metaFields lists the metadata columns for a parsed preamble, followed by
// any extra constants.
func metaFields(name string, p Preamble, extra ...Field) []Field {
	fields := []Field{
		{Name: "file", Value: name},
		{Name: "platform", Value: p.Platform},
	}
	if p.Model != "" {
		fields = append(fields, Field{Name: "model", Value: p.Model})
	}
	if p.Experiment != "" {
		fields = append(fields, Field{Name: "experiment", Value: p.Experiment})
	}
	fields = append(fields, Field{Name: "date", Value: p.Date})
	return append(fields, extra...)
}

func splitFields(fields []Field) (names, values []string) {
	names = make([]string, len(fields))
	values = make([]string, len(fields))
	for i, f := range fields {
		names[i] = f.Name
		values[i] = f.Value
	}
	return names, values
}

// constFields pairs a names row with its values row, dropping nested
// list or set values and unnamed columns.
func constFields(log *slog.Logger, section string, names, values []string) []Field {
	fields := make([]Field, 0, len(names))
	for i, n := range names {
		if n == "" {
			continue
		}
		v := values[i]
		if strings.ContainsAny(v, "[{") {
			log.Debug("dropping nested value", "section", section, "name", n)
			continue
		}
		fields = append(fields, Field{Name: n, Value: v})
	}
	return fields
}
