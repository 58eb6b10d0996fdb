package dump

import (
	"errors"
	"io"

	"github.com/JonMunkholm/nlexport/internal/table"
)

// World export section markers, in file order.
const (
	sectionGlobals = "GLOBALS"
	sectionTurtles = "TURTLES"
	sectionPatches = "PATCHES"
	sectionLinks   = "LINKS"
	sectionOutput  = "OUTPUT"
	sectionPlots   = "PLOTS"
)

// ParseWorld extracts one target from a world export: the turtles,
// patches or links sheet, or every plot pivoted to one row per step.
// Sections after the requested one are never read.
func ParseWorld(r io.Reader, opts Options) (*table.Table, error) {
	target, err := opts.Target.resolve(KindWorld)
	if err != nil {
		return nil, &ParseError{Path: opts.Name, Err: err}
	}
	log := opts.logger().With("file", opts.Name, "kind", KindWorld.String(), "target", string(target))
	c := newCursor(r, opts.Name, log)
	c.maxSteps = opts.maxSteps()

	pre, err := c.readPreamble(false)
	if err != nil {
		return nil, err
	}

	if err := c.skipTo(sectionGlobals); err != nil {
		return nil, err
	}
	names, values, err := c.readConsts(sectionGlobals)
	if err != nil {
		return nil, err
	}
	globals := constFields(log, sectionGlobals, names, values)
	if dropped := len(names) - len(globals); dropped > 0 {
		log.Debug("globals dropped", "count", dropped)
	}
	meta := metaFields(opts.Name, pre, globals...)

	for _, s := range []struct {
		marker string
		target Target
	}{
		{sectionTurtles, TargetTurtles},
		{sectionPatches, TargetPatches},
		{sectionLinks, TargetLinks},
	} {
		if err := c.skipTo(s.marker); err != nil {
			return nil, err
		}
		if target != s.target {
			continue
		}
		t, err := c.readSheet(s.marker)
		if err != nil {
			return nil, err
		}
		if opts.Metadata {
			t = t.Prepend(splitFields(meta))
		}
		return t, nil
	}

	if err := c.skipTo(sectionOutput); err != nil {
		return nil, err
	}
	if err := c.skipTo(sectionPlots); err != nil {
		return nil, err
	}
	plots, err := c.readWorldPlots()
	if err != nil {
		return nil, err
	}

	series := plotSeries(plots)
	if !opts.Metadata {
		meta = nil
	}
	t := PivotSeries(meta, series, SeriesLen(series))
	log.Debug("plots pivoted", "plots", len(plots), "series", len(series), "rows", t.Len())
	return t, nil
}

// readWorldPlots reads the plot blocks of a world export. The PLOTS marker
// may be followed by the name of the current plot before the first block;
// that line is told apart from a block's own name line by what follows it.
func (c *cursor) readWorldPlots() ([]*PlotBlock, error) {
	first, err := c.next()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	name := first[0]
	next, err := c.peek()
	switch {
	case errors.Is(err, io.EOF):
		return nil, nil
	case err != nil:
		return nil, err
	case len(next) == 1 && next[0] != "":
		name = next[0]
		if _, err := c.nextLine(); err != nil {
			return nil, c.wrap(err)
		}
	}

	var plots []*PlotBlock
	p, ok, err := c.readPlotNamed(name)
	for ; ok && err == nil; p, ok, err = c.readPlot() {
		plots = append(plots, p)
	}
	return plots, err
}
