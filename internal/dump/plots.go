package dump

import (
	"io"

	"github.com/JonMunkholm/nlexport/internal/table"
)

const sectionModelSettings = "MODEL SETTINGS"

// ParsePlots reads a plots export and pivots every pen of every plot into
// one row per step.
func ParsePlots(r io.Reader, opts Options) (*table.Table, error) {
	target, err := opts.Target.resolve(KindPlots)
	if err != nil {
		return nil, &ParseError{Path: opts.Name, Err: err}
	}
	log := opts.logger().With("file", opts.Name, "kind", KindPlots.String(), "target", string(target))
	c := newCursor(r, opts.Name, log)
	c.maxSteps = opts.maxSteps()

	pre, err := c.readPreamble(false)
	if err != nil {
		return nil, err
	}
	if err := c.skipTo(sectionModelSettings); err != nil {
		return nil, err
	}
	names, values, err := c.readConsts(sectionModelSettings)
	if err != nil {
		return nil, err
	}
	if err := c.skipBlank(); err != nil {
		return nil, err
	}

	var plots []*PlotBlock
	for {
		p, ok, err := c.readPlot()
		if err != nil {
			return nil, err
		}
		if !ok {
			break
		}
		plots = append(plots, p)
	}

	var meta []Field
	if opts.Metadata {
		meta = metaFields(opts.Name, pre, constFields(log, sectionModelSettings, names, values)...)
	}
	series := plotSeries(plots)
	t := PivotSeries(meta, series, SeriesLen(series))
	log.Debug("plots pivoted", "plots", len(plots), "series", len(series), "rows", t.Len())
	return t, nil
}
