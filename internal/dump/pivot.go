package dump

import (
	"sort"
	"strconv"

	"github.com/JonMunkholm/nlexport/internal/table"
)

// SeriesLen is the number of rows needed to hold every sample of every
// series: one more than the largest step written.
func SeriesLen(series map[string]map[int]string) int {
	n := 0
	for _, s := range series {
		for step := range s {
			if step+1 > n {
				n = step + 1
			}
		}
	}
	return n
}

// PivotSeries turns sparse per-pen samples into one row per step. Columns
// are the meta fields, then step, then the series names in sorted order.
// Rows run from step 0 to maxStep-1 and a step a series never wrote is NA.
func PivotSeries(meta []Field, series map[string]map[int]string, maxStep int) *table.Table {
	keys := make([]string, 0, len(series))
	for k := range series {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	headers := make([]string, 0, len(meta)+1+len(keys))
	for _, f := range meta {
		headers = append(headers, f.Name)
	}
	headers = append(headers, "step")
	headers = append(headers, keys...)
	t := table.MustNew(table.Unique(headers)...)

	for step := 0; step < maxStep; step++ {
		row := make(table.Row, 0, len(headers))
		for _, f := range meta {
			row = append(row, table.Val(f.Value))
		}
		row = append(row, table.Val(strconv.Itoa(step)))
		for _, k := range keys {
			if v, ok := series[k][step]; ok {
				row = append(row, table.Val(v))
			} else {
				row = append(row, table.NA)
			}
		}
		t.Rows = append(t.Rows, row)
	}
	return t
}

// plotSeries flattens plot blocks into series keyed by plot and pen name.
func plotSeries(plots []*PlotBlock) map[string]map[int]string {
	out := make(map[string]map[int]string)
	for _, p := range plots {
		for _, pen := range p.Pens {
			s, ok := p.Series[pen.Name]
			if !ok {
				continue
			}
			out[p.Name+"."+pen.Name] = s
		}
	}
	return out
}
