package core

import (
	"strconv"
	"strings"

	"github.com/montanaflynn/stats"

	"github.com/JonMunkholm/nlexport/internal/table"
)

// ColumnSummary describes one column of a converted table. The numeric
// fields are set only when every present value parses as a number.
type ColumnSummary struct {
	Name    string  `json:"name"`
	Count   int     `json:"count"`
	Missing int     `json:"missing"`
	Numeric bool    `json:"numeric"`
	Min     float64 `json:"min,omitempty"`
	Max     float64 `json:"max,omitempty"`
	Mean    float64 `json:"mean,omitempty"`
	Median  float64 `json:"median,omitempty"`
	StdDev  float64 `json:"stddev,omitempty"`
}

// Summarize computes a ColumnSummary per column, in header order.
func Summarize(t *table.Table) []ColumnSummary {
	out := make([]ColumnSummary, len(t.Headers))
	for i, name := range t.Headers {
		out[i] = summarizeColumn(t, i, name)
	}
	return out
}

func summarizeColumn(t *table.Table, col int, name string) ColumnSummary {
	s := ColumnSummary{Name: name}
	data := make(stats.Float64Data, 0, len(t.Rows))
	numeric := true
	for _, row := range t.Rows {
		v, ok := row[col].Value()
		if !ok {
			s.Missing++
			continue
		}
		s.Count++
		if !numeric {
			continue
		}
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			numeric = false
			continue
		}
		data = append(data, f)
	}
	if !numeric || len(data) == 0 {
		return s
	}

	s.Numeric = true
	// errors only occur for empty input, ruled out above
	s.Min, _ = stats.Min(data)
	s.Max, _ = stats.Max(data)
	s.Mean, _ = stats.Mean(data)
	s.Median, _ = stats.Median(data)
	s.StdDev, _ = stats.StandardDeviation(data)
	return s
}
