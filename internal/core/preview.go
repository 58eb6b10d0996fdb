package core

import (
	"github.com/JonMunkholm/nlexport/internal/table"
)

// DefaultPreviewRows is how many leading rows a preview carries.
const DefaultPreviewRows = 10

// PreviewResponse describes a conversion without shipping the whole table.
type PreviewResponse struct {
	Report           *Report         `json:"report"`
	Headers          []string        `json:"headers"`
	Columns          []ColumnSummary `json:"columns"`
	Samples          [][]string      `json:"samples"`
	Truncated        bool            `json:"truncated"`
	ProcessingTimeMs int64           `json:"processingTimeMs"`
}

// Preview summarizes a converted table: every column's statistics and the
// first maxRows rows with absent cells rendered as na. A non-positive
// maxRows selects DefaultPreviewRows.
func Preview(t *table.Table, report *Report, maxRows int, na string) *PreviewResponse {
	if maxRows <= 0 {
		maxRows = DefaultPreviewRows
	}
	n := min(maxRows, t.Len())
	samples := make([][]string, n)
	for i := range n {
		samples[i] = t.Rows[i].Texts(na)
	}
	return &PreviewResponse{
		Report:           report,
		Headers:          t.Headers,
		Columns:          Summarize(t),
		Samples:          samples,
		Truncated:        t.Len() > n,
		ProcessingTimeMs: report.Duration.Milliseconds(),
	}
}
