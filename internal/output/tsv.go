package output

import (
	"bufio"
	"io"

	"github.com/JonMunkholm/nlexport/internal/table"
)

const (
	DefaultSep = "\t"
)

// TSVWriter writes a header line and one line per row with fields joined
// by Sep. Fields are written as is; export cells never contain line breaks.
type TSVWriter struct {
	Sep string
	NA  string
}

// NewTSVWriter returns a writer with the given separator and NA text,
// defaulting to a tab and "NA".
func NewTSVWriter(sep, na string) *TSVWriter {
	if sep == "" {
		sep = DefaultSep
	}
	if na == "" {
		na = table.NAText
	}
	return &TSVWriter{Sep: sep, NA: na}
}

func (d *TSVWriter) ContentType() string {
	if d.Sep == "," {
		return "text/csv; charset=utf-8"
	}
	return "text/tab-separated-values; charset=utf-8"
}

func (d *TSVWriter) Ext() string {
	if d.Sep == "," {
		return ".csv"
	}
	return ".tsv"
}

func (d *TSVWriter) Write(w io.Writer, t *table.Table) error {
	bw := bufio.NewWriter(w)
	d.line(bw, t.Headers)
	for _, row := range t.Rows {
		d.line(bw, row.Texts(d.NA))
	}
	return bw.Flush()
}

// line writes errors into bw, which keeps the first one for Flush.
func (d *TSVWriter) line(bw *bufio.Writer, fields []string) {
	for i, f := range fields {
		if i > 0 {
			bw.WriteString(d.Sep)
		}
		bw.WriteString(f)
	}
	bw.WriteByte('\n')
}
