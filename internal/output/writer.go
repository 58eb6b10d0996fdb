// Package output renders a converted table for analysis tools.
package output

import (
	"fmt"
	"io"
	"strings"

	"github.com/JonMunkholm/nlexport/internal/table"
)

// Writer renders a table to w.
type Writer interface {
	Write(w io.Writer, t *table.Table) error
	// ContentType is the MIME type of the rendered output.
	ContentType() string
	// Ext is the file extension, with the dot.
	Ext() string
}

// Formats lists the names ForFormat accepts.
var Formats = []string{"tsv", "xlsx"}

// ForFormat returns the writer for a format name. sep and na configure
// delimited output and are ignored by xlsx.
func ForFormat(format, sep, na string) (Writer, error) {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", "tsv", "csv", "txt":
		return NewTSVWriter(sep, na), nil
	case "xlsx":
		return &XLSXWriter{}, nil
	default:
		return nil, fmt.Errorf("unknown output format %q (want one of %s)", format, strings.Join(Formats, ", "))
	}
}

// UnescapeSep turns the escape sequences \t, \n and \\ into the characters
// they name, so separators can be given on a command line.
func UnescapeSep(s string) string {
	return strings.NewReplacer(`\t`, "\t", `\n`, "\n", `\\`, `\`).Replace(s)
}
