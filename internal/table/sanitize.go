package table

import "regexp"

var nonWord = regexp.MustCompile(`\W`)

// Sanitize maps a column name to a safe output identifier: every non-word
// character becomes '.', and a leading digit gets a '_' prefix.
// Sanitize(Sanitize(s)) == Sanitize(s).
func Sanitize(name string) string {
	s := nonWord.ReplaceAllString(name, ".")
	if s != "" && s[0] >= '0' && s[0] <= '9' {
		s = "_" + s
	}
	return s
}

// SanitizeHeaders returns t with sanitized headers. Rows are shared with t.
// Names that collide after sanitizing ("a b" and "a.b") are made distinct
// with Unique.
func SanitizeHeaders(t *Table) *Table {
	names := make([]string, len(t.Headers))
	for i, h := range t.Headers {
		names[i] = Sanitize(h)
	}
	out := &Table{Headers: Unique(names), Rows: t.Rows}
	out.reindex()
	return out
}
