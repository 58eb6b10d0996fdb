// Package templates renders the HTML served by the web package.
package templates

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/a-h/templ"
)

// Choice is one <option> of a select.
type Choice struct {
	Value string
	Label string
}

// IndexData configures the upload page.
type IndexData struct {
	Targets     []Choice
	Formats     []Choice
	MaxFiles    int
	MaxFileSize int64
	Metadata    bool
}

const indexHead = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>nlexport</title>
</head>
<body>
<main>
<h1>Convert NetLogo exports</h1>
<p>Upload plots, world or BehaviorSpace exports. They are merged into one table.</p>
<div id="errors"></div>
<form method="post" action="/api/convert" enctype="multipart/form-data">
`

const indexTail = `<button type="submit">Convert</button>
</form>
</main>
</body>
</html>
`

// Index renders the upload form.
func Index(d IndexData) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		var b strings.Builder
		b.WriteString(indexHead)
		fmt.Fprintf(&b, "<p><label>Exports (up to %d files, %s in total) <input type=\"file\" name=\"file\" multiple required></label></p>\n",
			d.MaxFiles, templ.EscapeString(humanSize(d.MaxFileSize)))
		writeSelect(&b, "target", "Extract", d.Targets)
		writeSelect(&b, "format", "Output", d.Formats)
		b.WriteString("<p><label>Separator <input type=\"text\" name=\"sep\" value=\"\\t\" size=\"3\"></label></p>\n")
		b.WriteString("<p><label>Skip rows per file <input type=\"number\" name=\"skip\" value=\"0\" min=\"0\"></label></p>\n")
		checked := ""
		if d.Metadata {
			checked = " checked"
		}
		fmt.Fprintf(&b, "<p><label><input type=\"checkbox\" name=\"meta\" value=\"true\"%s> Add metadata columns</label></p>\n", checked)
		b.WriteString(indexTail)
		_, err := io.WriteString(w, b.String())
		return err
	})
}

func writeSelect(b *strings.Builder, name, label string, choices []Choice) {
	fmt.Fprintf(b, "<p><label>%s <select name=\"%s\">\n", templ.EscapeString(label), templ.EscapeString(name))
	for _, c := range choices {
		fmt.Fprintf(b, "<option value=\"%s\">%s</option>\n", templ.EscapeString(c.Value), templ.EscapeString(c.Label))
	}
	b.WriteString("</select></label></p>\n")
}

// ErrorAlert renders an error fragment with the support code.
func ErrorAlert(message, action, code string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		_, err := fmt.Fprintf(w, "<div class=\"alert alert-error\" role=\"alert\"><strong>%s</strong>", templ.EscapeString(message))
		if err != nil {
			return err
		}
		if action != "" {
			if _, err := fmt.Fprintf(w, " <span>%s</span>", templ.EscapeString(action)); err != nil {
				return err
			}
		}
		_, err = fmt.Fprintf(w, " <small>Code: %s</small></div>\n", templ.EscapeString(code))
		return err
	})
}

func humanSize(n int64) string {
	const mb = 1 << 20
	if n >= mb {
		return fmt.Sprintf("%d MB", n/mb)
	}
	return fmt.Sprintf("%d bytes", n)
}
