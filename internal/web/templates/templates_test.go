package templates

import (
	"context"
	"strings"
	"testing"

	"github.com/a-h/templ"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func render(t *testing.T, c templ.Component) string {
	t.Helper()
	var b strings.Builder
	require.NoError(t, c.Render(context.Background(), &b))
	return b.String()
}

func TestIndex(t *testing.T) {
	got := render(t, Index(IndexData{
		Targets:     []Choice{{Value: "", Label: "default"}, {Value: "turtles", Label: "turtles"}},
		Formats:     []Choice{{Value: "tsv", Label: "TSV"}},
		MaxFiles:    5,
		MaxFileSize: 100 << 20,
		Metadata:    true,
	}))

	assert.Contains(t, got, `action="/api/convert"`)
	assert.Contains(t, got, `<option value="turtles">turtles</option>`)
	assert.Contains(t, got, "up to 5 files, 100 MB")
	assert.Contains(t, got, `value="true" checked`)
}

func TestErrorAlert_Escapes(t *testing.T) {
	got := render(t, ErrorAlert("bad <file>", "", "FMT001"))
	assert.Contains(t, got, "bad &lt;file&gt;")
	assert.Contains(t, got, "Code: FMT001")
	assert.NotContains(t, got, "<span>")
}
