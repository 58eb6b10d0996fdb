package output

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/JonMunkholm/nlexport/internal/table"
)

func sample(t *testing.T) *table.Table {
	t.Helper()
	tbl := table.MustNew("step", "populations.sheep", "breed")
	require.NoError(t, tbl.Append(table.Strings("0", "100.0", "sheep")))
	require.NoError(t, tbl.Append(table.Row{table.Val("1"), table.NA, table.Val("")}))
	return tbl
}

func TestTSVWriter_Write(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewTSVWriter("", "").Write(&buf, sample(t)))

	want := "step\tpopulations.sheep\tbreed\n" +
		"0\t100.0\tsheep\n" +
		"1\tNA\t\n"
	assert.Equal(t, want, buf.String())
}

func TestTSVWriter_CustomSepAndNA(t *testing.T) {
	var buf bytes.Buffer
	d := NewTSVWriter(",", "")
	d.NA = "."
	require.NoError(t, d.Write(&buf, sample(t)))

	assert.Equal(t, "step,populations.sheep,breed\n0,100.0,sheep\n1,.,\n", buf.String())
	assert.Equal(t, ".csv", d.Ext())
	assert.Contains(t, d.ContentType(), "text/csv")
}

func TestTSVWriter_EmptyTable(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewTSVWriter("", "").Write(&buf, table.MustNew()))
	assert.Equal(t, "\n", buf.String())
}

func TestXLSXWriter_Write(t *testing.T) {
	var buf bytes.Buffer
	w := &XLSXWriter{Sheet: "runs"}
	require.NoError(t, w.Write(&buf, sample(t)))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{"runs"}, f.GetSheetList())

	get := func(cell string) string {
		v, err := f.GetCellValue("runs", cell)
		require.NoError(t, err)
		return v
	}
	assert.Equal(t, "step", get("A1"))
	assert.Equal(t, "populations.sheep", get("B1"))
	assert.Equal(t, "100", get("B2"))
	assert.Equal(t, "sheep", get("C2"))
	assert.Equal(t, "", get("B3"))

	typ, err := f.GetCellType("runs", "B2")
	require.NoError(t, err)
	assert.NotEqual(t, excelize.CellTypeSharedString, typ)
	assert.NotEqual(t, excelize.CellTypeInlineString, typ)
}

func TestForFormat(t *testing.T) {
	w, err := ForFormat("XLSX", "", "")
	require.NoError(t, err)
	assert.Equal(t, ".xlsx", w.Ext())

	w, err = ForFormat("", `\t`, "")
	require.NoError(t, err)
	d, ok := w.(*TSVWriter)
	require.True(t, ok)
	assert.Equal(t, `\t`, d.Sep)

	_, err = ForFormat("parquet", "", "")
	assert.Error(t, err)
}

func TestUnescapeSep(t *testing.T) {
	assert.Equal(t, "\t", UnescapeSep(`\t`))
	assert.Equal(t, ";", UnescapeSep(";"))
	assert.Equal(t, `\`, UnescapeSep(`\\`))
}
