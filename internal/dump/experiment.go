package dump

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/JonMunkholm/nlexport/internal/table"
)

// ExperimentFormat is the encoding of a BehaviorSpace export body.
type ExperimentFormat int

const (
	// FormatTable has one row per run and step.
	FormatTable ExperimentFormat = iota
	// FormatSpreadsheet has one column per run and reporter and one row
	// per step.
	FormatSpreadsheet
)

func (f ExperimentFormat) String() string {
	if f == FormatSpreadsheet {
		return "spreadsheet"
	}
	return "table"
}

const (
	cellRunNumber = "[run number]"
	cellStep      = "[step]"
	cellReporter  = "[reporter]"
	cellSteps     = "[steps]"
)

// sniffFormat decides the body encoding from the header row: a spreadsheet
// header lists run numbers where a table header lists column names.
func sniffFormat(header []string) ExperimentFormat {
	if len(header) > 1 && isDecimal(strings.TrimSpace(header[1])) {
		return FormatSpreadsheet
	}
	return FormatTable
}

// isDecimal reports whether s is digits with at most one decimal point.
// Names such as nan, Inf or 0x1p3 are not numbers here.
func isDecimal(s string) bool {
	digits, dot := 0, false
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
			digits++
		case r == '.' && !dot:
			dot = true
		default:
			return false
		}
	}
	return digits > 0
}

// ParseExperiment reads a BehaviorSpace export in either encoding into one
// row per run and step.
func ParseExperiment(r io.Reader, opts Options) (*table.Table, error) {
	target, err := opts.Target.resolve(KindExperiment)
	if err != nil {
		return nil, &ParseError{Path: opts.Name, Err: err}
	}
	log := opts.logger().With("file", opts.Name, "kind", KindExperiment.String(), "target", string(target))
	c := newCursor(r, opts.Name, log)

	pre, err := c.readPreamble(true)
	if err != nil {
		return nil, err
	}
	if _, _, err := c.readConsts("world dimensions"); err != nil {
		return nil, err
	}

	header, err := c.expect(cellRunNumber)
	if err != nil {
		return nil, err
	}
	if header[0] != cellRunNumber {
		return nil, c.wrap(&MalformedHeaderError{Expected: cellRunNumber, Found: header[0]})
	}

	var meta []Field
	if opts.Metadata {
		meta = metaFields(opts.Name, pre)
	}

	format := sniffFormat(header)
	log.Debug("experiment format", "format", format.String())
	if format == FormatSpreadsheet {
		return c.readSpreadsheet(header, meta)
	}

	t, err := c.readExperimentTable(header)
	if err != nil {
		return nil, err
	}
	if len(meta) > 0 {
		t = t.Prepend(splitFields(meta))
	}
	return t, nil
}

func (c *cursor) readExperimentTable(header []string) (*table.Table, error) {
	headers := make([]string, len(header))
	for i, h := range header {
		switch h {
		case cellRunNumber:
			headers[i] = "run"
		case cellStep:
			headers[i] = "step"
		default:
			headers[i] = h
		}
	}
	t, err := table.New(table.Unique(headers))
	if err != nil {
		return nil, c.wrap(err)
	}

	for {
		cells, err := c.next()
		if errors.Is(err, io.EOF) {
			return t, nil
		}
		if err != nil {
			return nil, err
		}
		if isBlank(cells) {
			return t, nil
		}
		row := make(table.Row, len(cells))
		for i, v := range cells {
			if v != "" {
				row[i] = table.Val(v)
			}
		}
		if err := t.Append(row); err != nil {
			return nil, c.wrap(err)
		}
	}
}

// spreadsheet is the column layout of a spreadsheet body: runs in header
// order, each spanning perRun adjacent cells after the row label.
type spreadsheet struct {
	runs   []string
	perRun int
}

func (s spreadsheet) cell(cells []string, run, offset int) string {
	i := 1 + run*s.perRun + offset
	if i < len(cells) {
		return cells[i]
	}
	return ""
}

// spreadsheetLayout reads the run numbers off the header. A run may be
// repeated once per reporter or given once followed by blank cells.
func spreadsheetLayout(header []string) (spreadsheet, error) {
	var s spreadsheet
	width := len(header) - 1
	prev := ""
	for _, h := range header[1:] {
		if h != "" && h != prev {
			s.runs = append(s.runs, h)
			prev = h
		}
	}
	if len(s.runs) == 0 || width%len(s.runs) != 0 {
		return s, &MalformedHeaderError{
			Expected: "run numbers spanning equal column groups",
			Found:    strings.Join(header, ","),
		}
	}
	s.perRun = width / len(s.runs)
	return s, nil
}

func (c *cursor) readSpreadsheet(header []string, meta []Field) (*table.Table, error) {
	layout, err := spreadsheetLayout(header)
	if err != nil {
		return nil, c.wrap(err)
	}

	// parameter rows: name, then one value per run
	params := make(map[string][]string)
	var reporterRow []string
	for {
		cells, err := c.expect(cellReporter)
		if err != nil {
			return nil, err
		}
		if cells[0] == cellReporter {
			reporterRow = cells
			break
		}
		if isBlank(cells) {
			continue
		}
		vals := make([]string, len(layout.runs))
		for run := range layout.runs {
			vals[run] = layout.cell(cells, run, 0)
		}
		params[cells[0]] = vals
	}

	reporters := make([]string, layout.perRun)
	for r := range reporters {
		reporters[r] = layout.cell(reporterRow, 0, r)
	}

	// summary statistics are recomputable from the data and are skipped
	var stepsRow []string
	for {
		cells, err := c.expect(cellSteps)
		if err != nil {
			return nil, err
		}
		if cells[0] == cellSteps {
			stepsRow = cells
			break
		}
	}
	maxStep := 0
	for _, v := range stepsRow[1:] {
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return nil, c.wrap(&MalformedCellError{Column: 1, Reason: fmt.Sprintf("step count %q is not an integer", v)})
		}
		if n > maxStep {
			maxStep = n
		}
	}

	if err := c.skipBlank(); err != nil {
		return nil, err
	}
	if _, err := c.expect("reporter headings"); err != nil {
		return nil, err
	}

	names := make([]string, 0, len(params))
	for n := range params {
		names = append(names, n)
	}
	sort.Strings(names)

	headers := make([]string, 0, len(meta)+len(names)+2+len(reporters))
	for _, f := range meta {
		headers = append(headers, f.Name)
	}
	headers = append(headers, names...)
	headers = append(headers, "run", "step")
	headers = append(headers, reporters...)
	t := table.MustNew(table.Unique(headers)...)

	for step := 0; step <= maxStep; step++ {
		cells, err := c.next()
		if errors.Is(err, io.EOF) || (err == nil && isBlank(cells)) {
			c.log.Warn("spreadsheet data ended early", "step", step, "steps", maxStep+1)
			break
		}
		if err != nil {
			return nil, err
		}
		for run, runNumber := range layout.runs {
			row := make(table.Row, 0, len(headers))
			for _, f := range meta {
				row = append(row, table.Val(f.Value))
			}
			for _, n := range names {
				row = append(row, table.Val(params[n][run]))
			}
			row = append(row, table.Val(runNumber), table.Val(strconv.Itoa(step)))
			for r := range reporters {
				if v := layout.cell(cells, run, r); v != "" {
					row = append(row, table.Val(v))
				} else {
					row = append(row, table.NA)
				}
			}
			t.Rows = append(t.Rows, row)
		}
	}
	return t, nil
}
