package dump

import (
	"bufio"
	"errors"
	"io"
	"log/slog"
	"strings"

	"github.com/JonMunkholm/nlexport/internal/table"
)

// cursor reads an export strictly forward with at most one line of
// lookahead. It tracks line numbers so every error it returns is a
// *ParseError pointing at the offending line.
type cursor struct {
	r    *bufio.Reader
	path string
	log  *slog.Logger

	line int // number of the last consumed line

	// maxSteps bounds plot x values; zero means DefaultMaxSteps.
	maxSteps int

	peeked  bool
	pending string
	pendErr error
}

func newCursor(r io.Reader, path string, log *slog.Logger) *cursor {
	if log == nil {
		log = slog.Default()
	}
	return &cursor{
		r:    bufio.NewReaderSize(r, 64*1024),
		path: path,
		log:  log,
	}
}

func (c *cursor) read() (string, error) {
	s, err := c.r.ReadString('\n')
	if err == io.EOF && s != "" {
		err = nil
	}
	if err != nil {
		return "", err
	}
	return strings.TrimRight(s, "\r\n"), nil
}

// nextLine consumes one raw line. It returns io.EOF at end of input.
func (c *cursor) nextLine() (string, error) {
	if c.peeked {
		c.peeked = false
		if c.pendErr == nil {
			c.line++
		}
		return c.pending, c.pendErr
	}
	s, err := c.read()
	if err == nil {
		c.line++
	}
	return s, err
}

// peekLine returns the next raw line without consuming it.
func (c *cursor) peekLine() (string, error) {
	if !c.peeked {
		c.pending, c.pendErr = c.read()
		c.peeked = true
	}
	return c.pending, c.pendErr
}

// next consumes and splits one line.
func (c *cursor) next() ([]string, error) {
	s, err := c.nextLine()
	if err != nil {
		return nil, c.wrap(err)
	}
	cells, err := SplitLine(s)
	if err != nil {
		return nil, c.wrap(err)
	}
	return cells, nil
}

// peek splits the next line without consuming it.
func (c *cursor) peek() ([]string, error) {
	s, err := c.peekLine()
	if err != nil {
		return nil, c.wrapAt(err, c.line+1)
	}
	cells, err := SplitLine(s)
	if err != nil {
		return nil, c.wrapAt(err, c.line+1)
	}
	return cells, nil
}

func (c *cursor) wrap(err error) error { return c.wrapAt(err, c.line) }

func (c *cursor) wrapAt(err error, line int) error {
	if err == nil || errors.Is(err, io.EOF) {
		return err
	}
	var pe *ParseError
	if errors.As(err, &pe) {
		return err
	}
	return &ParseError{Path: c.path, Line: line, Err: err}
}

// skipTo discards lines up to and including the first line that is exactly
// marker, quoted or not. Reaching end of input first is a
// *SectionNotFoundError.
func (c *cursor) skipTo(marker string) error {
	quoted := `"` + marker + `"`
	for {
		s, err := c.nextLine()
		if errors.Is(err, io.EOF) {
			return &ParseError{Path: c.path, Line: c.line, Err: &SectionNotFoundError{Marker: marker}}
		}
		if err != nil {
			return c.wrap(err)
		}
		s = strings.TrimSpace(s)
		if s == marker || s == quoted {
			return nil
		}
	}
}

// skipBlank consumes the next line if it is blank.
func (c *cursor) skipBlank() error {
	cells, err := c.peek()
	if errors.Is(err, io.EOF) {
		return nil
	}
	if err != nil {
		return err
	}
	if isBlank(cells) {
		_, err = c.nextLine()
	}
	return err
}

// expect consumes one line and fails if the input ends first.
func (c *cursor) expect(what string) ([]string, error) {
	cells, err := c.next()
	if errors.Is(err, io.EOF) {
		return nil, &ParseError{Path: c.path, Line: c.line, Err: &SectionNotFoundError{Marker: what}}
	}
	return cells, err
}

// readConsts reads a row of names followed by a row of aligned values.
func (c *cursor) readConsts(what string) (names, values []string, err error) {
	if names, err = c.expect(what); err != nil {
		return nil, nil, err
	}
	if values, err = c.expect(what + " values"); err != nil {
		return nil, nil, err
	}
	for len(values) < len(names) {
		values = append(values, "")
	}
	return names, values[:len(names)], nil
}

// readSheet reads a header row and the data rows that follow it. The sheet
// ends at end of input or at the first row whose width differs from the
// header's, or at a blank row. A row of the wrong width is left unread; a
// blank one is consumed.
func (c *cursor) readSheet(what string) (*table.Table, error) {
	headers, err := c.expect(what)
	if err != nil {
		return nil, err
	}
	t, err := table.New(headers)
	if err != nil {
		return nil, c.wrap(err)
	}

	for {
		cells, err := c.peek()
		if errors.Is(err, io.EOF) {
			return t, nil
		}
		if err != nil {
			return nil, err
		}
		if blank := isBlank(cells); blank || len(cells) != len(headers) {
			if blank {
				_, err = c.nextLine()
			}
			c.log.Debug("sheet ended", "section", what, "line", c.line+1, "rows", t.Len())
			return t, err
		}
		if _, err := c.nextLine(); err != nil {
			return nil, c.wrap(err)
		}
		if err := t.Append(table.Strings(cells...)); err != nil {
			return nil, c.wrap(err)
		}
	}
}

// Preamble is the identifying block at the top of every export.
type Preamble struct {
	Platform   string
	Model      string
	Experiment string
	Date       string
}

// readPreamble reads the platform line and the single-cell lines under it.
// The last of those is the export date; with withExperiment the one before
// it names the BehaviorSpace experiment; anything before that is the model
// path.
func (c *cursor) readPreamble(withExperiment bool) (Preamble, error) {
	first, err := c.expect("platform line")
	if err != nil {
		return Preamble{}, err
	}
	p := Preamble{Platform: first[0]}

	var lines []string
	for {
		cells, err := c.peek()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return p, err
		}
		if len(cells) != 1 || cells[0] == "" {
			break
		}
		if _, err := c.nextLine(); err != nil {
			return p, c.wrap(err)
		}
		lines = append(lines, cells[0])
	}

	if n := len(lines); n > 0 {
		p.Date = lines[n-1]
		lines = lines[:n-1]
	}
	if withExperiment {
		if n := len(lines); n > 0 {
			p.Experiment = lines[n-1]
			lines = lines[:n-1]
		}
	}
	if len(lines) > 0 {
		p.Model = lines[0]
	}
	return p, nil
}
