package dump

import (
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
)

// PenMode is how a pen draws its samples.
type PenMode int

const (
	PenLine PenMode = iota
	PenBar
	PenPoint
	PenUnknown
)

func parsePenMode(s string) PenMode {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 0 || n > int(PenPoint) {
		return PenUnknown
	}
	return PenMode(n)
}

func (m PenMode) String() string {
	switch m {
	case PenLine:
		return "line"
	case PenBar:
		return "bar"
	case PenPoint:
		return "point"
	default:
		return "unknown"
	}
}

// Supported reports whether samples drawn in this mode are extracted.
// Only line pens are; the cells of other pens are read past.
func (m PenMode) Supported() bool { return m == PenLine }

// Pen is one data series of a plot.
type Pen struct {
	Name       string
	Mode       PenMode
	Properties map[string]string
}

// PlotBlock is one plot of a plots or world export.
type PlotBlock struct {
	Name     string
	Settings map[string]string
	Pens     []Pen

	// Series maps a pen name to its samples keyed by step. Steps with no
	// sample are missing from the map.
	Series map[string]map[int]string
}

const (
	penCells      = 4
	endOfPlots    = "EXTENSIONS"
	numberOfPens  = "number of pens"
	penNameColumn = "pen name"
	penModeColumn = "mode"
)

// readPlot parses the next plot block. ok is false when the name line is
// empty, is the EXTENSIONS marker, or the input has ended.
func (c *cursor) readPlot() (*PlotBlock, bool, error) {
	cells, err := c.next()
	if errors.Is(err, io.EOF) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return c.readPlotNamed(cells[0])
}

func (c *cursor) readPlotNamed(name string) (*PlotBlock, bool, error) {
	if name == "" || name == endOfPlots {
		return nil, false, nil
	}

	names, values, err := c.readConsts("plot settings")
	if err != nil {
		return nil, false, err
	}
	p := &PlotBlock{
		Name:     name,
		Settings: make(map[string]string, len(names)),
		Series:   make(map[string]map[int]string),
	}
	for i, n := range names {
		p.Settings[n] = values[i]
	}

	pens, err := strconv.Atoi(strings.TrimSpace(p.Settings[numberOfPens]))
	if err != nil || pens < 0 {
		return nil, false, c.wrap(&MalformedHeaderError{
			Expected: "a pen count in plot settings",
			Found:    p.Settings[numberOfPens],
		})
	}

	if err := c.skipBlank(); err != nil {
		return nil, false, err
	}
	if err := c.readPens(p, pens); err != nil {
		return nil, false, err
	}
	if err := c.skipBlank(); err != nil {
		return nil, false, err
	}
	if pens == 0 {
		return p, true, nil
	}

	penLine, err := c.expect("pen line")
	if err != nil {
		return nil, false, err
	}
	for i, pen := range p.Pens {
		j := i * penCells
		if j >= len(penLine) || stripQuotes(penLine[j]) != pen.Name {
			c.log.Warn("pen line does not match pen definitions",
				"plot", p.Name, "pen", pen.Name, "line", c.line)
			break
		}
	}
	if _, err := c.expect("plot column headings"); err != nil {
		return nil, false, err
	}

	for _, pen := range p.Pens {
		if !pen.Mode.Supported() {
			c.log.Warn("skipping unsupported pen mode",
				"plot", p.Name, "pen", pen.Name, "mode", pen.Mode.String())
			continue
		}
		p.Series[pen.Name] = make(map[int]string)
	}

	return p, true, c.readPlotData(p)
}

func (c *cursor) readPens(p *PlotBlock, n int) error {
	headings, err := c.expect("pen headings")
	if err != nil {
		return err
	}
	for i := 0; i < n; i++ {
		cells, err := c.expect("pen definition")
		if err != nil {
			return err
		}
		pen := Pen{Properties: make(map[string]string, len(headings))}
		for j, h := range headings {
			if j < len(cells) {
				pen.Properties[h] = cells[j]
			}
		}
		pen.Name = stripQuotes(pen.Properties[penNameColumn])
		pen.Mode = parsePenMode(pen.Properties[penModeColumn])
		p.Pens = append(p.Pens, pen)
	}
	return nil
}

func (c *cursor) stepLimit() int {
	if c.maxSteps > 0 {
		return c.maxSteps
	}
	return DefaultMaxSteps
}

// readPlotData reads sample rows until a blank row or end of input. Every
// pen owns four cells per row: x, y, color and pen-down flag.
func (c *cursor) readPlotData(p *PlotBlock) error {
	for {
		cells, err := c.next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		if isBlank(cells) {
			return nil
		}

		for i, pen := range p.Pens {
			series, ok := p.Series[pen.Name]
			if !ok {
				continue
			}
			j := i * penCells
			if j+1 >= len(cells) {
				break
			}
			x, y := strings.TrimSpace(cells[j]), cells[j+1]
			if x == "" || y == "" {
				continue
			}
			f, err := strconv.ParseFloat(x, 64)
			if err != nil {
				return c.wrap(&MalformedCellError{Column: j + 1, Reason: "x is not a number: " + x})
			}
			if math.IsNaN(f) || math.IsInf(f, 0) {
				return c.wrap(&MalformedCellError{Column: j + 1, Reason: "x is not finite: " + x})
			}
			rounded := math.Round(f)
			if rounded < 0 {
				c.log.Debug("ignoring negative step", "plot", p.Name, "pen", pen.Name, "x", x)
				continue
			}
			if rounded >= float64(c.stepLimit()) {
				return c.wrap(&MalformedCellError{
					Column: j + 1,
					Reason: fmt.Sprintf("x %s exceeds the limit of %d steps", x, c.stepLimit()),
				})
			}
			series[int(rounded)] = y
		}
	}
}
