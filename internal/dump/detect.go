// Package dump parses the export files written by NetLogo: plots exports,
// world exports and BehaviorSpace experiment results. Each parser reads its
// input strictly forward and returns a single table.Table.
package dump

import (
	"bufio"
	"errors"
	"io"
	"strings"

	"github.com/JonMunkholm/nlexport/internal/table"
)

var signatures = []struct {
	text string
	kind Kind
}{
	{"export-plots", KindPlots},
	{"export-world", KindWorld},
	{"BehaviorSpace", KindExperiment},
}

// Detect classifies an export by its first line.
func Detect(firstLine string) (Kind, error) {
	line := strings.TrimSpace(firstLine)
	for _, s := range signatures {
		if strings.Contains(line, s.text) {
			return s.kind, nil
		}
	}
	return KindUnknown, &UnrecognizedFormatError{FirstLine: line}
}

// Parse detects the kind of export in r and parses it with the matching
// parser. The detected kind is returned even when parsing fails.
func Parse(r io.Reader, opts Options) (*table.Table, Kind, error) {
	br := bufio.NewReader(r)
	first, err := br.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, KindUnknown, &ParseError{Path: opts.Name, Line: 1, Err: err}
	}

	kind, err := Detect(first)
	if err != nil {
		return nil, kind, &ParseError{Path: opts.Name, Line: 1, Err: err}
	}

	src := io.MultiReader(strings.NewReader(first), br)
	var t *table.Table
	switch kind {
	case KindPlots:
		t, err = ParsePlots(src, opts)
	case KindWorld:
		t, err = ParseWorld(src, opts)
	case KindExperiment:
		t, err = ParseExperiment(src, opts)
	}
	return t, kind, err
}
