package dump

import "strings"

// SplitLine splits one export record into cells.
//
// Cells are separated by commas. A cell may be wrapped in double quotes, in
// which case "" stands for a literal quote and the wrapping quotes are
// removed. Trailing whitespace is trimmed before splitting and no record
// spans lines, so an unterminated quoted cell is an error, as is a quote
// inside an unquoted cell or text between a closing quote and the next
// comma. An empty line is a single empty cell.
func SplitLine(line string) ([]string, error) {
	line = strings.TrimRight(line, " \t\r\n")

	var (
		cells []string
		buf   strings.Builder
	)
	col := 1
	i := 0
	for {
		buf.Reset()
		if i < len(line) && line[i] == '"' {
			i++
			closed := false
			for i < len(line) {
				c := line[i]
				if c == '"' {
					if i+1 < len(line) && line[i+1] == '"' {
						buf.WriteByte('"')
						i += 2
						continue
					}
					i++
					closed = true
					break
				}
				buf.WriteByte(c)
				i++
			}
			if !closed {
				return nil, &MalformedCellError{Column: col, Reason: "missing closing quote"}
			}
			if i < len(line) && line[i] != ',' {
				return nil, &MalformedCellError{Column: col, Reason: "text after closing quote"}
			}
		} else {
			start := i
			for i < len(line) && line[i] != ',' {
				if line[i] == '"' {
					return nil, &MalformedCellError{Column: col, Reason: "quote in unquoted cell"}
				}
				i++
			}
			buf.WriteString(line[start:i])
		}

		cells = append(cells, buf.String())
		if i >= len(line) {
			return cells, nil
		}
		i++ // comma
		col++
	}
}

func isBlank(cells []string) bool {
	for _, c := range cells {
		if c != "" {
			return false
		}
	}
	return true
}

func stripQuotes(s string) string {
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		return s[1 : len(s)-1]
	}
	return s
}
