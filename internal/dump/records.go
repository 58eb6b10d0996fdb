package dump

import "github.com/JonMunkholm/nlexport/internal/table"

// LinkKey identifies the turtles a link connects.
type LinkKey struct {
	End1 string
	End2 string
}

// TurtlesByWho indexes a turtles sheet by the who column. A repeated who
// keeps its last row.
func TurtlesByWho(t *table.Table) (map[string]table.Row, error) {
	who, ok := t.Index("who")
	if !ok {
		return nil, &MissingKeyColumnError{Column: "who"}
	}
	out := make(map[string]table.Row, t.Len())
	for _, row := range t.Rows {
		out[row[who].Text("")] = row
	}
	return out, nil
}

// LinksByEnds groups a links sheet by its end1 and end2 columns. Several
// links between the same pair of turtles are kept in file order.
func LinksByEnds(t *table.Table) (map[LinkKey][]table.Row, error) {
	end1, ok := t.Index("end1")
	if !ok {
		return nil, &MissingKeyColumnError{Column: "end1"}
	}
	end2, ok := t.Index("end2")
	if !ok {
		return nil, &MissingKeyColumnError{Column: "end2"}
	}
	out := make(map[LinkKey][]table.Row)
	for _, row := range t.Rows {
		k := LinkKey{End1: row[end1].Text(""), End2: row[end2].Text("")}
		out[k] = append(out[k], row)
	}
	return out, nil
}
