package table

// Positions records where a merged column lives on each side of a merge.
// -1 means the side does not have the column.
type Positions struct {
	Left  int
	Right int
}

// Schema is the union of two header lists: every left column in its
// original order, then every right-only column in order of appearance.
type Schema struct {
	Headers []string
	Columns map[string]Positions
}

// NewSchema builds the merged schema of two header lists.
func NewSchema(left, right []string) Schema {
	s := Schema{
		Headers: make([]string, 0, len(left)+len(right)),
		Columns: make(map[string]Positions, len(left)+len(right)),
	}
	for i, h := range left {
		s.Headers = append(s.Headers, h)
		s.Columns[h] = Positions{Left: i, Right: -1}
	}
	for i, h := range right {
		if pos, ok := s.Columns[h]; ok {
			pos.Right = i
			s.Columns[h] = pos
			continue
		}
		s.Headers = append(s.Headers, h)
		s.Columns[h] = Positions{Left: -1, Right: i}
	}
	return s
}

// projection lists, for each merged column, the source position on one side.
func (s Schema) projection(left bool) []int {
	proj := make([]int, len(s.Headers))
	for i, h := range s.Headers {
		pos := s.Columns[h]
		if left {
			proj[i] = pos.Left
		} else {
			proj[i] = pos.Right
		}
	}
	return proj
}

func project(row Row, proj []int) Row {
	out := make(Row, len(proj))
	for i, src := range proj {
		if src >= 0 && src < len(row) {
			out[i] = row[src]
		}
	}
	return out
}

// Merge unions two tables. Rows from left come first, then rows from right;
// each is projected onto the merged header list and columns missing on its
// side are NA. A nil side is treated as an empty table with no columns.
func Merge(left, right *Table) *Table {
	if left == nil {
		left = &Table{}
	}
	if right == nil {
		right = &Table{}
	}

	schema := NewSchema(left.Headers, right.Headers)
	out := &Table{
		Headers: schema.Headers,
		Rows:    make([]Row, 0, len(left.Rows)+len(right.Rows)),
	}
	out.reindex()

	leftProj := schema.projection(true)
	for _, row := range left.Rows {
		out.Rows = append(out.Rows, project(row, leftProj))
	}
	rightProj := schema.projection(false)
	for _, row := range right.Rows {
		out.Rows = append(out.Rows, project(row, rightProj))
	}
	return out
}

// MergeAll folds tables left to right through Merge.
func MergeAll(tables ...*Table) *Table {
	var acc *Table
	for i, t := range tables {
		if i == 0 {
			acc = Merge(t, nil)
			continue
		}
		acc = Merge(acc, t)
	}
	if acc == nil {
		return &Table{index: map[string]int{}}
	}
	return acc
}
