package markup

import "strings"

// splitCells splits a pipe table row into trimmed cells. One leading and one
// trailing pipe are dropped, escaped pipes (\|) stay inside their cell.
func splitCells(line string) []string {
	row := strings.TrimSpace(line)
	row = strings.TrimPrefix(row, "|")
	if strings.HasSuffix(row, "|") && !strings.HasSuffix(row, `\|`) {
		row = row[:len(row)-1]
	}

	cells := []string{}
	var cell strings.Builder
	for i := 0; i < len(row); i++ {
		switch {
		case row[i] == '\\' && i+1 < len(row) && row[i+1] == '|':
			cell.WriteByte('|')
			i++
		case row[i] == '|':
			cells = append(cells, strings.TrimSpace(cell.String()))
			cell.Reset()
		default:
			cell.WriteByte(row[i])
		}
	}
	return append(cells, strings.TrimSpace(cell.String()))
}

// readTable parses the table starting at lines[start], which must satisfy
// isTableStart. It returns the table data and the index of the first line
// after the table. Data rows keep whatever cell count they were written with.
func readTable(lines []string, start int) (TableData, int) {
	data := TableData{
		Headers: splitCells(lines[start]),
		Rows:    [][]string{},
	}
	i := start + 2
	for i < len(lines) && isTableRow(lines[i]) {
		data.Rows = append(data.Rows, splitCells(lines[i]))
		i++
	}
	return data, i
}
