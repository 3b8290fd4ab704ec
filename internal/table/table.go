// Package table renders dataset rows as an aligned text grid.
package table

import (
	"io"
	"strings"

	"github.com/mattn/go-runewidth"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"

	"optiplus/internal/model"
)

// Align is the horizontal placement of a cell.
type Align int

const (
	AlignLeft Align = iota
	AlignRight
)

var printer = message.NewPrinter(language.English)

// Column renders one field of each row.
type Column struct {
	Key    string
	Header string
}

// Columns returns one column per header, in order.
func Columns(headers []string) []Column {
	cols := make([]Column, len(headers))
	for i, h := range headers {
		cols[i] = Column{Key: h, Header: h}
	}
	return cols
}

// Format renders v for display: numbers with thousands separators and at most three
// fraction digits, null as the empty string, everything else as its string form.
func (c Column) Format(v model.Value) string {
	switch v.Kind() {
	case model.KindNull:
		return ""
	case model.KindNumber:
		return printer.Sprint(number.Decimal(v.Float(), number.MaxFractionDigits(3)))
	default:
		return v.String()
	}
}

// Align reports how v is placed in its cell; numbers are right-aligned.
func (c Column) Align(v model.Value) Align {
	if v.Kind() == model.KindNumber {
		return AlignRight
	}
	return AlignLeft
}

// Cell formats the column's value in row.
func (c Column) Cell(row model.Row) string {
	return c.Format(row.Value(c.Key))
}

// Render writes a header line, a separator and one line per row.
// Column widths are measured in terminal cells, so wide characters stay aligned.
func Render(w io.Writer, cols []Column, rows []model.Row) error {
	widths := make([]int, len(cols))
	cells := make([][]string, len(rows))
	for i, c := range cols {
		widths[i] = runewidth.StringWidth(c.Header)
	}
	for r, row := range rows {
		cells[r] = make([]string, len(cols))
		for i, c := range cols {
			s := sanitize(c.Cell(row))
			cells[r][i] = s
			if sw := runewidth.StringWidth(s); sw > widths[i] {
				widths[i] = sw
			}
		}
	}

	var b strings.Builder
	for i, c := range cols {
		if i > 0 {
			b.WriteString(" | ")
		}
		b.WriteString(runewidth.FillRight(sanitize(c.Header), widths[i]))
	}
	b.WriteString("\n")
	for i := range cols {
		if i > 0 {
			b.WriteString("-+-")
		}
		b.WriteString(strings.Repeat("-", widths[i]))
	}
	b.WriteString("\n")

	for r, row := range rows {
		for i, c := range cols {
			if i > 0 {
				b.WriteString(" | ")
			}
			if c.Align(row.Value(c.Key)) == AlignRight {
				b.WriteString(runewidth.FillLeft(cells[r][i], widths[i]))
			} else {
				b.WriteString(runewidth.FillRight(cells[r][i], widths[i]))
			}
		}
		b.WriteString("\n")
	}

	_, err := io.WriteString(w, b.String())
	return err
}

// sanitize keeps multi-line cells on one grid line.
func sanitize(s string) string {
	return strings.NewReplacer("\r\n", " ", "\n", " ", "\r", " ", "\t", " ").Replace(s)
}
