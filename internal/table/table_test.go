package table

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"optiplus/internal/model"
)

func row(kv ...any) model.Row {
	r := model.NewRow(len(kv) / 2)
	for i := 0; i < len(kv); i += 2 {
		r.Set(kv[i].(string), kv[i+1].(model.Value))
	}
	return r
}

func TestColumns(t *testing.T) {
	cols := Columns([]string{"name", "qty"})
	require.Len(t, cols, 2)
	assert.Equal(t, Column{Key: "name", Header: "name"}, cols[0])
	assert.Equal(t, Column{Key: "qty", Header: "qty"}, cols[1])
	assert.Empty(t, Columns(nil))
}

func TestColumn_Format(t *testing.T) {
	tests := []struct {
		name      string
		value     model.Value
		want      string
		wantAlign Align
	}{
		{"integer", model.Number(1234567), "1,234,567", AlignRight},
		{"fraction", model.Number(1234.5), "1,234.5", AlignRight},
		{"rounded to three digits", model.Number(3.14159), "3.142", AlignRight},
		{"negative", model.Number(-9876.25), "-9,876.25", AlignRight},
		{"small", model.Number(42), "42", AlignRight},
		{"null", model.Null(), "", AlignLeft},
		{"string", model.String("Widget"), "Widget", AlignLeft},
		{"bool false", model.Bool(false), "false", AlignLeft},
		{"numeric looking string", model.String("007"), "007", AlignLeft},
	}

	var c Column
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, c.Format(tt.value))
			assert.Equal(t, tt.wantAlign, c.Align(tt.value))
		})
	}
}

func TestSorter_Toggle(t *testing.T) {
	var s Sorter
	assert.Equal(t, Unsorted, s.Direction)

	s.Toggle("qty")
	assert.Equal(t, Sorter{Key: "qty", Direction: Ascending}, s)

	s.Toggle("qty")
	assert.Equal(t, Sorter{Key: "qty", Direction: Descending}, s)

	s.Toggle("qty")
	assert.Equal(t, Sorter{Key: "qty", Direction: Ascending}, s)

	s.Toggle("name")
	assert.Equal(t, Sorter{Key: "name", Direction: Ascending}, s)

	s = Sorter{Key: "name", Direction: Descending}
	s.Toggle("name")
	assert.Equal(t, Ascending, s.Direction)
}

func TestSorter_Sort(t *testing.T) {
	rows := []model.Row{
		row("id", model.String("a"), "qty", model.Number(10)),
		row("id", model.String("b"), "qty", model.Null()),
		row("id", model.String("c"), "qty", model.Number(2)),
		row("id", model.String("d"), "qty", model.Number(10)),
		row("id", model.String("e")),
		row("id", model.String("f"), "qty", model.Number(-1)),
	}
	ids := func(rs []model.Row) string {
		var b strings.Builder
		for _, r := range rs {
			b.WriteString(r.Value("id").Str())
		}
		return b.String()
	}

	tests := []struct {
		name   string
		sorter Sorter
		want   string
	}{
		{"unsorted keeps order", Sorter{Key: "qty"}, "abcdef"},
		{"ascending numeric, nulls last, stable", Sorter{Key: "qty", Direction: Ascending}, "fcadbe"},
		{"descending numeric, nulls still last, stable", Sorter{Key: "qty", Direction: Descending}, "adcfbe"},
		{"descending string", Sorter{Key: "id", Direction: Descending}, "fedcba"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.sorter.Sort(rows)
			assert.Equal(t, tt.want, ids(got))
			assert.Equal(t, "abcdef", ids(rows), "input must not be reordered")
		})
	}
}

func TestSorter_SortMixedKinds(t *testing.T) {
	rows := []model.Row{
		row("v", model.String("b")),
		row("v", model.Number(100)),
		row("v", model.Number(9)),
		row("v", model.Bool(true)),
	}
	got := Sorter{Key: "v", Direction: Ascending}.Sort(rows)

	var out []string
	for _, r := range got {
		out = append(out, r.Value("v").String())
	}
	// Numbers against numbers compare numerically; anything else by display string.
	assert.Equal(t, []string{"9", "100", "b", "true"}, out)
}

func TestRender(t *testing.T) {
	cols := Columns([]string{"city", "population"})
	rows := []model.Row{
		row("city", model.String("Oslo"), "population", model.Number(709037)),
		row("city", model.String("東京"), "population", model.Number(13960000)),
		row("city", model.String("Nowhere"), "population", model.Null()),
	}

	var buf bytes.Buffer
	require.NoError(t, Render(&buf, cols, rows))

	want := "" +
		"city    | population\n" +
		"--------+-----------\n" +
		"Oslo    |    709,037\n" +
		"東京    | 13,960,000\n" +
		"Nowhere |           \n"
	assert.Equal(t, want, buf.String())
}

func TestRender_FlattensMultilineCells(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Render(&buf, Columns([]string{"note"}), []model.Row{row("note", model.String("line1\nline2"))}))
	assert.Equal(t, "note       \n-----------\nline1 line2\n", buf.String())
}
