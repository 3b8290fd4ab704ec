package table

import (
	"sort"

	"optiplus/internal/model"
)

// Direction is a sort order; the zero value means unsorted.
type Direction int

const (
	Unsorted Direction = iota
	Ascending
	Descending
)

func (d Direction) String() string {
	switch d {
	case Ascending:
		return "asc"
	case Descending:
		return "desc"
	default:
		return "none"
	}
}

// Sorter holds the active sort column.
type Sorter struct {
	Key       string
	Direction Direction
}

// Toggle activates key: a column that is unsorted or descending becomes ascending,
// an ascending one becomes descending.
func (s *Sorter) Toggle(key string) {
	if s.Key == key && s.Direction == Ascending {
		s.Direction = Descending
		return
	}
	s.Key = key
	s.Direction = Ascending
}

// Sort returns a stably sorted copy of rows. Numbers compare numerically when both sides are
// numbers, other values by display string. Nulls and missing values go last in either direction.
func (s Sorter) Sort(rows []model.Row) []model.Row {
	out := make([]model.Row, len(rows))
	copy(out, rows)
	if s.Direction == Unsorted || s.Key == "" {
		return out
	}

	desc := s.Direction == Descending
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i].Value(s.Key), out[j].Value(s.Key)
		switch {
		case a.IsNull() && b.IsNull():
			return false
		case a.IsNull():
			return false
		case b.IsNull():
			return true
		}
		c := compare(a, b)
		if desc {
			return c > 0
		}
		return c < 0
	})
	return out
}

func compare(a, b model.Value) int {
	if a.Kind() == model.KindNumber && b.Kind() == model.KindNumber {
		switch x, y := a.Float(), b.Float(); {
		case x < y:
			return -1
		case x > y:
			return 1
		default:
			return 0
		}
	}
	sa, sb := a.String(), b.String()
	switch {
	case sa < sb:
		return -1
	case sa > sb:
		return 1
	default:
		return 0
	}
}
