package csvparse

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"optiplus/internal/model"
)

var numericPattern = regexp.MustCompile(`^\s*-?(\d+\.?|\.\d+|\d+\.\d+)([eE][-+]?\d+)?\s*$`)

// maxExactFloat is 2^53; integers beyond it cannot round-trip through float64.
const maxExactFloat = 1 << 53

// Coerce infers the scalar type of a single cell.
//
//	""                      -> null
//	true/false (any case)   -> bool
//	numeric literal         -> number
//	anything else           -> string (kept verbatim)
func Coerce(cell string) model.Value {
	if cell == "" {
		return model.Null()
	}
	switch strings.ToLower(cell) {
	case "true":
		return model.Bool(true)
	case "false":
		return model.Bool(false)
	}
	if numericPattern.MatchString(cell) {
		f, err := strconv.ParseFloat(strings.TrimSpace(cell), 64)
		if err == nil && !math.IsInf(f, 0) && math.Abs(f) <= maxExactFloat {
			return model.Number(f)
		}
	}
	return model.String(cell)
}
