// Package csvparse turns uploaded CSV text into typed rows.
//
// The first non-empty record is the header row. Every following cell is coerced
// independently (see Coerce). Malformed input fails the whole parse with a *ParseError;
// callers never receive a partially populated result.
package csvparse

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"

	"optiplus/internal/model"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// ParseError describes the first structural problem found in the input.
type ParseError struct {
	Line    int
	Column  int
	Message string
	Err     error
}

func (e *ParseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("%s (line %d, column %d)", e.Message, e.Line, e.Column)
	}
	return e.Message
}

func (e *ParseError) Unwrap() error { return e.Err }

// Options tune a parse.
type Options struct {
	// Preview, when positive, limits how many rows are materialized.
	// All rows are still validated and counted.
	Preview int
}

// Result is a parsed dataset.
type Result struct {
	Headers  []string
	Rows     []model.Row
	RowCount int
}

// Parse reads the whole input and materializes every row.
func Parse(data []byte) (*Result, error) {
	return ParseWithOptions(data, Options{})
}

// ParseWithOptions parses data according to opts.
func ParseWithOptions(data []byte, opts Options) (*Result, error) {
	data = bytes.TrimPrefix(data, utf8BOM)

	r := csv.NewReader(bytes.NewReader(data))
	// Field counts are checked against the header below so the error can name the header width.
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err == io.EOF {
		// empty input is an empty dataset, not an error
		return &Result{Headers: []string{}, Rows: []model.Row{}}, nil
	}
	if err != nil {
		return nil, toParseError(err)
	}
	columns := append([]string(nil), header...)
	headers := uniqueHeaders(columns)

	res := &Result{Headers: headers, Rows: []model.Row{}}
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, toParseError(err)
		}
		if len(rec) != len(columns) {
			line, _ := r.FieldPos(0)
			return nil, &ParseError{
				Line:    line,
				Column:  1,
				Message: fmt.Sprintf("expected %d fields but parsed %d", len(columns), len(rec)),
			}
		}
		res.RowCount++
		if opts.Preview > 0 && len(res.Rows) >= opts.Preview {
			continue
		}
		res.Rows = append(res.Rows, buildRow(columns, rec))
	}
	return res, nil
}

// uniqueHeaders drops repeated names, keeping the first occurrence in place.
func uniqueHeaders(columns []string) []string {
	seen := make(map[string]struct{}, len(columns))
	out := make([]string, 0, len(columns))
	for _, c := range columns {
		if _, ok := seen[c]; ok {
			continue
		}
		seen[c] = struct{}{}
		out = append(out, c)
	}
	return out
}

func buildRow(columns, rec []string) model.Row {
	row := model.NewRow(len(columns))
	for i, name := range columns {
		if row.Has(name) {
			// duplicate column: the first occurrence wins
			continue
		}
		row.Set(name, Coerce(rec[i]))
	}
	return row
}

func toParseError(err error) *ParseError {
	var pe *csv.ParseError
	if errors.As(err, &pe) {
		return &ParseError{Line: pe.Line, Column: pe.Column, Message: pe.Err.Error(), Err: err}
	}
	return &ParseError{Message: err.Error(), Err: err}
}
