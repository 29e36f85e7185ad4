package engine

import (
	"fmt"
	"strings"
)

// ParseError means an upload could not be turned into a table.
type ParseError struct {
	File   string
	Reason string
	Err    error
}

func (e *ParseError) Error() string {
	msg := fmt.Sprintf("cannot parse %q: %s", e.File, e.Reason)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ParseError) Unwrap() error { return e.Err }

// SchemaError means one or more columns a step needs are absent.
type SchemaError struct {
	Page    string
	Missing []string
}

func (e *SchemaError) Error() string {
	cols := make([]string, len(e.Missing))
	for i, c := range e.Missing {
		cols[i] = fmt.Sprintf("%q", c)
	}
	if e.Page == "" {
		return "missing columns " + strings.Join(cols, ", ")
	}
	return fmt.Sprintf("%s: file must contain the columns %s", e.Page, strings.Join(cols, ", "))
}

// InsufficientDataError is the forecast guard: the series is too short.
type InsufficientDataError struct {
	Have int
	Need int
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("insufficient data for a forecast: %d days of sales, at least %d needed", e.Have, e.Need)
}

// requireColumns returns a SchemaError listing every name the table lacks.
func requireColumns(has func(string) bool, page string, names ...string) error {
	var missing []string
	seen := make(map[string]bool, len(names))
	for _, n := range names {
		if seen[n] {
			continue
		}
		seen[n] = true
		if !has(n) {
			missing = append(missing, n)
		}
	}
	if len(missing) > 0 {
		return &SchemaError{Page: page, Missing: missing}
	}
	return nil
}
