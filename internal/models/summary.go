package models

import "strings"

// Diagnostic records one input cell that a step skipped, zeroed or nulled.
type Diagnostic struct {
	Row    int    `json:"row"`
	Column string `json:"column"`
	Value  string `json:"value"`
	Reason string `json:"reason"`
}

type Diagnostics []Diagnostic

// SummaryRow is one group: its key tuple, the reduced measure and the
// number of input rows that fell into it.
type SummaryRow struct {
	Key   []Value `json:"key"`
	Value float64 `json:"value"`
	Count int     `json:"count"`
}

// Label joins the key tuple for display.
func (r SummaryRow) Label() string {
	if len(r.Key) == 1 {
		return r.Key[0].Key()
	}
	parts := make([]string, len(r.Key))
	for i, k := range r.Key {
		parts[i] = k.Key()
	}
	return strings.Join(parts, " / ")
}

type SummaryTable struct {
	GroupColumns []string     `json:"group_columns"`
	Measure      string       `json:"measure"`
	Rows         []SummaryRow `json:"rows"`
	Diagnostics  Diagnostics  `json:"diagnostics,omitempty"`
}

func (s *SummaryTable) Len() int { return len(s.Rows) }

// Total is the sum of all group values.
func (s *SummaryTable) Total() float64 {
	var total float64
	for _, r := range s.Rows {
		total += r.Value
	}
	return total
}

// TotalCount is the number of input rows across all groups.
func (s *SummaryTable) TotalCount() int {
	n := 0
	for _, r := range s.Rows {
		n += r.Count
	}
	return n
}

// Top keeps the first n rows in the current order.
func (s *SummaryTable) Top(n int) *SummaryTable {
	out := *s
	if n < 0 || n > len(s.Rows) {
		n = len(s.Rows)
	}
	out.Rows = make([]SummaryRow, n)
	copy(out.Rows, s.Rows)
	return &out
}
