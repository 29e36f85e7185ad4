package engine

import (
	"time"

	"salesboard/internal/models"
)

// Predicate is one column test of a FilterSpec.
type Predicate interface {
	Column() string
	compile() matcher
}

// matcher reports whether a cell passes and whether the cell was unusable
// for the test (reported as a diagnostic when it also fails).
type matcher func(v models.Value) (pass bool, unusable bool)

// In keeps rows whose value is one of Allowed, compared by Value.Key.
// An empty Allowed keeps nothing.
type In struct {
	Col     string
	Allowed []string
}

func (p In) Column() string { return p.Col }

func (p In) compile() matcher {
	set := make(map[string]struct{}, len(p.Allowed))
	for _, a := range p.Allowed {
		set[a] = struct{}{}
	}
	return func(v models.Value) (bool, bool) {
		if v.IsNull() {
			return false, false
		}
		_, ok := set[v.Key()]
		return ok, false
	}
}

// DateRange keeps rows dated within [Start, End], both days included.
// Rows without a date in Col are dropped.
type DateRange struct {
	Col        string
	Start, End time.Time
}

func (p DateRange) Column() string { return p.Col }

func (p DateRange) compile() matcher {
	start, _ := models.DateValue(p.Start).Time()
	end, _ := models.DateValue(p.End).Time()
	return func(v models.Value) (bool, bool) {
		d, ok := v.Time()
		if !ok {
			return false, true
		}
		return !d.Before(start) && !d.After(end), false
	}
}

// Exclude drops rows whose value equals Value, unless Include is set.
type Exclude struct {
	Col     string
	Value   string
	Include bool
}

func (p Exclude) Column() string { return p.Col }

func (p Exclude) compile() matcher {
	return func(v models.Value) (bool, bool) {
		if p.Include {
			return true, false
		}
		return v.IsNull() || v.Key() != p.Value, false
	}
}

// FilterSpec is the conjunction of its predicates.
type FilterSpec struct {
	Predicates []Predicate
}

func (s *FilterSpec) Add(p ...Predicate) *FilterSpec {
	s.Predicates = append(s.Predicates, p...)
	return s
}

// Apply keeps the rows of t that satisfy every predicate of spec, in their
// original order. Every column spec names must exist in t. Rows dropped by
// a date predicate because the cell held no date are listed in the
// returned diagnostics.
func Apply(t *models.Table, spec FilterSpec) (*models.Table, models.Diagnostics, error) {
	cols := make([]string, len(spec.Predicates))
	for i, p := range spec.Predicates {
		cols[i] = p.Column()
	}
	if err := requireColumns(t.Has, "", cols...); err != nil {
		return nil, nil, err
	}
	if len(spec.Predicates) == 0 {
		return t, nil, nil
	}

	type compiled struct {
		idx   int
		col   string
		match matcher
	}
	preds := make([]compiled, len(spec.Predicates))
	for i, p := range spec.Predicates {
		idx, _ := t.Index(p.Column())
		preds[i] = compiled{idx: idx, col: p.Column(), match: p.compile()}
	}

	var diags models.Diagnostics
	keep := make([]int, 0, t.Len())
	for i := 0; i < t.Len(); i++ {
		row := t.Row(i)
		pass := true
		for _, p := range preds {
			ok, unusable := p.match(row[p.idx])
			if ok {
				continue
			}
			if unusable {
				diags = append(diags, models.Diagnostic{
					Row:    t.Origin(i),
					Column: p.col,
					Value:  row[p.idx].Key(),
					Reason: "no date",
				})
			}
			pass = false
			break
		}
		if pass {
			keep = append(keep, i)
		}
	}
	return t.Select(keep), diags, nil
}

// Project keeps only the named columns, in the order given.
func Project(t *models.Table, columns []string) (*models.Table, error) {
	if err := requireColumns(t.Has, "", columns...); err != nil {
		return nil, err
	}
	idx := make([]int, len(columns))
	for i, c := range columns {
		idx[i], _ = t.Index(c)
	}
	rows := make([][]models.Value, t.Len())
	for i := range rows {
		src := t.Row(i)
		row := make([]models.Value, len(idx))
		for j, c := range idx {
			row[j] = src[c]
		}
		rows[i] = row
	}
	return t.Rebuild(columns, rows)
}
