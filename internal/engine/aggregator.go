package engine

import (
	"runtime"
	"sort"
	"strings"
	"sync"

	"salesboard/internal/models"
)

// SortOrder is the row order a caller asks of a summary.
type SortOrder int

const (
	// Unsorted leaves groups in first-seen order. Do not rely on it.
	Unsorted SortOrder = iota
	ByValueDesc
	ByKeyAsc
	// Chronological orders by the first key column, dates ascending.
	Chronological
)

// Tables at least this long are reduced in parallel chunks.
const parallelThreshold = 50000

type aggStats struct {
	key   []models.Value
	sum   float64
	count int
}

type partialAgg struct {
	order  []string
	groups map[string]*aggStats
	diags  models.Diagnostics
}

// GroupSum partitions t by the tuple of groupCols and sums measure per
// partition. Cells of measure that are null or not numbers add zero, still
// count toward their group, and are listed in the diagnostics.
func GroupSum(t *models.Table, groupCols []string, measure string, order SortOrder) (*models.SummaryTable, error) {
	return group(t, groupCols, measure, true, order)
}

// GroupCount partitions t by the tuple of groupCols and counts rows.
func GroupCount(t *models.Table, groupCols []string, order SortOrder) (*models.SummaryTable, error) {
	return group(t, groupCols, "", false, order)
}

func group(t *models.Table, groupCols []string, measure string, summing bool, order SortOrder) (*models.SummaryTable, error) {
	cols := append([]string{}, groupCols...)
	if summing {
		cols = append(cols, measure)
	}
	if err := requireColumns(t.Has, "", cols...); err != nil {
		return nil, err
	}

	keyIdx := make([]int, len(groupCols))
	for i, c := range groupCols {
		keyIdx[i], _ = t.Index(c)
	}
	measureIdx := -1
	if summing {
		measureIdx, _ = t.Index(measure)
	}

	numWorkers := 1
	if t.Len() >= parallelThreshold {
		numWorkers = runtime.NumCPU()
	}
	chunkSize := (t.Len() + numWorkers - 1) / numWorkers

	partials := make([]*partialAgg, numWorkers)
	var wg sync.WaitGroup
	for w := 0; w < numWorkers; w++ {
		start := w * chunkSize
		end := start + chunkSize
		if end > t.Len() {
			end = t.Len()
		}
		wg.Add(1)
		go func(w, s, e int) {
			defer wg.Done()
			p := &partialAgg{groups: make(map[string]*aggStats)}
			var sb strings.Builder
			for i := s; i < e; i++ {
				row := t.Row(i)
				sb.Reset()
				for _, k := range keyIdx {
					writeGroupKey(&sb, row[k])
				}
				id := sb.String()
				st, ok := p.groups[id]
				if !ok {
					key := make([]models.Value, len(keyIdx))
					for j, k := range keyIdx {
						key[j] = row[k]
					}
					st = &aggStats{key: key}
					p.groups[id] = st
					p.order = append(p.order, id)
				}
				st.count++
				if !summing {
					continue
				}
				if v, ok := row[measureIdx].Float(); ok {
					st.sum += v
				} else {
					p.diags = append(p.diags, models.Diagnostic{
						Row:    t.Origin(i),
						Column: measure,
						Value:  row[measureIdx].Key(),
						Reason: "not numeric, counted as zero",
					})
				}
			}
			partials[w] = p
		}(w, start, end)
	}
	wg.Wait()

	// Merge in chunk order so first-seen order matches a sequential pass.
	merged := make(map[string]*aggStats)
	var ids []string
	var diags models.Diagnostics
	for _, p := range partials {
		for _, id := range p.order {
			st := p.groups[id]
			if m, ok := merged[id]; ok {
				m.sum += st.sum
				m.count += st.count
				continue
			}
			merged[id] = st
			ids = append(ids, id)
		}
		diags = append(diags, p.diags...)
	}

	out := &models.SummaryTable{
		GroupColumns: append([]string{}, groupCols...),
		Measure:      measure,
		Rows:         make([]models.SummaryRow, 0, len(ids)),
		Diagnostics:  diags,
	}
	if !summing {
		out.Measure = "count"
	}
	for _, id := range ids {
		st := merged[id]
		v := st.sum
		if !summing {
			v = float64(st.count)
		}
		out.Rows = append(out.Rows, models.SummaryRow{Key: st.key, Value: v, Count: st.count})
	}
	Sort(out, order)
	return out, nil
}

// writeGroupKey encodes kind and canonical text so that the string "2" and
// the number 2 land in different groups.
func writeGroupKey(sb *strings.Builder, v models.Value) {
	sb.WriteByte(byte('0' + v.Kind))
	sb.WriteString(v.Key())
	sb.WriteByte(0)
}

// Sort reorders s in place. Ties keep their current relative order.
func Sort(s *models.SummaryTable, order SortOrder) {
	rows := s.Rows
	switch order {
	case ByValueDesc:
		sort.SliceStable(rows, func(i, j int) bool { return rows[i].Value > rows[j].Value })
	case ByKeyAsc:
		sort.SliceStable(rows, func(i, j int) bool { return keyLess(rows[i].Key, rows[j].Key) })
	case Chronological:
		if len(rows) == 0 || len(rows[0].Key) == 0 {
			return
		}
		sort.SliceStable(rows, func(i, j int) bool {
			a, aok := rows[i].Key[0].Time()
			b, bok := rows[j].Key[0].Time()
			switch {
			case aok && bok && !a.Equal(b):
				return a.Before(b)
			case aok != bok:
				return aok
			}
			return keyLess(rows[i].Key[1:], rows[j].Key[1:])
		})
	}
}

func keyLess(a, b []models.Value) bool {
	for i := 0; i < len(a) && i < len(b); i++ {
		if a[i].Equal(b[i]) {
			continue
		}
		return a[i].Less(b[i])
	}
	return len(a) < len(b)
}

// Distinct returns the non-null values of column in ascending order.
func Distinct(t *models.Table, column string) ([]models.Value, error) {
	s, err := GroupCount(t, []string{column}, ByKeyAsc)
	if err != nil {
		return nil, err
	}
	out := make([]models.Value, 0, s.Len())
	for _, r := range s.Rows {
		if !r.Key[0].IsNull() {
			out = append(out, r.Key[0])
		}
	}
	return out, nil
}

// Relabel replaces the codes of one group column with display names.
// Codes without a name are flagged in the diagnostics and kept as they are,
// or dropped when keepUnmapped is false. Groups that end up with the same
// key are merged.
func Relabel(s *models.SummaryTable, column string, names map[string]string, keepUnmapped bool) *models.SummaryTable {
	pos := -1
	for i, c := range s.GroupColumns {
		if c == column {
			pos = i
		}
	}
	out := &models.SummaryTable{
		GroupColumns: s.GroupColumns,
		Measure:      s.Measure,
		Diagnostics:  append(models.Diagnostics{}, s.Diagnostics...),
	}
	if pos < 0 {
		out.Rows = append(out.Rows, s.Rows...)
		return out
	}

	flagged := make(map[string]bool)
	index := make(map[string]int)
	var sb strings.Builder
	for _, r := range s.Rows {
		code := r.Key[pos].Key()
		key := append([]models.Value{}, r.Key...)
		if name, ok := names[code]; ok {
			key[pos] = models.StringValue(name)
		} else {
			if !flagged[code] {
				flagged[code] = true
				reason := "no name configured, kept as code"
				if !keepUnmapped {
					reason = "no name configured, left out"
				}
				out.Diagnostics = append(out.Diagnostics, models.Diagnostic{Row: -1, Column: column, Value: code, Reason: reason})
			}
			if !keepUnmapped {
				continue
			}
		}
		sb.Reset()
		for _, k := range key {
			writeGroupKey(&sb, k)
		}
		if i, ok := index[sb.String()]; ok {
			out.Rows[i].Value += r.Value
			out.Rows[i].Count += r.Count
			continue
		}
		index[sb.String()] = len(out.Rows)
		out.Rows = append(out.Rows, models.SummaryRow{Key: key, Value: r.Value, Count: r.Count})
	}
	return out
}
