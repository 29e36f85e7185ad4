package engine

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"salesboard/internal/models"
)

type labeled struct {
	label string
	value float64
}

func groups(s *models.SummaryTable) []labeled {
	out := make([]labeled, len(s.Rows))
	for i, r := range s.Rows {
		out[i] = labeled{label: r.Label(), value: r.Value}
	}
	return out
}

func TestGroupSumByCity(t *testing.T) {
	tbl := models.MustTable([]string{ColCity, ColValue}, [][]models.Value{
		{str("Curitiba"), num(100)},
		{str("Londrina"), num(30)},
		{str("Curitiba"), num(50)},
	})

	s, err := GroupSum(tbl, []string{ColCity}, ColValue, ByKeyAsc)
	require.NoError(t, err)
	assert.Equal(t, []labeled{{"Curitiba", 150}, {"Londrina", 30}}, groups(s))
	assert.Equal(t, ColValue, s.Measure)
	assert.Empty(t, s.Diagnostics)
}

func TestGroupSumCountsNonNumericAsZero(t *testing.T) {
	s, err := GroupSum(salesTable(), []string{ColClient}, ColValue, ByValueDesc)
	require.NoError(t, err)

	assert.Equal(t, []labeled{{"Acme", 170}, {"Beta", 50}, {"Gama", 30}}, groups(s))
	assert.Equal(t, 5, s.TotalCount())
	require.Len(t, s.Diagnostics, 1)
	assert.Equal(t, models.Diagnostic{Row: 4, Column: ColValue, Value: "n/a", Reason: "not numeric, counted as zero"}, s.Diagnostics[0])
}

func TestGroupSumPartitionsTheTotal(t *testing.T) {
	tbl := salesTable()
	var total float64
	for i := 0; i < tbl.Len(); i++ {
		v, _ := tbl.Value(i, ColValue).Float()
		total += v
	}

	for _, cols := range [][]string{
		{ColClient},
		{ColSalesperson},
		{ColIssued, ColSalesperson},
		{ColPayment, ColOperation},
	} {
		s, err := GroupSum(tbl, cols, ColValue, Unsorted)
		require.NoError(t, err)
		assert.Equal(t, total, s.Total(), "%v", cols)
		assert.Equal(t, tbl.Len(), s.TotalCount(), "%v", cols)
	}
}

func TestGroupSumIgnoresInputOrder(t *testing.T) {
	tbl := salesTable()
	reversed := make([]int, tbl.Len())
	for i := range reversed {
		reversed[i] = tbl.Len() - 1 - i
	}

	a, err := GroupSum(tbl, []string{ColClient}, ColValue, ByKeyAsc)
	require.NoError(t, err)
	b, err := GroupSum(tbl.Select(reversed), []string{ColClient}, ColValue, ByKeyAsc)
	require.NoError(t, err)
	assert.Equal(t, groups(a), groups(b))
}

func TestGroupKeepsKindsApart(t *testing.T) {
	tbl := models.MustTable([]string{ColSalesperson}, [][]models.Value{{str("2")}, {num(2)}, {null()}, {null()}})

	s, err := GroupCount(tbl, []string{ColSalesperson}, Unsorted)
	require.NoError(t, err)
	require.Equal(t, 3, s.Len())
	assert.Equal(t, "count", s.Measure)
	assert.Equal(t, 2.0, s.Rows[2].Value)
	assert.True(t, s.Rows[2].Key[0].IsNull())
}

func TestGroupMissingColumn(t *testing.T) {
	_, err := GroupSum(salesTable(), []string{ColCity}, "TOTAL", ByValueDesc)
	var schemaErr *SchemaError
	require.ErrorAs(t, err, &schemaErr)
	assert.Equal(t, []string{ColCity, "TOTAL"}, schemaErr.Missing)
}

func TestGroupChronological(t *testing.T) {
	s, err := GroupSum(salesTable(), []string{ColIssued, ColSalesperson}, ColValue, Chronological)
	require.NoError(t, err)
	assert.Equal(t, []labeled{
		{"2024-01-10 / 2", 100},
		{"2024-01-11 / 5", 50},
		{"2024-01-12 / 6", 70},
		{" / 9", 30},
	}, groups(s))
	assert.Equal(t, 2, s.Rows[0].Count)
}

func TestSortByValueDescIsStable(t *testing.T) {
	s := &models.SummaryTable{Rows: []models.SummaryRow{
		{Key: []models.Value{str("a")}, Value: 1},
		{Key: []models.Value{str("b")}, Value: 5},
		{Key: []models.Value{str("c")}, Value: 1},
	}}
	Sort(s, ByValueDesc)
	assert.Equal(t, []labeled{{"b", 5}, {"a", 1}, {"c", 1}}, groups(s))

	Sort(&models.SummaryTable{}, Chronological)
}

func TestGroupParallelMatchesSequential(t *testing.T) {
	n := parallelThreshold + 1234
	rows := make([][]models.Value, n)
	for i := range rows {
		rows[i] = []models.Value{str(fmt.Sprintf("city-%d", i%7)), num(float64(i % 10))}
	}
	big := models.MustTable([]string{ColCity, ColValue}, rows)

	par, err := GroupSum(big, []string{ColCity}, ColValue, Unsorted)
	require.NoError(t, err)

	want := make([]labeled, 7)
	for i := 0; i < n; i++ {
		c := i % 7
		want[c].label = fmt.Sprintf("city-%d", c)
		want[c].value += float64(i % 10)
	}

	require.Equal(t, 7, par.Len())
	assert.Equal(t, want, groups(par))
	assert.Equal(t, n, par.TotalCount())
	for i, r := range par.Rows {
		assert.Equal(t, fmt.Sprintf("city-%d", i), r.Label())
	}
}

func TestRelabel(t *testing.T) {
	names := map[string]string{"2": "Neloir", "5": "Gustavo", "6": "Cristian"}
	s, err := GroupSum(salesTable(), []string{ColSalesperson}, ColValue, ByKeyAsc)
	require.NoError(t, err)

	kept := Relabel(s, ColSalesperson, names, true)
	assert.Equal(t, []labeled{{"Neloir", 100}, {"Gustavo", 50}, {"Cristian", 70}, {"9", 30}}, groups(kept))
	require.Len(t, kept.Diagnostics, 2)
	assert.Equal(t, models.Diagnostic{Row: -1, Column: ColSalesperson, Value: "9", Reason: "no name configured, kept as code"}, kept.Diagnostics[1])

	dropped := Relabel(s, ColSalesperson, names, false)
	assert.Equal(t, 3, dropped.Len())
	assert.Equal(t, "no name configured, left out", dropped.Diagnostics[1].Reason)

	// The source summary is untouched.
	assert.Equal(t, "2", s.Rows[0].Label())
}

func TestRelabelMergesCollidingNames(t *testing.T) {
	s, err := GroupSum(salesTable(), []string{ColSalesperson}, ColValue, ByKeyAsc)
	require.NoError(t, err)

	merged := Relabel(s, ColSalesperson, map[string]string{"2": "Equipe", "5": "Equipe", "6": "Equipe", "9": "Equipe"}, true)
	require.Equal(t, 1, merged.Len())
	assert.Equal(t, 250.0, merged.Rows[0].Value)
	assert.Equal(t, 5, merged.Rows[0].Count)
}

func TestDistinct(t *testing.T) {
	got, err := Distinct(salesTable(), ColIssued)
	require.NoError(t, err)
	keys := make([]string, len(got))
	for i, v := range got {
		keys[i] = v.Key()
	}
	assert.Equal(t, []string{"2024-01-10", "2024-01-11", "2024-01-12"}, keys)
}
