package api

import (
	"salesboard/internal/models"
)

// summaryChart draws a one-key summary as a single series.
func summaryChart(kind, title, x, y string, s *models.SummaryTable) models.ChartSpec {
	points := make([]models.Point, len(s.Rows))
	for i, r := range s.Rows {
		points[i] = models.Point{X: r.Key[0], Y: r.Value}
	}
	return models.ChartSpec{
		Kind:   kind,
		Title:  title,
		X:      x,
		Y:      y,
		Series: []models.Series{{Name: y, Points: points}},
	}
}

// splitChart draws a two-key summary with one series per value of the
// second key, in order of first appearance. Rows whose first key is null
// are left out.
func splitChart(kind, title, x, y, color string, s *models.SummaryTable) models.ChartSpec {
	spec := models.ChartSpec{Kind: kind, Title: title, X: x, Y: y, Color: color, Series: []models.Series{}}
	index := make(map[string]int)
	for _, r := range s.Rows {
		if r.Key[0].IsNull() {
			continue
		}
		name := r.Key[1].Key()
		i, ok := index[name]
		if !ok {
			i = len(spec.Series)
			index[name] = i
			spec.Series = append(spec.Series, models.Series{Name: name})
		}
		spec.Series[i].Points = append(spec.Series[i].Points, models.Point{X: r.Key[0], Y: r.Value})
	}
	return spec
}
