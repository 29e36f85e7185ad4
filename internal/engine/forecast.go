package engine

import (
	"math"
	"sort"
	"time"

	"github.com/pkg/errors"

	"salesboard/internal/models"
)

const day = 24 * time.Hour

// Forecaster predicts the days following a daily series.
type Forecaster interface {
	Forecast(history []models.SeriesPoint, horizon int) ([]models.ForecastPoint, error)
}

// DailySeries sums measureCol per day of dateCol, from the first to the last
// day present, with zero for days without rows. Rows without a date are left
// out and rows without a numeric measure add zero; both are reported.
func DailySeries(t *models.Table, dateCol, measureCol string) ([]models.SeriesPoint, models.Diagnostics, error) {
	if err := requireColumns(t.Has, "", dateCol, measureCol); err != nil {
		return nil, nil, err
	}
	dIdx, _ := t.Index(dateCol)
	mIdx, _ := t.Index(measureCol)

	var diags models.Diagnostics
	sums := make(map[time.Time]float64)
	for i := 0; i < t.Len(); i++ {
		row := t.Row(i)
		d, ok := row[dIdx].Time()
		if !ok {
			diags = append(diags, models.Diagnostic{Row: t.Origin(i), Column: dateCol, Value: row[dIdx].Key(), Reason: "no date, left out of series"})
			continue
		}
		v, ok := row[mIdx].Float()
		if !ok {
			diags = append(diags, models.Diagnostic{Row: t.Origin(i), Column: measureCol, Value: row[mIdx].Key(), Reason: "not numeric, counted as zero"})
		}
		sums[d] += v
	}
	if len(sums) == 0 {
		return nil, diags, nil
	}

	days := make([]time.Time, 0, len(sums))
	for d := range sums {
		days = append(days, d)
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Before(days[j]) })

	first, last := days[0], days[len(days)-1]
	series := make([]models.SeriesPoint, 0, int(last.Sub(first)/day)+1)
	for d := first; !d.After(last); d = d.AddDate(0, 0, 1) {
		series = append(series, models.SeriesPoint{Date: d, Value: sums[d]})
	}
	return series, diags, nil
}

// Forecast runs f over history after checking the minimum history length.
func Forecast(f Forecaster, history []models.SeriesPoint, minHistory, horizon int) ([]models.ForecastPoint, error) {
	if len(history) < minHistory {
		return nil, &InsufficientDataError{Have: len(history), Need: minHistory}
	}
	if horizon <= 0 {
		return nil, errors.Errorf("forecast horizon must be positive, got %d", horizon)
	}
	return f.Forecast(history, horizon)
}

// Holt is double exponential smoothing: a level and a linear trend.
// Intervals are 95% bands from the one-step-ahead residuals.
type Holt struct {
	Alpha float64
	Beta  float64
}

func NewHolt() Holt { return Holt{Alpha: 0.3, Beta: 0.1} }

func (h Holt) Forecast(history []models.SeriesPoint, horizon int) ([]models.ForecastPoint, error) {
	if len(history) < 2 {
		return nil, &InsufficientDataError{Have: len(history), Need: 2}
	}
	if h.Alpha <= 0 || h.Alpha > 1 || h.Beta < 0 || h.Beta > 1 {
		return nil, errors.Errorf("invalid smoothing parameters alpha=%v beta=%v", h.Alpha, h.Beta)
	}

	level := history[0].Value
	trend := history[1].Value - history[0].Value
	var sse float64
	for _, p := range history[1:] {
		predicted := level + trend
		residual := p.Value - predicted
		sse += residual * residual

		prevLevel := level
		level = h.Alpha*p.Value + (1-h.Alpha)*(level+trend)
		trend = h.Beta*(level-prevLevel) + (1-h.Beta)*trend
	}
	dof := len(history) - 2
	if dof < 1 {
		dof = 1
	}
	sigma := math.Sqrt(sse / float64(dof))

	last := history[len(history)-1].Date
	out := make([]models.ForecastPoint, horizon)
	for k := 1; k <= horizon; k++ {
		point := level + float64(k)*trend
		band := 1.96 * sigma * math.Sqrt(float64(k))
		out[k-1] = models.ForecastPoint{
			Date:  last.AddDate(0, 0, k),
			Value: point,
			Lower: point - band,
			Upper: point + band,
		}
	}
	return out, nil
}
