package geo

import (
	"context"

	"github.com/pkg/errors"

	"salesboard/internal/models"
)

const (
	ColLatitude  = "LATITUDE"
	ColLongitude = "LONGITUDE"
)

// Located splits a table by geocoding outcome.
type Located struct {
	// Table holds the rows that resolved, with LATITUDE and LONGITUDE set.
	// Its rows keep their upload row numbers (Table.Origin).
	Table *models.Table
	// Unresolved holds every other row, in input order.
	Unresolved *models.Table
	// Invalid counts the unresolved rows whose city or state was a
	// placeholder.
	Invalid int
}

// Resolver is what Locate needs from a Cache.
type Resolver interface {
	Resolve(ctx context.Context, city, state string) Result
}

// Locate resolves every row of t through r. It stops with ctx's error if
// ctx ends, so a superseded request does not keep the geocoder busy.
func Locate(ctx context.Context, r Resolver, t *models.Table, cityCol, stateCol string) (*Located, error) {
	cityIdx, okCity := t.Index(cityCol)
	stateIdx, okState := t.Index(stateCol)
	if !okCity || !okState {
		return nil, errors.Errorf("locate: table lacks %q or %q", cityCol, stateCol)
	}

	columns := t.Columns()
	latIdx, ok := t.Index(ColLatitude)
	if !ok {
		latIdx = len(columns)
		columns = append(columns, ColLatitude)
	}
	lonIdx, ok := t.Index(ColLongitude)
	if !ok {
		lonIdx = len(columns)
		columns = append(columns, ColLongitude)
	}

	var (
		located    [][]models.Value
		from       []int
		unresolved []int
		invalid    int
	)
	for i := 0; i < t.Len(); i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		row := t.Row(i)
		res := r.Resolve(ctx, row[cityIdx].Key(), row[stateIdx].Key())
		if res.Status != Found {
			if res.Status == Invalid {
				invalid++
			}
			unresolved = append(unresolved, i)
			continue
		}
		out := make([]models.Value, len(columns))
		copy(out, row)
		out[latIdx] = models.NumberValue(res.Point.Latitude)
		out[lonIdx] = models.NumberValue(res.Point.Longitude)
		located = append(located, out)
		from = append(from, i)
	}

	table, err := t.Derive(columns, located, from)
	if err != nil {
		return nil, err
	}
	return &Located{Table: table, Unresolved: t.Select(unresolved), Invalid: invalid}, nil
}
