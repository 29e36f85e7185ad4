package engine

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"salesboard/internal/models"
)

// Column names of the uploaded spreadsheets.
const (
	ColClient      = "RAZÃO SOCIAL"
	ColSalesperson = "VENDEDOR"
	ColPayment     = "FORMA PAGTO"
	ColIssued      = "EMISSÃO"
	ColValue       = "VALOR"
	ColOperation   = "OPERACAO"
	ColCity        = "CIDADE"
	ColState       = "ESTADO"
	ColCarrier     = "TRANSPORTADORA"
	ColDate        = "DATA"
	ColLatitude    = "LATITUDE"
	ColLongitude   = "LONGITUDE"
)

type ColumnSpec struct {
	Name     string
	Kind     models.Kind
	Required bool
}

// Schema is the column contract of one page. Bind checks it once per
// request and hands back a table whose declared columns hold the declared
// kind or null.
type Schema struct {
	Page    string
	Columns []ColumnSpec
}

var (
	SalesSchema = Schema{
		Page: "sales",
		Columns: []ColumnSpec{
			{Name: ColClient, Kind: models.KindString, Required: true},
			{Name: ColSalesperson, Kind: models.KindString, Required: true},
			{Name: ColPayment, Kind: models.KindString, Required: true},
			{Name: ColIssued, Kind: models.KindDate, Required: true},
			{Name: ColValue, Kind: models.KindNumber, Required: true},
			{Name: ColOperation, Kind: models.KindString, Required: true},
		},
	}

	RegionSchema = Schema{
		Page: "regions",
		Columns: []ColumnSpec{
			{Name: ColCity, Kind: models.KindString, Required: true},
			{Name: ColState, Kind: models.KindString, Required: true},
			{Name: ColValue, Kind: models.KindNumber, Required: true},
		},
	}

	CarrierSchema = Schema{
		Page: "carriers",
		Columns: []ColumnSpec{
			{Name: ColCarrier, Kind: models.KindString, Required: true},
			{Name: ColDate, Kind: models.KindDate},
		},
	}
)

func (s Schema) Bind(t *models.Table) (*models.Table, models.Diagnostics, error) {
	var required []string
	for _, c := range s.Columns {
		if c.Required {
			required = append(required, c.Name)
		}
	}
	if err := requireColumns(t.Has, s.Page, required...); err != nil {
		return nil, nil, err
	}

	type target struct {
		idx  int
		spec ColumnSpec
	}
	var targets []target
	for _, c := range s.Columns {
		if idx, ok := t.Index(c.Name); ok {
			targets = append(targets, target{idx: idx, spec: c})
		}
	}

	var diags models.Diagnostics
	rows := make([][]models.Value, t.Len())
	for i := 0; i < t.Len(); i++ {
		src := t.Row(i)
		row := make([]models.Value, len(src))
		copy(row, src)
		for _, tg := range targets {
			v, ok := Coerce(src[tg.idx], tg.spec.Kind)
			if !ok {
				diags = append(diags, models.Diagnostic{
					Row:    t.Origin(i),
					Column: tg.spec.Name,
					Value:  src[tg.idx].Key(),
					Reason: "not a " + tg.spec.Kind.String(),
				})
			}
			row[tg.idx] = v
		}
		rows[i] = row
	}

	bound, err := t.Rebuild(t.Columns(), rows)
	if err != nil {
		return nil, nil, err
	}
	return bound, diags, nil
}

// Coerce converts v to kind. Nulls stay null and succeed; a value that
// cannot be converted becomes null and reports false.
func Coerce(v models.Value, kind models.Kind) (models.Value, bool) {
	if v.IsNull() || v.Kind == kind {
		return v, true
	}
	switch kind {
	case models.KindString:
		return models.StringValue(v.Key()), true
	case models.KindNumber:
		if v.Kind == models.KindString {
			if f, ok := ParseNumber(v.Key()); ok {
				return models.NumberValue(f), true
			}
		}
	case models.KindDate:
		switch v.Kind {
		case models.KindString:
			if d, ok := ParseDate(v.Key()); ok {
				return models.DateValue(d), true
			}
		case models.KindNumber:
			f, _ := v.Float()
			if f >= 1 && f < 2958466 {
				if d, err := excelize.ExcelDateToTime(f, false); err == nil {
					return models.DateValue(d), true
				}
			}
		}
	}
	return models.NullValue(), false
}

// ParseNumber accepts plain decimals as well as formatted amounts such as
// "R$ 1.234,56" or "1,234.56". When both separators appear the last one is
// the decimal separator; a lone comma is a decimal comma. Misplaced
// thousands separators and non-finite values are rejected.
func ParseNumber(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	sign := ""
	if strings.HasPrefix(s, "-") {
		sign, s = "-", strings.TrimSpace(s[1:])
	}
	s = strings.TrimSpace(strings.TrimPrefix(s, "R$"))
	if s == "" {
		return 0, false
	}
	if f, err := strconv.ParseFloat(sign+s, 64); err == nil {
		return f, !math.IsNaN(f) && !math.IsInf(f, 0)
	}

	dec := strings.LastIndexAny(s, ".,")
	if dec < 0 {
		return 0, false
	}
	sep, group := s[dec:dec+1], ","
	if sep == "," {
		group = "."
	}
	var plain string
	switch {
	case strings.Count(s, sep) > 1:
		// "1.234.567": every separator groups thousands.
		if strings.Contains(s, group) || !grouped(s, sep) {
			return 0, false
		}
		plain = strings.ReplaceAll(s, sep, "")
	case strings.Contains(s[:dec], group):
		if !grouped(s[:dec], group) {
			return 0, false
		}
		plain = strings.ReplaceAll(s[:dec], group, "") + "." + s[dec+1:]
	default:
		plain = s[:dec] + "." + s[dec+1:]
	}
	if !digitsOnly(strings.Replace(plain, ".", "", 1)) {
		return 0, false
	}
	f, err := strconv.ParseFloat(sign+plain, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// grouped reports whether s is digits split by sep into a leading group of
// one to three digits followed by groups of exactly three.
func grouped(s, sep string) bool {
	parts := strings.Split(s, sep)
	if len(parts[0]) < 1 || len(parts[0]) > 3 {
		return false
	}
	for _, p := range parts[1:] {
		if len(p) != 3 {
			return false
		}
	}
	return digitsOnly(strings.Join(parts, ""))
}

func digitsOnly(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// Day-first layouts come before month-first ones: uploads use Brazilian dates.
var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	time.RFC3339,
	"02/01/2006",
	"02/01/2006 15:04:05",
	"2/1/2006",
	"02-01-2006",
	"2006/01/02",
	"2006.01.02",
}

func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
