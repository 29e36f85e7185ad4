package models

import (
	"math"
	"strconv"
	"time"

	"github.com/goccy/go-json"
)

// DateLayout is the canonical day format used for keys and JSON output.
const DateLayout = "2006-01-02"

type Kind uint8

const (
	KindNull Kind = iota
	KindString
	KindNumber
	KindDate
)

func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindNumber:
		return "number"
	case KindDate:
		return "date"
	default:
		return "null"
	}
}

// Value is a single table cell.
type Value struct {
	Kind Kind
	str  string
	num  float64
	date time.Time
}

func NullValue() Value { return Value{} }

func StringValue(s string) Value { return Value{Kind: KindString, str: s} }

// NumberValue returns a null Value for NaN and infinities.
func NumberValue(f float64) Value {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return Value{}
	}
	return Value{Kind: KindNumber, num: f}
}

// DateValue keeps only the calendar day of t, as seen in t's own location.
func DateValue(t time.Time) Value {
	y, m, d := t.Date()
	return Value{Kind: KindDate, date: time.Date(y, m, d, 0, 0, 0, 0, time.UTC)}
}

func (v Value) IsNull() bool { return v.Kind == KindNull }

func (v Value) Float() (float64, bool) {
	if v.Kind != KindNumber {
		return 0, false
	}
	return v.num, true
}

func (v Value) Time() (time.Time, bool) {
	if v.Kind != KindDate {
		return time.Time{}, false
	}
	return v.date, true
}

// Key is the canonical text of the value. Set-membership filters compare
// against it, so a numeric salesperson code 2 matches the selection "2".
func (v Value) Key() string {
	switch v.Kind {
	case KindString:
		return v.str
	case KindNumber:
		return strconv.FormatFloat(v.num, 'f', -1, 64)
	case KindDate:
		return v.date.Format(DateLayout)
	default:
		return ""
	}
}

func (v Value) String() string { return v.Key() }

// Equal is exact equality: same kind and same key. Dates compare by day.
func (v Value) Equal(o Value) bool {
	return v.Kind == o.Kind && v.Key() == o.Key()
}

// Less orders values by kind first, then naturally within a kind.
func (v Value) Less(o Value) bool {
	if v.Kind != o.Kind {
		return v.Kind < o.Kind
	}
	switch v.Kind {
	case KindNumber:
		return v.num < o.num
	case KindDate:
		return v.date.Before(o.date)
	default:
		return v.str < o.str
	}
}

func (v Value) MarshalJSON() ([]byte, error) {
	switch v.Kind {
	case KindString:
		return json.Marshal(v.str)
	case KindNumber:
		return strconv.AppendFloat(nil, v.num, 'f', -1, 64), nil
	case KindDate:
		return json.Marshal(v.date.Format(DateLayout))
	default:
		return []byte("null"), nil
	}
}
