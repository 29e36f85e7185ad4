package engine

import (
	"io"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/ipc"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/pkg/errors"

	"salesboard/internal/models"
)

// columnKind is the kind shared by every non-null cell of column c, or
// KindString when the column mixes kinds.
func columnKind(t *models.Table, c int) models.Kind {
	kind := models.KindNull
	for i := 0; i < t.Len(); i++ {
		k := t.Row(i)[c].Kind
		if k == models.KindNull {
			continue
		}
		if kind == models.KindNull {
			kind = k
		} else if kind != k {
			return models.KindString
		}
	}
	if kind == models.KindNull {
		return models.KindString
	}
	return kind
}

// ArrowSchema maps numeric columns to float64, date columns to date32 and
// everything else to utf8. All fields are nullable.
func ArrowSchema(t *models.Table) *arrow.Schema {
	cols := t.Columns()
	fields := make([]arrow.Field, len(cols))
	for c, name := range cols {
		var dt arrow.DataType
		switch columnKind(t, c) {
		case models.KindNumber:
			dt = arrow.PrimitiveTypes.Float64
		case models.KindDate:
			dt = arrow.FixedWidthTypes.Date32
		default:
			dt = arrow.BinaryTypes.String
		}
		fields[c] = arrow.Field{Name: name, Type: dt, Nullable: true}
	}
	return arrow.NewSchema(fields, nil)
}

// ToArrow builds an Arrow record holding t. The caller releases it.
func ToArrow(mem memory.Allocator, t *models.Table) arrow.Record {
	schema := ArrowSchema(t)
	rb := array.NewRecordBuilder(mem, schema)
	defer rb.Release()

	for c, f := range schema.Fields() {
		switch b := rb.Field(c).(type) {
		case *array.Float64Builder:
			for i := 0; i < t.Len(); i++ {
				if v, ok := t.Row(i)[c].Float(); ok {
					b.Append(v)
				} else {
					b.AppendNull()
				}
			}
		case *array.Date32Builder:
			for i := 0; i < t.Len(); i++ {
				if d, ok := t.Row(i)[c].Time(); ok {
					b.Append(arrow.Date32FromTime(d))
				} else {
					b.AppendNull()
				}
			}
		case *array.StringBuilder:
			for i := 0; i < t.Len(); i++ {
				v := t.Row(i)[c]
				if v.IsNull() {
					b.AppendNull()
				} else {
					b.Append(v.Key())
				}
			}
		default:
			panic("unexpected builder for field " + f.Name)
		}
	}
	return rb.NewRecord()
}

// WriteArrowStream writes t to w in the Arrow IPC stream format.
func WriteArrowStream(w io.Writer, t *models.Table) error {
	mem := memory.NewGoAllocator()
	rec := ToArrow(mem, t)
	defer rec.Release()

	wr := ipc.NewWriter(w, ipc.WithSchema(rec.Schema()), ipc.WithAllocator(mem))
	if err := wr.Write(rec); err != nil {
		wr.Close()
		return errors.Wrap(err, "write arrow record")
	}
	return errors.Wrap(wr.Close(), "close arrow stream")
}
