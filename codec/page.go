package codec

import (
	"strconv"

	"sdds/layout"
	"sdds/utils/errs"

	"github.com/pkg/errors"
)

// In-memory scalar representation per registered type:
//
//	longdouble, double  float64
//	float               float32
//	long64              int64
//	ulong64             uint64
//	long                int32
//	ulong               uint32
//	short               int16
//	ushort              uint16
//	string              string
//	character           byte
//
// Columns hold the matching slice type. Dispatch is an exhaustive switch
// over the type tag; an unknown tag is a caller error.

// ArrayValue is one page's instance of an array definition: the per-page
// dimension sizes and the flattened payload in row-major element order.
type ArrayValue struct {
	Dims []int32
	Data interface{}
}

// Elements returns the payload length implied by the dimension sizes, or
// -1 when a size is negative or the product exceeds maxElements. Corrupt
// dimension words must never reach an allocation.
func (av *ArrayValue) Elements() int {
	if len(av.Dims) == 0 {
		return 0
	}
	n := 1
	for _, d := range av.Dims {
		if d < 0 {
			return -1
		}
		if d != 0 && n > maxElements/int(d) {
			return -1
		}
		n *= int(d)
	}
	return n
}

// Page is one complete table instance: a value per parameter, an
// ArrayValue per array, and Rows values per column.
type Page struct {
	Rows    int
	Params  []interface{}
	Arrays  []*ArrayValue
	Columns []interface{}
}

// NewPage allocates a page shaped by lay with rows rows. Fixed-value
// parameters are materialized from the header; everything else is zero.
func NewPage(lay *layout.Layout, rows int) (*Page, error) {
	p := &Page{
		Rows:    rows,
		Params:  make([]interface{}, len(lay.Parameters)),
		Arrays:  make([]*ArrayValue, len(lay.Arrays)),
		Columns: make([]interface{}, len(lay.Columns)),
	}
	for i, def := range lay.Parameters {
		if def.FixedValue != "" {
			v, err := ParseScalar(def.Type, def.FixedValue)
			if err != nil {
				return nil, errors.Wrapf(err, "fixed_value of parameter %q", def.Name)
			}
			p.Params[i] = v
		} else {
			p.Params[i] = zeroScalar(def.Type)
		}
	}
	for i, def := range lay.Arrays {
		p.Arrays[i] = &ArrayValue{
			Dims: make([]int32, def.Dimensions),
			Data: newSlice(def.Type, 0),
		}
	}
	for i, def := range lay.Columns {
		p.Columns[i] = newSlice(def.Type, rows)
	}
	return p, nil
}

func zeroScalar(t layout.Type) interface{} {
	switch t {
	case layout.LongDouble, layout.Double:
		return float64(0)
	case layout.Float:
		return float32(0)
	case layout.Long64:
		return int64(0)
	case layout.ULong64:
		return uint64(0)
	case layout.Long:
		return int32(0)
	case layout.ULong:
		return uint32(0)
	case layout.Short:
		return int16(0)
	case layout.UShort:
		return uint16(0)
	case layout.String:
		return ""
	case layout.Character:
		return byte(0)
	}
	return nil
}

func newSlice(t layout.Type, n int) interface{} {
	switch t {
	case layout.LongDouble, layout.Double:
		return make([]float64, n)
	case layout.Float:
		return make([]float32, n)
	case layout.Long64:
		return make([]int64, n)
	case layout.ULong64:
		return make([]uint64, n)
	case layout.Long:
		return make([]int32, n)
	case layout.ULong:
		return make([]uint32, n)
	case layout.Short:
		return make([]int16, n)
	case layout.UShort:
		return make([]uint16, n)
	case layout.String:
		return make([]string, n)
	case layout.Character:
		return make([]byte, n)
	}
	return nil
}

// SliceLen validates that v is the slice type for t and returns its length.
func SliceLen(t layout.Type, v interface{}) (int, error) {
	switch t {
	case layout.LongDouble, layout.Double:
		if s, ok := v.([]float64); ok {
			return len(s), nil
		}
	case layout.Float:
		if s, ok := v.([]float32); ok {
			return len(s), nil
		}
	case layout.Long64:
		if s, ok := v.([]int64); ok {
			return len(s), nil
		}
	case layout.ULong64:
		if s, ok := v.([]uint64); ok {
			return len(s), nil
		}
	case layout.Long:
		if s, ok := v.([]int32); ok {
			return len(s), nil
		}
	case layout.ULong:
		if s, ok := v.([]uint32); ok {
			return len(s), nil
		}
	case layout.Short:
		if s, ok := v.([]int16); ok {
			return len(s), nil
		}
	case layout.UShort:
		if s, ok := v.([]uint16); ok {
			return len(s), nil
		}
	case layout.String:
		if s, ok := v.([]string); ok {
			return len(s), nil
		}
	case layout.Character:
		if s, ok := v.([]byte); ok {
			return len(s), nil
		}
	default:
		return 0, errors.Wrapf(errs.ErrUnknownType, "tag %d", t)
	}
	return 0, errors.Wrapf(errs.ErrTypeMismatch, "%T is not the slice type for %s", v, t.Name())
}

// CheckScalar validates that v is the scalar representation of t.
func CheckScalar(t layout.Type, v interface{}) error {
	ok := false
	switch t {
	case layout.LongDouble, layout.Double:
		_, ok = v.(float64)
	case layout.Float:
		_, ok = v.(float32)
	case layout.Long64:
		_, ok = v.(int64)
	case layout.ULong64:
		_, ok = v.(uint64)
	case layout.Long:
		_, ok = v.(int32)
	case layout.ULong:
		_, ok = v.(uint32)
	case layout.Short:
		_, ok = v.(int16)
	case layout.UShort:
		_, ok = v.(uint16)
	case layout.String:
		_, ok = v.(string)
	case layout.Character:
		_, ok = v.(byte)
	default:
		return errors.Wrapf(errs.ErrUnknownType, "tag %d", t)
	}
	if !ok {
		return errors.Wrapf(errs.ErrTypeMismatch, "%T is not the scalar type for %s", v, t.Name())
	}
	return nil
}

// sliceElem reads element i of a typed column slice.
func sliceElem(t layout.Type, v interface{}, i int) interface{} {
	switch t {
	case layout.LongDouble, layout.Double:
		return v.([]float64)[i]
	case layout.Float:
		return v.([]float32)[i]
	case layout.Long64:
		return v.([]int64)[i]
	case layout.ULong64:
		return v.([]uint64)[i]
	case layout.Long:
		return v.([]int32)[i]
	case layout.ULong:
		return v.([]uint32)[i]
	case layout.Short:
		return v.([]int16)[i]
	case layout.UShort:
		return v.([]uint16)[i]
	case layout.String:
		return v.([]string)[i]
	case layout.Character:
		return v.([]byte)[i]
	}
	return nil
}

// setSliceElem stores a checked scalar into element i of a column slice.
func setSliceElem(t layout.Type, v interface{}, i int, elem interface{}) {
	switch t {
	case layout.LongDouble, layout.Double:
		v.([]float64)[i] = elem.(float64)
	case layout.Float:
		v.([]float32)[i] = elem.(float32)
	case layout.Long64:
		v.([]int64)[i] = elem.(int64)
	case layout.ULong64:
		v.([]uint64)[i] = elem.(uint64)
	case layout.Long:
		v.([]int32)[i] = elem.(int32)
	case layout.ULong:
		v.([]uint32)[i] = elem.(uint32)
	case layout.Short:
		v.([]int16)[i] = elem.(int16)
	case layout.UShort:
		v.([]uint16)[i] = elem.(uint16)
	case layout.String:
		v.([]string)[i] = elem.(string)
	case layout.Character:
		v.([]byte)[i] = elem.(byte)
	}
}

// Cell reads one value of the page's column col at row. The caller is
// responsible for bounds and for t matching the column definition.
func (p *Page) Cell(t layout.Type, col, row int) interface{} {
	return sliceElem(t, p.Columns[col], row)
}

// SetCell stores a type-checked scalar into column col at row.
func (p *Page) SetCell(t layout.Type, col, row int, v interface{}) {
	setSliceElem(t, p.Columns[col], row, v)
}

// ParseScalar converts header or ASCII text to the scalar value of t.
func ParseScalar(t layout.Type, tok string) (interface{}, error) {
	switch t {
	case layout.LongDouble, layout.Double:
		v, err := strconv.ParseFloat(tok, 64)
		if err != nil {
			return nil, errors.Wrapf(errs.ErrBadValue, "%q as %s", tok, t.Name())
		}
		return v, nil
	case layout.Float:
		v, err := strconv.ParseFloat(tok, 32)
		if err != nil {
			return nil, errors.Wrapf(errs.ErrBadValue, "%q as float", tok)
		}
		return float32(v), nil
	case layout.Long64:
		v, err := strconv.ParseInt(tok, 10, 64)
		if err != nil {
			return nil, errors.Wrapf(errs.ErrBadValue, "%q as long64", tok)
		}
		return v, nil
	case layout.ULong64:
		v, err := strconv.ParseUint(tok, 10, 64)
		if err != nil {
			return nil, errors.Wrapf(errs.ErrBadValue, "%q as ulong64", tok)
		}
		return v, nil
	case layout.Long:
		v, err := strconv.ParseInt(tok, 10, 32)
		if err != nil {
			return nil, errors.Wrapf(errs.ErrBadValue, "%q as long", tok)
		}
		return int32(v), nil
	case layout.ULong:
		v, err := strconv.ParseUint(tok, 10, 32)
		if err != nil {
			return nil, errors.Wrapf(errs.ErrBadValue, "%q as ulong", tok)
		}
		return uint32(v), nil
	case layout.Short:
		v, err := strconv.ParseInt(tok, 10, 16)
		if err != nil {
			return nil, errors.Wrapf(errs.ErrBadValue, "%q as short", tok)
		}
		return int16(v), nil
	case layout.UShort:
		v, err := strconv.ParseUint(tok, 10, 16)
		if err != nil {
			return nil, errors.Wrapf(errs.ErrBadValue, "%q as ushort", tok)
		}
		return uint16(v), nil
	case layout.String:
		return tok, nil
	case layout.Character:
		if len(tok) != 1 {
			return nil, errors.Wrapf(errs.ErrBadValue, "%q as character", tok)
		}
		return tok[0], nil
	}
	return nil, errors.Wrapf(errs.ErrUnknownType, "tag %d", t)
}
