package sdds

import (
	"sdds/codec"
	"sdds/utils/errs"

	"github.com/pkg/errors"
)

// Lookup-by-name is the primary surface; the *Index methods expose the
// declaration order for callers that iterate.

// ColumnIndex resolves a column name to its declaration position.
func (ds *Dataset) ColumnIndex(name string) (int, error) {
	i, ok := ds.lay.ColumnIndex(name)
	if !ok {
		return 0, errors.Wrapf(errs.ErrNotFound, "column %q", name)
	}
	return i, nil
}

// ParameterIndex resolves a parameter name to its declaration position.
func (ds *Dataset) ParameterIndex(name string) (int, error) {
	i, ok := ds.lay.ParameterIndex(name)
	if !ok {
		return 0, errors.Wrapf(errs.ErrNotFound, "parameter %q", name)
	}
	return i, nil
}

// ArrayIndex resolves an array name to its declaration position.
func (ds *Dataset) ArrayIndex(name string) (int, error) {
	i, ok := ds.lay.ArrayIndex(name)
	if !ok {
		return 0, errors.Wrapf(errs.ErrNotFound, "array %q", name)
	}
	return i, nil
}

// Column returns the active page's values for one column as the typed
// slice matching its definition ([]float64, []int32, []string, ...).
func (ds *Dataset) Column(name string) (interface{}, error) {
	if err := ds.active(); err != nil {
		return nil, err
	}
	i, err := ds.ColumnIndex(name)
	if err != nil {
		return nil, err
	}
	return ds.page.Columns[i], nil
}

// ColumnAt returns a single cell of the active page.
func (ds *Dataset) ColumnAt(row int, name string) (interface{}, error) {
	if err := ds.active(); err != nil {
		return nil, err
	}
	i, err := ds.ColumnIndex(name)
	if err != nil {
		return nil, err
	}
	if row < 0 || row >= ds.page.Rows {
		return nil, errors.Wrapf(errs.ErrBadValue, "row %d of %d", row, ds.page.Rows)
	}
	return ds.page.Cell(ds.lay.Columns[i].Type, i, row), nil
}

// ColumnDouble returns a numeric column converted to float64, whatever
// its declared width. String columns do not convert.
func (ds *Dataset) ColumnDouble(name string) ([]float64, error) {
	v, err := ds.Column(name)
	if err != nil {
		return nil, err
	}
	out, ok := toFloat64Slice(v)
	if !ok {
		return nil, errors.Wrapf(errs.ErrTypeMismatch, "column %q is not numeric", name)
	}
	return out, nil
}

// Parameter returns the active page's value for one parameter.
func (ds *Dataset) Parameter(name string) (interface{}, error) {
	if err := ds.active(); err != nil {
		return nil, err
	}
	i, err := ds.ParameterIndex(name)
	if err != nil {
		return nil, err
	}
	return ds.page.Params[i], nil
}

// ParameterDouble returns a numeric parameter converted to float64.
func (ds *Dataset) ParameterDouble(name string) (float64, error) {
	v, err := ds.Parameter(name)
	if err != nil {
		return 0, err
	}
	f, ok := toFloat64(v)
	if !ok {
		return 0, errors.Wrapf(errs.ErrTypeMismatch, "parameter %q is not numeric", name)
	}
	return f, nil
}

// Array returns the active page's dimension sizes and flattened payload
// for one array.
func (ds *Dataset) Array(name string) ([]int32, interface{}, error) {
	if err := ds.active(); err != nil {
		return nil, nil, err
	}
	i, err := ds.ArrayIndex(name)
	if err != nil {
		return nil, nil, err
	}
	av := ds.page.Arrays[i]
	return av.Dims, av.Data, nil
}

// SetParameter stages a parameter value for the page being written.
// Fixed-value parameters are header constants and cannot be set.
func (ds *Dataset) SetParameter(name string, v interface{}) error {
	if err := ds.writable(); err != nil {
		return err
	}
	i, err := ds.ParameterIndex(name)
	if err != nil {
		return err
	}
	def := ds.lay.Parameters[i]
	if def.FixedValue != "" {
		return errors.Wrapf(errs.ErrTypeMismatch, "parameter %q has a fixed_value", name)
	}
	if err := codec.CheckScalar(def.Type, v); err != nil {
		return errors.Wrapf(err, "parameter %q", name)
	}
	ds.page.Params[i] = v
	return nil
}

// SetColumn stages a whole column. The slice type must match the
// definition and its length the page's row count.
func (ds *Dataset) SetColumn(name string, values interface{}) error {
	if err := ds.writable(); err != nil {
		return err
	}
	i, err := ds.ColumnIndex(name)
	if err != nil {
		return err
	}
	def := ds.lay.Columns[i]
	n, err := codec.SliceLen(def.Type, values)
	if err != nil {
		return errors.Wrapf(err, "column %q", name)
	}
	if n != ds.page.Rows {
		return errors.Wrapf(errs.ErrTypeMismatch,
			"column %q: %d values for %d rows", name, n, ds.page.Rows)
	}
	ds.page.Columns[i] = values
	return nil
}

// SetColumnAt stages a single cell of the page being written.
func (ds *Dataset) SetColumnAt(row int, name string, v interface{}) error {
	if err := ds.writable(); err != nil {
		return err
	}
	i, err := ds.ColumnIndex(name)
	if err != nil {
		return err
	}
	if row < 0 || row >= ds.page.Rows {
		return errors.Wrapf(errs.ErrBadValue, "row %d of %d", row, ds.page.Rows)
	}
	def := ds.lay.Columns[i]
	if err := codec.CheckScalar(def.Type, v); err != nil {
		return errors.Wrapf(err, "column %q", name)
	}
	ds.page.SetCell(def.Type, i, row, v)
	return nil
}

// SetArray stages an array instance: per-page dimension sizes plus the
// flattened payload in row-major element order.
func (ds *Dataset) SetArray(name string, dims []int32, data interface{}) error {
	if err := ds.writable(); err != nil {
		return err
	}
	i, err := ds.ArrayIndex(name)
	if err != nil {
		return err
	}
	def := ds.lay.Arrays[i]
	if len(dims) != int(def.Dimensions) {
		return errors.Wrapf(errs.ErrBadDimensions,
			"array %q wants rank %d, got %d", name, def.Dimensions, len(dims))
	}
	av := &codec.ArrayValue{Dims: dims, Data: data}
	n, err := codec.SliceLen(def.Type, data)
	if err != nil {
		return errors.Wrapf(err, "array %q", name)
	}
	if n != av.Elements() {
		return errors.Wrapf(errs.ErrBadDimensions,
			"array %q has %d elements for dims %v", name, n, dims)
	}
	ds.page.Arrays[i] = av
	return nil
}

func toFloat64(v interface{}) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case float32:
		return float64(x), true
	case int64:
		return float64(x), true
	case uint64:
		return float64(x), true
	case int32:
		return float64(x), true
	case uint32:
		return float64(x), true
	case int16:
		return float64(x), true
	case uint16:
		return float64(x), true
	case byte:
		return float64(x), true
	}
	return 0, false
}

func toFloat64Slice(v interface{}) ([]float64, bool) {
	switch x := v.(type) {
	case []float64:
		out := make([]float64, len(x))
		copy(out, x)
		return out, true
	case []float32:
		out := make([]float64, len(x))
		for i, e := range x {
			out[i] = float64(e)
		}
		return out, true
	case []int64:
		out := make([]float64, len(x))
		for i, e := range x {
			out[i] = float64(e)
		}
		return out, true
	case []uint64:
		out := make([]float64, len(x))
		for i, e := range x {
			out[i] = float64(e)
		}
		return out, true
	case []int32:
		out := make([]float64, len(x))
		for i, e := range x {
			out[i] = float64(e)
		}
		return out, true
	case []uint32:
		out := make([]float64, len(x))
		for i, e := range x {
			out[i] = float64(e)
		}
		return out, true
	case []int16:
		out := make([]float64, len(x))
		for i, e := range x {
			out[i] = float64(e)
		}
		return out, true
	case []uint16:
		out := make([]float64, len(x))
		for i, e := range x {
			out[i] = float64(e)
		}
		return out, true
	case []byte:
		out := make([]float64, len(x))
		for i, e := range x {
			out[i] = float64(e)
		}
		return out, true
	}
	return nil, false
}
