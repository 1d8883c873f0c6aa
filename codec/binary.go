package codec

import (
	"encoding/binary"
	"io"

	"sdds/file"
	"sdds/layout"
	"sdds/utils/convert"
	"sdds/utils/errs"

	"github.com/pkg/errors"
)

// Binary page wire format, in write order:
//
//	+-----------+------------------+----------------+----------+
//	| row count | arrays           | parameters     | rows     |
//	| (uint32)  | dims... payload  | one scalar per | row- or  |
//	| unless    | per declaration  | non-fixed def  | column-  |
//	| no_row_   |                  |                | major    |
//	| counts    |                  |                |          |
//	+-----------+------------------+----------------+----------+
//
// Every multi-byte value honors the layout's declared endianness.
// Strings are a uint32 byte count followed by the raw bytes, no NUL.

// maxStringLen guards string allocations against corrupt length words.
// maxRows and maxElements bound row and array allocations the same way.
const (
	maxStringLen = 1 << 28
	maxRows      = 1 << 28
	maxElements  = 1 << 28
)

type binWriter struct {
	s   file.Stream
	bo  binary.ByteOrder
	buf [8]byte
}

func (w *binWriter) u32(v uint32) error {
	convert.U32ToBytes(w.buf[:4], v, w.bo)
	_, err := w.s.Write(w.buf[:4])
	return err
}

func (w *binWriter) scalar(t layout.Type, v interface{}) error {
	b := w.buf[:]
	switch t {
	case layout.LongDouble, layout.Double:
		convert.F64ToBytes(b, v.(float64), w.bo)
		b = b[:8]
	case layout.Float:
		convert.F32ToBytes(b, v.(float32), w.bo)
		b = b[:4]
	case layout.Long64:
		convert.U64ToBytes(b, uint64(v.(int64)), w.bo)
		b = b[:8]
	case layout.ULong64:
		convert.U64ToBytes(b, v.(uint64), w.bo)
		b = b[:8]
	case layout.Long:
		convert.U32ToBytes(b, uint32(v.(int32)), w.bo)
		b = b[:4]
	case layout.ULong:
		convert.U32ToBytes(b, v.(uint32), w.bo)
		b = b[:4]
	case layout.Short:
		convert.U16ToBytes(b, uint16(v.(int16)), w.bo)
		b = b[:2]
	case layout.UShort:
		convert.U16ToBytes(b, v.(uint16), w.bo)
		b = b[:2]
	case layout.Character:
		b[0] = v.(byte)
		b = b[:1]
	case layout.String:
		s := v.(string)
		if err := w.u32(uint32(len(s))); err != nil {
			return err
		}
		_, err := w.s.WriteString(s)
		return err
	default:
		return errors.Wrapf(errs.ErrUnknownType, "tag %d", t)
	}
	_, err := w.s.Write(b)
	return err
}

func writeBinary(s file.Stream, lay *layout.Layout, p *Page) error {
	w := &binWriter{s: s, bo: lay.Data.ByteOrder()}

	if !lay.Data.NoRowCounts {
		if err := w.u32(uint32(p.Rows)); err != nil {
			return errors.Wrap(err, "write row count")
		}
	}
	for i, def := range lay.Arrays {
		av := p.Arrays[i]
		for _, d := range av.Dims {
			if err := w.u32(uint32(d)); err != nil {
				return errors.Wrapf(err, "write dims of array %q", def.Name)
			}
		}
		n := av.Elements()
		for j := 0; j < n; j++ {
			if err := w.scalar(def.Type, sliceElem(def.Type, av.Data, j)); err != nil {
				return errors.Wrapf(err, "write array %q", def.Name)
			}
		}
	}
	for i, def := range lay.Parameters {
		if def.FixedValue != "" {
			continue
		}
		if err := w.scalar(def.Type, p.Params[i]); err != nil {
			return errors.Wrapf(err, "write parameter %q", def.Name)
		}
	}

	if lay.Data.ColumnMajorOrder {
		for i, def := range lay.Columns {
			for r := 0; r < p.Rows; r++ {
				if err := w.scalar(def.Type, sliceElem(def.Type, p.Columns[i], r)); err != nil {
					return errors.Wrapf(err, "write column %q", def.Name)
				}
			}
		}
		return nil
	}
	for r := 0; r < p.Rows; r++ {
		for i, def := range lay.Columns {
			if err := w.scalar(def.Type, sliceElem(def.Type, p.Columns[i], r)); err != nil {
				return errors.Wrapf(err, "write row %d column %q", r, def.Name)
			}
		}
	}
	return nil
}

type binReader struct {
	s   file.Stream
	bo  binary.ByteOrder
	buf [8]byte
}

func (r *binReader) fill(n int) error {
	if _, err := io.ReadFull(r.s, r.buf[:n]); err != nil {
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return errors.Wrap(errs.ErrTruncatedPage, "unexpected end of stream")
		}
		return err
	}
	return nil
}

func (r *binReader) u32() (uint32, error) {
	if err := r.fill(4); err != nil {
		return 0, err
	}
	return convert.BytesToU32(r.buf[:4], r.bo), nil
}

func (r *binReader) scalar(t layout.Type) (interface{}, error) {
	switch t {
	case layout.LongDouble, layout.Double:
		if err := r.fill(8); err != nil {
			return nil, err
		}
		return convert.BytesToF64(r.buf[:8], r.bo), nil
	case layout.Float:
		if err := r.fill(4); err != nil {
			return nil, err
		}
		return convert.BytesToF32(r.buf[:4], r.bo), nil
	case layout.Long64:
		if err := r.fill(8); err != nil {
			return nil, err
		}
		return int64(convert.BytesToU64(r.buf[:8], r.bo)), nil
	case layout.ULong64:
		if err := r.fill(8); err != nil {
			return nil, err
		}
		return convert.BytesToU64(r.buf[:8], r.bo), nil
	case layout.Long:
		if err := r.fill(4); err != nil {
			return nil, err
		}
		return int32(convert.BytesToU32(r.buf[:4], r.bo)), nil
	case layout.ULong:
		if err := r.fill(4); err != nil {
			return nil, err
		}
		return convert.BytesToU32(r.buf[:4], r.bo), nil
	case layout.Short:
		if err := r.fill(2); err != nil {
			return nil, err
		}
		return int16(convert.BytesToU16(r.buf[:2], r.bo)), nil
	case layout.UShort:
		if err := r.fill(2); err != nil {
			return nil, err
		}
		return convert.BytesToU16(r.buf[:2], r.bo), nil
	case layout.Character:
		if err := r.fill(1); err != nil {
			return nil, err
		}
		return r.buf[0], nil
	case layout.String:
		n, err := r.u32()
		if err != nil {
			return nil, err
		}
		if n > maxStringLen {
			return nil, errors.Wrapf(errs.ErrTruncatedPage, "string length %d", n)
		}
		b := make([]byte, n)
		if _, err := io.ReadFull(r.s, b); err != nil {
			return nil, errors.Wrap(errs.ErrTruncatedPage, "string payload")
		}
		return string(b), nil
	}
	return nil, errors.Wrapf(errs.ErrUnknownType, "tag %d", t)
}

func readBinary(s file.Stream, lay *layout.Layout) (*Page, error) {
	if s.Eof() {
		return nil, io.EOF
	}
	if lay.Data.NoRowCounts && lay.Data.ColumnMajorOrder {
		return nil, errors.Wrap(errs.ErrBadValue,
			"no_row_counts binary pages cannot be column major")
	}
	r := &binReader{s: s, bo: lay.Data.ByteOrder()}

	rows := -1
	if !lay.Data.NoRowCounts {
		n, err := r.u32()
		if err != nil {
			return nil, errors.Wrap(err, "read row count")
		}
		if n > maxRows {
			return nil, errors.Wrapf(errs.ErrTruncatedPage, "row count %d", n)
		}
		rows = int(n)
	}
	p, err := NewPage(lay, 0)
	if err != nil {
		return nil, err
	}

	for i, def := range lay.Arrays {
		av := p.Arrays[i]
		for d := range av.Dims {
			n, err := r.u32()
			if err != nil {
				return nil, errors.Wrapf(err, "read dims of array %q", def.Name)
			}
			if n > maxElements {
				return nil, errors.Wrapf(errs.ErrBadDimensions, "array %q dim %d", def.Name, n)
			}
			av.Dims[d] = int32(n)
		}
		count := av.Elements()
		if count < 0 {
			return nil, errors.Wrapf(errs.ErrBadDimensions,
				"array %q dims %v", def.Name, av.Dims)
		}
		av.Data = newSlice(def.Type, count)
		for j := 0; j < count; j++ {
			v, err := r.scalar(def.Type)
			if err != nil {
				return nil, errors.Wrapf(err, "read array %q", def.Name)
			}
			setSliceElem(def.Type, av.Data, j, v)
		}
	}
	for i, def := range lay.Parameters {
		if def.FixedValue != "" {
			continue
		}
		v, err := r.scalar(def.Type)
		if err != nil {
			return nil, errors.Wrapf(err, "read parameter %q", def.Name)
		}
		p.Params[i] = v
	}

	if rows < 0 {
		return readBinaryRowsToEOF(s, r, lay, p)
	}
	p.Rows = rows
	for i, def := range lay.Columns {
		p.Columns[i] = newSlice(def.Type, rows)
	}
	if lay.Data.ColumnMajorOrder {
		for i, def := range lay.Columns {
			for row := 0; row < rows; row++ {
				v, err := r.scalar(def.Type)
				if err != nil {
					return nil, errors.Wrapf(err, "read column %q", def.Name)
				}
				setSliceElem(def.Type, p.Columns[i], row, v)
			}
		}
		return p, nil
	}
	for row := 0; row < rows; row++ {
		for i, def := range lay.Columns {
			v, err := r.scalar(def.Type)
			if err != nil {
				return nil, errors.Wrapf(err, "read row %d column %q", row, def.Name)
			}
			setSliceElem(def.Type, p.Columns[i], row, v)
		}
	}
	return p, nil
}

// readBinaryRowsToEOF consumes complete rows until the stream runs out.
// A partial trailing row is a truncation error, not a short page.
func readBinaryRowsToEOF(s file.Stream, r *binReader, lay *layout.Layout, p *Page) (*Page, error) {
	if len(lay.Columns) == 0 {
		return p, nil
	}
	var rows [][]interface{}
	for !s.Eof() {
		row := make([]interface{}, len(lay.Columns))
		for i, def := range lay.Columns {
			v, err := r.scalar(def.Type)
			if err != nil {
				return nil, errors.Wrapf(err, "read row %d column %q", len(rows), def.Name)
			}
			row[i] = v
		}
		rows = append(rows, row)
	}
	p.Rows = len(rows)
	for i, def := range lay.Columns {
		col := newSlice(def.Type, len(rows))
		for rI, row := range rows {
			setSliceElem(def.Type, col, rI, row[i])
		}
		p.Columns[i] = col
	}
	return p, nil
}
