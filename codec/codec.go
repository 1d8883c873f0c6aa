package codec

import (
	"sdds/file"
	"sdds/layout"
	"sdds/utils/errs"

	"github.com/pkg/errors"
)

// WritePage serializes one page in the layout's data mode. The page must
// be fully populated and shaped to the layout.
func WritePage(s file.Stream, lay *layout.Layout, p *Page) error {
	if err := checkShape(lay, p); err != nil {
		return err
	}
	if lay.Data.Mode == layout.ModeBinary {
		return writeBinary(s, lay, p)
	}
	return writeASCII(s, lay, p)
}

// ReadPage deserializes the next page. A clean end of stream returns
// io.EOF; anything cut short mid-page is a data error.
func ReadPage(s file.Stream, lay *layout.Layout) (*Page, error) {
	if lay.Data.Mode == layout.ModeBinary {
		return readBinary(s, lay)
	}
	return readASCII(s, lay)
}

// checkShape validates a page against its layout before any byte is
// written.
func checkShape(lay *layout.Layout, p *Page) error {
	if lay.Data.Mode == layout.ModeBinary && lay.Data.NoRowCounts && lay.Data.ColumnMajorOrder {
		return errors.Wrap(errs.ErrBadValue,
			"no_row_counts binary pages cannot be column major")
	}
	if len(p.Params) != len(lay.Parameters) ||
		len(p.Arrays) != len(lay.Arrays) ||
		len(p.Columns) != len(lay.Columns) {
		return errors.Wrap(errs.ErrTypeMismatch, "page does not match layout shape")
	}
	for i, def := range lay.Parameters {
		if err := CheckScalar(def.Type, p.Params[i]); err != nil {
			return errors.Wrapf(err, "parameter %q", def.Name)
		}
	}
	for i, def := range lay.Arrays {
		av := p.Arrays[i]
		if av == nil || len(av.Dims) != int(def.Dimensions) {
			return errors.Wrapf(errs.ErrBadDimensions, "array %q wants rank %d",
				def.Name, def.Dimensions)
		}
		n, err := SliceLen(def.Type, av.Data)
		if err != nil {
			return errors.Wrapf(err, "array %q", def.Name)
		}
		if n != av.Elements() {
			return errors.Wrapf(errs.ErrBadDimensions,
				"array %q has %d elements for dims %v", def.Name, n, av.Dims)
		}
	}
	for i, def := range lay.Columns {
		n, err := SliceLen(def.Type, p.Columns[i])
		if err != nil {
			return errors.Wrapf(err, "column %q", def.Name)
		}
		if n != p.Rows {
			return errors.Wrapf(errs.ErrTypeMismatch,
				"column %q has %d values for %d rows", def.Name, n, p.Rows)
		}
	}
	return nil
}
