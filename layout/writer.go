package layout

import (
	"fmt"
	"io"
	"strings"

	"github.com/pkg/errors"
)

// Write emits the textual header for lay: the version line, one block per
// definition in declaration order, then the &data block that ends the
// header. The inverse of Parse.
func Write(w io.Writer, lay *Layout) error {
	if err := lay.Check(); err != nil {
		return err
	}
	var b strings.Builder
	fmt.Fprintf(&b, "SDDS%d\n", Version)

	if d := lay.Description; d != nil {
		b.WriteString("&description")
		field(&b, "text", d.Text)
		field(&b, "contents", d.Contents)
		b.WriteString(" &end\n")
	}
	for _, p := range lay.Parameters {
		b.WriteString("&parameter")
		field(&b, "name", p.Name)
		field(&b, "symbol", p.Symbol)
		field(&b, "units", p.Units)
		field(&b, "description", p.Description)
		field(&b, "format_string", p.FormatString)
		field(&b, "type", p.Type.Name())
		field(&b, "fixed_value", p.FixedValue)
		b.WriteString(" &end\n")
	}
	for _, a := range lay.Arrays {
		b.WriteString("&array")
		field(&b, "name", a.Name)
		field(&b, "symbol", a.Symbol)
		field(&b, "units", a.Units)
		field(&b, "description", a.Description)
		field(&b, "format_string", a.FormatString)
		field(&b, "group_name", a.GroupName)
		field(&b, "type", a.Type.Name())
		if a.Dimensions != 1 {
			fmt.Fprintf(&b, " dimensions=%d,", a.Dimensions)
		}
		b.WriteString(" &end\n")
	}
	for _, c := range lay.Columns {
		b.WriteString("&column")
		field(&b, "name", c.Name)
		field(&b, "symbol", c.Symbol)
		field(&b, "units", c.Units)
		field(&b, "description", c.Description)
		field(&b, "format_string", c.FormatString)
		field(&b, "type", c.Type.Name())
		if c.FieldLength != 0 {
			fmt.Fprintf(&b, " field_length=%d,", c.FieldLength)
		}
		b.WriteString(" &end\n")
	}
	for _, a := range lay.Associates {
		b.WriteString("&associate")
		field(&b, "name", a.Name)
		field(&b, "filename", a.Filename)
		field(&b, "path", a.Path)
		field(&b, "description", a.Description)
		field(&b, "contents", a.Contents)
		if a.SDDS != 0 {
			fmt.Fprintf(&b, " sdds=%d,", a.SDDS)
		}
		b.WriteString(" &end\n")
	}

	d := &lay.Data
	b.WriteString("&data")
	field(&b, "mode", enumName(modeEnum, int32(d.Mode)))
	if d.Mode == ModeBinary {
		field(&b, "endian", enumName(endianEnum, int32(d.Endian)))
		if d.ColumnMajorOrder {
			b.WriteString(" column_major_order=1,")
		}
	}
	if d.LinesPerRow > 1 {
		fmt.Fprintf(&b, " lines_per_row=%d,", d.LinesPerRow)
	}
	if d.NoRowCounts {
		b.WriteString(" no_row_counts=1,")
	}
	if d.FixedRowCount {
		b.WriteString(" fixed_row_count=1,")
	}
	if d.AdditionalHeaderLines > 0 {
		fmt.Fprintf(&b, " additional_header_lines=%d,", d.AdditionalHeaderLines)
	}
	b.WriteString(" &end\n")

	if _, err := io.WriteString(w, b.String()); err != nil {
		return errors.Wrap(err, "write header")
	}
	return nil
}

// field appends " key=value," when the value is non-empty.
func field(b *strings.Builder, key, val string) {
	if val == "" {
		return
	}
	fmt.Fprintf(b, " %s=%s,", key, quoteValue(val))
}
