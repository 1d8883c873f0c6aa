package layout

import (
	"bytes"
	"encoding/binary"

	"sdds/utils/errs"

	metro "github.com/dgryski/go-metro"
	"github.com/pkg/errors"
)

// Version is the header version this package reads and writes.
const Version = 1

// Description is the optional free-text block at the top of a layout.
type Description struct {
	Text     string
	Contents string
}

// Parameter defines one scalar value stored once per page. A parameter
// with a FixedValue never appears on the wire; its value is baked into
// the header.
type Parameter struct {
	Name         string
	Symbol       string
	Units        string
	Description  string
	FormatString string
	Type         Type
	FixedValue   string
}

// Column defines one value per row. FieldLength fixes the width of string
// columns; 0 means variable.
type Column struct {
	Name         string
	Symbol       string
	Units        string
	Description  string
	FormatString string
	Type         Type
	FieldLength  int32
}

// Array defines a named multi-dimensional array, one instance per page.
// Dimensions is the declared rank; the per-page sizes travel with the data.
type Array struct {
	Name         string
	Symbol       string
	Units        string
	Description  string
	FormatString string
	GroupName    string
	Type         Type
	Dimensions   int32
}

// Associate records a related external file. Metadata only; nothing is
// enforced at I/O time.
type Associate struct {
	Name        string
	Filename    string
	Path        string
	Description string
	Contents    string
	SDDS        int32
}

// DataMode is the encoding policy for every page in the stream.
type DataMode struct {
	Mode                  Mode
	LinesPerRow           int32
	NoRowCounts           bool
	FixedRowCount         bool
	AdditionalHeaderLines int32
	ColumnMajorOrder      bool
	Endian                Endian
}

// ByteOrder maps the declared endianness onto the codec's byte order.
// Files that never declare one get big endian, the network convention.
func (dm *DataMode) ByteOrder() binary.ByteOrder {
	if dm.Endian == LittleEndian {
		return binary.LittleEndian
	}
	return binary.BigEndian
}

// Layout is the full parsed schema of a dataset. Definition order is
// significant: it fixes the on-disk order of binary pages.
type Layout struct {
	Description *Description
	Parameters  []*Parameter
	Columns     []*Column
	Arrays      []*Array
	Associates  []*Associate
	Data        DataMode

	paramIndex map[string]int
	colIndex   map[string]int
	arrayIndex map[string]int
}

// New returns an empty layout with an ASCII data mode.
func New() *Layout {
	return &Layout{Data: DataMode{Mode: ModeASCII, LinesPerRow: 1}}
}

// AddParameter appends a parameter definition, rejecting duplicates.
func (lay *Layout) AddParameter(p *Parameter) error {
	if _, ok := lay.ParameterIndex(p.Name); ok {
		return errors.Wrapf(errs.ErrDuplicateName, "parameter %q", p.Name)
	}
	lay.Parameters = append(lay.Parameters, p)
	lay.paramIndex = nil
	return nil
}

// AddColumn appends a column definition, rejecting duplicates.
func (lay *Layout) AddColumn(c *Column) error {
	if _, ok := lay.ColumnIndex(c.Name); ok {
		return errors.Wrapf(errs.ErrDuplicateName, "column %q", c.Name)
	}
	lay.Columns = append(lay.Columns, c)
	lay.colIndex = nil
	return nil
}

// AddArray appends an array definition, rejecting duplicates.
func (lay *Layout) AddArray(a *Array) error {
	if _, ok := lay.ArrayIndex(a.Name); ok {
		return errors.Wrapf(errs.ErrDuplicateName, "array %q", a.Name)
	}
	lay.Arrays = append(lay.Arrays, a)
	lay.arrayIndex = nil
	return nil
}

// ParameterIndex resolves a parameter name to its declaration position.
func (lay *Layout) ParameterIndex(name string) (int, bool) {
	if lay.paramIndex == nil {
		lay.paramIndex = make(map[string]int, len(lay.Parameters))
		for i, p := range lay.Parameters {
			lay.paramIndex[p.Name] = i
		}
	}
	i, ok := lay.paramIndex[name]
	return i, ok
}

// ColumnIndex resolves a column name to its declaration position.
func (lay *Layout) ColumnIndex(name string) (int, bool) {
	if lay.colIndex == nil {
		lay.colIndex = make(map[string]int, len(lay.Columns))
		for i, c := range lay.Columns {
			lay.colIndex[c.Name] = i
		}
	}
	i, ok := lay.colIndex[name]
	return i, ok
}

// ArrayIndex resolves an array name to its declaration position.
func (lay *Layout) ArrayIndex(name string) (int, bool) {
	if lay.arrayIndex == nil {
		lay.arrayIndex = make(map[string]int, len(lay.Arrays))
		for i, a := range lay.Arrays {
			lay.arrayIndex[a.Name] = i
		}
	}
	i, ok := lay.arrayIndex[name]
	return i, ok
}

// Check validates the layout before it is written or used to decode pages.
func (lay *Layout) Check() error {
	seen := make(map[string]struct{})
	for _, p := range lay.Parameters {
		if p.Name == "" {
			return errors.Wrap(errs.ErrBadValue, "parameter with empty name")
		}
		if !p.Type.Valid() {
			return errors.Wrapf(errs.ErrUnknownType, "parameter %q", p.Name)
		}
		if _, ok := seen[p.Name]; ok {
			return errors.Wrapf(errs.ErrDuplicateName, "parameter %q", p.Name)
		}
		seen[p.Name] = struct{}{}
	}
	seen = make(map[string]struct{})
	for _, c := range lay.Columns {
		if c.Name == "" {
			return errors.Wrap(errs.ErrBadValue, "column with empty name")
		}
		if !c.Type.Valid() {
			return errors.Wrapf(errs.ErrUnknownType, "column %q", c.Name)
		}
		if c.FieldLength < 0 {
			return errors.Wrapf(errs.ErrBadValue, "column %q field_length", c.Name)
		}
		if _, ok := seen[c.Name]; ok {
			return errors.Wrapf(errs.ErrDuplicateName, "column %q", c.Name)
		}
		seen[c.Name] = struct{}{}
	}
	seen = make(map[string]struct{})
	for _, a := range lay.Arrays {
		if a.Name == "" {
			return errors.Wrap(errs.ErrBadValue, "array with empty name")
		}
		if !a.Type.Valid() {
			return errors.Wrapf(errs.ErrUnknownType, "array %q", a.Name)
		}
		if a.Dimensions < 1 {
			return errors.Wrapf(errs.ErrBadValue, "array %q dimensions=%d", a.Name, a.Dimensions)
		}
		if _, ok := seen[a.Name]; ok {
			return errors.Wrapf(errs.ErrDuplicateName, "array %q", a.Name)
		}
		seen[a.Name] = struct{}{}
	}
	switch lay.Data.Mode {
	case ModeBinary, ModeASCII:
	default:
		return errors.Wrap(errs.ErrBadValue, "data mode not set")
	}
	return nil
}

// Fingerprint hashes the canonical header text. Two layouts with the same
// definitions in the same order hash equal, which is how re-opened files
// are matched against each other.
func (lay *Layout) Fingerprint() uint64 {
	var buf bytes.Buffer
	if err := Write(&buf, lay); err != nil {
		return 0
	}
	return metro.Hash64(buf.Bytes(), 0)
}
