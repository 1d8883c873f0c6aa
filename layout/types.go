package layout

import (
	"sdds/utils/errs"

	"github.com/pkg/errors"
)

// Type is the tag of one of the registered scalar types. The zero value is
// not a valid type.
type Type int32

const (
	LongDouble Type = iota + 1
	Double
	Float
	Long64
	ULong64
	Long
	ULong
	Short
	UShort
	String
	Character
)

// typeNames is ordered by tag. Index 0 is the invalid type.
var typeNames = [...]string{
	"",
	"longdouble",
	"double",
	"float",
	"long64",
	"ulong64",
	"long",
	"ulong",
	"short",
	"ushort",
	"string",
	"character",
}

// typeSizes holds the on-disk byte width of each fixed-width type. Strings
// are variable width (4-byte count plus payload) and carry 0 here.
//
// Go has no extended-precision float, so longdouble is stored and encoded
// as an 8-byte IEEE754 double. Layouts keep the longdouble name for
// compatibility with files written by wider hosts.
var typeSizes = [...]int{0, 8, 8, 4, 8, 8, 4, 4, 2, 2, 0, 1}

func (t Type) Valid() bool {
	return t >= LongDouble && t <= Character
}

// Name returns the canonical header name of the type, or "" for an
// invalid tag.
func (t Type) Name() string {
	if !t.Valid() {
		return ""
	}
	return typeNames[t]
}

// Size returns the fixed on-disk width in bytes, 0 for string.
func (t Type) Size() int {
	if !t.Valid() {
		return 0
	}
	return typeSizes[t]
}

// Integer reports whether the type is one of the fixed-width integer types.
func (t Type) Integer() bool {
	switch t {
	case Long64, ULong64, Long, ULong, Short, UShort:
		return true
	}
	return false
}

// Float reports whether the type is a floating type.
func (t Type) Floating() bool {
	switch t {
	case LongDouble, Double, Float:
		return true
	}
	return false
}

// TypeByName resolves a header type name to its tag. Matching is exact and
// case sensitive.
func TypeByName(name string) (Type, error) {
	v, err := LookupEnum(typeEnum, name)
	if err != nil {
		return 0, errors.Wrapf(errs.ErrUnknownType, "type %q", name)
	}
	return Type(v), nil
}
