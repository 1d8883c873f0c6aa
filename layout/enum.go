package layout

import (
	"github.com/pkg/errors"
)

// EnumPair associates a symbolic header keyword with its internal code.
// Tables are terminated by the {"", 0} sentinel; the sentinel never
// matches an input token, including the empty string.
type EnumPair struct {
	Name  string
	Value int32
}

var errEnumNotFound = errors.New("sdds: no such enum name")

// LookupEnum scans table for an exact match on name. Lookup of any string
// not in the table fails rather than matching the sentinel.
func LookupEnum(table []EnumPair, name string) (int32, error) {
	for i := range table {
		if table[i].Name == "" {
			break
		}
		if table[i].Name == name {
			return table[i].Value, nil
		}
	}
	return 0, errors.Wrapf(errEnumNotFound, "%q", name)
}

// enumName returns the keyword for a code, "" when absent.
func enumName(table []EnumPair, value int32) string {
	for i := range table {
		if table[i].Name == "" {
			break
		}
		if table[i].Value == value {
			return table[i].Name
		}
	}
	return ""
}

// Mode selects how pages are encoded on the wire.
type Mode int32

const (
	ModeBinary Mode = 1
	ModeASCII  Mode = 2
)

// Endian selects the byte order of binary pages.
type Endian int32

const (
	BigEndian    Endian = 1
	LittleEndian Endian = 2
)

var typeEnum = []EnumPair{
	{"longdouble", int32(LongDouble)},
	{"double", int32(Double)},
	{"float", int32(Float)},
	{"long64", int32(Long64)},
	{"ulong64", int32(ULong64)},
	{"long", int32(Long)},
	{"ulong", int32(ULong)},
	{"short", int32(Short)},
	{"ushort", int32(UShort)},
	{"string", int32(String)},
	{"character", int32(Character)},
	{"", 0},
}

var modeEnum = []EnumPair{
	{"binary", int32(ModeBinary)},
	{"ascii", int32(ModeASCII)},
	{"", 0},
}

var endianEnum = []EnumPair{
	{"big", int32(BigEndian)},
	{"little", int32(LittleEndian)},
	{"", 0},
}
