package layout

import (
	"bytes"
	"io"
	"strings"
	"testing"

	"sdds/utils/errs"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stringLines struct {
	lines []string
	pos   int
}

func (s *stringLines) ReadLine() (string, error) {
	if s.pos >= len(s.lines) {
		return "", io.EOF
	}
	line := s.lines[s.pos]
	s.pos++
	return line, nil
}

func linesOf(text string) *stringLines {
	return &stringLines{lines: strings.Split(text, "\n")}
}

func sampleLayout() *Layout {
	lay := New()
	lay.Description = &Description{Text: "beam history", Contents: "bpm readback"}
	lay.AddParameter(&Parameter{Name: "StartTime", Type: Double, Units: "s"})
	lay.AddParameter(&Parameter{Name: "Step", Type: Long, FixedValue: "5"})
	lay.AddArray(&Array{Name: "grid", Type: Float, Dimensions: 2})
	lay.AddColumn(&Column{Name: "x", Type: Double, Units: "mm", Symbol: "x$bpos$n"})
	lay.AddColumn(&Column{Name: "label", Type: String})
	lay.Data = DataMode{Mode: ModeBinary, Endian: LittleEndian, LinesPerRow: 1}
	return lay
}

func TestHeaderRoundTrip(t *testing.T) {
	lay := sampleLayout()

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, lay))

	got, err := Parse(linesOf(buf.String()))
	require.NoError(t, err)

	assert.Equal(t, lay.Description, got.Description)
	assert.Equal(t, lay.Parameters, got.Parameters)
	assert.Equal(t, lay.Columns, got.Columns)
	assert.Equal(t, lay.Arrays, got.Arrays)
	assert.Equal(t, lay.Data, got.Data)
	assert.Equal(t, lay.Fingerprint(), got.Fingerprint())
}

// A value holding a line break round-trips through the escaped quoted
// form instead of splitting the header line.
func TestHeaderValueWithNewline(t *testing.T) {
	lay := sampleLayout()
	lay.Description.Text = "first line\nsecond line"
	lay.Columns[1].Description = "cr\rhere"

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, lay))

	got, err := Parse(linesOf(buf.String()))
	require.NoError(t, err)
	assert.Equal(t, "first line\nsecond line", got.Description.Text)
	assert.Equal(t, "cr\rhere", got.Columns[1].Description)
}

func TestParseQuotedValues(t *testing.T) {
	header := `SDDS1
&description text="two words, with commas", &end
&column name=x, type=double, description="says \"hi\"", &end
&data mode=ascii, &end
`
	lay, err := Parse(linesOf(header))
	require.NoError(t, err)
	assert.Equal(t, "two words, with commas", lay.Description.Text)
	assert.Equal(t, `says "hi"`, lay.Columns[0].Description)
}

func TestParseMultiLineBlockAndComments(t *testing.T) {
	header := `SDDS1
! comment line
&parameter name=StartTime,
           type=double, ! trailing comment
&end
&data mode=ascii, &end
`
	lay, err := Parse(linesOf(header))
	require.NoError(t, err)
	require.Len(t, lay.Parameters, 1)
	assert.Equal(t, Double, lay.Parameters[0].Type)
}

func TestParseUnknownField(t *testing.T) {
	header := `SDDS1
&column name=x, type=double, bogusfield=1, &end
&data mode=ascii, &end
`
	_, err := Parse(linesOf(header))
	require.Error(t, err)
	assert.True(t, errors.Is(err, errs.ErrUnknownField))
	assert.Contains(t, err.Error(), "bogusfield")
}

func TestParseUnknownTag(t *testing.T) {
	header := `SDDS1
&bogus name=x, &end
&data mode=ascii, &end
`
	_, err := Parse(linesOf(header))
	assert.True(t, errors.Is(err, errs.ErrUnknownTag))
}

func TestParseDuplicateColumn(t *testing.T) {
	header := `SDDS1
&column name=x, type=double, &end
&column name=x, type=long, &end
&data mode=ascii, &end
`
	_, err := Parse(linesOf(header))
	require.Error(t, err)
	assert.True(t, errors.Is(err, errs.ErrDuplicateName))
}

func TestParseUnknownType(t *testing.T) {
	header := `SDDS1
&column name=x, type=quadruple, &end
&data mode=ascii, &end
`
	_, err := Parse(linesOf(header))
	assert.True(t, errors.Is(err, errs.ErrUnknownType))
}

func TestParseMissingData(t *testing.T) {
	header := `SDDS1
&column name=x, type=double, &end
`
	_, err := Parse(linesOf(header))
	assert.True(t, errors.Is(err, errs.ErrBadHeader))
}

func TestParseBadVersionLine(t *testing.T) {
	_, err := Parse(linesOf("XDDS1\n&data mode=ascii, &end\n"))
	assert.True(t, errors.Is(err, errs.ErrBadHeader))
}

func TestInclude(t *testing.T) {
	includes := map[string]string{
		"cols.sdh": "&column name=x, type=double, &end\n&include filename=more.sdh, &end\n",
		"more.sdh": "&column name=y, type=long, &end\n",
	}
	p := NewParser()
	p.OpenInclude = func(name string) (LineReader, io.Closer, error) {
		text, ok := includes[name]
		if !ok {
			return nil, nil, errors.Errorf("no include %q", name)
		}
		return linesOf(text), io.NopCloser(nil), nil
	}
	lay, err := p.Parse(linesOf("SDDS1\n&include filename=cols.sdh, &end\n&data mode=ascii, &end\n"))
	require.NoError(t, err)
	require.Len(t, lay.Columns, 2)
	assert.Equal(t, "x", lay.Columns[0].Name)
	assert.Equal(t, "y", lay.Columns[1].Name)
}

func TestIncludeCycle(t *testing.T) {
	includes := map[string]string{
		"a.sdh": "&include filename=b.sdh, &end\n",
		"b.sdh": "&include filename=a.sdh, &end\n",
	}
	p := NewParser()
	p.OpenInclude = func(name string) (LineReader, io.Closer, error) {
		return linesOf(includes[name]), io.NopCloser(nil), nil
	}
	_, err := p.Parse(linesOf("SDDS1\n&include filename=a.sdh, &end\n&data mode=ascii, &end\n"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, errs.ErrIncludeCycle))
}

// The same fragment included from two sibling files is fine; only
// re-entry on the active include path is a cycle.
func TestIncludeDiamond(t *testing.T) {
	includes := map[string]string{
		"left.sdh":   "&column name=x, type=double, &end\n&include filename=shared.sdh, &end\n",
		"right.sdh":  "&column name=y, type=long, &end\n&include filename=shared.sdh, &end\n",
		"shared.sdh": "&associate name=notes, filename=notes.txt, &end\n",
	}
	p := NewParser()
	p.OpenInclude = func(name string) (LineReader, io.Closer, error) {
		text, ok := includes[name]
		if !ok {
			return nil, nil, errors.Errorf("no include %q", name)
		}
		return linesOf(text), io.NopCloser(nil), nil
	}
	lay, err := p.Parse(linesOf("SDDS1\n&include filename=left.sdh, &end\n&include filename=right.sdh, &end\n&data mode=ascii, &end\n"))
	require.NoError(t, err)
	require.Len(t, lay.Columns, 2)
	assert.Len(t, lay.Associates, 2)
}

func TestEnumLookupTotality(t *testing.T) {
	tables := [][]EnumPair{typeEnum, modeEnum, endianEnum}
	for _, table := range tables {
		for _, pair := range table {
			if pair.Name == "" {
				break
			}
			v, err := LookupEnum(table, pair.Name)
			require.NoError(t, err)
			assert.Equal(t, pair.Value, v)
		}
		for _, miss := range []string{"", "NULL", "bogus"} {
			_, err := LookupEnum(table, miss)
			assert.Error(t, err, "lookup of %q", miss)
		}
	}
}

func TestTypeRegistry(t *testing.T) {
	for tag := LongDouble; tag <= Character; tag++ {
		name := tag.Name()
		require.NotEmpty(t, name)
		back, err := TypeByName(name)
		require.NoError(t, err)
		assert.Equal(t, tag, back)
	}
	assert.Equal(t, 8, Double.Size())
	assert.Equal(t, 4, Float.Size())
	assert.Equal(t, 2, Short.Size())
	assert.Equal(t, 1, Character.Size())
	assert.Equal(t, 0, String.Size())

	_, err := TypeByName("Double") // case sensitive
	assert.True(t, errors.Is(err, errs.ErrUnknownType))
}
