package codec

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"testing"

	"sdds/file"
	"sdds/layout"
	"sdds/utils/errs"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fullLayout(mode layout.Mode, endian layout.Endian, columnMajor bool) *layout.Layout {
	lay := layout.New()
	lay.AddParameter(&layout.Parameter{Name: "StartTime", Type: layout.Double})
	lay.AddParameter(&layout.Parameter{Name: "Step", Type: layout.Long, FixedValue: "5"})
	lay.AddParameter(&layout.Parameter{Name: "Comment", Type: layout.String})
	lay.AddArray(&layout.Array{Name: "grid", Type: layout.Float, Dimensions: 2})
	lay.AddColumn(&layout.Column{Name: "x", Type: layout.Double})
	lay.AddColumn(&layout.Column{Name: "n", Type: layout.Short})
	lay.AddColumn(&layout.Column{Name: "label", Type: layout.String})
	lay.AddColumn(&layout.Column{Name: "flag", Type: layout.Character})
	lay.Data = layout.DataMode{
		Mode:             mode,
		Endian:           endian,
		LinesPerRow:      1,
		ColumnMajorOrder: columnMajor,
	}
	return lay
}

func fullPage(t *testing.T, lay *layout.Layout) *Page {
	t.Helper()
	p, err := NewPage(lay, 3)
	require.NoError(t, err)
	p.Params[0] = 100.5
	p.Params[2] = "first page, quoted \"text\""
	p.Arrays[0].Dims = []int32{3, 4}
	grid := make([]float32, 12)
	for i := range grid {
		grid[i] = float32(i)
	}
	p.Arrays[0].Data = grid
	p.Columns[0] = []float64{1.0, 2.0, 3.0}
	p.Columns[1] = []int16{-7, 0, 7}
	p.Columns[2] = []string{"plain", "two words", ""}
	p.Columns[3] = []byte{'a', ' ', 'z'}
	return p
}

func writeRead(t *testing.T, lay *layout.Layout, pages []*Page) []*Page {
	t.Helper()
	path := filepath.Join(t.TempDir(), "t.sdds")
	s, err := file.Open(path, "w")
	require.NoError(t, err)
	for _, p := range pages {
		require.NoError(t, WritePage(s, lay, p))
	}
	require.NoError(t, s.Close())

	s, err = file.Open(path, "r")
	require.NoError(t, err)
	defer s.Close()
	var got []*Page
	for {
		p, err := ReadPage(s, lay)
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		got = append(got, p)
	}
	return got
}

func assertPagesEqual(t *testing.T, want, got *Page) {
	t.Helper()
	assert.Equal(t, want.Rows, got.Rows)
	assert.Equal(t, want.Params, got.Params)
	require.Equal(t, len(want.Arrays), len(got.Arrays))
	for i := range want.Arrays {
		assert.Equal(t, want.Arrays[i].Dims, got.Arrays[i].Dims)
		assert.Equal(t, want.Arrays[i].Data, got.Arrays[i].Data)
	}
	assert.Equal(t, want.Columns, got.Columns)
}

func TestRoundTripAllModes(t *testing.T) {
	cases := []struct {
		name        string
		mode        layout.Mode
		endian      layout.Endian
		columnMajor bool
	}{
		{"binary little row-major", layout.ModeBinary, layout.LittleEndian, false},
		{"binary big row-major", layout.ModeBinary, layout.BigEndian, false},
		{"binary little column-major", layout.ModeBinary, layout.LittleEndian, true},
		{"binary big column-major", layout.ModeBinary, layout.BigEndian, true},
		{"ascii", layout.ModeASCII, 0, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			lay := fullLayout(tc.mode, tc.endian, tc.columnMajor)
			want := fullPage(t, lay)
			got := writeRead(t, lay, []*Page{want})
			require.Len(t, got, 1)
			assertPagesEqual(t, want, got[0])
		})
	}
}

func TestMultiPage(t *testing.T) {
	for _, mode := range []layout.Mode{layout.ModeBinary, layout.ModeASCII} {
		lay := fullLayout(mode, layout.LittleEndian, false)
		p1 := fullPage(t, lay)
		p2 := fullPage(t, lay)
		p2.Params[0] = 200.25
		p2.Columns[0] = []float64{-1.5, 0, 1.5}
		got := writeRead(t, lay, []*Page{p1, p2})
		require.Len(t, got, 2)
		assertPagesEqual(t, p1, got[0])
		assertPagesEqual(t, p2, got[1])
	}
}

// Scenario: one double column, one double parameter, binary little-endian.
func TestBinaryScenario(t *testing.T) {
	lay := layout.New()
	lay.AddParameter(&layout.Parameter{Name: "StartTime", Type: layout.Double})
	lay.AddColumn(&layout.Column{Name: "x", Type: layout.Double})
	lay.Data = layout.DataMode{Mode: layout.ModeBinary, Endian: layout.LittleEndian, LinesPerRow: 1}

	p, err := NewPage(lay, 3)
	require.NoError(t, err)
	p.Params[0] = 100.5
	p.Columns[0] = []float64{1.0, 2.0, 3.0}

	got := writeRead(t, lay, []*Page{p})
	require.Len(t, got, 1)
	assert.Equal(t, 100.5, got[0].Params[0])
	assert.Equal(t, []float64{1.0, 2.0, 3.0}, got[0].Columns[0])
}

func TestASCIINoRowCounts(t *testing.T) {
	lay := layout.New()
	lay.AddColumn(&layout.Column{Name: "x", Type: layout.Double})
	lay.Data = layout.DataMode{Mode: layout.ModeASCII, LinesPerRow: 1, NoRowCounts: true}

	p, err := NewPage(lay, 3)
	require.NoError(t, err)
	p.Columns[0] = []float64{1.0, 2.0, 3.0}

	path := filepath.Join(t.TempDir(), "n.sdds")
	s, err := file.Open(path, "w")
	require.NoError(t, err)
	require.NoError(t, WritePage(s, lay, p))
	require.NoError(t, s.Close())

	// No leading count token on disk: the first line is already a value.
	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "1\n2\n3\n\n", string(raw))

	s, err = file.Open(path, "r")
	require.NoError(t, err)
	defer s.Close()
	got, err := ReadPage(s, lay)
	require.NoError(t, err)
	assert.Equal(t, 3, got.Rows)
	assert.Equal(t, []float64{1.0, 2.0, 3.0}, got.Columns[0])
	_, err = ReadPage(s, lay)
	assert.Equal(t, io.EOF, err)
}

func TestBinaryNoRowCounts(t *testing.T) {
	lay := layout.New()
	lay.AddColumn(&layout.Column{Name: "x", Type: layout.Long})
	lay.Data = layout.DataMode{
		Mode: layout.ModeBinary, Endian: layout.BigEndian,
		LinesPerRow: 1, NoRowCounts: true,
	}
	p, err := NewPage(lay, 4)
	require.NoError(t, err)
	p.Columns[0] = []int32{1, 2, 3, 4}

	got := writeRead(t, lay, []*Page{p})
	require.Len(t, got, 1)
	assert.Equal(t, 4, got[0].Rows)
	assert.Equal(t, []int32{1, 2, 3, 4}, got[0].Columns[0])
}

// Scenario: 3x4 float array round trip recovers shape and all values.
func TestArrayScenario(t *testing.T) {
	for _, mode := range []layout.Mode{layout.ModeBinary, layout.ModeASCII} {
		lay := layout.New()
		lay.AddArray(&layout.Array{Name: "grid", Type: layout.Float, Dimensions: 2})
		lay.Data = layout.DataMode{Mode: mode, Endian: layout.LittleEndian, LinesPerRow: 1}

		p, err := NewPage(lay, 0)
		require.NoError(t, err)
		grid := make([]float32, 12)
		for i := range grid {
			grid[i] = float32(i)
		}
		p.Arrays[0].Dims = []int32{3, 4}
		p.Arrays[0].Data = grid

		got := writeRead(t, lay, []*Page{p})
		require.Len(t, got, 1)
		assert.Equal(t, []int32{3, 4}, got[0].Arrays[0].Dims)
		assert.Equal(t, grid, got[0].Arrays[0].Data)
	}
}

func TestAllScalarTypes(t *testing.T) {
	lay := layout.New()
	for tag := layout.LongDouble; tag <= layout.Character; tag++ {
		lay.AddColumn(&layout.Column{Name: fmt.Sprintf("c_%s", tag.Name()), Type: tag})
	}
	for _, mode := range []layout.Mode{layout.ModeBinary, layout.ModeASCII} {
		lay.Data = layout.DataMode{Mode: mode, Endian: layout.BigEndian, LinesPerRow: 1}
		p, err := NewPage(lay, 2)
		require.NoError(t, err)
		p.Columns[0] = []float64{1.25, -2.5}
		p.Columns[1] = []float64{3.75, -0.125}
		p.Columns[2] = []float32{0.5, -1.5}
		p.Columns[3] = []int64{-1 << 40, 1 << 40}
		p.Columns[4] = []uint64{0, 1 << 50}
		p.Columns[5] = []int32{-123456, 123456}
		p.Columns[6] = []uint32{0, 4000000000}
		p.Columns[7] = []int16{-32768, 32767}
		p.Columns[8] = []uint16{0, 65535}
		p.Columns[9] = []string{"a b", "c"}
		p.Columns[10] = []byte{'x', '"'}

		got := writeRead(t, lay, []*Page{p})
		require.Len(t, got, 1)
		assert.Equal(t, p.Columns, got[0].Columns, "mode %v", mode)
	}
}

// String values carrying line breaks survive the ASCII form; the writer
// escapes them so a value never spans physical lines.
func TestASCIIStringWithNewline(t *testing.T) {
	lay := layout.New()
	lay.AddParameter(&layout.Parameter{Name: "note", Type: layout.String})
	lay.AddColumn(&layout.Column{Name: "label", Type: layout.String})
	lay.Data = layout.DataMode{Mode: layout.ModeASCII, LinesPerRow: 1}

	p, err := NewPage(lay, 2)
	require.NoError(t, err)
	p.Params[0] = "head\r\nbody"
	p.Columns[0] = []string{"two\nlines", "plain"}

	got := writeRead(t, lay, []*Page{p})
	require.Len(t, got, 1)
	assertPagesEqual(t, p, got[0])
}

func TestFixedValueParameterNotOnWire(t *testing.T) {
	lay := layout.New()
	lay.AddParameter(&layout.Parameter{Name: "Step", Type: layout.Long, FixedValue: "5"})
	lay.Data = layout.DataMode{Mode: layout.ModeASCII, LinesPerRow: 1}

	p, err := NewPage(lay, 0)
	require.NoError(t, err)
	assert.Equal(t, int32(5), p.Params[0])

	path := filepath.Join(t.TempDir(), "f.sdds")
	s, err := file.Open(path, "w")
	require.NoError(t, err)
	require.NoError(t, WritePage(s, lay, p))
	require.NoError(t, s.Close())

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "0\n\n", string(raw), "only the row count, no parameter value")
}

func TestTruncatedBinaryPage(t *testing.T) {
	lay := layout.New()
	lay.AddColumn(&layout.Column{Name: "x", Type: layout.Double})
	lay.Data = layout.DataMode{Mode: layout.ModeBinary, Endian: layout.LittleEndian, LinesPerRow: 1}

	p, err := NewPage(lay, 3)
	require.NoError(t, err)
	p.Columns[0] = []float64{1, 2, 3}

	path := filepath.Join(t.TempDir(), "trunc.sdds")
	s, err := file.Open(path, "w")
	require.NoError(t, err)
	require.NoError(t, WritePage(s, lay, p))
	require.NoError(t, s.Close())

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, raw[:len(raw)-5], 0o644))

	s, err = file.Open(path, "r")
	require.NoError(t, err)
	defer s.Close()
	_, err = ReadPage(s, lay)
	assert.True(t, errors.Is(err, errs.ErrTruncatedPage))
}

// A dimension word with the high bit set must come back as a data-shape
// error, never reach an allocation.
func TestCorruptBinaryDimsRejected(t *testing.T) {
	lay := layout.New()
	lay.AddArray(&layout.Array{Name: "grid", Type: layout.Float, Dimensions: 1})
	lay.Data = layout.DataMode{Mode: layout.ModeBinary, Endian: layout.LittleEndian, LinesPerRow: 1}

	path := filepath.Join(t.TempDir(), "dims.sdds")
	raw := []byte{0, 0, 0, 0, 0, 0, 0, 0x80} // row count 0, dim 0x80000000
	require.NoError(t, os.WriteFile(path, raw, 0o644))

	s, err := file.Open(path, "r")
	require.NoError(t, err)
	defer s.Close()
	_, err = ReadPage(s, lay)
	assert.True(t, errors.Is(err, errs.ErrBadDimensions))
}

func TestCorruptBinaryRowCountRejected(t *testing.T) {
	lay := layout.New()
	lay.AddColumn(&layout.Column{Name: "x", Type: layout.Double})
	lay.Data = layout.DataMode{Mode: layout.ModeBinary, Endian: layout.LittleEndian, LinesPerRow: 1}

	path := filepath.Join(t.TempDir(), "count.sdds")
	require.NoError(t, os.WriteFile(path, []byte{0xff, 0xff, 0xff, 0xff}, 0o644))

	s, err := file.Open(path, "r")
	require.NoError(t, err)
	defer s.Close()
	_, err = ReadPage(s, lay)
	assert.True(t, errors.Is(err, errs.ErrTruncatedPage))
}

// Individually legal dimension sizes whose product overflows are
// rejected before the payload is read.
func TestOversizeASCIIDimsRejected(t *testing.T) {
	lay := layout.New()
	lay.AddArray(&layout.Array{Name: "grid", Type: layout.Float, Dimensions: 2})
	lay.Data = layout.DataMode{Mode: layout.ModeASCII, LinesPerRow: 1}

	path := filepath.Join(t.TempDir(), "big.sdds")
	require.NoError(t, os.WriteFile(path, []byte("65536 65536\n0\n"), 0o644))

	s, err := file.Open(path, "r")
	require.NoError(t, err)
	defer s.Close()
	_, err = ReadPage(s, lay)
	assert.True(t, errors.Is(err, errs.ErrBadDimensions))
}

func TestDimensionMismatchRejected(t *testing.T) {
	lay := layout.New()
	lay.AddArray(&layout.Array{Name: "grid", Type: layout.Float, Dimensions: 2})
	lay.Data = layout.DataMode{Mode: layout.ModeBinary, Endian: layout.LittleEndian, LinesPerRow: 1}

	p, err := NewPage(lay, 0)
	require.NoError(t, err)
	p.Arrays[0].Dims = []int32{3, 4}
	p.Arrays[0].Data = make([]float32, 11) // one short

	path := filepath.Join(t.TempDir(), "bad.sdds")
	s, err := file.Open(path, "w")
	require.NoError(t, err)
	defer s.Close()
	err = WritePage(s, lay, p)
	assert.True(t, errors.Is(err, errs.ErrBadDimensions))
}

func TestColumnLengthMismatchRejected(t *testing.T) {
	lay := layout.New()
	lay.AddColumn(&layout.Column{Name: "x", Type: layout.Double})
	lay.Data = layout.DataMode{Mode: layout.ModeASCII, LinesPerRow: 1}

	p, err := NewPage(lay, 3)
	require.NoError(t, err)
	p.Columns[0] = []float64{1, 2}

	path := filepath.Join(t.TempDir(), "bad.sdds")
	s, err := file.Open(path, "w")
	require.NoError(t, err)
	defer s.Close()
	err = WritePage(s, lay, p)
	assert.True(t, errors.Is(err, errs.ErrTypeMismatch))
}

func TestWrongSliceTypeRejected(t *testing.T) {
	lay := layout.New()
	lay.AddColumn(&layout.Column{Name: "x", Type: layout.Double})
	lay.Data = layout.DataMode{Mode: layout.ModeASCII, LinesPerRow: 1}

	p, err := NewPage(lay, 1)
	require.NoError(t, err)
	p.Columns[0] = []int32{1}

	path := filepath.Join(t.TempDir(), "bad.sdds")
	s, err := file.Open(path, "w")
	require.NoError(t, err)
	defer s.Close()
	err = WritePage(s, lay, p)
	assert.True(t, errors.Is(err, errs.ErrTypeMismatch))
}
