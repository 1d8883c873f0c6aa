package sdds

import (
	"io"
	"path/filepath"
	"testing"

	"sdds/layout"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenReadMmap(t *testing.T) {
	path := filepath.Join(t.TempDir(), "m.sdds")
	writeScenario(t, path, scenarioLayout(layout.ModeBinary))

	ds, err := OpenReadMmap(path)
	require.NoError(t, err)
	defer ds.Close()

	// Mapped streams keep seek support, so the page start can be pinned
	// and revisited.
	pos, err := ds.s.Tell()
	require.NoError(t, err)

	require.NoError(t, ds.ReadPage())
	xs, err := ds.ColumnDouble("x")
	require.NoError(t, err)
	assert.Equal(t, []float64{1.0, 2.0, 3.0}, xs)

	end, err := ds.s.Seek(0, io.SeekCurrent)
	require.NoError(t, err)
	assert.Greater(t, end, pos)
}

func TestOpenReadMmapRejectsCompressed(t *testing.T) {
	_, err := OpenReadMmap("x.sdds.lzma")
	assert.Error(t, err)
}
