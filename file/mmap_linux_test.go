package file

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMmapStream(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "m.sdds")
	require.NoError(t, os.WriteFile(path, []byte("line one\nline two\nrest"), 0o644))

	s, err := OpenMmap(path)
	require.NoError(t, err)
	defer s.Close()

	line, err := s.ReadLine()
	require.NoError(t, err)
	assert.Equal(t, "line one", line)

	pos, err := s.Tell()
	require.NoError(t, err)
	assert.Equal(t, int64(9), pos)

	buf := make([]byte, 8)
	_, err = io.ReadFull(s, buf)
	require.NoError(t, err)
	assert.Equal(t, "line two", string(buf))

	_, err = s.Seek(0, io.SeekStart)
	require.NoError(t, err)
	line, err = s.ReadLine()
	require.NoError(t, err)
	assert.Equal(t, "line one", line)

	_, err = s.Write([]byte("no"))
	assert.Error(t, err)

	_, err = s.Seek(0, io.SeekEnd)
	require.NoError(t, err)
	assert.True(t, s.Eof())
}

func TestMmapRejectsCompressed(t *testing.T) {
	_, err := OpenMmap("x.sdds.lzma")
	assert.Error(t, err)
}
