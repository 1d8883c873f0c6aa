package file

import (
	"io"
	"path/filepath"
	"testing"

	"sdds/utils/errs"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeLines(t *testing.T, path string, lines []string) {
	t.Helper()
	s, err := Open(path, "w")
	require.NoError(t, err)
	for _, line := range lines {
		_, err = s.WriteString(line + "\n")
		require.NoError(t, err)
	}
	require.NoError(t, s.Close())
}

func readAll(t *testing.T, path string) []string {
	t.Helper()
	s, err := Open(path, "r")
	require.NoError(t, err)
	defer s.Close()
	var got []string
	for {
		line, err := s.ReadLine()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		got = append(got, line)
	}
	assert.True(t, s.Eof())
	return got
}

func TestKind(t *testing.T) {
	assert.Equal(t, CompNone, Kind("run.sdds"))
	assert.Equal(t, CompLZMA, Kind("run.sdds.lzma"))
	assert.Equal(t, CompXZ, Kind("run.sdds.xz"))
	assert.Equal(t, CompGzip, Kind("run.sdds.gz"))
}

func TestRoundTripAllTransports(t *testing.T) {
	lines := []string{"SDDS1", "&column name=x, type=double, &end", "&data mode=ascii, &end", "1.5"}
	dir := t.TempDir()
	for _, name := range []string{"t.sdds", "t.sdds.lzma", "t.sdds.xz", "t.sdds.gz"} {
		path := filepath.Join(dir, name)
		writeLines(t, path, lines)
		assert.Equal(t, lines, readAll(t, path), name)
	}
}

func TestByteIO(t *testing.T) {
	dir := t.TempDir()
	payload := make([]byte, 100*1024)
	for i := range payload {
		payload[i] = byte(i * 31)
	}
	for _, name := range []string{"b.bin", "b.bin.lzma", "b.bin.gz"} {
		path := filepath.Join(dir, name)
		s, err := Open(path, "w")
		require.NoError(t, err)
		_, err = s.Write(payload)
		require.NoError(t, err)
		require.NoError(t, s.Close())

		s, err = Open(path, "r")
		require.NoError(t, err)
		got := make([]byte, len(payload))
		_, err = io.ReadFull(s, got)
		require.NoError(t, err)
		assert.Equal(t, payload, got, name)
		assert.True(t, s.Eof(), name)
		require.NoError(t, s.Close())
	}
}

func TestSeekGatedToPlain(t *testing.T) {
	dir := t.TempDir()
	plain := filepath.Join(dir, "p.sdds")
	comp := filepath.Join(dir, "p.sdds.lzma")
	writeLines(t, plain, []string{"hello", "world"})
	writeLines(t, comp, []string{"hello", "world"})

	s, err := Open(plain, "r")
	require.NoError(t, err)
	line, err := s.ReadLine()
	require.NoError(t, err)
	assert.Equal(t, "hello", line)
	pos, err := s.Tell()
	require.NoError(t, err)
	assert.Equal(t, int64(6), pos)
	_, err = s.Seek(0, io.SeekStart)
	require.NoError(t, err)
	line, err = s.ReadLine()
	require.NoError(t, err)
	assert.Equal(t, "hello", line)
	require.NoError(t, s.Close())

	s, err = Open(comp, "r")
	require.NoError(t, err)
	_, err = s.Seek(0, io.SeekStart)
	assert.True(t, errors.Is(err, errs.ErrUnsupportedSeek))
	_, err = s.Tell()
	assert.True(t, errors.Is(err, errs.ErrUnsupportedSeek))
	require.NoError(t, s.Close())
}

func TestEofNotEarly(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "e.sdds.lzma")
	writeLines(t, path, []string{"x"})

	s, err := Open(path, "r")
	require.NoError(t, err)
	defer s.Close()
	// Decoded bytes remain, so this must not report EOF.
	assert.False(t, s.Eof())
	line, err := s.ReadLine()
	require.NoError(t, err)
	assert.Equal(t, "x", line)
	assert.True(t, s.Eof())
}

func TestPrintfBound(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(filepath.Join(dir, "f.sdds"), "w")
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.Printf("%d %s\n", 7, "ok"))
	huge := make([]byte, printfBufSize+1)
	err = s.Printf("%s", huge)
	assert.True(t, errors.Is(err, errs.ErrWriteTooLarge))
}

func TestOpenBadMode(t *testing.T) {
	_, err := Open("x.sdds", "a")
	assert.Error(t, err)
}
