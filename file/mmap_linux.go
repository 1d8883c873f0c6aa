package file

import (
	"io"
	"os"
	"strings"

	"sdds/utils/errs"

	"github.com/pkg/errors"
)

// OpenMmap maps an uncompressed file read-only and exposes it as a
// seekable Stream. Compressed files cannot be mapped.
func OpenMmap(path string) (*MmapStream, error) {
	if Kind(path) != CompNone {
		return nil, errors.Wrapf(errs.ErrUnsupportedSeek, "mmap of compressed file %q", path)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "open %q", path)
	}
	st, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, errors.Wrapf(err, "stat %q", path)
	}
	data, err := mmap(f, st.Size())
	if err != nil {
		f.Close()
		return nil, errors.Wrapf(err, "mmap %q", path)
	}
	return &MmapStream{m: &MmapFile{Data: data, Fd: f}}, nil
}

// MmapStream reads a mapped file through the Stream interface. Read only;
// Seek and Tell are cheap because the whole file is in memory.
type MmapStream struct {
	m   *MmapFile
	off int
}

func (s *MmapStream) Read(buf []byte) (int, error) {
	if s.off >= len(s.m.Data) {
		return 0, io.EOF
	}
	n := copy(buf, s.m.Data[s.off:])
	s.off += n
	return n, nil
}

func (s *MmapStream) ReadLine() (string, error) {
	if s.off >= len(s.m.Data) {
		return "", io.EOF
	}
	start := s.off
	for s.off < len(s.m.Data) && s.m.Data[s.off] != '\n' {
		s.off++
	}
	line := string(s.m.Data[start:s.off])
	if s.off < len(s.m.Data) {
		s.off++ // consume the newline
	}
	return strings.TrimRight(line, "\r"), nil
}

func (s *MmapStream) Write([]byte) (int, error) {
	return 0, errors.New("file: mmap stream is read-only")
}

func (s *MmapStream) WriteString(string) (int, error) {
	return 0, errors.New("file: mmap stream is read-only")
}

func (s *MmapStream) Printf(string, ...interface{}) error {
	return errors.New("file: mmap stream is read-only")
}

func (s *MmapStream) Eof() bool {
	return s.off >= len(s.m.Data)
}

func (s *MmapStream) Seek(offset int64, whence int) (int64, error) {
	var pos int64
	switch whence {
	case io.SeekStart:
		pos = offset
	case io.SeekCurrent:
		pos = int64(s.off) + offset
	case io.SeekEnd:
		pos = int64(len(s.m.Data)) + offset
	default:
		return 0, errors.Errorf("file: bad whence %d", whence)
	}
	if pos < 0 || pos > int64(len(s.m.Data)) {
		return 0, errors.Errorf("file: seek to %d out of range", pos)
	}
	s.off = int(pos)
	return pos, nil
}

func (s *MmapStream) Tell() (int64, error) {
	return int64(s.off), nil
}

func (s *MmapStream) Flush() error { return nil }

func (s *MmapStream) Close() error {
	err := munmap(s.m.Data)
	if cerr := s.m.Fd.Close(); err == nil {
		err = cerr
	}
	return err
}
