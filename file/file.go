package file

import (
	"io"
	"os"
	"strings"

	"github.com/pkg/errors"
)

// Compression kinds, chosen from the file name suffix.
const (
	CompNone = iota
	CompLZMA
	CompXZ
	CompGzip
)

const (
	// readBufSize is the source buffer in front of a decoder.
	readBufSize = 40 << 10
	// printfBufSize bounds one formatted write.
	printfBufSize = 32 << 10
	// maxLineLen bounds one ReadLine result.
	maxLineLen = 1 << 20
)

// Stream is buffered file I/O with the transport (plain or compressed)
// hidden behind it. A stream is either read mode or write mode, never
// both; the write half of a read stream and vice versa fail.
type Stream interface {
	io.Reader
	io.Writer

	// ReadLine returns the next line without its newline. The final
	// unterminated line comes back with a nil error; the call after
	// returns io.EOF.
	ReadLine() (string, error)

	WriteString(s string) (int, error)

	// Printf formats into a bounded staging buffer and writes the result.
	Printf(format string, a ...interface{}) error

	// Eof is true only once every decoded byte has been consumed and the
	// backing file is exhausted.
	Eof() bool

	// Seek and Tell work on uncompressed streams only; compressed
	// transports fail with errs.ErrUnsupportedSeek.
	Seek(offset int64, whence int) (int64, error)
	Tell() (int64, error)

	Flush() error
	Close() error
}

// Kind picks the transport from the file name suffix.
func Kind(name string) int {
	switch {
	case strings.HasSuffix(name, ".lzma"):
		return CompLZMA
	case strings.HasSuffix(name, ".xz"):
		return CompXZ
	case strings.HasSuffix(name, ".gz"):
		return CompGzip
	}
	return CompNone
}

// Open opens path for mode "r" (read, decode) or "w" (write, encode,
// truncating). A failed open leaves no handle or codec state behind.
func Open(path, mode string) (Stream, error) {
	var f *os.File
	var err error
	switch mode {
	case "r":
		f, err = os.Open(path)
	case "w":
		f, err = os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	default:
		return nil, errors.Errorf("file: bad open mode %q", mode)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "open %q", path)
	}

	kind := Kind(path)
	if kind == CompNone {
		return newPlain(f, mode == "w"), nil
	}
	s, err := newCompressed(f, kind, mode == "w")
	if err != nil {
		f.Close()
		return nil, errors.Wrapf(err, "open %q", path)
	}
	return s, nil
}
