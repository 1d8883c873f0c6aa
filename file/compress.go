package file

import (
	"bufio"
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"strings"

	"sdds/utils/errs"

	"github.com/pkg/errors"
	"github.com/ulikunitz/xz"
	"github.com/ulikunitz/xz/lzma"
)

// compStream runs bytes through an encode or decode pipeline on their way
// to or from the backing file. The codec is fixed at open time; callers
// see ordinary stream operations.
type compStream struct {
	f *os.File

	// read side
	src  *bufio.Reader // compressed source, readBufSize
	dec  io.Reader
	peek byte // one decoded byte of lookahead for Eof
	held bool

	// write side
	dst *bufio.Writer
	enc io.WriteCloser
}

func newCompressed(f *os.File, kind int, write bool) (*compStream, error) {
	c := &compStream{f: f}
	if write {
		c.dst = bufio.NewWriter(f)
		var err error
		switch kind {
		case CompLZMA:
			c.enc, err = lzma.NewWriter(c.dst)
		case CompXZ:
			c.enc, err = xz.NewWriter(c.dst)
		case CompGzip:
			c.enc = gzip.NewWriter(c.dst)
		default:
			err = errors.Errorf("file: bad compression kind %d", kind)
		}
		if err != nil {
			return nil, err
		}
		return c, nil
	}

	c.src = bufio.NewReaderSize(f, readBufSize)
	var err error
	switch kind {
	case CompLZMA:
		c.dec, err = lzma.NewReader(c.src)
	case CompXZ:
		c.dec, err = xz.NewReader(c.src)
	case CompGzip:
		c.dec, err = gzip.NewReader(c.src)
	default:
		err = errors.Errorf("file: bad compression kind %d", kind)
	}
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (c *compStream) Read(buf []byte) (int, error) {
	if c.dec == nil {
		return 0, errors.New("file: stream opened for write")
	}
	if len(buf) == 0 {
		return 0, nil
	}
	n := 0
	if c.held {
		buf[0] = c.peek
		c.held = false
		n = 1
		if len(buf) == 1 {
			return 1, nil
		}
	}
	m, err := c.dec.Read(buf[n:])
	n += m
	if n > 0 && err == io.EOF {
		err = nil
	}
	return n, err
}

// ReadLine decodes one byte at a time until a newline or EOF.
func (c *compStream) ReadLine() (string, error) {
	if c.dec == nil {
		return "", errors.New("file: stream opened for write")
	}
	var b strings.Builder
	var one [1]byte
	for {
		n, err := c.Read(one[:])
		if n == 1 {
			if one[0] == '\n' {
				return strings.TrimRight(b.String(), "\r"), nil
			}
			if b.Len() >= maxLineLen {
				return "", errors.Errorf("file: line longer than %d bytes", maxLineLen)
			}
			b.WriteByte(one[0])
			continue
		}
		if err == io.EOF {
			if b.Len() > 0 {
				return b.String(), nil
			}
			return "", io.EOF
		}
		if err != nil {
			return "", err
		}
	}
}

func (c *compStream) Write(buf []byte) (int, error) {
	if c.enc == nil {
		return 0, errors.New("file: stream opened for read")
	}
	return c.enc.Write(buf)
}

func (c *compStream) WriteString(s string) (int, error) {
	return c.Write([]byte(s))
}

func (c *compStream) Printf(format string, a ...interface{}) error {
	s := fmt.Sprintf(format, a...)
	if len(s) > printfBufSize {
		return errors.Wrapf(errs.ErrWriteTooLarge, "%d bytes", len(s))
	}
	_, err := c.WriteString(s)
	return err
}

// Eof is true only when no decoded byte remains: the lookahead is empty
// and the decoder reports end of stream.
func (c *compStream) Eof() bool {
	if c.dec == nil {
		return false
	}
	if c.held {
		return false
	}
	var one [1]byte
	n, err := c.dec.Read(one[:])
	if n == 1 {
		c.peek = one[0]
		c.held = true
		return false
	}
	return err == io.EOF
}

// Offsets are meaningless while a codec sits between the caller and the
// file, so seeking is refused rather than answered wrongly.
func (c *compStream) Seek(offset int64, whence int) (int64, error) {
	return 0, errs.ErrUnsupportedSeek
}

func (c *compStream) Tell() (int64, error) {
	return 0, errs.ErrUnsupportedSeek
}

func (c *compStream) Flush() error {
	// Encoders only emit complete blocks; a mid-stream flush would cut a
	// block short, so flushing is deferred to Close.
	return nil
}

// Close drains the encoder until it signals stream end, flushes the
// backing file and releases everything. Safe to call once per stream.
func (c *compStream) Close() error {
	if c.enc != nil {
		if err := c.enc.Close(); err != nil {
			c.f.Close()
			return errors.Wrap(err, "finish compressed stream")
		}
		if err := c.dst.Flush(); err != nil {
			c.f.Close()
			return err
		}
	}
	return c.f.Close()
}
