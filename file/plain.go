package file

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"sdds/utils/errs"

	"github.com/pkg/errors"
)

// plainFile is the pass-through transport: os.File behind bufio.
type plainFile struct {
	f *os.File
	r *bufio.Reader
	w *bufio.Writer
}

func newPlain(f *os.File, write bool) *plainFile {
	p := &plainFile{f: f}
	if write {
		p.w = bufio.NewWriter(f)
	} else {
		p.r = bufio.NewReaderSize(f, readBufSize)
	}
	return p
}

func (p *plainFile) Read(buf []byte) (int, error) {
	if p.r == nil {
		return 0, errors.New("file: stream opened for write")
	}
	return p.r.Read(buf)
}

func (p *plainFile) ReadLine() (string, error) {
	if p.r == nil {
		return "", errors.New("file: stream opened for write")
	}
	line, err := p.r.ReadString('\n')
	if len(line) > maxLineLen {
		return "", errors.Errorf("file: line longer than %d bytes", maxLineLen)
	}
	line = strings.TrimRight(line, "\r\n")
	if err == io.EOF && line != "" {
		return line, nil
	}
	return line, err
}

func (p *plainFile) Write(buf []byte) (int, error) {
	if p.w == nil {
		return 0, errors.New("file: stream opened for read")
	}
	return p.w.Write(buf)
}

func (p *plainFile) WriteString(s string) (int, error) {
	if p.w == nil {
		return 0, errors.New("file: stream opened for read")
	}
	return p.w.WriteString(s)
}

func (p *plainFile) Printf(format string, a ...interface{}) error {
	s := fmt.Sprintf(format, a...)
	if len(s) > printfBufSize {
		return errors.Wrapf(errs.ErrWriteTooLarge, "%d bytes", len(s))
	}
	_, err := p.WriteString(s)
	return err
}

func (p *plainFile) Eof() bool {
	if p.r == nil {
		return false
	}
	_, err := p.r.Peek(1)
	return err == io.EOF
}

func (p *plainFile) Seek(offset int64, whence int) (int64, error) {
	if p.w != nil {
		if err := p.w.Flush(); err != nil {
			return 0, err
		}
		return p.f.Seek(offset, whence)
	}
	// Account for buffered-but-unread bytes on relative seeks.
	if whence == io.SeekCurrent {
		offset -= int64(p.r.Buffered())
	}
	pos, err := p.f.Seek(offset, whence)
	if err != nil {
		return 0, err
	}
	p.r.Reset(p.f)
	return pos, nil
}

func (p *plainFile) Tell() (int64, error) {
	pos, err := p.f.Seek(0, io.SeekCurrent)
	if err != nil {
		return 0, err
	}
	if p.r != nil {
		pos -= int64(p.r.Buffered())
	} else if p.w != nil {
		pos += int64(p.w.Buffered())
	}
	return pos, nil
}

func (p *plainFile) Flush() error {
	if p.w != nil {
		return p.w.Flush()
	}
	return nil
}

func (p *plainFile) Close() error {
	if p.w != nil {
		if err := p.w.Flush(); err != nil {
			p.f.Close()
			return err
		}
	}
	return p.f.Close()
}
