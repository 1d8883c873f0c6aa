// Package sdds reads and writes SDDS (Self-Describing Data Sets) files:
// a textual header describing parameters, arrays and columns, followed by
// any number of pages of typed data in binary or ASCII form, optionally
// behind an LZMA, XZ or gzip transport chosen from the file suffix.
package sdds

import (
	"io"
	"os"
	"path/filepath"

	"sdds/codec"
	"sdds/file"
	"sdds/layout"
	"sdds/utils/errs"

	"github.com/pkg/errors"
)

type state int

const (
	stateLayoutReady state = iota
	statePageActive
	stateTerminated
	stateClosed
)

// Dataset is one open SDDS stream: the parsed layout, the transport, and
// the page currently materialized. A Dataset is not safe for concurrent
// use; every successful open must be paired with exactly one Close.
type Dataset struct {
	s       file.Stream
	lay     *layout.Layout
	reading bool
	st      state

	page      *codec.Page
	pageCount int
	fixedRows int // row count pinned by fixed_row_count, -1 until known
}

// Options tunes how a dataset is opened for reading.
type Options struct {
	// IncludeDir is the directory include filenames resolve against.
	// Empty means the directory of the opened file.
	IncludeDir string
}

// OpenRead opens path, parses the header and leaves the dataset ready to
// read pages. Includes resolve relative to the file's directory. On any
// failure nothing stays open.
func OpenRead(path string) (*Dataset, error) {
	return OpenReadOptions(path, nil)
}

// OpenReadOptions is OpenRead with explicit options.
func OpenReadOptions(path string, opt *Options) (*Dataset, error) {
	s, err := file.Open(path, "r")
	if err != nil {
		return nil, err
	}
	dir := filepath.Dir(path)
	if opt != nil && opt.IncludeDir != "" {
		dir = opt.IncludeDir
	}
	ds, err := openReadStream(s, dir)
	if err != nil {
		s.Close()
		return nil, err
	}
	return ds, nil
}

// OpenReadStream reads a dataset from an already-open stream. The caller
// keeps ownership decisions simple: Close still closes the stream.
func OpenReadStream(s file.Stream) (*Dataset, error) {
	return openReadStream(s, ".")
}

func openReadStream(s file.Stream, dir string) (*Dataset, error) {
	p := layout.NewParser()
	p.OpenInclude = func(name string) (layout.LineReader, io.Closer, error) {
		f, err := os.Open(filepath.Join(dir, name))
		if err != nil {
			return nil, nil, err
		}
		return layout.Lines(f), f, nil
	}
	lay, err := p.Parse(s)
	if err != nil {
		return nil, err
	}
	if lay.Data.Mode == layout.ModeASCII {
		for i := int32(0); i < lay.Data.AdditionalHeaderLines; i++ {
			if _, err := s.ReadLine(); err != nil && err != io.EOF {
				return nil, errors.Wrap(err, "skip additional header lines")
			}
		}
	}
	return &Dataset{s: s, lay: lay, reading: true, fixedRows: -1}, nil
}

// OpenWrite creates path, writes the header for lay and leaves the
// dataset ready for StartPage. The layout is owned by the dataset from
// here on.
func OpenWrite(path string, lay *layout.Layout) (*Dataset, error) {
	s, err := file.Open(path, "w")
	if err != nil {
		return nil, err
	}
	ds, err := OpenWriteStream(s, lay)
	if err != nil {
		s.Close()
		return nil, err
	}
	return ds, nil
}

// OpenWriteStream writes the header for lay to an already-open stream.
func OpenWriteStream(s file.Stream, lay *layout.Layout) (*Dataset, error) {
	if err := layout.Write(s, lay); err != nil {
		return nil, err
	}
	if lay.Data.Mode == layout.ModeASCII {
		for i := int32(0); i < lay.Data.AdditionalHeaderLines; i++ {
			if _, err := s.WriteString("\n"); err != nil {
				return nil, errors.Wrap(err, "write additional header lines")
			}
		}
	}
	return &Dataset{s: s, lay: lay, fixedRows: -1}, nil
}

// Layout exposes the parsed (or caller-supplied) schema.
func (ds *Dataset) Layout() *layout.Layout {
	return ds.lay
}

// Fingerprint identifies the layout across re-opens. Two datasets with
// equal fingerprints describe their data with the same header.
func (ds *Dataset) Fingerprint() uint64 {
	return ds.lay.Fingerprint()
}

// PageCount is the number of pages fully read or written so far.
func (ds *Dataset) PageCount() int {
	return ds.pageCount
}

// RowCount is the row count of the active page, 0 outside a page.
func (ds *Dataset) RowCount() int {
	if ds.st != statePageActive {
		return 0
	}
	return ds.page.Rows
}

func (ds *Dataset) usable() error {
	switch ds.st {
	case stateTerminated, stateClosed:
		return errs.ErrTerminated
	}
	return nil
}

// ReadPage materializes the next page. It returns errs.ErrNoMorePages at
// the clean end of the stream, after which only Close is valid. A decode
// error leaves the dataset unusable for further reads.
func (ds *Dataset) ReadPage() error {
	if err := ds.usable(); err != nil {
		return err
	}
	if !ds.reading {
		return errors.Wrap(errs.ErrNoPageActive, "dataset opened for write")
	}
	p, err := codec.ReadPage(ds.s, ds.lay)
	if err == io.EOF {
		ds.st = stateTerminated
		ds.page = nil
		return errs.ErrNoMorePages
	}
	if err != nil {
		ds.st = stateTerminated
		ds.page = nil
		return err
	}
	if ds.lay.Data.FixedRowCount {
		if ds.fixedRows >= 0 && p.Rows != ds.fixedRows {
			ds.st = stateTerminated
			ds.page = nil
			return errors.Wrapf(errs.ErrRowCountChanged,
				"page %d has %d rows, expected %d", ds.pageCount+1, p.Rows, ds.fixedRows)
		}
		ds.fixedRows = p.Rows
	}
	ds.page = p
	ds.pageCount++
	ds.st = statePageActive
	return nil
}

// StartPage begins staging a page of rows rows for writing. Values are
// zero until set; fixed-value parameters come from the header.
func (ds *Dataset) StartPage(rows int) error {
	if err := ds.usable(); err != nil {
		return err
	}
	if ds.reading {
		return errors.Wrap(errs.ErrNoPageActive, "dataset opened for read")
	}
	if rows < 0 {
		return errors.Wrapf(errs.ErrBadValue, "%d rows", rows)
	}
	p, err := codec.NewPage(ds.lay, rows)
	if err != nil {
		return err
	}
	ds.page = p
	ds.st = statePageActive
	return nil
}

// WritePage serializes the staged page and returns to the between-pages
// state. Under fixed_row_count every page must carry the same row count;
// a violation fails here, nothing is truncated or padded.
func (ds *Dataset) WritePage() error {
	if err := ds.writable(); err != nil {
		return err
	}
	if ds.lay.Data.FixedRowCount {
		if ds.fixedRows >= 0 && ds.page.Rows != ds.fixedRows {
			return errors.Wrapf(errs.ErrRowCountChanged,
				"page %d has %d rows, expected %d", ds.pageCount+1, ds.page.Rows, ds.fixedRows)
		}
		ds.fixedRows = ds.page.Rows
	}
	if err := codec.WritePage(ds.s, ds.lay, ds.page); err != nil {
		ds.st = stateTerminated
		return err
	}
	ds.page = nil
	ds.pageCount++
	ds.st = stateLayoutReady
	return nil
}

// Close flushes pending writes, closes the transport and releases the
// page buffers. The dataset is unusable afterwards; a second Close is a
// caller error.
func (ds *Dataset) Close() error {
	if ds.st == stateClosed {
		return errors.Wrap(errs.ErrTerminated, "double close")
	}
	ds.st = stateClosed
	ds.page = nil
	if err := ds.s.Flush(); err != nil {
		ds.s.Close()
		return err
	}
	return ds.s.Close()
}

func (ds *Dataset) active() error {
	if err := ds.usable(); err != nil {
		return err
	}
	if ds.st != statePageActive || !ds.reading {
		return errs.ErrNoPageActive
	}
	return nil
}

func (ds *Dataset) writable() error {
	if err := ds.usable(); err != nil {
		return err
	}
	if ds.st != statePageActive || ds.reading {
		return errs.ErrNoPageActive
	}
	return nil
}
