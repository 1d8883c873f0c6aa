package layout

import (
	"io"
	"strings"

	"sdds/utils/errs"

	"github.com/pkg/errors"
)

// LineReader is the slice of the stream interface the header parser needs.
// Lines come back without the trailing newline.
type LineReader interface {
	ReadLine() (string, error)
}

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokTag           // &description, &column, ...
	tokEnd           // &end
	tokPair          // key=value
)

type token struct {
	kind tokenKind
	name string // tag name or pair key
	val  string // pair value, unquoted
}

// scanner tokenizes header text. Blocks may span lines; a '!' outside
// quotes comments out the rest of the line.
type scanner struct {
	r    LineReader
	line string
	pos  int
	eof  bool
}

func newScanner(r LineReader) *scanner {
	return &scanner{r: r}
}

func (s *scanner) fill() error {
	for {
		if s.eof {
			return io.EOF
		}
		if s.pos < len(s.line) {
			return nil
		}
		line, err := s.r.ReadLine()
		if err == io.EOF && line == "" {
			s.eof = true
			return io.EOF
		} else if err != nil && err != io.EOF {
			return err
		}
		if err == io.EOF {
			s.eof = true
		}
		s.line = line
		s.pos = 0
	}
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == ',' || c == '\r'
}

// skip advances past separators and comments, filling lines as needed.
func (s *scanner) skip() error {
	for {
		if err := s.fill(); err != nil {
			return err
		}
		c := s.line[s.pos]
		if isSpace(c) {
			s.pos++
			continue
		}
		if c == '!' {
			s.pos = len(s.line)
			continue
		}
		return nil
	}
}

func (s *scanner) next() (token, error) {
	if err := s.skip(); err != nil {
		if err == io.EOF {
			return token{kind: tokEOF}, nil
		}
		return token{}, err
	}
	if s.line[s.pos] == '&' {
		s.pos++
		start := s.pos
		for s.pos < len(s.line) && !isSpace(s.line[s.pos]) {
			s.pos++
		}
		name := s.line[start:s.pos]
		if name == "end" {
			return token{kind: tokEnd}, nil
		}
		if name == "" {
			return token{}, errors.Wrap(errs.ErrBadHeader, "bare '&'")
		}
		return token{kind: tokTag, name: name}, nil
	}

	// key=value
	start := s.pos
	for s.pos < len(s.line) && s.line[s.pos] != '=' {
		if isSpace(s.line[s.pos]) {
			return token{}, errors.Wrapf(errs.ErrBadHeader,
				"token %q is not key=value", s.line[start:s.pos])
		}
		s.pos++
	}
	if s.pos == len(s.line) {
		return token{}, errors.Wrapf(errs.ErrBadHeader,
			"token %q is not key=value", s.line[start:])
	}
	key := s.line[start:s.pos]
	s.pos++ // consume '='
	val, err := s.value()
	if err != nil {
		return token{}, err
	}
	return token{kind: tokPair, name: key, val: val}, nil
}

// value consumes a bare or double-quoted value at the cursor.
func (s *scanner) value() (string, error) {
	if s.pos >= len(s.line) {
		return "", nil
	}
	if s.line[s.pos] != '"' {
		start := s.pos
		for s.pos < len(s.line) && !isSpace(s.line[s.pos]) && s.line[s.pos] != '!' {
			s.pos++
		}
		return s.line[start:s.pos], nil
	}
	s.pos++
	var b strings.Builder
	for s.pos < len(s.line) {
		c := s.line[s.pos]
		switch c {
		case '\\':
			if s.pos+1 >= len(s.line) {
				return "", errors.Wrap(errs.ErrBadHeader, "dangling escape")
			}
			s.pos++
			b.WriteByte(unescapeByte(s.line[s.pos]))
		case '"':
			s.pos++
			return b.String(), nil
		default:
			b.WriteByte(c)
		}
		s.pos++
	}
	return "", errors.Wrap(errs.ErrBadHeader, "unterminated quote")
}

// needsQuote reports whether a header value must be written quoted.
func needsQuote(v string) bool {
	if v == "" {
		return true
	}
	return strings.ContainsAny(v, " \t,\"!&\n\r")
}

// quoteValue renders a header value, quoting and escaping when required.
// Line breaks become \n and \r escapes so a value never spans physical
// lines.
func quoteValue(v string) string {
	if !needsQuote(v) {
		return v
	}
	var b strings.Builder
	b.WriteByte('"')
	for i := 0; i < len(v); i++ {
		switch v[i] {
		case '"', '\\':
			b.WriteByte('\\')
			b.WriteByte(v[i])
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		default:
			b.WriteByte(v[i])
		}
	}
	b.WriteByte('"')
	return b.String()
}

// unescapeByte maps the byte after a backslash in a quoted value.
func unescapeByte(c byte) byte {
	switch c {
	case 'n':
		return '\n'
	case 'r':
		return '\r'
	}
	return c
}
