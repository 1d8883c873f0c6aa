package codec

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"sdds/file"
	"sdds/layout"
	"sdds/utils/errs"

	"github.com/pkg/errors"
)

// ASCII page layout, in write order: per array a dimensions line then
// wrapped value lines; one line per non-fixed parameter; the row count
// line (omitted under no_row_counts); one line per row; a blank line
// terminating the page. Strings that contain whitespace or quotes are
// double-quoted with backslash escapes.

// arrayWrap is how many array elements share one line.
const arrayWrap = 10

func writeASCII(s file.Stream, lay *layout.Layout, p *Page) error {
	for i, def := range lay.Arrays {
		av := p.Arrays[i]
		dims := make([]string, len(av.Dims))
		for d, v := range av.Dims {
			dims[d] = strconv.Itoa(int(v))
		}
		if _, err := s.WriteString(strings.Join(dims, " ") + "\n"); err != nil {
			return errors.Wrapf(err, "write dims of array %q", def.Name)
		}
		n := av.Elements()
		for j := 0; j < n; j += arrayWrap {
			end := j + arrayWrap
			if end > n {
				end = n
			}
			parts := make([]string, 0, end-j)
			for k := j; k < end; k++ {
				parts = append(parts, formatValue(def.Type, def.FormatString, sliceElem(def.Type, av.Data, k)))
			}
			if _, err := s.WriteString(strings.Join(parts, " ") + "\n"); err != nil {
				return errors.Wrapf(err, "write array %q", def.Name)
			}
		}
	}
	for i, def := range lay.Parameters {
		if def.FixedValue != "" {
			continue
		}
		line := formatValue(def.Type, def.FormatString, p.Params[i])
		if _, err := s.WriteString(line + "\n"); err != nil {
			return errors.Wrapf(err, "write parameter %q", def.Name)
		}
	}
	if !lay.Data.NoRowCounts {
		if err := s.Printf("%d\n", p.Rows); err != nil {
			return errors.Wrap(err, "write row count")
		}
	}
	for r := 0; r < p.Rows; r++ {
		parts := make([]string, len(lay.Columns))
		for i, def := range lay.Columns {
			parts[i] = formatValue(def.Type, def.FormatString, sliceElem(def.Type, p.Columns[i], r))
		}
		if _, err := s.WriteString(strings.Join(parts, " ") + "\n"); err != nil {
			return errors.Wrapf(err, "write row %d", r)
		}
	}
	// Page terminator; also what ends the row block under no_row_counts.
	if _, err := s.WriteString("\n"); err != nil {
		return errors.Wrap(err, "write page terminator")
	}
	return nil
}

// formatValue renders one value. A format_string is honored for numeric
// types; strings and characters always go through quoting so the reader
// can tokenize them back.
func formatValue(t layout.Type, format string, v interface{}) string {
	if format != "" && (t.Integer() || t.Floating()) {
		return fmt.Sprintf(format, v)
	}
	switch t {
	case layout.String:
		return asciiQuote(v.(string))
	case layout.Character:
		return asciiQuote(string([]byte{v.(byte)}))
	case layout.LongDouble, layout.Double:
		return strconv.FormatFloat(v.(float64), 'g', -1, 64)
	case layout.Float:
		return strconv.FormatFloat(float64(v.(float32)), 'g', -1, 32)
	case layout.Long64:
		return strconv.FormatInt(v.(int64), 10)
	case layout.ULong64:
		return strconv.FormatUint(v.(uint64), 10)
	case layout.Long:
		return strconv.FormatInt(int64(v.(int32)), 10)
	case layout.ULong:
		return strconv.FormatUint(uint64(v.(uint32)), 10)
	case layout.Short:
		return strconv.FormatInt(int64(v.(int16)), 10)
	case layout.UShort:
		return strconv.FormatUint(uint64(v.(uint16)), 10)
	}
	return ""
}

func asciiQuote(s string) string {
	if s != "" && !strings.ContainsAny(s, " \t\"\\!\n\r") {
		return s
	}
	var b strings.Builder
	b.WriteByte('"')
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '"', '\\':
			b.WriteByte('\\')
			b.WriteByte(s[i])
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		default:
			b.WriteByte(s[i])
		}
	}
	b.WriteByte('"')
	return b.String()
}

// unescape maps the byte after a backslash. \n and \r restore the line
// breaks the writer escaped out of the physical line.
func unescape(c byte) byte {
	switch c {
	case 'n':
		return '\n'
	case 'r':
		return '\r'
	}
	return c
}

// asciiReader hands out whitespace-separated tokens with line-boundary
// control, honoring quotes and skipping '!' comments.
type asciiReader struct {
	s    file.Stream
	toks []string
	eof  bool
}

// nextLine tokenizes the next line. A blank line yields an empty token
// slice and nil error; io.EOF only once the stream is exhausted.
func (a *asciiReader) nextLine() ([]string, error) {
	for {
		if a.eof {
			return nil, io.EOF
		}
		line, err := a.s.ReadLine()
		if err == io.EOF {
			a.eof = true
			if line == "" {
				return nil, io.EOF
			}
		} else if err != nil {
			return nil, err
		}
		line = strings.TrimRight(line, "\r")
		toks, err := splitTokens(line)
		if err != nil {
			return nil, err
		}
		if len(toks) == 0 && strings.TrimSpace(line) != "" {
			// comment-only line
			continue
		}
		return toks, nil
	}
}

// dataLine skips blank and comment lines and returns the next line that
// carries tokens.
func (a *asciiReader) dataLine() ([]string, error) {
	for {
		toks, err := a.nextLine()
		if err != nil {
			return nil, err
		}
		if len(toks) > 0 {
			return toks, nil
		}
	}
}

// take returns the next n tokens, pulling additional lines as needed.
// Blank lines between value lines are skipped.
func (a *asciiReader) take(n int) ([]string, error) {
	for len(a.toks) < n {
		toks, err := a.dataLine()
		if err != nil {
			return nil, err
		}
		a.toks = append(a.toks, toks...)
	}
	out := a.toks[:n]
	a.toks = a.toks[n:]
	return out, nil
}

// splitTokens splits one data line into tokens. Quoted tokens may hold
// whitespace; a '!' at a token boundary comments out the rest.
func splitTokens(line string) ([]string, error) {
	var toks []string
	i := 0
	for i < len(line) {
		c := line[i]
		if c == ' ' || c == '\t' {
			i++
			continue
		}
		if c == '!' {
			break
		}
		if c == '"' {
			i++
			var b strings.Builder
			closed := false
			for i < len(line) {
				switch line[i] {
				case '\\':
					if i+1 >= len(line) {
						return nil, errors.Wrap(errs.ErrBadValue, "dangling escape")
					}
					i++
					b.WriteByte(unescape(line[i]))
				case '"':
					closed = true
				default:
					b.WriteByte(line[i])
				}
				i++
				if closed {
					break
				}
			}
			if !closed {
				return nil, errors.Wrap(errs.ErrBadValue, "unterminated quote")
			}
			toks = append(toks, b.String())
			continue
		}
		start := i
		for i < len(line) && line[i] != ' ' && line[i] != '\t' {
			i++
		}
		toks = append(toks, line[start:i])
	}
	return toks, nil
}

func readASCII(s file.Stream, lay *layout.Layout) (*Page, error) {
	a := &asciiReader{s: s}
	p, err := NewPage(lay, 0)
	if err != nil {
		return nil, err
	}
	started := false

	// first pulls the page's first element line; a clean EOF here means no
	// more pages rather than a truncated one.
	first := func() ([]string, error) {
		toks, err := a.dataLine()
		if err == io.EOF && !started {
			return nil, io.EOF
		}
		if err == io.EOF {
			return nil, errors.Wrap(errs.ErrTruncatedPage, "unexpected end of stream")
		}
		started = true
		return toks, err
	}

	for i, def := range lay.Arrays {
		toks, err := first()
		if err == io.EOF {
			return nil, io.EOF
		}
		if err != nil {
			return nil, errors.Wrapf(err, "read dims of array %q", def.Name)
		}
		av := p.Arrays[i]
		if len(toks) != int(def.Dimensions) {
			return nil, errors.Wrapf(errs.ErrBadDimensions,
				"array %q wants %d dims, got %d", def.Name, def.Dimensions, len(toks))
		}
		for d, tok := range toks {
			n, convErr := strconv.ParseInt(tok, 10, 32)
			if convErr != nil || n < 0 {
				return nil, errors.Wrapf(errs.ErrBadDimensions, "array %q dim %q", def.Name, tok)
			}
			av.Dims[d] = int32(n)
		}
		count := av.Elements()
		if count < 0 {
			return nil, errors.Wrapf(errs.ErrBadDimensions,
				"array %q dims %v", def.Name, av.Dims)
		}
		av.Data = newSlice(def.Type, count)
		vals, err := a.take(count)
		if err != nil {
			return nil, errors.Wrapf(wrapEOF(err), "read array %q", def.Name)
		}
		for j, tok := range vals {
			v, convErr := ParseScalar(def.Type, tok)
			if convErr != nil {
				return nil, errors.Wrapf(convErr, "array %q", def.Name)
			}
			setSliceElem(def.Type, av.Data, j, v)
		}
	}

	for i, def := range lay.Parameters {
		if def.FixedValue != "" {
			continue
		}
		toks, err := first()
		if err == io.EOF {
			return nil, io.EOF
		}
		if err != nil {
			return nil, errors.Wrapf(err, "read parameter %q", def.Name)
		}
		if len(toks) != 1 {
			return nil, errors.Wrapf(errs.ErrBadValue,
				"parameter %q wants one value per line, got %d", def.Name, len(toks))
		}
		v, convErr := ParseScalar(def.Type, toks[0])
		if convErr != nil {
			return nil, errors.Wrapf(convErr, "parameter %q", def.Name)
		}
		p.Params[i] = v
	}

	if lay.Data.NoRowCounts {
		return readASCIIRowsToBlank(a, lay, p, started)
	}

	toks, err := first()
	if err == io.EOF {
		return nil, io.EOF
	}
	if err != nil {
		return nil, errors.Wrap(err, "read row count")
	}
	if len(toks) != 1 {
		return nil, errors.Wrapf(errs.ErrBadValue, "row count line has %d tokens", len(toks))
	}
	rows64, convErr := strconv.ParseInt(toks[0], 10, 32)
	if convErr != nil || rows64 < 0 || rows64 > maxRows {
		return nil, errors.Wrapf(errs.ErrBadValue, "row count %q", toks[0])
	}
	rows := int(rows64)
	p.Rows = rows
	for i, def := range lay.Columns {
		p.Columns[i] = newSlice(def.Type, rows)
	}
	for r := 0; r < rows; r++ {
		vals, err := a.take(len(lay.Columns))
		if err != nil {
			return nil, errors.Wrapf(wrapEOF(err), "read row %d", r)
		}
		if err := storeRow(lay, p, r, vals); err != nil {
			return nil, err
		}
	}
	return p, nil
}

// readASCIIRowsToBlank reads rows until a blank line or EOF. No count
// token exists on disk in this mode.
func readASCIIRowsToBlank(a *asciiReader, lay *layout.Layout, p *Page, started bool) (*Page, error) {
	var rows [][]string
	for {
		toks, err := a.nextLine()
		if err == io.EOF {
			if !started && len(rows) == 0 {
				return nil, io.EOF
			}
			break
		}
		if err != nil {
			return nil, err
		}
		if len(toks) == 0 {
			if len(rows) == 0 && !started {
				// leading separator from the previous page
				continue
			}
			break
		}
		started = true
		a.toks = toks
		vals, err := a.take(len(lay.Columns))
		if err != nil {
			return nil, errors.Wrapf(wrapEOF(err), "read row %d", len(rows))
		}
		if len(a.toks) != 0 {
			return nil, errors.Wrapf(errs.ErrBadValue,
				"row %d carries %d extra tokens", len(rows), len(a.toks))
		}
		rows = append(rows, vals)
	}
	p.Rows = len(rows)
	for i, def := range lay.Columns {
		p.Columns[i] = newSlice(def.Type, len(rows))
	}
	for r, vals := range rows {
		if err := storeRow(lay, p, r, vals); err != nil {
			return nil, err
		}
	}
	return p, nil
}

func storeRow(lay *layout.Layout, p *Page, r int, vals []string) error {
	for i, def := range lay.Columns {
		v, err := ParseScalar(def.Type, vals[i])
		if err != nil {
			return errors.Wrapf(err, "row %d column %q", r, def.Name)
		}
		setSliceElem(def.Type, p.Columns[i], r, v)
	}
	return nil
}

func wrapEOF(err error) error {
	if err == io.EOF {
		return errs.ErrTruncatedPage
	}
	return err
}
