package layout

import (
	"bufio"
	"io"
	"os"
	"strconv"
	"strings"

	"sdds/utils/errs"

	"github.com/pkg/errors"
)

// maxIncludeDepth bounds &include nesting. Together with the active-path
// set it turns include cycles into parse errors instead of unbounded
// recursion.
const maxIncludeDepth = 10

// Parser consumes a textual header and produces a Layout. The stream is
// left positioned at the byte after the &data block, where pages begin.
type Parser struct {
	lay    *Layout
	depth  int
	active map[string]struct{}

	// OpenInclude resolves an &include filename. The default opens the
	// file relative to the working directory.
	OpenInclude func(name string) (LineReader, io.Closer, error)
}

func NewParser() *Parser {
	return &Parser{
		lay:    New(),
		active: make(map[string]struct{}),
		OpenInclude: func(name string) (LineReader, io.Closer, error) {
			f, err := os.Open(name)
			if err != nil {
				return nil, nil, err
			}
			return Lines(f), f, nil
		},
	}
}

// Parse reads the version line and header blocks from r. See NewParser.
func Parse(r LineReader) (*Layout, error) {
	return NewParser().Parse(r)
}

func (p *Parser) Parse(r LineReader) (*Layout, error) {
	version, err := r.ReadLine()
	if err != nil && err != io.EOF {
		return nil, errors.Wrap(err, "read version line")
	}
	version = strings.TrimRight(version, "\r")
	if !strings.HasPrefix(version, "SDDS") {
		return nil, errors.Wrapf(errs.ErrBadHeader, "version line %q", version)
	}
	if v, convErr := strconv.Atoi(version[4:]); convErr != nil || v < 1 {
		return nil, errors.Wrapf(errs.ErrBadHeader, "version line %q", version)
	}

	done, err := p.parseBlocks(newScanner(r))
	if err != nil {
		return nil, err
	}
	if !done {
		return nil, errors.Wrap(errs.ErrBadHeader, "header ends before &data")
	}
	if err := p.lay.Check(); err != nil {
		return nil, err
	}
	return p.lay, nil
}

// parseBlocks consumes blocks until &data or EOF. It returns true once a
// &data block has been parsed; include files return false without error.
func (p *Parser) parseBlocks(sc *scanner) (bool, error) {
	for {
		tok, err := sc.next()
		if err != nil {
			return false, err
		}
		switch tok.kind {
		case tokEOF:
			return false, nil
		case tokEnd:
			return false, errors.Wrap(errs.ErrBadHeader, "&end outside a block")
		case tokPair:
			return false, errors.Wrapf(errs.ErrBadHeader, "%s=... outside a block", tok.name)
		}

		pairs, err := blockPairs(sc, tok.name)
		if err != nil {
			return false, err
		}
		switch tok.name {
		case "description":
			err = p.addDescription(pairs)
		case "parameter":
			err = p.addParameter(pairs)
		case "column":
			err = p.addColumn(pairs)
		case "array":
			err = p.addArray(pairs)
		case "associate":
			err = p.addAssociate(pairs)
		case "include":
			err = p.include(pairs)
		case "data":
			if err = p.setData(pairs); err != nil {
				return false, err
			}
			return true, nil
		default:
			err = errors.Wrapf(errs.ErrUnknownTag, "&%s", tok.name)
		}
		if err != nil {
			return false, err
		}
	}
}

// blockPairs collects key=value tokens up to the block's &end.
func blockPairs(sc *scanner, block string) ([]token, error) {
	var pairs []token
	for {
		tok, err := sc.next()
		if err != nil {
			return nil, err
		}
		switch tok.kind {
		case tokEnd:
			return pairs, nil
		case tokPair:
			pairs = append(pairs, tok)
		case tokTag:
			return nil, errors.Wrapf(errs.ErrBadHeader, "&%s inside &%s block", tok.name, block)
		case tokEOF:
			return nil, errors.Wrapf(errs.ErrBadHeader, "&%s block not terminated", block)
		}
	}
}

// Field setter tables. One typed closure per known field; an unknown key
// fails the parse naming the offender.

func parseI32(v string) (int32, error) {
	n, err := strconv.ParseInt(v, 10, 32)
	if err != nil {
		return 0, errors.Wrapf(errs.ErrBadValue, "%q is not an integer", v)
	}
	return int32(n), nil
}

func parseFlag(v string) (bool, error) {
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, errors.Wrapf(errs.ErrBadValue, "%q is not a flag", v)
	}
	return b, nil
}

var descriptionFields = map[string]func(*Description, string) error{
	"text":     func(d *Description, v string) error { d.Text = v; return nil },
	"contents": func(d *Description, v string) error { d.Contents = v; return nil },
}

var parameterFields = map[string]func(*Parameter, string) error{
	"name":          func(p *Parameter, v string) error { p.Name = v; return nil },
	"symbol":        func(p *Parameter, v string) error { p.Symbol = v; return nil },
	"units":         func(p *Parameter, v string) error { p.Units = v; return nil },
	"description":   func(p *Parameter, v string) error { p.Description = v; return nil },
	"format_string": func(p *Parameter, v string) error { p.FormatString = v; return nil },
	"fixed_value":   func(p *Parameter, v string) error { p.FixedValue = v; return nil },
	"type": func(p *Parameter, v string) error {
		t, err := TypeByName(v)
		if err != nil {
			return err
		}
		p.Type = t
		return nil
	},
}

var columnFields = map[string]func(*Column, string) error{
	"name":          func(c *Column, v string) error { c.Name = v; return nil },
	"symbol":        func(c *Column, v string) error { c.Symbol = v; return nil },
	"units":         func(c *Column, v string) error { c.Units = v; return nil },
	"description":   func(c *Column, v string) error { c.Description = v; return nil },
	"format_string": func(c *Column, v string) error { c.FormatString = v; return nil },
	"type": func(c *Column, v string) error {
		t, err := TypeByName(v)
		if err != nil {
			return err
		}
		c.Type = t
		return nil
	},
	"field_length": func(c *Column, v string) error {
		n, err := parseI32(v)
		if err != nil {
			return err
		}
		c.FieldLength = n
		return nil
	},
}

var arrayFields = map[string]func(*Array, string) error{
	"name":          func(a *Array, v string) error { a.Name = v; return nil },
	"symbol":        func(a *Array, v string) error { a.Symbol = v; return nil },
	"units":         func(a *Array, v string) error { a.Units = v; return nil },
	"description":   func(a *Array, v string) error { a.Description = v; return nil },
	"format_string": func(a *Array, v string) error { a.FormatString = v; return nil },
	"group_name":    func(a *Array, v string) error { a.GroupName = v; return nil },
	"type": func(a *Array, v string) error {
		t, err := TypeByName(v)
		if err != nil {
			return err
		}
		a.Type = t
		return nil
	},
	"dimensions": func(a *Array, v string) error {
		n, err := parseI32(v)
		if err != nil {
			return err
		}
		a.Dimensions = n
		return nil
	},
}

var associateFields = map[string]func(*Associate, string) error{
	"name":        func(a *Associate, v string) error { a.Name = v; return nil },
	"filename":    func(a *Associate, v string) error { a.Filename = v; return nil },
	"path":        func(a *Associate, v string) error { a.Path = v; return nil },
	"description": func(a *Associate, v string) error { a.Description = v; return nil },
	"contents":    func(a *Associate, v string) error { a.Contents = v; return nil },
	"sdds": func(a *Associate, v string) error {
		n, err := parseI32(v)
		if err != nil {
			return err
		}
		a.SDDS = n
		return nil
	},
}

var dataFields = map[string]func(*DataMode, string) error{
	"mode": func(d *DataMode, v string) error {
		m, err := LookupEnum(modeEnum, v)
		if err != nil {
			return errors.Wrapf(errs.ErrBadValue, "mode %q", v)
		}
		d.Mode = Mode(m)
		return nil
	},
	"endian": func(d *DataMode, v string) error {
		e, err := LookupEnum(endianEnum, v)
		if err != nil {
			return errors.Wrapf(errs.ErrBadValue, "endian %q", v)
		}
		d.Endian = Endian(e)
		return nil
	},
	"lines_per_row": func(d *DataMode, v string) error {
		n, err := parseI32(v)
		if err != nil {
			return err
		}
		d.LinesPerRow = n
		return nil
	},
	"additional_header_lines": func(d *DataMode, v string) error {
		n, err := parseI32(v)
		if err != nil {
			return err
		}
		d.AdditionalHeaderLines = n
		return nil
	},
	"no_row_counts": func(d *DataMode, v string) error {
		b, err := parseFlag(v)
		if err != nil {
			return err
		}
		d.NoRowCounts = b
		return nil
	},
	"fixed_row_count": func(d *DataMode, v string) error {
		b, err := parseFlag(v)
		if err != nil {
			return err
		}
		d.FixedRowCount = b
		return nil
	},
	"column_major_order": func(d *DataMode, v string) error {
		b, err := parseFlag(v)
		if err != nil {
			return err
		}
		d.ColumnMajorOrder = b
		return nil
	},
}

// applyFields runs every key=value pair through the block's setter table.
func applyFields[T any](dst *T, block string, table map[string]func(*T, string) error, pairs []token) error {
	for _, tok := range pairs {
		set, ok := table[tok.name]
		if !ok {
			return errors.Wrapf(errs.ErrUnknownField, "&%s field %q", block, tok.name)
		}
		if err := set(dst, tok.val); err != nil {
			return errors.Wrapf(err, "&%s field %q", block, tok.name)
		}
	}
	return nil
}

func (p *Parser) addDescription(pairs []token) error {
	if p.lay.Description != nil {
		return errors.Wrap(errs.ErrBadHeader, "second &description block")
	}
	d := &Description{}
	if err := applyFields(d, "description", descriptionFields, pairs); err != nil {
		return err
	}
	p.lay.Description = d
	return nil
}

func (p *Parser) addParameter(pairs []token) error {
	def := &Parameter{}
	if err := applyFields(def, "parameter", parameterFields, pairs); err != nil {
		return err
	}
	if def.Name == "" {
		return errors.Wrap(errs.ErrBadValue, "&parameter without a name")
	}
	if !def.Type.Valid() {
		return errors.Wrapf(errs.ErrUnknownType, "parameter %q", def.Name)
	}
	return p.lay.AddParameter(def)
}

func (p *Parser) addColumn(pairs []token) error {
	def := &Column{}
	if err := applyFields(def, "column", columnFields, pairs); err != nil {
		return err
	}
	if def.Name == "" {
		return errors.Wrap(errs.ErrBadValue, "&column without a name")
	}
	if !def.Type.Valid() {
		return errors.Wrapf(errs.ErrUnknownType, "column %q", def.Name)
	}
	return p.lay.AddColumn(def)
}

func (p *Parser) addArray(pairs []token) error {
	def := &Array{Dimensions: 1}
	if err := applyFields(def, "array", arrayFields, pairs); err != nil {
		return err
	}
	if def.Name == "" {
		return errors.Wrap(errs.ErrBadValue, "&array without a name")
	}
	if !def.Type.Valid() {
		return errors.Wrapf(errs.ErrUnknownType, "array %q", def.Name)
	}
	if def.Dimensions < 1 {
		return errors.Wrapf(errs.ErrBadValue, "array %q dimensions=%d", def.Name, def.Dimensions)
	}
	return p.lay.AddArray(def)
}

func (p *Parser) addAssociate(pairs []token) error {
	def := &Associate{}
	if err := applyFields(def, "associate", associateFields, pairs); err != nil {
		return err
	}
	if def.Name == "" {
		return errors.Wrap(errs.ErrBadValue, "&associate without a name")
	}
	p.lay.Associates = append(p.lay.Associates, def)
	return nil
}

func (p *Parser) setData(pairs []token) error {
	d := &p.lay.Data
	if err := applyFields(d, "data", dataFields, pairs); err != nil {
		return err
	}
	if d.Mode == 0 {
		return errors.Wrap(errs.ErrBadValue, "&data without a mode")
	}
	if d.LinesPerRow < 1 {
		d.LinesPerRow = 1
	}
	if d.Endian == 0 {
		d.Endian = BigEndian
	}
	return nil
}

// include splices the named file's blocks in place. Included files hold
// bare blocks, no version line, and may not contain &data.
func (p *Parser) include(pairs []token) error {
	var name string
	for _, tok := range pairs {
		if tok.name != "filename" {
			return errors.Wrapf(errs.ErrUnknownField, "&include field %q", tok.name)
		}
		name = tok.val
	}
	if name == "" {
		return errors.Wrap(errs.ErrBadValue, "&include without a filename")
	}
	if p.depth >= maxIncludeDepth {
		return errors.Wrapf(errs.ErrIncludeCycle, "depth %d at %q", p.depth, name)
	}
	if _, ok := p.active[name]; ok {
		return errors.Wrapf(errs.ErrIncludeCycle, "%q includes itself", name)
	}
	p.active[name] = struct{}{}
	defer delete(p.active, name)

	r, closer, err := p.OpenInclude(name)
	if err != nil {
		return errors.Wrapf(err, "include %q", name)
	}
	defer closer.Close()

	p.depth++
	done, err := p.parseBlocks(newScanner(r))
	p.depth--
	if err != nil {
		return errors.Wrapf(err, "include %q", name)
	}
	if done {
		return errors.Wrapf(errs.ErrBadHeader, "include %q contains &data", name)
	}
	return nil
}

// Lines adapts an io.Reader to the LineReader interface.
func Lines(r io.Reader) LineReader {
	return &bufioLines{r: bufio.NewReader(r)}
}

type bufioLines struct {
	r *bufio.Reader
}

func (b *bufioLines) ReadLine() (string, error) {
	line, err := b.r.ReadString('\n')
	line = strings.TrimRight(line, "\n")
	if err == io.EOF && line != "" {
		return line, nil
	}
	return line, err
}
