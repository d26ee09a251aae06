package pdf

import (
	"errors"
	"fmt"
	"strconv"
)

// ErrMalformed indicates a structurally broken PDF file.
var ErrMalformed = errors.New("pdf: malformed file")

// parser is a recursive-descent parser over the raw file bytes. It needs
// the owning File to resolve an indirect /Length when reading stream data.
type parser struct {
	data []byte
	pos  int
	file *File
}

func isWhitespace(c byte) bool {
	switch c {
	case 0, '\t', '\n', '\f', '\r', ' ':
		return true
	}
	return false
}

func isDelimiter(c byte) bool {
	switch c {
	case '(', ')', '<', '>', '[', ']', '{', '}', '/', '%':
		return true
	}
	return false
}

// skipSpace advances past whitespace and comments.
func (p *parser) skipSpace() {
	for p.pos < len(p.data) {
		c := p.data[p.pos]
		if isWhitespace(c) {
			p.pos++
			continue
		}
		if c == '%' {
			for p.pos < len(p.data) && p.data[p.pos] != '\n' && p.data[p.pos] != '\r' {
				p.pos++
			}
			continue
		}
		return
	}
}

// token reads a bare token: a run of regular characters.
func (p *parser) token() string {
	start := p.pos
	for p.pos < len(p.data) && !isWhitespace(p.data[p.pos]) && !isDelimiter(p.data[p.pos]) {
		p.pos++
	}
	return string(p.data[start:p.pos])
}

// parseObject parses the next object at the current position.
func (p *parser) parseObject() (Object, error) {
	p.skipSpace()
	if p.pos >= len(p.data) {
		return nil, fmt.Errorf("%w: unexpected end of data", ErrMalformed)
	}

	switch c := p.data[p.pos]; {
	case c == '/':
		return p.parseName()
	case c == '(':
		return p.parseLiteralString()
	case c == '<':
		if p.pos+1 < len(p.data) && p.data[p.pos+1] == '<' {
			return p.parseDictOrStream()
		}
		return p.parseHexString()
	case c == '[':
		return p.parseArray()
	case c == '+' || c == '-' || c == '.' || (c >= '0' && c <= '9'):
		return p.parseNumberOrRef()
	default:
		switch keyword := p.token(); keyword {
		case "true":
			return Bool(true), nil
		case "false":
			return Bool(false), nil
		case "null":
			return Null{}, nil
		default:
			return nil, fmt.Errorf("%w: unexpected token %q at offset %d", ErrMalformed, keyword, p.pos)
		}
	}
}

func (p *parser) parseName() (Name, error) {
	p.pos++ // consume '/'
	start := p.pos
	for p.pos < len(p.data) && !isWhitespace(p.data[p.pos]) && !isDelimiter(p.data[p.pos]) {
		p.pos++
	}
	name := p.data[start:p.pos]

	// #xx escapes are rare in the dictionaries we read but cheap to honor.
	if idx := indexByte(name, '#'); idx >= 0 {
		decoded := make([]byte, 0, len(name))
		for i := 0; i < len(name); i++ {
			if name[i] == '#' && i+2 < len(name) {
				if v, err := strconv.ParseUint(string(name[i+1:i+3]), 16, 8); err == nil {
					decoded = append(decoded, byte(v))
					i += 2
					continue
				}
			}
			decoded = append(decoded, name[i])
		}
		name = decoded
	}
	return Name(name), nil
}

func indexByte(b []byte, c byte) int {
	for i, v := range b {
		if v == c {
			return i
		}
	}
	return -1
}

func (p *parser) parseLiteralString() (String, error) {
	p.pos++ // consume '('
	var out []byte
	depth := 1
	for p.pos < len(p.data) {
		c := p.data[p.pos]
		p.pos++
		switch c {
		case '\\':
			if p.pos >= len(p.data) {
				return nil, fmt.Errorf("%w: unterminated string escape", ErrMalformed)
			}
			e := p.data[p.pos]
			p.pos++
			switch e {
			case 'n':
				out = append(out, '\n')
			case 'r':
				out = append(out, '\r')
			case 't':
				out = append(out, '\t')
			case 'b':
				out = append(out, '\b')
			case 'f':
				out = append(out, '\f')
			default:
				out = append(out, e)
			}
		case '(':
			depth++
			out = append(out, c)
		case ')':
			depth--
			if depth == 0 {
				return String(out), nil
			}
			out = append(out, c)
		default:
			out = append(out, c)
		}
	}
	return nil, fmt.Errorf("%w: unterminated string", ErrMalformed)
}

func (p *parser) parseHexString() (String, error) {
	p.pos++ // consume '<'
	var digits []byte
	for p.pos < len(p.data) && p.data[p.pos] != '>' {
		c := p.data[p.pos]
		p.pos++
		if isWhitespace(c) {
			continue
		}
		digits = append(digits, c)
	}
	if p.pos >= len(p.data) {
		return nil, fmt.Errorf("%w: unterminated hex string", ErrMalformed)
	}
	p.pos++ // consume '>'
	if len(digits)%2 == 1 {
		digits = append(digits, '0')
	}
	out := make([]byte, len(digits)/2)
	for i := range out {
		v, err := strconv.ParseUint(string(digits[2*i:2*i+2]), 16, 8)
		if err != nil {
			return nil, fmt.Errorf("%w: bad hex string digit", ErrMalformed)
		}
		out[i] = byte(v)
	}
	return String(out), nil
}

func (p *parser) parseArray() (Array, error) {
	p.pos++ // consume '['
	var arr Array
	for {
		p.skipSpace()
		if p.pos >= len(p.data) {
			return nil, fmt.Errorf("%w: unterminated array", ErrMalformed)
		}
		if p.data[p.pos] == ']' {
			p.pos++
			return arr, nil
		}
		obj, err := p.parseObject()
		if err != nil {
			return nil, err
		}
		arr = append(arr, obj)
	}
}

func (p *parser) parseDict() (Dict, error) {
	p.pos += 2 // consume '<<'
	dict := make(Dict)
	for {
		p.skipSpace()
		if p.pos+1 < len(p.data) && p.data[p.pos] == '>' && p.data[p.pos+1] == '>' {
			p.pos += 2
			return dict, nil
		}
		if p.pos >= len(p.data) {
			return nil, fmt.Errorf("%w: unterminated dictionary", ErrMalformed)
		}
		if p.data[p.pos] != '/' {
			return nil, fmt.Errorf("%w: dictionary key is not a name at offset %d", ErrMalformed, p.pos)
		}
		key, err := p.parseName()
		if err != nil {
			return nil, err
		}
		value, err := p.parseObject()
		if err != nil {
			return nil, err
		}
		dict[key] = value
	}
}

// parseDictOrStream parses a dictionary and, when followed by the stream
// keyword, the raw stream data delimited by its /Length.
func (p *parser) parseDictOrStream() (Object, error) {
	dict, err := p.parseDict()
	if err != nil {
		return nil, err
	}

	save := p.pos
	p.skipSpace()
	if p.token() != "stream" {
		p.pos = save
		return dict, nil
	}

	// The keyword is followed by CRLF or LF.
	if p.pos < len(p.data) && p.data[p.pos] == '\r' {
		p.pos++
	}
	if p.pos < len(p.data) && p.data[p.pos] == '\n' {
		p.pos++
	}

	length, err := p.streamLength(dict)
	if err != nil {
		return nil, err
	}
	if p.pos+length > len(p.data) {
		return nil, fmt.Errorf("%w: stream length %d overruns file", ErrMalformed, length)
	}
	raw := p.data[p.pos : p.pos+length]
	p.pos += length

	p.skipSpace()
	if kw := p.token(); kw != "endstream" {
		return nil, fmt.Errorf("%w: expected endstream, got %q", ErrMalformed, kw)
	}
	return &Stream{Dict: dict, Raw: raw}, nil
}

// streamLength resolves /Length, following an indirect reference through
// the owning file.
func (p *parser) streamLength(dict Dict) (int, error) {
	obj := dict.Get("Length")
	if ref, ok := obj.(Ref); ok {
		if p.file == nil {
			return 0, fmt.Errorf("%w: indirect stream length without file context", ErrMalformed)
		}
		resolved, err := p.file.Resolve(ref)
		if err != nil {
			return 0, err
		}
		obj = resolved
	}
	if n, ok := obj.(Int); ok && n >= 0 {
		return int(n), nil
	}
	return 0, fmt.Errorf("%w: bad stream length %v", ErrMalformed, obj)
}

// parseNumberOrRef parses a number, upgrading "n g R" into an indirect
// reference when the lookahead matches.
func (p *parser) parseNumberOrRef() (Object, error) {
	first, isInt, err := p.parseNumber()
	if err != nil {
		return nil, err
	}
	if !isInt || first.(Int) < 0 {
		return first, nil
	}

	save := p.pos
	p.skipSpace()
	if p.pos >= len(p.data) || p.data[p.pos] < '0' || p.data[p.pos] > '9' {
		p.pos = save
		return first, nil
	}
	second, secondInt, err := p.parseNumber()
	if err != nil || !secondInt {
		p.pos = save
		return first, nil
	}
	p.skipSpace()
	if p.pos < len(p.data) && p.data[p.pos] == 'R' {
		next := p.pos + 1
		if next >= len(p.data) || isWhitespace(p.data[next]) || isDelimiter(p.data[next]) {
			p.pos = next
			return Ref{Num: int(first.(Int)), Gen: int(second.(Int))}, nil
		}
	}
	p.pos = save
	return first, nil
}

func (p *parser) parseNumber() (Object, bool, error) {
	p.skipSpace()
	start := p.pos
	if p.pos < len(p.data) && (p.data[p.pos] == '+' || p.data[p.pos] == '-') {
		p.pos++
	}
	isReal := false
	for p.pos < len(p.data) {
		c := p.data[p.pos]
		if c >= '0' && c <= '9' {
			p.pos++
			continue
		}
		if c == '.' && !isReal {
			isReal = true
			p.pos++
			continue
		}
		break
	}
	text := string(p.data[start:p.pos])
	if text == "" || text == "+" || text == "-" || text == "." {
		return nil, false, fmt.Errorf("%w: bad number at offset %d", ErrMalformed, start)
	}
	if isReal {
		v, err := strconv.ParseFloat(text, 64)
		if err != nil {
			return nil, false, fmt.Errorf("%w: bad number %q", ErrMalformed, text)
		}
		return Real(v), false, nil
	}
	v, err := strconv.ParseInt(text, 10, 64)
	if err != nil {
		return nil, false, fmt.Errorf("%w: bad number %q", ErrMalformed, text)
	}
	return Int(v), true, nil
}

// parseIndirectObject parses "n g obj ... endobj" at the given offset.
func (p *parser) parseIndirectObject(offset int64) (int, Object, error) {
	if offset < 0 || offset >= int64(len(p.data)) {
		return 0, nil, fmt.Errorf("%w: object offset %d out of range", ErrMalformed, offset)
	}
	p.pos = int(offset)

	numObj, isInt, err := p.parseNumber()
	if err != nil || !isInt {
		return 0, nil, fmt.Errorf("%w: expected object number at offset %d", ErrMalformed, offset)
	}
	if _, _, err := p.parseNumber(); err != nil {
		return 0, nil, fmt.Errorf("%w: expected generation number at offset %d", ErrMalformed, offset)
	}
	p.skipSpace()
	if kw := p.token(); kw != "obj" {
		return 0, nil, fmt.Errorf("%w: expected obj keyword, got %q", ErrMalformed, kw)
	}

	obj, err := p.parseObject()
	if err != nil {
		return 0, nil, err
	}
	return int(numObj.(Int)), obj, nil
}
