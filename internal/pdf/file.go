package pdf

import (
	"bytes"
	"fmt"
	"os"
)

// xrefEntry locates one object, either directly in the file or inside an
// object stream.
type xrefEntry struct {
	offset    int64
	inStream  bool
	streamNum int
	streamIdx int
}

// File is a parsed PDF document. It resolves indirect references lazily
// and caches what it has already parsed.
type File struct {
	data    []byte
	xref    map[int]xrefEntry
	trailer Dict
	cache   map[int]Object
}

// Open reads and parses the PDF file at path.
func Open(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("pdf: reading %s: %w", path, err)
	}
	return NewFile(data)
}

// NewFile parses a PDF document from its raw bytes.
func NewFile(data []byte) (*File, error) {
	if !bytes.HasPrefix(data, []byte("%PDF-")) {
		return nil, fmt.Errorf("%w: missing %%PDF header", ErrMalformed)
	}
	f := &File{
		data:  data,
		xref:  make(map[int]xrefEntry),
		cache: make(map[int]Object),
	}

	start, err := f.findStartXref()
	if err != nil {
		return nil, err
	}
	seen := make(map[int64]bool)
	for offset := start; offset >= 0; {
		if seen[offset] {
			return nil, fmt.Errorf("%w: xref offset cycle at %d", ErrMalformed, offset)
		}
		seen[offset] = true
		next, err := f.readXrefSection(offset)
		if err != nil {
			return nil, err
		}
		offset = next
	}
	if f.trailer == nil {
		return nil, fmt.Errorf("%w: no trailer", ErrMalformed)
	}
	return f, nil
}

// Trailer returns the document trailer dictionary.
func (f *File) Trailer() Dict { return f.trailer }

// Catalog resolves the document catalog from the trailer's /Root entry.
func (f *File) Catalog() (Dict, error) {
	root, err := f.Resolve(f.trailer.Get("Root"))
	if err != nil {
		return nil, err
	}
	dict, ok := root.(Dict)
	if !ok {
		return nil, fmt.Errorf("%w: catalog is not a dictionary", ErrMalformed)
	}
	return dict, nil
}

// findStartXref scans the file tail for the startxref offset.
func (f *File) findStartXref() (int64, error) {
	tail := f.data
	if len(tail) > 1024 {
		tail = tail[len(tail)-1024:]
	}
	idx := bytes.LastIndex(tail, []byte("startxref"))
	if idx < 0 {
		return 0, fmt.Errorf("%w: startxref not found", ErrMalformed)
	}
	p := &parser{data: tail, pos: idx + len("startxref"), file: f}
	obj, isInt, err := p.parseNumber()
	if err != nil || !isInt {
		return 0, fmt.Errorf("%w: bad startxref offset", ErrMalformed)
	}
	return int64(obj.(Int)), nil
}

// readXrefSection reads the cross-reference section at offset, which is
// either a classic table followed by a trailer or an xref stream. It
// returns the /Prev offset or -1 when the chain ends.
func (f *File) readXrefSection(offset int64) (int64, error) {
	if offset < 0 || offset >= int64(len(f.data)) {
		return 0, fmt.Errorf("%w: xref offset %d out of range", ErrMalformed, offset)
	}
	p := &parser{data: f.data, pos: int(offset), file: f}
	p.skipSpace()
	if bytes.HasPrefix(f.data[p.pos:], []byte("xref")) {
		return f.readXrefTable(p)
	}
	return f.readXrefStream(p, offset)
}

func (f *File) readXrefTable(p *parser) (int64, error) {
	p.pos += len("xref")
	for {
		p.skipSpace()
		if bytes.HasPrefix(f.data[p.pos:], []byte("trailer")) {
			p.pos += len("trailer")
			break
		}
		startObj, isInt, err := p.parseNumber()
		if err != nil || !isInt {
			return 0, fmt.Errorf("%w: bad xref subsection header", ErrMalformed)
		}
		count, isInt, err := p.parseNumber()
		if err != nil || !isInt {
			return 0, fmt.Errorf("%w: bad xref subsection count", ErrMalformed)
		}
		for i := int64(0); i < int64(count.(Int)); i++ {
			num := int(startObj.(Int)) + int(i)
			entryOffset, isInt, err := p.parseNumber()
			if err != nil || !isInt {
				return 0, fmt.Errorf("%w: bad xref entry for object %d", ErrMalformed, num)
			}
			if _, _, err := p.parseNumber(); err != nil {
				return 0, fmt.Errorf("%w: bad xref generation for object %d", ErrMalformed, num)
			}
			p.skipSpace()
			if p.pos >= len(p.data) {
				return 0, fmt.Errorf("%w: truncated xref table", ErrMalformed)
			}
			kind := p.data[p.pos]
			p.pos++
			if kind == 'n' {
				f.addEntry(num, xrefEntry{offset: int64(entryOffset.(Int))})
			}
		}
	}

	trailer, err := p.parseObject()
	if err != nil {
		return 0, err
	}
	dict, ok := trailer.(Dict)
	if !ok {
		return 0, fmt.Errorf("%w: trailer is not a dictionary", ErrMalformed)
	}
	f.mergeTrailer(dict)

	// Hybrid-reference files carry compressed entries in a parallel
	// xref stream.
	if stm, ok := dict.Int("XRefStm"); ok {
		sp := &parser{data: f.data, pos: 0, file: f}
		if _, err := f.readXrefStream(sp, stm); err != nil {
			return 0, err
		}
	}
	if prev, ok := dict.Int("Prev"); ok {
		return prev, nil
	}
	return -1, nil
}

func (f *File) readXrefStream(p *parser, offset int64) (int64, error) {
	_, obj, err := p.parseIndirectObject(offset)
	if err != nil {
		return 0, err
	}
	stream, ok := obj.(*Stream)
	if !ok {
		return 0, fmt.Errorf("%w: xref stream at %d is not a stream", ErrMalformed, offset)
	}
	f.mergeTrailer(stream.Dict)

	data, err := f.DecodedStream(stream)
	if err != nil {
		return 0, err
	}

	widths, ok := stream.Dict.Get("W").(Array)
	if !ok || len(widths) < 3 {
		return 0, fmt.Errorf("%w: xref stream missing /W", ErrMalformed)
	}
	var w [3]int
	for i := 0; i < 3; i++ {
		n, ok := widths[i].(Int)
		if !ok || n < 0 {
			return 0, fmt.Errorf("%w: bad /W entry", ErrMalformed)
		}
		w[i] = int(n)
	}
	rowSize := w[0] + w[1] + w[2]
	if rowSize == 0 {
		return 0, fmt.Errorf("%w: empty /W", ErrMalformed)
	}

	size, ok := stream.Dict.Int("Size")
	if !ok {
		return 0, fmt.Errorf("%w: xref stream missing /Size", ErrMalformed)
	}
	index := []int64{0, size}
	if arr, ok := stream.Dict.Get("Index").(Array); ok {
		index = index[:0]
		for _, v := range arr {
			n, ok := v.(Int)
			if !ok {
				return 0, fmt.Errorf("%w: bad /Index entry", ErrMalformed)
			}
			index = append(index, int64(n))
		}
	}

	pos := 0
	field := func(width int) int64 {
		var v int64
		for i := 0; i < width; i++ {
			v = v<<8 | int64(data[pos])
			pos++
		}
		return v
	}
	for i := 0; i+1 < len(index); i += 2 {
		first, count := index[i], index[i+1]
		for j := int64(0); j < count; j++ {
			if pos+rowSize > len(data) {
				return 0, fmt.Errorf("%w: truncated xref stream", ErrMalformed)
			}
			kind := int64(1)
			if w[0] > 0 {
				kind = field(w[0])
			}
			second := field(w[1])
			third := field(w[2])
			num := int(first + j)
			switch kind {
			case 1:
				f.addEntry(num, xrefEntry{offset: second})
			case 2:
				f.addEntry(num, xrefEntry{inStream: true, streamNum: int(second), streamIdx: int(third)})
			}
		}
	}

	if prev, ok := stream.Dict.Int("Prev"); ok {
		return prev, nil
	}
	return -1, nil
}

// addEntry records an object location. Sections are read newest first, so
// an existing entry wins over one from an earlier revision.
func (f *File) addEntry(num int, e xrefEntry) {
	if _, ok := f.xref[num]; !ok {
		f.xref[num] = e
	}
}

func (f *File) mergeTrailer(dict Dict) {
	if f.trailer == nil {
		f.trailer = make(Dict)
	}
	for k, v := range dict {
		if _, ok := f.trailer[k]; !ok {
			f.trailer[k] = v
		}
	}
}

// Resolve follows indirect references until it reaches a direct object.
func (f *File) Resolve(obj Object) (Object, error) {
	for depth := 0; depth < 32; depth++ {
		ref, ok := obj.(Ref)
		if !ok {
			return obj, nil
		}
		resolved, err := f.object(ref.Num)
		if err != nil {
			return nil, err
		}
		obj = resolved
	}
	return nil, fmt.Errorf("%w: reference chain too deep", ErrMalformed)
}

// ResolveDict resolves obj and asserts it is a dictionary.
func (f *File) ResolveDict(obj Object) (Dict, error) {
	resolved, err := f.Resolve(obj)
	if err != nil {
		return nil, err
	}
	dict, ok := resolved.(Dict)
	if !ok {
		if s, ok := resolved.(*Stream); ok {
			return s.Dict, nil
		}
		return nil, fmt.Errorf("%w: expected dictionary, got %T", ErrMalformed, resolved)
	}
	return dict, nil
}

func (f *File) object(num int) (Object, error) {
	if obj, ok := f.cache[num]; ok {
		return obj, nil
	}
	entry, ok := f.xref[num]
	if !ok {
		return Null{}, nil
	}

	var obj Object
	if entry.inStream {
		loaded, err := f.objectFromStream(entry.streamNum, entry.streamIdx)
		if err != nil {
			return nil, err
		}
		obj = loaded
	} else {
		p := &parser{data: f.data, file: f}
		gotNum, parsed, err := p.parseIndirectObject(entry.offset)
		if err != nil {
			return nil, err
		}
		if gotNum != num {
			return nil, fmt.Errorf("%w: xref points object %d at object %d", ErrMalformed, num, gotNum)
		}
		obj = parsed
	}
	f.cache[num] = obj
	return obj, nil
}

// objectFromStream extracts the idx-th object from an object stream.
func (f *File) objectFromStream(streamNum, idx int) (Object, error) {
	container, err := f.object(streamNum)
	if err != nil {
		return nil, err
	}
	stream, ok := container.(*Stream)
	if !ok {
		return nil, fmt.Errorf("%w: object stream %d is not a stream", ErrMalformed, streamNum)
	}
	data, err := f.DecodedStream(stream)
	if err != nil {
		return nil, err
	}
	count, ok := stream.Dict.Int("N")
	if !ok {
		return nil, fmt.Errorf("%w: object stream missing /N", ErrMalformed)
	}
	first, ok := stream.Dict.Int("First")
	if !ok {
		return nil, fmt.Errorf("%w: object stream missing /First", ErrMalformed)
	}
	if idx < 0 || int64(idx) >= count {
		return nil, fmt.Errorf("%w: object index %d out of range", ErrMalformed, idx)
	}

	// The header is count pairs of "objnum offset".
	p := &parser{data: data, file: f}
	var objOffset int64 = -1
	for i := int64(0); i < count; i++ {
		if _, _, err := p.parseNumber(); err != nil {
			return nil, fmt.Errorf("%w: bad object stream header", ErrMalformed)
		}
		off, isInt, err := p.parseNumber()
		if err != nil || !isInt {
			return nil, fmt.Errorf("%w: bad object stream header", ErrMalformed)
		}
		if i == int64(idx) {
			objOffset = first + int64(off.(Int))
		}
	}
	if objOffset < 0 || objOffset >= int64(len(data)) {
		return nil, fmt.Errorf("%w: object stream offset out of range", ErrMalformed)
	}
	p.pos = int(objOffset)
	return p.parseObject()
}
