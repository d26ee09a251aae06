package pdf

import (
	"bytes"
	"compress/zlib"
	"fmt"
	"io"
	"strconv"
)

// imageFilter reports whether name is a codec that encodes a complete
// raster image rather than a byte transform. Those are decoded by the
// caller with an image codec, not here.
func imageFilter(name Name) bool {
	switch name {
	case "DCTDecode", "CCITTFaxDecode", "JPXDecode", "JBIG2Decode":
		return true
	}
	return false
}

// filterChain resolves the stream's /Filter and /DecodeParms into
// parallel slices, normalizing the single-filter shorthand.
func (f *File) filterChain(s *Stream) ([]Name, []Dict, error) {
	filterObj, err := f.Resolve(s.Dict.Get("Filter"))
	if err != nil {
		return nil, nil, err
	}
	parmsObj, err := f.Resolve(s.Dict.Get("DecodeParms"))
	if err != nil {
		return nil, nil, err
	}

	var names []Name
	switch v := filterObj.(type) {
	case nil, Null:
	case Name:
		names = []Name{v}
	case Array:
		for _, entry := range v {
			resolved, err := f.Resolve(entry)
			if err != nil {
				return nil, nil, err
			}
			name, ok := resolved.(Name)
			if !ok {
				return nil, nil, fmt.Errorf("%w: filter entry is not a name", ErrMalformed)
			}
			names = append(names, name)
		}
	default:
		return nil, nil, fmt.Errorf("%w: bad /Filter %T", ErrMalformed, filterObj)
	}

	parms := make([]Dict, len(names))
	switch v := parmsObj.(type) {
	case nil, Null:
	case Dict:
		if len(parms) > 0 {
			parms[0] = v
		}
	case Array:
		for i, entry := range v {
			if i >= len(parms) {
				break
			}
			resolved, err := f.Resolve(entry)
			if err != nil {
				return nil, nil, err
			}
			if dict, ok := resolved.(Dict); ok {
				parms[i] = dict
			}
		}
	}
	return names, parms, nil
}

// DecodeStream applies the stream's byte-transform filters and returns
// the result together with any unapplied image codecs left at the end of
// the chain.
func (f *File) DecodeStream(s *Stream) (data []byte, remaining []Name, remainingParms []Dict, err error) {
	names, parms, err := f.filterChain(s)
	if err != nil {
		return nil, nil, nil, err
	}
	data = s.Raw
	for i, name := range names {
		if imageFilter(name) {
			return data, names[i:], parms[i:], nil
		}
		data, err = f.applyFilter(name, parms[i], data)
		if err != nil {
			return nil, nil, nil, err
		}
	}
	return data, nil, nil, nil
}

// DecodedStream fully decodes a stream, failing on image codecs.
func (f *File) DecodedStream(s *Stream) ([]byte, error) {
	data, remaining, _, err := f.DecodeStream(s)
	if err != nil {
		return nil, err
	}
	if len(remaining) > 0 {
		return nil, fmt.Errorf("%w: cannot decode %s stream as bytes", ErrMalformed, remaining[0])
	}
	return data, nil
}

func (f *File) applyFilter(name Name, parms Dict, data []byte) ([]byte, error) {
	switch name {
	case "FlateDecode", "Fl":
		r, err := zlib.NewReader(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("%w: flate stream: %v", ErrMalformed, err)
		}
		defer r.Close()
		out, err := io.ReadAll(r)
		if err != nil {
			return nil, fmt.Errorf("%w: flate stream: %v", ErrMalformed, err)
		}
		return f.applyPredictor(parms, out)
	case "ASCIIHexDecode", "AHx":
		return asciiHexDecode(data)
	default:
		return nil, fmt.Errorf("%w: unsupported filter %s", ErrMalformed, name)
	}
}

func asciiHexDecode(data []byte) ([]byte, error) {
	var digits []byte
	for _, c := range data {
		if isWhitespace(c) {
			continue
		}
		if c == '>' {
			break
		}
		digits = append(digits, c)
	}
	if len(digits)%2 == 1 {
		digits = append(digits, '0')
	}
	out := make([]byte, len(digits)/2)
	for i := range out {
		v, err := strconv.ParseUint(string(digits[2*i:2*i+2]), 16, 8)
		if err != nil {
			return nil, fmt.Errorf("%w: bad hex digit in ASCIIHexDecode data", ErrMalformed)
		}
		out[i] = byte(v)
	}
	return out, nil
}

// applyPredictor undoes the PNG (10..15) or TIFF (2) predictor named by
// the decode parms. Predictor 1 and a missing dictionary are identity.
func (f *File) applyPredictor(parms Dict, data []byte) ([]byte, error) {
	if parms == nil {
		return data, nil
	}
	predictor, ok := parms.Int("Predictor")
	if !ok || predictor <= 1 {
		return data, nil
	}

	columns := int64(1)
	if v, ok := parms.Int("Columns"); ok {
		columns = v
	}
	colors := int64(1)
	if v, ok := parms.Int("Colors"); ok {
		colors = v
	}
	bits := int64(8)
	if v, ok := parms.Int("BitsPerComponent"); ok {
		bits = v
	}
	bytesPerPixel := int((colors*bits + 7) / 8)
	rowLength := int((columns*colors*bits + 7) / 8)
	if rowLength <= 0 {
		return nil, fmt.Errorf("%w: bad predictor columns", ErrMalformed)
	}

	if predictor == 2 {
		if bits != 8 {
			return nil, fmt.Errorf("%w: TIFF predictor with %d bits unsupported", ErrMalformed, bits)
		}
		for row := 0; row+rowLength <= len(data); row += rowLength {
			for i := bytesPerPixel; i < rowLength; i++ {
				data[row+i] += data[row+i-bytesPerPixel]
			}
		}
		return data, nil
	}

	// PNG predictors prefix each row with a per-row filter type byte.
	stride := rowLength + 1
	if len(data)%stride != 0 {
		return nil, fmt.Errorf("%w: predictor data not a whole number of rows", ErrMalformed)
	}
	rows := len(data) / stride
	out := make([]byte, rows*rowLength)
	prev := make([]byte, rowLength)
	for r := 0; r < rows; r++ {
		filterType := data[r*stride]
		row := data[r*stride+1 : (r+1)*stride]
		cur := out[r*rowLength : (r+1)*rowLength]
		copy(cur, row)
		switch filterType {
		case 0: // None
		case 1: // Sub
			for i := bytesPerPixel; i < rowLength; i++ {
				cur[i] += cur[i-bytesPerPixel]
			}
		case 2: // Up
			for i := 0; i < rowLength; i++ {
				cur[i] += prev[i]
			}
		case 3: // Average
			for i := 0; i < rowLength; i++ {
				left := 0
				if i >= bytesPerPixel {
					left = int(cur[i-bytesPerPixel])
				}
				cur[i] += byte((left + int(prev[i])) / 2)
			}
		case 4: // Paeth
			for i := 0; i < rowLength; i++ {
				var left, upLeft byte
				if i >= bytesPerPixel {
					left = cur[i-bytesPerPixel]
					upLeft = prev[i-bytesPerPixel]
				}
				cur[i] += paeth(left, prev[i], upLeft)
			}
		default:
			return nil, fmt.Errorf("%w: unknown PNG filter type %d", ErrMalformed, filterType)
		}
		prev = cur
	}
	return out, nil
}

func paeth(a, b, c byte) byte {
	p := int(a) + int(b) - int(c)
	pa, pb, pc := abs(p-int(a)), abs(p-int(b)), abs(p-int(c))
	if pa <= pb && pa <= pc {
		return a
	}
	if pb <= pc {
		return b
	}
	return c
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
