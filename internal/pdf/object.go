// Package pdf implements the minimal PDF reading needed to paginate a
// scanned article: the object model, the cross-reference machinery and the
// stream filters that cover embedded page scans. It is not a general PDF
// library; anything unrelated to locating and decoding page image
// XObjects is out of scope.
package pdf

// Object is a parsed PDF object. The concrete types are Null, Bool, Int,
// Real, String, Name, Array, Dict, Ref and *Stream.
type Object interface {
	isObject()
}

// Null is the PDF null object.
type Null struct{}

// Bool is a PDF boolean.
type Bool bool

// Int is a PDF integer.
type Int int64

// Real is a PDF real number.
type Real float64

// String is a PDF string (raw bytes, not text-decoded).
type String []byte

// Name is a PDF name such as /Type.
type Name string

// Array is a PDF array.
type Array []Object

// Dict is a PDF dictionary keyed by name (without the slash).
type Dict map[Name]Object

// Ref is an indirect object reference "n g R".
type Ref struct {
	Num, Gen int
}

// Stream is a stream object: its dictionary plus the raw, still-encoded
// data bytes.
type Stream struct {
	Dict Dict
	Raw  []byte
}

func (Null) isObject()    {}
func (Bool) isObject()    {}
func (Int) isObject()     {}
func (Real) isObject()    {}
func (String) isObject()  {}
func (Name) isObject()    {}
func (Array) isObject()   {}
func (Dict) isObject()    {}
func (Ref) isObject()     {}
func (*Stream) isObject() {}

// Get returns the entry for key, or nil when absent.
func (d Dict) Get(key Name) Object {
	if d == nil {
		return nil
	}
	return d[key]
}

// Int returns the integer entry for key; ok is false when the entry is
// absent or not a number.
func (d Dict) Int(key Name) (int64, bool) {
	switch v := d.Get(key).(type) {
	case Int:
		return int64(v), true
	case Real:
		return int64(v), true
	}
	return 0, false
}

// NameValue returns the name entry for key, or "" when absent.
func (d Dict) NameValue(key Name) Name {
	if n, ok := d.Get(key).(Name); ok {
		return n
	}
	return ""
}
