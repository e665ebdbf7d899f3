// Package binxmltest builds synthetic Android binary XML documents for tests.
package binxmltest

import (
	"bytes"
	"encoding/binary"
	"unicode/utf16"
)

// Chunk types and value types, duplicated so this package does not depend on binxml.
const (
	TypeStringPool   uint16 = 0x0001
	TypeXML          uint16 = 0x0003
	TypeStartNS      uint16 = 0x0100
	TypeEndNS        uint16 = 0x0101
	TypeStartElement uint16 = 0x0102
	TypeEndElement   uint16 = 0x0103
	TypeResourceMap  uint16 = 0x0180

	ValueString  uint8 = 0x03
	ValueIntDec  uint8 = 0x10
	ValueBoolean uint8 = 0x12

	utf8Flag uint32 = 1 << 8
)

// NoIndex is the string pool reference meaning "none".
const NoIndex int32 = -1

func put(buf *bytes.Buffer, v interface{}) {
	// writes to a bytes.Buffer only fail on unsupported types
	if err := binary.Write(buf, binary.LittleEndian, v); err != nil {
		panic(err)
	}
}

// Chunk frames header (the type specific header fields) and body with a chunk
// header of the given type.
func Chunk(typ uint16, header, body []byte) []byte {
	var buf bytes.Buffer
	put(&buf, typ)
	put(&buf, uint16(8+len(header)))
	put(&buf, uint32(8+len(header)+len(body)))
	buf.Write(header)
	buf.Write(body)
	return buf.Bytes()
}

// XML frames children in an XML document chunk.
func XML(children ...[]byte) []byte {
	return Chunk(TypeXML, nil, bytes.Join(children, nil))
}

// ResourceMap returns a resource map chunk.
func ResourceMap(ids ...uint32) []byte {
	var body bytes.Buffer
	for _, id := range ids {
		put(&body, id)
	}
	return Chunk(TypeResourceMap, nil, body.Bytes())
}

// EndElement returns an end element chunk for the tag at index name.
func EndElement(name int32) []byte {
	var header, body bytes.Buffer
	put(&header, int32(1))
	put(&header, NoIndex)
	put(&body, NoIndex)
	put(&body, name)
	return Chunk(TypeEndElement, header.Bytes(), body.Bytes())
}

// Length16 encodes a UTF-16 entry length, spilling into two fields above 0x7FFF.
func Length16(n int) []uint16 {
	if n <= 0x7FFF {
		return []uint16{uint16(n)}
	}
	return []uint16{0x8000 | uint16(n>>16), uint16(n & 0xFFFF)}
}

// Length8 encodes a UTF-8 entry length field, spilling into two fields above 0x7FFF.
func Length8(n int) []int32 {
	if n <= 0x7FFF {
		return []int32{int32(n)}
	}
	return []int32{0x8000 | int32(n>>8), int32(n & 0xFF)}
}

// UTF16Entry encodes s as a UTF-16 pool entry.
func UTF16Entry(s string) []byte {
	return UTF16Units(utf16.Encode([]rune(s)))
}

// UTF16Units encodes raw code units as a UTF-16 pool entry. Unlike
// UTF16Entry it can produce invalid text.
func UTF16Units(units []uint16) []byte {
	var buf bytes.Buffer
	put(&buf, Length16(len(units)))
	put(&buf, units)
	put(&buf, uint16(0))
	return buf.Bytes()
}

// UTF8Entry encodes s as a UTF-8 pool entry.
func UTF8Entry(s string) []byte {
	return UTF8Bytes(len([]rune(s)), []byte(s))
}

// UTF8Bytes encodes raw bytes as a UTF-8 pool entry declaring chars characters.
func UTF8Bytes(chars int, b []byte) []byte {
	var buf bytes.Buffer
	put(&buf, Length8(chars))
	put(&buf, Length8(len(b)))
	buf.Write(b)
	buf.WriteByte(0)
	return buf.Bytes()
}

// StringPool frames already encoded entries in a string pool chunk.
func StringPool(utf8 bool, entries ...[]byte) []byte {
	var flags uint32
	if utf8 {
		flags = utf8Flag
	}

	var offsets, data bytes.Buffer
	for _, e := range entries {
		put(&offsets, uint32(data.Len()))
		data.Write(e)
	}
	for data.Len()%4 != 0 {
		data.WriteByte(0)
	}

	headerSize := 8 + 5*4
	var header bytes.Buffer
	put(&header, uint32(len(entries)))
	put(&header, uint32(0))
	put(&header, flags)
	put(&header, uint32(headerSize+offsets.Len()))
	put(&header, uint32(0))

	return Chunk(TypeStringPool, header.Bytes(), append(offsets.Bytes(), data.Bytes()...))
}

// StringPoolUTF16 returns a UTF-16 string pool holding strs in order.
func StringPoolUTF16(strs ...string) []byte {
	entries := make([][]byte, 0, len(strs))
	for _, s := range strs {
		entries = append(entries, UTF16Entry(s))
	}
	return StringPool(false, entries...)
}

// StringPoolUTF8 returns a UTF-8 string pool holding strs in order.
func StringPoolUTF8(strs ...string) []byte {
	entries := make([][]byte, 0, len(strs))
	for _, s := range strs {
		entries = append(entries, UTF8Entry(s))
	}
	return StringPool(true, entries...)
}

// Attr is a raw attribute record.
type Attr struct {
	Namespace int32
	Name      int32
	RawValue  int32
	Type      uint8
	Data      int32
}

// StringAttr is a string typed attribute referencing pool entry value.
func StringAttr(name, value int32) Attr {
	return Attr{Namespace: NoIndex, Name: name, RawValue: value, Type: ValueString, Data: value}
}

// IntAttr is a decimal integer attribute.
func IntAttr(name, value int32) Attr {
	return Attr{Namespace: NoIndex, Name: name, RawValue: NoIndex, Type: ValueIntDec, Data: value}
}

// BoolAttr is a boolean attribute encoded the way aapt does it.
func BoolAttr(name int32, value bool) Attr {
	a := Attr{Namespace: NoIndex, Name: name, RawValue: NoIndex, Type: ValueBoolean}
	if value {
		a.Data = -1
	}
	return a
}

func (a Attr) bytes() []byte {
	var buf bytes.Buffer
	put(&buf, a.Namespace)
	put(&buf, a.Name)
	put(&buf, a.RawValue)
	put(&buf, uint16(8))
	put(&buf, uint8(0))
	put(&buf, a.Type)
	put(&buf, a.Data)
	return buf.Bytes()
}

// StartElement returns a start element chunk for the tag at index name.
func StartElement(name int32, attrs ...Attr) []byte {
	return StartElementSized(name, 20, attrs...)
}

// StartElementSized is StartElement with a custom declared attribute size.
// Records larger than 20 bytes are zero padded.
func StartElementSized(name int32, attrSize uint16, attrs ...Attr) []byte {
	var header, body bytes.Buffer
	put(&header, int32(1))
	put(&header, NoIndex)

	put(&body, NoIndex)
	put(&body, name)
	put(&body, uint16(20))
	put(&body, attrSize)
	put(&body, uint16(len(attrs)))
	put(&body, [3]uint16{})
	for _, a := range attrs {
		rec := a.bytes()
		body.Write(rec)
		for i := len(rec); i < int(attrSize); i++ {
			body.WriteByte(0)
		}
	}
	return Chunk(TypeStartElement, header.Bytes(), body.Bytes())
}

// Attribute is an attribute of a Builder element, named by text.
type Attribute struct {
	Name  string
	Type  uint8
	Data  int32
	Value string
}

// String is a string attribute.
func String(name, value string) Attribute {
	return Attribute{Name: name, Type: ValueString, Value: value}
}

// Int is a decimal integer attribute.
func Int(name string, value int32) Attribute {
	return Attribute{Name: name, Type: ValueIntDec, Data: value}
}

// Bool is a boolean attribute.
func Bool(name string, value bool) Attribute {
	a := Attribute{Name: name, Type: ValueBoolean}
	if value {
		a.Data = -1
	}
	return a
}

// Opaque is an attribute with an uninterpreted value type.
func Opaque(name string, typ uint8, data int32) Attribute {
	return Attribute{Name: name, Type: typ, Data: data}
}

// Builder assembles a whole document, interning every tag and attribute
// string into a single pool written before the elements.
type Builder struct {
	utf8     bool
	strings  []string
	index    map[string]int32
	children [][]byte
}

// New returns a Builder writing a UTF-16 string pool.
func New() *Builder {
	return &Builder{index: map[string]int32{}}
}

// UTF8 switches the pool to UTF-8.
func (b *Builder) UTF8() *Builder {
	b.utf8 = true
	return b
}

// Intern returns the pool index of s, adding it if needed.
func (b *Builder) Intern(s string) int32 {
	if i, ok := b.index[s]; ok {
		return i
	}
	i := int32(len(b.strings))
	b.strings = append(b.strings, s)
	b.index[s] = i
	return i
}

// Start appends a start element.
func (b *Builder) Start(tag string, attrs ...Attribute) *Builder {
	name := b.Intern(tag)
	raw := make([]Attr, 0, len(attrs))
	for _, a := range attrs {
		r := Attr{Namespace: NoIndex, Name: b.Intern(a.Name), RawValue: NoIndex, Type: a.Type, Data: a.Data}
		if a.Type == ValueString {
			r.RawValue = b.Intern(a.Value)
			r.Data = r.RawValue
		}
		raw = append(raw, r)
	}
	b.children = append(b.children, StartElement(name, raw...))
	return b
}

// End appends an end element.
func (b *Builder) End(tag string) *Builder {
	b.children = append(b.children, EndElement(b.Intern(tag)))
	return b
}

// Raw appends an already encoded chunk.
func (b *Builder) Raw(chunk []byte) *Builder {
	b.children = append(b.children, chunk)
	return b
}

// Bytes returns the encoded document.
func (b *Builder) Bytes() []byte {
	pool := StringPoolUTF16(b.strings...)
	if b.utf8 {
		pool = StringPoolUTF8(b.strings...)
	}
	return XML(append([][]byte{pool}, b.children...)...)
}
