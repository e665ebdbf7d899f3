package binxml

import (
	"unicode/utf16"
	"unicode/utf8"

	"github.com/bitrise-io/go-utils/log"
)

// String pool flags.
const (
	SortedFlag uint32 = 1 << 0
	UTF8Flag   uint32 = 1 << 8
)

// StringPool is the ordered table of interned strings of a document.
// Elements refer to its entries by index.
type StringPool struct {
	StyleCount uint32
	Flags      uint32

	strings []string
}

// UTF8 reports whether the pool stored its strings as UTF-8.
func (p *StringPool) UTF8() bool {
	return p != nil && p.Flags&UTF8Flag != 0
}

// Sorted reports whether the pool declared its strings as sorted.
func (p *StringPool) Sorted() bool {
	return p != nil && p.Flags&SortedFlag != 0
}

// Len returns the number of strings in the pool.
func (p *StringPool) Len() int {
	if p == nil {
		return 0
	}
	return len(p.strings)
}

// Get returns the string at index i.
func (p *StringPool) Get(i int32) (string, bool) {
	if p == nil || i < 0 || int(i) >= len(p.strings) {
		return "", false
	}
	return p.strings[i], true
}

// Strings returns a copy of the pool entries in index order.
func (p *StringPool) Strings() []string {
	if p == nil {
		return nil
	}
	return append([]string(nil), p.strings...)
}

func (d *decoder) lookup(i int32, what string) (string, error) {
	s, ok := d.pool.Get(i)
	if !ok {
		return "", newError(ErrMalformed, d.cur.pos(), "%s index %d outside string pool of %d entries", what, i, d.pool.Len())
	}
	return s, nil
}

// stringPoolFieldsSize covers string and style counts, flags and both starts.
const stringPoolFieldsSize = 5 * 4

func (d *decoder) decodeStringPool(c chunk) (*StringPool, error) {
	if c.end()-d.cur.pos() < stringPoolFieldsSize {
		return nil, newError(ErrTruncated, c.offset, "%s of %d bytes is too small", c.Type, c.Size)
	}

	stringCount, err := d.cur.readInt32()
	if err != nil {
		return nil, err
	}
	styleCount, err := d.cur.readUint32()
	if err != nil {
		return nil, err
	}
	flags, err := d.cur.readUint32()
	if err != nil {
		return nil, err
	}
	stringsStart, err := d.cur.readUint32()
	if err != nil {
		return nil, err
	}
	stylesStart, err := d.cur.readUint32()
	if err != nil {
		return nil, err
	}

	pool := &StringPool{StyleCount: styleCount, Flags: flags}

	log.Debugf("string pool: count: %d, styles: %d, flags: 0x%x, strings start: %d, styles start: %d, utf8: %t, sorted: %t",
		stringCount, styleCount, flags, stringsStart, stylesStart, pool.UTF8(), pool.Sorted())

	if stringCount < 0 {
		return nil, newError(ErrMalformed, c.offset, "negative string count %d", stringCount)
	}
	if uint64(d.cur.pos())+4*uint64(stringCount) > uint64(c.end()) {
		return nil, newError(ErrMalformed, d.cur.pos(), "%d string offsets overrun the pool chunk", stringCount)
	}

	base := c.offset + int(stringsStart)

	// All offsets are collected before any string is visited, both share the cursor.
	offsets := make([]int, 0, stringCount)
	for i := int32(0); i < stringCount; i++ {
		off, err := d.cur.readUint32()
		if err != nil {
			return nil, err
		}
		offsets = append(offsets, base+int(off))
	}

	pool.strings = make([]string, 0, len(offsets))
	for i, off := range offsets {
		if err := d.cur.seek(off); err != nil {
			return nil, err
		}

		var s string
		if pool.UTF8() {
			s, err = d.readUTF8String()
		} else {
			s, err = d.readUTF16String()
		}
		if err != nil {
			return nil, err
		}

		log.Debugf("string %d: %q", i, s)
		pool.strings = append(pool.strings, s)
	}

	if err := d.cur.seek(c.end()); err != nil {
		return nil, err
	}
	return pool, nil
}

// readUTF8Length reads one length field of a UTF-8 entry. The high bit of the
// low 16 bits marks a second field holding the low part of a long length.
func (d *decoder) readUTF8Length() (int, error) {
	length, err := d.cur.readInt32()
	if err != nil {
		return 0, err
	}
	if length&0x8000 != 0 {
		low, err := d.cur.readInt32()
		if err != nil {
			return 0, err
		}
		length = (length&0x7FFF)<<8 | low&0xFFFF
	}
	return int(length), nil
}

func (d *decoder) readUTF8String() (string, error) {
	// character count, only useful for preallocation
	if _, err := d.readUTF8Length(); err != nil {
		return "", err
	}
	size, err := d.readUTF8Length()
	if err != nil {
		return "", err
	}

	start := d.cur.pos()
	b, err := d.cur.readBytes(size)
	if err != nil {
		return "", err
	}
	if !utf8.Valid(b) {
		return "", newError(ErrInvalidEncoding, start, "string of %d bytes is not valid UTF-8", size)
	}
	return string(b), nil
}

func (d *decoder) readUTF16Length() (int, error) {
	length, err := d.cur.readUint16()
	if err != nil {
		return 0, err
	}
	if length&0x8000 == 0 {
		return int(length), nil
	}
	low, err := d.cur.readUint16()
	if err != nil {
		return 0, err
	}
	return int(length&0x7FFF)<<16 | int(low), nil
}

func (d *decoder) readUTF16String() (string, error) {
	count, err := d.readUTF16Length()
	if err != nil {
		return "", err
	}

	start := d.cur.pos()
	if count > d.cur.remaining()/2 {
		return "", newError(ErrOutOfBounds, start, "string of %d code units with %d bytes left", count, d.cur.remaining())
	}

	units := make([]uint16, count)
	for i := range units {
		if units[i], err = d.cur.readUint16(); err != nil {
			return "", err
		}
	}

	if i := unpairedSurrogate(units); i >= 0 {
		return "", newError(ErrInvalidEncoding, start+2*i, "unpaired surrogate 0x%04x", units[i])
	}
	return string(utf16.Decode(units)), nil
}

// unpairedSurrogate returns the index of the first surrogate code unit that is
// not part of a valid pair, or -1.
func unpairedSurrogate(units []uint16) int {
	for i := 0; i < len(units); i++ {
		u := units[i]
		switch {
		case u >= 0xD800 && u < 0xDC00:
			if i+1 >= len(units) || units[i+1] < 0xDC00 || units[i+1] >= 0xE000 {
				return i
			}
			i++
		case u >= 0xDC00 && u < 0xE000:
			return i
		}
	}
	return -1
}
