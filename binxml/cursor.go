package binxml

import "encoding/binary"

// cursor reads little-endian fields from a fixed, read-only buffer.
type cursor struct {
	buf []byte
	off int
}

func newCursor(buf []byte) *cursor {
	return &cursor{buf: buf}
}

func (c *cursor) pos() int {
	return c.off
}

func (c *cursor) size() int {
	return len(c.buf)
}

func (c *cursor) remaining() int {
	return len(c.buf) - c.off
}

func (c *cursor) seek(off int) error {
	if off < 0 || off > len(c.buf) {
		return newError(ErrOutOfBounds, c.off, "seek to 0x%x in %d byte buffer", off, len(c.buf))
	}
	c.off = off
	return nil
}

func (c *cursor) take(n int) ([]byte, error) {
	if c.remaining() < n {
		return nil, newError(ErrTruncated, c.off, "need %d bytes, %d left", n, c.remaining())
	}
	b := c.buf[c.off : c.off+n]
	c.off += n
	return b, nil
}

func (c *cursor) readUint8() (uint8, error) {
	b, err := c.take(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func (c *cursor) readInt8() (int8, error) {
	v, err := c.readUint8()
	return int8(v), err
}

func (c *cursor) readUint16() (uint16, error) {
	b, err := c.take(2)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(b), nil
}

func (c *cursor) readInt16() (int16, error) {
	v, err := c.readUint16()
	return int16(v), err
}

func (c *cursor) readUint32() (uint32, error) {
	b, err := c.take(4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

func (c *cursor) readInt32() (int32, error) {
	v, err := c.readUint32()
	return int32(v), err
}

// readBytes returns the next n bytes without copying them.
func (c *cursor) readBytes(n int) ([]byte, error) {
	if n < 0 || c.remaining() < n {
		return nil, newError(ErrOutOfBounds, c.off, "read of %d bytes with %d left", n, c.remaining())
	}
	return c.take(n)
}
