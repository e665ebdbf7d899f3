package binxml

import (
	"fmt"

	"github.com/bitrise-io/go-utils/log"
)

// ChunkType identifies the layout of a chunk.
type ChunkType uint16

// Chunk types, see frameworks/base/libs/androidfw/include/androidfw/ResourceTypes.h
const (
	ChunkNull              ChunkType = 0x0000
	ChunkStringPool        ChunkType = 0x0001
	ChunkTable             ChunkType = 0x0002
	ChunkXML               ChunkType = 0x0003
	ChunkXMLStartNamespace ChunkType = 0x0100
	ChunkXMLEndNamespace   ChunkType = 0x0101
	ChunkXMLStartElement   ChunkType = 0x0102
	ChunkXMLEndElement     ChunkType = 0x0103
	ChunkXMLCData          ChunkType = 0x0104
	ChunkXMLResourceMap    ChunkType = 0x0180
	ChunkTablePackage      ChunkType = 0x0200
	ChunkTableType         ChunkType = 0x0201
	ChunkTableTypeSpec     ChunkType = 0x0202
	ChunkTableLibrary      ChunkType = 0x0203
)

const (
	chunkHeaderSize = 8

	// MaxDepth bounds the nesting of container chunks.
	MaxDepth = 64
)

func (t ChunkType) String() string {
	switch t {
	case ChunkNull:
		return "NULL"
	case ChunkStringPool:
		return "STRING_POOL"
	case ChunkTable:
		return "TABLE"
	case ChunkXML:
		return "XML"
	case ChunkXMLStartNamespace:
		return "XML_START_NAMESPACE"
	case ChunkXMLEndNamespace:
		return "XML_END_NAMESPACE"
	case ChunkXMLStartElement:
		return "XML_START_ELEMENT"
	case ChunkXMLEndElement:
		return "XML_END_ELEMENT"
	case ChunkXMLCData:
		return "XML_CDATA"
	case ChunkXMLResourceMap:
		return "XML_RESOURCE_MAP"
	case ChunkTablePackage:
		return "TABLE_PACKAGE"
	case ChunkTableType:
		return "TABLE_TYPE"
	case ChunkTableTypeSpec:
		return "TABLE_TYPE_SPEC"
	case ChunkTableLibrary:
		return "TABLE_LIBRARY"
	default:
		return fmt.Sprintf("0x%04x", uint16(t))
	}
}

// ChunkHeader is the common 8 byte prefix of every chunk.
type ChunkHeader struct {
	Type       ChunkType
	HeaderSize uint16
	Size       uint32
}

// chunk is a header together with the offset it was read at.
type chunk struct {
	ChunkHeader
	offset int
}

func (c chunk) end() int {
	return c.offset + int(c.Size)
}

func (c chunk) bodyStart() int {
	return c.offset + int(c.HeaderSize)
}

// decoder holds the state of one decode session.
type decoder struct {
	cur  *cursor
	pool *StringPool
	fn   ElementFunc
}

func (d *decoder) readChunkHeader(limit int) (chunk, error) {
	c := chunk{offset: d.cur.pos()}

	typ, err := d.cur.readUint16()
	if err != nil {
		return chunk{}, err
	}
	if c.HeaderSize, err = d.cur.readUint16(); err != nil {
		return chunk{}, err
	}
	if c.Size, err = d.cur.readUint32(); err != nil {
		return chunk{}, err
	}
	c.Type = ChunkType(typ)

	if c.HeaderSize < chunkHeaderSize {
		return chunk{}, newError(ErrMalformed, c.offset, "%s header size %d is below %d", c.Type, c.HeaderSize, chunkHeaderSize)
	}
	if c.Size < uint32(c.HeaderSize) {
		return chunk{}, newError(ErrMalformed, c.offset, "%s size %d is below its header size %d", c.Type, c.Size, c.HeaderSize)
	}
	if uint64(c.offset)+uint64(c.Size) > uint64(d.cur.size()) {
		return chunk{}, newError(ErrMalformed, c.offset, "%s of %d bytes overruns %d byte buffer", c.Type, c.Size, d.cur.size())
	}
	if c.end() > limit {
		return chunk{}, newError(ErrMalformed, c.offset, "%s of %d bytes overruns its container ending at 0x%x", c.Type, c.Size, limit)
	}

	return c, nil
}

// decodeChunk consumes exactly one chunk, leaving the cursor at its end.
func (d *decoder) decodeChunk(depth, limit int) error {
	if depth > MaxDepth {
		return newError(ErrMalformed, d.cur.pos(), "chunks nested deeper than %d", MaxDepth)
	}

	c, err := d.readChunkHeader(limit)
	if err != nil {
		return err
	}

	log.Debugf("chunk %s at 0x%x, header size: %d, size: %d", c.Type, c.offset, c.HeaderSize, c.Size)

	switch c.Type {
	case ChunkXML:
		if err := d.cur.seek(c.bodyStart()); err != nil {
			return err
		}
		for d.cur.pos() < c.end() {
			if err := d.decodeChunk(depth+1, c.end()); err != nil {
				return err
			}
		}
		return nil
	case ChunkStringPool:
		if d.pool != nil {
			log.Debugf("replacing string pool of %d entries", d.pool.Len())
		}
		pool, err := d.decodeStringPool(c)
		if err != nil {
			return err
		}
		d.pool = pool
		return nil
	case ChunkXMLStartElement:
		el, err := d.decodeStartElement(c)
		if err != nil {
			return err
		}
		if d.fn == nil {
			return nil
		}
		return d.fn(el)
	default:
		return d.cur.seek(c.end())
	}
}
