package binxml

import (
	"encoding/binary"
	"errors"
	"testing"

	"github.com/bitrise-steplib/steps-apk-manifest-info/binxml/binxmltest"
	"github.com/stretchr/testify/require"
)

func TestDecodeChunkEndsAtChunkEnd(t *testing.T) {
	first := binxmltest.ResourceMap(0x0101000f, 0x01010003)
	second := binxmltest.EndElement(0)
	data := append(append([]byte{}, first...), second...)

	d := &decoder{cur: newCursor(data)}
	require.NoError(t, d.decodeChunk(0, len(data)))
	require.Equal(t, len(first), d.cur.pos())

	c, err := d.readChunkHeader(len(data))
	require.NoError(t, err)
	require.Equal(t, ChunkXMLEndElement, c.Type)
	require.Equal(t, len(first), c.offset)
}

func TestDecodeChunkLeafHandlersEndAtChunkEnd(t *testing.T) {
	t.Log("string pool with padding")
	{
		pool := binxmltest.StringPoolUTF16("manifest", "package")
		data := append(append([]byte{}, pool...), binxmltest.ResourceMap(1)...)

		d := &decoder{cur: newCursor(data)}
		require.NoError(t, d.decodeChunk(0, len(data)))
		require.Equal(t, len(pool), d.cur.pos())
		require.Equal(t, 2, d.pool.Len())
	}

	t.Log("start element with padded attribute records")
	{
		pool := binxmltest.StringPoolUTF16("manifest", "package", "com.example.app")
		element := binxmltest.StartElementSized(0, 28, binxmltest.StringAttr(1, 2))
		data := append(append([]byte{}, element...), binxmltest.ResourceMap(1)...)

		d := &decoder{cur: newCursor(pool)}
		require.NoError(t, d.decodeChunk(0, len(pool)))

		var got *Element
		d.cur = newCursor(data)
		d.fn = func(el *Element) error {
			got = el
			return nil
		}
		require.NoError(t, d.decodeChunk(0, len(data)))
		require.Equal(t, len(element), d.cur.pos())
		require.NotNil(t, got)
		require.Equal(t, "com.example.app", got.Attributes[0].Value.Str)
	}
}

func TestDecodeSkipsUnknownChunks(t *testing.T) {
	b := binxmltest.New()
	b.Intern("manifest")
	b.Raw(binxmltest.ResourceMap(0x0101021b, 0x0101021c))
	b.Raw(binxmltest.Chunk(uint16(ChunkXMLStartNamespace), []byte{1, 0, 0, 0, 0xff, 0xff, 0xff, 0xff}, make([]byte, 8)))
	b.Raw(binxmltest.Chunk(uint16(ChunkXMLCData), make([]byte, 8), make([]byte, 12)))
	b.Raw(binxmltest.Chunk(0x7777, nil, []byte{1, 2, 3, 4}))
	b.Start("manifest", binxmltest.String("package", "com.example.app"))
	b.End("manifest")

	doc, err := Parse(b.Bytes())
	require.NoError(t, err)
	require.Len(t, doc.Elements, 1)
	require.Equal(t, "manifest", doc.Elements[0].Name)
}

func TestDecodeChunkErrors(t *testing.T) {
	valid := binxmltest.New().Start("manifest").Bytes()

	tooLarge := append([]byte{}, valid...)
	binary.LittleEndian.PutUint32(tooLarge[4:], uint32(len(valid)+1))

	smallHeader := append([]byte{}, valid...)
	binary.LittleEndian.PutUint16(smallHeader[2:], 4)

	sizeBelowHeader := append([]byte{}, valid...)
	binary.LittleEndian.PutUint32(sizeBelowHeader[4:], 6)

	// first child chunk starts right after the 8 byte XML header
	childOverrun := append([]byte{}, valid...)
	childSize := binary.LittleEndian.Uint32(childOverrun[12:])
	binary.LittleEndian.PutUint32(childOverrun[12:], childSize+uint32(len(valid)))

	// a child declared to end past its parent even though the buffer is larger
	parentShort := binxmltest.XML(binxmltest.ResourceMap(1, 2))
	binary.LittleEndian.PutUint32(parentShort[4:], uint32(len(parentShort)-4))

	tests := []struct {
		name    string
		data    []byte
		wantErr error
	}{
		{name: "empty buffer", data: nil, wantErr: ErrTruncated},
		{name: "partial header", data: valid[:5], wantErr: ErrTruncated},
		{name: "size beyond buffer", data: tooLarge, wantErr: ErrMalformed},
		{name: "header size below 8", data: smallHeader, wantErr: ErrMalformed},
		{name: "size below header size", data: sizeBelowHeader, wantErr: ErrMalformed},
		{name: "child beyond buffer", data: childOverrun, wantErr: ErrMalformed},
		{name: "truncated body", data: valid[:len(valid)-4], wantErr: ErrMalformed},
		{name: "child beyond parent", data: parentShort, wantErr: ErrMalformed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, err := Parse(tt.data)
			require.Error(t, err)
			require.True(t, errors.Is(err, tt.wantErr), "got %v", err)
			require.Nil(t, doc)
		})
	}
}

func TestDecodeDepthLimit(t *testing.T) {
	nested := func(depth int) []byte {
		data := binxmltest.ResourceMap(1)
		for i := 0; i < depth; i++ {
			data = binxmltest.XML(data)
		}
		return data
	}

	_, err := Parse(nested(MaxDepth))
	require.NoError(t, err)

	_, err = Parse(nested(MaxDepth + 1))
	require.True(t, errors.Is(err, ErrMalformed), "got %v", err)
}

func TestChunkTypeString(t *testing.T) {
	require.Equal(t, "XML_START_ELEMENT", ChunkXMLStartElement.String())
	require.Equal(t, "TABLE_LIBRARY", ChunkTableLibrary.String())
	require.Equal(t, "0x7777", ChunkType(0x7777).String())
}
