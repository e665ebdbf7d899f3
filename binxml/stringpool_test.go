package binxml

import (
	"bytes"
	"encoding/binary"
	"errors"
	"strings"
	"testing"

	"github.com/bitrise-steplib/steps-apk-manifest-info/binxml/binxmltest"
	"github.com/stretchr/testify/require"
)

func decodePool(t *testing.T, chunk []byte) (*StringPool, error) {
	t.Helper()

	d := &decoder{cur: newCursor(chunk)}
	if err := d.decodeChunk(0, len(chunk)); err != nil {
		return nil, err
	}
	require.Equal(t, len(chunk), d.cur.pos())
	return d.pool, nil
}

func TestStringPoolRoundTrip(t *testing.T) {
	strs := []string{"manifest", "package", "com.example.app", "", "héllo wörld", "日本語", "emoji 😀"}

	tests := []struct {
		name     string
		chunk    []byte
		wantUTF8 bool
	}{
		{name: "utf-8", chunk: binxmltest.StringPoolUTF8(strs...), wantUTF8: true},
		{name: "utf-16", chunk: binxmltest.StringPoolUTF16(strs...), wantUTF8: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pool, err := decodePool(t, tt.chunk)
			require.NoError(t, err)
			require.Equal(t, tt.wantUTF8, pool.UTF8())
			require.False(t, pool.Sorted())
			require.Equal(t, strs, pool.Strings())

			s, ok := pool.Get(2)
			require.True(t, ok)
			require.Equal(t, "com.example.app", s)
		})
	}
}

func TestStringPoolLongLengths(t *testing.T) {
	require.Equal(t, []int32{0x7FFF}, binxmltest.Length8(0x7FFF))
	require.Equal(t, []int32{0x8080, 0}, binxmltest.Length8(0x8000))
	require.Equal(t, []uint16{0x7FFF}, binxmltest.Length16(0x7FFF))
	require.Equal(t, []uint16{0x8000, 0x8000}, binxmltest.Length16(0x8000))

	for _, n := range []int{0x7FFF, 0x8000, 0x9001, 0x12345} {
		long := strings.Repeat("x", n-1) + "y"

		pool, err := decodePool(t, binxmltest.StringPoolUTF8(long, "after"))
		require.NoError(t, err)
		require.Equal(t, []string{long, "after"}, pool.Strings(), "utf-8 length 0x%x", n)

		pool, err = decodePool(t, binxmltest.StringPoolUTF16(long, "after"))
		require.NoError(t, err)
		require.Equal(t, []string{long, "after"}, pool.Strings(), "utf-16 length 0x%x", n)
	}
}

func TestStringPoolInvalidEncoding(t *testing.T) {
	tests := []struct {
		name  string
		chunk []byte
	}{
		{name: "invalid utf-8", chunk: binxmltest.StringPool(true, binxmltest.UTF8Bytes(1, []byte{0xff}))},
		{name: "truncated utf-8 sequence", chunk: binxmltest.StringPool(true, binxmltest.UTF8Bytes(1, []byte{0xe6, 0x97}))},
		{name: "trailing high surrogate", chunk: binxmltest.StringPool(false, binxmltest.UTF16Units([]uint16{'a', 0xD83D}))},
		{name: "high surrogate without low", chunk: binxmltest.StringPool(false, binxmltest.UTF16Units([]uint16{0xD83D, 'a'}))},
		{name: "lone low surrogate", chunk: binxmltest.StringPool(false, binxmltest.UTF16Units([]uint16{0xDE00, 'a'}))},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := decodePool(t, tt.chunk)
			require.True(t, errors.Is(err, ErrInvalidEncoding), "got %v", err)
		})
	}
}

func TestStringPoolValidSurrogatePair(t *testing.T) {
	pool, err := decodePool(t, binxmltest.StringPool(false, binxmltest.UTF16Units([]uint16{0xD83D, 0xDE00})))
	require.NoError(t, err)
	require.Equal(t, []string{"😀"}, pool.Strings())
}

func TestStringPoolMalformed(t *testing.T) {
	var entry bytes.Buffer
	require.NoError(t, binary.Write(&entry, binary.LittleEndian, []int32{1, 100}))
	entry.WriteByte('a')
	overrun := binxmltest.StringPool(true, entry.Bytes())

	negative := binxmltest.StringPoolUTF16("a")
	binary.LittleEndian.PutUint32(negative[8:], 0xFFFFFFFF)

	tooMany := binxmltest.StringPoolUTF16("a")
	binary.LittleEndian.PutUint32(tooMany[8:], 1000)

	badOffset := binxmltest.StringPoolUTF16("a")
	binary.LittleEndian.PutUint32(badOffset[28:], 0x10000)

	tests := []struct {
		name    string
		chunk   []byte
		wantErr error
	}{
		{name: "byte length beyond buffer", chunk: overrun, wantErr: ErrOutOfBounds},
		{name: "negative string count", chunk: negative, wantErr: ErrMalformed},
		{name: "offsets beyond chunk", chunk: tooMany, wantErr: ErrMalformed},
		{name: "string offset beyond buffer", chunk: badOffset, wantErr: ErrOutOfBounds},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := decodePool(t, tt.chunk)
			require.True(t, errors.Is(err, tt.wantErr), "got %v", err)
		})
	}
}

func TestStringPoolFlags(t *testing.T) {
	chunk := binxmltest.StringPoolUTF8("a", "b")
	flags := binary.LittleEndian.Uint32(chunk[16:])
	binary.LittleEndian.PutUint32(chunk[16:], flags|SortedFlag)

	pool, err := decodePool(t, chunk)
	require.NoError(t, err)
	require.True(t, pool.Sorted())
	require.True(t, pool.UTF8())
}

func TestStringPoolGet(t *testing.T) {
	var nilPool *StringPool
	_, ok := nilPool.Get(0)
	require.False(t, ok)
	require.Equal(t, 0, nilPool.Len())
	require.Nil(t, nilPool.Strings())

	pool := &StringPool{strings: []string{"a"}}
	_, ok = pool.Get(-1)
	require.False(t, ok)
	_, ok = pool.Get(1)
	require.False(t, ok)
	s, ok := pool.Get(0)
	require.True(t, ok)
	require.Equal(t, "a", s)
}
