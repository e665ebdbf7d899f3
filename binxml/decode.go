// Package binxml decodes Android binary XML, the chunked format AndroidManifest.xml
// is stored in inside an APK.
//
// A document is a tree of chunks, each starting with a type, a header size and a
// total size. Text lives in a string pool chunk and is referenced by index from
// the element chunks that follow it. Decode walks the tree and hands every start
// element, with its attributes resolved, to a callback.
package binxml

import (
	"errors"

	"github.com/bitrise-io/go-utils/log"
)

// ElementFunc is called for every start element in document order. Returning
// ErrStop ends decoding successfully, any other error aborts it.
type ElementFunc func(*Element) error

// Decode decodes the binary XML document in data. It either succeeds or fails
// as a whole: the first malformed chunk aborts decoding with a *DecodeError.
func Decode(data []byte, fn ElementFunc) error {
	_, err := decode(data, fn)
	return err
}

func decode(data []byte, fn ElementFunc) (*StringPool, error) {
	d := &decoder{cur: newCursor(data), fn: fn}

	if err := d.decodeChunk(0, len(data)); err != nil {
		if errors.Is(err, ErrStop) {
			return d.pool, nil
		}
		return nil, err
	}

	if d.cur.remaining() > 0 {
		log.Debugf("%d trailing bytes after the root chunk", d.cur.remaining())
	}
	return d.pool, nil
}

// Document is a fully decoded binary XML document.
type Document struct {
	Strings  []string
	Elements []*Element
}

// Parse decodes every start element of data.
func Parse(data []byte) (*Document, error) {
	doc := &Document{}
	pool, err := decode(data, func(el *Element) error {
		doc.Elements = append(doc.Elements, el)
		return nil
	})
	if err != nil {
		return nil, err
	}
	doc.Strings = pool.Strings()
	return doc, nil
}

// Element returns the first element tagged name.
func (doc *Document) Element(name string) (*Element, bool) {
	for _, el := range doc.Elements {
		if el.Name == name {
			return el, true
		}
	}
	return nil, false
}
