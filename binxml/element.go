package binxml

import "github.com/bitrise-io/go-utils/log"

const (
	// line number, comment, namespace, name and six 16 bit fields
	startElementFieldsSize = 4*4 + 6*2
	// namespace, name, raw value and typed value
	attributeRecordSize = 20
)

// Attribute is one attribute of a start element.
type Attribute struct {
	Namespace  int32
	NameIndex  int32
	Name       string
	RawValue   int32
	TypedValue TypedValue
	Value      Value
}

// Element is a decoded XML start tag.
type Element struct {
	LineNumber int32
	Comment    int32
	Namespace  int32
	Name       string
	Attributes []Attribute
}

// Attribute returns the first attribute called name.
func (e *Element) Attribute(name string) (Attribute, bool) {
	for _, attr := range e.Attributes {
		if attr.Name == name {
			return attr, true
		}
	}
	return Attribute{}, false
}

func (d *decoder) decodeStartElement(c chunk) (*Element, error) {
	if c.end()-d.cur.pos() < startElementFieldsSize {
		return nil, newError(ErrTruncated, c.offset, "%s of %d bytes is too small", c.Type, c.Size)
	}

	el := &Element{}

	var err error
	if el.LineNumber, err = d.cur.readInt32(); err != nil {
		return nil, err
	}
	if el.Comment, err = d.cur.readInt32(); err != nil {
		return nil, err
	}
	if el.Namespace, err = d.cur.readInt32(); err != nil {
		return nil, err
	}
	nameIdx, err := d.cur.readInt32()
	if err != nil {
		return nil, err
	}
	if el.Name, err = d.lookup(nameIdx, "tag name"); err != nil {
		return nil, err
	}

	// attribute start, size, count followed by id, class and style indexes
	var fields [6]uint16
	for i := range fields {
		if fields[i], err = d.cur.readUint16(); err != nil {
			return nil, err
		}
	}
	attributeStart, attributeSize, attributeCount := int(fields[0]), int(fields[1]), int(fields[2])

	log.Debugf("start element %s: line: %d, namespace: %d, attributes: %d (start: %d, size: %d)",
		el.Name, el.LineNumber, el.Namespace, attributeCount, attributeStart, attributeSize)

	stride := attributeSize
	if stride < attributeRecordSize {
		stride = attributeRecordSize
	}

	base := c.bodyStart() + attributeStart
	if attributeCount > 0 {
		if last := base + (attributeCount-1)*stride + attributeRecordSize; last > c.end() {
			return nil, newError(ErrTruncated, c.offset, "%d attributes of %d bytes overrun %s ending at 0x%x", attributeCount, stride, c.Type, c.end())
		}
	}

	el.Attributes = make([]Attribute, 0, attributeCount)
	for i := 0; i < attributeCount; i++ {
		if err := d.cur.seek(base + i*stride); err != nil {
			return nil, err
		}
		attr, err := d.decodeAttribute()
		if err != nil {
			return nil, err
		}

		log.Debugf("attribute %s(%d) = %s %s", attr.Name, attr.NameIndex, attr.Value.Kind, attr.Value)
		el.Attributes = append(el.Attributes, attr)
	}

	if err := d.cur.seek(c.end()); err != nil {
		return nil, err
	}
	return el, nil
}

func (d *decoder) decodeAttribute() (Attribute, error) {
	var (
		attr Attribute
		err  error
	)

	if attr.Namespace, err = d.cur.readInt32(); err != nil {
		return Attribute{}, err
	}
	if attr.NameIndex, err = d.cur.readInt32(); err != nil {
		return Attribute{}, err
	}
	if attr.Name, err = d.lookup(attr.NameIndex, "attribute name"); err != nil {
		return Attribute{}, err
	}
	if attr.RawValue, err = d.cur.readInt32(); err != nil {
		return Attribute{}, err
	}

	if attr.TypedValue.Size, err = d.cur.readUint16(); err != nil {
		return Attribute{}, err
	}
	if _, err = d.cur.readInt8(); err != nil { // res0, always 0
		return Attribute{}, err
	}
	if attr.TypedValue.Type, err = d.cur.readUint8(); err != nil {
		return Attribute{}, err
	}
	if attr.TypedValue.Data, err = d.cur.readInt32(); err != nil {
		return Attribute{}, err
	}

	if attr.Value, err = d.resolveValue(attr.RawValue, attr.TypedValue); err != nil {
		return Attribute{}, err
	}
	return attr, nil
}
