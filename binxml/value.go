package binxml

import (
	"fmt"
	"strconv"
)

// Typed value types interpreted by the decoder.
const (
	TypeString     uint8 = 0x03
	TypeIntDec     uint8 = 0x10
	TypeIntBoolean uint8 = 0x12
)

// ValueKind tells which field of a Value is meaningful.
type ValueKind int

const (
	KindOpaque ValueKind = iota
	KindString
	KindInt
	KindBool
)

func (k ValueKind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindInt:
		return "int"
	case KindBool:
		return "bool"
	default:
		return "opaque"
	}
}

// TypedValue is the raw Res_value record of an attribute.
type TypedValue struct {
	Size uint16
	Type uint8
	Data int32
}

// Value is the resolved value of an attribute. Type and Data are always set,
// Str, Int and Bool only for their kind.
type Value struct {
	Kind ValueKind
	Str  string
	Int  int32
	Bool bool
	Type uint8
	Data int32
}

func (v Value) String() string {
	switch v.Kind {
	case KindString:
		return v.Str
	case KindInt:
		return strconv.FormatInt(int64(v.Int), 10)
	case KindBool:
		return strconv.FormatBool(v.Bool)
	default:
		return fmt.Sprintf("(0x%02x)0x%08x", v.Type, uint32(v.Data))
	}
}

func (d *decoder) resolveValue(rawValue int32, tv TypedValue) (Value, error) {
	v := Value{Type: tv.Type, Data: tv.Data}
	switch tv.Type {
	case TypeString:
		s, err := d.lookup(rawValue, "attribute value")
		if err != nil {
			return Value{}, err
		}
		v.Kind, v.Str = KindString, s
	case TypeIntDec:
		v.Kind, v.Int = KindInt, tv.Data
	case TypeIntBoolean:
		// 0 is false, -1 is what aapt writes for true
		v.Kind, v.Bool = KindBool, tv.Data != 0
	}
	return v, nil
}
