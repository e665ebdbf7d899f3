package binxml

import (
	"errors"
	"fmt"
)

// Manifest tags and attributes of the built-in queries.
const (
	ManifestTag         = "manifest"
	PackageAttribute    = "package"
	ApplicationTag      = "application"
	DebuggableAttribute = "debuggable"
)

// FindAttribute returns the value of attr on the first element tagged tag.
// Decoding stops at that element, so the rest of the document is not validated.
func FindAttribute(data []byte, tag, attr string) (Value, error) {
	var (
		value        Value
		foundElement bool
		foundAttr    bool
	)

	err := Decode(data, func(el *Element) error {
		if el.Name != tag {
			return nil
		}
		foundElement = true
		if a, ok := el.Attribute(attr); ok {
			value, foundAttr = a.Value, true
		}
		return ErrStop
	})
	if err != nil {
		return Value{}, err
	}

	if !foundElement {
		return Value{}, fmt.Errorf("%w: <%s>", ErrElementNotFound, tag)
	}
	if !foundAttr {
		return Value{}, fmt.Errorf("%w: %s on <%s>", ErrAttributeNotFound, attr, tag)
	}
	return value, nil
}

// PackageName returns the package attribute of the manifest element.
func PackageName(data []byte) (string, error) {
	v, err := FindAttribute(data, ManifestTag, PackageAttribute)
	if err != nil {
		return "", err
	}
	if v.Kind != KindString {
		return "", fmt.Errorf("%s attribute is not a string but %s", PackageAttribute, v.Kind)
	}
	return v.Str, nil
}

// Debuggable reports the debuggable attribute of the application element.
// An application element without a boolean debuggable attribute is not
// debuggable; a document without an application element is an
// ErrElementNotFound error.
func Debuggable(data []byte) (bool, error) {
	v, err := FindAttribute(data, ApplicationTag, DebuggableAttribute)
	if errors.Is(err, ErrAttributeNotFound) {
		return false, nil
	} else if err != nil {
		return false, err
	}
	return v.Kind == KindBool && v.Bool, nil
}
