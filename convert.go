package typesync

import (
	"fmt"
	"reflect"
	"strconv"

	"github.com/google/uuid"
)

// Converter turns a matched URL segment into a typed value. Implementations
// additionally provide a typed conversion method named Convert with the
// shape
//
//	func (c MyConverter) Convert(segment string) (T, error)
//
// The declared T is what the generator translates for the client-side
// argument type; at runtime the method is invoked reflectively.
type Converter interface {
	// Regex returns the sub-pattern a segment must match, without anchors
	// or capture groups.
	Regex() string
}

// Built-in converter names.
const (
	ConverterString = "str"
	ConverterInt    = "int"
	ConverterFloat  = "float"
	ConverterPath   = "path"
	ConverterUUID   = "uuid"
)

// builtinConverters returns a fresh registry of the default converters.
func builtinConverters() map[string]Converter {
	return map[string]Converter{
		ConverterString: StringConverter{},
		ConverterInt:    IntConverter{},
		ConverterFloat:  FloatConverter{},
		ConverterPath:   PathConverter{},
		ConverterUUID:   UUIDConverter{},
	}
}

// StringConverter accepts any single path segment.
type StringConverter struct{}

func (StringConverter) Regex() string { return `[^/]+` }

func (StringConverter) Convert(segment string) (string, error) { return segment, nil }

// IntConverter accepts decimal integers.
type IntConverter struct{}

func (IntConverter) Regex() string { return `-?\d+` }

func (IntConverter) Convert(segment string) (int64, error) {
	v, err := strconv.ParseInt(segment, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("not an integer: %q", segment)
	}
	return v, nil
}

// FloatConverter accepts decimal floating point numbers.
type FloatConverter struct{}

func (FloatConverter) Regex() string { return `-?\d+(?:\.\d+)?` }

func (FloatConverter) Convert(segment string) (float64, error) {
	v, err := strconv.ParseFloat(segment, 64)
	if err != nil {
		return 0, fmt.Errorf("not a float: %q", segment)
	}
	return v, nil
}

// PathConverter accepts the remainder of the path, slashes included.
type PathConverter struct{}

func (PathConverter) Regex() string { return `.+?` }

func (PathConverter) Convert(segment string) (string, error) { return segment, nil }

// UUIDConverter accepts RFC 4122 UUIDs.
type UUIDConverter struct{}

func (UUIDConverter) Regex() string {
	return `[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}`
}

func (UUIDConverter) Convert(segment string) (uuid.UUID, error) {
	return uuid.Parse(segment)
}

// convertSegment invokes a converter's typed Convert method reflectively.
func convertSegment(conv Converter, segment string) (any, error) {
	m := reflect.ValueOf(conv).MethodByName("Convert")
	if !m.IsValid() {
		return segment, nil
	}
	mt := m.Type()
	if mt.NumIn() != 1 || mt.In(0).Kind() != reflect.String || mt.NumOut() != 2 {
		return nil, fmt.Errorf("converter %T: Convert must have shape func(string) (T, error)", conv)
	}

	out := m.Call([]reflect.Value{reflect.ValueOf(segment)})
	if err, ok := out[1].Interface().(error); ok && err != nil {
		return nil, err
	}
	return out[0].Interface(), nil
}
