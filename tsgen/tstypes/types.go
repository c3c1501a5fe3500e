// Package tstypes defines the TypeScript type representations produced by
// translation. Values are immutable; equality is structural and rendering is
// deterministic, so generated output is stable across runs.
package tstypes

import "strings"

// Kind identifies the category of a TypeScript type.
type Kind int

const (
	KindSimple Kind = iota // Primitive or keyword type (string, number, null, ...)
	KindArray              // T[]
	KindTuple              // [T1, T2, ...]
	KindUnion              // T1 | T2 | ...
	KindObject             // { name: T, other?: U }
	KindRecord             // Record<K, V>
)

// signal is the reserved marker emitted for a variadic-tuple continuation.
// It only ever appears as the last element of a two-element tuple, where the
// base translator collapses the tuple to an array of the first element.
const signal = "..."

// Type is a renderable TypeScript type expression.
type Type interface {
	// Kind returns the type kind for switching.
	Kind() Kind

	// Render returns the inline TypeScript syntax for this type.
	Render() string

	// Equal reports whether this type is structurally equal to other.
	Equal(other Type) bool
}

// Simple is a primitive or keyword type.
type Simple struct {
	Name string
}

func (s Simple) Kind() Kind     { return KindSimple }
func (s Simple) Render() string { return s.Name }

func (s Simple) Equal(other Type) bool {
	o, ok := other.(Simple)
	return ok && o.Name == s.Name
}

// Common simple types.
func String() Simple    { return Simple{Name: "string"} }
func Number() Simple    { return Simple{Name: "number"} }
func Boolean() Simple   { return Simple{Name: "boolean"} }
func Null() Simple      { return Simple{Name: "null"} }
func Any() Simple       { return Simple{Name: "any"} }
func Never() Simple     { return Simple{Name: "never"} }
func Unknown() Simple   { return Simple{Name: "unknown"} }
func Undefined() Simple { return Simple{Name: "undefined"} }
func ObjectType() Simple { return Simple{Name: "object"} }

// Signal returns the reserved tuple-continuation marker.
func Signal() Simple { return Simple{Name: signal} }

// IsSignal reports whether t is the reserved tuple-continuation marker.
func IsSignal(t Type) bool {
	s, ok := t.(Simple)
	return ok && s.Name == signal
}

// Literal is a string literal type ("pending", "active", ...).
type Literal struct {
	Value string
}

func (l Literal) Kind() Kind     { return KindSimple }
func (l Literal) Render() string { return `"` + l.Value + `"` }

func (l Literal) Equal(other Type) bool {
	o, ok := other.(Literal)
	return ok && o.Value == l.Value
}

// Array is an ordered collection of a single element type.
type Array struct {
	Elem Type
}

func (a Array) Kind() Kind { return KindArray }

func (a Array) Render() string {
	if needsParens(a.Elem) {
		return "(" + a.Elem.Render() + ")[]"
	}
	return a.Elem.Render() + "[]"
}

func (a Array) Equal(other Type) bool {
	o, ok := other.(Array)
	return ok && a.Elem.Equal(o.Elem)
}

// Tuple is a fixed-length sequence of types.
type Tuple struct {
	Elems []Type
}

func (t Tuple) Kind() Kind { return KindTuple }

func (t Tuple) Render() string {
	parts := make([]string, len(t.Elems))
	for i, e := range t.Elems {
		parts[i] = e.Render()
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

func (t Tuple) Equal(other Type) bool {
	o, ok := other.(Tuple)
	if !ok || len(o.Elems) != len(t.Elems) {
		return false
	}
	for i := range t.Elems {
		if !t.Elems[i].Equal(o.Elems[i]) {
			return false
		}
	}
	return true
}

// Union is a union of member types. Order is preserved as written.
type Union struct {
	Types []Type
}

func (u Union) Kind() Kind { return KindUnion }

func (u Union) Render() string {
	parts := make([]string, len(u.Types))
	for i, t := range u.Types {
		parts[i] = t.Render()
	}
	return strings.Join(parts, " | ")
}

func (u Union) Equal(other Type) bool {
	o, ok := other.(Union)
	if !ok || len(o.Types) != len(u.Types) {
		return false
	}
	for i := range u.Types {
		if !u.Types[i].Equal(o.Types[i]) {
			return false
		}
	}
	return true
}

// ObjectField is one named member of an Object, in declaration order.
type ObjectField struct {
	Name     string
	Type     Type
	Required bool
}

// Object is a structural record with ordered, named fields.
type Object struct {
	Fields []ObjectField
}

// NewObject builds an Object from parallel name/type slices with every field
// required. Used where the source shape has no optionality information.
func NewObject(names []string, types []Type) Object {
	fields := make([]ObjectField, len(names))
	for i := range names {
		fields[i] = ObjectField{Name: names[i], Type: types[i], Required: true}
	}
	return Object{Fields: fields}
}

func (o Object) Kind() Kind { return KindObject }

func (o Object) Render() string {
	if len(o.Fields) == 0 {
		return "{}"
	}
	var b strings.Builder
	b.WriteString("{ ")
	for i, f := range o.Fields {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(f.Name)
		if !f.Required {
			b.WriteString("?")
		}
		b.WriteString(": ")
		b.WriteString(f.Type.Render())
	}
	b.WriteString(" }")
	return b.String()
}

func (o Object) Equal(other Type) bool {
	ot, ok := other.(Object)
	if !ok || len(ot.Fields) != len(o.Fields) {
		return false
	}
	for i := range o.Fields {
		a, b := o.Fields[i], ot.Fields[i]
		if a.Name != b.Name || a.Required != b.Required || !a.Type.Equal(b.Type) {
			return false
		}
	}
	return true
}

// Record is a keyed map type, rendered as Record<K, V>.
type Record struct {
	Key   Type
	Value Type
}

func (r Record) Kind() Kind { return KindRecord }

func (r Record) Render() string {
	return "Record<" + r.Key.Render() + ", " + r.Value.Render() + ">"
}

func (r Record) Equal(other Type) bool {
	o, ok := other.(Record)
	return ok && r.Key.Equal(o.Key) && r.Value.Equal(o.Value)
}

// needsParens reports whether t must be parenthesized when used as an array
// element type (unions bind looser than the [] suffix).
func needsParens(t Type) bool {
	return t != nil && t.Kind() == KindUnion
}
