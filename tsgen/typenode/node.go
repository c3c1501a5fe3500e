// Package typenode defines the normalized tree form of a type expression and
// the generic binding environment threaded through translation.
//
// A Node is pure data: it captures the unparameterized origin of a type, the
// type parameters the origin declares, the generic arguments supplied at a
// use site, the ordered fields of a structural record, and the right-hand
// side of a type alias. Nodes are immutable values with structural equality.
package typenode

import (
	"strings"

	"github.com/ArmindoFlores/typesync/tsgen/tstypes"
)

// Kind identifies the unparameterized base identity of a node's origin.
type Kind int

const (
	KindInvalid Kind = iota

	// Primitive markers
	KindString
	KindInt
	KindFloat
	KindBool
	KindNil
	KindAny
	KindNever
	KindEllipsis // variadic-tuple continuation sentinel

	// Composite kinds
	KindList
	KindTuple
	KindMap
	KindUnion
	KindOptional // not-required marker wrapping a record field's type
	KindFunc     // a callable producing Args[0]; never invoked automatically

	// Named kinds
	KindRecord    // structural record type (struct identity)
	KindAlias     // type alias identity; Value holds the aliased expression
	KindEnum      // string const group; Args are KindLiteral members
	KindLiteral   // literal string; Origin.Name is the value
	KindTypeParam // generic type parameter; Origin.Name is the identifier
	KindResponse  // the framework's typed response wrapper
)

var kindNames = map[Kind]string{
	KindString: "string", KindInt: "int", KindFloat: "float", KindBool: "bool",
	KindNil: "nil", KindAny: "any", KindNever: "never", KindEllipsis: "...",
	KindList: "list", KindTuple: "tuple", KindMap: "map", KindUnion: "union",
	KindOptional: "optional", KindFunc: "func", KindRecord: "record",
	KindAlias: "alias", KindEnum: "enum", KindLiteral: "literal",
	KindTypeParam: "typeparam", KindResponse: "response",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return "invalid"
}

// Origin is the unparameterized base type identity of a node.
type Origin struct {
	Kind Kind

	// Name qualifies named origins: the type name for records, aliases and
	// enums, the parameter identifier for type parameters, and the literal
	// value for literal-string origins.
	Name string

	// Pkg is the import path of named origins, empty otherwise.
	Pkg string
}

// Field is one named member of a record origin, in declared order.
type Field struct {
	Name string
	Type *Node
}

// Node is one node of a type expression tree.
type Node struct {
	Origin Origin

	// Params are the type-parameter identifiers declared by Origin itself.
	Params []string

	// Args are the generic arguments supplied at this use site.
	Args []*Node

	// Fields are the declared fields when Origin is a record type.
	Fields []Field

	// Value is the aliased expression when Origin is a type alias. It may
	// reference Params.
	Value *Node
}

// Primitive constructors.

func Prim(k Kind) *Node      { return &Node{Origin: Origin{Kind: k}} }
func StringNode() *Node      { return Prim(KindString) }
func IntNode() *Node         { return Prim(KindInt) }
func FloatNode() *Node       { return Prim(KindFloat) }
func BoolNode() *Node        { return Prim(KindBool) }
func NilNode() *Node         { return Prim(KindNil) }
func AnyNode() *Node         { return Prim(KindAny) }
func NeverNode() *Node       { return Prim(KindNever) }
func EllipsisNode() *Node    { return Prim(KindEllipsis) }

// Composite constructors.

// List returns a list node; call with no argument node for the bare,
// unparameterized list kind.
func List(elem ...*Node) *Node {
	return &Node{Origin: Origin{Kind: KindList}, Args: elem}
}

// TupleOf returns a fixed tuple node of the given elements; an empty call
// yields the bare tuple kind.
func TupleOf(elems ...*Node) *Node {
	return &Node{Origin: Origin{Kind: KindTuple}, Args: elems}
}

// MapOf returns a keyed-map node; call with no arguments for the bare,
// unparameterized map kind.
func MapOf(kv ...*Node) *Node {
	return &Node{Origin: Origin{Kind: KindMap}, Args: kv}
}

// UnionOf returns a union node of the given members.
func UnionOf(members ...*Node) *Node {
	return &Node{Origin: Origin{Kind: KindUnion}, Args: members}
}

// Optional wraps a field's type in the not-required marker.
func Optional(inner *Node) *Node {
	return &Node{Origin: Origin{Kind: KindOptional}, Args: []*Node{inner}}
}

// FuncOf returns a node standing for a callable that produces ret.
func FuncOf(ret *Node) *Node {
	if ret == nil {
		ret = NilNode()
	}
	return &Node{Origin: Origin{Kind: KindFunc}, Args: []*Node{ret}}
}

// Named constructors.

// Literal returns a literal-string node.
func Literal(value string) *Node {
	return &Node{Origin: Origin{Kind: KindLiteral, Name: value}}
}

// Enum returns a string-enumeration node with the given literal members.
func Enum(name, pkg string, members ...string) *Node {
	args := make([]*Node, len(members))
	for i, m := range members {
		args[i] = Literal(m)
	}
	return &Node{Origin: Origin{Kind: KindEnum, Name: name, Pkg: pkg}, Args: args}
}

// TypeParam returns a type-parameter node for the given identifier.
func TypeParam(name string) *Node {
	return &Node{Origin: Origin{Kind: KindTypeParam, Name: name}}
}

// Response returns a framework response-wrapper node around arg.
func Response(arg *Node) *Node {
	return &Node{Origin: Origin{Kind: KindResponse, Name: "Response"}, Args: []*Node{arg}}
}

// Alias returns an alias node. params are the alias's declared type
// parameters, args the use-site arguments and value the aliased expression.
func Alias(name, pkg string, params []string, args []*Node, value *Node) *Node {
	return &Node{
		Origin: Origin{Kind: KindAlias, Name: name, Pkg: pkg},
		Params: params,
		Args:   args,
		Value:  value,
	}
}

// Record returns a record node with declared fields.
func Record(name, pkg string, params []string, args []*Node, fields []Field) *Node {
	return &Node{
		Origin: Origin{Kind: KindRecord, Name: name, Pkg: pkg},
		Params: params,
		Args:   args,
		Fields: fields,
	}
}

// Equal reports structural equality of two nodes. Nil nodes compare equal
// only to nil nodes.
func (n *Node) Equal(other *Node) bool {
	if n == nil || other == nil {
		return n == other
	}
	if n.Origin != other.Origin {
		return false
	}
	if len(n.Params) != len(other.Params) ||
		len(n.Args) != len(other.Args) ||
		len(n.Fields) != len(other.Fields) {
		return false
	}
	for i := range n.Params {
		if n.Params[i] != other.Params[i] {
			return false
		}
	}
	for i := range n.Args {
		if !n.Args[i].Equal(other.Args[i]) {
			return false
		}
	}
	for i := range n.Fields {
		if n.Fields[i].Name != other.Fields[i].Name ||
			!n.Fields[i].Type.Equal(other.Fields[i].Type) {
			return false
		}
	}
	return n.Value.Equal(other.Value)
}

// String renders a compact debug form of the node tree.
func (n *Node) String() string {
	if n == nil {
		return "<nil>"
	}
	var b strings.Builder
	b.WriteString("<")
	b.WriteString(n.Origin.Kind.String())
	if n.Origin.Name != "" {
		b.WriteString(" ")
		b.WriteString(n.Origin.Name)
	}
	if len(n.Params) > 0 {
		b.WriteString(" params=[")
		b.WriteString(strings.Join(n.Params, ", "))
		b.WriteString("]")
	}
	if len(n.Args) > 0 {
		b.WriteString(" args=[")
		for i, a := range n.Args {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(a.String())
		}
		b.WriteString("]")
	}
	if len(n.Fields) > 0 {
		b.WriteString(" fields={")
		for i, f := range n.Fields {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(f.Name)
			b.WriteString(": ")
			b.WriteString(f.Type.String())
		}
		b.WriteString("}")
	}
	if n.Value != nil {
		b.WriteString(" value=")
		b.WriteString(n.Value.String())
	}
	b.WriteString(">")
	return b.String()
}

// IsOptional reports whether the node is wrapped in the not-required marker.
func (n *Node) IsOptional() bool {
	return n != nil && n.Origin.Kind == KindOptional
}

// Unwrap returns the inner node of an optional marker, or the node itself.
func (n *Node) Unwrap() *Node {
	if n.IsOptional() && len(n.Args) == 1 {
		return n.Args[0]
	}
	return n
}

// Binding is the generic binding environment: a mapping from type-parameter
// identifier to the translated type bound at one alias-unwrapping or record
// instantiation step. A Binding is never mutated once constructed; each
// unwrapping step produces a new one whose parent is the caller's
// environment. The nil Binding is valid and empty.
type Binding struct {
	vals   map[string]tstypes.Type
	parent *Binding
}

// NewBinding zips params against resolved types, with parent as the fallback
// environment for parameters left unresolved. Excess params are skipped.
func NewBinding(params []string, resolved []tstypes.Type, parent *Binding) *Binding {
	vals := make(map[string]tstypes.Type, len(params))
	for i, p := range params {
		if i >= len(resolved) || resolved[i] == nil {
			continue
		}
		vals[p] = resolved[i]
	}
	return &Binding{vals: vals, parent: parent}
}

// Lookup resolves a type parameter, consulting parent environments.
func (b *Binding) Lookup(name string) (tstypes.Type, bool) {
	for env := b; env != nil; env = env.parent {
		if t, ok := env.vals[name]; ok {
			return t, true
		}
	}
	return nil, false
}
