package typenode

import (
	"go/types"
	"reflect"
	"strings"
)

// responsePkgPath is the import path of the framework root package, used to
// recognize the typed Response wrapper.
const responsePkgPath = "github.com/ArmindoFlores/typesync"

// Resolver supplies contextual information the pure type walk cannot see on
// its own: which named string types form literal enumerations (scanned from
// const groups by the provider).
type Resolver struct {
	// Enums maps a named type's key (pkgpath.Name) to its ordered literal
	// string members.
	Enums map[string][]string
}

// EnumMembers returns the literal members of a named type, if it was
// identified as a string enumeration.
func (r *Resolver) EnumMembers(obj *types.TypeName) ([]string, bool) {
	if r == nil || obj == nil || obj.Pkg() == nil {
		return nil, false
	}
	members, ok := r.Enums[obj.Pkg().Path()+"."+obj.Name()]
	return members, ok
}

// FromType converts a go/types type expression into its normalized node
// tree. The conversion is total: shapes with no node representation become
// the universal any node. res may be nil.
func FromType(t types.Type, res *Resolver) *Node {
	c := &converter{res: res, active: make(map[*types.TypeName]bool)}
	return c.convert(t, false)
}

type converter struct {
	res *Resolver

	// active guards against self-referential named types: a record or alias
	// revisited during its own expansion converts to any, keeping trees
	// finite.
	active map[*types.TypeName]bool
}

// convert maps one type. field is true when converting a struct field's
// declared type, where pointers mean "not required" rather than "nullable".
func (c *converter) convert(t types.Type, field bool) *Node {
	if t == nil {
		return AnyNode()
	}

	switch typ := t.(type) {
	case *types.Basic:
		return c.convertBasic(typ)

	case *types.Alias:
		return c.convertAlias(typ)

	case *types.Named:
		return c.convertNamed(typ)

	case *types.Pointer:
		inner := c.convert(typ.Elem(), false)
		if field {
			return Optional(inner)
		}
		return UnionOf(inner, NilNode())

	case *types.Slice:
		return List(c.convert(typ.Elem(), false))

	case *types.Array:
		elems := make([]*Node, typ.Len())
		for i := range elems {
			elems[i] = c.convert(typ.Elem(), false)
		}
		return TupleOf(elems...)

	case *types.Map:
		return MapOf(c.convert(typ.Key(), false), c.convert(typ.Elem(), false))

	case *types.Interface:
		return c.convertInterface(typ)

	case *types.TypeParam:
		return TypeParam(typ.Obj().Name())

	case *types.Signature:
		return FuncOf(c.resultNode(typ))

	case *types.Tuple:
		elems := make([]*Node, typ.Len())
		for i := range elems {
			elems[i] = c.convert(typ.At(i).Type(), false)
		}
		return TupleOf(elems...)

	case *types.Union:
		members := make([]*Node, typ.Len())
		for i := range members {
			members[i] = c.convert(typ.Term(i).Type(), false)
		}
		return UnionOf(members...)

	default:
		// Channels, unsafe pointers and friends have no JSON shape.
		return AnyNode()
	}
}

func (c *converter) convertBasic(b *types.Basic) *Node {
	switch b.Kind() {
	case types.Bool, types.UntypedBool:
		return BoolNode()
	case types.String, types.UntypedString:
		return StringNode()
	case types.Int, types.Int8, types.Int16, types.Int32, types.Int64,
		types.Uint, types.Uint8, types.Uint16, types.Uint32, types.Uint64,
		types.Uintptr, types.UntypedInt, types.UntypedRune:
		return IntNode()
	case types.Float32, types.Float64, types.UntypedFloat:
		return FloatNode()
	case types.UntypedNil:
		return NilNode()
	default:
		return AnyNode()
	}
}

// convertAlias converts a (possibly generic) type alias into an alias node
// whose Value is the origin's right-hand side, still referencing the alias's
// own type parameters.
func (c *converter) convertAlias(a *types.Alias) *Node {
	obj := a.Obj()
	if c.active[obj] {
		return AnyNode()
	}
	c.active[obj] = true
	defer delete(c.active, obj)

	origin := a.Origin()
	params := typeParamNames(origin.TypeParams())

	var args []*Node
	if ta := a.TypeArgs(); ta != nil {
		args = make([]*Node, ta.Len())
		for i := range args {
			args[i] = c.convert(ta.At(i), false)
		}
	}

	pkg := ""
	if obj.Pkg() != nil {
		pkg = obj.Pkg().Path()
	}
	return Alias(obj.Name(), pkg, params, args, c.convert(origin.Rhs(), false))
}

func (c *converter) convertNamed(n *types.Named) *Node {
	obj := n.Obj()
	pkg := ""
	if obj.Pkg() != nil {
		pkg = obj.Pkg().Path()
	}

	// The typed response wrapper is carried through as its own origin so the
	// response translator can strip it.
	if pkg == responsePkgPath && obj.Name() == "Response" {
		args := make([]*Node, 0, 1)
		if ta := n.TypeArgs(); ta != nil {
			for i := 0; i < ta.Len(); i++ {
				args = append(args, c.convert(ta.At(i), false))
			}
		}
		return &Node{Origin: Origin{Kind: KindResponse, Name: "Response", Pkg: pkg}, Args: args}
	}

	if members, ok := c.res.EnumMembers(obj); ok {
		return Enum(obj.Name(), pkg, members...)
	}

	if c.active[obj] {
		return AnyNode()
	}

	if st, ok := n.Origin().Underlying().(*types.Struct); ok {
		c.active[obj] = true
		defer delete(c.active, obj)

		params := typeParamNames(n.Origin().TypeParams())
		var args []*Node
		if ta := n.TypeArgs(); ta != nil {
			args = make([]*Node, ta.Len())
			for i := range args {
				args[i] = c.convert(ta.At(i), false)
			}
		}
		return Record(obj.Name(), pkg, params, args, c.convertFields(st))
	}

	// Named non-struct types (defined ints, strings without const groups,
	// interfaces) take the shape of their underlying type.
	c.active[obj] = true
	defer delete(c.active, obj)
	return c.convert(n.Underlying(), false)
}

func (c *converter) convertInterface(i *types.Interface) *Node {
	if i.Empty() {
		return AnyNode()
	}
	// A constraint interface embedding a type-set union carries that union's
	// shape; other interfaces have no static JSON shape.
	for j := 0; j < i.NumEmbeddeds(); j++ {
		if u, ok := i.EmbeddedType(j).(*types.Union); ok {
			return c.convert(u, false)
		}
	}
	return AnyNode()
}

// convertFields maps a struct's fields in declared order, honoring
// encoding/json tag semantics: renames, "-" skips, and omitempty/omitzero as
// the not-required marker. Pointer fields are not-required as well.
func (c *converter) convertFields(st *types.Struct) []Field {
	fields := make([]Field, 0, st.NumFields())
	for i := 0; i < st.NumFields(); i++ {
		v := st.Field(i)
		if !v.Exported() {
			continue
		}
		name := v.Name()
		optional := false

		tag := reflect.StructTag(st.Tag(i)).Get("json")
		if tag != "" {
			parts := strings.Split(tag, ",")
			if parts[0] == "-" && len(parts) == 1 {
				continue
			}
			if parts[0] != "" {
				name = parts[0]
			}
			for _, opt := range parts[1:] {
				if opt == "omitempty" || opt == "omitzero" {
					optional = true
				}
			}
		}

		node := c.convert(v.Type(), true)
		if optional && !node.IsOptional() {
			node = Optional(node)
		}
		fields = append(fields, Field{Name: name, Type: node})
	}
	return fields
}

// resultNode returns the node for a signature's first non-error result, or
// the nil node when it has none.
func (c *converter) resultNode(sig *types.Signature) *Node {
	results := sig.Results()
	for i := 0; i < results.Len(); i++ {
		if isErrorType(results.At(i).Type()) {
			continue
		}
		return c.convert(results.At(i).Type(), false)
	}
	return NilNode()
}

func typeParamNames(tps *types.TypeParamList) []string {
	if tps == nil || tps.Len() == 0 {
		return nil
	}
	names := make([]string, tps.Len())
	for i := range names {
		names[i] = tps.At(i).Obj().Name()
	}
	return names
}

// isErrorType reports whether t is the built-in error interface.
func isErrorType(t types.Type) bool {
	named, ok := t.(*types.Named)
	if !ok {
		return false
	}
	obj := named.Obj()
	return obj != nil && obj.Pkg() == nil && obj.Name() == "error"
}
