package translate

import (
	"github.com/ArmindoFlores/typesync/tsgen/tstypes"
	"github.com/ArmindoFlores/typesync/tsgen/typenode"
)

// baseTranslator handles the primitive and composite shapes of the node
// model. It is the lowest-priority built-in: the response and alias
// translators strip their wrappers before these rules apply.
type baseTranslator struct {
	next TranslateFunc
	ctx  *Context
}

func newBaseTranslator(next TranslateFunc, ctx *Context) Translator {
	return &baseTranslator{next: next, ctx: ctx}
}

func (t *baseTranslator) Translate(node *typenode.Node, env *typenode.Binding) (tstypes.Type, bool) {
	switch node.Origin.Kind {
	case typenode.KindString:
		return tstypes.String(), true
	case typenode.KindInt, typenode.KindFloat:
		return tstypes.Number(), true
	case typenode.KindBool:
		return tstypes.Boolean(), true
	case typenode.KindNil:
		return tstypes.Null(), true
	case typenode.KindAny:
		return tstypes.Any(), true
	case typenode.KindNever:
		return tstypes.Never(), true
	case typenode.KindEllipsis:
		return tstypes.Signal(), true
	case typenode.KindLiteral:
		return tstypes.Literal{Value: node.Origin.Name}, true

	case typenode.KindTypeParam:
		if bound, ok := env.Lookup(node.Origin.Name); ok {
			return bound, true
		}
		return nil, false

	case typenode.KindEnum:
		return t.translateEnum(node), true

	case typenode.KindList:
		return t.translateList(node, env)

	case typenode.KindTuple:
		return t.translateTuple(node, env), true

	case typenode.KindMap:
		return t.translateMap(node, env)

	case typenode.KindUnion:
		return tstypes.Union{Types: translateArgs(t.next, node.Args, env)}, true

	case typenode.KindOptional:
		// Outside a record field the marker is transparent.
		return unwrapGeneric(t.next, node.Unwrap(), env), true

	case typenode.KindRecord:
		return t.translateRecord(node, env), true

	default:
		return nil, false
	}
}

func (t *baseTranslator) translateEnum(node *typenode.Node) tstypes.Type {
	if len(node.Args) == 1 {
		return tstypes.Literal{Value: node.Args[0].Origin.Name}
	}
	members := make([]tstypes.Type, len(node.Args))
	for i, m := range node.Args {
		members[i] = tstypes.Literal{Value: m.Origin.Name}
	}
	return tstypes.Union{Types: members}
}

func (t *baseTranslator) translateList(node *typenode.Node, env *typenode.Binding) (tstypes.Type, bool) {
	switch len(node.Args) {
	case 0:
		// Bare, unparameterized list kind.
		return tstypes.Array{Elem: tstypes.Any()}, true
	case 1:
		return tstypes.Array{Elem: unwrapGeneric(t.next, node.Args[0], env)}, true
	default:
		return nil, false
	}
}

func (t *baseTranslator) translateTuple(node *typenode.Node, env *typenode.Binding) tstypes.Type {
	if len(node.Args) == 0 {
		return tstypes.Array{Elem: tstypes.Any()}
	}
	elems := translateArgs(t.next, node.Args, env)
	// Variadic-tuple sugar: [T, ...] collapses to T[].
	if len(elems) == 2 && tstypes.IsSignal(elems[1]) {
		return tstypes.Array{Elem: elems[0]}
	}
	return tstypes.Tuple{Elems: elems}
}

func (t *baseTranslator) translateMap(node *typenode.Node, env *typenode.Binding) (tstypes.Type, bool) {
	switch len(node.Args) {
	case 0:
		// Bare, unparameterized map kind.
		return tstypes.ObjectType(), true
	case 2:
		key := unwrapGeneric(t.next, node.Args[0], env)
		value := unwrapGeneric(t.next, node.Args[1], env)
		// A key that resolves to a finite literal-string enumeration becomes
		// a record with those literal field names.
		if members, ok := literalMembers(key); ok {
			fields := make([]tstypes.ObjectField, len(members))
			for i, m := range members {
				fields[i] = tstypes.ObjectField{Name: m, Type: value, Required: true}
			}
			return tstypes.Object{Fields: fields}, true
		}
		return tstypes.Record{Key: key, Value: value}, true
	default:
		return nil, false
	}
}

func (t *baseTranslator) translateRecord(node *typenode.Node, env *typenode.Binding) tstypes.Type {
	// The record's own type parameters bind to the translated use-site
	// arguments; the caller's environment resolves anything left over.
	fieldEnv := typenode.NewBinding(node.Params, translateArgs(t.next, node.Args, env), env)

	fields := make([]tstypes.ObjectField, 0, len(node.Fields))
	for _, f := range node.Fields {
		fields = append(fields, tstypes.ObjectField{
			Name:     f.Name,
			Type:     unwrapGeneric(t.next, f.Type.Unwrap(), fieldEnv),
			Required: !f.Type.IsOptional(),
		})
	}
	return tstypes.Object{Fields: fields}
}

// literalMembers extracts the members of a finite literal-string
// enumeration: a single literal or a union made up entirely of literals.
func literalMembers(t tstypes.Type) ([]string, bool) {
	switch typ := t.(type) {
	case tstypes.Literal:
		return []string{typ.Value}, true
	case tstypes.Union:
		members := make([]string, 0, len(typ.Types))
		for _, m := range typ.Types {
			lit, ok := m.(tstypes.Literal)
			if !ok {
				return nil, false
			}
			members = append(members, lit.Value)
		}
		return members, len(members) > 0
	default:
		return nil, false
	}
}
