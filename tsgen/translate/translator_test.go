package translate

import (
	"strings"
	"testing"

	"github.com/ArmindoFlores/typesync/tsgen/tstypes"
	"github.com/ArmindoFlores/typesync/tsgen/typenode"
)

func translateOne(t *testing.T, node *typenode.Node) tstypes.Type {
	t.Helper()
	ctx := &Context{Endpoint: "test", Method: "GET", Phase: PhaseReturn}
	got := NewChain(nil, nil).Translate(node, ctx)
	for _, w := range ctx.Warnings() {
		t.Logf("warning: %s", w)
	}
	return got
}

func TestTranslatePrimitives(t *testing.T) {
	tests := []struct {
		name string
		node *typenode.Node
		want string
	}{
		{"string", typenode.StringNode(), "string"},
		{"int", typenode.IntNode(), "number"},
		{"float", typenode.FloatNode(), "number"},
		{"bool", typenode.BoolNode(), "boolean"},
		{"nil", typenode.NilNode(), "null"},
		{"any", typenode.AnyNode(), "any"},
		{"never", typenode.NeverNode(), "never"},
		{"literal", typenode.Literal("active"), `"active"`},
		{"list", typenode.List(typenode.IntNode()), "number[]"},
		{"bare list", typenode.List(), "any[]"},
		{"bare map", typenode.MapOf(), "object"},
		{
			"map",
			typenode.MapOf(typenode.StringNode(), typenode.BoolNode()),
			"Record<string, boolean>",
		},
		{
			"tuple",
			typenode.TupleOf(typenode.IntNode(), typenode.StringNode()),
			"[number, string]",
		},
		{
			"union",
			typenode.UnionOf(typenode.StringNode(), typenode.NilNode()),
			"string | null",
		},
		{
			"list of union parenthesizes",
			typenode.List(typenode.UnionOf(typenode.IntNode(), typenode.NilNode())),
			"(number | null)[]",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := translateOne(t, tt.node).Render(); got != tt.want {
				t.Errorf("Translate() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestTranslateVariadicTupleSugar(t *testing.T) {
	node := typenode.TupleOf(typenode.IntNode(), typenode.EllipsisNode())
	if got := translateOne(t, node).Render(); got != "number[]" {
		t.Errorf("variadic tuple = %q, want number[]", got)
	}

	// The sugar applies only to a two-element [T, ...] shape.
	node = typenode.TupleOf(typenode.IntNode(), typenode.StringNode(), typenode.EllipsisNode())
	if got := translateOne(t, node).Render(); got != "[number, string, ...]" {
		t.Errorf("three-element tuple = %q", got)
	}
}

func TestTranslateEnum(t *testing.T) {
	node := typenode.Enum("Status", "example.com/api", "active", "archived")
	if got := translateOne(t, node).Render(); got != `"active" | "archived"` {
		t.Errorf("enum = %q", got)
	}

	single := typenode.Enum("Kind", "example.com/api", "only")
	if got := translateOne(t, single).Render(); got != `"only"` {
		t.Errorf("single-member enum = %q", got)
	}
}

func TestTranslateEnumKeyedMap(t *testing.T) {
	status := typenode.Enum("Status", "example.com/api", "active", "archived")
	node := typenode.MapOf(status, typenode.IntNode())
	if got := translateOne(t, node).Render(); got != "{ active: number, archived: number }" {
		t.Errorf("enum-keyed map = %q", got)
	}

	// Non-literal keys keep the Record form.
	node = typenode.MapOf(typenode.StringNode(), typenode.IntNode())
	if got := translateOne(t, node).Render(); got != "Record<string, number>" {
		t.Errorf("string-keyed map = %q", got)
	}
}

func TestTranslateRecord(t *testing.T) {
	node := typenode.Record("User", "example.com/api", nil, nil, []typenode.Field{
		{Name: "id", Type: typenode.IntNode()},
		{Name: "email", Type: typenode.Optional(typenode.StringNode())},
	})
	if got := translateOne(t, node).Render(); got != "{ id: number, email?: string }" {
		t.Errorf("record = %q", got)
	}
}

func TestTranslateGenericRecord(t *testing.T) {
	page := typenode.Record("Page", "example.com/api",
		[]string{"T"}, []*typenode.Node{typenode.IntNode()},
		[]typenode.Field{
			{Name: "items", Type: typenode.List(typenode.TypeParam("T"))},
			{Name: "next", Type: typenode.Optional(typenode.StringNode())},
		})
	if got := translateOne(t, page).Render(); got != "{ items: number[], next?: string }" {
		t.Errorf("generic record = %q", got)
	}
}

func TestTranslateAliasTransparency(t *testing.T) {
	// type Tags[T any] = []T; type TagList[T any] = Tags[T]; TagList[string]
	tags := func(arg *typenode.Node) *typenode.Node {
		return typenode.Alias("Tags", "example.com/api",
			[]string{"T"}, []*typenode.Node{arg},
			typenode.List(typenode.TypeParam("T")))
	}
	tagList := typenode.Alias("TagList", "example.com/api",
		[]string{"T"}, []*typenode.Node{typenode.StringNode()},
		tags(typenode.TypeParam("T")))

	direct := translateOne(t, typenode.List(typenode.StringNode()))
	chained := translateOne(t, tagList)
	if !chained.Equal(direct) {
		t.Errorf("alias chain = %q, direct = %q", chained.Render(), direct.Render())
	}
}

func TestTranslateResponseTransparency(t *testing.T) {
	inner := typenode.Record("User", "example.com/api", nil, nil, []typenode.Field{
		{Name: "id", Type: typenode.IntNode()},
	})
	wrapped := translateOne(t, typenode.Response(inner))
	bare := translateOne(t, inner)
	if !wrapped.Equal(bare) {
		t.Errorf("Response wrapper should be transparent: %q vs %q",
			wrapped.Render(), bare.Render())
	}
}

func TestTranslateIdempotent(t *testing.T) {
	node := typenode.Record("Page", "example.com/api",
		[]string{"T"}, []*typenode.Node{typenode.StringNode()},
		[]typenode.Field{
			{Name: "items", Type: typenode.List(typenode.TypeParam("T"))},
		})
	chain := NewChain(nil, nil)
	first := chain.Translate(node, &Context{})
	second := chain.Translate(node, &Context{})
	if !first.Equal(second) {
		t.Errorf("repeated translation diverged: %q vs %q",
			first.Render(), second.Render())
	}
}

func TestTranslateUnhandledDefaultsToAny(t *testing.T) {
	ctx := &Context{}
	got := NewChain(nil, nil).Translate(typenode.TypeParam("T"), ctx)
	if got.Render() != "any" {
		t.Errorf("unbound type parameter = %q, want any", got.Render())
	}
	if len(ctx.Warnings()) == 0 {
		t.Fatal("expected a translation warning")
	}
	if !strings.Contains(ctx.Warnings()[0], "defaulting to 'any'") {
		t.Errorf("unexpected warning: %s", ctx.Warnings()[0])
	}
}

func TestTranslateAliasDepthLimit(t *testing.T) {
	// A self-recursive alias value would otherwise unwrap forever.
	loop := typenode.Alias("Loop", "example.com/api", nil, nil, nil)
	loop.Value = loop

	ctx := &Context{}
	got := NewChain(nil, nil).Translate(loop, ctx)
	if got.Render() != "any" {
		t.Errorf("looping alias = %q, want any", got.Render())
	}
	found := false
	for _, w := range ctx.Warnings() {
		if strings.Contains(w, "unwrap depth limit") {
			found = true
		}
	}
	if !found {
		t.Errorf("expected a depth-limit warning, got %v", ctx.Warnings())
	}
}

// constTranslator handles every node, used to test ordering.
type constTranslator struct {
	value string
}

func (t constTranslator) Translate(*typenode.Node, *typenode.Binding) (tstypes.Type, bool) {
	return tstypes.Literal{Value: t.value}, true
}

func constReg(id string, prio int) Registration {
	return Registration{
		ID:              id,
		DefaultPriority: prio,
		New: func(TranslateFunc, *Context) Translator {
			return constTranslator{value: id}
		},
	}
}

func TestChainOrdering(t *testing.T) {
	chain := NewChain([]Registration{
		constReg("ext.low", ExternalPriority),
		constReg("ext.high", 100),
	}, nil)

	got := chain.Translate(typenode.StringNode(), &Context{})
	if got.Render() != `"ext.high"` {
		t.Errorf("highest priority should win, got %q", got.Render())
	}

	regs := chain.Registrations()
	if regs[0].ID != "ext.high" {
		t.Errorf("evaluation order starts with %s, want ext.high", regs[0].ID)
	}
	if regs[len(regs)-1].ID != "ext.low" {
		t.Errorf("evaluation order ends with %s, want ext.low", regs[len(regs)-1].ID)
	}
}

func TestChainPriorityOverride(t *testing.T) {
	// Demote the base translator below an external catch-all.
	chain := NewChain(
		[]Registration{constReg("ext.catchall", ExternalPriority)},
		map[string]int{"typesync.base": -100},
	)

	got := chain.Translate(typenode.StringNode(), &Context{})
	if got.Render() != `"ext.catchall"` {
		t.Errorf("override should demote the base translator, got %q", got.Render())
	}

	// The override is visible on the stored registration.
	for _, reg := range chain.Registrations() {
		if reg.ID == "typesync.base" && reg.DefaultPriority != -100 {
			t.Errorf("override not applied: priority %d", reg.DefaultPriority)
		}
	}
}

func TestChainStableTieBreak(t *testing.T) {
	chain := NewChain([]Registration{
		constReg("ext.first", 50),
		constReg("ext.second", 50),
	}, nil)

	got := chain.Translate(typenode.StringNode(), &Context{})
	if got.Render() != `"ext.first"` {
		t.Errorf("ties should keep registration order, got %q", got.Render())
	}
}

func TestTranslateNilNode(t *testing.T) {
	got := NewChain(nil, nil).Translate(nil, nil)
	if got.Render() != "any" {
		t.Errorf("nil node = %q, want any", got.Render())
	}
}
