package typenode

import (
	"testing"

	"github.com/ArmindoFlores/typesync/tsgen/tstypes"
)

func TestNodeEqual(t *testing.T) {
	pageFields := func(elem *Node) []Field {
		return []Field{
			{Name: "items", Type: List(elem)},
			{Name: "next", Type: Optional(StringNode())},
		}
	}

	tests := []struct {
		name string
		a, b *Node
		want bool
	}{
		{"both nil", nil, nil, true},
		{"nil vs node", nil, StringNode(), false},
		{"same primitive", IntNode(), IntNode(), true},
		{"different primitive", IntNode(), FloatNode(), false},
		{"same list", List(StringNode()), List(StringNode()), true},
		{"bare vs parameterized list", List(), List(AnyNode()), false},
		{"same literal", Literal("active"), Literal("active"), true},
		{"different literal", Literal("active"), Literal("archived"), false},
		{
			"same enum",
			Enum("Status", "example.com/api", "active", "archived"),
			Enum("Status", "example.com/api", "active", "archived"),
			true,
		},
		{
			"enum member order matters",
			Enum("Status", "example.com/api", "active", "archived"),
			Enum("Status", "example.com/api", "archived", "active"),
			false,
		},
		{
			"same record",
			Record("Page", "example.com/api", []string{"T"}, []*Node{IntNode()}, pageFields(TypeParam("T"))),
			Record("Page", "example.com/api", []string{"T"}, []*Node{IntNode()}, pageFields(TypeParam("T"))),
			true,
		},
		{
			"record field name differs",
			Record("Page", "example.com/api", nil, nil, []Field{{Name: "items", Type: List()}}),
			Record("Page", "example.com/api", nil, nil, []Field{{Name: "rows", Type: List()}}),
			false,
		},
		{
			"alias value differs",
			Alias("Tags", "example.com/api", []string{"T"}, nil, List(TypeParam("T"))),
			Alias("Tags", "example.com/api", []string{"T"}, nil, List(StringNode())),
			false,
		},
		{
			"same response",
			Response(StringNode()),
			Response(StringNode()),
			true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.a.Equal(tt.b); got != tt.want {
				t.Errorf("Equal() = %v, want %v", got, tt.want)
			}
			if got := tt.b.Equal(tt.a); got != tt.want {
				t.Errorf("Equal() not symmetric: reversed = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestOptionalUnwrap(t *testing.T) {
	inner := StringNode()
	opt := Optional(inner)

	if !opt.IsOptional() {
		t.Error("Optional() node should report IsOptional")
	}
	if inner.IsOptional() {
		t.Error("plain node must not report IsOptional")
	}
	if opt.Unwrap() != inner {
		t.Error("Unwrap should return the wrapped node")
	}
	if inner.Unwrap() != inner {
		t.Error("Unwrap of a plain node should return itself")
	}
}

func TestFuncOfNilReturn(t *testing.T) {
	fn := FuncOf(nil)
	if fn.Origin.Kind != KindFunc {
		t.Fatalf("expected func kind, got %v", fn.Origin.Kind)
	}
	if len(fn.Args) != 1 || fn.Args[0].Origin.Kind != KindNil {
		t.Errorf("nil return should default to the nil node, got %v", fn.Args[0])
	}
}

func TestBindingLookup(t *testing.T) {
	parent := NewBinding([]string{"T"}, []tstypes.Type{tstypes.Number()}, nil)
	child := NewBinding([]string{"U"}, []tstypes.Type{tstypes.String()}, parent)

	if got, ok := child.Lookup("U"); !ok || !got.Equal(tstypes.String()) {
		t.Errorf("child binding lookup failed: %v, %v", got, ok)
	}
	if got, ok := child.Lookup("T"); !ok || !got.Equal(tstypes.Number()) {
		t.Errorf("parent fallback lookup failed: %v, %v", got, ok)
	}
	if _, ok := child.Lookup("V"); ok {
		t.Error("unbound parameter should not resolve")
	}

	// Shadowing: the nearest binding wins.
	shadow := NewBinding([]string{"T"}, []tstypes.Type{tstypes.Boolean()}, parent)
	if got, _ := shadow.Lookup("T"); !got.Equal(tstypes.Boolean()) {
		t.Errorf("shadowed parameter resolved to %v", got)
	}
}

func TestBindingNilSafety(t *testing.T) {
	var b *Binding
	if _, ok := b.Lookup("T"); ok {
		t.Error("nil binding should resolve nothing")
	}

	// Unresolved slots fall through to the parent rather than binding nil.
	parent := NewBinding([]string{"T"}, []tstypes.Type{tstypes.Number()}, nil)
	child := NewBinding([]string{"T", "U"}, []tstypes.Type{nil}, parent)
	if got, ok := child.Lookup("T"); !ok || !got.Equal(tstypes.Number()) {
		t.Errorf("nil slot should defer to parent, got %v, %v", got, ok)
	}
}
