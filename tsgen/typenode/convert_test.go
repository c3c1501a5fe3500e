package typenode

import (
	"go/ast"
	"go/parser"
	"go/token"
	"go/types"
	"testing"
)

func checkSource(t *testing.T, src string) *types.Package {
	t.Helper()
	fset := token.NewFileSet()
	f, err := parser.ParseFile(fset, "api.go", src, 0)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	conf := types.Config{}
	pkg, err := conf.Check("example.com/api", fset, []*ast.File{f}, nil)
	if err != nil {
		t.Fatalf("typecheck: %v", err)
	}
	return pkg
}

func lookupType(t *testing.T, pkg *types.Package, name string) types.Type {
	t.Helper()
	obj := pkg.Scope().Lookup(name)
	if obj == nil {
		t.Fatalf("no object %s in test package", name)
	}
	return obj.Type()
}

func TestFromTypeBasics(t *testing.T) {
	tests := []struct {
		name string
		typ  types.Type
		want *Node
	}{
		{"string", types.Typ[types.String], StringNode()},
		{"int", types.Typ[types.Int], IntNode()},
		{"int64", types.Typ[types.Int64], IntNode()},
		{"uint8", types.Typ[types.Uint8], IntNode()},
		{"float64", types.Typ[types.Float64], FloatNode()},
		{"bool", types.Typ[types.Bool], BoolNode()},
		{"slice", types.NewSlice(types.Typ[types.String]), List(StringNode())},
		{
			"map",
			types.NewMap(types.Typ[types.String], types.Typ[types.Int]),
			MapOf(StringNode(), IntNode()),
		},
		{
			"pointer outside a field",
			types.NewPointer(types.Typ[types.Int]),
			UnionOf(IntNode(), NilNode()),
		},
		{
			"fixed array",
			types.NewArray(types.Typ[types.Bool], 2),
			TupleOf(BoolNode(), BoolNode()),
		},
		{"empty interface", types.NewInterfaceType(nil, nil), AnyNode()},
		{"channel", types.NewChan(types.SendRecv, types.Typ[types.Int]), AnyNode()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FromType(tt.typ, nil)
			if !got.Equal(tt.want) {
				t.Errorf("FromType() = %v, want %v", got, tt.want)
			}
		})
	}
}

const fieldSrc = `
package api

type User struct {
	ID      int64   ` + "`json:\"id\"`" + `
	Name    string
	Email   *string ` + "`json:\"email,omitempty\"`" + `
	Note    string  ` + "`json:\"note,omitempty\"`" + `
	Skipped string  ` + "`json:\"-\"`" + `
	hidden  string
}
`

func TestFromTypeStructFields(t *testing.T) {
	pkg := checkSource(t, fieldSrc)
	got := FromType(lookupType(t, pkg, "User"), nil)

	want := Record("User", "example.com/api", nil, nil, []Field{
		{Name: "id", Type: IntNode()},
		{Name: "Name", Type: StringNode()},
		{Name: "email", Type: Optional(StringNode())},
		{Name: "note", Type: Optional(StringNode())},
	})
	if !got.Equal(want) {
		t.Errorf("FromType() = %v, want %v", got, want)
	}
}

const enumSrc = `
package api

type Status string

const (
	StatusActive   Status = "active"
	StatusArchived Status = "archived"
)

type Holder struct {
	Status Status        ` + "`json:\"status\"`" + `
	Counts map[Status]int ` + "`json:\"counts\"`" + `
}
`

func TestFromTypeEnum(t *testing.T) {
	pkg := checkSource(t, enumSrc)
	res := &Resolver{Enums: map[string][]string{
		"example.com/api.Status": {"active", "archived"},
	}}

	got := FromType(lookupType(t, pkg, "Status"), res)
	want := Enum("Status", "example.com/api", "active", "archived")
	if !got.Equal(want) {
		t.Errorf("enum type = %v, want %v", got, want)
	}

	// Without a resolver the named string type degrades to its underlying
	// shape.
	if got := FromType(lookupType(t, pkg, "Status"), nil); !got.Equal(StringNode()) {
		t.Errorf("unresolved enum = %v, want string", got)
	}

	holder := FromType(lookupType(t, pkg, "Holder"), res)
	wantHolder := Record("Holder", "example.com/api", nil, nil, []Field{
		{Name: "status", Type: want},
		{Name: "counts", Type: MapOf(want, IntNode())},
	})
	if !holder.Equal(wantHolder) {
		t.Errorf("holder = %v, want %v", holder, wantHolder)
	}
}

const genericSrc = `
package api

type Tags[T any] = []T

type Page[T any] struct {
	Items []T     ` + "`json:\"items\"`" + `
	Next  *string ` + "`json:\"next,omitempty\"`" + `
}

var IntPage Page[int]

var StringTags Tags[string]
`

func TestFromTypeGenericRecord(t *testing.T) {
	pkg := checkSource(t, genericSrc)
	got := FromType(lookupType(t, pkg, "IntPage"), nil)

	want := Record("Page", "example.com/api", []string{"T"}, []*Node{IntNode()}, []Field{
		{Name: "items", Type: List(TypeParam("T"))},
		{Name: "next", Type: Optional(StringNode())},
	})
	if !got.Equal(want) {
		t.Errorf("FromType() = %v, want %v", got, want)
	}
}

func TestFromTypeGenericAlias(t *testing.T) {
	pkg := checkSource(t, genericSrc)
	got := FromType(lookupType(t, pkg, "StringTags"), nil)

	want := Alias("Tags", "example.com/api", []string{"T"},
		[]*Node{StringNode()}, List(TypeParam("T")))
	if !got.Equal(want) {
		t.Errorf("FromType() = %v, want %v", got, want)
	}
}

const cyclicSrc = `
package api

type TreeNode struct {
	Value    int         ` + "`json:\"value\"`" + `
	Children []TreeNode  ` + "`json:\"children\"`" + `
	Parent   *TreeNode   ` + "`json:\"parent,omitempty\"`" + `
}
`

func TestFromTypeSelfReference(t *testing.T) {
	pkg := checkSource(t, cyclicSrc)
	got := FromType(lookupType(t, pkg, "TreeNode"), nil)

	// Recursive occurrences collapse to any, keeping the tree finite.
	want := Record("TreeNode", "example.com/api", nil, nil, []Field{
		{Name: "value", Type: IntNode()},
		{Name: "children", Type: List(AnyNode())},
		{Name: "parent", Type: Optional(AnyNode())},
	})
	if !got.Equal(want) {
		t.Errorf("FromType() = %v, want %v", got, want)
	}
}

func TestFromTypeNil(t *testing.T) {
	if got := FromType(nil, nil); !got.Equal(AnyNode()) {
		t.Errorf("FromType(nil) = %v, want any", got)
	}
}
