package infer

import (
	"go/types"
	"testing"
)

const resolveSrc = `
package app

type Widget struct {
	Name string
}

var NotAType = 1
`

func TestResolveTypeExpr(t *testing.T) {
	pkg := loadTestPackage(t, resolveSrc)

	tests := []struct {
		expr string
		want string
	}{
		{"string", "string"},
		{"int64", "int64"},
		{"Widget", "example.com/app.Widget"},
		{"[]string", "[]string"},
		{"[]Widget", "[]example.com/app.Widget"},
		{"map[string]int", "map[string]int"},
		{"*Widget", "*example.com/app.Widget"},
		{"(string)", "string"},
		{"map[string][]*Widget", "map[string][]*example.com/app.Widget"},
	}

	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			got, err := ResolveTypeExpr(tt.expr, pkg)
			if err != nil {
				t.Fatalf("ResolveTypeExpr(%q): %v", tt.expr, err)
			}
			if types.TypeString(got, nil) != tt.want {
				t.Errorf("resolved %s, want %s", types.TypeString(got, nil), tt.want)
			}
		})
	}
}

func TestResolveTypeExprErrors(t *testing.T) {
	pkg := loadTestPackage(t, resolveSrc)

	tests := []string{
		"NoSuchType",
		"NotAType",
		"[4]int",
		"func() int",
		"struct{ X int }",
		"1 +",
		"missing.Widget",
	}

	for _, expr := range tests {
		t.Run(expr, func(t *testing.T) {
			if _, err := ResolveTypeExpr(expr, pkg); err == nil {
				t.Errorf("ResolveTypeExpr(%q) should fail", expr)
			}
		})
	}
}
