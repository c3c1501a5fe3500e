package infer

import (
	"fmt"
	"go/ast"
	"go/parser"
	"go/types"

	"golang.org/x/tools/go/packages"
)

// ResolveTypeExpr resolves a directive's type expression against a package's
// scope. The grammar is deliberately restricted: identifiers, package
// selectors, slices, maps and pointers. No evaluation, no function types, no
// anonymous structs.
func ResolveTypeExpr(src string, pkg *packages.Package) (types.Type, error) {
	expr, err := parser.ParseExpr(src)
	if err != nil {
		return nil, fmt.Errorf("parse %q: %w", src, err)
	}
	return resolveExpr(expr, pkg)
}

func resolveExpr(expr ast.Expr, pkg *packages.Package) (types.Type, error) {
	switch e := expr.(type) {
	case *ast.Ident:
		if t := types.Universe.Lookup(e.Name); t != nil {
			if tn, ok := t.(*types.TypeName); ok {
				return tn.Type(), nil
			}
		}
		if obj := pkg.Types.Scope().Lookup(e.Name); obj != nil {
			if tn, ok := obj.(*types.TypeName); ok {
				return tn.Type(), nil
			}
			return nil, fmt.Errorf("%s is not a type", e.Name)
		}
		return nil, fmt.Errorf("unknown type %s", e.Name)

	case *ast.SelectorExpr:
		pkgIdent, ok := e.X.(*ast.Ident)
		if !ok {
			return nil, fmt.Errorf("unsupported selector base")
		}
		for _, imp := range pkg.Types.Imports() {
			if imp.Name() != pkgIdent.Name {
				continue
			}
			obj := imp.Scope().Lookup(e.Sel.Name)
			if obj == nil {
				return nil, fmt.Errorf("%s.%s not found", pkgIdent.Name, e.Sel.Name)
			}
			tn, ok := obj.(*types.TypeName)
			if !ok {
				return nil, fmt.Errorf("%s.%s is not a type", pkgIdent.Name, e.Sel.Name)
			}
			return tn.Type(), nil
		}
		return nil, fmt.Errorf("package %s not imported", pkgIdent.Name)

	case *ast.ArrayType:
		if e.Len != nil {
			return nil, fmt.Errorf("fixed-size arrays are not supported")
		}
		elem, err := resolveExpr(e.Elt, pkg)
		if err != nil {
			return nil, err
		}
		return types.NewSlice(elem), nil

	case *ast.MapType:
		key, err := resolveExpr(e.Key, pkg)
		if err != nil {
			return nil, err
		}
		value, err := resolveExpr(e.Value, pkg)
		if err != nil {
			return nil, err
		}
		return types.NewMap(key, value), nil

	case *ast.StarExpr:
		elem, err := resolveExpr(e.X, pkg)
		if err != nil {
			return nil, err
		}
		return types.NewPointer(elem), nil

	case *ast.ParenExpr:
		return resolveExpr(e.X, pkg)
	}
	return nil, fmt.Errorf("unsupported type expression")
}
