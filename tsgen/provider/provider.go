// Package provider loads an application's packages with go/packages and
// extracts everything the generator needs from the source: registered
// routes, custom URL converters, string-enum const groups and the function
// declarations inference recurses into.
//
// No directives or annotations are needed for discovery. The registration
// calls themselves are the markers: Handle(rule, Query(fn)) and
// RegisterConverter(name, conv) calls are found by resolving method callees
// through the type information.
package provider

import (
	"context"
	"fmt"
	"go/ast"
	"go/constant"
	"go/token"
	"go/types"
	"strings"

	"golang.org/x/tools/go/packages"

	"github.com/ArmindoFlores/typesync"
	"github.com/ArmindoFlores/typesync/tsgen/typenode"
)

// frameworkPath is the import path route registrations are matched against.
const frameworkPath = "github.com/ArmindoFlores/typesync"

// Handler is the resolved handler function behind an endpoint constructor
// argument. Decl is nil when the handler is a function literal.
type Handler struct {
	Obj  *types.Func
	Decl *ast.FuncDecl
	Lit  *ast.FuncLit
	Sig  *types.Signature
	Pkg  *packages.Package
	File *ast.File
}

// Route is one discovered Handle registration.
type Route struct {
	Rule     *typesync.Rule
	Endpoint string
	Methods  []string
	JSONBody bool
	Handler  *Handler
	Pos      token.Position
}

// Converter is one discovered RegisterConverter registration: the name it
// was registered under and the declared result type of its Convert method.
type Converter struct {
	Name   string
	Result types.Type
	Pos    token.Position
}

// Source is the loaded and analyzed application.
type Source struct {
	Pkgs       []*packages.Package
	Routes     []*Route
	Converters map[string]*Converter
	Resolver   *typenode.Resolver

	funcs map[*types.Func]funcDecl
}

type funcDecl struct {
	decl *ast.FuncDecl
	pkg  *packages.Package
}

// Options configures loading.
type Options struct {
	// Packages are go/packages load patterns for the application packages.
	Packages []string

	// Dir is the working directory for the load, usually the module root.
	Dir string
}

// Load loads the application packages and runs discovery.
func Load(ctx context.Context, opts Options) (*Source, error) {
	if len(opts.Packages) == 0 {
		return nil, fmt.Errorf("no packages specified")
	}

	cfg := &packages.Config{
		Context: ctx,
		Dir:     opts.Dir,
		Mode: packages.NeedName |
			packages.NeedFiles |
			packages.NeedCompiledGoFiles |
			packages.NeedImports |
			packages.NeedDeps |
			packages.NeedTypes |
			packages.NeedSyntax |
			packages.NeedTypesInfo |
			packages.NeedModule,
	}

	pkgs, err := packages.Load(cfg, opts.Packages...)
	if err != nil {
		return nil, fmt.Errorf("failed to load packages: %w", err)
	}
	if len(pkgs) == 0 {
		return nil, fmt.Errorf("no packages found matching %v", opts.Packages)
	}
	for _, pkg := range pkgs {
		if len(pkg.Errors) > 0 {
			return nil, fmt.Errorf("package %s has errors: %v", pkg.PkgPath, pkg.Errors[0])
		}
	}

	src := &Source{
		Pkgs:       pkgs,
		Converters: make(map[string]*Converter),
		Resolver:   &typenode.Resolver{Enums: make(map[string][]string)},
		funcs:      make(map[*types.Func]funcDecl),
	}

	src.buildFuncIndex()
	src.scanEnums()
	if err := src.discover(); err != nil {
		return nil, err
	}
	return src, nil
}

// Lookup resolves a function object to its declaration, searching the input
// packages and their transitive imports. It satisfies the inference engine's
// Index interface.
func (s *Source) Lookup(obj types.Object) (*ast.FuncDecl, *packages.Package, bool) {
	fn, ok := obj.(*types.Func)
	if !ok {
		return nil, nil, false
	}
	fd, ok := s.funcs[fn]
	if !ok {
		return nil, nil, false
	}
	return fd.decl, fd.pkg, true
}

// buildFuncIndex maps every function object with syntax available to its
// declaration. packages.Visit covers transitive imports, so inference can
// follow calls across package boundaries when NeedDeps loaded their syntax.
func (s *Source) buildFuncIndex() {
	packages.Visit(s.Pkgs, nil, func(pkg *packages.Package) {
		if pkg.TypesInfo == nil {
			return
		}
		for _, file := range pkg.Syntax {
			for _, decl := range file.Decls {
				fd, ok := decl.(*ast.FuncDecl)
				if !ok || fd.Body == nil {
					continue
				}
				if obj, ok := pkg.TypesInfo.Defs[fd.Name].(*types.Func); ok {
					s.funcs[obj] = funcDecl{decl: fd, pkg: pkg}
				}
			}
		}
	})
}

// scanEnums records every named type with a basic underlying type whose
// package declares string constants of that exact type. Those const groups
// are the literal enumerations the translator expands.
func (s *Source) scanEnums() {
	seen := make(map[*types.Package]bool)
	packages.Visit(s.Pkgs, nil, func(pkg *packages.Package) {
		if pkg.Types == nil || seen[pkg.Types] {
			return
		}
		seen[pkg.Types] = true
		scope := pkg.Types.Scope()

		// Collect constants grouped by their named type.
		byType := make(map[*types.TypeName][]string)
		for _, name := range scope.Names() {
			cnst, ok := scope.Lookup(name).(*types.Const)
			if !ok {
				continue
			}
			named, ok := cnst.Type().(*types.Named)
			if !ok {
				continue
			}
			basic, ok := named.Underlying().(*types.Basic)
			if !ok || basic.Info()&types.IsString == 0 {
				continue
			}
			if cnst.Val().Kind() != constant.String {
				continue
			}
			byType[named.Obj()] = append(byType[named.Obj()], constant.StringVal(cnst.Val()))
		}

		for tn, members := range byType {
			if tn.Pkg() == nil {
				continue
			}
			s.Resolver.Enums[tn.Pkg().Path()+"."+tn.Name()] = members
		}
	})
}

// discover walks the input packages' syntax for Handle and RegisterConverter
// calls.
func (s *Source) discover() error {
	var firstErr error
	for _, pkg := range s.Pkgs {
		for _, file := range pkg.Syntax {
			ast.Inspect(file, func(n ast.Node) bool {
				call, ok := n.(*ast.CallExpr)
				if !ok {
					return true
				}
				name, ok := frameworkMethod(pkg.TypesInfo, call)
				if !ok {
					return true
				}
				var err error
				switch name {
				case "Handle":
					err = s.addRoute(pkg, file, call)
				case "RegisterConverter":
					err = s.addConverter(pkg, call)
				}
				if err != nil && firstErr == nil {
					firstErr = fmt.Errorf("%s: %w", pkg.Fset.Position(call.Pos()), err)
				}
				return true
			})
		}
	}
	return firstErr
}

// frameworkMethod reports whether a call's callee is a method of the
// framework's App type, and returns the method name.
func frameworkMethod(info *types.Info, call *ast.CallExpr) (string, bool) {
	sel, ok := unparen(call.Fun).(*ast.SelectorExpr)
	if !ok {
		return "", false
	}
	fn, ok := info.Uses[sel.Sel].(*types.Func)
	if !ok || fn.Pkg() == nil || fn.Pkg().Path() != frameworkPath {
		return "", false
	}
	sig, ok := fn.Type().(*types.Signature)
	if !ok || sig.Recv() == nil {
		return "", false
	}
	return fn.Name(), true
}

func (s *Source) addRoute(pkg *packages.Package, file *ast.File, call *ast.CallExpr) error {
	if len(call.Args) != 2 {
		return fmt.Errorf("Handle expects (rule, endpoint)")
	}

	raw, ok := stringConstant(pkg.TypesInfo, call.Args[0])
	if !ok {
		return fmt.Errorf("Handle rule must be a string constant")
	}
	rule, err := typesync.ParseRule(raw)
	if err != nil {
		return err
	}

	route := &Route{
		Rule: rule,
		Pos:  pkg.Fset.Position(call.Pos()),
	}
	if err := s.resolveEndpoint(pkg, file, call.Args[1], route); err != nil {
		return fmt.Errorf("rule %q: %w", raw, err)
	}
	s.Routes = append(s.Routes, route)
	return nil
}

// resolveEndpoint walks an endpoint expression: the innermost call is the
// constructor (Query, Exec, ExecJSON), possibly wrapped by Methods, Named and
// CacheControl chain calls.
func (s *Source) resolveEndpoint(pkg *packages.Package, file *ast.File, expr ast.Expr, route *Route) error {
	call, ok := unparen(expr).(*ast.CallExpr)
	if !ok {
		return fmt.Errorf("endpoint must be a Query, Exec or ExecJSON call")
	}

	callee := calleeName(pkg.TypesInfo, call)
	switch callee {
	case "Methods":
		for _, arg := range call.Args {
			m, ok := stringConstant(pkg.TypesInfo, arg)
			if !ok {
				return fmt.Errorf("Methods arguments must be string constants")
			}
			route.Methods = append(route.Methods, m)
		}
		return s.chainBase(pkg, file, call, route)
	case "Named":
		if len(call.Args) == 1 {
			if name, ok := stringConstant(pkg.TypesInfo, call.Args[0]); ok {
				route.Endpoint = name
			}
		}
		return s.chainBase(pkg, file, call, route)
	case "CacheControl":
		// Caching has no effect on the generated types.
		return s.chainBase(pkg, file, call, route)
	case "Query":
		return s.resolveConstructor(pkg, file, call, route, "GET", false)
	case "Exec":
		return s.resolveConstructor(pkg, file, call, route, "POST", false)
	case "ExecJSON":
		return s.resolveConstructor(pkg, file, call, route, "POST", true)
	}
	return fmt.Errorf("unsupported endpoint constructor %q", callee)
}

// chainBase recurses into the receiver of a Methods/Named chain call.
func (s *Source) chainBase(pkg *packages.Package, file *ast.File, call *ast.CallExpr, route *Route) error {
	sel, ok := unparen(call.Fun).(*ast.SelectorExpr)
	if !ok {
		return fmt.Errorf("malformed endpoint chain")
	}
	return s.resolveEndpoint(pkg, file, sel.X, route)
}

func (s *Source) resolveConstructor(pkg *packages.Package, file *ast.File, call *ast.CallExpr, route *Route, defaultMethod string, jsonBody bool) error {
	if len(call.Args) != 1 {
		return fmt.Errorf("endpoint constructor expects a single handler function")
	}
	handler, err := s.resolveHandler(pkg, file, call.Args[0])
	if err != nil {
		return err
	}

	route.Handler = handler
	route.JSONBody = jsonBody
	if len(route.Methods) == 0 {
		route.Methods = []string{defaultMethod}
	}
	if route.Endpoint == "" {
		if handler.Obj != nil {
			route.Endpoint = handler.Obj.Name()
		} else {
			route.Endpoint = fmt.Sprintf("handler_%d", len(s.Routes)+1)
		}
	}
	return nil
}

// resolveHandler resolves the handler argument: a named function, a method
// value, or a function literal.
func (s *Source) resolveHandler(pkg *packages.Package, file *ast.File, expr ast.Expr) (*Handler, error) {
	switch e := unparen(expr).(type) {
	case *ast.FuncLit:
		sig, _ := pkg.TypesInfo.TypeOf(e).(*types.Signature)
		return &Handler{Lit: e, Sig: sig, Pkg: pkg, File: file}, nil

	case *ast.Ident, *ast.SelectorExpr:
		obj := usedObject(pkg.TypesInfo, e)
		fn, ok := obj.(*types.Func)
		if !ok {
			return nil, fmt.Errorf("handler must be a function")
		}
		h := &Handler{Obj: fn, Pkg: pkg, File: file}
		h.Sig, _ = fn.Type().(*types.Signature)
		if fd, declPkg, ok := s.Lookup(fn); ok {
			h.Decl = fd
			h.Pkg = declPkg
			h.File = enclosingFile(declPkg, fd.Pos())
		}
		return h, nil
	}
	return nil, fmt.Errorf("unsupported handler expression")
}

func (s *Source) addConverter(pkg *packages.Package, call *ast.CallExpr) error {
	if len(call.Args) != 2 {
		return fmt.Errorf("RegisterConverter expects (name, converter)")
	}
	name, ok := stringConstant(pkg.TypesInfo, call.Args[0])
	if !ok {
		return fmt.Errorf("RegisterConverter name must be a string constant")
	}

	typ := pkg.TypesInfo.TypeOf(call.Args[1])
	if typ == nil {
		return fmt.Errorf("converter %q: cannot resolve type", name)
	}
	result, err := converterResult(typ)
	if err != nil {
		return fmt.Errorf("converter %q: %w", name, err)
	}

	s.Converters[name] = &Converter{
		Name:   name,
		Result: result,
		Pos:    pkg.Fset.Position(call.Pos()),
	}
	return nil
}

// converterResult finds the declared Convert method on a converter type and
// returns its first result type.
func converterResult(typ types.Type) (types.Type, error) {
	ms := types.NewMethodSet(typ)
	sel := ms.Lookup(nil, "Convert")
	if sel == nil {
		// The method may be on the pointer receiver.
		sel = types.NewMethodSet(types.NewPointer(typ)).Lookup(nil, "Convert")
	}
	if sel == nil {
		return nil, fmt.Errorf("no Convert method on %s", typ)
	}
	sig, ok := sel.Type().(*types.Signature)
	if !ok {
		return nil, fmt.Errorf("Convert is not a method")
	}
	if sig.Params().Len() != 1 || sig.Results().Len() != 2 {
		return nil, fmt.Errorf("Convert must have shape func(string) (T, error)")
	}
	return sig.Results().At(0).Type(), nil
}

func stringConstant(info *types.Info, expr ast.Expr) (string, bool) {
	tv, ok := info.Types[expr]
	if !ok || tv.Value == nil || tv.Value.Kind() != constant.String {
		return "", false
	}
	return constant.StringVal(tv.Value), true
}

func calleeName(info *types.Info, call *ast.CallExpr) string {
	switch fun := unparen(call.Fun).(type) {
	case *ast.Ident:
		if fn, ok := info.Uses[fun].(*types.Func); ok && fromFramework(fn) {
			return fn.Name()
		}
	case *ast.SelectorExpr:
		if fn, ok := info.Uses[fun.Sel].(*types.Func); ok && fromFramework(fn) {
			return fn.Name()
		}
	case *ast.IndexExpr:
		// Explicit instantiation, e.g. typesync.Query[Args, Result](fn).
		return calleeName(info, &ast.CallExpr{Fun: fun.X})
	case *ast.IndexListExpr:
		return calleeName(info, &ast.CallExpr{Fun: fun.X})
	}
	return ""
}

func fromFramework(fn *types.Func) bool {
	pkg := fn.Pkg()
	return pkg != nil && strings.HasPrefix(pkg.Path(), frameworkPath) && !strings.Contains(strings.TrimPrefix(pkg.Path(), frameworkPath), "/")
}

func usedObject(info *types.Info, expr ast.Expr) types.Object {
	switch e := expr.(type) {
	case *ast.Ident:
		return info.Uses[e]
	case *ast.SelectorExpr:
		return info.Uses[e.Sel]
	}
	return nil
}

func unparen(expr ast.Expr) ast.Expr {
	for {
		p, ok := expr.(*ast.ParenExpr)
		if !ok {
			return expr
		}
		expr = p.X
	}
}

func enclosingFile(pkg *packages.Package, pos token.Pos) *ast.File {
	for _, f := range pkg.Syntax {
		if f.FileStart <= pos && pos <= f.FileEnd {
			return f
		}
	}
	return nil
}
