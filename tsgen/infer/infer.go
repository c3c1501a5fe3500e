// Package infer reconstructs an approximate return type for handlers whose
// declared result carries no usable shape (any, or a missing annotation). It
// walks the function body's syntax tree simulating minimal data flow:
// literals, local assignments, composite literals and calls. It never
// executes code and it is deliberately conservative: anything it cannot
// resolve yields no opinion, and disagreeing return statements degrade to
// the universal any type.
package infer

import (
	"fmt"
	"go/ast"
	"go/token"
	"go/types"
	"strings"

	"golang.org/x/tools/go/packages"

	"github.com/ArmindoFlores/typesync/tsgen/typenode"
)

// Index resolves a function object to its declaration so inference can
// recurse into callees, including those in transitively imported packages.
type Index interface {
	Lookup(obj types.Object) (*ast.FuncDecl, *packages.Package, bool)
}

// Target is one function to infer, bundled with everything the walk needs.
// Exactly one of Decl or Lit must be set.
type Target struct {
	Decl *ast.FuncDecl
	Lit  *ast.FuncLit

	Pkg      *packages.Package
	File     *ast.File
	Resolver *typenode.Resolver
	Index    Index

	// ResolveDirectives enables the //typesync:type and //typesync:returns
	// line directives as statically-resolved annotation overrides.
	ResolveDirectives bool

	// Warnf receives non-fatal notes about expressions inference gave up on.
	Warnf func(format string, args ...any)

	// active guards against inference cycles across recursive calls.
	active map[types.Object]bool
}

func (t *Target) funcType() *ast.FuncType {
	if t.Decl != nil {
		return t.Decl.Type
	}
	return t.Lit.Type
}

func (t *Target) body() *ast.BlockStmt {
	if t.Decl != nil {
		return t.Decl.Body
	}
	return t.Lit.Body
}

func (t *Target) warnf(format string, args ...any) {
	if t.Warnf != nil {
		t.Warnf(format, args...)
	}
}

// InferReturnType walks the target's body and returns the reconstructed
// return node. A nil node with a nil error means inference has no opinion.
func InferReturnType(t *Target) (*typenode.Node, error) {
	if t.Decl == nil && t.Lit == nil {
		return nil, fmt.Errorf("infer: no function to analyze")
	}
	if t.body() == nil {
		return nil, fmt.Errorf("infer: function has no body")
	}
	if t.active == nil {
		t.active = make(map[types.Object]bool)
	}
	if t.Decl != nil {
		if obj := t.Pkg.TypesInfo.Defs[t.Decl.Name]; obj != nil {
			if t.active[obj] {
				return nil, nil
			}
			t.active[obj] = true
			defer delete(t.active, obj)
		}
	}

	if t.ResolveDirectives && t.Decl != nil {
		if node, ok := t.returnsDirective(); ok {
			return node, nil
		}
	}

	v := &visitor{target: t, locals: map[string]*typenode.Node{}}
	v.seedParams()
	v.walkStmt(t.body())
	return unify(v.returns), nil
}

// returnsDirective resolves a //typesync:returns EXPR doc directive.
func (t *Target) returnsDirective() (*typenode.Node, bool) {
	expr, ok := directive(t.Decl.Doc, "returns")
	if !ok {
		return nil, false
	}
	typ, err := ResolveTypeExpr(expr, t.Pkg)
	if err != nil {
		t.warnf("cannot resolve returns directive %q: %v", expr, err)
		return nil, false
	}
	return typenode.FromType(typ, t.Resolver), true
}

type visitor struct {
	target  *Target
	locals  map[string]*typenode.Node
	returns []*typenode.Node
	cmap    ast.CommentMap
}

func (v *visitor) seedParams() {
	ft := v.target.funcType()
	if ft.Params == nil {
		return
	}
	for _, field := range ft.Params.List {
		typ := v.target.Pkg.TypesInfo.TypeOf(field.Type)
		if typ == nil {
			continue
		}
		node := typenode.FromType(typ, v.target.Resolver)
		for _, name := range field.Names {
			v.locals[name.Name] = node
		}
	}
}

func (v *visitor) commentMap() ast.CommentMap {
	if v.cmap == nil && v.target.File != nil {
		v.cmap = ast.NewCommentMap(v.target.Pkg.Fset, v.target.File, v.target.File.Comments)
	}
	return v.cmap
}

// walkStmt visits statements top-down with no branch-sensitive merging:
// assignments in any branch update the same local table, and every return
// statement is collected.
func (v *visitor) walkStmt(stmt ast.Stmt) {
	switch s := stmt.(type) {
	case *ast.BlockStmt:
		for _, inner := range s.List {
			v.walkStmt(inner)
		}
	case *ast.IfStmt:
		v.walkStmt(s.Body)
		if s.Else != nil {
			v.walkStmt(s.Else)
		}
	case *ast.ForStmt:
		v.walkStmt(s.Body)
	case *ast.RangeStmt:
		v.walkStmt(s.Body)
	case *ast.SwitchStmt:
		v.walkStmt(s.Body)
	case *ast.TypeSwitchStmt:
		v.walkStmt(s.Body)
	case *ast.SelectStmt:
		v.walkStmt(s.Body)
	case *ast.CaseClause:
		for _, inner := range s.Body {
			v.walkStmt(inner)
		}
	case *ast.CommClause:
		for _, inner := range s.Body {
			v.walkStmt(inner)
		}
	case *ast.LabeledStmt:
		v.walkStmt(s.Stmt)
	case *ast.AssignStmt:
		v.walkAssign(s)
	case *ast.DeclStmt:
		v.walkDecl(s)
	case *ast.ReturnStmt:
		v.returns = append(v.returns, v.inferReturn(s))
	}
}

func (v *visitor) walkAssign(s *ast.AssignStmt) {
	if node, ok := v.typeDirective(s); ok {
		for _, lhs := range s.Lhs {
			if id, isIdent := lhs.(*ast.Ident); isIdent && id.Name != "_" {
				v.locals[id.Name] = node
			}
		}
		return
	}
	if len(s.Lhs) == len(s.Rhs) {
		for i, lhs := range s.Lhs {
			id, ok := lhs.(*ast.Ident)
			if !ok || id.Name == "_" {
				continue
			}
			if node := v.inferExpr(s.Rhs[i]); node != nil {
				v.locals[id.Name] = node
			}
		}
	}
}

// walkDecl handles var declarations; a written type wins over the
// initializer's inferred shape.
func (v *visitor) walkDecl(s *ast.DeclStmt) {
	decl, ok := s.Decl.(*ast.GenDecl)
	if !ok || decl.Tok != token.VAR {
		return
	}
	for _, spec := range decl.Specs {
		vs, ok := spec.(*ast.ValueSpec)
		if !ok {
			continue
		}
		var node *typenode.Node
		if vs.Type != nil {
			if typ := v.target.Pkg.TypesInfo.TypeOf(vs.Type); typ != nil {
				node = typenode.FromType(typ, v.target.Resolver)
			}
		}
		for i, name := range vs.Names {
			n := node
			if n == nil && i < len(vs.Values) {
				n = v.inferExpr(vs.Values[i])
			}
			if n != nil && name.Name != "_" {
				v.locals[name.Name] = n
			}
		}
	}
}

// typeDirective resolves a //typesync:type EXPR comment attached to an
// assignment statement.
func (v *visitor) typeDirective(s *ast.AssignStmt) (*typenode.Node, bool) {
	if !v.target.ResolveDirectives {
		return nil, false
	}
	cmap := v.commentMap()
	if cmap == nil {
		return nil, false
	}
	for _, group := range cmap[s] {
		expr, ok := directive(group, "type")
		if !ok {
			continue
		}
		typ, err := ResolveTypeExpr(expr, v.target.Pkg)
		if err != nil {
			v.target.warnf("cannot resolve type directive %q: %v", expr, err)
			return nil, false
		}
		return typenode.FromType(typ, v.target.Resolver), true
	}
	return nil, false
}

// inferReturn types one return statement. Error results are dropped the
// same way declared (T, error) signatures unwrap to T; multiple remaining
// values form a fixed tuple.
func (v *visitor) inferReturn(s *ast.ReturnStmt) *typenode.Node {
	// Match expressions positionally against the declared result types, so
	// a literal nil in an error position (return x, nil) is dropped even
	// though the expression itself types as untyped nil rather than error.
	declared := v.resultTypes()
	positional := len(declared) == len(s.Results)

	var nodes []*typenode.Node
	for i, expr := range s.Results {
		if positional && declared[i] != nil && isErrorType(declared[i]) {
			continue
		}
		if typ := v.target.Pkg.TypesInfo.TypeOf(expr); typ != nil && isErrorType(typ) {
			continue
		}
		nodes = append(nodes, v.inferExpr(expr))
	}
	switch len(nodes) {
	case 0:
		return typenode.NilNode()
	case 1:
		return nodes[0]
	default:
		for _, n := range nodes {
			if n == nil {
				return nil
			}
		}
		return typenode.TupleOf(nodes...)
	}
}

// resultTypes flattens the enclosing function's declared result types in
// positional order.
func (v *visitor) resultTypes() []types.Type {
	ft := v.target.funcType()
	if ft.Results == nil {
		return nil
	}
	var out []types.Type
	for _, field := range ft.Results.List {
		typ := v.target.Pkg.TypesInfo.TypeOf(field.Type)
		n := len(field.Names)
		if n == 0 {
			n = 1
		}
		for i := 0; i < n; i++ {
			out = append(out, typ)
		}
	}
	return out
}

// inferExpr types one expression. nil means no opinion.
func (v *visitor) inferExpr(expr ast.Expr) *typenode.Node {
	switch e := expr.(type) {
	case *ast.BasicLit:
		return litNode(e)
	case *ast.Ident:
		return v.inferIdent(e)
	case *ast.SelectorExpr:
		return v.inferObject(v.target.Pkg.TypesInfo.Uses[e.Sel])
	case *ast.ParenExpr:
		return v.inferExpr(e.X)
	case *ast.UnaryExpr:
		return v.inferExpr(e.X)
	case *ast.CompositeLit:
		return v.inferComposite(e)
	case *ast.CallExpr:
		return v.inferCall(e)
	case *ast.FuncLit:
		ret, err := InferReturnType(&Target{
			Lit:               e,
			Pkg:               v.target.Pkg,
			File:              v.target.File,
			Resolver:          v.target.Resolver,
			Index:             v.target.Index,
			ResolveDirectives: v.target.ResolveDirectives,
			Warnf:             v.target.Warnf,
			active:            v.target.active,
		})
		if err != nil || ret == nil {
			return nil
		}
		return typenode.FuncOf(ret)
	}
	return v.staticType(expr)
}

func litNode(lit *ast.BasicLit) *typenode.Node {
	switch lit.Kind {
	case token.INT, token.CHAR:
		return typenode.IntNode()
	case token.FLOAT:
		return typenode.FloatNode()
	case token.STRING:
		return typenode.StringNode()
	}
	return nil
}

func (v *visitor) inferIdent(id *ast.Ident) *typenode.Node {
	switch id.Name {
	case "nil":
		return typenode.NilNode()
	case "true", "false":
		return typenode.BoolNode()
	}
	if node, ok := v.locals[id.Name]; ok {
		return node
	}
	return v.inferObject(v.target.Pkg.TypesInfo.Uses[id])
}

// inferObject types a resolved identifier: variables and constants carry
// their declared type, functions become a Func node wrapping their declared
// or recursively inferred return. Bare type names yield no opinion; they
// only matter as call targets.
func (v *visitor) inferObject(obj types.Object) *typenode.Node {
	switch o := obj.(type) {
	case *types.Var, *types.Const:
		return typenode.FromType(o.Type(), v.target.Resolver)
	case *types.Func:
		ret := v.funcReturn(o)
		if ret == nil {
			return nil
		}
		return typenode.FuncOf(ret)
	}
	return nil
}

// funcReturn resolves a function's return node: the declared first
// non-error result when it carries a shape, otherwise a cycle-safe recursive
// inference of the callee's body.
func (v *visitor) funcReturn(fn *types.Func) *typenode.Node {
	sig, ok := fn.Type().(*types.Signature)
	if !ok {
		return nil
	}
	if typ := firstResult(sig); typ != nil && !isAnyType(typ) {
		return typenode.FromType(typ, v.target.Resolver)
	}
	if v.target.Index == nil {
		return nil
	}
	decl, pkg, ok := v.target.Index.Lookup(fn)
	if !ok {
		return nil
	}
	ret, err := InferReturnType(&Target{
		Decl:              decl,
		Pkg:               pkg,
		File:              enclosingFile(pkg, decl.Pos()),
		Resolver:          v.target.Resolver,
		Index:             v.target.Index,
		ResolveDirectives: v.target.ResolveDirectives,
		Warnf:             v.target.Warnf,
		active:            v.target.active,
	})
	if err != nil {
		return nil
	}
	return ret
}

func (v *visitor) inferComposite(lit *ast.CompositeLit) *typenode.Node {
	typ := v.target.Pkg.TypesInfo.TypeOf(lit)
	if typ == nil {
		return nil
	}
	switch t := typ.Underlying().(type) {
	case *types.Slice:
		return v.inferSequence(lit, t.Elem())
	case *types.Array:
		return v.inferSequence(lit, t.Elem())
	case *types.Map:
		return v.inferMapLit(lit, t)
	}
	return typenode.FromType(typ, v.target.Resolver)
}

// inferSequence types a slice or array literal. When the declared element
// type carries a shape it wins; an any-element literal gets its shape from
// the elements, homogeneous or bare.
func (v *visitor) inferSequence(lit *ast.CompositeLit, elem types.Type) *typenode.Node {
	if !isAnyType(elem) {
		return typenode.List(typenode.FromType(elem, v.target.Resolver))
	}
	var common *typenode.Node
	for i, el := range lit.Elts {
		node := v.inferExpr(el)
		if node == nil {
			return typenode.List()
		}
		if i == 0 {
			common = node
			continue
		}
		if !common.Equal(node) {
			return typenode.List()
		}
	}
	if common == nil {
		return typenode.List()
	}
	return typenode.List(common)
}

func (v *visitor) inferMapLit(lit *ast.CompositeLit, t *types.Map) *typenode.Node {
	key := typenode.FromType(t.Key(), v.target.Resolver)
	value := typenode.FromType(t.Elem(), v.target.Resolver)
	if isAnyType(t.Elem()) {
		value = v.uniformMapSide(lit, false)
	}
	if isAnyType(t.Key()) {
		key = v.uniformMapSide(lit, true)
	}
	return typenode.MapOf(key, value)
}

// uniformMapSide returns the common node of a map literal's keys or values,
// or Any when they disagree or cannot be resolved.
func (v *visitor) uniformMapSide(lit *ast.CompositeLit, keys bool) *typenode.Node {
	var common *typenode.Node
	for i, el := range lit.Elts {
		kv, ok := el.(*ast.KeyValueExpr)
		if !ok {
			return typenode.AnyNode()
		}
		expr := kv.Value
		if keys {
			expr = kv.Key
		}
		node := v.inferExpr(expr)
		if node == nil {
			return typenode.AnyNode()
		}
		if i == 0 {
			common = node
			continue
		}
		if !common.Equal(node) {
			return typenode.AnyNode()
		}
	}
	if common == nil {
		return typenode.AnyNode()
	}
	return common
}

func (v *visitor) inferCall(call *ast.CallExpr) *typenode.Node {
	// Conversions T(x).
	if obj := calleeObject(v.target.Pkg.TypesInfo, call.Fun); obj != nil {
		if tn, ok := obj.(*types.TypeName); ok {
			return typenode.FromType(tn.Type(), v.target.Resolver)
		}
		if fn, ok := obj.(*types.Func); ok {
			return v.funcReturn(fn)
		}
	}

	// Calls through a local binding with a known callable shape yield the
	// callable's wrapped return node.
	if id, ok := unparen(call.Fun).(*ast.Ident); ok {
		if node, bound := v.locals[id.Name]; bound && node != nil && node.Origin.Kind == typenode.KindFunc {
			if len(node.Args) > 0 {
				return node.Args[0]
			}
			return nil
		}
	}

	// Anything else: trust the call expression's static result type.
	return v.staticType(call)
}

// staticType falls back to the expression's statically known type. An
// expression typed any yields no opinion so return-site unification can
// still detect real divergence.
func (v *visitor) staticType(expr ast.Expr) *typenode.Node {
	tv, ok := v.target.Pkg.TypesInfo.Types[expr]
	if !ok || tv.Type == nil || tv.IsNil() {
		if ok && tv.IsNil() {
			return typenode.NilNode()
		}
		return nil
	}
	if basic, isBasic := tv.Type.(*types.Basic); isBasic && basic.Kind() == types.Invalid {
		return nil
	}
	if isAnyType(tv.Type) {
		return nil
	}
	return typenode.FromType(tv.Type, v.target.Resolver)
}

// unify reconciles the collected return nodes: none means the function
// returns nothing (null), agreement means that shape, any disagreement
// degrades to any. A nil result with returns present means no opinion.
func unify(returns []*typenode.Node) *typenode.Node {
	if len(returns) == 0 {
		return typenode.NilNode()
	}
	first := returns[0]
	for _, r := range returns[1:] {
		if !nodesEqual(first, r) {
			return typenode.AnyNode()
		}
	}
	return first
}

func nodesEqual(a, b *typenode.Node) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(b)
}

// directive extracts the argument of a //typesync:<name> comment line.
func directive(group *ast.CommentGroup, name string) (string, bool) {
	if group == nil {
		return "", false
	}
	prefix := "//typesync:" + name
	for _, c := range group.List {
		rest, ok := strings.CutPrefix(c.Text, prefix)
		if !ok {
			continue
		}
		rest = strings.TrimSpace(rest)
		if rest != "" {
			return rest, true
		}
	}
	return "", false
}

func firstResult(sig *types.Signature) types.Type {
	results := sig.Results()
	for i := 0; i < results.Len(); i++ {
		if !isErrorType(results.At(i).Type()) {
			return results.At(i).Type()
		}
	}
	return nil
}

func isErrorType(t types.Type) bool {
	named, ok := t.(*types.Named)
	return ok && named.Obj().Pkg() == nil && named.Obj().Name() == "error"
}

func isAnyType(t types.Type) bool {
	iface, ok := t.Underlying().(*types.Interface)
	return ok && iface.NumMethods() == 0 && iface.NumEmbeddeds() == 0
}

// calleeObject resolves a call target expression to its object, if the
// target is a plain identifier or selector.
func calleeObject(info *types.Info, fun ast.Expr) types.Object {
	switch e := unparen(fun).(type) {
	case *ast.Ident:
		return info.Uses[e]
	case *ast.SelectorExpr:
		return info.Uses[e.Sel]
	case *ast.IndexExpr:
		return calleeObject(info, e.X)
	case *ast.IndexListExpr:
		return calleeObject(info, e.X)
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
