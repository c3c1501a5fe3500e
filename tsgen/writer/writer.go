// Package writer renders the generated TypeScript sources: a types file of
// exported type declarations and an apis file exposing a typed client call
// surface around a caller-supplied request function.
package writer

import (
	"context"
	"fmt"
	"strings"

	"github.com/ArmindoFlores/typesync/tsgen/sink"
	"github.com/ArmindoFlores/typesync/tsgen/tstypes"
)

// RouteTypes is the resolved type information for one route, keyed by HTTP
// method where shapes can differ per method.
type RouteTypes struct {
	// RuleName is the route's endpoint identifier, safe as a TS name stem.
	RuleName string

	// RuleURL is the rule with bare <name> placeholders, as substituted by
	// the generated buildUrl.
	RuleURL string

	// Methods are the accepted HTTP methods, in registration order.
	Methods []string

	Args    map[string]tstypes.Type
	Returns map[string]tstypes.Type
	Bodies  map[string]tstypes.Type
}

// Options configures output naming.
type Options struct {
	TypesFile string
	APIsFile  string

	// Endpoint is a base URL prefix for every generated route URL.
	Endpoint string

	ReturnTypeFormat   string
	ArgsTypeFormat     string
	BodyTypeFormat     string
	FunctionNameFormat string
}

// Writer renders routes into the two output files.
type Writer struct {
	opts Options
}

func New(opts Options) *Writer {
	return &Writer{opts: opts}
}

// Write renders all routes and sends both files to the sink.
func (w *Writer) Write(ctx context.Context, routes []RouteTypes, out sink.OutputSink) error {
	var types, apis strings.Builder

	w.writeAPIHeader(&apis)
	var exported []string
	for _, route := range routes {
		names := w.writeTypes(&types, route)
		exported = append(exported, w.writeAPIFunctions(&apis, route, names)...)
	}
	w.writeAPIFooter(&apis, exported)

	if err := out.WriteFile(ctx, w.opts.TypesFile, []byte(types.String())); err != nil {
		return fmt.Errorf("write %s: %w", w.opts.TypesFile, err)
	}
	if err := out.WriteFile(ctx, w.opts.APIsFile, []byte(apis.String())); err != nil {
		return fmt.Errorf("write %s: %w", w.opts.APIsFile, err)
	}
	return nil
}

// typeNames holds the exported declaration names for one route.
type typeNames struct {
	returnType string
	argsType   string
	bodyType   string
	hasArgs    bool
}

// writeTypes emits the route's exported type declarations. Shapes are the
// same across a route's methods, so each declaration is emitted once, from
// the first method that carries it.
func (w *Writer) writeTypes(b *strings.Builder, route RouteTypes) typeNames {
	vals := nameMap(route.RuleName, "")
	names := typeNames{
		returnType: expandFormat(w.opts.ReturnTypeFormat, vals),
		argsType:   expandFormat(w.opts.ArgsTypeFormat, vals),
	}

	ret := firstType(route.Methods, route.Returns)
	if ret == nil {
		ret = tstypes.Any()
	}
	fmt.Fprintf(b, "export type %s = %s;\n", names.returnType, ret.Render())

	args := firstType(route.Methods, route.Args)
	if args == nil {
		args = tstypes.Undefined()
	}
	names.hasArgs = !isUndefined(args)
	fmt.Fprintf(b, "export type %s = %s;\n", names.argsType, args.Render())

	if body := firstType(route.Methods, route.Bodies); body != nil {
		names.bodyType = expandFormat(w.opts.BodyTypeFormat, vals)
		fmt.Fprintf(b, "export type %s = %s;\n", names.bodyType, body.Render())
	}
	b.WriteString("\n")
	return names
}

func (w *Writer) writeAPIHeader(b *strings.Builder) {
	fmt.Fprintf(b, "import * as types from \"./%s\";\n\n", strings.TrimSuffix(w.opts.TypesFile, ".ts"))
	b.WriteString(
		"// eslint-disable-next-line @typescript-eslint/no-explicit-any\n" +
			"export function buildUrl(rule: string, params: Record<string, any>) {\n" +
			"    return rule.replace(/<([a-zA-Z_]+[a-zA-Z_0-9]*)>/g, (_, key) => {\n" +
			"        return String(params[key]);\n" +
			"    });\n" +
			"}\n\n")
	b.WriteString(
		"// eslint-disable-next-line @typescript-eslint/no-explicit-any\n" +
			"type RequestFunction = (endpoint: string, method: string, body?: any) => Promise<any>;\n\n")
	b.WriteString("export function makeAPI(requestFn: RequestFunction) {\n")
}

func (w *Writer) writeAPIFooter(b *strings.Builder, names []string) {
	b.WriteString("    return {\n")
	for _, name := range names {
		fmt.Fprintf(b, "        %s,\n", name)
	}
	b.WriteString("    };\n}\n")
}

// writeAPIFunctions emits one urlFor helper per route and one call function
// per accepted method. It returns the exported function names.
func (w *Writer) writeAPIFunctions(b *strings.Builder, route RouteTypes, names typeNames) []string {
	params := ""
	urlForArgs := ""
	buildURL := fmt.Sprintf("%q", w.opts.Endpoint+route.RuleURL)
	if names.hasArgs {
		params = fmt.Sprintf("params: types.%s", names.argsType)
		urlForArgs = "params"
		buildURL = fmt.Sprintf("buildUrl(%q, params)", w.opts.Endpoint+route.RuleURL)
	}

	fmt.Fprintf(b,
		"    function urlFor_%s(%s): string {\n"+
			"        return %s;\n"+
			"    }\n\n",
		route.RuleName, params, buildURL)

	var exported []string
	for _, method := range route.Methods {
		vals := nameMap(route.RuleName, "r_")
		for k, v := range nameMap(method, "m_") {
			vals[k] = v
		}
		fname := expandFormat(w.opts.FunctionNameFormat, vals)

		fparams := params
		callArgs := fmt.Sprintf("endpoint, %q", method)
		if _, hasBody := route.Bodies[method]; hasBody && names.bodyType != "" {
			body := fmt.Sprintf("body: types.%s", names.bodyType)
			if fparams != "" {
				fparams += ", " + body
			} else {
				fparams = body
			}
			callArgs += ", body"
		}

		fmt.Fprintf(b,
			"    async function %s(%s): Promise<types.%s> {\n"+
				"        const endpoint = urlFor_%s(%s);\n"+
				"        return await requestFn(%s);\n"+
				"    }\n\n",
			fname, fparams, names.returnType, route.RuleName, urlForArgs, callArgs)
		exported = append(exported, fname)
	}
	return exported
}

func firstType(methods []string, byMethod map[string]tstypes.Type) tstypes.Type {
	for _, m := range methods {
		if t, ok := byMethod[m]; ok {
			return t
		}
	}
	return nil
}

func isUndefined(t tstypes.Type) bool {
	simple, ok := t.(tstypes.Simple)
	return ok && simple.Render() == "undefined"
}
