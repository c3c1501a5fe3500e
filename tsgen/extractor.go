package tsgen

import (
	"fmt"
	"go/types"
	"log/slog"
	"strings"

	"github.com/ArmindoFlores/typesync"
	"github.com/ArmindoFlores/typesync/tsgen/infer"
	"github.com/ArmindoFlores/typesync/tsgen/provider"
	"github.com/ArmindoFlores/typesync/tsgen/translate"
	"github.com/ArmindoFlores/typesync/tsgen/tstypes"
	"github.com/ArmindoFlores/typesync/tsgen/typenode"
)

// RouteTypeExtractor resolves the TypeScript-facing types of one route: its
// URL argument record, its return type and, for JSON-body routes, its body
// type, each keyed by accepted HTTP method. All collaborators are passed in
// explicitly; the extractor holds no global state.
type RouteTypeExtractor struct {
	route  *provider.Route
	src    *provider.Source
	chain  *translate.Chain
	logger *slog.Logger

	inference         bool
	resolveDirectives bool
	skipUnannotated   bool
}

// NewRouteTypeExtractor builds an extractor for one discovered route.
func NewRouteTypeExtractor(route *provider.Route, src *provider.Source, chain *translate.Chain, cfg *Config) *RouteTypeExtractor {
	cfg = applyConfigDefaults(cfg)
	return &RouteTypeExtractor{
		route:             route,
		src:               src,
		chain:             chain,
		logger:            cfg.Logger,
		inference:         cfg.Inference,
		resolveDirectives: cfg.ResolveTypeDirectives,
		skipUnannotated:   *cfg.SkipUnannotated,
	}
}

// RuleName returns the route's endpoint identifier with dots flattened,
// usable as a TypeScript name stem.
func (e *RouteTypeExtractor) RuleName() string {
	return strings.ReplaceAll(e.route.Endpoint, ".", "_")
}

// RuleURL returns the rule with bare <name> placeholders.
func (e *RouteTypeExtractor) RuleURL() string {
	return e.route.Rule.Template()
}

// Methods returns the route's accepted HTTP methods.
func (e *RouteTypeExtractor) Methods() []string {
	return e.route.Methods
}

// ArgsTypes resolves the URL argument record per accepted method: built-in
// converters map directly, custom converters contribute their declared
// Convert result translated through the chain. Routes without arguments map
// to the undefined type.
func (e *RouteTypeExtractor) ArgsTypes() (map[string]tstypes.Type, error) {
	args := e.route.Rule.Arguments()

	results := make(map[string]tstypes.Type, len(e.route.Methods))
	for _, method := range e.route.Methods {
		if len(args) == 0 {
			results[method] = tstypes.Undefined()
			continue
		}
		fieldTypes := make([]tstypes.Type, 0, len(args))
		for _, arg := range args {
			conv, _ := e.route.Rule.ConverterFor(arg)
			t, err := e.converterType(arg, conv, method)
			if err != nil {
				return nil, fmt.Errorf("argument %q: %w", arg, err)
			}
			fieldTypes = append(fieldTypes, t)
		}
		results[method] = tstypes.NewObject(args, fieldTypes)
	}
	return results, nil
}

// converterType maps one converter to a TypeScript type.
func (e *RouteTypeExtractor) converterType(arg, converter, method string) (tstypes.Type, error) {
	switch converter {
	case typesync.ConverterInt, typesync.ConverterFloat:
		return tstypes.Number(), nil
	case typesync.ConverterString, typesync.ConverterPath, typesync.ConverterUUID:
		return tstypes.String(), nil
	}

	custom, ok := e.src.Converters[converter]
	if !ok || custom.Result == nil {
		e.logger.Warn("using non-standard converter without a resolvable Convert result, defaulting to 'string'",
			slog.String("route", e.route.Endpoint),
			slog.String("argument", arg),
			slog.String("converter", converter))
		return tstypes.String(), nil
	}

	ctx := e.newContext(method, translate.PhaseArgs, false)
	result := e.chain.Translate(typenode.FromType(custom.Result, e.src.Resolver), ctx)
	e.logWarnings(ctx)
	return result, nil
}

// ReturnTypes resolves the handler's return type per accepted method. A nil
// map with a nil error means the route was skipped for lack of a resolvable
// annotation.
func (e *RouteTypeExtractor) ReturnTypes() (map[string]tstypes.Type, error) {
	return e.returnTypes(false)
}

func (e *RouteTypeExtractor) returnTypes(forceInference bool) (map[string]tstypes.Type, error) {
	h := e.route.Handler
	if h == nil || h.Sig == nil {
		return nil, fmt.Errorf("route %q has no resolvable handler signature", e.route.Endpoint)
	}

	var node *typenode.Node
	inferred := false

	declared := firstResult(h.Sig)
	if !forceInference && declared != nil && !isAnyType(declared) {
		node = typenode.FromType(declared, e.src.Resolver)
	} else if e.inference {
		node = e.inferReturn()
		inferred = true
	}

	if node == nil {
		if e.skipUnannotated {
			return nil, nil
		}
		e.logger.Warn("no resolvable return annotation, defaulting to 'any'",
			slog.String("route", e.route.Endpoint))
		node = typenode.AnyNode()
	}

	results := make(map[string]tstypes.Type, len(e.route.Methods))
	for _, method := range e.route.Methods {
		ctx := e.newContext(method, translate.PhaseReturn, inferred)
		result := e.chain.Translate(node, ctx)

		if len(ctx.Warnings()) > 0 && !inferred && !forceInference && e.inference {
			// The written annotation did not fully translate; see if the
			// body's actual shape does better.
			return e.returnTypes(true)
		}
		e.logWarnings(ctx)
		results[method] = result
	}
	return results, nil
}

// BodyTypes resolves the JSON body type for routes registered with a
// body-taking handler. Routes without a body yield an empty map.
func (e *RouteTypeExtractor) BodyTypes() (map[string]tstypes.Type, error) {
	if !e.route.JSONBody {
		return map[string]tstypes.Type{}, nil
	}
	h := e.route.Handler
	if h == nil || h.Sig == nil || h.Sig.Params().Len() < 3 {
		return nil, fmt.Errorf("route %q expected a JSON body parameter", e.route.Endpoint)
	}

	node := typenode.FromType(h.Sig.Params().At(2).Type(), e.src.Resolver)
	results := make(map[string]tstypes.Type, len(e.route.Methods))
	for _, method := range e.route.Methods {
		ctx := e.newContext(method, translate.PhaseBody, false)
		results[method] = e.chain.Translate(node, ctx)
		e.logWarnings(ctx)
	}
	return results, nil
}

// inferReturn runs the inference visitor over the handler body. nil means
// no opinion.
func (e *RouteTypeExtractor) inferReturn() *typenode.Node {
	h := e.route.Handler
	if h == nil || (h.Decl == nil && h.Lit == nil) {
		return nil
	}
	node, err := infer.InferReturnType(&infer.Target{
		Decl:              h.Decl,
		Lit:               h.Lit,
		Pkg:               h.Pkg,
		File:              h.File,
		Resolver:          e.src.Resolver,
		Index:             e.src,
		ResolveDirectives: e.resolveDirectives,
		Warnf: func(format string, args ...any) {
			e.logger.Warn(fmt.Sprintf(format, args...), slog.String("route", e.route.Endpoint))
		},
	})
	if err != nil {
		e.logger.Warn(err.Error(), slog.String("route", e.route.Endpoint))
		return nil
	}
	return node
}

func (e *RouteTypeExtractor) newContext(method string, phase translate.Phase, inferred bool) *translate.Context {
	return &translate.Context{
		Endpoint: e.route.Endpoint,
		Method:   method,
		Phase:    phase,
		Inferred: inferred,
	}
}

func (e *RouteTypeExtractor) logWarnings(ctx *translate.Context) {
	for _, w := range ctx.Warnings() {
		e.logger.Warn(w, slog.String("route", e.route.Endpoint))
	}
}

// firstResult returns a signature's first non-error result type, mirroring
// the runtime's unwrapping of (T, error) handler signatures.
func firstResult(sig *types.Signature) types.Type {
	results := sig.Results()
	for i := 0; i < results.Len(); i++ {
		t := results.At(i).Type()
		if named, ok := t.(*types.Named); ok && named.Obj().Pkg() == nil && named.Obj().Name() == "error" {
			continue
		}
		return t
	}
	return nil
}

func isAnyType(t types.Type) bool {
	iface, ok := t.Underlying().(*types.Interface)
	return ok && iface.NumMethods() == 0 && iface.NumEmbeddeds() == 0
}
