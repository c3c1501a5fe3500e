// Package translate maps type nodes to TypeScript type representations
// through an ordered, pluggable chain of translators.
//
// Each translator is a small strategy: it either produces a TypeScript type
// for a node or reports "not handled" so the next translator in priority
// order may try. Translators receive a callback for delegating child nodes
// to the whole chain, so nested shapes are translated uniformly regardless
// of which translator matched the root.
package translate

import (
	"fmt"
	"sort"

	"github.com/ArmindoFlores/typesync/tsgen/tstypes"
	"github.com/ArmindoFlores/typesync/tsgen/typenode"
)

// Phase identifies which part of a route is being translated. Translators
// may special-case request-body shapes vs response shapes if they wish.
type Phase string

const (
	PhaseReturn Phase = "return"
	PhaseArgs   Phase = "arguments"
	PhaseBody   Phase = "body"
)

// maxAliasDepth bounds alias unwrapping within one translation call. The
// conversion layer already refuses self-referential aliases, so this is a
// backstop: exceeding it surfaces as a translation warning and the node
// defaults to any instead of looping.
const maxAliasDepth = 32

// Context carries per-call translation context: the route being translated,
// the HTTP method and phase, and whether the node came from inference rather
// than a written annotation. It also collects translation warnings.
type Context struct {
	Endpoint string
	Method   string
	Phase    Phase
	Inferred bool

	aliasSteps int
	warnings   []string
}

// Warnf records a non-fatal translation warning.
func (c *Context) Warnf(format string, args ...any) {
	c.warnings = append(c.warnings, fmt.Sprintf(format, args...))
}

// Warnings returns the warnings recorded during this translation call.
func (c *Context) Warnings() []string { return c.warnings }

// takeAliasStep consumes one unit of the alias-unwrap budget.
func (c *Context) takeAliasStep() bool {
	c.aliasSteps++
	return c.aliasSteps <= maxAliasDepth
}

// TranslateFunc translates a child node through the whole chain.
type TranslateFunc func(node *typenode.Node, env *typenode.Binding) tstypes.Type

// Translator attempts to map one node (plus bindings) to a TypeScript type.
type Translator interface {
	// Translate returns the translated type and true, or ok=false when this
	// translator does not handle the node. ok=false is distinct from
	// successfully translating to the any/unknown type.
	Translate(node *typenode.Node, env *typenode.Binding) (tstypes.Type, bool)
}

// Factory constructs a translator bound to a chain callback and call
// context. Translators are constructed fresh per translation call.
type Factory func(next TranslateFunc, ctx *Context) Translator

// Registration pairs a translator factory with its stable identity and
// default priority. Higher priorities run earlier; ties are broken by
// registration order.
type Registration struct {
	ID              string
	DefaultPriority int
	New             Factory
}

// Default priorities of the built-in translators. External registrations
// default below all of them.
const (
	ResponsePriority = 20
	AliasPriority    = 10
	BasePriority     = 0
	ExternalPriority = -10
)

// Builtins returns the built-in translator registrations.
func Builtins() []Registration {
	return []Registration{
		{ID: "typesync.response", DefaultPriority: ResponsePriority, New: newResponseTranslator},
		{ID: "typesync.alias", DefaultPriority: AliasPriority, New: newAliasTranslator},
		{ID: "typesync.base", DefaultPriority: BasePriority, New: newBaseTranslator},
	}
}

// Chain is a priority-ordered set of translator registrations. It is
// immutable after construction and safe for concurrent use; all mutable
// state lives in the per-call Context.
type Chain struct {
	regs []Registration
}

// NewChain builds a chain from the built-ins plus any externally registered
// translators, globally sorted by (-priority, registration order).
// priorities overrides a registration's default priority by ID.
func NewChain(external []Registration, priorities map[string]int) *Chain {
	regs := append(Builtins(), external...)

	// Bake overrides into the stored registrations so the effective priority
	// is visible to callers (the CLI lists it).
	for i := range regs {
		if p, ok := priorities[regs[i].ID]; ok {
			regs[i].DefaultPriority = p
		}
	}

	sort.SliceStable(regs, func(i, j int) bool {
		return regs[i].DefaultPriority > regs[j].DefaultPriority
	})
	return &Chain{regs: regs}
}

// Registrations returns the chain's registrations in evaluation order, with
// priority overrides applied.
func (c *Chain) Registrations() []Registration {
	out := make([]Registration, len(c.regs))
	copy(out, c.regs)
	return out
}

// Translate maps node to a TypeScript type under an empty binding
// environment. Nodes no translator handles default to any, recorded as a
// warning on ctx; translation itself never fails.
func (c *Chain) Translate(node *typenode.Node, ctx *Context) tstypes.Type {
	if ctx == nil {
		ctx = &Context{}
	}

	var translators []Translator
	var translateChild TranslateFunc
	translateChild = func(n *typenode.Node, env *typenode.Binding) tstypes.Type {
		if n == nil {
			return tstypes.Any()
		}
		for _, t := range translators {
			if r, ok := t.Translate(n, env); ok {
				return r
			}
		}
		ctx.Warnf("can't translate '%s' to a TypeScript equivalent, defaulting to 'any'", originLabel(n))
		return tstypes.Any()
	}

	translators = make([]Translator, len(c.regs))
	for i, reg := range c.regs {
		translators[i] = reg.New(translateChild, ctx)
	}

	return translateChild(node, nil)
}

// unwrapGeneric resolves a child node, substituting directly from the
// binding environment when the node's origin is itself a type parameter.
func unwrapGeneric(next TranslateFunc, node *typenode.Node, env *typenode.Binding) tstypes.Type {
	if node != nil && node.Origin.Kind == typenode.KindTypeParam {
		if bound, ok := env.Lookup(node.Origin.Name); ok {
			return bound
		}
	}
	return next(node, env)
}

// translateArgs resolves every use-site argument through unwrapGeneric.
func translateArgs(next TranslateFunc, args []*typenode.Node, env *typenode.Binding) []tstypes.Type {
	out := make([]tstypes.Type, len(args))
	for i, a := range args {
		out[i] = unwrapGeneric(next, a, env)
	}
	return out
}

func originLabel(n *typenode.Node) string {
	if n.Origin.Name != "" {
		return n.Origin.Name
	}
	return n.Origin.Kind.String()
}
