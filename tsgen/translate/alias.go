package translate

import (
	"github.com/ArmindoFlores/typesync/tsgen/tstypes"
	"github.com/ArmindoFlores/typesync/tsgen/typenode"
)

// aliasTranslator unwraps type aliases: it binds the alias's declared type
// parameters to the translated use-site arguments and translates the aliased
// expression under that fresh environment. Alias chains (an alias whose
// value is another alias) unwrap one step per pass through the chain, each
// step consuming one unit of the per-call budget.
type aliasTranslator struct {
	next TranslateFunc
	ctx  *Context
}

func newAliasTranslator(next TranslateFunc, ctx *Context) Translator {
	return &aliasTranslator{next: next, ctx: ctx}
}

func (t *aliasTranslator) Translate(node *typenode.Node, env *typenode.Binding) (tstypes.Type, bool) {
	if node.Origin.Kind != typenode.KindAlias || node.Value == nil {
		return nil, false
	}

	if !t.ctx.takeAliasStep() {
		t.ctx.Warnf("alias '%s' exceeds the unwrap depth limit, defaulting to 'any'", node.Origin.Name)
		return tstypes.Any(), true
	}

	aliasEnv := typenode.NewBinding(node.Params, translateArgs(t.next, node.Args, env), env)
	return t.next(node.Value, aliasEnv), true
}
