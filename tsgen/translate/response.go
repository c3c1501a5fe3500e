package translate

import (
	"github.com/ArmindoFlores/typesync/tsgen/tstypes"
	"github.com/ArmindoFlores/typesync/tsgen/typenode"
)

// responseTranslator makes the framework's typed response wrapper
// transparent: Response[T] translates exactly as T. It runs before the base
// translator so the wrapper is stripped before generic shape matching.
type responseTranslator struct {
	next TranslateFunc
}

func newResponseTranslator(next TranslateFunc, _ *Context) Translator {
	return &responseTranslator{next: next}
}

func (t *responseTranslator) Translate(node *typenode.Node, env *typenode.Binding) (tstypes.Type, bool) {
	if node.Origin.Kind != typenode.KindResponse || len(node.Args) != 1 {
		return nil, false
	}
	return unwrapGeneric(t.next, node.Args[0], env), true
}
