package template

import (
	"strings"

	"github.com/narrativeflow/storyflow/internal/expreval"
	"github.com/narrativeflow/storyflow/internal/locale"
	"github.com/narrativeflow/storyflow/internal/variation"
	"github.com/narrativeflow/storyflow/pkg/model"
)

// Original returns the element's authored text for a locale without
// advancing any runtime state. cleaned strips the authoring markers
// (TODO blocks, one-shot and fallback flags) and collapses each
// variation block to its first option; resolveVars substitutes the
// current value of single-variable "{$x}" blocks, leaving compound and
// assignment blocks untouched so no side effect can fire from a
// read-only inspection call.
func (t *Templater) Original(el *model.NodeElement, node *model.Node, cleaned, resolveVars bool, loc string) string {
	content, _ := locale.Resolve(el, node.Translatable, loc, t.mainLocale)
	if content == nil {
		return ""
	}
	text := content.Text

	if cleaned {
		text = variation.ReplaceBlocks(text, func(_ int, b variation.Block, parsed bool) string {
			if parsed && len(b.Options) > 0 {
				return b.Options[0]
			}
			return ""
		})
		text = todoPattern.ReplaceAllString(text, "")
		text = strings.ReplaceAll(text, justOnceMarker, "")
		text = strings.ReplaceAll(text, ifNoMoreMarker, "")
	}

	if resolveVars {
		text = exprPattern.ReplaceAllStringFunc(text, func(match string) string {
			expr := strings.TrimSpace(match[1 : len(match)-1])
			if !expreval.IsBareVariable(expr) || strings.ContainsAny(expr, ".()[]") {
				return match
			}
			name := expr[1:]
			store := t.globals
			if expr[0] == '%' {
				store = t.locals
			}
			if v, ok := store.Get(name); ok {
				return FormatValue(v)
			}
			return match
		})
	}

	if cleaned {
		text = normalizeWhitespace(text)
	}
	return text
}
