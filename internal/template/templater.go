// Package template renders an element's authored text: variation
// blocks, inline conditionals, TODO stripping, the one-shot and
// fallback markers, expression interpolation and final whitespace
// normalization, in that order (§4.4). Each pass consumes the output
// of the prior one.
package template

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/narrativeflow/storyflow/internal/expreval"
	"github.com/narrativeflow/storyflow/internal/locale"
	"github.com/narrativeflow/storyflow/internal/variation"
	"github.com/narrativeflow/storyflow/internal/varstore"
	"github.com/narrativeflow/storyflow/pkg/model"
)

// Error markers substituted into rendered text when an authored
// expression fails to evaluate. Authoring errors are visible, never fatal.
const (
	ErrMarker       = "--error--"
	InlineErrMarker = " --ERROR-- "
)

var (
	inlineIfPattern = regexp.MustCompile(`\[IF([^\]]*)\]`)
	inlineIfArms    = regexp.MustCompile(`^\s*"([^"]*)"\s*:\s*"([^"]*)"\s*$`)
	todoPattern     = regexp.MustCompile(`\[TODO[^\]]*\]`)
	exprPattern     = regexp.MustCompile(`\{([^}]*)\}`)
)

// Markers authors place in element text to flag the element itself.
const (
	justOnceMarker = "[-]"
	ifNoMoreMarker = "[+]"
)

// Templater renders element text against the runtime's variation
// registry and variable stores.
type Templater struct {
	registry   *variation.Registry
	eval       *expreval.Evaluator
	globals    *varstore.Store
	locals     *varstore.Store
	mainLocale string
	pick       variation.Picker

	// OnEvalError observes expression failures the render swallowed
	// into an error marker; OnLocaleFallback observes main-locale
	// fallbacks. Both are optional.
	OnEvalError      func(err *expreval.EvalError)
	OnLocaleFallback func(elementID, requested string)
}

// New wires a Templater to the runtime's shared collaborators.
func New(registry *variation.Registry, eval *expreval.Evaluator, globals, locals *varstore.Store, mainLocale string, pick variation.Picker) *Templater {
	return &Templater{
		registry:   registry,
		eval:       eval,
		globals:    globals,
		locals:     locals,
		mainLocale: mainLocale,
		pick:       pick,
	}
}

// Render produces the element's display text for the requested locale.
// forceEval realizes the side effects of assignment blocks inside
// Choice elements; pre-display rendering passes false so choosing a
// choice later does not double-apply its assignments.
//
// An [IF ...] conditional with other than exactly two quoted arms is a
// syntax error and renders as the inline error marker.
func (t *Templater) Render(el *model.NodeElement, node *model.Node, forceEval bool, loc string) string {
	content, fellBack := locale.Resolve(el, node.Translatable, loc, t.mainLocale)
	if content == nil {
		return ""
	}
	if fellBack && t.OnLocaleFallback != nil {
		t.OnLocaleFallback(el.ID, loc)
	}

	text := content.Text
	text = t.applyVariations(el, text)
	text = t.applyInlineConditionals(text)
	text = todoPattern.ReplaceAllString(text, "")
	text = applyMarker(text, justOnceMarker, &el.JustOnce)
	text = applyMarker(text, ifNoMoreMarker, &el.IfNoMore)
	text = t.interpolate(node, text, forceEval)
	return normalizeWhitespace(text)
}

// applyVariations replaces the i-th "[[...]]" block with the i-th
// registry record's next rotated value, wrapped in <variation> markers
// the host renderer may strip. A block absent from the registry (a
// translation with more blocks than the main-locale text) degrades to
// its first authored option without touching rotation state.
func (t *Templater) applyVariations(el *model.NodeElement, text string) string {
	return variation.ReplaceBlocks(text, func(i int, b variation.Block, parsed bool) string {
		if v, ok := t.registry.Next(el.ID, i, t.pick); ok {
			return "<variation>" + v + "</variation>"
		}
		if parsed && len(b.Options) > 0 {
			return "<variation>" + b.Options[0] + "</variation>"
		}
		return ""
	})
}

func (t *Templater) applyInlineConditionals(text string) string {
	return inlineIfPattern.ReplaceAllStringFunc(text, func(match string) string {
		inner := match[3 : len(match)-1] // strip "[IF" and "]"
		cond, arms, ok := strings.Cut(inner, "?")
		if !ok {
			return InlineErrMarker
		}
		m := inlineIfArms.FindStringSubmatch(arms)
		if m == nil {
			return InlineErrMarker
		}
		res, errv := t.eval.Eval(cond, t.globals, t.locals)
		if errv != nil {
			if t.OnEvalError != nil {
				t.OnEvalError(errv)
			}
			return InlineErrMarker
		}
		if expreval.Truthy(res.Value) {
			return m[1]
		}
		return m[2]
	})
}

// applyMarker strips every occurrence of marker from text and raises
// the element flag iff the marker was present.
func applyMarker(text, marker string, flag *bool) string {
	if !strings.Contains(text, marker) {
		return text
	}
	*flag = true
	return strings.ReplaceAll(text, marker, "")
}

// interpolate evaluates "{expr}" blocks. Condition and Variables
// elements written without braces are treated as one whole-text block.
func (t *Templater) interpolate(node *model.Node, text string, forceEval bool) string {
	bare := node.Type == model.NodeCondition || node.Type == model.NodeVariables
	if bare && !strings.Contains(text, "{") && strings.TrimSpace(text) != "" {
		return t.evalBlock(node, text, forceEval)
	}
	return exprPattern.ReplaceAllStringFunc(text, func(match string) string {
		return t.evalBlock(node, match[1:len(match)-1], forceEval)
	})
}

// evalBlock evaluates one interpolation block and decides its output:
// a block with exactly one variable reference substitutes its value;
// an assignment or compound block is evaluated for its effects and
// dropped from the output. A Choice element's assignment block is not
// evaluated at all until forceEval, which the walker passes only when
// the choice is actually taken.
func (t *Templater) evalBlock(node *model.Node, expr string, forceEval bool) string {
	sanitized := expreval.Sanitize(expr)
	if node.Type == model.NodeChoice && !forceEval && expreval.ContainsAssignment(sanitized) {
		return ""
	}

	res, errv := t.eval.Eval(expr, t.globals, t.locals)
	if errv != nil {
		if t.OnEvalError != nil {
			t.OnEvalError(errv)
		}
		return ErrMarker
	}
	if res.Assigned || expreval.RefCount(sanitized) != 1 {
		return ""
	}
	return FormatValue(res.Value)
}

// FormatValue renders an evaluated value the way authored text expects
// it: booleans as true/false, floats without trailing zeros, nil empty.
func FormatValue(v any) string {
	switch n := v.(type) {
	case nil:
		return ""
	case string:
		return n
	case bool:
		return strconv.FormatBool(n)
	case int:
		return strconv.Itoa(n)
	case int64:
		return strconv.FormatInt(n, 10)
	case float64:
		return strconv.FormatFloat(n, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(n), 'f', -1, 32)
	default:
		return fmt.Sprintf("%v", n)
	}
}

var brMarkers = []string{"<br />", "<br/>", "<br>"}

// normalizeWhitespace converts non-breaking spaces to plain spaces and
// trims outer whitespace and leading/trailing <br> runs.
func normalizeWhitespace(s string) string {
	s = strings.ReplaceAll(s, "&nbsp;", " ")
	for {
		s = strings.TrimSpace(s)
		stripped := false
		for _, br := range brMarkers {
			if strings.HasPrefix(s, br) {
				s = strings.TrimSpace(s[len(br):])
				stripped = true
			}
			if strings.HasSuffix(s, br) {
				s = strings.TrimSpace(s[:len(s)-len(br)])
				stripped = true
			}
		}
		if !stripped {
			return s
		}
	}
}
