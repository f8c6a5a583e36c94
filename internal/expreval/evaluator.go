// Package expreval implements the sandboxed expression evaluator of
// §4.3: it resolves "$global"/"%local" names, substitutes them into a
// sanitized expression string, and evaluates the result using
// github.com/expr-lang/expr as the sandboxed engine (the pack's own
// expression library — see pkg/executor/builtin/conditional.go and
// internal/application/engine/condition_cache.go in the teacher repo).
package expreval

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/expr-lang/expr"

	"github.com/narrativeflow/storyflow/internal/varstore"
)

// variableToken matches a single "$name" or "%name" reference. Per
// invariant 6, the full authored grammar also allows "." "(" ")" "["
// "]" after the identifier for field access, calls and indexing on
// whatever value the store holds; those trailing characters are left
// untouched by the rewrite below so expr-lang's own field/index/call
// syntax applies to them unmodified.
var variableToken = regexp.MustCompile(`[$%][A-Za-z][A-Za-z0-9_]*`)

// Evaluator evaluates authored expressions against a pair of variable
// stores, caching compiled programs across calls.
type Evaluator struct {
	cache  *cache
	strict bool
}

// New returns an Evaluator with the given compiled-program cache
// capacity. Undefined variable references are errors until
// SetStrictUndefined(false) relaxes them to nil reads.
func New(cacheCapacity int) *Evaluator {
	return &Evaluator{cache: newCache(cacheCapacity), strict: true}
}

// SetStrictUndefined controls how a read of an unbound "$name"/"%name"
// is handled: strict mode returns an UndefinedVariable error, lenient
// mode resolves the name to nil. Assignments still require a bound
// left-hand side for compound operators in either mode.
func (ev *Evaluator) SetStrictUndefined(strict bool) {
	ev.strict = strict
}

// Result is the outcome of a successful Eval.
type Result struct {
	Value    any
	Assigned bool // true if the expression was an assignment statement
}

// Eval sanitizes, resolves and evaluates expr against globals and
// locals. If expr is an assignment statement ("$x = ...", "%y += ..."),
// the right-hand side is evaluated and written back into the
// appropriate store, and Result.Assigned is true.
func (ev *Evaluator) Eval(source string, globals, locals *varstore.Store) (Result, *EvalError) {
	sanitized := Sanitize(source)

	if a, ok := parseAssignment(sanitized); ok {
		return ev.evalAssignment(sanitized, a, globals, locals)
	}

	val, err := ev.run(sanitized, globals, locals)
	if err != nil {
		return Result{}, err
	}
	return Result{Value: val}, nil
}

func (ev *Evaluator) evalAssignment(full string, a assignment, globals, locals *varstore.Store) (Result, *EvalError) {
	rhsVal, err := ev.run(a.rhs, globals, locals)
	if err != nil {
		return Result{}, err
	}

	store := globals
	if a.sigil == '%' {
		store = locals
	}

	newVal := rhsVal
	if a.op != "=" {
		current, ok := store.Get(a.name)
		if !ok {
			return Result{}, &EvalError{Kind: UndefinedVariable, Expression: full, Err: fmt.Errorf("undefined variable %q", a.name)}
		}
		combined, combErr := applyCompound(a.op, current, rhsVal)
		if combErr != nil {
			return Result{}, &EvalError{Kind: combErr.kind, Expression: full, Err: combErr.err}
		}
		newVal = combined
	}

	store.Set(a.name, newVal)
	return Result{Value: newVal, Assigned: true}, nil
}

type compoundErr struct {
	kind EvalErrorKind
	err  error
}

func applyCompound(op string, current, rhs any) (any, *compoundErr) {
	cf, cOk := toFloat(current)
	rf, rOk := toFloat(rhs)
	if cOk && rOk {
		switch op {
		case "+=":
			return cf + rf, nil
		case "-=":
			return cf - rf, nil
		case "*=":
			return cf * rf, nil
		case "/=":
			if rf == 0 {
				return nil, &compoundErr{kind: DivisionByZero, err: errors.New("division by zero")}
			}
			return cf / rf, nil
		}
	}
	if op == "+=" {
		if cs, ok := current.(string); ok {
			return cs + fmt.Sprintf("%v", rhs), nil
		}
	}
	return nil, &compoundErr{kind: TypeError, err: fmt.Errorf("incompatible operand types for %s", op)}
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case float64:
		return n, true
	case float32:
		return float64(n), true
	default:
		return 0, false
	}
}

// run checks every $/%-referenced name is bound, rewrites them into
// expr-lang map accesses, compiles (or reuses a cached compile) and runs
// the expression against the current store contents.
func (ev *Evaluator) run(sanitized string, globals, locals *varstore.Store) (any, *EvalError) {
	if sanitized == "" {
		return nil, nil
	}

	globalSnap := globals.Snapshot()
	localSnap := locals.Snapshot()

	if missing, ok := firstUndefined(sanitized, globalSnap, localSnap); ok {
		if ev.strict {
			return nil, &EvalError{Kind: UndefinedVariable, Expression: sanitized, Err: fmt.Errorf("undefined variable %q", missing)}
		}
		bindUndefined(sanitized, globalSnap, localSnap)
	}

	rewritten := rewrite(sanitized)
	env := map[string]any{"globals": globalSnap, "locals": localSnap}

	program, ok := ev.cache.get(rewritten)
	if !ok {
		compiled, err := expr.Compile(rewritten, expr.Env(env))
		if err != nil {
			return nil, &EvalError{Kind: SyntaxError, Expression: sanitized, Err: err}
		}
		program = compiled
		ev.cache.put(rewritten, program)
	}

	out, err := expr.Run(program, env)
	if err != nil {
		return nil, classifyRuntimeError(sanitized, err)
	}
	return out, nil
}

func classifyRuntimeError(source string, err error) *EvalError {
	msg := err.Error()
	kind := TypeError
	if strings.Contains(msg, "division") || strings.Contains(msg, "divide by zero") {
		kind = DivisionByZero
	}
	return &EvalError{Kind: kind, Expression: source, Err: err}
}

func rewrite(s string) string {
	return variableToken.ReplaceAllStringFunc(s, func(tok string) string {
		sigil, name := tok[0], tok[1:]
		if sigil == '$' {
			return `globals["` + name + `"]`
		}
		return `locals["` + name + `"]`
	})
}

// bindUndefined fills every unbound referenced name with nil so a
// lenient evaluation can proceed.
func bindUndefined(s string, globals, locals map[string]any) {
	for _, tok := range variableToken.FindAllString(s, -1) {
		sigil, name := tok[0], tok[1:]
		store := globals
		if sigil == '%' {
			store = locals
		}
		if _, ok := store[name]; !ok {
			store[name] = nil
		}
	}
}

func firstUndefined(s string, globals, locals map[string]any) (string, bool) {
	for _, tok := range variableToken.FindAllString(s, -1) {
		sigil, name := tok[0], tok[1:]
		store := globals
		if sigil == '%' {
			store = locals
		}
		if _, ok := store[name]; !ok {
			return name, true
		}
	}
	return "", false
}
