package expreval

// EvalErrorKind classifies a failure raised while evaluating an authored
// expression. EvalError is confined to this package; the templater
// catches it and substitutes the literal marker "--error--" (§4.3, §7).
type EvalErrorKind int

const (
	UndefinedVariable EvalErrorKind = iota
	SyntaxError
	TypeError
	DivisionByZero
)

func (k EvalErrorKind) String() string {
	switch k {
	case UndefinedVariable:
		return "undefined_variable"
	case SyntaxError:
		return "syntax_error"
	case TypeError:
		return "type_error"
	case DivisionByZero:
		return "division_by_zero"
	default:
		return "unknown"
	}
}

// EvalError is returned by Evaluator.Eval on failure.
type EvalError struct {
	Kind       EvalErrorKind
	Expression string
	Err        error
}

func (e *EvalError) Error() string {
	msg := "eval error (" + e.Kind.String() + ") in `" + e.Expression + "`"
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *EvalError) Unwrap() error { return e.Err }
