package expreval

import "strings"

// assignOps lists the compound assignment operators, longest first so a
// scan for them never mistakes "+=" for a bare "+" followed by "=".
var assignOps = []string{"+=", "-=", "*=", "/=", "="}

// assignment is a parsed "$name = rhs" / "%name += rhs" statement.
type assignment struct {
	sigil byte // '$' or '%'
	name  string
	op    string // "=", "+=", "-=", "*=", "/="
	rhs   string
}

// parseAssignment recognizes a leading variable-assignment statement.
// expr-lang is a pure expression language with no assignment operator,
// so the evaluator special-cases this one authored form itself: it
// splits "$x = <rhs>" into (evaluate rhs, write result into globals.x)
// rather than asking expr-lang to parse assignment syntax it doesn't have.
//
// A bare "=" is only treated as assignment, never as equality: "==" is
// rejected by checking the character immediately following a matched
// "=" is not itself "=", and a leading "!"/"<"/">" before the matched
// "=" rules out "!=", "<=", ">=".
func parseAssignment(expr string) (assignment, bool) {
	expr = strings.TrimSpace(expr)
	if len(expr) < 2 || (expr[0] != '$' && expr[0] != '%') {
		return assignment{}, false
	}
	sigil := expr[0]

	i := 1
	for i < len(expr) && isNameChar(expr[i]) {
		i++
	}
	if i == 1 {
		return assignment{}, false // no identifier characters after the sigil
	}
	name := expr[1:i]

	rest := strings.TrimLeft(expr[i:], " \t")
	op, rhs, ok := matchAssignOp(rest)
	if !ok {
		return assignment{}, false
	}

	return assignment{sigil: sigil, name: name, op: op, rhs: strings.TrimSpace(rhs)}, true
}

// ContainsAssignment reports whether expr's text contains a top-level
// assignment statement, used by the templater to decide whether a
// Choice element's "{...}" block must be suppressed until force_eval.
func ContainsAssignment(expr string) bool {
	_, ok := parseAssignment(expr)
	return ok
}

func matchAssignOp(s string) (op, rhs string, ok bool) {
	for _, candidate := range assignOps {
		if !strings.HasPrefix(s, candidate) {
			continue
		}
		after := s[len(candidate):]
		if candidate == "=" {
			// Reject "==". "!=", "<=" and ">=" never reach this point:
			// s then starts with "!", "<" or ">", which no candidate
			// operator matches as a prefix.
			if strings.HasPrefix(after, "=") {
				continue
			}
		}
		return candidate, after, true
	}
	return "", "", false
}

func isNameChar(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}
