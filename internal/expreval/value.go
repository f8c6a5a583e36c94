package expreval

import "regexp"

// Truthy reports whether an evaluated expression value counts as true
// when used as a branch condition (Condition nodes, inline [IF ...]
// conditionals): booleans are themselves, numbers are true when
// non-zero, strings when non-empty, nil is false. Any other value is
// considered true, matching how the authoring editor previews truthiness.
func Truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case string:
		return t != ""
	case int:
		return t != 0
	case int64:
		return t != 0
	case float32:
		return t != 0
	case float64:
		return t != 0
	default:
		return true
	}
}

// RefCount reports how many "$name"/"%name" variable references appear
// in source. The templater uses it to decide whether an interpolation
// block substitutes its value into the output (exactly one reference)
// or is evaluated purely for its side effects and dropped.
func RefCount(source string) int {
	return len(variableToken.FindAllString(source, -1))
}

// bareVariable matches an expression that is nothing but one variable
// reference, optionally with trailing field/index access.
var bareVariable = regexp.MustCompile(`^[$%][A-Za-z][A-Za-z0-9_.()\[\]]*$`)

// IsBareVariable reports whether source is a single variable reference
// with no surrounding operators.
func IsBareVariable(source string) bool {
	return bareVariable.MatchString(source)
}
