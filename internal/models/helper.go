package models

import "strings"

// NormalizeResponse lowercases a response and collapses internal whitespace,
// the shared normal form used by evaluators and mistake clustering.
func NormalizeResponse(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

var (
	trueValues  = map[string]struct{}{"true": {}, "t": {}, "yes": {}, "y": {}, "1": {}, "correct": {}}
	falseValues = map[string]struct{}{"false": {}, "f": {}, "no": {}, "n": {}, "0": {}, "incorrect": {}}
)

// ParseBoolResponse maps the accepted true/false spellings to a boolean.
// The second return is false when the text is neither.
func ParseBoolResponse(s string) (bool, bool) {
	norm := NormalizeResponse(s)
	if _, ok := trueValues[norm]; ok {
		return true, true
	}
	if _, ok := falseValues[norm]; ok {
		return false, true
	}
	return false, false
}
