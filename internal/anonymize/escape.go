// Package anonymize implements the deterministic substitution primitives
// used to replace column values in a SQL dump: SQL quoting/escaping,
// UTF-8- and escape-aware substringing, HMAC-derived code mapping, and
// the rule dispatcher that ties them together.
package anonymize

// EscapeMySQL doubles single quotes and backslashes so src can be placed
// inside a single-quoted MySQL string literal.
func EscapeMySQL(src string) []byte {
	out := make([]byte, 0, len(src))
	for i := 0; i < len(src); i++ {
		b := src[i]
		if b == '\'' || b == '\\' {
			out = append(out, b)
		}
		out = append(out, b)
	}
	return out
}

// RemoveQuotes strips exactly one leading and one trailing single quote
// from src, if present.
func RemoveQuotes(src []byte) []byte {
	if len(src) == 0 {
		return nil
	}
	start, end := 0, len(src)
	if src[0] == '\'' {
		start = 1
	}
	if end > start && src[end-1] == '\'' {
		end--
	}
	out := make([]byte, end-start)
	copy(out, src[start:end])
	return out
}
