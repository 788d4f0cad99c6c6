package jsonval

import "strings"

// RemoveSQLBackslash undoes one layer of SQL-level backslash escaping
// on a JSON column's raw text before it is parsed as JSON: a run of two
// backslashes collapses to one, and a lone backslash before a non-
// backslash byte is dropped (it was escaping the SQL layer, not JSON).
func RemoveSQLBackslash(src string) string {
	var b strings.Builder
	b.Grow(len(src))
	backslashes := 0

	for i := 0; i < len(src); i++ {
		c := src[i]
		if c != '\\' {
			if backslashes == 1 {
				backslashes = 0
			}
			b.WriteByte(c)
			continue
		}
		backslashes++
		if backslashes%2 == 0 {
			b.WriteByte('\\')
			backslashes = 0
		}
	}

	return b.String()
}

// AddSQLBackslash re-applies SQL-level backslash escaping before a
// JSON document is re-embedded in a quoted SQL string literal.
func AddSQLBackslash(src string) string {
	var b strings.Builder
	b.Grow(len(src) * 2)
	for _, c := range src {
		switch c {
		case '"', '\'', '\\', '\b', '\r', '\t':
			b.WriteByte('\\')
		}
		b.WriteRune(c)
	}
	return b.String()
}
