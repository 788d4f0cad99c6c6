package jsonval

import (
	"strconv"
	"strings"

	"sqlanon/internal/anonymize"
	"sqlanon/internal/config"
)

// HasWildcards reports whether path contains an array wildcard segment.
func HasWildcards(path string) bool {
	return strings.Contains(path, "[]")
}

// GetString reads the string value at path, or "" with ok=false if the
// path does not resolve to a string (including: does not resolve at
// all).
func GetString(root *Value, path string) (string, bool) {
	path = strings.TrimPrefix(path, ".")
	v := getValueAtPath(root, path)
	if v == nil || v.Kind != KindString {
		return "", false
	}
	return v.Str, true
}

func getValueAtPath(value *Value, path string) *Value {
	if path == "" {
		return value
	}

	segment, rest := splitPathSegment(path)

	switch value.Kind {
	case KindObject:
		for _, m := range value.Object {
			if m.Key == segment {
				return getValueAtPath(m.Value, rest)
			}
		}
		return nil
	case KindArray:
		if strings.HasPrefix(segment, "[") {
			idxStr := segment[1 : len(segment)-1]
			idx, err := strconv.Atoi(idxStr)
			if err == nil && idx >= 0 && idx < len(value.Array) {
				return getValueAtPath(value.Array[idx], rest)
			}
		}
		return nil
	default:
		return nil
	}
}

// Replace overwrites every string value reachable at path with
// newValue, resolving `[]` wildcards along the way. It reports whether
// at least one string was set.
func Replace(root *Value, path, newValue string) bool {
	path = strings.TrimPrefix(path, ".")
	return setValueAtPath(root, path, newValue)
}

func setValueAtPath(value *Value, path, newValue string) bool {
	if path == "" {
		if value.Kind == KindString {
			value.Str = newValue
			return true
		}
		return false
	}

	if strings.HasPrefix(path, "[]") {
		if value.Kind != KindArray {
			return false
		}
		remaining := strings.TrimPrefix(strings.TrimPrefix(path, "[]"), ".")
		any := false
		for _, e := range value.Array {
			if setValueAtPath(e, remaining, newValue) {
				any = true
			}
		}
		return any
	}

	segment, rest := splitPathSegment(path)

	switch value.Kind {
	case KindObject:
		for _, m := range value.Object {
			if m.Key != segment {
				continue
			}
			if strings.HasPrefix(rest, "[") {
				if strings.HasPrefix(rest, "[]") {
					if m.Value.Kind != KindArray {
						return false
					}
					remaining := strings.TrimPrefix(strings.TrimPrefix(rest, "[]"), ".")
					any := false
					for _, e := range m.Value.Array {
						if setValueAtPath(e, remaining, newValue) {
							any = true
						}
					}
					return any
				}
				end := strings.IndexByte(rest, ']')
				if end < 0 {
					return false
				}
				idx, err := strconv.Atoi(rest[1:end])
				if err != nil || m.Value.Kind != KindArray || idx < 0 || idx >= len(m.Value.Array) {
					return false
				}
				remaining := strings.TrimPrefix(rest[end+1:], ".")
				return setValueAtPath(m.Value.Array[idx], remaining, newValue)
			}
			return setValueAtPath(m.Value, rest, newValue)
		}
		return false
	case KindArray:
		if !strings.HasPrefix(segment, "[") {
			return false
		}
		if segment == "[]" {
			any := false
			for _, e := range value.Array {
				if setValueAtPath(e, rest, newValue) {
					any = true
				}
			}
			return any
		}
		idx, err := strconv.Atoi(segment[1 : len(segment)-1])
		if err != nil || idx < 0 || idx >= len(value.Array) {
			return false
		}
		return setValueAtPath(value.Array[idx], rest, newValue)
	default:
		return false
	}
}

// Anonymize applies rule to every string value reachable at path,
// resolving `[]` wildcards. It reports whether at least one string was
// transformed.
func Anonymize(root *Value, path string, rule *config.AnonRule, secret []byte) bool {
	path = strings.TrimPrefix(path, ".")
	return anonymizeAtPath(root, path, rule, secret)
}

func anonymizeAtPath(value *Value, path string, rule *config.AnonRule, secret []byte) bool {
	if path == "" {
		if value.Kind != KindString {
			return false
		}
		if rule.Kind == config.KindFixed {
			value.Str = rule.FixedValue
			return true
		}
		res := anonymize.Anonymize(false, rule, []byte(value.Str), secret, &anonymize.AnonContext{}, nil)
		value.Str = string(res.Data)
		return true
	}

	if strings.HasPrefix(path, "[]") {
		if value.Kind != KindArray {
			return false
		}
		remaining := strings.TrimPrefix(strings.TrimPrefix(path, "[]"), ".")
		any := false
		for _, e := range value.Array {
			if anonymizeAtPath(e, remaining, rule, secret) {
				any = true
			}
		}
		return any
	}

	segment, rest := splitPathSegment(path)

	switch value.Kind {
	case KindObject:
		for _, m := range value.Object {
			if m.Key != segment {
				continue
			}
			if strings.HasPrefix(rest, "[") {
				if strings.HasPrefix(rest, "[]") {
					if m.Value.Kind != KindArray {
						return false
					}
					remaining := strings.TrimPrefix(strings.TrimPrefix(rest, "[]"), ".")
					any := false
					for _, e := range m.Value.Array {
						if anonymizeAtPath(e, remaining, rule, secret) {
							any = true
						}
					}
					return any
				}
				end := strings.IndexByte(rest, ']')
				if end < 0 {
					return false
				}
				idx, err := strconv.Atoi(rest[1:end])
				if err != nil || m.Value.Kind != KindArray || idx < 0 || idx >= len(m.Value.Array) {
					return false
				}
				remaining := strings.TrimPrefix(rest[end+1:], ".")
				return anonymizeAtPath(m.Value.Array[idx], remaining, rule, secret)
			}
			return anonymizeAtPath(m.Value, rest, rule, secret)
		}
		return false
	case KindArray:
		if !strings.HasPrefix(segment, "[") {
			return false
		}
		if segment == "[]" {
			any := false
			for _, e := range value.Array {
				if anonymizeAtPath(e, rest, rule, secret) {
					any = true
				}
			}
			return any
		}
		idx, err := strconv.Atoi(segment[1 : len(segment)-1])
		if err != nil || idx < 0 || idx >= len(value.Array) {
			return false
		}
		return anonymizeAtPath(value.Array[idx], rest, rule, secret)
	default:
		return false
	}
}

// splitPathSegment extracts the first path segment (a bracketed index
// or a dotted/bracketed-terminated field name) and the remaining path.
func splitPathSegment(path string) (string, string) {
	if path == "" {
		return "", ""
	}

	if strings.HasPrefix(path, "[") {
		if end := strings.IndexByte(path, ']'); end >= 0 {
			segment := path[:end+1]
			rest := strings.TrimPrefix(path[end+1:], ".")
			return segment, rest
		}
	}

	end := len(path)
	for i, c := range path {
		if c == '.' || c == '[' {
			end = i
			break
		}
	}

	segment := path[:end]
	rest := strings.TrimPrefix(path[end:], ".")
	return segment, rest
}
