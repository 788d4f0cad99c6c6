package jsonval

import (
	"strconv"
	"strings"
)

// Serialize renders v as compact JSON (no spaces after ':' or ','),
// matching the format the dump's SQL layer expects to re-embed.
// Strings are written back out verbatim, since Parse never interprets
// their escape sequences. A Float is written as an integer when it has
// no fractional part, mirroring the reference tool's float-to-int
// collapse on output.
func Serialize(v *Value) string {
	var b strings.Builder
	writeValue(&b, v)
	return b.String()
}

func writeValue(b *strings.Builder, v *Value) {
	switch v.Kind {
	case KindString:
		b.WriteByte('"')
		b.WriteString(v.Str)
		b.WriteByte('"')
	case KindInt:
		b.WriteString(strconv.FormatInt(v.Int, 10))
	case KindFloat:
		if v.Float == float64(int64(v.Float)) {
			b.WriteString(strconv.FormatInt(int64(v.Float), 10))
		} else {
			b.WriteString(strconv.FormatFloat(v.Float, 'g', -1, 64))
		}
	case KindBool:
		if v.Bool {
			b.WriteString("true")
		} else {
			b.WriteString("false")
		}
	case KindNull:
		b.WriteString("null")
	case KindObject:
		b.WriteByte('{')
		for i, m := range v.Object {
			if i > 0 {
				b.WriteByte(',')
			}
			b.WriteByte('"')
			b.WriteString(m.Key)
			b.WriteString("\":")
			writeValue(b, m.Value)
		}
		b.WriteByte('}')
	case KindArray:
		b.WriteByte('[')
		for i, e := range v.Array {
			if i > 0 {
				b.WriteByte(',')
			}
			writeValue(b, e)
		}
		b.WriteByte(']')
	}
}
