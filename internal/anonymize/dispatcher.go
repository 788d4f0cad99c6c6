package anonymize

import (
	"fmt"
	"os"
	"strconv"

	"sqlanon/internal/config"
)

// QuoteMode tells the caller whether the bytes returned by Anonymize
// must be single-quoted in the output, left unquoted, or wrapped the
// same way the original token was.
type QuoteMode int

const (
	AsInput QuoteMode = iota
	ForceTrue
	ForceFalse
)

// AnonContext carries the per-row state a handful of AnonKinds read or
// write: the captured key for AppendKey/PrependKey, the current row's
// ordinal for AppendIndex/PrependIndex, whether this is the first row
// of the first INSERT/REPLACE for the table (controls the missing-key
// warning), and the table name (for diagnostics).
type AnonContext struct {
	CapturedKey string
	RowIndex    int
	FirstInsert bool
	TableName   string
}

// ScriptRunner is the narrow external collaborator for AnonKind=Script
// fields. A Processor without one configured treats every Script rule
// as always failing, per the host contract.
type ScriptRunner interface {
	Call(function, value string) (string, error)
}

// Result is the outcome of a single Anonymize call: the replacement
// bytes, unquoted, and how the caller should quote them in the output.
type Result struct {
	Data    []byte
	Quoting QuoteMode
}

// Anonymize applies rule to token (the raw value bytes as scanned from
// the dump). When wasQuoted is true, Anonymize itself strips one
// leading and one trailing single quote from token before applying
// the rule, for every kind. secret is the HMAC key; ctx is written for
// Key (the captured key) and read for AppendKey/PrependKey and
// AppendIndex/PrependIndex.
func Anonymize(wasQuoted bool, rule *config.AnonRule, token []byte, secret []byte, ctx *AnonContext, script ScriptRunner) Result {
	if wasQuoted {
		token = RemoveQuotes(token)
	}

	length := rule.Length
	if length <= 0 || length > MaxLen {
		length = MaxLen
	}

	switch rule.Kind {
	case config.KindFixedNull:
		return Result{Data: []byte("NULL"), Quoting: ForceFalse}

	case config.KindFixed:
		return Result{Data: EscapeMySQL(rule.FixedValue), Quoting: AsInput}

	case config.KindFixedQuoted:
		return Result{Data: EscapeMySQL(rule.FixedValue), Quoting: ForceTrue}

	case config.KindFixedUnquoted:
		return Result{Data: EscapeMySQL(rule.FixedValue), Quoting: ForceFalse}

	case config.KindKey:
		ctx.CapturedKey = string(token)
		return Result{Data: token, Quoting: AsInput}

	case config.KindAppendKey:
		if ctx.CapturedKey == "" && ctx.FirstInsert {
			fmt.Fprintf(os.Stderr, "WARNING! Table %s fields order: for appendkey mode, the key must be defined before the field to anonymize\n", ctx.TableName)
		}
		concat := rule.FixedValue + ctx.CapturedKey
		return Result{Data: []byte(concat), Quoting: ForceTrue}

	case config.KindPrependKey:
		if ctx.CapturedKey == "" && ctx.FirstInsert {
			fmt.Fprintf(os.Stderr, "WARNING! Table %s fields order: for prependkey mode, the key must be defined before the field to anonymize\n", ctx.TableName)
		}
		concat := ctx.CapturedKey + rule.FixedValue
		return Result{Data: []byte(concat), Quoting: ForceTrue}

	case config.KindAppendIndex:
		concat := rule.FixedValue + strconv.Itoa(ctx.RowIndex)
		return Result{Data: []byte(concat), Quoting: ForceTrue}

	case config.KindPrependIndex:
		concat := strconv.Itoa(ctx.RowIndex) + rule.FixedValue
		return Result{Data: []byte(concat), Quoting: ForceTrue}

	case config.KindTextHash:
		return Result{Data: DeriveCode(token, secret, length, 'a', 'z'), Quoting: AsInput}

	case config.KindEmailHash:
		user := DeriveCode(token, secret, length, 'a', 'z')
		out := append(user, '@')
		out = append(out, []byte(rule.Domain)...)
		return Result{Data: out, Quoting: AsInput}

	case config.KindIntHash:
		return Result{Data: DeriveCode(token, secret, length, '1', '9'), Quoting: AsInput}

	case config.KindSubstring:
		n := rule.Length
		if n <= 0 {
			n = MaxLen
		}
		return Result{Data: TakeChars(token, n), Quoting: AsInput}

	case config.KindJSON:
		// JSON sub-rules are applied by the caller against the parsed
		// value tree; a bare dispatch leaves the token untouched.
		return Result{Data: token, Quoting: AsInput}

	case config.KindScript:
		if script == nil {
			fmt.Fprintf(os.Stderr, "warning: script rule %q invoked with no script host configured\n", rule.ScriptFunction)
			return Result{Data: nil, Quoting: AsInput}
		}
		out, err := script.Call(rule.ScriptFunction, string(token))
		if err != nil {
			fmt.Fprintf(os.Stderr, "warning: script function %q failed: %v\n", rule.ScriptFunction, err)
			return Result{Data: nil, Quoting: AsInput}
		}
		return Result{Data: EscapeMySQL(out), Quoting: AsInput}

	default:
		return Result{Data: token, Quoting: AsInput}
	}
}
