// Package config implements the anonymization DSL: a lexer and a
// recursive-descent parser that build a validated, table/field rule tree
// from the configuration text described in spec §4.6-4.7.
package config

import "regexp"

// MaxLen is the maximum length any rule may request, and the maximum
// output length any hash-based rule may produce.
const MaxLen = 32

// AnonKind is the closed set of anonymization rule kinds a FieldRule or
// JSONSubRule can carry.
type AnonKind int

const (
	KindFixedNull AnonKind = iota
	KindFixed
	KindFixedQuoted
	KindFixedUnquoted
	KindTextHash
	KindEmailHash
	KindIntHash
	KindKey
	KindAppendKey
	KindPrependKey
	KindAppendIndex
	KindPrependIndex
	KindSubstring
	KindJSON
	KindScript
)

// String renders the kind the way the config DSL spells it, for
// diagnostics. KindScript, written `pydef` in the DSL, renders as
// "script".
func (k AnonKind) String() string {
	switch k {
	case KindFixedNull:
		return "fixed null"
	case KindFixed:
		return "fixed"
	case KindFixedQuoted:
		return "fixed quoted"
	case KindFixedUnquoted:
		return "fixed unquoted"
	case KindTextHash:
		return "texthash"
	case KindEmailHash:
		return "emailhash"
	case KindIntHash:
		return "inthash"
	case KindKey:
		return "key"
	case KindAppendKey:
		return "appendkey"
	case KindPrependKey:
		return "prependkey"
	case KindAppendIndex:
		return "appendindex"
	case KindPrependIndex:
		return "prependindex"
	case KindSubstring:
		return "substring"
	case KindJSON:
		return "json"
	case KindScript:
		return "script"
	default:
		return "unknown"
	}
}

// AnonRule is the anonymization action attached to a field or a JSON
// sub-path. Only the subset of fields relevant to Kind is populated; the
// zero value is KindFixedNull.
type AnonRule struct {
	Kind           AnonKind
	Length         int
	Domain         string
	Separator      *byte
	FixedValue     string
	ScriptFunction string
	HitCount       uint64
}

// TableAction selects what happens to rows of a table: full anonymization
// of selected columns, or wholesale removal of INSERT/REPLACE data.
type TableAction int

const (
	ActionAnonymize TableAction = iota
	ActionTruncate
)

// JSONSubRule anonymizes one path inside a JSON-valued column.
type JSONSubRule struct {
	Path     string
	Rule     AnonRule
	HitCount uint64
}

// FieldRule binds an AnonRule to a named column. ColumnPosition and
// IsQuotedType are resolved while scanning the table's CREATE TABLE
// statement; they are unset (-1, false) until then.
type FieldRule struct {
	Name           string
	ColumnPosition int
	IsQuotedType   bool
	Rule           AnonRule
	JSONSubRules   []JSONSubRule
}

// TableRule describes how one table (matched by literal name or by
// regex) should be processed.
type TableRule struct {
	Name   string
	Regex  *regexp.Regexp
	Action TableAction
	Fields []FieldRule
}

// Config is the fully parsed, validated rule tree. It is built once by
// Parse and then read-heavy during processing; ColumnPosition,
// IsQuotedType, and the HitCount counters are the only fields mutated
// afterwards, by the dump processor.
type Config struct {
	Secret       string
	StatsEnabled bool
	ScriptPath   string
	ScriptModule string
	Tables       []TableRule
}

// FindTable resolves tableName against the configured rules: first a
// literal-name match, then the first regex whose pattern matches the
// backticked table name (including the backticks themselves, per the
// original tool's behavior).
func (c *Config) FindTable(tableName string) (int, bool) {
	for i := range c.Tables {
		if c.Tables[i].Regex == nil && c.Tables[i].Name == tableName {
			return i, true
		}
	}
	withBackticks := "`" + tableName + "`"
	for i := range c.Tables {
		if c.Tables[i].Regex != nil && c.Tables[i].Regex.MatchString(withBackticks) {
			return i, true
		}
	}
	return 0, false
}
