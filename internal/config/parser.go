package config

import (
	"fmt"
	"os"
	"regexp"
)

// Parser builds a Config from config DSL source text.
type Parser struct {
	lex *Lexer
}

// NewParser builds a Parser over src.
func NewParser(src string) *Parser {
	return &Parser{lex: NewLexer(src)}
}

func (p *Parser) errorf(format string, args ...any) error {
	return fmt.Errorf("config parsing error at line %d: %s", p.lex.Line(), fmt.Sprintf(format, args...))
}

func (p *Parser) expect(kind TokenKind, what string) (Token, error) {
	tok, err := p.lex.NextToken()
	if err != nil {
		return Token{}, err
	}
	if tok.Kind != kind {
		return Token{}, p.errorf("expected %s, got %s", what, tok.String())
	}
	return tok, nil
}

func (p *Parser) expectEq() error {
	_, err := p.expect(TokEq, "=")
	return err
}

func (p *Parser) expectLBrace() error {
	_, err := p.expect(TokLBrace, "{")
	return err
}

func (p *Parser) expectString() (string, error) {
	tok, err := p.lex.NextToken()
	if err != nil {
		return "", err
	}
	if tok.Kind != TokStr {
		return "", p.errorf("expected string, got %s", tok.String())
	}
	return tok.Str, nil
}

func (p *Parser) expectIdent() (string, error) {
	tok, err := p.lex.NextToken()
	if err != nil {
		return "", err
	}
	if tok.Kind != TokIdent {
		return "", p.errorf("expected identifier, got %s", tok.String())
	}
	return tok.Str, nil
}

func (p *Parser) expectLength() (int, error) {
	tok, err := p.lex.NextToken()
	if err != nil {
		return 0, err
	}
	if tok.Kind != TokLength {
		return 0, p.errorf("expected length, got %s", tok.String())
	}
	return tok.Length, nil
}

// Parse consumes the whole token stream and returns a validated Config.
func (p *Parser) Parse() (*Config, error) {
	cfg := &Config{}

	for {
		tok, err := p.lex.NextToken()
		if err != nil {
			return nil, err
		}
		switch tok.Kind {
		case TokEOF:
			return cfg, nil
		case TokSecret:
			if err := p.parseSecret(cfg); err != nil {
				return nil, err
			}
		case TokStats:
			if err := p.parseStats(cfg); err != nil {
				return nil, err
			}
		case TokPyPath:
			if err := p.expectEq(); err != nil {
				return nil, err
			}
			s, err := p.expectString()
			if err != nil {
				return nil, err
			}
			cfg.ScriptPath = s
		case TokPyScript:
			if err := p.expectEq(); err != nil {
				return nil, err
			}
			s, err := p.expectString()
			if err != nil {
				return nil, err
			}
			cfg.ScriptModule = s
		case TokTables:
			if err := p.parseTables(cfg); err != nil {
				return nil, err
			}
		default:
			return nil, p.errorf("unexpected token %s", tok.String())
		}
	}
}

func (p *Parser) parseSecret(cfg *Config) error {
	if err := p.expectEq(); err != nil {
		return err
	}
	s, err := p.expectString()
	if err != nil {
		return err
	}
	cfg.Secret = s
	return nil
}

func (p *Parser) parseStats(cfg *Config) error {
	if err := p.expectEq(); err != nil {
		return err
	}
	tok, err := p.lex.NextToken()
	if err != nil {
		return err
	}
	switch tok.Kind {
	case TokYes:
		cfg.StatsEnabled = true
	case TokNo:
		cfg.StatsEnabled = false
	default:
		return p.errorf("expected 'yes' or 'no', got %s", tok.String())
	}
	return nil
}

func (p *Parser) checkDuplicateTable(cfg *Config, name string, line int) error {
	for i := range cfg.Tables {
		if cfg.Tables[i].Name == name {
			return fmt.Errorf("error: table %s is defined more than once in config file at line %d", name, line)
		}
	}
	return nil
}

func (p *Parser) parseTables(cfg *Config) error {
	if err := p.expectEq(); err != nil {
		return err
	}
	if err := p.expectLBrace(); err != nil {
		return err
	}

	for {
		tok, err := p.lex.NextToken()
		if err != nil {
			return err
		}
		switch tok.Kind {
		case TokRBrace:
			return nil
		case TokRegex:
			name, err := p.expectIdent()
			if err != nil {
				return err
			}
			line := p.lex.Line()
			if err := p.checkDuplicateTable(cfg, name, line); err != nil {
				return err
			}
			compiled, err := regexp.Compile(name)
			if err != nil {
				return fmt.Errorf("config parsing error at line %d: unable to compile regex '%s': %w", line, name, err)
			}
			if err := p.expectEq(); err != nil {
				return err
			}
			table, err := p.parseTableAction(name, compiled)
			if err != nil {
				return err
			}
			cfg.Tables = append(cfg.Tables, *table)
		case TokIdent:
			name := tok.Str
			line := p.lex.Line()
			if err := p.checkDuplicateTable(cfg, name, line); err != nil {
				return err
			}
			if err := p.expectEq(); err != nil {
				return err
			}
			table, err := p.parseTableAction(name, nil)
			if err != nil {
				return err
			}
			cfg.Tables = append(cfg.Tables, *table)
		default:
			return p.errorf("expected table name or '}', got %s", tok.String())
		}
	}
}

func (p *Parser) parseTableAction(name string, regex *regexp.Regexp) (*TableRule, error) {
	tok, err := p.lex.NextToken()
	if err != nil {
		return nil, err
	}
	switch tok.Kind {
	case TokTruncate:
		return &TableRule{Name: name, Regex: regex, Action: ActionTruncate}, nil
	case TokLBrace:
		fields, err := p.parseFieldList(name)
		if err != nil {
			return nil, err
		}
		return &TableRule{Name: name, Regex: regex, Action: ActionAnonymize, Fields: fields}, nil
	default:
		return nil, p.errorf("expected 'truncate' or '{', got %s", tok.String())
	}
}

func (p *Parser) parseFieldList(tableName string) ([]FieldRule, error) {
	var fields []FieldRule

	for {
		tok, err := p.lex.NextToken()
		if err != nil {
			return nil, err
		}
		switch tok.Kind {
		case TokRBrace:
			return fields, nil
		case TokIdent:
			fieldName := tok.Str
			line := p.lex.Line()
			for i := range fields {
				if fields[i].Name == fieldName {
					return nil, fmt.Errorf("error: field %s in table %s is defined more than once in config file at line %d", fieldName, tableName, line)
				}
			}
			if err := p.expectEq(); err != nil {
				return nil, err
			}
			field, err := p.parseFieldAction(fieldName, tableName)
			if err != nil {
				return nil, err
			}
			fields = append(fields, *field)
		default:
			return nil, p.errorf("expected field name or '}', got %s", tok.String())
		}
	}
}

var separatedByEligible = map[AnonKind]bool{
	KindFixedNull:     true,
	KindFixed:         true,
	KindFixedQuoted:   true,
	KindFixedUnquoted: true,
	KindTextHash:      true,
	KindEmailHash:     true,
	KindIntHash:       true,
	KindSubstring:     true,
}

func (p *Parser) parseFieldAction(fieldName, tableName string) (*FieldRule, error) {
	tok, err := p.lex.NextToken()
	if err != nil {
		return nil, err
	}

	var rule AnonRule
	var jsonRules []JSONSubRule

	switch tok.Kind {
	case TokFixedNull:
		rule.Kind = KindFixedNull
	case TokFixed:
		rule.Kind = KindFixed
		if rule.FixedValue, err = p.expectString(); err != nil {
			return nil, err
		}
	case TokFixedQuoted:
		rule.Kind = KindFixedQuoted
		if rule.FixedValue, err = p.expectString(); err != nil {
			return nil, err
		}
	case TokFixedUnquoted:
		rule.Kind = KindFixedUnquoted
		if rule.FixedValue, err = p.expectString(); err != nil {
			return nil, err
		}
	case TokTextHash:
		rule.Kind = KindTextHash
		if rule.Length, err = p.expectLength(); err != nil {
			return nil, err
		}
	case TokEmailHash:
		rule.Kind = KindEmailHash
		if rule.Domain, err = p.expectString(); err != nil {
			return nil, err
		}
		if rule.Length, err = p.expectLength(); err != nil {
			return nil, err
		}
		if rule.Length+len(rule.Domain)+1 > MaxLen {
			return nil, p.errorf("Requested length is too long")
		}
	case TokIntHash:
		rule.Kind = KindIntHash
		if rule.Length, err = p.expectLength(); err != nil {
			return nil, err
		}
	case TokSubstring:
		rule.Kind = KindSubstring
		if rule.Length, err = p.expectLength(); err != nil {
			return nil, err
		}
	case TokKey:
		rule.Kind = KindKey
	case TokAppendKey:
		rule.Kind = KindAppendKey
		if rule.FixedValue, err = p.expectString(); err != nil {
			return nil, err
		}
	case TokPrependKey:
		rule.Kind = KindPrependKey
		if rule.FixedValue, err = p.expectString(); err != nil {
			return nil, err
		}
	case TokAppendIndex:
		rule.Kind = KindAppendIndex
		if rule.FixedValue, err = p.expectString(); err != nil {
			return nil, err
		}
	case TokPrependIndex:
		rule.Kind = KindPrependIndex
		if rule.FixedValue, err = p.expectString(); err != nil {
			return nil, err
		}
	case TokPyDef:
		rule.Kind = KindScript
		if rule.ScriptFunction, err = p.expectString(); err != nil {
			return nil, err
		}
	case TokJSON:
		rule.Kind = KindJSON
		if jsonRules, err = p.parseJSONBlock(fieldName, tableName); err != nil {
			return nil, err
		}
	default:
		return nil, p.errorf("expected anonymization type, got %s", tok.String())
	}

	if separatedByEligible[rule.Kind] {
		peek, err := p.lex.PeekToken()
		if err != nil {
			return nil, err
		}
		if peek.Kind == TokSeparatedBy {
			if _, err := p.lex.NextToken(); err != nil {
				return nil, err
			}
			sep, err := p.expectString()
			if err != nil {
				return nil, err
			}
			if sep == "" {
				return nil, p.errorf("separator string is empty")
			}
			if len(sep) > 1 {
				fmt.Fprintln(os.Stderr, "warning: separator is only one char, keeping first char")
			}
			b := sep[0]
			rule.Separator = &b
		}
	}

	return &FieldRule{Name: fieldName, ColumnPosition: -1, Rule: rule, JSONSubRules: jsonRules}, nil
}

func (p *Parser) parseJSONBlock(fieldName, tableName string) ([]JSONSubRule, error) {
	if err := p.expectLBrace(); err != nil {
		return nil, err
	}
	var entries []JSONSubRule

	for {
		tok, err := p.lex.NextToken()
		if err != nil {
			return nil, err
		}
		switch tok.Kind {
		case TokRBrace:
			return entries, nil
		case TokPath:
			rawPath, err := p.expectString()
			if err != nil {
				return nil, err
			}
			line := p.lex.Line()

			filter := rawPath
			if len(filter) == 0 || (filter[0] != '.' && filter[0] != '[') {
				filter = "." + filter
			}

			if !IsValidJSONPath(filter) {
				fmt.Fprintf(os.Stderr, "warning: invalid json path '%s', ignoring it\n", filter)
				if err := p.expectEq(); err != nil {
					return nil, err
				}
				if err := p.skipJSONAction(); err != nil {
					return nil, err
				}
				continue
			}

			for i := range entries {
				if entries[i].Path == filter {
					return nil, fmt.Errorf("error: JSON path '%s' in field %s of table %s is defined more than once in config file at line %d", filter, fieldName, tableName, line)
				}
			}

			if err := p.expectEq(); err != nil {
				return nil, err
			}
			rule, err := p.parseJSONAction()
			if err != nil {
				return nil, err
			}
			entries = append(entries, JSONSubRule{Path: filter, Rule: *rule})
		default:
			return nil, p.errorf("expected 'path' or '}', got %s", tok.String())
		}
	}
}

func (p *Parser) parseJSONAction() (*AnonRule, error) {
	tok, err := p.lex.NextToken()
	if err != nil {
		return nil, err
	}
	rule := &AnonRule{}

	switch tok.Kind {
	case TokFixed:
		rule.Kind = KindFixed
		if rule.FixedValue, err = p.expectString(); err != nil {
			return nil, err
		}
	case TokTextHash:
		rule.Kind = KindTextHash
		if rule.Length, err = p.expectLength(); err != nil {
			return nil, err
		}
	case TokEmailHash:
		rule.Kind = KindEmailHash
		if rule.Domain, err = p.expectString(); err != nil {
			return nil, err
		}
		if rule.Length, err = p.expectLength(); err != nil {
			return nil, err
		}
		if rule.Length+len(rule.Domain)+1 > MaxLen {
			return nil, p.errorf("Requested length is too long")
		}
	case TokIntHash:
		rule.Kind = KindIntHash
		if rule.Length, err = p.expectLength(); err != nil {
			return nil, err
		}
	case TokPyDef:
		rule.Kind = KindScript
		if rule.ScriptFunction, err = p.expectString(); err != nil {
			return nil, err
		}
	default:
		return nil, p.errorf("expected JSON anonymization type (fixed/texthash/emailhash/inthash/pydef), got %s", tok.String())
	}

	return rule, nil
}

func (p *Parser) skipJSONAction() error {
	tok, err := p.lex.NextToken()
	if err != nil {
		return err
	}
	switch tok.Kind {
	case TokFixed:
		_, err = p.expectString()
	case TokTextHash:
		_, err = p.expectLength()
	case TokEmailHash:
		if _, err = p.expectString(); err != nil {
			return err
		}
		_, err = p.expectLength()
	case TokIntHash:
		_, err = p.expectLength()
	case TokPyDef:
		_, err = p.expectString()
	default:
		return p.errorf("expected JSON anonymization type, got %s", tok.String())
	}
	return err
}
