package config

import (
	"fmt"
	"strconv"
)

// TokenKind enumerates the lexical categories the config DSL produces.
type TokenKind int

const (
	TokSecret TokenKind = iota
	TokStats
	TokPyPath
	TokPyScript
	TokTables
	TokYes
	TokNo
	TokFixed
	TokFixedNull
	TokFixedQuoted
	TokFixedUnquoted
	TokTextHash
	TokEmailHash
	TokIntHash
	TokKey
	TokAppendKey
	TokPrependKey
	TokAppendIndex
	TokPrependIndex
	TokSubstring
	TokTruncate
	TokPyDef
	TokJSON
	TokPath
	TokSeparatedBy
	TokRegex
	TokStr
	TokIdent
	TokLength
	TokEq
	TokLBrace
	TokRBrace
	TokEOF
)

// Token is a single lexical unit: its kind plus the payload for Str,
// Ident and Length tokens.
type Token struct {
	Kind   TokenKind
	Str    string
	Length int
}

func (t Token) String() string {
	switch t.Kind {
	case TokSecret:
		return "secret"
	case TokStats:
		return "stats"
	case TokPyPath:
		return "pypath"
	case TokPyScript:
		return "pyscript"
	case TokTables:
		return "tables"
	case TokYes:
		return "'yes'"
	case TokNo:
		return "'no'"
	case TokFixed:
		return "fixed"
	case TokFixedNull:
		return "fixed null"
	case TokFixedQuoted:
		return "fixed quoted"
	case TokFixedUnquoted:
		return "fixed unquoted"
	case TokTextHash:
		return "texthash"
	case TokEmailHash:
		return "emailhash"
	case TokIntHash:
		return "inthash"
	case TokKey:
		return "key"
	case TokAppendKey:
		return "appendkey"
	case TokPrependKey:
		return "prependkey"
	case TokAppendIndex:
		return "appendindex"
	case TokPrependIndex:
		return "prependindex"
	case TokSubstring:
		return "substring"
	case TokTruncate:
		return "truncate"
	case TokPyDef:
		return "pydef"
	case TokJSON:
		return "json"
	case TokPath:
		return "path"
	case TokSeparatedBy:
		return "separated by"
	case TokRegex:
		return "regex"
	case TokStr:
		return fmt.Sprintf("'%s'", t.Str)
	case TokIdent:
		return fmt.Sprintf("`%s`", t.Str)
	case TokLength:
		return strconv.Itoa(t.Length)
	case TokEq:
		return "="
	case TokLBrace:
		return "{"
	case TokRBrace:
		return "}"
	case TokEOF:
		return "end of file"
	default:
		return "?"
	}
}

// Lexer tokenizes config DSL source text, tracking the current line for
// diagnostics.
type Lexer struct {
	input []rune
	pos   int
	line  int
}

// NewLexer builds a Lexer over src.
func NewLexer(src string) *Lexer {
	return &Lexer{input: []rune(src), pos: 0, line: 1}
}

// Line reports the 1-based line the lexer is currently positioned at.
func (l *Lexer) Line() int { return l.line }

func (l *Lexer) peek() (rune, bool) {
	if l.pos >= len(l.input) {
		return 0, false
	}
	return l.input[l.pos], true
}

func (l *Lexer) advance() (rune, bool) {
	c, ok := l.peek()
	if ok {
		l.pos++
		if c == '\n' {
			l.line++
		}
	}
	return c, ok
}

func (l *Lexer) skipWhitespaceAndComments() {
	for {
		c, ok := l.peek()
		if !ok {
			return
		}
		switch c {
		case ' ', '\t', '\r', '\n':
			l.advance()
		case '#':
			for {
				c, ok := l.advance()
				if !ok || c == '\n' {
					break
				}
			}
		default:
			return
		}
	}
}

func (l *Lexer) readString() (string, error) {
	var s []rune
	for {
		c, ok := l.advance()
		if !ok {
			return "", fmt.Errorf("config parsing error at line %d: unterminated string", l.line)
		}
		if c == '\'' {
			return string(s), nil
		}
		if len(s) >= 1024 {
			return "", fmt.Errorf("config parsing error at line %d: string too long (max 1024 characters)", l.line)
		}
		s = append(s, c)
	}
}

func (l *Lexer) readIdentifier() (string, error) {
	var s []rune
	for {
		c, ok := l.advance()
		if !ok {
			return "", fmt.Errorf("config parsing error at line %d: unterminated identifier", l.line)
		}
		if c == '`' {
			if len(s) == 0 {
				return "", fmt.Errorf("config parsing error at line %d: empty identifier", l.line)
			}
			return string(s), nil
		}
		if len(s) >= 64 {
			return "", fmt.Errorf("config parsing error at line %d: identifier too long (max 64 characters)", l.line)
		}
		s = append(s, c)
	}
}

func isAlphaNumUnderscore(c rune) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9') || c == '_'
}

func isAlpha(c rune) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isDigit(c rune) bool {
	return c >= '0' && c <= '9'
}

func (l *Lexer) readWord(first rune) string {
	s := []rune{first}
	for {
		c, ok := l.peek()
		if !ok || !isAlphaNumUnderscore(c) {
			break
		}
		s = append(s, c)
		l.advance()
	}
	return string(s)
}

func (l *Lexer) readNumber(first rune) (Token, error) {
	s := []rune{first}
	for {
		c, ok := l.peek()
		if !ok || !isDigit(c) {
			break
		}
		s = append(s, c)
		l.advance()
	}
	n, err := strconv.Atoi(string(s))
	if err != nil {
		return Token{}, fmt.Errorf("config parsing error at line %d: invalid number %q", l.line, string(s))
	}
	if n == 0 || n > MaxLen {
		return Token{}, fmt.Errorf("config parsing error at line %d: Requested length is too long", l.line)
	}
	return Token{Kind: TokLength, Length: n}, nil
}

// tryConsumeWord checks whether the next space/tab-separated word
// matches expected, consuming it on a match and rolling back position
// and line otherwise. Used for two-word keywords ("fixed null",
// "separated by").
func (l *Lexer) tryConsumeWord(expected string) bool {
	savedPos, savedLine := l.pos, l.line

	for {
		c, ok := l.peek()
		if !ok || (c != ' ' && c != '\t') {
			break
		}
		l.advance()
	}

	first, ok := l.peek()
	if ok && isAlpha(first) {
		start, startLine := l.pos, l.line
		l.advance()
		word := l.readWord(first)
		if word == expected {
			return true
		}
		l.pos, l.line = start, startLine
		return false
	}

	l.pos, l.line = savedPos, savedLine
	return false
}

func (l *Lexer) keywordToken(word string) (Token, error) {
	switch word {
	case "secret":
		return Token{Kind: TokSecret}, nil
	case "stats":
		return Token{Kind: TokStats}, nil
	case "pypath":
		return Token{Kind: TokPyPath}, nil
	case "pyscript":
		return Token{Kind: TokPyScript}, nil
	case "tables":
		return Token{Kind: TokTables}, nil
	case "texthash":
		return Token{Kind: TokTextHash}, nil
	case "emailhash":
		return Token{Kind: TokEmailHash}, nil
	case "inthash":
		return Token{Kind: TokIntHash}, nil
	case "key":
		return Token{Kind: TokKey}, nil
	case "appendkey":
		return Token{Kind: TokAppendKey}, nil
	case "prependkey":
		return Token{Kind: TokPrependKey}, nil
	case "appendindex":
		return Token{Kind: TokAppendIndex}, nil
	case "prependindex":
		return Token{Kind: TokPrependIndex}, nil
	case "substring":
		return Token{Kind: TokSubstring}, nil
	case "truncate":
		return Token{Kind: TokTruncate}, nil
	case "pydef":
		return Token{Kind: TokPyDef}, nil
	case "json":
		return Token{Kind: TokJSON}, nil
	case "path":
		return Token{Kind: TokPath}, nil
	case "regex":
		return Token{Kind: TokRegex}, nil
	case "fixed":
		switch {
		case l.tryConsumeWord("null"):
			return Token{Kind: TokFixedNull}, nil
		case l.tryConsumeWord("quoted"):
			return Token{Kind: TokFixedQuoted}, nil
		case l.tryConsumeWord("unquoted"):
			return Token{Kind: TokFixedUnquoted}, nil
		default:
			return Token{Kind: TokFixed}, nil
		}
	case "separated":
		if l.tryConsumeWord("by") {
			return Token{Kind: TokSeparatedBy}, nil
		}
		return Token{}, fmt.Errorf("config parsing error at line %d: expected 'by' after 'separated'", l.line)
	default:
		return Token{}, fmt.Errorf("config parsing error at line %d: unexpected keyword '%s'", l.line, word)
	}
}

// NextToken consumes and returns the next token.
func (l *Lexer) NextToken() (Token, error) {
	l.skipWhitespaceAndComments()

	c, ok := l.peek()
	if !ok {
		return Token{Kind: TokEOF}, nil
	}

	switch {
	case c == '=':
		l.advance()
		return Token{Kind: TokEq}, nil
	case c == '{':
		l.advance()
		return Token{Kind: TokLBrace}, nil
	case c == '}':
		l.advance()
		return Token{Kind: TokRBrace}, nil
	case c == '\'':
		l.advance()
		s, err := l.readString()
		if err != nil {
			return Token{}, err
		}
		switch s {
		case "yes":
			return Token{Kind: TokYes}, nil
		case "no":
			return Token{Kind: TokNo}, nil
		default:
			return Token{Kind: TokStr, Str: s}, nil
		}
	case c == '`':
		l.advance()
		s, err := l.readIdentifier()
		if err != nil {
			return Token{}, err
		}
		return Token{Kind: TokIdent, Str: s}, nil
	case isDigit(c):
		l.advance()
		return l.readNumber(c)
	case isAlpha(c) || c == '_':
		l.advance()
		word := l.readWord(c)
		return l.keywordToken(word)
	default:
		return Token{}, fmt.Errorf("config parsing error at line %d: Syntax error near '%c'", l.line, c)
	}
}

// PeekToken returns the next token without consuming it.
func (l *Lexer) PeekToken() (Token, error) {
	savedPos, savedLine := l.pos, l.line
	tok, err := l.NextToken()
	l.pos, l.line = savedPos, savedLine
	return tok, err
}
