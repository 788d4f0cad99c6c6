// Package dump implements the streaming MySQL dump transformer: a
// line-oriented state machine that recognizes CREATE TABLE, INSERT,
// and REPLACE statements well enough to anonymize selected column
// values while copying every other byte through unchanged.
package dump

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"

	"sqlanon/internal/anonymize"
	"sqlanon/internal/config"
	"sqlanon/internal/jsonval"
)

// maxFieldsPerTable bounds the column-position cache; a table wider
// than this falls back to a linear scan on every tuple instead of
// caching, which is never hit by realistic schemas.
const maxFieldsPerTable = 4096

type state int

const (
	stateInitial state = iota
	stateInTable
	stateTruncate
)

// fieldInfo is captured while scanning a CREATE TABLE's column
// definitions: the column name and whether its SQL type needs quoting.
type fieldInfo struct {
	name   string
	quoted bool
}

type valueToken int

const (
	tokenNull valueToken = iota
	tokenRaw
	tokenQuoted
	tokenUnquoted
)

// Processor streams a MySQL dump from a reader to a writer, rewriting
// configured column values in place. It is not safe for concurrent
// use: all state (current table, row index, captured key) is mutated
// synchronously as the stream advances.
type Processor struct {
	cfg                  *config.Config
	script               anonymize.ScriptRunner
	state                state
	currentTable         string
	currentTableIdx      int
	hasCurrentTable      bool
	fields               []fieldInfo
	fieldConfigCache     [maxFieldsPerTable]int
	tableKey             string
	rowIndex             int
	firstInsert          bool
	lineNb               int

	// Unbuffered flushes the output writer after every input line,
	// trading throughput for a live, debuggable byte stream.
	Unbuffered bool
}

// NewProcessor builds a Processor bound to cfg. script may be nil; a
// nil script makes every Script-kind rule behave as a failed call.
func NewProcessor(cfg *config.Config, script anonymize.ScriptRunner) *Processor {
	p := &Processor{
		cfg:         cfg,
		script:      script,
		state:       stateInitial,
		firstInsert: true,
		lineNb:      1,
	}
	p.resetFieldCache()
	return p
}

func (p *Processor) resetFieldCache() {
	for i := range p.fieldConfigCache {
		p.fieldConfigCache[i] = -1
	}
}

// Process reads dump data from r line by line and writes the
// anonymized result to w.
func (p *Processor) Process(r io.Reader, w io.Writer) error {
	reader := bufio.NewReaderSize(r, 65536)
	bw := bufio.NewWriterSize(w, 65536)

	for {
		line, err := reader.ReadBytes('\n')
		if len(line) > 0 {
			if procErr := p.processLine(line, bw); procErr != nil {
				return procErr
			}
			if p.Unbuffered {
				if flushErr := bw.Flush(); flushErr != nil {
					return flushErr
				}
			}
		}
		if err != nil {
			if err == io.EOF {
				break
			}
			return fmt.Errorf("read error: %w", err)
		}
	}

	return bw.Flush()
}

func (p *Processor) processLine(line []byte, w *bufio.Writer) error {
	switch p.state {
	case stateInTable:
		return p.processInTable(line, w)
	case stateTruncate:
		return p.processTruncate(line, w)
	default:
		return p.processInitial(line, w)
	}
}

func extractTableNameBytes(line []byte) (string, bool) {
	start := bytes.IndexByte(line, '`')
	if start < 0 {
		return "", false
	}
	end := bytes.IndexByte(line[start+1:], '`')
	if end < 0 {
		return "", false
	}
	return string(line[start+1 : start+1+end]), true
}

func (p *Processor) setWorkingTable(line []byte) {
	name, ok := extractTableNameBytes(line)
	if !ok {
		name = ""
	}
	p.currentTable = name
	idx, found := p.cfg.FindTable(name)
	p.currentTableIdx = idx
	p.hasCurrentTable = found
}

func isInsertReplaceLine(line []byte) bool {
	return bytes.HasPrefix(line, []byte("INSERT ")) || bytes.HasPrefix(line, []byte("REPLACE "))
}

func (p *Processor) enterTable(w *bufio.Writer, line []byte) error {
	if _, err := w.Write(line); err != nil {
		return err
	}
	if p.hasCurrentTable {
		switch p.cfg.Tables[p.currentTableIdx].Action {
		case config.ActionAnonymize:
			p.state = stateInTable
			p.fields = nil
			p.firstInsert = true
			p.rowIndex = 0
			p.resetFieldCache()
		case config.ActionTruncate:
			p.state = stateTruncate
		}
	}
	p.countNewlines(line)
	return nil
}

func (p *Processor) processInitial(line []byte, w *bufio.Writer) error {
	if bytes.HasPrefix(line, []byte("CREATE TABLE `")) {
		p.setWorkingTable(line)
		return p.enterTable(w, line)
	}

	if isInsertReplaceLine(line) && p.hasCurrentTable {
		if err := p.processInsertLine(line, w); err != nil {
			return err
		}
		p.countNewlines(line)
		return nil
	}

	if _, err := w.Write(line); err != nil {
		return err
	}
	p.countNewlines(line)
	return nil
}

func (p *Processor) processInTable(line []byte, w *bufio.Writer) error {
	if _, err := w.Write(line); err != nil {
		return err
	}

	trimmed := strings.TrimLeft(string(line), " \t")

	if strings.HasPrefix(trimmed, "ENGINE") || strings.HasPrefix(trimmed, ") ENGINE") {
		p.resolveFieldPositions()
		p.state = stateInitial
		p.countNewlines(line)
		return nil
	}

	if strings.HasPrefix(trimmed, "PRIMARY KEY") ||
		strings.HasPrefix(trimmed, "UNIQUE KEY") ||
		strings.HasPrefix(trimmed, "FULLTEXT KEY") ||
		strings.HasPrefix(trimmed, "KEY ") || strings.HasPrefix(trimmed, "KEY`") ||
		strings.HasPrefix(trimmed, "CONSTRAINT") ||
		strings.HasPrefix(trimmed, "DELIMITER") {
		p.countNewlines(line)
		return nil
	}

	if strings.HasPrefix(trimmed, "`") {
		if end := strings.IndexByte(trimmed[1:], '`'); end >= 0 {
			name := trimmed[1 : 1+end]
			rest := strings.TrimLeft(trimmed[2+end:], " \t")
			p.fields = append(p.fields, fieldInfo{name: name, quoted: isQuotedType(rest)})
		}
	}

	p.countNewlines(line)
	return nil
}

var quotedTypePrefixes = []string{
	"tinytext", "mediumtext", "longtext", "text", "enum",
	"char(", "varchar(",
	"tinyblob", "mediumblob", "longblob", "blob",
	"datetime", "date", "timestamp", "time",
	"json", "set",
}

func isQuotedType(typeStr string) bool {
	lower := strings.ToLower(typeStr)
	for _, prefix := range quotedTypePrefixes {
		if strings.HasPrefix(lower, prefix) {
			return true
		}
	}
	return false
}

func (p *Processor) resolveFieldPositions() {
	if !p.hasCurrentTable {
		return
	}
	table := &p.cfg.Tables[p.currentTableIdx]
	if table.Action != config.ActionAnonymize {
		return
	}
	for pos, fi := range p.fields {
		for i := range table.Fields {
			if table.Fields[i].Name == fi.name {
				table.Fields[i].ColumnPosition = pos
				table.Fields[i].IsQuotedType = fi.quoted
				break
			}
		}
	}

	for i := range table.Fields {
		if table.Fields[i].ColumnPosition == -1 {
			fmt.Fprintf(os.Stderr, "warning: field %s in table %s was not found in the table's column list\n", table.Fields[i].Name, table.Name)
		}
	}
}

func (p *Processor) processTruncate(line []byte, w *bufio.Writer) error {
	if bytes.HasPrefix(line, []byte("CREATE TABLE `")) {
		p.setWorkingTable(line)
		if _, err := w.Write(line); err != nil {
			return err
		}
		if p.hasCurrentTable {
			switch p.cfg.Tables[p.currentTableIdx].Action {
			case config.ActionAnonymize:
				p.state = stateInTable
				p.fields = nil
				p.firstInsert = true
				p.rowIndex = 0
				p.resetFieldCache()
			case config.ActionTruncate:
				p.state = stateTruncate
			}
		} else {
			p.state = stateInitial
		}
		p.countNewlines(line)
		return nil
	}

	if isInsertReplaceLine(line) {
		if len(line) > 0 && line[len(line)-1] == '\n' {
			if _, err := w.Write([]byte("\n")); err != nil {
				return err
			}
		}
		p.countNewlines(line)
		return nil
	}

	if _, err := w.Write(line); err != nil {
		return err
	}
	p.countNewlines(line)
	return nil
}

func (p *Processor) countNewlines(s []byte) {
	p.lineNb += bytes.Count(s, []byte("\n"))
}

func (p *Processor) processInsertLine(line []byte, w *bufio.Writer) error {
	if !p.hasCurrentTable {
		_, err := w.Write(line)
		return err
	}

	valuesPos := bytes.Index(line, []byte(" VALUES "))
	if valuesPos < 0 {
		_, err := w.Write(line)
		return err
	}

	prefixEnd := valuesPos + len(" VALUES ")
	if _, err := w.Write(line[:prefixEnd]); err != nil {
		return err
	}

	return p.parseValues(line[prefixEnd:], p.currentTableIdx, w)
}

func (p *Processor) parseValues(data []byte, tableIdx int, w *bufio.Writer) error {
	pos := 0
	currentFieldPos := 0
	inTuple := false

	for pos < len(data) {
		b := data[pos]
		switch {
		case b == '(':
			if err := w.WriteByte('('); err != nil {
				return err
			}
			pos++
			currentFieldPos = 0
			p.rowIndex++
			p.tableKey = ""
			inTuple = true

		case b == ')':
			if err := w.WriteByte(')'); err != nil {
				return err
			}
			pos++
			p.firstInsert = false
			inTuple = false

		case b == ',':
			if err := w.WriteByte(','); err != nil {
				return err
			}
			pos++
			if inTuple {
				currentFieldPos++
			}

		case b == ';':
			if err := w.WriteByte(';'); err != nil {
				return err
			}
			pos++

		case b == '\n':
			if err := w.WriteByte('\n'); err != nil {
				return err
			}
			pos++

		case b == ' ':
			if err := w.WriteByte(' '); err != nil {
				return err
			}
			pos++

		case inTuple:
			tok, end, err := p.scanValue(data, pos)
			if err != nil {
				return err
			}
			raw := data[pos:end]
			if err := p.handleValue(tok, raw, currentFieldPos, tableIdx, w); err != nil {
				return err
			}
			pos = end

		default:
			if err := w.WriteByte(b); err != nil {
				return err
			}
			pos++
		}
	}

	return nil
}

func (p *Processor) scanValue(data []byte, pos int) (valueToken, int, error) {
	n := len(data)

	if pos+4 <= n && string(data[pos:pos+4]) == "NULL" {
		if pos+4 >= n || !isAlphaNum(data[pos+4]) {
			return tokenNull, pos + 4, nil
		}
	}

	if pos+2 < n && data[pos] == '0' && data[pos+1] == 'x' {
		end := pos + 2
		for end < n && isHexDigit(data[end]) {
			end++
		}
		if end > pos+2 {
			return tokenRaw, end, nil
		}
	}

	// _binary '...' is kept as a single quoted token, `_binary ` prefix
	// and all: the surrounding quote scan absorbs it whole.
	if pos+8 <= n && string(data[pos:pos+8]) == "_binary " {
		if pos+8 < n && data[pos+8] == '\'' {
			end, err := p.scanSQLString(data, pos+8)
			if err != nil {
				return 0, 0, err
			}
			return tokenQuoted, end, nil
		}
	}

	if data[pos] == '\'' {
		end, err := p.scanSQLString(data, pos)
		if err != nil {
			return 0, 0, err
		}
		return tokenQuoted, end, nil
	}

	if isDigit(data[pos]) || data[pos] == '-' || data[pos] == '.' {
		end := pos
		for end < n {
			c := data[end]
			if isDigit(c) || c == '-' || c == '.' || c == 'e' || c == 'E' || c == '+' {
				end++
			} else {
				break
			}
		}
		if end > pos {
			return tokenUnquoted, end, nil
		}
	}

	return 0, 0, fmt.Errorf("unexpected character %q at line %d", data[pos], p.lineNb)
}

func (p *Processor) scanSQLString(data []byte, pos int) (int, error) {
	i := pos + 1
	n := len(data)
	for i < n {
		if data[i] == '\\' && i+1 < n {
			i += 2
		} else if data[i] == '\'' {
			return i + 1, nil
		} else {
			i++
		}
	}
	return 0, fmt.Errorf("unterminated string at line %d", p.lineNb)
}

func isDigit(b byte) bool     { return b >= '0' && b <= '9' }
func isAlphaNum(b byte) bool  { return isDigit(b) || (b|0x20 >= 'a' && b|0x20 <= 'z') }
func isHexDigit(b byte) bool  { return isDigit(b) || (b|0x20 >= 'a' && b|0x20 <= 'f') }

func (p *Processor) handleValue(tok valueToken, raw []byte, currentFieldPos, tableIdx int, w *bufio.Writer) error {
	fieldIdx, ok := p.resolveFieldIndex(currentFieldPos, tableIdx)
	if !ok {
		_, err := w.Write(raw)
		return err
	}

	if tok == tokenNull {
		_, err := w.Write([]byte("NULL"))
		return err
	}

	field := &p.cfg.Tables[tableIdx].Fields[fieldIdx]
	field.Rule.HitCount++
	fieldQuoted := field.IsQuotedType
	kind := field.Rule.Kind

	switch kind {
	case config.KindJSON:
		handled, err := p.handleJSONAnonymization(raw, tableIdx, fieldIdx, w)
		if err != nil {
			return err
		}
		if !handled {
			_, err := w.Write(raw)
			return err
		}
		return nil

	case config.KindScript:
		res := p.handleScriptAnonymization(raw, fieldQuoted, tableIdx, fieldIdx)
		return p.writeQuotedOutput(res.Data, quoteFor(res.Quoting, fieldQuoted), w)
	}

	if field.Rule.Separator != nil {
		return p.handleSeparatedValues(raw, tableIdx, fieldIdx, fieldQuoted, w)
	}

	secret := []byte(p.cfg.Secret)
	ctx := &anonymize.AnonContext{
		CapturedKey: p.tableKey,
		RowIndex:    p.rowIndex,
		FirstInsert: p.firstInsert,
		TableName:   p.currentTable,
	}

	res := anonymize.Anonymize(fieldQuoted, &field.Rule, raw, secret, ctx, p.script)
	p.tableKey = ctx.CapturedKey

	return p.writeQuotedOutput(res.Data, quoteFor(res.Quoting, fieldQuoted), w)
}

func (p *Processor) resolveFieldIndex(currentFieldPos, tableIdx int) (int, bool) {
	if p.firstInsert || currentFieldPos >= maxFieldsPerTable {
		table := &p.cfg.Tables[tableIdx]
		for fi := range table.Fields {
			if table.Fields[fi].ColumnPosition == currentFieldPos {
				if currentFieldPos < maxFieldsPerTable {
					p.fieldConfigCache[currentFieldPos] = fi
				}
				return fi, true
			}
		}
		return 0, false
	}
	if currentFieldPos < maxFieldsPerTable {
		if idx := p.fieldConfigCache[currentFieldPos]; idx >= 0 {
			return idx, true
		}
	}
	return 0, false
}

func quoteFor(mode anonymize.QuoteMode, fieldQuoted bool) bool {
	switch mode {
	case anonymize.ForceTrue:
		return true
	case anonymize.ForceFalse:
		return false
	default:
		return fieldQuoted
	}
}

func (p *Processor) handleJSONAnonymization(raw []byte, tableIdx, fieldIdx int, w *bufio.Writer) (bool, error) {
	unquoted := string(anonymize.RemoveQuotes(raw))
	unescaped := jsonval.RemoveSQLBackslash(unquoted)

	parsed := jsonval.Parse(unescaped)
	if parsed == nil {
		field := &p.cfg.Tables[tableIdx].Fields[fieldIdx]
		fmt.Fprintf(os.Stderr, "WARNING! Table/field %s: unable to parse json field %q at line %d, skip anonymization\n", field.Name, unescaped, p.lineNb)
		return false, nil
	}

	secret := []byte(p.cfg.Secret)
	subRules := p.cfg.Tables[tableIdx].Fields[fieldIdx].JSONSubRules

	for i := range subRules {
		sub := &subRules[i]
		if jsonval.HasWildcards(sub.Path) {
			jsonval.Anonymize(parsed, sub.Path, &sub.Rule, secret)
		} else if current, ok := jsonval.GetString(parsed, sub.Path); ok {
			var newValue string
			if sub.Rule.Kind == config.KindFixed {
				newValue = sub.Rule.FixedValue
			} else {
				res := anonymize.Anonymize(false, &sub.Rule, []byte(current), secret, &anonymize.AnonContext{}, p.script)
				newValue = string(res.Data)
			}
			jsonval.Replace(parsed, sub.Path, newValue)
		}
		sub.HitCount++
	}
	p.cfg.Tables[tableIdx].Fields[fieldIdx].JSONSubRules = subRules

	serialized := jsonval.Serialize(parsed)
	escaped := jsonval.AddSQLBackslash(serialized)

	return true, p.writeQuotedOutput([]byte(escaped), true, w)
}

func (p *Processor) handleScriptAnonymization(raw []byte, fieldQuoted bool, tableIdx, fieldIdx int) anonymize.Result {
	worktoken := raw
	if fieldQuoted {
		worktoken = anonymize.RemoveQuotes(raw)
	}
	field := &p.cfg.Tables[tableIdx].Fields[fieldIdx]

	return anonymize.Anonymize(false, &field.Rule, worktoken, []byte(p.cfg.Secret), &anonymize.AnonContext{}, p.script)
}

func (p *Processor) handleSeparatedValues(raw []byte, tableIdx, fieldIdx int, fieldQuoted bool, w *bufio.Writer) error {
	field := &p.cfg.Tables[tableIdx].Fields[fieldIdx]
	separator := *field.Rule.Separator

	worktext := raw
	if fieldQuoted {
		worktext = anonymize.RemoveQuotes(raw)
	}

	parts := bytes.Split(worktext, []byte{separator})
	if len(parts) == 0 {
		_, err := w.Write(raw)
		return err
	}

	secret := []byte(p.cfg.Secret)

	if err := w.WriteByte('\''); err != nil {
		return err
	}

	for i, part := range parts {
		if i > 0 {
			if err := w.WriteByte(separator); err != nil {
				return err
			}
		}

		ctx := &anonymize.AnonContext{
			CapturedKey: p.tableKey,
			RowIndex:    p.rowIndex,
			FirstInsert: p.firstInsert,
			TableName:   p.currentTable,
		}
		res := anonymize.Anonymize(false, &field.Rule, part, secret, ctx, p.script)
		p.tableKey = ctx.CapturedKey

		outQuoted := false
		switch res.Quoting {
		case anonymize.ForceTrue:
			outQuoted = true
		case anonymize.ForceFalse:
			outQuoted = false
		}

		if err := p.writeQuotedOutput(res.Data, outQuoted, w); err != nil {
			return err
		}
	}

	return w.WriteByte('\'')
}

func (p *Processor) writeQuotedOutput(data []byte, quoted bool, w *bufio.Writer) error {
	if quoted {
		if err := w.WriteByte('\''); err != nil {
			return err
		}
		if _, err := w.Write(data); err != nil {
			return err
		}
		return w.WriteByte('\'')
	}
	_, err := w.Write(data)
	return err
}
