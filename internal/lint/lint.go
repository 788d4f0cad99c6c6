// Package lint cross-checks a config's field rules against the column
// names a dump's CREATE TABLE statements actually declare. It is a
// static-analysis aid layered on top of a real SQL parser; it never
// touches the streaming dump tokenizer and never blocks the transform
// path described by internal/dump.
package lint

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/pingcap/tidb/pkg/parser"
	"github.com/pingcap/tidb/pkg/parser/ast"
	_ "github.com/pingcap/tidb/pkg/parser/test_driver"

	"sqlanon/internal/config"
)

// Finding reports a configured field rule naming a column that no
// CREATE TABLE statement in the dump declares for that table.
type Finding struct {
	Table string
	Field string
}

// String renders a Finding for stderr/CLI reporting.
func (f Finding) String() string {
	return fmt.Sprintf("field %q is configured for table %q but no CREATE TABLE statement in the dump declares that column", f.Field, f.Table)
}

// Check parses every CREATE TABLE statement found in dump and, for
// each literally-named table rule in cfg, reports any FieldRule whose
// name is absent from that table's actual columns. Regex-matched
// table rules are skipped: a single regex can match many physical
// tables, and there is no single column set to cross-check against.
func Check(dump io.Reader, cfg *config.Config) ([]Finding, error) {
	statements, err := extractCreateTableStatements(dump)
	if err != nil {
		return nil, err
	}

	columns, err := collectColumns(statements)
	if err != nil {
		return nil, err
	}

	var findings []Finding
	for i := range cfg.Tables {
		table := &cfg.Tables[i]
		if table.Action != config.ActionAnonymize || table.Regex != nil {
			continue
		}
		cols, ok := columns[table.Name]
		if !ok {
			continue
		}
		for _, field := range table.Fields {
			if !cols[field.Name] {
				findings = append(findings, Finding{Table: table.Name, Field: field.Name})
			}
		}
	}

	return findings, nil
}

func collectColumns(statements []string) (map[string]map[string]bool, error) {
	p := parser.New()
	columns := map[string]map[string]bool{}

	for _, stmt := range statements {
		nodes, _, err := p.Parse(stmt, "", "")
		if err != nil {
			return nil, fmt.Errorf("lint: failed to parse CREATE TABLE statement: %w", err)
		}
		for _, node := range nodes {
			create, ok := node.(*ast.CreateTableStmt)
			if !ok {
				continue
			}
			name := create.Table.Name.O
			cols := columns[name]
			if cols == nil {
				cols = map[string]bool{}
				columns[name] = cols
			}
			for _, col := range create.Cols {
				cols[col.Name.Name.O] = true
			}
		}
	}

	return columns, nil
}

// extractCreateTableStatements buffers only the CREATE TABLE ... ;
// statement text from dump, never INSERT/REPLACE data lines, so a
// multi-gigabyte dump costs only as much as its schema preamble.
func extractCreateTableStatements(r io.Reader) ([]string, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	var statements []string
	var current strings.Builder
	collecting := false

	for scanner.Scan() {
		line := scanner.Text()
		trimmed := strings.TrimLeft(line, " \t")

		if strings.HasPrefix(line, "CREATE TABLE `") {
			current.Reset()
			collecting = true
		}

		if !collecting {
			continue
		}

		current.WriteString(line)
		current.WriteByte('\n')

		if strings.HasPrefix(trimmed, "ENGINE") || strings.HasPrefix(trimmed, ") ENGINE") {
			statements = append(statements, current.String())
			collecting = false
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("lint: failed to read dump: %w", err)
	}

	return statements, nil
}
