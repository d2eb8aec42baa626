// Package schema turns a raw pg_dump schema into one that loads cleanly
// into a fresh local database.
//
// Only CREATE TABLE statements are kept; sequences, views, ownership and
// other DDL noise in the dump are dropped by omission. Columns whose default
// comes from nextval() are rewritten to the serial shorthand, since the
// backing sequence will not exist locally. No attempt is made to validate
// the result: a bad rewrite shows up when the load step fails.
package schema

import (
	"fmt"
	"os"
	"regexp"
	"strings"
)

var (
	// A full CREATE TABLE statement: from the keyword to the next
	// semicolon at end of line, spanning newlines non-greedily.
	createTableRe = regexp.MustCompile(`(?s)CREATE TABLE .*?;\n`)

	// A sequence-backed default column clause, e.g.
	//   id bigint DEFAULT nextval('events_id_seq'::regclass) NOT NULL,
	// Greedy within the line so trailing modifiers are consumed too.
	sequenceDefaultRe = regexp.MustCompile(`bigint DEFAULT nextval.*,`)
)

// Extract returns every CREATE TABLE statement in raw, in order.
// Anything that is not a table definition is discarded.
func Extract(raw string) []string {
	return createTableRe.FindAllString(raw, -1)
}

// Rewrite replaces sequence-backed default clauses with the serial
// shorthand. Statements without such a clause come back unchanged.
func Rewrite(stmt string) string {
	return sequenceDefaultRe.ReplaceAllString(stmt, "serial,")
}

// Process extracts and rewrites the table definitions in raw, then appends
// the supplied post-load statements verbatim, in order.
func Process(raw string, alterations []string) string {
	stmts := Extract(raw)
	for i, stmt := range stmts {
		stmts[i] = Rewrite(stmt)
	}
	stmts = append(stmts, alterations...)
	return strings.Join(stmts, "\n")
}

// ProcessFile reads the raw schema dump at rawPath and writes the processed
// schema to processedPath.
func ProcessFile(rawPath, processedPath string, alterations []string) error {
	raw, err := os.ReadFile(rawPath)
	if err != nil {
		return fmt.Errorf("reading raw schema: %w", err)
	}

	processed := Process(string(raw), alterations)

	if err := os.WriteFile(processedPath, []byte(processed), 0o644); err != nil {
		return fmt.Errorf("writing processed schema: %w", err)
	}
	return nil
}
