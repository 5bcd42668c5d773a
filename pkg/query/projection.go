// Package query builds parameterized PostgreSQL SELECT statements over a
// projection of view names onto table columns.
package query

import (
	"fmt"
	"strings"
)

// ProjectionMap maps view names to alias-qualified columns for one table.
// Each column is reachable by its view name and by its column name.
type ProjectionMap struct {
	schema     string
	table      string
	alias      string
	columns    map[string]string
	columnList []string
}

// NewProjectionMap creates a ProjectionMap for the given schema, table, and alias.
func NewProjectionMap(schema, table, alias string) *ProjectionMap {
	return &ProjectionMap{
		schema:  schema,
		table:   table,
		alias:   alias,
		columns: make(map[string]string),
	}
}

// Project maps column to viewName. The column name also resolves to the
// column, so "detected_at" and "DetectedAt" name the same field.
func (p *ProjectionMap) Project(column, viewName string) *ProjectionMap {
	qualified := p.alias + "." + column
	p.columns[viewName] = qualified
	if _, taken := p.columns[column]; !taken {
		p.columns[column] = qualified
	}
	p.columnList = append(p.columnList, qualified)
	return p
}

// Alias returns the table alias.
func (p *ProjectionMap) Alias() string {
	return p.alias
}

// Table returns the fully qualified table reference with alias (schema.table alias).
func (p *ProjectionMap) Table() string {
	return fmt.Sprintf("%s.%s %s", p.schema, p.table, p.alias)
}

// Lookup returns the qualified column for name and whether it is projected.
func (p *ProjectionMap) Lookup(name string) (string, bool) {
	col, ok := p.columns[name]
	return col, ok
}

// Column returns the qualified column for name, or name itself when it
// is not projected. Only pass trusted names; client input goes through Lookup.
func (p *ProjectionMap) Column(name string) string {
	if col, ok := p.columns[name]; ok {
		return col
	}
	return name
}

// Columns returns all mapped columns as a comma-separated string.
func (p *ProjectionMap) Columns() string {
	return strings.Join(p.columnList, ", ")
}

// ColumnList returns all mapped columns in projection order.
func (p *ProjectionMap) ColumnList() []string {
	return p.columnList
}
