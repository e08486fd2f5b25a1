package catalog

import (
	"context"
	"fmt"
	"sort"
)

// Memory is a trivial in-process Catalog implementation used by tests
// and the demo entrypoint. Real deployments back Catalog with a live
// database, a static YAML/JSON file, or a cache in front of either;
// those implementations live outside this module.
type Memory struct {
	Tables    map[TableRef]TableMetadata
	Functions []FunctionMetadata
}

// NewMemory builds an empty in-memory catalog.
func NewMemory() *Memory {
	return &Memory{Tables: make(map[TableRef]TableMetadata)}
}

// AddTable registers a table (schema may be "" for the default schema).
func (m *Memory) AddTable(schema, name string, cols ...ColumnMetadata) *Memory {
	m.Tables[TableRef{Schema: schema, Table: name}] = TableMetadata{Schema: schema, Name: name, Columns: cols}
	return m
}

// Col is a small constructor for test fixtures.
func Col(name, dataType string, nullable bool) ColumnMetadata {
	return ColumnMetadata{Name: name, DataType: dataType, Nullable: nullable}
}

func (m *Memory) ListTables(_ context.Context, filter SchemaFilter) ([]TableMetadata, error) {
	var out []TableMetadata
	for ref, t := range m.Tables {
		if filter.Allows(ref.Schema, ref.Table) {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *Memory) GetColumns(_ context.Context, schema, table string) ([]ColumnMetadata, error) {
	t, ok := m.Tables[TableRef{Schema: schema, Table: table}]
	if !ok {
		return nil, fmt.Errorf("catalog: table %s.%s not found", schema, table)
	}
	return t.Columns, nil
}

func (m *Memory) GetColumnsBatch(_ context.Context, refs []TableRef) (map[TableRef][]ColumnMetadata, error) {
	out := make(map[TableRef][]ColumnMetadata, len(refs))
	for _, ref := range refs {
		if t, ok := m.Tables[ref]; ok {
			out[ref] = t.Columns
		}
		// A miss is simply absent from the map: Prefetch/scope-building
		// treats that as UNDEFINED_TABLE, never as a batch-level error.
	}
	return out, nil
}

func (m *Memory) ListFunctions(_ context.Context, filter SchemaFilter) ([]FunctionMetadata, error) {
	var out []FunctionMetadata
	for _, f := range m.Functions {
		if filter.Allows(f.Schema, f.Name) {
			out = append(out, f)
		}
	}
	return out, nil
}

func (m *Memory) TableExists(_ context.Context, schema, table string) (bool, error) {
	_, ok := m.Tables[TableRef{Schema: schema, Table: table}]
	return ok, nil
}
