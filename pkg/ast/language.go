package ast

import (
	"maps"
	"slices"
)

// Language resolves kind and field identifiers of a grammar to names and back.
type Language interface {
	// KindName returns the name of a kind id.
	KindName(kind KindID) (string, bool)
	// KindNamed reports whether a kind id is a named kind.
	KindNamed(kind KindID) (named, ok bool)
	// KindID returns the lowest kind id with the given name and namedness.
	KindID(name string, named bool) (KindID, bool)
	// FieldName returns the name of a field id.
	FieldName(field FieldID) (string, bool)
	// FieldID returns the id of a field name.
	FieldID(name string) (FieldID, bool)
}

// Kind describes one entry of a grammar's kind table.
type Kind struct {
	Name  string
	Named bool
}

type kindKey struct {
	name  string
	named bool
}

// Table is a static [Language] backed by explicit kind and field tables.
type Table struct {
	kinds      map[KindID]Kind
	fields     map[FieldID]string
	kindIndex  map[kindKey]KindID
	fieldIndex map[string]FieldID
}

// NewTable builds a Table. When several ids share a name, lookups by name
// return the lowest id.
func NewTable(kinds map[KindID]Kind, fields map[FieldID]string) *Table {
	table := &Table{
		kinds:      maps.Clone(kinds),
		fields:     maps.Clone(fields),
		kindIndex:  make(map[kindKey]KindID, len(kinds)),
		fieldIndex: make(map[string]FieldID, len(fields)),
	}

	for _, id := range slices.Sorted(maps.Keys(kinds)) {
		key := kindKey{name: kinds[id].Name, named: kinds[id].Named}
		if _, exists := table.kindIndex[key]; !exists {
			table.kindIndex[key] = id
		}
	}

	for _, id := range slices.Sorted(maps.Keys(fields)) {
		if _, exists := table.fieldIndex[fields[id]]; !exists {
			table.fieldIndex[fields[id]] = id
		}
	}

	return table
}

// KindName implements [Language].
func (table *Table) KindName(kind KindID) (string, bool) {
	entry, ok := table.kinds[kind]

	return entry.Name, ok
}

// KindNamed implements [Language].
func (table *Table) KindNamed(kind KindID) (named, ok bool) {
	entry, ok := table.kinds[kind]

	return entry.Named, ok
}

// KindID implements [Language].
func (table *Table) KindID(name string, named bool) (KindID, bool) {
	id, ok := table.kindIndex[kindKey{name: name, named: named}]

	return id, ok
}

// FieldName implements [Language].
func (table *Table) FieldName(field FieldID) (string, bool) {
	name, ok := table.fields[field]

	return name, ok
}

// FieldID implements [Language].
func (table *Table) FieldID(name string) (FieldID, bool) {
	id, ok := table.fieldIndex[name]

	return id, ok
}

// KindCount returns the number of kinds in the table.
func (table *Table) KindCount() int {
	return len(table.kinds)
}

// FieldNames returns the field names ordered by field id.
func (table *Table) FieldNames() []string {
	names := make([]string, 0, len(table.fields))
	for _, id := range slices.Sorted(maps.Keys(table.fields)) {
		names = append(names, table.fields[id])
	}

	return names
}

// KindNames returns the distinct names of named or anonymous kinds, sorted.
func (table *Table) KindNames(named bool) []string {
	names := make([]string, 0, len(table.kindIndex))
	for key := range table.kindIndex {
		if key.named == named {
			names = append(names, key.name)
		}
	}

	slices.Sort(names)

	return names
}
