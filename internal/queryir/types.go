package queryir

import "github.com/roach88/timelock/internal/ir"

// Query is an abstract read over one journal table.
//
// Sealed: only types in this package implement it.
type Query interface {
	queryNode()
}

// Predicate is a filter condition over the fields of a table.
//
// Sealed: only types in this package implement it.
type Predicate interface {
	predicateNode()
}

// Table names a readable table.
type Table string

// Journal tables.
const (
	TableEvents     Table = "events"
	TableOperations Table = "operations"
)

// FieldType is the value type a field holds.
type FieldType int

const (
	FieldString FieldType = iota
	FieldInt
)

func (t FieldType) String() string {
	if t == FieldInt {
		return "int"
	}
	return "string"
}

// Field describes one column of a table.
type Field struct {
	Name string
	Type FieldType
}

// Catalog lists each table's fields in column order. The first field is
// the table's ordering key.
var Catalog = map[Table][]Field{
	TableEvents: {
		{"idx", FieldInt},
		{"id", FieldString},
		{"op_seq", FieldInt},
		{"kind", FieldString},
		{"sender", FieldString},
		{"amount", FieldString},
		{"at", FieldInt},
	},
	TableOperations: {
		{"seq", FieldInt},
		{"id", FieldString},
		{"kind", FieldString},
		{"caller", FieldString},
		{"args", FieldString},
		{"now", FieldInt},
		{"outcome", FieldString},
		{"error_code", FieldString},
	},
}

// Lookup returns the named field of table.
func Lookup(table Table, name string) (Field, bool) {
	for _, f := range Catalog[table] {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// Select reads every field of From for rows matching Filter, in the
// table's key order.
//
//	Select{
//	  From: TableEvents,
//	  Filter: And{Predicates: []Predicate{
//	    AtLeast{Field: "idx", Value: ir.IRInt(3)},
//	    Equals{Field: "kind", Value: ir.IRString("Deposited")},
//	  }},
//	}
//
// compiles to
//
//	SELECT idx, id, op_seq, kind, sender, amount, at FROM events
//	WHERE idx >= ? AND kind = ? ORDER BY idx ASC
type Select struct {
	From   Table
	Filter Predicate // nil = every row
}

func (Select) queryNode() {}

// Equals matches rows where Field = Value.
type Equals struct {
	Field string
	Value ir.IRValue
}

func (Equals) predicateNode() {}

// AtLeast matches rows where Field >= Value. Integer fields only.
type AtLeast struct {
	Field string
	Value ir.IRValue
}

func (AtLeast) predicateNode() {}

// AtMost matches rows where Field <= Value. Integer fields only.
type AtMost struct {
	Field string
	Value ir.IRValue
}

func (AtMost) predicateNode() {}

// And matches rows satisfying every predicate. An empty And matches all rows.
type And struct {
	Predicates []Predicate
}

func (And) predicateNode() {}

// All conjoins the non-nil predicates in preds. It returns nil when none
// remain and the predicate itself when only one does.
func All(preds ...Predicate) Predicate {
	var kept []Predicate
	for _, p := range preds {
		if p != nil {
			kept = append(kept, p)
		}
	}
	switch len(kept) {
	case 0:
		return nil
	case 1:
		return kept[0]
	default:
		return And{Predicates: kept}
	}
}
