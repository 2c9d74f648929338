// Package queryir is the query intermediate representation for reading the
// vault journal and event log.
//
// Callers describe what they want (a table and a filter) without writing
// SQL; the querysql package compiles a query into parameterized SQLite.
// Keeping the two apart means every read path shares one set of rules:
//
//   - Only the journal tables are addressable: events and operations.
//   - Fields are the tables' own columns, with a fixed value type each.
//   - Predicates are Equals, AtLeast, AtMost and And. There is no OR and
//     no NULL.
//   - Literal values are ir.IRValue (strings, integers, booleans only).
//
// SEALED INTERFACES:
//
// Query and Predicate are sealed with marker methods, so backends can
// switch over them exhaustively:
//
//	switch p := pred.(type) {
//	case Equals:
//	case AtLeast:
//	case AtMost:
//	case And:
//	}
//
// Validate checks a query against the table catalog before compilation;
// the compiler refuses anything Validate rejects.
package queryir
