package queryir

import (
	"fmt"
	"strings"

	"github.com/roach88/timelock/internal/ir"
)

// ValidationResult lists the problems found in a query.
type ValidationResult struct {
	// IsValid is true when the query can be compiled.
	IsValid bool

	// Errors describes each problem. Empty when IsValid is true.
	Errors []string
}

// Err returns the problems as a single error, or nil for a valid query.
func (r ValidationResult) Err() error {
	if r.IsValid {
		return nil
	}
	return fmt.Errorf("invalid query: %s", strings.Join(r.Errors, "; "))
}

// Validate checks q against the catalog: the table must exist, every
// predicate must name one of its fields, values must match the field type
// and range predicates must target integer fields.
//
// Validate is a pure function and reports every problem, not just the first.
func Validate(q Query) ValidationResult {
	v := &validator{errors: []string{}}
	v.validateQuery(q)

	return ValidationResult{
		IsValid: len(v.errors) == 0,
		Errors:  v.errors,
	}
}

type validator struct {
	table  Table
	errors []string
}

func (v *validator) addError(format string, args ...any) {
	v.errors = append(v.errors, fmt.Sprintf(format, args...))
}

func (v *validator) validateQuery(q Query) {
	switch query := q.(type) {
	case Select:
		v.validateSelect(query)
	case *Select:
		if query == nil {
			v.addError("nil query")
			return
		}
		v.validateSelect(*query)
	case nil:
		v.addError("nil query")
	default:
		v.addError("unknown query type %T", q)
	}
}

func (v *validator) validateSelect(sel Select) {
	if _, ok := Catalog[sel.From]; !ok {
		v.addError("unknown table %q", sel.From)
		return
	}
	v.table = sel.From
	v.validatePredicate(sel.Filter)
}

func (v *validator) validatePredicate(p Predicate) {
	switch pred := p.(type) {
	case nil:
	case Equals:
		v.validateComparison("=", pred.Field, pred.Value, false)
	case AtLeast:
		v.validateComparison(">=", pred.Field, pred.Value, true)
	case AtMost:
		v.validateComparison("<=", pred.Field, pred.Value, true)
	case And:
		for _, sub := range pred.Predicates {
			v.validatePredicate(sub)
		}
	default:
		v.addError("unknown predicate type %T", p)
	}
}

func (v *validator) validateComparison(op, name string, value ir.IRValue, ordered bool) {
	field, ok := Lookup(v.table, name)
	if !ok {
		v.addError("%s has no field %q", v.table, name)
		return
	}
	if ordered && field.Type != FieldInt {
		v.addError("%s %s: ordering needs an int field, %s is %s", name, op, name, field.Type)
		return
	}

	switch value.(type) {
	case ir.IRString:
		if field.Type != FieldString {
			v.addError("%s %s: string value for %s field", name, op, field.Type)
		}
	case ir.IRInt:
		if field.Type != FieldInt {
			v.addError("%s %s: int value for %s field", name, op, field.Type)
		}
	case nil:
		v.addError("%s %s: missing value", name, op)
	default:
		v.addError("%s %s: unsupported value type %T", name, op, value)
	}
}
