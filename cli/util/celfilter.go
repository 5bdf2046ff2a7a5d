package util

import (
	"fmt"
	"strings"

	"github.com/google/cel-go/cel"
	"github.com/mortdb/mort/record"
)

/*
RecordFilter wraps a compiled CEL program for filtering scan output. An empty
expression compiles to a filter that admits everything.
*/

////////////////////////////////////////////////////////////////////////////////

// RecordFilter filters records by a CEL expression.
type RecordFilter struct {
	prog    cel.Program
	enabled bool
}

// NewRecordFilter compiles the given CEL expression. The expression sees the
// record key, partition, ordering token, delete marker, and field map.
func NewRecordFilter(expr string) (RecordFilter, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return RecordFilter{}, nil
	}
	env, err := cel.NewEnv(
		cel.Variable("key", cel.StringType),
		cel.Variable("partition", cel.StringType),
		cel.Variable("ordering", cel.IntType),
		cel.Variable("deleted", cel.BoolType),
		cel.Variable("fields", cel.DynType),
	)
	if err != nil {
		return RecordFilter{}, fmt.Errorf("failed to build CEL environment: %w", err)
	}
	ast, iss := env.Compile(expr)
	if iss != nil && iss.Err() != nil {
		return RecordFilter{}, fmt.Errorf("invalid filter expression: %w", iss.Err())
	}
	prog, err := env.Program(ast)
	if err != nil {
		return RecordFilter{}, fmt.Errorf("failed to compile filter: %w", err)
	}
	return RecordFilter{prog: prog, enabled: true}, nil
}

// Eval reports whether the record passes the filter. A disabled filter admits
// everything; evaluation errors reject the record.
func (f RecordFilter) Eval(rec record.Record) bool {
	if !f.enabled {
		return true
	}
	fields := rec.Fields
	if fields == nil {
		fields = map[string]any{}
	}
	out, _, err := f.prog.Eval(map[string]any{
		"key":       rec.Key.Record,
		"partition": rec.Key.Partition,
		"ordering":  int64(rec.Ordering),
		"deleted":   rec.Deleted,
		"fields":    fields,
	})
	if err != nil {
		return false
	}
	pass, ok := out.Value().(bool)
	return ok && pass
}
