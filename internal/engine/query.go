package engine

import (
	"strings"
	"time"

	"github.com/google/cel-go/cel"
)

// filter wraps a compiled CEL program evaluated per entity. When disabled
// (empty expression), Eval always returns true.
type filter struct {
	prog    cel.Program
	enabled bool
}

func compileFilter(expr string) (filter, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return filter{enabled: false}, nil
	}
	env, err := cel.NewEnv(
		cel.Variable("id", cel.StringType),
		cel.Variable("collection", cel.StringType),
		// entity fields as a dynamic map for predicates like
		// fields.name == 'General'
		cel.Variable("fields", cel.DynType),
		// current time in ms for windowed filters
		cel.Variable("now_ms", cel.IntType),
	)
	if err != nil {
		return filter{}, err
	}
	ast, iss := env.Parse(expr)
	if iss != nil && iss.Err() != nil {
		return filter{}, iss.Err()
	}
	checked, iss2 := env.Check(ast)
	if iss2 != nil && iss2.Err() != nil {
		return filter{}, iss2.Err()
	}
	prog, err := env.Program(checked)
	if err != nil {
		return filter{}, err
	}
	return filter{prog: prog, enabled: true}, nil
}

// Eval evaluates the predicate against an entity. Evaluation errors
// (missing field, type mismatch) exclude the entity rather than failing
// the fetch.
func (f filter) Eval(e Entity) bool {
	if !f.enabled {
		return true
	}
	fields := e.Fields
	if fields == nil {
		fields = map[string]interface{}{}
	}
	out, _, err := f.prog.Eval(map[string]interface{}{
		"id":         e.ID,
		"collection": e.Collection,
		"fields":     fields,
		"now_ms":     time.Now().UnixMilli(),
	})
	if err != nil {
		return false
	}
	b, ok := out.Value().(bool)
	return ok && b
}
