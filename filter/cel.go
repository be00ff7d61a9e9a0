package filter

import (
	"fmt"
	"regexp"

	"github.com/google/cel-go/cel"

	"github.com/ddblite/ddblite/codec"
	"github.com/ddblite/ddblite/table"
)

// recordVar exposes the whole record as a map, for fields whose names are
// not CEL identifiers and for has() checks.
const recordVar = "record"

var identRegex = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

var celReserved = map[string]bool{
	"true": true, "false": true, "null": true, "in": true, "as": true, "break": true,
	"const": true, "continue": true, "else": true, "for": true, "function": true,
	"if": true, "import": true, "let": true, "loop": true, "package": true,
	"namespace": true, "return": true, "var": true, "void": true, "while": true,
	recordVar: true,
}

// CEL compiles a boolean CEL expression over the fields of s, e.g.
//
//	is_byod && joined_on >= timestamp("2020-01-02T00:00:00Z")
//
// Each field is a variable typed by its kind (number as double, text and
// enum as string, timestamp as timestamp). A record for which the
// expression fails, for instance because it reads a null field, is dropped.
func CEL(s table.TableSchema, expression string) (Func, error) {
	if expression == "" {
		return nil, fmt.Errorf("expression can't be empty")
	}

	opts := []cel.EnvOption{
		cel.Variable(recordVar, cel.MapType(cel.StringType, cel.DynType)),
		cel.CrossTypeNumericComparisons(true),
	}
	for _, f := range s.Fields {
		if !identRegex.MatchString(f.Name) || celReserved[f.Name] {
			continue
		}
		opts = append(opts, cel.Variable(f.Name, celType(f.Kind)))
	}
	env, err := cel.NewEnv(opts...)
	if err != nil {
		return nil, fmt.Errorf("create CEL environment: %w", err)
	}

	ast, issues := env.Compile(expression)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("compile CEL expression: %w", issues.Err())
	}
	if out := ast.OutputType(); !out.IsExactType(cel.BoolType) && !out.IsExactType(cel.DynType) {
		return nil, fmt.Errorf("CEL expression must be boolean, got %s", out)
	}
	prg, err := env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("create CEL program: %w", err)
	}

	return func(rec codec.Record) bool {
		vars := make(map[string]any, len(rec)+1)
		fields := make(map[string]any, len(rec))
		for k, v := range rec {
			if v == nil {
				continue
			}
			vars[k] = v
			fields[k] = v
		}
		vars[recordVar] = fields

		out, _, err := prg.Eval(vars)
		if err != nil {
			return false
		}
		b, ok := out.Value().(bool)
		return ok && b
	}, nil
}

func celType(k table.Kind) *cel.Type {
	switch k {
	case table.KindNumber:
		return cel.DoubleType
	case table.KindBool:
		return cel.BoolType
	case table.KindTimestamp:
		return cel.TimestampType
	default:
		return cel.StringType
	}
}
