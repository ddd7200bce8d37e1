package validation

import (
	"fmt"
	"sync"

	"github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/types"
)

// expressions compiles and caches CEL programs keyed by source text.
type expressions struct {
	mu       sync.RWMutex
	env      *cel.Env
	programs map[string]cel.Program
}

func newExpressions() (*expressions, error) {
	// fields holds raw values by lower-cased label; numbers holds the
	// subset that parses as a number.
	env, err := cel.NewEnv(
		cel.Variable("fields", cel.MapType(cel.StringType, cel.StringType)),
		cel.Variable("numbers", cel.MapType(cel.StringType, cel.DoubleType)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL environment: %w", err)
	}
	return &expressions{
		env:      env,
		programs: make(map[string]cel.Program),
	}, nil
}

// program returns the cached program for expr, compiling it on first use.
func (x *expressions) program(expr string) (cel.Program, error) {
	x.mu.RLock()
	prg, ok := x.programs[expr]
	x.mu.RUnlock()
	if ok {
		return prg, nil
	}

	ast, issues := x.env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("failed to compile expression: %w", issues.Err())
	}
	if !ast.OutputType().IsExactType(cel.BoolType) {
		return nil, fmt.Errorf("expression must return bool, got %s", ast.OutputType())
	}
	prg, err := x.env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("failed to create program: %w", err)
	}

	x.mu.Lock()
	x.programs[expr] = prg
	x.mu.Unlock()
	return prg, nil
}

// eval runs expr against the record.
func (x *expressions) eval(expr string, rec record) (bool, error) {
	prg, err := x.program(expr)
	if err != nil {
		return false, err
	}
	out, _, err := prg.Eval(map[string]any{
		"fields":  rec.values,
		"numbers": rec.numbers,
	})
	if err != nil {
		return false, fmt.Errorf("evaluation error: %w", err)
	}
	b, ok := out.(types.Bool)
	if !ok {
		return false, fmt.Errorf("expression returned %v, not bool", out.Type())
	}
	return bool(b), nil
}

func (x *expressions) size() int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return len(x.programs)
}
