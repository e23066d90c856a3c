package promotion

import (
	"fmt"
	"reflect"
	"sync"

	"github.com/google/cel-go/cel"
)

// conditionInput is the activation of a rule condition.
type conditionInput struct {
	Subtotal     float64
	CustomerType string
	ItemCount    int64
}

// conditions compiles CEL rule conditions once and caches the programs.
type conditions struct {
	env *cel.Env

	mu       sync.RWMutex
	programs map[string]cel.Program
}

func newConditions() (*conditions, error) {
	env, err := cel.NewEnv(
		cel.Variable("subtotal", cel.DoubleType),
		cel.Variable("customer_type", cel.StringType),
		cel.Variable("item_count", cel.IntType),
	)
	if err != nil {
		return nil, fmt.Errorf("create cel env: %w", err)
	}
	return &conditions{env: env, programs: make(map[string]cel.Program)}, nil
}

func (c *conditions) program(expr string) (cel.Program, error) {
	c.mu.RLock()
	prg, ok := c.programs[expr]
	c.mu.RUnlock()
	if ok {
		return prg, nil
	}

	ast, iss := c.env.Compile(expr)
	if iss.Err() != nil {
		return nil, iss.Err()
	}
	if !reflect.DeepEqual(ast.OutputType(), cel.BoolType) {
		return nil, fmt.Errorf("condition must evaluate to bool, got %v", ast.OutputType())
	}
	prg, err := c.env.Program(ast)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.programs[expr] = prg
	c.mu.Unlock()
	return prg, nil
}

// check compiles expr without evaluating it.
func (c *conditions) check(expr string) error {
	_, err := c.program(expr)
	return err
}

func (c *conditions) eval(expr string, in conditionInput) (bool, error) {
	prg, err := c.program(expr)
	if err != nil {
		return false, err
	}
	out, _, err := prg.Eval(map[string]any{
		"subtotal":      in.Subtotal,
		"customer_type": in.CustomerType,
		"item_count":    in.ItemCount,
	})
	if err != nil {
		return false, err
	}
	b, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("condition returned %T", out.Value())
	}
	return b, nil
}
