package tools

import (
	"context"
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/ast"
	"github.com/google/cel-go/common/operators"
	"github.com/google/cel-go/common/types"
	"github.com/google/cel-go/common/types/ref"
	"github.com/pkg/errors"
)

const CalculatorToolName = "calculator"

const maxExpressionLength = 512

// CalculatorTool evaluates arithmetic expressions. Every number is a double.
type CalculatorTool struct {
	env *cel.Env
}

type calculatorInput struct {
	Expression string `json:"expression"`
}

func NewCalculatorTool() (*CalculatorTool, error) {
	unary := func(name string, fn func(float64) float64) cel.EnvOption {
		return cel.Function(name,
			cel.Overload(name+"_double", []*cel.Type{cel.DoubleType}, cel.DoubleType,
				cel.UnaryBinding(func(v ref.Val) ref.Val {
					return types.Double(fn(float64(v.(types.Double))))
				})))
	}

	env, err := cel.NewEnv(
		cel.Variable("pi", cel.DoubleType),
		cel.Variable("e", cel.DoubleType),
		unary("sqrt", math.Sqrt),
		unary("abs", math.Abs),
		unary("floor", math.Floor),
		unary("ceil", math.Ceil),
		unary("round", math.Round),
		unary("sin", math.Sin),
		unary("cos", math.Cos),
		unary("tan", math.Tan),
		unary("log", math.Log),
		unary("log10", math.Log10),
		unary("exp", math.Exp),
		cel.Function("pow",
			cel.Overload("pow_double_double", []*cel.Type{cel.DoubleType, cel.DoubleType}, cel.DoubleType,
				cel.BinaryBinding(func(a, b ref.Val) ref.Val {
					return types.Double(math.Pow(float64(a.(types.Double)), float64(b.(types.Double))))
				}))),
		cel.Function("fmod",
			cel.Overload("fmod_double_double", []*cel.Type{cel.DoubleType, cel.DoubleType}, cel.DoubleType,
				cel.BinaryBinding(func(a, b ref.Val) ref.Val {
					return types.Double(math.Mod(float64(a.(types.Double)), float64(b.(types.Double))))
				}))),
	)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create calculator environment")
	}
	return &CalculatorTool{env: env}, nil
}

func (t *CalculatorTool) Name() string { return CalculatorToolName }

func (t *CalculatorTool) Description() string {
	return "Evaluate a mathematical expression exactly. Supports + - * / %, parentheses, " +
		"sqrt, pow, abs, floor, ceil, round, sin, cos, tan, log, log10, exp and the constants pi and e."
}

func (t *CalculatorTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"expression": map[string]any{
				"type":        "string",
				"description": "The expression to evaluate, e.g. \"pow(2, 10) / 3\".",
			},
		},
		"required": []string{"expression"},
	}
}

func (t *CalculatorTool) Run(ctx context.Context, input string) (*Result, error) {
	var in calculatorInput
	if err := json.Unmarshal([]byte(input), &in); err != nil {
		return nil, permanent(errors.Wrap(err, "invalid calculator input"))
	}
	value, err := t.Evaluate(ctx, in.Expression)
	if err != nil {
		return nil, permanent(err)
	}
	formatted := FormatNumber(value)
	return &Result{
		Output:  formatted,
		Success: true,
		Data:    map[string]any{"expression": in.Expression, "result": value},
	}, nil
}

// Evaluate compiles and runs the expression.
func (t *CalculatorTool) Evaluate(ctx context.Context, expression string) (float64, error) {
	expression = strings.TrimSpace(expression)
	if expression == "" {
		return 0, errors.New("expression is empty")
	}
	if len(expression) > maxExpressionLength {
		return 0, errors.Errorf("expression is longer than %d characters", maxExpressionLength)
	}

	parsed, iss := t.env.Parse(expression)
	if iss.Err() != nil {
		return 0, errors.Errorf("invalid expression: %v", iss.Err())
	}
	promoteNumbers(parsed.NativeRep().Expr())
	checked, iss := t.env.Check(parsed)
	if iss.Err() != nil {
		return 0, errors.Errorf("invalid expression: %v", iss.Err())
	}
	if !checked.OutputType().IsExactType(cel.DoubleType) {
		return 0, errors.New("expression must evaluate to a number")
	}
	prg, err := t.env.Program(checked, cel.CostLimit(10_000))
	if err != nil {
		return 0, errors.Wrap(err, "failed to build program")
	}
	out, _, err := prg.ContextEval(ctx, map[string]any{"pi": math.Pi, "e": math.E})
	if err != nil {
		return 0, errors.Wrap(err, "failed to evaluate expression")
	}

	value, ok := out.Value().(float64)
	if !ok {
		return 0, errors.New("expression must evaluate to a number")
	}
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return 0, errors.New("result is not a finite number")
	}
	return value, nil
}

// promoteNumbers rewrites integer literals as doubles so that "7 / 2" is 3.5,
// and the modulo operator as fmod since CEL only defines it for integers.
func promoteNumbers(root ast.Expr) {
	fac := ast.NewExprFactory()
	ast.PostOrderVisit(root, ast.NewExprVisitor(func(e ast.Expr) {
		switch e.Kind() {
		case ast.LiteralKind:
			switch v := e.AsLiteral().(type) {
			case types.Int:
				e.SetKindCase(fac.NewLiteral(e.ID(), types.Double(v)))
			case types.Uint:
				e.SetKindCase(fac.NewLiteral(e.ID(), types.Double(v)))
			}
		case ast.CallKind:
			call := e.AsCall()
			if call.FunctionName() == operators.Modulo {
				e.SetKindCase(fac.NewCall(e.ID(), "fmod", call.Args()...))
			}
		}
	}))
}

// FormatNumber prints integral values without a fraction and others with 12 significant digits.
func FormatNumber(v float64) string {
	if v == math.Trunc(v) && math.Abs(v) < 1e15 {
		return strconv.FormatFloat(v, 'f', 0, 64)
	}
	return strconv.FormatFloat(v, 'g', 12, 64)
}
