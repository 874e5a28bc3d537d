// Package derive implements pre-execution parameter computation. A sweep
// block expands variable domains through arithmetic expressions into the
// collection a node receives for its target parameter. Expansion happens
// before the run; node identity is untouched and only the sanitized
// signature feeds the node's semantic ID.
package derive

import (
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"sort"
	"strconv"

	"github.com/semantiva/semantiva-go/internal/spec"
	semerrors "github.com/semantiva/semantiva-go/pkg/errors"
)

// Expansion is the result of evaluating one sweep: the parameter collection
// plus the sanitized signature describing how it was produced.
type Expansion struct {
	Target    string
	Values    []any
	Signature Signature
}

// Expand evaluates a sweep spec. nodeIndex is used for error reporting only.
func Expand(nodeIndex int, sweep *spec.SweepSpec) (*Expansion, error) {
	if sweep == nil {
		return nil, semerrors.NewSpecError(nodeIndex, "derive", "parameter_sweep is nil", nil)
	}

	names := make([]string, 0, len(sweep.Variables))
	for name := range sweep.Variables {
		names = append(names, name)
	}
	sort.Strings(names)

	domains := make([][]float64, len(names))
	for i, name := range names {
		domain, err := expandRange(nodeIndex, name, sweep.Variables[name])
		if err != nil {
			return nil, err
		}
		domains[i] = domain
	}

	tuples, err := combineDomains(nodeIndex, sweep.Mode, names, domains)
	if err != nil {
		return nil, err
	}

	expr, err := targetExpression(nodeIndex, sweep, names)
	if err != nil {
		return nil, err
	}

	values := make([]any, 0, len(tuples))
	for _, tuple := range tuples {
		v, err := evalExpr(expr, tuple)
		if err != nil {
			return nil, semerrors.NewSpecError(nodeIndex, "derive.parameter_sweep", err.Error(), err)
		}
		values = append(values, v)
	}

	sig, err := BuildSignature(sweep, names)
	if err != nil {
		return nil, err
	}

	return &Expansion{Target: sweep.Target, Values: values, Signature: sig}, nil
}

func expandRange(nodeIndex int, name string, rng spec.SweepRange) ([]float64, error) {
	if rng.IsExplicit() {
		out := make([]float64, 0, len(rng.Values))
		for _, v := range rng.Values {
			f, ok := toFloat(v)
			if !ok {
				return nil, semerrors.NewSpecError(nodeIndex, "derive.parameter_sweep",
					fmt.Sprintf("variable %q has non-numeric value %v", name, v), nil)
			}
			out = append(out, f)
		}
		return out, nil
	}

	out := make([]float64, rng.Steps)
	span := rng.Hi - rng.Lo
	for i := 0; i < rng.Steps; i++ {
		out[i] = rng.Lo + span*float64(i)/float64(rng.Steps-1)
	}
	return out, nil
}

func combineDomains(nodeIndex int, mode string, names []string, domains [][]float64) ([]map[string]float64, error) {
	if mode == "" {
		mode = "by_position"
	}

	switch mode {
	case "by_position":
		size := len(domains[0])
		for i, domain := range domains {
			if len(domain) != size {
				return nil, semerrors.NewSpecError(nodeIndex, "derive.parameter_sweep",
					fmt.Sprintf("by_position sweep requires equal domain sizes (variable %q)", names[i]), nil)
			}
		}
		tuples := make([]map[string]float64, size)
		for i := 0; i < size; i++ {
			tuple := make(map[string]float64, len(names))
			for j, name := range names {
				tuple[name] = domains[j][i]
			}
			tuples[i] = tuple
		}
		return tuples, nil

	case "combinatorial":
		tuples := []map[string]float64{{}}
		for j, name := range names {
			next := make([]map[string]float64, 0, len(tuples)*len(domains[j]))
			for _, tuple := range tuples {
				for _, v := range domains[j] {
					grown := make(map[string]float64, len(tuple)+1)
					for k, tv := range tuple {
						grown[k] = tv
					}
					grown[name] = v
					next = append(next, grown)
				}
			}
			tuples = next
		}
		return tuples, nil

	default:
		return nil, semerrors.NewSpecError(nodeIndex, "derive.parameter_sweep",
			fmt.Sprintf("unknown sweep mode %q", mode), nil)
	}
}

// targetExpression returns the parsed expression for the sweep target. When
// no expression is declared, a single-variable sweep passes the variable
// through unchanged.
func targetExpression(nodeIndex int, sweep *spec.SweepSpec, names []string) (ast.Expr, error) {
	src, ok := sweep.Expressions[sweep.Target]
	if !ok {
		if len(names) != 1 {
			return nil, semerrors.NewSpecError(nodeIndex, "derive.parameter_sweep",
				fmt.Sprintf("target %q needs an expression when sweeping %d variables", sweep.Target, len(names)), nil)
		}
		src = names[0]
	}

	expr, err := parser.ParseExpr(src)
	if err != nil {
		return nil, semerrors.NewSpecError(nodeIndex, "derive.parameter_sweep",
			fmt.Sprintf("invalid expression %q", src), err)
	}
	return expr, nil
}

func evalExpr(expr ast.Expr, vars map[string]float64) (float64, error) {
	switch e := expr.(type) {
	case *ast.BasicLit:
		switch e.Kind {
		case token.INT, token.FLOAT:
			return strconv.ParseFloat(e.Value, 64)
		default:
			return 0, fmt.Errorf("unsupported literal %s", e.Value)
		}
	case *ast.Ident:
		v, ok := vars[e.Name]
		if !ok {
			return 0, fmt.Errorf("unknown sweep variable %q", e.Name)
		}
		return v, nil
	case *ast.ParenExpr:
		return evalExpr(e.X, vars)
	case *ast.UnaryExpr:
		v, err := evalExpr(e.X, vars)
		if err != nil {
			return 0, err
		}
		switch e.Op {
		case token.SUB:
			return -v, nil
		case token.ADD:
			return v, nil
		default:
			return 0, fmt.Errorf("unsupported unary operator %s", e.Op)
		}
	case *ast.BinaryExpr:
		left, err := evalExpr(e.X, vars)
		if err != nil {
			return 0, err
		}
		right, err := evalExpr(e.Y, vars)
		if err != nil {
			return 0, err
		}
		switch e.Op {
		case token.ADD:
			return left + right, nil
		case token.SUB:
			return left - right, nil
		case token.MUL:
			return left * right, nil
		case token.QUO:
			if right == 0 {
				return 0, fmt.Errorf("division by zero")
			}
			return left / right, nil
		default:
			return 0, fmt.Errorf("unsupported operator %s", e.Op)
		}
	default:
		return 0, fmt.Errorf("unsupported expression node %T", expr)
	}
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint64:
		return float64(n), true
	default:
		return 0, false
	}
}
