package derive

import (
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"sort"

	"github.com/semantiva/semantiva-go/internal/identity"
	"github.com/semantiva/semantiva-go/internal/spec"
	semerrors "github.com/semantiva/semantiva-go/pkg/errors"
)

// Signature is the sanitized description of a sweep. It captures the shape
// of the computation (masked expression ASTs, domain summaries, mode,
// broadcast flag, collection type) without any literal parameter values, so
// it can feed the node's semantic ID while leaving node_uuid alone.
type Signature struct {
	Shapes     map[string]string        `json:"shapes"`
	Variables  map[string]DomainSummary `json:"variables"`
	Mode       string                   `json:"mode"`
	Broadcast  bool                     `json:"broadcast"`
	Collection string                   `json:"collection"`
}

// DomainSummary describes one variable's domain without enumerating it.
type DomainSummary struct {
	Kind string `json:"kind"` // "values" or "range"
	Size int    `json:"size"`
	Lo   string `json:"lo,omitempty"`
	Hi   string `json:"hi,omitempty"`
}

// BuildSignature produces the sanitized signature for a sweep. names is the
// sorted variable list the caller already computed.
func BuildSignature(sweep *spec.SweepSpec, names []string) (Signature, error) {
	sig := Signature{
		Shapes:     make(map[string]string),
		Variables:  make(map[string]DomainSummary, len(names)),
		Mode:       sweep.Mode,
		Broadcast:  sweep.Broadcast,
		Collection: sweep.Collection,
	}
	if sig.Mode == "" {
		sig.Mode = "by_position"
	}
	if sig.Collection == "" {
		sig.Collection = "float_list"
	}

	for _, name := range names {
		rng := sweep.Variables[name]
		if rng.IsExplicit() {
			sig.Variables[name] = DomainSummary{Kind: "values", Size: len(rng.Values)}
			continue
		}
		sig.Variables[name] = DomainSummary{
			Kind: "range",
			Size: rng.Steps,
			Lo:   identity.CanonicalFloat(rng.Lo),
			Hi:   identity.CanonicalFloat(rng.Hi),
		}
	}

	targets := make([]string, 0, len(sweep.Expressions))
	for target := range sweep.Expressions {
		targets = append(targets, target)
	}
	sort.Strings(targets)
	for _, target := range targets {
		expr, err := parser.ParseExpr(sweep.Expressions[target])
		if err != nil {
			return Signature{}, semerrors.NewSpecFieldError("derive.parameter_sweep",
				fmt.Sprintf("invalid expression for %q", target), err)
		}
		sig.Shapes[target] = maskExpr(expr)
	}
	if _, ok := sig.Shapes[sweep.Target]; !ok && len(names) == 1 {
		sig.Shapes[sweep.Target] = names[0]
	}

	return sig, nil
}

// Canonical returns the signature as a plain value suitable for hashing.
func (s Signature) Canonical() map[string]any {
	variables := make(map[string]any, len(s.Variables))
	for name, d := range s.Variables {
		entry := map[string]any{"kind": d.Kind, "size": d.Size}
		if d.Kind == "range" {
			entry["lo"] = d.Lo
			entry["hi"] = d.Hi
		}
		variables[name] = entry
	}
	shapes := make(map[string]any, len(s.Shapes))
	for target, shape := range s.Shapes {
		shapes[target] = shape
	}
	return map[string]any{
		"shapes":     shapes,
		"variables":  variables,
		"mode":       s.Mode,
		"broadcast":  s.Broadcast,
		"collection": s.Collection,
	}
}

// maskExpr renders the AST shape of an expression: variables keep their
// names, literals collapse to "#", structure stays explicit.
func maskExpr(expr ast.Expr) string {
	switch e := expr.(type) {
	case *ast.BasicLit:
		return "#"
	case *ast.Ident:
		return e.Name
	case *ast.ParenExpr:
		return maskExpr(e.X)
	case *ast.UnaryExpr:
		if e.Op == token.SUB {
			return "(-" + maskExpr(e.X) + ")"
		}
		return maskExpr(e.X)
	case *ast.BinaryExpr:
		return "(" + maskExpr(e.X) + e.Op.String() + maskExpr(e.Y) + ")"
	default:
		return "?"
	}
}
