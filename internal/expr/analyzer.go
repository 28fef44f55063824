package expr

import (
	"fmt"

	"github.com/stcorp/muninn/internal/apperrors"
	"github.com/stcorp/muninn/internal/schema"
	"github.com/stcorp/muninn/internal/values"
)

// ErrSemantic is the root of semantic-analysis failures: unknown
// identifiers, unbound parameters, and type mismatches that the parser
// cannot catch on its own.
var ErrSemantic apperrors.Error = apperrors.ErrExpression.Msg("expression semantic error")

// Analysis is the result of resolving a parsed expression against a
// schema registry and a set of caller-supplied parameter bindings.
type Analysis struct {
	Node Node
	// FreeParams lists parameter names referenced by the expression that
	// were not present in the bindings passed to Analyze, in first-seen
	// order.
	FreeParams []string
}

// Analyze walks node, resolving every FieldRef against reg (filling in the
// implicit "core" namespace and the field's values.Kind, and rejecting
// unknown namespaces/fields), substituting any parameter reference present
// in bindings with its literal value, and enforcing spec §4.4's type rules:
// is_defined's single argument must be a namespace or field reference,
// ~= is Text-only, order comparisons and in/not in exclude the kinds the
// spec names, arithmetic is restricted to numerics (Timestamp - Timestamp
// is the one exception, yielding Real seconds), and covers/intersects take
// either two Geometry or four Timestamp arguments. See typecheck.go.
//
// Parameters absent from bindings are left as Param nodes and reported in
// Analysis.FreeParams so a caller can re-analyze once it has gathered the
// missing values, or reject the expression outright; operands whose kind
// is not yet known because of a free parameter are left unchecked here.
func Analyze(node Node, reg *schema.Registry, bindings map[string]values.Value) (*Analysis, apperrors.Error) {
	a := &analyzer{reg: reg, bindings: bindings, seenParams: map[string]bool{}}
	resolved, err := a.walk(node)
	if err != nil {
		return nil, err
	}
	return &Analysis{Node: resolved, FreeParams: a.freeParams}, nil
}

type analyzer struct {
	reg        *schema.Registry
	bindings   map[string]values.Value
	freeParams []string
	seenParams map[string]bool
}

func (a *analyzer) walk(n Node) (Node, apperrors.Error) {
	switch node := n.(type) {
	case *Literal:
		return node, nil

	case *Param:
		if v, ok := a.bindings[node.Name]; ok {
			return &Literal{Value: v}, nil
		}
		if !a.seenParams[node.Name] {
			a.seenParams[node.Name] = true
			a.freeParams = append(a.freeParams, node.Name)
		}
		return node, nil

	case *FieldRef:
		ns, field, err := a.reg.ResolveField(node.Namespace, node.Field)
		if err != nil {
			return nil, ErrSemantic.Err(err)
		}
		return &FieldRef{Namespace: ns.Name, Field: field.Name, Kind: field.Type}, nil

	case *NamespaceRef:
		if _, ok := a.reg.Lookup(node.Namespace); !ok {
			return nil, ErrSemantic.Msg(fmt.Sprintf("unknown namespace %q", node.Namespace))
		}
		return node, nil

	case *Not:
		inner, err := a.walk(node.Expr)
		if err != nil {
			return nil, err
		}
		return &Not{Expr: inner}, nil

	case *Neg:
		inner, err := a.walk(node.Expr)
		if err != nil {
			return nil, err
		}
		return &Neg{Expr: inner}, nil

	case *ListLiteral:
		items := make([]Node, len(node.Items))
		for i, item := range node.Items {
			resolved, err := a.walk(item)
			if err != nil {
				return nil, err
			}
			items[i] = resolved
		}
		return &ListLiteral{Items: items}, nil

	case *Binary:
		left, err := a.walk(node.Left)
		if err != nil {
			return nil, err
		}
		right, err := a.walk(node.Right)
		if err != nil {
			return nil, err
		}
		if err := checkBinaryTypes(node.Op, left, right); err != nil {
			return nil, err
		}
		return &Binary{Op: node.Op, Left: left, Right: right}, nil

	case *FuncCall:
		return a.walkFuncCall(node)

	default:
		return nil, ErrSemantic.Msg(fmt.Sprintf("unhandled node type %T", n))
	}
}

func (a *analyzer) walkFuncCall(node *FuncCall) (Node, apperrors.Error) {
	switch node.Name {
	case "is_defined":
		// is_defined accepts either a bare namespace reference or a
		// qualified field reference; the parser cannot tell these apart
		// from a plain identifier, so reinterpret here.
		arg := node.Args[0]
		ref, ok := arg.(*FieldRef)
		if !ok {
			return nil, ErrSemantic.Msg("is_defined expects a namespace or field reference")
		}
		if ref.Namespace == "" {
			if _, ok := a.reg.Lookup(ref.Field); ok {
				resolved, err := a.walk(&NamespaceRef{Namespace: ref.Field})
				if err != nil {
					return nil, err
				}
				return &FuncCall{Name: node.Name, Args: []Node{resolved}}, nil
			}
		}
		resolved, err := a.walk(ref)
		if err != nil {
			return nil, err
		}
		return &FuncCall{Name: node.Name, Args: []Node{resolved}}, nil

	case "now":
		return node, nil

	default:
		args := make([]Node, len(node.Args))
		for i, arg := range node.Args {
			resolved, err := a.walk(arg)
			if err != nil {
				return nil, err
			}
			args[i] = resolved
		}
		if err := checkFuncCallArgTypes(node.Name, args); err != nil {
			return nil, err
		}
		return &FuncCall{Name: node.Name, Args: args}, nil
	}
}
