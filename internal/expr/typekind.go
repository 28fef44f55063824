package expr

import "github.com/stcorp/muninn/internal/values"

// ResultKind reports the values.Kind an analyzed node evaluates to, when
// statically knowable. It returns false for nodes whose type cannot be
// determined without further information: an unbound Param (no binding was
// supplied to Analyze), a NamespaceRef (not itself a value), or a
// ListLiteral (no single scalar kind).
//
// Callers must only call ResultKind on a node returned by Analyze — it
// relies on FieldRef.Kind having been filled in by the semantic analyzer.
func ResultKind(n Node) (values.Kind, bool) {
	switch node := n.(type) {
	case *Literal:
		return node.Value.Kind(), true

	case *FieldRef:
		return node.Kind, true

	case *Param:
		return 0, false

	case *NamespaceRef:
		return 0, false

	case *ListLiteral:
		return 0, false

	case *Not:
		return values.KindBoolean, true

	case *Neg:
		return ResultKind(node.Expr)

	case *Binary:
		switch node.Op {
		case OpAnd, OpOr, OpEq, OpNeq, OpLt, OpLte, OpGt, OpGte, OpMatch, OpIn, OpNotIn:
			return values.KindBoolean, true
		case OpSub:
			lk, lok := ResultKind(node.Left)
			rk, rok := ResultKind(node.Right)
			if lok && rok && lk == values.KindTimestamp && rk == values.KindTimestamp {
				return values.KindReal, true
			}
			return lk, lok
		case OpAdd, OpMul, OpDiv:
			return ResultKind(node.Left)
		default:
			return 0, false
		}

	case *FuncCall:
		switch node.Name {
		case "is_defined", "covers", "intersects", "is_source_of", "is_derived_from", "has_tag":
			return values.KindBoolean, true
		case "distance":
			return values.KindReal, true
		case "now":
			return values.KindTimestamp, true
		default:
			return 0, false
		}

	default:
		return 0, false
	}
}
