package expr

import (
	"fmt"

	"github.com/stcorp/muninn/internal/apperrors"
	"github.com/stcorp/muninn/internal/values"
)

// checkBinaryTypes enforces spec §4.4's "Type rules" against a binary
// expression's already-resolved operands: == != on every kind but
// Geometry, order comparisons on every kind but Boolean/UUID/Geometry/JSON
// (values.Kind.Orderable also rejects JSON), ~=
// restricted to Text, in/not in restricted to listable scalar kinds, and
// arithmetic restricted to numerics (with Timestamp - Timestamp as the one
// cross-kind exception, yielding Real).
//
// Operands whose kind cannot yet be determined — an unbound parameter, most
// often — are left unchecked here; the check is re-run once the caller
// supplies bindings and re-analyzes.
func checkBinaryTypes(op BinaryOp, left, right Node) apperrors.Error {
	switch op {
	case OpAnd, OpOr:
		return nil

	case OpEq, OpNeq:
		lk, lok := ResultKind(left)
		rk, rok := ResultKind(right)
		if !lok || !rok {
			return nil
		}
		if !sameComparableKind(lk, rk) {
			return ErrSemantic.Msg(fmt.Sprintf("cannot compare %s to %s", lk, rk))
		}
		if !lk.Equatable() || !rk.Equatable() {
			return ErrSemantic.Msg(fmt.Sprintf("%s does not support == or !=", lk))
		}
		return nil

	case OpMatch:
		lk, lok := ResultKind(left)
		rk, rok := ResultKind(right)
		if lok && lk != values.KindText {
			return ErrSemantic.Msg(fmt.Sprintf("~= requires Text operands, got %s", lk))
		}
		if rok && rk != values.KindText {
			return ErrSemantic.Msg(fmt.Sprintf("~= requires Text operands, got %s", rk))
		}
		return nil

	case OpLt, OpLte, OpGt, OpGte:
		lk, lok := ResultKind(left)
		rk, rok := ResultKind(right)
		if !lok || !rok {
			return nil
		}
		if !sameComparableKind(lk, rk) {
			return ErrSemantic.Msg(fmt.Sprintf("cannot order-compare %s to %s", lk, rk))
		}
		if !lk.Orderable() || !rk.Orderable() {
			return ErrSemantic.Msg(fmt.Sprintf("%s does not support order comparisons", lk))
		}
		return nil

	case OpIn, OpNotIn:
		lk, lok := ResultKind(left)
		if !lok {
			return nil
		}
		if !lk.Listable() {
			return ErrSemantic.Msg(fmt.Sprintf("%s cannot appear in an in/not in list", lk))
		}
		list, ok := right.(*ListLiteral)
		if !ok {
			return ErrSemantic.Msg("in/not in requires a bracketed list literal")
		}
		for _, item := range list.Items {
			ik, iok := ResultKind(item)
			if iok && !sameComparableKind(ik, lk) {
				return ErrSemantic.Msg(fmt.Sprintf("list element of kind %s does not match %s", ik, lk))
			}
		}
		return nil

	case OpAdd, OpMul, OpDiv:
		lk, lok := ResultKind(left)
		rk, rok := ResultKind(right)
		if !lok || !rok {
			return nil
		}
		if !isNumeric(lk) || !isNumeric(rk) {
			return ErrSemantic.Msg(fmt.Sprintf("arithmetic requires numeric operands, got %s and %s", lk, rk))
		}
		return nil

	case OpSub:
		lk, lok := ResultKind(left)
		rk, rok := ResultKind(right)
		if !lok || !rok {
			return nil
		}
		if lk == values.KindTimestamp && rk == values.KindTimestamp {
			return nil
		}
		if !isNumeric(lk) || !isNumeric(rk) {
			return ErrSemantic.Msg(fmt.Sprintf("- requires two numerics or two Timestamps, got %s and %s", lk, rk))
		}
		return nil

	default:
		return nil
	}
}

// sameComparableKind reports whether lk and rk may appear on either side of
// ==, !=, an order comparison, or an in-list membership test: the three
// numeric kinds compare freely with each other (SQL promotes them), every
// other kind must match exactly.
func sameComparableKind(lk, rk values.Kind) bool {
	if isNumeric(lk) && isNumeric(rk) {
		return true
	}
	return lk == rk
}

func isNumeric(k values.Kind) bool {
	switch k {
	case values.KindInteger32, values.KindLong64, values.KindReal:
		return true
	default:
		return false
	}
}

// checkFuncCallArgTypes enforces the per-function argument kinds spec §4.4
// names beyond bare arity: covers/intersects take either two Geometry
// arguments or four Timestamp arguments (a closed-interval form), distance
// takes two Geometry arguments.
func checkFuncCallArgTypes(name string, args []Node) apperrors.Error {
	switch name {
	case "covers", "intersects":
		switch len(args) {
		case 2:
			return requireKinds(args, values.KindGeometry)
		case 4:
			return requireKinds(args, values.KindTimestamp)
		}
		return nil

	case "distance":
		return requireKinds(args, values.KindGeometry)

	default:
		return nil
	}
}

func requireKinds(args []Node, want values.Kind) apperrors.Error {
	for _, arg := range args {
		k, ok := ResultKind(arg)
		if !ok {
			continue
		}
		if k != want {
			return ErrSemantic.Msg(fmt.Sprintf("expected %s argument, got %s", want, k))
		}
	}
	return nil
}
