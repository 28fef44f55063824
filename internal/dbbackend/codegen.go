package dbbackend

import (
	"fmt"
	"strings"

	"github.com/stcorp/muninn/internal/apperrors"
	"github.com/stcorp/muninn/internal/expr"
	"github.com/stcorp/muninn/internal/values"
)

// ErrCodegen is the root of expression-to-SQL lowering failures (an
// operator or function the codegen layer does not know how to render).
var ErrCodegen apperrors.Error = apperrors.ErrBackend.Msg("cannot translate expression to SQL")

// Lowered is a parameterized SQL fragment ready to be embedded in a WHERE,
// HAVING, or ORDER BY clause alongside its positional arguments.
type Lowered struct {
	SQL  string
	Args []any
}

// lowerCtx threads the running argument list and dialect through the
// recursive lowering walk so placeholder numbering stays correct across
// the whole expression tree.
type lowerCtx struct {
	dialect Dialect
	args    []any
}

// Lower translates an analyzed expr.Node into a parenthesized SQL boolean
// expression plus its positional arguments, against the given Dialect.
// FieldRef namespaces other than "core" are rendered as "<namespace>.<field>"
// and assumed already joined into the query by the caller (see
// RequiredNamespaces).
func Lower(node expr.Node, dialect Dialect) (*Lowered, apperrors.Error) {
	ctx := &lowerCtx{dialect: dialect}
	sql, err := ctx.lower(node)
	if err != nil {
		return nil, err
	}
	return &Lowered{SQL: sql, Args: ctx.args}, nil
}

func (c *lowerCtx) bind(v any) string {
	c.args = append(c.args, v)
	return c.dialect.Placeholder(len(c.args))
}

func (c *lowerCtx) lower(node expr.Node) (string, apperrors.Error) {
	switch n := node.(type) {
	case *expr.Literal:
		return c.lowerLiteral(n.Value), nil

	case *expr.FieldRef:
		return columnRef(n), nil

	case *expr.Param:
		return "", ErrCodegen.Msg(fmt.Sprintf("unbound parameter @%s cannot be lowered to SQL", n.Name))

	case *expr.Not:
		inner, err := c.lower(n.Expr)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("(NOT %s)", inner), nil

	case *expr.Neg:
		inner, err := c.lower(n.Expr)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("(-%s)", inner), nil

	case *expr.ListLiteral:
		parts := make([]string, len(n.Items))
		for i, item := range n.Items {
			s, err := c.lower(item)
			if err != nil {
				return "", err
			}
			parts[i] = s
		}
		return "(" + strings.Join(parts, ", ") + ")", nil

	case *expr.Binary:
		return c.lowerBinary(n)

	case *expr.FuncCall:
		return c.lowerFuncCall(n)

	default:
		return "", ErrCodegen.Msg(fmt.Sprintf("unsupported node type %T", node))
	}
}

func columnRef(ref *expr.FieldRef) string {
	ns := ref.Namespace
	if ns == "" || ns == "core" {
		return "core." + ref.Field
	}
	return ns + "." + ref.Field
}

func (c *lowerCtx) lowerLiteral(v values.Value) string {
	if v.IsNull() {
		return "NULL"
	}
	switch v.Kind() {
	case values.KindGeometry:
		return c.dialect.GeomFromText(c.bind(values.FormatWKT(v.Geometry())))
	case values.KindTimestamp:
		return c.bind(values.FormatTimestamp(v.Timestamp()))
	case values.KindUUID:
		return c.bind(v.UUID().String())
	case values.KindBoolean:
		return c.bind(v.Boolean())
	case values.KindInteger32:
		return c.bind(v.Integer32())
	case values.KindLong64:
		return c.bind(v.Long64())
	case values.KindReal:
		return c.bind(v.Real())
	case values.KindJSON:
		return c.bind(v.JSONText())
	default:
		return c.bind(v.Text())
	}
}

var binaryOpSQL = map[expr.BinaryOp]string{
	expr.OpEq:  "=",
	expr.OpLt:  "<",
	expr.OpLte: "<=",
	expr.OpGt:  ">",
	expr.OpGte: ">=",
	expr.OpAdd: "+",
	expr.OpMul: "*",
	expr.OpDiv: "/",
}

func (c *lowerCtx) lowerBinary(n *expr.Binary) (string, apperrors.Error) {
	switch n.Op {
	case expr.OpAnd, expr.OpOr:
		left, err := c.lower(n.Left)
		if err != nil {
			return "", err
		}
		right, err := c.lower(n.Right)
		if err != nil {
			return "", err
		}
		kw := "AND"
		if n.Op == expr.OpOr {
			kw = "OR"
		}
		return fmt.Sprintf("(%s %s %s)", left, kw, right), nil

	case expr.OpMatch:
		left, err := c.lower(n.Left)
		if err != nil {
			return "", err
		}
		right, err := c.lower(n.Right)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("(%s LIKE %s)", left, right), nil

	case expr.OpIn, expr.OpNotIn:
		left, err := c.lower(n.Left)
		if err != nil {
			return "", err
		}
		right, err := c.lower(n.Right)
		if err != nil {
			return "", err
		}
		kw := "IN"
		if n.Op == expr.OpNotIn {
			kw = "NOT IN"
		}
		return fmt.Sprintf("(%s %s %s)", left, kw, right), nil

	// NULL coerces three-valued SQL logic to spec §4.4's two-valued "!="
	// rule: a NULL column must compare unequal to any bound value, where
	// plain "<>" would instead evaluate to NULL and drop the row.
	case expr.OpNeq:
		left, err := c.lower(n.Left)
		if err != nil {
			return "", err
		}
		right, err := c.lower(n.Right)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("(%s <> %s OR %s IS NULL)", left, right, left), nil

	// Timestamp - Timestamp yields Real seconds (spec §4.4); every other
	// "-" is ordinary numeric subtraction handled by binaryOpSQL below.
	case expr.OpSub:
		lk, lok := expr.ResultKind(n.Left)
		rk, rok := expr.ResultKind(n.Right)
		left, err := c.lower(n.Left)
		if err != nil {
			return "", err
		}
		right, err := c.lower(n.Right)
		if err != nil {
			return "", err
		}
		if lok && rok && lk == values.KindTimestamp && rk == values.KindTimestamp {
			return c.dialect.TimestampDiffSeconds(left, right), nil
		}
		return fmt.Sprintf("(%s - %s)", left, right), nil

	default:
		op, ok := binaryOpSQL[n.Op]
		if !ok {
			return "", ErrCodegen.Msg(fmt.Sprintf("unsupported binary operator %v", n.Op))
		}
		left, err := c.lower(n.Left)
		if err != nil {
			return "", err
		}
		right, err := c.lower(n.Right)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("(%s %s %s)", left, op, right), nil
	}
}

// intervalShape renders the closed-interval form of covers/intersects
// given the four already-lowered bounds (aStart, aStop, bStart, bStop).
type intervalShape func(aStart, aStop, bStart, bStop string) string

// intervalCovers is spec §4.4's closed-interval covers(ts,ts,ts,ts): the
// first interval [aStart, aStop] contains the second [bStart, bStop].
func intervalCovers(aStart, aStop, bStart, bStop string) string {
	return fmt.Sprintf("(%s <= %s AND %s >= %s)", aStart, bStart, aStop, bStop)
}

// intervalIntersects is spec §4.4's closed-interval intersects(ts,ts,ts,ts):
// the two intervals [aStart, aStop] and [bStart, bStop] overlap.
func intervalIntersects(aStart, aStop, bStart, bStop string) string {
	return fmt.Sprintf("(%s <= %s AND %s <= %s)", aStart, bStop, bStart, aStop)
}

func (c *lowerCtx) lowerIntervalPredicate(args []expr.Node, shape intervalShape) (string, apperrors.Error) {
	bounds := make([]string, 4)
	for i, arg := range args {
		s, err := c.lower(arg)
		if err != nil {
			return "", err
		}
		bounds[i] = s
	}
	return shape(bounds[0], bounds[1], bounds[2], bounds[3]), nil
}

func (c *lowerCtx) lowerFuncCall(n *expr.FuncCall) (string, apperrors.Error) {
	switch n.Name {
	case "is_defined":
		switch arg := n.Args[0].(type) {
		case *expr.NamespaceRef:
			return fmt.Sprintf("(%s.uuid IS NOT NULL)", arg.Namespace), nil
		case *expr.FieldRef:
			return fmt.Sprintf("(%s IS NOT NULL)", columnRef(arg)), nil
		default:
			return "", ErrCodegen.Msg("is_defined expects a namespace or field reference")
		}

	case "covers":
		if len(n.Args) == 4 {
			return c.lowerIntervalPredicate(n.Args, intervalCovers)
		}
		a, err := c.lower(n.Args[0])
		if err != nil {
			return "", err
		}
		b, err := c.lower(n.Args[1])
		if err != nil {
			return "", err
		}
		return c.dialect.Covers(a, b), nil

	case "intersects":
		if len(n.Args) == 4 {
			return c.lowerIntervalPredicate(n.Args, intervalIntersects)
		}
		a, err := c.lower(n.Args[0])
		if err != nil {
			return "", err
		}
		b, err := c.lower(n.Args[1])
		if err != nil {
			return "", err
		}
		return c.dialect.Intersects(a, b), nil

	case "distance":
		a, err := c.lower(n.Args[0])
		if err != nil {
			return "", err
		}
		b, err := c.lower(n.Args[1])
		if err != nil {
			return "", err
		}
		return c.dialect.Distance(a, b), nil

	case "is_source_of":
		target, err := c.lower(n.Args[0])
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("(EXISTS (SELECT 1 FROM link WHERE link.source_uuid = core.uuid AND link.uuid = %s))", target), nil

	case "is_derived_from":
		source, err := c.lower(n.Args[0])
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("(EXISTS (SELECT 1 FROM link WHERE link.uuid = core.uuid AND link.source_uuid = %s))", source), nil

	case "has_tag":
		tag, err := c.lower(n.Args[0])
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("(EXISTS (SELECT 1 FROM tag WHERE tag.uuid = core.uuid AND tag.tag = %s))", tag), nil

	case "now":
		return c.dialect.Now(), nil

	default:
		return "", ErrCodegen.Msg(fmt.Sprintf("unknown function %q", n.Name))
	}
}

// RequiredNamespaces walks node and returns the set of non-core namespaces
// it references, so a caller can join the corresponding namespace tables
// before the lowered WHERE clause is valid SQL.
func RequiredNamespaces(node expr.Node) []string {
	seen := map[string]bool{}
	var walk func(expr.Node)
	walk = func(n expr.Node) {
		switch v := n.(type) {
		case *expr.FieldRef:
			if v.Namespace != "" && v.Namespace != "core" {
				seen[v.Namespace] = true
			}
		case *expr.NamespaceRef:
			if v.Namespace != "core" {
				seen[v.Namespace] = true
			}
		case *expr.Not:
			walk(v.Expr)
		case *expr.Neg:
			walk(v.Expr)
		case *expr.ListLiteral:
			for _, item := range v.Items {
				walk(item)
			}
		case *expr.Binary:
			walk(v.Left)
			walk(v.Right)
		case *expr.FuncCall:
			for _, arg := range v.Args {
				walk(arg)
			}
		}
	}
	walk(node)
	out := make([]string, 0, len(seen))
	for ns := range seen {
		out = append(out, ns)
	}
	return out
}
