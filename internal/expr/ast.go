package expr

import "github.com/stcorp/muninn/internal/values"

// Node is any expression AST node. The analyzer walks a Node tree produced
// by the parser and annotates it with resolved types; the dbbackend package
// walks the analyzed tree to lower it to a dialect's native query form.
type Node interface {
	exprNode()
}

// BinaryOp is one of the comparison, logical, or arithmetic infix
// operators.
type BinaryOp int

const (
	OpOr BinaryOp = iota
	OpAnd
	OpEq
	OpNeq
	OpLt
	OpLte
	OpGt
	OpGte
	OpMatch
	OpIn
	OpNotIn
	OpAdd
	OpSub
	OpMul
	OpDiv
)

// Binary is a two-operand expression, e.g. "a.b > 3" or "x in [1,2,3]".
type Binary struct {
	Op    BinaryOp
	Left  Node
	Right Node
}

// Not is the logical negation of Expr ("not <expr>").
type Not struct {
	Expr Node
}

// Neg is arithmetic unary minus ("-<expr>").
type Neg struct {
	Expr Node
}

// Literal is a constant value already parsed into its typed form.
type Literal struct {
	Value values.Value
}

// ListLiteral is a bracketed list of expressions, used as the right-hand
// side of "in"/"not in" and as function-call array arguments.
type ListLiteral struct {
	Items []Node
}

// FieldRef is a property reference, "namespace.field" or bare "field"
// (which defaults to the core namespace per resolution rules). Parsed as
// given; the analyzer fills in Namespace and Kind when it resolves the
// reference against a schema.Registry.
type FieldRef struct {
	Namespace string
	Field     string
	Kind      values.Kind
}

// NamespaceRef is a bare namespace reference, valid only as the sole
// argument to is_defined(ns). The parser yields a FieldRef for every bare
// identifier; the analyzer replaces is_defined's argument with a
// NamespaceRef when it names a registered namespace.
type NamespaceRef struct {
	Namespace string
}

// Param is a caller-bound parameter reference, "@name".
type Param struct {
	Name string
}

// FuncCall is a call to one of the built-in expression functions
// (is_defined, covers, intersects, distance, is_source_of, is_derived_from,
// has_tag, now).
type FuncCall struct {
	Name string
	Args []Node
}

func (*Binary) exprNode()       {}
func (*Not) exprNode()          {}
func (*Neg) exprNode()          {}
func (*Literal) exprNode()      {}
func (*ListLiteral) exprNode()  {}
func (*FieldRef) exprNode()     {}
func (*NamespaceRef) exprNode() {}
func (*Param) exprNode()        {}
func (*FuncCall) exprNode()     {}

// KnownFunctions enumerates the built-in function names the parser and
// analyzer accept, per spec §4.4, along with the arities each accepts.
// covers/intersects are overloaded: two Geometry arguments for spatial
// containment/overlap, or four Timestamp arguments (start1, stop1, start2,
// stop2) for the closed-interval temporal form.
var KnownFunctions = map[string][]int{
	"is_defined":      {1},
	"covers":          {2, 4},
	"intersects":      {2, 4},
	"distance":        {2},
	"is_source_of":    {1},
	"is_derived_from": {1},
	"has_tag":         {1},
	"now":             {0},
}
