package expr

import (
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"gopkg.in/src-d/go-errors.v1"
)

// ErrRewriteBrokeShape is raised when a field-path rewrite would turn a
// GroupOp into a plain Expr, which the reference rewriter must refuse.
var ErrRewriteBrokeShape = errors.NewKind("rewrite of %T changed grouped value shape")

// Expr is the expression sublanguage used inside Project, Redact, Group
// and sort-key positions. It exposes exactly the bottom-up-rewrite hook
// the reference rewriter needs.
type Expr interface {
	// MapUp applies f to every embedded DocVar, bottom-up.
	MapUp(f func(DocVar) DocVar) Expr
	BSON() interface{}
	Render() string
}

// GroupOp is the subset of Expr usable as a Grouped value (an aggregation
// accumulator). A rewrite of a GroupOp must produce another GroupOp.
type GroupOp interface {
	Expr
	groupOp()
}

// FieldRef is a leaf Expr referencing a field of the current document.
type FieldRef struct{ Var DocVar }

func NewFieldRef(d DocVar) *FieldRef { return &FieldRef{Var: d} }

func (f *FieldRef) MapUp(fn func(DocVar) DocVar) Expr { return &FieldRef{Var: fn(f.Var)} }
func (f *FieldRef) BSON() interface{}                 { return f.Var.BSON() }
func (f *FieldRef) Render() string                    { return f.Var.String() }

// Literal is a leaf Expr holding a constant value.
type Literal struct{ Value interface{} }

func NewLiteral(v interface{}) *Literal { return &Literal{Value: v} }

func (l *Literal) MapUp(func(DocVar) DocVar) Expr { return l }
func (l *Literal) BSON() interface{}              { return l.Value }
func (l *Literal) Render() string                 { return fmt.Sprintf("%v", l.Value) }

// BinOp is a binary arithmetic/comparison/string expression, e.g. $add.
type BinOp struct {
	Op          string
	Left, Right Expr
}

func NewBinOp(op string, l, r Expr) *BinOp { return &BinOp{Op: op, Left: l, Right: r} }

func (b *BinOp) MapUp(fn func(DocVar) DocVar) Expr {
	return &BinOp{Op: b.Op, Left: b.Left.MapUp(fn), Right: b.Right.MapUp(fn)}
}
func (b *BinOp) BSON() interface{} {
	return bson.M{"$" + b.Op: bson.A{b.Left.BSON(), b.Right.BSON()}}
}
func (b *BinOp) Render() string { return fmt.Sprintf("(%s %s %s)", b.Left.Render(), b.Op, b.Right.Render()) }

// groupOpExpr is the common accumulator shape: a single argument Expr under a
// named operator ($sum, $avg, $push, $addToSet, $first, $last, $max, $min).
type groupOpExpr struct {
	Op  string
	Arg Expr
}

func newGroupOp(op string, arg Expr) *groupOpExpr { return &groupOpExpr{Op: op, Arg: arg} }

func (g *groupOpExpr) groupOp() {}
func (g *groupOpExpr) MapUp(fn func(DocVar) DocVar) Expr {
	return &groupOpExpr{Op: g.Op, Arg: g.Arg.MapUp(fn)}
}
func (g *groupOpExpr) BSON() interface{} { return bson.M{"$" + g.Op: g.Arg.BSON()} }
func (g *groupOpExpr) Render() string    { return fmt.Sprintf("$%s(%s)", g.Op, g.Arg.Render()) }

func Sum(arg Expr) GroupOp      { return newGroupOp("sum", arg) }
func Avg(arg Expr) GroupOp      { return newGroupOp("avg", arg) }
func Push(arg Expr) GroupOp     { return newGroupOp("push", arg) }
func AddToSet(arg Expr) GroupOp { return newGroupOp("addToSet", arg) }
func First(arg Expr) GroupOp    { return newGroupOp("first", arg) }
func Last(arg Expr) GroupOp     { return newGroupOp("last", arg) }
func Max(arg Expr) GroupOp      { return newGroupOp("max", arg) }
func Min(arg Expr) GroupOp      { return newGroupOp("min", arg) }

// RewriteGroupOp applies a DocVar rewrite to a GroupOp and checks the
// result is still a GroupOp, refusing a silently-broken rewrite per the
// reference rewriter's guarantee.
func RewriteGroupOp(g GroupOp, f func(DocVar) DocVar) (GroupOp, error) {
	rewritten := g.MapUp(f)
	out, ok := rewritten.(GroupOp)
	if !ok {
		return nil, ErrRewriteBrokeShape.New(g)
	}
	return out, nil
}
