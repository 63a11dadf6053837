package workflow

import (
	"go.mongodb.org/mongo-driver/bson"

	"github.com/bsonflow/wfc/expr"
	"github.com/bsonflow/wfc/js"
)

// OpFn is a pipeline-stage constructor: args -> Workflow -> Workflow, the
// curried shape of §6.1's API table. Every OpFn below wraps its node in
// coalesce exactly once.

type OpFn func(src Op) Op

// PureOp builds a coalesced source wrapping a literal document.
func PureOp(v bson.M) Op { return &Pure{Value: v} }

// ReadOp builds a coalesced source reading a collection.
func ReadOp(collection string) Op { return &Read{Collection: collection} }

func MatchStage(sel expr.Selector) OpFn {
	return func(src Op) Op { return coalesce(&Match{SrcOp: src, Sel: sel}) }
}

func ProjectStage(shape *expr.Reshape, id IdHandling) OpFn {
	return func(src Op) Op { return coalesce(&Project{SrcOp: src, Shape: shape, Id: id}) }
}

func RedactStage(e expr.Expr) OpFn {
	return func(src Op) Op { return coalesce(&Redact{SrcOp: src, Expr: e}) }
}

func LimitStage(n int64) OpFn {
	return func(src Op) Op { return coalesce(&Limit{SrcOp: src, N: n}) }
}

func SkipStage(n int64) OpFn {
	return func(src Op) Op { return coalesce(&Skip{SrcOp: src, N: n}) }
}

func UnwindStage(field expr.DocVar) OpFn {
	return func(src Op) Op { return coalesce(&Unwind{SrcOp: src, Field: field}) }
}

func GroupStage(g *expr.Grouped, by expr.Expr) OpFn {
	return func(src Op) Op { return coalesce(&Group{SrcOp: src, Grouped: g, By: by}) }
}

func SortStage(keys ...SortKey) OpFn {
	return func(src Op) Op { return coalesce(&Sort{SrcOp: src, Keys: keys}) }
}

func OutStage(collection string) OpFn {
	return func(src Op) Op { return coalesce(&Out{SrcOp: src, Collection: collection}) }
}

func GeoNearStage(spec GeoNearSpec) OpFn {
	return func(src Op) Op { return coalesce(&GeoNear{SrcOp: src, Spec: spec}) }
}

func MapStage(fn js.Expr) OpFn {
	return func(src Op) Op { return coalesce(&Map{SrcOp: src, Fn: fn}) }
}

func FlatMapStage(fn js.Expr) OpFn {
	return func(src Op) Op { return coalesce(&FlatMap{SrcOp: src, Fn: fn}) }
}

func ReduceStage(fn js.Expr) OpFn {
	return func(src Op) Op { return coalesce(&Reduce{SrcOp: src, Fn: fn}) }
}

// FoldLeftOp builds a fan-in fold over a nonempty tail.
func FoldLeftOp(first, second Op, rest ...Op) Op {
	tail := append([]Op{second}, rest...)
	return coalesce(&FoldLeft{Head: first, Tail: tail})
}

// JoinOp builds a parallel join over a set of sources.
func JoinOp(srcs ...Op) Op {
	return &Join{Srcs: srcs}
}

// Seq composes stage constructors left to right over src, the Go shape of
// §6.1's chain(src, op, ops*).
func Seq(src Op, op OpFn, ops ...OpFn) Op {
	result := op(src)
	for _, o := range ops {
		result = o(result)
	}
	return result
}
