package workflow

import (
	"fmt"

	"github.com/bsonflow/wfc/expr"
	"github.com/bsonflow/wfc/js"
)

// FoldLeftReducer is the opaque reducer finalize installs on every
// non-Reduce FoldLeft tail arm: a shallow right-biased object merge of the
// values sharing a key.
var FoldLeftReducer js.Expr = js.Raw(
	"function(key, values) { var out = {}; for (var i = 0; i < values.length; i++) { for (var k in values[i]) out[k] = values[i][k]; } return out; }")

// Finalize is the bottom-up pass ensuring every JS operator is fed
// directly by another JS operator, a Read/Pure, or a FoldLeft — never by a
// Project or Unwind.
func Finalize(op Op) (Op, error) {
	logDebug("finalize %T", op)
	switch o := op.(type) {
	case *Pure, *Read:
		return op, nil
	case *Map:
		return finalizeJS(o.SrcOp, o.Fn, func(fn js.Expr, src Op) Op { return &Map{SrcOp: src, Fn: fn} })
	case *FlatMap:
		return finalizeJS(o.SrcOp, o.Fn, func(fn js.Expr, src Op) Op { return &FlatMap{SrcOp: src, Fn: fn} })
	case *Reduce:
		return finalizeJS(o.SrcOp, o.Fn, func(fn js.Expr, src Op) Op { return &Reduce{SrcOp: src, Fn: fn} })
	case *FoldLeft:
		return finalizeFoldLeft(o)
	case *Join:
		srcs := make([]Op, len(o.Srcs))
		for i, s := range o.Srcs {
			f, err := Finalize(s)
			if err != nil {
				return nil, err
			}
			srcs[i] = f
		}
		return &Join{Srcs: srcs}, nil
	default:
		return Traverse(op, Finalize)
	}
}

// finalizeJS implements the three analogous Map/FlatMap/Reduce rules: a
// Project child is absorbed into a leading Map(mapMap) when its shape has
// a JS translation (else the Project is left in place, and finalize has
// failed to normalize that branch — a case only reachable if finish/crush
// later route around it by falling back to a fresh map-reduce); an Unwind
// child always turns the outer operator into a FlatMap stacked over a
// generated unwind FlatMap.
func finalizeJS(src Op, fn js.Expr, wrap func(js.Expr, Op) Op) (Op, error) {
	finalizedSrc, err := Finalize(src)
	if err != nil {
		return nil, err
	}
	switch s := finalizedSrc.(type) {
	case *Project:
		if x, ok := s.Shape.ToJS("doc"); ok {
			inner := &Map{SrcOp: s.SrcOp, Fn: mapMapFn(x)}
			return wrap(fn, inner), nil
		}
		return wrap(fn, finalizedSrc), nil
	case *Unwind:
		inner := &FlatMap{SrcOp: s.SrcOp, Fn: flatMapOpFor(s.Field)}
		return &FlatMap{SrcOp: inner, Fn: fn}, nil
	default:
		return wrap(fn, finalizedSrc), nil
	}
}

func finalizeFoldLeft(f *FoldLeft) (Op, error) {
	head, err := Finalize(f.Head)
	if err != nil {
		return nil, err
	}
	headShape := expr.NewReshape().Set(expr.Field(ExprVar), expr.NewFieldRef(expr.ROOT))
	headProjected := &Project{SrcOp: head, Shape: headShape, Id: IncludeId}

	tail := make([]Op, len(f.Tail))
	for i, t := range f.Tail {
		ft, err := Finalize(t)
		if err != nil {
			return nil, err
		}
		if _, ok := ft.(*Reduce); !ok {
			ft = &Reduce{SrcOp: ft, Fn: FoldLeftReducer}
		}
		tail[i] = ft
	}
	return &FoldLeft{Head: headProjected, Tail: tail}, nil
}

// mapMapFn builds the map-reduce map function that applies a reshape's JS
// translation to the current document and emits the result under the
// conventional value key.
func mapMapFn(x js.Expr) js.Expr {
	return js.Raw(fmt.Sprintf("function() { var doc = this; emit(this._id, (%s)(doc)); }", x.Render()))
}

// flatMapOpFor is field.flatmapOp from the spec: a flat-map that emits one
// value per element of the array at field.
func flatMapOpFor(field expr.DocVar) js.Expr {
	return js.Raw(fmt.Sprintf(
		"function() { var arr = this.%s || []; for (var i = 0; i < arr.length; i++) emit(this._id, arr[i]); }",
		field.Field.Dotted()))
}
