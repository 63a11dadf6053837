package workflow

import "github.com/bsonflow/wfc/expr"

// Rewrite applies f to every field-valued subterm of op — inside
// expressions, selectors, reshapes, grouped values, sort keys and the
// node's own field references — and returns a new node of the same
// variant. f is the identity on paths it doesn't care about. It is an
// error if rewriting a Group's Grouped map would change a GroupOp's shape
// (expr.RewriteGroupOp refuses silently-broken rewrites).
func Rewrite(op Op, f func(expr.DocVar) expr.DocVar) (Op, error) {
	switch o := op.(type) {
	case *Pure, *Read:
		return op, nil
	case *Match:
		return &Match{SrcOp: o.SrcOp, Sel: o.Sel.MapUpFields(f)}, nil
	case *Limit:
		return &Limit{SrcOp: o.SrcOp, N: o.N}, nil
	case *Skip:
		return &Skip{SrcOp: o.SrcOp, N: o.N}, nil
	case *Sort:
		keys := make([]SortKey, len(o.Keys))
		for i, k := range o.Keys {
			rewritten := f(expr.NewDocVar(k.Field))
			keys[i] = SortKey{Field: rewritten.Field, Desc: k.Desc}
		}
		return &Sort{SrcOp: o.SrcOp, Keys: keys}, nil
	case *Out:
		return &Out{SrcOp: o.SrcOp, Collection: o.Collection}, nil
	case *Project:
		return &Project{SrcOp: o.SrcOp, Shape: o.Shape.SetAll(func(_ expr.BsonField, e expr.Expr) expr.Expr {
			return e.MapUp(f)
		}), Id: o.Id}, nil
	case *Redact:
		return &Redact{SrcOp: o.SrcOp, Expr: o.Expr.MapUp(f)}, nil
	case *Unwind:
		return &Unwind{SrcOp: o.SrcOp, Field: f(o.Field)}, nil
	case *Group:
		rewritten, err := o.Grouped.MapUpFields(f)
		if err != nil {
			return nil, err
		}
		return &Group{SrcOp: o.SrcOp, Grouped: rewritten, By: o.By.MapUp(f)}, nil
	case *GeoNear:
		spec := o.Spec
		spec.DistanceField = f(expr.NewDocVar(o.Spec.DistanceField)).Field
		return &GeoNear{SrcOp: o.SrcOp, Spec: spec}, nil
	case *Map:
		return &Map{SrcOp: o.SrcOp, Fn: o.Fn}, nil
	case *FlatMap:
		return &FlatMap{SrcOp: o.SrcOp, Fn: o.Fn}, nil
	case *Reduce:
		return &Reduce{SrcOp: o.SrcOp, Fn: o.Fn}, nil
	case *FoldLeft:
		return o, nil
	case *Join:
		return o, nil
	default:
		return op, nil
	}
}

// refs collects the multiset of DocVars appearing in op's own
// field-valued subterms (not its children's). It is built on top of
// Rewrite using a mutable accumulation buffer for internal use only;
// callers observe only the returned slice, per spec §5's concurrency
// notes on the mutable ref-collection helper.
func refs(op Op) []expr.DocVar {
	var buf []expr.DocVar
	record := func(d expr.DocVar) expr.DocVar {
		buf = append(buf, d)
		return d
	}
	_, _ = Rewrite(op, record)
	return buf
}
