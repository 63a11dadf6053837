package workflow

import (
	"github.com/bsonflow/wfc/expr"
	"github.com/bsonflow/wfc/js"
)

// coalesce is called exactly once by every smart constructor, on the node
// it just built. It fuses only the one layer it just built (parent, and
// parent's immediate child) and never walks further down the tree, relying
// on induction: children were themselves built through smart constructors
// and are already coalesced. The two swap rules (Match below Sort, Limit
// below Skip) coalesce the node they push down once more, against its new
// child.
func coalesce(parent Op) Op {
	logDebug("coalesce %T", parent)
	switch parent.(type) {
	case *Map, *FlatMap:
		return coalesceNoSrc(parent)
	}
	p, ok := parent.(interface{ Src() Op })
	if !ok {
		return coalesceNoSrc(parent)
	}
	child := p.Src()

	switch par := parent.(type) {
	case *Match:
		switch ch := child.(type) {
		case *Sort:
			inner := coalesce(&Match{SrcOp: ch.SrcOp, Sel: par.Sel})
			return &Sort{SrcOp: inner, Keys: ch.Keys}
		case *Match:
			return &Match{SrcOp: ch.SrcOp, Sel: ch.Sel.And(par.Sel)}
		}
	case *Project:
		switch ch := child.(type) {
		case *Project:
			if merged, id, ok := inlineProject(par, ch); ok {
				return &Project{SrcOp: ch.SrcOp, Shape: merged, Id: id}
			}
		case *Group:
			if par.Id != ExcludeId {
				if g2, ok := inlineProjectGroup(par, ch); ok {
					return g2
				}
			}
		case *Unwind:
			if g, ok := ch.SrcOp.(*Group); ok {
				if u2, ok := inlineProjectUnwindGroup(par, ch, g); ok {
					return u2
				}
			}
		}
	case *Limit:
		switch ch := child.(type) {
		case *Limit:
			n := par.N
			if ch.N < n {
				n = ch.N
			}
			return &Limit{SrcOp: ch.SrcOp, N: n}
		case *Skip:
			return &Skip{SrcOp: coalesce(&Limit{SrcOp: ch.SrcOp, N: ch.N + par.N}), N: ch.N}
		}
	case *Skip:
		if ch, ok := child.(*Skip); ok {
			return &Skip{SrcOp: ch.SrcOp, N: ch.N + par.N}
		}
	case *Group:
		if ch, ok := child.(*Project); ok {
			if g2, ok := inlineGroupProjects(par, ch); ok {
				return g2
			}
		}
	case *Out:
		if ch, ok := child.(*Read); ok && ch.Collection == par.Collection {
			return ch
		}
	case *GeoNear:
		// TODO: parameter merge with a preceding GeoNear is unspecified
		// upstream; preserve the no-op until it is.
	}
	return parent
}

// coalesceNoSrc handles the JS fusion rules (Map and FlatMap, routed here
// by coalesce) and the variants without a single Src() (FoldLeft and
// Join).
func coalesceNoSrc(parent Op) Op {
	switch par := parent.(type) {
	case *Map:
		switch ch := par.SrcOp.(type) {
		case *Map:
			return &Map{SrcOp: ch.SrcOp, Fn: js.Compose(par.Fn, ch.Fn)}
		case *FlatMap:
			return &FlatMap{SrcOp: ch.SrcOp, Fn: mapCompose(par.Fn, ch.Fn)}
		}
	case *FlatMap:
		switch ch := par.SrcOp.(type) {
		case *Map:
			return &FlatMap{SrcOp: ch.SrcOp, Fn: js.Compose(par.Fn, ch.Fn)}
		case *FlatMap:
			return &FlatMap{SrcOp: ch.SrcOp, Fn: kleisliCompose(par.Fn, ch.Fn)}
		}
	case *FoldLeft:
		if h, ok := par.Head.(*FoldLeft); ok {
			tail := append(append([]Op{}, h.Tail...), par.Tail...)
			return &FoldLeft{Head: h.Head, Tail: tail}
		}
	}
	return parent
}

// mapCompose and kleisliCompose both lower to the scripting sublanguage's
// one constructor helper; the distinct names document intent (value-map
// after flat-map vs. flat-map after flat-map) even though both compile to
// the same opaque composition, since the embedded scripting AST's actual
// flattening semantics are out of this compiler's scope.
func mapCompose(g, f js.Expr) js.Expr     { return js.Compose(g, f) }
func kleisliCompose(g, f js.Expr) js.Expr { return js.Compose(g, f) }

// inlineProject attempts to fuse an outer Project fed by an inner Project:
// substitute each of the outer shape's field references that name a field
// the inner shape defines with the inner's field reference for that field.
// It fails (ok=false) if the outer shape references a field the inner
// shape does not define, or one the inner shape defines as anything other
// than a plain field reference. References to the document root are left
// as they are.
func inlineProject(outer *Project, inner *Project) (*expr.Reshape, IdHandling, bool) {
	ok := true
	merged := outer.Shape.SetAll(func(_ expr.BsonField, e expr.Expr) expr.Expr {
		return e.MapUp(func(d expr.DocVar) expr.DocVar {
			if d.IsRoot() || len(d.Field) == 0 {
				return d
			}
			head := expr.Field(d.Field[0])
			if inner.Shape != nil {
				v, found := inner.Shape.Get(head)
				fr, isRef := v.(*expr.FieldRef)
				if !found || !isRef {
					ok = false
					return d
				}
				return fr.Var.Under(d.Field[1:])
			}
			return d
		})
	})
	if !ok {
		return nil, 0, false
	}
	return merged, Chain(inner.Id, outer.Id), true
}

// inlineProjectGroup attempts to inline a Project that is a pure rename
// (every value a bare field reference) feeding a Group, folding the rename
// into the Group's grouping key and grouped accumulators.
func inlineProjectGroup(p *Project, g *Group) (Op, bool) {
	rename, ok := pureRename(p.Shape)
	if !ok {
		return nil, false
	}
	f := func(d expr.DocVar) expr.DocVar {
		if d.IsRoot() || len(d.Field) == 0 {
			return d
		}
		if to, found := rename[d.Field[0]]; found {
			return expr.NewDocVar(to.Under(d.Field[1:]))
		}
		return d
	}
	rewrittenGrouped, err := g.Grouped.MapUpFields(f)
	if err != nil {
		return nil, false
	}
	return &Group{SrcOp: g.SrcOp, Grouped: rewrittenGrouped, By: g.By.MapUp(f)}, true
}

// inlineProjectUnwindGroup is the Unwind(Group(...)) analogue of
// inlineProjectGroup.
func inlineProjectUnwindGroup(p *Project, u *Unwind, g *Group) (Op, bool) {
	g2, ok := inlineProjectGroup(p, g)
	if !ok {
		return nil, false
	}
	return &Unwind{SrcOp: g2, Field: u.Field}, true
}

// inlineGroupProjects is the generalized Group-over-Project case used
// regardless of IdHandling (Group discards _id semantics of its own
// accord, so the ExcludeId restriction that guards inlineProjectGroup
// does not apply here).
func inlineGroupProjects(g *Group, p *Project) (Op, bool) {
	g2, ok := inlineProjectGroup(p, g)
	if !ok {
		return nil, false
	}
	return g2.(*Group).Reparent(p.SrcOp), true
}

// pureRename reports whether every value in shape is a bare FieldRef, and
// if so returns the field -> field rename map.
func pureRename(shape *expr.Reshape) (map[string]expr.BsonField, bool) {
	out := make(map[string]expr.BsonField)
	for _, k := range shape.GetAll() {
		v, _ := shape.Get(k)
		fr, ok := v.(*expr.FieldRef)
		if !ok || fr.Var.IsRoot() {
			return nil, false
		}
		out[k.Dotted()] = fr.Var.Field
	}
	return out, true
}
