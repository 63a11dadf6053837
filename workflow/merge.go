package workflow

import (
	"reflect"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/mitchellh/hashstructure"

	"github.com/bsonflow/wfc/expr"
)

// Merge combines two workflow trees into one, returning a pair of rebase
// paths: baseL is where left's former root now lives under merged's root,
// and symmetrically for baseR.
//
// The rule table below is tried top to bottom; whenever a rule is defined
// only one way around, delegate runs merge(right, left) and swaps the
// returned bases — the symmetry device spec §4.4 calls out as pervasive
// enough to deserve a single helper.
func Merge(left, right Op) (expr.DocVar, expr.DocVar, Op, error) {
	logDebug("merge %T / %T", left, right)

	// 1. Identity.
	if opEqual(left, right) {
		return expr.ROOT, expr.ROOT, left, nil
	}

	// 2 & 3. Pure literals.
	if lp, ok := left.(*Pure); ok {
		if rp, ok := right.(*Pure); ok {
			merged := &Pure{Value: bson.M{expr.LeftVar: lp.Value, expr.RightVar: rp.Value}}
			return expr.NewDocVar(expr.LeftField), expr.NewDocVar(expr.RightField), merged, nil
		}
		return mergeOnePure(lp, right)
	}
	if _, ok := right.(*Pure); ok {
		return delegate(left, right)
	}

	// 4. GeoNear vs pipeline.
	if lg, ok := left.(*GeoNear); ok {
		if rp, ok := right.(Pipelineable); ok {
			return mergeGeoNearPipeline(lg, rp)
		}
	}
	if _, ok := right.(*GeoNear); ok {
		if _, ok := left.(Pipelineable); ok {
			return delegate(left, right)
		}
	}

	// 5. Project sharing the other side.
	if lp, ok := left.(*Project); ok && opEqual(lp.SrcOp, right) {
		return mergeProjectSharing(lp, right)
	}
	if rp, ok := right.(*Project); ok && opEqual(rp.SrcOp, left) {
		return delegate(left, right)
	}

	// 8. Unwind vs Group.
	if lu, ok := left.(*Unwind); ok {
		if rg, ok := right.(*Group); ok {
			return mergeUnwindGroup(lu, rg)
		}
	}
	if _, ok := right.(*Unwind); ok {
		if _, ok := left.(*Group); ok {
			return delegate(left, right)
		}
	}

	// 9 & 10. Group vs Group / Group vs arbitrary pipeline.
	if lg, ok := left.(*Group); ok {
		if rg, ok := right.(*Group); ok && sameBy(lg.By, rg.By) {
			return mergeTwoGroupsSameBy(lg, rg)
		}
		if rp, ok := right.(Pipelineable); ok {
			return mergeGroupVsPipeline(lg, rp)
		}
	}
	if _, ok := right.(*Group); ok {
		if _, ok := left.(Pipelineable); ok {
			return delegate(left, right)
		}
	}

	// 11. Two Projects.
	if lp, ok := left.(*Project); ok {
		if rp, ok := right.(*Project); ok {
			return mergeTwoProjects(lp, rp)
		}
	}

	// 13. Two Redacts.
	if lr, ok := left.(*Redact); ok {
		if rr, ok := right.(*Redact); ok {
			return mergeTwoRedacts(lr, rr)
		}
	}

	// 14. Two Unwinds.
	if lu, ok := left.(*Unwind); ok {
		if ru, ok := right.(*Unwind); ok {
			return mergeTwoUnwinds(lu, ru)
		}
	}

	// 15. Unwind vs Redact.
	if lu, ok := left.(*Unwind); ok {
		if r, ok := right.(*Redact); ok {
			return mergeUnwindRedact(lu, r)
		}
	}
	if _, ok := right.(*Unwind); ok {
		if _, ok := left.(*Redact); ok {
			return delegate(left, right)
		}
	}

	// 16. Read vs Map (also FlatMap/Reduce, generalizing spec's Map to
	// "any single-source JS op reading directly from the same Read").
	if lr, ok := left.(*Read); ok {
		if rm, ok := right.(SingleSource); ok && opEqual(rm.Src(), lr) {
			return mergeReadVsJS(lr, rm)
		}
	}
	if _, ok := right.(*Read); ok {
		if lm, ok := left.(SingleSource); ok && opEqual(lm.Src(), right) {
			return delegate(left, right)
		}
	}

	// 17. Map vs Project (generalized to any JS op vs Project).
	if lm, ok := left.(SingleSource); ok {
		if rp, ok := right.(*Project); ok {
			return mergeJSVsProject(lm, rp)
		}
	}
	if _, ok := right.(SingleSource); ok {
		if _, ok := left.(*Project); ok {
			return delegate(left, right)
		}
	}

	// 12. Project vs pipeline (generic recursion; Project vs a bare source
	// terminates via rule 1/2/19 at the bottom of the recursion, which is
	// what spec calls "Project vs source: same wrapping as rule 5 with the
	// source as the new root").
	if lp, ok := left.(*Project); ok {
		return mergeProjectVsPipeline(lp, right)
	}
	if _, ok := right.(*Project); ok {
		return delegate(left, right)
	}

	// 6. Shape-preserving vs pipeline.
	if IsShapePreserving(left) {
		if rp, ok := right.(Pipelineable); ok {
			return mergeDescendRight(left.(Pipelineable), rp)
		}
	}
	if IsShapePreserving(right) {
		if _, ok := left.(Pipelineable); ok {
			return delegate(left, right)
		}
	}

	// 18. Generic pipeline vs pipeline.
	if lp, ok := left.(Pipelineable); ok {
		if rp, ok := right.(Pipelineable); ok {
			return mergeDescendRight(lp, rp)
		}
	}

	// 19. Fallback: FoldLeft with both roots renamed side by side.
	return mergeFallback(left, right)
}

func delegate(left, right Op) (expr.DocVar, expr.DocVar, Op, error) {
	br, bl, m, err := Merge(right, left)
	return bl, br, m, err
}

// opEqual is the identity check behind merge rule 1. A hash mismatch is a
// cheap, certain rejection; reflect.DeepEqual remains the authority
// whenever the hashes agree (or hashing itself can't run), since
// hashstructure's reflection over unexported fields is not precise enough
// to use as the sole equality source.
func opEqual(a, b Op) bool {
	if ha, err := hashstructure.Hash(a, nil); err == nil {
		if hb, err := hashstructure.Hash(b, nil); err == nil && ha != hb {
			return false
		}
	}
	return reflect.DeepEqual(a, b)
}

func sameBy(a, b expr.Expr) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Render() == b.Render()
}

// rewriteAt applies the reference rewriter to op using base as the prefix
// for every field reference op previously resolved against its own root,
// and reports op's new base for the caller: ROOT if op resets the
// document (Group/Project), else base unchanged.
func rewriteAt(op Op, base expr.DocVar) (Op, expr.DocVar, error) {
	f := func(d expr.DocVar) expr.DocVar {
		if d.IsRoot() {
			return base
		}
		return base.Under(d.Field)
	}
	newOp, err := Rewrite(op, f)
	if err != nil {
		return nil, expr.DocVar{}, err
	}
	switch newOp.(type) {
	case *Group, *Project:
		return newOp, expr.ROOT, nil
	default:
		return newOp, base, nil
	}
}

// mergeDescendRight recurses on (left, right.Src()), rewrites right's own
// field references against the resulting right-hand base, and reparents
// right on top of the merged source. This single shape backs rules 4, 6
// and 18, and the non-splicing case of rule 10.
func mergeDescendRight(left Op, right Pipelineable) (expr.DocVar, expr.DocVar, Op, error) {
	bl, br, m, err := Merge(left, right.Src())
	if err != nil {
		return expr.DocVar{}, expr.DocVar{}, nil, err
	}
	rewrittenRight, newBr, err := rewriteAt(right, br)
	if err != nil {
		return expr.DocVar{}, expr.DocVar{}, nil, err
	}
	reparented := rewrittenRight.(Pipelineable).Reparent(m)
	return bl, newBr, reparented, nil
}

// mergeOnePure implements rule 3: project the non-pure side under rIght
// and inject the literal under lEft.
func mergeOnePure(lit *Pure, other Op) (expr.DocVar, expr.DocVar, Op, error) {
	shape := expr.NewReshape().
		Set(expr.LeftField, expr.NewLiteral(lit.Value)).
		Set(expr.RightField, expr.NewFieldRef(expr.ROOT))
	merged := &Project{SrcOp: other, Shape: shape, Id: IncludeId}
	return expr.NewDocVar(expr.LeftField), expr.NewDocVar(expr.RightField), merged, nil
}

// mergeProjectSharing implements rule 5/7: a Project whose own source is
// (structurally) the other operand wraps into {lEft: <shape>, rIght: ROOT}
// over that shared source.
func mergeProjectSharing(p *Project, shared Op) (expr.DocVar, expr.DocVar, Op, error) {
	shape := expr.NewReshape()
	for _, k := range p.Shape.GetAll() {
		v, _ := p.Shape.Get(k)
		shape = shape.Set(expr.LeftField.Under(k), v)
	}
	shape = shape.Set(expr.RightField, expr.NewFieldRef(expr.ROOT))
	merged := &Project{SrcOp: shared, Shape: shape, Id: Combine(p.Id, IncludeId)}
	return expr.NewDocVar(expr.LeftField), expr.NewDocVar(expr.RightField), merged, nil
}

// mergeUnwindGroup implements rule 8: merge the sources, then Unwind on
// top so the group is not duplicated.
func mergeUnwindGroup(u *Unwind, g *Group) (expr.DocVar, expr.DocVar, Op, error) {
	bl, br, m, err := Merge(u.SrcOp, g)
	if err != nil {
		return expr.DocVar{}, expr.DocVar{}, nil, err
	}
	rewrittenField := bl.Under(u.Field.Field)
	merged := &Unwind{SrcOp: m, Field: rewrittenField}
	return bl, br, merged, nil
}

// mergeUnwindRedact implements rule 15: merge the sources, then Unwind on
// top so the redact is not duplicated. Same template as mergeUnwindGroup.
func mergeUnwindRedact(u *Unwind, r *Redact) (expr.DocVar, expr.DocVar, Op, error) {
	bl, br, m, err := Merge(u.SrcOp, r)
	if err != nil {
		return expr.DocVar{}, expr.DocVar{}, nil, err
	}
	rewrittenField := bl.Under(u.Field.Field)
	merged := &Unwind{SrcOp: m, Field: rewrittenField}
	return bl, br, merged, nil
}

// mergeTwoGroupsSameBy implements rule 9: fresh temp names for every
// grouped value on both sides, one merged Group, then a trailing Project
// relocating the temps under lEft/rIght. This is the only merge rule that
// introduces a trailing project.
func mergeTwoGroupsSameBy(l, r *Group) (expr.DocVar, expr.DocVar, Op, error) {
	bl, br, m, err := Merge(l.SrcOp, r.SrcOp)
	if err != nil {
		return expr.DocVar{}, expr.DocVar{}, nil, err
	}
	lRewritten, err := l.Grouped.MapUpFields(rebaseFn(bl))
	if err != nil {
		return expr.DocVar{}, expr.DocVar{}, nil, err
	}
	rRewritten, err := r.Grouped.MapUpFields(rebaseFn(br))
	if err != nil {
		return expr.DocVar{}, expr.DocVar{}, nil, err
	}

	existing := map[string]struct{}{}
	for _, k := range append(l.Grouped.GetAll(), r.Grouped.GetAll()...) {
		existing[k.Dotted()] = struct{}{}
	}

	merged := expr.NewGrouped()
	project := expr.NewReshape()
	lKeys := lRewritten.GetAll()
	lTemps := expr.GenUniqNames(len(lKeys), existing)
	for i, k := range lKeys {
		v, _ := lRewritten.Get(k)
		merged = merged.Set(lTemps[i], v)
		project = project.Set(expr.LeftField.Under(k), expr.NewFieldRef(expr.NewDocVar(lTemps[i])))
	}
	rKeys := rRewritten.GetAll()
	rTemps := expr.GenUniqNames(len(rKeys), existing)
	for i, k := range rKeys {
		v, _ := rRewritten.Get(k)
		merged = merged.Set(rTemps[i], v)
		project = project.Set(expr.RightField.Under(k), expr.NewFieldRef(expr.NewDocVar(rTemps[i])))
	}

	groupNode := &Group{SrcOp: m, Grouped: merged, By: l.By.MapUp(rebaseFn(bl))}
	projected := &Project{SrcOp: groupNode, Shape: project, Id: IncludeId}
	return expr.NewDocVar(expr.LeftField), expr.NewDocVar(expr.RightField), projected, nil
}

// mergeGroupVsPipeline implements rule 10: push the right-hand value under
// a fresh unique field on the left group's map via $push, then Unwind it.
// The splice only fires when other reads directly from this same Group,
// so the fresh name only has to avoid the group's own accumulator keys;
// any other pairing falls back to the generic recursive merge.
func mergeGroupVsPipeline(g *Group, other Pipelineable) (expr.DocVar, expr.DocVar, Op, error) {
	if opEqual(other.Src(), g) {
		existing := map[string]struct{}{}
		for _, k := range g.Grouped.GetAll() {
			existing[k.Dotted()] = struct{}{}
		}
		u := expr.GenUniqNames(1, existing)[0]

		pushed := g.Grouped.Set(u, expr.Push(expr.NewFieldRef(expr.ROOT)))
		groupNode := &Group{SrcOp: g.SrcOp, Grouped: pushed, By: g.By}
		rewrittenOther, _, err := rewriteAt(other, expr.NewDocVar(u))
		if err != nil {
			return expr.DocVar{}, expr.DocVar{}, nil, err
		}
		unwound := &Unwind{SrcOp: groupNode, Field: expr.NewDocVar(u)}
		reparented := rewrittenOther.(Pipelineable).Reparent(unwound)
		return expr.ROOT, expr.NewDocVar(u), reparented, nil
	}
	return mergeDescendRight(g, other)
}

// mergeTwoProjects implements rule 11.
func mergeTwoProjects(l, r *Project) (expr.DocVar, expr.DocVar, Op, error) {
	bl, br, m, err := Merge(l.SrcOp, r.SrcOp)
	if err != nil {
		return expr.DocVar{}, expr.DocVar{}, nil, err
	}
	lShape := l.Shape.SetAll(func(_ expr.BsonField, e expr.Expr) expr.Expr { return e.MapUp(rebaseFn(bl)) })
	rShape := r.Shape.SetAll(func(_ expr.BsonField, e expr.Expr) expr.Expr { return e.MapUp(rebaseFn(br)) })

	if combined, ok := lShape.Merge(rShape); ok {
		merged := &Project{SrcOp: m, Shape: combined, Id: Combine(l.Id, r.Id)}
		return expr.ROOT, expr.ROOT, merged, nil
	}

	shape := expr.NewReshape()
	for _, k := range lShape.GetAll() {
		v, _ := lShape.Get(k)
		shape = shape.Set(expr.LeftField.Under(k), v)
	}
	for _, k := range rShape.GetAll() {
		v, _ := rShape.Get(k)
		shape = shape.Set(expr.RightField.Under(k), v)
	}
	merged := &Project{SrcOp: m, Shape: shape, Id: Combine(l.Id, r.Id)}
	return expr.NewDocVar(expr.LeftField), expr.NewDocVar(expr.RightField), merged, nil
}

// mergeGeoNearPipeline implements rule 4: GeoNear composes by recursing
// on (left, right.Src()).
func mergeGeoNearPipeline(g *GeoNear, other Pipelineable) (expr.DocVar, expr.DocVar, Op, error) {
	return mergeDescendRight(g, other)
}

// mergeTwoRedacts implements rule 13: merge sources, emit both redacts in
// order (right's redact ends up outermost, matching left-before-right
// build order).
func mergeTwoRedacts(l, r *Redact) (expr.DocVar, expr.DocVar, Op, error) {
	bl, br, m, err := Merge(l.SrcOp, r.SrcOp)
	if err != nil {
		return expr.DocVar{}, expr.DocVar{}, nil, err
	}
	first := &Redact{SrcOp: m, Expr: l.Expr.MapUp(rebaseFn(bl))}
	second := &Redact{SrcOp: first, Expr: r.Expr.MapUp(rebaseFn(br))}
	return bl, br, second, nil
}

// mergeTwoUnwinds implements rule 14: one Unwind if both target the same
// field after rewriting, else both in sequence.
func mergeTwoUnwinds(l, r *Unwind) (expr.DocVar, expr.DocVar, Op, error) {
	bl, br, m, err := Merge(l.SrcOp, r.SrcOp)
	if err != nil {
		return expr.DocVar{}, expr.DocVar{}, nil, err
	}
	lField := bl.Under(l.Field.Field)
	rField := br.Under(r.Field.Field)
	if lField.Equal(rField) {
		return bl, br, &Unwind{SrcOp: m, Field: lField}, nil
	}
	first := &Unwind{SrcOp: m, Field: lField}
	second := &Unwind{SrcOp: first, Field: rField}
	return bl, br, second, nil
}

// mergeReadVsJS implements rule 16: build a FoldLeft over two subpipelines
// on the common read. The left arm renames the root to lEft; the right
// arm runs the JS op directly over the Read, then renames to rIght. No
// field is projected ahead of the JS op: it sees whole documents.
// The Read is the only subtree shared across a merge (spec §3.5).
func mergeReadVsJS(r *Read, jsOp SingleSource) (expr.DocVar, expr.DocVar, Op, error) {
	leftArm := &Project{
		SrcOp: r,
		Shape: expr.NewReshape().Set(expr.LeftField, expr.NewFieldRef(expr.ROOT)),
		Id:    IncludeId,
	}
	rightInner := jsOp.WithSrc(r)
	rightArm := &Project{
		SrcOp: rightInner,
		Shape: expr.NewReshape().Set(expr.RightField, expr.NewFieldRef(expr.ROOT)),
		Id:    IncludeId,
	}
	folded := &FoldLeft{Head: leftArm, Tail: []Op{rightArm}}
	return expr.NewDocVar(expr.LeftField), expr.NewDocVar(expr.RightField), folded, nil
}

// mergeJSVsProject implements rule 17: merge, then emit a project
// {lEft: ROOT, rIght: shape}.
func mergeJSVsProject(jsOp SingleSource, p *Project) (expr.DocVar, expr.DocVar, Op, error) {
	bl, br, m, err := Merge(jsOp, p.SrcOp)
	if err != nil {
		return expr.DocVar{}, expr.DocVar{}, nil, err
	}
	shape := expr.NewReshape().Set(expr.LeftField, expr.NewFieldRef(bl))
	for _, k := range p.Shape.GetAll() {
		v, _ := p.Shape.Get(k)
		shape = shape.Set(expr.RightField.Under(k), v.MapUp(rebaseFn(br)))
	}
	merged := &Project{SrcOp: m, Shape: shape, Id: IncludeId}
	return expr.NewDocVar(expr.LeftField), expr.NewDocVar(expr.RightField), merged, nil
}

// mergeProjectVsPipeline implements rules 7/12: merge sources, project the
// left shape under lEft and the root under rIght.
func mergeProjectVsPipeline(p *Project, other Op) (expr.DocVar, expr.DocVar, Op, error) {
	bl, br, m, err := Merge(p.SrcOp, other)
	if err != nil {
		return expr.DocVar{}, expr.DocVar{}, nil, err
	}
	shape := expr.NewReshape()
	for _, k := range p.Shape.GetAll() {
		v, _ := p.Shape.Get(k)
		shape = shape.Set(expr.LeftField.Under(k), v.MapUp(rebaseFn(bl)))
	}
	shape = shape.Set(expr.RightField, expr.NewFieldRef(br))
	merged := &Project{SrcOp: m, Shape: shape, Id: Combine(p.Id, IncludeId)}
	return expr.NewDocVar(expr.LeftField), expr.NewDocVar(expr.RightField), merged, nil
}

// mergeFallback implements rule 19: a FoldLeft whose arms each rename
// their root to lEft/rIght.
func mergeFallback(left, right Op) (expr.DocVar, expr.DocVar, Op, error) {
	leftArm := &Project{
		SrcOp: left,
		Shape: expr.NewReshape().Set(expr.LeftField, expr.NewFieldRef(expr.ROOT)),
		Id:    IncludeId,
	}
	rightArm := &Project{
		SrcOp: right,
		Shape: expr.NewReshape().Set(expr.RightField, expr.NewFieldRef(expr.ROOT)),
		Id:    IncludeId,
	}
	folded := &FoldLeft{Head: leftArm, Tail: []Op{rightArm}}
	return expr.NewDocVar(expr.LeftField), expr.NewDocVar(expr.RightField), folded, nil
}
