package workflow

import (
	"fmt"

	"github.com/bsonflow/wfc/expr"
	"github.com/bsonflow/wfc/js"
	"gopkg.in/src-d/go-errors.v1"
)

// ErrNoMapReduceSource is a defensive guard for a branch that should be
// unreachable given a finalized input (every JS operator's child is
// already Read/Pure/another JS op/FoldLeft after finalize).
var ErrNoMapReduceSource = errors.NewKind("crush: JS operator has no valid map-reduce source for %T")

// Crush is the paramorphism lowering a (finalized) Workflow to a Task. It
// returns the base DocVar telling the caller where the logical document
// root now lives in the produced task's output, alongside the task
// itself.
func Crush(op Op) (expr.DocVar, Task, error) {
	logDebug("crush %T", op)
	switch o := op.(type) {
	case *Pure:
		return expr.ROOT, &PureTask{Value: o.Value}, nil
	case *Read:
		return expr.ROOT, &ReadTask{Collection: o.Collection}, nil
	case *Match:
		return crushMatch(o)
	case Pipelineable:
		return crushPipelineable(o)
	case *Map:
		return crushJS(o, o.SrcOp, o.Fn, false)
	case *FlatMap:
		return crushJS(o, o.SrcOp, o.Fn, false)
	case *Reduce:
		return crushJS(o, o.SrcOp, o.Fn, true)
	case *FoldLeft:
		return crushFoldLeft(o)
	case *Join:
		return crushJoin(o)
	default:
		return expr.DocVar{}, nil, ErrNoMapReduceSource.New(op)
	}
}

func crushMatch(m *Match) (expr.DocVar, Task, error) {
	if m.Sel.Pipelineable() {
		return crushPipelineable(m)
	}
	base, childTask, err := Crush(m.SrcOp)
	if err != nil {
		return expr.DocVar{}, nil, err
	}
	spec := MapReduceSpec{
		Map:       projectionMap(base),
		Reduce:    NopReduce,
		Selection: m.Sel.MapUpFields(rebaseFn(base)),
	}
	return expr.ROOT, &MapReduceTask{Upstream: childTask, Spec: spec}, nil
}

// crushPipelineable handles every shape-preserving/shape-changing node:
// it extends the accumulated pipeline when the crushed child is itself a
// PipelineTask rooted at ROOT, otherwise it starts a fresh PipelineTask
// over whatever task the child crushed to.
func crushPipelineable(op Pipelineable) (expr.DocVar, Task, error) {
	childBase, childTask, err := Crush(op.Src())
	if err != nil {
		return expr.DocVar{}, nil, err
	}
	stage := op.Reparent(nil)
	if pt, ok := childTask.(*PipelineTask); ok && childBase.IsRoot() {
		ops := append(append([]Pipelineable{}, pt.Ops...), stage)
		return expr.ROOT, &PipelineTask{Upstream: pt.Upstream, Ops: ops}, nil
	}
	return expr.ROOT, &PipelineTask{Upstream: childTask, Ops: []Pipelineable{stage}}, nil
}

// crushJS handles Map/FlatMap/Reduce. isReduce distinguishes Reduce (which
// absorbs into a task's reduce slot) from Map/FlatMap (which absorb into
// the finalizer slot or else become the map function of a fresh task).
func crushJS(self Op, src Op, fn js.Expr, isReduce bool) (expr.DocVar, Task, error) {
	childBase, childTask, err := Crush(src)
	if err != nil {
		return expr.DocVar{}, nil, err
	}

	if mr, ok := childTask.(*MapReduceTask); ok {
		next := *mr
		if isReduce && isNop(mr.Spec.Reduce) {
			next.Spec.Reduce = fn
			return expr.ROOT, &next, nil
		}
		if !isReduce && mr.Spec.Finalizer == nil {
			next.Spec.Finalizer = fn
			return expr.ROOT, &next, nil
		}
	}

	if pt, ok := childTask.(*PipelineTask); ok {
		sel, sort, limit, rest := absorbPipelinePrefix(pt.Ops)
		if len(rest) == 0 {
			spec := MapReduceSpec{
				Map:       combineMapFn(childBase, fn, isReduce),
				Reduce:    NopReduce,
				Selection: sel,
				InputSort: sort,
				Limit:     limit,
			}
			if isReduce {
				spec.Map = projectionMap(childBase)
				spec.Reduce = fn
			}
			return expr.ROOT, &MapReduceTask{Upstream: pt.Upstream, Spec: spec}, nil
		}
	}

	spec := MapReduceSpec{Map: combineMapFn(childBase, fn, isReduce), Reduce: NopReduce}
	if isReduce {
		spec.Map = projectionMap(childBase)
		spec.Reduce = fn
	}
	return expr.ROOT, &MapReduceTask{Upstream: childTask, Spec: spec}, nil
}

func combineMapFn(base expr.DocVar, fn js.Expr, isReduce bool) js.Expr {
	if isReduce {
		return projectionMap(base)
	}
	if base.IsRoot() {
		return fn
	}
	return js.Compose(fn, projectionMap(base))
}

// absorbPipelinePrefix recognizes a [Match?, Sort?, Limit?] prefix (in
// that order) and returns it as map-reduce options, plus whatever stages
// remain after the prefix (non-empty means the prefix didn't consume the
// whole pipeline, so it cannot be absorbed).
func absorbPipelinePrefix(ops []Pipelineable) (expr.Selector, []SortKey, *int64, []Pipelineable) {
	var sel expr.Selector
	var sort []SortKey
	var limit *int64
	i := 0
	if i < len(ops) {
		if m, ok := ops[i].(*Match); ok {
			sel = m.Sel
			i++
		}
	}
	if i < len(ops) {
		if s, ok := ops[i].(*Sort); ok {
			sort = s.Keys
			i++
		}
	}
	if i < len(ops) {
		if l, ok := ops[i].(*Limit); ok {
			n := l.N
			limit = &n
			i++
		}
	}
	return sel, sort, limit, ops[i:]
}

func crushFoldLeft(f *FoldLeft) (expr.DocVar, Task, error) {
	headBase, headTask, err := Crush(f.Head)
	if err != nil {
		return expr.DocVar{}, nil, err
	}
	_ = headBase
	tail := make([]*MapReduceTask, 0, len(f.Tail))
	for _, t := range f.Tail {
		_, tt, err := Crush(t)
		if err != nil {
			return expr.DocVar{}, nil, err
		}
		mr, ok := tt.(*MapReduceTask)
		if !ok {
			return expr.DocVar{}, nil, ErrFoldLeftTailNotReduced.New(t)
		}
		mr.Spec.Out = OutActionReduce
		tail = append(tail, mr)
	}
	return expr.ROOT, &FoldLeftTask{Head: headTask, Tail: tail}, nil
}

func crushJoin(j *Join) (expr.DocVar, Task, error) {
	srcs := make([]Task, len(j.Srcs))
	for i, s := range j.Srcs {
		_, t, err := Crush(s)
		if err != nil {
			return expr.DocVar{}, nil, err
		}
		srcs[i] = t
	}
	return expr.ROOT, &JoinTask{Srcs: srcs}, nil
}

func isNop(fn js.Expr) bool {
	r, ok := fn.(js.Raw)
	return ok && r == NopReduce.(js.Raw)
}

// projectionMap builds the map function that re-roots a document at base
// before emitting it, or the identity emit when base is already ROOT.
func projectionMap(base expr.DocVar) js.Expr {
	if base.IsRoot() {
		return IdentityMap
	}
	return js.Raw(fmt.Sprintf("function() { emit(this._id, this.%s); }", base.Field.Dotted()))
}

func rebaseFn(base expr.DocVar) func(expr.DocVar) expr.DocVar {
	return func(d expr.DocVar) expr.DocVar { return base.Under(d.Field) }
}
