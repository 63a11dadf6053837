package workflow

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/bsonflow/wfc/expr"
	"github.com/bsonflow/wfc/js"
)

func TestCrushReadYieldsAReadTask(t *testing.T) {
	require := require.New(t)

	base, task, err := Crush(ReadOp("orders"))
	require.NoError(err)
	require.True(base.IsRoot())

	rt, ok := task.(*ReadTask)
	require.True(ok)
	require.Equal("orders", rt.Collection)
}

func TestCrushPipelineableChainYieldsOnePipelineTask(t *testing.T) {
	require := require.New(t)

	op := Seq(ReadOp("orders"),
		MatchStage(expr.Eq(expr.NewDocVar(expr.Field("status")), "open")),
		LimitStage(5))

	_, task, err := Crush(op)
	require.NoError(err)

	pt, ok := task.(*PipelineTask)
	require.True(ok)
	require.Len(pt.Ops, 2)
	require.IsType(&Match{}, pt.Ops[0])
	require.IsType(&Limit{}, pt.Ops[1])
	require.IsType(&ReadTask{}, pt.Upstream)
}

func TestCrushNonPipelineableMatchYieldsMapReduceTask(t *testing.T) {
	require := require.New(t)

	op := Seq(ReadOp("orders"), MatchStage(expr.Where("this.total > this.limit")))

	_, task, err := Crush(op)
	require.NoError(err)

	mr, ok := task.(*MapReduceTask)
	require.True(ok)
	require.IsType(&ReadTask{}, mr.Upstream)
	require.Equal(NopReduce, mr.Spec.Reduce)
}

func TestCrushAbsorbsMatchSortLimitPrefixIntoMapReduceOptions(t *testing.T) {
	require := require.New(t)

	op := Seq(ReadOp("orders"),
		MatchStage(expr.Eq(expr.NewDocVar(expr.Field("status")), "open")),
		SortStage(SortKey{Field: expr.Field("total")}),
		LimitStage(5),
		MapStage(js.Raw("function() { emit(this._id, this.total); }")))

	_, task, err := Crush(op)
	require.NoError(err)

	mr, ok := task.(*MapReduceTask)
	require.True(ok)
	require.IsType(&ReadTask{}, mr.Upstream)
	require.NotNil(mr.Spec.Selection)
	require.Len(mr.Spec.InputSort, 1)
	require.NotNil(mr.Spec.Limit)
	require.Equal(int64(5), *mr.Spec.Limit)
}

func TestCrushFoldLeftTailsMustHaveReduced(t *testing.T) {
	require := require.New(t)

	head := ReadOp("orders")
	tail := Seq(ReadOp("orders"), ReduceStage(js.Raw("function(k,v){ return v[0]; }")))

	op := FoldLeftOp(head, tail)
	_, task, err := Crush(op)
	require.NoError(err)

	flt, ok := task.(*FoldLeftTask)
	require.True(ok)
	require.Len(flt.Tail, 1)
	require.Equal(OutActionReduce, flt.Tail[0].Spec.Out)
}
