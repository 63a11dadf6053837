package workflow

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/bsonflow/wfc/expr"
)

func TestCompileOfAPlainPipelineYieldsAPipelineTask(t *testing.T) {
	require := require.New(t)

	op := Seq(ReadOp("orders"),
		MatchStage(expr.Eq(expr.NewDocVar(expr.Field("status")), "open")),
		LimitStage(5))

	task, err := Compile(context.Background(), op)
	require.NoError(err)

	pt, ok := task.(*PipelineTask)
	require.True(ok)
	require.IsType(&ReadTask{}, pt.Upstream)
	require.Len(pt.Ops, 2)
}

func TestCompileOfAFoldLeftYieldsAFoldLeftTaskWithReducedTails(t *testing.T) {
	require := require.New(t)

	op := FoldLeftOp(ReadOp("orders"), ReadOp("customers"))

	task, err := Compile(context.Background(), op)
	require.NoError(err)

	flt, ok := task.(*FoldLeftTask)
	require.True(ok)
	require.Len(flt.Tail, 1)
	require.Equal(OutActionReduce, flt.Tail[0].Spec.Out)
}
