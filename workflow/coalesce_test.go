package workflow

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/bsonflow/wfc/expr"
)

func TestMatchMatchCoalescesIntoSingleMatch(t *testing.T) {
	require := require.New(t)

	src := ReadOp("orders")
	a := expr.Eq(expr.NewDocVar(expr.Field("status")), "open")
	b := expr.Gt(expr.NewDocVar(expr.Field("total")), 10)

	op := Seq(src, MatchStage(a), MatchStage(b))

	m, ok := op.(*Match)
	require.True(ok, "expected a single coalesced Match, got %T", op)
	require.IsType(&Read{}, m.SrcOp)
	// rule table: Match(sel0) -> Match(sel1) coalesces to sel0 && sel1.
	require.Equal("($$ROOT.status eq open && $$ROOT.total gt 10)", m.Sel.Render())
}

func TestLimitLimitCoalescesToTheSmaller(t *testing.T) {
	require := require.New(t)

	op := Seq(ReadOp("orders"), LimitStage(10), LimitStage(3))
	l, ok := op.(*Limit)
	require.True(ok)
	require.Equal(int64(3), l.N)
}

func TestLimitAfterSkipPushesLimitBelowSkip(t *testing.T) {
	require := require.New(t)

	// skip(5) -> limit(3) keeps indices 5, 6 and 7 of the input. Coalescing
	// rewrites it as limit(8) -> skip(5), which keeps the same three
	// documents while letting the limit bound the upstream scan.
	op := Seq(ReadOp("orders"), SkipStage(5), LimitStage(3))
	s, ok := op.(*Skip)
	require.True(ok)
	require.Equal(int64(5), s.N)
	l, ok := s.SrcOp.(*Limit)
	require.True(ok)
	require.Equal(int64(8), l.N)
}

func TestSkipSkipCoalescesToTheSum(t *testing.T) {
	require := require.New(t)

	op := Seq(ReadOp("orders"), SkipStage(5), SkipStage(3))
	s, ok := op.(*Skip)
	require.True(ok)
	require.Equal(int64(8), s.N)
}

func TestOutIntoMatchingReadIsANoOp(t *testing.T) {
	require := require.New(t)

	op := Seq(ReadOp("orders"), OutStage("orders"))
	r, ok := op.(*Read)
	require.True(ok)
	require.Equal("orders", r.Collection)
}

func TestOutIntoDifferentReadIsKept(t *testing.T) {
	require := require.New(t)

	op := Seq(ReadOp("orders"), OutStage("archive"))
	o, ok := op.(*Out)
	require.True(ok)
	require.Equal("archive", o.Collection)
}

func TestProjectProjectCoalescesWhenNoUndefinedFieldIsReferenced(t *testing.T) {
	require := require.New(t)

	inner := expr.NewReshape().Set(expr.Field("total"), expr.NewFieldRef(expr.NewDocVar(expr.Field("amount"))))
	outer := expr.NewReshape().Set(expr.Field("t"), expr.NewFieldRef(expr.NewDocVar(expr.Field("total"))))

	op := Seq(ReadOp("orders"),
		ProjectStage(inner, IgnoreId),
		ProjectStage(outer, IgnoreId))

	p, ok := op.(*Project)
	require.True(ok)
	require.IsType(&Read{}, p.SrcOp)
}

func TestCoalesceIsIdempotent(t *testing.T) {
	require := require.New(t)

	op := Seq(ReadOp("orders"),
		MatchStage(expr.Eq(expr.NewDocVar(expr.Field("status")), "open")),
		LimitStage(5))

	again := coalesce(op)
	require.Equal(op, again)
}
