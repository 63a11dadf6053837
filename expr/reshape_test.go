package expr

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestReshapeMergeKeepsDisjointFieldsFromBothSides(t *testing.T) {
	require := require.New(t)

	l := NewReshape().Set(Field("a"), NewLiteral(1))
	r := NewReshape().Set(Field("b"), NewLiteral(2))

	merged, ok := l.Merge(r)
	require.True(ok)
	a, _ := merged.Get(Field("a"))
	b, _ := merged.Get(Field("b"))
	require.Equal(NewLiteral(1), a)
	require.Equal(NewLiteral(2), b)
}

func TestReshapeMergeSucceedsWhenSharedFieldsAgree(t *testing.T) {
	require := require.New(t)

	l := NewReshape().Set(Field("a"), NewLiteral(1))
	r := NewReshape().Set(Field("a"), NewLiteral(1))

	merged, ok := l.Merge(r)
	require.True(ok)
	v, _ := merged.Get(Field("a"))
	require.Equal(NewLiteral(1), v)
}

func TestReshapeMergeFailsWhenSharedFieldsDisagree(t *testing.T) {
	require := require.New(t)

	l := NewReshape().Set(Field("a"), NewLiteral(1))
	r := NewReshape().Set(Field("a"), NewLiteral(2))

	_, ok := l.Merge(r)
	require.False(ok)
}

func TestReshapeToJSTranslatesFieldRefsAndLiterals(t *testing.T) {
	require := require.New(t)

	shape := NewReshape().
		Set(Field("total"), NewFieldRef(NewDocVar(Field("amount")))).
		Set(Field("kind"), NewLiteral("order"))

	fn, ok := shape.ToJS("doc")
	require.True(ok)
	require.Equal(`function(doc) { return {total: doc.amount, kind: "order"}; }`, fn.Render())
}

func TestReshapeToJSRefusesARootFieldRef(t *testing.T) {
	require := require.New(t)

	shape := NewReshape().Set(Field("whole"), NewFieldRef(ROOT))
	_, ok := shape.ToJS("doc")
	require.False(ok)
}

func TestReshapeToJSRefusesNonTranslatableExpr(t *testing.T) {
	require := require.New(t)

	shape := NewReshape().Set(Field("sum"), NewBinOp("add", NewLiteral(1), NewLiteral(2)))
	_, ok := shape.ToJS("doc")
	require.False(ok)
}
