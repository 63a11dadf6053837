package workflow

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/bsonflow/wfc/expr"
	"github.com/bsonflow/wfc/js"
)

func TestMergeIdentityReturnsTheSharedTreeUnchanged(t *testing.T) {
	require := require.New(t)

	left := ReadOp("orders")
	right := ReadOp("orders") // structurally equal, distinct value

	bl, br, merged, err := Merge(left, right)
	require.NoError(err)
	require.True(bl.IsRoot())
	require.True(br.IsRoot())
	require.Equal(left, merged)
}

func TestMergeBothPureFoldsUnderReservedNames(t *testing.T) {
	require := require.New(t)

	left := PureOp(bson.M{"a": 1})
	right := PureOp(bson.M{"b": 2})

	bl, br, merged, err := Merge(left, right)
	require.NoError(err)
	require.Equal(expr.NewDocVar(expr.LeftField), bl)
	require.Equal(expr.NewDocVar(expr.RightField), br)

	p, ok := merged.(*Pure)
	require.True(ok)
	require.Equal(bson.M{"a": 1}, p.Value[expr.LeftVar])
	require.Equal(bson.M{"b": 2}, p.Value[expr.RightVar])
}

func TestMergeReadVsMapBuildsAFoldLeftSharingTheRead(t *testing.T) {
	require := require.New(t)

	read := ReadOp("orders")
	mapped := MapStage(js.Raw("function() { emit(this._id, this.amount); }"))(read)

	bl, br, merged, err := Merge(read, mapped)
	require.NoError(err)
	require.Equal(expr.NewDocVar(expr.LeftField), bl)
	require.Equal(expr.NewDocVar(expr.RightField), br)

	fl, ok := merged.(*FoldLeft)
	require.True(ok)
	require.Len(fl.Tail, 1)

	head, ok := fl.Head.(*Project)
	require.True(ok)
	require.IsType(&Read{}, head.SrcOp)

	tail, ok := fl.Tail[0].(*Project)
	require.True(ok)
	_, ok = tail.SrcOp.(*Map)
	require.True(ok)
}

func TestMergeFallbackWrapsIncompatibleOperandsInAFoldLeft(t *testing.T) {
	require := require.New(t)

	left := ReadOp("orders")
	right := ReadOp("customers")

	_, _, merged, err := Merge(left, right)
	require.NoError(err)

	fl, ok := merged.(*FoldLeft)
	require.True(ok)
	require.Len(fl.Tail, 1)
}

func TestMergeUnwindVsRedactReparentsUnwindOverTheMergedSources(t *testing.T) {
	require := require.New(t)

	left := UnwindStage(expr.NewDocVar(expr.Field("items")))(ReadOp("orders"))
	right := RedactStage(expr.NewFieldRef(expr.NewDocVar(expr.Field("keep"))))(ReadOp("customers"))

	bl, _, merged, err := Merge(left, right)
	require.NoError(err)

	u, ok := merged.(*Unwind)
	require.True(ok)
	require.Equal(bl.Under(expr.Field("items")), u.Field)

	fl, ok := u.SrcOp.(*FoldLeft)
	require.True(ok)
	require.Len(fl.Tail, 1)

	head, ok := fl.Head.(*Project)
	require.True(ok)
	require.IsType(&Read{}, head.SrcOp)

	tail, ok := fl.Tail[0].(*Project)
	require.True(ok)
	_, ok = tail.SrcOp.(*Redact)
	require.True(ok)
}

func TestMergeTwoProjectsOverTheSameSourceCombinesShapes(t *testing.T) {
	require := require.New(t)

	src := ReadOp("orders")
	left := ProjectStage(
		expr.NewReshape().Set(expr.Field("a"), expr.NewFieldRef(expr.NewDocVar(expr.Field("a")))),
		IgnoreId,
	)(src)
	right := ProjectStage(
		expr.NewReshape().Set(expr.Field("b"), expr.NewFieldRef(expr.NewDocVar(expr.Field("b")))),
		IgnoreId,
	)(src)

	bl, br, merged, err := Merge(left, right)
	require.NoError(err)
	require.True(bl.IsRoot())
	require.True(br.IsRoot())

	p, ok := merged.(*Project)
	require.True(ok)
	_, aOk := p.Shape.Get(expr.Field("a"))
	_, bOk := p.Shape.Get(expr.Field("b"))
	require.True(aOk)
	require.True(bOk)
}
