package workflow

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/bsonflow/wfc/expr"
)

func TestRewriteMatchAppliesToTheSelectorOnly(t *testing.T) {
	require := require.New(t)

	m := &Match{SrcOp: ReadOp("orders"), Sel: expr.Eq(expr.NewDocVar(expr.Field("status")), "open")}
	out, err := Rewrite(m, func(d expr.DocVar) expr.DocVar {
		if d.IsRoot() {
			return d
		}
		return expr.NewDocVar(expr.Field("lEft").Under(d.Field))
	})
	require.NoError(err)

	rewritten := out.(*Match)
	require.Equal("$$ROOT.lEft.status eq open", rewritten.Sel.Render())
	require.IsType(&Read{}, rewritten.SrcOp)
}

func TestRewriteGroupAcceptsARewriteThatKeepsEveryAccumulatorShape(t *testing.T) {
	require := require.New(t)

	g := &Group{
		SrcOp:   ReadOp("orders"),
		Grouped: expr.NewGrouped().Set(expr.Field("total"), expr.Sum(expr.NewFieldRef(expr.NewDocVar(expr.Field("amount"))))),
		By:      expr.NewFieldRef(expr.NewDocVar(expr.Field("customer"))),
	}

	_, err := Rewrite(g, func(d expr.DocVar) expr.DocVar { return d })
	require.NoError(err)
}

func TestRewriteUnwindRewritesItsField(t *testing.T) {
	require := require.New(t)

	u := &Unwind{SrcOp: ReadOp("orders"), Field: expr.NewDocVar(expr.Field("items"))}
	out, err := Rewrite(u, func(d expr.DocVar) expr.DocVar {
		if d.IsRoot() {
			return d
		}
		return expr.NewDocVar(expr.Field("lEft").Under(d.Field))
	})
	require.NoError(err)

	rewritten := out.(*Unwind)
	require.Equal(expr.NewDocVar(expr.Field("lEft", "items")), rewritten.Field)
}

func TestRefsCollectsEveryFieldValuedSubterm(t *testing.T) {
	require := require.New(t)

	m := &Match{
		SrcOp: ReadOp("orders"),
		Sel: expr.Eq(expr.NewDocVar(expr.Field("status")), "open").
			And(expr.Gt(expr.NewDocVar(expr.Field("total")), 10)),
	}
	got := refs(m)
	require.Len(got, 2)
}
